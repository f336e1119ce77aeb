package main

import (
	"dailynutra-loyaltyplane/internal/httpapi"
	"dailynutra-loyaltyplane/internal/server"
	pkgasynq "dailynutra-loyaltyplane/pkg/asynq"
	"dailynutra-loyaltyplane/pkg/config"
	"dailynutra-loyaltyplane/pkg/db"
	"dailynutra-loyaltyplane/pkg/gen"
	"dailynutra-loyaltyplane/pkg/health"
	"dailynutra-loyaltyplane/pkg/logger"
	"dailynutra-loyaltyplane/pkg/notify"
	pkgredis "dailynutra-loyaltyplane/pkg/redis"
	"dailynutra-loyaltyplane/pkg/sequence"
	"dailynutra-loyaltyplane/services/catalog"
	"dailynutra-loyaltyplane/services/customer"
	"dailynutra-loyaltyplane/services/loyalty"
	"dailynutra-loyaltyplane/services/promotion"
	"dailynutra-loyaltyplane/services/referral"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func opts() fx.Option {
	return fx.Options(
		config.Module,
		logger.Module,
		db.Module,
		pkgredis.Module,
		pkgasynq.Client,
		pkgasynq.Server,
		gen.Module,
		sequence.Module,
		notify.Module,
		health.Module,

		catalog.Module,
		loyalty.Module,
		loyalty.TaskModule,
		referral.Module,
		customer.Module,
		promotion.Module,

		server.Module,
		httpapi.Module,

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)
}

func main() {
	fx.New(opts()).Run()
}
