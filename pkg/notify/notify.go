package notify

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Kind string

const (
	Info    Kind = "info"
	Success Kind = "success"
	Warning Kind = "warning"
)

// Notifier delivers user-facing notifications. Fire-and-forget: callers never
// consume a return value, failures are the notifier's problem.
type Notifier interface {
	Notify(ctx context.Context, title, message string, kind Kind)
}

var Module = fx.Module("notify",
	fx.Provide(NewZapNotifier),
)

type zapNotifier struct {
	log *zap.Logger
}

func NewZapNotifier(log *zap.Logger) Notifier {
	return &zapNotifier{log: log}
}

func (n *zapNotifier) Notify(ctx context.Context, title, message string, kind Kind) {
	n.log.Info("notification",
		zap.String("title", title),
		zap.String("message", message),
		zap.String("kind", string(kind)),
	)
}

// Nop returns a notifier that drops everything. Used in tests.
func Nop() Notifier {
	return nopNotifier{}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, string, Kind) {}
