package promotion

import (
	"context"
	"errors"
	"sort"
	"time"

	"dailynutra-loyaltyplane/pkg/errutil"
	"dailynutra-loyaltyplane/pkg/rediskey"
	"dailynutra-loyaltyplane/services/loyalty"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// sessionTTL bounds session-scoped suppression when the storefront session
// has no explicit lifetime.
const sessionTTL = 12 * time.Hour

// SeenStore remembers which promotions a visitor has already been shown.
type SeenStore interface {
	Seen(ctx context.Context, key string) (bool, error)
	MarkSeen(ctx context.Context, key string, ttl time.Duration) error
}

type redisSeenStore struct {
	rdb *redis.Client
}

func NewRedisSeenStore(rdb *redis.Client) SeenStore {
	return &redisSeenStore{rdb: rdb}
}

func (s *redisSeenStore) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisSeenStore) MarkSeen(ctx context.Context, key string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, "1", ttl).Err()
}

type Service struct {
	db        *gorm.DB
	node      *snowflake.Node
	evaluator *Evaluator
	seen      SeenStore
	loyalty   *loyalty.Service
}

type ServiceParams struct {
	fx.In
	DB        *gorm.DB
	Node      *snowflake.Node
	Evaluator *Evaluator
	Seen      SeenStore
	Loyalty   *loyalty.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:        p.DB,
		node:      p.Node,
		evaluator: p.Evaluator,
		seen:      p.Seen,
		loyalty:   p.Loyalty,
	}
}

// Eligible returns the popups to display on a page visit, best first.
// A promotion qualifies when it is active, inside its schedule window,
// targets the page, its audience expression matches the visitor and its
// display frequency has not suppressed it for this visitor.
func (s *Service) Eligible(ctx context.Context, page, sessionID, customerID string, at time.Time) ([]Promotion, error) {
	var candidates []Promotion
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&candidates).Error; err != nil {
		return nil, err
	}

	audience := s.audienceFor(ctx, customerID, at)

	eligible := make([]Promotion, 0, len(candidates))
	for _, p := range candidates {
		if !p.InWindow(at) || !p.MatchesPage(page) {
			continue
		}

		match, err := s.evaluator.Evaluate(p.AudienceExpression, audience)
		if err != nil {
			// a broken expression disables the promotion, never the endpoint
			zap.L().Warn("audience expression failed",
				zap.String("promotion_id", p.ID), zap.Error(err))
			continue
		}
		if !match {
			continue
		}

		suppressed, err := s.suppressed(ctx, &p, sessionID, customerID)
		if err != nil {
			return nil, err
		}
		if suppressed {
			continue
		}

		eligible = append(eligible, p)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Priority != eligible[j].Priority {
			return eligible[i].Priority > eligible[j].Priority
		}
		return eligible[i].CreatedAt.After(eligible[j].CreatedAt)
	})

	return eligible, nil
}

// MarkShown records a display so frequency rules suppress repeats.
func (s *Service) MarkShown(ctx context.Context, promotionID, sessionID, customerID string, at time.Time) error {
	var p Promotion
	if err := s.db.WithContext(ctx).Where("id = ?", promotionID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errutil.NotFound("promotion not found")
		}
		return err
	}

	key, ttl, ok := suppressionKey(&p, sessionID, customerID, at)
	if !ok {
		return nil
	}
	return s.seen.MarkSeen(ctx, key, ttl)
}

func (s *Service) suppressed(ctx context.Context, p *Promotion, sessionID, customerID string) (bool, error) {
	key, _, ok := suppressionKey(p, sessionID, customerID, time.Time{})
	if !ok {
		return false, nil
	}
	return s.seen.Seen(ctx, key)
}

// suppressionKey derives the redis key and TTL for a promotion's frequency
// rule. ok is false when the frequency never suppresses (always) or when no
// subject identity is available.
func suppressionKey(p *Promotion, sessionID, customerID string, at time.Time) (string, time.Duration, bool) {
	subject := "c:" + customerID
	if customerID == "" {
		if sessionID == "" {
			return "", 0, false
		}
		subject = "s:" + sessionID
	}

	switch p.DisplayFrequency {
	case FrequencyOnce:
		return rediskey.BuildPromotionSeenKey("once", p.ID, subject), 0, true
	case FrequencyDaily:
		var ttl time.Duration
		if !at.IsZero() {
			ttl = endOfUTCDay(at).Sub(at)
		}
		return rediskey.BuildPromotionSeenKey("daily", p.ID, subject), ttl, true
	case FrequencySession:
		if sessionID == "" {
			return "", 0, false
		}
		return rediskey.BuildPromotionSeenKey("session", p.ID, "s:"+sessionID), sessionTTL, true
	default:
		return "", 0, false
	}
}

func endOfUTCDay(at time.Time) time.Time {
	u := at.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}

func (s *Service) audienceFor(ctx context.Context, customerID string, at time.Time) Audience {
	if customerID == "" {
		return Audience{}
	}

	account, err := s.loyalty.AccountByCustomer(ctx, customerID)
	if err != nil {
		return Audience{}
	}

	return Audience{
		IsMember:        true,
		Level:           account.Level.String(),
		TotalPoints:     account.TotalPoints,
		AvailablePoints: account.AvailablePoints,
		CommissionTier:  account.CommissionTierID,
		DaysSinceJoined: int64(at.Sub(account.JoinedAt).Hours() / 24),
	}
}

// Create stores a new promotion.
func (s *Service) Create(ctx context.Context, p *Promotion) error {
	if p.Title == "" {
		return errutil.ValidationFailed("title is required")
	}
	if p.ID == "" {
		p.ID = s.node.Generate().String()
	}
	if p.DisplayFrequency == "" {
		p.DisplayFrequency = FrequencyAlways
	}
	return s.db.WithContext(ctx).Create(p).Error
}
