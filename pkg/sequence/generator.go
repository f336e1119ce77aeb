package sequence

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"dailynutra-loyaltyplane/pkg/rediskey"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("sequence",
	fx.Provide(NewRedisGenerator),
)

const (
	referralCodePrefix = "DN"
	suffixLength       = 5
	maxAttempts        = 5
)

// Generator issues customer-facing codes.
type Generator interface {
	// NextReferralCode returns a referral code of the form
	// DN-<last4 of customerID>-<5 alphanumeric chars>, guaranteed unused.
	NextReferralCode(ctx context.Context, customerID string) (string, error)
	// ReleaseReferralCode frees a reservation when the owning record was
	// never committed.
	ReleaseReferralCode(ctx context.Context, code string) error
}

// ReservationStore claims a code atomically so two concurrent registrations
// can never receive the same one.
type ReservationStore interface {
	Reserve(ctx context.Context, key, owner string) (bool, error)
	Release(ctx context.Context, key string) error
}

type redisReservationStore struct {
	rdb *redis.Client
}

func (s *redisReservationStore) Reserve(ctx context.Context, key, owner string) (bool, error) {
	return s.rdb.SetNX(ctx, key, owner, 0).Result()
}

func (s *redisReservationStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

type RedisGenerator struct {
	store ReservationStore
}

type Params struct {
	fx.In

	Redis *redis.Client
}

func NewRedisGenerator(p Params) Generator {
	return &RedisGenerator{
		store: &redisReservationStore{rdb: p.Redis},
	}
}

// NextReferralCode reserves the generated code atomically. Collisions are
// retried with a fresh random suffix; exhaustion is an error.
func (g *RedisGenerator) NextReferralCode(ctx context.Context, customerID string) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		suffix, err := randomAlphaNumeric(suffixLength)
		if err != nil {
			return "", err
		}

		code := FormatReferralCode(customerID, suffix)

		ok, err := g.store.Reserve(ctx, rediskey.BuildReferralCodeKey(code), customerID)
		if err != nil {
			return "", err
		}
		if ok {
			return code, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique referral code after %d attempts", maxAttempts)
}

func (g *RedisGenerator) ReleaseReferralCode(ctx context.Context, code string) error {
	return g.store.Release(ctx, rediskey.BuildReferralCodeKey(code))
}

// FormatReferralCode builds "DN-<last4>-<suffix>" from a customer ID.
func FormatReferralCode(customerID, suffix string) string {
	last4 := customerID
	if len(customerID) > 4 {
		last4 = customerID[len(customerID)-4:]
	}
	return fmt.Sprintf("%s-%s-%s", referralCodePrefix, last4, suffix)
}

func randomAlphaNumeric(n int) (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, n)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", err
		}
		b[i] = chars[num.Int64()]
	}
	return string(b), nil
}
