package sequence

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeReservationStore rejects the first `reject` reservation attempts.
type fakeReservationStore struct {
	reject   int
	attempts []string
	released []string
}

func (s *fakeReservationStore) Reserve(_ context.Context, key, _ string) (bool, error) {
	s.attempts = append(s.attempts, key)
	return len(s.attempts) > s.reject, nil
}

func (s *fakeReservationStore) Release(_ context.Context, key string) error {
	s.released = append(s.released, key)
	return nil
}

func TestNextReferralCodeRetriesOnCollision(t *testing.T) {
	store := &fakeReservationStore{reject: 2}
	g := &RedisGenerator{store: store}

	code, err := g.NextReferralCode(context.Background(), "1234567890")
	require.NoError(t, err)
	require.Regexp(t, `^DN-7890-[A-Z2-9]{5}$`, code)
	require.Len(t, store.attempts, 3)

	// each attempt tried a fresh key in the referral namespace
	for _, key := range store.attempts {
		require.True(t, strings.HasPrefix(key, "referral:code:DN-7890-"), "key %q", key)
	}
}

func TestNextReferralCodeExhaustsAttempts(t *testing.T) {
	store := &fakeReservationStore{reject: maxAttempts}
	g := &RedisGenerator{store: store}

	_, err := g.NextReferralCode(context.Background(), "1234567890")
	require.Error(t, err)
	require.Len(t, store.attempts, maxAttempts)
}

func TestReleaseReferralCode(t *testing.T) {
	store := &fakeReservationStore{}
	g := &RedisGenerator{store: store}

	require.NoError(t, g.ReleaseReferralCode(context.Background(), "DN-7890-ABCDE"))
	require.Equal(t, []string{"referral:code:DN-7890-ABCDE"}, store.released)
}

func TestFormatReferralCode(t *testing.T) {
	code := FormatReferralCode("1234567890", "ABCDE")
	require.Equal(t, "DN-7890-ABCDE", code)
}

func TestFormatReferralCodeShortID(t *testing.T) {
	code := FormatReferralCode("42", "ABCDE")
	require.Equal(t, "DN-42-ABCDE", code)
}

func TestRandomAlphaNumeric(t *testing.T) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	s, err := randomAlphaNumeric(suffixLength)
	require.NoError(t, err)
	require.Len(t, s, suffixLength)

	for _, r := range s {
		require.True(t, strings.ContainsRune(chars, r), "unexpected character %q", r)
	}
}
