package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/opspilot/internal/domain"
)

func TestStateStore_SingleUse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStateStore()

	require.NoError(t, s.Put(ctx, "abc", []byte("payload"), time.Minute))

	got, err := s.Take(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	_, err = s.Take(ctx, "abc")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStateStore_Expiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStateStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, "abc", []byte("x"), 5*time.Minute))

	now = now.Add(6 * time.Minute)
	_, err := s.Take(ctx, "abc")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
