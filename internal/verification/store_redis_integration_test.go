//go:build integration

package verification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"intake/pkg/domain"
	"intake/pkg/sentinel"
	"intake/pkg/testutil/containers"
)

func TestRedisPendingStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rc := containers.NewRedisContainer(t)
	store := NewRedisPending(rc.Client, 0)
	ctx := context.Background()

	inviteID := domain.NewInviteID()
	p := &Pending{RespondentID: "42", InviteID: inviteID, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, store.Put(ctx, p))

	got, err := store.Get(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, inviteID, got.InviteID)

	// A zero-TTL store leaves the key without expiry: the record survives
	// until it is confirmed, rejected or replaced.
	ttl, err := rc.Client.TTL(ctx, pendingKeyPrefix+"42").Result()
	require.NoError(t, err)
	require.Less(t, ttl, time.Duration(0))

	// Put for the same respondent replaces the record.
	other := domain.NewInviteID()
	require.NoError(t, store.Put(ctx, &Pending{RespondentID: "42", InviteID: other, CreatedAt: time.Now()}))
	got, err = store.Get(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, other, got.InviteID)

	require.NoError(t, store.Delete(ctx, "42"))
	_, err = store.Get(ctx, "42")
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	// Delete of a missing record is a no-op.
	require.NoError(t, store.Delete(ctx, "missing"))
}
