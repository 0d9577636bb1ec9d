package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"intake/pkg/domain"
	"intake/pkg/sentinel"
)

const pendingKeyPrefix = "intake:pending:"

// RedisPendingStore keeps pending verifications in Redis. Records persist
// until confirmed, rejected or replaced; production passes a zero TTL so a
// respondent can complete capture arbitrarily late. A non-zero TTL is for
// tests that need bounded keys.
type RedisPendingStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPending(client *redis.Client, ttl time.Duration) *RedisPendingStore {
	return &RedisPendingStore{client: client, ttl: ttl}
}

type pendingRecord struct {
	InviteID  string    `json:"invite_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *RedisPendingStore) Put(ctx context.Context, p *Pending) error {
	data, err := json.Marshal(pendingRecord{
		InviteID:  p.InviteID.String(),
		CreatedAt: p.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal pending: %w", err)
	}
	// SET replaces any existing record for the respondent.
	if err := s.client.Set(ctx, pendingKeyPrefix+string(p.RespondentID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("put pending: %w", err)
	}
	return nil
}

func (s *RedisPendingStore) Get(ctx context.Context, rid domain.RespondentID) (*Pending, error) {
	data, err := s.client.Get(ctx, pendingKeyPrefix+string(rid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get pending: %w", err)
	}
	var rec pendingRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal pending: %w", err)
	}
	inviteID, err := domain.ParseInviteID(rec.InviteID)
	if err != nil {
		return nil, fmt.Errorf("parse pending invite id: %w", err)
	}
	return &Pending{RespondentID: rid, InviteID: inviteID, CreatedAt: rec.CreatedAt}, nil
}

func (s *RedisPendingStore) Delete(ctx context.Context, rid domain.RespondentID) error {
	if err := s.client.Del(ctx, pendingKeyPrefix+string(rid)).Err(); err != nil {
		return fmt.Errorf("delete pending: %w", err)
	}
	return nil
}
