package deletion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "refledger/pkg/domain"
	"refledger/pkg/platform/sentinel"
)

// RedisStore keeps deletion-request timestamps in Redis so requests survive
// restarts without touching the primary database. Entries expire on their
// own once the maximum cooldown window has long passed.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a store; ttl bounds how long an unacted request is
// retained and must exceed the configured cooldown.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(participant id.ParticipantID) string {
	return "refledger:deletion-request:" + participant.String()
}

func (s *RedisStore) Request(ctx context.Context, participant id.ParticipantID, at time.Time) error {
	if err := s.client.Set(ctx, s.key(participant), at.UnixNano(), s.ttl).Err(); err != nil {
		return fmt.Errorf("set deletion request: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, participant id.ParticipantID) (time.Time, error) {
	nanos, err := s.client.Get(ctx, s.key(participant)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, sentinel.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("get deletion request: %w", err)
	}
	return time.Unix(0, nanos), nil
}

func (s *RedisStore) Clear(ctx context.Context, participant id.ParticipantID) error {
	if err := s.client.Del(ctx, s.key(participant)).Err(); err != nil {
		return fmt.Errorf("clear deletion request: %w", err)
	}
	return nil
}
