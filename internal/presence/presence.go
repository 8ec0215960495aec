// Package presence tracks lightweight per-user state in redis: whether the
// user was greeted today and the last attempt seen, with natural expiry.
package presence

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lechuga_bot_backend/platform/config"
)

const (
	greetingKeyPrefix = "greeted:"
	attemptKeyPrefix  = "last_attempt:"

	greetingTTL = 48 * time.Hour
	attemptTTL  = 7 * 24 * time.Hour
)

// Store is a redis-backed presence store.
type Store struct {
	client *redis.Client
	now    func() time.Time
}

// NewStore creates a presence store from the shared redis URL.
func NewStore(cfg config.RedisConfig) (*Store, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}

	return &Store{client: redis.NewClient(opt), now: time.Now}, nil
}

// NewStoreWithClient wires an existing client, used by tests.
func NewStoreWithClient(client *redis.Client) *Store {
	return &Store{client: client, now: time.Now}
}

// Close releases the redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) greetingKey(userID int64) string {
	return fmt.Sprintf("%s%d", greetingKeyPrefix, userID)
}

// AlreadyGreetedToday reports whether the daily greeting was already sent.
func (s *Store) AlreadyGreetedToday(ctx context.Context, userID int64) (bool, error) {
	val, err := s.client.Get(ctx, s.greetingKey(userID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get greeting marker: %w", err)
	}
	return val == s.today(), nil
}

// MarkGreeted records that the user was greeted today.
func (s *Store) MarkGreeted(ctx context.Context, userID int64) error {
	if err := s.client.Set(ctx, s.greetingKey(userID), s.today(), greetingTTL).Err(); err != nil {
		return fmt.Errorf("set greeting marker: %w", err)
	}
	return nil
}

// RecordAttempt stores the user's most recent attempt ID.
func (s *Store) RecordAttempt(ctx context.Context, userID int64, attemptID string) error {
	key := fmt.Sprintf("%s%d", attemptKeyPrefix, userID)
	if err := s.client.Set(ctx, key, attemptID, attemptTTL).Err(); err != nil {
		return fmt.Errorf("set last attempt: %w", err)
	}
	return nil
}

// LastAttempt returns the user's most recent attempt ID, or "" when none is
// recorded.
func (s *Store) LastAttempt(ctx context.Context, userID int64) (string, error) {
	key := fmt.Sprintf("%s%d", attemptKeyPrefix, userID)
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get last attempt: %w", err)
	}
	return val, nil
}

func (s *Store) today() string {
	return s.now().UTC().Format("2006-01-02")
}
