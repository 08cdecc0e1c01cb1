// Package redis provides a core.ProgressStore backed by Redis lists. Each
// learner owns one list; Append is RPUSH so earlier records are never touched.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/progress"
)

// Options configures the Redis progress store.
type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	// TTL expires a learner's list after the last append. Zero keeps it forever.
	TTL time.Duration
}

// Store implements core.ProgressStore on Redis.
type Store struct {
	client    *goredis.Client
	keyPrefix string
	ttl       time.Duration
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{Addr: "localhost:6379", KeyPrefix: "tutormesh:"}
	for _, fn := range optFns {
		fn(&opts)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewFromClient(client, opts.KeyPrefix, opts.TTL), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *goredis.Client, keyPrefix string, ttl time.Duration) *Store {
	return &Store{client: client, keyPrefix: keyPrefix + "progress:", ttl: ttl}
}

func (s *Store) userKey(userID string) string { return s.keyPrefix + userID }

// Append pushes rec onto the learner's list.
func (s *Store) Append(ctx context.Context, rec core.ProgressRecord) error {
	if err := progress.Prepare(&rec); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal progress record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.userKey(rec.UserID), data)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.userKey(rec.UserID), s.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// List returns the learner's records in append order.
func (s *Store) List(ctx context.Context, userID string) ([]core.ProgressRecord, error) {
	raw, err := s.client.LRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]core.ProgressRecord, 0, len(raw))
	for _, item := range raw {
		var rec core.ProgressRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal progress record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Ping checks if the store is healthy.
func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

// Close closes the underlying client.
func (s *Store) Close() error { return s.client.Close() }
