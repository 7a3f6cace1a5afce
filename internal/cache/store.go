package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

// Store is the key/value surface the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close()
}

// ValkeyStore keeps entries in a valkey (or redis) server.
type ValkeyStore struct {
	client valkey.Client
}

// DialValkey connects to addr. The client pings on connect, so an unreachable
// server surfaces here rather than on first use.
func DialValkey(addr string) (*ValkeyStore, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("valkey address required")
	}
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:  []string{addr},
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect valkey %s: %w", addr, err)
	}
	return &ValkeyStore{client: client}, nil
}

// Get returns the value for key. A missing key is not an error.
func (s *ValkeyStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("valkey get: %w", err)
	}
	return value, true, nil
}

// Set stores value under key for ttl, rounded up to whole seconds.
func (s *ValkeyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	seconds := int64((ttl + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	if err := s.client.Do(ctx, s.client.B().Setex().Key(key).Seconds(seconds).Value(value).Build()).Error(); err != nil {
		return fmt.Errorf("valkey setex: %w", err)
	}
	return nil
}

// Ping verifies the server answers.
func (s *ValkeyStore) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("valkey ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *ValkeyStore) Close() {
	s.client.Close()
}
