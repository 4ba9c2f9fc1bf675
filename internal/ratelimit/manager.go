package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Manager provides Redis-backed fixed-window rate limiting. The underlying
// client is shared with other Redis consumers through Client.
type Manager struct {
	redis  *redis.Client
	window time.Duration
	now    func() time.Time
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// Reset is the time left until the current window closes.
	Reset time.Duration
}

func NewManager(redisURL string) (*Manager, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewManagerWithClient(client), nil
}

// NewManagerWithClient wraps an existing client without probing it.
func NewManagerWithClient(client *redis.Client) *Manager {
	return &Manager{redis: client, window: time.Minute, now: time.Now}
}

// Client exposes the Redis connection for other consumers.
func (m *Manager) Client() *redis.Client { return m.redis }

func (m *Manager) Close() error { return m.redis.Close() }

// Allow counts one event for clientID in the given scope and reports whether
// it is within limit for the current window. A limit <= 0 disables the check.
func (m *Manager) Allow(ctx context.Context, scope, clientID string, limit int) (Decision, error) {
	if limit <= 0 {
		return Decision{Allowed: true}, nil
	}
	now := m.now().UTC()
	secs := int64(m.window / time.Second)
	window := now.Unix() / secs
	key := fmt.Sprintf("rl:%s:%s:%d", scope, clientID, window)

	pipe := m.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, m.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("rate window %s: %w", key, err)
	}

	count := int(incr.Val())
	reset := time.Duration(secs-now.Unix()%secs) * time.Second
	return Decision{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(0, limit-count),
		Reset:     reset,
	}, nil
}
