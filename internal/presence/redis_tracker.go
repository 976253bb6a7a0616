// Package presence tracks which users currently hold a live chat session
// anywhere in the cluster. Keys carry a TTL refreshed by a heartbeat so
// a crashed instance's sessions expire on their own. The message router
// consults presence before falling back to a persisted notification for
// a private message whose receiver is offline.
package presence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eventbem/chat-service/internal/config"
	"github.com/eventbem/chat-service/pkg/log"
)

// Tracker records and queries cluster-wide user presence.
type Tracker interface {
	Track(ctx context.Context, userID uint) error
	Untrack(ctx context.Context, userID uint) error
	IsOnline(ctx context.Context, userID uint) (bool, error)
	StartHeartbeat(ctx context.Context) error
	StopHeartbeat()
	Close() error
}

type RedisTracker struct {
	client            *redis.Client
	instanceID        string
	prefix            string
	keyTTL            time.Duration
	heartbeatInterval time.Duration

	// Refcount per key: a user may hold one session per event, so
	// several local sessions can share one presence key.
	managedKeys map[string]int
	mu          sync.RWMutex
	cancel      context.CancelFunc
}

func NewRedisTracker(cfg config.RedisConfig, instanceID string) (*RedisTracker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisTracker{
		client:            client,
		instanceID:        instanceID,
		prefix:            cfg.PresencePrefix,
		keyTTL:            cfg.KeyTTL,
		heartbeatInterval: cfg.HeartbeatInterval,
		managedKeys:       make(map[string]int),
	}, nil
}

func (r *RedisTracker) keyFor(userID uint) string {
	return fmt.Sprintf("%s:user:%d:%s", r.prefix, userID, r.instanceID)
}

func (r *RedisTracker) userPattern(userID uint) string {
	return fmt.Sprintf("%s:user:%d:*", r.prefix, userID)
}

// Track marks the user as online on this instance.
func (r *RedisTracker) Track(ctx context.Context, userID uint) error {
	key := r.keyFor(userID)

	if err := r.client.Set(ctx, key, r.instanceID, r.keyTTL).Err(); err != nil {
		return fmt.Errorf("failed to track presence: %w", err)
	}

	r.mu.Lock()
	r.managedKeys[key]++
	r.mu.Unlock()
	return nil
}

// Untrack releases one local session for the user; the presence key is
// removed once no local session remains.
func (r *RedisTracker) Untrack(ctx context.Context, userID uint) error {
	key := r.keyFor(userID)

	r.mu.Lock()
	count, ok := r.managedKeys[key]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	if count > 1 {
		r.managedKeys[key] = count - 1
		r.mu.Unlock()
		return nil
	}
	delete(r.managedKeys, key)
	r.mu.Unlock()

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to untrack presence: %w", err)
	}
	return nil
}

// IsOnline reports whether any instance holds a live session for the
// user.
func (r *RedisTracker) IsOnline(ctx context.Context, userID uint) (bool, error) {
	iter := r.client.Scan(ctx, 0, r.userPattern(userID), 1).Iterator()
	if iter.Next(ctx) {
		return true, nil
	}
	if err := iter.Err(); err != nil {
		return false, fmt.Errorf("failed to query presence: %w", err)
	}
	return false, nil
}

func (r *RedisTracker) StartHeartbeat(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	go r.heartbeatLoop(ctx)
	l := log.L()
	l.Info().Dur("interval", r.heartbeatInterval).Dur("ttl", r.keyTTL).Msg("presence heartbeat started")
	return nil
}

func (r *RedisTracker) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshKeys(ctx)
		}
	}
}

func (r *RedisTracker) refreshKeys(ctx context.Context) {
	r.mu.RLock()
	keys := make([]string, 0, len(r.managedKeys))
	for k := range r.managedKeys {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	for _, key := range keys {
		if err := r.client.Set(ctx, key, r.instanceID, r.keyTTL).Err(); err != nil {
			l := log.L()
			l.Error().Str("key", key).Err(err).Msg("failed to refresh presence key")
		}
	}
}

func (r *RedisTracker) StopHeartbeat() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *RedisTracker) Close() error {
	r.StopHeartbeat()
	return r.client.Close()
}
