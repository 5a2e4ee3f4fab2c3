package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another holder owns the lock.
var ErrLockHeld = errors.New("lock already held")

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Release gives a lock back.
type Release func(context.Context) error

// Locker hands out named exclusive locks. With a Redis client the lock is shared
// by every instance and expires after its TTL; without one it only guards this process.
type Locker struct {
	client *redis.Client
	prefix string

	mu   sync.Mutex
	held map[string]string
}

// NewLocker creates a locker. client may be nil.
func NewLocker(client *redis.Client, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix, held: make(map[string]string)}
}

// Acquire takes the named lock or fails fast with ErrLockHeld.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (Release, error) {
	key := l.prefix + name
	token := uuid.NewString()

	if l.client == nil {
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, ok := l.held[key]; ok {
			return nil, ErrLockHeld
		}
		l.held[key] = token
		return func(context.Context) error {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.held[key] == token {
				delete(l.held, key)
			}
			return nil
		}, nil
	}

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redis unlock %s: %w", key, err)
		}
		return nil
	}, nil
}
