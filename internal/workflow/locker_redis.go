package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix       = "guardian:lock:"
	defaultRedisLockTTL = 10 * time.Second
	defaultPollInterval = 25 * time.Millisecond
)

// ErrLockLost is reported when a lock expired before release.
var ErrLockLost = errors.New("request lock expired before release")

// releaseScript deletes the key only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry out only if this holder still owns the key.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker is a Locker shared by every replica using the same Redis. Each
// hold is a SET NX with a TTL and a random token, renewed every third of the
// TTL until release. A crashed holder stops renewing, so it cannot block a key
// for longer than one TTL.
type RedisLocker struct {
	client       *redis.Client
	ttl          time.Duration
	pollInterval time.Duration
	waitTimeout  time.Duration
	onLost       func(key string, err error)
}

// RedisLockerOption configures a RedisLocker.
type RedisLockerOption func(*RedisLocker)

// WithLockTTL sets how long a lock survives without release.
func WithLockTTL(ttl time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithPollInterval sets how often a waiter retries SET NX.
func WithPollInterval(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.pollInterval = d
		}
	}
}

// WithLockWaitTimeout caps the wait when the caller set no deadline.
func WithLockWaitTimeout(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.waitTimeout = d
		}
	}
}

// WithLockLostHook is called at most once per hold, when renewal or release
// finds the lock owned by someone else or gone.
func WithLockLostHook(fn func(key string, err error)) RedisLockerOption {
	return func(l *RedisLocker) {
		l.onLost = fn
	}
}

// NewRedisLocker constructs a Redis-backed Locker.
func NewRedisLocker(client *redis.Client, opts ...RedisLockerOption) *RedisLocker {
	l := &RedisLocker{
		client:       client,
		ttl:          defaultRedisLockTTL,
		pollInterval: defaultPollInterval,
		waitTimeout:  defaultLockTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Lock polls SET NX until it wins or ctx ends. Redis errors fail immediately.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.waitTimeout)
		defer cancel()
	}

	redisKey := lockKeyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if ok {
			h := &redisHold{
				locker: l,
				key:    redisKey,
				token:  token,
				stop:   make(chan struct{}),
				done:   make(chan struct{}),
			}
			go h.keepAlive()
			return h.release, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// redisHold is one acquired lock and its renewal loop.
type redisHold struct {
	locker      *RedisLocker
	key         string
	token       string
	stop        chan struct{}
	done        chan struct{}
	releaseOnce sync.Once
	lostOnce    sync.Once
}

func (h *redisHold) renewInterval() time.Duration {
	if d := h.locker.ttl / 3; d > time.Millisecond {
		return d
	}
	return time.Millisecond
}

// keepAlive extends the TTL until release. It stops on the first renewal that
// finds the key no longer ours. Redis errors are retried on the next tick; if
// they last a full TTL the key expires and the next renewal reports it.
func (h *redisHold) keepAlive() {
	defer close(h.done)
	interval := h.renewInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		n, err := extendScript.Run(ctx, h.locker.client, []string{h.key}, h.token, h.locker.ttl.Milliseconds()).Int()
		cancel()
		if err == nil && n == 0 {
			h.lost(ErrLockLost)
			return
		}
	}
}

// release stops renewal, then deletes the key on a fresh context so a
// cancelled request still frees it.
func (h *redisHold) release() {
	h.releaseOnce.Do(func() {
		close(h.stop)
		<-h.done

		ctx, cancel := context.WithTimeout(context.Background(), h.locker.ttl)
		defer cancel()
		n, err := releaseScript.Run(ctx, h.locker.client, []string{h.key}, h.token).Int()
		switch {
		case err != nil:
			h.lost(err)
		case n == 0:
			h.lost(ErrLockLost)
		}
	})
}

func (h *redisHold) lost(err error) {
	if h.locker.onLost == nil {
		return
	}
	h.lostOnce.Do(func() { h.locker.onLost(h.key, err) })
}
