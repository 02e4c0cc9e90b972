package workflow

import (
	"context"
	"time"
)

// numLockShards spreads keys over independent mutexes so unrelated requests
// rarely contend. Distinct keys may share a shard; that only costs latency.
const numLockShards = 128

// defaultLockTimeout caps the wait when the caller set no deadline.
const defaultLockTimeout = 5 * time.Second

// ShardedLocker is the in-process Locker. Each shard is a one-slot channel so
// waiters can give up when their context ends.
type ShardedLocker struct {
	shards  [numLockShards]chan struct{}
	timeout time.Duration
}

// NewShardedLocker constructs a ShardedLocker.
func NewShardedLocker() *ShardedLocker {
	l := &ShardedLocker{timeout: defaultLockTimeout}
	for i := range l.shards {
		l.shards[i] = make(chan struct{}, 1)
	}
	return l
}

// Lock blocks until the key's shard is free or ctx ends.
func (l *ShardedLocker) Lock(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	shard := l.shards[hashKey(key)%numLockShards]
	select {
	case shard <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return func() { <-shard }, nil
}

// hashKey is FNV-1a.
func hashKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
