//go:build integration

package workflow_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"guardian/internal/workflow"
	"guardian/pkg/testutil/containers"
)

type RedisLockerSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	locker *workflow.RedisLocker
}

func TestRedisLockerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLockerSuite))
}

func (s *RedisLockerSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.locker = workflow.NewRedisLocker(s.redis.Client,
		workflow.WithLockTTL(2*time.Second),
		workflow.WithPollInterval(5*time.Millisecond),
	)
}

func (s *RedisLockerSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisLockerSuite) TestMutualExclusion() {
	const workers = 10
	var inside, overlaps atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			release, err := s.locker.Lock(ctx, "sam.sales@company.demo\x00GitHub")
			if !s.NoError(err) {
				return
			}
			if inside.Add(1) > 1 {
				overlaps.Add(1)
			}
			time.Sleep(5 * time.Millisecond)
			inside.Add(-1)
			release()
		}()
	}
	wg.Wait()
	s.Zero(overlaps.Load())
}

func (s *RedisLockerSuite) TestWaiterTimesOut() {
	release, err := s.locker.Lock(context.Background(), "k")
	s.Require().NoError(err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = s.locker.Lock(ctx, "k")
	s.ErrorIs(err, context.DeadlineExceeded)
}

func (s *RedisLockerSuite) TestWaitIsBoundedWithoutDeadline() {
	bounded := workflow.NewRedisLocker(s.redis.Client,
		workflow.WithPollInterval(5*time.Millisecond),
		workflow.WithLockWaitTimeout(100*time.Millisecond),
	)
	release, err := bounded.Lock(context.Background(), "k")
	s.Require().NoError(err)
	defer release()

	start := time.Now()
	_, err = bounded.Lock(context.Background(), "k")
	s.ErrorIs(err, context.DeadlineExceeded)
	s.Less(time.Since(start), 2*time.Second)
}

func (s *RedisLockerSuite) TestHeldLockOutlivesTTL() {
	var lost atomic.Int32
	short := workflow.NewRedisLocker(s.redis.Client,
		workflow.WithLockTTL(90*time.Millisecond),
		workflow.WithPollInterval(5*time.Millisecond),
		workflow.WithLockLostHook(func(string, error) { lost.Add(1) }),
	)

	release, err := short.Lock(context.Background(), "k")
	s.Require().NoError(err)
	time.Sleep(400 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = short.Lock(ctx, "k")
	s.ErrorIs(err, context.DeadlineExceeded, "a renewed lock must still exclude other callers")

	release()
	s.Zero(lost.Load())
	exists, err := s.redis.Client.Exists(context.Background(), "guardian:lock:k").Result()
	s.Require().NoError(err)
	s.Zero(exists)
}

func (s *RedisLockerSuite) TestStolenLockIsReportedOnce() {
	var lost atomic.Int32
	locker := workflow.NewRedisLocker(s.redis.Client,
		workflow.WithLockTTL(150*time.Millisecond),
		workflow.WithPollInterval(5*time.Millisecond),
		workflow.WithLockLostHook(func(string, error) { lost.Add(1) }),
	)

	release, err := locker.Lock(context.Background(), "k")
	s.Require().NoError(err)
	s.Require().NoError(s.redis.Client.Del(context.Background(), "guardian:lock:k").Err())

	other, err := locker.Lock(context.Background(), "k")
	s.Require().NoError(err)
	time.Sleep(200 * time.Millisecond)

	release()
	release()
	s.Equal(int32(1), lost.Load())

	exists, err := s.redis.Client.Exists(context.Background(), "guardian:lock:k").Result()
	s.Require().NoError(err)
	s.Equal(int64(1), exists, "stale release must not delete the new holder's key")
	other()
}
