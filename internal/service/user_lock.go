package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nsi_edu_backend/internal/util"
	"nsi_edu_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserLocker serializes work on one user's gamification state. Different
// users never wait on each other.
type UserLocker interface {
	Lock(ctx context.Context, userID uint) (unlock func(), err error)
}

// LocalUserLocker is an in-process keyed mutex. Entries are reference
// counted and dropped once nobody holds or waits for them.
type LocalUserLocker struct {
	mu    sync.Mutex
	locks map[uint]*userLock
}

type userLock struct {
	sem  chan struct{}
	refs int
}

func NewLocalUserLocker() *LocalUserLocker {
	return &LocalUserLocker{locks: make(map[uint]*userLock)}
}

func (l *LocalUserLocker) Lock(ctx context.Context, userID uint) (func(), error) {
	l.mu.Lock()
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{sem: make(chan struct{}, 1)}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	select {
	case ul.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-ul.sem
				l.release(userID, ul)
			})
		}, nil
	case <-ctx.Done():
		l.release(userID, ul)
		return nil, fmt.Errorf("%w: user %d: %v", util.ErrLockTimeout, userID, ctx.Err())
	}
}

func (l *LocalUserLocker) release(userID uint, ul *userLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ul.refs--
	if ul.refs == 0 {
		delete(l.locks, userID)
	}
}

// size is the number of users currently locked or waited on.
func (l *LocalUserLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisUserLocker is a SET NX lease shared by every instance of the service.
// TTL bounds how long a crashed holder can block the user.
type RedisUserLocker struct {
	Client     *redis.Client
	TTL        time.Duration
	RetryEvery time.Duration
	Prefix     string
}

func NewRedisUserLocker(client *redis.Client, ttl time.Duration) *RedisUserLocker {
	return &RedisUserLocker{
		Client:     client,
		TTL:        ttl,
		RetryEvery: 25 * time.Millisecond,
		Prefix:     "gamification:lock:user:",
	}
}

func (l *RedisUserLocker) Lock(ctx context.Context, userID uint) (func(), error) {
	key := fmt.Sprintf("%s%d", l.Prefix, userID)
	token := uuid.NewString()

	for {
		ok, err := l.Client.SetNX(ctx, key, token, l.TTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: user %d: %v", util.ErrLockTimeout, userID, ctx.Err())
			}
			return nil, fmt.Errorf("acquire lock for user %d: %w", userID, err)
		}
		if ok {
			return l.unlocker(key, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: user %d: %v", util.ErrLockTimeout, userID, ctx.Err())
		case <-time.After(l.RetryEvery):
		}
	}
}

func (l *RedisUserLocker) unlocker(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.Client, []string{key}, token).Err(); err != nil && err != redis.Nil {
				logger.Log.Warn("Failed to release user lock", zap.String("key", key), zap.Error(err))
			}
		})
	}
}

// lockedTransaction runs fn in one transaction while holding the user's lock.
// The lock wait is bounded by timeout.
func lockedTransaction(ctx context.Context, locker UserLocker, timeout time.Duration, db *gorm.DB, userID uint, fn func(tx *gorm.DB) error) error {
	lockCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	unlock, err := locker.Lock(lockCtx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	return db.WithContext(ctx).Transaction(fn)
}
