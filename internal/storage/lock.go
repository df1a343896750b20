package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked means another albumgen process has the store open. Each process
// keeps its own copy of the session in memory, so only one may write at a time.
var ErrLocked = errors.New("store is in use by another albumgen process")

const lockFile = ".lock"

func lockDir(dir string) (*flock.Flock, error) {
	fl := flock.New(filepath.Join(dir, lockFile))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock data directory: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", dir, ErrLocked)
	}
	return fl, nil
}

func unlockDir(fl *flock.Flock) error {
	if fl == nil {
		return nil
	}
	if err := fl.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock data directory: %w", err)
	}
	return nil
}

// The redis lock lives outside redisPrefix so Clear and Usage never see it.
const (
	redisLockKey     = "albumgen.lock"
	redisLockTTL     = 30 * time.Second
	redisLockRefresh = 10 * time.Second
)

// Deletes the lock only while it still holds our token.
var redisUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type redisLock struct {
	client *redis.Client
	token  string
	stop   chan struct{}
	done   chan struct{}
}

func acquireRedisLock(ctx context.Context, client *redis.Client) (*redisLock, error) {
	token := uuid.NewString()
	ok, err := client.SetNX(ctx, redisLockKey, token, redisLockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to lock redis store: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("redis: %w", ErrLocked)
	}

	l := &redisLock{
		client: client,
		token:  token,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go l.keepAlive()
	return l, nil
}

func (l *redisLock) keepAlive() {
	defer close(l.done)
	ticker := time.NewTicker(redisLockRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			if err := l.client.Expire(context.Background(), redisLockKey, redisLockTTL).Err(); err != nil {
				slog.Warn("Failed to refresh redis store lock", "err", err)
			}
		}
	}
}

func (l *redisLock) release(ctx context.Context) error {
	close(l.stop)
	<-l.done
	if err := redisUnlock.Run(ctx, l.client, []string{redisLockKey}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to unlock redis store: %w", err)
	}
	return nil
}
