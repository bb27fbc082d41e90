package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// SessionLocker serializes chat turns on one session with a best-effort redis
// lock. The TTL bounds how long a crashed holder can block a session; release
// is compare-and-delete so an expired holder never frees a successor's lock.
type SessionLocker struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewSessionLocker(rdb *redis.Client, ttl time.Duration) *SessionLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &SessionLocker{redis: rdb, ttl: ttl}
}

// Acquire tries to take the lock for sessionID. On success it returns a
// release func and true; when another turn holds the lock it returns false.
func (l *SessionLocker) Acquire(ctx context.Context, sessionID int64) (func(context.Context), bool, error) {
	token, err := randomToken()
	if err != nil {
		return nil, false, err
	}
	key := fmt.Sprintf("pandachat:session-lock:%d", sessionID)

	ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("session lock setnx: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) {
		_, _ = releaseScript.Run(ctx, l.redis, []string{key}, token).Result()
	}
	return release, true, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("lock token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
