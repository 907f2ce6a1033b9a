package scheduler

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLease is a single-holder lock on one Redis key.
type RedisLease struct {
	rdb *redis.Client
	key string
}

func NewRedisLease(rdb *redis.Client, key string) *RedisLease {
	return &RedisLease{rdb: rdb, key: key}
}

// Acquire takes the lease for ttl. ok is false when another holder has it.
// release gives it back early and is safe to call after expiry.
func (l *RedisLease) Acquire(ctx context.Context, ttl time.Duration) (release func(), ok bool, err error) {
	token := uuid.NewString()
	ok, err = l.rdb.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil || !ok {
		return func() {}, false, err
	}
	return func() {
		// the caller's ctx may already be cancelled at shutdown
		_ = releaseScript.Run(context.Background(), l.rdb, []string{l.key}, token).Err()
	}, true, nil
}
