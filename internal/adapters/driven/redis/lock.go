package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ait-labs/ait-connectors/internal/core/ports/driven"
)

const lockPrefix = "ait:lock:"

// Owner tokens make release and extend safe: only the holder that
// acquired the lock can touch it, even after its TTL lapsed and
// another worker took over.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

var _ driven.DistributedLock = (*Lock)(nil)

// Lock is a single-holder advisory lock on Redis SET NX.
type Lock struct {
	client *redis.Client

	// token identifies this holder across Acquire/Release/Extend.
	token string
}

// NewLock creates a lock handle with a fresh owner token.
func NewLock(client *redis.Client) *Lock {
	buf := make([]byte, 16)
	rand.Read(buf)
	return &Lock{client: client, token: hex.EncodeToString(buf)}
}

func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockPrefix+name, l.token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return ok, nil
}

func (l *Lock) Release(ctx context.Context, name string) error {
	if err := releaseScript.Run(ctx, l.client, []string{lockPrefix + name}, l.token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{lockPrefix + name}, l.token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("extend lock %s: not held", name)
	}
	return nil
}
