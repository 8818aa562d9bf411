package matchstartups

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "startup-match-workers/internal/common/errors"
)

// Deletes the key only while it still holds our token, so an expired lock
// taken over by another run is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func lockKey(transactionID string) string {
	return fmt.Sprintf("match:lock:%s", transactionID)
}

// acquireLock takes the per-transaction matching lock or fails with MATCHING_IN_PROGRESS.
func acquireLock(ctx context.Context, rdb *redis.Client, transactionID string, ttl time.Duration) (func(), error) {
	key := lockKey(transactionID)
	token := uuid.NewString()

	ok, err := rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, apperrors.NewCacheUnavailableError("acquire matching lock", err)
	}
	if !ok {
		return nil, apperrors.NewMatchingInProgressError(transactionID)
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, rdb, []string{key}, token).Err()
	}
	return release, nil
}
