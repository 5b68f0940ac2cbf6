// Package bootstrap holds the small amount of startup plumbing every
// reactorctl-* binary shares: picking a Tag Store binding from flags and
// initializing it with the tag catalog's defaults.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/cti-systems/reactorctl/internal/tags"
	"github.com/cti-systems/reactorctl/internal/tagstore"
)

// OpenStore constructs the Tag Store binding named by kind ("memory" or
// "redis") and initializes it with the full tag catalog's defaults. For
// "redis" it also pings the server once so startup fails fast on a bad
// address, matching the reference codebase's "ping before serving"
// convention.
func OpenStore(ctx context.Context, kind, redisAddr string) (tagstore.Store, *redis.Client, error) {
	switch kind {
	case "memory":
		store := tagstore.NewMemory()
		if err := store.Initialize(tags.Defaults()); err != nil {
			return nil, nil, fmt.Errorf("initialize memory store: %w", err)
		}
		return store, nil, nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", redisAddr, err)
		}
		store := tagstore.NewRedis(ctx, rdb)
		if err := store.Initialize(tags.Defaults()); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("initialize redis store: %w", err)
		}
		return store, rdb, nil

	default:
		return nil, nil, fmt.Errorf("unknown store kind %q (want memory or redis)", kind)
	}
}
