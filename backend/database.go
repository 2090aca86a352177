package backend

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dracory/weeredis/shared/result"
	"github.com/dracory/weeredis/shared/types"
)

// DefaultDatabaseCount is reported when the server does not expose its
// "databases" setting.
const DefaultDatabaseCount = 16

// GetDbCount returns the number of logical databases.
func (b *Backend) GetDbCount(ctx context.Context, args ConnectionArgs) result.Result[int] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[int](err)
	}

	cfg, err := cl.ConfigGet(ctx, "databases").Result()
	if err != nil {
		b.logger.Debug("backend: CONFIG GET databases unavailable", "error", err)
		return result.Ok(DefaultDatabaseCount)
	}
	n, err := strconv.Atoi(cfg["databases"])
	if err != nil || n <= 0 {
		return result.Ok(DefaultDatabaseCount)
	}
	return result.Ok(min(n, MaxDatabases))
}

// GetDbKeyCount returns the number of keys in one database without changing
// the selected database.
func (b *Backend) GetDbKeyCount(ctx context.Context, args DbArgs) result.Result[int64] {
	c, err := b.registry.get(args.ConnectionID)
	if err != nil {
		return fail[int64](err)
	}
	cl, err := c.client(args.DbIndex)
	if errors.Is(err, ErrDatabaseRange) {
		return result.Failuref[int64]("invalid database index %d", args.DbIndex)
	}
	if err != nil {
		return fail[int64](err)
	}

	n, err := cl.DBSize(ctx).Result()
	if err != nil {
		return result.Failuref[int64]("failed to count keys: %v", err)
	}
	return result.Ok(n)
}

// GetAllDbKeyCounts returns the key count of databases 0..dbCount-1. A
// database that cannot be read counts as empty.
func (b *Backend) GetAllDbKeyCounts(ctx context.Context, args DbCountArgs) result.Result[[]types.DbKeyCount] {
	c, err := b.registry.get(args.ConnectionID)
	if err != nil {
		return fail[[]types.DbKeyCount](err)
	}

	if args.DbCount < 0 || args.DbCount > MaxDatabases {
		return result.Failuref[[]types.DbKeyCount]("database count must be between 0 and %d", MaxDatabases)
	}

	counts := make([]types.DbKeyCount, 0, args.DbCount)
	for db := 0; db < args.DbCount; db++ {
		cl, err := c.client(db)
		if err != nil {
			return fail[[]types.DbKeyCount](err)
		}
		n, err := cl.DBSize(ctx).Result()
		if err != nil {
			b.logger.Debug("backend: DBSIZE failed", "db", db, "error", err)
			n = 0
		}
		counts = append(counts, types.DbKeyCount{DbIndex: db, KeyCount: n})
	}
	return result.Ok(counts)
}

// SelectDb switches the database used by subsequent key commands.
func (b *Backend) SelectDb(ctx context.Context, args DbArgs) result.Result[result.Empty] {
	c, err := b.registry.get(args.ConnectionID)
	if err != nil {
		return fail[result.Empty](err)
	}
	cl, err := c.client(args.DbIndex)
	if errors.Is(err, ErrDatabaseRange) {
		return result.Failuref[result.Empty]("invalid database index %d", args.DbIndex)
	}
	if err != nil {
		return fail[result.Empty](err)
	}

	if err := cl.Ping(ctx).Err(); err != nil {
		return result.Failuref[result.Empty]("select database failed: %v", err)
	}
	c.setDB(args.DbIndex)
	return result.Done(fmt.Sprintf("switched to database %d", args.DbIndex))
}
