package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dracory/weeredis/shared/result"
	"github.com/dracory/weeredis/shared/types"
	"github.com/redis/go-redis/v9"
)

// ExportKey returns the full record of one key.
func (b *Backend) ExportKey(ctx context.Context, args KeyArgs) result.Result[types.KeyDetail] {
	return b.GetKeyDetail(ctx, args)
}

// ExportKeys returns the records of all keys matching a pattern. Keys that
// vanish or fail while exporting are logged and skipped.
func (b *Backend) ExportKeys(ctx context.Context, args PatternArgs) result.Result[[]types.KeyDetail] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[[]types.KeyDetail](err)
	}
	pattern := args.Pattern
	if pattern == "" {
		pattern = "*"
	}

	details := []types.KeyDetail{}
	err = b.scan(ctx, cl, pattern, func(keys []string) error {
		for _, key := range keys {
			detail, err := b.keyDetail(ctx, cl, key)
			if err != nil {
				b.logger.Warn("backend: export skipped key", "key", key, "error", err)
				continue
			}
			details = append(details, detail)
		}
		return nil
	})
	if err != nil {
		return fail[[]types.KeyDetail](err)
	}
	return result.Ok(details)
}

// ImportKey writes one exported record. An existing key is replaced only when
// overwrite is set.
func (b *Backend) ImportKey(ctx context.Context, args ImportKeyArgs) result.Result[result.Empty] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[result.Empty](err)
	}
	if err := importOne(ctx, cl, args.KeyDetail, args.Overwrite); err != nil {
		return fail[result.Empty](err)
	}
	return result.Done(fmt.Sprintf("imported key %s", args.KeyDetail.Key))
}

// ImportKeys writes many records and reports every failure in one message.
// The result fails when any key failed.
func (b *Backend) ImportKeys(ctx context.Context, args ImportKeysArgs) result.Result[result.Empty] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[result.Empty](err)
	}

	var imported int
	var errs []string
	for _, detail := range args.Keys {
		if err := importOne(ctx, cl, detail, args.Overwrite); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		imported++
	}

	if len(errs) == 0 {
		return result.Done(fmt.Sprintf("imported all %d keys", imported))
	}
	return result.Failuref[result.Empty]("import finished: %d succeeded, %d failed\nerrors:\n%s",
		imported, len(errs), strings.Join(errs, "\n"))
}

func importOne(ctx context.Context, cl *redis.Client, detail types.KeyDetail, overwrite bool) error {
	if detail.Key == "" {
		return errors.New("key name is required")
	}
	n, err := cl.Exists(ctx, detail.Key).Result()
	if err != nil {
		return fmt.Errorf("failed to check key %s: %w", detail.Key, err)
	}
	if n > 0 && !overwrite {
		return fmt.Errorf("key %s already exists, skipped", detail.Key)
	}

	raw, err := rawValue(detail.Value)
	if err != nil {
		return fmt.Errorf("key %s: %w", detail.Key, err)
	}
	if err := writeValue(ctx, cl, detail.Key, detail.Type, raw, detail.TTL); err != nil {
		return fmt.Errorf("failed to import key %s: %w", detail.Key, err)
	}
	return nil
}
