package backend

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dracory/weeredis/shared/result"
	"github.com/dracory/weeredis/shared/types"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

// GetKeys scans the selected database for keys matching a glob pattern and
// reports each key with its type. Total is the number of scanned keys.
func (b *Backend) GetKeys(ctx context.Context, args PatternArgs) result.Result[types.KeysListData] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[types.KeysListData](err)
	}
	pattern := lo.Ternary(args.Pattern == "", "*", args.Pattern)

	data := types.KeysListData{Keys: []types.KeyInfo{}}
	err = b.scan(ctx, cl, pattern, func(keys []string) error {
		data.Total += len(keys)
		cmds, err := cl.Pipelined(ctx, func(p redis.Pipeliner) error {
			for _, k := range keys {
				p.Type(ctx, k)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to read key types: %w", err)
		}
		for i, cmd := range cmds {
			data.Keys = append(data.Keys, types.KeyInfo{Key: keys[i], Type: cmd.(*redis.StatusCmd).Val()})
		}
		return nil
	})
	if err != nil {
		return result.Failure[types.KeysListData](err.Error())
	}
	return result.Ok(data)
}

// scan walks the keyspace in batches until the cursor returns to zero.
func (b *Backend) scan(ctx context.Context, cl *redis.Client, pattern string, batch func([]string) error) error {
	var cursor uint64
	for {
		keys, next, err := cl.Scan(ctx, cursor, pattern, b.scanBatch).Result()
		if err != nil {
			return fmt.Errorf("SCAN failed: %w", err)
		}
		if len(keys) > 0 {
			if err := batch(keys); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// GetKey returns the string value of a key. A missing key yields an empty value.
func (b *Backend) GetKey(ctx context.Context, args KeyArgs) result.Result[string] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[string](err)
	}

	v, err := cl.Get(ctx, args.Key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return result.OkWithMessage("", fmt.Sprintf("key %s has no value", args.Key))
	case err != nil:
		return result.Failuref[string]("get failed: %v", err)
	}
	return result.OkWithMessage(v, fmt.Sprintf("fetched %s", args.Key))
}

// GetKeyDetail returns type, TTL, size, timestamp and value of a key.
func (b *Backend) GetKeyDetail(ctx context.Context, args KeyArgs) result.Result[types.KeyDetail] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[types.KeyDetail](err)
	}
	detail, err := b.keyDetail(ctx, cl, args.Key)
	if err != nil {
		return fail[types.KeyDetail](err)
	}
	return result.Ok(detail)
}

func (b *Backend) keyDetail(ctx context.Context, cl *redis.Client, key string) (types.KeyDetail, error) {
	n, err := cl.Exists(ctx, key).Result()
	if err != nil {
		return types.KeyDetail{}, fmt.Errorf("failed to check key: %w", err)
	}
	if n == 0 {
		return types.KeyDetail{}, fmt.Errorf("key %s does not exist", key)
	}

	keyType, err := cl.Type(ctx, key).Result()
	if err != nil {
		return types.KeyDetail{}, fmt.Errorf("failed to read key type: %w", err)
	}
	ttl, err := ttlSeconds(ctx, cl, key)
	if err != nil {
		return types.KeyDetail{}, fmt.Errorf("failed to read TTL: %w", err)
	}
	value, err := readValue(ctx, cl, key, keyType)
	if err != nil {
		return types.KeyDetail{}, fmt.Errorf("failed to read %s value: %w", keyType, err)
	}

	return types.KeyDetail{
		Key:        key,
		Type:       keyType,
		TTL:        ttl,
		Size:       b.keySize(ctx, cl, key, value),
		CreateTime: b.lastSave(ctx, cl).Format(time.RFC3339),
		Value:      value,
	}, nil
}

// lastSave approximates a key's creation time with the last RDB save.
func (b *Backend) lastSave(ctx context.Context, cl *redis.Client) time.Time {
	ts, err := cl.LastSave(ctx).Result()
	if err != nil || ts <= 0 {
		return b.now().UTC()
	}
	return time.Unix(ts, 0).UTC()
}

// keySize asks MEMORY USAGE, then DEBUG OBJECT, then estimates from the value.
func (b *Backend) keySize(ctx context.Context, cl *redis.Client, key string, value any) int64 {
	if n, err := cl.MemoryUsage(ctx, key).Result(); err == nil {
		return n
	}
	if info, err := cl.DebugObject(ctx, key).Result(); err == nil {
		if n, ok := serializedLength(info); ok {
			return n
		}
	}
	return estimateSize(key, value)
}

func serializedLength(debugInfo string) (int64, bool) {
	for _, part := range strings.Fields(debugInfo) {
		if v, ok := strings.CutPrefix(part, "serializedlength:"); ok {
			n, err := strconv.ParseInt(v, 10, 64)
			return n, err == nil
		}
	}
	return 0, false
}

// ttlSeconds returns the TTL in seconds: -1 without expiry, -2 when missing.
func ttlSeconds(ctx context.Context, cl *redis.Client, key string) (int64, error) {
	d, err := cl.TTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return int64(d), nil
	}
	return int64(d / time.Second), nil
}

// GetKeyType returns the type of a key, "none" when it does not exist.
func (b *Backend) GetKeyType(ctx context.Context, args KeyArgs) result.Result[string] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[string](err)
	}
	t, err := cl.Type(ctx, args.Key).Result()
	if err != nil {
		return result.Failuref[string]("failed to read key type: %v", err)
	}
	return result.Ok(t)
}

// GetKeyTTL returns the TTL of a key in seconds.
func (b *Backend) GetKeyTTL(ctx context.Context, args KeyArgs) result.Result[int64] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[int64](err)
	}
	ttl, err := ttlSeconds(ctx, cl, args.Key)
	if err != nil {
		return result.Failuref[int64]("failed to read TTL: %v", err)
	}
	return result.Ok(ttl)
}

// GetKeySize returns the memory footprint of a key in bytes.
func (b *Backend) GetKeySize(ctx context.Context, args KeyArgs) result.Result[int64] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[int64](err)
	}
	if n, err := cl.MemoryUsage(ctx, args.Key).Result(); err == nil {
		return result.Ok(n)
	}

	keyType, err := cl.Type(ctx, args.Key).Result()
	if err != nil {
		return result.Failuref[int64]("failed to read key size: %v", err)
	}
	if keyType == types.KeyTypeNone {
		return result.Failuref[int64]("key %s does not exist", args.Key)
	}
	value, err := readValue(ctx, cl, args.Key, keyType)
	if err != nil {
		return result.Failuref[int64]("failed to read key size: %v", err)
	}
	return result.Ok(b.keySize(ctx, cl, args.Key, value))
}

// SetKey creates or replaces a key of the given type.
func (b *Backend) SetKey(ctx context.Context, args SetKeyArgs) result.Result[result.Empty] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[result.Empty](err)
	}
	if args.Key == "" {
		return result.Failure[result.Empty]("key is required")
	}
	if err := writeValue(ctx, cl, args.Key, args.KeyType, args.Value, args.TTL); err != nil {
		return result.Failuref[result.Empty]("set failed: %v", err)
	}
	return result.Done(fmt.Sprintf("created %s key %s", args.KeyType, args.Key))
}

// RenameKey renames a key, overwriting the destination.
func (b *Backend) RenameKey(ctx context.Context, args RenameKeyArgs) result.Result[result.Empty] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[result.Empty](err)
	}
	if err := cl.Rename(ctx, args.OldKey, args.NewKey).Err(); err != nil {
		return result.Failuref[result.Empty]("rename failed: %v", err)
	}
	return result.Done(fmt.Sprintf("renamed %s to %s", args.OldKey, args.NewKey))
}

// DeleteKey deletes a key and fails when nothing was deleted.
func (b *Backend) DeleteKey(ctx context.Context, args KeyArgs) result.Result[result.Empty] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[result.Empty](err)
	}
	n, err := cl.Del(ctx, args.Key).Result()
	if err != nil {
		return result.Failuref[result.Empty]("delete failed: %v", err)
	}
	if n == 0 {
		return result.Failure[result.Empty]("key does not exist")
	}
	return result.Done(fmt.Sprintf("deleted %s", args.Key))
}

// SetKeyTTL sets an expiry when ttl is positive and removes it otherwise.
func (b *Backend) SetKeyTTL(ctx context.Context, args KeyTTLArgs) result.Result[result.Empty] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[result.Empty](err)
	}

	if args.TTL > 0 {
		ok, err := cl.Expire(ctx, args.Key, time.Duration(args.TTL)*time.Second).Result()
		if err != nil {
			return result.Failuref[result.Empty]("set TTL failed: %v", err)
		}
		if !ok {
			return result.Failure[result.Empty]("set TTL failed")
		}
		return result.Done("TTL updated")
	}

	ok, err := cl.Persist(ctx, args.Key).Result()
	if err != nil {
		return result.Failuref[result.Empty]("remove TTL failed: %v", err)
	}
	if !ok {
		return result.Failure[result.Empty]("remove TTL failed")
	}
	return result.Done("TTL removed")
}
