package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dracory/weeredis/shared/types"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

var errEmptyValue = errors.New("value must not be empty")

// readValue loads the value of key in its wire shape.
func readValue(ctx context.Context, cl *redis.Client, key, keyType string) (any, error) {
	switch keyType {
	case types.KeyTypeString:
		return cl.Get(ctx, key).Result()
	case types.KeyTypeHash:
		m, err := cl.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		fields := lo.MapToSlice(m, func(f, v string) types.HashField { return types.HashField{Field: f, Value: v} })
		sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
		return fields, nil
	case types.KeyTypeList:
		return cl.LRange(ctx, key, 0, -1).Result()
	case types.KeyTypeSet:
		members, err := cl.SMembers(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		sort.Strings(members)
		return members, nil
	case types.KeyTypeZSet:
		zs, err := cl.ZRangeWithScores(ctx, key, 0, -1).Result()
		if err != nil {
			return nil, err
		}
		return lo.Map(zs, func(z redis.Z, _ int) types.ZSetMember {
			return types.ZSetMember{Value: fmt.Sprint(z.Member), Score: z.Score}
		}), nil
	default:
		return nil, nil
	}
}

// estimateSize approximates the memory footprint of a value from its content.
func estimateSize(key string, value any) int64 {
	n := int64(len(key))
	switch v := value.(type) {
	case string:
		n += int64(len(v))
	case []string:
		n += lo.SumBy(v, func(s string) int64 { return int64(len(s)) })
	case []types.HashField:
		n += lo.SumBy(v, func(f types.HashField) int64 { return int64(len(f.Field) + len(f.Value)) })
	case []types.ZSetMember:
		n += lo.SumBy(v, func(m types.ZSetMember) int64 { return int64(len(m.Value)) + 8 })
	}
	return n
}

// writeValue replaces key with value decoded for keyType. A ttl above zero sets an expiry.
func writeValue(ctx context.Context, cl *redis.Client, key, keyType string, raw json.RawMessage, ttl int64) error {
	expiry := time.Duration(max(ttl, 0)) * time.Second

	var queue func(redis.Pipeliner) error
	switch keyType {
	case types.KeyTypeString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("invalid string value: %w", err)
		}
		queue = func(p redis.Pipeliner) error {
			p.Set(ctx, key, s, expiry)
			return nil
		}
	case types.KeyTypeHash:
		fields, err := decodeHash(raw)
		if err != nil {
			return fmt.Errorf("invalid hash value: %w", err)
		}
		values := lo.FlatMap(fields, func(f types.HashField, _ int) []any { return []any{f.Field, f.Value} })
		queue = replace(ctx, key, expiry, len(fields), func(p redis.Pipeliner) { p.HSet(ctx, key, values...) })
	case types.KeyTypeList:
		items, err := decodeStrings(raw)
		if err != nil {
			return fmt.Errorf("invalid list value: %w", err)
		}
		queue = replace(ctx, key, expiry, len(items), func(p redis.Pipeliner) { p.RPush(ctx, key, lo.ToAnySlice(items)...) })
	case types.KeyTypeSet:
		items, err := decodeStrings(raw)
		if err != nil {
			return fmt.Errorf("invalid set value: %w", err)
		}
		queue = replace(ctx, key, expiry, len(items), func(p redis.Pipeliner) { p.SAdd(ctx, key, lo.ToAnySlice(items)...) })
	case types.KeyTypeZSet:
		members, err := decodeZSet(raw)
		if err != nil {
			return fmt.Errorf("invalid zset value: %w", err)
		}
		zs := lo.Map(members, func(m types.ZSetMember, _ int) redis.Z { return redis.Z{Score: m.Score, Member: m.Value} })
		queue = replace(ctx, key, expiry, len(zs), func(p redis.Pipeliner) { p.ZAdd(ctx, key, zs...) })
	default:
		return fmt.Errorf("unsupported type: %s", keyType)
	}

	_, err := cl.TxPipelined(ctx, func(p redis.Pipeliner) error { return queue(p) })
	return err
}

// replace queues DEL, the collection write and an optional EXPIRE.
func replace(ctx context.Context, key string, expiry time.Duration, n int, write func(redis.Pipeliner)) func(redis.Pipeliner) error {
	return func(p redis.Pipeliner) error {
		if n == 0 {
			return errEmptyValue
		}
		p.Del(ctx, key)
		write(p)
		if expiry > 0 {
			p.Expire(ctx, key, expiry)
		}
		return nil
	}
}

// decodeHash accepts [{"field","value"}], [["field","value"]] or {"field":"value"}.
func decodeHash(raw json.RawMessage) ([]types.HashField, error) {
	var fields []types.HashField
	if err := json.Unmarshal(raw, &fields); err == nil {
		return fields, nil
	}

	var pairs [][2]string
	if err := json.Unmarshal(raw, &pairs); err == nil {
		return lo.Map(pairs, func(p [2]string, _ int) types.HashField { return types.HashField{Field: p[0], Value: p[1]} }), nil
	}

	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	fields = lo.MapToSlice(m, func(f, v string) types.HashField { return types.HashField{Field: f, Value: v} })
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	return fields, nil
}

// decodeZSet accepts [{"value","score"}] or [["value",score]].
func decodeZSet(raw json.RawMessage) ([]types.ZSetMember, error) {
	var members []types.ZSetMember
	if err := json.Unmarshal(raw, &members); err == nil {
		return members, nil
	}

	var pairs [][2]any
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, err
	}
	members = make([]types.ZSetMember, 0, len(pairs))
	for _, p := range pairs {
		value, ok := p[0].(string)
		score, ok2 := p[1].(float64)
		if !ok || !ok2 {
			return nil, fmt.Errorf("malformed member %v", p)
		}
		members = append(members, types.ZSetMember{Value: value, Score: score})
	}
	return members, nil
}

func decodeStrings(raw json.RawMessage) ([]string, error) {
	var items []string
	err := json.Unmarshal(raw, &items)
	return items, err
}

// rawValue returns the JSON form of a decoded or typed value.
func rawValue(v any) (json.RawMessage, error) {
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(v)
}
