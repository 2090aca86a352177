package backend

import (
	"context"
	"fmt"

	"github.com/dracory/weeredis/shared/result"
	"github.com/redis/go-redis/v9"
)

// UpdateHashField sets one field of a hash.
func (b *Backend) UpdateHashField(ctx context.Context, args HashFieldArgs) result.Result[result.Empty] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[result.Empty](err)
	}
	if err := cl.HSet(ctx, args.Key, args.Field, args.Value).Err(); err != nil {
		return result.Failuref[result.Empty]("update failed: %v", err)
	}
	return result.Done(fmt.Sprintf("updated field %s of %s", args.Field, args.Key))
}

// DeleteHashField removes one field of a hash and fails when it is absent.
func (b *Backend) DeleteHashField(ctx context.Context, args HashFieldArgs) result.Result[result.Empty] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[result.Empty](err)
	}
	n, err := cl.HDel(ctx, args.Key, args.Field).Result()
	if err != nil {
		return result.Failuref[result.Empty]("delete failed: %v", err)
	}
	if n == 0 {
		return result.Failuref[result.Empty]("field %s does not exist", args.Field)
	}
	return result.Done(fmt.Sprintf("deleted field %s of %s", args.Field, args.Key))
}

// UpdateListItem replaces the list element at index. Negative indexes count
// from the tail.
func (b *Backend) UpdateListItem(ctx context.Context, args ListItemArgs) result.Result[result.Empty] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[result.Empty](err)
	}

	n, err := cl.LLen(ctx, args.Key).Result()
	if err != nil {
		return result.Failuref[result.Empty]("failed to read list length: %v", err)
	}
	if args.Index >= n || args.Index < -n {
		return result.Failuref[result.Empty]("index %d out of range, list length is %d", args.Index, n)
	}
	index := args.Index
	if index < 0 {
		index += n
	}

	if err := cl.LSet(ctx, args.Key, index, args.Value).Err(); err != nil {
		return result.Failuref[result.Empty]("update failed: %v", err)
	}
	return result.Done(fmt.Sprintf("updated index %d of %s", index, args.Key))
}

// DeleteListItem removes occurrences of value as LREM does with count.
func (b *Backend) DeleteListItem(ctx context.Context, args ListRemoveArgs) result.Result[result.Empty] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[result.Empty](err)
	}
	n, err := cl.LRem(ctx, args.Key, args.Count, args.Value).Result()
	if err != nil {
		return result.Failuref[result.Empty]("delete failed: %v", err)
	}
	if n == 0 {
		return result.Failure[result.Empty]("no matching element found")
	}
	return result.Done(fmt.Sprintf("removed %d elements", n))
}

// AppendListItem pushes value to the tail of a list.
func (b *Backend) AppendListItem(ctx context.Context, args MemberArgs) result.Result[result.Empty] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[result.Empty](err)
	}
	n, err := cl.RPush(ctx, args.Key, args.Value).Result()
	if err != nil {
		return result.Failuref[result.Empty]("append failed: %v", err)
	}
	return result.Done(fmt.Sprintf("appended to list %s, new length: %d", args.Key, n))
}

// AddSetItem adds a member to a set and fails when it is already present.
func (b *Backend) AddSetItem(ctx context.Context, args MemberArgs) result.Result[result.Empty] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[result.Empty](err)
	}
	n, err := cl.SAdd(ctx, args.Key, args.Value).Result()
	if err != nil {
		return result.Failuref[result.Empty]("add failed: %v", err)
	}
	if n == 0 {
		return result.Failure[result.Empty]("member already exists")
	}
	return result.Done(fmt.Sprintf("added member to set %s", args.Key))
}

// DeleteSetItem removes a member from a set and fails when it is absent.
func (b *Backend) DeleteSetItem(ctx context.Context, args MemberArgs) result.Result[result.Empty] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[result.Empty](err)
	}
	n, err := cl.SRem(ctx, args.Key, args.Value).Result()
	if err != nil {
		return result.Failuref[result.Empty]("delete failed: %v", err)
	}
	if n == 0 {
		return result.Failure[result.Empty]("member does not exist")
	}
	return result.Done(fmt.Sprintf("removed member from set %s", args.Key))
}

// AddZSetItem adds a scored member and fails when the member is already present.
func (b *Backend) AddZSetItem(ctx context.Context, args ZSetMemberArgs) result.Result[result.Empty] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[result.Empty](err)
	}
	n, err := cl.ZAddNX(ctx, args.Key, redis.Z{Score: args.Score, Member: args.Value}).Result()
	if err != nil {
		return result.Failuref[result.Empty]("add failed: %v", err)
	}
	if n == 0 {
		return result.Failure[result.Empty]("member already exists")
	}
	return result.Done(fmt.Sprintf("added member to sorted set %s", args.Key))
}

// DeleteZSetItem removes a member from a sorted set and fails when it is absent.
func (b *Backend) DeleteZSetItem(ctx context.Context, args MemberArgs) result.Result[result.Empty] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[result.Empty](err)
	}
	n, err := cl.ZRem(ctx, args.Key, args.Value).Result()
	if err != nil {
		return result.Failuref[result.Empty]("delete failed: %v", err)
	}
	if n == 0 {
		return result.Failure[result.Empty]("member does not exist")
	}
	return result.Done(fmt.Sprintf("removed member from sorted set %s", args.Key))
}
