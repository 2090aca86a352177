package gateway

import (
	"context"
	"encoding/json"

	"github.com/dracory/weeredis/backend"
	"github.com/dracory/weeredis/shared/result"
	"github.com/dracory/weeredis/shared/types"
)

// Empty is the result payload of commands that return no data.
type Empty = result.Empty

// ConnectRedis connects the profile and registers it under its id.
func ConnectRedis(ctx context.Context, inv Invoker, profile types.ConnectionProfile) (result.Result[Empty], error) {
	return call[Empty](ctx, inv, backend.CmdConnectRedis, backend.ConnectArgs{Config: profile})
}

// DisconnectRedis closes a registered connection.
func DisconnectRedis(ctx context.Context, inv Invoker, connectionID string) (result.Result[Empty], error) {
	return call[Empty](ctx, inv, backend.CmdDisconnectRedis, backend.ConnectionArgs{ConnectionID: connectionID})
}

// GetDbCount returns the number of logical databases.
func GetDbCount(ctx context.Context, inv Invoker, connectionID string) (result.Result[int], error) {
	return call[int](ctx, inv, backend.CmdGetDbCount, backend.ConnectionArgs{ConnectionID: connectionID})
}

// GetDbKeyCount returns the key count of one database.
func GetDbKeyCount(ctx context.Context, inv Invoker, connectionID string, dbIndex int) (result.Result[int64], error) {
	return call[int64](ctx, inv, backend.CmdGetDbKeyCount, backend.DbArgs{ConnectionID: connectionID, DbIndex: dbIndex})
}

// GetAllDbKeyCounts returns the key counts of databases 0..dbCount-1.
func GetAllDbKeyCounts(ctx context.Context, inv Invoker, connectionID string, dbCount int) (result.Result[[]types.DbKeyCount], error) {
	return call[[]types.DbKeyCount](ctx, inv, backend.CmdGetAllDbKeyCounts, backend.DbCountArgs{ConnectionID: connectionID, DbCount: dbCount})
}

// SelectDb switches the database used by later key commands.
func SelectDb(ctx context.Context, inv Invoker, connectionID string, dbIndex int) (result.Result[Empty], error) {
	return call[Empty](ctx, inv, backend.CmdSelectDb, backend.DbArgs{ConnectionID: connectionID, DbIndex: dbIndex})
}

// GetKeys lists keys matching a glob pattern; "" matches everything.
func GetKeys(ctx context.Context, inv Invoker, connectionID, pattern string) (result.Result[types.KeysListData], error) {
	return call[types.KeysListData](ctx, inv, backend.CmdGetKeys, backend.PatternArgs{ConnectionID: connectionID, Pattern: pattern})
}

// GetKey returns the value of a string key.
func GetKey(ctx context.Context, inv Invoker, connectionID, key string) (result.Result[string], error) {
	return call[string](ctx, inv, backend.CmdGetKey, backend.KeyArgs{ConnectionID: connectionID, Key: key})
}

// GetKeyDetail returns type, ttl, size and value of a key.
func GetKeyDetail(ctx context.Context, inv Invoker, connectionID, key string) (result.Result[types.KeyDetail], error) {
	return call[types.KeyDetail](ctx, inv, backend.CmdGetKeyDetail, backend.KeyArgs{ConnectionID: connectionID, Key: key})
}

// GetKeyType returns the Redis type of a key.
func GetKeyType(ctx context.Context, inv Invoker, connectionID, key string) (result.Result[string], error) {
	return call[string](ctx, inv, backend.CmdGetKeyType, backend.KeyArgs{ConnectionID: connectionID, Key: key})
}

// GetKeyTTL returns the remaining ttl in seconds.
func GetKeyTTL(ctx context.Context, inv Invoker, connectionID, key string) (result.Result[int64], error) {
	return call[int64](ctx, inv, backend.CmdGetKeyTTL, backend.KeyArgs{ConnectionID: connectionID, Key: key})
}

// GetKeySize returns the memory used by a key in bytes.
func GetKeySize(ctx context.Context, inv Invoker, connectionID, key string) (result.Result[int64], error) {
	return call[int64](ctx, inv, backend.CmdGetKeySize, backend.KeyArgs{ConnectionID: connectionID, Key: key})
}

// SetKey creates or replaces a key. value takes the shape documented on
// types.KeyDetail; a hash may also be given as map[string]string.
func SetKey(ctx context.Context, inv Invoker, connectionID, key, keyType string, value any, ttl int64) (result.Result[Empty], error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return result.Result[Empty]{}, err
	}
	return call[Empty](ctx, inv, backend.CmdSetKey, backend.SetKeyArgs{
		ConnectionID: connectionID,
		Key:          key,
		KeyType:      keyType,
		Value:        raw,
		TTL:          ttl,
	})
}

// RenameKey renames a key.
func RenameKey(ctx context.Context, inv Invoker, connectionID, oldKey, newKey string) (result.Result[Empty], error) {
	return call[Empty](ctx, inv, backend.CmdRenameKey, backend.RenameKeyArgs{ConnectionID: connectionID, OldKey: oldKey, NewKey: newKey})
}

// DeleteKey deletes a key.
func DeleteKey(ctx context.Context, inv Invoker, connectionID, key string) (result.Result[Empty], error) {
	return call[Empty](ctx, inv, backend.CmdDeleteKey, backend.KeyArgs{ConnectionID: connectionID, Key: key})
}

// SetKeyTTL sets an expiry in seconds; ttl <= 0 removes it.
func SetKeyTTL(ctx context.Context, inv Invoker, connectionID, key string, ttl int64) (result.Result[Empty], error) {
	return call[Empty](ctx, inv, backend.CmdSetKeyTTL, backend.KeyTTLArgs{ConnectionID: connectionID, Key: key, TTL: ttl})
}

// UpdateHashField sets one hash field.
func UpdateHashField(ctx context.Context, inv Invoker, connectionID, key, field, value string) (result.Result[Empty], error) {
	return call[Empty](ctx, inv, backend.CmdUpdateHashField, backend.HashFieldArgs{ConnectionID: connectionID, Key: key, Field: field, Value: value})
}

// DeleteHashField removes one hash field.
func DeleteHashField(ctx context.Context, inv Invoker, connectionID, key, field string) (result.Result[Empty], error) {
	return call[Empty](ctx, inv, backend.CmdDeleteHashField, backend.HashFieldArgs{ConnectionID: connectionID, Key: key, Field: field})
}

// UpdateListItem replaces the list element at index.
func UpdateListItem(ctx context.Context, inv Invoker, connectionID, key string, index int64, value string) (result.Result[Empty], error) {
	return call[Empty](ctx, inv, backend.CmdUpdateListItem, backend.ListItemArgs{ConnectionID: connectionID, Key: key, Index: index, Value: value})
}

// DeleteListItem removes occurrences of value following LREM count semantics.
func DeleteListItem(ctx context.Context, inv Invoker, connectionID, key, value string, count int64) (result.Result[Empty], error) {
	return call[Empty](ctx, inv, backend.CmdDeleteListItem, backend.ListRemoveArgs{ConnectionID: connectionID, Key: key, Value: value, Count: count})
}

// AppendListItem pushes value to the tail of a list.
func AppendListItem(ctx context.Context, inv Invoker, connectionID, key, value string) (result.Result[Empty], error) {
	return call[Empty](ctx, inv, backend.CmdAppendListItem, backend.MemberArgs{ConnectionID: connectionID, Key: key, Value: value})
}

// AddSetItem adds a set member.
func AddSetItem(ctx context.Context, inv Invoker, connectionID, key, value string) (result.Result[Empty], error) {
	return call[Empty](ctx, inv, backend.CmdAddSetItem, backend.MemberArgs{ConnectionID: connectionID, Key: key, Value: value})
}

// DeleteSetItem removes a set member.
func DeleteSetItem(ctx context.Context, inv Invoker, connectionID, key, value string) (result.Result[Empty], error) {
	return call[Empty](ctx, inv, backend.CmdDeleteSetItem, backend.MemberArgs{ConnectionID: connectionID, Key: key, Value: value})
}

// AddZSetItem adds a sorted set member with score.
func AddZSetItem(ctx context.Context, inv Invoker, connectionID, key string, score float64, value string) (result.Result[Empty], error) {
	return call[Empty](ctx, inv, backend.CmdAddZSetItem, backend.ZSetMemberArgs{ConnectionID: connectionID, Key: key, Score: score, Value: value})
}

// DeleteZSetItem removes a sorted set member.
func DeleteZSetItem(ctx context.Context, inv Invoker, connectionID, key, value string) (result.Result[Empty], error) {
	return call[Empty](ctx, inv, backend.CmdDeleteZSetItem, backend.MemberArgs{ConnectionID: connectionID, Key: key, Value: value})
}

// ExportKey returns one key as an export record.
func ExportKey(ctx context.Context, inv Invoker, connectionID, key string) (result.Result[types.KeyDetail], error) {
	return call[types.KeyDetail](ctx, inv, backend.CmdExportKey, backend.KeyArgs{ConnectionID: connectionID, Key: key})
}

// ExportKeys returns every key matching pattern as export records.
func ExportKeys(ctx context.Context, inv Invoker, connectionID, pattern string) (result.Result[[]types.KeyDetail], error) {
	return call[[]types.KeyDetail](ctx, inv, backend.CmdExportKeys, backend.PatternArgs{ConnectionID: connectionID, Pattern: pattern})
}

// ImportKey writes one export record.
func ImportKey(ctx context.Context, inv Invoker, connectionID string, detail types.KeyDetail, overwrite bool) (result.Result[Empty], error) {
	return call[Empty](ctx, inv, backend.CmdImportKey, backend.ImportKeyArgs{ConnectionID: connectionID, KeyDetail: detail, Overwrite: overwrite})
}

// ImportKeys writes export records, skipping existing keys unless overwrite is set.
func ImportKeys(ctx context.Context, inv Invoker, connectionID string, keys []types.KeyDetail, overwrite bool) (result.Result[Empty], error) {
	return call[Empty](ctx, inv, backend.CmdImportKeys, backend.ImportKeysArgs{ConnectionID: connectionID, Keys: keys, Overwrite: overwrite})
}

// GetRedisServerInfo returns parsed INFO statistics.
func GetRedisServerInfo(ctx context.Context, inv Invoker, connectionID string) (result.Result[types.ServerInfo], error) {
	return call[types.ServerInfo](ctx, inv, backend.CmdGetRedisServerInfo, backend.ConnectionArgs{ConnectionID: connectionID})
}
