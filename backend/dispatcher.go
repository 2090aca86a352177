package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dracory/weeredis/shared/result"
	"github.com/samber/lo"
)

// Command names accepted by the dispatcher.
const (
	CmdConnectRedis       = "connect_redis"
	CmdDisconnectRedis    = "disconnect_redis"
	CmdGetDbCount         = "get_db_count"
	CmdGetDbKeyCount      = "get_db_key_count"
	CmdGetAllDbKeyCounts  = "get_all_db_key_counts"
	CmdSelectDb           = "select_db"
	CmdGetKeys            = "get_keys"
	CmdGetKey             = "get_key"
	CmdGetKeyDetail       = "get_key_detail"
	CmdGetKeyType         = "get_key_type"
	CmdGetKeyTTL          = "get_key_ttl"
	CmdGetKeySize         = "get_key_size"
	CmdSetKey             = "set_key"
	CmdRenameKey          = "rename_key"
	CmdDeleteKey          = "delete_key"
	CmdSetKeyTTL          = "set_key_ttl"
	CmdUpdateHashField    = "update_hash_field"
	CmdDeleteHashField    = "delete_hash_field"
	CmdUpdateListItem     = "update_list_item"
	CmdDeleteListItem     = "delete_list_item"
	CmdAppendListItem     = "append_list_item"
	CmdAddSetItem         = "add_set_item"
	CmdDeleteSetItem      = "delete_set_item"
	CmdAddZSetItem        = "add_zset_item"
	CmdDeleteZSetItem     = "delete_zset_item"
	CmdExportKey          = "export_key"
	CmdExportKeys         = "export_keys"
	CmdImportKey          = "import_key"
	CmdImportKeys         = "import_keys"
	CmdGetRedisServerInfo = "get_redis_server_info"
)

var (
	// ErrUnknownCommand is returned for command names without a handler.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrInvalidArguments is returned when arguments do not decode into the command's record.
	ErrInvalidArguments = errors.New("invalid arguments")
)

// HandlerFunc runs one command on raw JSON arguments and returns the encoded envelope.
type HandlerFunc func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// Dispatcher routes command names to backend methods.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   *slog.Logger
}

// NewDispatcher registers every command of b.
func NewDispatcher(b *Backend) *Dispatcher {
	d := &Dispatcher{handlers: map[string]HandlerFunc{}, logger: b.logger}

	d.handlers[CmdConnectRedis] = handle(b.ConnectRedis)
	d.handlers[CmdDisconnectRedis] = handle(b.DisconnectRedis)

	d.handlers[CmdGetDbCount] = handle(b.GetDbCount)
	d.handlers[CmdGetDbKeyCount] = handle(b.GetDbKeyCount)
	d.handlers[CmdGetAllDbKeyCounts] = handle(b.GetAllDbKeyCounts)
	d.handlers[CmdSelectDb] = handle(b.SelectDb)

	d.handlers[CmdGetKeys] = handle(b.GetKeys)
	d.handlers[CmdGetKey] = handle(b.GetKey)
	d.handlers[CmdGetKeyDetail] = handle(b.GetKeyDetail)
	d.handlers[CmdGetKeyType] = handle(b.GetKeyType)
	d.handlers[CmdGetKeyTTL] = handle(b.GetKeyTTL)
	d.handlers[CmdGetKeySize] = handle(b.GetKeySize)
	d.handlers[CmdSetKey] = handle(b.SetKey)
	d.handlers[CmdRenameKey] = handle(b.RenameKey)
	d.handlers[CmdDeleteKey] = handle(b.DeleteKey)
	d.handlers[CmdSetKeyTTL] = handle(b.SetKeyTTL)

	d.handlers[CmdUpdateHashField] = handle(b.UpdateHashField)
	d.handlers[CmdDeleteHashField] = handle(b.DeleteHashField)
	d.handlers[CmdUpdateListItem] = handle(b.UpdateListItem)
	d.handlers[CmdDeleteListItem] = handle(b.DeleteListItem)
	d.handlers[CmdAppendListItem] = handle(b.AppendListItem)
	d.handlers[CmdAddSetItem] = handle(b.AddSetItem)
	d.handlers[CmdDeleteSetItem] = handle(b.DeleteSetItem)
	d.handlers[CmdAddZSetItem] = handle(b.AddZSetItem)
	d.handlers[CmdDeleteZSetItem] = handle(b.DeleteZSetItem)

	d.handlers[CmdExportKey] = handle(b.ExportKey)
	d.handlers[CmdExportKeys] = handle(b.ExportKeys)
	d.handlers[CmdImportKey] = handle(b.ImportKey)
	d.handlers[CmdImportKeys] = handle(b.ImportKeys)

	d.handlers[CmdGetRedisServerInfo] = handle(b.GetRedisServerInfo)
	return d
}

// Dispatch runs command with args and returns its envelope. Errors are
// returned only for unknown commands or undecodable arguments.
func (d *Dispatcher) Dispatch(ctx context.Context, command string, args json.RawMessage) (json.RawMessage, error) {
	h, ok := d.handlers[command]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
	out, err := h(ctx, args)
	if err != nil {
		d.logger.Warn("backend: command rejected", "command", command, "error", err)
		return nil, err
	}
	return out, nil
}

// Has reports whether command is registered.
func (d *Dispatcher) Has(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// Commands returns the registered command names in order.
func (d *Dispatcher) Commands() []string {
	names := lo.Keys(d.handlers)
	sort.Strings(names)
	return names
}

// handle adapts a typed command method to a HandlerFunc.
func handle[A any, T any](fn func(context.Context, A) result.Result[T]) HandlerFunc {
	return func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
		var args A
		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
			if err := json.Unmarshal(trimmed, &args); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
			}
		}
		return json.Marshal(fn(ctx, args).Envelope())
	}
}
