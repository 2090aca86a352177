package backend

import (
	"encoding/json"

	"github.com/dracory/weeredis/shared/types"
)

// Argument records of the backend commands follow the wire argument names.

// ConnectArgs carries the profile to connect.
type ConnectArgs struct {
	Config types.ConnectionProfile `json:"config"`
}

// ConnectionArgs addresses a registered connection.
type ConnectionArgs struct {
	ConnectionID string `json:"connectionId"`
}

// DbArgs addresses one database of a connection.
type DbArgs struct {
	ConnectionID string `json:"connectionId"`
	DbIndex      int    `json:"dbIndex"`
}

// DbCountArgs asks for the first DbCount databases.
type DbCountArgs struct {
	ConnectionID string `json:"connectionId"`
	DbCount      int    `json:"dbCount"`
}

// PatternArgs filters keys by glob pattern.
type PatternArgs struct {
	ConnectionID string `json:"connectionId"`
	Pattern      string `json:"pattern"`
}

// KeyArgs addresses one key.
type KeyArgs struct {
	ConnectionID string `json:"connectionId"`
	Key          string `json:"key"`
}

// SetKeyArgs creates or replaces a key.
type SetKeyArgs struct {
	ConnectionID string          `json:"connectionId"`
	Key          string          `json:"key"`
	KeyType      string          `json:"keyType"`
	Value        json.RawMessage `json:"value"`
	TTL          int64           `json:"ttl"`
}

// RenameKeyArgs renames OldKey to NewKey.
type RenameKeyArgs struct {
	ConnectionID string `json:"connectionId"`
	OldKey       string `json:"oldKey"`
	NewKey       string `json:"newKey"`
}

// KeyTTLArgs sets the expiry of a key in seconds.
type KeyTTLArgs struct {
	ConnectionID string `json:"connectionId"`
	Key          string `json:"key"`
	TTL          int64  `json:"ttl"`
}

// HashFieldArgs addresses one hash field.
type HashFieldArgs struct {
	ConnectionID string `json:"connectionId"`
	Key          string `json:"key"`
	Field        string `json:"field"`
	Value        string `json:"value,omitempty"`
}

// ListItemArgs addresses one list element by index.
type ListItemArgs struct {
	ConnectionID string `json:"connectionId"`
	Key          string `json:"key"`
	Index        int64  `json:"index"`
	Value        string `json:"value"`
}

// ListRemoveArgs removes list elements equal to Value.
type ListRemoveArgs struct {
	ConnectionID string `json:"connectionId"`
	Key          string `json:"key"`
	Value        string `json:"value"`
	Count        int64  `json:"count"`
}

// MemberArgs addresses one list, set or sorted-set member.
type MemberArgs struct {
	ConnectionID string `json:"connectionId"`
	Key          string `json:"key"`
	Value        string `json:"value"`
}

// ZSetMemberArgs adds a scored sorted set member.
type ZSetMemberArgs struct {
	ConnectionID string  `json:"connectionId"`
	Key          string  `json:"key"`
	Score        float64 `json:"score"`
	Value        string  `json:"value"`
}

// ImportKeyArgs imports one export record.
type ImportKeyArgs struct {
	ConnectionID string          `json:"connectionId"`
	KeyDetail    types.KeyDetail `json:"keyDetail"`
	Overwrite    bool            `json:"overwrite"`
}

// ImportKeysArgs imports many export records.
type ImportKeysArgs struct {
	ConnectionID string            `json:"connectionId"`
	Keys         []types.KeyDetail `json:"keys"`
	Overwrite    bool              `json:"overwrite"`
}
