package types

// Key types understood by the backend.
const (
	KeyTypeString = "string"
	KeyTypeHash   = "hash"
	KeyTypeList   = "list"
	KeyTypeSet    = "set"
	KeyTypeZSet   = "zset"
	KeyTypeStream = "stream"
	KeyTypeNone   = "none"
)

// KeyInfo is a key name with its type.
type KeyInfo struct {
	Key  string `json:"key"`
	Type string `json:"type"`
}

// KeysListData is the result of a key listing.
type KeysListData struct {
	Keys  []KeyInfo `json:"keys"`
	Total int       `json:"total"`
}

// KeyDetail is the full record of one key. It doubles as the export/import unit.
//
// Value holds a string for string keys, []HashField for hashes, []string for
// lists and sets, and []ZSetMember for sorted sets.
type KeyDetail struct {
	Key        string `json:"key" yaml:"key"`
	Type       string `json:"type" yaml:"type"`
	TTL        int64  `json:"ttl" yaml:"ttl"`
	Size       int64  `json:"size" yaml:"size"`
	CreateTime string `json:"create_time" yaml:"create_time"`
	Value      any    `json:"value" yaml:"value"`
}

// HashField is one field of a hash value.
type HashField struct {
	Field string `json:"field" yaml:"field"`
	Value string `json:"value" yaml:"value"`
}

// ZSetMember is one member of a sorted set value.
type ZSetMember struct {
	Value string  `json:"value" yaml:"value"`
	Score float64 `json:"score" yaml:"score"`
}

// DbKeyCount is the number of keys held by one logical database.
type DbKeyCount struct {
	DbIndex  int   `json:"db_index"`
	KeyCount int64 `json:"key_count"`
}
