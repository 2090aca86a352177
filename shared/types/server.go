package types

// ServerInfo is the subset of INFO shown on the statistics view.
type ServerInfo struct {
	MemoryUsage int64   `json:"memory_usage"`
	MaxMemory   int64   `json:"maxmemory"`
	Connections int64   `json:"connections"`
	HitRate     float64 `json:"hit_rate"`
	Uptime      int64   `json:"uptime"`
	TotalKeys   int64   `json:"total_keys"`
	OpsPerSec   int64   `json:"ops_per_sec"`
	UsedCPU     float64 `json:"used_cpu"`
	Role        string  `json:"role"`
	Version     string  `json:"version"`
	Persistence string  `json:"persistence"`

	ClientsBlocked        int64   `json:"clients_blocked"`
	KeysEvicted           int64   `json:"keys_evicted"`
	KeysExpired           int64   `json:"keys_expired"`
	ReplicationStatus     string  `json:"replication_status"`
	MemFragmentationRatio float64 `json:"mem_fragmentation_ratio"`
	AOFSize               int64   `json:"aof_size"`
	RDBLastSave           int64   `json:"rdb_last_save"`
	ConnectedSlaves       int64   `json:"connected_slaves"`
}
