package backend

import (
	"bufio"
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/dracory/weeredis/shared/result"
	"github.com/dracory/weeredis/shared/types"
)

// Replication states reported in ServerInfo.
const (
	ReplicationMaster           = "master"
	ReplicationReplicaConnected = "replica (link up)"
	ReplicationReplicaDown      = "replica (link down)"
	ReplicationUnknown          = "unknown"
)

// GetRedisServerInfo reads INFO and extracts the statistics view metrics.
func (b *Backend) GetRedisServerInfo(ctx context.Context, args ConnectionArgs) result.Result[types.ServerInfo] {
	cl, err := b.client(args.ConnectionID)
	if err != nil {
		return fail[types.ServerInfo](err)
	}
	raw, err := cl.Info(ctx).Result()
	if err != nil {
		return result.Failuref[types.ServerInfo]("failed to read server info: %v", err)
	}
	return result.Ok(ParseInfo(raw))
}

// Info is a parsed INFO reply keyed by field name.
type Info map[string]string

// ParseInfoFields splits an INFO reply into its "name:value" fields.
// Section headers and blank lines are skipped.
func ParseInfoFields(raw string) Info {
	info := Info{}
	sc := bufio.NewScanner(strings.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		info[name] = value
	}
	return info
}

// Int returns a field as an integer, or 0.
func (i Info) Int(name string) int64 {
	n, err := strconv.ParseInt(i[name], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Float returns a field as a float, or 0.
func (i Info) Float(name string) float64 {
	f, err := strconv.ParseFloat(i[name], 64)
	if err != nil {
		return 0
	}
	return f
}

// String returns a field, or fallback when absent.
func (i Info) String(name, fallback string) string {
	if v, ok := i[name]; ok && v != "" {
		return v
	}
	return fallback
}

// ParseInfo converts an INFO reply into ServerInfo.
func ParseInfo(raw string) types.ServerInfo {
	info := ParseInfoFields(raw)
	return types.ServerInfo{
		MemoryUsage:           info.Int("used_memory"),
		MaxMemory:             info.Int("maxmemory"),
		Connections:           info.Int("connected_clients"),
		HitRate:               hitRate(info),
		Uptime:                info.Int("uptime_in_seconds"),
		TotalKeys:             totalKeys(info),
		OpsPerSec:             info.Int("instantaneous_ops_per_sec"),
		UsedCPU:               info.Float("used_cpu_sys"),
		Role:                  info.String("role", "unknown"),
		Version:               info.String("redis_version", "unknown"),
		Persistence:           persistence(info),
		ClientsBlocked:        info.Int("blocked_clients"),
		KeysEvicted:           info.Int("evicted_keys"),
		KeysExpired:           info.Int("expired_keys"),
		ReplicationStatus:     replicationStatus(info),
		MemFragmentationRatio: info.Float("mem_fragmentation_ratio"),
		AOFSize:               info.Int("aof_current_size"),
		RDBLastSave:           info.Int("rdb_last_save_time"),
		ConnectedSlaves:       info.Int("connected_slaves"),
	}
}

// hitRate is keyspace hits over lookups as a whole percentage.
func hitRate(info Info) float64 {
	hits, misses := info.Int("keyspace_hits"), info.Int("keyspace_misses")
	if hits+misses == 0 {
		return 0
	}
	return math.Round(float64(hits) / float64(hits+misses) * 100)
}

// totalKeys sums keys= over the dbN keyspace lines.
func totalKeys(info Info) int64 {
	var total int64
	for name, value := range info {
		if !strings.HasPrefix(name, "db") {
			continue
		}
		if _, err := strconv.Atoi(name[2:]); err != nil {
			continue
		}
		for _, part := range strings.Split(value, ",") {
			if v, ok := strings.CutPrefix(part, "keys="); ok {
				n, _ := strconv.ParseInt(v, 10, 64)
				total += n
			}
		}
	}
	return total
}

func persistence(info Info) string {
	rdb := info.Int("rdb_bgsave_in_progress") == 1
	aof := info.Int("aof_enabled") == 1
	switch {
	case rdb && aof:
		return "RDB+AOF"
	case rdb:
		return "RDB"
	case aof:
		return "AOF"
	default:
		return "None"
	}
}

func replicationStatus(info Info) string {
	switch info.String("role", "") {
	case "master":
		return ReplicationMaster
	case "slave", "replica":
		if info.String("master_link_status", "") == "up" {
			return ReplicationReplicaConnected
		}
		return ReplicationReplicaDown
	default:
		return ReplicationUnknown
	}
}
