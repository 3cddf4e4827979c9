package core

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SystemStatus is the aggregated status view for the admin dashboard.
type SystemStatus struct {
	Database struct {
		Reachable bool `json:"reachable"`
	} `json:"database"`
	Redis struct {
		Reachable bool `json:"reachable"`
	} `json:"redis"`
	Instances []InstanceHeartbeat `json:"instances"`
	Memory    struct {
		UsedBytes  uint64 `json:"used_bytes"`
		TotalBytes uint64 `json:"total_bytes"`
	} `json:"memory"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// CollectSystemStatus aggregates the current status. Collection is
// best-effort: an unreachable dependency is reported, not an error.
func CollectSystemStatus(ctx context.Context, db *pgxpool.Pool, client RedisClientRaw, startedAt time.Time) SystemStatus {
	var st SystemStatus
	st.Instances = []InstanceHeartbeat{}

	if db != nil {
		st.Database.Reachable = db.Ping(ctx) == nil
	}
	if client != nil {
		st.Redis.Reachable = client.Ping(ctx).Err() == nil
		if st.Redis.Reachable {
			st.Instances = liveInstances(ctx, client)
		}
	}

	// Memory (best-effort from /proc/meminfo)
	used, total := readMemInfo()
	st.Memory.UsedBytes = used
	st.Memory.TotalBytes = total

	if !startedAt.IsZero() {
		st.UptimeSeconds = int64(time.Since(startedAt).Seconds())
	}

	return st
}

// liveInstances returns every heartbeat still present in Redis.
func liveInstances(ctx context.Context, client RedisClientRaw) []InstanceHeartbeat {
	iter := client.Scan(ctx, 0, InstanceHeartbeatPrefix+"*", 100).Iterator()
	res := []InstanceHeartbeat{}
	for iter.Next(ctx) {
		val, err := client.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		var hb InstanceHeartbeat
		if err := json.Unmarshal([]byte(val), &hb); err != nil {
			continue
		}
		res = append(res, hb)
	}
	return res
}

// readMemInfo returns used and total bytes using /proc/meminfo.
// If unavailable, returns zeros.
func readMemInfo() (used, total uint64) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	var memTotal, memAvailable uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "MemTotal:") {
			memTotal = parseKiBLine(line)
		} else if strings.HasPrefix(line, "MemAvailable:") {
			memAvailable = parseKiBLine(line)
		}
	}
	if memTotal > 0 {
		total = memTotal
		if memAvailable <= memTotal {
			used = memTotal - memAvailable
		}
		// convert KiB -> bytes
		used *= 1024
		total *= 1024
	}
	return used, total
}

func parseKiBLine(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	v, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return v
}
