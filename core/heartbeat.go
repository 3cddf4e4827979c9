package core

import (
	"context"
	"encoding/json"
	"os"
	"runtime"
	"sync"
	"time"
)

const (
	InstanceHeartbeatPrefix   = "api:heartbeat:"
	InstanceHeartbeatTTL      = 45 * time.Second
	InstanceHeartbeatInterval = 15 * time.Second
)

// InstanceHeartbeatKey returns the Redis key for the given instance ID.
func InstanceHeartbeatKey(id string) string {
	return InstanceHeartbeatPrefix + id
}

// InstanceHeartbeat is the liveness record each API process writes to Redis.
// The TTL lets dead instances fall out of the status view on their own.
type InstanceHeartbeat struct {
	InstanceID    string    `json:"instance_id"`
	Hostname      string    `json:"hostname"`
	PID           int       `json:"pid"`
	Environment   string    `json:"environment"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	HeapBytes     uint64    `json:"heap_bytes"`
	NumGoroutine  int       `json:"num_goroutine"`
	StartedAt     time.Time `json:"started_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UpdateRuntimeStats overwrites memory/goroutine counters with current values.
func (h *InstanceHeartbeat) UpdateRuntimeStats() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	h.HeapBytes = ms.HeapAlloc
	h.NumGoroutine = runtime.NumGoroutine()
}

// SaveHeartbeat stores heartbeat JSON with TTL.
func SaveHeartbeat(ctx context.Context, client RedisClientRaw, hb InstanceHeartbeat) error {
	hb.UpdatedAt = time.Now()
	data, err := json.Marshal(hb)
	if err != nil {
		return err
	}
	return client.Set(ctx, InstanceHeartbeatKey(hb.InstanceID), data, InstanceHeartbeatTTL).Err()
}

// HeartbeatState periodically publishes this process's heartbeat.
type HeartbeatState struct {
	mu     sync.Mutex
	hb     InstanceHeartbeat
	ticker *time.Ticker
}

func NewHeartbeatState(instanceID string, environment string) *HeartbeatState {
	hostname, _ := os.Hostname()
	return &HeartbeatState{
		hb: InstanceHeartbeat{
			InstanceID:  instanceID,
			Hostname:    hostname,
			PID:         os.Getpid(),
			Environment: environment,
			StartedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		},
		ticker: time.NewTicker(InstanceHeartbeatInterval),
	}
}

// Start publishes heartbeats until ctx is cancelled. Call in a goroutine.
func (s *HeartbeatState) Start(ctx context.Context, client RedisClientRaw) {
	s.flush(ctx, client)
	defer s.ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ticker.C:
			s.flush(ctx, client)
		}
	}
}

func (s *HeartbeatState) flush(ctx context.Context, client RedisClientRaw) {
	s.mu.Lock()
	s.hb.UptimeSeconds = int64(time.Since(s.hb.StartedAt).Seconds())
	s.hb.UpdateRuntimeStats()
	hbCopy := s.hb
	s.mu.Unlock()
	_ = SaveHeartbeat(ctx, client, hbCopy)
}
