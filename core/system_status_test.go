package core

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSaveHeartbeat_RoundTrip(t *testing.T) {
	mr, client := newTestRedis(t)

	hb := InstanceHeartbeat{
		InstanceID:  "host:42:f00d",
		Hostname:    "host",
		PID:         42,
		Environment: "production",
	}
	if err := SaveHeartbeat(context.Background(), client, hb); err != nil {
		t.Fatalf("save error: %v", err)
	}

	key := InstanceHeartbeatKey(hb.InstanceID)
	if !mr.Exists(key) {
		t.Fatalf("expected key %s to exist", key)
	}
	ttl := mr.TTL(key)
	if ttl <= 0 || ttl > InstanceHeartbeatTTL {
		t.Fatalf("ttl = %v, want (0, %v]", ttl, InstanceHeartbeatTTL)
	}

	// A dead instance falls out once its TTL lapses.
	mr.FastForward(InstanceHeartbeatTTL + time.Second)
	if mr.Exists(key) {
		t.Fatal("expected heartbeat to expire")
	}
}

func TestCollectSystemStatus(t *testing.T) {
	_, client := newTestRedis(t)

	for _, id := range []string{"a:1:aa", "b:2:bb"} {
		if err := SaveHeartbeat(context.Background(), client, InstanceHeartbeat{InstanceID: id}); err != nil {
			t.Fatalf("save error: %v", err)
		}
	}

	st := CollectSystemStatus(context.Background(), nil, client, time.Now().Add(-time.Minute))
	if st.Database.Reachable {
		t.Fatal("nil pool must report unreachable, not panic")
	}
	if !st.Redis.Reachable {
		t.Fatal("expected redis reachable")
	}
	if len(st.Instances) != 2 {
		t.Fatalf("instances = %d, want 2", len(st.Instances))
	}
	if st.UptimeSeconds < 59 || st.UptimeSeconds > 61 {
		t.Fatalf("uptime = %d, want ~60", st.UptimeSeconds)
	}
}

func TestCollectSystemStatus_NoDependencies(t *testing.T) {
	st := CollectSystemStatus(context.Background(), nil, nil, time.Time{})
	if st.Database.Reachable || st.Redis.Reachable {
		t.Fatal("missing dependencies must report unreachable")
	}
	if st.Instances == nil {
		t.Fatal("instances must be an empty slice, not nil")
	}
	if st.UptimeSeconds != 0 {
		t.Fatalf("uptime = %d, want 0", st.UptimeSeconds)
	}
}

func TestHeartbeatState_Flush(t *testing.T) {
	mr, client := newTestRedis(t)

	state := NewHeartbeatState("test:1:beef", "development")
	state.flush(context.Background(), client)

	if !mr.Exists(InstanceHeartbeatKey("test:1:beef")) {
		t.Fatal("expected heartbeat after flush")
	}

	st := CollectSystemStatus(context.Background(), nil, client, time.Time{})
	if len(st.Instances) != 1 {
		t.Fatalf("instances = %d, want 1", len(st.Instances))
	}
	got := st.Instances[0]
	if got.InstanceID != "test:1:beef" || got.Environment != "development" {
		t.Fatalf("unexpected heartbeat: %+v", got)
	}
	if got.NumGoroutine <= 0 {
		t.Fatal("expected runtime stats to be populated")
	}
}
