package sweep

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"chatserv/pkg/config"
	"chatserv/pkg/models"
	"chatserv/pkg/room"
	"chatserv/pkg/store"
)

func testRegistry(t *testing.T) *room.Registry {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return room.NewRegistry(room.Config{
		RoomCap:         1000,
		ConversationCap: 100,
		PresenceTimeout: 60 * time.Second,
		KickDuration:    5 * time.Minute,
		SpamWindow:      30 * time.Second,
		SpamHistory:     10,
	})
}

func saveJSON(t *testing.T, key string, v interface{}) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := store.SaveRecord(key, b); err != nil {
		t.Fatalf("save %s: %v", key, err)
	}
}

func TestRunImmediatePurgesColdRooms(t *testing.T) {
	reg := testRegistry(t)
	SetRegistry(reg)
	t.Cleanup(func() { SetRegistry(nil) })

	// Seed a room that has never had a live actor: stale presence from
	// 1970 and a kick that expired long ago.
	saveJSON(t, store.RoomKey("attic", store.KindPresence),
		[]models.PresenceEntry{{Username: "ghost", LastSeen: 1}})
	saveJSON(t, store.RoomKey("attic", store.KindKicks),
		map[string]models.KickRecord{"ghost": {KickedBy: "alice", TS: 1, Expires: 2}})

	if err := RunImmediate(); err != nil {
		t.Fatalf("deep sweep failed: %v", err)
	}

	// Both records emptied, so both were deleted from the store.
	if _, err := store.GetRecord(store.RoomKey("attic", store.KindPresence)); !store.IsNotFound(err) {
		t.Fatalf("expected presence record gone, got %v", err)
	}
	if _, err := store.GetRecord(store.RoomKey("attic", store.KindKicks)); !store.IsNotFound(err) {
		t.Fatalf("expected kicks record gone, got %v", err)
	}
}

func TestRunImmediateWithoutRegistry(t *testing.T) {
	SetRegistry(nil)
	if err := RunImmediate(); err == nil {
		t.Fatalf("expected an error without a registered registry")
	}
}

func TestStartRunsByDefault(t *testing.T) {
	reg := testRegistry(t)
	// A stock deployment carries a zero SweepConfig; both cadences must
	// come up anyway, falling back to the default interval and cron.
	cancel, err := Start(context.Background(), reg, config.SweepConfig{})
	if err != nil {
		t.Fatalf("default start failed: %v", err)
	}
	cancel()
}

func TestStartDisabled(t *testing.T) {
	reg := testRegistry(t)
	cancel, err := Start(context.Background(), reg, config.SweepConfig{Disabled: true})
	if err != nil {
		t.Fatalf("disabled start failed: %v", err)
	}
	cancel()
}

func TestStartRejectsInvalidCron(t *testing.T) {
	reg := testRegistry(t)
	_, err := Start(context.Background(), reg, config.SweepConfig{Cron: "not a cron"})
	if err == nil {
		t.Fatalf("expected an invalid cron error")
	}
}
