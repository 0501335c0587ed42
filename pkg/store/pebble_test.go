package store

import (
	"testing"
)

func openTestDB(t *testing.T) {
	t.Helper()
	if err := Open(t.TempDir()); err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = Close() })
}

func TestSaveGetDeleteRecord(t *testing.T) {
	openTestDB(t)

	key := RoomKey("lobby", KindMessages)
	if err := SaveRecord(key, []byte(`[{"id":"m1"}]`)); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	v, err := GetRecord(key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(v) != `[{"id":"m1"}]` {
		t.Fatalf("unexpected value: %s", v)
	}

	if err := DeleteRecord(key); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := GetRecord(key); !IsNotFound(err) {
		t.Fatalf("expected not-found after delete, got %v", err)
	}
	// Deleting an absent key is fine.
	if err := DeleteRecord(key); err != nil {
		t.Fatalf("repeat delete failed: %v", err)
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	openTestDB(t)

	_, err := GetRecord(RoomKey("ghost", KindPresence))
	if err == nil || !IsNotFound(err) {
		t.Fatalf("expected a not-found error, got %v", err)
	}
}

func TestListRoomIDs(t *testing.T) {
	openTestDB(t)

	// Several kinds under the same room must collapse to one id, and
	// other namespaces must not leak in.
	records := map[string]string{
		RoomKey("lobby", KindMessages):  "[]",
		RoomKey("lobby", KindPresence):  "[]",
		RoomKey("den", KindMessages):    "[]",
		RoomKey("a:b", KindMessages):    "[]", // id with a colon still parses by last separator
		ConvKey("alice,bob"):            "[]",
		BansKey():                       "{}",
		BlobKey("x1"):                   "bytes",
	}
	for k, v := range records {
		if err := SaveRecord(k, []byte(v)); err != nil {
			t.Fatalf("save %s failed: %v", k, err)
		}
	}

	ids, err := ListRoomIDs()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	want := map[string]bool{"lobby": true, "den": true, "a:b": true}
	if len(ids) != len(want) {
		t.Fatalf("expected %d room ids, got %v", len(want), ids)
	}
	for _, id := range ids {
		if !want[id] {
			t.Fatalf("unexpected room id %q in %v", id, ids)
		}
	}
}

func TestNotOpenedErrors(t *testing.T) {
	// No Open in this test; the global handle must be nil.
	if Ready() {
		t.Skip("store already open from another test")
	}
	if err := SaveRecord("k", []byte("v")); err == nil {
		t.Fatalf("expected error saving without an open store")
	}
	if _, err := GetRecord("k"); err == nil {
		t.Fatalf("expected error reading without an open store")
	}
}
