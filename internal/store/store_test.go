package store

import (
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Init(dbPath)
	if err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}
	return db
}

func testMessage(id, origin, kind string) *Message {
	now := time.Now()
	return &Message{
		ID:         id,
		OriginID:   origin,
		Kind:       kind,
		Payload:    "payload for " + id,
		CreatedAt:  now,
		ReceivedAt: now,
		Hops:       0,
		TTL:        6,
	}
}

func TestInsertIfAbsentDedup(t *testing.T) {
	db := openTestDB(t)

	msg := testMessage("m1", "n1", KindText)
	first, err := InsertIfAbsent(db, msg)
	if err != nil {
		t.Fatalf("InsertIfAbsent failed: %v", err)
	}
	if !first {
		t.Fatal("Expected first insert to report true")
	}

	// Same id again, different content: record must stay untouched.
	dup := testMessage("m1", "n1", KindText)
	dup.Hops = 3
	dup.Payload = "mutated"
	first, err = InsertIfAbsent(db, dup)
	if err != nil {
		t.Fatalf("Duplicate insert errored: %v", err)
	}
	if first {
		t.Fatal("Expected duplicate insert to report false")
	}

	stored, err := GetMessage(db, "m1")
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	if stored.Hops != 0 {
		t.Errorf("Duplicate insert changed hops: got %d, want 0", stored.Hops)
	}
	if stored.Payload != "payload for m1" {
		t.Errorf("Duplicate insert changed payload: got %q", stored.Payload)
	}
}

func TestFlagTransitions(t *testing.T) {
	db := openTestDB(t)
	if _, err := InsertIfAbsent(db, testMessage("m1", "n1", KindSOS)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := MarkAcknowledged(db, "m1"); err != nil {
		t.Fatalf("MarkAcknowledged failed: %v", err)
	}
	// Idempotent: a second ack is a no-op that leaves the flag set.
	if err := MarkAcknowledged(db, "m1"); err != nil {
		t.Fatalf("Second MarkAcknowledged failed: %v", err)
	}
	// Unknown id is a no-op, not an error.
	if err := MarkAcknowledged(db, "missing"); err != nil {
		t.Fatalf("MarkAcknowledged on missing id errored: %v", err)
	}

	if err := MarkForwarded(db, "m1"); err != nil {
		t.Fatalf("MarkForwarded failed: %v", err)
	}
	if err := IncrementResend(db, "m1"); err != nil {
		t.Fatalf("IncrementResend failed: %v", err)
	}
	if err := IncrementResend(db, "m1"); err != nil {
		t.Fatalf("IncrementResend failed: %v", err)
	}

	stored, err := GetMessage(db, "m1")
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	if !stored.Acknowledged || !stored.Forwarded {
		t.Errorf("Expected acknowledged and forwarded set, got ack=%v fwd=%v",
			stored.Acknowledged, stored.Forwarded)
	}
	if stored.ResendCount != 2 {
		t.Errorf("Expected resend_count 2, got %d", stored.ResendCount)
	}
}

func TestListPending(t *testing.T) {
	db := openTestDB(t)

	// Forwarded non-SOS: not pending.
	done := testMessage("done", "n1", KindText)
	if _, err := InsertIfAbsent(db, done); err != nil {
		t.Fatal(err)
	}
	if err := MarkForwarded(db, "done"); err != nil {
		t.Fatal(err)
	}

	// Unforwarded text: pending.
	if _, err := InsertIfAbsent(db, testMessage("text", "n1", KindText)); err != nil {
		t.Fatal(err)
	}

	// Forwarded but unacknowledged SOS: still pending.
	sos := testMessage("sos", "n1", KindSOS)
	if _, err := InsertIfAbsent(db, sos); err != nil {
		t.Fatal(err)
	}
	if err := MarkForwarded(db, "sos"); err != nil {
		t.Fatal(err)
	}

	pending, err := ListPending(db)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	ids := map[string]bool{}
	for _, m := range pending {
		ids[m.ID] = true
	}
	if ids["done"] {
		t.Error("Forwarded text message must not be pending")
	}
	if !ids["text"] {
		t.Error("Unforwarded text message must be pending")
	}
	if !ids["sos"] {
		t.Error("Unacknowledged SOS must be pending even when forwarded")
	}
}

func TestListUnacknowledgedSOS(t *testing.T) {
	db := openTestDB(t)

	older := testMessage("old", "me", KindSOS)
	older.ReceivedAt = time.Now().Add(-time.Minute)
	newer := testMessage("new", "me", KindSOS)

	foreign := testMessage("foreign", "someone-else", KindSOS)
	acked := testMessage("acked", "me", KindSOS)
	zeroTTL := testMessage("zero-ttl", "me", KindSOS)
	zeroTTL.TTL = 0
	text := testMessage("text", "me", KindText)

	for _, m := range []*Message{newer, older, foreign, acked, zeroTTL, text} {
		if _, err := InsertIfAbsent(db, m); err != nil {
			t.Fatal(err)
		}
	}
	if err := MarkAcknowledged(db, "acked"); err != nil {
		t.Fatal(err)
	}

	rows, err := ListUnacknowledgedSOS(db, "me")
	if err != nil {
		t.Fatalf("ListUnacknowledgedSOS failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(rows))
	}
	if rows[0].ID != "old" || rows[1].ID != "new" {
		t.Errorf("Expected oldest-first [old new], got [%s %s]", rows[0].ID, rows[1].ID)
	}
}

func TestPurgeOlderThan(t *testing.T) {
	db := openTestDB(t)

	stale := testMessage("stale", "n1", KindText)
	stale.ReceivedAt = time.Now().Add(-8 * 24 * time.Hour)
	fresh := testMessage("fresh", "n1", KindText)
	for _, m := range []*Message{stale, fresh} {
		if _, err := InsertIfAbsent(db, m); err != nil {
			t.Fatal(err)
		}
	}

	n, err := PurgeOlderThan(db, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeOlderThan failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 purged row, got %d", n)
	}
	if _, err := GetMessage(db, "fresh"); err != nil {
		t.Errorf("Fresh message was purged: %v", err)
	}
	if _, err := GetMessage(db, "stale"); err == nil {
		t.Error("Stale message survived the purge")
	}
}

func TestAlertUpsert(t *testing.T) {
	db := openTestDB(t)

	a := Alert{ID: "feed::1", Title: "Flood warning", Body: "v1", Source: "feed", FetchedAt: time.Now()}
	if err := UpsertAlert(db, a); err != nil {
		t.Fatalf("UpsertAlert failed: %v", err)
	}
	a.Body = "v2"
	if err := UpsertAlert(db, a); err != nil {
		t.Fatalf("Second UpsertAlert failed: %v", err)
	}

	alerts, err := ListAlerts(db, 10)
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("Expected 1 alert after upsert, got %d", len(alerts))
	}
	if alerts[0].Body != "v2" {
		t.Errorf("Expected upsert to replace body, got %q", alerts[0].Body)
	}
}
