package alertfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/Ananthan-A-K/ResQ/internal/store"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := store.Init(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}
	return db
}

func TestFetchJSONFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"Flood warning","severity":"high"}`))
	}))
	defer srv.Close()

	db := openTestDB(t)
	f := NewFetcher(db, []string{srv.URL})
	f.FetchAll(context.Background())

	alerts, err := store.ListAlerts(db, 10)
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("Expected 1 cached alert, got %d", len(alerts))
	}
	if alerts[0].Title != "Flood warning" {
		t.Errorf("Expected JSON title extracted, got %q", alerts[0].Title)
	}
	if alerts[0].Source != srv.URL {
		t.Errorf("Expected source %s, got %s", srv.URL, alerts[0].Source)
	}
}

func TestRefetchIdenticalContentDoesNotDuplicate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("road closed at bridge 4"))
	}))
	defer srv.Close()

	db := openTestDB(t)
	f := NewFetcher(db, []string{srv.URL})
	f.FetchAll(context.Background())
	f.FetchAll(context.Background())

	alerts, err := store.ListAlerts(db, 10)
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	if len(alerts) != 1 {
		t.Errorf("Identical content must upsert in place, got %d records", len(alerts))
	}
}

func TestFailingFeedIsSkipped(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("shelter open at town hall"))
	}))
	defer good.Close()

	db := openTestDB(t)
	f := NewFetcher(db, []string{bad.URL, good.URL})
	f.FetchAll(context.Background())

	alerts, err := store.ListAlerts(db, 10)
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("Expected the good feed cached despite the bad one, got %d", len(alerts))
	}
	if alerts[0].Body != "shelter open at town hall" {
		t.Errorf("Unexpected cached body: %q", alerts[0].Body)
	}
}
