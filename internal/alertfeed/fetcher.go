// Package alertfeed caches third-party alert records from configured HTTP
// feeds. Display-only; the relay core consumes nothing from it.
package alertfeed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Ananthan-A-K/ResQ/internal/store"
	"gorm.io/gorm"
)

const (
	maxBodyBytes  = 64 * 1024
	maxCachedBody = 2000
)

type Fetcher struct {
	db     *gorm.DB
	feeds  []string
	client *http.Client
}

func NewFetcher(db *gorm.DB, feeds []string) *Fetcher {
	return &Fetcher{
		db:    db,
		feeds: feeds,
		client: &http.Client{
			Timeout: 6 * time.Second,
		},
	}
}

// FetchAll polls every configured feed once. Individual feed failures are
// logged and skipped.
func (f *Fetcher) FetchAll(ctx context.Context) {
	for _, url := range f.feeds {
		if err := f.fetchOne(ctx, url); err != nil {
			slog.Warn("Alert feed fetch failed", "url", url, "error", err)
			continue
		}
		slog.Info("Fetched alert feed", "url", url)
	}
}

func (f *Fetcher) fetchOne(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build feed request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed returned status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read feed body: %w", err)
	}

	alert := buildAlert(url, resp.Header.Get("Content-Type"), body)
	if err := store.UpsertAlert(f.db, alert); err != nil {
		return fmt.Errorf("cache alert: %w", err)
	}
	return nil
}

// buildAlert keys the record by feed URL plus a content digest so a
// changed feed body produces a new record while refetches of identical
// content upsert in place.
func buildAlert(url, contentType string, body []byte) store.Alert {
	title := url
	text := strings.TrimSpace(string(body))

	if strings.Contains(contentType, "application/json") {
		var j map[string]any
		if err := json.Unmarshal(body, &j); err == nil {
			if t, ok := j["title"].(string); ok && t != "" {
				title = t
			}
		}
	}
	if len(text) > maxCachedBody {
		text = text[:maxCachedBody]
	}

	digest := sha256.Sum256(body)
	return store.Alert{
		ID:        url + "::" + hex.EncodeToString(digest[:8]),
		Title:     title,
		Body:      text,
		Source:    url,
		FetchedAt: time.Now().UTC(),
	}
}
