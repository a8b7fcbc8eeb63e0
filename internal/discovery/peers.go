package discovery

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Peer is a liveness observation. Announcements are ephemeral: peers are
// tracked in memory only and never written to the durable store.
type Peer struct {
	ID       string
	Label    string
	Addr     string
	LastSeen time.Time
	Active   bool
}

// Tracker keeps the peers heard on the broadcast domain. A peer is active
// while its last announce is younger than activeAfter; the reaper evicts
// entries silent for evictAfter.
type Tracker struct {
	mu          sync.Mutex
	peers       map[string]Peer
	activeAfter time.Duration
	evictAfter  time.Duration
}

func NewTracker(activeAfter time.Duration) *Tracker {
	return &Tracker{
		peers:       make(map[string]Peer),
		activeAfter: activeAfter,
		evictAfter:  10 * activeAfter,
	}
}

// Observe records an announce from a peer.
func (t *Tracker) Observe(id, label, addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers[id] = Peer{
		ID:       id,
		Label:    label,
		Addr:     addr,
		LastSeen: time.Now(),
	}
}

// List returns all known peers, active first, then by label.
func (t *Tracker) List() []Peer {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-t.activeAfter)
	out := make([]Peer, 0, len(t.peers))
	for _, p := range t.peers {
		p.Active = p.LastSeen.After(cutoff)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Active != out[j].Active {
			return out[i].Active
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// ActiveCount reports how many peers announced recently.
func (t *Tracker) ActiveCount() int {
	n := 0
	for _, p := range t.List() {
		if p.Active {
			n++
		}
	}
	return n
}

// StartReaper evicts long-silent peers until ctx is cancelled.
func (t *Tracker) StartReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.reap()
		}
	}
}

func (t *Tracker) reap() {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-t.evictAfter)
	for id, p := range t.peers {
		if p.LastSeen.Before(cutoff) {
			delete(t.peers, id)
		}
	}
}
