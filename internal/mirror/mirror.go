// Package mirror implements the same-day opportunistic cache of the remote
// "today" query result. The cache is consulted only for the Today window
// with no search text; anything else always goes to the store. A snapshot
// from a previous calendar day is treated as absent, never served.
package mirror

import (
	"fmt"
	"log/slog"
	"time"

	"tally/internal/core"
)

type (
	// Snapshot is the persisted cache value: the calendar date it was taken
	// on plus the record list as returned by the store.
	Snapshot struct {
		Date    string        `json:"date"`
		Records []core.Record `json:"records"`
	}

	// Store persists one snapshot per key.
	Store interface {
		Load(key string) (Snapshot, bool, error)
		Save(key string, snap Snapshot) error
		Delete(key string) error
	}

	// Mirror is the day cache over a storage backend. The clock is injected
	// so validity checks are testable across day boundaries.
	Mirror struct {
		store Store
		now   func() time.Time
	}
)

func New(store Store, now func() time.Time) *Mirror {
	if now == nil {
		now = time.Now
	}
	return &Mirror{store: store, now: now}
}

func key(ownerID string, kind core.Kind) string {
	return fmt.Sprintf("todays_%s/%s", kind, ownerID)
}

func (m *Mirror) today() string {
	return m.now().Format(core.DateLayout)
}

// Get returns today's cached records. A missing snapshot, a snapshot from
// another day, or a storage failure all read as a miss.
func (m *Mirror) Get(ownerID string, kind core.Kind) ([]core.Record, bool) {
	snap, ok, err := m.store.Load(key(ownerID, kind))
	if err != nil {
		slog.Warn("Day mirror read failed, treating as miss", "kind", kind, "error", err)
		return nil, false
	}
	if !ok || snap.Date != m.today() {
		return nil, false
	}
	return snap.Records, true
}

// Put overwrites the snapshot with a fresh today result.
func (m *Mirror) Put(ownerID string, kind core.Kind, records []core.Record) {
	snap := Snapshot{Date: m.today(), Records: records}
	if err := m.store.Save(key(ownerID, kind), snap); err != nil {
		// The mirror is an optimization; a failed write only costs a refetch.
		slog.Warn("Day mirror write failed", "kind", kind, "error", err)
	}
}

// Remove drops one record from today's snapshot after the store has
// acknowledged its deletion, so the next today read needs no round trip.
// A stale or absent snapshot is left untouched.
func (m *Mirror) Remove(ownerID string, kind core.Kind, recordID string) {
	k := key(ownerID, kind)
	snap, ok, err := m.store.Load(k)
	if err != nil || !ok || snap.Date != m.today() {
		return
	}

	kept := snap.Records[:0]
	for _, r := range snap.Records {
		if r.ID != recordID {
			kept = append(kept, r)
		}
	}
	snap.Records = kept
	if err := m.store.Save(k, snap); err != nil {
		slog.Warn("Day mirror update failed", "kind", kind, "error", err)
	}
}

// Invalidate discards the snapshot entirely; the next today read refetches.
func (m *Mirror) Invalidate(ownerID string, kind core.Kind) {
	if err := m.store.Delete(key(ownerID, kind)); err != nil {
		slog.Warn("Day mirror invalidate failed", "kind", kind, "error", err)
	}
}
