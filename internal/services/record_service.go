// Package services orchestrates record operations across the remote record
// store, the same-day mirror, the party directory, the in-process list
// cache and the event queue.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/amqp"
	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/mirror"
	"tally/internal/party"
	"tally/internal/store"
)

// saveConcurrency bounds the parallel Create calls of one batch save.
const saveConcurrency = 4

// EventPublisher pushes record events onto the export queue. The AMQP client
// implements it; a nil publisher disables events.
type EventPublisher interface {
	PublishRecordEvent(ctx context.Context, evt *amqp.RecordEvent) error
}

type (
	// SaveResult reports a batch save. When some creates failed, Saved holds
	// the records that made it and the returned error is a StoreWriteError
	// listing the failed item indexes.
	SaveResult struct {
		Saved []core.Record
	}

	// ListResult is a filtered record listing with its derived total.
	// Degraded is set when the store was unreachable and the list was served
	// from the same-day mirror instead.
	ListResult struct {
		Records  []core.Record
		Total    float64
		Degraded bool
	}
)

// RecordService is the application service behind the record endpoints.
type RecordService struct {
	store   store.RecordStore
	mirror  *mirror.Mirror
	parties *party.Directory
	lists   *cache.LRUCache[[]core.Record]
	events  EventPublisher
	now     func() time.Time
}

func NewRecordService(
	recordStore store.RecordStore,
	dayMirror *mirror.Mirror,
	parties *party.Directory,
	lists *cache.LRUCache[[]core.Record],
	events EventPublisher,
	now func() time.Time,
) *RecordService {
	if now == nil {
		now = time.Now
	}
	return &RecordService{
		store:   recordStore,
		mirror:  dayMirror,
		parties: parties,
		lists:   lists,
		events:  events,
		now:     now,
	}
}

func listKey(col store.Collection) string {
	return col.Path()
}

// SaveBatch validates and persists a batch of line items sharing one date.
// Validation is atomic: any missing field anywhere in the batch rejects the
// whole batch with a ValidationError. Persistence is not: creates fan out
// concurrently and a partial failure returns the records that made it plus
// a StoreWriteError naming the failed item indexes.
func (s *RecordService) SaveBatch(ctx context.Context, ownerID string, kind core.Kind, items []core.LineInput, date string) (SaveResult, error) {
	records, err := core.NormalizeBatch(items, date, s.now(), ownerID)
	if err != nil {
		return SaveResult{}, err
	}

	for i := range records {
		if err := s.resolveParty(ownerID, kind, &records[i]); err != nil {
			slog.WarnContext(ctx, "Party resolution failed, saving name only",
				"party", records[i].PartyName, "error", err)
		}
	}

	col := store.Collection{Kind: kind, OwnerID: ownerID}

	var (
		mu     sync.Mutex
		failed []int
		first  error
	)
	ids := make([]string, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(saveConcurrency)
	for i := range records {
		g.Go(func() error {
			id, err := s.store.Create(gctx, col, records[i])
			if err != nil {
				mu.Lock()
				failed = append(failed, i)
				if first == nil {
					first = err
				}
				mu.Unlock()
				return nil // keep saving the rest of the batch
			}
			ids[i] = id
			return nil
		})
	}
	_ = g.Wait()

	saved := make([]core.Record, 0, len(records))
	for i, rec := range records {
		if ids[i] == "" {
			continue
		}
		rec.ID = ids[i]
		saved = append(saved, rec)
		s.publish(ctx, amqp.NewRecordEvent(rec.ID, ownerID, kind, amqp.ActionCreated))
	}

	if len(saved) > 0 {
		s.invalidateCaches(ownerID, kind)
	}

	if len(failed) > 0 {
		return SaveResult{Saved: saved}, &core.StoreWriteError{Err: first, FailedItems: failed}
	}
	return SaveResult{Saved: saved}, nil
}

// resolveParty fills the record's party snapshot from the directory. An
// unknown name is added to the directory so the next save can autocomplete
// it; the record keeps just the name either way.
func (s *RecordService) resolveParty(ownerID string, kind core.Kind, rec *core.Record) error {
	p, found, err := s.parties.Find(ownerID, kind, rec.PartyName)
	if err != nil {
		return err
	}
	if found {
		rec.AttachParty(p)
		return nil
	}

	err = s.parties.Add(ownerID, kind, core.Party{Name: rec.PartyName})
	if errors.Is(err, core.ErrDuplicateParty) {
		return nil
	}
	return err
}

// List returns the owner's records restricted by the filter, newest data
// first consulting the same-day mirror, then the in-process list cache,
// then the store. A store failure on the today view degrades to the mirror
// snapshot instead of failing the request.
func (s *RecordService) List(ctx context.Context, ownerID string, kind core.Kind, filter core.Filter) (ListResult, error) {
	if filter.IsToday() {
		if records, ok := s.mirror.Get(ownerID, kind); ok {
			return ListResult{Records: records, Total: core.AggregateTotal(records)}, nil
		}
	}

	all, err := s.readAll(ctx, ownerID, kind)
	if err != nil {
		if filter.Window == core.WindowToday {
			if records, ok := s.mirror.Get(ownerID, kind); ok {
				slog.WarnContext(ctx, "Record store unreachable, serving day mirror",
					"kind", kind, "error", err)
				filtered := filter.Apply(records, s.now())
				return ListResult{
					Records:  filtered,
					Total:    core.AggregateTotal(filtered),
					Degraded: true,
				}, nil
			}
		}
		return ListResult{}, &core.StoreReadError{Err: err}
	}

	filtered := filter.Apply(all, s.now())
	if filter.IsToday() {
		s.mirror.Put(ownerID, kind, filtered)
	}

	return ListResult{Records: filtered, Total: core.AggregateTotal(filtered)}, nil
}

// readAll fetches the full collection, serving repeat calls from the LRU
// cache so window changes do not refetch.
func (s *RecordService) readAll(ctx context.Context, ownerID string, kind core.Kind) ([]core.Record, error) {
	col := store.Collection{Kind: kind, OwnerID: ownerID}

	if s.lists != nil {
		if cached, ok := s.lists.Get(listKey(col)); ok {
			return cached, nil
		}
	}

	all, err := s.store.ReadAll(ctx, col)
	if err != nil {
		return nil, err
	}
	if s.lists != nil {
		s.lists.Set(listKey(col), all)
	}
	return all, nil
}

// Get returns a single record.
func (s *RecordService) Get(ctx context.Context, ownerID string, kind core.Kind, id string) (core.Record, error) {
	rec, err := s.store.Get(ctx, store.Collection{Kind: kind, OwnerID: ownerID}, id)
	if err != nil {
		if errors.Is(err, core.ErrRecordNotFound) {
			return core.Record{}, err
		}
		return core.Record{}, &core.StoreReadError{Err: err}
	}
	return rec, nil
}

// Delete removes one record. The mirror snapshot is updated only after the
// store acknowledges, so a failed delete never hides a live record.
func (s *RecordService) Delete(ctx context.Context, ownerID string, kind core.Kind, id string) error {
	col := store.Collection{Kind: kind, OwnerID: ownerID}
	if err := s.store.Delete(ctx, col, id); err != nil {
		if errors.Is(err, core.ErrRecordNotFound) {
			return err
		}
		return &core.StoreWriteError{Err: err}
	}

	s.mirror.Remove(ownerID, kind, id)
	if s.lists != nil {
		s.lists.Delete(listKey(col))
	}
	s.publish(ctx, amqp.NewRecordEvent(id, ownerID, kind, amqp.ActionDeleted))
	return nil
}

// ClearAll wipes the owner's whole collection.
func (s *RecordService) ClearAll(ctx context.Context, ownerID string, kind core.Kind) error {
	col := store.Collection{Kind: kind, OwnerID: ownerID}
	if err := s.store.DeleteAll(ctx, col); err != nil {
		return &core.StoreWriteError{Err: err}
	}
	s.invalidateCaches(ownerID, kind)
	return nil
}

func (s *RecordService) invalidateCaches(ownerID string, kind core.Kind) {
	s.mirror.Invalidate(ownerID, kind)
	if s.lists != nil {
		s.lists.Delete(listKey(store.Collection{Kind: kind, OwnerID: ownerID}))
	}
}

func (s *RecordService) publish(ctx context.Context, evt *amqp.RecordEvent) {
	if s.events == nil {
		return
	}
	// Events drive the spreadsheet export; a publish failure must not fail
	// the request that already persisted.
	if err := s.events.PublishRecordEvent(ctx, evt); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record event",
			"recordId", evt.RecordID, "action", evt.Action, "error", err)
	}
}

// ListParties returns the owner's directory for the kind.
func (s *RecordService) ListParties(ownerID string, kind core.Kind) ([]core.Party, error) {
	return s.parties.List(ownerID, kind)
}

// AddParty inserts a directory entry. Adding a name that already exists is
// silently ignored.
func (s *RecordService) AddParty(ownerID string, kind core.Kind, p core.Party) error {
	err := s.parties.Add(ownerID, kind, p)
	if errors.Is(err, core.ErrDuplicateParty) {
		return nil
	}
	return err
}

// RemoveParty deletes a directory entry by name. Records keep their party
// snapshot regardless.
func (s *RecordService) RemoveParty(ownerID string, kind core.Kind, name string) error {
	return s.parties.Remove(ownerID, kind, name)
}

// SeedParties installs default directory entries for a fresh owner.
func (s *RecordService) SeedParties(ownerID string, seed map[core.Kind][]core.Party) error {
	for kind, parties := range seed {
		if err := s.parties.EnsureSeed(ownerID, kind, parties); err != nil {
			return fmt.Errorf("seed %s parties: %w", kind, err)
		}
	}
	return nil
}
