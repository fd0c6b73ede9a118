package worker

import (
	"context"
	"errors"
	"testing"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/storage"
	"tally/internal/store"
)

type fakeExportStorage struct {
	records  map[string]storage.ExportItem
	exported []string
	failed   []string
}

func newFakeExportStorage() *fakeExportStorage {
	return &fakeExportStorage{records: make(map[string]storage.ExportItem)}
}

func (f *fakeExportStorage) add(kind core.Kind, rec core.Record) {
	f.records[rec.ID] = storage.ExportItem{Kind: kind, Record: rec}
}

func (f *fakeExportStorage) Get(_ context.Context, col store.Collection, id string) (core.Record, error) {
	item, ok := f.records[id]
	if !ok || item.Kind != col.Kind || item.Record.OwnerID != col.OwnerID {
		return core.Record{}, core.ErrRecordNotFound
	}
	return item.Record, nil
}

func (f *fakeExportStorage) GetPendingExport(_ context.Context, limit int) ([]storage.ExportItem, error) {
	var out []storage.ExportItem
	for id, item := range f.records {
		if contains(f.exported, id) || contains(f.failed, id) {
			continue
		}
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeExportStorage) MarkExported(_ context.Context, id string) error {
	f.exported = append(f.exported, id)
	return nil
}

func (f *fakeExportStorage) MarkExportError(_ context.Context, id string) error {
	f.failed = append(f.failed, id)
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type fakeAppender struct {
	rows []string
	err  error
}

func (f *fakeAppender) Append(_ context.Context, _ core.Kind, rec core.Record) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.rows = append(f.rows, rec.ID)
	return "Expenses!A2:H2", nil
}

func TestHandleEvent_AppendsAndMarksExported(t *testing.T) {
	st := newFakeExportStorage()
	st.add(core.KindExpense, core.Record{ID: "r1", OwnerID: "u1", Name: "Paper"})
	appender := &fakeAppender{}
	w := NewExportWorker(st, appender, 10)

	evt := amqp.NewRecordEvent("r1", "u1", core.KindExpense, amqp.ActionCreated)
	if err := w.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if len(appender.rows) != 1 || appender.rows[0] != "r1" {
		t.Errorf("appended rows = %v", appender.rows)
	}
	if !contains(st.exported, "r1") {
		t.Error("record not marked exported")
	}
}

func TestHandleEvent_DeleteIsANoOp(t *testing.T) {
	st := newFakeExportStorage()
	appender := &fakeAppender{}
	w := NewExportWorker(st, appender, 10)

	evt := amqp.NewRecordEvent("gone", "u1", core.KindExpense, amqp.ActionDeleted)
	if err := w.HandleEvent(context.Background(), evt); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(appender.rows) != 0 {
		t.Errorf("delete event must not touch the sheet, rows = %v", appender.rows)
	}
}

func TestHandleEvent_RecordDeletedBeforeExportIsDropped(t *testing.T) {
	st := newFakeExportStorage()
	appender := &fakeAppender{}
	w := NewExportWorker(st, appender, 10)

	// A record created and deleted before its create event arrives must not
	// poison the queue: the handler succeeds so the event gets acked, even
	// after redelivery.
	evt := amqp.NewRecordEvent("missing", "u1", core.KindExpense, amqp.ActionCreated)
	for i := 0; i < 3; i++ {
		if err := w.HandleEvent(context.Background(), evt); err != nil {
			t.Fatalf("HandleEvent attempt %d = %v, want nil", i+1, err)
		}
	}
	if len(appender.rows) != 0 {
		t.Errorf("missing record must not reach the sheet, rows = %v", appender.rows)
	}
	if len(st.exported) != 0 || len(st.failed) != 0 {
		t.Errorf("missing record must not touch export bookkeeping: exported=%v failed=%v",
			st.exported, st.failed)
	}
}

func TestHandleEvent_AppendFailureFlagsRecord(t *testing.T) {
	st := newFakeExportStorage()
	st.add(core.KindSale, core.Record{ID: "r1", OwnerID: "u1"})
	w := NewExportWorker(st, &fakeAppender{err: errors.New("quota")}, 10)

	evt := amqp.NewRecordEvent("r1", "u1", core.KindSale, amqp.ActionCreated)
	if err := w.HandleEvent(context.Background(), evt); err == nil {
		t.Fatal("expected append failure to propagate")
	}
	if !contains(st.failed, "r1") {
		t.Error("record not flagged with export error")
	}
}

func TestProcessPending_DrainsBacklog(t *testing.T) {
	st := newFakeExportStorage()
	st.add(core.KindExpense, core.Record{ID: "a", OwnerID: "u1"})
	st.add(core.KindExpense, core.Record{ID: "b", OwnerID: "u1"})
	appender := &fakeAppender{}
	w := NewExportWorker(st, appender, 10)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if len(appender.rows) != 2 {
		t.Errorf("appended rows = %v, want both records", appender.rows)
	}

	// Nothing left on the second sweep.
	appender.rows = nil
	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("second ProcessPending: %v", err)
	}
	if len(appender.rows) != 0 {
		t.Errorf("second sweep appended %v", appender.rows)
	}
}
