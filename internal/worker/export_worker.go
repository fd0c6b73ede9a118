// Package worker drains record events into the export spreadsheet. The
// queue is the primary path; a periodic sweep over pending rows recovers
// anything lost while the worker was down.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/sheets"
	"tally/internal/storage"
	"tally/internal/store"
)

// ExportStorage is the slice of the repository the worker needs.
type ExportStorage interface {
	Get(ctx context.Context, col store.Collection, id string) (core.Record, error)
	GetPendingExport(ctx context.Context, limit int) ([]storage.ExportItem, error)
	MarkExported(ctx context.Context, id string) error
	MarkExportError(ctx context.Context, id string) error
}

type ExportWorker struct {
	storage   ExportStorage
	appender  sheets.RecordAppender
	batchSize int
}

func NewExportWorker(st ExportStorage, appender sheets.RecordAppender, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   st,
		appender:  appender,
		batchSize: batchSize,
	}
}

// HandleEvent processes one record event from the queue. Deletions are not
// propagated: the spreadsheet is an append-only journal.
func (w *ExportWorker) HandleEvent(ctx context.Context, evt *amqp.RecordEvent) error {
	if evt.Action == amqp.ActionDeleted {
		slog.InfoContext(ctx, "Skipping delete event, export journal is append-only",
			"recordId", evt.RecordID)
		return nil
	}

	col := store.Collection{Kind: evt.Kind, OwnerID: evt.OwnerID}
	rec, err := w.storage.Get(ctx, col, evt.RecordID)
	if errors.Is(err, core.ErrRecordNotFound) {
		// The record was deleted before its create event got here. Returning
		// an error would requeue the event forever; there is nothing to export.
		slog.WarnContext(ctx, "Record gone before export, dropping event",
			"recordId", evt.RecordID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load record %s: %w", evt.RecordID, err)
	}

	return w.export(ctx, evt.Kind, rec)
}

// ProcessPending exports records the queue missed, up to one batch.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	items, err := w.storage.GetPendingExport(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending export: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(items))

	for _, item := range items {
		if err := w.export(ctx, item.Kind, item.Record); err != nil {
			slog.ErrorContext(ctx, "Failed to export record",
				"id", item.Record.ID, "error", err)
		}
	}
	return nil
}

// StartupCheck drains a larger backlog once at worker start, to recover
// from downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	items, err := w.storage.GetPendingExport(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending export for startup check: %w", err)
	}
	if len(items) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup", "count", len(items))

	exported, failed := 0, 0
	for _, item := range items {
		if err := w.export(ctx, item.Kind, item.Record); err != nil {
			slog.ErrorContext(ctx, "Failed to export record during startup",
				"id", item.Record.ID, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(items),
		"exported", exported,
		"errors", failed)

	return nil
}

func (w *ExportWorker) export(ctx context.Context, kind core.Kind, rec core.Record) error {
	ref, err := w.appender.Append(ctx, kind, rec)
	if err != nil {
		if markErr := w.storage.MarkExportError(ctx, rec.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "id", rec.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.storage.MarkExported(ctx, rec.ID); err != nil {
		// The append went through; only the bookkeeping failed.
		slog.ErrorContext(ctx, "Failed to mark as exported", "id", rec.ID, "error", err)
	}

	slog.InfoContext(ctx, "Record exported",
		"id", rec.ID,
		"kind", kind,
		"sheets_ref", ref)

	return nil
}
