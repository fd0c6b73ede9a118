// Package sheets declares the outbound port to the export spreadsheet.
package sheets

import (
	"context"

	"tally/internal/core"
)

// RecordAppender appends one record row to the export journal. The journal
// is append-only; deletions stay local and are never propagated.
type RecordAppender interface {
	Append(ctx context.Context, kind core.Kind, rec core.Record) (rowRef string, err error)
}
