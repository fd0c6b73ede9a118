// Package storage is the SQLite persistence layer. It backs the record
// store gateway, the user accounts and the export bookkeeping that the
// spreadsheet worker drains.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"tally/internal/auth"
	"tally/internal/core"
	"tally/internal/store"
)

// Export states tracked per record.
const (
	ExportPending = "pending"
	ExportDone    = "exported"
	ExportError   = "error"
)

const recordColumns = `id, name, quantity, unit_price, note,
	party_name, party_location, party_phone, party_email,
	record_date, created_at, owner_id`

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ store.RecordStore = (*SQLiteRepository)(nil)
	_ auth.UserStorage  = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Create implements store.RecordStore.
func (r *SQLiteRepository) Create(ctx context.Context, col store.Collection, rec core.Record) (string, error) {
	id := uuid.NewString()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO records (id, kind, owner_id, name, quantity, unit_price, note,
			party_name, party_location, party_phone, party_email, record_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(col.Kind), col.OwnerID, rec.Name, rec.Quantity, rec.UnitPrice, rec.Note,
		rec.PartyName, rec.PartyLocation, rec.PartyPhone, rec.PartyEmail, rec.Date, rec.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}

	slog.InfoContext(ctx, "Record saved",
		"id", id,
		"kind", col.Kind,
		"name", rec.Name,
		"date", rec.Date)

	return id, nil
}

// ReadAll returns the collection in insertion order.
func (r *SQLiteRepository) ReadAll(ctx context.Context, col store.Collection) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM records
		WHERE kind = ? AND owner_id = ?
		ORDER BY seq`,
		string(col.Kind), col.OwnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []core.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, col store.Collection, id string) (core.Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM records
		WHERE id = ? AND kind = ? AND owner_id = ?`,
		id, string(col.Kind), col.OwnerID,
	)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, core.ErrRecordNotFound
	}
	if err != nil {
		return core.Record{}, err
	}
	return rec, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, col store.Collection, id string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM records WHERE id = ? AND kind = ? AND owner_id = ?",
		id, string(col.Kind), col.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context, col store.Collection) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM records WHERE kind = ? AND owner_id = ?",
		string(col.Kind), col.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (core.Record, error) {
	var rec core.Record
	err := row.Scan(
		&rec.ID, &rec.Name, &rec.Quantity, &rec.UnitPrice, &rec.Note,
		&rec.PartyName, &rec.PartyLocation, &rec.PartyPhone, &rec.PartyEmail,
		&rec.Date, &rec.CreatedAt, &rec.OwnerID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, err
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("scan record: %w", err)
	}
	return rec, nil
}

// CreateUser implements auth.UserStorage.
func (r *SQLiteRepository) CreateUser(ctx context.Context, user *auth.User) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		user.ID, user.Email, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.getUser(ctx, "email = ?", email)
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (*auth.User, error) {
	return r.getUser(ctx, "id = ?", id)
}

func (r *SQLiteRepository) getUser(ctx context.Context, where string, arg any) (*auth.User, error) {
	user := &auth.User{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE "+where, arg,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// ExportItem is one record queued for spreadsheet export, with the
// collection it belongs to.
type ExportItem struct {
	Kind   core.Kind
	Record core.Record
}

// GetPendingExport returns up to limit records that have not reached the
// spreadsheet yet, oldest first.
func (r *SQLiteRepository) GetPendingExport(ctx context.Context, limit int) ([]ExportItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT kind, `+recordColumns+`
		FROM records
		WHERE export_status = ?
		ORDER BY seq
		LIMIT ?`,
		ExportPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending export: %w", err)
	}
	defer rows.Close()

	var items []ExportItem
	for rows.Next() {
		var item ExportItem
		var kind string
		err := rows.Scan(
			&kind,
			&item.Record.ID, &item.Record.Name, &item.Record.Quantity, &item.Record.UnitPrice, &item.Record.Note,
			&item.Record.PartyName, &item.Record.PartyLocation, &item.Record.PartyPhone, &item.Record.PartyEmail,
			&item.Record.Date, &item.Record.CreatedAt, &item.Record.OwnerID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pending export: %w", err)
		}
		item.Kind = core.Kind(kind)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending export: %w", err)
	}

	return items, nil
}

// MarkExported records a successful spreadsheet append.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE records SET export_status = ?, exported_at = CURRENT_TIMESTAMP WHERE id = ?",
		ExportDone, id,
	)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

// MarkExportError flags a record whose export keeps failing so the periodic
// sweep stops retrying it.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE records SET export_status = ? WHERE id = ?",
		ExportError, id,
	)
	if err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	slog.WarnContext(ctx, "Record flagged with export error", "id", id)
	return nil
}
