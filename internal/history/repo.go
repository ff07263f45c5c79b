package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/snapnotes/internal/apperr"
	"github.com/starford/snapnotes/internal/notes"
)

const (
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
	preferencesKey  = "preferences"
)

func storageErr(op string, err error) error {
	return &apperr.StorageError{Op: op, Err: err}
}

// Append saves a new entry and evicts everything beyond the capacity.
// IDs are creation milliseconds, bumped past the newest ID on collision so
// insertion order is strict.
func (db *DB) Append(ctx context.Context, content string, format notes.Format) (Entry, error) {
	now := db.now().UTC()
	e := Entry{
		ID:        now.UnixMilli(),
		Content:   content,
		Format:    format,
		Timestamp: now.Format(timestampLayout),
		Preview:   Preview(content),
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, storageErr("append", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(id) FROM history`).Scan(&last); err != nil {
		return Entry{}, storageErr("append", err)
	}
	if last.Valid && e.ID <= last.Int64 {
		e.ID = last.Int64 + 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO history (id, content, format, created_at, preview)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID, e.Content, string(e.Format), e.Timestamp, e.Preview)
	if err != nil {
		return Entry{}, storageErr("append", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM history
		WHERE id NOT IN (SELECT id FROM history ORDER BY id DESC LIMIT ?)
	`, db.capacity)
	if err != nil {
		return Entry{}, storageErr("evict", err)
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, storageErr("append", err)
	}
	return e, nil
}

// List returns all entries, most recent first.
func (db *DB) List(ctx context.Context) ([]Entry, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, content, format, created_at, preview
		FROM history ORDER BY id DESC
	`)
	if err != nil {
		return nil, storageErr("list", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Content, &e.Format, &e.Timestamp, &e.Preview); err != nil {
			return nil, storageErr("list", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list", err)
	}
	return entries, nil
}

// Get returns one entry or apperr.ErrNotFound.
func (db *DB) Get(ctx context.Context, id int64) (Entry, error) {
	var e Entry
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, content, format, created_at, preview
		FROM history WHERE id = ?
	`, id).Scan(&e.ID, &e.Content, &e.Format, &e.Timestamp, &e.Preview)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("history: entry %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return Entry{}, storageErr("get", err)
	}
	return e, nil
}

// Remove deletes one entry. Removing an unknown id returns apperr.ErrNotFound.
func (db *DB) Remove(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM history WHERE id = ?`, id)
	if err != nil {
		return storageErr("remove", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("remove", err)
	}
	if n == 0 {
		return fmt.Errorf("history: entry %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// Clear deletes every entry. Preferences are kept.
func (db *DB) Clear(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return storageErr("clear", err)
	}
	return nil
}

// Preferences returns the saved preferences, or the defaults when none exist.
// A stored document that cannot be decoded is reported as a StorageError.
func (db *DB) Preferences(ctx context.Context) (Preferences, error) {
	var raw string
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, preferencesKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultPreferences(), nil
	}
	if err != nil {
		return Preferences{}, storageErr("preferences", err)
	}

	p := DefaultPreferences()
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Preferences{}, storageErr("preferences", fmt.Errorf("decode: %w", err))
	}
	return p, nil
}

// SavePreferences merges u onto the current preferences and stores the result.
func (db *DB) SavePreferences(ctx context.Context, u PreferencesUpdate) (Preferences, error) {
	current, err := db.Preferences(ctx)
	if err != nil {
		// A corrupted document is replaced rather than blocking every save.
		var se *apperr.StorageError
		if !errors.As(err, &se) || !isDecodeErr(se) {
			return Preferences{}, err
		}
		current = DefaultPreferences()
	}

	updated := u.Apply(current)
	data, err := json.Marshal(updated)
	if err != nil {
		return Preferences{}, storageErr("save preferences", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, preferencesKey, string(data))
	if err != nil {
		return Preferences{}, storageErr("save preferences", err)
	}
	return updated, nil
}

func isDecodeErr(se *apperr.StorageError) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(se.Err, &syntaxErr) || errors.As(se.Err, &typeErr)
}

// Stats reports the number of entries and the bytes held by entries and preferences.
func (db *DB) Stats(ctx context.Context) (Stats, error) {
	s := Stats{Capacity: db.capacity}
	err := db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM history),
			(SELECT COALESCE(SUM(LENGTH(CAST(content AS BLOB)) + LENGTH(CAST(preview AS BLOB))), 0) FROM history) +
			(SELECT COALESCE(SUM(LENGTH(CAST(value AS BLOB))), 0) FROM kv)
	`).Scan(&s.Entries, &s.UsedBytes)
	if err != nil {
		return Stats{}, storageErr("stats", err)
	}
	return s, nil
}
