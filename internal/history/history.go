// Package history persists generated notes and user preferences in SQLite.
//
// The history is capacity-bounded: appending beyond the capacity evicts the
// oldest entries in the same transaction. Entries are immutable once written.
package history

import (
	"context"
	"unicode/utf8"

	"github.com/starford/snapnotes/internal/notes"
)

// DefaultCapacity is the number of entries kept when none is configured.
const DefaultCapacity = 10

const previewRunes = 100

// Entry is one saved generation result.
type Entry struct {
	ID        int64        `json:"id"`
	Content   string       `json:"content"`
	Format    notes.Format `json:"format"`
	Timestamp string       `json:"timestamp"`
	Preview   string       `json:"preview"`
}

// Preferences are the persisted user settings.
type Preferences struct {
	DefaultFormat notes.Format `json:"defaultFormat"`
	AutoSave      bool         `json:"autoSave"`
}

// DefaultPreferences is returned when nothing has been saved yet.
func DefaultPreferences() Preferences {
	return Preferences{DefaultFormat: notes.FormatBullet, AutoSave: true}
}

// PreferencesUpdate carries a partial update; nil fields keep their current value.
type PreferencesUpdate struct {
	DefaultFormat *notes.Format `json:"defaultFormat,omitempty"`
	AutoSave      *bool         `json:"autoSave,omitempty"`
}

// Apply merges u onto p.
func (u PreferencesUpdate) Apply(p Preferences) Preferences {
	if u.DefaultFormat != nil {
		p.DefaultFormat = *u.DefaultFormat
	}
	if u.AutoSave != nil {
		p.AutoSave = *u.AutoSave
	}
	return p
}

// Stats summarises storage usage.
type Stats struct {
	Entries   int   `json:"entries"`
	Capacity  int   `json:"capacity"`
	UsedBytes int64 `json:"usedBytes"`
}

// Store defines the history operations. Consumers depend on this interface
// rather than *DB so that tests can substitute a fake.
type Store interface {
	Append(ctx context.Context, content string, format notes.Format) (Entry, error)
	List(ctx context.Context) ([]Entry, error)
	Get(ctx context.Context, id int64) (Entry, error)
	Remove(ctx context.Context, id int64) error
	Clear(ctx context.Context) error
	Preferences(ctx context.Context) (Preferences, error)
	SavePreferences(ctx context.Context, u PreferencesUpdate) (Preferences, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// Preview returns the first 100 characters of content, with "..." appended
// when it was truncated.
func Preview(content string) string {
	if utf8.RuneCountInString(content) <= previewRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewRunes]) + "..."
}
