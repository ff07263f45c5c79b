// Package notes converts AI-generated text into bullet, Q&A, and flashcard
// views and serializes those views back into exportable plain text.
//
// Parsing is lenient: every delimiter is treated as optional and malformed
// input degrades to fewer records, never to an error.
package notes

import (
	"fmt"
	"strings"
)

// Format is the output shape selected for generated notes.
type Format string

const (
	FormatBullet    Format = "bullet"
	FormatQA        Format = "qa"
	FormatFlashcard Format = "flashcard"
	// FormatCopilot tags free-form assistant output in history. It is
	// displayed with the bullet parser.
	FormatCopilot Format = "copilot"
)

// Formats lists the formats a user can pick before generation.
var Formats = []Format{FormatBullet, FormatQA, FormatFlashcard}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatBullet, FormatQA, FormatFlashcard, FormatCopilot:
		return f, nil
	}
	return "", fmt.Errorf("notes: unknown format %q", s)
}

// Structured reports whether f is one of the user-selectable formats.
func (f Format) Structured() bool {
	switch f {
	case FormatBullet, FormatQA, FormatFlashcard:
		return true
	}
	return false
}

func (f Format) String() string { return string(f) }

// Placeholder is rendered for an absent flashcard side.
const Placeholder = "N/A"

// BulletItem is one display line. Bullet is false for headings and plain paragraphs.
type BulletItem struct {
	Text   string `json:"text"`
	Bullet bool   `json:"bullet"`
}

// QAPair is a question with its answer.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Flashcard has two optional sides; nil means the AI omitted that side.
type Flashcard struct {
	Front *string `json:"front"`
	Back  *string `json:"back"`
}

// FrontText returns the front side or the placeholder.
func (c Flashcard) FrontText() string {
	if c.Front == nil {
		return Placeholder
	}
	return *c.Front
}

// BackText returns the back side or the placeholder.
func (c Flashcard) BackText() string {
	if c.Back == nil {
		return Placeholder
	}
	return *c.Back
}

// Document is the structured view of one block of raw note text.
// Only the slice matching Format is populated.
type Document struct {
	Format  Format       `json:"format"`
	Bullets []BulletItem `json:"bullets,omitempty"`
	Pairs   []QAPair     `json:"pairs,omitempty"`
	Cards   []Flashcard  `json:"cards,omitempty"`
}

// Len returns the number of records in the document.
func (d Document) Len() int {
	switch d.Format {
	case FormatQA:
		return len(d.Pairs)
	case FormatFlashcard:
		return len(d.Cards)
	default:
		return len(d.Bullets)
	}
}

// Parse builds the structured view of raw for the given format.
func Parse(raw string, f Format) (Document, error) {
	switch f {
	case FormatBullet, FormatCopilot:
		return Document{Format: f, Bullets: ParseBullets(raw)}, nil
	case FormatQA:
		return Document{Format: f, Pairs: ParseQA(raw)}, nil
	case FormatFlashcard:
		return Document{Format: f, Cards: ParseFlashcards(raw)}, nil
	}
	return Document{}, fmt.Errorf("notes: unknown format %q", f)
}

// Unparsed reports whether raw had content but produced no records, which
// usually means the AI ignored the delimiters it was asked to use.
func Unparsed(raw string, d Document) bool {
	return strings.TrimSpace(raw) != "" && d.Len() == 0
}

// Export parses raw and serializes it back in canonical form.
func Export(raw string, f Format) (string, error) {
	d, err := Parse(raw, f)
	if err != nil {
		return "", err
	}
	return d.Serialize(), nil
}
