package api

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/snapnotes/internal/ai"
	"github.com/starford/snapnotes/internal/history"
	"github.com/starford/snapnotes/internal/notes"
	"github.com/starford/snapnotes/internal/noteservice"
)

var (
	structuredFormats = []any{string(notes.FormatBullet), string(notes.FormatQA), string(notes.FormatFlashcard)}
	parseableFormats  = append(append([]any{}, structuredFormats...), string(notes.FormatCopilot))
	refinementKinds   = []any{string(ai.RefineShorter), string(ai.RefineDetailed)}
	exportKinds       = []any{string(noteservice.ExportText), string(noteservice.ExportPDF)}
)

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// GenerateRequest is the request body for POST /generate.
type GenerateRequest struct {
	Text   string `json:"text" example:"Photosynthesis converts light into chemical energy." validate:"required"`
	Format string `json:"format" example:"bullet" validate:"required"`
}

func (r *GenerateRequest) Validate() error {
	r.Format = normalize(r.Format)
	return validation.ValidateStruct(r,
		validation.Field(&r.Format, validation.Required, validation.In(structuredFormats...)),
	)
}

// RefineRequest is the request body for POST /refine.
type RefineRequest struct {
	Notes  string `json:"notes" validate:"required"`
	Kind   string `json:"kind" example:"shorter" validate:"required"`
	Format string `json:"format" example:"bullet" validate:"required"`
}

func (r *RefineRequest) Validate() error {
	r.Kind = normalize(r.Kind)
	r.Format = normalize(r.Format)
	return validation.ValidateStruct(r,
		validation.Field(&r.Kind, validation.Required, validation.In(refinementKinds...)),
		validation.Field(&r.Format, validation.Required, validation.In(structuredFormats...)),
	)
}

// ConvertRequest is the request body for POST /convert.
type ConvertRequest struct {
	Notes  string `json:"notes" validate:"required"`
	Target string `json:"target" example:"flashcard" validate:"required"`
}

func (r *ConvertRequest) Validate() error {
	r.Target = normalize(r.Target)
	return validation.ValidateStruct(r,
		validation.Field(&r.Target, validation.Required, validation.In(structuredFormats...)),
	)
}

// CopilotRequest is the request body for POST /copilot.
type CopilotRequest struct {
	Prompt  string `json:"prompt" example:"Explain this like I'm five" validate:"required"`
	Context string `json:"context,omitempty"`
}

func (r *CopilotRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Prompt, validation.Required),
		validation.Field(&r.Context, validation.RuneLength(0, noteservice.MaxInputChars)),
	)
}

// NotesRequest is the request body for POST /parse and POST /export.
type NotesRequest struct {
	Notes  string `json:"notes" validate:"required"`
	Format string `json:"format" example:"qa" validate:"required"`
	Kind   string `json:"kind,omitempty" example:"txt"`
}

func (r *NotesRequest) Validate() error {
	r.Format = normalize(r.Format)
	r.Kind = normalize(r.Kind)
	return validation.ValidateStruct(r,
		validation.Field(&r.Format, validation.Required, validation.In(parseableFormats...)),
		validation.Field(&r.Kind, validation.In(exportKinds...)),
	)
}

// ParseResponse is the structured view of posted notes.
type ParseResponse struct {
	Document notes.Document `json:"document" validate:"required"`
	Parsed   bool           `json:"parsed"`
}

// ExtractResponse is returned after a PDF upload is converted to text.
type ExtractResponse struct {
	Filename string `json:"filename" example:"lecture.pdf" validate:"required"`
	Text     string `json:"text" validate:"required"`
	Chars    int    `json:"chars" example:"1234"`
}

// HistoryResponse wraps the history listing.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries" validate:"required"`
}

// HistoryEntry is a saved generation (aliased from the domain layer).
type HistoryEntry = history.Entry

// Result is the generation response type (aliased from the domain layer).
type Result = noteservice.Result
