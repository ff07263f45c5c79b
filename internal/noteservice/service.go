// Package noteservice owns the note workflow: generation, refinement,
// conversion, PDF ingestion, export, and history.
package noteservice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/semaphore"

	"github.com/starford/snapnotes/internal/ai"
	"github.com/starford/snapnotes/internal/apperr"
	"github.com/starford/snapnotes/internal/history"
	"github.com/starford/snapnotes/internal/notes"
	"github.com/starford/snapnotes/internal/pdf"
	"github.com/starford/snapnotes/internal/storage"
)

// MaxInputChars is the longest source text accepted for generation.
const MaxInputChars = 50000

// Event kinds emitted through EventSink.
const (
	EventHistoryCreated = "created"
	EventHistoryDeleted = "deleted"
	EventHistoryCleared = "cleared"
)

// TextExtractor turns document bytes into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, progress pdf.ProgressFunc) (string, error)
}

// EventSink receives workflow notifications. The SSE broker implements it.
type EventSink interface {
	HistoryChanged(kind string, id int64)
	ExtractProgress(page, total int)
}

type nopSink struct{}

func (nopSink) HistoryChanged(string, int64) {}
func (nopSink) ExtractProgress(int, int)     {}

// Result is the outcome of one AI call.
type Result struct {
	Notes    string         `json:"notes"`
	Format   notes.Format   `json:"format"`
	Document notes.Document `json:"document"`
	Parsed   bool           `json:"parsed"`
	Entry    *history.Entry `json:"entry,omitempty"`
}

// GenerateInput is the source text and target format for Generate.
type GenerateInput struct {
	Text   string
	Format notes.Format
}

// RefineInput carries notes to rewrite. Format is the format the caller is
// currently displaying and is recorded on the history entry.
type RefineInput struct {
	Notes  string
	Kind   ai.Refinement
	Format notes.Format
}

// CopilotInput is a free-form instruction with optional context.
type CopilotInput struct {
	Prompt  string
	Context string
}

// Upload is a received file.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportKind selects the export output.
type ExportKind string

const (
	ExportText ExportKind = "txt"
	ExportPDF  ExportKind = "pdf"
)

const textContentType = "text/plain; charset=utf-8"

// ExportResult is a downloadable rendering of notes.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        string
}

// Service coordinates the AI, PDF, and history collaborators.
type Service struct {
	gen       ai.Generator
	prompts   *ai.Prompts
	store     history.Store
	extractor TextExtractor
	exports   storage.Provider
	events    EventSink
	log       *slog.Logger
	sem       *semaphore.Weighted
	maxUpload int64
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithEvents sets the sink that receives history and progress events.
func WithEvents(sink EventSink) Option {
	return func(s *Service) {
		if sink != nil {
			s.events = sink
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMaxUploadBytes sets the PDF upload size limit.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// NewService creates a note service.
func NewService(gen ai.Generator, prompts *ai.Prompts, store history.Store, extractor TextExtractor, opts ...Option) *Service {
	s := &Service{
		gen:       gen,
		prompts:   prompts,
		store:     store,
		extractor: extractor,
		events:    nopSink{},
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		sem:       semaphore.NewWeighted(1),
		maxUpload: pdf.DefaultMaxBytes,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate turns source text into notes in the requested format.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*Result, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, apperr.NewValidation("text", "please enter some text or upload a PDF")
	}
	if utf8.RuneCountInString(in.Text) > MaxInputChars {
		return nil, apperr.NewValidation("text", fmt.Sprintf("text must be at most %d characters", MaxInputChars))
	}
	if !in.Format.Structured() {
		return nil, apperr.NewValidation("format", fmt.Sprintf("cannot generate notes in format %q", in.Format))
	}

	system, user, err := s.prompts.ForFormat(in.Format, in.Text)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, "generate", system, user, in.Format)
}

// Refine rewrites existing notes shorter or more detailed.
func (s *Service) Refine(ctx context.Context, in RefineInput) (*Result, error) {
	if strings.TrimSpace(in.Notes) == "" {
		return nil, apperr.NewValidation("notes", "there are no notes to refine")
	}
	if !in.Format.Structured() {
		return nil, apperr.NewValidation("format", fmt.Sprintf("unknown format %q", in.Format))
	}

	system, user, err := s.prompts.ForRefinement(in.Kind, in.Notes)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, "refine", system, user, in.Format)
}

// Convert regenerates existing notes in another structured format.
func (s *Service) Convert(ctx context.Context, current string, target notes.Format) (*Result, error) {
	if strings.TrimSpace(current) == "" {
		return nil, apperr.NewValidation("notes", "there are no notes to convert")
	}
	if !target.Structured() {
		return nil, apperr.NewValidation("format", fmt.Sprintf("cannot convert to format %q", target))
	}

	system, user, err := s.prompts.ForFormat(target, current)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, "convert", system, user, target)
}

// Copilot sends a free-form instruction, with the source text appended as context.
func (s *Service) Copilot(ctx context.Context, in CopilotInput) (*Result, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return nil, apperr.NewValidation("prompt", "prompt is empty")
	}
	if c := strings.TrimSpace(in.Context); c != "" {
		prompt += "\n\nContext:\n" + c
	}
	return s.run(ctx, "copilot", "", prompt, notes.FormatCopilot)
}

// run performs one AI call under the single-flight guard and records the result.
func (s *Service) run(ctx context.Context, op, system, user string, format notes.Format) (*Result, error) {
	if !s.sem.TryAcquire(1) {
		return nil, apperr.ErrBusy
	}
	defer s.sem.Release(1)

	start := s.now()
	raw, err := s.gen.Generate(ctx, system, user)
	if err != nil {
		s.log.ErrorContext(ctx, "ai call failed", slog.String("op", op), slog.String("error", err.Error()))
		return nil, err
	}
	s.log.InfoContext(ctx, "ai call completed",
		slog.String("op", op),
		slog.String("format", format.String()),
		slog.Duration("elapsed", s.now().Sub(start)))

	doc, err := notes.Parse(raw, format)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Notes:    raw,
		Format:   format,
		Document: doc,
		Parsed:   !notes.Unparsed(raw, doc),
	}

	if s.autoSave(ctx) {
		entry, err := s.store.Append(ctx, raw, format)
		if err != nil {
			s.log.WarnContext(ctx, "history save failed", slog.String("op", op), slog.String("error", err.Error()))
		} else {
			res.Entry = &entry
			s.events.HistoryChanged(EventHistoryCreated, entry.ID)
		}
	}
	return res, nil
}

func (s *Service) autoSave(ctx context.Context) bool {
	p, err := s.store.Preferences(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "read preferences failed, using defaults", slog.String("error", err.Error()))
		return history.DefaultPreferences().AutoSave
	}
	return p.AutoSave
}

// MaxUploadBytes is the largest PDF ExtractPDF accepts.
func (s *Service) MaxUploadBytes() int64 { return s.maxUpload }

// ExtractPDF validates an upload and returns its text.
func (s *Service) ExtractPDF(ctx context.Context, up Upload) (string, error) {
	if err := pdf.Validate(up.Filename, up.ContentType, int64(len(up.Data)), s.maxUpload); err != nil {
		return "", err
	}
	text, err := s.extractor.ExtractText(ctx, up.Data, s.events.ExtractProgress)
	if err != nil {
		s.log.WarnContext(ctx, "pdf extraction failed",
			slog.String("filename", up.Filename),
			slog.String("error", err.Error()))
		return "", err
	}
	s.log.InfoContext(ctx, "pdf extracted",
		slog.String("filename", up.Filename),
		slog.Int("chars", utf8.RuneCountInString(text)))
	return text, nil
}

// Parse returns the structured view of raw in format f.
func (s *Service) Parse(raw string, f notes.Format) (notes.Document, bool, error) {
	doc, err := notes.Parse(raw, f)
	if err != nil {
		return notes.Document{}, false, apperr.NewValidation("format", err.Error())
	}
	return doc, !notes.Unparsed(raw, doc), nil
}

// Export renders raw as a downloadable file. Only plain text is supported;
// document export returns apperr.ErrNotImplemented.
func (s *Service) Export(raw string, f notes.Format, kind ExportKind) (*ExportResult, error) {
	switch kind {
	case ExportText, "":
	case ExportPDF:
		return nil, fmt.Errorf("export %s: %w", kind, apperr.ErrNotImplemented)
	default:
		return nil, apperr.NewValidation("kind", fmt.Sprintf("unknown export kind %q", kind))
	}
	if strings.TrimSpace(raw) == "" {
		return nil, apperr.NewValidation("notes", "there are no notes to export")
	}

	body, err := notes.Export(raw, f)
	if err != nil {
		return nil, apperr.NewValidation("format", err.Error())
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("snapnotes-%d.txt", s.now().UnixMilli()),
		ContentType: textContentType,
		Body:        body,
	}, nil
}

// History lists saved entries, most recent first. A storage failure degrades
// to an empty list.
func (s *Service) History(ctx context.Context) []history.Entry {
	entries, err := s.store.List(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "list history failed", slog.String("error", err.Error()))
		return []history.Entry{}
	}
	return entries
}

// HistoryEntry returns one saved entry.
func (s *Service) HistoryEntry(ctx context.Context, id int64) (history.Entry, error) {
	return s.store.Get(ctx, id)
}

// DeleteHistoryEntry removes one saved entry.
func (s *Service) DeleteHistoryEntry(ctx context.Context, id int64) error {
	if err := s.store.Remove(ctx, id); err != nil {
		return err
	}
	s.events.HistoryChanged(EventHistoryDeleted, id)
	return nil
}

// ClearHistory removes every saved entry.
func (s *Service) ClearHistory(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.events.HistoryChanged(EventHistoryCleared, 0)
	return nil
}

// Preferences returns the saved preferences.
func (s *Service) Preferences(ctx context.Context) (history.Preferences, error) {
	return s.store.Preferences(ctx)
}

// SavePreferences merges u into the saved preferences.
func (s *Service) SavePreferences(ctx context.Context, u history.PreferencesUpdate) (history.Preferences, error) {
	if u.DefaultFormat != nil && !u.DefaultFormat.Structured() {
		return history.Preferences{}, apperr.NewValidation("defaultFormat", fmt.Sprintf("unknown format %q", *u.DefaultFormat))
	}
	return s.store.SavePreferences(ctx, u)
}

// HistoryStats reports storage usage.
func (s *Service) HistoryStats(ctx context.Context) (history.Stats, error) {
	return s.store.Stats(ctx)
}
