package noteservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/starford/snapnotes/internal/apperr"
	"github.com/starford/snapnotes/internal/notes"
	"github.com/starford/snapnotes/internal/storage"
)

// WithExports sets the directory that SaveExport writes into.
func WithExports(p storage.Provider) Option {
	return func(s *Service) {
		s.exports = p
	}
}

// SavedExport is a history entry written to the export directory.
type SavedExport struct {
	EntryID int64  `json:"entryId,omitempty"`
	Path    string `json:"path"`
	Bytes   int    `json:"bytes"`
}

// SaveExport renders a saved entry and writes it to the export directory.
// An empty name uses the generated download file name.
func (s *Service) SaveExport(ctx context.Context, id int64, kind ExportKind, name string) (SavedExport, error) {
	entry, err := s.store.Get(ctx, id)
	if err != nil {
		return SavedExport{}, err
	}
	saved, err := s.SaveNotes(ctx, entry.Content, entry.Format, kind, name)
	if err != nil {
		return SavedExport{}, err
	}
	saved.EntryID = id
	return saved, nil
}

// SaveNotes renders raw notes and writes them to the export directory.
func (s *Service) SaveNotes(ctx context.Context, raw string, f notes.Format, kind ExportKind, name string) (SavedExport, error) {
	if s.exports == nil {
		return SavedExport{}, fmt.Errorf("save export: no export directory: %w", apperr.ErrNotImplemented)
	}
	res, err := s.Export(raw, f, kind)
	if err != nil {
		return SavedExport{}, err
	}
	if name == "" {
		name = res.Filename
	}
	name, err = exportName(name)
	if err != nil {
		return SavedExport{}, err
	}
	abs, err := s.exports.Write(name, []byte(res.Body))
	if err != nil {
		return SavedExport{}, exportError("export", err)
	}
	s.log.InfoContext(ctx, "export saved",
		slog.String("format", f.String()),
		slog.String("path", abs))
	return SavedExport{Path: abs, Bytes: len(res.Body)}, nil
}

// ReadExport returns one file from the export directory as a download.
// name is relative to the directory; a missing ".txt" is added.
func (s *Service) ReadExport(name string) (*ExportResult, error) {
	if s.exports == nil {
		return nil, fmt.Errorf("read export: no export directory: %w", apperr.ErrNotImplemented)
	}
	name, err := exportName(name)
	if err != nil {
		return nil, err
	}
	data, err := s.exports.Read(name)
	if err != nil {
		return nil, exportError("read export", err)
	}
	return &ExportResult{
		Filename:    filepath.Base(name),
		ContentType: textContentType,
		Body:        string(data),
	}, nil
}

// DeleteExport removes one file from the export directory.
func (s *Service) DeleteExport(ctx context.Context, name string) error {
	if s.exports == nil {
		return fmt.Errorf("delete export: no export directory: %w", apperr.ErrNotImplemented)
	}
	name, err := exportName(name)
	if err != nil {
		return err
	}
	if err := s.exports.Delete(name); err != nil {
		return exportError("delete export", err)
	}
	s.log.InfoContext(ctx, "export deleted", slog.String("name", name))
	return nil
}

// exportName gives name the ".txt" extension that Exports lists by. Any
// other extension is rejected so every written file stays listable.
func exportName(name string) (string, error) {
	if name == "" {
		return "", apperr.NewValidation("name", "export file name is empty")
	}
	switch filepath.Ext(name) {
	case ".txt":
		return name, nil
	case "":
		return name + ".txt", nil
	}
	return "", apperr.NewValidation("name", "export file name must end in .txt")
}

func exportError(op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrInvalidPath):
		return apperr.NewValidation("name", "export file name must stay inside the export directory")
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	return &apperr.StorageError{Op: op, Err: err}
}

// Exports lists files previously written by SaveExport.
func (s *Service) Exports() ([]storage.ExportFile, error) {
	if s.exports == nil {
		return []storage.ExportFile{}, nil
	}
	files, err := s.exports.List("")
	if err != nil {
		return nil, &apperr.StorageError{Op: "list exports", Err: err}
	}
	return files, nil
}
