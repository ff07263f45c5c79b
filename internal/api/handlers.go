package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/snapnotes/internal/ai"
	"github.com/starford/snapnotes/internal/apperr"
	"github.com/starford/snapnotes/internal/history"
	"github.com/starford/snapnotes/internal/notes"
	"github.com/starford/snapnotes/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// historyID extracts the {id} URL parameter.
func historyID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, apperr.NewValidation("id", "id must be an integer")
	}
	return id, nil
}

// Generate handles POST /generate.
//
//	@Summary		Generate notes from source text
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		GenerateRequest	true	"Source text and format"
//	@Success		200		{object}	Result
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Router			/generate [post]
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Generate(r.Context(), noteservice.GenerateInput{
		Text:   req.Text,
		Format: notes.Format(req.Format),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Refine handles POST /refine.
//
//	@Summary		Make notes shorter or more detailed
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RefineRequest	true	"Notes and refinement kind"
//	@Success		200		{object}	Result
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Router			/refine [post]
func (h *Handler) Refine(w http.ResponseWriter, r *http.Request) {
	var req RefineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Refine(r.Context(), noteservice.RefineInput{
		Notes:  req.Notes,
		Kind:   ai.Refinement(req.Kind),
		Format: notes.Format(req.Format),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Convert handles POST /convert.
//
//	@Summary		Regenerate notes in another format
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ConvertRequest	true	"Notes and target format"
//	@Success		200		{object}	Result
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Router			/convert [post]
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Convert(r.Context(), req.Notes, notes.Format(req.Target))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Copilot handles POST /copilot.
//
//	@Summary		Send a free-form instruction to the AI
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CopilotRequest	true	"Prompt and optional context"
//	@Success		200		{object}	Result
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Router			/copilot [post]
func (h *Handler) Copilot(w http.ResponseWriter, r *http.Request) {
	var req CopilotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Copilot(r.Context(), noteservice.CopilotInput{Prompt: req.Prompt, Context: req.Context})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Parse handles POST /parse.
//
//	@Summary		Parse raw notes into their structured view
//	@Tags			transform
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NotesRequest	true	"Raw notes and format"
//	@Success		200		{object}	ParseResponse
//	@Failure		400		{object}	errResponse
//	@Router			/parse [post]
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	var req NotesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	doc, parsed, err := h.svc.Parse(req.Notes, notes.Format(req.Format))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ParseResponse{Document: doc, Parsed: parsed})
}

// Export handles POST /export.
//
//	@Summary		Download notes as a file
//	@Tags			transform
//	@Accept			json
//	@Produce		plain
//	@Param			body	body		NotesRequest	true	"Raw notes, format, and export kind"
//	@Success		200		{string}	string
//	@Failure		400		{object}	errResponse
//	@Failure		501		{object}	errResponse
//	@Router			/export [post]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var req NotesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeExport(w, r, req.Notes, notes.Format(req.Format), noteservice.ExportKind(req.Kind))
}

// ExportHistoryEntry handles GET /history/{id}/export.
//
//	@Summary		Download a saved entry as a file
//	@Tags			history
//	@Produce		plain
//	@Param			id		path		int		true	"Entry id"
//	@Param			kind	query		string	false	"Export kind"	Enums(txt, pdf)
//	@Success		200		{string}	string
//	@Failure		404		{object}	errResponse
//	@Router			/history/{id}/export [get]
func (h *Handler) ExportHistoryEntry(w http.ResponseWriter, r *http.Request) {
	id, err := historyID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := h.svc.HistoryEntry(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	kind := noteservice.ExportKind(normalize(r.URL.Query().Get("kind")))
	h.writeExport(w, r, entry.Content, entry.Format, kind)
}

// SaveHistoryEntry handles POST /history/{id}/save.
//
//	@Summary		Write a saved entry to the export directory
//	@Tags			history
//	@Produce		json
//	@Param			id		path		int		true	"Entry id"
//	@Param			kind	query		string	false	"Export kind"	Enums(txt, pdf)
//	@Param			name	query		string	false	"File name inside the export directory"
//	@Success		201		{object}	noteservice.SavedExport
//	@Failure		404		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Router			/history/{id}/save [post]
func (h *Handler) SaveHistoryEntry(w http.ResponseWriter, r *http.Request) {
	id, err := historyID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	saved, err := h.svc.SaveExport(r.Context(), id, noteservice.ExportKind(normalize(q.Get("kind"))), q.Get("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// ListExports handles GET /exports.
//
//	@Summary		List files in the export directory, newest first
//	@Tags			history
//	@Produce		json
//	@Success		200		{array}		storage.ExportFile
//	@Router			/exports [get]
func (h *Handler) ListExports(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.Exports()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// DownloadExport handles GET /exports/{name}.
//
//	@Summary		Download a file from the export directory
//	@Tags			history
//	@Produce		plain
//	@Param			name	path		string	true	"File name relative to the export directory"
//	@Success		200		{string}	string
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/exports/{name} [get]
func (h *Handler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ReadExport(chi.URLParam(r, "*"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeFile(w, res)
}

// DeleteExport handles DELETE /exports/{name}.
//
//	@Summary		Delete a file from the export directory
//	@Tags			history
//	@Param			name	path	string	true	"File name relative to the export directory"
//	@Success		204
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/exports/{name} [delete]
func (h *Handler) DeleteExport(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteExport(r.Context(), chi.URLParam(r, "*")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeExport(w http.ResponseWriter, r *http.Request, raw string, f notes.Format, kind noteservice.ExportKind) {
	res, err := h.svc.Export(raw, f, kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeFile(w, res)
}

func writeFile(w http.ResponseWriter, res *noteservice.ExportResult) {
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(res.Body))
}

// ListHistory handles GET /history.
//
//	@Summary		List saved notes, most recent first
//	@Tags			history
//	@Produce		json
//	@Success		200		{object}	HistoryResponse
//	@Router			/history [get]
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HistoryResponse{Entries: h.svc.History(r.Context())})
}

// GetHistoryEntry handles GET /history/{id}.
//
//	@Summary		Get one saved entry
//	@Tags			history
//	@Produce		json
//	@Param			id		path		int		true	"Entry id"
//	@Success		200		{object}	HistoryEntry
//	@Failure		404		{object}	errResponse
//	@Router			/history/{id} [get]
func (h *Handler) GetHistoryEntry(w http.ResponseWriter, r *http.Request) {
	id, err := historyID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := h.svc.HistoryEntry(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// DeleteHistoryEntry handles DELETE /history/{id}.
//
//	@Summary		Delete one saved entry
//	@Tags			history
//	@Param			id		path		int		true	"Entry id"
//	@Success		204
//	@Failure		404		{object}	errResponse
//	@Router			/history/{id} [delete]
func (h *Handler) DeleteHistoryEntry(w http.ResponseWriter, r *http.Request) {
	id, err := historyID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteHistoryEntry(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearHistory handles DELETE /history.
//
//	@Summary		Delete every saved entry
//	@Tags			history
//	@Success		204
//	@Router			/history [delete]
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearHistory(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HistoryStats handles GET /history/stats.
//
//	@Summary		Storage usage of the history
//	@Tags			history
//	@Produce		json
//	@Success		200		{object}	history.Stats
//	@Router			/history/stats [get]
func (h *Handler) HistoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.HistoryStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetPreferences handles GET /preferences.
//
//	@Summary		Read user preferences
//	@Tags			preferences
//	@Produce		json
//	@Success		200		{object}	history.Preferences
//	@Router			/preferences [get]
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.svc.Preferences(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// SavePreferences handles PUT /preferences. Omitted fields keep their value.
//
//	@Summary		Merge user preferences
//	@Tags			preferences
//	@Accept			json
//	@Produce		json
//	@Param			body	body		history.PreferencesUpdate	true	"Fields to change"
//	@Success		200		{object}	history.Preferences
//	@Failure		400		{object}	errResponse
//	@Router			/preferences [put]
func (h *Handler) SavePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	prefs, err := h.svc.SavePreferences(r.Context(), req.PreferencesUpdate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

type preferencesRequest struct {
	history.PreferencesUpdate
}

// Validate defers format checks to the service.
func (preferencesRequest) Validate() error { return nil }
