package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/starford/snapnotes/internal/apperr"
	"github.com/starford/snapnotes/internal/noteservice"
	"github.com/starford/snapnotes/internal/pdf"
)

// multipartOverhead is the slack allowed above the file limit for form boundaries and headers.
const multipartOverhead = 1 << 20

// UploadHandler accepts PDF uploads and returns their text.
type UploadHandler struct {
	svc      *noteservice.Service
	maxBytes int64
}

// NewUploadHandler creates an upload handler with the given file size limit.
func NewUploadHandler(svc *noteservice.Service, maxBytes int64) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = pdf.DefaultMaxBytes
	}
	return &UploadHandler{svc: svc, maxBytes: maxBytes}
}

// Extract handles POST /extract (multipart/form-data, field "file").
//
//	@Summary		Extract the text of an uploaded PDF
//	@Tags			pdf
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"PDF file"
//	@Success		200		{object}	ExtractResponse
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Router			/extract [post]
func (h *UploadHandler) Extract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)

	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, apperr.NewValidation("file", fmt.Sprintf("file size must be less than %dMB", h.maxBytes>>20)))
			return
		}
		writeError(w, r, apperr.NewValidation("file", "invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, apperr.NewValidation("file", "no file provided"))
		return
	}
	defer file.Close()

	// Validate the declared size before reading the file into memory.
	if err := pdf.Validate(header.Filename, header.Header.Get("Content-Type"), header.Size, h.maxBytes); err != nil {
		writeError(w, r, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, apperr.NewValidation("file", "failed to read upload"))
		return
	}

	text, err := h.svc.ExtractPDF(r.Context(), noteservice.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ExtractResponse{
		Filename: header.Filename,
		Text:     text,
		Chars:    utf8.RuneCountInString(text),
	})
}
