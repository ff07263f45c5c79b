package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/starford/snapnotes/internal/ai"
	"github.com/starford/snapnotes/internal/apperr"
	"github.com/starford/snapnotes/internal/history"
	"github.com/starford/snapnotes/internal/noteservice"
	"github.com/starford/snapnotes/internal/pdf"
	"github.com/starford/snapnotes/internal/storage"
)

type stubGenerator struct {
	out string
	err error
}

func (g *stubGenerator) Generate(context.Context, string, string) (string, error) {
	return g.out, g.err
}

type stubExtractor struct {
	text string
	err  error
}

func (e *stubExtractor) ExtractText(_ context.Context, _ []byte, progress pdf.ProgressFunc) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	if progress != nil {
		progress(1, 1)
	}
	return e.text, nil
}

type testDeps struct {
	gen       *stubGenerator
	ext       *stubExtractor
	store     *history.DB
	exportDir string
}

// testEnv sets up a temp SQLite history, service, and router for testing.
func testEnv(t *testing.T) (*testDeps, http.Handler) {
	t.Helper()
	return testEnvWithSSE(t, nil)
}

func testEnvWithSSE(t *testing.T, sseHandler http.Handler) (*testDeps, http.Handler) {
	t.Helper()

	store, err := history.Open(filepath.Join(t.TempDir(), "snapnotes-api-test.db"), 10)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	deps := &testDeps{
		gen:   &stubGenerator{out: "- First point\n- Second point\nHeading Line"},
		ext:   &stubExtractor{text: "Extracted lecture text"},
		store: store,
	}
	exports, err := storage.NewFS(filepath.Join(t.TempDir(), "exports"))
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	deps.exportDir = exports.Root()
	svc := noteservice.NewService(deps.gen, ai.NewPrompts(ai.DefaultPromptSet()), store, deps.ext,
		noteservice.WithExports(exports))
	router := NewRouter(svc, sseHandler, RouterConfig{
		AllowedOrigins: []string{"http://localhost:5173"},
		MaxUploadBytes: pdf.DefaultMaxBytes,
	})
	return deps, router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) errResponse {
	t.Helper()
	var e errResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return e
}

func TestGenerate(t *testing.T) {
	_, router := testEnv(t)

	w := doJSON(t, router, http.MethodPost, "/generate", map[string]string{"text": "Some lecture", "format": "bullet"})
	if w.Code != http.StatusOK {
		t.Fatalf("generate status = %d, body = %s", w.Code, w.Body.String())
	}

	var res Result
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if !res.Parsed {
		t.Error("parsed = false, want true")
	}
	if len(res.Document.Bullets) != 3 {
		t.Fatalf("len(bullets) = %d, want 3", len(res.Document.Bullets))
	}
	if res.Document.Bullets[2].Text != "Heading Line" || res.Document.Bullets[2].Bullet {
		t.Errorf("bullets[2] = %+v, want heading %q", res.Document.Bullets[2], "Heading Line")
	}
	if res.Entry == nil {
		t.Fatal("entry = nil, want saved history entry")
	}
}

func TestGenerate_Validation(t *testing.T) {
	_, router := testEnv(t)

	for _, body := range []map[string]string{
		{"text": "   ", "format": "bullet"},
		{"text": "x", "format": "essay"},
		{"text": "x"},
	} {
		w := doJSON(t, router, http.MethodPost, "/generate", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("generate %v = %d, want 400", body, w.Code)
			continue
		}
		if e := decodeErr(t, w); e.Kind != "validation" {
			t.Errorf("kind = %q, want %q", e.Kind, "validation")
		}
	}
}

func TestGenerate_InvalidJSON(t *testing.T) {
	_, router := testEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid json = %d, want 400", w.Code)
	}
}

func TestGenerate_APIErrorIsBadGateway(t *testing.T) {
	deps, router := testEnv(t)
	deps.gen.err = &apperr.APIError{Provider: "gemini", Status: 503, Message: "overloaded"}

	w := doJSON(t, router, http.MethodPost, "/generate", map[string]string{"text": "x", "format": "qa"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if e := decodeErr(t, w); e.Kind != "api" || !strings.Contains(e.Error, "overloaded") {
		t.Errorf("error body = %+v", e)
	}
}

func TestRefineAndConvert(t *testing.T) {
	deps, router := testEnv(t)

	deps.gen.out = "- shorter"
	w := doJSON(t, router, http.MethodPost, "/refine", map[string]string{"notes": "- a\n- b", "kind": "shorter", "format": "bullet"})
	if w.Code != http.StatusOK {
		t.Fatalf("refine = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodPost, "/refine", map[string]string{"notes": "- a", "kind": "longer", "format": "bullet"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("refine bad kind = %d, want 400", w.Code)
	}

	deps.gen.out = "Q: What?\nA: That."
	w = doJSON(t, router, http.MethodPost, "/convert", map[string]string{"notes": "- a", "target": "qa"})
	if w.Code != http.StatusOK {
		t.Fatalf("convert = %d, body = %s", w.Code, w.Body.String())
	}
	var res Result
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if len(res.Document.Pairs) != 1 || res.Document.Pairs[0].Answer != "That." {
		t.Errorf("pairs = %+v", res.Document.Pairs)
	}
}

func TestCopilot(t *testing.T) {
	_, router := testEnv(t)

	w := doJSON(t, router, http.MethodPost, "/copilot", map[string]string{"prompt": "Summarise", "context": "text"})
	if w.Code != http.StatusOK {
		t.Fatalf("copilot = %d, body = %s", w.Code, w.Body.String())
	}
	var res Result
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Entry == nil || res.Entry.Format != "copilot" {
		t.Errorf("entry = %+v, want copilot format", res.Entry)
	}
}

func TestParse(t *testing.T) {
	_, router := testEnv(t)

	w := doJSON(t, router, http.MethodPost, "/parse", map[string]string{"notes": "Q: What is X?A: X is Y.Q: Incomplete", "format": "qa"})
	if w.Code != http.StatusOK {
		t.Fatalf("parse = %d", w.Code)
	}
	var res ParseResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if len(res.Document.Pairs) != 1 {
		t.Fatalf("len(pairs) = %d, want 1", len(res.Document.Pairs))
	}
	if got := res.Document.Pairs[0]; got.Question != "What is X?" || got.Answer != "X is Y." {
		t.Errorf("pair = %+v", got)
	}

	w = doJSON(t, router, http.MethodPost, "/parse", map[string]string{"notes": "free text", "format": "qa"})
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Parsed {
		t.Error("parsed = true for text without delimiters, want false")
	}
}

func TestExport_Text(t *testing.T) {
	_, router := testEnv(t)

	w := doJSON(t, router, http.MethodPost, "/export", map[string]string{"notes": "FRONT: a\nBACK: b\n---\nFRONT: c", "format": "flashcard"})
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content-type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "snapnotes-") || !strings.Contains(cd, ".txt") {
		t.Errorf("content-disposition = %q", cd)
	}
	want := "FRONT: a\nBACK: b\n---\nFRONT: c"
	if got := w.Body.String(); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestExport_PDFNotImplemented(t *testing.T) {
	_, router := testEnv(t)
	w := doJSON(t, router, http.MethodPost, "/export", map[string]string{"notes": "- a", "format": "bullet", "kind": "pdf"})
	if w.Code != http.StatusNotImplemented {
		t.Errorf("pdf export = %d, want 501", w.Code)
	}
}

func TestHistoryLifecycle(t *testing.T) {
	_, router := testEnv(t)

	for i := 0; i < 3; i++ {
		w := doJSON(t, router, http.MethodPost, "/generate", map[string]string{"text": "t" + strconv.Itoa(i), "format": "bullet"})
		if w.Code != http.StatusOK {
			t.Fatalf("generate %d = %d", i, w.Code)
		}
	}

	w := doJSON(t, router, http.MethodGet, "/history", nil)
	var list HistoryResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(list.Entries))
	}
	if list.Entries[0].ID <= list.Entries[1].ID {
		t.Errorf("entries not most-recent first: %d, %d", list.Entries[0].ID, list.Entries[1].ID)
	}

	id := strconv.FormatInt(list.Entries[0].ID, 10)

	w = doJSON(t, router, http.MethodGet, "/history/"+id, nil)
	if w.Code != http.StatusOK {
		t.Errorf("get entry = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/history/"+id+"/export", nil)
	if w.Code != http.StatusOK || w.Body.String() != "- First point\n- Second point\nHeading Line" {
		t.Errorf("export entry = %d %q", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodDelete, "/history/"+id, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete entry = %d, want 204", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/history/"+id, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get deleted entry = %d, want 404", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/history/stats", nil)
	var stats history.Stats
	_ = json.Unmarshal(w.Body.Bytes(), &stats)
	if stats.Entries != 2 || stats.Capacity != 10 {
		t.Errorf("stats = %+v", stats)
	}

	w = doJSON(t, router, http.MethodDelete, "/history", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("clear = %d, want 204", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/history", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Entries) != 0 {
		t.Errorf("len(entries) after clear = %d", len(list.Entries))
	}
}

func TestHistory_BadID(t *testing.T) {
	_, router := testEnv(t)
	w := doJSON(t, router, http.MethodGet, "/history/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id = %d, want 400", w.Code)
	}
}

func TestHistory_DegradesWhenStorageFails(t *testing.T) {
	deps, router := testEnv(t)
	deps.store.Close()

	w := doJSON(t, router, http.MethodGet, "/history", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history = %d, want 200", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"entries":[]}` {
		t.Errorf("body = %s", got)
	}

	w = doJSON(t, router, http.MethodGet, "/history/stats", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("stats on closed db = %d, want 500", w.Code)
	}
	if e := decodeErr(t, w); e.Kind != "storage" {
		t.Errorf("kind = %q, want storage", e.Kind)
	}
}

func TestPreferences(t *testing.T) {
	_, router := testEnv(t)

	w := doJSON(t, router, http.MethodGet, "/preferences", nil)
	var prefs history.Preferences
	_ = json.Unmarshal(w.Body.Bytes(), &prefs)
	if prefs != history.DefaultPreferences() {
		t.Errorf("default prefs = %+v", prefs)
	}

	w = doJSON(t, router, http.MethodPut, "/preferences", map[string]any{"autoSave": false})
	if w.Code != http.StatusOK {
		t.Fatalf("save prefs = %d, body = %s", w.Code, w.Body.String())
	}
	_ = json.Unmarshal(w.Body.Bytes(), &prefs)
	if prefs.AutoSave || prefs.DefaultFormat != "bullet" {
		t.Errorf("merged prefs = %+v", prefs)
	}

	w = doJSON(t, router, http.MethodPut, "/preferences", map[string]any{"defaultFormat": "essay"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad default format = %d, want 400", w.Code)
	}
}

// Upload tests.

func uploadFile(t *testing.T, router http.Handler, filename, contentType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestExtract(t *testing.T) {
	_, router := testEnv(t)

	w := uploadFile(t, router, "lecture.pdf", "application/pdf", []byte("%PDF-1.4 fake"))
	if w.Code != http.StatusOK {
		t.Fatalf("extract = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ExtractResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Text != "Extracted lecture text" || resp.Filename != "lecture.pdf" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestExtract_RejectsNonPDF(t *testing.T) {
	_, router := testEnv(t)
	w := uploadFile(t, router, "notes.txt", "text/plain", []byte("hello"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("txt upload = %d, want 400", w.Code)
	}
}

func TestExtract_RejectsOversize(t *testing.T) {
	deps, router := testEnv(t)
	deps.ext.err = &apperr.ExtractionError{Kind: apperr.ExtractionCorrupt}

	w := uploadFile(t, router, "big.pdf", "application/pdf", make([]byte, 11<<20))
	if w.Code != http.StatusBadRequest {
		t.Errorf("11 MiB upload = %d, want 400", w.Code)
	}
}

func TestExtract_ExtractionErrorIs422(t *testing.T) {
	deps, router := testEnv(t)
	deps.ext.err = &apperr.ExtractionError{Kind: apperr.ExtractionPasswordProtected}

	w := uploadFile(t, router, "locked.pdf", "application/pdf", []byte("%PDF-1.7"))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	e := decodeErr(t, w)
	if e.Kind != "extraction" || e.Reason != string(apperr.ExtractionPasswordProtected) {
		t.Errorf("error body = %+v", e)
	}
}

func TestExtract_MissingFileField(t *testing.T) {
	_, router := testEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("wrong", "data")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}
}

func TestCORS(t *testing.T) {
	_, router := testEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/generate", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow-origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/history", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow-origin for unknown origin = %q, want empty", got)
	}
}

func TestSSEEventsMounted(t *testing.T) {
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
	_, router := testEnvWithSSE(t, sseHandler)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content-type = %q", ct)
	}
}

func TestSaveHistoryEntryAndListExports(t *testing.T) {
	deps, router := testEnv(t)
	entry, err := deps.store.Append(context.Background(), "FRONT: Cell\nBACK: Unit of life", "flashcard")
	if err != nil {
		t.Fatal(err)
	}

	path := "/history/" + strconv.FormatInt(entry.ID, 10) + "/save?name=cells.txt"
	w := doJSON(t, router, http.MethodPost, path, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("save status = %d, body = %s", w.Code, w.Body.String())
	}
	var saved noteservice.SavedExport
	_ = json.Unmarshal(w.Body.Bytes(), &saved)
	if saved.Path != filepath.Join(deps.exportDir, "cells.txt") || saved.EntryID != entry.ID {
		t.Errorf("saved = %+v", saved)
	}

	w = doJSON(t, router, http.MethodGet, "/exports", nil)
	var files []storage.ExportFile
	_ = json.Unmarshal(w.Body.Bytes(), &files)
	if len(files) != 1 || files[0].Path != "cells.txt" {
		t.Errorf("exports = %s", w.Body.String())
	}

	w = doJSON(t, router, http.MethodPost, "/history/999/save", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing entry status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, path+"&kind=pdf", nil)
	if w.Code != http.StatusNotImplemented {
		t.Errorf("pdf save status = %d", w.Code)
	}
}

func TestDownloadAndDeleteExport(t *testing.T) {
	deps, router := testEnv(t)
	entry, err := deps.store.Append(context.Background(), "Q: One\nA: Two", "qa")
	if err != nil {
		t.Fatal(err)
	}
	path := "/history/" + strconv.FormatInt(entry.ID, 10) + "/save?name=review"
	if w := doJSON(t, router, http.MethodPost, path, nil); w.Code != http.StatusCreated {
		t.Fatalf("save status = %d, body = %s", w.Code, w.Body.String())
	}

	w := doJSON(t, router, http.MethodGet, "/exports/review.txt", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("download status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != "Q: One\nA: Two" {
		t.Errorf("download body = %q", got)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="review.txt"` {
		t.Errorf("content-disposition = %q", cd)
	}

	w = doJSON(t, router, http.MethodGet, "/exports/review.md", nil)
	if w.Code != http.StatusBadRequest || decodeErr(t, w).Kind != "validation" {
		t.Errorf("bad extension status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodDelete, "/exports/review.txt", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/exports", nil)
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("exports after delete = %s", w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/exports/review.txt", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("download deleted status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodDelete, "/exports/review.txt", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("delete deleted status = %d", w.Code)
	}
}
