package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/snapnotes/internal/history"
	"github.com/starford/snapnotes/internal/noteservice"
)

func exportConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := validConfig()
	cfg.App.LogFormat = LogFormatText
	cfg.History.Path = filepath.Join(dir, "history.db")
	cfg.Export.Dir = filepath.Join(dir, "exports")
	cfg.Export.DefaultFormat = "qa"
	return cfg
}

func TestRunExport_InputFile(t *testing.T) {
	cfg := exportConfig(t)
	in := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(in, []byte("Q: One\nA: Two"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out, logs bytes.Buffer
	err := RunExport(context.Background(), ExportRequest{Input: in, Name: "one.txt"},
		WithConfig(cfg), WithOutput(&out), WithLogOutput(&logs))
	if err != nil {
		t.Fatalf("RunExport: %v", err)
	}

	var saved noteservice.SavedExport
	if err := json.Unmarshal(out.Bytes(), &saved); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	if saved.Path != filepath.Join(cfg.Export.Dir, "one.txt") {
		t.Errorf("path = %q", saved.Path)
	}
	body, _ := os.ReadFile(saved.Path)
	if string(body) != "Q: One\nA: Two" {
		t.Errorf("body = %q", body)
	}
	if !strings.Contains(logs.String(), "export saved") {
		t.Errorf("logs = %q", logs.String())
	}
}

func TestRunExport_HistoryEntryAndList(t *testing.T) {
	cfg := exportConfig(t)

	db, err := history.Open(cfg.History.Path, cfg.History.Capacity)
	if err != nil {
		t.Fatal(err)
	}
	entry, err := db.Append(context.Background(), "- saved point", "bullet")
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	var out bytes.Buffer
	opts := []Option{WithConfig(cfg), WithOutput(&out), WithLogOutput(&bytes.Buffer{})}
	if err := RunExport(context.Background(), ExportRequest{ID: entry.ID}, opts...); err != nil {
		t.Fatalf("RunExport: %v", err)
	}

	out.Reset()
	if err := RunExport(context.Background(), ExportRequest{List: true}, opts...); err != nil {
		t.Fatalf("RunExport list: %v", err)
	}
	if !strings.Contains(out.String(), `"checksum"`) || !strings.Contains(out.String(), "snapnotes-") {
		t.Errorf("list output = %q", out.String())
	}
}

func TestRunExport_WithoutAPIKey(t *testing.T) {
	cfg := exportConfig(t)
	cfg.AI.APIKey = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	in := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(in, []byte("- offline"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	opts := []Option{WithConfig(cfg), WithOutput(&out), WithLogOutput(&bytes.Buffer{})}
	req := ExportRequest{Input: in, Format: "bullet", Name: "offline"}
	if err := RunExport(context.Background(), req, opts...); err != nil {
		t.Fatalf("RunExport: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Export.Dir, "offline.txt")); err != nil {
		t.Errorf("export not written: %v", err)
	}

	out.Reset()
	if err := RunExport(context.Background(), ExportRequest{Delete: "offline.txt"}, opts...); err != nil {
		t.Fatalf("RunExport delete: %v", err)
	}
	if !strings.Contains(out.String(), `"deleted": "offline.txt"`) {
		t.Errorf("delete output = %q", out.String())
	}
	if _, err := os.Stat(filepath.Join(cfg.Export.Dir, "offline.txt")); !os.IsNotExist(err) {
		t.Errorf("export still present: %v", err)
	}
}

func TestRunAndRunMCP_RequireAPIKey(t *testing.T) {
	cfg := exportConfig(t)
	cfg.AI.APIKey = ""
	opts := []Option{WithConfig(cfg), WithLogOutput(&bytes.Buffer{})}

	if err := Run(context.Background(), opts...); err == nil || !strings.Contains(err.Error(), "api_key is empty") {
		t.Errorf("Run err = %v", err)
	}
	if err := RunMCP(context.Background(), opts...); err == nil || !strings.Contains(err.Error(), "api_key is empty") {
		t.Errorf("RunMCP err = %v", err)
	}
}

func TestRunExport_Errors(t *testing.T) {
	cfg := exportConfig(t)
	opts := []Option{WithConfig(cfg), WithOutput(&bytes.Buffer{}), WithLogOutput(&bytes.Buffer{})}

	if err := RunExport(context.Background(), ExportRequest{}, opts...); err == nil {
		t.Error("expected error without id or input")
	}
	if err := RunExport(context.Background(), ExportRequest{ID: 42}, opts...); err == nil {
		t.Error("expected error for unknown entry")
	}
	if err := RunExport(context.Background(), ExportRequest{ID: 1}); err == nil {
		t.Error("expected error without config")
	}
	if err := RunExport(context.Background(), ExportRequest{Delete: "missing.txt"}, opts...); err == nil {
		t.Error("expected error deleting a missing export")
	}
}

func TestNewLogger_Formats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(ApplicationConfig{LogFormat: LogFormatJSON}, &buf).Info("hello")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("json output = %q", buf.String())
	}

	buf.Reset()
	newLogger(ApplicationConfig{LogFormat: LogFormatText}, &buf).Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") || !strings.Contains(buf.String(), "source=") {
		t.Errorf("text output = %q", buf.String())
	}
}
