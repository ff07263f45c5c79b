// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/snapnotes/internal/ai"
	"github.com/starford/snapnotes/internal/api"
	"github.com/starford/snapnotes/internal/history"
	"github.com/starford/snapnotes/internal/mcpserver"
	"github.com/starford/snapnotes/internal/notes"
	"github.com/starford/snapnotes/internal/noteservice"
	"github.com/starford/snapnotes/internal/pdf"
	"github.com/starford/snapnotes/internal/sse"
	"github.com/starford/snapnotes/internal/storage"
)

var _ noteservice.EventSink = (*sse.Broker)(nil)

// runtime is the set of collaborators shared by every run mode.
type runtime struct {
	logger  *slog.Logger
	db      *history.DB
	prompts *ai.Prompts
	svc     *noteservice.Service
}

func (rt *runtime) Close() {
	if err := rt.db.Close(); err != nil {
		rt.logger.Warn("close history db", slog.String("error", err.Error()))
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOut: os.Stdout, out: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// bootstrap opens history, builds the AI client and prompts, and wires the
// note service.
func (a *application) bootstrap(extra ...noteservice.Option) (*runtime, error) {
	cfg := a.config

	logger := newLogger(cfg.App, a.logOut)

	logger.Info("configuration loaded",
		slog.String("ai_provider", cfg.AI.Provider),
		slog.String("ai_model", cfg.AI.Model),
		slog.String("history_path", cfg.History.Path),
		slog.String("export_dir", cfg.Export.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	gen, err := ai.New(cfg.AI.ClientConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("init ai: %w", err)
	}

	set := ai.DefaultPromptSet()
	if cfg.AI.PromptsFile != "" {
		set, err = ai.LoadPromptSet(cfg.AI.PromptsFile)
		if err != nil {
			return nil, fmt.Errorf("load prompts: %w", err)
		}
	}
	prompts := ai.NewPrompts(set)

	exports, err := storage.NewFS(cfg.Export.Dir)
	if err != nil {
		return nil, fmt.Errorf("init exports: %w", err)
	}

	db, err := history.Open(cfg.History.Path, cfg.History.Capacity)
	if err != nil {
		return nil, fmt.Errorf("init history: %w", err)
	}

	opts := []noteservice.Option{
		noteservice.WithLogger(logger),
		noteservice.WithMaxUploadBytes(cfg.Upload.MaxBytes),
		noteservice.WithExports(exports),
	}
	opts = append(opts, extra...)
	svc := noteservice.NewService(gen, prompts, db, pdf.NewExtractor(logger), opts...)

	return &runtime{logger: logger, db: db, prompts: prompts, svc: svc}, nil
}

// watchPrompts starts the prompts file watcher when one is configured.
func (a *application) watchPrompts(ctx context.Context, g *errgroup.Group, rt *runtime) {
	path := a.config.AI.PromptsFile
	if path == "" {
		return
	}
	g.Go(func() error {
		if err := ai.WatchPrompts(ctx, rt.prompts, path, rt.logger); err != nil {
			rt.logger.Warn("prompts watcher unavailable", slog.String("error", err.Error()))
		}
		return nil
	})
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	if err := cfg.AI.RequireKey(); err != nil {
		return err
	}

	// SSE broker.
	broker := sse.NewBroker(250 * time.Millisecond)
	defer broker.Close()

	rt, err := app.bootstrap(noteservice.WithEvents(broker))
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.logger

	apiRouter := api.NewRouter(rt.svc, broker, api.RouterConfig{
		AllowedOrigins: cfg.App.HTTP.AllowedOrigins,
		MaxUploadBytes: cfg.Upload.MaxBytes,
	})

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := rt.db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	app.watchPrompts(gCtx, g, rt)

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		var stopErr error
		select {
		case sig := <-quit:
			logger.Info("received shutdown signal", slog.String("signal", sig.String()))
			// errShutdown cancels gCtx, which stops the prompts watcher.
			stopErr = errShutdown
		case <-gCtx.Done():
			logger.Info("context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return stopErr
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("server stopped")
	return nil
}

var errShutdown = errors.New("shutdown requested")

// RunMCP serves the MCP tools over stdin/stdout until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if err := app.config.AI.RequireKey(); err != nil {
		return err
	}

	rt, err := app.bootstrap()
	if err != nil {
		return err
	}
	defer rt.Close()

	g, gCtx := errgroup.WithContext(ctx)
	watchCtx, stopWatch := context.WithCancel(gCtx)
	app.watchPrompts(watchCtx, g, rt)

	g.Go(func() error {
		defer stopWatch()
		rt.logger.Info("serving MCP on stdio")
		return mcpserver.New(rt.svc).ServeStdio()
	})

	return g.Wait()
}

// ExportRequest selects what the export command writes.
type ExportRequest struct {
	// ID exports a saved history entry.
	ID int64
	// Input exports a raw notes file instead of a history entry.
	Input string
	// Format is the format of Input; empty uses export.default_format.
	Format string
	Kind   string
	// Name is the file name inside the export directory; empty generates one.
	Name string
	// List prints the export directory contents instead of writing.
	List bool
	// Delete removes the named file from the export directory instead of writing.
	Delete string
}

// RunExport writes one export file, or lists or prunes the export
// directory, and prints the result as JSON. It never calls the AI provider,
// so no api_key is needed.
func RunExport(ctx context.Context, req ExportRequest, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.bootstrap()
	if err != nil {
		return err
	}
	defer rt.Close()

	if req.List {
		files, err := rt.svc.Exports()
		if err != nil {
			return err
		}
		return printJSON(app.out, files)
	}
	if req.Delete != "" {
		if err := rt.svc.DeleteExport(ctx, req.Delete); err != nil {
			return err
		}
		return printJSON(app.out, map[string]string{"deleted": req.Delete})
	}

	kind := noteservice.ExportKind(req.Kind)
	var saved noteservice.SavedExport
	switch {
	case req.Input != "":
		raw, err := os.ReadFile(req.Input)
		if err != nil {
			return fmt.Errorf("read notes: %w", err)
		}
		name := req.Format
		if name == "" {
			name = app.config.Export.DefaultFormat
		}
		f, err := notes.ParseFormat(name)
		if err != nil {
			return err
		}
		saved, err = rt.svc.SaveNotes(ctx, string(raw), f, kind, req.Name)
		if err != nil {
			return err
		}
	case req.ID > 0:
		saved, err = rt.svc.SaveExport(ctx, req.ID, kind, req.Name)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("export: either an entry id or an input file is required")
	}
	return printJSON(app.out, saved)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
