// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes SnapNotes tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/snapnotes/internal/ai"
	"github.com/starford/snapnotes/internal/apperr"
	"github.com/starford/snapnotes/internal/notes"
	"github.com/starford/snapnotes/internal/noteservice"
)

const contractURI = "snapnotes://format-contract"

// Server wraps the MCP server with SnapNotes tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all SnapNotes tools registered.
func New(svc *noteservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"SnapNotes",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("generate_notes",
		mcp.WithDescription("Generate study notes from source text. The result is saved to history "+
			"when auto-save is enabled."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Source text, at most 50000 characters")),
		mcp.WithString("format", mcp.Description("bullet (default), qa, or flashcard")),
	), s.generateNotes)

	s.mcp.AddTool(mcp.NewTool("refine_notes",
		mcp.WithDescription("Rewrite existing notes shorter or more detailed, keeping their format."),
		mcp.WithString("notes", mcp.Required(), mcp.Description("Current raw notes")),
		mcp.WithString("kind", mcp.Required(), mcp.Description("shorter or detailed")),
		mcp.WithString("format", mcp.Description("Format of the notes (default bullet)")),
	), s.refineNotes)

	s.mcp.AddTool(mcp.NewTool("parse_notes",
		mcp.WithDescription("Parse raw notes into bullets, Q&A pairs, or flashcards. "+
			"The delimiter contract is available via get_format_contract or the "+
			contractURI+" resource."),
		mcp.WithString("notes", mcp.Required(), mcp.Description("Raw notes text")),
		mcp.WithString("format", mcp.Description("bullet (default), qa, flashcard, or copilot")),
	), s.parseNotes)

	s.mcp.AddTool(mcp.NewTool("export_notes",
		mcp.WithDescription("Render raw notes as the plain text a user would download."),
		mcp.WithString("notes", mcp.Required(), mcp.Description("Raw notes text")),
		mcp.WithString("format", mcp.Description("bullet (default), qa, flashcard, or copilot")),
	), s.exportNotes)

	s.mcp.AddTool(mcp.NewTool("list_history",
		mcp.WithDescription("List saved notes, most recent first."),
	), s.listHistory)

	s.mcp.AddTool(mcp.NewTool("extract_pdf",
		mcp.WithDescription("Extract the text of a PDF given as a base64 data URI or an http(s) URL."),
		mcp.WithString("url", mcp.Required(), mcp.Description("data:application/pdf;base64,... or https://...")),
		mcp.WithString("filename", mcp.Description("Optional file name, used for validation and logging")),
	), s.extractPDF)

	s.mcp.AddTool(mcp.NewTool("get_format_contract",
		mcp.WithDescription("Returns the delimiter contract for bullet, Q&A, and flashcard notes. "+
			"Call this before writing notes by hand so they parse correctly."),
	), s.getFormatContract)

	// Resource: format contract.
	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Notes Format Contract",
			mcp.WithResourceDescription("Line delimiters recognised by the notes parser."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError turns a service error into a tool-level error result.
func toolError(err error) *mcp.CallToolResult {
	var ve *apperr.ValidationError
	var ae *apperr.APIError
	switch {
	case errors.As(err, &ve):
		return mcp.NewToolResultError(fmt.Sprintf("invalid %s: %s", ve.Field, ve.Message))
	case errors.As(err, &ae):
		return mcp.NewToolResultError("ai provider error: " + ae.Message)
	case errors.Is(err, apperr.ErrBusy):
		return mcp.NewToolResultError("another request is in progress, try again shortly")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) generateNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := notes.ParseFormat(req.GetString("format", string(notes.FormatBullet)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Generate(ctx, noteservice.GenerateInput{Text: text, Format: f})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) refineNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("notes")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	refinement, err := ai.ParseRefinement(kind)
	if err != nil {
		return toolError(err), nil
	}
	f, err := notes.ParseFormat(req.GetString("format", string(notes.FormatBullet)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Refine(ctx, noteservice.RefineInput{Notes: raw, Kind: refinement, Format: f})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res), nil
}

type parseResult struct {
	Document notes.Document `json:"document"`
	Parsed   bool           `json:"parsed"`
}

func (s *Server) parseNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("notes")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := notes.ParseFormat(req.GetString("format", string(notes.FormatBullet)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, parsed, err := s.svc.Parse(raw, f)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(parseResult{Document: doc, Parsed: parsed}), nil
}

func (s *Server) exportNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("notes")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := notes.ParseFormat(req.GetString("format", string(notes.FormatBullet)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Export(raw, f, noteservice.ExportText)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(res.Body), nil
}

func (s *Server) listHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries := s.svc.History(ctx)
	if len(entries) == 0 {
		return mcp.NewToolResultText("no saved notes"), nil
	}
	return jsonResult(entries), nil
}

func (s *Server) getFormatContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FormatContract), nil
}

func (s *Server) readFormatContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     FormatContract,
		},
	}, nil
}
