package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/mediscan/internal/markdown"
	"github.com/bull/mediscan/internal/session"
	"github.com/bull/mediscan/internal/storage"
)

// Consultations is the session API the tools drive. Implemented by *session.Service.
type Consultations interface {
	Start(ctx context.Context) (*session.State, error)
	Upload(ctx context.Context, id, filename string, data []byte, symptoms string) (*session.State, error)
	Ask(ctx context.Context, id, question, symptoms string) (*session.QA, error)
	Treatment(ctx context.Context, id, symptoms string) (*session.State, error)
	Get(ctx context.Context, id string) (*session.State, error)
}

// Searcher finds indexed documents. Implemented by *indexer.Retriever.
type Searcher interface {
	Search(ctx context.Context, text string, limit int, filter storage.Filter) ([]storage.Match, error)
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Sessions Consultations
	Searcher Searcher
	Logger   *slog.Logger
	Version  string

	// AllowLocalFiles lets summarize_document read file_path from the server's filesystem.
	// Leave it off for network transports; clients then send content_base64.
	AllowLocalFiles bool
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "mediscan",
		Version: version,
	}, nil)

	renderer := markdown.NewRenderer()

	mcp.AddTool(server, &mcp.Tool{
		Name:        "summarize_document",
		Description: "Review a medical document (lab report, scan or photo of a report) and explain it to the patient. Starts a consultation and returns its session_id.",
	}, makeSummarizeHandler(cfg.Sessions, logger, cfg.AllowLocalFiles))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_followup",
		Description: "Ask the doctor a follow-up question about the reviewed document within a consultation.",
	}, makeAskHandler(cfg.Sessions))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "suggest_treatment",
		Description: "Get the doctor's treatment suggestions for a consultation, based on the document summary, symptoms and the questions asked so far.",
	}, makeTreatmentHandler(cfg.Sessions, renderer))

	if cfg.Searcher != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "search_records",
			Description: "Search previously reviewed medical documents semantically. Returns excerpts and metadata for the best matches.",
		}, makeSearchHandler(cfg.Searcher))
	}

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
