package mcp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/mediscan/internal/extract"
	"github.com/bull/mediscan/internal/markdown"
	"github.com/bull/mediscan/internal/session"
	"github.com/bull/mediscan/internal/storage"
)

const (
	defaultMaxResults = 5
	maxMaxResults     = 20
	excerptChars      = 300
)

// ErrLocalFilesDisabled is returned when a document is requested by path on a server that
// does not read its own filesystem.
var ErrLocalFilesDisabled = errors.New("reading files from the server is disabled, send content_base64")

// makeSummarizeHandler creates the summarize_document tool handler.
// The extension is checked before any bytes are read.
func makeSummarizeHandler(sessions Consultations, logger *slog.Logger, allowLocalFiles bool) func(
	context.Context, *mcp.CallToolRequest, SummarizeDocumentInput,
) (*mcp.CallToolResult, SummarizeDocumentOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SummarizeDocumentInput) (
		*mcp.CallToolResult, SummarizeDocumentOutput, error,
	) {
		name := filepath.Base(input.FilePath)
		if input.FilePath == "" {
			return nil, SummarizeDocumentOutput{}, errors.New("file_path is required")
		}
		if !extract.IsSupported(name) {
			return nil, SummarizeDocumentOutput{}, fmt.Errorf("%w: %s (supported: %s)",
				extract.ErrUnsupported, name, strings.Join(extract.SupportedExtensions, ", "))
		}

		data, err := readDocument(input, allowLocalFiles)
		if err != nil {
			return nil, SummarizeDocumentOutput{}, err
		}

		id := input.SessionID
		if id == "" {
			state, err := sessions.Start(ctx)
			if err != nil {
				return nil, SummarizeDocumentOutput{}, fmt.Errorf("failed to start consultation: %w", err)
			}
			id = state.ID
		}

		state, err := sessions.Upload(ctx, id, name, data, input.Symptoms)
		if err != nil {
			return nil, SummarizeDocumentOutput{}, err
		}
		logger.Info("Document summarized over MCP", "session", id, "file", name)

		return nil, SummarizeDocumentOutput{
			SessionID:    state.ID,
			Document:     state.DocumentName,
			DocumentType: state.DocumentKind,
			Summary:      state.Summary,
		}, nil
	}
}

func readDocument(input SummarizeDocumentInput, allowLocalFiles bool) ([]byte, error) {
	if input.ContentBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(input.ContentBase64)
		if err != nil {
			return nil, fmt.Errorf("content_base64 is not valid base64: %w", err)
		}
		return data, nil
	}
	if !allowLocalFiles {
		return nil, ErrLocalFilesDisabled
	}
	data, err := os.ReadFile(input.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return data, nil
}

// makeAskHandler creates the ask_followup tool handler.
func makeAskHandler(sessions Consultations) func(
	context.Context, *mcp.CallToolRequest, AskFollowupInput,
) (*mcp.CallToolResult, AskFollowupOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskFollowupInput) (
		*mcp.CallToolResult, AskFollowupOutput, error,
	) {
		qa, err := sessions.Ask(ctx, input.SessionID, input.Question, input.Symptoms)
		if err != nil {
			return nil, AskFollowupOutput{}, err
		}

		out := AskFollowupOutput{Answer: qa.Answer, Fallback: qa.Fallback}
		if state, err := sessions.Get(ctx, input.SessionID); err == nil {
			out.Exchanges = len(state.QAs)
		}
		return nil, out, nil
	}
}

// makeTreatmentHandler creates the suggest_treatment tool handler.
func makeTreatmentHandler(sessions Consultations, renderer *markdown.Renderer) func(
	context.Context, *mcp.CallToolRequest, SuggestTreatmentInput,
) (*mcp.CallToolResult, SuggestTreatmentOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SuggestTreatmentInput) (
		*mcp.CallToolResult, SuggestTreatmentOutput, error,
	) {
		state, err := sessions.Treatment(ctx, input.SessionID, input.Symptoms)
		if err != nil {
			return nil, SuggestTreatmentOutput{}, err
		}

		sections := renderer.Sections(state.TreatmentPlan)
		if sections == nil {
			sections = []markdown.Section{}
		}
		return nil, SuggestTreatmentOutput{
			Plan:     state.TreatmentPlan,
			Sections: sections,
		}, nil
	}
}

// makeSearchHandler creates the search_records tool handler.
func makeSearchHandler(searcher Searcher) func(
	context.Context, *mcp.CallToolRequest, SearchRecordsInput,
) (*mcp.CallToolResult, SearchRecordsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchRecordsInput) (
		*mcp.CallToolResult, SearchRecordsOutput, error,
	) {
		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = defaultMaxResults
		}
		maxResults = min(maxResults, maxMaxResults)

		var filter storage.Filter
		if input.SessionID != "" {
			filter = storage.Filter{session.SessionIDKey: input.SessionID}
		}

		matches, err := searcher.Search(ctx, input.Query, maxResults, filter)
		if err != nil {
			return nil, SearchRecordsOutput{}, fmt.Errorf("search failed: %w", err)
		}

		if len(matches) == 0 {
			return nil, SearchRecordsOutput{
				Results: []RecordResult{},
				Message: "No matching records found.",
			}, nil
		}

		results := make([]RecordResult, 0, len(matches))
		for _, m := range matches {
			results = append(results, toRecordResult(m))
		}
		return nil, SearchRecordsOutput{Results: results}, nil
	}
}

func toRecordResult(m storage.Match) RecordResult {
	str := func(key string) string {
		s, _ := m.Metadata[key].(string)
		return s
	}
	return RecordResult{
		ID:       m.ID,
		Score:    m.Score,
		File:     str("file"),
		Type:     str("type"),
		Category: str("category"),
		Summary:  str("summary"),
		Excerpt:  excerpt(m.Text, excerptChars),
	}
}

// excerpt cuts text to at most n runes, ending with an ellipsis when cut.
func excerpt(text string, n int) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:n])) + "..."
}
