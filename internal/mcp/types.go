// Package mcp exposes MediScan consultations as Model Context Protocol tools.
package mcp

import "github.com/bull/mediscan/internal/markdown"

// SummarizeDocumentInput defines the input parameters for the summarize_document tool.
type SummarizeDocumentInput struct {
	// FilePath is the document on the server's filesystem (stdio servers only), or just a
	// file name when ContentBase64 carries the bytes.
	FilePath string `json:"file_path" jsonschema:"path of the medical document (pdf, png, jpg, jpeg or docx)"`
	// ContentBase64 optionally carries the document bytes for remote clients.
	ContentBase64 string `json:"content_base64,omitempty" jsonschema:"base64 encoded document bytes; when set file_path only names the file"`
	// Symptoms are what the patient reports.
	Symptoms string `json:"symptoms,omitempty" jsonschema:"symptoms reported by the patient"`
	// SessionID continues an existing consultation instead of starting one.
	SessionID string `json:"session_id,omitempty" jsonschema:"existing consultation to attach the document to"`
}

// SummarizeDocumentOutput contains the doctor's first read of the document.
type SummarizeDocumentOutput struct {
	SessionID    string `json:"session_id"`
	Document     string `json:"document"`
	DocumentType string `json:"document_type"`
	Summary      string `json:"summary"`
}

// AskFollowupInput defines the input parameters for the ask_followup tool.
type AskFollowupInput struct {
	SessionID string `json:"session_id" jsonschema:"consultation returned by summarize_document"`
	Question  string `json:"question" jsonschema:"the patient's question for the doctor"`
	Symptoms  string `json:"symptoms,omitempty" jsonschema:"updated symptoms, defaults to the ones given with the document"`
}

// AskFollowupOutput contains the answer.
type AskFollowupOutput struct {
	Answer string `json:"answer"`
	// Fallback is true when the model failed and Answer is a placeholder.
	Fallback bool `json:"fallback"`
	// Exchanges is the number of questions asked so far in the session.
	Exchanges int `json:"exchanges"`
}

// SuggestTreatmentInput defines the input parameters for the suggest_treatment tool.
type SuggestTreatmentInput struct {
	SessionID string `json:"session_id" jsonschema:"consultation returned by summarize_document"`
	Symptoms  string `json:"symptoms,omitempty" jsonschema:"updated symptoms"`
}

// SuggestTreatmentOutput contains the treatment plan, whole and split at its headings.
type SuggestTreatmentOutput struct {
	Plan     string             `json:"plan"`
	Sections []markdown.Section `json:"sections"`
}

// SearchRecordsInput defines the input parameters for the search_records tool.
type SearchRecordsInput struct {
	Query      string `json:"query" jsonschema:"what to look for in the indexed medical records"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum number of records to return (1-20, default 5)"`
	SessionID  string `json:"session_id,omitempty" jsonschema:"only search documents uploaded in this consultation"`
}

// SearchRecordsOutput contains the matching records.
type SearchRecordsOutput struct {
	Results []RecordResult `json:"results"`
	Message string         `json:"message,omitempty"`
}

// RecordResult is one indexed document matching a search.
type RecordResult struct {
	ID       string  `json:"id"`
	Score    float64 `json:"score"`
	File     string  `json:"file,omitempty"`
	Type     string  `json:"type,omitempty"`
	Category string  `json:"category,omitempty"`
	Summary  string  `json:"summary,omitempty"`
	Excerpt  string  `json:"excerpt"`
}
