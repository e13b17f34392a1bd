package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/mediscan/internal/config"
	"github.com/bull/mediscan/internal/session"
)

type fakeSessions struct {
	state        *session.State
	uploadCalls  int
	treatmentErr error
	audioPath    string
	audioErr     error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{state: &session.State{ID: "sess-1", QAs: []session.QA{}}}
}

func (f *fakeSessions) lookup(id string) (*session.State, error) {
	if id != f.state.ID {
		return nil, session.ErrNotFound
	}
	return f.state, nil
}

func (f *fakeSessions) Start(context.Context) (*session.State, error) { return f.state, nil }

func (f *fakeSessions) Get(_ context.Context, id string) (*session.State, error) {
	return f.lookup(id)
}

func (f *fakeSessions) Reset(_ context.Context, id string) (*session.State, error) {
	if _, err := f.lookup(id); err != nil {
		return nil, err
	}
	f.state = &session.State{ID: id, QAs: []session.QA{}}
	return f.state, nil
}

func (f *fakeSessions) End(_ context.Context, id string) error {
	_, err := f.lookup(id)
	return err
}

func (f *fakeSessions) Upload(_ context.Context, id, filename string, data []byte, symptoms string) (*session.State, error) {
	s, err := f.lookup(id)
	if err != nil {
		return nil, err
	}
	f.uploadCalls++
	if len(data) == 0 {
		return nil, session.ErrUnreadableDocument
	}
	s.DocumentName = filename
	s.Symptoms = symptoms
	s.Summary = "Your **hemoglobin** is low."
	s.ProcessingComplete = true
	return s, nil
}

func (f *fakeSessions) Ask(_ context.Context, id, question, _ string) (*session.QA, error) {
	s, err := f.lookup(id)
	if err != nil {
		return nil, err
	}
	if !s.ProcessingComplete {
		return nil, session.ErrNotReady
	}
	qa := session.QA{Question: question, Answer: "It is mild.", AskedAt: time.Now()}
	s.QAs = append(s.QAs, qa)
	return &qa, nil
}

func (f *fakeSessions) Treatment(_ context.Context, id, _ string) (*session.State, error) {
	s, err := f.lookup(id)
	if err != nil {
		return nil, err
	}
	if f.treatmentErr != nil {
		return nil, f.treatmentErr
	}
	s.TreatmentPlan = "## Medication\n\nIron daily."
	return s, nil
}

func (f *fakeSessions) ReadAloud(_ context.Context, id string) (string, error) {
	if _, err := f.lookup(id); err != nil {
		return "", err
	}
	return f.audioPath, f.audioErr
}

type fakeHealth struct{ err error }

func (f fakeHealth) Health(context.Context) error { return f.err }

func newTestServer(sessions Sessions, health HealthChecker) *Server {
	return New(config.ServerConfig{Port: "0", BodyLimitMB: 1, RequestTimeout: 5, AllowOrigins: "*"},
		Deps{Sessions: sessions, Health: health}, nil)
}

func do(t *testing.T, srv *Server, req *http.Request) (*http.Response, Response) {
	t.Helper()
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)

	var env Response
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp, env
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, path, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("symptoms", "tired"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestCreateAndShowSession(t *testing.T) {
	srv := newTestServer(newFakeSessions(), nil)

	resp, env := do(t, srv, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, env.Success)

	resp, env = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/sessions/sess-1", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := env.Data.(map[string]any)
	assert.Equal(t, "sess-1", data["id"])

	resp, env = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/sessions/nope", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, session.ErrNotFound.Error(), env.Message)
}

func TestUpload(t *testing.T) {
	sessions := newFakeSessions()
	srv := newTestServer(sessions, nil)

	resp, env := do(t, srv, uploadRequest(t, "/api/sessions/sess-1/document", "labs.pdf", []byte("%PDF")))
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)

	data := env.Data.(map[string]any)
	assert.Equal(t, "labs.pdf", data["document_name"])
	assert.Equal(t, "tired", data["symptoms"])
	assert.Contains(t, data["summary_html"], "<strong>hemoglobin</strong>")
}

func TestUpload_RejectsUnsupportedExtension(t *testing.T) {
	sessions := newFakeSessions()
	srv := newTestServer(sessions, nil)

	resp, env := do(t, srv, uploadRequest(t, "/api/sessions/sess-1/document", "notes.txt", []byte("hello")))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, env.Message, "unsupported file type")
	assert.Zero(t, sessions.uploadCalls, "rejected before reaching the session")
}

func TestUpload_MissingFile(t *testing.T) {
	srv := newTestServer(newFakeSessions(), nil)

	resp, env := do(t, srv, jsonRequest(http.MethodPost, "/api/sessions/sess-1/document", `{}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "file is required", env.Message)
}

func TestUpload_Unreadable(t *testing.T) {
	srv := newTestServer(newFakeSessions(), nil)

	resp, env := do(t, srv, uploadRequest(t, "/api/sessions/sess-1/document", "scan.png", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, env.Message, "Unable to properly review the document")
}

func TestAsk(t *testing.T) {
	sessions := newFakeSessions()
	srv := newTestServer(sessions, nil)

	resp, env := do(t, srv, jsonRequest(http.MethodPost, "/api/sessions/sess-1/questions", `{"question":"Is it bad?"}`))
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "no document reviewed yet")
	assert.Equal(t, session.ErrNotReady.Error(), env.Message)

	sessions.state.ProcessingComplete = true
	resp, env = do(t, srv, jsonRequest(http.MethodPost, "/api/sessions/sess-1/questions", `{"question":"Is it bad?"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "It is mild.", env.Data.(map[string]any)["answer"])
}

func TestAsk_Validation(t *testing.T) {
	sessions := newFakeSessions()
	sessions.state.ProcessingComplete = true
	srv := newTestServer(sessions, nil)

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{name: "empty question", body: `{"question":"  "}`, message: session.ErrEmptyQuestion.Error()},
		{name: "too long", body: `{"question":"` + strings.Repeat("a", 2001) + `"}`, message: "question must be at most 2000 characters"},
		{name: "bad json", body: `{"question":`, message: "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, env := do(t, srv, jsonRequest(http.MethodPost, "/api/sessions/sess-1/questions", tt.body))
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.message, env.Message)
		})
	}
	assert.Empty(t, sessions.state.QAs)
}

func TestTreatment(t *testing.T) {
	sessions := newFakeSessions()
	srv := newTestServer(sessions, nil)

	resp, env := do(t, srv, httptest.NewRequest(http.MethodPost, "/api/sessions/sess-1/treatment", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	data := env.Data.(map[string]any)
	assert.Contains(t, data["treatment_html"], "<h2")
	sections := data["treatment_sections"].([]any)
	require.Len(t, sections, 1)
	assert.Equal(t, "Medication", sections[0].(map[string]any)["heading"])
}

func TestTreatment_ModelFailure(t *testing.T) {
	sessions := newFakeSessions()
	sessions.treatmentErr = errors.Join(session.ErrNoTreatment, errors.New("rate limited"))
	srv := newTestServer(sessions, nil)

	resp, env := do(t, srv, httptest.NewRequest(http.MethodPost, "/api/sessions/sess-1/treatment", nil))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, session.ErrNoTreatment.Error(), env.Message, "internal cause is not leaked")
}

func TestAudio(t *testing.T) {
	sessions := newFakeSessions()
	sessions.audioPath = filepath.Join(t.TempDir(), "sess-1_treatment_suggestion.mp3")
	require.NoError(t, os.WriteFile(sessions.audioPath, []byte("ID3 fake mp3"), 0o644))
	srv := newTestServer(sessions, nil)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodPost, "/api/sessions/sess-1/audio", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ID3 fake mp3", string(body))
}

func TestAudio_Failure(t *testing.T) {
	sessions := newFakeSessions()
	sessions.audioErr = session.ErrAudioNotFound
	srv := newTestServer(sessions, nil)

	resp, env := do(t, srv, httptest.NewRequest(http.MethodPost, "/api/sessions/sess-1/audio", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Audio file not found.", env.Message)
}

func TestResetAndDelete(t *testing.T) {
	sessions := newFakeSessions()
	sessions.state.Summary = "old"
	srv := newTestServer(sessions, nil)

	resp, env := do(t, srv, httptest.NewRequest(http.MethodPost, "/api/sessions/sess-1/reset", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, hasSummary := env.Data.(map[string]any)["summary"]
	assert.False(t, hasSummary)

	resp, _ = do(t, srv, httptest.NewRequest(http.MethodDelete, "/api/sessions/sess-1", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		health HealthChecker
		status int
		store  string
	}{
		{name: "healthy", health: fakeHealth{}, status: http.StatusOK, store: "connected"},
		{name: "unhealthy", health: fakeHealth{err: errors.New("down")}, status: http.StatusServiceUnavailable, store: "disconnected"},
		{name: "no store", status: http.StatusOK, store: "not configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(newFakeSessions(), tt.health)
			resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			var body HealthResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.store, body.VectorStore)
			assert.NotEmpty(t, body.Timestamp)
		})
	}
}

func TestPage(t *testing.T) {
	srv := newTestServer(newFakeSessions(), nil)
	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "<title>MediScan</title>")
}

func TestStatusFor(t *testing.T) {
	code, msg := statusFor(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.NotContains(t, msg, "boom")
}
