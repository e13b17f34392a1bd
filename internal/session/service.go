package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bull/mediscan/internal/consult"
	"github.com/bull/mediscan/internal/extract"
	"github.com/bull/mediscan/internal/storage"
)

// Extractor reads uploaded bytes. Implemented by *extract.Extractor.
type Extractor interface {
	Extract(ctx context.Context, data []byte, filename string) (*extract.Document, error)
}

// Indexer stores document text for later retrieval. Implemented by *indexer.Indexer.
type Indexer interface {
	Index(ctx context.Context, text string, metadata map[string]any) (string, error)
}

// Retriever finds the stored document closest to a question among records matching filter.
// Implemented by *indexer.Retriever.
type Retriever interface {
	Query(ctx context.Context, text string, filter storage.Filter) ([]storage.Match, error)
}

// Consultant runs the doctor prompts. Implemented by *consult.Engine.
type Consultant interface {
	Summarize(ctx context.Context, text, symptoms string) consult.Reply
	AnswerFollowUp(ctx context.Context, question, symptoms, document string, exchanges []consult.Exchange) consult.Reply
	SuggestTreatment(ctx context.Context, summary, symptoms string, exchanges []consult.Exchange) consult.Reply
}

// Synthesizer turns text into audio. Implemented by *speech.Synthesizer.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// AudioWriter persists audio and returns its path. Implemented by *speech.Writer.
type AudioWriter interface {
	SaveFor(id string, audio []byte) (string, error)
}

// SessionIDKey is the record metadata key holding the session a document was uploaded in.
// Follow-up retrieval is restricted to it.
const SessionIDKey = "session_id"

// Deps groups the components a Service drives.
type Deps struct {
	Store       Store
	Extractor   Extractor
	Indexer     Indexer
	Retriever   Retriever
	Consultant  Consultant
	Synthesizer Synthesizer // optional, ReadAloud fails without it
	Audio       AudioWriter // optional, ReadAloud fails without it
}

// Service runs user actions against session state. Actions on the same session are
// serialized; different sessions proceed concurrently.
type Service struct {
	deps   Deps
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is held in Service.locks only while some action on the session is running or
// waiting.
type sessionLock struct {
	sync.Mutex
	refs int
}

// NewService creates a Service.
func NewService(deps Deps, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{deps: deps, logger: logger, locks: make(map[string]*sessionLock)}
}

// lock acquires the per-session mutex and returns its release function. The entry is
// dropped when the last holder releases it, so expired sessions leave nothing behind.
func (s *Service) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// lockCount returns the number of sessions with an action in flight.
func (s *Service) lockCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

func (s *Service) save(ctx context.Context, state *State) error {
	state.UpdatedAt = time.Now().UTC()
	if err := s.deps.Store.Put(ctx, state); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Start opens a new, empty session.
func (s *Service) Start(ctx context.Context) (*State, error) {
	state := newState(uuid.New().String())
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}
	s.logger.Info("Session started", "session", state.ID)
	return state, nil
}

// Get returns the session's current state.
func (s *Service) Get(ctx context.Context, id string) (*State, error) {
	return s.deps.Store.Get(ctx, id)
}

// Reset discards everything in the session and returns it empty under the same ID.
func (s *Service) Reset(ctx context.Context, id string) (*State, error) {
	unlock := s.lock(id)
	defer unlock()

	if _, err := s.deps.Store.Get(ctx, id); err != nil {
		return nil, err
	}
	state := newState(id)
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}
	s.logger.Info("Session reset", "session", id)
	return state, nil
}

// End deletes the session.
func (s *Service) End(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()

	return s.deps.Store.Delete(ctx, id)
}

// Upload reviews a document: extract its text, index it and compute the summary. An upload
// after review has completed is ignored and the current state returned. Indexing failures
// are logged and do not fail the upload.
func (s *Service) Upload(ctx context.Context, id, filename string, data []byte, symptoms string) (*State, error) {
	unlock := s.lock(id)
	defer unlock()

	state, err := s.deps.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if state.ProcessingComplete {
		return state, nil
	}

	doc, err := s.deps.Extractor.Extract(ctx, data, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadableDocument, err)
	}
	if !doc.HasText() {
		return nil, ErrUnreadableDocument
	}

	metadata := doc.Metadata()
	metadata["file"] = filename
	metadata[SessionIDKey] = id
	docID, err := s.deps.Indexer.Index(ctx, doc.Text, metadata)
	if err != nil {
		s.logger.Warn("Error adding document to vector store", "session", id, "error", err)
	}

	if state.Summary == "" {
		reply := s.deps.Consultant.Summarize(ctx, doc.Text, symptoms)
		state.Summary = reply.Text
	}

	state.ProcessingComplete = true
	state.DocumentName = filename
	state.DocumentKind = string(doc.Kind)
	state.DocumentID = docID
	state.Symptoms = symptoms

	if err := s.save(ctx, state); err != nil {
		return nil, err
	}
	s.logger.Info("Document reviewed", "session", id, "file", filename, "type", doc.Kind)
	return state, nil
}

// Ask answers a follow-up question using the retrieved document (or the summary when
// nothing is retrieved) and the earlier exchanges as context, then appends it to the log.
func (s *Service) Ask(ctx context.Context, id, question, symptoms string) (*QA, error) {
	unlock := s.lock(id)
	defer unlock()

	state, err := s.deps.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !state.ProcessingComplete {
		return nil, ErrNotReady
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if strings.TrimSpace(symptoms) == "" {
		symptoms = state.Symptoms
	}

	document := s.followUpDocument(ctx, state, question)
	reply := s.deps.Consultant.AnswerFollowUp(ctx, question, symptoms, document, state.Exchanges())

	qa := QA{
		Question: question,
		Answer:   reply.Text,
		Fallback: reply.Fallback,
		AskedAt:  time.Now().UTC(),
	}
	state.QAs = append(state.QAs, qa)
	state.Symptoms = symptoms

	if err := s.save(ctx, state); err != nil {
		return nil, err
	}
	return &qa, nil
}

// followUpDocument returns the best matching text among the documents uploaded in this
// session, or the summary when nothing is retrieved.
func (s *Service) followUpDocument(ctx context.Context, state *State, question string) string {
	matches, err := s.deps.Retriever.Query(ctx, question, storage.Filter{SessionIDKey: state.ID})
	if err != nil {
		s.logger.Warn("Error querying vector store", "session", state.ID, "error", err)
		return state.Summary
	}
	if len(matches) > 0 && matches[0].Text != "" {
		return matches[0].Text
	}
	return state.Summary
}

// Treatment computes the treatment plan once per session. When the model fails the plan
// stays absent and the error wraps ErrNoTreatment, so the action can be retried.
func (s *Service) Treatment(ctx context.Context, id, symptoms string) (*State, error) {
	unlock := s.lock(id)
	defer unlock()

	state, err := s.deps.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !state.ProcessingComplete {
		return nil, ErrNotReady
	}
	if state.TreatmentPlan != "" {
		return state, nil
	}
	if strings.TrimSpace(symptoms) != "" {
		state.Symptoms = symptoms
	}

	reply := s.deps.Consultant.SuggestTreatment(ctx, state.Summary, state.Symptoms, state.Exchanges())
	if reply.Text == "" {
		if reply.Err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoTreatment, reply.Err)
		}
		return nil, ErrNoTreatment
	}

	state.TreatmentPlan = reply.Text
	if err := s.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// ReadAloud synthesizes the treatment plan and returns the path of the audio file.
func (s *Service) ReadAloud(ctx context.Context, id string) (string, error) {
	unlock := s.lock(id)
	defer unlock()

	state, err := s.deps.Store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if state.TreatmentPlan == "" {
		return "", ErrNoTreatment
	}
	if s.deps.Synthesizer == nil || s.deps.Audio == nil {
		return "", fmt.Errorf("%w: speech synthesis is not configured", ErrAudioNotFound)
	}

	audio, err := s.deps.Synthesizer.Synthesize(ctx, state.TreatmentPlan)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAudioNotFound, err)
	}
	path, err := s.deps.Audio.SaveFor(id, audio)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAudioNotFound, err)
	}

	state.AudioPath = path
	if err := s.save(ctx, state); err != nil {
		return "", err
	}
	return path, nil
}

// IsClientError reports whether err is caused by the request rather than a failing service.
func IsClientError(err error) bool {
	return errors.Is(err, ErrEmptyQuestion) ||
		errors.Is(err, ErrNotReady) ||
		errors.Is(err, ErrUnreadableDocument) ||
		errors.Is(err, extract.ErrUnsupported)
}
