// Package session keeps per-user consultation state and runs the upload, ask, treatment and
// read-aloud actions against it.
package session

import (
	"slices"
	"time"

	"github.com/bull/mediscan/internal/consult"
)

// QA is one follow-up question and the doctor's answer.
type QA struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Fallback bool      `json:"fallback,omitempty"`
	AskedAt  time.Time `json:"asked_at"`
}

// State is everything remembered about one consultation.
type State struct {
	ID                 string    `json:"id"`
	Summary            string    `json:"summary,omitempty"`
	QAs                []QA      `json:"qas"`
	TreatmentPlan      string    `json:"treatment_plan,omitempty"`
	ProcessingComplete bool      `json:"processing_complete"`
	DocumentName       string    `json:"document_name,omitempty"`
	DocumentKind       string    `json:"document_kind,omitempty"`
	DocumentID         string    `json:"document_id,omitempty"`
	Symptoms           string    `json:"symptoms,omitempty"`
	AudioPath          string    `json:"audio_path,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func newState(id string) *State {
	now := time.Now().UTC()
	return &State{ID: id, QAs: []QA{}, CreatedAt: now, UpdatedAt: now}
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	c.QAs = slices.Clone(s.QAs)
	if c.QAs == nil {
		c.QAs = []QA{}
	}
	return &c
}

// Exchanges returns the Q&A log in the form the consultation prompts take.
func (s *State) Exchanges() []consult.Exchange {
	out := make([]consult.Exchange, len(s.QAs))
	for i, qa := range s.QAs {
		out[i] = consult.Exchange{Question: qa.Question, Answer: qa.Answer}
	}
	return out
}
