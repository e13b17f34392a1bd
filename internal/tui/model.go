// Package tui is a terminal front end for a consultation.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bull/mediscan/internal/extract"
	"github.com/bull/mediscan/internal/session"
)

// Consultation is the TUI-facing subset of the session service.
type Consultation interface {
	Start(ctx context.Context) (*session.State, error)
	Reset(ctx context.Context, id string) (*session.State, error)
	Upload(ctx context.Context, id, filename string, data []byte, symptoms string) (*session.State, error)
	Ask(ctx context.Context, id, question, symptoms string) (*session.QA, error)
	Treatment(ctx context.Context, id, symptoms string) (*session.State, error)
	ReadAloud(ctx context.Context, id string) (string, error)
}

type stage int

const (
	stageDocument stage = iota // waiting for a file path
	stageSymptoms              // waiting for symptoms
	stageChat                  // document reviewed, asking questions
)

// Messages produced by the commands that call the service.
type (
	startedMsg   struct{ state *session.State }
	reviewedMsg  struct{ state *session.State }
	answeredMsg  struct{ qa *session.QA }
	treatmentMsg struct{ state *session.State }
	audioMsg     struct{ path string }
	errMsg       struct{ err error }
)

// Model is the Bubble Tea model for a consultation.
type Model struct {
	ctx      context.Context
	service  Consultation
	input    textinput.Model
	viewport viewport.Model

	stage    stage
	state    *session.State
	path     string
	symptoms string
	status   string
	busy     bool
	ready    bool
}

// New creates a model. ctx bounds every service call.
func New(ctx context.Context, service Consultation) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 0
	m := Model{
		ctx:      ctx,
		service:  service,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   "Starting consultation...",
	}
	m.setPlaceholder()
	return m
}

// Init starts a session and the cursor blink.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.startCmd())
}

func (m *Model) setPlaceholder() {
	switch m.stage {
	case stageDocument:
		m.input.Placeholder = "Path to your medical document (pdf, png, jpg, jpeg, docx)"
	case stageSymptoms:
		m.input.Placeholder = "Describe your symptoms (optional), then press Enter"
	default:
		m.input.Placeholder = "Ask the doctor a question"
	}
}

func (m Model) startCmd() tea.Cmd {
	return func() tea.Msg {
		state, err := m.service.Start(m.ctx)
		if err != nil {
			return errMsg{err}
		}
		return startedMsg{state}
	}
}

func (m Model) uploadCmd() tea.Cmd {
	id, path, symptoms := m.state.ID, m.path, m.symptoms
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return errMsg{err}
		}
		state, err := m.service.Upload(m.ctx, id, filepath.Base(path), data, symptoms)
		if err != nil {
			return errMsg{err}
		}
		return reviewedMsg{state}
	}
}

func (m Model) askCmd(question string) tea.Cmd {
	id, symptoms := m.state.ID, m.symptoms
	return func() tea.Msg {
		qa, err := m.service.Ask(m.ctx, id, question, symptoms)
		if err != nil {
			return errMsg{err}
		}
		return answeredMsg{qa}
	}
}

func (m Model) treatmentCmd() tea.Cmd {
	id, symptoms := m.state.ID, m.symptoms
	return func() tea.Msg {
		state, err := m.service.Treatment(m.ctx, id, symptoms)
		if err != nil {
			return errMsg{err}
		}
		return treatmentMsg{state}
	}
}

func (m Model) audioCmd() tea.Cmd {
	id := m.state.ID
	return func() tea.Msg {
		path, err := m.service.ReadAloud(m.ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return audioMsg{path}
	}
}

func (m Model) resetCmd() tea.Cmd {
	id := m.state.ID
	return func() tea.Msg {
		state, err := m.service.Reset(m.ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return startedMsg{state}
	}
}

// Update handles key, window and service result messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header + help, status, input, spacer
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil

	case startedMsg:
		m.busy = false
		m.state = msg.state
		m.stage = stageDocument
		m.path, m.symptoms = "", ""
		m.status = "Consultation started. Enter the path to your document."
		m.setPlaceholder()
		m.refresh()
		return m, nil

	case reviewedMsg:
		m.busy = false
		m.state = msg.state
		m.stage = stageChat
		m.status = "Document reviewed. Ask a question, ctrl+t for treatment."
		m.setPlaceholder()
		m.refresh()
		return m, nil

	case answeredMsg:
		m.busy = false
		m.state.QAs = append(m.state.QAs, *msg.qa)
		m.status = "Doctor answered."
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil

	case treatmentMsg:
		m.busy = false
		m.state = msg.state
		m.status = "Treatment suggested. ctrl+r reads it aloud."
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil

	case audioMsg:
		m.busy = false
		m.state.AudioPath = msg.path
		m.status = "Audio saved to " + msg.path
		return m, nil

	case errMsg:
		m.busy = false
		m.status = "Error: " + errorText(msg.err)
		if errors.Is(msg.err, session.ErrUnreadableDocument) || errors.Is(msg.err, os.ErrNotExist) {
			m.stage = stageDocument
			m.setPlaceholder()
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if m.busy || m.state == nil {
			break
		}
		switch msg.String() {
		case "enter":
			return m.submit()
		case "ctrl+t":
			if m.stage == stageChat {
				m.busy = true
				m.status = "Preparing treatment suggestions..."
				return m, m.treatmentCmd()
			}
		case "ctrl+r":
			if m.stage == stageChat {
				m.busy = true
				m.status = "Synthesizing audio..."
				return m, m.audioCmd()
			}
		case "ctrl+n":
			m.busy = true
			m.status = "Restarting..."
			return m, m.resetCmd()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles Enter for the current stage.
func (m Model) submit() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())

	switch m.stage {
	case stageDocument:
		if value == "" {
			return m, nil
		}
		if !extract.IsSupported(value) {
			m.status = "Unsupported file type, use one of: " + strings.Join(extract.SupportedExtensions, ", ")
			return m, nil
		}
		m.path = value
		m.stage = stageSymptoms
		m.input.Reset()
		m.setPlaceholder()
		m.status = "Document: " + filepath.Base(value)
		return m, nil

	case stageSymptoms:
		m.symptoms = value
		m.input.Reset()
		m.busy = true
		m.status = "Reviewing your document..."
		return m, m.uploadCmd()

	default:
		if value == "" {
			m.status = "Error: " + session.ErrEmptyQuestion.Error()
			return m, nil
		}
		m.input.Reset()
		m.busy = true
		m.status = "Asking the doctor..."
		return m, m.askCmd(value)
	}
}

func errorText(err error) string {
	if errors.Is(err, session.ErrUnreadableDocument) {
		return "Unable to properly review the document. Please try again with a different file."
	}
	return err.Error()
}

// View renders the header, transcript, input and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("MediScan")
	help := helpStyle.Render("enter submit | ctrl+t treatment | ctrl+r read aloud | ctrl+n restart | ctrl+c quit")
	transcript := transcriptStyle.Render(m.viewport.View())
	input := inputStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + help + "\n" + transcript + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
}

func (m Model) renderTranscript() string {
	if m.state == nil || m.state.Summary == "" {
		return "No document reviewed yet."
	}

	var b strings.Builder
	b.WriteString(labelStyle.Render("Summary"))
	fmt.Fprintf(&b, "\n%s\n", m.state.Summary)

	for _, qa := range m.state.QAs {
		fmt.Fprintf(&b, "\n%s %s\n%s %s\n",
			labelStyle.Render("Q:"), qa.Question,
			labelStyle.Render("A:"), qa.Answer)
	}

	if m.state.TreatmentPlan != "" {
		b.WriteString("\n" + labelStyle.Render("Treatment suggestions"))
		fmt.Fprintf(&b, "\n%s\n", m.state.TreatmentPlan)
	}
	return b.String()
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	helpStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	labelStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
