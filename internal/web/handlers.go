package web

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bull/mediscan/internal/extract"
	"github.com/bull/mediscan/internal/markdown"
	"github.com/bull/mediscan/internal/session"
)

// Sessions is the consultation API behind the routes. Implemented by *session.Service.
type Sessions interface {
	Start(ctx context.Context) (*session.State, error)
	Get(ctx context.Context, id string) (*session.State, error)
	Reset(ctx context.Context, id string) (*session.State, error)
	End(ctx context.Context, id string) error
	Upload(ctx context.Context, id, filename string, data []byte, symptoms string) (*session.State, error)
	Ask(ctx context.Context, id, question, symptoms string) (*session.QA, error)
	Treatment(ctx context.Context, id, symptoms string) (*session.State, error)
	ReadAloud(ctx context.Context, id string) (string, error)
}

// AskRequest is the body of POST /api/sessions/:id/questions.
type AskRequest struct {
	Question string `json:"question" form:"question" validate:"required,max=2000"`
	Symptoms string `json:"symptoms" form:"symptoms" validate:"max=2000"`
}

// TreatmentRequest is the body of POST /api/sessions/:id/treatment.
type TreatmentRequest struct {
	Symptoms string `json:"symptoms" form:"symptoms" validate:"max=2000"`
}

// StateView is a session as the page renders it.
type StateView struct {
	*session.State
	SummaryHTML       string             `json:"summary_html,omitempty"`
	TreatmentHTML     string             `json:"treatment_html,omitempty"`
	TreatmentSections []markdown.Section `json:"treatment_sections,omitempty"`
}

type sessionController struct {
	sessions Sessions
	renderer *markdown.Renderer
	logger   *slog.Logger
	timeout  time.Duration
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sessions")
	h.Post("", c.Create)
	h.Get(":id", c.Show)
	h.Delete(":id", c.Delete)
	h.Post(":id/reset", c.Reset)
	h.Post(":id/document", c.Upload)
	h.Post(":id/questions", c.Ask)
	h.Post(":id/treatment", c.Treatment)
	h.Post(":id/audio", c.Audio)
}

// requestContext derives the context for model and store calls, bounded by the configured
// request timeout.
func (c *sessionController) requestContext(ctx *fiber.Ctx) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx.UserContext())
	}
	return context.WithTimeout(ctx.UserContext(), c.timeout)
}

func (c *sessionController) view(state *session.State) StateView {
	v := StateView{State: state}
	if state.Summary != "" {
		if html, err := c.renderer.RenderHTML(state.Summary); err == nil {
			v.SummaryHTML = html
		}
	}
	if state.TreatmentPlan != "" {
		if html, err := c.renderer.RenderHTML(state.TreatmentPlan); err == nil {
			v.TreatmentHTML = html
		}
		v.TreatmentSections = c.renderer.Sections(state.TreatmentPlan)
	}
	return v
}

func (c *sessionController) Create(ctx *fiber.Ctx) error {
	state, err := c.sessions.Start(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(SuccessResponse("Session started", c.view(state)))
}

func (c *sessionController) Show(ctx *fiber.Ctx) error {
	state, err := c.sessions.Get(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(SuccessResponse("Success show session", c.view(state)))
}

func (c *sessionController) Delete(ctx *fiber.Ctx) error {
	if err := c.sessions.End(ctx.UserContext(), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(SuccessResponse("Session ended", nil))
}

func (c *sessionController) Reset(ctx *fiber.Ctx) error {
	state, err := c.sessions.Reset(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(SuccessResponse("Session restarted", c.view(state)))
}

// Upload accepts a multipart "file" and optional "symptoms". The extension whitelist is
// enforced before the document reaches the extractor.
func (c *sessionController) Upload(ctx *fiber.Ctx) error {
	header, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}

	name := filepath.Base(header.Filename)
	if !extract.IsSupported(name) {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf(
			"unsupported file type, upload one of: %s", strings.Join(extract.SupportedExtensions, ", ")))
	}

	f, err := header.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	state, err := c.sessions.Upload(reqCtx, ctx.Params("id"), name, data, ctx.FormValue("symptoms"))
	if err != nil {
		return err
	}
	return ctx.JSON(SuccessResponse("Document reviewed", c.view(state)))
}

func (c *sessionController) Ask(ctx *fiber.Ctx) error {
	var req AskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return session.ErrEmptyQuestion
	}
	if err := validateRequest(req); err != nil {
		return err
	}

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	qa, err := c.sessions.Ask(reqCtx, ctx.Params("id"), req.Question, req.Symptoms)
	if err != nil {
		return err
	}
	return ctx.JSON(SuccessResponse("Doctor answered", qa))
}

func (c *sessionController) Treatment(ctx *fiber.Ctx) error {
	var req TreatmentRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	if err := validateRequest(req); err != nil {
		return err
	}

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	state, err := c.sessions.Treatment(reqCtx, ctx.Params("id"), req.Symptoms)
	if err != nil {
		return err
	}
	return ctx.JSON(SuccessResponse("Treatment suggested", c.view(state)))
}

// Audio synthesizes the treatment plan and streams the mp3.
func (c *sessionController) Audio(ctx *fiber.Ctx) error {
	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	path, err := c.sessions.ReadAloud(reqCtx, ctx.Params("id"))
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "audio/mpeg")
	if err := ctx.SendFile(path); err != nil {
		return fmt.Errorf("%w: %w", session.ErrAudioNotFound, err)
	}
	return nil
}
