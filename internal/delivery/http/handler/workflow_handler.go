package handler

import (
	"context"
	"errors"

	"quantprep/internal/delivery/http/dto"
	"quantprep/internal/delivery/http/middleware"
	"quantprep/internal/domain/session"
	"quantprep/internal/pkg/response"
	"quantprep/internal/workflow"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// Workflow is the server-driven interview flow.
type Workflow interface {
	Start(ctx context.Context, in workflow.StartInput) (workflow.Snapshot, error)
	Answer(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID, answer string) (workflow.AnswerResult, error)
	Complete(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) (session.Session, error)
	Snapshot(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) (workflow.Snapshot, error)
}

type WorkflowHandler struct {
	wf Workflow
}

type startInterviewRequest struct {
	UserEmail  string `json:"userEmail" validate:"omitempty,email"`
	Role       string `json:"role" validate:"required,oneof=trader researcher analyst"`
	RoundType  string `json:"roundType" validate:"required,oneof=behavioral technical mixed"`
	Difficulty string `json:"difficulty" validate:"required,oneof=easy medium hard"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

func NewWorkflowHandler(wf Workflow) *WorkflowHandler {
	return &WorkflowHandler{wf: wf}
}

func (h *WorkflowHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Post("/", h.Start)
	r.Get("/:id", h.Get)
	r.Post("/:id/answers", h.Answer)
	r.Post("/:id/complete", h.Complete)
}

func (h *WorkflowHandler) Start(c fiber.Ctx) error {
	var req startInterviewRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	id, err := currentIdentity(c, req.UserEmail)
	if err != nil {
		return err
	}

	snap, err := h.wf.Start(c.Context(), workflow.StartInput{
		UserID:     id.UserID,
		Role:       req.Role,
		RoundType:  req.RoundType,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		return mapWorkflowError(err)
	}
	return response.Created(c, dto.NewInterviewResponse(snap))
}

func (h *WorkflowHandler) Get(c fiber.Ctx) error {
	id, err := currentIdentity(c, "")
	if err != nil {
		return err
	}
	sessionID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	snap, err := h.wf.Snapshot(c.Context(), id.UserID, sessionID)
	if err != nil {
		return mapWorkflowError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewInterviewResponse(snap))
}

func (h *WorkflowHandler) Answer(c fiber.Ctx) error {
	id, err := currentIdentity(c, "")
	if err != nil {
		return err
	}
	sessionID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req answerRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	res, err := h.wf.Answer(c.Context(), id.UserID, sessionID, req.Answer)
	if err != nil {
		return mapWorkflowError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewAnswerResponse(res))
}

func (h *WorkflowHandler) Complete(c fiber.Ctx) error {
	id, err := currentIdentity(c, "")
	if err != nil {
		return err
	}
	sessionID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	sess, err := h.wf.Complete(c.Context(), id.UserID, sessionID)
	if err != nil {
		return mapWorkflowError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewSessionResponse(sess))
}

func mapWorkflowError(err error) error {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "Interview not found", nil, err)
	case errors.Is(err, workflow.ErrClosed):
		return middleware.NewAppError(fiber.StatusConflict, "Interview already completed", nil, err)
	default:
		return mapSessionUsecaseError(err)
	}
}
