package handler

import (
	"encoding/json"
	"errors"
	"fmt"

	"quantprep/internal/delivery/http/dto"
	"quantprep/internal/delivery/http/middleware"
	"quantprep/internal/pkg/response"
	ucsession "quantprep/internal/usecase/session"

	"github.com/gofiber/fiber/v3"
)

type SessionHandler struct {
	uc ucsession.Usecase
}

type createSessionRequest struct {
	UserEmail  string `json:"userEmail" validate:"omitempty,email"`
	Role       string `json:"role" validate:"required,oneof=trader researcher analyst"`
	RoundType  string `json:"roundType" validate:"required,oneof=behavioral technical mixed"`
	Difficulty string `json:"difficulty" validate:"required,oneof=easy medium hard"`
}

type saveQARequest struct {
	Question   string  `json:"question" validate:"required"`
	Answer     *string `json:"answer"`
	AIScore    *int    `json:"aiScore" validate:"omitempty,min=0,max=10"`
	AIFeedback *string `json:"aiFeedback"`
}

type completeSessionRequest struct {
	Score    *int            `json:"score" validate:"omitempty,min=0,max=10"`
	Feedback json.RawMessage `json:"feedback"`
}

func NewSessionHandler(uc ucsession.Usecase) *SessionHandler {
	return &SessionHandler{uc: uc}
}

func (h *SessionHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/:id", h.Get)
	r.Get("/:id/report", h.Report)
	r.Post("/:id/qas", h.SaveQA)
	r.Post("/:id/complete", h.Complete)
}

func (h *SessionHandler) Create(c fiber.Ctx) error {
	var req createSessionRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	id, err := currentIdentity(c, req.UserEmail)
	if err != nil {
		return err
	}

	sess, err := h.uc.Create(c.Context(), ucsession.CreateInput{
		UserID:     id.UserID,
		Role:       req.Role,
		RoundType:  req.RoundType,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		return mapSessionUsecaseError(err)
	}
	return response.Created(c, dto.NewSessionResponse(sess))
}

func (h *SessionHandler) SaveQA(c fiber.Ctx) error {
	id, err := currentIdentity(c, "")
	if err != nil {
		return err
	}
	sessionID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req saveQARequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	qa, err := h.uc.SaveQA(c.Context(), id.UserID, ucsession.SaveQAInput{
		SessionID:  sessionID,
		Question:   req.Question,
		Answer:     req.Answer,
		AIScore:    req.AIScore,
		AIFeedback: req.AIFeedback,
	})
	if err != nil {
		return mapSessionUsecaseError(err)
	}
	return response.Created(c, dto.NewQAResponse(qa))
}

func (h *SessionHandler) Complete(c fiber.Ctx) error {
	id, err := currentIdentity(c, "")
	if err != nil {
		return err
	}
	sessionID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req completeSessionRequest
	if len(c.Body()) > 0 {
		if err := bindBody(c, &req); err != nil {
			return err
		}
	}

	sess, err := h.uc.Complete(c.Context(), id.UserID, ucsession.CompleteInput{
		SessionID: sessionID,
		Score:     req.Score,
		Feedback:  req.Feedback,
	})
	if err != nil {
		return mapSessionUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewSessionResponse(sess))
}

func (h *SessionHandler) List(c fiber.Ctx) error {
	id, err := currentIdentity(c, c.Query("userEmail"))
	if err != nil {
		return err
	}

	list, err := h.uc.List(c.Context(), id.UserID)
	if err != nil {
		return mapSessionUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewSessionListResponse(list))
}

func (h *SessionHandler) Get(c fiber.Ctx) error {
	id, err := currentIdentity(c, "")
	if err != nil {
		return err
	}
	sessionID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	d, err := h.uc.Get(c.Context(), id.UserID, sessionID)
	if err != nil {
		return mapSessionUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewSessionDetailResponse(d.Session, d.QAs))
}

func (h *SessionHandler) Report(c fiber.Ctx) error {
	id, err := currentIdentity(c, "")
	if err != nil {
		return err
	}
	sessionID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	text, err := h.uc.Report(c.Context(), id.UserID, sessionID)
	if err != nil {
		return mapSessionUsecaseError(err)
	}
	return response.Attachment(c, fmt.Sprintf("interview-report-%s.txt", sessionID), text)
}

func mapSessionUsecaseError(err error) error {
	if err == nil {
		return nil
	}

	var qe *ucsession.QuotaError
	switch {
	case errors.As(err, &qe):
		return middleware.NewAppError(fiber.StatusForbidden, ucsession.QuotaMessage, response.QuotaData{Limit: qe.Limit, Used: qe.Used}, err)
	case errors.Is(err, ucsession.ErrQuotaExceeded):
		return middleware.NewAppError(fiber.StatusForbidden, ucsession.QuotaMessage, nil, err)
	case errors.Is(err, ucsession.ErrInvalidInput):
		return middleware.NewAppError(fiber.StatusBadRequest, err.Error(), nil, err)
	case errors.Is(err, ucsession.ErrNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "Session not found", nil, err)
	case errors.Is(err, ucsession.ErrClosed):
		return middleware.NewAppError(fiber.StatusConflict, "Session already completed", nil, err)
	case errors.Is(err, ucsession.ErrQuestionLimit):
		return middleware.NewAppError(fiber.StatusConflict, "Session question limit reached", nil, err)
	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
}
