package handler

import (
	"errors"

	"quantprep/internal/delivery/http/middleware"
	"quantprep/internal/pkg/response"
	ucinterview "quantprep/internal/usecase/interview"

	"github.com/gofiber/fiber/v3"
)

// InterviewHandler exposes question generation and answer evaluation.
type InterviewHandler struct {
	uc ucinterview.Usecase
}

type generateQuestionsRequest struct {
	Role       string `json:"role" validate:"required,oneof=trader researcher analyst"`
	RoundType  string `json:"roundType" validate:"required,oneof=behavioral technical mixed"`
	Difficulty string `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Count      int    `json:"count" validate:"min=0,max=20"`
}

type evaluateAnswerRequest struct {
	Question       string   `json:"question" validate:"required"`
	Answer         string   `json:"answer"`
	Role           string   `json:"role" validate:"required,oneof=trader researcher analyst"`
	RoundType      string   `json:"roundType" validate:"required,oneof=behavioral technical mixed"`
	Difficulty     string   `json:"difficulty" validate:"required,oneof=easy medium hard"`
	ExpectedPoints []string `json:"expectedPoints"`
}

func NewInterviewHandler(uc ucinterview.Usecase) *InterviewHandler {
	return &InterviewHandler{uc: uc}
}

// RegisterRoutes mounts both procedures on r with auth applied per route.
func (h *InterviewHandler) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	if r == nil {
		return
	}

	r.Post("/questions/generate", auth, h.GenerateQuestions)
	r.Post("/answers/evaluate", auth, h.EvaluateAnswer)
}

func (h *InterviewHandler) GenerateQuestions(c fiber.Ctx) error {
	var req generateQuestionsRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	qs, err := h.uc.GenerateQuestions(c.Context(), ucinterview.GenerateInput{
		Role:       req.Role,
		RoundType:  req.RoundType,
		Difficulty: req.Difficulty,
		Count:      req.Count,
	})
	if err != nil {
		return mapInterviewUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, map[string]any{"questions": qs})
}

func (h *InterviewHandler) EvaluateAnswer(c fiber.Ctx) error {
	var req evaluateAnswerRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	ev, err := h.uc.EvaluateAnswer(c.Context(), ucinterview.EvaluateInput{
		Question:       req.Question,
		Answer:         req.Answer,
		Role:           req.Role,
		RoundType:      req.RoundType,
		Difficulty:     req.Difficulty,
		ExpectedPoints: req.ExpectedPoints,
	})
	if err != nil {
		return mapInterviewUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, ev)
}

func mapInterviewUsecaseError(err error) error {
	if errors.Is(err, ucinterview.ErrInvalidInput) {
		return middleware.NewAppError(fiber.StatusBadRequest, err.Error(), nil, err)
	}
	return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
}
