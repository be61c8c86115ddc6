package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "quantprep/internal/domain/interview"
	"quantprep/internal/infrastructure/llm"
	"quantprep/internal/pkg/logger"
)

const (
	DefaultQuestionCount = 5
	MaxQuestionCount     = 20

	generationTemperature = 0.7
	evaluationTemperature = 0.3
)

var ErrInvalidInput = errors.New("invalid input")

type GenerateInput struct {
	Role       string
	RoundType  string
	Difficulty string
	Count      int
}

type EvaluateInput struct {
	Question       string
	Answer         string
	Role           string
	RoundType      string
	Difficulty     string
	ExpectedPoints []string
}

// Usecase generates and scores interview questions. Upstream failures are
// absorbed: callers always get questions and an evaluation.
type Usecase interface {
	GenerateQuestions(ctx context.Context, in GenerateInput) ([]domain.Question, error)
	EvaluateAnswer(ctx context.Context, in EvaluateInput) (domain.Evaluation, error)
}

type Service struct {
	llm  llm.Client
	bank Bank
	log  *logger.Logger
}

func NewService(client llm.Client, bank Bank, log *logger.Logger) *Service {
	if bank == nil {
		bank = DefaultBank()
	}
	return &Service{llm: client, bank: bank, log: log}
}

func (s *Service) GenerateQuestions(ctx context.Context, in GenerateInput) ([]domain.Question, error) {
	setup, err := domain.ParseSetup(in.Role, in.RoundType, in.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	count := in.Count
	if count == 0 {
		count = DefaultQuestionCount
	}
	if count < 0 || count > MaxQuestionCount {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", ErrInvalidInput, MaxQuestionCount)
	}

	qs, err := s.generate(ctx, setup, count)
	if err != nil {
		s.log.Warn("question generation failed, using fallback",
			"role", setup.Role, "round_type", setup.RoundType, "difficulty", setup.Difficulty, "error", err)
		return s.bank.Questions(setup.Role, setup.RoundType, count), nil
	}
	return qs, nil
}

func (s *Service) generate(ctx context.Context, setup domain.Setup, count int) ([]domain.Question, error) {
	if s.llm == nil {
		return nil, llm.ErrNilClient
	}
	text, err := s.llm.Generate(ctx, llm.Request{
		Prompt:      questionPrompt(setup, count),
		Temperature: generationTemperature,
		Purpose:     llm.PurposeQuestions,
	})
	if err != nil {
		return nil, err
	}
	qs, err := parseQuestions(text)
	if err != nil {
		return nil, err
	}
	if len(qs) < count {
		return nil, fmt.Errorf("expected %d questions, got %d", count, len(qs))
	}
	return qs[:count], nil
}

func (s *Service) EvaluateAnswer(ctx context.Context, in EvaluateInput) (domain.Evaluation, error) {
	setup, err := domain.ParseSetup(in.Role, in.RoundType, in.Difficulty)
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return domain.Evaluation{}, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Answer) == "" {
		return HeuristicEvaluation(in.Answer, in.ExpectedPoints), nil
	}

	ev, err := s.evaluate(ctx, setup, question, in.Answer, in.ExpectedPoints)
	if err != nil {
		s.log.Warn("answer evaluation failed, using heuristic",
			"role", setup.Role, "round_type", setup.RoundType, "error", err)
		return HeuristicEvaluation(in.Answer, in.ExpectedPoints), nil
	}
	return ev, nil
}

func (s *Service) evaluate(ctx context.Context, setup domain.Setup, question, answer string, expected []string) (domain.Evaluation, error) {
	if s.llm == nil {
		return domain.Evaluation{}, llm.ErrNilClient
	}
	text, err := s.llm.Generate(ctx, llm.Request{
		Prompt:      evaluationPrompt(setup, question, answer, expected),
		Temperature: evaluationTemperature,
		Purpose:     llm.PurposeEvaluation,
	})
	if err != nil {
		return domain.Evaluation{}, err
	}
	return parseEvaluation(text)
}

var _ Usecase = (*Service)(nil)
