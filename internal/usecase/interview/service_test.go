package interview

import (
	"context"
	"errors"
	"strings"
	"testing"

	domain "quantprep/internal/domain/interview"
	"quantprep/internal/infrastructure/llm"
	"quantprep/internal/pkg/logger"
)

type stubLLM struct {
	text  string
	err   error
	calls int
	last  llm.Request
}

func (s *stubLLM) Generate(_ context.Context, req llm.Request) (string, error) {
	s.calls++
	s.last = req
	return s.text, s.err
}

func twoItemBank() Bank {
	return Bank{
		domain.RoleTrader: {
			domain.RoundBehavioral: {
				{Question: "first", Category: "A", ExpectedPoints: []string{"x"}},
				{Question: "second", Category: "B", ExpectedPoints: []string{"y"}},
			},
		},
	}
}

func TestGenerateQuestions_FallbackCyclesPool(t *testing.T) {
	stub := &stubLLM{err: errors.New("upstream down")}
	svc := NewService(stub, twoItemBank(), logger.NewNop())

	qs, err := svc.GenerateQuestions(context.Background(), GenerateInput{Role: "trader", RoundType: "behavioral", Difficulty: "easy", Count: 5})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := []string{"first", "second", "first", "second", "first"}
	if len(qs) != len(want) {
		t.Fatalf("expected %d questions, got %d", len(want), len(qs))
	}
	for i, q := range qs {
		if q.Question != want[i] {
			t.Fatalf("index %d: expected %q, got %q", i, want[i], q.Question)
		}
	}
}

func TestGenerateQuestions_UnparsableOutputFallsBack(t *testing.T) {
	stub := &stubLLM{text: "Sorry, I cannot help with that."}
	svc := NewService(stub, nil, logger.NewNop())

	qs, err := svc.GenerateQuestions(context.Background(), GenerateInput{Role: "researcher", RoundType: "technical", Difficulty: "hard", Count: 3})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(qs) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(qs))
	}
	if !strings.Contains(qs[0].Question, "Type I and Type II") || qs[2].Question != qs[0].Question {
		t.Fatalf("unexpected fallback order: %q / %q", qs[0].Question, qs[2].Question)
	}
}

func TestGenerateQuestions_UsesModelOutput(t *testing.T) {
	stub := &stubLLM{text: "Here you go:\n```json\n[" +
		`{"question":"Q1","category":"C","expectedPoints":["a"]},` +
		`{"question":"Q2","category":"C"},` +
		`{"question":"  ","category":"skip"},` +
		`{"question":"Q3","category":"C"}` +
		"]\n```"}
	svc := NewService(stub, nil, logger.NewNop())

	qs, err := svc.GenerateQuestions(context.Background(), GenerateInput{Role: "Analyst", RoundType: "MIXED", Difficulty: "medium", Count: 2})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(qs) != 2 || qs[0].Question != "Q1" || qs[1].Question != "Q2" {
		t.Fatalf("unexpected questions: %+v", qs)
	}
	if qs[1].ExpectedPoints == nil {
		t.Fatalf("expected non-nil expected points")
	}
	if stub.last.Temperature != generationTemperature || stub.last.Purpose != llm.PurposeQuestions {
		t.Fatalf("unexpected request: %+v", stub.last)
	}
	if !strings.Contains(stub.last.Prompt, "Generate 2 medium mixed interview questions for a analyst position") {
		t.Fatalf("unexpected prompt: %s", stub.last.Prompt)
	}
}

func TestGenerateQuestions_ShortModelOutputFallsBack(t *testing.T) {
	stub := &stubLLM{text: `[{"question":"only one"}]`}
	svc := NewService(stub, twoItemBank(), logger.NewNop())

	qs, err := svc.GenerateQuestions(context.Background(), GenerateInput{Role: "trader", RoundType: "behavioral", Difficulty: "easy"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(qs) != DefaultQuestionCount || qs[0].Question != "first" {
		t.Fatalf("expected fallback of default size, got %+v", qs)
	}
}

func TestGenerateQuestions_RejectsInvalidInputBeforeCalling(t *testing.T) {
	stub := &stubLLM{}
	svc := NewService(stub, nil, logger.NewNop())

	cases := []GenerateInput{
		{Role: "quant", RoundType: "behavioral", Difficulty: "easy"},
		{Role: "trader", RoundType: "panel", Difficulty: "easy"},
		{Role: "trader", RoundType: "behavioral", Difficulty: "insane"},
		{Role: "trader", RoundType: "behavioral", Difficulty: "easy", Count: MaxQuestionCount + 1},
		{Role: "trader", RoundType: "behavioral", Difficulty: "easy", Count: -1},
	}
	for _, in := range cases {
		if _, err := svc.GenerateQuestions(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("input %+v: expected ErrInvalidInput, got %v", in, err)
		}
	}
	if stub.calls != 0 {
		t.Fatalf("expected no upstream calls, got %d", stub.calls)
	}
}

func TestEvaluateAnswer_ParsesAndClamps(t *testing.T) {
	stub := &stubLLM{text: `Evaluation: {"score": 14, "feedback": " Strong. ", "strengths": ["Depth"]}`}
	svc := NewService(stub, nil, logger.NewNop())

	ev, err := svc.EvaluateAnswer(context.Background(), EvaluateInput{
		Question: "Explain VaR", Answer: "VaR is a quantile of the loss distribution.",
		Role: "trader", RoundType: "technical", Difficulty: "hard",
		ExpectedPoints: []string{"Statistical measure", "Confidence intervals"},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if ev.Score != domain.MaxScore || ev.Feedback != "Strong." {
		t.Fatalf("unexpected evaluation: %+v", ev)
	}
	if ev.Improvements == nil {
		t.Fatalf("expected non-nil improvements")
	}
	if stub.last.Temperature != evaluationTemperature || !strings.Contains(stub.last.Prompt, "Expected key points: Statistical measure, Confidence intervals") {
		t.Fatalf("unexpected request: %+v", stub.last)
	}
}

func TestEvaluateAnswer_FallbackIsDeterministic(t *testing.T) {
	stub := &stubLLM{err: errors.New("timeout")}
	svc := NewService(stub, nil, logger.NewNop())

	in := EvaluateInput{
		Question: "Explain VaR", Role: "trader", RoundType: "technical", Difficulty: "easy",
		Answer:         strings.Repeat("value at risk uses confidence intervals and is a statistical measure. ", 3),
		ExpectedPoints: []string{"Statistical measure", "Confidence intervals", "Model limitations"},
	}
	a, _ := svc.EvaluateAnswer(context.Background(), in)
	b, _ := svc.EvaluateAnswer(context.Background(), in)
	if a.Score != 8 || b.Score != a.Score {
		t.Fatalf("expected deterministic score 8, got %d and %d", a.Score, b.Score)
	}
	if !strings.Contains(a.Feedback, "Good detail provided.") {
		t.Fatalf("unexpected feedback: %s", a.Feedback)
	}

	short, _ := svc.EvaluateAnswer(context.Background(), EvaluateInput{
		Question: "q", Answer: "short", Role: "analyst", RoundType: "behavioral", Difficulty: "easy",
	})
	if short.Score != 6 || !strings.Contains(short.Feedback, "Consider providing more specific examples.") {
		t.Fatalf("unexpected short evaluation: %+v", short)
	}
}

func TestEvaluateAnswer_BlankAnswerSkipsUpstream(t *testing.T) {
	stub := &stubLLM{text: `{"score": 9}`}
	svc := NewService(stub, nil, logger.NewNop())

	ev, err := svc.EvaluateAnswer(context.Background(), EvaluateInput{
		Question: "q", Answer: "   ", Role: "trader", RoundType: "behavioral", Difficulty: "easy",
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if ev.Score != 0 || stub.calls != 0 {
		t.Fatalf("expected score 0 without upstream call, got %d (calls=%d)", ev.Score, stub.calls)
	}
}

func TestEvaluateAnswer_RequiresQuestion(t *testing.T) {
	svc := NewService(&stubLLM{}, nil, logger.NewNop())
	_, err := svc.EvaluateAnswer(context.Background(), EvaluateInput{Answer: "a", Role: "trader", RoundType: "behavioral", Difficulty: "easy"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
