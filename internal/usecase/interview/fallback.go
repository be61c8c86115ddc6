package interview

import (
	_ "embed"
	"fmt"
	"strings"

	domain "quantprep/internal/domain/interview"

	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var bundledQuestions []byte

// Bank holds fallback questions keyed by role and round type.
type Bank map[domain.Role]map[domain.RoundType][]domain.Question

func LoadBank(data []byte) (Bank, error) {
	raw := map[string]map[string][]domain.Question{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}

	b := Bank{}
	for role, byType := range raw {
		r, err := domain.ParseRole(role)
		if err != nil {
			return nil, fmt.Errorf("question bank: %w: %q", err, role)
		}
		b[r] = map[domain.RoundType][]domain.Question{}
		for rt, qs := range byType {
			t, err := domain.ParseRoundType(rt)
			if err != nil {
				return nil, fmt.Errorf("question bank: %w: %q", err, rt)
			}
			for _, q := range qs {
				if strings.TrimSpace(q.Question) == "" {
					return nil, fmt.Errorf("question bank: empty question under %s/%s", role, rt)
				}
			}
			b[r][t] = qs
		}
	}
	if len(b[domain.RoleTrader][domain.RoundBehavioral]) == 0 {
		return nil, fmt.Errorf("question bank: trader/behavioral must not be empty")
	}
	return b, nil
}

// DefaultBank parses the bundled question file.
func DefaultBank() Bank {
	b, err := LoadBank(bundledQuestions)
	if err != nil {
		panic(err)
	}
	return b
}

// list returns the pool for role/roundType. Mixed rounds draw from both
// behavioral and technical; unknown combinations use trader/behavioral.
func (b Bank) list(role domain.Role, roundType domain.RoundType) []domain.Question {
	byType := b[role]
	var out []domain.Question
	if roundType == domain.RoundMixed {
		out = append(out, byType[domain.RoundBehavioral]...)
		out = append(out, byType[domain.RoundTechnical]...)
	} else {
		out = byType[roundType]
	}
	if len(out) == 0 {
		out = b[domain.RoleTrader][domain.RoundBehavioral]
	}
	return out
}

// Questions returns exactly count questions, cycling through the pool when
// count exceeds its length.
func (b Bank) Questions(role domain.Role, roundType domain.RoundType, count int) []domain.Question {
	pool := b.list(role, roundType)
	if count <= 0 || len(pool) == 0 {
		return []domain.Question{}
	}
	out := make([]domain.Question, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, cloneQuestion(pool[i%len(pool)]))
	}
	return out
}

func cloneQuestion(q domain.Question) domain.Question {
	q.ExpectedPoints = append([]string(nil), q.ExpectedPoints...)
	return q
}

const longAnswerThreshold = 100

// HeuristicEvaluation scores an answer without the text-generation service.
// It is deterministic: 6 base, +1 for a detailed answer, +1 when at least
// half of the expected points are mentioned. A blank answer scores 0.
func HeuristicEvaluation(answer string, expectedPoints []string) domain.Evaluation {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return domain.Evaluation{
			Score:        domain.MinScore,
			Feedback:     "No answer was provided. Try to address the question directly, even briefly.",
			Strengths:    []string{},
			Improvements: []string{"Provide an answer to the question", "Structure your response around key points"},
		}
	}

	score := 6
	detail := "Consider providing more specific examples."
	if len(trimmed) > longAnswerThreshold {
		score++
		detail = "Good detail provided."
	}
	if covered(trimmed, expectedPoints) {
		score++
	}

	return domain.Evaluation{
		Score:        domain.ClampScore(score),
		Feedback:     "Your answer demonstrates understanding of the topic. " + detail + " Continue practicing to improve your responses.",
		Strengths:    []string{"Clear communication", "Relevant content"},
		Improvements: []string{"Add more specific examples", "Elaborate on key concepts"},
	}
}

func covered(answer string, points []string) bool {
	if len(points) == 0 {
		return false
	}
	lower := strings.ToLower(answer)
	hits := 0
	for _, p := range points {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.Contains(lower, p) {
			hits++
		}
	}
	return hits*2 >= len(points)
}
