package interview

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	domain "quantprep/internal/domain/interview"
)

const questionPromptTmpl = `You are an expert interviewer for quantitative finance roles. Generate %[1]d %[2]s %[3]s interview questions for a %[4]s position.

For behavioral questions, focus on:
- Leadership and teamwork
- Problem-solving under pressure
- Risk management mindset
- Communication skills
- Adaptability in fast-paced environments

For technical questions, focus on:
- Mathematical concepts (probability, statistics, calculus)
- Programming and algorithms
- Financial markets knowledge
- Risk management
- Data analysis and modeling

Return ONLY a valid JSON array of objects with this exact structure:
[
  {
    "question": "The interview question",
    "category": "The specific category/topic",
    "expectedPoints": ["Key point 1", "Key point 2", "Key point 3"]
  }
]

Generate %[1]d questions for %[4]s %[3]s interview at %[2]s level.`

const evaluationPromptTmpl = `You are an expert interviewer evaluating answers for quantitative finance roles.

Evaluate this %[1]s interview answer for a %[2]s position at %[3]s level.

Question: %[4]s
Answer: %[5]s
Expected key points: %[6]s

Provide a score from 0-10 and detailed feedback. Consider:
- Technical accuracy and depth
- Communication clarity
- Relevant experience demonstration
- Problem-solving approach
- Industry knowledge

Return ONLY a valid JSON object with this exact structure:
{
  "score": 8,
  "feedback": "Detailed feedback paragraph",
  "strengths": ["Strength 1", "Strength 2"],
  "improvements": ["Improvement 1", "Improvement 2"]
}

Please evaluate this answer.`

func questionPrompt(s domain.Setup, count int) string {
	return fmt.Sprintf(questionPromptTmpl, count, s.Difficulty, s.RoundType, s.Role)
}

func evaluationPrompt(s domain.Setup, question, answer string, expected []string) string {
	points := "Not provided"
	if len(expected) > 0 {
		points = strings.Join(expected, ", ")
	}
	return fmt.Sprintf(evaluationPromptTmpl, s.RoundType, s.Role, s.Difficulty, question, answer, points)
}

var (
	arrayRe  = regexp.MustCompile(`\[[\s\S]*\]`)
	objectRe = regexp.MustCompile(`\{[\s\S]*\}`)

	errNoJSON = errors.New("no JSON found in response")
)

// parseQuestions pulls the outermost JSON array out of free text and keeps
// entries with a non-empty question.
func parseQuestions(text string) ([]domain.Question, error) {
	m := arrayRe.FindString(text)
	if m == "" {
		return nil, errNoJSON
	}
	var raw []domain.Question
	if err := json.Unmarshal([]byte(m), &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Question, 0, len(raw))
	for _, q := range raw {
		q.Question = strings.TrimSpace(q.Question)
		if q.Question == "" {
			continue
		}
		if q.ExpectedPoints == nil {
			q.ExpectedPoints = []string{}
		}
		out = append(out, q)
	}
	return out, nil
}

type rawEvaluation struct {
	Score        *float64 `json:"score"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

func parseEvaluation(text string) (domain.Evaluation, error) {
	m := objectRe.FindString(text)
	if m == "" {
		return domain.Evaluation{}, errNoJSON
	}
	var raw rawEvaluation
	if err := json.Unmarshal([]byte(m), &raw); err != nil {
		return domain.Evaluation{}, err
	}
	if raw.Score == nil {
		return domain.Evaluation{}, errors.New("evaluation without score")
	}
	ev := domain.Evaluation{
		Score:        domain.ClampScore(int(*raw.Score + 0.5)),
		Feedback:     strings.TrimSpace(raw.Feedback),
		Strengths:    raw.Strengths,
		Improvements: raw.Improvements,
	}
	if ev.Strengths == nil {
		ev.Strengths = []string{}
	}
	if ev.Improvements == nil {
		ev.Improvements = []string{}
	}
	return ev, nil
}
