package llm

import (
	"context"
	"encoding/json"
)

// Mock returns fixed payloads shaped like real provider output so the rest
// of the pipeline runs unchanged without credentials.
type Mock struct{}

func NewMock() Mock {
	return Mock{}
}

var mockQuestions = []map[string]any{
	{
		"question":       "Describe a time when you had to make a quick decision under pressure in a trading environment.",
		"category":       "Decision Making",
		"expectedPoints": []string{"Quick analysis", "Risk assessment", "Clear reasoning"},
	},
	{
		"question":       "How do you handle disagreements with colleagues about trading strategies?",
		"category":       "Teamwork",
		"expectedPoints": []string{"Active listening", "Data-driven discussion", "Compromise"},
	},
	{
		"question":       "Explain the concept of Value at Risk (VaR) and its limitations.",
		"category":       "Risk Management",
		"expectedPoints": []string{"Statistical measure", "Confidence intervals", "Model limitations"},
	},
	{
		"question":       "How would you implement a pairs trading strategy?",
		"category":       "Trading Strategies",
		"expectedPoints": []string{"Cointegration", "Mean reversion", "Risk controls"},
	},
	{
		"question":       "Describe your approach to staying updated with market developments.",
		"category":       "Market Knowledge",
		"expectedPoints": []string{"Information sources", "Analysis process", "Implementation"},
	},
}

var mockEvaluation = map[string]any{
	"score":        7,
	"feedback":     "Good response with clear reasoning. Consider adding more specific examples and technical details to strengthen your answer.",
	"strengths":    []string{"Clear communication", "Logical structure", "Good understanding of concepts"},
	"improvements": []string{"Add more specific examples", "Include more technical details", "Quantify results where possible"},
}

func (Mock) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var v any = mockQuestions
	if req.Purpose == PurposeEvaluation {
		v = mockEvaluation
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var _ Client = Mock{}
