// Package llm talks to text-generation providers.
package llm

import (
	"context"
	"errors"
)

type Purpose string

const (
	PurposeQuestions  Purpose = "questions"
	PurposeEvaluation Purpose = "evaluation"
)

type Request struct {
	Prompt      string
	Temperature float64
	Purpose     Purpose
}

type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

var (
	ErrEmptyResponse = errors.New("llm: empty response")
	ErrNilClient     = errors.New("llm: nil client")
)
