package interview

import (
	"errors"
	"strings"
)

type Role string

const (
	RoleTrader     Role = "trader"
	RoleResearcher Role = "researcher"
	RoleAnalyst    Role = "analyst"
)

type RoundType string

const (
	RoundBehavioral RoundType = "behavioral"
	RoundTechnical  RoundType = "technical"
	RoundMixed      RoundType = "mixed"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

const (
	MinScore = 0
	MaxScore = 10
)

var (
	ErrInvalidRole       = errors.New("invalid role")
	ErrInvalidRoundType  = errors.New("invalid round type")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
)

type Question struct {
	Question       string   `json:"question" yaml:"question"`
	Category       string   `json:"category" yaml:"category"`
	ExpectedPoints []string `json:"expectedPoints" yaml:"expected_points"`
}

type Evaluation struct {
	Score        int      `json:"score"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// Setup is the role/round/difficulty triple chosen before a session starts.
type Setup struct {
	Role       Role
	RoundType  RoundType
	Difficulty Difficulty
}

func ParseRole(s string) (Role, error) {
	switch r := Role(normalize(s)); r {
	case RoleTrader, RoleResearcher, RoleAnalyst:
		return r, nil
	default:
		return "", ErrInvalidRole
	}
}

func ParseRoundType(s string) (RoundType, error) {
	switch r := RoundType(normalize(s)); r {
	case RoundBehavioral, RoundTechnical, RoundMixed:
		return r, nil
	default:
		return "", ErrInvalidRoundType
	}
}

func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(normalize(s)); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	default:
		return "", ErrInvalidDifficulty
	}
}

func ParseSetup(role, roundType, difficulty string) (Setup, error) {
	r, err := ParseRole(role)
	if err != nil {
		return Setup{}, err
	}
	rt, err := ParseRoundType(roundType)
	if err != nil {
		return Setup{}, err
	}
	d, err := ParseDifficulty(difficulty)
	if err != nil {
		return Setup{}, err
	}
	return Setup{Role: r, RoundType: rt, Difficulty: d}, nil
}

func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// ScoreBand labels a 0..10 score the way the results and dashboard views do.
func ScoreBand(score float64) string {
	switch {
	case score >= 8:
		return "Excellent"
	case score >= 6:
		return "Good"
	default:
		return "Needs Improvement"
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
