package seeder

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"quantprep/internal/domain/interview"
	"quantprep/internal/domain/session"
	"quantprep/internal/domain/user"
	"quantprep/internal/pkg/logger"
)

type demoQA struct {
	Question string
	Answer   string
	Score    int
	Feedback string
}

type demoSession struct {
	Setup interview.Setup
	QAs   []demoQA
}

var demoEmails = []string{
	"john.doe@example.com",
	"jane.smith@example.com",
	"alex.johnson@example.com",
}

var demoQAs = []demoQA{
	{
		Question: "Describe a time when you had to make a quick decision under pressure.",
		Answer:   "During a market volatility spike, I quickly assessed our risk exposure...",
		Score:    8,
		Feedback: "Excellent response with clear decision-making process.",
	},
	{
		Question: "Explain the concept of Value at Risk (VaR).",
		Answer:   "VaR is a statistical measure that quantifies potential portfolio losses...",
		Score:    9,
		Feedback: "Outstanding technical explanation with good depth.",
	},
}

var demoSessions = []demoSession{
	{Setup: interview.Setup{Role: interview.RoleTrader, RoundType: interview.RoundBehavioral, Difficulty: interview.DifficultyMedium}, QAs: demoQAs},
	{Setup: interview.Setup{Role: interview.RoleResearcher, RoundType: interview.RoundTechnical, Difficulty: interview.DifficultyHard}, QAs: demoQAs},
}

// DemoSeeder creates three sample users with two completed sessions each.
// Users that already exist are left untouched.
type DemoSeeder struct {
	Log *logger.Logger
	Now func() time.Time
}

func (DemoSeeder) Name() string {
	return "demo_data"
}

func (s DemoSeeder) Run(ctx context.Context, t Target) error {
	if t.DB != nil {
		if err := CheckSchema(ctx, t.DB, demoSchema); err != nil {
			return err
		}
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	for _, email := range demoEmails {
		if _, err := t.Users.GetByEmail(ctx, email); err == nil {
			s.Log.Info("seed user exists, skipping", "email", email)
			continue
		} else if !errors.Is(err, user.ErrNotFound) {
			return err
		}

		u, err := t.Users.Create(ctx, user.User{Email: email})
		if err != nil {
			return err
		}
		s.Log.Info("seed user created", "email", u.Email)

		for i, ds := range demoSessions {
			started := now().UTC().Add(-time.Duration(len(demoSessions)-i) * time.Hour)
			sess, err := t.Sessions.CreateWithQuota(ctx, session.Session{
				UserID:     u.ID,
				Role:       ds.Setup.Role,
				RoundType:  ds.Setup.RoundType,
				Difficulty: ds.Setup.Difficulty,
				StartedAt:  started,
			}, session.Quota{})
			if err != nil {
				return err
			}

			scored := make([]session.QA, 0, len(ds.QAs))
			for _, q := range ds.QAs {
				answer, feedback, score := q.Answer, q.Feedback, q.Score
				qa, err := t.Sessions.AppendQA(ctx, session.QA{
					SessionID:  sess.ID,
					Question:   q.Question,
					Answer:     &answer,
					AIScore:    &score,
					AIFeedback: &feedback,
				}, 0)
				if err != nil {
					return err
				}
				scored = append(scored, qa)
			}

			fb, err := json.Marshal(session.Summary{
				Completed:    true,
				AverageScore: session.AggregateScore(scored),
				Answered:     len(scored),
				Total:        len(scored),
				Reason:       session.ReasonFinished,
			})
			if err != nil {
				return err
			}
			if _, err := t.Sessions.Complete(ctx, sess.ID, started.Add(20*time.Minute), fb); err != nil {
				return err
			}
			s.Log.Info("seed session created", "session_id", sess.ID, "role", sess.Role)
		}
	}
	return nil
}
