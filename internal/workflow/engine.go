// Package workflow drives a single interview from question generation to
// completion under a countdown.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"quantprep/internal/domain/interview"
	"quantprep/internal/domain/session"
	"quantprep/internal/pkg/logger"
	ucinterview "quantprep/internal/usecase/interview"
	ucsession "quantprep/internal/usecase/session"

	"github.com/google/uuid"
)

type State string

const (
	StateSetup      State = "setup"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

var (
	ErrNotFound = errors.New("interview not found")
	ErrClosed   = errors.New("interview already completed")
)

const questionCacheKeyPrefix = "interview:questions:"

// QuestionCache keeps a run's questions so it can be resumed after a
// restart.
type QuestionCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type Sessions interface {
	Create(ctx context.Context, in ucsession.CreateInput) (session.Session, error)
	SaveQA(ctx context.Context, userID uuid.UUID, in ucsession.SaveQAInput) (session.QA, error)
	Complete(ctx context.Context, userID uuid.UUID, in ucsession.CompleteInput) (session.Session, error)
	Get(ctx context.Context, userID uuid.UUID, id uuid.UUID) (ucsession.Detail, error)
}

type Config struct {
	QuestionCount int
	Duration      time.Duration
	TickInterval  time.Duration
	// CompleteRetry is the delay before an expired run whose completion
	// failed is tried again.
	CompleteRetry time.Duration
}

type StartInput struct {
	UserID     uuid.UUID
	Role       string
	RoundType  string
	Difficulty string
}

type AnswerResult struct {
	Index      int                  `json:"index"`
	Question   string               `json:"question"`
	Answer     string               `json:"answer"`
	Evaluation interview.Evaluation `json:"evaluation"`
	Next       *interview.Question  `json:"next,omitempty"`
	Completed  bool                 `json:"completed"`
	Session    *session.Session     `json:"-"`
}

type Snapshot struct {
	SessionID        uuid.UUID            `json:"session_id"`
	State            State                `json:"state"`
	Role             interview.Role       `json:"role"`
	RoundType        interview.RoundType  `json:"round_type"`
	Difficulty       interview.Difficulty `json:"difficulty"`
	Questions        []interview.Question `json:"questions"`
	Index            int                  `json:"index"`
	Total            int                  `json:"total"`
	Current          *interview.Question  `json:"current,omitempty"`
	Deadline         time.Time            `json:"deadline"`
	RemainingSeconds int                  `json:"remaining_seconds"`
	Answers          []AnswerResult       `json:"answers"`
	Session          *session.Session     `json:"-"`
}

type run struct {
	// turn serializes answers; mu guards state and is never held across
	// an evaluation call.
	turn sync.Mutex
	mu   sync.Mutex

	sess      session.Session
	questions []interview.Question
	index     int
	state     State
	deadline  time.Time
	answers   []AnswerResult
	result    *session.Session

	timer *time.Timer
	stop  chan struct{}
}

type Engine struct {
	questions ucinterview.Usecase
	sessions  Sessions
	cache     QuestionCache
	notifier  Notifier
	cfg       Config
	log       *logger.Logger
	now       func() time.Time

	mu   sync.Mutex
	runs map[uuid.UUID]*run
}

func NewEngine(questions ucinterview.Usecase, sessions Sessions, cache QuestionCache, notifier Notifier, cfg Config, log *logger.Logger) *Engine {
	if cfg.QuestionCount <= 0 {
		cfg.QuestionCount = ucinterview.DefaultQuestionCount
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 30 * time.Minute
	}
	if cfg.CompleteRetry <= 0 {
		cfg.CompleteRetry = 5 * time.Second
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Engine{
		questions: questions,
		sessions:  sessions,
		cache:     cache,
		notifier:  notifier,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
		runs:      map[uuid.UUID]*run{},
	}
}

// Start creates the session (quota enforced), fetches questions and starts
// the countdown.
func (e *Engine) Start(ctx context.Context, in StartInput) (Snapshot, error) {
	if _, err := interview.ParseSetup(in.Role, in.RoundType, in.Difficulty); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ucsession.ErrInvalidInput, err)
	}

	sess, err := e.sessions.Create(ctx, ucsession.CreateInput{
		UserID:     in.UserID,
		Role:       in.Role,
		RoundType:  in.RoundType,
		Difficulty: in.Difficulty,
	})
	if err != nil {
		return Snapshot{}, err
	}

	qs, err := e.questions.GenerateQuestions(ctx, ucinterview.GenerateInput{
		Role:       string(sess.Role),
		RoundType:  string(sess.RoundType),
		Difficulty: string(sess.Difficulty),
		Count:      e.cfg.QuestionCount,
	})
	if err != nil {
		return Snapshot{}, err
	}

	if e.cache != nil {
		if err := e.cache.SetJSON(ctx, questionCacheKeyPrefix+sess.ID.String(), qs, e.cfg.Duration+time.Hour); err != nil {
			e.log.Warn("caching interview questions failed", "session_id", sess.ID, "error", err)
		}
	}

	r := &run{
		sess:      sess,
		questions: qs,
		state:     StateInProgress,
		deadline:  sess.StartedAt.Add(e.cfg.Duration),
	}
	e.launch(r)

	e.log.Info("interview started", "session_id", sess.ID, "user_id", in.UserID, "questions", len(qs), "deadline", r.deadline)
	e.notifier.Publish(sess.ID, Event{Type: EventStarted, SessionID: sess.ID, Total: len(qs), RemainingSeconds: e.remaining(r.deadline)})

	r.mu.Lock()
	defer r.mu.Unlock()
	return e.snapshotLocked(r), nil
}

// Answer evaluates and records the answer to the current question. Answers
// arriving after completion are rejected and never persisted.
func (e *Engine) Answer(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID, answer string) (AnswerResult, error) {
	r, err := e.lookup(ctx, userID, sessionID)
	if err != nil {
		return AnswerResult{}, err
	}

	r.turn.Lock()
	defer r.turn.Unlock()

	idx, q, setup, pending, err := e.current(ctx, r)
	if err != nil || pending != nil {
		return derefResult(pending), err
	}

	ev, err := e.questions.EvaluateAnswer(ctx, ucinterview.EvaluateInput{
		Question:       q.Question,
		Answer:         answer,
		Role:           string(setup.Role),
		RoundType:      string(setup.RoundType),
		Difficulty:     string(setup.Difficulty),
		ExpectedPoints: q.ExpectedPoints,
	})
	if err != nil {
		return AnswerResult{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateInProgress || r.index != idx {
		// the countdown won the race
		return AnswerResult{}, ErrClosed
	}

	score := ev.Score
	feedback := ev.Feedback
	ans := answer
	if _, err := e.sessions.SaveQA(ctx, r.sess.UserID, ucsession.SaveQAInput{
		SessionID:  r.sess.ID,
		Question:   q.Question,
		Answer:     &ans,
		AIScore:    &score,
		AIFeedback: &feedback,
	}); err != nil {
		if errors.Is(err, ucsession.ErrClosed) {
			return AnswerResult{}, ErrClosed
		}
		return AnswerResult{}, err
	}

	res := AnswerResult{Index: idx, Question: q.Question, Answer: answer, Evaluation: ev}
	r.answers = append(r.answers, res)
	r.index++

	e.notifier.Publish(r.sess.ID, Event{Type: EventAnswered, SessionID: r.sess.ID, Index: idx, Total: len(r.questions), Score: &score})

	if r.index >= len(r.questions) {
		done, err := e.finishLocked(ctx, r, session.ReasonFinished)
		if err != nil {
			return AnswerResult{}, err
		}
		res.Completed = true
		res.Session = &done
		return res, nil
	}
	next := r.questions[r.index]
	res.Next = &next
	return res, nil
}

// current returns the question awaiting an answer. When every question is
// already answered but completion failed earlier, it retries completion and
// returns the final answer's result instead.
func (e *Engine) current(ctx context.Context, r *run) (int, interview.Question, interview.Setup, *AnswerResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateInProgress {
		return 0, interview.Question{}, interview.Setup{}, nil, ErrClosed
	}
	if r.index >= len(r.questions) {
		done, err := e.finishLocked(ctx, r, session.ReasonFinished)
		if err != nil {
			return 0, interview.Question{}, interview.Setup{}, nil, err
		}
		res := AnswerResult{Index: r.index - 1}
		if n := len(r.answers); n > 0 {
			res = r.answers[n-1]
		}
		res.Completed = true
		res.Session = &done
		return 0, interview.Question{}, interview.Setup{}, &res, nil
	}
	setup := interview.Setup{Role: r.sess.Role, RoundType: r.sess.RoundType, Difficulty: r.sess.Difficulty}
	return r.index, r.questions[r.index], setup, nil, nil
}

func derefResult(res *AnswerResult) AnswerResult {
	if res == nil {
		return AnswerResult{}
	}
	return *res
}

// Complete ends the interview early. It is idempotent.
func (e *Engine) Complete(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) (session.Session, error) {
	r, err := e.lookup(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, ErrClosed) {
			d, gErr := e.sessions.Get(ctx, userID, sessionID)
			if gErr != nil {
				return session.Session{}, gErr
			}
			return d.Session, nil
		}
		return session.Session{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return e.finishLocked(ctx, r, session.ReasonManual)
}

func (e *Engine) Snapshot(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) (Snapshot, error) {
	r, err := e.lookup(ctx, userID, sessionID)
	if err == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		return e.snapshotLocked(r), nil
	}
	if !errors.Is(err, ErrClosed) {
		return Snapshot{}, err
	}

	d, err := e.sessions.Get(ctx, userID, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return completedSnapshot(d), nil
}

// Owns reports whether userID may observe the interview.
func (e *Engine) Owns(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) bool {
	_, err := e.Snapshot(ctx, userID, sessionID)
	return err == nil
}

// Shutdown stops every countdown without completing the sessions. Runs can
// be resumed from the question cache.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	runs := make([]*run, 0, len(e.runs))
	for id, r := range e.runs {
		runs = append(runs, r)
		delete(e.runs, id)
	}
	e.mu.Unlock()

	for _, r := range runs {
		r.mu.Lock()
		stopClocks(r)
		r.mu.Unlock()
	}
}

func (e *Engine) launch(r *run) {
	e.mu.Lock()
	e.runs[r.sess.ID] = r
	e.mu.Unlock()
	e.startClocks(r)
}

func (e *Engine) startClocks(r *run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateInProgress {
		return
	}
	r.stop = make(chan struct{})
	wait := r.deadline.Sub(e.now())
	if wait < 0 {
		wait = 0
	}
	id := r.sess.ID
	r.timer = time.AfterFunc(wait, func() { e.expire(id) })

	if e.cfg.TickInterval > 0 {
		go e.tick(r, r.stop)
	}
}

func (e *Engine) tick(r *run, stop <-chan struct{}) {
	t := time.NewTicker(e.cfg.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			r.mu.Lock()
			ev := Event{
				Type:             EventTick,
				SessionID:        r.sess.ID,
				Index:            r.index,
				Total:            len(r.questions),
				RemainingSeconds: e.remaining(r.deadline),
			}
			r.mu.Unlock()
			e.notifier.Publish(ev.SessionID, ev)
		}
	}
}

func (e *Engine) expire(id uuid.UUID) {
	e.mu.Lock()
	r, ok := e.runs[id]
	e.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := e.finishLocked(ctx, r, session.ReasonTimeout); err != nil {
		e.log.Error("completing expired interview failed", "session_id", id, "retry_in", e.cfg.CompleteRetry, "error", err)
		if r.state == StateInProgress && r.stop != nil {
			r.timer = time.AfterFunc(e.cfg.CompleteRetry, func() { e.expire(id) })
		}
	}
}

// finishLocked completes the run once. Callers hold r.mu.
func (e *Engine) finishLocked(ctx context.Context, r *run, reason session.CompletionReason) (session.Session, error) {
	if r.state == StateCompleted && r.result != nil {
		return *r.result, nil
	}

	done, err := e.sessions.Complete(ctx, r.sess.UserID, ucsession.CompleteInput{SessionID: r.sess.ID, Reason: reason})
	if err != nil {
		return session.Session{}, err
	}

	r.state = StateCompleted
	r.result = &done
	stopClocks(r)

	e.mu.Lock()
	delete(e.runs, r.sess.ID)
	e.mu.Unlock()

	if e.cache != nil {
		if err := e.cache.Delete(ctx, questionCacheKeyPrefix+r.sess.ID.String()); err != nil {
			e.log.Warn("dropping cached interview questions failed", "session_id", r.sess.ID, "error", err)
		}
	}

	e.log.Info("interview completed", "session_id", r.sess.ID, "reason", reason, "answered", len(r.answers), "score", done.Score)
	e.notifier.Publish(r.sess.ID, Event{
		Type:      EventCompleted,
		SessionID: r.sess.ID,
		Index:     r.index,
		Total:     len(r.questions),
		Score:     done.Score,
		Reason:    reason,
	})
	return done, nil
}

func stopClocks(r *run) {
	if r.timer != nil {
		r.timer.Stop()
	}
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
}

// lookup returns the live run, resuming it from the question cache when the
// process has restarted. ErrClosed means the session is already completed.
func (e *Engine) lookup(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) (*run, error) {
	e.mu.Lock()
	r, ok := e.runs[sessionID]
	e.mu.Unlock()
	if ok {
		if r.sess.UserID != userID {
			return nil, ErrNotFound
		}
		return r, nil
	}

	d, err := e.sessions.Get(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, ucsession.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if d.Session.IsCompleted() {
		return nil, ErrClosed
	}
	return e.resume(ctx, d)
}

func (e *Engine) resume(ctx context.Context, d ucsession.Detail) (*run, error) {
	if e.cache == nil {
		return nil, ErrNotFound
	}
	var qs []interview.Question
	hit, err := e.cache.GetJSON(ctx, questionCacheKeyPrefix+d.Session.ID.String(), &qs)
	if err != nil || !hit || len(qs) == 0 {
		return nil, ErrNotFound
	}

	r := &run{
		sess:      d.Session,
		questions: qs,
		index:     len(d.QAs),
		state:     StateInProgress,
		deadline:  d.Session.StartedAt.Add(e.cfg.Duration),
	}
	for i, qa := range d.QAs {
		res := AnswerResult{Index: i, Question: qa.Question}
		if qa.Answer != nil {
			res.Answer = *qa.Answer
		}
		if qa.AIScore != nil {
			res.Evaluation.Score = *qa.AIScore
		}
		if qa.AIFeedback != nil {
			res.Evaluation.Feedback = *qa.AIFeedback
		}
		r.answers = append(r.answers, res)
	}

	e.mu.Lock()
	if existing, ok := e.runs[d.Session.ID]; ok {
		e.mu.Unlock()
		return existing, nil
	}
	e.runs[d.Session.ID] = r
	e.mu.Unlock()

	if r.index >= len(qs) || !e.now().Before(r.deadline) {
		reason := session.ReasonFinished
		if r.index < len(qs) {
			reason = session.ReasonTimeout
		}
		r.mu.Lock()
		_, err := e.finishLocked(ctx, r, reason)
		r.mu.Unlock()
		if err != nil {
			e.mu.Lock()
			delete(e.runs, d.Session.ID)
			e.mu.Unlock()
			return nil, err
		}
		return nil, ErrClosed
	}

	e.startClocks(r)
	e.log.Info("interview resumed", "session_id", d.Session.ID, "index", r.index)
	return r, nil
}

func (e *Engine) remaining(deadline time.Time) int {
	d := deadline.Sub(e.now())
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

func (e *Engine) snapshotLocked(r *run) Snapshot {
	s := Snapshot{
		SessionID:  r.sess.ID,
		State:      r.state,
		Role:       r.sess.Role,
		RoundType:  r.sess.RoundType,
		Difficulty: r.sess.Difficulty,
		Questions:  append([]interview.Question(nil), r.questions...),
		Index:      r.index,
		Total:      len(r.questions),
		Deadline:   r.deadline,
		Answers:    append([]AnswerResult{}, r.answers...),
		Session:    r.result,
	}
	if r.state == StateInProgress {
		s.RemainingSeconds = e.remaining(r.deadline)
		if r.index < len(r.questions) {
			cur := r.questions[r.index]
			s.Current = &cur
		}
	}
	return s
}

func completedSnapshot(d ucsession.Detail) Snapshot {
	sess := d.Session
	s := Snapshot{
		SessionID:  sess.ID,
		State:      StateCompleted,
		Role:       sess.Role,
		RoundType:  sess.RoundType,
		Difficulty: sess.Difficulty,
		Questions:  []interview.Question{},
		Index:      len(d.QAs),
		Total:      len(d.QAs),
		Answers:    make([]AnswerResult, 0, len(d.QAs)),
		Session:    &sess,
	}
	if sess.EndedAt != nil {
		s.Deadline = *sess.EndedAt
	}
	for i, qa := range d.QAs {
		res := AnswerResult{Index: i, Question: qa.Question}
		if qa.Answer != nil {
			res.Answer = *qa.Answer
		}
		if qa.AIScore != nil {
			res.Evaluation.Score = *qa.AIScore
		}
		if qa.AIFeedback != nil {
			res.Evaluation.Feedback = *qa.AIFeedback
		}
		s.Answers = append(s.Answers, res)
	}
	return s
}
