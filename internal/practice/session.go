// Package practice runs an interview practice session on the client side:
// one question at a time, a per-question countdown and local answer
// buffering, finished by a single completion call.
//
//	NotStarted ──Start──► InProgress ──Next on last──► Completing ──► Completed
//	                         ▲                              │
//	                         └────────── failure ───────────┘
//
// The countdown is advisory. Reaching zero neither advances nor locks the
// question.
package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sakif/careerdeck/internal/client"
	"github.com/sakif/careerdeck/internal/model"
)

// API is the subset of the HTTP client a session needs.
type API interface {
	StartSession(ctx context.Context, req client.StartSessionRequest) (*model.PracticeSession, error)
	SubmitAnswer(ctx context.Context, sessionID string, a model.Answer) error
	ClearAnswer(ctx context.Context, sessionID, questionID string) error
	CompleteSession(ctx context.Context, sessionID string) (*model.SessionFeedback, error)
}

// StartOptions selects the session type and question mix.
type StartOptions = client.StartSessionRequest

var (
	ErrSessionCompleted = errors.New("session already completed")
	ErrNotInProgress    = errors.New("session not in progress")
	ErrAlreadyStarted   = errors.New("session already started")
	ErrBusy             = errors.New("another request is in flight")
	// ErrClosed is returned by calls whose response arrived after Close.
	ErrClosed = errors.New("session closed")
)

// Phase of a practice session.
type Phase int

const (
	NotStarted Phase = iota
	InProgress
	Completing
	Completed
)

func (p Phase) String() string {
	switch p {
	case NotStarted:
		return "not-started"
	case InProgress:
		return "in-progress"
	case Completing:
		return "completing"
	case Completed:
		return "completed"
	}
	return "unknown"
}

// Snapshot is a consistent read of the session for rendering.
type Snapshot struct {
	Phase     Phase
	SessionID string
	Index     int
	Total     int
	Remaining int
	Question  *model.Question
	Answer    string
	Feedback  *model.SessionFeedback
	Err       error
}

// Session is safe for concurrent use. At most one network call runs at a
// time; a second Start or Next while one is pending returns ErrBusy.
type Session struct {
	api    API
	logger *slog.Logger
	tick   time.Duration

	mu        sync.Mutex
	phase     Phase
	busy      bool
	gen       uint64
	session   *model.PracticeSession
	index     int
	remaining int
	answers   map[string]string
	persisted map[string]string
	feedback  *model.SessionFeedback
	err       error
	stopTimer context.CancelFunc
}

// New returns a NotStarted session. A nil logger discards.
func New(api API, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{api: api, logger: logger, tick: time.Second}
}

// Start asks the server for a session and shows the first question.
func (s *Session) Start(ctx context.Context, opts StartOptions) error {
	s.mu.Lock()
	if s.phase != NotStarted {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.busy = true
	gen := s.gen
	s.mu.Unlock()

	ps, err := s.api.StartSession(ctx, opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return ErrClosed
	}
	s.busy = false
	if err == nil && len(ps.Questions) == 0 {
		err = fmt.Errorf("%w: session %s has no questions", client.ErrMalformed, ps.ID)
	}
	if err != nil {
		s.err = err
		s.logger.Warn("starting practice session failed", slog.String("error", err.Error()))
		return err
	}

	s.session = ps
	s.phase = InProgress
	s.index = 0
	s.remaining = ps.Questions[0].TimeLimitSeconds
	s.answers = make(map[string]string, len(ps.Questions))
	s.persisted = make(map[string]string, len(ps.Questions))
	s.err = nil
	s.logger.Info("practice session started",
		slog.String("sessionID", ps.ID),
		slog.Int("questions", len(ps.Questions)),
	)
	return nil
}

// SetAnswer buffers text as the answer to the current question.
func (s *Session) SetAnswer(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	s.answers[s.session.Questions[s.index].ID] = text
	return nil
}

// editable reports why the current question cannot change. Callers hold mu.
func (s *Session) editable() error {
	switch s.phase {
	case Completed:
		return ErrSessionCompleted
	case InProgress:
		if s.busy {
			return ErrBusy
		}
		return nil
	case Completing:
		return ErrBusy
	}
	return ErrNotInProgress
}

// Next saves the current answer and moves forward. An answer the member
// emptied after it was saved is cleared on the server. On the last question
// it completes the session instead. A failed save keeps the current question;
// a failed completion returns to the last question with Err set.
func (s *Session) Next(ctx context.Context) error {
	s.mu.Lock()
	if err := s.editable(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.busy = true
	gen := s.gen
	id := s.session.ID
	q := s.session.Questions[s.index]
	text := s.answers[q.ID]
	saved, wasSaved := s.persisted[q.ID]
	blank := strings.TrimSpace(text) == ""
	needsSave := !blank && saved != text
	needsClear := blank && wasSaved
	last := s.index == len(s.session.Questions)-1
	s.mu.Unlock()

	if needsSave || needsClear {
		var err error
		if needsSave {
			err = s.api.SubmitAnswer(ctx, id, model.Answer{QuestionID: q.ID, Text: text})
		} else {
			err = s.api.ClearAnswer(ctx, id, q.ID)
		}

		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			return ErrClosed
		}
		if err != nil {
			s.busy = false
			s.err = err
			s.mu.Unlock()
			s.logger.Warn("saving answer failed",
				slog.String("sessionID", id),
				slog.String("questionID", q.ID),
				slog.Bool("clear", needsClear),
				slog.String("error", err.Error()),
			)
			return err
		}
		if needsSave {
			s.persisted[q.ID] = text
		} else {
			delete(s.persisted, q.ID)
		}
		s.mu.Unlock()
	}

	if !last {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen {
			return ErrClosed
		}
		s.busy = false
		s.err = nil
		s.moveTo(s.index + 1)
		return nil
	}
	return s.complete(ctx, gen, id)
}

func (s *Session) complete(ctx context.Context, gen uint64, id string) error {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return ErrClosed
	}
	s.phase = Completing
	s.mu.Unlock()

	fb, err := s.api.CompleteSession(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return ErrClosed
	}
	s.busy = false
	if err != nil {
		s.phase = InProgress
		s.err = err
		s.logger.Warn("completing practice session failed",
			slog.String("sessionID", id),
			slog.String("error", err.Error()),
		)
		return err
	}

	s.phase = Completed
	s.feedback = fb
	s.err = nil
	s.stopLocked()
	s.logger.Info("practice session completed",
		slog.String("sessionID", id),
		slog.Int("overallScore", fb.OverallScore),
	)
	return nil
}

// Previous moves back one question. The buffered answer for each question
// is kept, so Previous then Next shows the same text.
func (s *Session) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editable(); err != nil {
		return err
	}
	if s.index == 0 {
		return nil
	}
	s.moveTo(s.index - 1)
	return nil
}

// moveTo changes question and resets the countdown. Callers hold mu.
func (s *Session) moveTo(i int) {
	s.index = i
	s.remaining = s.session.Questions[i].TimeLimitSeconds
}

// Tick counts the current question down by one second, stopping at zero.
// It returns the seconds left.
func (s *Session) Tick() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == InProgress && s.remaining > 0 {
		s.remaining--
	}
	return s.remaining
}

// RunTimer ticks once per second until ctx ends, Stop or Close is called,
// or the session completes. Starting it again replaces the running timer.
func (s *Session) RunTimer(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.stopTimer != nil {
		s.stopTimer()
	}
	s.stopTimer = cancel
	interval := s.tick
	s.mu.Unlock()

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Tick()
			}
		}
	}()
}

// Stop cancels the countdown.
func (s *Session) Stop() {
	s.mu.Lock()
	s.stopLocked()
	s.mu.Unlock()
}

func (s *Session) stopLocked() {
	if s.stopTimer != nil {
		s.stopTimer()
		s.stopTimer = nil
	}
}

// Close stops the countdown. An unfinished session is discarded without
// saving a score, and responses still in flight are ignored when they
// arrive. A completed session keeps its feedback.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	if s.phase == Completed {
		return
	}
	if s.session != nil {
		s.logger.Info("practice session discarded", slog.String("sessionID", s.session.ID))
	}
	s.gen++
	s.phase = NotStarted
	s.busy = false
	s.session = nil
	s.index = 0
	s.remaining = 0
	s.answers = nil
	s.persisted = nil
	s.err = nil
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Phase:     s.phase,
		Index:     s.index,
		Remaining: s.remaining,
		Feedback:  s.feedback,
		Err:       s.err,
	}
	if s.session != nil {
		snap.SessionID = s.session.ID
		snap.Total = len(s.session.Questions)
		q := s.session.Questions[s.index]
		snap.Question = &q
		snap.Answer = s.answers[q.ID]
	}
	return snap
}

// Phase reports where the session is.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Feedback is set once the session is Completed.
func (s *Session) Feedback() *model.SessionFeedback {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feedback
}

// Err is the last failed call, cleared by the next successful step.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
