package exam

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pot-code/eclass/internal/enrollment"
	"github.com/pot-code/eclass/internal/infrastructure/logging"
	"github.com/pot-code/eclass/internal/infrastructure/scheduler"
	"go.uber.org/zap"
)

// State of an exam session
type State int32

const (
	NotStarted State = iota
	InProgress
	Finished
)

var stateNames = [...]string{"not_started", "in_progress", "finished"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// MarshalText implement encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// session event types
const (
	EventTick     = "tick"
	EventFinished = "finished"
	EventFailed   = "failed"
)

// Event pushed to session subscribers
type Event struct {
	Type      string   `json:"type"`
	Remaining int      `json:"remaining"`
	Outcome   *Outcome `json:"outcome,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// SessionOption everything a session needs, resolved by the caller before creation
type SessionOption struct {
	ID           string
	UserID       string
	Enrolled     bool
	Exam         *ExamModel
	TimeLimit    time.Duration
	PassScore    int
	Results      ResultWriter
	Certificates CertificateIssuer // optional
	Scheduler    scheduler.Scheduler
	Clock        func() time.Time // defaults to time.Now
}

// SessionView snapshot returned to the learner
type SessionView struct {
	ID        string           `json:"id"`
	ExamID    string           `json:"exam_id"`
	CourseID  string           `json:"course_id"`
	Title     string           `json:"title"`
	State     State            `json:"state"`
	TimeLimit int              `json:"time_limit"`
	Remaining int              `json:"remaining"`
	PassScore int              `json:"pass_score"`
	Cursor    int              `json:"cursor"`
	Questions []*QuestionModel `json:"questions"`
	Answers   map[string]int   `json:"answers"`
	Answered  int              `json:"answered"`
	Outcome   *Outcome         `json:"outcome,omitempty"`
}

// Session one learner taking one exam. The countdown decrements once per scheduler tick and
// finalizes with the recorded answers when it reaches zero
type Session struct {
	id        string
	userID    string
	exam      *ExamModel
	timeLimit int // seconds
	passScore int
	results   ResultWriter
	certs     CertificateIssuer
	sched     scheduler.Scheduler
	clock     func() time.Time
	baseCtx   context.Context
	logger    *zap.Logger

	claimed int32 // finalization claim, released only when saving the result fails

	mu           sync.Mutex
	state        State
	answers      map[string]int
	cursor       int
	remaining    int
	handle       scheduler.Handle
	outcome      *Outcome
	closed       bool
	lastActive   time.Time
	listeners    map[int]func(Event)
	nextListener int
}

// NewSession ctx only provides the logger for background finalization
func NewSession(ctx context.Context, opt *SessionOption) (*Session, error) {
	if !opt.Enrolled {
		return nil, enrollment.ErrNotEnrolled
	}
	if err := ValidateExam(opt.Exam); err != nil {
		return nil, err
	}

	clock := opt.Clock
	if clock == nil {
		clock = time.Now
	}
	limit := int(opt.TimeLimit / time.Second)
	if limit < 1 {
		limit = 1
	}
	return &Session{
		id:        opt.ID,
		userID:    opt.UserID,
		exam:      opt.Exam,
		timeLimit: limit,
		passScore: opt.PassScore,
		results:   opt.Results,
		certs:     opt.Certificates,
		sched:     opt.Scheduler,
		clock:     clock,
		baseCtx:   logging.DetachedContext(ctx),
		logger: logging.ExtractLoggerFromContext(ctx).With(
			zap.String("user.id", opt.UserID),
			zap.String("exam.id", opt.Exam.ID),
			zap.String("session.id", opt.ID),
		),
		answers:    make(map[string]int),
		remaining:  limit,
		lastActive: clock(),
		listeners:  make(map[int]func(Event)),
	}, nil
}

// ID .
func (s *Session) ID() string {
	return s.id
}

// UserID owner of the session
func (s *Session) UserID() string {
	return s.userID
}

// Start begin the countdown from the full time limit
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionNotFound
	}
	switch s.state {
	case InProgress:
		return ErrSessionStarted
	case Finished:
		return ErrSessionFinished
	}
	s.state = InProgress
	s.remaining = s.timeLimit
	s.lastActive = s.clock()
	s.handle = s.sched.Every(time.Second, s.tick)
	s.logger.Debug("exam started", zap.Int("exam.time_limit", s.timeLimit))
	return nil
}

func (s *Session) tick() {
	s.mu.Lock()
	if s.closed || s.state != InProgress || atomic.LoadInt32(&s.claimed) == 1 {
		s.mu.Unlock()
		return
	}
	if s.remaining > 0 {
		s.remaining--
	}
	remaining := s.remaining
	s.mu.Unlock()

	s.emit(Event{Type: EventTick, Remaining: remaining})
	if remaining == 0 {
		s.expire()
	}
}

// expire finalize on timeout, a failed save stops the countdown and leaves retrying to Submit
func (s *Session) expire() {
	_, err := s.finalize(s.baseCtx)
	if err == nil || err == ErrSubmitInProgress {
		return
	}
	s.logger.Error("failed to save exam result on expiry", zap.Error(err))
	s.stopCountdown()
	// idleness counts from the expiry, the learner still has to retry
	s.mu.Lock()
	s.lastActive = s.clock()
	s.mu.Unlock()
	s.emit(Event{Type: EventFailed, Error: err.Error()})
}

// activeLocked learner input is accepted
func (s *Session) activeLocked() error {
	if s.closed {
		return ErrSessionNotFound
	}
	switch s.state {
	case NotStarted:
		return ErrSessionNotStarted
	case Finished:
		return ErrSessionFinished
	}
	if atomic.LoadInt32(&s.claimed) == 1 {
		return ErrSubmitInProgress
	}
	if s.remaining == 0 {
		return ErrTimeUp
	}
	return nil
}

func (s *Session) question(questionID string) *QuestionModel {
	for _, q := range s.exam.Questions {
		if q.ID == questionID {
			return q
		}
	}
	return nil
}

// Answer record option for questionID, overwriting a previous answer to the same question
func (s *Session) Answer(questionID string, option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.activeLocked(); err != nil {
		return err
	}
	q := s.question(questionID)
	if q == nil {
		return ErrQuestionNotFound
	}
	if option < 0 || option >= len(q.Options) {
		return ErrOptionOutOfRange
	}
	s.answers[questionID] = option
	s.lastActive = s.clock()
	return nil
}

// Goto move the cursor to any question, in any order
func (s *Session) Goto(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.activeLocked(); err != nil {
		return err
	}
	if index < 0 || index >= len(s.exam.Questions) {
		return ErrQuestionNotFound
	}
	s.cursor = index
	s.lastActive = s.clock()
	return nil
}

// Remaining seconds left on the countdown
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// State .
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) allAnsweredLocked() bool {
	return len(s.answers) == len(s.exam.Questions)
}

// CanSubmit every question is answered and the session still takes input
func (s *Session) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked() == nil && s.allAnsweredLocked()
}

// Submit grade and persist the recorded answers. Once time is up unanswered questions are
// allowed, they count as incorrect. A finished session returns its outcome again
func (s *Session) Submit(ctx context.Context) (*Outcome, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	switch s.state {
	case NotStarted:
		s.mu.Unlock()
		return nil, ErrSessionNotStarted
	case Finished:
		outcome := s.outcome
		s.mu.Unlock()
		return outcome, nil
	}
	if s.remaining > 0 && !s.allAnsweredLocked() {
		s.mu.Unlock()
		return nil, ErrUnansweredQuestions
	}
	s.lastActive = s.clock()
	s.mu.Unlock()

	return s.finalize(ctx)
}

// finalize only the caller winning the claim writes the result. The claim is given back when
// the write fails so the submission can be retried
func (s *Session) finalize(ctx context.Context) (*Outcome, error) {
	if !atomic.CompareAndSwapInt32(&s.claimed, 0, 1) {
		s.mu.Lock()
		outcome := s.outcome
		s.mu.Unlock()
		if outcome != nil {
			return outcome, nil
		}
		return nil, ErrSubmitInProgress
	}

	s.mu.Lock()
	answers := make(map[string]int, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	s.mu.Unlock()

	score, passed := Score(s.exam.Questions, answers, s.passScore)
	result := &ResultModel{
		UserID:  s.userID,
		ExamID:  s.exam.ID,
		Score:   score,
		Passed:  passed,
		Answers: answers,
	}
	if err := s.results.SaveResult(ctx, result); err != nil {
		atomic.StoreInt32(&s.claimed, 0)
		return nil, err
	}
	s.stopCountdown()

	outcome := &Outcome{Result: result}
	if passed && s.certs != nil {
		cert, err := s.certs.Issue(ctx, s.userID, s.exam.CourseID, result.ID)
		if err != nil {
			s.logger.Error("failed to issue certificate", zap.String("result.id", result.ID), zap.Error(err))
		} else {
			outcome.Certificate = cert
		}
	}

	s.mu.Lock()
	s.state = Finished
	s.outcome = outcome
	s.lastActive = s.clock()
	s.mu.Unlock()

	s.logger.Info("exam finished", zap.Int("exam.score", score), zap.Bool("exam.passed", passed))
	s.emit(Event{Type: EventFinished, Outcome: outcome})
	return outcome, nil
}

func (s *Session) stopCountdown() {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.mu.Unlock()
	if h != nil {
		h.Stop()
	}
}

// Close tear down the session, an unfinished exam is discarded without a result
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	h := s.handle
	s.handle = nil
	s.listeners = nil
	s.mu.Unlock()

	if h != nil {
		h.Stop()
	}
}

// Expired closed, or idle for longer than ttl. A running countdown is never idle
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return true
	}
	if s.state == InProgress && s.handle != nil {
		return false
	}
	return now.Sub(s.lastActive) > ttl
}

// Subscribe fn receives every event until the returned cancel func is called. fn runs on the
// countdown goroutine and must not block
func (s *Session) Subscribe(fn func(Event)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return func() {}
	}
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Session) emit(e Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}

// View .
func (s *Session) View() *SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := make(map[string]int, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	return &SessionView{
		ID:        s.id,
		ExamID:    s.exam.ID,
		CourseID:  s.exam.CourseID,
		Title:     s.exam.Title,
		State:     s.state,
		TimeLimit: s.timeLimit,
		Remaining: s.remaining,
		PassScore: s.passScore,
		Cursor:    s.cursor,
		Questions: s.exam.Questions,
		Answers:   answers,
		Answered:  len(answers),
		Outcome:   s.outcome,
	}
}
