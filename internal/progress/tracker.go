package progress

import (
	"context"
	"sync"
	"time"

	"github.com/pot-code/eclass/internal/course"
	"github.com/pot-code/eclass/internal/enrollment"
	"github.com/pot-code/eclass/internal/infrastructure/logging"
	"github.com/pot-code/eclass/internal/infrastructure/scheduler"
	"go.uber.org/zap"
)

// TrackerOption everything a tracker needs, resolved by the caller before creation
type TrackerOption struct {
	UserID        string
	Enrolled      bool
	Outline       *course.CourseOutline
	Records       []*ProgressModel
	StartLessonID string // optional, defaults to the first incomplete lesson
	Writer        ProgressWriter
	Scheduler     scheduler.Scheduler
	FlushInterval time.Duration
}

// TrackerState snapshot sent back to the player
type TrackerState struct {
	CourseID    string `json:"course_id"`
	LessonID    string `json:"lesson_id"`
	LessonIndex int    `json:"lesson_index"`
	Position    int    `json:"position"`
	Completed   bool   `json:"completed"`
	Percentage  int    `json:"percentage"`
}

// Tracker follows playback of one learner in one course. Positions are buffered in memory and
// persisted on flush, persistence calls are issued one at a time in the order of their triggers
type Tracker struct {
	userID   string
	courseID string
	lessons  []*course.LessonModel
	writer   ProgressWriter
	sched    scheduler.Scheduler
	interval time.Duration
	baseCtx  context.Context
	logger   *zap.Logger

	flushMu sync.Mutex // held across persistence calls and lesson switches

	mu       sync.Mutex
	records  map[string]*ProgressModel
	current  int
	position int  // value the next flush persists
	reported bool // position reported since the last successful flush
	seq      uint64
	flushing bool
	fresh    int  // highest position reported while a flush is in flight
	freshSet bool
	handle   scheduler.Handle
	closed   bool
}

// NewTracker ctx only provides the logger for background flushes
func NewTracker(ctx context.Context, opt *TrackerOption) (*Tracker, error) {
	if !opt.Enrolled {
		return nil, enrollment.ErrNotEnrolled
	}
	lessons := opt.Outline.Lessons()
	if len(lessons) == 0 {
		return nil, ErrNoLessons
	}

	t := &Tracker{
		userID:   opt.UserID,
		courseID: opt.Outline.ID,
		lessons:  lessons,
		writer:   opt.Writer,
		sched:    opt.Scheduler,
		interval: opt.FlushInterval,
		baseCtx:  logging.DetachedContext(ctx),
		logger: logging.ExtractLoggerFromContext(ctx).With(
			zap.String("user.id", opt.UserID),
			zap.String("course.id", opt.Outline.ID),
		),
		records: make(map[string]*ProgressModel, len(opt.Records)),
	}
	for _, r := range opt.Records {
		t.records[r.LessonID] = r
	}

	t.current = StartingLesson(lessons, opt.Records)
	if opt.StartLessonID != "" {
		idx := t.indexOf(opt.StartLessonID)
		if idx < 0 {
			return nil, ErrLessonNotFound
		}
		t.current = idx
	}
	t.resetPositionLocked()
	return t, nil
}

func (t *Tracker) indexOf(lessonID string) int {
	for i, l := range t.lessons {
		if l.ID == lessonID {
			return i
		}
	}
	return -1
}

// resetPositionLocked resume from the stored position of the current lesson
func (t *Tracker) resetPositionLocked() {
	t.position = 0
	if r, ok := t.records[t.lessons[t.current].ID]; ok {
		t.position = r.WatchedSeconds
	}
	t.reported = false
}

// Start arm the periodic flush, it only writes when playback was reported since the last save
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || t.handle != nil || t.sched == nil || t.interval <= 0 {
		return
	}
	t.handle = t.sched.Every(t.interval, t.tick)
}

func (t *Tracker) tick() {
	t.mu.Lock()
	active := t.reported && !t.closed
	t.mu.Unlock()
	if !active {
		return
	}
	if _, err := t.Flush(t.baseCtx, false); err != nil && err != ErrTrackerClosed {
		// next tick retries with the preserved position
		t.logger.Warn("failed to save playback progress", zap.Error(err))
	}
}

// RecordPlaybackPosition keep the highest position reported since the last save, no I/O
func (t *Tracker) RecordPlaybackPosition(lessonID string, seconds int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTrackerClosed
	}
	if t.lessons[t.current].ID != lessonID {
		return ErrLessonNotActive
	}
	if seconds < 0 {
		return ErrInvalidPosition
	}
	if !t.reported || seconds > t.position {
		t.position = seconds
	}
	if t.flushing && (!t.freshSet || seconds > t.fresh) {
		t.fresh = seconds
		t.freshSet = true
	}
	t.reported = true
	t.seq++
	return nil
}

// Flush persist the current lesson. A failed flush keeps the buffered position
func (t *Tracker) Flush(ctx context.Context, completed bool) (*ProgressModel, error) {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil, ErrTrackerClosed
	}
	return t.flushLocked(ctx, completed)
}

func (t *Tracker) flushLocked(ctx context.Context, completed bool) (*ProgressModel, error) {
	t.mu.Lock()
	lesson := t.lessons[t.current]
	post := &ProgressModel{
		UserID:         t.userID,
		LessonID:       lesson.ID,
		CourseID:       t.courseID,
		WatchedSeconds: t.position,
		Completed:      completed,
	}
	if r, ok := t.records[lesson.ID]; ok && r.Completed {
		post.Completed = true
	}
	seq := t.seq
	t.flushing, t.freshSet = true, false
	t.mu.Unlock()

	stored, err := t.writer.Upsert(ctx, post)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.flushing = false
	if err != nil {
		return nil, err
	}
	t.records[lesson.ID] = stored
	if t.seq == seq {
		t.reported = false
	} else {
		// only reports after the snapshot count towards the next save
		t.position = t.fresh
	}
	return stored, nil
}

// Complete mark the current lesson done and move to the next one in document order,
// the last lesson stays current. Nothing moves if saving fails
func (t *Tracker) Complete(ctx context.Context) (*TrackerState, error) {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	if t.isClosed() {
		return nil, ErrTrackerClosed
	}
	if _, err := t.flushLocked(ctx, true); err != nil {
		return nil, err
	}

	t.mu.Lock()
	if t.current < len(t.lessons)-1 {
		t.current++
		t.resetPositionLocked()
	}
	t.mu.Unlock()
	return t.Snapshot(), nil
}

// Select switch to lessonID, unsaved playback of the previous lesson is flushed first
func (t *Tracker) Select(ctx context.Context, lessonID string) (*TrackerState, error) {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	if t.isClosed() {
		return nil, ErrTrackerClosed
	}
	idx := t.indexOf(lessonID)
	if idx < 0 {
		return nil, ErrLessonNotFound
	}

	t.mu.Lock()
	same, pending := idx == t.current, t.reported
	t.mu.Unlock()
	if same {
		return t.Snapshot(), nil
	}
	if pending {
		if _, err := t.flushLocked(ctx, false); err != nil {
			t.logger.Warn("failed to save playback progress before switching lesson",
				zap.String("lesson.id", t.lessons[t.current].ID), zap.Error(err))
		}
	}

	t.mu.Lock()
	t.current = idx
	t.resetPositionLocked()
	t.mu.Unlock()
	return t.Snapshot(), nil
}

// Close stop the periodic flush and save pending playback once more
func (t *Tracker) Close(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	h := t.handle
	t.handle = nil
	t.mu.Unlock()
	if h != nil {
		h.Stop()
	}

	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	var err error
	t.mu.Lock()
	pending := t.reported
	t.mu.Unlock()
	if pending {
		_, err = t.flushLocked(ctx, false)
	}

	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return err
}

func (t *Tracker) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Snapshot .
func (t *Tracker) Snapshot() *TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()

	lesson := t.lessons[t.current]
	records := make([]*ProgressModel, 0, len(t.records))
	for _, r := range t.records {
		records = append(records, r)
	}
	state := &TrackerState{
		CourseID:    t.courseID,
		LessonID:    lesson.ID,
		LessonIndex: t.current,
		Position:    t.position,
		Percentage:  CourseCompletion(t.lessons, records),
	}
	if r, ok := t.records[lesson.ID]; ok {
		state.Completed = r.Completed
	}
	return state
}
