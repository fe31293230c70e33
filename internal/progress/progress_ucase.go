package progress

import (
	"context"
	"time"

	"github.com/pot-code/eclass/internal/course"
	"github.com/pot-code/eclass/internal/enrollment"
	"github.com/pot-code/eclass/internal/infrastructure/scheduler"
	"go.elastic.co/apm"
)

// ProgressUseCaseImpl ...
type ProgressUseCaseImpl struct {
	ProgressRepository ProgressRepository
	CourseUseCase      course.CourseUseCase
	Enrollment         EnrollmentChecker
	Scheduler          scheduler.Scheduler
	FlushInterval      time.Duration
}

var _ ProgressUseCase = &ProgressUseCaseImpl{}

// NewProgressUseCase ...
func NewProgressUseCase(
	ProgressRepository ProgressRepository,
	CourseUseCase course.CourseUseCase,
	Enrollment EnrollmentChecker,
	Scheduler scheduler.Scheduler,
	FlushInterval time.Duration,
) *ProgressUseCaseImpl {
	return &ProgressUseCaseImpl{
		ProgressRepository: ProgressRepository,
		CourseUseCase:      CourseUseCase,
		Enrollment:         Enrollment,
		Scheduler:          Scheduler,
		FlushInterval:      FlushInterval,
	}
}

// load enrollment gate, outline and existing records
func (pu *ProgressUseCaseImpl) load(ctx context.Context, userID, courseID string) (*course.CourseOutline, []*ProgressModel, error) {
	enrolled, err := pu.Enrollment.Check(ctx, userID, courseID)
	if err != nil {
		return nil, nil, err
	}
	if !enrolled {
		return nil, nil, enrollment.ErrNotEnrolled
	}
	outline, err := pu.CourseUseCase.GetCourseWithChapters(ctx, courseID)
	if err != nil {
		return nil, nil, err
	}
	records, err := pu.ProgressRepository.GetByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return nil, nil, err
	}
	return outline, records, nil
}

// GetCourseProgress completion percentage and the lesson to resume from
func (pu *ProgressUseCaseImpl) GetCourseProgress(ctx context.Context, userID, courseID string) (*CourseProgress, error) {
	apmSpan, _ := apm.StartSpan(ctx, "ProgressUseCaseImpl.GetCourseProgress", "service")
	defer apmSpan.End()

	outline, records, err := pu.load(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	lessons := outline.Lessons()
	result := &CourseProgress{
		CourseID:   courseID,
		Percentage: CourseCompletion(lessons, records),
		Records:    records,
	}
	if len(lessons) > 0 {
		result.CurrentLessonID = lessons[StartingLesson(lessons, records)].ID
	}
	return result, nil
}

// UpdateProgress single write for clients without a tracker connection
func (pu *ProgressUseCaseImpl) UpdateProgress(ctx context.Context, post *ProgressModel) (*ProgressModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "ProgressUseCaseImpl.UpdateProgress", "service")
	defer apmSpan.End()

	if post.WatchedSeconds < 0 {
		return nil, ErrInvalidPosition
	}
	enrolled, err := pu.Enrollment.Check(ctx, post.UserID, post.CourseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, enrollment.ErrNotEnrolled
	}
	outline, err := pu.CourseUseCase.GetCourseWithChapters(ctx, post.CourseID)
	if err != nil {
		return nil, err
	}
	if outline.LessonIndex(post.LessonID) < 0 {
		return nil, ErrLessonNotFound
	}
	return pu.ProgressRepository.Upsert(ctx, post)
}

// OpenTracker tracker for a learner's course view, the caller must Start and Close it
func (pu *ProgressUseCaseImpl) OpenTracker(ctx context.Context, userID, courseID, lessonID string) (*Tracker, error) {
	apmSpan, _ := apm.StartSpan(ctx, "ProgressUseCaseImpl.OpenTracker", "service")
	defer apmSpan.End()

	outline, records, err := pu.load(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	return NewTracker(ctx, &TrackerOption{
		UserID:        userID,
		Enrolled:      true,
		Outline:       outline,
		Records:       records,
		StartLessonID: lessonID,
		Writer:        pu.ProgressRepository,
		Scheduler:     pu.Scheduler,
		FlushInterval: pu.FlushInterval,
	})
}
