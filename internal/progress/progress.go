package progress

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/pot-code/eclass/internal/course"
)

var (
	// ErrLessonNotFound lesson does not belong to the course
	ErrLessonNotFound = errors.New("Lesson not found in this course")
	// ErrLessonNotActive position reported for a lesson other than the current one
	ErrLessonNotActive = errors.New("Lesson is not the active lesson")
	// ErrInvalidPosition .
	ErrInvalidPosition = errors.New("Playback position must not be negative")
	// ErrNoLessons course has nothing to track
	ErrNoLessons = errors.New("Course has no lessons")
	// ErrTrackerClosed .
	ErrTrackerClosed = errors.New("Progress tracker is closed")
)

// ProgressModel watch state of one lesson for one learner
type ProgressModel struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	LessonID       string     `json:"lesson_id" validate:"required"`
	CourseID       string     `json:"course_id"`
	WatchedSeconds int        `json:"watched_seconds" validate:"min=0"`
	Completed      bool       `json:"completed"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// CourseProgress aggregate progress of a learner in a course
type CourseProgress struct {
	CourseID        string           `json:"course_id"`
	Percentage      int              `json:"percentage"`
	CurrentLessonID string           `json:"current_lesson_id,omitempty"`
	Records         []*ProgressModel `json:"records"`
}

// CourseCompletion round(100 * completed / total) over the lessons of a course, records of other
// lessons are ignored. 0 for a course without lessons
func CourseCompletion(lessons []*course.LessonModel, records []*ProgressModel) int {
	if len(lessons) == 0 {
		return 0
	}
	done := make(map[string]bool, len(records))
	for _, r := range records {
		if r.Completed {
			done[r.LessonID] = true
		}
	}
	completed := 0
	for _, l := range lessons {
		if done[l.ID] {
			completed++
		}
	}
	return int(math.Round(float64(100*completed) / float64(len(lessons))))
}

// StartingLesson index of the first incomplete lesson in document order, or 0 if all are done
func StartingLesson(lessons []*course.LessonModel, records []*ProgressModel) int {
	done := make(map[string]bool, len(records))
	for _, r := range records {
		if r.Completed {
			done[r.LessonID] = true
		}
	}
	for i, l := range lessons {
		if !done[l.ID] {
			return i
		}
	}
	return 0
}

// ProgressWriter persists one progress record
type ProgressWriter interface {
	// Upsert stores watched seconds and completion of (user, lesson). Completion never reverts
	// and completed_at is set once
	Upsert(ctx context.Context, post *ProgressModel) (*ProgressModel, error)
}

type ProgressRepository interface {
	ProgressWriter
	GetByUserAndCourse(ctx context.Context, userID, courseID string) ([]*ProgressModel, error)
}

// EnrollmentChecker .
type EnrollmentChecker interface {
	Check(ctx context.Context, userID, courseID string) (bool, error)
}

type ProgressUseCase interface {
	GetCourseProgress(ctx context.Context, userID, courseID string) (*CourseProgress, error)
	UpdateProgress(ctx context.Context, post *ProgressModel) (*ProgressModel, error)
	OpenTracker(ctx context.Context, userID, courseID, lessonID string) (*Tracker, error)
}
