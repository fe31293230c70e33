package course

import (
	"context"
	"errors"
	"sort"
	"time"
)

// ErrCourseNotFound course does not exist or is not published
var ErrCourseNotFound = errors.New("Course not found")

// CourseModel .
type CourseModel struct {
	ID              string     `json:"id"`
	CategoryID      *string    `json:"category_id,omitempty"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	ThumbnailURL    string     `json:"thumbnail_url,omitempty"`
	Price           int        `json:"price"`
	SalePrice       *int       `json:"sale_price,omitempty"`
	IsPublished     bool       `json:"is_published"`
	DurationMinutes int        `json:"duration_minutes"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
}

// EffectivePrice sale price if set, otherwise the list price
func (c *CourseModel) EffectivePrice() int {
	if c.SalePrice != nil {
		return *c.SalePrice
	}
	return c.Price
}

// ChapterModel .
type ChapterModel struct {
	ID         string         `json:"id"`
	CourseID   string         `json:"course_id"`
	Title      string         `json:"title"`
	OrderIndex int            `json:"order_index"`
	Lessons    []*LessonModel `json:"lessons"`
}

// LessonModel .
type LessonModel struct {
	ID              string `json:"id"`
	ChapterID       string `json:"chapter_id"`
	CourseID        string `json:"course_id"`
	Title           string `json:"title"`
	VideoURL        string `json:"video_url,omitempty"`
	DurationSeconds int    `json:"duration_seconds"`
	OrderIndex      int    `json:"order_index"`
	IsPreview       bool   `json:"is_preview"`
}

// CourseOutline course with its chapters and lessons in document order
type CourseOutline struct {
	*CourseModel
	Chapters []*ChapterModel `json:"chapters"`
}

// Lessons flatten the outline: chapter order, then lesson order within chapter
func (o *CourseOutline) Lessons() []*LessonModel {
	var lessons []*LessonModel
	for _, ch := range o.Chapters {
		lessons = append(lessons, ch.Lessons...)
	}
	return lessons
}

// LessonIndex position of lessonID in document order, -1 if absent
func (o *CourseOutline) LessonIndex(lessonID string) int {
	for i, l := range o.Lessons() {
		if l.ID == lessonID {
			return i
		}
	}
	return -1
}

// SortOutline order chapters and lessons by order_index, ties keep their loaded order
func SortOutline(o *CourseOutline) {
	sort.SliceStable(o.Chapters, func(i, j int) bool {
		return o.Chapters[i].OrderIndex < o.Chapters[j].OrderIndex
	})
	for _, ch := range o.Chapters {
		lessons := ch.Lessons
		sort.SliceStable(lessons, func(i, j int) bool {
			return lessons[i].OrderIndex < lessons[j].OrderIndex
		})
	}
}

type CourseRepository interface {
	// GetCourseWithChapters returns nil if the course does not exist or is not published
	GetCourseWithChapters(ctx context.Context, courseID string) (*CourseOutline, error)
	GetCourse(ctx context.Context, courseID string) (*CourseModel, error)
}

type CourseUseCase interface {
	GetCourseWithChapters(ctx context.Context, courseID string) (*CourseOutline, error)
	GetCourse(ctx context.Context, courseID string) (*CourseModel, error)
}
