package course

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pot-code/eclass/internal/infrastructure/driver"
)

type CourseMySQL struct {
	Conn driver.ITransactionalDB
}

var _ CourseRepository = &CourseMySQL{}

func NewCourseRepository(Conn driver.ITransactionalDB) *CourseMySQL {
	return &CourseMySQL{Conn}
}

func (repo *CourseMySQL) GetCourse(ctx context.Context, courseID string) (*CourseModel, error) {
	rows, err := repo.Conn.QueryContext(ctx, `
SELECT
	"id", "category_id", "title", "description", "thumbnail_url", "price", "sale_price",
	"is_published", "duration_minutes", "created_at"
FROM "courses"
WHERE "id" = $1 AND "is_published" = TRUE`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "query course")
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	c := new(CourseModel)
	if err := rows.Scan(&c.ID, &c.CategoryID, &c.Title, &c.Description, &c.ThumbnailURL, &c.Price, &c.SalePrice,
		&c.IsPublished, &c.DurationMinutes, &c.CreatedAt); err != nil {
		return nil, errors.Wrap(err, "scan course")
	}
	return c, nil
}

func (repo *CourseMySQL) GetCourseWithChapters(ctx context.Context, courseID string) (*CourseOutline, error) {
	c, err := repo.GetCourse(ctx, courseID)
	if err != nil || c == nil {
		return nil, err
	}

	outline := &CourseOutline{CourseModel: c}
	chapters, err := repo.getChapters(ctx, courseID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*ChapterModel, len(chapters))
	for _, ch := range chapters {
		byID[ch.ID] = ch
	}

	lessons, err := repo.getLessons(ctx, courseID)
	if err != nil {
		return nil, err
	}
	for _, l := range lessons {
		// lessons of a deleted chapter are not reachable from the outline
		if ch, ok := byID[l.ChapterID]; ok {
			ch.Lessons = append(ch.Lessons, l)
		}
	}
	outline.Chapters = chapters
	SortOutline(outline)
	return outline, nil
}

func (repo *CourseMySQL) getChapters(ctx context.Context, courseID string) ([]*ChapterModel, error) {
	rows, err := repo.Conn.QueryContext(ctx, `
SELECT "id", "course_id", "title", "order_index"
FROM "chapters"
WHERE "course_id" = $1
ORDER BY "order_index" ASC`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "query chapters")
	}
	defer rows.Close()

	var result []*ChapterModel
	for rows.Next() {
		ch := new(ChapterModel)
		if err := rows.Scan(&ch.ID, &ch.CourseID, &ch.Title, &ch.OrderIndex); err != nil {
			return nil, errors.Wrap(err, "scan chapter")
		}
		ch.Lessons = []*LessonModel{}
		result = append(result, ch)
	}
	return result, rows.Err()
}

func (repo *CourseMySQL) getLessons(ctx context.Context, courseID string) ([]*LessonModel, error) {
	rows, err := repo.Conn.QueryContext(ctx, `
SELECT "id", "chapter_id", "course_id", "title", "video_url", "duration_seconds", "order_index", "is_preview"
FROM "lessons"
WHERE "course_id" = $1
ORDER BY "order_index" ASC`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "query lessons")
	}
	defer rows.Close()

	var result []*LessonModel
	for rows.Next() {
		l := new(LessonModel)
		if err := rows.Scan(&l.ID, &l.ChapterID, &l.CourseID, &l.Title, &l.VideoURL, &l.DurationSeconds,
			&l.OrderIndex, &l.IsPreview); err != nil {
			return nil, errors.Wrap(err, "scan lesson")
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
