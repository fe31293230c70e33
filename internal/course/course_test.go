package course

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pot-code/eclass/internal/infrastructure/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOutline() *CourseOutline {
	sale := 80
	return &CourseOutline{
		CourseModel: &CourseModel{ID: "c1", Title: "Go", Price: 100, SalePrice: &sale, IsPublished: true},
		Chapters: []*ChapterModel{
			{ID: "ch2", CourseID: "c1", OrderIndex: 2, Lessons: []*LessonModel{
				{ID: "l4", ChapterID: "ch2", OrderIndex: 1},
				{ID: "l3", ChapterID: "ch2", OrderIndex: 0},
			}},
			{ID: "ch1", CourseID: "c1", OrderIndex: 1, Lessons: []*LessonModel{
				{ID: "l2", ChapterID: "ch1", OrderIndex: 5},
				{ID: "l1", ChapterID: "ch1", OrderIndex: 1},
			}},
		},
	}
}

func lessonIDs(lessons []*LessonModel) []string {
	var ids []string
	for _, l := range lessons {
		ids = append(ids, l.ID)
	}
	return ids
}

func TestSortOutline(t *testing.T) {
	outline := sampleOutline()
	SortOutline(outline)

	assert.Equal(t, []string{"l1", "l2", "l3", "l4"}, lessonIDs(outline.Lessons()))
	assert.Equal(t, 2, outline.LessonIndex("l3"))
	assert.Equal(t, -1, outline.LessonIndex("missing"))
}

func TestEffectivePrice(t *testing.T) {
	outline := sampleOutline()
	assert.Equal(t, 80, outline.EffectivePrice())

	outline.SalePrice = nil
	assert.Equal(t, 100, outline.EffectivePrice())
}

type fakeCourseRepository struct {
	outlines map[string]*CourseOutline
	calls    int
	err      error
}

func (f *fakeCourseRepository) GetCourseWithChapters(ctx context.Context, courseID string) (*CourseOutline, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.outlines[courseID], nil
}

func (f *fakeCourseRepository) GetCourse(ctx context.Context, courseID string) (*CourseModel, error) {
	if o, ok := f.outlines[courseID]; ok {
		return o.CourseModel, nil
	}
	return nil, f.err
}

type memoryKV struct {
	data map[string]string
	err  error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: make(map[string]string)}
}

func (m *memoryKV) SetEX(ctx context.Context, key string, value string, expiration time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *memoryKV) Get(ctx context.Context, key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.data[key]
	if !ok {
		return "", driver.ErrKeyNotExist
	}
	return v, nil
}

func (m *memoryKV) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, m.err
}

func (m *memoryKV) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return m.err
}

func (m *memoryKV) Ping(ctx context.Context) error {
	return m.err
}

func TestGetCourseWithChaptersCached(t *testing.T) {
	outline := sampleOutline()
	SortOutline(outline)
	repo := &fakeCourseRepository{outlines: map[string]*CourseOutline{"c1": outline}}
	kv := newMemoryKV()
	uc := NewCourseUseCase(repo, kv, time.Minute)
	ctx := context.Background()

	first, err := uc.GetCourseWithChapters(ctx, "c1")
	require.NoError(t, err)
	second, err := uc.GetCourseWithChapters(ctx, "c1")
	require.NoError(t, err)

	assert.Equal(t, 1, repo.calls, "second read is served from cache")
	assert.Equal(t, lessonIDs(first.Lessons()), lessonIDs(second.Lessons()))
	assert.Equal(t, 80, second.EffectivePrice())

	_, err = uc.GetCourseWithChapters(ctx, "missing")
	assert.Equal(t, ErrCourseNotFound, err)
}

func TestGetCourseWithChaptersCacheFailure(t *testing.T) {
	repo := &fakeCourseRepository{outlines: map[string]*CourseOutline{"c1": sampleOutline()}}
	kv := newMemoryKV()
	kv.err = errors.New("connection refused")
	uc := NewCourseUseCase(repo, kv, time.Minute)

	for i := 0; i < 2; i++ {
		outline, err := uc.GetCourseWithChapters(context.Background(), "c1")
		require.NoError(t, err)
		assert.Equal(t, "c1", outline.ID)
	}
	assert.Equal(t, 2, repo.calls)
}

func TestGetCourseWithChaptersCacheDisabled(t *testing.T) {
	repo := &fakeCourseRepository{outlines: map[string]*CourseOutline{"c1": sampleOutline()}}
	kv := newMemoryKV()
	uc := NewCourseUseCase(repo, kv, 0)

	_, err := uc.GetCourseWithChapters(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, kv.data)
}

func TestGetCourse(t *testing.T) {
	repo := &fakeCourseRepository{outlines: map[string]*CourseOutline{"c1": sampleOutline()}}
	uc := NewCourseUseCase(repo, nil, 0)

	c, err := uc.GetCourse(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Go", c.Title)

	_, err = uc.GetCourse(context.Background(), "c2")
	assert.Equal(t, ErrCourseNotFound, err)
}
