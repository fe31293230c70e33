package course

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pot-code/eclass/internal/infrastructure/driver"
	"github.com/pot-code/eclass/internal/infrastructure/logging"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

const outlineKeyPrefix = "course:outline:"

// CourseUseCaseImpl ...
type CourseUseCaseImpl struct {
	CourseRepository CourseRepository
	Cache            driver.KeyValueDB
	OutlineTTL       time.Duration // 0 disables caching
}

var _ CourseUseCase = &CourseUseCaseImpl{}

// NewCourseUseCase ...
func NewCourseUseCase(
	CourseRepository CourseRepository,
	Cache driver.KeyValueDB,
	OutlineTTL time.Duration,
) *CourseUseCaseImpl {
	return &CourseUseCaseImpl{CourseRepository, Cache, OutlineTTL}
}

// GetCourse published course
func (cu *CourseUseCaseImpl) GetCourse(ctx context.Context, courseID string) (*CourseModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "CourseUseCaseImpl.GetCourse", "service")
	defer apmSpan.End()

	c, err := cu.CourseRepository.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCourseNotFound
	}
	return c, nil
}

// GetCourseWithChapters outline in document order, served from the kv cache when possible.
// Cache failures are logged and fall through to the database
func (cu *CourseUseCaseImpl) GetCourseWithChapters(ctx context.Context, courseID string) (*CourseOutline, error) {
	apmSpan, _ := apm.StartSpan(ctx, "CourseUseCaseImpl.GetCourseWithChapters", "service")
	defer apmSpan.End()

	logger := logging.ExtractLoggerFromContext(ctx)
	key := outlineKeyPrefix + courseID
	if outline := cu.getCachedOutline(ctx, key, logger); outline != nil {
		return outline, nil
	}

	outline, err := cu.CourseRepository.GetCourseWithChapters(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if outline == nil {
		return nil, ErrCourseNotFound
	}

	if cu.Cache != nil && cu.OutlineTTL > 0 {
		if data, err := json.Marshal(outline); err == nil {
			if err := cu.Cache.SetEX(ctx, key, string(data), cu.OutlineTTL); err != nil {
				logger.Warn("failed to cache course outline", zap.String("course.id", courseID), zap.Error(err))
			}
		}
	}
	return outline, nil
}

func (cu *CourseUseCaseImpl) getCachedOutline(ctx context.Context, key string, logger *zap.Logger) *CourseOutline {
	if cu.Cache == nil || cu.OutlineTTL <= 0 {
		return nil
	}
	data, err := cu.Cache.Get(ctx, key)
	if err != nil {
		if err != driver.ErrKeyNotExist {
			logger.Warn("failed to read course outline cache", zap.String("cache.key", key), zap.Error(err))
		}
		return nil
	}
	outline := new(CourseOutline)
	if err := json.Unmarshal([]byte(data), outline); err != nil || outline.CourseModel == nil {
		logger.Warn("drop corrupted course outline cache", zap.String("cache.key", key))
		return nil
	}
	return outline
}
