package enrollment

import (
	"context"
	"fmt"

	"github.com/pot-code/eclass/internal/course"
	"go.elastic.co/apm"
)

// EnrollmentUseCaseImpl ...
type EnrollmentUseCaseImpl struct {
	EnrollmentRepository EnrollmentRepository
	CourseUseCase        course.CourseUseCase
}

var _ EnrollmentUseCase = &EnrollmentUseCaseImpl{}

// NewEnrollmentUseCase ...
func NewEnrollmentUseCase(
	EnrollmentRepository EnrollmentRepository,
	CourseUseCase course.CourseUseCase,
) *EnrollmentUseCaseImpl {
	return &EnrollmentUseCaseImpl{EnrollmentRepository, CourseUseCase}
}

// Check .
func (eu *EnrollmentUseCaseImpl) Check(ctx context.Context, userID, courseID string) (bool, error) {
	apmSpan, _ := apm.StartSpan(ctx, "EnrollmentUseCaseImpl.Check", "service")
	defer apmSpan.End()

	return eu.EnrollmentRepository.Check(ctx, userID, courseID)
}

// Enroll paid courses are charged at their effective price
func (eu *EnrollmentUseCaseImpl) Enroll(ctx context.Context, userID, courseID string) (*EnrollmentModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "EnrollmentUseCaseImpl.Enroll", "service")
	defer apmSpan.End()

	c, err := eu.CourseUseCase.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if enrolled, err := eu.EnrollmentRepository.Check(ctx, userID, courseID); err != nil {
		return nil, err
	} else if enrolled {
		return nil, ErrAlreadyEnrolled
	}

	post := &EnrollmentModel{UserID: userID, CourseID: courseID}
	price := c.EffectivePrice()
	if price < 0 {
		price = 0
	}
	if err := eu.EnrollmentRepository.Enroll(ctx, post, price, fmt.Sprintf("Enroll: %s", c.Title)); err != nil {
		return nil, err
	}
	return post, nil
}

// ListByUser .
func (eu *EnrollmentUseCaseImpl) ListByUser(ctx context.Context, userID string) ([]*EnrolledCourse, error) {
	apmSpan, _ := apm.StartSpan(ctx, "EnrollmentUseCaseImpl.ListByUser", "service")
	defer apmSpan.End()

	return eu.EnrollmentRepository.ListByUser(ctx, userID)
}
