package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/eclass/internal/certificate"
	"github.com/pot-code/eclass/internal/course"
	"github.com/pot-code/eclass/internal/enrollment"
	"github.com/pot-code/eclass/internal/exam"
	infra "github.com/pot-code/eclass/internal/infrastructure"
	"github.com/pot-code/eclass/internal/infrastructure/validate"
	"github.com/pot-code/eclass/internal/progress"
	"github.com/pot-code/eclass/internal/user"
)

var errorStatus = []struct {
	err  error
	code int
}{
	{enrollment.ErrNotEnrolled, http.StatusForbidden},
	{user.ErrUserTooManyRetry, http.StatusForbidden},
	{enrollment.ErrInsufficientCredits, http.StatusPaymentRequired},

	{course.ErrCourseNotFound, http.StatusNotFound},
	{progress.ErrLessonNotFound, http.StatusNotFound},
	{progress.ErrNoLessons, http.StatusNotFound},
	{exam.ErrExamNotFound, http.StatusNotFound},
	{exam.ErrSessionNotFound, http.StatusNotFound},
	{exam.ErrQuestionNotFound, http.StatusNotFound},
	{certificate.ErrCertificateNotFound, http.StatusNotFound},

	{progress.ErrInvalidPosition, http.StatusBadRequest},
	{progress.ErrLessonNotActive, http.StatusBadRequest},
	{exam.ErrOptionOutOfRange, http.StatusBadRequest},
	{errUnknownMessage, http.StatusBadRequest},

	{enrollment.ErrAlreadyEnrolled, http.StatusConflict},
	{user.ErrDuplicatedUser, http.StatusConflict},
	{progress.ErrTrackerClosed, http.StatusConflict},
	{exam.ErrSessionNotStarted, http.StatusConflict},
	{exam.ErrSessionStarted, http.StatusConflict},
	{exam.ErrSessionFinished, http.StatusConflict},
	{exam.ErrSubmitInProgress, http.StatusConflict},
	{exam.ErrUnansweredQuestions, http.StatusConflict},
	{exam.ErrTimeUp, http.StatusConflict},
}

// StatusOf http status for a domain error, 500 for anything unknown
func StatusOf(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return http.StatusInternalServerError
}

// replyError known domain errors are answered here, the rest is left to the error handling middleware
func replyError(c echo.Context, err error) error {
	code := StatusOf(err)
	if code == http.StatusInternalServerError {
		return err
	}
	traceID := c.Response().Header().Get(echo.HeaderXRequestID)
	return c.JSON(code, infra.NewRESTStandardError(code, err.Error()).SetTraceID(traceID))
}

func newStandardError(code int, err error) *infra.RESTStandardError {
	return infra.NewRESTStandardError(code, err.Error())
}

func replyBindError(c echo.Context, err error) error {
	detail := err.Error()
	if he, ok := err.(*echo.HTTPError); ok && he.Internal != nil {
		detail = he.Internal.Error()
	}
	return c.JSON(http.StatusUnprocessableEntity,
		infra.NewRESTStandardError(http.StatusUnprocessableEntity, detail))
}

func replyInvalid(c echo.Context, detail string, params []*validate.FieldError) error {
	return c.JSON(http.StatusBadRequest, infra.NewRESTValidationError(http.StatusBadRequest, detail, params))
}
