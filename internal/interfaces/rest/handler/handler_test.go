package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/eclass/internal/enrollment"
	"github.com/pot-code/eclass/internal/exam"
	"github.com/pot-code/eclass/internal/infrastructure/auth"
	"github.com/pot-code/eclass/internal/infrastructure/scheduler"
	"github.com/pot-code/eclass/internal/infrastructure/validate"
	"github.com/pot-code/eclass/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testJWT = auth.NewJWTUtil("HS256", "secret", "token", 0)

type savedResults struct {
	mu    sync.Mutex
	saved []*exam.ResultModel
}

func (sr *savedResults) SaveResult(ctx context.Context, result *exam.ResultModel) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	result.ID = fmt.Sprintf("r%d", len(sr.saved)+1)
	sr.saved = append(sr.saved, result)
	return nil
}

type stubExams struct {
	session *exam.Session
	listErr error
}

func (se *stubExams) OpenSession(ctx context.Context, userID, examID string) (*exam.Session, error) {
	return se.session, nil
}

func (se *stubExams) GetSession(ctx context.Context, userID, sessionID string) (*exam.Session, error) {
	if se.session == nil || se.session.ID() != sessionID || se.session.UserID() != userID {
		return nil, exam.ErrSessionNotFound
	}
	return se.session, nil
}

func (se *stubExams) CloseSession(ctx context.Context, userID, sessionID string) error {
	s, err := se.GetSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	s.Close()
	return nil
}

func (se *stubExams) ListResults(ctx context.Context, userID, examID string) ([]*exam.ResultWithExam, error) {
	if se.listErr != nil {
		return nil, se.listErr
	}
	return []*exam.ResultWithExam{}, nil
}

type stubEnrollment struct {
	err error
}

func (se stubEnrollment) Check(ctx context.Context, userID, courseID string) (bool, error) {
	return se.err == nil, se.err
}

func (se stubEnrollment) Enroll(ctx context.Context, userID, courseID string) (*enrollment.EnrollmentModel, error) {
	if se.err != nil {
		return nil, se.err
	}
	return &enrollment.EnrollmentModel{UserID: userID, CourseID: courseID}, nil
}

func (se stubEnrollment) ListByUser(ctx context.Context, userID string) ([]*enrollment.EnrolledCourse, error) {
	return nil, nil
}

func twoQuestionExam() *exam.ExamModel {
	return &exam.ExamModel{
		ID:       "e1",
		CourseID: "c1",
		Title:    "Go basics",
		Questions: []*exam.QuestionModel{
			{ID: "q1", ExamID: "e1", Question: "one", Options: []string{"a", "b"}, CorrectAnswer: 0},
			{ID: "q2", ExamID: "e1", Question: "two", Options: []string{"a", "b", "c"}, CorrectAnswer: 2, OrderIndex: 1},
		},
	}
}

func newExamHandler(t *testing.T) (*ExamHandler, *savedResults) {
	results := new(savedResults)
	s, err := exam.NewSession(context.Background(), &exam.SessionOption{
		ID:        "s1",
		UserID:    "u1",
		Enrolled:  true,
		Exam:      twoQuestionExam(),
		TimeLimit: 10 * time.Minute,
		PassScore: 80,
		Results:   results,
		Scheduler: scheduler.NewManualScheduler(),
	})
	require.NoError(t, err)
	return NewExamHandler(&stubExams{session: s}, testJWT, validate.NewValidator()), results
}

// newRequest authenticated as u1, params are name/value pairs
func newRequest(method, body string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e := echo.New()
	// reserves param slots in new contexts
	e.GET("/:a/:b", func(echo.Context) error { return nil })
	c := e.NewContext(req, rec)
	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	testJWT.Bind(c, &auth.AppTokenClaims{UID: "u1"})
	return c, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	body := make(map[string]interface{})
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{enrollment.ErrNotEnrolled, http.StatusForbidden},
		{enrollment.ErrInsufficientCredits, http.StatusPaymentRequired},
		{fmt.Errorf("open: %w", exam.ErrSessionNotFound), http.StatusNotFound},
		{progress.ErrInvalidPosition, http.StatusBadRequest},
		{exam.ErrTimeUp, http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, StatusOf(tc.err), tc.err.Error())
	}
}

func TestExamHandlerTakeExam(t *testing.T) {
	eh, results := newExamHandler(t)

	c, rec := newRequest(http.MethodPost, "", "sid", "s1")
	require.NoError(t, eh.HandleStart(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "in_progress", decode(t, rec)["state"])

	c, rec = newRequest(http.MethodPost, "", "sid", "s1")
	require.NoError(t, eh.HandleSubmit(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	c, rec = newRequest(http.MethodPut, `{"question_id":"q1","option":5}`, "sid", "s1")
	require.NoError(t, eh.HandleAnswer(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newRequest(http.MethodPut, `{"question_id":"q1"}`, "sid", "s1")
	require.NoError(t, eh.HandleAnswer(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["invalid_params"])

	for _, body := range []string{`{"question_id":"q1","option":0}`, `{"question_id":"q2","option":2}`} {
		c, rec = newRequest(http.MethodPut, body, "sid", "s1")
		require.NoError(t, eh.HandleAnswer(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.EqualValues(t, 2, decode(t, rec)["answered"])

	c, rec = newRequest(http.MethodPut, `{"index":1}`, "sid", "s1")
	require.NoError(t, eh.HandleGoto(c))
	assert.EqualValues(t, 1, decode(t, rec)["cursor"])

	c, rec = newRequest(http.MethodPost, "", "sid", "s1")
	require.NoError(t, eh.HandleSubmit(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	result := decode(t, rec)["result"].(map[string]interface{})
	assert.EqualValues(t, 100, result["score"])
	assert.Equal(t, true, result["passed"])
	assert.Len(t, results.saved, 1)

	c, rec = newRequest(http.MethodPut, `{"question_id":"q1","option":1}`, "sid", "s1")
	require.NoError(t, eh.HandleAnswer(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestExamHandlerUnknownSession(t *testing.T) {
	eh, _ := newExamHandler(t)

	c, rec := newRequest(http.MethodGet, "", "sid", "other")
	require.NoError(t, eh.HandleGetSession(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.EqualValues(t, http.StatusNotFound, decode(t, rec)["code"])
}

func TestExamHandlerCloseSession(t *testing.T) {
	eh, _ := newExamHandler(t)

	c, rec := newRequest(http.MethodDelete, "", "sid", "s1")
	require.NoError(t, eh.HandleCloseSession(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, rec = newRequest(http.MethodPost, "", "sid", "s1")
	require.NoError(t, eh.HandleStart(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEnrollmentHandlerEnroll(t *testing.T) {
	c, rec := newRequest(http.MethodPost, "", "id", "c1")
	require.NoError(t, NewEnrollmentHandler(stubEnrollment{}, testJWT).HandleEnroll(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	c, rec = newRequest(http.MethodPost, "", "id", "c1")
	require.NoError(t, NewEnrollmentHandler(stubEnrollment{err: enrollment.ErrInsufficientCredits}, testJWT).HandleEnroll(c))
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestReplyErrorLeavesUnknownToMiddleware(t *testing.T) {
	boom := errors.New("boom")
	c, rec := newRequest(http.MethodPost, "", "id", "c1")
	err := NewEnrollmentHandler(stubEnrollment{err: boom}, testJWT).HandleEnroll(c)
	assert.Equal(t, boom, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestExamHandlerListResultsErrors(t *testing.T) {
	stub := &stubExams{listErr: exam.ErrExamNotFound}
	eh := NewExamHandler(stub, testJWT, validate.NewValidator())

	c, rec := newRequest(http.MethodGet, "")
	require.NoError(t, eh.HandleListResults(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	boom := errors.New("boom")
	stub.listErr = boom
	c, rec = newRequest(http.MethodGet, "")
	assert.Equal(t, boom, eh.HandleListResults(c))
	assert.Zero(t, rec.Body.Len())

	stub.listErr = nil
	c, rec = newRequest(http.MethodGet, "")
	require.NoError(t, eh.HandleListResults(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

type stubProgress struct {
	err error
}

func (sp stubProgress) GetCourseProgress(ctx context.Context, userID, courseID string) (*progress.CourseProgress, error) {
	return nil, sp.err
}

func (sp stubProgress) UpdateProgress(ctx context.Context, post *progress.ProgressModel) (*progress.ProgressModel, error) {
	if sp.err != nil {
		return nil, sp.err
	}
	return post, nil
}

func (sp stubProgress) OpenTracker(ctx context.Context, userID, courseID, lessonID string) (*progress.Tracker, error) {
	return nil, sp.err
}

func TestProgressHandlerRequiresEnrollment(t *testing.T) {
	ph := NewProgressHandler(stubProgress{err: enrollment.ErrNotEnrolled}, testJWT, validate.NewValidator())

	c, rec := newRequest(http.MethodGet, "", "id", "c1")
	require.NoError(t, ph.HandleGetProgress(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProgressHandlerUpdate(t *testing.T) {
	ph := NewProgressHandler(stubProgress{}, testJWT, validate.NewValidator())

	c, rec := newRequest(http.MethodPut, `{"lesson_id":"l1","watched_seconds":42}`, "id", "c1")
	require.NoError(t, ph.HandleUpdateProgress(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "u1", body["user_id"])
	assert.Equal(t, "c1", body["course_id"])
	assert.EqualValues(t, 42, body["watched_seconds"])
}
