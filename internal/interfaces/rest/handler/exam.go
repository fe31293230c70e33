package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/eclass/internal/exam"
	infra "github.com/pot-code/eclass/internal/infrastructure"
	"github.com/pot-code/eclass/internal/infrastructure/auth"
	"github.com/pot-code/eclass/internal/infrastructure/validate"
)

// pending events per exam socket, ticks beyond it are dropped
const examEventBuffer = 8

type answerForm struct {
	QuestionID string `json:"question_id" validate:"required"`
	Option     *int   `json:"option" validate:"required,min=0"`
}

type cursorForm struct {
	Index *int `json:"index" validate:"required,min=0"`
}

type ExamHandler struct {
	examUseCase exam.ExamUseCase
	jwtUtil     *auth.JWTUtil
	validator   validate.Validator
}

func NewExamHandler(ExamUseCase exam.ExamUseCase, JWTUtil *auth.JWTUtil, Validator validate.Validator) *ExamHandler {
	return &ExamHandler{ExamUseCase, JWTUtil, Validator}
}

func (eh *ExamHandler) session(c echo.Context) (*exam.Session, error) {
	return eh.examUseCase.GetSession(c.Request().Context(), eh.jwtUtil.UserID(c), c.Param("sid"))
}

// HandleOpenSession new session in the not started state
func (eh *ExamHandler) HandleOpenSession(c echo.Context) (err error) {
	s, err := eh.examUseCase.OpenSession(c.Request().Context(), eh.jwtUtil.UserID(c), c.Param("id"))
	if err != nil {
		return replyError(c, err)
	}
	return c.JSON(http.StatusCreated, s.View())
}

func (eh *ExamHandler) HandleGetSession(c echo.Context) (err error) {
	s, err := eh.session(c)
	if err != nil {
		return replyError(c, err)
	}
	return c.JSON(http.StatusOK, s.View())
}

// HandleStart start the countdown
func (eh *ExamHandler) HandleStart(c echo.Context) (err error) {
	s, err := eh.session(c)
	if err != nil {
		return replyError(c, err)
	}
	if err := s.Start(); err != nil {
		return replyError(c, err)
	}
	return c.JSON(http.StatusOK, s.View())
}

func (eh *ExamHandler) HandleAnswer(c echo.Context) (err error) {
	post := new(answerForm)
	if err = c.Bind(post); err != nil {
		return replyBindError(c, err)
	}
	if err := eh.validator.Struct(post); err != nil {
		return replyInvalid(c, "Failed to validate fields", err)
	}

	s, err := eh.session(c)
	if err != nil {
		return replyError(c, err)
	}
	if err := s.Answer(post.QuestionID, *post.Option); err != nil {
		return replyError(c, err)
	}
	return c.JSON(http.StatusOK, s.View())
}

func (eh *ExamHandler) HandleGoto(c echo.Context) (err error) {
	post := new(cursorForm)
	if err = c.Bind(post); err != nil {
		return replyBindError(c, err)
	}
	if err := eh.validator.Struct(post); err != nil {
		return replyInvalid(c, "Failed to validate fields", err)
	}

	s, err := eh.session(c)
	if err != nil {
		return replyError(c, err)
	}
	if err := s.Goto(*post.Index); err != nil {
		return replyError(c, err)
	}
	return c.JSON(http.StatusOK, s.View())
}

// HandleSubmit grade the session, a failed save can be retried with the same request
func (eh *ExamHandler) HandleSubmit(c echo.Context) (err error) {
	s, err := eh.session(c)
	if err != nil {
		return replyError(c, err)
	}
	outcome, err := s.Submit(c.Request().Context())
	if err != nil {
		return replyError(c, err)
	}
	return c.JSON(http.StatusOK, outcome)
}

// HandleCloseSession discard the session, an unfinished exam leaves no result
func (eh *ExamHandler) HandleCloseSession(c echo.Context) (err error) {
	err = eh.examUseCase.CloseSession(c.Request().Context(), eh.jwtUtil.UserID(c), c.Param("sid"))
	if err != nil {
		return replyError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleListResults own results, newest first, optionally filtered by exam_id
func (eh *ExamHandler) HandleListResults(c echo.Context) (err error) {
	list, err := eh.examUseCase.ListResults(c.Request().Context(), eh.jwtUtil.UserID(c), c.QueryParam("exam_id"))
	if err != nil {
		return replyError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// HandleSessionSocket push countdown ticks and the final outcome of a session
func (eh *ExamHandler) HandleSessionSocket(ctx context.Context, c echo.Context, conn *infra.SocketConn) error {
	s, err := eh.examUseCase.GetSession(ctx, eh.jwtUtil.UserID(c), c.Param("sid"))
	if err != nil {
		conn.WriteJSON(newSocketError(err))
		return err
	}

	events := make(chan exam.Event, examEventBuffer)
	cancel := s.Subscribe(func(e exam.Event) {
		select {
		case events <- e:
		default:
			if e.Type == exam.EventTick {
				return
			}
			go func() {
				select {
				case events <- e:
				case <-ctx.Done():
				}
			}()
		}
	})
	defer cancel()

	if view := s.View(); view.State == exam.Finished {
		return conn.WriteJSON(&exam.Event{Type: exam.EventFinished, Outcome: view.Outcome})
	} else if err := conn.WriteJSON(&exam.Event{Type: exam.EventTick, Remaining: view.Remaining}); err != nil {
		return err
	}

	// reading keeps pong handling alive and notices the client going away
	closed := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closed <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-closed:
			return err
		case e := <-events:
			if err := conn.WriteJSON(&e); err != nil {
				return err
			}
			if e.Type == exam.EventFinished {
				return nil
			}
		}
	}
}
