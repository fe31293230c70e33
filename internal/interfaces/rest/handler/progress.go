package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	infra "github.com/pot-code/eclass/internal/infrastructure"
	"github.com/pot-code/eclass/internal/infrastructure/auth"
	"github.com/pot-code/eclass/internal/infrastructure/logging"
	"github.com/pot-code/eclass/internal/infrastructure/validate"
	"github.com/pot-code/eclass/internal/progress"
	"go.uber.org/zap"
)

var errUnknownMessage = errors.New("Unknown message type")

// player messages on the learn socket
const (
	learnPosition = "position"
	learnSelect   = "select"
	learnComplete = "complete"
)

type learnCommand struct {
	Type     string `json:"type"`
	LessonID string `json:"lesson_id"`
	Position int    `json:"position"`
}

type learnReply struct {
	Type  string                 `json:"type"`
	State *progress.TrackerState `json:"state"`
}

type ProgressHandler struct {
	progressUseCase progress.ProgressUseCase
	jwtUtil         *auth.JWTUtil
	validator       validate.Validator
}

func NewProgressHandler(
	ProgressUseCase progress.ProgressUseCase,
	JWTUtil *auth.JWTUtil,
	Validator validate.Validator,
) *ProgressHandler {
	return &ProgressHandler{ProgressUseCase, JWTUtil, Validator}
}

// HandleGetProgress completion percentage and per lesson records
func (ph *ProgressHandler) HandleGetProgress(c echo.Context) (err error) {
	p, err := ph.progressUseCase.GetCourseProgress(c.Request().Context(), ph.jwtUtil.UserID(c), c.Param("id"))
	if err != nil {
		return replyError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// HandleUpdateProgress single write for players without a socket
func (ph *ProgressHandler) HandleUpdateProgress(c echo.Context) (err error) {
	post := new(progress.ProgressModel)
	if err = c.Bind(post); err != nil {
		return replyBindError(c, err)
	}
	// the :id param names the course, never the record
	post.ID = ""
	post.UserID = ph.jwtUtil.UserID(c)
	post.CourseID = c.Param("id")
	if err := ph.validator.Struct(post); err != nil {
		return replyInvalid(c, "Failed to validate fields", err)
	}

	stored, err := ph.progressUseCase.UpdateProgress(c.Request().Context(), post)
	if err != nil {
		return replyError(c, err)
	}
	return c.JSON(http.StatusOK, stored)
}

// HandleLearnSocket one tracker per connection, closed together with the socket
func (ph *ProgressHandler) HandleLearnSocket(ctx context.Context, c echo.Context, conn *infra.SocketConn) error {
	tracker, err := ph.progressUseCase.OpenTracker(ctx, ph.jwtUtil.UserID(c), c.Param("id"), c.QueryParam("lesson_id"))
	if err != nil {
		conn.WriteJSON(newSocketError(err))
		return err
	}
	tracker.Start()
	defer func() {
		if err := tracker.Close(logging.DetachedContext(ctx)); err != nil {
			logging.ExtractLoggerFromContext(ctx).Warn("failed to save playback progress on close", zap.Error(err))
		}
	}()

	if err := conn.WriteJSON(&learnReply{Type: "state", State: tracker.Snapshot()}); err != nil {
		return err
	}
	for {
		msg := new(learnCommand)
		if err := conn.ReadJSON(msg); err != nil {
			return err
		}

		var state *progress.TrackerState
		switch msg.Type {
		case learnPosition:
			if err = tracker.RecordPlaybackPosition(msg.LessonID, msg.Position); err == nil {
				continue
			}
		case learnSelect:
			state, err = tracker.Select(ctx, msg.LessonID)
		case learnComplete:
			state, err = tracker.Complete(ctx)
		default:
			err = errUnknownMessage
		}

		if err != nil {
			err = conn.WriteJSON(newSocketError(err))
		} else {
			err = conn.WriteJSON(&learnReply{Type: "state", State: state})
		}
		if err != nil {
			return err
		}
	}
}
