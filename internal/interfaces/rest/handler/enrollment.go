package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/eclass/internal/enrollment"
	"github.com/pot-code/eclass/internal/infrastructure/auth"
)

type EnrollmentHandler struct {
	enrollmentUseCase enrollment.EnrollmentUseCase
	jwtUtil           *auth.JWTUtil
}

func NewEnrollmentHandler(EnrollmentUseCase enrollment.EnrollmentUseCase, JWTUtil *auth.JWTUtil) *EnrollmentHandler {
	return &EnrollmentHandler{EnrollmentUseCase, JWTUtil}
}

// HandleListEnrollments courses of the current user
func (eh *EnrollmentHandler) HandleListEnrollments(c echo.Context) (err error) {
	list, err := eh.enrollmentUseCase.ListByUser(c.Request().Context(), eh.jwtUtil.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// HandleEnroll enroll the current user, paying with credits
func (eh *EnrollmentHandler) HandleEnroll(c echo.Context) (err error) {
	e, err := eh.enrollmentUseCase.Enroll(c.Request().Context(), eh.jwtUtil.UserID(c), c.Param("id"))
	if err != nil {
		return replyError(c, err)
	}
	return c.JSON(http.StatusCreated, e)
}
