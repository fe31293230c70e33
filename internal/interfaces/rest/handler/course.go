package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/eclass/internal/course"
)

type CourseHandler struct {
	courseUseCase course.CourseUseCase
}

func NewCourseHandler(CourseUseCase course.CourseUseCase) *CourseHandler {
	return &CourseHandler{CourseUseCase}
}

// HandleGetCourse course outline with chapters and lessons in order
func (ch *CourseHandler) HandleGetCourse(c echo.Context) (err error) {
	outline, err := ch.courseUseCase.GetCourseWithChapters(c.Request().Context(), c.Param("id"))
	if err != nil {
		return replyError(c, err)
	}
	return c.JSON(http.StatusOK, outline)
}
