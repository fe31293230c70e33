package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	infra "github.com/pot-code/eclass/internal/infrastructure"
	"go.uber.org/zap"
)

// ErrorHandlingOption options for error handling
type ErrorHandlingOption struct {
	// Handler replies to errors that are not *echo.HTTPError
	Handler func(c echo.Context, traceID string, err error)
	Logger  *zap.Logger
}

// ErrorHandling reply to errors and panics returned from controller
// **DO NOT return error anymore**
func ErrorHandling(options ...*ErrorHandlingOption) echo.MiddlewareFunc {
	custom := &ErrorHandlingOption{
		Handler: func(c echo.Context, traceID string, err error) {
			c.JSON(http.StatusInternalServerError,
				infra.NewRESTStandardError(http.StatusInternalServerError, err.Error()).SetTraceID(traceID),
			)
		},
		Logger: zap.NewNop(),
	}
	if len(options) > 0 {
		option := options[0]
		if option.Handler != nil {
			custom.Handler = option.Handler
		}
		if option.Logger != nil {
			custom.Logger = option.Logger
		}
	}
	handler := custom.Handler
	logger := custom.Logger
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if any := recover(); any != nil {
					perr, ok := any.(error)
					if !ok {
						perr = fmt.Errorf("%v", any)
					}
					traceID := c.Response().Header().Get(echo.HeaderXRequestID)
					logger.Error(perr.Error(),
						zap.String("url.path", c.Request().RequestURI),
						zap.String("client.address", c.Request().RemoteAddr),
						zap.String("http.request.method", c.Request().Method),
						zap.Int64("http.request.body.bytes", c.Request().ContentLength),
						zap.Strings("route.params.name", c.ParamNames()),
						zap.Strings("route.params.value", c.ParamValues()),
						zap.String("trace.id", traceID),
						zap.Stack("error.stack_trace"),
					)
					if !c.Response().Committed {
						handler(c, traceID, perr)
					}
					err = nil
				}
			}()

			if err := next(c); err != nil && !c.Response().Committed {
				traceID := c.Response().Header().Get(echo.HeaderXRequestID)
				if he, ok := err.(*echo.HTTPError); ok {
					c.JSON(he.Code,
						infra.NewRESTStandardError(he.Code, fmt.Sprintf("%v", he.Message)).SetTraceID(traceID),
					)
				} else {
					logger.Error(err.Error(), zap.String("trace.id", traceID), zap.String("url.path", c.Request().RequestURI))
					handler(c, traceID, err)
				}
			}
			return nil
		}
	}
}
