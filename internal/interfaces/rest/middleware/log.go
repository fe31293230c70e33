package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pot-code/eclass/internal/infrastructure/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggingConfig struct {
	// Skipper defines a function to skip middleware.
	Skipper middleware.Skipper
}

// Logging one entry per request: server errors at error level, client errors at info, the rest at debug
func Logging(base *zap.Logger, options ...*LoggingConfig) echo.MiddlewareFunc {
	cfg := &LoggingConfig{
		Skipper: middleware.DefaultSkipper,
	}
	if len(options) > 0 {
		if option := options[0]; option.Skipper != nil {
			cfg.Skipper = option.Skipper
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			req, res := c.Request(), c.Response()
			fields := []zap.Field{
				zap.String("trace.id", res.Header().Get(echo.HeaderXRequestID)),
				zap.String("url.path", req.RequestURI),
				zap.String("http.route", c.Path()),
				zap.String("client.address", c.RealIP()),
				zap.String("http.request.method", req.Method),
				zap.Int64("http.request.body.bytes", req.ContentLength),
				zap.Int64("http.response.body.bytes", res.Size),
				zap.Int("http.response.status_code", res.Status),
				zap.Duration("event.duration", time.Since(start)),
			}
			if len(c.ParamNames()) > 0 {
				fields = append(fields,
					zap.Strings("route.params.name", c.ParamNames()),
					zap.Strings("route.params.value", c.ParamValues()),
				)
			}
			if ce := base.Check(levelOf(res.Status), http.StatusText(res.Status)); ce != nil {
				ce.Write(fields...)
			}
			return err
		}
	}
}

func levelOf(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zap.ErrorLevel
	case status >= http.StatusBadRequest:
		return zap.InfoLevel
	default:
		return zap.DebugLevel
	}
}

// SetTraceLogger put a logger carrying the request id into the request context, use cases and
// repositories log through it
func SetTraceLogger(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			logger := base.With(zap.String("trace.id", c.Response().Header().Get(echo.HeaderXRequestID)))
			c.SetRequest(r.WithContext(logging.SetLoggerInContext(r.Context(), logger)))
			return next(c)
		}
	}
}
