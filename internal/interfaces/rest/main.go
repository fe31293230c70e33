package rest

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echo_middleware "github.com/labstack/echo/v4/middleware"
	"github.com/pot-code/eclass/internal/certificate"
	"github.com/pot-code/eclass/internal/course"
	"github.com/pot-code/eclass/internal/enrollment"
	"github.com/pot-code/eclass/internal/exam"
	infra "github.com/pot-code/eclass/internal/infrastructure"
	"github.com/pot-code/eclass/internal/infrastructure/auth"
	"github.com/pot-code/eclass/internal/infrastructure/driver"
	"github.com/pot-code/eclass/internal/infrastructure/validate"
	"github.com/pot-code/eclass/internal/interfaces/rest/handler"
	"github.com/pot-code/eclass/internal/interfaces/rest/middleware"
	"github.com/pot-code/eclass/internal/progress"
	"github.com/pot-code/eclass/internal/user"
	"go.elastic.co/apm/module/apmechov4"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// UseCases application services exposed over http
type UseCases struct {
	User        user.UserUseCase
	Course      course.CourseUseCase
	Enrollment  enrollment.EnrollmentUseCase
	Progress    progress.ProgressUseCase
	Exam        exam.ExamUseCase
	Certificate certificate.CertificateUseCase
}

// Serve run the http server until ctx is done, then shut it down gracefully
func Serve(
	ctx context.Context,
	conn driver.ITransactionalDB,
	rdb driver.KeyValueDB,
	option *infra.AppConfig,
	uc *UseCases,
	logger *zap.Logger,
) error {
	app := newApp(conn, rdb, option, uc, logger)
	printRoutes(app, logger)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- app.Start(fmt.Sprintf("%s:%d", option.Host, option.Port))
	}()

	select {
	case err := <-serveErr:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return app.Shutdown(shutdownCtx)
}

func newApp(
	conn driver.ITransactionalDB,
	rdb driver.KeyValueDB,
	option *infra.AppConfig,
	uc *UseCases,
	logger *zap.Logger,
) *echo.Echo {
	var (
		app       = echo.New()
		validator = validate.NewValidator()
		websocket = infra.NewWebsocket()
		jwtUtil   = auth.NewJWTUtil(option.Security.JWTMethod,
			option.Security.JWTSecret,
			option.Security.TokenName,
			option.SessionTimeout)
		jwtMiddleware = middleware.VerifyToken(jwtUtil, &middleware.ValidateTokenOption{
			InBlackList: func(ctx context.Context, token string) (bool, error) {
				return rdb.Exists(ctx, auth.RevocationKey(token))
			},
		})
		refreshMiddleware = middleware.RefreshToken(jwtUtil, &middleware.RefreshTokenOption{
			Threshold: option.SessionRefresh,
		})
		authed = []echo.MiddlewareFunc{jwtMiddleware, refreshMiddleware}
	)
	jwtUtil.SecureCookie = option.Env == infra.EnvProduction
	app.HideBanner = true

	registerLivenessProbe(app, conn, rdb)
	if option.Env == infra.EnvDevelopment {
		registerProfileEndpoints(app)
	}
	app.Use(middleware.Logging(logger, &middleware.LoggingConfig{
		Skipper: func(e echo.Context) bool {
			return strings.HasPrefix(e.Request().RequestURI, "/healthz")
		},
	}))
	app.Use(middleware.ErrorHandling(&middleware.ErrorHandlingOption{Logger: logger}))
	app.Use(echo_middleware.Secure())
	if option.DevOP.APM {
		app.Use(apmechov4.Middleware())
	}
	app.Use(echo_middleware.CORS())
	app.Use(middleware.AbortRequest(&middleware.AbortRequestOption{
		Timeout: option.RequestTimeout,
		Skipper: func(c echo.Context) bool {
			return strings.HasSuffix(c.Path(), "/ws")
		},
	}))

	var (
		UserHandler        = handler.NewUserHandler(jwtUtil, rdb, uc.User, validator)
		CourseHandler      = handler.NewCourseHandler(uc.Course)
		EnrollmentHandler  = handler.NewEnrollmentHandler(uc.Enrollment, jwtUtil)
		ProgressHandler    = handler.NewProgressHandler(uc.Progress, jwtUtil, validator)
		ExamHandler        = handler.NewExamHandler(uc.Exam, jwtUtil, validator)
		CertificateHandler = handler.NewCertificateHandler(uc.Certificate, jwtUtil)
	)

	createEndpoint(app,
		&endpoint{
			apiVersion:  "api/v1",
			middlewares: []echo.MiddlewareFunc{echo_middleware.RequestID(), middleware.SetTraceLogger(logger)},
			groups: []*apiGroup{
				{
					prefix: "/user",
					routes: []*route{
						{"POST", "/login", UserHandler.HandleSignIn, nil},
						{"PUT", "/sign-out", UserHandler.HandleSignOut, authed},
						{"POST", "/sign-up", UserHandler.HandleSignUp, nil},
						{"GET", "/exists", UserHandler.HandleUserExists, nil},
						{"GET", "/profile", UserHandler.HandleGetProfile, authed},
					},
				},
				{
					prefix:      "/courses",
					middlewares: authed,
					routes: []*route{
						{"GET", "/:id", CourseHandler.HandleGetCourse, nil},
						{"POST", "/:id/enrollment", EnrollmentHandler.HandleEnroll, nil},
						{"GET", "/:id/progress", ProgressHandler.HandleGetProgress, nil},
						{"PUT", "/:id/progress", ProgressHandler.HandleUpdateProgress, nil},
						{"GET", "/:id/learn/ws", websocket.WithHeartbeat(ProgressHandler.HandleLearnSocket), nil},
					},
				},
				{
					prefix:      "/enrollments",
					middlewares: authed,
					routes: []*route{
						{"GET", "", EnrollmentHandler.HandleListEnrollments, nil},
					},
				},
				{
					prefix:      "/exams",
					middlewares: authed,
					routes: []*route{
						{"GET", "/results", ExamHandler.HandleListResults, nil},
						{"POST", "/:id/sessions", ExamHandler.HandleOpenSession, nil},
					},
				},
				{
					prefix:      "/exam-sessions",
					middlewares: authed,
					routes: []*route{
						{"GET", "/:sid", ExamHandler.HandleGetSession, nil},
						{"DELETE", "/:sid", ExamHandler.HandleCloseSession, nil},
						{"POST", "/:sid/start", ExamHandler.HandleStart, nil},
						{"PUT", "/:sid/answers", ExamHandler.HandleAnswer, nil},
						{"PUT", "/:sid/cursor", ExamHandler.HandleGoto, nil},
						{"POST", "/:sid/submit", ExamHandler.HandleSubmit, nil},
						{"GET", "/:sid/ws", websocket.WithHeartbeat(ExamHandler.HandleSessionSocket), nil},
					},
				},
				{
					prefix:      "/certificates",
					middlewares: authed,
					routes: []*route{
						{"GET", "", CertificateHandler.HandleListCertificates, nil},
						{"GET", "/:id", CertificateHandler.HandleGetCertificate, nil},
					},
				},
			},
		})
	return app
}

func printRoutes(app *echo.Echo, logger *zap.Logger) {
	for _, route := range app.Routes() {
		if !strings.HasPrefix(route.Name, "github.com/labstack/echo") {
			logger.Info("Registered route", zap.String("method", route.Method), zap.String("path", route.Path))
		}
	}
}

func registerLivenessProbe(app *echo.Echo, db driver.ITransactionalDB, rdb driver.KeyValueDB) {
	app.GET("/healthz", func(c echo.Context) error {
		ctx := c.Request().Context()
		if db.Ping(ctx) == nil && rdb.Ping(ctx) == nil {
			return c.NoContent(http.StatusOK)
		}
		return c.NoContent(http.StatusServiceUnavailable)
	})
}

func registerProfileEndpoints(app *echo.Echo) {
	expvarHandler := expvar.Handler()
	app.GET("/debug/vars", func(c echo.Context) error {
		expvarHandler.ServeHTTP(c.Response().Writer, c.Request())
		return nil
	})
	app.GET("/debug/pprof/", func(c echo.Context) error {
		pprof.Index(c.Response().Writer, c.Request())
		return nil
	})
	app.GET("/debug/pprof/:name", func(c echo.Context) error {
		switch c.Param("name") {
		case "cmdline":
			pprof.Cmdline(c.Response().Writer, c.Request())
		case "profile":
			pprof.Profile(c.Response().Writer, c.Request())
		case "symbol":
			pprof.Symbol(c.Response().Writer, c.Request())
		case "trace":
			pprof.Trace(c.Response().Writer, c.Request())
		default:
			pprof.Handler(c.Param("name")).ServeHTTP(c.Response().Writer, c.Request())
		}
		return nil
	})
}
