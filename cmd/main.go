package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pot-code/eclass/internal/certificate"
	"github.com/pot-code/eclass/internal/course"
	"github.com/pot-code/eclass/internal/enrollment"
	"github.com/pot-code/eclass/internal/exam"
	infra "github.com/pot-code/eclass/internal/infrastructure"
	"github.com/pot-code/eclass/internal/infrastructure/driver"
	"github.com/pot-code/eclass/internal/infrastructure/logging"
	"github.com/pot-code/eclass/internal/infrastructure/scheduler"
	"github.com/pot-code/eclass/internal/infrastructure/uuid"
	"github.com/pot-code/eclass/internal/interfaces/rest"
	"github.com/pot-code/eclass/internal/progress"
	"github.com/pot-code/eclass/internal/user"
	"go.uber.org/zap"
)

func main() {
	log.SetFlags(log.Lshortfile | log.Ldate | log.Ltime)
	option, err := infra.InitConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(&logging.Config{
		FilePath: option.Logging.FilePath,
		Level:    option.Logging.Level,
		AppID:    option.AppID,
		Env:      option.Env,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %s\n", err)
	}
	defer logger.Sync()

	dbConn, err := driver.GetDBConnection(&driver.DBConfig{
		User:     option.Database.User,
		Password: option.Database.Password,
		MaxConn:  option.Database.MaxConn,
		Protocol: option.Database.Protocol,
		Driver:   option.Database.Driver,
		Host:     option.Database.Host,
		Port:     option.Database.Port,
		Query:    option.Database.Query,
		Schema:   option.Database.Schema,
	})
	if err != nil {
		logger.Fatal("Failed to create DB connection", zap.Error(err))
	}
	logger.Debug("Create db connection instance", zap.String("db.driver", option.Database.Driver),
		zap.String("db.schema", option.Database.Schema),
		zap.String("db.host", option.Database.Host),
	)

	rdb := driver.NewRedisClient(option.KVStore.Host, option.KVStore.Port, option.KVStore.Password)
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.SetLoggerInContext(ctx, logger)

	var (
		UUIDGenerator = uuid.NewNanoIDGenerator(option.Security.IDLength)
		Ticker        = scheduler.NewTickerScheduler()

		UserRepo        = user.NewUserRepository(dbConn, UUIDGenerator)
		CourseRepo      = course.NewCourseRepository(dbConn)
		EnrollmentRepo  = enrollment.NewEnrollmentRepository(dbConn, UUIDGenerator)
		ProgressRepo    = progress.NewProgressRepository(dbConn, UUIDGenerator)
		CertificateRepo = certificate.NewCertificateRepository(dbConn, UUIDGenerator)
		ExamRepo        = exam.NewExamRepository(dbConn, UUIDGenerator)

		UserUseCase        = user.NewUserUseCase(UserRepo, option.Security.MaxLoginAttempts, option.Security.RetryTimeout)
		CourseUseCase      = course.NewCourseUseCase(CourseRepo, rdb, option.Cache.OutlineTTL)
		EnrollmentUseCase  = enrollment.NewEnrollmentUseCase(EnrollmentRepo, CourseUseCase)
		ProgressUseCase    = progress.NewProgressUseCase(ProgressRepo, CourseUseCase, EnrollmentUseCase, Ticker, option.Learning.FlushInterval)
		CertificateUseCase = certificate.NewCertificateUseCase(CertificateRepo,
			uuid.NewSerialGenerator(option.Certificate.Prefix, option.Certificate.SuffixLength))
		ExamUseCase = exam.NewExamUseCase(ExamRepo, ExamRepo, EnrollmentUseCase, CertificateUseCase, Ticker, &exam.ExamOption{
			DefaultTimeLimit: option.Exam.DefaultTimeLimit,
			DefaultPassScore: option.Exam.PassScore,
			SessionTTL:       option.Exam.SessionTTL,
			SweepSchedule:    option.Exam.SweepSchedule,
		})
	)

	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		if err := ExamUseCase.RunSweeper(ctx); err != nil {
			logger.Error("exam session sweeper stopped", zap.Error(err))
		}
	}()

	err = rest.Serve(ctx, dbConn, rdb, option, &rest.UseCases{
		User:        UserUseCase,
		Course:      CourseUseCase,
		Enrollment:  EnrollmentUseCase,
		Progress:    ProgressUseCase,
		Exam:        ExamUseCase,
		Certificate: CertificateUseCase,
	}, logger)
	if err != nil {
		logger.Error("http server stopped", zap.Error(err))
	}
	stop()
	<-sweeperDone

	if err := dbConn.Close(context.Background()); err != nil {
		logger.Warn("Failed to close DB connection", zap.Error(err))
	}
}
