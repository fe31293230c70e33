package exam

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pot-code/eclass/internal/enrollment"
	"github.com/pot-code/eclass/internal/infrastructure/logging"
	"github.com/pot-code/eclass/internal/infrastructure/scheduler"
	"github.com/robfig/cron/v3"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// ExamOption defaults and housekeeping of exam sessions
type ExamOption struct {
	DefaultTimeLimit time.Duration // exams without a time limit
	DefaultPassScore int           // exams without a pass score
	SessionTTL       time.Duration // idle sessions older than this are swept
	SweepSchedule    string        // cron spec
}

// ExamUseCaseImpl ...
type ExamUseCaseImpl struct {
	ExamRepository   ExamRepository
	ResultRepository ResultRepository
	Enrollment       EnrollmentChecker
	Certificates     CertificateIssuer
	Scheduler        scheduler.Scheduler
	Registry         *Registry
	Option           *ExamOption
	clock            func() time.Time
}

var _ ExamUseCase = &ExamUseCaseImpl{}

// NewExamUseCase ...
func NewExamUseCase(
	ExamRepository ExamRepository,
	ResultRepository ResultRepository,
	Enrollment EnrollmentChecker,
	Certificates CertificateIssuer,
	Scheduler scheduler.Scheduler,
	Option *ExamOption,
) *ExamUseCaseImpl {
	return &ExamUseCaseImpl{
		ExamRepository:   ExamRepository,
		ResultRepository: ResultRepository,
		Enrollment:       Enrollment,
		Certificates:     Certificates,
		Scheduler:        Scheduler,
		Registry:         NewRegistry(),
		Option:           Option,
		clock:            time.Now,
	}
}

// OpenSession load and validate the exam, learners must be enrolled in its course
func (eu *ExamUseCaseImpl) OpenSession(ctx context.Context, userID, examID string) (*Session, error) {
	apmSpan, _ := apm.StartSpan(ctx, "ExamUseCaseImpl.OpenSession", "service")
	defer apmSpan.End()

	exam, err := eu.ExamRepository.GetExamWithQuestions(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam == nil {
		return nil, ErrExamNotFound
	}
	enrolled, err := eu.Enrollment.Check(ctx, userID, exam.CourseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, enrollment.ErrNotEnrolled
	}

	timeLimit := eu.Option.DefaultTimeLimit
	if exam.TimeLimitMinutes != nil && *exam.TimeLimitMinutes > 0 {
		timeLimit = time.Duration(*exam.TimeLimitMinutes) * time.Minute
	}
	passScore := eu.Option.DefaultPassScore
	if exam.PassScore != nil {
		passScore = *exam.PassScore
	}

	session, err := NewSession(ctx, &SessionOption{
		ID:           uuid.NewString(),
		UserID:       userID,
		Enrolled:     enrolled,
		Exam:         exam,
		TimeLimit:    timeLimit,
		PassScore:    passScore,
		Results:      eu.ResultRepository,
		Certificates: eu.Certificates,
		Scheduler:    eu.Scheduler,
		Clock:        eu.clock,
	})
	if err != nil {
		return nil, err
	}
	eu.Registry.Add(session)
	return session, nil
}

// GetSession sessions of other users are reported as not found
func (eu *ExamUseCaseImpl) GetSession(ctx context.Context, userID, sessionID string) (*Session, error) {
	apmSpan, _ := apm.StartSpan(ctx, "ExamUseCaseImpl.GetSession", "service")
	defer apmSpan.End()

	s := eu.Registry.Get(sessionID)
	if s == nil || s.UserID() != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// CloseSession .
func (eu *ExamUseCaseImpl) CloseSession(ctx context.Context, userID, sessionID string) error {
	apmSpan, _ := apm.StartSpan(ctx, "ExamUseCaseImpl.CloseSession", "service")
	defer apmSpan.End()

	if _, err := eu.GetSession(ctx, userID, sessionID); err != nil {
		return err
	}
	if s := eu.Registry.Remove(sessionID); s != nil {
		s.Close()
	}
	return nil
}

// ListResults .
func (eu *ExamUseCaseImpl) ListResults(ctx context.Context, userID, examID string) ([]*ResultWithExam, error) {
	apmSpan, _ := apm.StartSpan(ctx, "ExamUseCaseImpl.ListResults", "service")
	defer apmSpan.End()

	return eu.ResultRepository.ListResultsByUser(ctx, userID, examID)
}

// Sweep drop expired sessions now
func (eu *ExamUseCaseImpl) Sweep(ctx context.Context) int {
	n := eu.Registry.Sweep(eu.clock(), eu.Option.SessionTTL)
	if n > 0 {
		logging.ExtractLoggerFromContext(ctx).Info("swept exam sessions",
			zap.Int("exam.swept", n), zap.Int("exam.live", eu.Registry.Len()))
	}
	return n
}

// RunSweeper sweep on the configured cron schedule until ctx is done
func (eu *ExamUseCaseImpl) RunSweeper(ctx context.Context) error {
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(eu.Option.SweepSchedule, func() {
		eu.Sweep(ctx)
	}); err != nil {
		return errors.Wrap(err, "schedule exam session sweeper")
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	for _, id := range eu.Registry.ids() {
		if s := eu.Registry.Remove(id); s != nil {
			s.Close()
		}
	}
	return nil
}
