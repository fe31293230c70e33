package certificate

import (
	"context"

	"github.com/pot-code/eclass/internal/infrastructure/driver"
	"github.com/pot-code/eclass/internal/infrastructure/logging"
	"github.com/pot-code/eclass/internal/infrastructure/uuid"
	"go.elastic.co/apm"
	"go.uber.org/zap"
)

// attempts to insert a certificate, a serial collision gets a fresh serial
const issueAttempts = 3

// CertificateUseCaseImpl ...
type CertificateUseCaseImpl struct {
	CertificateRepository CertificateRepository
	SerialGenerator       uuid.Generator
}

var _ CertificateUseCase = &CertificateUseCaseImpl{}

// NewCertificateUseCase ...
func NewCertificateUseCase(
	CertificateRepository CertificateRepository,
	SerialGenerator uuid.Generator,
) *CertificateUseCaseImpl {
	return &CertificateUseCaseImpl{CertificateRepository, SerialGenerator}
}

// Issue .
func (cu *CertificateUseCaseImpl) Issue(ctx context.Context, userID, courseID, resultID string) (*CertificateModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "CertificateUseCaseImpl.Issue", "service")
	defer apmSpan.End()

	post := &CertificateModel{UserID: userID, CourseID: courseID}
	if resultID != "" {
		if existing, err := cu.CertificateRepository.GetByResult(ctx, resultID); err != nil || existing != nil {
			return existing, err
		}
		post.ExamResultID = &resultID
	}

	var err error
	for i := 0; i < issueAttempts; i++ {
		if post.CertificateNumber, err = cu.SerialGenerator.Generate(); err != nil {
			return nil, err
		}
		err = cu.CertificateRepository.Create(ctx, post)
		if err == nil {
			logging.ExtractLoggerFromContext(ctx).Info("certificate issued",
				zap.String("user.id", userID), zap.String("certificate.number", post.CertificateNumber))
			return post, nil
		}
		if !driver.IsUniqueViolation(err) {
			return nil, err
		}
		// lost a race for the same result
		if resultID != "" {
			existing, lookupErr := cu.CertificateRepository.GetByResult(ctx, resultID)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if existing != nil {
				return existing, nil
			}
		}
	}
	return nil, err
}

// ListByUser newest first
func (cu *CertificateUseCaseImpl) ListByUser(ctx context.Context, userID string) ([]*CertificateWithCourse, error) {
	apmSpan, _ := apm.StartSpan(ctx, "CertificateUseCaseImpl.ListByUser", "service")
	defer apmSpan.End()

	return cu.CertificateRepository.ListByUser(ctx, userID)
}

// Get certificates of other users are reported as not found
func (cu *CertificateUseCaseImpl) Get(ctx context.Context, userID, id string) (*CertificateWithCourse, error) {
	apmSpan, _ := apm.StartSpan(ctx, "CertificateUseCaseImpl.Get", "service")
	defer apmSpan.End()

	cert, err := cu.CertificateRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cert == nil || cert.UserID != userID {
		return nil, ErrCertificateNotFound
	}
	return cert, nil
}
