package certificate

import (
	"context"
	"errors"
	"time"
)

// ErrCertificateNotFound .
var ErrCertificateNotFound = errors.New("Certificate not found")

// CertificateModel .
type CertificateModel struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	CourseID          string     `json:"course_id"`
	ExamResultID      *string    `json:"exam_result_id,omitempty"`
	CertificateNumber string     `json:"certificate_number"`
	IssuedAt          *time.Time `json:"issued_at,omitempty"`
}

// CertificateWithCourse certificate joined with its course title
type CertificateWithCourse struct {
	CertificateModel
	CourseTitle string `json:"course_title"`
}

type CertificateRepository interface {
	// Create fails with a unique violation if the serial or the exam result is taken
	Create(ctx context.Context, post *CertificateModel) error
	// GetByResult returns nil if the result has no certificate
	GetByResult(ctx context.Context, resultID string) (*CertificateModel, error)
	// GetByID returns nil if not found
	GetByID(ctx context.Context, id string) (*CertificateWithCourse, error)
	ListByUser(ctx context.Context, userID string) ([]*CertificateWithCourse, error)
}

type CertificateUseCase interface {
	// Issue at most one certificate per exam result, an empty resultID always issues a new one
	Issue(ctx context.Context, userID, courseID, resultID string) (*CertificateModel, error)
	ListByUser(ctx context.Context, userID string) ([]*CertificateWithCourse, error)
	Get(ctx context.Context, userID, id string) (*CertificateWithCourse, error)
}
