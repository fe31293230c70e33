package enrollment

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotEnrolled learner has no enrollment for the course
	ErrNotEnrolled = errors.New("You are not enrolled in this course")
	// ErrAlreadyEnrolled .
	ErrAlreadyEnrolled = errors.New("You are already enrolled in this course")
	// ErrInsufficientCredits wallet balance is lower than the course price
	ErrInsufficientCredits = errors.New("Insufficient credits")
)

// credit transaction types
const (
	TransactionCharge   = "charge"
	TransactionPurchase = "purchase"
	TransactionRefund   = "refund"
	TransactionBonus    = "bonus"
)

// EnrollmentModel .
type EnrollmentModel struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	CourseID   string     `json:"course_id"`
	EnrolledAt *time.Time `json:"enrolled_at,omitempty"`
}

// EnrolledCourse enrollment joined with its course, used by listings
type EnrolledCourse struct {
	EnrollmentModel
	CourseTitle  string `json:"course_title"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// CreditTransactionModel wallet ledger entry
type CreditTransactionModel struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Amount      int        `json:"amount"` // negative for charges
	Type        string     `json:"type"`
	Description string     `json:"description"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

type EnrollmentRepository interface {
	// Check reports whether the user holds an enrollment for the course
	Check(ctx context.Context, userID, courseID string) (bool, error)
	// Enroll charges price credits and records the enrollment atomically
	Enroll(ctx context.Context, post *EnrollmentModel, price int, description string) error
	ListByUser(ctx context.Context, userID string) ([]*EnrolledCourse, error)
}

type EnrollmentUseCase interface {
	Check(ctx context.Context, userID, courseID string) (bool, error)
	Enroll(ctx context.Context, userID, courseID string) (*EnrollmentModel, error)
	ListByUser(ctx context.Context, userID string) ([]*EnrolledCourse, error)
}
