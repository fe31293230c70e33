package exam

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/pot-code/eclass/internal/certificate"
)

var (
	// ErrExamNotFound .
	ErrExamNotFound = errors.New("Exam not found")
	// ErrInvalidExam question definitions cannot be graded
	ErrInvalidExam = errors.New("Exam is misconfigured")
	// ErrSessionNotFound session expired, closed or owned by someone else
	ErrSessionNotFound = errors.New("Exam session not found")
	// ErrSessionNotStarted .
	ErrSessionNotStarted = errors.New("Exam has not been started")
	// ErrSessionStarted .
	ErrSessionStarted = errors.New("Exam has already been started")
	// ErrSessionFinished .
	ErrSessionFinished = errors.New("Exam is already finished")
	// ErrSubmitInProgress another submission of the session is being saved
	ErrSubmitInProgress = errors.New("Exam submission is in progress")
	// ErrTimeUp countdown reached zero, answers are frozen
	ErrTimeUp = errors.New("Time is up")
	// ErrUnansweredQuestions manual submit requires every question answered
	ErrUnansweredQuestions = errors.New("Every question must be answered before submitting")
	// ErrQuestionNotFound .
	ErrQuestionNotFound = errors.New("Question not found in this exam")
	// ErrOptionOutOfRange .
	ErrOptionOutOfRange = errors.New("Option index is out of range")
)

// ExamModel .
type ExamModel struct {
	ID               string           `json:"id"`
	CourseID         string           `json:"course_id"`
	Title            string           `json:"title"`
	PassScore        *int             `json:"pass_score,omitempty"`
	TimeLimitMinutes *int             `json:"time_limit_minutes,omitempty"`
	CreatedAt        *time.Time       `json:"created_at,omitempty"`
	Questions        []*QuestionModel `json:"questions"`
}

// QuestionModel the correct answer never leaves the server
type QuestionModel struct {
	ID            string   `json:"id"`
	ExamID        string   `json:"exam_id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"-"`
	OrderIndex    int      `json:"order_index"`
}

// ResultModel graded submission
type ResultModel struct {
	ID      string         `json:"id"`
	UserID  string         `json:"user_id"`
	ExamID  string         `json:"exam_id"`
	Score   int            `json:"score"`
	Passed  bool           `json:"passed"`
	Answers map[string]int `json:"answers"`
	TakenAt *time.Time     `json:"taken_at,omitempty"`
}

// ResultWithExam result joined with its exam and course, used by listings
type ResultWithExam struct {
	ResultModel
	ExamTitle   string `json:"exam_title"`
	CourseID    string `json:"course_id"`
	CourseTitle string `json:"course_title"`
}

// Outcome what finalizing a session produced
type Outcome struct {
	Result      *ResultModel                  `json:"result"`
	Certificate *certificate.CertificateModel `json:"certificate,omitempty"`
}

// ValidateExam every question needs text, two options at least and a correct index within them
func ValidateExam(exam *ExamModel) error {
	if len(exam.Questions) == 0 {
		return fmt.Errorf("%w: need at least one question", ErrInvalidExam)
	}
	for i, q := range exam.Questions {
		if q.Question == "" {
			return fmt.Errorf("%w: missing text of question %d", ErrInvalidExam, i)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %d needs at least two options", ErrInvalidExam, i)
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return fmt.Errorf("%w: correct answer of question %d is out of range", ErrInvalidExam, i)
		}
	}
	return nil
}

// Score round(100 * correct / total), unanswered questions count as incorrect. An exam without
// questions scores 0 and never passes
func Score(questions []*QuestionModel, answers map[string]int, passScore int) (int, bool) {
	if len(questions) == 0 {
		return 0, false
	}
	correct := 0
	for _, q := range questions {
		if a, ok := answers[q.ID]; ok && a == q.CorrectAnswer {
			correct++
		}
	}
	score := int(math.Round(float64(100*correct) / float64(len(questions))))
	return score, score >= passScore
}

type ExamRepository interface {
	// GetExamWithQuestions questions ordered by order_index, nil if the exam does not exist
	GetExamWithQuestions(ctx context.Context, examID string) (*ExamModel, error)
}

// ResultWriter persists a graded submission, filling its id and timestamp
type ResultWriter interface {
	SaveResult(ctx context.Context, result *ResultModel) error
}

type ResultRepository interface {
	ResultWriter
	// ListResultsByUser newest first, examID is optional
	ListResultsByUser(ctx context.Context, userID, examID string) ([]*ResultWithExam, error)
}

// EnrollmentChecker .
type EnrollmentChecker interface {
	Check(ctx context.Context, userID, courseID string) (bool, error)
}

// CertificateIssuer .
type CertificateIssuer interface {
	Issue(ctx context.Context, userID, courseID, resultID string) (*certificate.CertificateModel, error)
}

type ExamUseCase interface {
	OpenSession(ctx context.Context, userID, examID string) (*Session, error)
	GetSession(ctx context.Context, userID, sessionID string) (*Session, error)
	CloseSession(ctx context.Context, userID, sessionID string) error
	ListResults(ctx context.Context, userID, examID string) ([]*ResultWithExam, error)
}
