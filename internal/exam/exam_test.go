package exam

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pot-code/eclass/internal/certificate"
	"github.com/stretchr/testify/assert"
)

// fiveQuestionExam correct answer of question i is i % 4
func fiveQuestionExam() *ExamModel {
	exam := &ExamModel{ID: "e1", CourseID: "c1", Title: "Go basics"}
	for i := 0; i < 5; i++ {
		exam.Questions = append(exam.Questions, &QuestionModel{
			ID:            fmt.Sprintf("q%d", i+1),
			ExamID:        "e1",
			Question:      fmt.Sprintf("question %d", i+1),
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: i % 4,
			OrderIndex:    i,
		})
	}
	return exam
}

// answersWithCorrect answers every question, the first n correctly
func answersWithCorrect(exam *ExamModel, n int) map[string]int {
	answers := make(map[string]int)
	for i, q := range exam.Questions {
		if i < n {
			answers[q.ID] = q.CorrectAnswer
		} else {
			answers[q.ID] = (q.CorrectAnswer + 1) % len(q.Options)
		}
	}
	return answers
}

func TestScore(t *testing.T) {
	exam := fiveQuestionExam()

	cases := []struct {
		name    string
		answers map[string]int
		score   int
		passed  bool
	}{
		{"four of five", answersWithCorrect(exam, 4), 80, true},
		{"three of five", answersWithCorrect(exam, 3), 60, false},
		{"all correct", answersWithCorrect(exam, 5), 100, true},
		{"empty answers", map[string]int{}, 0, false},
		{"unanswered count as wrong", map[string]int{"q1": 0, "q2": 1}, 40, false},
		{"unknown questions ignored", map[string]int{"q9": 0, "q1": 0}, 20, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			score, passed := Score(exam.Questions, c.answers, 80)
			assert.Equal(t, c.score, score)
			assert.Equal(t, c.passed, passed)
		})
	}

	score, passed := Score(nil, map[string]int{"q1": 0}, 0)
	assert.Equal(t, 0, score)
	assert.False(t, passed, "an exam without questions never passes")

	_, passed = Score(exam.Questions, answersWithCorrect(exam, 5), 100)
	assert.True(t, passed)
}

func TestScoreRounding(t *testing.T) {
	exam := fiveQuestionExam()
	questions := exam.Questions[:3]

	score, _ := Score(questions, map[string]int{"q1": 0}, 80)
	assert.Equal(t, 33, score)
	score, _ = Score(questions, map[string]int{"q1": 0, "q2": 1}, 80)
	assert.Equal(t, 67, score)
}

func TestValidateExam(t *testing.T) {
	assert.NoError(t, ValidateExam(fiveQuestionExam()))

	empty := &ExamModel{ID: "e0"}
	assert.True(t, errors.Is(ValidateExam(empty), ErrInvalidExam))

	oneOption := fiveQuestionExam()
	oneOption.Questions[2].Options = []string{"only"}
	oneOption.Questions[2].CorrectAnswer = 0
	assert.True(t, errors.Is(ValidateExam(oneOption), ErrInvalidExam))

	outOfRange := fiveQuestionExam()
	outOfRange.Questions[0].CorrectAnswer = 4
	assert.True(t, errors.Is(ValidateExam(outOfRange), ErrInvalidExam))

	negative := fiveQuestionExam()
	negative.Questions[1].CorrectAnswer = -1
	assert.True(t, errors.Is(ValidateExam(negative), ErrInvalidExam))

	noText := fiveQuestionExam()
	noText.Questions[4].Question = ""
	assert.True(t, errors.Is(ValidateExam(noText), ErrInvalidExam))
}

// memoryResults ResultRepository keeping saved results in memory
type memoryResults struct {
	mu      sync.Mutex
	saved   []ResultModel
	fail    error
	before  func() // runs before each save, outside the lock
	counter int
}

func (m *memoryResults) SaveResult(ctx context.Context, result *ResultModel) error {
	if m.before != nil {
		m.before()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return m.fail
	}
	m.counter++
	now := time.Date(2020, 9, 13, 12, 26, 40, 0, time.UTC)
	result.ID = fmt.Sprintf("r%d", m.counter)
	result.TakenAt = &now
	m.saved = append(m.saved, *result)
	return nil
}

func (m *memoryResults) ListResultsByUser(ctx context.Context, userID, examID string) ([]*ResultWithExam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []*ResultWithExam{}
	for i := len(m.saved) - 1; i >= 0; i-- {
		r := m.saved[i]
		if r.UserID == userID && (examID == "" || r.ExamID == examID) {
			result = append(result, &ResultWithExam{ResultModel: r, ExamTitle: "Go basics", CourseID: "c1"})
		}
	}
	return result, nil
}

func (m *memoryResults) saves() []ResultModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ResultModel(nil), m.saved...)
}

func (m *memoryResults) setFail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// memoryIssuer CertificateIssuer recording issued certificates
type memoryIssuer struct {
	mu     sync.Mutex
	issued []*certificate.CertificateModel
	fail   error
}

func (m *memoryIssuer) Issue(ctx context.Context, userID, courseID, resultID string) (*certificate.CertificateModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail != nil {
		return nil, m.fail
	}
	cert := &certificate.CertificateModel{
		ID:                fmt.Sprintf("cert%d", len(m.issued)+1),
		UserID:            userID,
		CourseID:          courseID,
		ExamResultID:      &resultID,
		CertificateNumber: "CERT-1600000000000-ABCDEFGHI",
	}
	m.issued = append(m.issued, cert)
	return cert, nil
}

func (m *memoryIssuer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.issued)
}
