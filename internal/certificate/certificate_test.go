package certificate

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pot-code/eclass/internal/infrastructure/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCertificates struct {
	mu      sync.Mutex
	items   []*CertificateModel
	creates int
	// taken serials collide like the unique index would
	taken map[string]bool
}

func newMemoryCertificates() *memoryCertificates {
	return &memoryCertificates{taken: make(map[string]bool)}
}

func (m *memoryCertificates) Create(ctx context.Context, post *CertificateModel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creates++
	if m.taken[post.CertificateNumber] {
		return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	}
	for _, c := range m.items {
		if post.ExamResultID != nil && c.ExamResultID != nil && *c.ExamResultID == *post.ExamResultID {
			return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
		}
	}
	now := time.Now()
	post.ID = "cert-" + post.CertificateNumber
	post.IssuedAt = &now
	cp := *post
	m.items = append(m.items, &cp)
	m.taken[post.CertificateNumber] = true
	return nil
}

func (m *memoryCertificates) GetByResult(ctx context.Context, resultID string) (*CertificateModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.items {
		if c.ExamResultID != nil && *c.ExamResultID == resultID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryCertificates) GetByID(ctx context.Context, id string) (*CertificateWithCourse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.items {
		if c.ID == id {
			return &CertificateWithCourse{CertificateModel: *c, CourseTitle: "Go"}, nil
		}
	}
	return nil, nil
}

func (m *memoryCertificates) ListByUser(ctx context.Context, userID string) ([]*CertificateWithCourse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []*CertificateWithCourse{}
	for _, c := range m.items {
		if c.UserID == userID {
			result = append(result, &CertificateWithCourse{CertificateModel: *c, CourseTitle: "Go"})
		}
	}
	return result, nil
}

// sequenceSerials hands out serials in order
type sequenceSerials struct {
	serials []string
	next    int
}

func (s *sequenceSerials) Generate() (string, error) {
	if s.next >= len(s.serials) {
		return "", errors.New("out of serials")
	}
	serial := s.serials[s.next]
	s.next++
	return serial, nil
}

func TestIssueSerialFormat(t *testing.T) {
	repo := newMemoryCertificates()
	uc := NewCertificateUseCase(repo, uuid.NewSerialGenerator("CERT", 9))

	cert, err := uc.Issue(context.Background(), "u1", "c1", "r1")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^CERT-\d{13}-[A-Z0-9]{9}$`), cert.CertificateNumber)
	assert.Equal(t, "r1", *cert.ExamResultID)
}

func TestIssueOncePerResult(t *testing.T) {
	repo := newMemoryCertificates()
	uc := NewCertificateUseCase(repo, &sequenceSerials{serials: []string{"A", "B"}})
	ctx := context.Background()

	first, err := uc.Issue(ctx, "u1", "c1", "r1")
	require.NoError(t, err)
	second, err := uc.Issue(ctx, "u1", "c1", "r1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, repo.creates)
}

func TestIssueRetriesSerialCollision(t *testing.T) {
	repo := newMemoryCertificates()
	repo.taken["A"] = true
	uc := NewCertificateUseCase(repo, &sequenceSerials{serials: []string{"A", "B"}})

	cert, err := uc.Issue(context.Background(), "u1", "c1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "B", cert.CertificateNumber)
	assert.Equal(t, 2, repo.creates)
}

func TestIssueWithoutResult(t *testing.T) {
	repo := newMemoryCertificates()
	uc := NewCertificateUseCase(repo, &sequenceSerials{serials: []string{"A", "B"}})
	ctx := context.Background()

	first, err := uc.Issue(ctx, "u1", "c1", "")
	require.NoError(t, err)
	second, err := uc.Issue(ctx, "u1", "c1", "")
	require.NoError(t, err)
	assert.Nil(t, first.ExamResultID)
	assert.NotEqual(t, first.CertificateNumber, second.CertificateNumber)
}

func TestGetChecksOwner(t *testing.T) {
	repo := newMemoryCertificates()
	uc := NewCertificateUseCase(repo, &sequenceSerials{serials: []string{"A"}})
	ctx := context.Background()

	cert, err := uc.Issue(ctx, "u1", "c1", "r1")
	require.NoError(t, err)

	got, err := uc.Get(ctx, "u1", cert.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go", got.CourseTitle)

	_, err = uc.Get(ctx, "u2", cert.ID)
	assert.Equal(t, ErrCertificateNotFound, err)
	_, err = uc.Get(ctx, "u1", "missing")
	assert.Equal(t, ErrCertificateNotFound, err)

	list, err := uc.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
