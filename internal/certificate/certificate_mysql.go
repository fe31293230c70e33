package certificate

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pot-code/eclass/internal/infrastructure/driver"
	"github.com/pot-code/eclass/internal/infrastructure/uuid"
)

type CertificateMySQL struct {
	Conn          driver.ITransactionalDB
	UUIDGenerator uuid.Generator
}

var _ CertificateRepository = &CertificateMySQL{}

func NewCertificateRepository(Conn driver.ITransactionalDB, UUIDGenerator uuid.Generator) *CertificateMySQL {
	return &CertificateMySQL{Conn, UUIDGenerator}
}

func (repo *CertificateMySQL) Create(ctx context.Context, post *CertificateModel) error {
	id, err := repo.UUIDGenerator.Generate()
	if err != nil {
		return err
	}
	_, err = repo.Conn.ExecContext(ctx, `
INSERT INTO "certificates"("id", "user_id", "course_id", "exam_result_id", "certificate_number")
VALUES($1, $2, $3, $4, $5)`, id, post.UserID, post.CourseID, post.ExamResultID, post.CertificateNumber)
	if err != nil {
		return errors.Wrap(err, "insert certificate")
	}
	post.ID = id
	return nil
}

func (repo *CertificateMySQL) GetByResult(ctx context.Context, resultID string) (*CertificateModel, error) {
	rows, err := repo.Conn.QueryContext(ctx, `
SELECT "id", "user_id", "course_id", "exam_result_id", "certificate_number", "issued_at"
FROM "certificates"
WHERE "exam_result_id" = $1`, resultID)
	if err != nil {
		return nil, errors.Wrap(err, "query certificate")
	}
	defer rows.Close()

	if rows.Next() {
		item := new(CertificateModel)
		if err := rows.Scan(&item.ID, &item.UserID, &item.CourseID, &item.ExamResultID,
			&item.CertificateNumber, &item.IssuedAt); err != nil {
			return nil, errors.Wrap(err, "scan certificate")
		}
		return item, nil
	}
	return nil, rows.Err()
}

const selectWithCourse = `
SELECT
	ct."id", ct."user_id", ct."course_id", ct."exam_result_id", ct."certificate_number", ct."issued_at", c."title"
FROM "certificates" ct
	JOIN "courses" c ON (c."id" = ct."course_id")`

func (repo *CertificateMySQL) GetByID(ctx context.Context, id string) (*CertificateWithCourse, error) {
	rows, err := repo.Conn.QueryContext(ctx, selectWithCourse+`
WHERE ct."id" = $1`, id)
	if err != nil {
		return nil, errors.Wrap(err, "query certificate")
	}
	defer rows.Close()

	if rows.Next() {
		return scanWithCourse(rows)
	}
	return nil, rows.Err()
}

func (repo *CertificateMySQL) ListByUser(ctx context.Context, userID string) ([]*CertificateWithCourse, error) {
	rows, err := repo.Conn.QueryContext(ctx, selectWithCourse+`
WHERE ct."user_id" = $1
ORDER BY ct."issued_at" DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "query certificates")
	}
	defer rows.Close()

	result := []*CertificateWithCourse{}
	for rows.Next() {
		item, err := scanWithCourse(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func scanWithCourse(rows driver.ISQLRows) (*CertificateWithCourse, error) {
	item := new(CertificateWithCourse)
	if err := rows.Scan(&item.ID, &item.UserID, &item.CourseID, &item.ExamResultID,
		&item.CertificateNumber, &item.IssuedAt, &item.CourseTitle); err != nil {
		return nil, errors.Wrap(err, "scan certificate")
	}
	return item, nil
}
