package enrollment

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/pot-code/eclass/internal/infrastructure/driver"
	"github.com/pot-code/eclass/internal/infrastructure/uuid"
)

type EnrollmentMySQL struct {
	Conn          driver.ITransactionalDB
	UUIDGenerator uuid.Generator
}

var _ EnrollmentRepository = &EnrollmentMySQL{}

func NewEnrollmentRepository(Conn driver.ITransactionalDB, UUIDGenerator uuid.Generator) *EnrollmentMySQL {
	return &EnrollmentMySQL{Conn, UUIDGenerator}
}

func (repo *EnrollmentMySQL) Check(ctx context.Context, userID, courseID string) (bool, error) {
	rows, err := repo.Conn.QueryContext(ctx, `
SELECT "id" FROM "enrollments" WHERE "user_id" = $1 AND "course_id" = $2`, userID, courseID)
	if err != nil {
		return false, errors.Wrap(err, "query enrollment")
	}
	defer rows.Close()

	if rows.Next() {
		return true, nil
	}
	return false, rows.Err()
}

func (repo *EnrollmentMySQL) Enroll(ctx context.Context, post *EnrollmentModel, price int, description string) error {
	enrollmentID, err := repo.UUIDGenerator.Generate()
	if err != nil {
		return err
	}
	transactionID, err := repo.UUIDGenerator.Generate()
	if err != nil {
		return err
	}

	err = driver.WithinTx(ctx, repo.Conn, &driver.TxOptions{
		Isolation:  sql.LevelRepeatableRead,
		AccessMode: driver.AccessReadWrite,
	}, func(tx driver.ITransactionalDB) error {
		if price > 0 {
			if err := chargeCredits(ctx, tx, post.UserID, price); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO "credit_transactions"("id", "user_id", "amount", "type", "description")
VALUES($1, $2, $3, $4, $5)`, transactionID, post.UserID, -price, TransactionPurchase, description); err != nil {
				return errors.Wrap(err, "insert credit transaction")
			}
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO "enrollments"("id", "user_id", "course_id")
VALUES($1, $2, $3)`, enrollmentID, post.UserID, post.CourseID); err != nil {
			if driver.IsUniqueViolation(err) {
				return ErrAlreadyEnrolled
			}
			return errors.Wrap(err, "insert enrollment")
		}
		return nil
	})
	if err != nil {
		return err
	}
	post.ID = enrollmentID
	return nil
}

// chargeCredits lock the wallet row and deduct price
func chargeCredits(ctx context.Context, tx driver.ITransactionalDB, userID string, price int) error {
	rows, err := tx.QueryContext(ctx, `SELECT "credits" FROM "user" WHERE "id" = $1 FOR UPDATE`, userID)
	if err != nil {
		return errors.Wrap(err, "query credits")
	}
	var credits int
	found := rows.Next()
	if found {
		err = rows.Scan(&credits)
	} else {
		err = rows.Err()
	}
	rows.Close()
	if err != nil {
		return errors.Wrap(err, "scan credits")
	}
	if !found || credits < price {
		return ErrInsufficientCredits
	}

	_, err = tx.ExecContext(ctx, `UPDATE "user" SET "credits" = "credits" - $1 WHERE "id" = $2`, price, userID)
	return errors.Wrap(err, "charge credits")
}

func (repo *EnrollmentMySQL) ListByUser(ctx context.Context, userID string) ([]*EnrolledCourse, error) {
	rows, err := repo.Conn.QueryContext(ctx, `
SELECT
	e."id", e."user_id", e."course_id", e."enrolled_at", c."title", c."thumbnail_url"
FROM "enrollments" e
	JOIN "courses" c ON (c."id" = e."course_id")
WHERE e."user_id" = $1
ORDER BY e."enrolled_at" DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "query enrollments")
	}
	defer rows.Close()

	result := []*EnrolledCourse{}
	for rows.Next() {
		item := new(EnrolledCourse)
		if err := rows.Scan(&item.ID, &item.UserID, &item.CourseID, &item.EnrolledAt, &item.CourseTitle, &item.ThumbnailURL); err != nil {
			return nil, errors.Wrap(err, "scan enrollment")
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
