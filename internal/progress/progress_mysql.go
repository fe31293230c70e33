package progress

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/pot-code/eclass/internal/infrastructure/driver"
	"github.com/pot-code/eclass/internal/infrastructure/uuid"
)

// upsert attempts, a concurrent first insert of the same record makes the loser retry as an update
const upsertAttempts = 2

type ProgressMySQL struct {
	Conn          driver.ITransactionalDB
	UUIDGenerator uuid.Generator
	clock         func() time.Time
}

var _ ProgressRepository = &ProgressMySQL{}

func NewProgressRepository(Conn driver.ITransactionalDB, UUIDGenerator uuid.Generator) *ProgressMySQL {
	return &ProgressMySQL{Conn, UUIDGenerator, time.Now}
}

func (repo *ProgressMySQL) GetByUserAndCourse(ctx context.Context, userID, courseID string) ([]*ProgressModel, error) {
	rows, err := repo.Conn.QueryContext(ctx, `
SELECT "id", "user_id", "lesson_id", "course_id", "watched_seconds", "completed", "completed_at", "updated_at"
FROM "progress"
WHERE "user_id" = $1 AND "course_id" = $2`, userID, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "query progress")
	}
	defer rows.Close()

	result := []*ProgressModel{}
	for rows.Next() {
		item, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func scanProgress(rows driver.ISQLRows) (*ProgressModel, error) {
	item := new(ProgressModel)
	if err := rows.Scan(&item.ID, &item.UserID, &item.LessonID, &item.CourseID, &item.WatchedSeconds,
		&item.Completed, &item.CompletedAt, &item.UpdatedAt); err != nil {
		return nil, errors.Wrap(err, "scan progress")
	}
	return item, nil
}

// Upsert select-then-write inside a transaction, portable across mysql and postgres
func (repo *ProgressMySQL) Upsert(ctx context.Context, post *ProgressModel) (stored *ProgressModel, err error) {
	for i := 0; i < upsertAttempts; i++ {
		err = driver.WithinTx(ctx, repo.Conn, &driver.TxOptions{
			Isolation:  sql.LevelReadCommitted,
			AccessMode: driver.AccessReadWrite,
		}, func(tx driver.ITransactionalDB) error {
			var txErr error
			stored, txErr = repo.upsert(ctx, tx, post)
			return txErr
		})
		if !driver.IsUniqueViolation(err) {
			break
		}
	}
	return stored, err
}

func (repo *ProgressMySQL) upsert(ctx context.Context, tx driver.ITransactionalDB, post *ProgressModel) (*ProgressModel, error) {
	rows, err := tx.QueryContext(ctx, `
SELECT "id", "user_id", "lesson_id", "course_id", "watched_seconds", "completed", "completed_at", "updated_at"
FROM "progress"
WHERE "user_id" = $1 AND "lesson_id" = $2
FOR UPDATE`, post.UserID, post.LessonID)
	if err != nil {
		return nil, errors.Wrap(err, "query progress")
	}
	var existing *ProgressModel
	if rows.Next() {
		existing, err = scanProgress(rows)
	} else {
		err = rows.Err()
	}
	rows.Close()
	if err != nil {
		return nil, err
	}

	now := repo.clock().UTC()
	next := mergeProgress(existing, post, now)
	if existing == nil {
		id, err := repo.UUIDGenerator.Generate()
		if err != nil {
			return nil, err
		}
		next.ID = id
		_, err = tx.ExecContext(ctx, `
INSERT INTO "progress"("id", "user_id", "lesson_id", "course_id", "watched_seconds", "completed", "completed_at", "updated_at")
VALUES($1, $2, $3, $4, $5, $6, $7, $8)`,
			next.ID, next.UserID, next.LessonID, next.CourseID, next.WatchedSeconds, next.Completed, next.CompletedAt, next.UpdatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "insert progress")
		}
		return next, nil
	}

	_, err = tx.ExecContext(ctx, `
UPDATE "progress"
SET "watched_seconds" = $1,
	"completed" = $2,
	"completed_at" = $3,
	"updated_at" = $4
WHERE "id" = $5`, next.WatchedSeconds, next.Completed, next.CompletedAt, next.UpdatedAt, next.ID)
	if err != nil {
		return nil, errors.Wrap(err, "update progress")
	}
	return next, nil
}

// mergeProgress last write wins on watched seconds, completion is sticky and stamped once
func mergeProgress(existing, post *ProgressModel, now time.Time) *ProgressModel {
	next := &ProgressModel{
		UserID:         post.UserID,
		LessonID:       post.LessonID,
		CourseID:       post.CourseID,
		WatchedSeconds: post.WatchedSeconds,
		Completed:      post.Completed,
		UpdatedAt:      &now,
	}
	if existing != nil {
		next.ID = existing.ID
		next.CourseID = existing.CourseID
		next.Completed = next.Completed || existing.Completed
		next.CompletedAt = existing.CompletedAt
	}
	if next.Completed && next.CompletedAt == nil {
		next.CompletedAt = &now
	}
	return next
}
