package exam

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/pot-code/eclass/internal/infrastructure/driver"
	"github.com/pot-code/eclass/internal/infrastructure/uuid"
)

// ExamMySQL options and answers are stored as JSON text
type ExamMySQL struct {
	Conn          driver.ITransactionalDB
	UUIDGenerator uuid.Generator
	clock         func() time.Time
}

var (
	_ ExamRepository   = &ExamMySQL{}
	_ ResultRepository = &ExamMySQL{}
)

func NewExamRepository(Conn driver.ITransactionalDB, UUIDGenerator uuid.Generator) *ExamMySQL {
	return &ExamMySQL{Conn, UUIDGenerator, time.Now}
}

func (repo *ExamMySQL) GetExamWithQuestions(ctx context.Context, examID string) (*ExamModel, error) {
	rows, err := repo.Conn.QueryContext(ctx, `
SELECT "id", "course_id", "title", "pass_score", "time_limit_minutes", "created_at"
FROM "exams"
WHERE "id" = $1`, examID)
	if err != nil {
		return nil, errors.Wrap(err, "query exam")
	}
	var exam *ExamModel
	if rows.Next() {
		exam = new(ExamModel)
		err = rows.Scan(&exam.ID, &exam.CourseID, &exam.Title, &exam.PassScore, &exam.TimeLimitMinutes, &exam.CreatedAt)
	} else {
		err = rows.Err()
	}
	rows.Close()
	if err != nil {
		return nil, errors.Wrap(err, "scan exam")
	}
	if exam == nil {
		return nil, nil
	}

	rows, err = repo.Conn.QueryContext(ctx, `
SELECT "id", "exam_id", "question", "options", "correct_answer", "order_index"
FROM "exam_questions"
WHERE "exam_id" = $1
ORDER BY "order_index"`, examID)
	if err != nil {
		return nil, errors.Wrap(err, "query exam questions")
	}
	defer rows.Close()

	exam.Questions = []*QuestionModel{}
	for rows.Next() {
		var options string
		q := new(QuestionModel)
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Question, &options, &q.CorrectAnswer, &q.OrderIndex); err != nil {
			return nil, errors.Wrap(err, "scan exam question")
		}
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return nil, errors.Wrapf(err, "decode options of question %s", q.ID)
		}
		exam.Questions = append(exam.Questions, q)
	}
	return exam, rows.Err()
}

func (repo *ExamMySQL) SaveResult(ctx context.Context, result *ResultModel) error {
	id, err := repo.UUIDGenerator.Generate()
	if err != nil {
		return err
	}
	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return errors.Wrap(err, "encode answers")
	}
	now := repo.clock().UTC()
	_, err = repo.Conn.ExecContext(ctx, `
INSERT INTO "exam_results"("id", "user_id", "exam_id", "score", "passed", "answers", "taken_at")
VALUES($1, $2, $3, $4, $5, $6, $7)`, id, result.UserID, result.ExamID, result.Score, result.Passed, string(answers), now)
	if err != nil {
		return errors.Wrap(err, "insert exam result")
	}
	result.ID = id
	result.TakenAt = &now
	return nil
}

func (repo *ExamMySQL) ListResultsByUser(ctx context.Context, userID, examID string) ([]*ResultWithExam, error) {
	query := `
SELECT
	r."id", r."user_id", r."exam_id", r."score", r."passed", r."answers", r."taken_at",
	e."title", e."course_id", c."title"
FROM "exam_results" r
	JOIN "exams" e ON (e."id" = r."exam_id")
	JOIN "courses" c ON (c."id" = e."course_id")
WHERE r."user_id" = $1`
	args := []interface{}{userID}
	if examID != "" {
		query += ` AND r."exam_id" = $2`
		args = append(args, examID)
	}
	query += `
ORDER BY r."taken_at" DESC`

	rows, err := repo.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query exam results")
	}
	defer rows.Close()

	result := []*ResultWithExam{}
	for rows.Next() {
		var answers string
		item := new(ResultWithExam)
		if err := rows.Scan(&item.ID, &item.UserID, &item.ExamID, &item.Score, &item.Passed, &answers, &item.TakenAt,
			&item.ExamTitle, &item.CourseID, &item.CourseTitle); err != nil {
			return nil, errors.Wrap(err, "scan exam result")
		}
		if err := json.Unmarshal([]byte(answers), &item.Answers); err != nil {
			return nil, errors.Wrapf(err, "decode answers of result %s", item.ID)
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
