package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMysqlAdapter(t *testing.T) {
	query := `UPDATE "progress"
	SET "watched_seconds" = $1,
		"completed" = $2
	WHERE "id" = $3`
	assert.Equal(t,
		"UPDATE `progress` SET `watched_seconds` = ?, `completed` = ? WHERE `id` = ?",
		mysqlAdapter(query))
}

func TestPgsqlAdapter(t *testing.T) {
	assert.Equal(t, `SELECT "id" FROM "user" WHERE "id" = $1`, pgsqlAdapter(`
SELECT "id"
	FROM "user"
	WHERE "id" = $1
`))
}

func TestGetDSN(t *testing.T) {
	cfg := &DBConfig{User: "root", Password: "pwd", Host: "127.0.0.1", Port: 3306, Schema: "eclass"}
	assert.Equal(t, "root:pwd@127.0.0.1:3306/eclass", getDSN(cfg))

	cfg.Protocol = "tcp"
	cfg.Query = "parseTime=true"
	assert.Equal(t, "root:pwd@tcp(127.0.0.1:3306)/eclass?parseTime=true", getDSN(cfg))
}

func TestGetDBConnectionUnsupported(t *testing.T) {
	_, err := GetDBConnection(&DBConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestLogQueryArgs(t *testing.T) {
	long := strings.Repeat("a", 70)
	args := logQueryArgs([]interface{}{[]byte{0xca, 0xfe}, long, 42})
	assert.Equal(t, "cafe", args[0])
	assert.Equal(t, strings.Repeat("a", 64)+" (truncated 6 bytes)", args[1])
	assert.Equal(t, 42, args[2])
}

func TestShouldLogError(t *testing.T) {
	assert.False(t, shouldLogError(context.Canceled))
	assert.False(t, shouldLogError(fmt.Errorf("query: %w", context.DeadlineExceeded)))
	assert.True(t, shouldLogError(errors.New("boom")))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&mysql.MySQLError{Number: 1062}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&mysql.MySQLError{Number: 1452}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.True(t, IsForeignKeyViolation(&mysql.MySQLError{Number: 1452}))
}

type txRecorder struct {
	ITransactionalDB
	committed  bool
	rolledBack bool
}

func (tr *txRecorder) BeginTx(ctx context.Context, opts *TxOptions) (ITransactionalDB, error) {
	return tr, nil
}

func (tr *txRecorder) Commit(ctx context.Context) error {
	tr.committed = true
	return nil
}

func (tr *txRecorder) Rollback(ctx context.Context) error {
	tr.rolledBack = true
	return nil
}

func (tr *txRecorder) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}

func TestWithinTx(t *testing.T) {
	ctx := context.Background()

	db := new(txRecorder)
	err := WithinTx(ctx, db, nil, func(tx ITransactionalDB) error {
		_, err := tx.ExecContext(ctx, "SELECT 1")
		return err
	})
	assert.NoError(t, err)
	assert.True(t, db.committed)
	assert.False(t, db.rolledBack)

	db = new(txRecorder)
	boom := errors.New("boom")
	err = WithinTx(ctx, db, nil, func(tx ITransactionalDB) error { return boom })
	assert.Equal(t, boom, err)
	assert.False(t, db.committed)
	assert.True(t, db.rolledBack)

	db = new(txRecorder)
	assert.Panics(t, func() {
		WithinTx(ctx, db, nil, func(tx ITransactionalDB) error { panic("boom") })
	})
	assert.True(t, db.rolledBack)
}
