package user

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pot-code/eclass/internal/infrastructure/driver"
	"github.com/pot-code/eclass/internal/infrastructure/uuid"
)

type UserMySQL struct {
	Conn          driver.ITransactionalDB
	UUIDGenerator uuid.Generator
}

var _ UserRepository = &UserMySQL{}

func NewUserRepository(Conn driver.ITransactionalDB, UUIDGenerator uuid.Generator) *UserMySQL {
	return &UserMySQL{Conn, UUIDGenerator}
}

const userColumns = `"id", "username", "password", "email", "role", "credits", "login_retry", "last_login", "created_at"`

// FindByCredential query user by username or email
func (repo *UserMySQL) FindByCredential(ctx context.Context, credential string) (*UserModel, error) {
	return repo.findOne(ctx, `SELECT `+userColumns+`
	FROM "user" WHERE "username" = $1 OR "email" = $2`, credential, credential)
}

func (repo *UserMySQL) FindByID(ctx context.Context, id string) (*UserModel, error) {
	return repo.findOne(ctx, `SELECT `+userColumns+` FROM "user" WHERE "id" = $1`, id)
}

func (repo *UserMySQL) findOne(ctx context.Context, query string, args ...interface{}) (*UserModel, error) {
	rows, err := repo.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query user")
	}
	defer rows.Close()

	if rows.Next() {
		user := new(UserModel)
		if err := rows.Scan(&user.ID, &user.Username, &user.Password, &user.Email, &user.Role,
			&user.Credits, &user.LoginRetry, &user.LastLogin, &user.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan user")
		}
		return user, nil
	}
	return nil, rows.Err()
}

func (repo *UserMySQL) SaveUser(ctx context.Context, post *UserModel) error {
	id, err := repo.UUIDGenerator.Generate()
	if err != nil {
		return err
	}
	post.ID = id
	if post.Role == "" {
		post.Role = RoleStudent
	}

	_, err = repo.Conn.ExecContext(ctx, `INSERT INTO "user"("id", "username", "password", "email", "role", "credits")
	VALUES($1, $2, $3, $4, $5, $6)`, post.ID, post.Username, post.Password, post.Email, post.Role, post.Credits)
	if driver.IsUniqueViolation(err) {
		return ErrDuplicatedUser
	}
	return errors.Wrap(err, "insert user")
}

func (repo *UserMySQL) UpdateLogin(ctx context.Context, post *UserModel) error {
	_, err := repo.Conn.ExecContext(ctx, `UPDATE "user"
	SET "login_retry" = $1,
		"last_login" = $2
	WHERE "id" = $3`, post.LoginRetry, post.LastLogin, post.ID)
	return errors.Wrap(err, "update login")
}
