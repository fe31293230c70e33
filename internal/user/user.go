package user

import (
	"context"
	"errors"
	"time"
)

// user roles
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// UserModel account and wallet of a learner
type UserModel struct {
	ID         string     `json:"id"`
	Username   string     `json:"username" validate:"required,min=3,max=32"`
	Email      string     `json:"email" validate:"required,email"`
	Password   string     `json:"password,omitempty" validate:"required,min=6"`
	Role       string     `json:"role"`
	Credits    int        `json:"credits"`
	LoginRetry int        `json:"-"`
	LastLogin  *time.Time `json:"-"` // time of the last sign-in attempt
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// ErrNoSuchUser failed to validate the credential
var ErrNoSuchUser = errors.New("No such user or password is incorrect")

// ErrDuplicatedUser unique key constraint violation
var ErrDuplicatedUser = errors.New("Username or email is already registered")

// ErrUserTooManyRetry sign-in is locked until the retry timeout elapses
var ErrUserTooManyRetry = errors.New("Too many failed attempts, please try again later")

type UserRepository interface {
	FindByCredential(ctx context.Context, credential string) (*UserModel, error)
	FindByID(ctx context.Context, id string) (*UserModel, error)
	SaveUser(ctx context.Context, post *UserModel) error
	UpdateLogin(ctx context.Context, post *UserModel) error
}

type UserUseCase interface {
	SignUp(ctx context.Context, post *UserModel) (*UserModel, error)
	SignIn(ctx context.Context, credential, password string) (*UserModel, error)
	Exists(ctx context.Context, username, email string) (bool, error)
	GetProfile(ctx context.Context, id string) (*UserModel, error)
}
