package user

import (
	"context"
	"time"

	"go.elastic.co/apm"
	"golang.org/x/crypto/bcrypt"
)

// UserUseCaseImpl ...
type UserUseCaseImpl struct {
	UserRepository UserRepository
	MaxRetry       int
	RetryTimeout   time.Duration
	clock          func() time.Time
}

var _ UserUseCase = &UserUseCaseImpl{}

// NewUserUseCase ...
func NewUserUseCase(
	UserRepository UserRepository,
	MaxRetry int,
	RetryTimeout time.Duration,
) *UserUseCaseImpl {
	return &UserUseCaseImpl{
		UserRepository: UserRepository,
		MaxRetry:       MaxRetry,
		RetryTimeout:   RetryTimeout,
		clock:          time.Now,
	}
}

// SignUp create a user
func (uu *UserUseCaseImpl) SignUp(ctx context.Context, post *UserModel) (*UserModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "UserUseCaseImpl.SignUp", "service")
	defer apmSpan.End()

	ur := uu.UserRepository
	if exists, err := uu.Exists(ctx, post.Username, post.Email); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrDuplicatedUser
	}

	password, err := bcrypt.GenerateFromPassword([]byte(post.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	post.Password = string(password)
	post.Role = RoleStudent
	post.Credits = 0

	if err := ur.SaveUser(ctx, post); err != nil {
		return nil, err
	}
	post.Password = ""
	return post, nil
}

// SignIn validate the credential, failed attempts are counted and lock the account for RetryTimeout
func (uu *UserUseCaseImpl) SignIn(ctx context.Context, credential, password string) (*UserModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "UserUseCaseImpl.SignIn", "service")
	defer apmSpan.End()

	ur := uu.UserRepository
	user, err := ur.FindByCredential(ctx, credential)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNoSuchUser
	}

	now := uu.clock()
	if uu.MaxRetry > 0 && user.LoginRetry >= uu.MaxRetry {
		if user.LastLogin != nil && now.Sub(*user.LastLogin) < uu.RetryTimeout {
			return nil, ErrUserTooManyRetry
		}
		user.LoginRetry = 0
	}

	user.LastLogin = &now
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		if err != bcrypt.ErrMismatchedHashAndPassword {
			return nil, err
		}
		user.LoginRetry++
		if err := ur.UpdateLogin(ctx, user); err != nil {
			return nil, err
		}
		return nil, ErrNoSuchUser
	}

	user.LoginRetry = 0
	if err := ur.UpdateLogin(ctx, user); err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

// Exists find if user exists in database
func (uu *UserUseCaseImpl) Exists(ctx context.Context, username, email string) (bool, error) {
	apmSpan, _ := apm.StartSpan(ctx, "UserUseCaseImpl.Exists", "service")
	defer apmSpan.End()

	for _, credential := range []string{username, email} {
		if credential == "" {
			continue
		}
		user, err := uu.UserRepository.FindByCredential(ctx, credential)
		if err != nil {
			return false, err
		}
		if user != nil {
			return true, nil
		}
	}
	return false, nil
}

// GetProfile user profile without the password hash
func (uu *UserUseCaseImpl) GetProfile(ctx context.Context, id string) (*UserModel, error) {
	apmSpan, _ := apm.StartSpan(ctx, "UserUseCaseImpl.GetProfile", "service")
	defer apmSpan.End()

	user, err := uu.UserRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNoSuchUser
	}
	user.Password = ""
	return user, nil
}
