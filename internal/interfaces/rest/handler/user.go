package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/eclass/internal/infrastructure/auth"
	"github.com/pot-code/eclass/internal/infrastructure/driver"
	"github.com/pot-code/eclass/internal/infrastructure/validate"
	"github.com/pot-code/eclass/internal/user"
)

// UserHandler user related operations
type UserHandler struct {
	JWTUtil     *auth.JWTUtil
	KVStore     driver.KeyValueDB
	UserUseCase user.UserUseCase
	Validator   validate.Validator
}

// NewUserHandler create an user controller instance
func NewUserHandler(
	JWTUtil *auth.JWTUtil,
	KVStore driver.KeyValueDB,
	UserUseCase user.UserUseCase,
	Validator validate.Validator,
) *UserHandler {
	return &UserHandler{
		JWTUtil:     JWTUtil,
		KVStore:     KVStore,
		UserUseCase: UserUseCase,
		Validator:   Validator,
	}
}

type signInForm struct {
	Username string `json:"username" validate:"required"` // username or email
	Password string `json:"password" validate:"required"`
}

// HandleSignIn ...
func (uh *UserHandler) HandleSignIn(c echo.Context) (err error) {
	post := new(signInForm)
	if err = c.Bind(post); err != nil {
		return replyBindError(c, err)
	}
	if err := uh.Validator.Struct(post); err != nil {
		return replyInvalid(c, "Failed to validate fields", err)
	}

	u, err := uh.UserUseCase.SignIn(c.Request().Context(), post.Username, post.Password)
	if err == user.ErrNoSuchUser {
		return c.JSON(http.StatusUnauthorized, newStandardError(http.StatusUnauthorized, err))
	}
	if err != nil {
		return replyError(c, err)
	}

	tokenStr, err := uh.JWTUtil.Issue(u)
	if err != nil {
		return err
	}
	uh.JWTUtil.WriteCookie(c, tokenStr)
	return c.JSON(http.StatusOK, u)
}

// HandleSignUp ...
func (uh *UserHandler) HandleSignUp(c echo.Context) (err error) {
	post := new(user.UserModel)
	if err = c.Bind(post); err != nil {
		return replyBindError(c, err)
	}
	if err := uh.Validator.Struct(post); err != nil {
		return replyInvalid(c, "Failed to validate fields", err)
	}

	u, err := uh.UserUseCase.SignUp(c.Request().Context(), post)
	if err != nil {
		return replyError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// HandleSignOut blacklist the token until it expires
func (uh *UserHandler) HandleSignOut(c echo.Context) (err error) {
	ju := uh.JWTUtil

	tokenStr, err := ju.ReadCookie(c)
	if err != nil {
		return c.NoContent(http.StatusOK)
	}
	token, err := ju.Parse(tokenStr)
	if err != nil {
		return c.NoContent(http.StatusUnauthorized)
	}
	ju.ExpireCookie(c)
	if err := uh.KVStore.SetEX(c.Request().Context(), auth.RevocationKey(tokenStr), "", token.TimeRemaining()); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

// HandleUserExists ...
func (uh *UserHandler) HandleUserExists(c echo.Context) (err error) {
	username := c.QueryParam("username")
	email := c.QueryParam("email")

	if err := uh.Validator.AllEmpty([]string{"username", "email"}, username, email); err != nil {
		return replyInvalid(c, "Failed to validate params", []*validate.FieldError{err})
	}
	if email != "" {
		if errs := uh.Validator.Var("email", email, "email"); errs != nil {
			return replyInvalid(c, "Failed to validate params", errs)
		}
	}

	existing, err := uh.UserUseCase.Exists(c.Request().Context(), username, email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, existing)
}

// HandleGetProfile ...
func (uh *UserHandler) HandleGetProfile(c echo.Context) (err error) {
	profile, err := uh.UserUseCase.GetProfile(c.Request().Context(), uh.JWTUtil.UserID(c))
	if err == user.ErrNoSuchUser {
		return c.JSON(http.StatusNotFound, newStandardError(http.StatusNotFound, err))
	}
	if err != nil {
		return replyError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}
