package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/pot-code/eclass/internal/user"
)

// ErrAnonymousToken token carries no user id
var ErrAnonymousToken = errors.New("token has no subject")

// revokedPrefix kv key prefix of signed out tokens
const revokedPrefix = "revoked:"

// AppTokenClaims identity of a learner, the user id is the subject
type AppTokenClaims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`

	jwt.StandardClaims
}

// TimeRemaining remaining time before the token get expired
func (tk *AppTokenClaims) TimeRemaining() time.Duration {
	remaining := time.Until(time.Unix(tk.ExpiresAt, 0))
	if remaining < 0 {
		return 0
	}
	return remaining
}

// JWTUtil issues session tokens and moves them between cookie, request context and kv blacklist
type JWTUtil struct {
	secret    []byte
	tokenName string
	timeout   time.Duration
	method    jwt.SigningMethod
	clock     func() time.Time

	// SecureCookie only send the cookie over https
	SecureCookie bool
}

// NewJWTUtil method is HS256 or HS512, anything else falls back to HS256
func NewJWTUtil(method, secret, tokenName string, timeout time.Duration) *JWTUtil {
	var signMethod jwt.SigningMethod = jwt.SigningMethodHS256
	if method == "HS512" {
		signMethod = jwt.SigningMethodHS512
	}
	return &JWTUtil{
		method:    signMethod,
		secret:    []byte(secret),
		tokenName: tokenName,
		timeout:   timeout,
		clock:     time.Now,
	}
}

func (ju *JWTUtil) sign(claims *AppTokenClaims) (string, error) {
	return jwt.NewWithClaims(ju.method, claims).SignedString(ju.secret)
}

// Issue signed token for a signed in user
func (ju *JWTUtil) Issue(u *user.UserModel) (string, error) {
	now := ju.clock()
	return ju.sign(&AppTokenClaims{
		UID:   u.ID,
		Email: u.Email,
		Name:  u.Username,
		Role:  u.Role,
		StandardClaims: jwt.StandardClaims{
			Subject:   u.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ju.timeout).Unix(),
		},
	})
}

// Parse verify signature, algorithm and expiry
func (ju *JWTUtil) Parse(tokenStr string) (*AppTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AppTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != ju.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method %s", token.Method.Alg())
		}
		return ju.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims := token.Claims.(*AppTokenClaims)
	if claims.UID == "" {
		return nil, ErrAnonymousToken
	}
	return claims, nil
}

// Renew push the expiry a full timeout from now and sign again
func (ju *JWTUtil) Renew(claims *AppTokenClaims) (string, error) {
	claims.ExpiresAt = ju.clock().Add(ju.timeout).Unix()
	return ju.sign(claims)
}

func (ju *JWTUtil) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     ju.tokenName,
		Value:    value,
		HttpOnly: true,
		Secure:   ju.SecureCookie,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	}
}

// WriteCookie hand the token to the browser
func (ju *JWTUtil) WriteCookie(c echo.Context, tokenStr string) {
	c.SetCookie(ju.cookie(tokenStr, ju.clock().Add(ju.timeout)))
}

// ExpireCookie drop the token from the browser
func (ju *JWTUtil) ExpireCookie(c echo.Context) {
	c.SetCookie(ju.cookie("", ju.clock()))
}

// ReadCookie raw token of the request
func (ju *JWTUtil) ReadCookie(c echo.Context) (string, error) {
	token, err := c.Cookie(ju.tokenName)
	if err != nil {
		return "", err
	}
	return token.Value, nil
}

// Bind attach verified claims to the request
func (ju *JWTUtil) Bind(c echo.Context, claims *AppTokenClaims) {
	c.Set(ju.tokenName, claims)
}

// Claims verified claims of the request, nil when unauthenticated
func (ju *JWTUtil) Claims(c echo.Context) *AppTokenClaims {
	if v, ok := c.Get(ju.tokenName).(*AppTokenClaims); ok {
		return v
	}
	return nil
}

// UserID authenticated learner of the request, empty when unauthenticated
func (ju *JWTUtil) UserID(c echo.Context) string {
	if claims := ju.Claims(c); claims != nil {
		return claims.UID
	}
	return ""
}

// RevocationKey kv key marking a signed out token
func RevocationKey(tokenStr string) string {
	return revokedPrefix + tokenStr
}
