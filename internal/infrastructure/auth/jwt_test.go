package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/eclass/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	ju := NewJWTUtil("HS256", "secret", "token", 30*time.Minute)

	tokenStr, err := ju.Issue(&user.UserModel{ID: "u1", Email: "a@b.c", Username: "alice", Role: user.RoleStudent})
	require.NoError(t, err)

	claims, err := ju.Parse(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UID)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, user.RoleStudent, claims.Role)
	assert.True(t, claims.TimeRemaining() > 29*time.Minute)

	other := NewJWTUtil("HS256", "another", "token", time.Minute)
	_, err = other.Parse(tokenStr)
	assert.Error(t, err)

	hs512 := NewJWTUtil("HS512", "secret", "token", time.Minute)
	_, err = hs512.Parse(tokenStr)
	assert.Error(t, err, "signing method must match")
}

func TestParseRejectsAnonymousToken(t *testing.T) {
	ju := NewJWTUtil("HS256", "secret", "token", time.Minute)
	tokenStr, err := ju.Issue(&user.UserModel{})
	require.NoError(t, err)

	_, err = ju.Parse(tokenStr)
	assert.ErrorIs(t, err, ErrAnonymousToken)
}

func TestRenew(t *testing.T) {
	ju := NewJWTUtil("HS256", "secret", "token", time.Hour)
	now := time.Now()
	ju.clock = func() time.Time { return now }

	claims := &AppTokenClaims{UID: "u1"}
	claims.ExpiresAt = now.Add(time.Minute).Unix()
	tokenStr, err := ju.Renew(claims)
	require.NoError(t, err)

	renewed, err := ju.Parse(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour).Unix(), renewed.ExpiresAt)
}

func TestCookieAndContext(t *testing.T) {
	ju := NewJWTUtil("HS256", "secret", "token", 30*time.Minute)
	ju.SecureCookie = true
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	ju.WriteCookie(c, "abc")
	cookie := rec.Result().Cookies()[0]
	assert.Equal(t, "token", cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	c = e.NewContext(req, httptest.NewRecorder())
	tokenStr, err := ju.ReadCookie(c)
	require.NoError(t, err)
	assert.Equal(t, "abc", tokenStr)

	assert.Nil(t, ju.Claims(c))
	assert.Empty(t, ju.UserID(c))
	ju.Bind(c, &AppTokenClaims{UID: "u1"})
	assert.Equal(t, "u1", ju.UserID(c))
}

func TestTimeRemainingExpired(t *testing.T) {
	claims := new(AppTokenClaims)
	claims.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	assert.Equal(t, time.Duration(0), claims.TimeRemaining())
}

func TestRevocationKey(t *testing.T) {
	assert.Equal(t, "revoked:abc", RevocationKey("abc"))
}
