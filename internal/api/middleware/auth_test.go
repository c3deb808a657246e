package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	a := NewAuthenticator("secret", time.Hour)

	token, err := a.Issue(Session{UserID: "alice", Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)

	s, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, Session{UserID: "alice", Name: "Alice", Email: "alice@example.com"}, s)
}

func TestIssueRequiresUser(t *testing.T) {
	_, err := NewAuthenticator("secret", time.Hour).Issue(Session{Name: "nobody"})
	assert.Error(t, err)
}

func TestVerifyRejects(t *testing.T) {
	a := NewAuthenticator("secret", time.Hour)
	valid, err := a.Issue(Session{UserID: "alice"})
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := NewAuthenticator("secret", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Verify(valid)
		assert.True(t, errors.Is(err, ErrUnauthorized))
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewAuthenticator("other", time.Hour).Verify(valid)
		assert.True(t, errors.Is(err, ErrUnauthorized))
	})

	t.Run("unsigned", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = a.Verify(signed)
		assert.True(t, errors.Is(err, ErrUnauthorized))
	})

	t.Run("no expiry", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "alice"})
		signed, err := token.SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = a.Verify(signed)
		assert.True(t, errors.Is(err, ErrUnauthorized))
	})

	t.Run("no subject", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, err := token.SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = a.Verify(signed)
		assert.True(t, errors.Is(err, ErrUnauthorized))
	})
}

func TestAuthMiddleware(t *testing.T) {
	a := NewAuthenticator("secret", time.Hour, "/health")

	var seen Session
	var called bool
	h := Auth(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		seen, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(path, authorization string) *httptest.ResponseRecorder {
		called = false
		seen = Session{}
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := serve("/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)

	rec = serve("/api/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
	assert.Contains(t, rec.Body.String(), "Missing bearer token")

	rec = serve("/api/me", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or expired token")

	rec = serve("/api/me", "Basic YWxpY2U6cGFzcw==")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := a.Issue(Session{UserID: "alice"})
	require.NoError(t, err)
	rec = serve("/api/me", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
	assert.Equal(t, "alice", seen.UserID)
}
