package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mburgess/go-dms/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestUserId(t *testing.T) {
	tcases := []struct {
		name     string
		ctx      context.Context
		userId   int
		expected bool
	}{
		{
			name:     "no user ID",
			ctx:      context.Background(),
			expected: false,
		},
		{
			name:     "user ID set",
			ctx:      WithUserId(context.Background(), 42),
			userId:   42,
			expected: true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			userId, ok := UserId(tc.ctx)
			assert.Equal(t, tc.expected, ok, "expected UserId to return %v", tc.expected)
			assert.Equal(t, tc.userId, userId, "expected UserId to return %d", tc.userId)
		})
	}
}

func Test_bearerToken(t *testing.T) {
	t.Run("authorization header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer abc123")

		token, ok := bearerToken(req)
		assert.True(t, ok)
		assert.Equal(t, "abc123", token)
	})

	t.Run("cookie fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: "cookie-token"})

		token, ok := bearerToken(req)
		assert.True(t, ok)
		assert.Equal(t, "cookie-token", token)
	})

	t.Run("header wins over cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer header-token")
		req.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: "cookie-token"})

		token, ok := bearerToken(req)
		assert.True(t, ok)
		assert.Equal(t, "header-token", token)
	})

	t.Run("no credential", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		_, ok := bearerToken(req)
		assert.False(t, ok)
	})
}

func TestJwtRoundTrip(t *testing.T) {
	app := &DmApp{signingKey: []byte("test-signing-key")}

	token, err := app.createJwtForSession(types.User{Id: 7, Username: "alice"}, defaultJwtExpiration)
	assert.NoError(t, err, "expected token creation to succeed")

	userId, err := app.extractUserIdFromToken(token)
	assert.NoError(t, err, "expected token verification to succeed")
	assert.Equal(t, 7, userId)
}

func TestExtractUserIdFromToken_WrongKey(t *testing.T) {
	app := &DmApp{signingKey: []byte("test-signing-key")}

	token, err := app.createJwtForSession(types.User{Id: 7, Username: "alice"}, defaultJwtExpiration)
	assert.NoError(t, err)

	other := &DmApp{signingKey: []byte("different-key")}
	_, err = other.extractUserIdFromToken(token)
	assert.Error(t, err, "expected verification with a different key to fail")
}
