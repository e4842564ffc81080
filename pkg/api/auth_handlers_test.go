package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name   string
		body   interface{}
		status int
		errMsg string
	}{
		{
			name:   "missing password",
			body:   RegisterRequest{Name: "Alice", Email: "alice@x.com"},
			status: http.StatusBadRequest,
			errMsg: "missing required fields",
		},
		{
			name:   "blank name",
			body:   RegisterRequest{Name: "  ", Email: "alice@x.com", Password: "pw"},
			status: http.StatusBadRequest,
			errMsg: "missing required fields",
		},
		{
			name:   "malformed body",
			body:   "not an object",
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			w := env.do(t, "POST", "/api/auth/register", "", tt.body)

			assert.Equal(t, tt.status, w.Code)
			if tt.errMsg != "" {
				assert.JSONEq(t, `{"error":"`+tt.errMsg+`"}`, w.Body.String())
			}
			assert.Empty(t, env.notifier.kinds())
		})
	}
}

func TestRegister_SendsWelcome(t *testing.T) {
	env := newTestEnv(t)

	env.register(t, "Alice", "alice@x.com", "secret1")

	assert.Equal(t, []string{"welcome"}, env.notifier.kinds())
}

func TestLogin_SendsLoginNotification(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Alice", "alice@x.com", "secret1")

	w := env.do(t, "POST", "/api/auth/login", "", LoginRequest{Email: "alice@x.com", Password: "secret1"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"welcome", "login"}, env.notifier.kinds())
}

func TestMe_RequiresBearer(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		token  string
		errMsg string
	}{
		{name: "no token", errMsg: "unauthorized"},
		{name: "garbage token", token: "not.a.jwt", errMsg: "invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "GET", "/api/auth/me", tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"error":"`+tt.errMsg+`"}`, w.Body.String())
		})
	}
}

func TestMe_ExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "Alice", "alice@x.com", "secret1")

	env.now = env.now.Add(8 * 24 * time.Hour)
	w := env.do(t, "GET", "/api/auth/me", token, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"invalid token"}`, w.Body.String())
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "POST", "/api/auth/logout", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Logged out"}`, w.Body.String())
}

func TestUpdateName(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "Alice", "alice@x.com", "secret1")

	w := env.do(t, "PUT", "/api/user/update-name", token, UpdateNameRequest{Name: " Alicia "})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Name updated successfully","name":"Alicia"}`, w.Body.String())

	me := env.do(t, "GET", "/api/auth/me", token, nil)
	assert.Equal(t, "Alicia", decode[UserResponse](t, me).User.Name)
	assert.Contains(t, env.notifier.kinds(), "profile_updated")

	blank := env.do(t, "PUT", "/api/user/update-name", token, UpdateNameRequest{Name: "   "})
	assert.Equal(t, http.StatusBadRequest, blank.Code)
}

func TestUpdatePassword(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "Alice", "alice@x.com", "secret1")

	wrong := env.do(t, "PUT", "/api/user/update-password", token, UpdatePasswordRequest{OldPassword: "nope", NewPassword: "secret2"})
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.JSONEq(t, `{"error":"invalid password"}`, wrong.Body.String())

	ok := env.do(t, "PUT", "/api/user/update-password", token, UpdatePasswordRequest{OldPassword: "secret1", NewPassword: "secret2"})
	require.Equal(t, http.StatusOK, ok.Code)

	old := env.do(t, "POST", "/api/auth/login", "", LoginRequest{Email: "alice@x.com", Password: "secret1"})
	assert.Equal(t, http.StatusUnauthorized, old.Code)

	fresh := env.do(t, "POST", "/api/auth/login", "", LoginRequest{Email: "alice@x.com", Password: "secret2"})
	assert.Equal(t, http.StatusOK, fresh.Code)
}

func TestContentTypeEnforced(t *testing.T) {
	env := newTestEnv(t)

	req := strings.NewReader(`{"email":"a","password":"b"}`)
	w := env.doRaw(t, "POST", "/api/auth/login", "text/plain", req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
