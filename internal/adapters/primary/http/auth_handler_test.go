package http

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/chat-backend/internal/core/domain"
)

func TestAuthHandler_RegisterAndMe(t *testing.T) {
	router := newTestRouter(t)

	username := "user-" + uuid.NewString()
	recorder := doJSON(t, router, http.MethodPost, "/auth/register", "", RegisterRequest{
		Username: username,
		Password: "correct-horse-7",
		Avatar:   "https://cdn.example.com/a.png",
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	registered := decodeBody[AuthResponse](t, recorder)
	assert.Len(t, registered.Session.Token, domain.SessionTokenLength)
	require.NotNil(t, registered.User)
	assert.Equal(t, username, registered.User.Username)
	assert.Equal(t, "https://cdn.example.com/a.png", registered.User.Avatar)

	meRecorder := doJSON(t, router, http.MethodGet, "/auth/me", registered.Session.Token, nil)
	require.Equal(t, http.StatusOK, meRecorder.Code)

	me := decodeBody[UserDTO](t, meRecorder)
	assert.Equal(t, registered.User.ID, me.ID)
	assert.Equal(t, username, me.Username)
}

func TestAuthHandler_RegisterDuplicateUsername(t *testing.T) {
	router := newTestRouter(t)

	username := "user-" + uuid.NewString()
	first := doJSON(t, router, http.MethodPost, "/auth/register", "", RegisterRequest{
		Username: username,
		Password: "correct-horse-7",
	})
	require.Equal(t, http.StatusCreated, first.Code)

	second := doJSON(t, router, http.MethodPost, "/auth/register", "", RegisterRequest{
		Username: username,
		Password: "correct-horse-7",
	})
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestAuthHandler_RegisterValidation(t *testing.T) {
	router := newTestRouter(t)

	recorder := doJSON(t, router, http.MethodPost, "/auth/register", "", RegisterRequest{
		Username: "user-" + uuid.NewString(),
		Password: "short",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

	response := decodeBody[ValidationErrorResponse](t, recorder)
	assert.Contains(t, response.Fields, "password")
}

func TestAuthHandler_LoginAndLogout(t *testing.T) {
	router := newTestRouter(t)

	username := "user-" + uuid.NewString()
	registered := doJSON(t, router, http.MethodPost, "/auth/register", "", RegisterRequest{
		Username: username,
		Password: "correct-horse-7",
	})
	require.Equal(t, http.StatusCreated, registered.Code)

	loginRecorder := doJSON(t, router, http.MethodPost, "/auth/login", "", LoginRequest{
		Username: username,
		Password: "correct-horse-7",
	})
	require.Equal(t, http.StatusOK, loginRecorder.Code)

	login := decodeBody[AuthResponse](t, loginRecorder)
	require.NotEmpty(t, login.Session.Token)

	logoutRecorder := doJSON(t, router, http.MethodPost, "/auth/logout", login.Session.Token, nil)
	require.Equal(t, http.StatusNoContent, logoutRecorder.Code)

	meRecorder := doJSON(t, router, http.MethodGet, "/auth/me", login.Session.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, meRecorder.Code)
}

func TestAuthHandler_LoginWrongPassword(t *testing.T) {
	router := newTestRouter(t)

	username := "user-" + uuid.NewString()
	registered := doJSON(t, router, http.MethodPost, "/auth/register", "", RegisterRequest{
		Username: username,
		Password: "correct-horse-7",
	})
	require.Equal(t, http.StatusCreated, registered.Code)

	recorder := doJSON(t, router, http.MethodPost, "/auth/login", "", LoginRequest{
		Username: username,
		Password: "wrong-password-1",
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestAuthHandler_MeWithoutToken(t *testing.T) {
	router := newTestRouter(t)

	recorder := doJSON(t, router, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	response := decodeBody[ErrorResponse](t, recorder)
	assert.Equal(t, "UNAUTHENTICATED", response.Code)
}
