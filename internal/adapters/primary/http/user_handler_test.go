package http

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserHandler_GetByID(t *testing.T) {
	router := newTestRouter(t)
	token, user := registerTestAccount(t, router)

	recorder := doJSON(t, router, http.MethodGet, "/users/"+user.ID, token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	fetched := decodeBody[UserDTO](t, recorder)
	assert.Equal(t, user.ID, fetched.ID)
	assert.Equal(t, user.Username, fetched.Username)
}

func TestUserHandler_GetMissing(t *testing.T) {
	router := newTestRouter(t)
	token, _ := registerTestAccount(t, router)

	recorder := doJSON(t, router, http.MethodGet, "/users/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestUserHandler_GetInvalidID(t *testing.T) {
	router := newTestRouter(t)
	token, _ := registerTestAccount(t, router)

	recorder := doJSON(t, router, http.MethodGet, "/users/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
}

func TestUserHandler_List(t *testing.T) {
	router := newTestRouter(t)
	token, user := registerTestAccount(t, router)

	recorder := doJSON(t, router, http.MethodGet, "/users?limit=100", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	list := decodeBody[ListResponse[UserDTO]](t, recorder)
	require.GreaterOrEqual(t, list.Count, 1)

	ids := make([]string, 0, len(list.Data))
	for _, u := range list.Data {
		ids = append(ids, u.ID)
	}
	assert.Contains(t, ids, user.ID)
}
