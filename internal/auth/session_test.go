// internal/auth/session_test.go
package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duelpoint/arena/internal/models"
)

func TestCreateAndAuthenticate(t *testing.T) {
	Init()
	user := models.User{ID: uuid.New(), Username: "alice"}

	token, err := CreateJWT(user)
	require.NoError(t, err)

	got, err := AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, user, got)
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	Init()
	_, err := AuthenticateJWT("not-a-jwt")
	assert.Error(t, err)
}

func TestFromRequest(t *testing.T) {
	Init()
	user := models.User{ID: uuid.New(), Username: "bob"}
	token, err := CreateJWT(user)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Cookie", "auth_token="+token+"; other=1")
	got, err := FromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, user, got)

	bare := httptest.NewRequest("GET", "/", nil)
	_, err = FromRequest(bare)
	assert.Error(t, err)
}
