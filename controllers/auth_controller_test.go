package controllers_test

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dicomeinit/post-comment-app/models"
)

func TestRegisterAndLogin(t *testing.T) {
	r, db := setupEnv(t, &stubModerator{}, newRecordingScheduler())

	w := doJSON(t, r, "POST", "/api/v1/auth/register", "", gin.H{
		"username": "alice",
		"password": "Password123",
	})
	require.Equal(t, 200, w.Code, w.Body.String())
	env := decodeEnvelope(t, w)
	assert.Equal(t, "OK", env.Data["status"])

	var user models.User
	require.NoError(t, db.Where("username = ?", "alice").First(&user).Error)
	assert.NotEqual(t, "Password123", user.PasswordHash)

	w = doJSON(t, r, "POST", "/api/v1/auth/login", "", gin.H{
		"username": "alice",
		"password": "Password123",
	})
	require.Equal(t, 200, w.Code, w.Body.String())
	env = decodeEnvelope(t, w)
	assert.NotEmpty(t, env.Data["access"])
	assert.NotEmpty(t, env.Data["refresh"])
	loggedIn, ok := env.Data["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", loggedIn["username"])
}

func TestRegisterDuplicateUsername(t *testing.T) {
	r, db := setupEnv(t, &stubModerator{}, newRecordingScheduler())

	registerAndLogin(t, r, "alice")

	w := doJSON(t, r, "POST", "/api/v1/auth/register", "", gin.H{
		"username": "alice",
		"password": "Different456",
	})
	require.Equal(t, 400, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "Username already taken", env.Detail)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("username = ?", "alice").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRegisterDuplicateCaughtByUniqueIndex(t *testing.T) {
	r, db := setupEnv(t, &stubModerator{}, newRecordingScheduler())

	registerAndLogin(t, r, "alice")

	// A soft-deleted row is invisible to the pre-insert lookup but still owns the
	// username in the unique index, so the conflict surfaces from Create itself.
	require.NoError(t, db.Where("username = ?", "alice").Delete(&models.User{}).Error)

	w := doJSON(t, r, "POST", "/api/v1/auth/register", "", gin.H{
		"username": "alice",
		"password": "Different456",
	})
	require.Equal(t, 400, w.Code, w.Body.String())
	env := decodeEnvelope(t, w)
	assert.Equal(t, "Username already taken", env.Detail)
}

func TestRegisterRejectsWeakCredentials(t *testing.T) {
	r, _ := setupEnv(t, &stubModerator{}, newRecordingScheduler())

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"short password", "bob", "Ab1"},
		{"password without digits", "bob", "OnlyLetters"},
		{"username too short", "ab", "Password123"},
		{"username with spaces", "bad name", "Password123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, "POST", "/api/v1/auth/register", "", gin.H{
				"username": tc.username,
				"password": tc.password,
			})
			assert.Equal(t, 400, w.Code, w.Body.String())
		})
	}
}

func TestLoginFailures(t *testing.T) {
	r, _ := setupEnv(t, &stubModerator{}, newRecordingScheduler())
	registerAndLogin(t, r, "alice")

	for _, body := range []gin.H{
		{"username": "alice", "password": "WrongPass1"},
		{"username": "nobody", "password": "Password123"},
	} {
		w := doJSON(t, r, "POST", "/api/v1/auth/login", "", body)
		require.Equal(t, 401, w.Code, w.Body.String())
		env := decodeEnvelope(t, w)
		assert.Equal(t, "No active account found with the given credentials", env.Detail)
	}
}

func TestRefreshFlow(t *testing.T) {
	r, _ := setupEnv(t, &stubModerator{}, newRecordingScheduler())
	registerAndLogin(t, r, "alice")

	w := doJSON(t, r, "POST", "/api/v1/auth/login", "", gin.H{
		"username": "alice",
		"password": "Password123",
	})
	require.Equal(t, 200, w.Code)
	env := decodeEnvelope(t, w)
	access, _ := env.Data["access"].(string)
	refresh, _ := env.Data["refresh"].(string)
	require.NotEmpty(t, refresh)

	// Access tokens are not accepted by the refresh endpoint.
	w = doJSON(t, r, "POST", "/api/v1/auth/refresh", "", gin.H{"refresh": access})
	assert.Equal(t, 401, w.Code)

	// Refresh tokens are not accepted as bearer credentials.
	w = doJSON(t, r, "GET", "/api/v1/auth/me", refresh, nil)
	assert.Equal(t, 401, w.Code)

	w = doJSON(t, r, "POST", "/api/v1/auth/refresh", "", gin.H{"refresh": refresh})
	require.Equal(t, 200, w.Code, w.Body.String())
	env = decodeEnvelope(t, w)
	newAccess, _ := env.Data["access"].(string)
	require.NotEmpty(t, newAccess)

	w = doJSON(t, r, "GET", "/api/v1/auth/me", newAccess, nil)
	require.Equal(t, 200, w.Code, w.Body.String())
	env = decodeEnvelope(t, w)
	assert.Equal(t, "alice", env.Data["username"])
}

func TestLogoutRevokesToken(t *testing.T) {
	r, _ := setupEnv(t, &stubModerator{}, newRecordingScheduler())
	token := registerAndLogin(t, r, "alice")

	w := doJSON(t, r, "GET", "/api/v1/auth/me", token, nil)
	require.Equal(t, 200, w.Code)

	w = doJSON(t, r, "POST", "/api/v1/auth/logout", token, nil)
	require.Equal(t, 200, w.Code, w.Body.String())

	w = doJSON(t, r, "GET", "/api/v1/auth/me", token, nil)
	assert.Equal(t, 401, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r, _ := setupEnv(t, &stubModerator{}, newRecordingScheduler())

	for _, path := range []string{
		"/api/v1/posts",
		"/api/v1/auth/me",
		"/api/v1/analytics/comments/daily",
	} {
		w := doJSON(t, r, "GET", path, "", nil)
		assert.Equal(t, 401, w.Code, path)
	}

	w := doJSON(t, r, "GET", "/api/v1/posts", "not-a-valid-token", nil)
	assert.Equal(t, 401, w.Code)
}
