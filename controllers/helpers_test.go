package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dicomeinit/post-comment-app/config"
	"github.com/dicomeinit/post-comment-app/controllers"
	"github.com/dicomeinit/post-comment-app/models"
	"github.com/dicomeinit/post-comment-app/routes"
	"github.com/dicomeinit/post-comment-app/utils"
)

// stubModerator flags text containing flagWord; err simulates classifier outages.
type stubModerator struct {
	flagWord string
	err      error
}

func (s *stubModerator) IsInappropriate(_ context.Context, text string) (bool, error) {
	flagged := s.flagWord != "" && strings.Contains(strings.ToLower(text), s.flagWord)
	return flagged, s.err
}

// recordingScheduler captures schedule/cancel calls instead of running timers.
type recordingScheduler struct {
	mu        sync.Mutex
	scheduled map[uint]time.Duration
	cancelled []uint
}

func newRecordingScheduler() *recordingScheduler {
	return &recordingScheduler{scheduled: map[uint]time.Duration{}}
}

func (r *recordingScheduler) Schedule(postID, _ uint, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scheduled[postID] = delay
}

func (r *recordingScheduler) Cancel(postID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, postID)
	_, ok := r.scheduled[postID]
	delete(r.scheduled, postID)
	return ok
}

func (r *recordingScheduler) scheduledDelay(postID uint) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.scheduled[postID]
	return d, ok
}

func (r *recordingScheduler) cancelCount(postID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, id := range r.cancelled {
		if id == postID {
			n++
		}
	}
	return n
}

func setupEnv(t *testing.T, mod controllers.ContentModerator, sched controllers.ReplyScheduler) (*gin.Engine, *gorm.DB) {
	return setupEnvWithConfig(t, mod, sched, nil)
}

func setupEnvWithConfig(t *testing.T, mod controllers.ContentModerator, sched controllers.ReplyScheduler, mutate func(*config.AppConfig)) (*gin.Engine, *gorm.DB) {
	t.Helper()

	mr := miniredis.RunT(t)
	utils.SetRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	cfg := config.AppConfig{
		JWTSecret:          "test-secret",
		GinMode:            "test",
		GinPath:            filepath.Join(t.TempDir(), "gin.log"),
		LogPath:            filepath.Join(t.TempDir(), "app.log"),
		RateLimitPerMinute: 100000,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	config.Set(cfg)

	utils.Logger = zap.NewNop()
	utils.Sugar = utils.Logger.Sugar()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{}))

	return routes.SetupRouter(db, mod, sched), db
}

type envelope struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Detail  string         `json:"detail"`
	Data    map[string]any `json:"data"`
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

// registerAndLogin creates an account through the API and returns its access token.
func registerAndLogin(t *testing.T, r *gin.Engine, username string) string {
	t.Helper()
	w := doJSON(t, r, "POST", "/api/v1/auth/register", "", gin.H{
		"username": username,
		"password": "Password123",
	})
	require.Equal(t, 200, w.Code, w.Body.String())

	w = doJSON(t, r, "POST", "/api/v1/auth/login", "", gin.H{
		"username": username,
		"password": "Password123",
	})
	require.Equal(t, 200, w.Code, w.Body.String())
	env := decodeEnvelope(t, w)
	access, _ := env.Data["access"].(string)
	require.NotEmpty(t, access)
	return access
}

func createPost(t *testing.T, r *gin.Engine, token, title string, autoReply bool, delayMinutes int) uint {
	t.Helper()
	w := doJSON(t, r, "POST", "/api/v1/posts", token, gin.H{
		"title":               title,
		"content":             "content of " + title,
		"auto_reply_enabled":  autoReply,
		"reply_delay_minutes": delayMinutes,
	})
	require.Equal(t, 200, w.Code, w.Body.String())
	env := decodeEnvelope(t, w)
	post, ok := env.Data["post"].(map[string]any)
	require.True(t, ok)
	id, ok := post["id"].(float64)
	require.True(t, ok)
	return uint(id)
}
