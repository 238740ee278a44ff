package controllers_test

import (
	"encoding/json"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dicomeinit/post-comment-app/models"
)

type breakdownEntry struct {
	Day             string `json:"day"`
	TotalComments   int64  `json:"total_comments"`
	BlockedComments int64  `json:"blocked_comments"`
}

func fetchBreakdown(t *testing.T, r *gin.Engine, token, from, to string) (int, []breakdownEntry, string) {
	t.Helper()
	path := "/api/v1/analytics/comments/daily?date_from=" + url.QueryEscape(from) + "&date_to=" + url.QueryEscape(to)
	w := doJSON(t, r, "GET", path, token, nil)
	if w.Code != 200 {
		env := decodeEnvelope(t, w)
		return w.Code, nil, env.Detail
	}
	env := decodeEnvelope(t, w)
	raw, err := json.Marshal(env.Data["daily_breakdown"])
	require.NoError(t, err)
	var entries []breakdownEntry
	require.NoError(t, json.Unmarshal(raw, &entries))
	return w.Code, entries, ""
}

func seedComment(t *testing.T, db *gorm.DB, postID, userID uint, createdAt time.Time, blocked bool) {
	t.Helper()
	require.NoError(t, db.Create(&models.Comment{
		PostID:    postID,
		UserID:    userID,
		Content:   "seeded",
		Blocked:   blocked,
		CreatedAt: createdAt,
	}).Error)
}

func day(daysAgo int) time.Time {
	return time.Now().AddDate(0, 0, -daysAgo)
}

func dayStr(daysAgo int) string {
	return day(daysAgo).Format("2006-01-02")
}

// midday pins seeded rows away from day boundaries.
func midday(daysAgo int) time.Time {
	d := day(daysAgo)
	return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, time.Local)
}

func TestCommentsDailyBreakdown(t *testing.T) {
	r, db := setupEnv(t, &stubModerator{}, newRecordingScheduler())
	alice := registerAndLogin(t, r, "alice")
	postID := createPost(t, r, alice, "T", false, 0)

	var user models.User
	require.NoError(t, db.Where("username = ?", "alice").First(&user).Error)

	seedComment(t, db, postID, user.ID, midday(5), false)
	seedComment(t, db, postID, user.ID, midday(2), true)

	code, entries, _ := fetchBreakdown(t, r, alice, dayStr(9), dayStr(0))
	require.Equal(t, 200, code)
	require.Len(t, entries, 2)

	assert.Equal(t, dayStr(5), entries[0].Day)
	assert.Equal(t, int64(1), entries[0].TotalComments)
	assert.Equal(t, int64(0), entries[0].BlockedComments)

	assert.Equal(t, dayStr(2), entries[1].Day)
	assert.Equal(t, int64(1), entries[1].TotalComments)
	assert.Equal(t, int64(1), entries[1].BlockedComments)
}

func TestCommentsDailyBreakdownAggregatesPerDay(t *testing.T) {
	r, db := setupEnv(t, &stubModerator{}, newRecordingScheduler())
	alice := registerAndLogin(t, r, "alice")
	postID := createPost(t, r, alice, "T", false, 0)

	var user models.User
	require.NoError(t, db.Where("username = ?", "alice").First(&user).Error)

	for i := 0; i < 3; i++ {
		seedComment(t, db, postID, user.ID, midday(3), false)
	}
	seedComment(t, db, postID, user.ID, midday(3), true)
	// Outside the queried range.
	seedComment(t, db, postID, user.ID, midday(20), false)

	code, entries, _ := fetchBreakdown(t, r, alice, dayStr(10), dayStr(1))
	require.Equal(t, 200, code)
	require.Len(t, entries, 1)
	assert.Equal(t, dayStr(3), entries[0].Day)
	assert.Equal(t, int64(4), entries[0].TotalComments)
	assert.Equal(t, int64(1), entries[0].BlockedComments)
}

func TestCommentsDailyBreakdownEmptyRange(t *testing.T) {
	r, db := setupEnv(t, &stubModerator{}, newRecordingScheduler())
	alice := registerAndLogin(t, r, "alice")
	postID := createPost(t, r, alice, "T", false, 0)

	var user models.User
	require.NoError(t, db.Where("username = ?", "alice").First(&user).Error)
	seedComment(t, db, postID, user.ID, midday(5), false)

	// No comments fall in the window.
	code, entries, _ := fetchBreakdown(t, r, alice, dayStr(30), dayStr(20))
	require.Equal(t, 200, code)
	assert.Empty(t, entries)

	// Inverted range is valid but matches nothing.
	code, entries, _ = fetchBreakdown(t, r, alice, dayStr(0), dayStr(9))
	require.Equal(t, 200, code)
	assert.Empty(t, entries)
}

func TestCommentsDailyBreakdownInvalidDates(t *testing.T) {
	r, _ := setupEnv(t, &stubModerator{}, newRecordingScheduler())
	alice := registerAndLogin(t, r, "alice")

	for _, tc := range []struct{ from, to string }{
		{"not-a-date", dayStr(0)},
		{dayStr(3), "2026-13-40"},
		{"", dayStr(0)},
	} {
		code, _, detail := fetchBreakdown(t, r, alice, tc.from, tc.to)
		require.Equal(t, 400, code, fmt.Sprintf("from=%q to=%q", tc.from, tc.to))
		assert.Contains(t, detail, "Invalid date:")
	}
}
