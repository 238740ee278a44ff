package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dicomeinit/post-comment-app/models"
	"github.com/dicomeinit/post-comment-app/utils"
)

// AnalyticsController aggregates comment activity per calendar day.
type AnalyticsController struct {
	db *gorm.DB
}

// NewAnalyticsController creates a new AnalyticsController instance.
func NewAnalyticsController(db *gorm.DB) *AnalyticsController {
	return &AnalyticsController{db: db}
}

type dailyBucket struct {
	Day             string `json:"day"`
	TotalComments   int64  `json:"total_comments"`
	BlockedComments int64  `json:"blocked_comments"`
}

// CommentsDailyBreakdown groups comments by the calendar day of their creation
// timestamp within the inclusive date_from/date_to range and reports total and
// blocked counts per day, ascending. An empty range yields an empty list.
func (a *AnalyticsController) CommentsDailyBreakdown(ctx *gin.Context) {
	dateFrom, err := parseDate(ctx.Query("date_from"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "Invalid date: "+ctx.Query("date_from"))
		return
	}
	dateTo, err := parseDate(ctx.Query("date_to"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40041, "Invalid date: "+ctx.Query("date_to"))
		return
	}

	buckets := make([]dailyBucket, 0)
	err = a.db.Model(&models.Comment{}).
		Select("CAST(DATE(created_at) AS CHAR) AS day, COUNT(id) AS total_comments, SUM(CASE WHEN blocked THEN 1 ELSE 0 END) AS blocked_comments").
		Where("created_at >= ? AND created_at < ?", dateFrom, dateTo.AddDate(0, 0, 1)).
		Group("day").
		Order("day ASC").
		Scan(&buckets).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to aggregate comments")
		return
	}

	utils.Success(ctx, gin.H{"daily_breakdown": buckets})
}

// parseDate validates a YYYY-MM-DD date string into a local calendar date.
func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.Local)
}
