package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dicomeinit/post-comment-app/config"
	"github.com/dicomeinit/post-comment-app/models"
	"github.com/dicomeinit/post-comment-app/utils"
)

// ContentModerator is the moderation gate consulted by every mutating entry point
// that accepts free text. A true result rejects the write before persistence.
type ContentModerator interface {
	IsInappropriate(ctx context.Context, text string) (bool, error)
}

// ReplyScheduler registers and cancels delayed auto-reply tasks.
type ReplyScheduler interface {
	Schedule(postID, userID uint, delay time.Duration)
	Cancel(postID uint) bool
}

// PostController manages CRUD operations for posts and comments, the moderation
// gate in front of them, and auto-reply scheduling.
type PostController struct {
	db        *gorm.DB
	moderator ContentModerator
	sched     ReplyScheduler
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB, moderator ContentModerator, sched ReplyScheduler) *PostController {
	return &PostController{db: db, moderator: moderator, sched: sched}
}

// moderationPassed runs the moderation gate and writes the rejection response when
// the content is flagged. Classifier failures are already resolved to a verdict by
// the moderator's fail policy; the error is only logged here.
func (p *PostController) moderationPassed(ctx *gin.Context, text string) bool {
	flagged, err := p.moderator.IsInappropriate(ctx.Request.Context(), text)
	if err != nil {
		utils.Sugar.Warnf("content moderation degraded: %v", err)
	}
	if flagged {
		utils.Error(ctx, http.StatusBadRequest, 40010, "Content contains inappropriate language")
		return false
	}
	return true
}

type postRequest struct {
	Title             string `json:"title" binding:"required,min=1"`
	Content           string `json:"content" binding:"required"`
	AutoReplyEnabled  bool   `json:"auto_reply_enabled"`
	ReplyDelayMinutes int    `json:"reply_delay_minutes"`
}

// CreatePost persists a new post for the authenticated user. When auto reply is
// enabled a single-fire delayed task is scheduled for it.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	title := utils.Sanitize(strings.TrimSpace(req.Title))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "title cannot be empty")
		return
	}
	content := utils.Sanitize(req.Content)
	if req.ReplyDelayMinutes < 0 {
		utils.Error(ctx, http.StatusBadRequest, 40022, "reply delay cannot be negative")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	if !p.moderationPassed(ctx, content) {
		return
	}

	post := models.Post{
		UserID:            userID,
		Title:             title,
		Content:           content,
		AutoReplyEnabled:  req.AutoReplyEnabled,
		ReplyDelayMinutes: req.ReplyDelayMinutes,
	}
	if err := p.db.Create(&post).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create post")
		return
	}

	if post.AutoReplyEnabled {
		p.sched.Schedule(post.ID, userID, time.Duration(post.ReplyDelayMinutes)*time.Minute)
	}

	utils.InvalidateByPrefix("cache:user:" + strconv.Itoa(int(userID)) + ":posts")

	utils.Success(ctx, gin.H{"post": post})
}

// ListPosts returns the authenticated caller's own posts, newest first.
func (p *PostController) ListPosts(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	cacheKey := "cache:user:" + strconv.Itoa(int(userID)) + ":posts:page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var posts []models.Post
	var total int64
	q := p.db.Where("user_id = ?", userID).Preload("User").Order("created_at DESC")
	if err := q.Model(&models.Post{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to count posts")
		return
	}
	if err := q.Offset((page - 1) * pageSize).Limit(pageSize).Find(&posts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to list posts")
		return
	}

	payload := gin.H{
		"items": posts,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
	utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, time.Hour)
	utils.Success(ctx, payload)
}

// GetPost returns a single post with its visible comments.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID := ctx.Param("id")

	if b, ok := utils.CacheGetBytes("cache:post:detail:" + postID); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var post models.Post
	if err := p.db.Preload("User").First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load post")
		return
	}

	var comments []models.Comment
	if err := p.db.Where("post_id = ? AND blocked = ?", post.ID, false).
		Preload("User").Order("id ASC").Find(&comments).Error; err != nil {
		utils.Sugar.Warnf("failed to load comments for post %d: %v", post.ID, err)
	} else {
		post.Comments = comments
	}

	payload := gin.H{"post": post}
	utils.CacheSetJSON("cache:post:detail:"+postID, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, time.Hour)
	utils.Success(ctx, payload)
}

// UpdatePost allows the author to update their post. The moderation gate runs
// again on the new content, and the auto-reply task is rescheduled or cancelled to
// match the updated settings.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid request payload")
		return
	}

	title := utils.Sanitize(strings.TrimSpace(req.Title))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40025, "title cannot be empty")
		return
	}
	content := utils.Sanitize(req.Content)
	if req.ReplyDelayMinutes < 0 {
		utils.Error(ctx, http.StatusBadRequest, 40026, "reply delay cannot be negative")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "unauthorized")
		return
	}

	postID := ctx.Param("id")
	var post models.Post
	if err := p.db.Where("user_id = ?", userID).First(&post, "id = ?", postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40403, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to load post")
		return
	}

	if !p.moderationPassed(ctx, content) {
		return
	}

	post.Title = title
	post.Content = content
	post.AutoReplyEnabled = req.AutoReplyEnabled
	post.ReplyDelayMinutes = req.ReplyDelayMinutes
	if err := p.db.Save(&post).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to update post")
		return
	}

	if post.AutoReplyEnabled {
		p.sched.Schedule(post.ID, userID, time.Duration(post.ReplyDelayMinutes)*time.Minute)
	} else {
		p.sched.Cancel(post.ID)
	}

	utils.InvalidateByPrefix("cache:post:detail:" + postID)
	utils.InvalidateByPrefix("cache:user:" + strconv.Itoa(int(userID)) + ":posts")

	utils.Success(ctx, gin.H{"post": post})
}

// DeletePost allows the author to delete their post, cancelling any pending
// auto-reply task and cascading comment deletion.
func (p *PostController) DeletePost(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40112, "unauthorized")
		return
	}

	postID := ctx.Param("id")
	var post models.Post
	if err := p.db.Where("user_id = ?", userID).First(&post, "id = ?", postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40404, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to load post")
		return
	}

	p.sched.Cancel(post.ID)

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to delete post")
		return
	}

	utils.InvalidateByPrefix("cache:post:detail:" + postID)
	utils.InvalidateByPrefix("cache:user:" + strconv.Itoa(int(userID)) + ":posts")

	utils.Success(ctx, gin.H{"status": "OK"})
}

// CreateComment runs the moderation gate and persists a comment on the post.
// Depending on configuration, flagged content is either discarded or stored with
// blocked=true; both paths answer 400.
func (p *PostController) CreateComment(ctx *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40027, "invalid request payload")
		return
	}

	content := utils.Sanitize(req.Content)
	if content == "" {
		utils.Error(ctx, http.StatusBadRequest, 40028, "content cannot be empty")
		return
	}

	postID := ctx.Param("id")
	var post models.Post
	if err := p.db.First(&post, "id = ?", postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40402, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50029, "failed to load post")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	flagged, err := p.moderator.IsInappropriate(ctx.Request.Context(), content)
	if err != nil {
		utils.Sugar.Warnf("content moderation degraded: %v", err)
	}
	if flagged {
		if config.Get().PersistBlocked {
			blockedComment := models.Comment{
				PostID:  post.ID,
				UserID:  userID,
				Content: content,
				Blocked: true,
			}
			if err := p.db.Create(&blockedComment).Error; err != nil {
				utils.Sugar.Warnf("failed to persist blocked comment: %v", err)
			}
		}
		utils.Error(ctx, http.StatusBadRequest, 40010, "Content contains inappropriate language")
		return
	}

	comment := models.Comment{
		PostID:  post.ID,
		UserID:  userID,
		Content: content,
	}
	if err := p.db.Create(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to create comment")
		return
	}
	if err := p.db.Preload("User").First(&comment, comment.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load comment")
		return
	}

	utils.InvalidateByPrefix("cache:post:detail:" + postID)

	utils.Success(ctx, gin.H{"comment": comment})
}

// ListComments returns a post's visible comments. The listing is post-scoped and
// not restricted to the caller's own comments.
func (p *PostController) ListComments(ctx *gin.Context) {
	postID := ctx.Param("id")
	var post models.Post
	if err := p.db.First(&post, "id = ?", postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40402, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to load post")
		return
	}

	var comments []models.Comment
	if err := p.db.Where("post_id = ? AND blocked = ?", post.ID, false).
		Preload("User").Order("id ASC").Find(&comments).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to list comments")
		return
	}

	utils.Success(ctx, gin.H{"items": comments})
}

// DeleteComment allows the comment's author to delete it.
func (p *PostController) DeleteComment(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "unauthorized")
		return
	}

	postID := ctx.Param("id")
	commentID := ctx.Param("commentId")

	var comment models.Comment
	if err := p.db.Where("post_id = ? AND user_id = ?", postID, userID).
		First(&comment, "id = ?", commentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40420, "comment not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50034, "failed to load comment")
		return
	}

	if err := p.db.Delete(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50035, "failed to delete comment")
		return
	}

	utils.InvalidateByPrefix("cache:post:detail:" + postID)

	utils.Success(ctx, gin.H{"status": "OK"})
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}
