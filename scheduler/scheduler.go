// Package scheduler runs delayed auto-reply jobs for posts. Tasks are in-process,
// single-fire and cancellable; they do not survive a restart and there is no durable
// queue behind them.
package scheduler

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dicomeinit/post-comment-app/models"
	"github.com/dicomeinit/post-comment-app/utils"
)

// ReplyGenerator produces the reply text for one comment. The ai package provides
// the production implementation; tests inject fakes.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, postContent, commentContent string) (string, error)
}

type task struct {
	id    string
	timer *time.Timer
}

// Scheduler keeps at most one pending auto-reply task per post.
type Scheduler struct {
	db         *gorm.DB
	replier    ReplyGenerator
	log        *zap.SugaredLogger
	genTimeout time.Duration

	mu    sync.Mutex
	tasks map[uint]*task
}

// New creates a Scheduler writing replies through the given DB handle.
func New(db *gorm.DB, replier ReplyGenerator, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		db:         db,
		replier:    replier,
		log:        log,
		genTimeout: 60 * time.Second,
		tasks:      map[uint]*task{},
	}
}

// Schedule registers a single-fire auto-reply task for the post, replacing any task
// already pending for it. The job fires after delay (immediately when zero) and is
// attributed to userID, the user who created or updated the post.
func (s *Scheduler) Schedule(postID, userID uint, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.tasks[postID]; ok {
		prev.timer.Stop()
	}

	t := &task{id: uuid.NewString()}
	t.timer = time.AfterFunc(delay, func() {
		s.fire(t.id, postID, userID)
	})
	s.tasks[postID] = t

	if s.log != nil {
		s.log.Infow("auto-reply task scheduled",
			"task_id", t.id, "post_id", postID, "user_id", userID, "delay", delay)
	}
}

// Cancel stops the pending task for the post, if any. It reports whether a task was
// pending. A task that already started running is not interrupted.
func (s *Scheduler) Cancel(postID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[postID]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(s.tasks, postID)

	if s.log != nil {
		s.log.Infow("auto-reply task cancelled", "task_id", t.id, "post_id", postID)
	}
	return true
}

// Pending reports whether a task is currently registered for the post.
func (s *Scheduler) Pending(postID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[postID]
	return ok
}

// fire runs on the timer goroutine. It claims the task, snapshot-reads the post and
// its comments, and generates one reply per comment with per-comment error
// isolation: a failed generation is logged and skipped, never aborts the batch.
func (s *Scheduler) fire(taskID string, postID, userID uint) {
	s.mu.Lock()
	current, ok := s.tasks[postID]
	if !ok || current.id != taskID {
		// cancelled or replaced between timer expiry and now
		s.mu.Unlock()
		return
	}
	delete(s.tasks, postID)
	s.mu.Unlock()

	var post models.Post
	if err := s.db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Infow("auto-reply skipped, post deleted", "task_id", taskID, "post_id", postID)
		} else {
			s.log.Errorw("auto-reply failed to load post", "task_id", taskID, "post_id", postID, "error", err)
		}
		return
	}

	// Snapshot every comment present now, including ones added during the delay
	// window. Blocked rows never receive replies.
	var comments []models.Comment
	if err := s.db.Where("post_id = ? AND blocked = ?", postID, false).
		Order("id ASC").Find(&comments).Error; err != nil {
		s.log.Errorw("auto-reply failed to load comments", "task_id", taskID, "post_id", postID, "error", err)
		return
	}

	replied, failed := 0, 0
	for _, c := range comments {
		ctx, cancel := context.WithTimeout(context.Background(), s.genTimeout)
		replyText, err := s.replier.GenerateReply(ctx, post.Content, c.Content)
		cancel()
		if err != nil {
			failed++
			s.log.Warnw("auto-reply generation failed",
				"task_id", taskID, "post_id", postID, "comment_id", c.ID, "error", err)
			continue
		}

		reply := models.Comment{
			PostID:      postID,
			UserID:      userID,
			Content:     replyText,
			IsAutoReply: true,
		}
		if err := s.db.Create(&reply).Error; err != nil {
			failed++
			s.log.Warnw("auto-reply persist failed",
				"task_id", taskID, "post_id", postID, "comment_id", c.ID, "error", err)
			continue
		}
		replied++
	}

	if replied > 0 {
		utils.InvalidateByPrefix("cache:post:detail:" + strconv.Itoa(int(postID)))
	}

	s.log.Infow("auto-reply task finished",
		"task_id", taskID, "post_id", postID, "replied", replied, "failed", failed)
}
