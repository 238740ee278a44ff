package models

import "time"

// Comment represents a reply on a post. Blocked is write-once at creation time and
// only ever true when the moderation policy persists flagged content. IsAutoReply
// marks system-generated replies, which still belong to the requesting user.
type Comment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PostID      uint      `gorm:"index;not null" json:"post_id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	Blocked     bool      `gorm:"not null;default:false" json:"blocked"`
	IsAutoReply bool      `gorm:"not null;default:false" json:"is_auto_reply"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	User        User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
}
