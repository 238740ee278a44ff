package models

import "time"

// Post represents a blog entry created by a user. CreatedAt is immutable once set;
// the reply delay is meaningful only while auto reply is enabled.
type Post struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"index;not null" json:"user_id"`
	Title             string    `gorm:"size:255;not null" json:"title"`
	Content           string    `gorm:"type:text;not null" json:"content"`
	AutoReplyEnabled  bool      `gorm:"not null;default:false" json:"auto_reply_enabled"`
	ReplyDelayMinutes int       `gorm:"not null;default:0" json:"reply_delay_minutes"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	User              User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Comments          []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments,omitempty"`
}
