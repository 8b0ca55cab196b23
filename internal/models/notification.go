package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationKind string

const (
	NotificationMessage      NotificationKind = "message"
	NotificationStatusChange NotificationKind = "status_change"
)

// Notification is a message delivered to a user, either written by an admin
// or emitted after a status transition.
type Notification struct {
	ID       uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID        `gorm:"type:uuid;index;not null" json:"user_id"`
	Kind     NotificationKind `gorm:"type:varchar(20);not null;default:'message'" json:"kind"`
	Title    string           `gorm:"type:varchar(200)" json:"title"`
	Body     string           `gorm:"type:text" json:"body"`
	SenderID *uuid.UUID       `gorm:"type:uuid" json:"sender_id,omitempty"`
	IsRead   bool             `gorm:"default:false" json:"is_read"`

	CreatedAt time.Time `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}
