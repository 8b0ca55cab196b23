package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type EntityType string

const (
	EntityUser       EntityType = "user"
	EntityWithdrawal EntityType = "withdrawal"
)

// StatusEvent is one append-only history row per state transition. It is
// written in the same transaction as the transition itself. Seq numbers the
// events of one entity from 1.
type StatusEvent struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EntityType EntityType     `gorm:"type:varchar(20);not null;index:idx_status_events_entity" json:"entity_type"`
	EntityID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_status_events_entity" json:"entity_id"`
	Seq        int64          `gorm:"not null;default:0;index:idx_status_events_entity" json:"seq"`
	Field      string         `gorm:"type:varchar(60);not null" json:"field"`
	FromValue  string         `gorm:"type:varchar(40)" json:"from"`
	ToValue    string         `gorm:"type:varchar(40);not null" json:"to"`
	Reason     string         `gorm:"type:text" json:"reason,omitempty"`
	ActorID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"actor_id"`
	Details    datatypes.JSON `json:"details,omitempty"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

func (e *StatusEvent) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return
}

// All lists every model owned by this service, in migration order.
func All() []any {
	return []any{
		&User{},
		&Withdrawal{},
		&WalletTransaction{},
		&StatusEvent{},
		&Notification{},
	}
}
