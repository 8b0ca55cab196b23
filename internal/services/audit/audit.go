// Package audit writes and reads the append-only status history.
package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/db"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/models"
)

// Entry describes one transition. Details is marshalled into the JSON column.
type Entry struct {
	EntityType models.EntityType
	EntityID   uuid.UUID
	Field      string
	From       string
	To         string
	Reason     string
	ActorID    uuid.UUID
	Details    map[string]any
}

// Record appends e using tx, which must be the transaction that performed the
// transition. The conditional update earlier in tx holds the entity's row, so
// the next sequence number cannot be taken twice.
func Record(tx *gorm.DB, e Entry) error {
	var last int64
	err := tx.Raw("SELECT COALESCE(MAX(seq), 0) FROM status_events WHERE entity_type = ? AND entity_id = ?",
		e.EntityType, e.EntityID).Scan(&last).Error
	if err != nil {
		return err
	}

	ev := models.StatusEvent{
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Field:      e.Field,
		FromValue:  e.From,
		ToValue:    e.To,
		Reason:     e.Reason,
		ActorID:    e.ActorID,
		Seq:        last + 1,
	}
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return err
		}
		ev.Details = datatypes.JSON(b)
	}
	return tx.Create(&ev).Error
}

// List returns the history of one entity, oldest first.
func List(ctx context.Context, gdb *gorm.DB, entity models.EntityType, id uuid.UUID) ([]models.StatusEvent, error) {
	var events []models.StatusEvent
	err := gdb.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entity, id).
		Order("seq ASC, created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, db.Classify(err)
	}
	return events, nil
}
