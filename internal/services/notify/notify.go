// Package notify persists user notifications and pushes them to connected
// clients. Delivery is a side channel: it never runs inside a status
// transaction and a failed push never fails the caller.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/db"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/models"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/realtime"
)

// Publisher fans a payload out to every API instance.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisPublisher publishes on the per-user Redis channel.
type RedisPublisher struct {
	RDB *redis.Client
}

func (p RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.RDB.Publish(ctx, channel, payload).Err()
}

// HubPublisher delivers straight to this instance's hub. Used when Redis is
// not configured.
type HubPublisher struct {
	Hub *realtime.Hub
}

func (p HubPublisher) Publish(_ context.Context, channel string, payload []byte) error {
	id, err := uuid.Parse(channel[len(realtime.ChannelPrefix):])
	if err != nil {
		return err
	}
	p.Hub.SendRaw(id, payload)
	return nil
}

// StatusNotifier is what the transition services depend on.
type StatusNotifier interface {
	StatusChanged(ctx context.Context, userID uuid.UUID, title, body string)
}

type Service struct {
	DB        *gorm.DB
	Publisher Publisher
	Timeout   time.Duration
	Log       *zap.Logger
}

func NewService(gdb *gorm.DB, pub Publisher, timeout time.Duration, log *zap.Logger) *Service {
	return &Service{DB: gdb, Publisher: pub, Timeout: timeout, Log: log.Named("notify")}
}

// Event is the JSON pushed to clients.
type Event struct {
	Type         string              `json:"type"`
	Notification models.Notification `json:"notification"`
}

// Send stores an admin-authored message for userID and pushes it.
func (s *Service) Send(ctx context.Context, userID uuid.UUID, title, body string, senderID uuid.UUID) (*models.Notification, error) {
	ctx, cancel := db.Bounded(ctx, s.Timeout)
	defer cancel()

	var exists int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&exists).Error; err != nil {
		return nil, db.Classify(err)
	}
	if exists == 0 {
		return nil, apperr.NotFound("user not found")
	}

	n := models.Notification{
		UserID:   userID,
		Kind:     models.NotificationMessage,
		Title:    title,
		Body:     body,
		SenderID: &senderID,
	}
	if err := s.DB.WithContext(ctx).Create(&n).Error; err != nil {
		return nil, db.Classify(err)
	}

	s.push(ctx, n)
	return &n, nil
}

// StatusChanged records and pushes a status-change notice. Errors are logged
// only.
func (s *Service) StatusChanged(ctx context.Context, userID uuid.UUID, title, body string) {
	ctx, cancel := db.Detached(ctx, s.Timeout)
	defer cancel()

	n := models.Notification{
		UserID: userID,
		Kind:   models.NotificationStatusChange,
		Title:  title,
		Body:   body,
	}
	if err := s.DB.WithContext(ctx).Create(&n).Error; err != nil {
		s.Log.Warn("store status notification", zap.Stringer("user_id", userID), zap.Error(err))
		return
	}
	s.push(ctx, n)
}

func (s *Service) push(ctx context.Context, n models.Notification) {
	if s.Publisher == nil {
		return
	}
	payload, err := json.Marshal(Event{Type: string(n.Kind), Notification: n})
	if err != nil {
		s.Log.Warn("marshal notification", zap.Error(err))
		return
	}
	if err := s.Publisher.Publish(ctx, realtime.UserChannel(n.UserID), payload); err != nil {
		s.Log.Warn("publish notification", zap.Stringer("user_id", n.UserID), zap.Error(err))
	}
}

// List returns a page of userID's notifications, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Notification, int64, error) {
	ctx, cancel := db.Bounded(ctx, s.Timeout)
	defer cancel()

	q := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ?", userID).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, db.Classify(err)
	}

	var items []models.Notification
	if err := q.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&items).Error; err != nil {
		return nil, 0, db.Classify(err)
	}
	return items, total, nil
}
