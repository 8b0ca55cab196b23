// Package tasker implements the admin-side transitions on a user record:
// application review, staged verification and suspension.
//
// Every transition follows the same shape. A read classifies the request
// (missing, already done, not allowed); the write is a single conditional
// UPDATE on the values that read observed, committed together with its
// history row. A write that matches no row means another admin got there
// first: the record is read again and the call either becomes a no-op or
// fails with Conflict.
package tasker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/db"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/metrics"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/models"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/audit"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/notify"
)

type Service struct {
	DB       *gorm.DB
	Notifier notify.StatusNotifier
	Timeout  time.Duration
	Log      *zap.Logger
	Now      func() time.Time
}

func NewService(gdb *gorm.DB, notifier notify.StatusNotifier, timeout time.Duration, log *zap.Logger) *Service {
	return &Service{
		DB:       gdb,
		Notifier: notifier,
		Timeout:  timeout,
		Log:      log.Named("tasker"),
		Now:      time.Now,
	}
}

// Result is the record after the call. Changed is false when the record was
// already in the requested state.
type Result struct {
	User    *models.User
	Changed bool
}

type cond struct {
	query string
	args  []any
}

func eq(column string, v any) cond {
	return cond{query: column + " = ?", args: []any{v}}
}

// statusEq matches an observed status, treating empty and NULL alike.
func statusEq(column string, v string) cond {
	if v == "" {
		return cond{query: "(" + column + " IS NULL OR " + column + " = '')"}
	}
	return eq(column, v)
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Service) findUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, db.Classify(err)
	}
	return &u, nil
}

func (s *Service) findTasker(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.findUser(ctx, id)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("tasker not found")
		}
		return nil, err
	}
	if !u.IsTasker {
		return nil, apperr.NotFound("tasker not found")
	}
	return u, nil
}

// apply runs one conditional update on the user row plus its history entry.
// It reports false when the conditions matched nothing.
func (s *Service) apply(ctx context.Context, id uuid.UUID, conds []cond, updates map[string]any, entry audit.Entry) (bool, error) {
	matched := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.User{}).Where("id = ?", id)
		for _, c := range conds {
			q = q.Where(c.query, c.args...)
		}
		res := q.Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		matched = true
		entry.EntityType = models.EntityUser
		entry.EntityID = id
		return audit.Record(tx, entry)
	})
	if err != nil {
		return false, db.Classify(err)
	}
	return matched, nil
}

// settle finishes a transition. After a commit the change is durable, so the
// record is re-read under a fresh deadline and, if that read fails, rebuilt
// from the observed one with applied. On a miss it re-reads and turns the
// call into a no-op when another writer already reached the target.
func (s *Service) settle(ctx context.Context, observed *models.User, matched bool, reached func(*models.User) bool, applied func(*models.User)) (*Result, error) {
	if matched {
		return &Result{User: s.committed(ctx, observed, applied), Changed: true}, nil
	}
	u, err := s.findUser(ctx, observed.ID)
	if err != nil {
		return nil, err
	}
	if reached(u) {
		return &Result{User: u}, nil
	}
	return nil, apperr.Conflict("user was modified concurrently, reload and retry")
}

func (s *Service) committed(ctx context.Context, observed *models.User, applied func(*models.User)) *models.User {
	ctx, cancel := db.Detached(ctx, s.Timeout)
	defer cancel()

	u, err := s.findUser(ctx, observed.ID)
	if err == nil {
		return u
	}
	s.Log.Warn("reload committed user", zap.Stringer("user_id", observed.ID), zap.Error(err))
	cp := *observed
	applied(&cp)
	return &cp
}

func (s *Service) notify(ctx context.Context, userID uuid.UUID, title, body string) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.StatusChanged(ctx, userID, title, body)
}

func observe(operation string, res *Result, err error) {
	switch {
	case err != nil:
		metrics.ObserveTransition(operation, apperr.KindOf(err).Code())
	case res.Changed:
		metrics.ObserveTransition(operation, "changed")
	default:
		metrics.ObserveTransition(operation, "noop")
	}
}
