// Package withdrawal reviews users' cash-out requests. Approval debits the
// wallet and books the payout on the payment rail in the same transaction as
// the status change; rejection is a status change that keeps the record.
package withdrawal

import (
	"context"
	"errors"
	"fmt"
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
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/payout"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/wallet"
)

const DefaultRejectionReason = "Withdrawal request rejected"

// errMissed aborts a transaction whose conditional update matched nothing.
var errMissed = errors.New("withdrawal no longer pending")

type Service struct {
	DB       *gorm.DB
	Wallet   *wallet.WalletService
	Rail     payout.Rail
	Notifier notify.StatusNotifier
	Timeout  time.Duration
	Log      *zap.Logger
	Now      func() time.Time
}

func NewService(gdb *gorm.DB, rail payout.Rail, notifier notify.StatusNotifier, timeout time.Duration, log *zap.Logger) *Service {
	return &Service{
		DB:       gdb,
		Wallet:   wallet.NewWalletService(),
		Rail:     rail,
		Notifier: notifier,
		Timeout:  timeout,
		Log:      log.Named("withdrawal"),
		Now:      time.Now,
	}
}

// Result is the withdrawal after the call. Changed is false when it was
// already in the requested state.
type Result struct {
	Withdrawal *models.Withdrawal
	Changed    bool
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := s.DB.WithContext(ctx).Preload("User").First(&w, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("withdrawal not found")
		}
		return nil, db.Classify(err)
	}
	return &w, nil
}

// Get returns one withdrawal with its owner.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	ctx, cancel := db.Bounded(ctx, s.Timeout)
	defer cancel()
	return s.find(ctx, id)
}

type ListFilter struct {
	Status models.WithdrawalStatus
	UserID *uuid.UUID
	Page   int
	Limit  int
}

// List returns a page of withdrawals, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Withdrawal, int64, error) {
	ctx, cancel := db.Bounded(ctx, s.Timeout)
	defer cancel()

	q := s.DB.WithContext(ctx).Model(&models.Withdrawal{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, db.Classify(err)
	}

	var items []models.Withdrawal
	err := q.Preload("User").
		Order("created_at DESC").
		Limit(f.Limit).
		Offset((f.Page - 1) * f.Limit).
		Find(&items).Error
	if err != nil {
		return nil, 0, db.Classify(err)
	}
	return items, total, nil
}

// Approve pays out a pending withdrawal. The status change, wallet debit,
// rail booking and history row commit together or not at all; a second
// approval racing this one sees zero rows and never reaches the rail.
func (s *Service) Approve(ctx context.Context, id, actorID uuid.UUID) (res *Result, err error) {
	defer func() { observe("approve_withdrawal", res, err) }()

	ctx, cancel := db.Bounded(ctx, s.Timeout)
	defer cancel()

	w, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	switch w.Status {
	case models.WithdrawalApproved:
		return &Result{Withdrawal: w}, nil
	case models.WithdrawalRejected:
		return nil, apperr.PreconditionFailed("withdrawal was rejected and cannot be approved")
	}

	now := s.now()
	var ref string
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upd := tx.Model(&models.Withdrawal{}).
			Where("id = ? AND status = ?", w.ID, models.WithdrawalPending).
			Updates(map[string]any{
				"status":      models.WithdrawalApproved,
				"approved_by": actorID,
				"approved_at": now,
				"updated_at":  now,
			})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return errMissed
		}

		if err := s.Wallet.Debit(tx, w.UserID, w.Amount, w.ID, fmt.Sprintf("Withdrawal %s", w.ID)); err != nil {
			return err
		}

		receipt, err := s.Rail.Disburse(ctx, payout.Disbursement{
			WithdrawalID:  w.ID,
			UserID:        w.UserID,
			Amount:        w.Amount,
			BankName:      w.BankName,
			AccountName:   w.AccountName,
			AccountNumber: w.AccountNumber,
		})
		if err != nil {
			return err
		}
		ref = receipt.Reference
		if err := tx.Model(&models.Withdrawal{}).Where("id = ?", w.ID).
			Update("reference", ref).Error; err != nil {
			return err
		}

		return audit.Record(tx, audit.Entry{
			EntityType: models.EntityWithdrawal,
			EntityID:   w.ID,
			Field:      "status",
			From:       string(models.WithdrawalPending),
			To:         string(models.WithdrawalApproved),
			ActorID:    actorID,
			Details: map[string]any{
				"amount":    w.Amount,
				"reference": receipt.Reference,
			},
		})
	})
	if errors.Is(err, errMissed) {
		return s.settle(ctx, w.ID, models.WithdrawalApproved)
	}
	if err != nil {
		return nil, db.Classify(err)
	}

	w = s.committed(ctx, w, func(w *models.Withdrawal) {
		w.Status = models.WithdrawalApproved
		w.ApprovedBy = &actorID
		w.ApprovedAt = &now
		w.Reference = &ref
		w.UpdatedAt = now
	})
	s.Log.Info("withdrawal approved",
		zap.Stringer("withdrawal_id", w.ID),
		zap.Stringer("user_id", w.UserID),
		zap.Int64("amount", w.Amount),
		zap.String("reference", ref),
		zap.Stringer("actor_id", actorID))
	s.notify(ctx, w.UserID, "Withdrawal approved",
		fmt.Sprintf("Your withdrawal of %d has been approved. Reference: %s", w.Amount, ref))
	return &Result{Withdrawal: w, Changed: true}, nil
}

// Reject closes a pending withdrawal with a reason. The record is kept.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason string, actorID uuid.UUID) (res *Result, err error) {
	defer func() { observe("reject_withdrawal", res, err) }()

	if reason == "" {
		reason = DefaultRejectionReason
	}

	ctx, cancel := db.Bounded(ctx, s.Timeout)
	defer cancel()

	w, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	switch w.Status {
	case models.WithdrawalRejected:
		return &Result{Withdrawal: w}, nil
	case models.WithdrawalApproved:
		return nil, apperr.PreconditionFailed("withdrawal was already approved and cannot be rejected")
	}

	now := s.now()
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upd := tx.Model(&models.Withdrawal{}).
			Where("id = ? AND status = ?", w.ID, models.WithdrawalPending).
			Updates(map[string]any{
				"status":           models.WithdrawalRejected,
				"rejected_by":      actorID,
				"rejected_at":      now,
				"rejection_reason": reason,
				"updated_at":       now,
			})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return errMissed
		}
		return audit.Record(tx, audit.Entry{
			EntityType: models.EntityWithdrawal,
			EntityID:   w.ID,
			Field:      "status",
			From:       string(models.WithdrawalPending),
			To:         string(models.WithdrawalRejected),
			Reason:     reason,
			ActorID:    actorID,
			Details:    map[string]any{"amount": w.Amount},
		})
	})
	if errors.Is(err, errMissed) {
		return s.settle(ctx, w.ID, models.WithdrawalRejected)
	}
	if err != nil {
		return nil, db.Classify(err)
	}

	w = s.committed(ctx, w, func(w *models.Withdrawal) {
		w.Status = models.WithdrawalRejected
		w.RejectedBy = &actorID
		w.RejectedAt = &now
		w.RejectionReason = reason
		w.UpdatedAt = now
	})
	s.Log.Info("withdrawal rejected",
		zap.Stringer("withdrawal_id", w.ID),
		zap.Stringer("user_id", w.UserID),
		zap.Stringer("actor_id", actorID))
	s.notify(ctx, w.UserID, "Withdrawal rejected", reason)
	return &Result{Withdrawal: w, Changed: true}, nil
}

// committed returns the record after a successful commit. The change is
// durable at this point, so a failed re-read falls back to the observed
// record with the committed updates applied.
func (s *Service) committed(ctx context.Context, observed *models.Withdrawal, applied func(*models.Withdrawal)) *models.Withdrawal {
	ctx, cancel := db.Detached(ctx, s.Timeout)
	defer cancel()

	w, err := s.find(ctx, observed.ID)
	if err == nil {
		return w
	}
	s.Log.Warn("reload committed withdrawal", zap.Stringer("withdrawal_id", observed.ID), zap.Error(err))
	cp := *observed
	applied(&cp)
	return &cp
}

// settle handles a lost race: a no-op when the winner reached the same
// status, Conflict otherwise.
func (s *Service) settle(ctx context.Context, id uuid.UUID, target models.WithdrawalStatus) (*Result, error) {
	w, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.Status == target {
		return &Result{Withdrawal: w}, nil
	}
	return nil, apperr.Conflict("withdrawal is now %s, reload and retry", w.Status)
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
