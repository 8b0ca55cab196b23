package tasker

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/db"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/models"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/audit"
)

const DefaultSuspensionReason = "Suspended by administrator"

// Suspend blocks a user's account. Role is never touched. An approved tasker
// additionally has the application moved to Suspended; the status it held is
// kept so Reinstate can restore it exactly.
func (s *Service) Suspend(ctx context.Context, userID uuid.UUID, reason string, actorID uuid.UUID) (res *Result, err error) {
	defer func() { observe("suspend_user", res, err) }()

	if reason == "" {
		reason = DefaultSuspensionReason
	}

	ctx, cancel := db.Bounded(ctx, s.Timeout)
	defer cancel()

	u, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.IsSuspended {
		return &Result{User: u}, nil
	}

	prior := u.TaskerApplicationStatus
	now := s.now()
	updates := map[string]any{
		"is_suspended":           true,
		"suspension_reason":      reason,
		"suspended_by":           actorID,
		"suspended_at":           now,
		"suspended_prior_status": prior,
		"updated_at":             now,
	}
	next := prior
	if u.IsTasker && prior == models.ApplicationApproved {
		next = models.ApplicationSuspended
		updates["tasker_application_status"] = next
	}

	matched, err := s.apply(ctx, u.ID,
		[]cond{
			eq("is_suspended", false),
			statusEq("tasker_application_status", string(prior)),
		},
		updates,
		audit.Entry{
			Field:   "is_suspended",
			From:    "false",
			To:      "true",
			Reason:  reason,
			ActorID: actorID,
			Details: map[string]any{
				"role":                  u.Role,
				"application_status":    prior,
				"application_status_to": next,
			},
		})
	if err != nil {
		return nil, err
	}

	res, err = s.settle(ctx, u, matched,
		func(u *models.User) bool { return u.IsSuspended },
		func(u *models.User) {
			u.IsSuspended = true
			u.SuspensionReason = reason
			u.SuspendedBy = &actorID
			u.SuspendedAt = &now
			u.SuspendedPriorStatus = prior
			u.TaskerApplicationStatus = next
			u.UpdatedAt = now
		})
	if err != nil {
		return nil, err
	}
	if res.Changed {
		s.Log.Info("user suspended", zap.Stringer("user_id", u.ID), zap.Stringer("actor_id", actorID))
		s.notify(ctx, u.ID, "Account suspended", reason)
	}
	return res, nil
}

// Reinstate lifts a suspension and restores the application status held
// before it.
func (s *Service) Reinstate(ctx context.Context, userID uuid.UUID, actorID uuid.UUID) (res *Result, err error) {
	defer func() { observe("reinstate_user", res, err) }()

	ctx, cancel := db.Bounded(ctx, s.Timeout)
	defer cancel()

	u, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	appSuspended := u.IsTasker && u.TaskerApplicationStatus == models.ApplicationSuspended
	if !u.IsSuspended && !appSuspended {
		return &Result{User: u}, nil
	}

	now := s.now()
	updates := map[string]any{
		"is_suspended":           false,
		"suspension_reason":      "",
		"suspended_by":           nil,
		"suspended_at":           nil,
		"suspended_prior_status": "",
		"updated_at":             now,
	}
	restored := u.TaskerApplicationStatus
	if appSuspended {
		// Rows suspended before the prior status was kept can only have come
		// from Approved.
		restored = u.SuspendedPriorStatus
		if restored == "" || restored == models.ApplicationSuspended {
			restored = models.ApplicationApproved
		}
		updates["tasker_application_status"] = restored
	}

	matched, err := s.apply(ctx, u.ID,
		[]cond{
			eq("is_suspended", u.IsSuspended),
			statusEq("tasker_application_status", string(u.TaskerApplicationStatus)),
		},
		updates,
		audit.Entry{
			Field:   "is_suspended",
			From:    "true",
			To:      "false",
			ActorID: actorID,
			Details: map[string]any{
				"application_status":    u.TaskerApplicationStatus,
				"application_status_to": restored,
			},
		})
	if err != nil {
		return nil, err
	}

	res, err = s.settle(ctx, u, matched,
		func(u *models.User) bool {
			return !u.IsSuspended && u.TaskerApplicationStatus != models.ApplicationSuspended
		},
		func(u *models.User) {
			u.IsSuspended = false
			u.SuspensionReason = ""
			u.SuspendedBy = nil
			u.SuspendedAt = nil
			u.SuspendedPriorStatus = ""
			u.TaskerApplicationStatus = restored
			u.UpdatedAt = now
		})
	if err != nil {
		return nil, err
	}
	if res.Changed {
		s.Log.Info("user reinstated", zap.Stringer("user_id", u.ID), zap.Stringer("actor_id", actorID))
		s.notify(ctx, u.ID, "Account reinstated", "Your account has been reinstated.")
	}
	return res, nil
}
