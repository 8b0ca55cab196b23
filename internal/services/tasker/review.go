package tasker

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/db"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/models"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/audit"
)

const DefaultRejectionReason = "Application did not meet requirements"

// ApproveApplication moves a pending tasker application to Approved. The
// application is identified by the tasker's user id.
func (s *Service) ApproveApplication(ctx context.Context, applicationID, actorID uuid.UUID) (res *Result, err error) {
	defer func() { observe("approve_application", res, err) }()

	ctx, cancel := db.Bounded(ctx, s.Timeout)
	defer cancel()

	u, err := s.findTasker(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	switch u.TaskerApplicationStatus {
	case models.ApplicationApproved:
		return &Result{User: u}, nil
	case models.ApplicationPending:
		if u.IsSuspended {
			return nil, apperr.PreconditionFailed("user is suspended, reinstate before approving")
		}
	case models.ApplicationSuspended:
		return nil, apperr.PreconditionFailed("tasker is suspended, reinstate instead of approving")
	default:
		return nil, apperr.PreconditionFailed("application is %s and cannot be approved", displayStatus(u.TaskerApplicationStatus))
	}

	now := s.now()
	matched, err := s.apply(ctx, u.ID,
		[]cond{
			eq("tasker_application_status", models.ApplicationPending),
			eq("is_suspended", false),
		},
		map[string]any{
			"tasker_application_status": models.ApplicationApproved,
			"application_reviewed_by":   actorID,
			"application_reviewed_at":   now,
			"rejection_reason":          "",
			"updated_at":                now,
		},
		audit.Entry{
			Field:   "tasker_application_status",
			From:    string(models.ApplicationPending),
			To:      string(models.ApplicationApproved),
			ActorID: actorID,
		})
	if err != nil {
		return nil, err
	}

	res, err = s.settle(ctx, u, matched,
		func(u *models.User) bool { return u.TaskerApplicationStatus == models.ApplicationApproved },
		func(u *models.User) {
			u.TaskerApplicationStatus = models.ApplicationApproved
			u.ApplicationReviewedBy = &actorID
			u.ApplicationReviewedAt = &now
			u.RejectionReason = ""
			u.UpdatedAt = now
		})
	if err != nil {
		return nil, err
	}
	if res.Changed {
		s.Log.Info("application approved", zap.Stringer("tasker_id", u.ID), zap.Stringer("actor_id", actorID))
		s.notify(ctx, u.ID, "Application approved", "Your tasker application has been approved.")
	}
	return res, nil
}

// RejectApplication moves a pending application to Rejected. Rejected is
// terminal.
func (s *Service) RejectApplication(ctx context.Context, applicationID uuid.UUID, reason string, actorID uuid.UUID) (res *Result, err error) {
	defer func() { observe("reject_application", res, err) }()

	if reason == "" {
		reason = DefaultRejectionReason
	}

	ctx, cancel := db.Bounded(ctx, s.Timeout)
	defer cancel()

	u, err := s.findTasker(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	switch u.TaskerApplicationStatus {
	case models.ApplicationRejected:
		return &Result{User: u}, nil
	case models.ApplicationPending:
	default:
		return nil, apperr.PreconditionFailed("application is %s and cannot be rejected", displayStatus(u.TaskerApplicationStatus))
	}

	now := s.now()
	matched, err := s.apply(ctx, u.ID,
		[]cond{eq("tasker_application_status", models.ApplicationPending)},
		map[string]any{
			"tasker_application_status": models.ApplicationRejected,
			"application_reviewed_by":   actorID,
			"application_reviewed_at":   now,
			"rejection_reason":          reason,
			"updated_at":                now,
		},
		audit.Entry{
			Field:   "tasker_application_status",
			From:    string(models.ApplicationPending),
			To:      string(models.ApplicationRejected),
			Reason:  reason,
			ActorID: actorID,
		})
	if err != nil {
		return nil, err
	}

	res, err = s.settle(ctx, u, matched,
		func(u *models.User) bool { return u.TaskerApplicationStatus == models.ApplicationRejected },
		func(u *models.User) {
			u.TaskerApplicationStatus = models.ApplicationRejected
			u.ApplicationReviewedBy = &actorID
			u.ApplicationReviewedAt = &now
			u.RejectionReason = reason
			u.UpdatedAt = now
		})
	if err != nil {
		return nil, err
	}
	if res.Changed {
		s.Log.Info("application rejected", zap.Stringer("tasker_id", u.ID), zap.Stringer("actor_id", actorID))
		s.notify(ctx, u.ID, "Application rejected", reason)
	}
	return res, nil
}

func displayStatus(s models.ApplicationStatus) string {
	if s == "" {
		return "not set"
	}
	return string(s)
}

