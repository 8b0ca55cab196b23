package tasker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/db"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/models"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/audit"
)

// Levels 1 and 2 are written by the registration flows; admins own 3 to 5.
const (
	FirstAdminStage = 3
	LastAdminStage  = models.NumLevels
)

const DefaultStageRejectionReason = "Verification was rejected"

var stageNames = map[int]string{
	1: "identity",
	2: "phone",
	3: "facial",
	4: "referral",
	5: "final",
}

// StageName is the human label of a verification level.
func StageName(stage int) string {
	if n, ok := stageNames[stage]; ok {
		return n
	}
	return fmt.Sprintf("level %d", stage)
}

// stageColumn validates stage before anything touches the store.
func stageColumn(stage int) (string, error) {
	if stage < FirstAdminStage || stage > LastAdminStage {
		return "", apperr.InvalidArgument("stage must be between %d and %d, got %d", FirstAdminStage, LastAdminStage, stage)
	}
	col, _ := models.LevelColumn(stage)
	return col, nil
}

// ApproveStage marks verification level stage as Verified. A stage after the
// first admin stage needs the previous level Verified.
func (s *Service) ApproveStage(ctx context.Context, taskerID uuid.UUID, stage int, actorID uuid.UUID) (res *Result, err error) {
	defer func() { observe("approve_stage", res, err) }()

	col, err := stageColumn(stage)
	if err != nil {
		return nil, err
	}

	ctx, cancel := db.Bounded(ctx, s.Timeout)
	defer cancel()

	u, err := s.findTasker(ctx, taskerID)
	if err != nil {
		return nil, err
	}

	current := u.Level(stage)
	if current == models.VerificationVerified {
		return &Result{User: u}, nil
	}

	conds := []cond{statusEq(col, string(current))}
	if stage > FirstAdminStage {
		if prev := u.Level(stage - 1); prev != models.VerificationVerified {
			return nil, apperr.PreconditionFailed("stage %d (%s) must be verified before stage %d (%s)",
				stage-1, StageName(stage-1), stage, StageName(stage))
		}
		prevCol, _ := models.LevelColumn(stage - 1)
		conds = append(conds, eq(prevCol, models.VerificationVerified))
	}

	now := s.now()
	matched, err := s.apply(ctx, u.ID, conds,
		map[string]any{
			col:          models.VerificationVerified,
			"updated_at": now,
		},
		audit.Entry{
			Field:   col,
			From:    string(current),
			To:      string(models.VerificationVerified),
			ActorID: actorID,
			Details: map[string]any{"stage": stage},
		})
	if err != nil {
		return nil, err
	}

	res, err = s.settle(ctx, u, matched,
		func(u *models.User) bool { return u.Level(stage) == models.VerificationVerified },
		func(u *models.User) {
			u.SetLevel(stage, models.VerificationVerified)
			u.UpdatedAt = now
		})
	if err != nil {
		return nil, err
	}
	if res.Changed {
		s.Log.Info("stage approved",
			zap.Stringer("tasker_id", u.ID), zap.Int("stage", stage), zap.Stringer("actor_id", actorID))
		s.notify(ctx, u.ID, "Verification updated",
			fmt.Sprintf("Your %s verification (stage %d) has been approved.", StageName(stage), stage))
	}
	return res, nil
}

// RejectStage marks verification level stage as Rejected. A rejected stage
// can still be approved later, after the tasker resubmits.
func (s *Service) RejectStage(ctx context.Context, taskerID uuid.UUID, stage int, reason string, actorID uuid.UUID) (res *Result, err error) {
	defer func() { observe("reject_stage", res, err) }()

	col, err := stageColumn(stage)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		reason = DefaultStageRejectionReason
	}

	ctx, cancel := db.Bounded(ctx, s.Timeout)
	defer cancel()

	u, err := s.findTasker(ctx, taskerID)
	if err != nil {
		return nil, err
	}

	current := u.Level(stage)
	switch current {
	case models.VerificationRejected:
		return &Result{User: u}, nil
	case models.VerificationVerified:
		return nil, apperr.PreconditionFailed("stage %d is already verified", stage)
	}

	now := s.now()
	matched, err := s.apply(ctx, u.ID,
		[]cond{statusEq(col, string(current))},
		map[string]any{
			col:          models.VerificationRejected,
			"updated_at": now,
		},
		audit.Entry{
			Field:   col,
			From:    string(current),
			To:      string(models.VerificationRejected),
			Reason:  reason,
			ActorID: actorID,
			Details: map[string]any{"stage": stage},
		})
	if err != nil {
		return nil, err
	}

	res, err = s.settle(ctx, u, matched,
		func(u *models.User) bool { return u.Level(stage) == models.VerificationRejected },
		func(u *models.User) {
			u.SetLevel(stage, models.VerificationRejected)
			u.UpdatedAt = now
		})
	if err != nil {
		return nil, err
	}
	if res.Changed {
		s.Log.Info("stage rejected",
			zap.Stringer("tasker_id", u.ID), zap.Int("stage", stage), zap.Stringer("actor_id", actorID))
		s.notify(ctx, u.ID, "Verification updated",
			fmt.Sprintf("Your %s verification (stage %d) was rejected: %s", StageName(stage), stage, reason))
	}
	return res, nil
}

// OverallStatus derives a tasker's verification summary: approved once the
// final level is Verified, rejected when any level is Rejected, otherwise
// pending. It is pure and total over every combination of levels.
func OverallStatus(levels [models.NumLevels]models.VerificationStatus) models.OverallStatus {
	if levels[models.NumLevels-1] == models.VerificationVerified {
		return models.OverallApproved
	}
	for _, l := range levels {
		if l == models.VerificationRejected {
			return models.OverallRejected
		}
	}
	return models.OverallPending
}

// Operational reports whether the tasker may take work: application approved,
// verification complete and the account not suspended.
func Operational(u *models.User) bool {
	return u.IsTasker &&
		!u.IsSuspended &&
		u.TaskerApplicationStatus == models.ApplicationApproved &&
		OverallStatus(u.Levels()) == models.OverallApproved
}
