// Package readmodel builds the user views served by every admin listing and
// detail endpoint, so the derived fields are computed in one place.
package readmodel

import (
	"time"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/models"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/services/tasker"
)

type LevelView struct {
	Level  int                       `json:"level"`
	Name   string                    `json:"name"`
	Status models.VerificationStatus `json:"status"`
}

type UserView struct {
	ID          uuid.UUID   `json:"id"`
	DisplayName string      `json:"display_name"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	Avatar      string      `json:"avatar"`
	Role        models.Role `json:"role"`
	IsTasker    bool        `json:"is_tasker"`

	ApplicationStatus     models.ApplicationStatus `json:"application_status,omitempty"`
	ApplicationReviewedBy *uuid.UUID               `json:"application_reviewed_by,omitempty"`
	ApplicationReviewedAt *time.Time               `json:"application_reviewed_at,omitempty"`
	RejectionReason       string                   `json:"rejection_reason,omitempty"`

	Levels        []LevelView          `json:"verification_levels,omitempty"`
	OverallStatus models.OverallStatus `json:"overall_status,omitempty"`
	Operational   bool                 `json:"operational"`

	IsSuspended      bool       `json:"is_suspended"`
	SuspensionReason string     `json:"suspension_reason,omitempty"`
	SuspendedAt      *time.Time `json:"suspended_at,omitempty"`

	WalletBalance int64     `json:"wallet_balance"`
	CreatedAt     time.Time `json:"created_at"`
}

// BuildUserView derives the display fields of u. Verification data is only
// attached for taskers.
func BuildUserView(u *models.User) UserView {
	v := UserView{
		ID:               u.ID,
		DisplayName:      displayName(u),
		Email:            u.Email,
		Phone:            u.Phone,
		Avatar:           u.Avatar,
		Role:             u.Role,
		IsTasker:         u.IsTasker,
		IsSuspended:      u.IsSuspended,
		SuspensionReason: u.SuspensionReason,
		SuspendedAt:      u.SuspendedAt,
		WalletBalance:    u.WalletBalance,
		CreatedAt:        u.CreatedAt,
	}
	if !u.IsTasker {
		return v
	}

	v.ApplicationStatus = u.TaskerApplicationStatus
	v.ApplicationReviewedBy = u.ApplicationReviewedBy
	v.ApplicationReviewedAt = u.ApplicationReviewedAt
	v.RejectionReason = u.RejectionReason

	levels := u.Levels()
	v.Levels = make([]LevelView, 0, len(levels))
	for i, st := range levels {
		v.Levels = append(v.Levels, LevelView{Level: i + 1, Name: tasker.StageName(i + 1), Status: st})
	}
	v.OverallStatus = tasker.OverallStatus(levels)
	v.Operational = tasker.Operational(u)
	return v
}

func BuildUserViews(users []models.User) []UserView {
	out := make([]UserView, 0, len(users))
	for i := range users {
		out = append(out, BuildUserView(&users[i]))
	}
	return out
}

func displayName(u *models.User) string {
	switch {
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	case u.Phone != "":
		return u.Phone
	}
	return "User"
}
