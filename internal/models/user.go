package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NumLevels is the number of verification levels a tasker goes through.
const NumLevels = 5

// internal/models/user.go
type User struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name   string    `gorm:"not null" json:"name"`
	Email  string    `gorm:"uniqueIndex;not null" json:"email"`
	Phone  string    `gorm:"type:varchar(30);index" json:"phone"`
	Avatar string    `gorm:"type:text" json:"avatar"`

	Role     Role `gorm:"type:varchar(20);not null;index" json:"role"`
	IsTasker bool `gorm:"not null;default:false;index" json:"is_tasker"`

	TaskerApplicationStatus ApplicationStatus `gorm:"type:varchar(20);index" json:"tasker_application_status"`
	ApplicationReviewedBy   *uuid.UUID        `gorm:"type:uuid" json:"application_reviewed_by,omitempty"`
	ApplicationReviewedAt   *time.Time        `json:"application_reviewed_at,omitempty"`
	RejectionReason         string            `gorm:"type:text" json:"rejection_reason,omitempty"`

	// Levels 1-2 are written by the registration flows, 3-5 by admins.
	VerificationLevel1Status VerificationStatus `gorm:"column:verification_level1_status;type:varchar(20);not null;default:'Unverified'" json:"verification_level1_status"`
	VerificationLevel2Status VerificationStatus `gorm:"column:verification_level2_status;type:varchar(20);not null;default:'Unverified'" json:"verification_level2_status"`
	VerificationLevel3Status VerificationStatus `gorm:"column:verification_level3_status;type:varchar(20);not null;default:'Unverified'" json:"verification_level3_status"`
	VerificationLevel4Status VerificationStatus `gorm:"column:verification_level4_status;type:varchar(20);not null;default:'Unverified'" json:"verification_level4_status"`
	VerificationLevel5Status VerificationStatus `gorm:"column:verification_level5_status;type:varchar(20);not null;default:'Unverified';index" json:"verification_level5_status"`

	IsSuspended          bool              `gorm:"not null;default:false;index" json:"is_suspended"`
	SuspensionReason     string            `gorm:"type:text" json:"suspension_reason,omitempty"`
	SuspendedBy          *uuid.UUID        `gorm:"type:uuid" json:"suspended_by,omitempty"`
	SuspendedAt          *time.Time        `json:"suspended_at,omitempty"`
	SuspendedPriorStatus ApplicationStatus `gorm:"type:varchar(20)" json:"-"`

	WalletBalance int64 `gorm:"not null;default:0" json:"wallet_balance"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	for _, p := range []*VerificationStatus{
		&u.VerificationLevel1Status, &u.VerificationLevel2Status, &u.VerificationLevel3Status,
		&u.VerificationLevel4Status, &u.VerificationLevel5Status,
	} {
		if *p == "" {
			*p = VerificationUnverified
		}
	}
	if u.IsTasker && u.TaskerApplicationStatus == "" {
		u.TaskerApplicationStatus = ApplicationPending
	}
	return
}

// Levels returns the five verification statuses, level 1 first.
func (u *User) Levels() [NumLevels]VerificationStatus {
	return [NumLevels]VerificationStatus{
		u.VerificationLevel1Status,
		u.VerificationLevel2Status,
		u.VerificationLevel3Status,
		u.VerificationLevel4Status,
		u.VerificationLevel5Status,
	}
}

// Level returns the status of level n (1-based). Out of range levels read as
// Unverified.
func (u *User) Level(n int) VerificationStatus {
	if n < 1 || n > NumLevels {
		return VerificationUnverified
	}
	return u.Levels()[n-1]
}

// SetLevel sets verification level n (1-based). Out of range levels are
// ignored.
func (u *User) SetLevel(n int, status VerificationStatus) {
	ptrs := [NumLevels]*VerificationStatus{
		&u.VerificationLevel1Status, &u.VerificationLevel2Status, &u.VerificationLevel3Status,
		&u.VerificationLevel4Status, &u.VerificationLevel5Status,
	}
	if n < 1 || n > NumLevels {
		return
	}
	*ptrs[n-1] = status
}

// LevelColumn is the column holding verification level n.
func LevelColumn(n int) (string, bool) {
	if n < 1 || n > NumLevels {
		return "", false
	}
	return fmt.Sprintf("verification_level%d_status", n), true
}
