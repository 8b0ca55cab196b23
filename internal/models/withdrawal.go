package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Withdrawal is a user's request to cash out wallet balance. Rows are never
// deleted; rejection is a status change.
type Withdrawal struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Amount int64     `gorm:"not null" json:"amount"`

	BankName      string `gorm:"type:varchar(80)" json:"bank_name"`
	AccountName   string `gorm:"type:varchar(120)" json:"account_name"`
	AccountNumber string `gorm:"type:varchar(40)" json:"account_number"`

	Status WithdrawalStatus `gorm:"type:varchar(20);not null;default:'Pending';index" json:"status"`

	// Reference is issued by the payment rail when the payout is accepted.
	Reference *string `gorm:"type:varchar(64);uniqueIndex" json:"reference,omitempty"`

	ApprovedBy      *uuid.UUID `gorm:"type:uuid" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedBy      *uuid.UUID `gorm:"type:uuid" json:"rejected_by,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (w *Withdrawal) BeforeCreate(tx *gorm.DB) (err error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.Status == "" {
		w.Status = WithdrawalPending
	}
	return
}
