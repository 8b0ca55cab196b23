package wallet

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/tasksfy_admin_be/internal/models"
)

type WalletService struct{}

func NewWalletService() *WalletService {
	return &WalletService{}
}

// Debit deducts amount from the user's balance and writes the ledger entry.
// It must run inside the caller's transaction; the balance guard sits in the
// UPDATE itself so concurrent debits cannot overdraw.
func (s *WalletService) Debit(tx *gorm.DB, userID uuid.UUID, amount int64, referenceID uuid.UUID, description string) error {
	if amount <= 0 {
		return apperr.InvalidArgument("amount to debit must be greater than zero")
	}

	result := tx.Model(&models.User{}).
		Where("id = ? AND wallet_balance >= ?", userID, amount).
		Update("wallet_balance", gorm.Expr("wallet_balance - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var exists int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return apperr.NotFound("wallet owner not found")
		}
		return apperr.PreconditionFailed("insufficient wallet balance")
	}

	ledger := models.WalletTransaction{
		UserID:      userID,
		Amount:      amount,
		Type:        models.WalletTrxDebit,
		Description: description,
		ReferenceID: &referenceID,
	}
	return tx.Create(&ledger).Error
}
