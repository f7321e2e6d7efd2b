package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/database"
	apperrors "github.com/FTEC-6v99/besttrade-Siyu-SG/internal/errors"
	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/models"
)

type AccountRepository struct {
	db *database.DB
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO account (balance, investor_id)
		VALUES ($1, $2)
		RETURNING account_number
	`, account.Balance, account.InvestorID).Scan(&account.AccountNumber)
	if err != nil {
		return fmt.Errorf("create account: %w", database.Classify(err))
	}
	return nil
}

// UpdateBalance overwrites the account balance outside any trade. This is the
// administrative deposit/withdraw path; settlements go through the ledger
// store instead.
func (r *AccountRepository) UpdateBalance(ctx context.Context, accountNumber int64, balance decimal.Decimal) error {
	result, err := r.db.ExecSafe(ctx, `
		UPDATE account SET balance = $1 WHERE account_number = $2
	`, balance, accountNumber)
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	return accountAffected(result, accountNumber)
}

func (r *AccountRepository) Delete(ctx context.Context, accountNumber int64) error {
	result, err := r.db.ExecSafe(ctx, `
		DELETE FROM account WHERE account_number = $1
	`, accountNumber)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return accountAffected(result, accountNumber)
}

func accountAffected(result interface{ RowsAffected() (int64, error) }, accountNumber int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewAccountNotFoundError(accountNumber)
	}
	return nil
}
