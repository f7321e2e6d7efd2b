package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/database"
	apperrors "github.com/FTEC-6v99/besttrade-Siyu-SG/internal/errors"
	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/models"
	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/services/trade"
)

// LedgerStore is the Postgres implementation of the trade engine's ledger.
// Balance and position rows are read with SELECT ... FOR UPDATE inside the
// settlement transaction, so two trades against the same account serialize
// while trades against different accounts proceed independently.
type LedgerStore struct {
	db *database.DB
}

func NewLedgerStore(db *database.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) WithTransaction(ctx context.Context, fn func(trade.Tx) error) error {
	return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		return fn(&ledgerTx{tx: tx})
	})
}

// PositionsByAccount returns all open positions held by the account.
func (s *LedgerStore) PositionsByAccount(ctx context.Context, accountNumber int64) ([]models.Position, error) {
	rows, err := s.db.QuerySafe(ctx, `
		SELECT account_number, ticker, quantity, purchase_price
		FROM portfolio
		WHERE account_number = $1
		ORDER BY ticker
	`, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// PositionsByInvestor returns the open positions across every account the
// investor owns.
func (s *LedgerStore) PositionsByInvestor(ctx context.Context, investorID int64) ([]models.Position, error) {
	rows, err := s.db.QuerySafe(ctx, `
		SELECT p.account_number, p.ticker, p.quantity, p.purchase_price
		FROM portfolio p
		JOIN account a ON a.account_number = p.account_number
		WHERE a.investor_id = $1
		ORDER BY p.account_number, p.ticker
	`, investorID)
	if err != nil {
		return nil, fmt.Errorf("list investor positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

func scanPositions(rows *sql.Rows) ([]models.Position, error) {
	var positions []models.Position
	for rows.Next() {
		var p models.Position
		if err := rows.Scan(&p.AccountNumber, &p.Ticker, &p.Quantity, &p.PurchasePrice); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate positions: %w", err)
	}
	return positions, nil
}

// ledgerTx binds the settlement primitives to one open transaction.
type ledgerTx struct {
	tx *sql.Tx
}

func (l *ledgerTx) AccountForUpdate(ctx context.Context, accountNumber int64) (*models.Account, error) {
	var account models.Account
	err := l.tx.QueryRowContext(ctx, `
		SELECT account_number, balance, investor_id
		FROM account
		WHERE account_number = $1
		FOR UPDATE
	`, accountNumber).Scan(&account.AccountNumber, &account.Balance, &account.InvestorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewAccountNotFoundError(accountNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("lock account %d: %w", accountNumber, err)
	}
	return &account, nil
}

func (l *ledgerTx) UpdateBalance(ctx context.Context, accountNumber int64, balance decimal.Decimal) error {
	result, err := l.tx.ExecContext(ctx, `
		UPDATE account SET balance = $1 WHERE account_number = $2
	`, balance, accountNumber)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return expectOneRow(result, "account", accountNumber)
}

func (l *ledgerTx) ResolvePosition(ctx context.Context, accountNumber int64, ticker string) (*models.Position, error) {
	var p models.Position
	err := l.tx.QueryRowContext(ctx, `
		SELECT account_number, ticker, quantity, purchase_price
		FROM portfolio
		WHERE account_number = $1 AND ticker = $2
		FOR UPDATE
	`, accountNumber, ticker).Scan(&p.AccountNumber, &p.Ticker, &p.Quantity, &p.PurchasePrice)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock position %d/%s: %w", accountNumber, ticker, err)
	}
	return &p, nil
}

func (l *ledgerTx) InsertPosition(ctx context.Context, p *models.Position) error {
	_, err := l.tx.ExecContext(ctx, `
		INSERT INTO portfolio (account_number, ticker, quantity, purchase_price)
		VALUES ($1, $2, $3, $4)
	`, p.AccountNumber, p.Ticker, p.Quantity, p.PurchasePrice)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

func (l *ledgerTx) UpdatePositionQuantity(ctx context.Context, accountNumber int64, ticker string, quantity int64) error {
	result, err := l.tx.ExecContext(ctx, `
		UPDATE portfolio SET quantity = $1 WHERE account_number = $2 AND ticker = $3
	`, quantity, accountNumber, ticker)
	if err != nil {
		return fmt.Errorf("update position quantity: %w", err)
	}
	return expectOneRow(result, "portfolio", accountNumber)
}

func (l *ledgerTx) DeletePosition(ctx context.Context, accountNumber int64, ticker string) error {
	result, err := l.tx.ExecContext(ctx, `
		DELETE FROM portfolio WHERE account_number = $1 AND ticker = $2
	`, accountNumber, ticker)
	if err != nil {
		return fmt.Errorf("delete position: %w", err)
	}
	return expectOneRow(result, "portfolio", accountNumber)
}

func expectOneRow(result sql.Result, table string, key int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewInternalError(
			fmt.Sprintf("%s row vanished under lock: %d", table, key), nil)
	}
	return nil
}
