package trade

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/FTEC-6v99/besttrade-Siyu-SG/internal/errors"
	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/models"
)

// Ledger is the transactional store the engine settles trades against.
type Ledger interface {
	// WithTransaction runs fn against one transaction, committing on a nil
	// return and rolling back on any error.
	WithTransaction(ctx context.Context, fn func(Tx) error) error
}

// Tx exposes the row primitives available inside one settlement transaction.
// AccountForUpdate and ResolvePosition lock the rows they return for the
// remainder of the transaction.
type Tx interface {
	AccountForUpdate(ctx context.Context, accountNumber int64) (*models.Account, error)
	UpdateBalance(ctx context.Context, accountNumber int64, balance decimal.Decimal) error

	// ResolvePosition looks up the portfolio row for (account, ticker),
	// returning nil when the account holds no such position.
	ResolvePosition(ctx context.Context, accountNumber int64, ticker string) (*models.Position, error)
	InsertPosition(ctx context.Context, p *models.Position) error
	UpdatePositionQuantity(ctx context.Context, accountNumber int64, ticker string, quantity int64) error
	DeletePosition(ctx context.Context, accountNumber int64, ticker string) error
}

// Engine settles buy and sell orders. Each settlement mutates exactly two
// rows, the account balance and the portfolio position, inside a single
// transaction; on any failure neither mutation is observable.
type Engine struct {
	ledger Ledger
	log    *zap.SugaredLogger
}

func NewEngine(ledger Ledger, log *zap.SugaredLogger) *Engine {
	return &Engine{
		ledger: ledger,
		log:    log,
	}
}

// Execute dispatches a decoded trade command to the matching settlement.
func (e *Engine) Execute(ctx context.Context, cmd models.TradeCommand) (*models.TradeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, apperrors.NewValidationError("invalid trade command", err)
	}

	switch cmd.Side {
	case models.SideBuy:
		return e.ExecuteBuy(ctx, cmd)
	case models.SideSell:
		return e.ExecuteSell(ctx, cmd)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown trade side %q", cmd.Side), nil)
	}
}

// ExecuteBuy debits cost = price * quantity from the account and adds the
// shares to the position for (account, ticker), creating it on the first buy
// of a ticker. A buy that would drive the balance negative fails with
// insufficient funds and leaves both rows untouched.
func (e *Engine) ExecuteBuy(ctx context.Context, cmd models.TradeCommand) (*models.TradeResult, error) {
	var result *models.TradeResult

	err := e.withConflictRetry(ctx, cmd, func() error {
		return e.ledger.WithTransaction(ctx, func(tx Tx) error {
			account, err := tx.AccountForUpdate(ctx, cmd.AccountNumber)
			if err != nil {
				return err
			}

			cost := cmd.Price.Mul(decimal.NewFromInt(cmd.Quantity))
			if account.Balance.LessThan(cost) {
				return apperrors.NewInsufficientFundsError(cmd.AccountNumber, cost, account.Balance)
			}

			account.Balance = account.Balance.Sub(cost)
			if err := tx.UpdateBalance(ctx, account.AccountNumber, account.Balance); err != nil {
				return err
			}

			position, err := tx.ResolvePosition(ctx, cmd.AccountNumber, cmd.Ticker)
			if err != nil {
				return err
			}
			if position == nil {
				position = &models.Position{
					AccountNumber: cmd.AccountNumber,
					Ticker:        cmd.Ticker,
					Quantity:      cmd.Quantity,
					PurchasePrice: cmd.Price,
				}
				if err := tx.InsertPosition(ctx, position); err != nil {
					return err
				}
			} else {
				// Repeated buys keep the original lot price. Weighted-average
				// cost basis is a deliberate non-feature until the business
				// asks for it.
				position.Quantity += cmd.Quantity
				if err := tx.UpdatePositionQuantity(ctx, position.AccountNumber, position.Ticker, position.Quantity); err != nil {
					return err
				}
			}

			result = &models.TradeResult{Account: *account, Position: position}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	e.log.Infow("buy settled",
		"account_number", cmd.AccountNumber,
		"ticker", cmd.Ticker,
		"quantity", cmd.Quantity,
	)
	return result, nil
}

// ExecuteSell removes shares from the position for (account, ticker) and
// credits proceeds = price * quantity to the account. Selling more than the
// held quantity fails with insufficient holdings and leaves both rows
// untouched; selling the full quantity deletes the position row.
func (e *Engine) ExecuteSell(ctx context.Context, cmd models.TradeCommand) (*models.TradeResult, error) {
	var result *models.TradeResult

	err := e.withConflictRetry(ctx, cmd, func() error {
		return e.ledger.WithTransaction(ctx, func(tx Tx) error {
			// Lock the account before the position so buys and sells racing
			// on the same account take row locks in the same order.
			account, err := tx.AccountForUpdate(ctx, cmd.AccountNumber)
			if err != nil {
				return err
			}

			position, err := tx.ResolvePosition(ctx, cmd.AccountNumber, cmd.Ticker)
			if err != nil {
				return err
			}
			held := int64(0)
			if position != nil {
				held = position.Quantity
			}
			if held < cmd.Quantity {
				return apperrors.NewInsufficientHoldingsError(cmd.AccountNumber, cmd.Ticker, cmd.Quantity, held)
			}

			remaining := held - cmd.Quantity
			if remaining == 0 {
				if err := tx.DeletePosition(ctx, cmd.AccountNumber, cmd.Ticker); err != nil {
					return err
				}
				position = nil
			} else {
				position.Quantity = remaining
				if err := tx.UpdatePositionQuantity(ctx, cmd.AccountNumber, cmd.Ticker, remaining); err != nil {
					return err
				}
			}

			proceeds := cmd.Price.Mul(decimal.NewFromInt(cmd.Quantity))
			account.Balance = account.Balance.Add(proceeds)
			if err := tx.UpdateBalance(ctx, account.AccountNumber, account.Balance); err != nil {
				return err
			}

			result = &models.TradeResult{Account: *account, Position: position}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	e.log.Infow("sell settled",
		"account_number", cmd.AccountNumber,
		"ticker", cmd.Ticker,
		"quantity", cmd.Quantity,
	)
	return result, nil
}

// withConflictRetry reruns the whole settlement once when the store reports a
// serialization conflict. A second conflict is surfaced to the caller.
func (e *Engine) withConflictRetry(ctx context.Context, cmd models.TradeCommand, fn func() error) error {
	err := fn()
	if err == nil || !apperrors.IsKind(err, apperrors.ErrorTypeConflict) {
		return err
	}

	e.log.Warnw("settlement conflict, retrying trade",
		"account_number", cmd.AccountNumber,
		"ticker", cmd.Ticker,
		"side", cmd.Side,
	)

	if ctx.Err() != nil {
		return err
	}
	return fn()
}
