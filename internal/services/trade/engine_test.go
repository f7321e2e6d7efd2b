package trade

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/FTEC-6v99/besttrade-Siyu-SG/internal/errors"
	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/models"
)

// fakeLedger emulates the store's row-locking semantics with one mutex held
// for the duration of each transaction: concurrent settlements serialize, and
// a failed transaction leaves the shared state untouched.
type fakeLedger struct {
	mu        sync.Mutex
	accounts  map[int64]*models.Account
	positions map[string]*models.Position
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		accounts:  make(map[int64]*models.Account),
		positions: make(map[string]*models.Position),
	}
}

func positionKey(accountNumber int64, ticker string) string {
	return fmt.Sprintf("%d/%s", accountNumber, ticker)
}

func (f *fakeLedger) addAccount(accountNumber int64, balance string) {
	f.accounts[accountNumber] = &models.Account{
		AccountNumber: accountNumber,
		Balance:       decimal.RequireFromString(balance),
		InvestorID:    1,
	}
}

func (f *fakeLedger) addPosition(accountNumber int64, ticker string, quantity int64, price string) {
	f.positions[positionKey(accountNumber, ticker)] = &models.Position{
		AccountNumber: accountNumber,
		Ticker:        ticker,
		Quantity:      quantity,
		PurchasePrice: decimal.RequireFromString(price),
	}
}

func (f *fakeLedger) WithTransaction(ctx context.Context, fn func(Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tx := &fakeTx{
		accounts:  make(map[int64]*models.Account, len(f.accounts)),
		positions: make(map[string]*models.Position, len(f.positions)),
	}
	for k, v := range f.accounts {
		copied := *v
		tx.accounts[k] = &copied
	}
	for k, v := range f.positions {
		copied := *v
		tx.positions[k] = &copied
	}

	if err := fn(tx); err != nil {
		return err
	}

	f.accounts = tx.accounts
	f.positions = tx.positions
	return nil
}

type fakeTx struct {
	accounts  map[int64]*models.Account
	positions map[string]*models.Position
}

func (t *fakeTx) AccountForUpdate(ctx context.Context, accountNumber int64) (*models.Account, error) {
	account, ok := t.accounts[accountNumber]
	if !ok {
		return nil, apperrors.NewAccountNotFoundError(accountNumber)
	}
	copied := *account
	return &copied, nil
}

func (t *fakeTx) UpdateBalance(ctx context.Context, accountNumber int64, balance decimal.Decimal) error {
	account, ok := t.accounts[accountNumber]
	if !ok {
		return apperrors.NewAccountNotFoundError(accountNumber)
	}
	account.Balance = balance
	return nil
}

func (t *fakeTx) ResolvePosition(ctx context.Context, accountNumber int64, ticker string) (*models.Position, error) {
	position, ok := t.positions[positionKey(accountNumber, ticker)]
	if !ok {
		return nil, nil
	}
	copied := *position
	return &copied, nil
}

func (t *fakeTx) InsertPosition(ctx context.Context, p *models.Position) error {
	copied := *p
	t.positions[positionKey(p.AccountNumber, p.Ticker)] = &copied
	return nil
}

func (t *fakeTx) UpdatePositionQuantity(ctx context.Context, accountNumber int64, ticker string, quantity int64) error {
	position, ok := t.positions[positionKey(accountNumber, ticker)]
	if !ok {
		return apperrors.NewInternalError("position vanished under lock", nil)
	}
	position.Quantity = quantity
	return nil
}

func (t *fakeTx) DeletePosition(ctx context.Context, accountNumber int64, ticker string) error {
	delete(t.positions, positionKey(accountNumber, ticker))
	return nil
}

// conflictLedger reports a serialization conflict for the first n attempts,
// then delegates.
type conflictLedger struct {
	inner     Ledger
	conflicts int
	attempts  int
}

func (c *conflictLedger) WithTransaction(ctx context.Context, fn func(Tx) error) error {
	c.attempts++
	if c.attempts <= c.conflicts {
		return apperrors.NewTransactionConflictError(nil)
	}
	return c.inner.WithTransaction(ctx, fn)
}

func newTestEngine(ledger Ledger) *Engine {
	return NewEngine(ledger, zap.NewNop().Sugar())
}

func buyCommand(accountNumber int64, ticker string, quantity int64, price string) models.TradeCommand {
	return models.TradeCommand{
		AccountNumber: accountNumber,
		Ticker:        ticker,
		Quantity:      quantity,
		Price:         decimal.RequireFromString(price),
		Side:          models.SideBuy,
	}
}

func sellCommand(accountNumber int64, ticker string, quantity int64, price string) models.TradeCommand {
	cmd := buyCommand(accountNumber, ticker, quantity, price)
	cmd.Side = models.SideSell
	return cmd
}

func TestExecuteBuy(t *testing.T) {
	ctx := context.Background()

	t.Run("first buy creates the position", func(t *testing.T) {
		ledger := newFakeLedger()
		ledger.addAccount(100, "500.00")
		engine := newTestEngine(ledger)

		result, err := engine.Execute(ctx, buyCommand(100, "AAPL", 10, "20.00"))
		require.NoError(t, err)

		assert.True(t, result.Account.Balance.Equal(decimal.RequireFromString("300.00")),
			"balance = %s", result.Account.Balance)
		require.NotNil(t, result.Position)
		assert.Equal(t, int64(10), result.Position.Quantity)
		assert.True(t, result.Position.PurchasePrice.Equal(decimal.RequireFromString("20.00")))

		stored := ledger.positions[positionKey(100, "AAPL")]
		require.NotNil(t, stored)
		assert.Equal(t, int64(10), stored.Quantity)
	})

	t.Run("repeat buy adds quantity and keeps the original lot price", func(t *testing.T) {
		ledger := newFakeLedger()
		ledger.addAccount(100, "1000.00")
		ledger.addPosition(100, "AAPL", 10, "20.00")
		engine := newTestEngine(ledger)

		result, err := engine.Execute(ctx, buyCommand(100, "AAPL", 5, "30.00"))
		require.NoError(t, err)

		assert.True(t, result.Account.Balance.Equal(decimal.RequireFromString("850.00")))
		require.NotNil(t, result.Position)
		assert.Equal(t, int64(15), result.Position.Quantity)
		assert.True(t, result.Position.PurchasePrice.Equal(decimal.RequireFromString("20.00")),
			"lot price must not be averaged, got %s", result.Position.PurchasePrice)
	})

	t.Run("insufficient funds leaves state untouched", func(t *testing.T) {
		ledger := newFakeLedger()
		ledger.addAccount(101, "10.00")
		engine := newTestEngine(ledger)

		_, err := engine.Execute(ctx, buyCommand(101, "TSLA", 1, "50.00"))
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.ErrorTypeInsufficientFunds))

		assert.True(t, ledger.accounts[101].Balance.Equal(decimal.RequireFromString("10.00")))
		assert.Empty(t, ledger.positions)
	})

	t.Run("buy for the exact balance succeeds", func(t *testing.T) {
		ledger := newFakeLedger()
		ledger.addAccount(100, "200.00")
		engine := newTestEngine(ledger)

		result, err := engine.Execute(ctx, buyCommand(100, "AAPL", 10, "20.00"))
		require.NoError(t, err)
		assert.True(t, result.Account.Balance.IsZero())
	})

	t.Run("unknown account", func(t *testing.T) {
		ledger := newFakeLedger()
		engine := newTestEngine(ledger)

		_, err := engine.Execute(ctx, buyCommand(999, "AAPL", 1, "1.00"))
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.ErrorTypeNotFound))
	})
}

func TestExecuteSell(t *testing.T) {
	ctx := context.Background()

	t.Run("partial sell credits proceeds and keeps the position", func(t *testing.T) {
		ledger := newFakeLedger()
		ledger.addAccount(100, "100.00")
		ledger.addPosition(100, "AAPL", 10, "1.00")
		engine := newTestEngine(ledger)

		result, err := engine.Execute(ctx, sellCommand(100, "AAPL", 2, "2.00"))
		require.NoError(t, err)

		assert.True(t, result.Account.Balance.Equal(decimal.RequireFromString("104.00")))
		require.NotNil(t, result.Position)
		assert.Equal(t, int64(8), result.Position.Quantity)
	})

	t.Run("selling the full quantity removes the position", func(t *testing.T) {
		ledger := newFakeLedger()
		ledger.addAccount(100, "300.00")
		ledger.addPosition(100, "AAPL", 10, "20.00")
		engine := newTestEngine(ledger)

		result, err := engine.Execute(ctx, sellCommand(100, "AAPL", 10, "25.00"))
		require.NoError(t, err)

		assert.True(t, result.Account.Balance.Equal(decimal.RequireFromString("550.00")))
		assert.Nil(t, result.Position)
		assert.NotContains(t, ledger.positions, positionKey(100, "AAPL"))
	})

	t.Run("insufficient holdings leaves state untouched", func(t *testing.T) {
		ledger := newFakeLedger()
		ledger.addAccount(100, "100.00")
		ledger.addPosition(100, "AAPL", 3, "20.00")
		engine := newTestEngine(ledger)

		_, err := engine.Execute(ctx, sellCommand(100, "AAPL", 5, "25.00"))
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.ErrorTypeInsufficientHoldings))

		assert.True(t, ledger.accounts[100].Balance.Equal(decimal.RequireFromString("100.00")))
		assert.Equal(t, int64(3), ledger.positions[positionKey(100, "AAPL")].Quantity)
	})

	t.Run("selling a ticker never bought", func(t *testing.T) {
		ledger := newFakeLedger()
		ledger.addAccount(100, "100.00")
		engine := newTestEngine(ledger)

		_, err := engine.Execute(ctx, sellCommand(100, "MSFT", 1, "10.00"))
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.ErrorTypeInsufficientHoldings))
	})

	t.Run("unknown account", func(t *testing.T) {
		ledger := newFakeLedger()
		engine := newTestEngine(ledger)

		_, err := engine.Execute(ctx, sellCommand(999, "AAPL", 1, "1.00"))
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.ErrorTypeNotFound))
	})
}

func TestExecuteValidation(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(newFakeLedger())

	cases := []struct {
		name string
		cmd  models.TradeCommand
	}{
		{"zero quantity", buyCommand(100, "AAPL", 0, "10.00")},
		{"negative quantity", buyCommand(100, "AAPL", -5, "10.00")},
		{"zero price", buyCommand(100, "AAPL", 1, "0")},
		{"empty ticker", buyCommand(100, "", 1, "10.00")},
		{"unknown side", models.TradeCommand{AccountNumber: 100, Ticker: "AAPL", Quantity: 1, Price: decimal.New(1, 0), Side: "short"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Execute(ctx, tc.cmd)
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, apperrors.ErrorTypeValidation))
		})
	}
}

func TestConcurrentBuysNoLostUpdate(t *testing.T) {
	const n = 50

	ledger := newFakeLedger()
	ledger.addAccount(100, "1000.00")
	engine := newTestEngine(ledger)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := engine.Execute(context.Background(), buyCommand(100, "AAPL", 1, "2.00"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// n buys of 1 share at 2.00: exactly n shares held, balance down n*2.
	position := ledger.positions[positionKey(100, "AAPL")]
	require.NotNil(t, position)
	assert.Equal(t, int64(n), position.Quantity)
	assert.True(t, ledger.accounts[100].Balance.Equal(decimal.RequireFromString("900.00")),
		"balance = %s", ledger.accounts[100].Balance)
}

func TestConcurrentBuySellSameAccount(t *testing.T) {
	const rounds = 20

	ledger := newFakeLedger()
	ledger.addAccount(100, "1000.00")
	ledger.addPosition(100, "AAPL", rounds, "5.00")
	engine := newTestEngine(ledger)

	var wg sync.WaitGroup
	wg.Add(rounds * 2)
	for i := 0; i < rounds; i++ {
		go func() {
			defer wg.Done()
			_, err := engine.Execute(context.Background(), buyCommand(100, "AAPL", 1, "5.00"))
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := engine.Execute(context.Background(), sellCommand(100, "AAPL", 1, "5.00"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Buys and sells at the same price cancel out.
	position := ledger.positions[positionKey(100, "AAPL")]
	require.NotNil(t, position)
	assert.Equal(t, int64(rounds), position.Quantity)
	assert.True(t, ledger.accounts[100].Balance.Equal(decimal.RequireFromString("1000.00")))
}

func TestConflictRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("retries once after a serialization conflict", func(t *testing.T) {
		inner := newFakeLedger()
		inner.addAccount(100, "500.00")
		ledger := &conflictLedger{inner: inner, conflicts: 1}
		engine := newTestEngine(ledger)

		result, err := engine.Execute(ctx, buyCommand(100, "AAPL", 10, "20.00"))
		require.NoError(t, err)
		assert.Equal(t, 2, ledger.attempts)
		assert.True(t, result.Account.Balance.Equal(decimal.RequireFromString("300.00")))
	})

	t.Run("surfaces the conflict when the retry also fails", func(t *testing.T) {
		inner := newFakeLedger()
		inner.addAccount(100, "500.00")
		ledger := &conflictLedger{inner: inner, conflicts: 2}
		engine := newTestEngine(ledger)

		_, err := engine.Execute(ctx, buyCommand(100, "AAPL", 10, "20.00"))
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.ErrorTypeConflict))
		assert.Equal(t, 2, ledger.attempts)

		assert.True(t, inner.accounts[100].Balance.Equal(decimal.RequireFromString("500.00")))
	})
}
