package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Investor struct {
	ID     int64  `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Status string `json:"status" db:"status"`
}

type Account struct {
	AccountNumber int64           `json:"account_number" db:"account_number"`
	Balance       decimal.Decimal `json:"balance" db:"balance"`
	InvestorID    int64           `json:"investor_id" db:"investor_id"`
}

// Position is a holding of one ticker within one account. PurchasePrice is
// the cost basis of the held lot; a position with quantity 0 is never stored.
type Position struct {
	AccountNumber int64           `json:"account_number" db:"account_number"`
	Ticker        string          `json:"ticker" db:"ticker"`
	Quantity      int64           `json:"quantity" db:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchase_price" db:"purchase_price"`
}

type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

func ParseTradeSide(s string) (TradeSide, error) {
	switch TradeSide(strings.ToLower(s)) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", fmt.Errorf("unknown trade side %q", s)
	}
}

// TradeCommand is a fully decoded buy or sell order as handed to the trade
// engine by the gateway.
type TradeCommand struct {
	AccountNumber int64
	Ticker        string
	Quantity      int64
	Price         decimal.Decimal
	Side          TradeSide
}

func (c TradeCommand) Validate() error {
	if c.Side != SideBuy && c.Side != SideSell {
		return fmt.Errorf("unknown trade side %q", c.Side)
	}
	if c.Ticker == "" {
		return fmt.Errorf("ticker is required")
	}
	if c.Quantity <= 0 {
		return fmt.Errorf("quantity must be a positive integer")
	}
	if c.Price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("price must be positive")
	}
	return nil
}

// TradeResult carries the state after a successful settlement. Position is
// nil when the trade closed out the holding.
type TradeResult struct {
	Account  Account   `json:"account"`
	Position *Position `json:"position,omitempty"`
}
