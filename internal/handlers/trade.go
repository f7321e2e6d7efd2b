package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	apperrors "github.com/FTEC-6v99/besttrade-Siyu-SG/internal/errors"
	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/models"
	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/monitoring"
)

// TradeService settles a decoded trade command.
type TradeService interface {
	Execute(ctx context.Context, cmd models.TradeCommand) (*models.TradeResult, error)
}

type TradeHandler struct {
	trades  TradeService
	metrics *monitoring.Metrics
}

func NewTradeHandler(trades TradeService, metrics *monitoring.Metrics) *TradeHandler {
	return &TradeHandler{
		trades:  trades,
		metrics: metrics,
	}
}

type TradeRequest struct {
	Ticker   string          `json:"ticker"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Side     string          `json:"side"`
}

// ExecuteTrade handles POST /accounts/{account_number}/trades. The handler
// only coerces route and body values into typed fields; every business rule
// lives in the engine.
func (h *TradeHandler) ExecuteTrade(w http.ResponseWriter, r *http.Request) {
	accountNumber, err := strconv.ParseInt(mux.Vars(r)["account_number"], 10, 64)
	if err != nil {
		respondError(w, r, apperrors.NewValidationError("invalid account number", err))
		return
	}

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, apperrors.NewValidationError("invalid request body", err))
		return
	}

	side, err := models.ParseTradeSide(req.Side)
	if err != nil {
		respondError(w, r, apperrors.NewValidationError("invalid trade side", err))
		return
	}

	cmd := models.TradeCommand{
		AccountNumber: accountNumber,
		Ticker:        req.Ticker,
		Quantity:      req.Quantity,
		Price:         req.Price,
		Side:          side,
	}
	if err := cmd.Validate(); err != nil {
		respondError(w, r, apperrors.NewValidationError("invalid trade command", err))
		return
	}

	start := time.Now()
	result, err := h.trades.Execute(r.Context(), cmd)
	h.metrics.RecordTrade(string(side), tradeOutcome(err), time.Since(start))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func tradeOutcome(err error) string {
	switch {
	case err == nil:
		return "settled"
	case apperrors.IsKind(err, apperrors.ErrorTypeInsufficientFunds):
		return "insufficient_funds"
	case apperrors.IsKind(err, apperrors.ErrorTypeInsufficientHoldings):
		return "insufficient_holdings"
	case apperrors.IsKind(err, apperrors.ErrorTypeNotFound):
		return "account_not_found"
	case apperrors.IsKind(err, apperrors.ErrorTypeConflict):
		return "conflict"
	case apperrors.IsKind(err, apperrors.ErrorTypeUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}
