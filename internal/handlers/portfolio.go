package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	apperrors "github.com/FTEC-6v99/besttrade-Siyu-SG/internal/errors"
	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/models"
)

// PortfolioReader lists open positions.
type PortfolioReader interface {
	PositionsByAccount(ctx context.Context, accountNumber int64) ([]models.Position, error)
	PositionsByInvestor(ctx context.Context, investorID int64) ([]models.Position, error)
}

type PortfolioHandler struct {
	positions PortfolioReader
}

func NewPortfolioHandler(positions PortfolioReader) *PortfolioHandler {
	return &PortfolioHandler{positions: positions}
}

// GetByAccount handles GET /accounts/{account_number}/portfolio.
func (h *PortfolioHandler) GetByAccount(w http.ResponseWriter, r *http.Request) {
	accountNumber, err := strconv.ParseInt(mux.Vars(r)["account_number"], 10, 64)
	if err != nil {
		respondError(w, r, apperrors.NewValidationError("invalid account number", err))
		return
	}

	positions, err := h.positions.PositionsByAccount(r.Context(), accountNumber)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if positions == nil {
		positions = []models.Position{}
	}

	respondJSON(w, http.StatusOK, positions)
}

// GetByInvestor handles GET /investors/{id}/portfolio.
func (h *PortfolioHandler) GetByInvestor(w http.ResponseWriter, r *http.Request) {
	investorID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, r, apperrors.NewValidationError("invalid investor id", err))
		return
	}

	positions, err := h.positions.PositionsByInvestor(r.Context(), investorID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if positions == nil {
		positions = []models.Position{}
	}

	respondJSON(w, http.StatusOK, positions)
}
