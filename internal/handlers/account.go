package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	apperrors "github.com/FTEC-6v99/besttrade-Siyu-SG/internal/errors"
	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/models"
)

type AccountService interface {
	Create(ctx context.Context, account *models.Account) error
	UpdateBalance(ctx context.Context, accountNumber int64, balance decimal.Decimal) error
	Delete(ctx context.Context, accountNumber int64) error
}

type AccountHandler struct {
	accounts AccountService
}

func NewAccountHandler(accounts AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type CreateAccountRequest struct {
	InvestorID int64           `json:"investor_id"`
	Balance    decimal.Decimal `json:"balance"`
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, apperrors.NewValidationError("invalid request body", err))
		return
	}

	account := &models.Account{Balance: req.Balance, InvestorID: req.InvestorID}
	if err := h.accounts.Create(r.Context(), account); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) UpdateBalance(w http.ResponseWriter, r *http.Request) {
	accountNumber, err := strconv.ParseInt(mux.Vars(r)["account_number"], 10, 64)
	if err != nil {
		respondError(w, r, apperrors.NewValidationError("invalid account number", err))
		return
	}

	var req struct {
		Balance decimal.Decimal `json:"balance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, apperrors.NewValidationError("invalid request body", err))
		return
	}

	if err := h.accounts.UpdateBalance(r.Context(), accountNumber, req.Balance); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountNumber, err := strconv.ParseInt(mux.Vars(r)["account_number"], 10, 64)
	if err != nil {
		respondError(w, r, apperrors.NewValidationError("invalid account number", err))
		return
	}

	if err := h.accounts.Delete(r.Context(), accountNumber); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
