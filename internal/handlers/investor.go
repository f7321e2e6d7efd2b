package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	apperrors "github.com/FTEC-6v99/besttrade-Siyu-SG/internal/errors"
	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/models"
)

type InvestorService interface {
	Create(ctx context.Context, investor *models.Investor) error
	UpdateName(ctx context.Context, id int64, name string) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, id int64) error
}

type InvestorHandler struct {
	investors InvestorService
}

func NewInvestorHandler(investors InvestorService) *InvestorHandler {
	return &InvestorHandler{investors: investors}
}

type CreateInvestorRequest struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

func (h *InvestorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInvestorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, apperrors.NewValidationError("invalid request body", err))
		return
	}

	investor := &models.Investor{Name: req.Name, Status: req.Status}
	if err := h.investors.Create(r.Context(), investor); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, investor)
}

func (h *InvestorHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, r, apperrors.NewValidationError("invalid investor id", err))
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, apperrors.NewValidationError("invalid request body", err))
		return
	}

	if err := h.investors.UpdateName(r.Context(), id, req.Name); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *InvestorHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, r, apperrors.NewValidationError("invalid investor id", err))
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, apperrors.NewValidationError("invalid request body", err))
		return
	}

	if err := h.investors.UpdateStatus(r.Context(), id, req.Status); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *InvestorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, r, apperrors.NewValidationError("invalid investor id", err))
		return
	}

	if err := h.investors.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
