package repository

import (
	"context"
	"fmt"

	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/database"
	apperrors "github.com/FTEC-6v99/besttrade-Siyu-SG/internal/errors"
	"github.com/FTEC-6v99/besttrade-Siyu-SG/internal/models"
)

type InvestorRepository struct {
	db *database.DB
}

func NewInvestorRepository(db *database.DB) *InvestorRepository {
	return &InvestorRepository{db: db}
}

func (r *InvestorRepository) Create(ctx context.Context, investor *models.Investor) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO investor (name, status)
		VALUES ($1, $2)
		RETURNING id
	`, investor.Name, investor.Status).Scan(&investor.ID)
	if err != nil {
		return fmt.Errorf("create investor: %w", database.Classify(err))
	}
	return nil
}

func (r *InvestorRepository) UpdateName(ctx context.Context, id int64, name string) error {
	result, err := r.db.ExecSafe(ctx, `
		UPDATE investor SET name = $1 WHERE id = $2
	`, name, id)
	if err != nil {
		return fmt.Errorf("update investor name: %w", err)
	}
	return investorAffected(result, id)
}

func (r *InvestorRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	result, err := r.db.ExecSafe(ctx, `
		UPDATE investor SET status = $1 WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("update investor status: %w", err)
	}
	return investorAffected(result, id)
}

func (r *InvestorRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecSafe(ctx, `
		DELETE FROM investor WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete investor: %w", err)
	}
	return investorAffected(result, id)
}

func investorAffected(result interface{ RowsAffected() (int64, error) }, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewInvestorNotFoundError(id)
	}
	return nil
}
