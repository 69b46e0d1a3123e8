// Package services orchestrates validation and storage for the HTTP layer.
package services

import (
	"context"
	"fmt"
	"io"

	"spendtrack/internal/core"
	"spendtrack/internal/export"
	"spendtrack/internal/storage"
)

// ExpenseService implements the expense repository operations, aggregation
// and export, always scoped to the calling account.
type ExpenseService struct {
	storage *storage.SQLiteRepository
}

func NewExpenseService(storage *storage.SQLiteRepository) *ExpenseService {
	return &ExpenseService{storage: storage}
}

// Create validates and stores a new expense, returning its id.
func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	id, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}
	return id, nil
}

// Get fetches one owned expense; core.ErrNotFound covers both a missing id
// and an id owned by another account.
func (s *ExpenseService) Get(ctx context.Context, accountID, id int64) (core.Expense, error) {
	return s.storage.GetExpense(ctx, accountID, id)
}

// Update validates and replaces the mutable fields of an owned expense.
func (s *ExpenseService) Update(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	return s.storage.UpdateExpense(ctx, e)
}

// Delete removes an owned expense; core.ErrNotFound when absent or foreign.
func (s *ExpenseService) Delete(ctx context.Context, accountID, id int64) error {
	return s.storage.DeleteExpense(ctx, accountID, id)
}

// List returns the account's expenses, newest first, optionally filtered by
// an inclusive date range. An inverted range is an empty result, not an error.
func (s *ExpenseService) List(ctx context.Context, accountID int64, dr core.DateRange) ([]core.Expense, error) {
	return s.storage.ListExpenses(ctx, accountID, dr)
}

// Dashboard aggregates the account's expenses: per-category totals over the
// optional range for the pie chart, plus the monthly series of the given
// year for the bar chart.
func (s *ExpenseService) Dashboard(ctx context.Context, accountID int64, dr core.DateRange, year int) (core.DashboardSummary, error) {
	summary := core.DashboardSummary{Year: year}

	byCategory, err := s.storage.CategoryTotals(ctx, accountID, dr)
	if err != nil {
		return summary, fmt.Errorf("dashboard category totals: %w", err)
	}
	summary.ByCategory = byCategory
	for _, ct := range byCategory {
		summary.Total.Cents += ct.Amount.Cents
	}

	byMonth, err := s.storage.MonthlyTotals(ctx, accountID, year)
	if err != nil {
		return summary, fmt.Errorf("dashboard monthly totals: %w", err)
	}
	summary.ByMonth = byMonth

	return summary, nil
}

// ExportCSV streams the account's expenses as the CSV artifact. Nothing is
// persisted server-side.
func (s *ExpenseService) ExportCSV(ctx context.Context, w io.Writer, accountID int64, dr core.DateRange) error {
	expenses, err := s.storage.ListExpenses(ctx, accountID, dr)
	if err != nil {
		return fmt.Errorf("export expenses: %w", err)
	}
	return export.WriteCSV(w, expenses)
}
