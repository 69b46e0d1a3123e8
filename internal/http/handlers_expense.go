package http

import (
	"errors"
	"log/slog"
	"net/http"

	"spendtrack/internal/core"
)

// ExpenseRow is one rendered line of the expense list.
type ExpenseRow struct {
	ID          int64
	Date        string
	Category    string
	Description string
	Amount      string
}

// ListViewModel backs the expense list page.
type ListViewModel struct {
	Username string
	Rows     []ExpenseRow
	Total    string
	Start    string
	End      string
	Notices  []string
}

// FormViewModel backs the add/edit expense form.
type FormViewModel struct {
	Username    string
	IsEdit      bool
	ID          int64
	Amount      string
	Category    string
	Description string
	Date        string
	Error       string
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	dr, notices := parseDateRange(r.URL.Query())
	expenses, err := s.expenses.List(r.Context(), account.ID, dr)
	if err != nil {
		serverError(w, r, err, "List expenses failed")
		return
	}

	vm := ListViewModel{
		Username: account.Username,
		Start:    r.URL.Query().Get("start"),
		End:      r.URL.Query().Get("end"),
		Notices:  notices,
	}
	var total int64
	for _, e := range expenses {
		total += e.Amount.Cents
		vm.Rows = append(vm.Rows, ExpenseRow{
			ID:          e.ID,
			Date:        e.Date.String(),
			Category:    e.Category,
			Description: e.Description,
			Amount:      e.Amount.String(),
		})
	}
	vm.Total = core.Money{Cents: total}.String()

	s.render(w, r, http.StatusOK, "expenses.html", vm)
}

func (s *Server) handleAddExpenseForm(w http.ResponseWriter, r *http.Request) {
	account, _ := accountFromContext(r)
	s.render(w, r, http.StatusOK, "expense_form.html", FormViewModel{Username: account.Username})
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	expense, err := parseExpenseForm(r, account.ID)
	if err == nil {
		err = expense.Validate()
	}
	if err != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "expense_form.html", FormViewModel{
			Username:    account.Username,
			Amount:      r.Form.Get("amount"),
			Category:    r.Form.Get("category"),
			Description: r.Form.Get("description"),
			Date:        r.Form.Get("date"),
			Error:       validationMessage(err),
		})
		return
	}

	id, err := s.expenses.Create(r.Context(), expense)
	if err != nil {
		serverError(w, r, err, "Create expense failed")
		return
	}

	slog.InfoContext(r.Context(), "Expense created",
		"expense_id", id,
		"account_id", account.ID,
		"amount_cents", expense.Amount.Cents,
		"category", expense.Category)

	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}

func (s *Server) handleEditExpenseForm(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	id, err := pathID(r)
	if err != nil {
		s.renderNotFound(w, r)
		return
	}

	expense, err := s.expenses.Get(r.Context(), account.ID, id)
	if errors.Is(err, core.ErrNotFound) {
		s.renderNotFound(w, r)
		return
	}
	if err != nil {
		serverError(w, r, err, "Load expense failed")
		return
	}

	s.render(w, r, http.StatusOK, "expense_form.html", FormViewModel{
		Username:    account.Username,
		IsEdit:      true,
		ID:          expense.ID,
		Amount:      expense.Amount.String(),
		Category:    expense.Category,
		Description: expense.Description,
		Date:        expense.Date.String(),
	})
}

func (s *Server) handleEditExpense(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	id, err := pathID(r)
	if err != nil {
		s.renderNotFound(w, r)
		return
	}

	expense, err := parseExpenseForm(r, account.ID)
	if err == nil {
		expense.ID = id
		err = expense.Validate()
	}
	if err != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "expense_form.html", FormViewModel{
			Username:    account.Username,
			IsEdit:      true,
			ID:          id,
			Amount:      r.Form.Get("amount"),
			Category:    r.Form.Get("category"),
			Description: r.Form.Get("description"),
			Date:        r.Form.Get("date"),
			Error:       validationMessage(err),
		})
		return
	}

	err = s.expenses.Update(r.Context(), expense)
	if errors.Is(err, core.ErrNotFound) {
		s.renderNotFound(w, r)
		return
	}
	if err != nil {
		serverError(w, r, err, "Update expense failed")
		return
	}

	slog.InfoContext(r.Context(), "Expense updated", "expense_id", id, "account_id", account.ID)
	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	account, ok := accountFromContext(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	id, err := pathID(r)
	if err != nil {
		s.renderNotFound(w, r)
		return
	}

	err = s.expenses.Delete(r.Context(), account.ID, id)
	if errors.Is(err, core.ErrNotFound) {
		s.renderNotFound(w, r)
		return
	}
	if err != nil {
		serverError(w, r, err, "Delete expense failed")
		return
	}

	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}
