package http

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spendtrack/internal/core"
)

// parseDateRange extracts the optional start/end query parameters
// (YYYY-MM-DD). A malformed bound is dropped and reported back so the page
// can show a notice while still rendering.
func parseDateRange(query url.Values) (core.DateRange, []string) {
	var dr core.DateRange
	var notices []string

	if v := strings.TrimSpace(query.Get("start")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			notices = append(notices, "Invalid start date format. Use YYYY-MM-DD.")
		} else {
			dr.Start = d
		}
	}
	if v := strings.TrimSpace(query.Get("end")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			notices = append(notices, "Invalid end date format. Use YYYY-MM-DD.")
		} else {
			dr.End = d
		}
	}

	return dr, notices
}

// parseExpenseForm builds an Expense from submitted form values. The
// returned expense still needs Validate; this only covers field conversion.
func parseExpenseForm(r *http.Request, accountID int64) (core.Expense, error) {
	if err := r.ParseForm(); err != nil {
		return core.Expense{}, fmt.Errorf("parse form: %w", err)
	}

	cents, err := core.ParseDecimalToCents(r.Form.Get("amount"))
	if err != nil {
		return core.Expense{}, err
	}
	date, err := core.ParseDate(r.Form.Get("date"))
	if err != nil {
		return core.Expense{}, err
	}

	return core.Expense{
		AccountID:   accountID,
		Amount:      core.Money{Cents: cents},
		Category:    sanitizeInput(r.Form.Get("category")),
		Description: sanitizeInput(r.Form.Get("description")),
		Date:        date,
	}, nil
}

// validationMessage maps a domain error to the user-facing form message.
// Unknown errors get a generic text so no internals leak.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Amount must be a positive number like 12.50."
	case errors.Is(err, core.ErrInvalidDate):
		return "Date must be a valid calendar date in YYYY-MM-DD format."
	case errors.Is(err, core.ErrEmptyCategory):
		return "Category is required."
	case errors.Is(err, core.ErrCategoryTooLong):
		return "Category is too long (max 100 characters)."
	case errors.Is(err, core.ErrDescriptionTooLong):
		return "Description is too long (max 200 characters)."
	default:
		return "Invalid input."
	}
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrNotFound
	}
	return id, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
