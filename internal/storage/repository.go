package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spendtrack/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists accounts, sessions and expenses in a single
// SQLite database. Every expense operation is scoped to an owning account id;
// a row that exists but belongs to another account is reported as
// core.ErrNotFound, indistinguishable from a missing row.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- Accounts ---

// CreateAccount inserts a new account. Returns core.ErrUsernameTaken when the
// username already exists. The existence check and the insert run in one
// transaction; the UNIQUE constraint backs the check up.
func (r *SQLiteRepository) CreateAccount(ctx context.Context, username, passwordHash string) (core.Account, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Account{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE username = ?`, username).Scan(&exists)
	if err != nil {
		return core.Account{}, fmt.Errorf("check username: %w", err)
	}
	if exists > 0 {
		return core.Account{}, core.ErrUsernameTaken
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (username, password_hash) VALUES (?, ?)`,
		username, passwordHash,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.Account{}, core.ErrUsernameTaken
		}
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("account id: %w", err)
	}

	account, err := scanAccount(tx.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM accounts WHERE id = ?`, id))
	if err != nil {
		return core.Account{}, fmt.Errorf("read back account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Account{}, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Account created", "account_id", account.ID, "username", account.Username)
	return account, nil
}

// GetAccountByUsername returns core.ErrNotFound for an unknown username.
func (r *SQLiteRepository) GetAccountByUsername(ctx context.Context, username string) (core.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM accounts WHERE username = ?`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account by username: %w", err)
	}
	return account, nil
}

func scanAccount(row *sql.Row) (core.Account, error) {
	var a core.Account
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

// --- Sessions ---

func (r *SQLiteRepository) CreateSession(ctx context.Context, token string, accountID int64, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, account_id, expires_at) VALUES (?, ?, ?)`,
		token, accountID, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSessionAccount resolves an unexpired session token to its account.
// Missing, expired or dangling tokens all map to core.ErrNotFound.
func (r *SQLiteRepository) GetSessionAccount(ctx context.Context, token string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT a.id, a.username, a.password_hash, a.created_at
		FROM sessions s
		JOIN accounts a ON s.account_id = a.id
		WHERE s.token = ? AND s.expires_at > ?`,
		token, time.Now().UTC(),
	)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get session account: %w", err)
	}
	return account, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions past their expiry and returns how
// many were removed.
func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired sessions rows affected: %w", err)
	}
	return n, nil
}

// --- Expenses ---

// CreateExpense inserts a new expense owned by e.AccountID and returns its id.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (account_id, amount_cents, category, description, date) VALUES (?, ?, ?, ?, ?)`,
		e.AccountID, e.Amount.Cents, e.Category, e.Description, e.Date.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"expense_id", id,
		"account_id", e.AccountID,
		"amount_cents", e.Amount.Cents,
		"category", e.Category,
		"date", e.Date.String())

	return id, nil
}

// GetExpense fetches one owned expense by id.
func (r *SQLiteRepository) GetExpense(ctx context.Context, accountID, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, amount_cents, category, description, date
		 FROM expenses WHERE id = ? AND account_id = ?`,
		id, accountID,
	)
	e, err := scanExpense(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// UpdateExpense replaces amount, category, description and date of an owned
// expense. Returns core.ErrNotFound when no owned row matches.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET amount_cents = ?, category = ?, description = ?, date = ?
		 WHERE id = ? AND account_id = ?`,
		e.Amount.Cents, e.Category, e.Description, e.Date.String(), e.ID, e.AccountID,
	)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteExpense removes an owned expense. Not idempotent: a second delete of
// the same id returns core.ErrNotFound.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, accountID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND account_id = ?`,
		id, accountID,
	)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Expense deleted", "expense_id", id, "account_id", accountID)
	return nil
}

// ListExpenses returns an account's expenses, optionally restricted to an
// inclusive date range. Ordering is date descending with id descending as
// tiebreak. An inverted range (start after end) yields an empty slice.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, accountID int64, dr core.DateRange) ([]core.Expense, error) {
	query := `SELECT id, account_id, amount_cents, category, description, date
	          FROM expenses WHERE account_id = ?`
	args := []any{accountID}
	query, args = appendRange(query, args, dr)
	query += ` ORDER BY date DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses rows: %w", err)
	}
	return expenses, nil
}

// CategoryTotals sums an account's expenses per category over an optional
// date range, in exact integer cents. Categories without matching expenses
// are absent. Output is alphabetical by category.
func (r *SQLiteRepository) CategoryTotals(ctx context.Context, accountID int64, dr core.DateRange) ([]core.CategoryTotal, error) {
	query := `SELECT category, SUM(amount_cents) FROM expenses WHERE account_id = ?`
	args := []any{accountID}
	query, args = appendRange(query, args, dr)
	query += ` GROUP BY category ORDER BY category`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	var totals []core.CategoryTotal
	for rows.Next() {
		var ct core.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("category totals rows: %w", err)
	}
	return totals, nil
}

// MonthlyTotals sums an account's expenses per calendar month of one year.
// The result always has 12 slots, zero-filled for empty months.
func (r *SQLiteRepository) MonthlyTotals(ctx context.Context, accountID int64, year int) ([12]core.Money, error) {
	var months [12]core.Money

	// Dates are stored as YYYY-MM-DD text, so the month is substr(date, 6, 2).
	rows, err := r.db.QueryContext(ctx, `
		SELECT CAST(substr(date, 6, 2) AS INTEGER) AS month, SUM(amount_cents)
		FROM expenses
		WHERE account_id = ? AND substr(date, 1, 4) = ?
		GROUP BY month`,
		accountID, fmt.Sprintf("%04d", year),
	)
	if err != nil {
		return months, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var month int
		var cents int64
		if err := rows.Scan(&month, &cents); err != nil {
			return months, fmt.Errorf("scan monthly total: %w", err)
		}
		if month >= 1 && month <= 12 {
			months[month-1] = core.Money{Cents: cents}
		}
	}
	if err := rows.Err(); err != nil {
		return months, fmt.Errorf("monthly totals rows: %w", err)
	}
	return months, nil
}

// appendRange adds inclusive date bounds to a WHERE clause. Lexicographic
// comparison is correct because dates are stored as YYYY-MM-DD.
func appendRange(query string, args []any, dr core.DateRange) (string, []any) {
	if !dr.Start.IsEmpty() {
		query += ` AND date >= ?`
		args = append(args, dr.Start.String())
	}
	if !dr.End.IsEmpty() {
		query += ` AND date <= ?`
		args = append(args, dr.End.String())
	}
	return query, args
}

func scanExpense(scan func(dest ...any) error) (core.Expense, error) {
	var e core.Expense
	var date string
	if err := scan(&e.ID, &e.AccountID, &e.Amount.Cents, &e.Category, &e.Description, &date); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("stored date %q: %w", date, err)
	}
	e.Date = d
	return e, nil
}
