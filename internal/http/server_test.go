package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendtrack/internal/services"
	"spendtrack/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	accounts := services.NewAccountService(repo, 4, time.Hour)
	expenses := services.NewExpenseService(repo)
	srv := NewServer(":0", accounts, expenses, Options{RateLimitPerMinute: 1000})
	t.Cleanup(func() { srv.limiter.Stop() })
	return srv
}

func do(t *testing.T, srv *Server, method, target, cookie string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookie != "" {
		req.Header.Set("Cookie", SessionCookieName+"="+cookie)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

// registerAndLogin creates an account through the HTTP surface and returns
// its session token.
func registerAndLogin(t *testing.T, srv *Server, username string) string {
	t.Helper()
	creds := url.Values{"username": {username}, "password": {"password1"}}

	rr := do(t, srv, http.MethodPost, "/register", "", creds)
	require.Equal(t, http.StatusSeeOther, rr.Code)

	rr = do(t, srv, http.MethodPost, "/login", "", creds)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Equal(t, "/expenses", rr.Header().Get("Location"))

	for _, c := range rr.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c.Value
		}
	}
	t.Fatal("no session cookie set on login")
	return ""
}

func addExpense(t *testing.T, srv *Server, token, amount, category, description, date string) {
	t.Helper()
	rr := do(t, srv, http.MethodPost, "/expenses/add", token, url.Values{
		"amount":      {amount},
		"category":    {category},
		"description": {description},
		"date":        {date},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)
}

func TestPublicAndHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Track your spending")

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestAuthGateRedirectsToLogin(t *testing.T) {
	srv := newTestServer(t)

	protected := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/expenses"},
		{http.MethodGet, "/expenses/add"},
		{http.MethodPost, "/expenses/add"},
		{http.MethodGet, "/expenses/1/edit"},
		{http.MethodPost, "/expenses/1/edit"},
		{http.MethodPost, "/expenses/1/delete"},
		{http.MethodGet, "/dashboard"},
		{http.MethodGet, "/expenses/export"},
	}
	for _, p := range protected {
		rr := do(t, srv, p.method, p.target, "", nil)
		assert.Equal(t, http.StatusFound, rr.Code, "%s %s", p.method, p.target)
		assert.Equal(t, "/login", rr.Header().Get("Location"), "%s %s", p.method, p.target)
	}

	// A bogus token is treated the same as no token.
	rr := do(t, srv, http.MethodGet, "/expenses", "not-a-token", nil)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestRegisterValidationAndConflict(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/register", "", url.Values{
		"username": {"alice"}, "password": {"short"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "at least 8 characters")

	rr = do(t, srv, http.MethodPost, "/register", "", url.Values{
		"username": {"alice"}, "password": {"password1"},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)

	rr = do(t, srv, http.MethodPost, "/register", "", url.Values{
		"username": {"alice"}, "password": {"password2"},
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "Username already exists")
}

func TestLoginFailureIsGeneric(t *testing.T) {
	srv := newTestServer(t)
	registerAndLogin(t, srv, "alice")

	// Wrong password and unknown user produce identical responses.
	for _, creds := range []url.Values{
		{"username": {"alice"}, "password": {"wrong-password"}},
		{"username": {"nobody"}, "password": {"password1"}},
	} {
		rr := do(t, srv, http.MethodPost, "/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "Invalid username or password.")
	}
}

func TestExpenseCRUDFlow(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice")

	// Validation failures re-render the form.
	rr := do(t, srv, http.MethodPost, "/expenses/add", token, url.Values{
		"amount": {"0"}, "category": {"Food"}, "date": {"2024-03-01"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "positive number")

	rr = do(t, srv, http.MethodPost, "/expenses/add", token, url.Values{
		"amount": {"12.50"}, "category": {"Food"}, "date": {"not-a-date"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "valid calendar date")

	addExpense(t, srv, token, "12.50", "Food", "groceries", "2024-03-01")

	rr = do(t, srv, http.MethodGet, "/expenses", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "12.50")
	assert.Contains(t, rr.Body.String(), "Food")
	assert.Contains(t, rr.Body.String(), "groceries")

	// Edit via the form round trip.
	rr = do(t, srv, http.MethodGet, "/expenses/1/edit", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "12.50")

	rr = do(t, srv, http.MethodPost, "/expenses/1/edit", token, url.Values{
		"amount": {"9.99"}, "category": {"Travel"}, "description": {"train"}, "date": {"2024-03-02"},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)

	rr = do(t, srv, http.MethodGet, "/expenses", token, nil)
	assert.Contains(t, rr.Body.String(), "9.99")
	assert.Contains(t, rr.Body.String(), "Travel")
	assert.NotContains(t, rr.Body.String(), "groceries")

	// Delete, then a second delete reports the generic not-found page.
	rr = do(t, srv, http.MethodPost, "/expenses/1/delete", token, nil)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	rr = do(t, srv, http.MethodPost, "/expenses/1/delete", token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestOwnershipIsolationOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	alice := registerAndLogin(t, srv, "alice")
	bob := registerAndLogin(t, srv, "bob")

	addExpense(t, srv, alice, "10.00", "Food", "", "2024-01-05")

	// Bob gets the same not-found page as for a nonexistent id.
	for _, target := range []string{"/expenses/1/edit", "/expenses/999/edit"} {
		rr := do(t, srv, http.MethodGet, target, bob, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code, target)
	}
	rr := do(t, srv, http.MethodPost, "/expenses/1/delete", bob, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, http.MethodGet, "/expenses", bob, nil)
	assert.NotContains(t, rr.Body.String(), "Food")

	// Alice still owns her record.
	rr = do(t, srv, http.MethodGet, "/expenses", alice, nil)
	assert.Contains(t, rr.Body.String(), "Food")
}

func TestListDateFiltering(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice")

	addExpense(t, srv, token, "1.00", "Food", "early", "2024-01-05")
	addExpense(t, srv, token, "2.00", "Food", "late", "2024-02-05")

	rr := do(t, srv, http.MethodGet, "/expenses?start=2024-02-01&end=2024-02-28", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "late")
	assert.NotContains(t, rr.Body.String(), "early")

	// Inverted range renders an empty list, not an error.
	rr = do(t, srv, http.MethodGet, "/expenses?start=2024-01-10&end=2024-01-05", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "No expenses in this range")

	// Malformed bound is dropped with a notice, page still renders.
	rr = do(t, srv, http.MethodGet, "/expenses?start=garbage", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid start date format")
	assert.Contains(t, rr.Body.String(), "early")
}

func TestDashboard(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice")

	addExpense(t, srv, token, "10.00", "Food", "", "2024-01-05")
	addExpense(t, srv, token, "5.50", "Food", "", "2024-01-20")

	rr := do(t, srv, http.MethodGet, "/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Food")
	assert.Contains(t, rr.Body.String(), "15.50")
}

func TestExportCSV(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice")

	rr := do(t, srv, http.MethodGet, "/expenses/export", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "Date,Description,Category,Amount\n", rr.Body.String())

	addExpense(t, srv, token, "12.50", "Food", "lunch", "2024-03-01")

	rr = do(t, srv, http.MethodGet, "/expenses/export", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "2024-03-01,lunch,Food,12.50")
}

func TestLogoutInvalidatesSession(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice")

	rr := do(t, srv, http.MethodGet, "/logout", token, nil)
	require.Equal(t, http.StatusSeeOther, rr.Code)

	rr = do(t, srv, http.MethodGet, "/expenses", token, nil)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestHomeRedirectsAuthenticated(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "alice")

	rr := do(t, srv, http.MethodGet, "/", token, nil)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/expenses", rr.Header().Get("Location"))
}

func TestSecurityHeadersApplied(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/", "", nil)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
}
