package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"spendtrack/internal/auth"
	"spendtrack/internal/core"
)

// AuthViewModel backs the register and login pages.
type AuthViewModel struct {
	Error    string
	Username string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	// A logged-in visitor goes straight to their expenses.
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if _, err := s.accounts.Authenticate(r.Context(), cookie.Value); err == nil {
			http.Redirect(w, r, "/expenses", http.StatusFound)
			return
		}
	}
	s.render(w, r, http.StatusOK, "home.html", nil)
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register.html", AuthViewModel{})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "register.html", AuthViewModel{Error: "Invalid form submission."})
		return
	}

	username := r.Form.Get("username")
	password := r.Form.Get("password")

	_, err := s.accounts.Register(r.Context(), username, password)
	switch {
	case err == nil:
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	case errors.Is(err, core.ErrUsernameTaken):
		s.render(w, r, http.StatusConflict, "register.html", AuthViewModel{
			Error:    "Username already exists.",
			Username: username,
		})
	case errors.Is(err, core.ErrEmptyUsername):
		s.render(w, r, http.StatusUnprocessableEntity, "register.html", AuthViewModel{
			Error: "Username is required.",
		})
	case errors.Is(err, core.ErrPasswordTooShort):
		s.render(w, r, http.StatusUnprocessableEntity, "register.html", AuthViewModel{
			Error:    fmt.Sprintf("Password must be at least %d characters.", auth.MinPasswordLength),
			Username: username,
		})
	default:
		serverError(w, r, err, "Registration failed")
	}
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	// Already authenticated visitors skip the form.
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if _, err := s.accounts.Authenticate(r.Context(), cookie.Value); err == nil {
			http.Redirect(w, r, "/expenses", http.StatusFound)
			return
		}
	}
	s.render(w, r, http.StatusOK, "login.html", AuthViewModel{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "login.html", AuthViewModel{Error: "Invalid form submission."})
		return
	}

	username := r.Form.Get("username")
	password := r.Form.Get("password")

	_, token, err := s.accounts.Login(r.Context(), username, password)
	if errors.Is(err, core.ErrInvalidCredentials) {
		// One generic message for every failure mode.
		s.render(w, r, http.StatusUnauthorized, "login.html", AuthViewModel{
			Error:    "Invalid username or password.",
			Username: username,
		})
		return
	}
	if err != nil {
		serverError(w, r, err, "Login failed")
		return
	}

	s.setSessionCookie(w, token)
	http.Redirect(w, r, "/expenses", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := s.accounts.Logout(r.Context(), cookie.Value); err != nil {
			slog.ErrorContext(r.Context(), "Failed to delete session", "error", err)
		}
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
