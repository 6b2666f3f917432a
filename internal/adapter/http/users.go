package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/hazard-risk-service/internal/auth"
	"github.com/couchcryptid/hazard-risk-service/internal/store"
	"github.com/go-chi/chi/v5"
)

const sessionCookie = "session"

type sessionKey struct{}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "name, a valid email and a password of at least 6 characters are required")
		return
	}

	hash, err := s.opts.Hasher.Hash(req.Password)
	if err != nil {
		s.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	u, err := s.opts.Users.CreateUser(r.Context(), strings.TrimSpace(req.Name), normalizeEmail(req.Email), hash)
	switch {
	case errors.Is(err, store.ErrEmailTaken):
		writeError(w, http.StatusConflict, "Email already registered")
		return
	case err != nil:
		s.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	s.logger.Info("user registered", "user_id", u.ID)
	writeJSON(w, http.StatusCreated, userResponse{ID: u.ID, Name: u.Name, Email: u.Email})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	u, err := s.opts.Users.UserByEmail(r.Context(), normalizeEmail(req.Email))
	if err != nil && !errors.Is(err, store.ErrUserNotFound) {
		s.logger.Error("find user", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if u == nil || s.opts.Hasher.Verify(u.PasswordHash, req.Password) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.opts.Sessions.Issue(auth.Session{UserID: u.ID, Name: u.Name, Email: u.Email})
	if err != nil {
		s.logger.Error("issue session", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.opts.Sessions.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	redirect := "/dashboard"
	if s.isAdmin(u.Email) {
		redirect = "/admin"
	}
	writeJSON(w, http.StatusOK, map[string]string{"user": u.Name, "redirect": redirect})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"redirect": "/login"})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"user": sess.Name, "email": sess.Email})
}

type adminResponse struct {
	Users        []userResponse       `json:"users"`
	TotalUsers   int                  `json:"total_users"`
	MonthlyUsers []store.MonthlyCount `json:"monthly_users"`
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	users, err := s.opts.Users.ListUsers(r.Context())
	if err != nil {
		s.logger.Error("list users", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load users")
		return
	}
	monthly, err := s.opts.Users.MonthlyRegistrations(r.Context())
	if err != nil {
		s.logger.Error("monthly registrations", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load users")
		return
	}

	resp := adminResponse{
		Users:        make([]userResponse, 0, len(users)),
		TotalUsers:   len(users),
		MonthlyUsers: monthly,
	}
	for _, u := range users {
		resp.Users = append(resp.Users, userResponse{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	err = s.opts.Users.DeleteUser(r.Context(), uint(id))
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
		return
	case err != nil:
		s.logger.Error("delete user", "user_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete user")
		return
	}

	s.logger.Info("user deleted", "user_id", id, "by", sessionFrom(r.Context()).Email)
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

// requireSession rejects requests without a valid session cookie.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		sess, err := s.opts.Sessions.Parse(c.Value)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

// requireAdmin must run after requireSession.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.isAdmin(sessionFrom(r.Context()).Email) {
			writeError(w, http.StatusForbidden, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) isAdmin(email string) bool {
	return s.opts.AdminEmail != "" && strings.EqualFold(email, s.opts.AdminEmail)
}

func sessionFrom(ctx context.Context) auth.Session {
	sess, _ := ctx.Value(sessionKey{}).(auth.Session)
	return sess
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
