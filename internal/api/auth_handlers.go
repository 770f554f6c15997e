package api

import (
	"net/http"

	"github.com/digkill/magicpic/internal/auth"
	"github.com/digkill/magicpic/internal/service"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupInput
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := s.deps.Auth.Signup(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, sess, "Account created")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := s.deps.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, sess, "")
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := s.deps.Auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, sess, "")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	if err := s.deps.Auth.Logout(r.Context(), id.UserID); err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil, "Logged out")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	user, err := s.deps.Auth.Me(r.Context(), id.UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, user, "")
}
