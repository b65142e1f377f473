package httpapi

import (
	"net/http"

	"siaf-backend/internal/models"
	"siaf-backend/internal/services"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	Message      string      `json:"message"`
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresAt    int64       `json:"expiresAt"`
	User         models.User `json:"user"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type UserResponse struct {
	Message string      `json:"message,omitempty"`
	User    models.User `json:"user"`
}

func (s *Server) issueTokens(w http.ResponseWriter, r *http.Request, user models.User, message string) {
	access, exp, err := s.Tokens.CreateAccessToken(services.Identity{UserID: user.ID, Username: user.Username, Role: user.Role})
	if err != nil {
		writeServiceError(w, r, services.WrapError(err, "sign access token"))
		return
	}
	refresh, err := s.Tokens.CreateRefreshToken(user.ID)
	if err != nil {
		writeServiceError(w, r, services.WrapError(err, "sign refresh token"))
		return
	}
	WriteJSON(w, http.StatusOK, TokenResponse{
		Message:      message,
		Token:        access,
		RefreshToken: refresh,
		ExpiresAt:    exp,
		User:         user,
	})
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !s.decode(w, r, &req) {
		return
	}
	user, err := services.Authenticate(r.Context(), s.DB, s.Tokens, req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.issueTokens(w, r, user, "Login successful")
}

// Refresh trades a refresh token for a new pair. The role is re-read so a
// demoted or disabled user does not keep old privileges.
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !s.decode(w, r, &req) {
		return
	}
	userID, err := s.Tokens.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	user, err := services.GetUser(r.Context(), s.DB, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !user.Active {
		WriteError(w, http.StatusForbidden, "User account is disabled")
		return
	}
	s.issueTokens(w, r, user, "Token refreshed")
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if !s.decode(w, r, &req) {
		return
	}
	user, err := services.RegisterUser(r.Context(), s.DB, s.Tokens, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.publish("user.registered", user.ID, user.Username, r)
	WriteJSON(w, http.StatusCreated, UserResponse{Message: "User registered successfully", User: user})
}

func (s *Server) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := services.GetUser(r.Context(), s.DB, CurrentIdentity(r).UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, UserResponse{User: user})
}

func (s *Server) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req services.ProfileInput
	if !s.decode(w, r, &req) {
		return
	}
	user, err := services.UpdateProfile(r.Context(), s.DB, CurrentIdentity(r).UserID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, UserResponse{Message: "Profile updated successfully", User: user})
}

func (s *Server) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req services.ChangePasswordInput
	if !s.decode(w, r, &req) {
		return
	}
	if err := services.ChangePassword(r.Context(), s.DB, s.Tokens, CurrentIdentity(r).UserID, req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}
