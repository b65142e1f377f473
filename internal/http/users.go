package httpapi

import (
	"net/http"

	"siaf-backend/internal/models"
	"siaf-backend/internal/query"
	"siaf-backend/internal/services"
)

type UserListResponse struct {
	Users      []models.User    `json:"users"`
	Pagination query.Pagination `json:"pagination"`
}

func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, pagination, err := services.ListUsers(r.Context(), s.DB, r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, UserListResponse{Users: users, Pagination: pagination})
}

func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := services.GetUser(r.Context(), s.DB, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, UserResponse{User: user})
}

func (s *Server) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req services.UserUpdateInput
	if !s.decode(w, r, &req) {
		return
	}
	if id == CurrentIdentity(r).UserID {
		if req.Active != nil && !*req.Active {
			WriteError(w, http.StatusBadRequest, "You cannot deactivate your own account")
			return
		}
		if req.Role != models.RoleAdmin {
			WriteError(w, http.StatusBadRequest, "You cannot change your own role")
			return
		}
	}
	user, err := services.UpdateUser(r.Context(), s.DB, id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, UserResponse{Message: "User updated successfully", User: user})
}

// DeleteUser deactivates the account. Admins cannot deactivate themselves.
func (s *Server) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if id == CurrentIdentity(r).UserID {
		WriteError(w, http.StatusBadRequest, "You cannot deactivate your own account")
		return
	}
	if err := services.DeactivateUser(r.Context(), s.DB, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, MessageResponse{Message: "User deactivated successfully"})
}
