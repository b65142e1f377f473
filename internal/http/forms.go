package httpapi

import (
	"net/http"

	"siaf-backend/internal/models"
	"siaf-backend/internal/query"
	"siaf-backend/internal/services"
)

type FormListResponse struct {
	Forms      []models.ResponsiveForm `json:"forms"`
	Pagination query.Pagination        `json:"pagination"`
}

type FormResponse struct {
	Message string                `json:"message,omitempty"`
	Form    models.ResponsiveForm `json:"form"`
}

func (s *Server) ListForms(w http.ResponseWriter, r *http.Request) {
	forms, pagination, err := services.ListForms(r.Context(), s.DB, r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, FormListResponse{Forms: forms, Pagination: pagination})
}

func (s *Server) GetForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	form, err := services.GetForm(r.Context(), s.DB, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, FormResponse{Form: form})
}

func (s *Server) CreateForm(w http.ResponseWriter, r *http.Request) {
	var req services.FormInput
	if !s.decode(w, r, &req) {
		return
	}
	form, err := services.CreateForm(r.Context(), s.DB, s.Codes, CurrentIdentity(r).UserID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.publish("form.created", form.ID, form.FormCode, r)
	WriteJSON(w, http.StatusCreated, FormResponse{Message: "Responsive form created successfully", Form: form})
}

func (s *Server) ApproveForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	form, err := services.ApproveForm(r.Context(), s.DB, id, CurrentIdentity(r).UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.publish("form.approved", form.ID, form.FormCode, r)
	WriteJSON(w, http.StatusOK, FormResponse{Message: "Responsive form approved successfully", Form: form})
}

func (s *Server) RejectForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	form, err := services.RejectForm(r.Context(), s.DB, id, CurrentIdentity(r).UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.publish("form.rejected", form.ID, form.FormCode, r)
	WriteJSON(w, http.StatusOK, FormResponse{Message: "Responsive form rejected", Form: form})
}

func (s *Server) FormStats(w http.ResponseWriter, r *http.Request) {
	stats, err := services.FormStats(r.Context(), s.DB)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, StatsResponse{Stats: stats})
}
