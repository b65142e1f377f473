package httpapi

import (
	"net/http"

	"siaf-backend/internal/models"
	"siaf-backend/internal/query"
	"siaf-backend/internal/services"
)

type MaintenanceListResponse struct {
	Maintenances []models.Maintenance `json:"maintenances"`
	Pagination   query.Pagination     `json:"pagination"`
}

type MaintenanceResponse struct {
	Message     string             `json:"message,omitempty"`
	Maintenance models.Maintenance `json:"maintenance"`
}

type UpcomingResponse struct {
	Days         int                  `json:"days"`
	Maintenances []models.Maintenance `json:"maintenances"`
}

func (s *Server) ListMaintenances(w http.ResponseWriter, r *http.Request) {
	items, pagination, err := services.ListMaintenances(r.Context(), s.DB, r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, MaintenanceListResponse{Maintenances: items, Pagination: pagination})
}

func (s *Server) GetMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := services.GetMaintenance(r.Context(), s.DB, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, MaintenanceResponse{Maintenance: item})
}

func (s *Server) CreateMaintenance(w http.ResponseWriter, r *http.Request) {
	var req services.MaintenanceInput
	if !s.decode(w, r, &req) {
		return
	}
	item, err := services.CreateMaintenance(r.Context(), s.DB, s.Codes, CurrentIdentity(r).UserID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.publish("maintenance.created", item.ID, item.MaintenanceCode, r)
	WriteJSON(w, http.StatusCreated, MaintenanceResponse{Message: "Maintenance scheduled successfully", Maintenance: item})
}

func (s *Server) UpdateMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req services.MaintenanceInput
	if !s.decode(w, r, &req) {
		return
	}
	item, err := services.UpdateMaintenance(r.Context(), s.DB, id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, MaintenanceResponse{Message: "Maintenance updated successfully", Maintenance: item})
}

func (s *Server) DeleteMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := services.DeleteMaintenance(r.Context(), s.DB, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, MessageResponse{Message: "Maintenance deleted successfully"})
}

func (s *Server) StartMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := services.StartMaintenance(r.Context(), s.DB, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.publish("maintenance.started", item.ID, item.MaintenanceCode, r)
	WriteJSON(w, http.StatusOK, MaintenanceResponse{Message: "Maintenance started", Maintenance: item})
}

func (s *Server) CompleteMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req services.CompleteMaintenanceInput
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	item, err := services.CompleteMaintenance(r.Context(), s.DB, id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.publish("maintenance.completed", item.ID, item.MaintenanceCode, r)
	WriteJSON(w, http.StatusOK, MaintenanceResponse{Message: "Maintenance completed successfully", Maintenance: item})
}

func (s *Server) UpcomingMaintenances(w http.ResponseWriter, r *http.Request) {
	days := parseInt(r.URL.Query().Get("days"), 7)
	if days < 1 {
		days = 7
	}
	if days > 365 {
		days = 365
	}
	items, err := services.UpcomingMaintenances(r.Context(), s.DB, days)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, UpcomingResponse{Days: days, Maintenances: items})
}

func (s *Server) MaintenanceStats(w http.ResponseWriter, r *http.Request) {
	stats, err := services.MaintenanceStats(r.Context(), s.DB)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, StatsResponse{Stats: stats})
}
