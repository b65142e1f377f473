package httpapi

import (
	"net/http"

	"siaf-backend/internal/models"
	"siaf-backend/internal/query"
	"siaf-backend/internal/services"
)

type IncidentListResponse struct {
	Incidents  []models.Incident `json:"incidents"`
	Pagination query.Pagination  `json:"pagination"`
}

type IncidentResponse struct {
	Message  string          `json:"message,omitempty"`
	Incident models.Incident `json:"incident"`
}

func (s *Server) ListIncidents(w http.ResponseWriter, r *http.Request) {
	incidents, pagination, err := services.ListIncidents(r.Context(), s.DB, r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, IncidentListResponse{Incidents: incidents, Pagination: pagination})
}

func (s *Server) GetIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	incident, err := services.GetIncident(r.Context(), s.DB, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, IncidentResponse{Incident: incident})
}

func (s *Server) CreateIncident(w http.ResponseWriter, r *http.Request) {
	var req services.IncidentInput
	if !s.decode(w, r, &req) {
		return
	}
	incident, err := services.CreateIncident(r.Context(), s.DB, s.Codes, CurrentIdentity(r).UserID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.publish("incident.created", incident.ID, incident.IncidentCode, r)
	WriteJSON(w, http.StatusCreated, IncidentResponse{Message: "Incident created successfully", Incident: incident})
}

func (s *Server) UpdateIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req services.IncidentUpdateInput
	if !s.decode(w, r, &req) {
		return
	}
	incident, err := services.UpdateIncident(r.Context(), s.DB, id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.publish("incident.updated", incident.ID, incident.IncidentCode, r)
	WriteJSON(w, http.StatusOK, IncidentResponse{Message: "Incident updated successfully", Incident: incident})
}

func (s *Server) AssignIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req services.AssignInput
	if !s.decode(w, r, &req) {
		return
	}
	incident, err := services.AssignIncident(r.Context(), s.DB, id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.publish("incident.assigned", incident.ID, incident.IncidentCode, r)
	WriteJSON(w, http.StatusOK, IncidentResponse{Message: "Incident assigned successfully", Incident: incident})
}

func (s *Server) StartIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	incident, err := services.StartIncident(r.Context(), s.DB, id, CurrentIdentity(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.publish("incident.started", incident.ID, incident.IncidentCode, r)
	WriteJSON(w, http.StatusOK, IncidentResponse{Message: "Incident in progress", Incident: incident})
}

func (s *Server) ResolveIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req services.ResolveInput
	if !s.decode(w, r, &req) {
		return
	}
	incident, err := services.ResolveIncident(r.Context(), s.DB, id, CurrentIdentity(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.publish("incident.resolved", incident.ID, incident.IncidentCode, r)
	WriteJSON(w, http.StatusOK, IncidentResponse{Message: "Incident resolved successfully", Incident: incident})
}

func (s *Server) CloseIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	incident, err := services.CloseIncident(r.Context(), s.DB, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.publish("incident.closed", incident.ID, incident.IncidentCode, r)
	WriteJSON(w, http.StatusOK, IncidentResponse{Message: "Incident closed successfully", Incident: incident})
}

func (s *Server) IncidentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := services.IncidentStats(r.Context(), s.DB)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, StatsResponse{Stats: stats})
}
