package httpapi

import (
	"net/http"

	"siaf-backend/internal/models"
	"siaf-backend/internal/query"
	"siaf-backend/internal/services"
)

type RequisitionListResponse struct {
	Requisitions []models.Requisition `json:"requisitions"`
	Pagination   query.Pagination     `json:"pagination"`
}

type RequisitionResponse struct {
	Message     string             `json:"message,omitempty"`
	Requisition models.Requisition `json:"requisition"`
}

func (s *Server) ListRequisitions(w http.ResponseWriter, r *http.Request) {
	requisitions, pagination, err := services.ListRequisitions(r.Context(), s.DB, r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, RequisitionListResponse{Requisitions: requisitions, Pagination: pagination})
}

func (s *Server) GetRequisition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	requisition, err := services.GetRequisition(r.Context(), s.DB, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, RequisitionResponse{Requisition: requisition})
}

func (s *Server) CreateRequisition(w http.ResponseWriter, r *http.Request) {
	var req services.RequisitionInput
	if !s.decode(w, r, &req) {
		return
	}
	requisition, err := services.CreateRequisition(r.Context(), s.DB, s.Codes, CurrentIdentity(r).UserID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.publish("requisition.created", requisition.ID, requisition.RequisitionCode, r)
	WriteJSON(w, http.StatusCreated, RequisitionResponse{Message: "Requisition created successfully", Requisition: requisition})
}

func (s *Server) UpdateRequisition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req services.RequisitionInput
	if !s.decode(w, r, &req) {
		return
	}
	requisition, err := services.UpdateRequisition(r.Context(), s.DB, id, CurrentIdentity(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, RequisitionResponse{Message: "Requisition updated successfully", Requisition: requisition})
}

func (s *Server) DeleteRequisition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := services.DeleteRequisition(r.Context(), s.DB, id, CurrentIdentity(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, MessageResponse{Message: "Requisition deleted successfully"})
}

func (s *Server) ApproveRequisition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req services.ApproveRequisitionInput
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}
	requisition, err := services.ApproveRequisition(r.Context(), s.DB, id, CurrentIdentity(r).UserID, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.publish("requisition.approved", requisition.ID, requisition.RequisitionCode, r)
	WriteJSON(w, http.StatusOK, RequisitionResponse{Message: "Requisition approved successfully", Requisition: requisition})
}

func (s *Server) RejectRequisition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	requisition, err := services.RejectRequisition(r.Context(), s.DB, id, CurrentIdentity(r).UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.publish("requisition.rejected", requisition.ID, requisition.RequisitionCode, r)
	WriteJSON(w, http.StatusOK, RequisitionResponse{Message: "Requisition rejected", Requisition: requisition})
}

func (s *Server) CompleteRequisition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	requisition, err := services.CompleteRequisition(r.Context(), s.DB, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.publish("requisition.completed", requisition.ID, requisition.RequisitionCode, r)
	WriteJSON(w, http.StatusOK, RequisitionResponse{Message: "Requisition completed successfully", Requisition: requisition})
}

func (s *Server) RequisitionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := services.RequisitionStats(r.Context(), s.DB)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, StatsResponse{Stats: stats})
}
