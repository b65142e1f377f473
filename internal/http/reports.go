package httpapi

import (
	"context"
	"net/http"

	"siaf-backend/internal/query"
	"siaf-backend/internal/services"

	"github.com/jmoiron/sqlx"
)

type DashboardResponse struct {
	Dashboard map[string]interface{} `json:"dashboard"`
}

func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := services.Dashboard(r.Context(), s.DB)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, DashboardResponse{Dashboard: dashboard})
}

type reportFunc func(ctx context.Context, db *sqlx.DB, values query.Values) (services.Report, error)

// report renders {<key>: rows, pagination, summary}.
func (s *Server) report(key string, build reportFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := build(r.Context(), s.DB, r.URL.Query())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			key:          report.Rows,
			"pagination": report.Pagination,
			"summary":    report.Summary,
		})
	}
}

func (s *Server) AssetReport(w http.ResponseWriter, r *http.Request) {
	s.report("assets", services.AssetReport)(w, r)
}

func (s *Server) IncidentReport(w http.ResponseWriter, r *http.Request) {
	s.report("incidents", services.IncidentReport)(w, r)
}

func (s *Server) MaintenanceReport(w http.ResponseWriter, r *http.Request) {
	s.report("maintenances", services.MaintenanceReport)(w, r)
}

func (s *Server) FormReport(w http.ResponseWriter, r *http.Request) {
	s.report("forms", services.FormReport)(w, r)
}

func (s *Server) RequisitionReport(w http.ResponseWriter, r *http.Request) {
	s.report("requisitions", services.RequisitionReport)(w, r)
}
