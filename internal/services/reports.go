package services

import (
	"context"

	"siaf-backend/internal/models"
	"siaf-backend/internal/query"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Dashboard is the cross-entity aggregate batch.
func Dashboard(ctx context.Context, db *sqlx.DB) (map[string]interface{}, error) {
	return Gather(ctx,
		CountQuery(db, "totalAssets", `SELECT count(*) FROM assets`),
		GroupQuery(db, "assetsByStatus", `SELECT status AS key, count(*) AS count FROM assets GROUP BY status`),
		DecimalQuery(db, "assetValue", `SELECT SUM(purchase_price) FROM assets WHERE status <> 'inactive'`),
		CountQuery(db, "totalIncidents", `SELECT count(*) FROM incidents`),
		CountQuery(db, "openIncidents", `SELECT count(*) FROM incidents WHERE status IN `+incidentActive),
		GroupQuery(db, "incidentsByPriority", `SELECT priority AS key, count(*) AS count FROM incidents GROUP BY priority`),
		DecimalQuery(db, "avgResolutionHours", avgResolutionHoursSQL),
		CountQuery(db, "totalMaintenances", `SELECT count(*) FROM maintenances`),
		CountQuery(db, "scheduledMaintenances", `SELECT count(*) FROM maintenances WHERE status = 'scheduled'`),
		DecimalQuery(db, "maintenanceCost", `SELECT SUM(cost) FROM maintenances WHERE status = 'completed'`),
		CountQuery(db, "pendingForms", `SELECT count(*) FROM responsive_forms WHERE status = 'pending'`),
		CountQuery(db, "totalRequisitions", `SELECT count(*) FROM requisitions`),
		CountQuery(db, "pendingRequisitions", `SELECT count(*) FROM requisitions WHERE status = 'pending'`),
		DecimalQuery(db, "approvedRequisitionCost", `SELECT SUM(approved_cost) FROM requisitions WHERE status IN ('approved', 'completed')`),
		RowsQuery(db, "recentIncidents", func() interface{} { return &[]models.Incident{} },
			`SELECT `+incidentSelect+` FROM `+incidentFrom+` ORDER BY i.created_at DESC, i.id DESC LIMIT $1`, dashboardListSize),
		RowsQuery(db, "upcomingMaintenances", func() interface{} { return &[]models.Maintenance{} },
			`SELECT `+maintenanceSelect+` FROM `+maintenanceFrom+`
WHERE m.status = 'scheduled' AND m.scheduled_date >= CURRENT_DATE
ORDER BY m.scheduled_date ASC, m.id ASC LIMIT $1`, dashboardListSize),
	)
}

const dashboardListSize = 5

// Report is a filtered page of rows plus a summary of that page.
type Report struct {
	Rows       interface{}
	Pagination query.Pagination
	Summary    map[string]interface{}
}

func countBy[T any](rows []T, key func(T) string) map[string]int {
	counts := map[string]int{}
	for _, row := range rows {
		counts[key(row)]++
	}
	return counts
}

func sumDecimals[T any](rows []T, value func(T) decimal.NullDecimal) decimal.Decimal {
	sum := decimal.Zero
	for _, row := range rows {
		if v := value(row); v.Valid {
			sum = sum.Add(v.Decimal)
		}
	}
	return sum
}

// ResolutionHours averages reported-to-resolved time over the incidents that
// have been resolved. It is zero when none have.
func ResolutionHours(incidents []models.Incident) float64 {
	var total float64
	var n int
	for _, incident := range incidents {
		if incident.ResolvedDate == nil {
			continue
		}
		total += incident.ResolvedDate.Sub(incident.ReportedDate).Hours()
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

func AssetReport(ctx context.Context, db *sqlx.DB, values query.Values) (Report, error) {
	assets, pagination, err := ListAssets(ctx, db, values)
	if err != nil {
		return Report{}, err
	}
	return Report{Rows: assets, Pagination: pagination, Summary: map[string]interface{}{
		"count":    len(assets),
		"byStatus": countBy(assets, func(a models.Asset) string { return a.Status }),
		"byCategory": countBy(assets, func(a models.Asset) string {
			if a.CategoryName == nil {
				return "unassigned"
			}
			return *a.CategoryName
		}),
		"totalValue": sumDecimals(assets, func(a models.Asset) decimal.NullDecimal { return a.PurchasePrice }),
	}}, nil
}

func IncidentReport(ctx context.Context, db *sqlx.DB, values query.Values) (Report, error) {
	incidents, pagination, err := ListIncidents(ctx, db, values)
	if err != nil {
		return Report{}, err
	}
	return Report{Rows: incidents, Pagination: pagination, Summary: map[string]interface{}{
		"count":              len(incidents),
		"byStatus":           countBy(incidents, func(i models.Incident) string { return i.Status }),
		"byPriority":         countBy(incidents, func(i models.Incident) string { return i.Priority }),
		"avgResolutionHours": ResolutionHours(incidents),
	}}, nil
}

func MaintenanceReport(ctx context.Context, db *sqlx.DB, values query.Values) (Report, error) {
	items, pagination, err := ListMaintenances(ctx, db, values)
	if err != nil {
		return Report{}, err
	}
	return Report{Rows: items, Pagination: pagination, Summary: map[string]interface{}{
		"count":     len(items),
		"byStatus":  countBy(items, func(m models.Maintenance) string { return m.Status }),
		"byType":    countBy(items, func(m models.Maintenance) string { return m.Type }),
		"totalCost": sumDecimals(items, func(m models.Maintenance) decimal.NullDecimal { return m.Cost }),
	}}, nil
}

func FormReport(ctx context.Context, db *sqlx.DB, values query.Values) (Report, error) {
	forms, pagination, err := ListForms(ctx, db, values)
	if err != nil {
		return Report{}, err
	}
	return Report{Rows: forms, Pagination: pagination, Summary: map[string]interface{}{
		"count":    len(forms),
		"byStatus": countBy(forms, func(f models.ResponsiveForm) string { return f.Status }),
	}}, nil
}

func RequisitionReport(ctx context.Context, db *sqlx.DB, values query.Values) (Report, error) {
	requisitions, pagination, err := ListRequisitions(ctx, db, values)
	if err != nil {
		return Report{}, err
	}
	return Report{Rows: requisitions, Pagination: pagination, Summary: map[string]interface{}{
		"count":      len(requisitions),
		"byStatus":   countBy(requisitions, func(r models.Requisition) string { return r.Status }),
		"byPriority": countBy(requisitions, func(r models.Requisition) string { return r.Priority }),
		"totalEstimated": sumDecimals(requisitions, func(r models.Requisition) decimal.NullDecimal {
			return decimal.NewNullDecimal(r.EstimatedCost)
		}),
		"totalApproved": sumDecimals(requisitions, func(r models.Requisition) decimal.NullDecimal { return r.ApprovedCost }),
	}}, nil
}
