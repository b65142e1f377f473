package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"siaf-backend/internal/codes"
	"siaf-backend/internal/models"
	"siaf-backend/internal/query"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const maintenanceSelect = `m.id, m.maintenance_code, m.asset_id, m.type, m.title, m.description, m.scheduled_date,
       m.completed_date, m.status, m.technician_id, m.cost, m.supplier, m.notes, m.created_by,
       m.created_at, m.updated_at, a.name AS asset_name, a.asset_code, t.full_name AS technician_name`

const maintenanceFrom = `maintenances m
JOIN assets a ON a.id = m.asset_id
LEFT JOIN users t ON t.id = m.technician_id`

var maintenanceList = query.Spec{
	Select: maintenanceSelect,
	From:   maintenanceFrom,
	Filters: []query.Filter{
		{Param: "status", Column: "m.status"},
		{Param: "type", Column: "m.type"},
		{Param: "asset_id", Column: "m.asset_id", Kind: query.Int},
		{Param: "technician_id", Column: "m.technician_id", Kind: query.Int},
		{Param: "search", Column: "m.title", Style: query.Like, Also: []string{"m.maintenance_code"}},
		{Param: "date_from", Column: "m.scheduled_date", Style: query.DateFrom},
		{Param: "date_to", Column: "m.scheduled_date", Style: query.DateTo},
	},
	OrderBy: "m.scheduled_date DESC, m.id DESC",
}

type MaintenanceInput struct {
	AssetID       int64               `json:"asset_id" validate:"required,gt=0"`
	Type          string              `json:"type" validate:"required,oneof=preventive corrective predictive"`
	Title         string              `json:"title" validate:"required,max=200"`
	Description   *string             `json:"description"`
	ScheduledDate *Date               `json:"scheduled_date" validate:"required"`
	TechnicianID  *int64              `json:"technician_id" validate:"omitempty,gt=0"`
	Cost          decimal.NullDecimal `json:"cost"`
	Supplier      *string             `json:"supplier" validate:"omitempty,max=150"`
	Notes         *string             `json:"notes"`
}

type CompleteMaintenanceInput struct {
	Cost  decimal.NullDecimal `json:"cost"`
	Notes *string             `json:"notes"`
}

func checkCost(cost decimal.NullDecimal) error {
	if cost.Valid && cost.Decimal.IsNegative() {
		return ValidationError{Errors: []FieldError{{Field: "cost", Message: "must not be negative"}}}
	}
	return nil
}

func ListMaintenances(ctx context.Context, db *sqlx.DB, values query.Values) ([]models.Maintenance, query.Pagination, error) {
	built, err := maintenanceList.Build(values, query.ParsePage(values))
	if err != nil {
		return nil, query.Pagination{}, filterError(err)
	}
	items := []models.Maintenance{}
	pagination, err := query.Fetch(ctx, db, built, &items)
	if err != nil {
		return nil, query.Pagination{}, WrapError(err, "list maintenances")
	}
	return items, pagination, nil
}

func GetMaintenance(ctx context.Context, db sqlx.QueryerContext, id int64) (models.Maintenance, error) {
	var item models.Maintenance
	err := sqlx.GetContext(ctx, db, &item, `SELECT `+maintenanceSelect+` FROM `+maintenanceFrom+` WHERE m.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Maintenance{}, ErrNotFound("Maintenance not found")
	}
	if err != nil {
		return models.Maintenance{}, WrapError(err, "get maintenance")
	}
	return item, nil
}

func assetExists(ctx context.Context, db sqlx.QueryerContext, id int64) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, db, &exists, `SELECT EXISTS(SELECT 1 FROM assets WHERE id = $1)`, id)
	return exists, err
}

func CreateMaintenance(ctx context.Context, db *sqlx.DB, gen *codes.Generator, createdBy int64, in MaintenanceInput) (models.Maintenance, error) {
	if err := checkCost(in.Cost); err != nil {
		return models.Maintenance{}, err
	}
	exists, err := assetExists(ctx, db, in.AssetID)
	if err != nil {
		return models.Maintenance{}, WrapError(err, "check asset")
	}
	if !exists {
		return models.Maintenance{}, ErrNotFound("Asset not found")
	}
	code, err := newCode(ctx, db, gen, codes.Maintenance, "maintenances", "maintenance_code")
	if err != nil {
		return models.Maintenance{}, err
	}
	now := time.Now().UTC()
	var id int64
	err = db.GetContext(ctx, &id, `
INSERT INTO maintenances (maintenance_code, asset_id, type, title, description, scheduled_date, status,
  technician_id, cost, supplier, notes, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,'scheduled',$7,$8,$9,$10,$11,$12,$12)
RETURNING id
`, code, in.AssetID, in.Type, strings.TrimSpace(in.Title), trimmed(in.Description), in.ScheduledDate.Ptr(),
		in.TechnicianID, in.Cost, trimmed(in.Supplier), trimmed(in.Notes), createdBy, now)
	if err != nil {
		return models.Maintenance{}, storeError(err, "insert maintenance", "Maintenance code collision, please retry")
	}
	return GetMaintenance(ctx, db, id)
}

// UpdateMaintenance edits a maintenance that is not completed yet.
func UpdateMaintenance(ctx context.Context, db *sqlx.DB, id int64, in MaintenanceInput) (models.Maintenance, error) {
	if err := checkCost(in.Cost); err != nil {
		return models.Maintenance{}, err
	}
	res, err := db.ExecContext(ctx, `
UPDATE maintenances
SET asset_id = $2, type = $3, title = $4, description = $5, scheduled_date = $6, technician_id = $7,
    cost = $8, supplier = $9, notes = $10, updated_at = $11
WHERE id = $1 AND status <> 'completed'
`, id, in.AssetID, in.Type, strings.TrimSpace(in.Title), trimmed(in.Description), in.ScheduledDate.Ptr(),
		in.TechnicianID, in.Cost, trimmed(in.Supplier), trimmed(in.Notes), time.Now().UTC())
	if err != nil {
		return models.Maintenance{}, WrapError(err, "update maintenance")
	}
	if err := requireTransition(ctx, db, res, "maintenances", id, "Maintenance not found", "Completed maintenances cannot be edited"); err != nil {
		return models.Maintenance{}, err
	}
	return GetMaintenance(ctx, db, id)
}

// DeleteMaintenance removes a maintenance that never started.
func DeleteMaintenance(ctx context.Context, db *sqlx.DB, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM maintenances WHERE id = $1 AND status = 'scheduled'`, id)
	if err != nil {
		return WrapError(err, "delete maintenance")
	}
	if err := requireTransition(ctx, db, res, "maintenances", id, "Maintenance not found", "Only scheduled maintenances can be deleted"); err != nil {
		return err
	}
	return nil
}

// StartMaintenance only succeeds from scheduled.
func StartMaintenance(ctx context.Context, db *sqlx.DB, id int64) (models.Maintenance, error) {
	res, err := db.ExecContext(ctx, `
UPDATE maintenances SET status = 'in_progress', updated_at = $2
WHERE id = $1 AND status = 'scheduled'
`, id, time.Now().UTC())
	if err != nil {
		return models.Maintenance{}, WrapError(err, "start maintenance")
	}
	if err := requireTransition(ctx, db, res, "maintenances", id, "Maintenance not found", "Maintenance is not scheduled"); err != nil {
		return models.Maintenance{}, err
	}
	return GetMaintenance(ctx, db, id)
}

// CompleteMaintenance succeeds from scheduled or in_progress and stamps
// completed_date. Completing twice is a conflict.
func CompleteMaintenance(ctx context.Context, db *sqlx.DB, id int64, in CompleteMaintenanceInput) (models.Maintenance, error) {
	if err := checkCost(in.Cost); err != nil {
		return models.Maintenance{}, err
	}
	now := time.Now().UTC()
	res, err := db.ExecContext(ctx, `
UPDATE maintenances
SET status = 'completed', completed_date = $2, cost = COALESCE($3, cost), notes = COALESCE($4, notes), updated_at = $2
WHERE id = $1 AND status IN ('scheduled', 'in_progress')
`, id, now, in.Cost, trimmed(in.Notes))
	if err != nil {
		return models.Maintenance{}, WrapError(err, "complete maintenance")
	}
	if err := requireTransition(ctx, db, res, "maintenances", id, "Maintenance not found", "Maintenance is already completed"); err != nil {
		return models.Maintenance{}, err
	}
	return GetMaintenance(ctx, db, id)
}

// UpcomingMaintenances lists scheduled work due within the next days.
func UpcomingMaintenances(ctx context.Context, db *sqlx.DB, days int) ([]models.Maintenance, error) {
	if days < 1 {
		days = 7
	}
	now := time.Now().UTC()
	items := []models.Maintenance{}
	err := db.SelectContext(ctx, &items, `SELECT `+maintenanceSelect+` FROM `+maintenanceFrom+`
WHERE m.status = 'scheduled' AND m.scheduled_date BETWEEN $1 AND $2
ORDER BY m.scheduled_date ASC, m.id ASC`, now, now.AddDate(0, 0, days))
	if err != nil {
		return nil, WrapError(err, "upcoming maintenances")
	}
	return items, nil
}

func MaintenanceStats(ctx context.Context, db *sqlx.DB) (map[string]interface{}, error) {
	return Gather(ctx,
		CountQuery(db, "total", `SELECT count(*) FROM maintenances`),
		GroupQuery(db, "byStatus", `SELECT status AS key, count(*) AS count FROM maintenances GROUP BY status`),
		GroupQuery(db, "byType", `SELECT type AS key, count(*) AS count FROM maintenances GROUP BY type`),
		CountQuery(db, "overdue", `SELECT count(*) FROM maintenances WHERE status = 'scheduled' AND scheduled_date < now()`),
		DecimalQuery(db, "totalCost", `SELECT SUM(cost) FROM maintenances WHERE status = 'completed'`),
		DecimalQuery(db, "costThisYear", `
SELECT SUM(cost) FROM maintenances
WHERE status = 'completed' AND completed_date >= date_trunc('year', CURRENT_DATE)`),
	)
}
