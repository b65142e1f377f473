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
)

const incidentSelect = `i.id, i.incident_code, i.title, i.description, i.asset_id, i.priority, i.status,
       i.reported_by, i.assigned_to, i.reported_date, i.resolved_date, i.solution, i.created_at, i.updated_at,
       a.name AS asset_name, a.asset_code, rb.full_name AS reported_by_name, au.full_name AS assigned_to_name`

const incidentFrom = `incidents i
LEFT JOIN assets a ON a.id = i.asset_id
LEFT JOIN users rb ON rb.id = i.reported_by
LEFT JOIN users au ON au.id = i.assigned_to`

var incidentList = query.Spec{
	Select: incidentSelect,
	From:   incidentFrom,
	Filters: []query.Filter{
		{Param: "status", Column: "i.status"},
		{Param: "priority", Column: "i.priority"},
		{Param: "asset_id", Column: "i.asset_id", Kind: query.Int},
		{Param: "assigned_to", Column: "i.assigned_to", Kind: query.Int},
		{Param: "reported_by", Column: "i.reported_by", Kind: query.Int},
		{Param: "search", Column: "i.title", Style: query.Like, Also: []string{"i.incident_code"}},
		{Param: "date_from", Column: "i.reported_date", Style: query.DateFrom},
		{Param: "date_to", Column: "i.reported_date", Style: query.DateTo},
	},
	OrderBy: "i.reported_date DESC, i.id DESC",
}

// Statuses from which work on an incident can still happen.
const incidentActive = `('open', 'assigned', 'in_progress')`

type IncidentInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
	AssetID     *int64 `json:"asset_id" validate:"omitempty,gt=0"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high critical"`
}

type IncidentUpdateInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
	AssetID     *int64 `json:"asset_id" validate:"omitempty,gt=0"`
	Priority    string `json:"priority" validate:"required,oneof=low medium high critical"`
}

type AssignInput struct {
	AssignedTo int64 `json:"assigned_to" validate:"required,gt=0"`
}

type ResolveInput struct {
	Solution string `json:"solution" validate:"required"`
}

func ListIncidents(ctx context.Context, db *sqlx.DB, values query.Values) ([]models.Incident, query.Pagination, error) {
	built, err := incidentList.Build(values, query.ParsePage(values))
	if err != nil {
		return nil, query.Pagination{}, filterError(err)
	}
	incidents := []models.Incident{}
	pagination, err := query.Fetch(ctx, db, built, &incidents)
	if err != nil {
		return nil, query.Pagination{}, WrapError(err, "list incidents")
	}
	return incidents, pagination, nil
}

func GetIncident(ctx context.Context, db sqlx.QueryerContext, id int64) (models.Incident, error) {
	var incident models.Incident
	err := sqlx.GetContext(ctx, db, &incident, `SELECT `+incidentSelect+` FROM `+incidentFrom+` WHERE i.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Incident{}, ErrNotFound("Incident not found")
	}
	if err != nil {
		return models.Incident{}, WrapError(err, "get incident")
	}
	return incident, nil
}

// CreateIncident opens a new incident reported by reporter. resolved_date
// starts out null.
func CreateIncident(ctx context.Context, db *sqlx.DB, gen *codes.Generator, reporter int64, in IncidentInput) (models.Incident, error) {
	code, err := newCode(ctx, db, gen, codes.Incident, "incidents", "incident_code")
	if err != nil {
		return models.Incident{}, err
	}
	priority := in.Priority
	if priority == "" {
		priority = "medium"
	}
	now := time.Now().UTC()
	var id int64
	err = db.GetContext(ctx, &id, `
INSERT INTO incidents (incident_code, title, description, asset_id, priority, status, reported_by, reported_date, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,'open',$6,$7,$7,$7)
RETURNING id
`, code, strings.TrimSpace(in.Title), strings.TrimSpace(in.Description), in.AssetID, priority, reporter, now)
	if err != nil {
		return models.Incident{}, storeError(err, "insert incident", "Incident code collision, please retry")
	}
	return GetIncident(ctx, db, id)
}

// UpdateIncident edits the descriptive fields of an incident that is still
// being worked on. Status only moves through assign, start, resolve and close.
func UpdateIncident(ctx context.Context, db *sqlx.DB, id int64, in IncidentUpdateInput) (models.Incident, error) {
	res, err := db.ExecContext(ctx, `
UPDATE incidents
SET title = $2, description = $3, asset_id = $4, priority = $5, updated_at = $6
WHERE id = $1 AND status IN `+incidentActive,
		id, strings.TrimSpace(in.Title), strings.TrimSpace(in.Description), in.AssetID, in.Priority, time.Now().UTC())
	if err != nil {
		return models.Incident{}, WrapError(err, "update incident")
	}
	if err := requireTransition(ctx, db, res, "incidents", id, "Incident not found", "Resolved or closed incidents cannot be edited"); err != nil {
		return models.Incident{}, err
	}
	return GetIncident(ctx, db, id)
}

func AssignIncident(ctx context.Context, db *sqlx.DB, id int64, in AssignInput) (models.Incident, error) {
	var active bool
	if err := db.GetContext(ctx, &active, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND active)`, in.AssignedTo); err != nil {
		return models.Incident{}, WrapError(err, "check assignee")
	}
	if !active {
		return models.Incident{}, ValidationError{Errors: []FieldError{{Field: "assigned_to", Message: "must be an active user"}}}
	}
	res, err := db.ExecContext(ctx, `
UPDATE incidents
SET assigned_to = $2,
    status = CASE WHEN status = 'open' THEN 'assigned' ELSE status END,
    updated_at = $3
WHERE id = $1 AND status IN `+incidentActive, id, in.AssignedTo, time.Now().UTC())
	if err != nil {
		return models.Incident{}, WrapError(err, "assign incident")
	}
	if err := requireTransition(ctx, db, res, "incidents", id, "Incident not found", "Incident is already resolved or closed"); err != nil {
		return models.Incident{}, err
	}
	return GetIncident(ctx, db, id)
}

// checkIncidentActor lets admins act on any incident and users only on the
// incidents assigned to them.
func checkIncidentActor(ctx context.Context, db *sqlx.DB, id int64, actor Identity) error {
	if actor.IsAdmin() {
		return nil
	}
	var assignedTo *int64
	err := db.GetContext(ctx, &assignedTo, `SELECT assigned_to FROM incidents WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound("Incident not found")
	}
	if err != nil {
		return WrapError(err, "load incident assignee")
	}
	if assignedTo == nil || *assignedTo != actor.UserID {
		return ErrForbidden("Only the assigned technician or an admin can change this incident")
	}
	return nil
}

func StartIncident(ctx context.Context, db *sqlx.DB, id int64, actor Identity) (models.Incident, error) {
	if err := checkIncidentActor(ctx, db, id, actor); err != nil {
		return models.Incident{}, err
	}
	res, err := db.ExecContext(ctx, `
UPDATE incidents SET status = 'in_progress', updated_at = $2
WHERE id = $1 AND status IN ('open', 'assigned')
`, id, time.Now().UTC())
	if err != nil {
		return models.Incident{}, WrapError(err, "start incident")
	}
	if err := requireTransition(ctx, db, res, "incidents", id, "Incident not found", "Incident cannot be started from its current status"); err != nil {
		return models.Incident{}, err
	}
	return GetIncident(ctx, db, id)
}

// ResolveIncident records the solution and stamps resolved_date. An incident
// that is already resolved or closed is a conflict.
func ResolveIncident(ctx context.Context, db *sqlx.DB, id int64, actor Identity, in ResolveInput) (models.Incident, error) {
	if err := checkIncidentActor(ctx, db, id, actor); err != nil {
		return models.Incident{}, err
	}
	now := time.Now().UTC()
	res, err := db.ExecContext(ctx, `
UPDATE incidents
SET status = 'resolved', solution = $2, resolved_date = COALESCE(resolved_date, $3), updated_at = $3
WHERE id = $1 AND status IN `+incidentActive, id, strings.TrimSpace(in.Solution), now)
	if err != nil {
		return models.Incident{}, WrapError(err, "resolve incident")
	}
	if err := requireTransition(ctx, db, res, "incidents", id, "Incident not found", "Incident is already resolved or closed"); err != nil {
		return models.Incident{}, err
	}
	return GetIncident(ctx, db, id)
}

func CloseIncident(ctx context.Context, db *sqlx.DB, id int64) (models.Incident, error) {
	now := time.Now().UTC()
	res, err := db.ExecContext(ctx, `
UPDATE incidents
SET status = 'closed', resolved_date = COALESCE(resolved_date, $2), updated_at = $2
WHERE id = $1 AND status = 'resolved'
`, id, now)
	if err != nil {
		return models.Incident{}, WrapError(err, "close incident")
	}
	if err := requireTransition(ctx, db, res, "incidents", id, "Incident not found", "Only resolved incidents can be closed"); err != nil {
		return models.Incident{}, err
	}
	return GetIncident(ctx, db, id)
}

const avgResolutionHoursSQL = `
SELECT AVG(EXTRACT(EPOCH FROM (resolved_date - reported_date)) / 3600)
FROM incidents
WHERE resolved_date IS NOT NULL`

func IncidentStats(ctx context.Context, db *sqlx.DB) (map[string]interface{}, error) {
	return Gather(ctx,
		CountQuery(db, "total", `SELECT count(*) FROM incidents`),
		GroupQuery(db, "byStatus", `SELECT status AS key, count(*) AS count FROM incidents GROUP BY status`),
		GroupQuery(db, "byPriority", `SELECT priority AS key, count(*) AS count FROM incidents GROUP BY priority`),
		CountQuery(db, "open", `SELECT count(*) FROM incidents WHERE status IN `+incidentActive),
		CountQuery(db, "criticalOpen", `SELECT count(*) FROM incidents WHERE priority = 'critical' AND status IN `+incidentActive),
		CountQuery(db, "resolvedThisMonth", `
SELECT count(*) FROM incidents
WHERE resolved_date >= date_trunc('month', CURRENT_DATE)`),
		DecimalQuery(db, "avgResolutionHours", avgResolutionHoursSQL),
	)
}
