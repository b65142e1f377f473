package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"siaf-backend/internal/codes"
	dbpkg "siaf-backend/internal/db"
	"siaf-backend/internal/models"
	"siaf-backend/internal/query"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const requisitionSelect = `r.id, r.requisition_code, r.title, r.description, r.department, r.priority, r.status,
       r.requested_by, r.approved_by, r.approved_date, r.estimated_cost, r.approved_cost, r.justification,
       r.created_at, r.updated_at, u.full_name AS requested_by_name`

const requisitionFrom = `requisitions r
LEFT JOIN users u ON u.id = r.requested_by`

var requisitionList = query.Spec{
	Select: requisitionSelect,
	From:   requisitionFrom,
	Filters: []query.Filter{
		{Param: "status", Column: "r.status"},
		{Param: "department", Column: "r.department", Style: query.Like},
		{Param: "priority", Column: "r.priority"},
		{Param: "requested_by", Column: "r.requested_by", Kind: query.Int},
		{Param: "search", Column: "r.title", Style: query.Like, Also: []string{"r.requisition_code"}},
		{Param: "date_from", Column: "r.created_at", Style: query.DateFrom},
		{Param: "date_to", Column: "r.created_at", Style: query.DateTo},
	},
	OrderBy: "r.created_at DESC, r.id DESC",
}

type RequisitionItemInput struct {
	Description        string          `json:"description" validate:"required,max=255"`
	Quantity           int             `json:"quantity" validate:"required,gt=0"`
	Unit               *string         `json:"unit" validate:"omitempty,max=30"`
	EstimatedUnitPrice decimal.Decimal `json:"estimated_unit_price"`
}

type RequisitionInput struct {
	Title         string                 `json:"title" validate:"required,max=200"`
	Description   *string                `json:"description"`
	Department    *string                `json:"department" validate:"omitempty,max=100"`
	Priority      string                 `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Justification *string                `json:"justification"`
	Items         []RequisitionItemInput `json:"items" validate:"required,min=1,dive"`
}

type ApproveRequisitionInput struct {
	ApprovedCost decimal.NullDecimal `json:"approved_cost"`
}

// lineTotals prices every item and returns the requisition's estimated cost.
func (in RequisitionInput) lineTotals() ([]decimal.Decimal, decimal.Decimal, error) {
	totals := make([]decimal.Decimal, len(in.Items))
	sum := decimal.Zero
	var problems []FieldError
	for i, item := range in.Items {
		if item.EstimatedUnitPrice.IsNegative() {
			problems = append(problems, FieldError{Field: fmt.Sprintf("items[%d].estimated_unit_price", i), Message: "must not be negative"})
			continue
		}
		totals[i] = item.EstimatedUnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		sum = sum.Add(totals[i])
	}
	if len(problems) > 0 {
		return nil, decimal.Zero, ValidationError{Errors: problems}
	}
	return totals, sum, nil
}

func ListRequisitions(ctx context.Context, db *sqlx.DB, values query.Values) ([]models.Requisition, query.Pagination, error) {
	built, err := requisitionList.Build(values, query.ParsePage(values))
	if err != nil {
		return nil, query.Pagination{}, filterError(err)
	}
	requisitions := []models.Requisition{}
	pagination, err := query.Fetch(ctx, db, built, &requisitions)
	if err != nil {
		return nil, query.Pagination{}, WrapError(err, "list requisitions")
	}
	return requisitions, pagination, nil
}

// GetRequisition loads the header together with its items.
func GetRequisition(ctx context.Context, db sqlx.QueryerContext, id int64) (models.Requisition, error) {
	var requisition models.Requisition
	err := sqlx.GetContext(ctx, db, &requisition, `SELECT `+requisitionSelect+` FROM `+requisitionFrom+` WHERE r.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Requisition{}, ErrNotFound("Requisition not found")
	}
	if err != nil {
		return models.Requisition{}, WrapError(err, "get requisition")
	}
	items := []models.RequisitionItem{}
	err = sqlx.SelectContext(ctx, db, &items, `
SELECT id, requisition_id, description, quantity, unit, estimated_unit_price, total_price
FROM requisition_items WHERE requisition_id = $1 ORDER BY id ASC`, id)
	if err != nil {
		return models.Requisition{}, WrapError(err, "list requisition items")
	}
	requisition.Items = items
	return requisition, nil
}

func insertItems(ctx context.Context, tx *sqlx.Tx, requisitionID int64, items []RequisitionItemInput, totals []decimal.Decimal) error {
	for i, item := range items {
		_, err := tx.ExecContext(ctx, `
INSERT INTO requisition_items (requisition_id, description, quantity, unit, estimated_unit_price, total_price)
VALUES ($1,$2,$3,$4,$5,$6)
`, requisitionID, strings.TrimSpace(item.Description), item.Quantity, trimmed(item.Unit), item.EstimatedUnitPrice, totals[i])
		if err != nil {
			return WrapError(err, "insert requisition item")
		}
	}
	return nil
}

// CreateRequisition writes the header and its items in one transaction.
func CreateRequisition(ctx context.Context, db *sqlx.DB, gen *codes.Generator, requester int64, in RequisitionInput) (models.Requisition, error) {
	totals, estimated, err := in.lineTotals()
	if err != nil {
		return models.Requisition{}, err
	}
	code, err := newCode(ctx, db, gen, codes.Requisition, "requisitions", "requisition_code")
	if err != nil {
		return models.Requisition{}, err
	}
	priority := in.Priority
	if priority == "" {
		priority = "medium"
	}
	now := time.Now().UTC()
	var id int64
	err = dbpkg.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &id, `
INSERT INTO requisitions (requisition_code, title, description, department, priority, status, requested_by,
  estimated_cost, justification, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,'pending',$6,$7,$8,$9,$9)
RETURNING id
`, code, strings.TrimSpace(in.Title), trimmed(in.Description), trimmed(in.Department), priority, requester,
			estimated, trimmed(in.Justification), now)
		if err != nil {
			return storeError(err, "insert requisition", "Requisition code collision, please retry")
		}
		return insertItems(ctx, tx, id, in.Items, totals)
	})
	if err != nil {
		return models.Requisition{}, err
	}
	return GetRequisition(ctx, db, id)
}

// checkRequester lets admins change any requisition and users only their own.
func checkRequester(ctx context.Context, db *sqlx.DB, id int64, actor Identity) error {
	if actor.IsAdmin() {
		return nil
	}
	var requestedBy int64
	err := db.GetContext(ctx, &requestedBy, `SELECT requested_by FROM requisitions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound("Requisition not found")
	}
	if err != nil {
		return WrapError(err, "load requisition requester")
	}
	if requestedBy != actor.UserID {
		return ErrForbidden("Only the requester or an admin can change this requisition")
	}
	return nil
}

// UpdateRequisition edits a pending requisition and replaces its items.
func UpdateRequisition(ctx context.Context, db *sqlx.DB, id int64, actor Identity, in RequisitionInput) (models.Requisition, error) {
	totals, estimated, err := in.lineTotals()
	if err != nil {
		return models.Requisition{}, err
	}
	if err := checkRequester(ctx, db, id, actor); err != nil {
		return models.Requisition{}, err
	}
	priority := in.Priority
	if priority == "" {
		priority = "medium"
	}
	err = dbpkg.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE requisitions
SET title = $2, description = $3, department = $4, priority = $5, estimated_cost = $6, justification = $7,
    updated_at = $8
WHERE id = $1 AND status = 'pending'
`, id, strings.TrimSpace(in.Title), trimmed(in.Description), trimmed(in.Department), priority, estimated,
			trimmed(in.Justification), time.Now().UTC())
		if err != nil {
			return WrapError(err, "update requisition")
		}
		if err := requireTransition(ctx, tx, res, "requisitions", id, "Requisition not found", "Only pending requisitions can be edited"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM requisition_items WHERE requisition_id = $1`, id); err != nil {
			return WrapError(err, "clear requisition items")
		}
		return insertItems(ctx, tx, id, in.Items, totals)
	})
	if err != nil {
		return models.Requisition{}, err
	}
	return GetRequisition(ctx, db, id)
}

// DeleteRequisition removes a pending requisition; its items cascade.
func DeleteRequisition(ctx context.Context, db *sqlx.DB, id int64, actor Identity) error {
	if err := checkRequester(ctx, db, id, actor); err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM requisitions WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return WrapError(err, "delete requisition")
	}
	if err := requireTransition(ctx, db, res, "requisitions", id, "Requisition not found", "Only pending requisitions can be deleted"); err != nil {
		return err
	}
	return nil
}

// ApproveRequisition defaults approved_cost to the estimate when none is given.
func ApproveRequisition(ctx context.Context, db *sqlx.DB, id int64, approver int64, in ApproveRequisitionInput) (models.Requisition, error) {
	if in.ApprovedCost.Valid && in.ApprovedCost.Decimal.IsNegative() {
		return models.Requisition{}, ValidationError{Errors: []FieldError{{Field: "approved_cost", Message: "must not be negative"}}}
	}
	now := time.Now().UTC()
	res, err := db.ExecContext(ctx, `
UPDATE requisitions
SET status = 'approved', approved_by = $2, approved_date = $3, approved_cost = COALESCE($4, estimated_cost),
    updated_at = $3
WHERE id = $1 AND status = 'pending'
`, id, approver, now, in.ApprovedCost)
	if err != nil {
		return models.Requisition{}, WrapError(err, "approve requisition")
	}
	if err := requireTransition(ctx, db, res, "requisitions", id, "Requisition not found", "Only pending requisitions can be approved"); err != nil {
		return models.Requisition{}, err
	}
	return GetRequisition(ctx, db, id)
}

func RejectRequisition(ctx context.Context, db *sqlx.DB, id int64, approver int64) (models.Requisition, error) {
	now := time.Now().UTC()
	res, err := db.ExecContext(ctx, `
UPDATE requisitions
SET status = 'rejected', approved_by = $2, approved_date = $3, updated_at = $3
WHERE id = $1 AND status = 'pending'
`, id, approver, now)
	if err != nil {
		return models.Requisition{}, WrapError(err, "reject requisition")
	}
	if err := requireTransition(ctx, db, res, "requisitions", id, "Requisition not found", "Only pending requisitions can be rejected"); err != nil {
		return models.Requisition{}, err
	}
	return GetRequisition(ctx, db, id)
}

func CompleteRequisition(ctx context.Context, db *sqlx.DB, id int64) (models.Requisition, error) {
	res, err := db.ExecContext(ctx, `
UPDATE requisitions SET status = 'completed', updated_at = $2
WHERE id = $1 AND status = 'approved'
`, id, time.Now().UTC())
	if err != nil {
		return models.Requisition{}, WrapError(err, "complete requisition")
	}
	if err := requireTransition(ctx, db, res, "requisitions", id, "Requisition not found", "Only approved requisitions can be completed"); err != nil {
		return models.Requisition{}, err
	}
	return GetRequisition(ctx, db, id)
}

func RequisitionStats(ctx context.Context, db *sqlx.DB) (map[string]interface{}, error) {
	return Gather(ctx,
		CountQuery(db, "total", `SELECT count(*) FROM requisitions`),
		GroupQuery(db, "byStatus", `SELECT status AS key, count(*) AS count FROM requisitions GROUP BY status`),
		GroupQuery(db, "byPriority", `SELECT priority AS key, count(*) AS count FROM requisitions GROUP BY priority`),
		CountQuery(db, "pending", `SELECT count(*) FROM requisitions WHERE status = 'pending'`),
		DecimalQuery(db, "totalEstimated", `SELECT SUM(estimated_cost) FROM requisitions`),
		DecimalQuery(db, "totalApproved", `SELECT SUM(approved_cost) FROM requisitions WHERE status IN ('approved', 'completed')`),
	)
}
