package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"siaf-backend/internal/codes"
	dbpkg "siaf-backend/internal/db"
	"siaf-backend/internal/models"
	"siaf-backend/internal/query"

	"github.com/jmoiron/sqlx"
)

const formSelect = `f.id, f.form_code, f.asset_id, f.previous_responsible_id, f.new_responsible_id, f.transfer_date,
       f.reason, f.conditions, f.observations, f.status, f.created_by, f.approved_by, f.approved_date,
       f.created_at, f.updated_at, a.name AS asset_name, a.asset_code,
       pu.full_name AS previous_responsible_name, nu.full_name AS new_responsible_name`

const formFrom = `responsive_forms f
JOIN assets a ON a.id = f.asset_id
LEFT JOIN users pu ON pu.id = f.previous_responsible_id
LEFT JOIN users nu ON nu.id = f.new_responsible_id`

var formList = query.Spec{
	Select: formSelect,
	From:   formFrom,
	Filters: []query.Filter{
		{Param: "status", Column: "f.status"},
		{Param: "asset_id", Column: "f.asset_id", Kind: query.Int},
		{Param: "new_responsible_id", Column: "f.new_responsible_id", Kind: query.Int},
		{Param: "previous_responsible_id", Column: "f.previous_responsible_id", Kind: query.Int},
		{Param: "search", Column: "f.form_code", Style: query.Like, Also: []string{"a.name"}},
		{Param: "date_from", Column: "f.transfer_date", Style: query.DateFrom},
		{Param: "date_to", Column: "f.transfer_date", Style: query.DateTo},
	},
	OrderBy: "f.created_at DESC, f.id DESC",
}

type FormInput struct {
	AssetID          int64   `json:"asset_id" validate:"required,gt=0"`
	NewResponsibleID int64   `json:"new_responsible_id" validate:"required,gt=0"`
	TransferDate     *Date   `json:"transfer_date"`
	Reason           string  `json:"reason" validate:"required"`
	Conditions       *string `json:"conditions"`
	Observations     *string `json:"observations"`
}

func ListForms(ctx context.Context, db *sqlx.DB, values query.Values) ([]models.ResponsiveForm, query.Pagination, error) {
	built, err := formList.Build(values, query.ParsePage(values))
	if err != nil {
		return nil, query.Pagination{}, filterError(err)
	}
	forms := []models.ResponsiveForm{}
	pagination, err := query.Fetch(ctx, db, built, &forms)
	if err != nil {
		return nil, query.Pagination{}, WrapError(err, "list responsive forms")
	}
	return forms, pagination, nil
}

func GetForm(ctx context.Context, db sqlx.QueryerContext, id int64) (models.ResponsiveForm, error) {
	var form models.ResponsiveForm
	err := sqlx.GetContext(ctx, db, &form, `SELECT `+formSelect+` FROM `+formFrom+` WHERE f.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ResponsiveForm{}, ErrNotFound("Responsive form not found")
	}
	if err != nil {
		return models.ResponsiveForm{}, WrapError(err, "get responsive form")
	}
	return form, nil
}

// CreateForm snapshots the asset's current responsible user as the previous
// responsible and files a pending transfer.
func CreateForm(ctx context.Context, db *sqlx.DB, gen *codes.Generator, createdBy int64, in FormInput) (models.ResponsiveForm, error) {
	var previous *int64
	err := db.GetContext(ctx, &previous, `SELECT responsible_user_id FROM assets WHERE id = $1`, in.AssetID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ResponsiveForm{}, ErrNotFound("Asset not found")
	}
	if err != nil {
		return models.ResponsiveForm{}, WrapError(err, "load asset responsible")
	}
	code, err := newCode(ctx, db, gen, codes.ResponsiveForm, "responsive_forms", "form_code")
	if err != nil {
		return models.ResponsiveForm{}, err
	}
	now := time.Now().UTC()
	transfer := in.TransferDate.Ptr()
	if transfer == nil {
		transfer = &now
	}
	var id int64
	err = db.GetContext(ctx, &id, `
INSERT INTO responsive_forms (form_code, asset_id, previous_responsible_id, new_responsible_id, transfer_date,
  reason, conditions, observations, status, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'pending',$9,$10,$10)
RETURNING id
`, code, in.AssetID, previous, in.NewResponsibleID, *transfer, strings.TrimSpace(in.Reason),
		trimmed(in.Conditions), trimmed(in.Observations), createdBy, now)
	if err != nil {
		return models.ResponsiveForm{}, storeError(err, "insert responsive form", "Form code collision, please retry")
	}
	return GetForm(ctx, db, id)
}

// ApproveForm marks a pending form approved and hands the asset to the new
// responsible user. Both updates commit together or not at all.
func ApproveForm(ctx context.Context, db *sqlx.DB, id int64, approver int64) (models.ResponsiveForm, error) {
	now := time.Now().UTC()
	err := dbpkg.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		var target struct {
			AssetID          int64 `db:"asset_id"`
			NewResponsibleID int64 `db:"new_responsible_id"`
		}
		err := tx.GetContext(ctx, &target, `
UPDATE responsive_forms
SET status = 'approved', approved_by = $2, approved_date = $3, updated_at = $3
WHERE id = $1 AND status = 'pending'
RETURNING asset_id, new_responsible_id
`, id, approver, now)
		if errors.Is(err, sql.ErrNoRows) {
			return transitionError(ctx, tx, "responsive_forms", id, "Responsive form not found", "Only pending forms can be approved")
		}
		if err != nil {
			return WrapError(err, "approve responsive form")
		}
		res, err := tx.ExecContext(ctx, `UPDATE assets SET responsible_user_id = $2, updated_at = $3 WHERE id = $1`,
			target.AssetID, target.NewResponsibleID, now)
		if err != nil {
			return WrapError(err, "transfer asset")
		}
		return requireAffected(res, "Asset not found")
	})
	if err != nil {
		return models.ResponsiveForm{}, err
	}
	return GetForm(ctx, db, id)
}

func RejectForm(ctx context.Context, db *sqlx.DB, id int64, approver int64) (models.ResponsiveForm, error) {
	now := time.Now().UTC()
	res, err := db.ExecContext(ctx, `
UPDATE responsive_forms
SET status = 'rejected', approved_by = $2, approved_date = $3, updated_at = $3
WHERE id = $1 AND status = 'pending'
`, id, approver, now)
	if err != nil {
		return models.ResponsiveForm{}, WrapError(err, "reject responsive form")
	}
	if err := requireTransition(ctx, db, res, "responsive_forms", id, "Responsive form not found", "Only pending forms can be rejected"); err != nil {
		return models.ResponsiveForm{}, err
	}
	return GetForm(ctx, db, id)
}

func FormStats(ctx context.Context, db *sqlx.DB) (map[string]interface{}, error) {
	return Gather(ctx,
		CountQuery(db, "total", `SELECT count(*) FROM responsive_forms`),
		GroupQuery(db, "byStatus", `SELECT status AS key, count(*) AS count FROM responsive_forms GROUP BY status`),
		CountQuery(db, "pending", `SELECT count(*) FROM responsive_forms WHERE status = 'pending'`),
		CountQuery(db, "approvedThisMonth", `
SELECT count(*) FROM responsive_forms
WHERE status = 'approved' AND approved_date >= date_trunc('month', CURRENT_DATE)`),
	)
}
