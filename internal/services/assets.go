package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"siaf-backend/internal/models"
	"siaf-backend/internal/query"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const assetSelect = `a.id, a.asset_code, a.name, a.description, a.category_id, a.brand, a.model,
       a.serial_number, a.purchase_date, a.purchase_price, a.supplier, a.location, a.status,
       a.responsible_user_id, a.warranty_expiry, a.notes, a.created_at, a.updated_at,
       c.name AS category_name, u.full_name AS responsible_name`

const assetFrom = `assets a
LEFT JOIN asset_categories c ON c.id = a.category_id
LEFT JOIN users u ON u.id = a.responsible_user_id`

var assetList = query.Spec{
	Select: assetSelect,
	From:   assetFrom,
	Filters: []query.Filter{
		{Param: "category_id", Column: "a.category_id", Kind: query.Int},
		{Param: "status", Column: "a.status"},
		{Param: "location", Column: "a.location", Style: query.Like},
		{Param: "responsible_user_id", Column: "a.responsible_user_id", Kind: query.Int},
		{Param: "search", Column: "a.name", Style: query.Like, Also: []string{"a.asset_code", "a.serial_number"}},
		{Param: "purchase_from", Column: "a.purchase_date", Style: query.DateFrom},
		{Param: "purchase_to", Column: "a.purchase_date", Style: query.DateTo},
	},
	OrderBy: "a.created_at DESC, a.id DESC",
}

type AssetInput struct {
	AssetCode         string              `json:"asset_code" validate:"required,max=50"`
	Name              string              `json:"name" validate:"required,max=150"`
	Description       *string             `json:"description"`
	CategoryID        *int64              `json:"category_id" validate:"omitempty,gt=0"`
	Brand             *string             `json:"brand" validate:"omitempty,max=100"`
	Model             *string             `json:"model" validate:"omitempty,max=100"`
	SerialNumber      *string             `json:"serial_number" validate:"omitempty,max=100"`
	PurchaseDate      *Date               `json:"purchase_date"`
	PurchasePrice     decimal.NullDecimal `json:"purchase_price"`
	Supplier          *string             `json:"supplier" validate:"omitempty,max=150"`
	Location          *string             `json:"location" validate:"omitempty,max=150"`
	Status            string              `json:"status" validate:"omitempty,oneof=active inactive maintenance retired"`
	ResponsibleUserID *int64              `json:"responsible_user_id" validate:"omitempty,gt=0"`
	WarrantyExpiry    *Date               `json:"warranty_expiry"`
	Notes             *string             `json:"notes"`
}

func (in AssetInput) check() error {
	if in.PurchasePrice.Valid && in.PurchasePrice.Decimal.IsNegative() {
		return ValidationError{Errors: []FieldError{{Field: "purchase_price", Message: "must not be negative"}}}
	}
	return nil
}

type CategoryInput struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description"`
}

func ListAssets(ctx context.Context, db *sqlx.DB, values query.Values) ([]models.Asset, query.Pagination, error) {
	built, err := assetList.Build(values, query.ParsePage(values))
	if err != nil {
		return nil, query.Pagination{}, filterError(err)
	}
	assets := []models.Asset{}
	pagination, err := query.Fetch(ctx, db, built, &assets)
	if err != nil {
		return nil, query.Pagination{}, WrapError(err, "list assets")
	}
	return assets, pagination, nil
}

func GetAsset(ctx context.Context, db sqlx.QueryerContext, id int64) (models.Asset, error) {
	var asset models.Asset
	err := sqlx.GetContext(ctx, db, &asset, `SELECT `+assetSelect+` FROM `+assetFrom+` WHERE a.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Asset{}, ErrNotFound("Asset not found")
	}
	if err != nil {
		return models.Asset{}, WrapError(err, "get asset")
	}
	return asset, nil
}

// CreateAsset rejects a taken asset_code before inserting; the unique index
// catches the race between check and insert.
func CreateAsset(ctx context.Context, db *sqlx.DB, in AssetInput) (models.Asset, error) {
	if err := in.check(); err != nil {
		return models.Asset{}, err
	}
	code := strings.TrimSpace(in.AssetCode)
	var exists bool
	if err := db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM assets WHERE asset_code = $1)`, code); err != nil {
		return models.Asset{}, WrapError(err, "check asset code")
	}
	if exists {
		return models.Asset{}, ErrConflict("Asset code already exists")
	}
	status := in.Status
	if status == "" {
		status = models.AssetActive
	}
	now := time.Now().UTC()
	var id int64
	err := db.GetContext(ctx, &id, `
INSERT INTO assets (asset_code, name, description, category_id, brand, model, serial_number,
  purchase_date, purchase_price, supplier, location, status, responsible_user_id, warranty_expiry, notes,
  created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$16)
RETURNING id
`, code, strings.TrimSpace(in.Name), trimmed(in.Description), in.CategoryID, trimmed(in.Brand), trimmed(in.Model),
		trimmed(in.SerialNumber), in.PurchaseDate.Ptr(), in.PurchasePrice, trimmed(in.Supplier), trimmed(in.Location),
		status, in.ResponsibleUserID, in.WarrantyExpiry.Ptr(), trimmed(in.Notes), now)
	if err != nil {
		return models.Asset{}, storeError(err, "insert asset", "Asset code already exists")
	}
	return GetAsset(ctx, db, id)
}

func UpdateAsset(ctx context.Context, db *sqlx.DB, id int64, in AssetInput) (models.Asset, error) {
	if err := in.check(); err != nil {
		return models.Asset{}, err
	}
	code := strings.TrimSpace(in.AssetCode)
	var taken bool
	if err := db.GetContext(ctx, &taken, `SELECT EXISTS(SELECT 1 FROM assets WHERE asset_code = $1 AND id <> $2)`, code, id); err != nil {
		return models.Asset{}, WrapError(err, "check asset code")
	}
	if taken {
		return models.Asset{}, ErrConflict("Asset code already exists")
	}
	status := in.Status
	if status == "" {
		status = models.AssetActive
	}
	res, err := db.ExecContext(ctx, `
UPDATE assets
SET asset_code = $2, name = $3, description = $4, category_id = $5, brand = $6, model = $7,
    serial_number = $8, purchase_date = $9, purchase_price = $10, supplier = $11, location = $12,
    status = $13, responsible_user_id = $14, warranty_expiry = $15, notes = $16, updated_at = $17
WHERE id = $1
`, id, code, strings.TrimSpace(in.Name), trimmed(in.Description), in.CategoryID, trimmed(in.Brand), trimmed(in.Model),
		trimmed(in.SerialNumber), in.PurchaseDate.Ptr(), in.PurchasePrice, trimmed(in.Supplier), trimmed(in.Location),
		status, in.ResponsibleUserID, in.WarrantyExpiry.Ptr(), trimmed(in.Notes), time.Now().UTC())
	if err != nil {
		return models.Asset{}, storeError(err, "update asset", "Asset code already exists")
	}
	if err := requireAffected(res, "Asset not found"); err != nil {
		return models.Asset{}, err
	}
	return GetAsset(ctx, db, id)
}

// DeactivateAsset is the asset delete: the row stays with status inactive.
func DeactivateAsset(ctx context.Context, db *sqlx.DB, id int64) error {
	res, err := db.ExecContext(ctx, `UPDATE assets SET status = $2, updated_at = $3 WHERE id = $1`, id, models.AssetInactive, time.Now().UTC())
	if err != nil {
		return WrapError(err, "deactivate asset")
	}
	return requireAffected(res, "Asset not found")
}

func ListCategories(ctx context.Context, db *sqlx.DB) ([]models.AssetCategory, error) {
	categories := []models.AssetCategory{}
	if err := db.SelectContext(ctx, &categories, `SELECT id, name, description, created_at FROM asset_categories ORDER BY name ASC`); err != nil {
		return nil, WrapError(err, "list categories")
	}
	return categories, nil
}

func CreateCategory(ctx context.Context, db *sqlx.DB, in CategoryInput) (models.AssetCategory, error) {
	var category models.AssetCategory
	err := db.GetContext(ctx, &category, `
INSERT INTO asset_categories (name, description, created_at)
VALUES ($1,$2,$3)
RETURNING id, name, description, created_at
`, strings.TrimSpace(in.Name), trimmed(in.Description), time.Now().UTC())
	if err != nil {
		return models.AssetCategory{}, storeError(err, "insert category", "Category already exists")
	}
	return category, nil
}

func AssetStats(ctx context.Context, db *sqlx.DB) (map[string]interface{}, error) {
	return Gather(ctx,
		CountQuery(db, "total", `SELECT count(*) FROM assets`),
		GroupQuery(db, "byStatus", `SELECT status AS key, count(*) AS count FROM assets GROUP BY status`),
		GroupQuery(db, "byCategory", `
SELECT c.name AS key, count(*) AS count
FROM assets a LEFT JOIN asset_categories c ON c.id = a.category_id
GROUP BY c.name`),
		CountQuery(db, "unassigned", `SELECT count(*) FROM assets WHERE responsible_user_id IS NULL AND status <> 'inactive'`),
		CountQuery(db, "warrantyExpiringSoon", `
SELECT count(*) FROM assets
WHERE warranty_expiry IS NOT NULL AND warranty_expiry BETWEEN CURRENT_DATE AND CURRENT_DATE + 30`),
		DecimalQuery(db, "totalPurchaseValue", `SELECT SUM(purchase_price) FROM assets WHERE status <> 'inactive'`),
	)
}
