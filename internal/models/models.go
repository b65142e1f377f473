package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID           int64      `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         string     `db:"role" json:"role"`
	Department   *string    `db:"department" json:"department"`
	Active       bool       `db:"active" json:"active"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

type AssetCategory struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

const (
	AssetActive      = "active"
	AssetInactive    = "inactive"
	AssetMaintenance = "maintenance"
	AssetRetired     = "retired"
)

type Asset struct {
	ID                int64               `db:"id" json:"id"`
	AssetCode         string              `db:"asset_code" json:"asset_code"`
	Name              string              `db:"name" json:"name"`
	Description       *string             `db:"description" json:"description"`
	CategoryID        *int64              `db:"category_id" json:"category_id"`
	Brand             *string             `db:"brand" json:"brand"`
	Model             *string             `db:"model" json:"model"`
	SerialNumber      *string             `db:"serial_number" json:"serial_number"`
	PurchaseDate      *time.Time          `db:"purchase_date" json:"purchase_date"`
	PurchasePrice     decimal.NullDecimal `db:"purchase_price" json:"purchase_price"`
	Supplier          *string             `db:"supplier" json:"supplier"`
	Location          *string             `db:"location" json:"location"`
	Status            string              `db:"status" json:"status"`
	ResponsibleUserID *int64              `db:"responsible_user_id" json:"responsible_user_id"`
	WarrantyExpiry    *time.Time          `db:"warranty_expiry" json:"warranty_expiry"`
	Notes             *string             `db:"notes" json:"notes"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at" json:"updated_at"`

	CategoryName    *string `db:"category_name" json:"category_name,omitempty"`
	ResponsibleName *string `db:"responsible_name" json:"responsible_name,omitempty"`
}

const (
	IncidentOpen       = "open"
	IncidentAssigned   = "assigned"
	IncidentInProgress = "in_progress"
	IncidentResolved   = "resolved"
	IncidentClosed     = "closed"
)

type Incident struct {
	ID           int64      `db:"id" json:"id"`
	IncidentCode string     `db:"incident_code" json:"incident_code"`
	Title        string     `db:"title" json:"title"`
	Description  string     `db:"description" json:"description"`
	AssetID      *int64     `db:"asset_id" json:"asset_id"`
	Priority     string     `db:"priority" json:"priority"`
	Status       string     `db:"status" json:"status"`
	ReportedBy   int64      `db:"reported_by" json:"reported_by"`
	AssignedTo   *int64     `db:"assigned_to" json:"assigned_to"`
	ReportedDate time.Time  `db:"reported_date" json:"reported_date"`
	ResolvedDate *time.Time `db:"resolved_date" json:"resolved_date"`
	Solution     *string    `db:"solution" json:"solution"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`

	AssetName      *string `db:"asset_name" json:"asset_name,omitempty"`
	AssetCode      *string `db:"asset_code" json:"asset_code,omitempty"`
	ReportedByName *string `db:"reported_by_name" json:"reported_by_name,omitempty"`
	AssignedToName *string `db:"assigned_to_name" json:"assigned_to_name,omitempty"`
}

const (
	MaintenanceScheduled  = "scheduled"
	MaintenanceInProgress = "in_progress"
	MaintenanceCompleted  = "completed"
)

type Maintenance struct {
	ID              int64               `db:"id" json:"id"`
	MaintenanceCode string              `db:"maintenance_code" json:"maintenance_code"`
	AssetID         int64               `db:"asset_id" json:"asset_id"`
	Type            string              `db:"type" json:"type"`
	Title           string              `db:"title" json:"title"`
	Description     *string             `db:"description" json:"description"`
	ScheduledDate   time.Time           `db:"scheduled_date" json:"scheduled_date"`
	CompletedDate   *time.Time          `db:"completed_date" json:"completed_date"`
	Status          string              `db:"status" json:"status"`
	TechnicianID    *int64              `db:"technician_id" json:"technician_id"`
	Cost            decimal.NullDecimal `db:"cost" json:"cost"`
	Supplier        *string             `db:"supplier" json:"supplier"`
	Notes           *string             `db:"notes" json:"notes"`
	CreatedBy       *int64              `db:"created_by" json:"created_by"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updated_at"`

	AssetName      *string `db:"asset_name" json:"asset_name,omitempty"`
	AssetCode      *string `db:"asset_code" json:"asset_code,omitempty"`
	TechnicianName *string `db:"technician_name" json:"technician_name,omitempty"`
}

const (
	FormPending  = "pending"
	FormApproved = "approved"
	FormRejected = "rejected"
)

type ResponsiveForm struct {
	ID                    int64      `db:"id" json:"id"`
	FormCode              string     `db:"form_code" json:"form_code"`
	AssetID               int64      `db:"asset_id" json:"asset_id"`
	PreviousResponsibleID *int64     `db:"previous_responsible_id" json:"previous_responsible_id"`
	NewResponsibleID      int64      `db:"new_responsible_id" json:"new_responsible_id"`
	TransferDate          time.Time  `db:"transfer_date" json:"transfer_date"`
	Reason                string     `db:"reason" json:"reason"`
	Conditions            *string    `db:"conditions" json:"conditions"`
	Observations          *string    `db:"observations" json:"observations"`
	Status                string     `db:"status" json:"status"`
	CreatedBy             *int64     `db:"created_by" json:"created_by"`
	ApprovedBy            *int64     `db:"approved_by" json:"approved_by"`
	ApprovedDate          *time.Time `db:"approved_date" json:"approved_date"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`

	AssetName               *string `db:"asset_name" json:"asset_name,omitempty"`
	AssetCode               *string `db:"asset_code" json:"asset_code,omitempty"`
	PreviousResponsibleName *string `db:"previous_responsible_name" json:"previous_responsible_name,omitempty"`
	NewResponsibleName      *string `db:"new_responsible_name" json:"new_responsible_name,omitempty"`
}

const (
	RequisitionPending   = "pending"
	RequisitionApproved  = "approved"
	RequisitionRejected  = "rejected"
	RequisitionCompleted = "completed"
)

type Requisition struct {
	ID              int64               `db:"id" json:"id"`
	RequisitionCode string              `db:"requisition_code" json:"requisition_code"`
	Title           string              `db:"title" json:"title"`
	Description     *string             `db:"description" json:"description"`
	Department      *string             `db:"department" json:"department"`
	Priority        string              `db:"priority" json:"priority"`
	Status          string              `db:"status" json:"status"`
	RequestedBy     int64               `db:"requested_by" json:"requested_by"`
	ApprovedBy      *int64              `db:"approved_by" json:"approved_by"`
	ApprovedDate    *time.Time          `db:"approved_date" json:"approved_date"`
	EstimatedCost   decimal.Decimal     `db:"estimated_cost" json:"estimated_cost"`
	ApprovedCost    decimal.NullDecimal `db:"approved_cost" json:"approved_cost"`
	Justification   *string             `db:"justification" json:"justification"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updated_at"`

	RequestedByName *string           `db:"requested_by_name" json:"requested_by_name,omitempty"`
	Items           []RequisitionItem `db:"-" json:"items,omitempty"`
}

type RequisitionItem struct {
	ID                 int64           `db:"id" json:"id"`
	RequisitionID      int64           `db:"requisition_id" json:"requisition_id"`
	Description        string          `db:"description" json:"description"`
	Quantity           int             `db:"quantity" json:"quantity"`
	Unit               *string         `db:"unit" json:"unit"`
	EstimatedUnitPrice decimal.Decimal `db:"estimated_unit_price" json:"estimated_unit_price"`
	TotalPrice         decimal.Decimal `db:"total_price" json:"total_price"`
}
