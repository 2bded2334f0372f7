package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultSyncSource tags rows written by the system-of-record integration.
const DefaultSyncSource = "BOOMI"

// SyncFields links a local row to its record in the external system-of-record.
// Embedded by every entity kind that can be reconciled.
type SyncFields struct {
	ExternalSource       *string    `gorm:"type:varchar(20)" json:"external_source"`
	ExternalID           *string    `gorm:"type:varchar(100);uniqueIndex" json:"external_id"`
	LastSyncedAt         *time.Time `json:"last_synced_at"`
	SyncHash             *string    `gorm:"type:varchar(64)" json:"sync_hash"`
	ManualOverrideFields *string    `gorm:"type:text" json:"manual_override_fields"` // JSON array of field names
}

// Sync returns the sync metadata of the row.
func (s *SyncFields) Sync() *SyncFields { return s }

// Syncable is implemented by every model that carries SyncFields.
type Syncable interface {
	GetID() string
	Sync() *SyncFields
	SetDeleted(deleted bool)
	TableName() string
}

// Record holds the columns common to all fleet entities.
type Record struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	IsDeleted bool      `gorm:"not null;default:false;index" json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetID returns the internal identifier.
func (r *Record) GetID() string { return r.ID }

// SetDeleted sets the soft-delete flag.
func (r *Record) SetDeleted(deleted bool) { r.IsDeleted = deleted }

// BeforeCreate assigns a UUID when none was set.
func (r *Record) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Account is a customer owning machines, contacts and locations.
type Account struct {
	Record
	SyncFields
	AccountNumber      string  `gorm:"type:varchar(50);not null;uniqueIndex" json:"account_number" validate:"required,max=50"`
	Name               string  `gorm:"type:varchar(200);not null" json:"name" validate:"required,max=200"`
	Phone              *string `gorm:"type:varchar(50)" json:"phone"`
	Email              *string `gorm:"type:varchar(200)" json:"email"`
	Website            *string `gorm:"type:varchar(200)" json:"website"`
	Language           *string `gorm:"type:varchar(10)" json:"language"`
	IsSolvable         bool    `gorm:"not null" json:"is_solvable"`
	BillingStreet      *string `gorm:"type:varchar(200)" json:"billing_street"`
	BillingHouseNumber *string `gorm:"type:varchar(50)" json:"billing_house_number"`
	BillingPostalCode  *string `gorm:"type:varchar(20)" json:"billing_postal_code"`
	BillingCity        *string `gorm:"type:varchar(100)" json:"billing_city"`
	BillingCountry     *string `gorm:"type:varchar(2)" json:"billing_country"`
}

// Contact is a person at an account.
type Contact struct {
	Record
	SyncFields
	AccountID   string  `gorm:"type:varchar(36);not null;index" json:"account_id" validate:"required"`
	FirstName   *string `gorm:"type:varchar(100)" json:"first_name"`
	LastName    *string `gorm:"type:varchar(100)" json:"last_name"`
	DisplayName *string `gorm:"type:varchar(200)" json:"display_name"`
	Email       *string `gorm:"type:varchar(200)" json:"email"`
	Phone       *string `gorm:"type:varchar(50)" json:"phone"`
	Role        *string `gorm:"type:varchar(100)" json:"role"`
	IsPrimary   bool    `gorm:"not null" json:"is_primary"`
}

// Location is a site of an account where machines are installed.
type Location struct {
	Record
	SyncFields
	AccountID    string              `gorm:"type:varchar(36);not null;index" json:"account_id" validate:"required"`
	LocationCode string              `gorm:"type:varchar(50);not null;uniqueIndex" json:"location_code" validate:"required,max=50"`
	Name         *string             `gorm:"type:varchar(200)" json:"name"`
	Street       *string             `gorm:"type:varchar(200)" json:"street"`
	HouseNumber  *string             `gorm:"type:varchar(50)" json:"house_number"`
	PostalCode   *string             `gorm:"type:varchar(20)" json:"postal_code"`
	City         *string             `gorm:"type:varchar(100)" json:"city"`
	Country      *string             `gorm:"type:varchar(2)" json:"country"`
	GeoLat       decimal.NullDecimal `gorm:"type:decimal(9,6)" json:"geo_lat"`
	GeoLng       decimal.NullDecimal `gorm:"type:decimal(9,6)" json:"geo_lng"`
}

// Machine is an installed unit whose warranty end date drives alerting.
type Machine struct {
	Record
	SyncFields
	AccountID        string  `gorm:"type:varchar(36);not null;index" json:"account_id" validate:"required"`
	LocationID       *string `gorm:"type:varchar(36);index" json:"location_id"`
	MachineName      string  `gorm:"type:varchar(200);not null" json:"machine_name" validate:"required,max=200"`
	MachineNumber    *string `gorm:"type:varchar(100);index" json:"machine_number"`
	Status           *string `gorm:"type:varchar(50)" json:"status"`
	ProductCategory  *string `gorm:"type:varchar(100)" json:"product_category"`
	FamilyName       *string `gorm:"type:varchar(100)" json:"family_name"`
	FamilyCode       *string `gorm:"type:varchar(50)" json:"family_code"`
	InstallationDate *Date   `json:"installation_date"`
	WarrantyMonths   *int    `json:"warranty_months" validate:"omitempty,min=0"`
	WarrantyEndDate  *Date   `gorm:"index" json:"warranty_end_date"`
	WarrantyType     *string `gorm:"type:varchar(50)" json:"warranty_type"`
}

// TriggerWarrantyEndDate is the only date field alert rules can watch today.
const TriggerWarrantyEndDate = "WARRANTY_END_DATE"

// AlertRule is a standing policy evaluated by the daily alert sweep.
type AlertRule struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name       string    `gorm:"type:varchar(100);not null" json:"name"`
	Trigger    string    `gorm:"type:varchar(50);not null" json:"trigger"`
	OffsetDays int       `gorm:"not null" json:"offset_days"`
	Enabled    bool      `gorm:"not null;index" json:"enabled"`
	Channels   *string   `gorm:"type:varchar(50)" json:"channels"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when none was set.
func (r *AlertRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// AlertStatus is the lifecycle state of an alert.
type AlertStatus string

const (
	AlertStatusOpen    AlertStatus = "OPEN"
	AlertStatusSnoozed AlertStatus = "SNOOZED"
	AlertStatusClosed  AlertStatus = "CLOSED"
)

// Alert types produced by the sweep, by sign of the rule offset.
const (
	AlertTypeWarrantyExpiring = "WARRANTY_EXPIRING"
	AlertTypeWarrantyDue      = "WARRANTY_DUE"
	AlertTypeWarrantyExpired  = "WARRANTY_EXPIRED"
)

// Alert is a generated notification about a machine. (machine, type, date) is unique.
type Alert struct {
	ID          string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	MachineID   string      `gorm:"type:varchar(36);not null;uniqueIndex:uq_alerts_machine_type_date,priority:1" json:"machine_id"`
	AlertType   string      `gorm:"type:varchar(50);not null;uniqueIndex:uq_alerts_machine_type_date,priority:2" json:"alert_type"`
	AlertDate   Date        `gorm:"not null;uniqueIndex:uq_alerts_machine_type_date,priority:3" json:"alert_date"`
	DueDate     *Date       `gorm:"index" json:"due_date"`
	Status      AlertStatus `gorm:"type:varchar(20);not null;default:'OPEN';index" json:"status"`
	SnoozeUntil *Date       `json:"snooze_until"`
	AssignedTo  *string     `gorm:"type:varchar(100)" json:"assigned_to"`
	Notes       *string     `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	Machine *Machine `gorm:"foreignKey:MachineID" json:"machine,omitempty"`
}

// BeforeCreate assigns a UUID when none was set.
func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = AlertStatusOpen
	}
	return nil
}

// TableName overrides for explicit table naming
func (Account) TableName() string {
	return "accounts"
}

func (Contact) TableName() string {
	return "contacts"
}

func (Location) TableName() string {
	return "locations"
}

func (Machine) TableName() string {
	return "machines"
}

func (AlertRule) TableName() string {
	return "alert_rules"
}

func (Alert) TableName() string {
	return "alerts"
}
