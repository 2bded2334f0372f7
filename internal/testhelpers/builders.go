package testhelpers

import (
	"github.com/google/uuid"

	"github.com/machinehub/machinehub/internal/database"
)

// ========================================
// Account Builder
// ========================================

// AccountBuilder builds Account instances for testing
type AccountBuilder struct {
	account database.Account
}

// NewAccountBuilder creates a new account builder with defaults
func NewAccountBuilder() *AccountBuilder {
	return &AccountBuilder{
		account: database.Account{
			AccountNumber: "ACC-" + uuid.NewString()[:8],
			Name:          "Test Account",
			IsSolvable:    true,
		},
	}
}

// WithID sets the account ID
func (b *AccountBuilder) WithID(id string) *AccountBuilder {
	b.account.ID = id
	return b
}

// WithName sets the name
func (b *AccountBuilder) WithName(name string) *AccountBuilder {
	b.account.Name = name
	return b
}

// WithAccountNumber sets the account number
func (b *AccountBuilder) WithAccountNumber(number string) *AccountBuilder {
	b.account.AccountNumber = number
	return b
}

// WithExternalID links the account to the system-of-record
func (b *AccountBuilder) WithExternalID(id string) *AccountBuilder {
	source := database.DefaultSyncSource
	b.account.ExternalID = &id
	b.account.ExternalSource = &source
	return b
}

// Deleted marks the account as soft-deleted
func (b *AccountBuilder) Deleted() *AccountBuilder {
	b.account.IsDeleted = true
	return b
}

// Build returns the constructed account
func (b *AccountBuilder) Build() database.Account {
	return b.account
}

// ========================================
// Machine Builder
// ========================================

// MachineBuilder builds Machine instances for testing
type MachineBuilder struct {
	machine database.Machine
}

// NewMachineBuilder creates a new machine builder with defaults
func NewMachineBuilder() *MachineBuilder {
	return &MachineBuilder{
		machine: database.Machine{
			AccountID:   "test-account",
			MachineName: "Test Machine",
		},
	}
}

// WithID sets the machine ID
func (b *MachineBuilder) WithID(id string) *MachineBuilder {
	b.machine.ID = id
	return b
}

// WithAccountID sets the owning account
func (b *MachineBuilder) WithAccountID(id string) *MachineBuilder {
	b.machine.AccountID = id
	return b
}

// WithName sets the machine name
func (b *MachineBuilder) WithName(name string) *MachineBuilder {
	b.machine.MachineName = name
	return b
}

// WithWarrantyEnd sets the warranty end date
func (b *MachineBuilder) WithWarrantyEnd(d database.Date) *MachineBuilder {
	b.machine.WarrantyEndDate = &d
	return b
}

// WithInstallation sets the installation date and warranty length
func (b *MachineBuilder) WithInstallation(d database.Date, months int) *MachineBuilder {
	b.machine.InstallationDate = &d
	b.machine.WarrantyMonths = &months
	return b
}

// WithExternalID links the machine to the system-of-record
func (b *MachineBuilder) WithExternalID(id string) *MachineBuilder {
	source := database.DefaultSyncSource
	b.machine.ExternalID = &id
	b.machine.ExternalSource = &source
	return b
}

// WithOverrides sets the raw manual_override_fields column
func (b *MachineBuilder) WithOverrides(raw string) *MachineBuilder {
	b.machine.ManualOverrideFields = &raw
	return b
}

// Deleted marks the machine as soft-deleted
func (b *MachineBuilder) Deleted() *MachineBuilder {
	b.machine.IsDeleted = true
	return b
}

// Build returns the constructed machine
func (b *MachineBuilder) Build() database.Machine {
	return b.machine
}

// ========================================
// Alert Rule Builder
// ========================================

// AlertRuleBuilder builds AlertRule instances for testing
type AlertRuleBuilder struct {
	rule database.AlertRule
}

// NewAlertRuleBuilder creates a new enabled warranty rule with offset 0
func NewAlertRuleBuilder() *AlertRuleBuilder {
	channels := "INAPP"
	return &AlertRuleBuilder{
		rule: database.AlertRule{
			Name:     "Test Rule",
			Trigger:  database.TriggerWarrantyEndDate,
			Enabled:  true,
			Channels: &channels,
		},
	}
}

// WithID sets the rule ID
func (b *AlertRuleBuilder) WithID(id string) *AlertRuleBuilder {
	b.rule.ID = id
	return b
}

// WithName sets the rule name
func (b *AlertRuleBuilder) WithName(name string) *AlertRuleBuilder {
	b.rule.Name = name
	return b
}

// WithOffset sets the signed day offset
func (b *AlertRuleBuilder) WithOffset(days int) *AlertRuleBuilder {
	b.rule.OffsetDays = days
	return b
}

// WithTrigger sets the trigger field
func (b *AlertRuleBuilder) WithTrigger(trigger string) *AlertRuleBuilder {
	b.rule.Trigger = trigger
	return b
}

// Disabled sets the rule as disabled
func (b *AlertRuleBuilder) Disabled() *AlertRuleBuilder {
	b.rule.Enabled = false
	return b
}

// Build returns the constructed rule
func (b *AlertRuleBuilder) Build() database.AlertRule {
	return b.rule
}

// ========================================
// Alert Builder
// ========================================

// AlertBuilder builds Alert instances for testing
type AlertBuilder struct {
	alert database.Alert
}

// NewAlertBuilder creates an open WARRANTY_DUE alert
func NewAlertBuilder() *AlertBuilder {
	return &AlertBuilder{
		alert: database.Alert{
			MachineID: "test-machine",
			AlertType: database.AlertTypeWarrantyDue,
			Status:    database.AlertStatusOpen,
		},
	}
}

// WithMachineID sets the machine
func (b *AlertBuilder) WithMachineID(id string) *AlertBuilder {
	b.alert.MachineID = id
	return b
}

// WithType sets the alert type
func (b *AlertBuilder) WithType(alertType string) *AlertBuilder {
	b.alert.AlertType = alertType
	return b
}

// WithDate sets the alert date
func (b *AlertBuilder) WithDate(d database.Date) *AlertBuilder {
	b.alert.AlertDate = d
	return b
}

// WithStatus sets the status
func (b *AlertBuilder) WithStatus(status database.AlertStatus) *AlertBuilder {
	b.alert.Status = status
	return b
}

// Build returns the constructed alert
func (b *AlertBuilder) Build() database.Alert {
	return b.alert
}
