package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/machinehub/machinehub/internal/alerting"
	"github.com/machinehub/machinehub/internal/apperr"
	"github.com/machinehub/machinehub/internal/database"
)

// AlertRulePatch holds the fields of a partial rule update. Nil means keep.
type AlertRulePatch struct {
	Name       *string
	Trigger    *string
	OffsetDays *int
	Enabled    *bool
	Channels   *string
}

// AlertRuleService manages the standing alert rules.
type AlertRuleService struct {
	db *gorm.DB
}

// NewAlertRuleService creates a new AlertRuleService
func NewAlertRuleService(db *gorm.DB) *AlertRuleService {
	return &AlertRuleService{db: db}
}

// List returns every rule ordered by offset.
func (s *AlertRuleService) List(ctx context.Context) ([]database.AlertRule, error) {
	var rules []database.AlertRule
	if err := s.db.WithContext(ctx).Order("offset_days, name").Find(&rules).Error; err != nil {
		return nil, apperr.FromDB(err, "list alert rules")
	}
	return rules, nil
}

// Get returns a rule by id.
func (s *AlertRuleService) Get(ctx context.Context, id string) (*database.AlertRule, error) {
	var rule database.AlertRule
	res := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&rule)
	if res.Error != nil {
		return nil, apperr.FromDB(res.Error, "get alert rule")
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("alert rule %s: %w", id, apperr.ErrNotFound)
	}
	return &rule, nil
}

// Create stores a new rule after checking its trigger is known.
func (s *AlertRuleService) Create(ctx context.Context, rule *database.AlertRule) error {
	if err := checkTrigger(rule.Trigger); err != nil {
		return err
	}
	rule.Name = strings.TrimSpace(rule.Name)
	if rule.Name == "" {
		return apperr.Validation("name", apperr.ErrRequiredField, "is required")
	}
	return apperr.FromDB(s.db.WithContext(ctx).Create(rule).Error, "create alert rule")
}

// Update applies patch to the rule with id.
func (s *AlertRuleService) Update(ctx context.Context, id string, patch AlertRulePatch) (*database.AlertRule, error) {
	if patch.Trigger != nil {
		if err := checkTrigger(*patch.Trigger); err != nil {
			return nil, err
		}
	}

	rule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.Validation("name", apperr.ErrRequiredField, "is required")
		}
		rule.Name = name
	}
	if patch.Trigger != nil {
		rule.Trigger = *patch.Trigger
	}
	if patch.OffsetDays != nil {
		rule.OffsetDays = *patch.OffsetDays
	}
	if patch.Enabled != nil {
		rule.Enabled = *patch.Enabled
	}
	if patch.Channels != nil {
		rule.Channels = patch.Channels
	}

	if err := s.db.WithContext(ctx).Save(rule).Error; err != nil {
		return nil, apperr.FromDB(err, "update alert rule")
	}
	return rule, nil
}

func checkTrigger(trigger string) error {
	if !alerting.IsKnownTrigger(trigger) {
		return apperr.Validation("trigger", apperr.ErrInvalidField,
			"unknown trigger %q, expected one of %s", trigger, strings.Join(alerting.KnownTriggers(), ", "))
	}
	return nil
}
