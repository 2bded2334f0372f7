// Package services implements the direct-entry side of the API: listing and
// editing fleet records, alert rules and alerts.
package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/machinehub/machinehub/internal/apperr"
	"github.com/machinehub/machinehub/internal/database"
	"github.com/machinehub/machinehub/internal/reconcile"
)

// ListOptions narrows and pages a listing. Zero Limit means no limit.
type ListOptions struct {
	Search    string
	AccountID string
	Offset    int
	Limit     int
}

// EntityService manages accounts, contacts, locations and machines through
// their reconcile.Kind descriptors.
type EntityService struct {
	db *gorm.DB
}

// NewEntityService creates a new EntityService
func NewEntityService(db *gorm.DB) *EntityService {
	return &EntityService{db: db}
}

// List returns live rows of kind in the kind's default order, and the total
// matching count. items is a pointer to a slice of the kind's model.
func (s *EntityService) List(ctx context.Context, kind reconcile.Kind, opts ListOptions) (items interface{}, total int64, err error) {
	query := s.db.WithContext(ctx).Model(kind.New()).Where("is_deleted = ?", false)
	if opts.Search != "" && kind.SearchColumn != "" {
		query = query.Where("LOWER("+kind.SearchColumn+") LIKE ?", "%"+strings.ToLower(opts.Search)+"%")
	}
	if opts.AccountID != "" && kind.Name != reconcile.Accounts.Name {
		query = query.Where("account_id = ?", opts.AccountID)
	}
	query = query.Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.FromDB(err, "count "+kind.Name)
	}

	items = kind.NewSlice()
	query = query.Order(kind.Order).Order("id").Offset(opts.Offset)
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if err := query.Find(items).Error; err != nil {
		return nil, 0, apperr.FromDB(err, "list "+kind.Name)
	}
	return items, total, nil
}

// Get returns a live row by internal id.
func (s *EntityService) Get(ctx context.Context, kind reconcile.Kind, id string) (database.Syncable, error) {
	return s.get(s.db.WithContext(ctx), kind, id)
}

func (s *EntityService) get(db *gorm.DB, kind reconcile.Kind, id string) (database.Syncable, error) {
	row := kind.New()
	res := db.Where("id = ? AND is_deleted = ?", id, false).Limit(1).Find(row)
	if res.Error != nil {
		return nil, apperr.FromDB(res.Error, "get "+kind.Name)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%s %s: %w", kind.Name, id, apperr.ErrNotFound)
	}
	return row, nil
}

// Create inserts a row entered directly rather than synced.
func (s *EntityService) Create(ctx context.Context, kind reconcile.Kind, payload reconcile.Payload) (database.Syncable, error) {
	p, err := kind.PrepareEdit(payload)
	if err != nil {
		return nil, err
	}

	row := kind.New()
	if err := reconcile.Assign(row, p); err != nil {
		return nil, err
	}
	if err := reconcile.Validate(row); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, apperr.FromDB(err, "create "+kind.Name)
	}
	return row, nil
}

// Update applies a partial edit. Listing a field in manual_override_fields
// here is how users take ownership of it from the sync.
func (s *EntityService) Update(ctx context.Context, kind reconcile.Kind, id string, payload reconcile.Payload) (database.Syncable, error) {
	p, err := kind.PrepareEdit(payload)
	if err != nil {
		return nil, err
	}

	var row database.Syncable
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		if row, txErr = s.get(tx, kind, id); txErr != nil {
			return txErr
		}
		if txErr = reconcile.Assign(row, p); txErr != nil {
			return txErr
		}
		if txErr = reconcile.Validate(row); txErr != nil {
			return txErr
		}
		return tx.Save(row).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "update "+kind.Name)
	}
	return row, nil
}

// Delete marks a row deleted. A later sync of the same external_id revives it.
func (s *EntityService) Delete(ctx context.Context, kind reconcile.Kind, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := s.get(tx, kind, id)
		if err != nil {
			return err
		}
		row.SetDeleted(true)
		return tx.Save(row).Error
	})
	return apperr.FromDB(err, "delete "+kind.Name)
}
