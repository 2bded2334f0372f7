package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestFromDB(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantConflict bool
		wantStorage  bool
	}{
		{"nil", nil, false, false},
		{"translated duplicate", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true, false},
		{"sqlite message", errors.New("UNIQUE constraint failed: alerts.machine_id"), true, false},
		{"postgres message", errors.New(`ERROR: duplicate key value violates unique constraint "uq_alerts_machine_type_date"`), true, false},
		{"mysql message", errors.New("Error 1062: Duplicate entry 'x' for key 'idx'"), true, false},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromDB(tt.err, "test")
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			assert.Equal(t, tt.wantConflict, IsConflict(got))
			assert.Equal(t, tt.wantStorage, IsStorage(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestFromDB_KeepsClassifiedErrors(t *testing.T) {
	v := MissingExternalID()
	assert.Same(t, v, FromDB(v, "op"))

	c := &ConflictError{Op: "first", Err: gorm.ErrDuplicatedKey}
	assert.Same(t, c, FromDB(c, "second"))
}

func TestValidationErrorsAreDistinguishable(t *testing.T) {
	missing := MissingExternalID()
	required := Validation("name", ErrRequiredField, "is required")

	assert.True(t, IsValidation(missing))
	assert.True(t, IsValidation(required))
	assert.ErrorIs(t, missing, ErrMissingExternalID)
	assert.NotErrorIs(t, required, ErrMissingExternalID)
	assert.ErrorIs(t, required, ErrRequiredField)
	assert.Equal(t, "validation failed for name: is required", required.Error())
}

func TestConflictErrorIsRetryable(t *testing.T) {
	err := FromDB(gorm.ErrDuplicatedKey, "create machine")
	var c *ConflictError
	if assert.ErrorAs(t, err, &c) {
		assert.True(t, c.Retryable())
		assert.Equal(t, "create machine", c.Op)
	}
}

func TestFromDB_RecordNotFound(t *testing.T) {
	err := FromDB(gorm.ErrRecordNotFound, "get machine")
	assert.True(t, IsNotFound(err))
	assert.False(t, IsStorage(err))
	assert.Equal(t, "get machine: not found", err.Error())
}
