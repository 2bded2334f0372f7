package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/machinehub/machinehub/internal/apperr"
	"github.com/machinehub/machinehub/internal/database"
)

// Kind describes one reconcilable entity type: which inbound fields it
// accepts, how to build an empty row and how to prepare a payload for it.
type Kind struct {
	// Name is the plural resource name used in routes, logs and metrics.
	Name string
	// Fields is the inbound allowlist. Unknown keys are dropped.
	Fields []string
	// Order is the default ORDER BY for listings.
	Order string
	// SearchColumn, when set, is matched case-insensitively by list queries.
	SearchColumn string
	// New returns an empty row, with column defaults applied.
	New func() database.Syncable
	// NewSlice returns a pointer to an empty slice of rows for Find.
	NewSlice func() interface{}
	// Prepare derives or checks fields before hashing. May be nil.
	Prepare func(Payload) error
}

// EditableFields is the allowlist for direct edits, which never carry
// external linkage or a source timestamp.
func (k Kind) EditableFields() []string {
	out := make([]string, 0, len(k.Fields))
	for _, f := range k.Fields {
		if f == KeyExternalID || f == KeyLastModified {
			continue
		}
		out = append(out, f)
	}
	return out
}

// PrepareEdit filters a direct edit down to the editable fields and runs the
// same preparation as the sync path.
func (k Kind) PrepareEdit(payload Payload) (Payload, error) {
	p := payload.Filter(k.EditableFields())
	if k.Prepare != nil {
		if err := k.Prepare(p); err != nil {
			return nil, err
		}
	}
	if err := normalizeOverrideFields(p); err != nil {
		return nil, err
	}
	return p, nil
}

var syncFields = []string{KeyExternalID, KeyManualOverrideFields, KeyLastModified}

// Accounts are customers.
var Accounts = Kind{
	Name: "accounts",
	Fields: append([]string{
		"account_number", "name", "phone", "email", "website", "language", "is_solvable",
		"billing_street", "billing_house_number", "billing_postal_code", "billing_city", "billing_country",
	}, syncFields...),
	Order:        "name",
	SearchColumn: "name",
	New:          func() database.Syncable { return &database.Account{IsSolvable: true} },
	NewSlice:     func() interface{} { return &[]database.Account{} },
}

// Contacts are people at an account.
var Contacts = Kind{
	Name: "contacts",
	Fields: append([]string{
		"account_id", "first_name", "last_name", "display_name", "email", "phone", "role", "is_primary",
	}, syncFields...),
	Order:    "last_name",
	New:      func() database.Syncable { return &database.Contact{} },
	NewSlice: func() interface{} { return &[]database.Contact{} },
}

// Locations are sites of an account.
var Locations = Kind{
	Name: "locations",
	Fields: append([]string{
		"account_id", "location_code", "name", "street", "house_number", "postal_code", "city", "country",
		"geo_lat", "geo_lng",
	}, syncFields...),
	Order:    "name",
	New:      func() database.Syncable { return &database.Location{} },
	NewSlice: func() interface{} { return &[]database.Location{} },
}

// Machines are installed units.
var Machines = Kind{
	Name: "machines",
	Fields: append([]string{
		"account_id", "location_id", "machine_name", "machine_number", "status", "product_category",
		"family_name", "family_code", "installation_date", "warranty_months", "warranty_end_date",
		"warranty_type",
	}, syncFields...),
	Order:    "machine_name",
	New:      func() database.Syncable { return &database.Machine{} },
	NewSlice: func() interface{} { return &[]database.Machine{} },
	Prepare:  PrepareMachine,
}

// Kinds lists every reconcilable kind.
func Kinds() []Kind {
	return []Kind{Accounts, Contacts, Locations, Machines}
}

// KindByName looks a kind up by its plural name.
func KindByName(name string) (Kind, bool) {
	for _, k := range Kinds() {
		if k.Name == name {
			return k, true
		}
	}
	return Kind{}, false
}

// PrepareMachine normalizes the date fields and derives warranty_end_date from
// installation_date plus warranty_months when it is not given. An end date
// before the installation date is rejected.
func PrepareMachine(p Payload) error {
	installed, hasInstalled, err := dateField(p, "installation_date")
	if err != nil {
		return err
	}
	end, hasEnd, err := dateField(p, "warranty_end_date")
	if err != nil {
		return err
	}

	if !hasEnd && hasInstalled && p.Present("warranty_months") {
		months, err := intField(p, "warranty_months")
		if err != nil {
			return err
		}
		if months < 0 {
			return apperr.Validation("warranty_months", apperr.ErrInvalidField, "must be zero or more")
		}
		end = installed.AddMonths(months)
		hasEnd = true
		p["warranty_end_date"] = end.String()
	}

	if hasEnd && hasInstalled && end.Before(installed) {
		return apperr.Validation("warranty_end_date", apperr.ErrInvalidField,
			"%s is before installation_date %s", end, installed)
	}
	return nil
}

func dateField(p Payload, key string) (database.Date, bool, error) {
	if !p.Present(key) {
		return database.Date{}, false, nil
	}
	var d database.Date
	switch v := p[key].(type) {
	case string:
		parsed, err := database.ParseDate(v)
		if err != nil {
			return d, false, apperr.Validation(key, apperr.ErrInvalidField, "%v", err)
		}
		d = parsed
	case database.Date:
		d = v
	default:
		return d, false, apperr.Validation(key, apperr.ErrInvalidField, "must be a YYYY-MM-DD string")
	}
	p[key] = d.String()
	return d, true, nil
}

func intField(p Payload, key string) (int, error) {
	switch v := p[key].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, apperr.Validation(key, apperr.ErrInvalidField, "must be a whole number")
		}
		return int(n), nil
	case float64:
		if v != float64(int(v)) {
			return 0, apperr.Validation(key, apperr.ErrInvalidField, "must be a whole number")
		}
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	default:
		return 0, apperr.Validation(key, apperr.ErrInvalidField, "must be a number")
	}
}

// Assign writes each payload field onto row through its JSON binding. Keys
// the row does not know are ignored.
func Assign(row database.Syncable, p Payload) error {
	for key, value := range p {
		data, err := json.Marshal(map[string]interface{}{key: value})
		if err != nil {
			return apperr.Validation(key, apperr.ErrInvalidField, "cannot encode value: %v", err)
		}
		if err := json.Unmarshal(data, row); err != nil {
			return apperr.Validation(key, apperr.ErrInvalidField, "%s", decodeMessage(err))
		}
	}
	return nil
}

func decodeMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value)
	}
	return err.Error()
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the row's required and bounded fields.
func Validate(row database.Syncable) error {
	err := validate.Struct(row)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Validation("", apperr.ErrInvalidField, "%v", err)
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return apperr.Validation(fe.Field(), apperr.ErrRequiredField, "is required")
	case "max":
		return apperr.Validation(fe.Field(), apperr.ErrInvalidField, "must be at most %s characters", fe.Param())
	case "min":
		return apperr.Validation(fe.Field(), apperr.ErrInvalidField, "must be at least %s", fe.Param())
	default:
		return apperr.Validation(fe.Field(), apperr.ErrInvalidField, "failed %s validation", fe.Tag())
	}
}
