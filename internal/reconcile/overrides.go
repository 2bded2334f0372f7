package reconcile

import (
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/machinehub/machinehub/internal/apperr"
)

// ParseOverrides decodes the stored list of manually owned field names.
// Anything that is not a JSON array of strings yields an empty set; a broken
// column must never block synchronization.
func ParseOverrides(raw *string) map[string]struct{} {
	protected := make(map[string]struct{})
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return protected
	}

	var fields []interface{}
	if err := json.Unmarshal([]byte(*raw), &fields); err != nil {
		logrus.WithError(err).WithField("manual_override_fields", *raw).
			Debug("Ignoring unreadable manual override list")
		return protected
	}
	for _, f := range fields {
		if name, ok := f.(string); ok && name != "" {
			protected[name] = struct{}{}
		}
	}
	return protected
}

// ApplyOverrides returns a copy of inbound without the protected keys.
func ApplyOverrides(protected map[string]struct{}, inbound Payload) Payload {
	out := make(Payload, len(inbound))
	for k, v := range inbound {
		if _, skip := protected[k]; skip {
			continue
		}
		out[k] = v
	}
	return out
}

// normalizeOverrideFields rewrites manual_override_fields into the stored
// text form. Arrays are encoded, strings are kept as sent, null clears it.
func normalizeOverrideFields(p Payload) error {
	v, ok := p[KeyManualOverrideFields]
	if !ok || v == nil {
		return nil
	}
	switch val := v.(type) {
	case string:
		return nil
	case []interface{}, []string:
		encoded, err := json.Marshal(val)
		if err != nil {
			return apperr.Validation(KeyManualOverrideFields, apperr.ErrInvalidField, "cannot encode field list: %v", err)
		}
		p[KeyManualOverrideFields] = string(encoded)
		return nil
	default:
		return apperr.Validation(KeyManualOverrideFields, apperr.ErrInvalidField,
			"must be a list of field names, got %T", val)
	}
}
