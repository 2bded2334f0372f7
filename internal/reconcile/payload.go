package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Reserved payload keys handled by the engine rather than mapped to columns.
const (
	KeyExternalID           = "external_id"
	KeyLastModified         = "last_modified"
	KeyManualOverrideFields = "manual_override_fields"
)

// Payload is an inbound record as a field-name to value map. Numbers decoded
// by DecodePayload are json.Number so their literal text survives hashing.
type Payload map[string]interface{}

// DecodePayload reads a single JSON object.
func DecodePayload(r io.Reader) (Payload, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("invalid JSON object: null")
	}
	return p, nil
}

// DecodePayloads reads either one JSON object or an array of objects.
func DecodePayloads(data []byte) ([]Payload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		var list []Payload
		if err := dec.Decode(&list); err != nil {
			return nil, fmt.Errorf("invalid JSON array: %w", err)
		}
		return list, nil
	}
	p, err := DecodePayload(bytes.NewReader(trimmed))
	if err != nil {
		return nil, err
	}
	return []Payload{p}, nil
}

// Clone returns a shallow copy of p.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Filter returns a copy of p holding only the allowed keys.
func (p Payload) Filter(allowed []string) Payload {
	out := make(Payload, len(allowed))
	for _, k := range allowed {
		if v, ok := p[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Present reports whether key holds a value other than null or "".
func (p Payload) Present(key string) bool {
	v, ok := p[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

// ExternalID returns the correlation key as text, or "" when absent.
func (p Payload) ExternalID() string {
	if !p.Present(KeyExternalID) {
		return ""
	}
	switch v := p[KeyExternalID].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Keys returns the field names of p.
func (p Payload) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	return keys
}
