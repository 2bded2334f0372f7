package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/machinehub/machinehub/internal/database"
	"github.com/machinehub/machinehub/internal/reconcile"
)

// MaxBodySize is the maximum allowed request body size (1 MB).
const MaxBodySize = 1 << 20

// DecodeJSON reads and decodes a JSON request body into dst.
// It returns user-friendly error messages instead of leaking Go internals.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	r.Body = http.MaxBytesReader(nil, r.Body, MaxBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return friendlyDecodeError(dec.Decode(dst))
}

// DecodePayload reads a free-form JSON object, keeping numbers as literals.
// Unknown keys are allowed here; each kind filters its own fields.
func DecodePayload(r *http.Request) (reconcile.Payload, error) {
	if r.Body == nil {
		return nil, errors.New("request body is empty")
	}
	r.Body = http.MaxBytesReader(nil, r.Body, MaxBodySize)

	p, err := reconcile.DecodePayload(r.Body)
	if err != nil {
		if cause := errors.Unwrap(err); cause != nil {
			return nil, friendlyDecodeError(cause)
		}
		return nil, errors.New("request body must be a JSON object")
	}
	return p, nil
}

func friendlyDecodeError(err error) error {
	if err == nil {
		return nil
	}

	var syntaxErr *json.SyntaxError
	var unmarshalTypeErr *json.UnmarshalTypeError
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Errorf("malformed JSON at position %d", syntaxErr.Offset)
	case errors.As(err, &unmarshalTypeErr):
		if unmarshalTypeErr.Field == "" {
			return errors.New("request body must be a JSON object")
		}
		return fmt.Errorf("invalid value for field %q: expected %s", unmarshalTypeErr.Field, unmarshalTypeErr.Type)
	case errors.Is(err, io.EOF):
		return errors.New("request body is empty")
	case errors.As(err, &maxBytesErr):
		return fmt.Errorf("request body exceeds maximum size of %d bytes", MaxBodySize)
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		field := strings.TrimPrefix(err.Error(), "json: unknown field ")
		return fmt.Errorf("unknown field %s", field)
	default:
		return errors.New("invalid JSON in request body")
	}
}

// ParseDateParam reads a YYYY-MM-DD query parameter. ok is false when the
// parameter is absent.
func ParseDateParam(r *http.Request, key string) (d database.Date, ok bool, err error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return database.Date{}, false, nil
	}
	d, err = database.ParseDate(raw)
	if err != nil {
		return database.Date{}, false, fmt.Errorf("%s must be a YYYY-MM-DD date", key)
	}
	return d, true, nil
}
