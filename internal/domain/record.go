package domain

import (
	"errors"
	"fmt"
	"math"
)

// Record is one decoded message from a flight-controller log.
type Record struct {
	Type   string
	Fields map[string]any
}

// MalformedRecordError reports a field whose value cannot be used as the
// type its record kind requires.
type MalformedRecordError struct {
	Type  string
	Field string
	Err   error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record: field %s: %v", e.Type, e.Field, e.Err)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

var (
	errFieldMissing = errors.New("field missing")
	errNotNumeric   = errors.New("value is not numeric")
)

// Has reports whether the record carries the named field.
func (r *Record) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.Fields[name]
	return ok
}

// Number returns the named field as float64. ok is false when the field is
// absent; err is set when it is present but not numeric.
func (r *Record) Number(name string) (v float64, ok bool, err error) {
	if r == nil {
		return 0, false, nil
	}
	raw, ok := r.Fields[name]
	if !ok {
		return 0, false, nil
	}
	v, numeric := toFloat(raw)
	if !numeric {
		return 0, true, &MalformedRecordError{
			Type:  r.Type,
			Field: name,
			Err:   fmt.Errorf("%w: %T", errNotNumeric, raw),
		}
	}
	return v, true, nil
}

// MustNumber is Number for fields the record kind cannot do without: an
// absent field is reported as malformed.
func (r *Record) MustNumber(name string) (float64, error) {
	v, ok, err := r.Number(name)
	if err != nil {
		return 0, err
	}
	if !ok {
		typ := ""
		if r != nil {
			typ = r.Type
		}
		return 0, &MalformedRecordError{Type: typ, Field: name, Err: errFieldMissing}
	}
	return v, nil
}

// Instance returns a small integer instance id carried in the named field.
// Fractional or non-finite values are malformed.
func (r *Record) Instance(name string) (int, bool, error) {
	v, ok, err := r.Number(name)
	if err != nil || !ok {
		return 0, ok, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, true, &MalformedRecordError{
			Type:  r.Type,
			Field: name,
			Err:   fmt.Errorf("instance id %v is not an integer", v),
		}
	}
	return int(v), true, nil
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case uint8:
		return float64(val), true
	case int16:
		return float64(val), true
	case uint16:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}
