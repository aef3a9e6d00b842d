package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB stores an opaque JSON payload. The contents are never validated
// or interpreted here; whatever was recorded is surfaced verbatim.
type JSONB []byte

// Value implements driver.Valuer.
func (j JSONB) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements sql.Scanner.
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append(JSONB(nil), v...)
		return nil
	case string:
		*j = JSONB(v)
		return nil
	default:
		return fmt.Errorf("jsonb: cannot scan %T", value)
	}
}

// MarshalJSON returns the stored payload as-is.
func (j JSONB) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON stores the raw payload without inspecting it.
func (j *JSONB) UnmarshalJSON(data []byte) error {
	*j = append(JSONB(nil), data...)
	return nil
}

// UnmarshalTo decodes the stored payload into v.
func (j JSONB) UnmarshalTo(v interface{}) error {
	if len(j) == 0 {
		return nil
	}
	return json.Unmarshal(j, v)
}

// NewJSONB serializes an arbitrary details value for storage.
func NewJSONB(v interface{}) (JSONB, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return JSONB(b), nil
}
