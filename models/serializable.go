package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SerializableArray stores a string slice as a JSON text column. sqlite has
// no array type so dominant colours are kept as a JSON blob.
type SerializableArray []string

func (s SerializableArray) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	encoded, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

func (s *SerializableArray) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		return json.Unmarshal([]byte(v), s)
	case []byte:
		return json.Unmarshal(v, s)
	default:
		return fmt.Errorf("cannot scan %T into SerializableArray", src)
	}
}
