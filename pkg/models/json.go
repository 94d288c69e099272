// Package models contains domain models for upsertcheck.
package models

import (
	"database/sql/driver"
	"fmt"

	json "github.com/goccy/go-json"
)

// JSONStringArray is a custom type for handling JSON string arrays in SQL text columns.
// A nil array is stored as NULL; an empty array is stored as "[]".
type JSONStringArray []string

// Scan implements sql.Scanner for JSONStringArray.
func (j *JSONStringArray) Scan(src interface{}) error {
	if src == nil {
		*j = nil
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("JSONStringArray: unsupported type %T", src)
	}

	if len(data) == 0 {
		*j = nil
		return nil
	}

	arr := JSONStringArray{}
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("JSONStringArray: %w", err)
	}
	*j = arr
	return nil
}

// Value implements driver.Valuer for JSONStringArray.
func (j JSONStringArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	data, err := json.Marshal([]string(j))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
