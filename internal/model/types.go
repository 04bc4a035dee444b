// internal/model/types.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// StringList is stored as a JSONB array.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

func (l *StringList) Scan(src any) error {
	b, err := jsonBytes(src)
	if err != nil || b == nil {
		*l = StringList{}
		return err
	}
	return json.Unmarshal(b, (*[]string)(l))
}

// JSONMap is stored as a JSONB object.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(m))
}

func (m *JSONMap) Scan(src any) error {
	b, err := jsonBytes(src)
	if err != nil || b == nil {
		*m = JSONMap{}
		return err
	}
	return json.Unmarshal(b, (*map[string]any)(m))
}

// String returns the value under key when it is a non-empty string.
func (m JSONMap) String(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Int returns the value under key as an int. JSON numbers decode as float64
// and must be whole; integer strings are accepted.
func (m JSONMap) Int(key string) (int, bool) {
	switch v := m[key].(type) {
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	return 0, false
}

// Has reports whether key is present with a non-empty value.
func (m JSONMap) Has(key string) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return s != ""
	}
	return true
}

func jsonBytes(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported json source %T", src)
	}
}
