package graph

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Config holds the free-form settings of a node. Values come from JSON or
// YAML documents, so numbers may arrive as float64, int, json.Number or
// numeric strings typed into a form field.
type Config map[string]interface{}

// Has reports whether key is set to a non-empty value.
func (c Config) Has(key string) bool {
	v, ok := c[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// String returns a trimmed, non-empty string value.
func (c Config) String(key string) (string, bool) {
	if !c.Has(key) {
		return "", false
	}
	switch v := c[key].(type) {
	case string:
		return strings.TrimSpace(v), true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

// StringOr returns String(key) or def.
func (c Config) StringOr(key, def string) string {
	if s, ok := c.String(key); ok {
		return s
	}
	return def
}

// Float returns a numeric value, parsing numeric strings.
func (c Config) Float(key string) (float64, bool) {
	if !c.Has(key) {
		return 0, false
	}
	switch v := c[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// FloatOr returns Float(key) or def.
func (c Config) FloatOr(key string, def float64) float64 {
	if f, ok := c.Float(key); ok {
		return f
	}
	return def
}

// Int returns an integral value; fractional numbers are truncated.
func (c Config) Int(key string) (int64, bool) {
	f, ok := c.Float(key)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// IntOr returns Int(key) or def.
func (c Config) IntOr(key string, def int64) int64 {
	if i, ok := c.Int(key); ok {
		return i
	}
	return def
}

// Bool returns a boolean value; "true"/"false" strings are accepted.
func (c Config) Bool(key string) (bool, bool) {
	if !c.Has(key) {
		return false, false
	}
	switch v := c[key].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return b, err == nil
	}
	return false, false
}

// BoolOr returns Bool(key) or def.
func (c Config) BoolOr(key string, def bool) bool {
	if b, ok := c.Bool(key); ok {
		return b
	}
	return def
}

func (c Config) clone() Config {
	if c == nil {
		return nil
	}
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
