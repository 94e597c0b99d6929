package schema

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"provenant/internal/ledger/models"
)

// Fields is a decoded payload data object with typed accessors. Every accessor
// reports failures as *models.ValidationError against "payload.data.<name>".
type Fields map[string]any

func fieldError(name, format string, args ...any) error {
	return &models.ValidationError{Field: "payload.data." + name, Reason: fmt.Sprintf(format, args...)}
}

// Has reports whether name is present and not null.
func (f Fields) Has(name string) bool {
	v, ok := f[name]
	return ok && v != nil
}

// Text returns a required non-blank string of at most maxLen runes
// (0 means unbounded).
func (f Fields) Text(name string, maxLen int) (string, error) {
	if !f.Has(name) {
		return "", fieldError(name, "is required")
	}
	s, ok := f[name].(string)
	if !ok {
		return "", fieldError(name, "must be a string")
	}
	if strings.TrimSpace(s) == "" {
		return "", fieldError(name, "must not be blank")
	}
	if maxLen > 0 && len([]rune(s)) > maxLen {
		return "", fieldError(name, "must be at most %d characters", maxLen)
	}
	return s, nil
}

// Bool returns an optional boolean, false when absent.
func (f Fields) Bool(name string) (bool, error) {
	if !f.Has(name) {
		return false, nil
	}
	b, ok := f[name].(bool)
	if !ok {
		return false, fieldError(name, "must be a boolean")
	}
	return b, nil
}

// Enum returns a required string drawn from allowed.
func (f Fields) Enum(name string, allowed ...string) (string, error) {
	s, err := f.Text(name, 0)
	if err != nil {
		return "", err
	}
	if !slices.Contains(allowed, s) {
		return "", fieldError(name, "must be one of %s", strings.Join(allowed, ", "))
	}
	return s, nil
}

// EnumList returns a required non-empty list whose items are drawn from allowed.
func (f Fields) EnumList(name string, allowed ...string) ([]string, error) {
	if !f.Has(name) {
		return nil, fieldError(name, "is required")
	}
	items, ok := f[name].([]any)
	if !ok {
		return nil, fieldError(name, "must be a list")
	}
	if len(items) == 0 {
		return nil, fieldError(name, "must not be empty")
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok || !slices.Contains(allowed, s) {
			return nil, fieldError(fmt.Sprintf("%s[%d]", name, i), "must be one of %s", strings.Join(allowed, ", "))
		}
		out = append(out, s)
	}
	return out, nil
}

// Date returns a required calendar date in YYYY-MM-DD form.
func (f Fields) Date(name string) (time.Time, error) {
	s, err := f.Text(name, 0)
	if err != nil {
		return time.Time{}, err
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fieldError(name, "must be a date in YYYY-MM-DD form")
	}
	return d, nil
}

// PositiveNumber returns a required number greater than zero.
func (f Fields) PositiveNumber(name string) (float64, error) {
	if !f.Has(name) {
		return 0, fieldError(name, "is required")
	}
	n, ok := f[name].(json.Number)
	if !ok {
		return 0, fieldError(name, "must be a number")
	}
	v, err := n.Float64()
	if err != nil || v <= 0 {
		return 0, fieldError(name, "must be a positive number")
	}
	return v, nil
}

// Forbid fails when name is present, explaining which condition forbids it.
func (f Fields) Forbid(name, because string) error {
	if f.Has(name) {
		return fieldError(name, "must be omitted when %s", because)
	}
	return nil
}

// Exclusive fails when both boolean flags are true.
func (f Fields) Exclusive(a, b string) error {
	va, err := f.Bool(a)
	if err != nil {
		return err
	}
	vb, err := f.Bool(b)
	if err != nil {
		return err
	}
	if va && vb {
		return fieldError(b, "cannot be true together with %s", a)
	}
	return nil
}
