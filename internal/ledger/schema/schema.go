// Package schema validates versioned clinical payloads before they reach the
// ledger. Validation is pure and fails closed on anything it does not know.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"provenant/internal/ledger/models"
)

var tagPattern = regexp.MustCompile(`^[a-z_]+-v\d+\.\d+$`)

// KindValidator checks the decoded data object of one payload kind and major
// version. It returns a *models.ValidationError naming the offending field.
type KindValidator func(data Fields) error

// Registry dispatches payloads to kind validators by kind and major version.
// Minor versions of a major are treated as backward compatible.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]map[int]KindValidator
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{validators: make(map[string]map[int]KindValidator)}
}

// Register binds a validator to kind at a major version.
func (r *Registry) Register(kind string, major int, v KindValidator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.validators[kind] == nil {
		r.validators[kind] = make(map[int]KindValidator)
	}
	r.validators[kind][major] = v
}

// Kinds lists the registered tags as kind-vMAJOR.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for kind, majors := range r.validators {
		for major := range majors {
			out = append(out, fmt.Sprintf("%s-v%d", kind, major))
		}
	}
	sort.Strings(out)
	return out
}

// Validate checks the payload tag and dispatches to the kind validator.
func (r *Registry) Validate(p models.Payload) error {
	tag := p.Tag()
	if !tagPattern.MatchString(tag) {
		return &models.ValidationError{Field: "payload.version", Reason: fmt.Sprintf("malformed payload tag %q", tag)}
	}
	major, err := majorOf(p.Version)
	if err != nil {
		return &models.ValidationError{Field: "payload.version", Reason: err.Error()}
	}

	r.mu.RLock()
	v, ok := r.validators[p.Kind][major]
	r.mu.RUnlock()
	if !ok {
		return &models.ValidationError{Field: "payload.kind", Reason: fmt.Sprintf("unsupported payload type %s", tag)}
	}

	data, err := decodeObject(p.Data)
	if err != nil {
		return &models.ValidationError{Field: "payload.data", Reason: err.Error()}
	}
	if err := v(data); err != nil {
		return err
	}
	return nil
}

func majorOf(version string) (int, error) {
	head, _, ok := strings.Cut(version, ".")
	if !ok {
		return 0, fmt.Errorf("version %q must be MAJOR.MINOR", version)
	}
	major, err := strconv.Atoi(head)
	if err != nil {
		return 0, fmt.Errorf("version %q has a non-numeric major", version)
	}
	return major, nil
}

func decodeObject(raw json.RawMessage) (Fields, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("data is required")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("data must be a JSON object: %v", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("data must be a JSON object")
	}
	if dec.More() {
		return nil, fmt.Errorf("data has trailing content")
	}
	return Fields(obj), nil
}
