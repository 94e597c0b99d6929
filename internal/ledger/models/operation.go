package models

import (
	"fmt"
	"strings"

	"provenant/pkg/domain"
)

// Action is what an event does to its record.
type Action string

const (
	ActionCreate         Action = "create"
	ActionUpdate         Action = "update"
	ActionDelete         Action = "delete"
	ActionAnnotateCreate Action = "annotate_create"
	ActionAnnotateUpdate Action = "annotate_update"
	ActionAdminCorrect   Action = "admin_correct"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionAnnotateCreate, ActionAnnotateUpdate, ActionAdminCorrect:
		return true
	}
	return false
}

// ChecksLineage reports whether a parent pointer on this action is subject to
// optimistic concurrency checks.
func (a Action) ChecksLineage() bool {
	return a == ActionUpdate || a == ActionAnnotateUpdate || a == ActionAdminCorrect
}

// ReplacesPayload reports whether applying the action replaces the current
// payload of the record.
func (a Action) ReplacesPayload() bool {
	return a == ActionCreate || a == ActionUpdate || a == ActionAdminCorrect
}

func (a Action) IsAnnotation() bool {
	return a == ActionAnnotateCreate || a == ActionAnnotateUpdate
}

// Operation is the tagged variant Action x Origin, e.g. "subject.update".
type Operation struct {
	Action Action      `json:"action"`
	Origin domain.Role `json:"origin"`
}

func (o Operation) String() string {
	return string(o.Origin) + "." + string(o.Action)
}

// ParseOperation parses the "origin.action" form.
func ParseOperation(s string) (Operation, error) {
	origin, action, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return Operation{}, fmt.Errorf("operation %q must have the form origin.action", s)
	}
	op := Operation{Action: Action(action), Origin: domain.Role(origin)}
	if err := op.Validate(); err != nil {
		return Operation{}, err
	}
	return op, nil
}

// Validate checks that the action is permitted for its origin. Corrections are
// reserved for admins and annotations for reviewers and admins.
func (o Operation) Validate() error {
	if !o.Action.IsValid() {
		return fmt.Errorf("unknown action %q", o.Action)
	}
	if !o.Origin.IsValid() {
		return fmt.Errorf("unknown origin %q", o.Origin)
	}
	switch {
	case o.Action == ActionAdminCorrect && o.Origin != domain.RoleAdmin:
		return fmt.Errorf("%s is reserved for admins", o.Action)
	case o.Action.IsAnnotation() && o.Origin == domain.RoleSubject:
		return fmt.Errorf("%s is not available to subjects", o.Action)
	}
	return nil
}
