package model

import (
	"fmt"
	"strings"
)

// Category is the semantic change type an event is classified into.
type Category int

const (
	Irrelevant Category = iota
	Role
	UserLifecycle
	Group
	App
)

// Categories lists the four reportable categories in display order.
var Categories = []Category{Role, UserLifecycle, Group, App}

func (c Category) String() string {
	switch c {
	case Role:
		return "Role"
	case UserLifecycle:
		return "UserLifecycle"
	case Group:
		return "Group"
	case App:
		return "App"
	default:
		return "Irrelevant"
	}
}

// Command is the CLI subcommand name for the category.
func (c Category) Command() string {
	switch c {
	case Role:
		return "roles"
	case UserLifecycle:
		return "users"
	case Group:
		return "groups"
	case App:
		return "apps"
	default:
		return ""
	}
}

// ReportName is the default CSV file stem for the category.
func (c Category) ReportName() string {
	switch c {
	case Role:
		return "role_changes"
	case UserLifecycle:
		return "user_lifecycle"
	case Group:
		return "group_changes"
	case App:
		return "app_changes"
	default:
		return "changes"
	}
}

// Noun is the plural human-readable name of the category's changes.
func (c Category) Noun() string {
	switch c {
	case Role:
		return "role changes"
	case UserLifecycle:
		return "user lifecycle changes"
	case Group:
		return "group membership changes"
	case App:
		return "app assignment changes"
	default:
		return "changes"
	}
}

// ParseCategory accepts a subcommand name or a canonical category name.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(s, c.Command()) || strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return Irrelevant, fmt.Errorf("unknown category %q", s)
}

// Field names shared by every category.
const (
	FieldEventID    = "event_id"
	FieldTimestamp  = "timestamp"
	FieldActor      = "actor"
	FieldTargetUser = "target_user"
)

// Category-specific field names.
const (
	FieldOldRole        = "old_role"
	FieldNewRole        = "new_role"
	FieldLifecycleState = "lifecycle_state"
	FieldGroupName      = "group_name"
	FieldAppName        = "app_name"
	FieldAction         = "action"
)

var fieldSets = map[Category][]string{
	Role:          {FieldOldRole, FieldNewRole},
	UserLifecycle: {FieldLifecycleState},
	Group:         {FieldGroupName, FieldAction},
	App:           {FieldAppName, FieldAction},
}

// FieldSet returns the fixed, ordered summary field names of a category.
// Irrelevant has no fields.
func FieldSet(c Category) []string {
	fs := fieldSets[c]
	out := make([]string, len(fs))
	copy(out, fs)
	return out
}

// CommonFields are the leading columns of every report row.
func CommonFields() []string {
	return []string{FieldEventID, FieldTimestamp, FieldActor, FieldTargetUser}
}
