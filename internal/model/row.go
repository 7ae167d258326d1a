package model

import (
	"fmt"
	"time"
)

// Absent marks an optional value the source event did not carry.
const Absent = "N/A"

// Summary is the category-specific part of a row. Exactly one implementation
// exists per category, and Values is ordered like FieldSet(Category()).
type Summary interface {
	Category() Category
	Values() []string
}

// RoleChange is an administrator-role assignment change.
type RoleChange struct {
	OldRole string
	NewRole string
}

func (RoleChange) Category() Category  { return Role }
func (s RoleChange) Values() []string { return []string{s.OldRole, s.NewRole} }

// LifecycleChange is a user lifecycle transition, e.g. "create" or "suspend".
type LifecycleChange struct {
	State string
}

func (LifecycleChange) Category() Category  { return UserLifecycle }
func (s LifecycleChange) Values() []string { return []string{s.State} }

// MembershipAction is a group join or leave.
type MembershipAction string

const (
	Join  MembershipAction = "join"
	Leave MembershipAction = "leave"
)

// GroupChange is a group membership change.
type GroupChange struct {
	GroupName string
	Action    MembershipAction
}

func (GroupChange) Category() Category  { return Group }
func (s GroupChange) Values() []string { return []string{s.GroupName, string(s.Action)} }

// AssignmentAction is an app assignment or revocation.
type AssignmentAction string

const (
	Assigned AssignmentAction = "assigned"
	Revoked  AssignmentAction = "revoked"
)

// AppChange is an application assignment change.
type AppChange struct {
	AppName string
	Action  AssignmentAction
}

func (AppChange) Category() Category  { return App }
func (s AppChange) Values() []string { return []string{s.AppName, string(s.Action)} }

// NewSummary builds the Summary of category c from values keyed by field
// name. Fields missing from values are empty.
func NewSummary(c Category, values map[string]string) (Summary, error) {
	switch c {
	case Role:
		return RoleChange{OldRole: values[FieldOldRole], NewRole: values[FieldNewRole]}, nil
	case UserLifecycle:
		return LifecycleChange{State: values[FieldLifecycleState]}, nil
	case Group:
		return GroupChange{GroupName: values[FieldGroupName], Action: MembershipAction(values[FieldAction])}, nil
	case App:
		return AppChange{AppName: values[FieldAppName], Action: AssignmentAction(values[FieldAction])}, nil
	}
	return nil, fmt.Errorf("no summary for category %v", c)
}

// NormalizedRow is the extractor output: one row per relevant raw event.
type NormalizedRow struct {
	EventID    string
	Timestamp  time.Time
	Actor      string
	TargetUser string
	Category   Category
	Summary    Summary
}

// ReportRow is a NormalizedRow that survived deduplication.
type ReportRow = NormalizedRow

// SummaryFields returns the category-specific values keyed by field name.
// The key set is always FieldSet(r.Category).
func (r NormalizedRow) SummaryFields() map[string]string {
	names := FieldSet(r.Category)
	m := make(map[string]string, len(names))
	var values []string
	if r.Summary != nil {
		values = r.Summary.Values()
	}
	for i, name := range names {
		v := Absent
		if i < len(values) && values[i] != "" {
			v = values[i]
		}
		m[name] = v
	}
	return m
}

// Record returns the row's values in column order: CommonFields then FieldSet.
func (r NormalizedRow) Record() []string {
	rec := []string{
		r.EventID,
		r.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z"),
		r.Actor,
		r.TargetUser,
	}
	summary := r.SummaryFields()
	for _, name := range FieldSet(r.Category) {
		rec = append(rec, summary[name])
	}
	return rec
}

// Header returns the column names for a category's rows.
func Header(c Category) []string {
	return append(CommonFields(), FieldSet(c)...)
}
