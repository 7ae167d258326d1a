// Package extractor turns classified raw events into normalized rows. There is
// one extractor per category; each declares the summary fields it requires and
// fails per event when one of them is missing.
package extractor

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/hejijunhao/oktify/internal/model"
)

// Target types as reported in the System Log target list.
const (
	TargetUser  = "User"
	TargetGroup = "UserGroup"
	TargetApp   = "AppInstance"
	TargetRole  = "ROLE"
)

// Extractor builds the rows of one category.
type Extractor struct {
	Category model.Category
	Required []string // summary fields that must be present
	Optional []string // summary fields emitted as model.Absent when missing

	// subject names the principal reported as target_user. Nil means the
	// first User target.
	subject func(ev model.RawEvent) string
	// fields reads the raw summary values; Extract checks them against
	// Required and Optional.
	fields func(ev model.RawEvent) map[string]string
}

var extractors = map[model.Category]Extractor{
	model.Role: {
		Category: model.Role,
		Optional: []string{model.FieldOldRole, model.FieldNewRole},
		subject:  roleSubject,
		fields:   roleFields,
	},
	model.UserLifecycle: {
		Category: model.UserLifecycle,
		Required: []string{model.FieldLifecycleState},
		fields:   lifecycleFields,
	},
	model.Group: {
		Category: model.Group,
		Required: []string{model.FieldGroupName, model.FieldAction},
		fields:   groupFields,
	},
	model.App: {
		Category: model.App,
		Required: []string{model.FieldAppName, model.FieldAction},
		fields:   appFields,
	},
}

// For returns the extractor of a reportable category.
func For(c model.Category) (Extractor, bool) {
	x, ok := extractors[c]
	return x, ok
}

// Extract builds a NormalizedRow of category c from ev.
func Extract(c model.Category, ev model.RawEvent) (model.NormalizedRow, error) {
	x, ok := For(c)
	if !ok {
		return model.NormalizedRow{}, fmt.Errorf("no extractor for category %v", c)
	}
	return x.Extract(ev)
}

// Extract checks the common required fields, then the declared summary
// fields. Failures are *model.MalformedEventError.
func (x Extractor) Extract(ev model.RawEvent) (model.NormalizedRow, error) {
	malformed := func(field string) error {
		return &model.MalformedEventError{EventID: ev.UUID, EventType: ev.EventType, Field: field}
	}

	subject := targetUser
	if x.subject != nil {
		subject = x.subject
	}
	row := model.NormalizedRow{
		EventID:    clean(ev.UUID),
		Timestamp:  ev.Published.UTC(),
		Actor:      actorName(ev.Actor),
		TargetUser: subject(ev),
		Category:   x.Category,
	}
	switch {
	case row.EventID == "":
		return model.NormalizedRow{}, malformed(model.FieldEventID)
	case ev.Published.IsZero():
		return model.NormalizedRow{}, malformed(model.FieldTimestamp)
	case row.Actor == "":
		return model.NormalizedRow{}, malformed(model.FieldActor)
	case row.TargetUser == "":
		return model.NormalizedRow{}, malformed(model.FieldTargetUser)
	}

	values := x.fields(ev)
	for _, f := range x.Required {
		if values[f] = clean(values[f]); values[f] == "" {
			return model.NormalizedRow{}, malformed(f)
		}
	}
	for _, f := range x.Optional {
		values[f] = orAbsent(clean(values[f]))
	}
	summary, err := model.NewSummary(x.Category, values)
	if err != nil {
		return model.NormalizedRow{}, err
	}
	row.Summary = summary
	return row, nil
}

func actorName(a model.Actor) string {
	return first(a.AlternateID, a.DisplayName, a.ID)
}

func targetUser(ev model.RawEvent) string {
	t, ok := ev.TargetOfType(TargetUser)
	if !ok {
		return ""
	}
	return first(t.AlternateID, t.Detail["login"], t.ID)
}

// roleSubject reports the group itself for group.privilege.* events, which
// grant a role to a UserGroup rather than to a user.
func roleSubject(ev model.RawEvent) string {
	if !strings.HasPrefix(ev.EventType, "group.privilege.") {
		return targetUser(ev)
	}
	t, ok := ev.TargetOfType(TargetGroup)
	if !ok {
		return ""
	}
	return first(t.DisplayName, t.AlternateID, t.ID)
}

func roleFields(ev model.RawEvent) map[string]string {
	oldRole := clean(ev.DebugValue("previousRole", "previousRoleId", "privilegeRevoked"))
	newRole := clean(ev.DebugValue("newRole", "newRoleId", "privilegeGranted"))
	if t, ok := ev.TargetOfType(TargetRole); ok {
		role := first(t.DisplayName, t.AlternateID, t.ID)
		revoke := strings.HasSuffix(ev.EventType, ".revoke")
		if revoke && oldRole == "" {
			oldRole = role
		} else if !revoke && newRole == "" {
			newRole = role
		}
	}
	return map[string]string{model.FieldOldRole: oldRole, model.FieldNewRole: newRole}
}

func lifecycleFields(ev model.RawEvent) map[string]string {
	state, ok := strings.CutPrefix(ev.EventType, "user.lifecycle.")
	if !ok {
		state = ""
	}
	return map[string]string{model.FieldLifecycleState: state}
}

func groupFields(ev model.RawEvent) map[string]string {
	t, _ := ev.TargetOfType(TargetGroup)
	var action model.MembershipAction
	switch {
	case strings.HasSuffix(ev.EventType, ".add"):
		action = model.Join
	case strings.HasSuffix(ev.EventType, ".remove"):
		action = model.Leave
	}
	return map[string]string{model.FieldGroupName: t.DisplayName, model.FieldAction: string(action)}
}

func appFields(ev model.RawEvent) map[string]string {
	t, _ := ev.TargetOfType(TargetApp)
	var action model.AssignmentAction
	switch ev.EventType {
	case "application.user_membership.add", "application.user_assignment":
		action = model.Assigned
	case "application.user_membership.remove", "application.user_unassignment":
		action = model.Revoked
	}
	return map[string]string{model.FieldAppName: t.DisplayName, model.FieldAction: string(action)}
}

// clean trims and NFC-normalizes a source string so that visually identical
// names compare and print identically.
func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func first(values ...string) string {
	for _, v := range values {
		if c := clean(v); c != "" {
			return c
		}
	}
	return ""
}

func orAbsent(s string) string {
	if s == "" {
		return model.Absent
	}
	return s
}
