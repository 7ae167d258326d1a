package extractor

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hejijunhao/oktify/internal/model"
)

var published = time.Date(2024, 5, 10, 8, 30, 0, 0, time.UTC)

func base(eventType string, targets ...model.Target) model.RawEvent {
	return model.RawEvent{
		UUID:      "evt-1",
		EventType: eventType,
		Published: published,
		Actor:     model.Actor{ID: "00u-admin", AlternateID: "admin@example.com", DisplayName: "Admin"},
		Targets: append([]model.Target{
			{ID: "00u-alice", Type: TargetUser, AlternateID: "alice@example.com", DisplayName: "Alice"},
		}, targets...),
	}
}

func TestRoleChangeAlice(t *testing.T) {
	ev := base("user.account.privilege.grant")
	ev.Debug = map[string]string{"previousRole": "User", "newRole": "Admin"}

	row, err := Extract(model.Role, ev)
	require.NoError(t, err)

	assert.Equal(t, "evt-1", row.EventID)
	assert.Equal(t, published, row.Timestamp)
	assert.Equal(t, "admin@example.com", row.Actor)
	assert.Equal(t, "alice@example.com", row.TargetUser)
	assert.Equal(t, model.Role, row.Category)
	assert.Equal(t, map[string]string{"old_role": "User", "new_role": "Admin"}, row.SummaryFields())
}

func TestRoleChangeSources(t *testing.T) {
	tests := []struct {
		name    string
		ev      model.RawEvent
		wantOld string
		wantNew string
	}{
		{
			name: "role target on grant",
			ev: base("user.account.privilege.grant",
				model.Target{Type: TargetRole, DisplayName: "Super Administrator"}),
			wantOld: model.Absent,
			wantNew: "Super Administrator",
		},
		{
			name: "role target on revoke",
			ev: base("user.account.privilege.revoke",
				model.Target{Type: TargetRole, DisplayName: "Help Desk Administrator"}),
			wantOld: "Help Desk Administrator",
			wantNew: model.Absent,
		},
		{
			name: "debug ids",
			ev: func() model.RawEvent {
				ev := base("iam.role.assignment.update")
				ev.Debug = map[string]string{"previousRoleId": "ro-1", "newRoleId": "ro-2"}
				return ev
			}(),
			wantOld: "ro-1",
			wantNew: "ro-2",
		},
		{
			name:    "nothing known",
			ev:      base("user.account.privilege.grant"),
			wantOld: model.Absent,
			wantNew: model.Absent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, err := Extract(model.Role, tt.ev)
			require.NoError(t, err)
			f := row.SummaryFields()
			assert.Equal(t, tt.wantOld, f[model.FieldOldRole])
			assert.Equal(t, tt.wantNew, f[model.FieldNewRole])
		})
	}
}

// groupPrivilege mirrors the System Log shape of group.privilege.* events:
// the grantee is a UserGroup and there is no User target.
func groupPrivilege(eventType string, debug map[string]string) model.RawEvent {
	return model.RawEvent{
		UUID:      "evt-gp",
		EventType: eventType,
		Published: published,
		Actor:     model.Actor{ID: "00u-admin", AlternateID: "admin@example.com"},
		Targets: []model.Target{
			{ID: "00g-helpdesk", Type: TargetGroup, AlternateID: "unknown", DisplayName: "Help Desk"},
		},
		Debug: debug,
	}
}

func TestGroupPrivilege(t *testing.T) {
	row, err := Extract(model.Role, groupPrivilege("group.privilege.grant",
		map[string]string{"privilegeGranted": "Help Desk Administrator"}))
	require.NoError(t, err)
	assert.Equal(t, "Help Desk", row.TargetUser)
	assert.Equal(t, model.RoleChange{OldRole: model.Absent, NewRole: "Help Desk Administrator"}, row.Summary)

	row, err = Extract(model.Role, groupPrivilege("group.privilege.revoke",
		map[string]string{"privilegeRevoked": "Help Desk Administrator"}))
	require.NoError(t, err)
	assert.Equal(t, "Help Desk", row.TargetUser)
	assert.Equal(t, model.RoleChange{OldRole: "Help Desk Administrator", NewRole: model.Absent}, row.Summary)

	ev := groupPrivilege("group.privilege.grant", nil)
	ev.Targets = nil
	_, err = Extract(model.Role, ev)
	assertMalformed(t, err, model.FieldTargetUser)
}

func TestLifecycle(t *testing.T) {
	for _, typ := range []string{"user.lifecycle.create", "user.lifecycle.suspend", "user.lifecycle.delete.completed"} {
		row, err := Extract(model.UserLifecycle, base(typ))
		require.NoError(t, err, typ)
		assert.Equal(t, typ[len("user.lifecycle."):], row.SummaryFields()[model.FieldLifecycleState])
	}

	_, err := Extract(model.UserLifecycle, base("user.session.start"))
	assertMalformed(t, err, model.FieldLifecycleState)
}

func TestGroup(t *testing.T) {
	group := model.Target{ID: "00g1", Type: TargetGroup, DisplayName: "Engineering"}

	row, err := Extract(model.Group, base("group.user_membership.add", group))
	require.NoError(t, err)
	assert.Equal(t, model.GroupChange{GroupName: "Engineering", Action: model.Join}, row.Summary)

	row, err = Extract(model.Group, base("group.user_membership.remove", group))
	require.NoError(t, err)
	assert.Equal(t, model.GroupChange{GroupName: "Engineering", Action: model.Leave}, row.Summary)

	_, err = Extract(model.Group, base("group.user_membership.add"))
	assertMalformed(t, err, model.FieldGroupName)
}

func TestGroupMissingTargetUser(t *testing.T) {
	ev := base("group.user_membership.add")
	ev.Targets = []model.Target{{Type: TargetGroup, DisplayName: "Engineering"}}

	_, err := Extract(model.Group, ev)
	assertMalformed(t, err, model.FieldTargetUser)
}

func TestApp(t *testing.T) {
	app := model.Target{Type: TargetApp, DisplayName: "Slack"}
	tests := map[string]model.AssignmentAction{
		"application.user_membership.add":    model.Assigned,
		"application.user_assignment":        model.Assigned,
		"application.user_membership.remove": model.Revoked,
		"application.user_unassignment":      model.Revoked,
	}
	for typ, want := range tests {
		row, err := Extract(model.App, base(typ, app))
		require.NoError(t, err, typ)
		assert.Equal(t, model.AppChange{AppName: "Slack", Action: want}, row.Summary, typ)
	}

	_, err := Extract(model.App, base("application.user_assignment"))
	assertMalformed(t, err, model.FieldAppName)
}

func TestCommonFieldFallbacks(t *testing.T) {
	ev := base("user.lifecycle.create")
	ev.Actor = model.Actor{ID: "00u-system"}
	ev.Targets = []model.Target{
		{Type: TargetGroup, DisplayName: "ignored"},
		{Type: TargetUser, ID: "00u-bob", Detail: map[string]string{"login": "bob@example.com"}},
	}

	row, err := Extract(model.UserLifecycle, ev)
	require.NoError(t, err)
	assert.Equal(t, "00u-system", row.Actor)
	assert.Equal(t, "bob@example.com", row.TargetUser)
}

func TestCommonFieldsRequired(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*model.RawEvent)
	}{
		{model.FieldEventID, func(ev *model.RawEvent) { ev.UUID = " " }},
		{model.FieldTimestamp, func(ev *model.RawEvent) { ev.Published = time.Time{} }},
		{model.FieldActor, func(ev *model.RawEvent) { ev.Actor = model.Actor{} }},
		{model.FieldTargetUser, func(ev *model.RawEvent) { ev.Targets = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			ev := base("user.lifecycle.create")
			tt.mutate(&ev)
			_, err := Extract(model.UserLifecycle, ev)
			assertMalformed(t, err, tt.field)
		})
	}
}

func TestNFCNormalization(t *testing.T) {
	// "Jose" followed by a combining acute accent.
	ev := base("group.user_membership.add", model.Target{Type: TargetGroup, DisplayName: "Jose\u0301 Team "})
	row, err := Extract(model.Group, ev)
	require.NoError(t, err)
	assert.Equal(t, "Jos\u00e9 Team", row.SummaryFields()[model.FieldGroupName])
}

func TestFieldSetInvariant(t *testing.T) {
	events := map[model.Category]model.RawEvent{
		model.Role:          base("user.account.privilege.revoke"),
		model.UserLifecycle: base("user.lifecycle.reactivate"),
		model.Group:         base("group.user_membership.remove", model.Target{Type: TargetGroup, DisplayName: "Ops"}),
		model.App:           base("application.user_unassignment", model.Target{Type: TargetApp, DisplayName: "Zoom"}),
	}
	for _, c := range model.Categories {
		x, ok := For(c)
		require.True(t, ok, c)

		declared := append(append([]string{}, x.Required...), x.Optional...)
		want := model.FieldSet(c)
		sort.Strings(declared)
		sort.Strings(want)
		assert.Equal(t, want, declared, "%v declares a different field set", c)

		row, err := x.Extract(events[c])
		require.NoError(t, err, c)
		require.Equal(t, c, row.Summary.Category())
		var keys []string
		for k := range row.SummaryFields() {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		assert.Equal(t, want, keys, c)
	}
}

func TestExtractIrrelevant(t *testing.T) {
	_, err := Extract(model.Irrelevant, base("user.session.start"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, model.ErrMalformedEvent))
}

func assertMalformed(t *testing.T, err error, field string) {
	t.Helper()
	var mal *model.MalformedEventError
	require.ErrorAs(t, err, &mal)
	assert.Equal(t, field, mal.Field)
	assert.ErrorIs(t, err, model.ErrMalformedEvent)
}
