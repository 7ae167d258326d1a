package model

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"
	"time"
)

var ts = time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)

func row(s Summary) NormalizedRow {
	return NormalizedRow{
		EventID:    "e1",
		Timestamp:  ts,
		Actor:      "admin@x.com",
		TargetUser: "alice@x.com",
		Category:   s.Category(),
		Summary:    s,
	}
}

func TestSummaryFieldsMatchFieldSet(t *testing.T) {
	summaries := []Summary{
		RoleChange{OldRole: "Help Desk Admin", NewRole: "Super Admin"},
		RoleChange{},
		LifecycleChange{State: "suspend"},
		GroupChange{GroupName: "Engineering", Action: Join},
		AppChange{AppName: "Slack", Action: Revoked},
		AppChange{},
	}
	for _, s := range summaries {
		t.Run(fmt.Sprintf("%T", s), func(t *testing.T) {
			r := row(s)
			var keys []string
			for k := range r.SummaryFields() {
				keys = append(keys, k)
			}
			want := FieldSet(s.Category())
			sort.Strings(keys)
			sort.Strings(want)
			if !reflect.DeepEqual(keys, want) {
				t.Fatalf("keys = %v, want %v", keys, want)
			}
		})
	}
}

func TestSummaryFieldsAbsent(t *testing.T) {
	r := row(RoleChange{OldRole: "Read Only Admin"})
	f := r.SummaryFields()
	if f[FieldOldRole] != "Read Only Admin" {
		t.Errorf("old_role = %q", f[FieldOldRole])
	}
	if f[FieldNewRole] != Absent {
		t.Errorf("new_role = %q, want %q", f[FieldNewRole], Absent)
	}
}

func TestRecordAndHeader(t *testing.T) {
	r := row(GroupChange{GroupName: "Engineering", Action: Leave})
	want := []string{"e1", "2024-05-10T08:00:00.000Z", "admin@x.com", "alice@x.com", "Engineering", "leave"}
	if got := r.Record(); !reflect.DeepEqual(got, want) {
		t.Errorf("Record() = %v, want %v", got, want)
	}

	header := Header(Group)
	if len(header) != len(want) {
		t.Fatalf("Header() has %d columns, Record() has %d", len(header), len(want))
	}
	if header[4] != FieldGroupName || header[5] != FieldAction {
		t.Errorf("Header() = %v", header)
	}
}

func TestFieldSetIsCopy(t *testing.T) {
	fs := FieldSet(Role)
	fs[0] = "mutated"
	if FieldSet(Role)[0] != FieldOldRole {
		t.Fatal("FieldSet returned shared slice")
	}
	if len(FieldSet(Irrelevant)) != 0 {
		t.Error("Irrelevant should have no fields")
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		for _, name := range []string{c.Command(), c.String()} {
			got, err := ParseCategory(name)
			if err != nil || got != c {
				t.Errorf("ParseCategory(%q) = %v, %v", name, got, err)
			}
		}
	}
	if _, err := ParseCategory("sessions"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestRetryExhaustedErrorMatches(t *testing.T) {
	cause := fmt.Errorf("status 503: %w", ErrTransport)
	var err error = &RetryExhaustedError{LastCursor: "https://x/p2", Attempts: 6, Cause: cause}
	if !errors.Is(err, ErrRetryExhausted) || !errors.Is(err, ErrTransport) {
		t.Fatalf("errors.Is failed for %v", err)
	}

	var mal error = &MalformedEventError{EventID: "e9", EventType: "group.user_membership.add", Field: "group_name"}
	if !errors.Is(mal, ErrMalformedEvent) {
		t.Fatal("MalformedEventError should wrap ErrMalformedEvent")
	}
}

func TestNewSummary(t *testing.T) {
	for _, c := range Categories {
		values := map[string]string{}
		for _, f := range FieldSet(c) {
			values[f] = "v-" + f
		}
		s, err := NewSummary(c, values)
		if err != nil {
			t.Fatalf("NewSummary(%v) error: %v", c, err)
		}
		if s.Category() != c {
			t.Errorf("NewSummary(%v).Category() = %v", c, s.Category())
		}
		got := row(s).SummaryFields()
		if !reflect.DeepEqual(got, values) {
			t.Errorf("NewSummary(%v) fields = %v, want %v", c, got, values)
		}
	}
	if _, err := NewSummary(Irrelevant, nil); err == nil {
		t.Error("expected error for Irrelevant")
	}
}
