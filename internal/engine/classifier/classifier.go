package classifier

import (
	"slices"

	"github.com/hejijunhao/oktify/internal/model"
)

// eventTypes maps each reportable category to the System Log discriminators
// that belong to it. The sets are disjoint.
var eventTypes = map[model.Category][]string{
	model.Role: {
		"user.account.privilege.grant",
		"user.account.privilege.revoke",
		"group.privilege.grant",
		"group.privilege.revoke",
		"iam.role.assignment.update",
	},
	model.UserLifecycle: {
		"user.lifecycle.create",
		"user.lifecycle.activate",
		"user.lifecycle.reactivate",
		"user.lifecycle.deactivate",
		"user.lifecycle.suspend",
		"user.lifecycle.unsuspend",
		"user.lifecycle.delete.initiated",
		"user.lifecycle.delete.completed",
	},
	model.Group: {
		"group.user_membership.add",
		"group.user_membership.remove",
	},
	model.App: {
		"application.user_membership.add",
		"application.user_membership.remove",
		"application.user_assignment",
		"application.user_unassignment",
	},
}

var byType = func() map[string]model.Category {
	m := make(map[string]model.Category)
	for c, types := range eventTypes {
		for _, t := range types {
			m[t] = c
		}
	}
	return m
}()

// Classify maps an event to its category by exact discriminator match.
// Unknown discriminators are Irrelevant.
func Classify(ev model.RawEvent) model.Category {
	if c, ok := byType[ev.EventType]; ok {
		return c
	}
	return model.Irrelevant
}

// EventTypes returns the discriminators of a category, in a stable order.
func EventTypes(c model.Category) []string {
	return slices.Clone(eventTypes[c])
}
