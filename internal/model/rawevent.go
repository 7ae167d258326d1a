package model

import "time"

// RawEvent is one System Log entry as delivered by a connector and consumed by the engine.
type RawEvent struct {
	UUID           string
	EventType      string // discriminator, e.g. "group.user_membership.add"
	Published      time.Time
	Actor          Actor
	Targets        []Target
	Outcome        Outcome
	DisplayMessage string
	Debug          map[string]string // debugContext.debugData, flattened to strings
}

// Actor identifies who performed the change.
type Actor struct {
	ID          string
	Type        string
	AlternateID string
	DisplayName string
}

// Target is one entry of the event's free-form target list.
type Target struct {
	ID          string
	Type        string // "User", "UserGroup", "AppInstance", "ROLE", ...
	AlternateID string
	DisplayName string
	Detail      map[string]string // detailEntry, flattened to strings
}

// Outcome is the result block of an event.
type Outcome struct {
	Result string
	Reason string
}

// TargetOfType returns the first target whose type matches one of types.
func (e RawEvent) TargetOfType(types ...string) (Target, bool) {
	for _, t := range e.Targets {
		for _, want := range types {
			if t.Type == want {
				return t, true
			}
		}
	}
	return Target{}, false
}

// DebugValue returns the first non-empty debug value among keys.
func (e RawEvent) DebugValue(keys ...string) string {
	for _, k := range keys {
		if v := e.Debug[k]; v != "" {
			return v
		}
	}
	return ""
}
