// Package domain holds the pure rule-matching logic of the automation
// matcher. No I/O: callers load candidate rules, Match picks the winner.
package domain

import (
	"github.com/google/uuid"
)

// Trigger types a rule can bind to.
const (
	TriggerNewContact                = "new_contact"
	TriggerNewContactWithAttribution = "new_contact_with_attribution"
)

// IsKnownTriggerType reports whether t is a supported trigger type.
func IsKnownTriggerType(t string) bool {
	return t == TriggerNewContact || t == TriggerNewContactWithAttribution
}

// TriggerEvent is an inbound new-contact event. HasAttribution is
// computed once at ingestion; Attributes stay opaque to the matcher.
type TriggerEvent struct {
	LeadID         uuid.UUID
	OwnerID        uuid.UUID
	HasAttribution bool
	Attributes     map[string]string
}

// Rule is a configured mapping from a trigger type to an initial
// placement target.
type Rule struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	TriggerType string
	PipelineID  uuid.UUID
	StageID     uuid.UUID
	IsActive    bool
}

// TriggerClass derives the event's trigger class. An event with
// attribution metadata qualifies for the specific class and also,
// as a fallback, for the plain new-contact class.
func TriggerClass(ev TriggerEvent) string {
	if ev.HasAttribution {
		return TriggerNewContactWithAttribution
	}
	return TriggerNewContact
}

// Match selects the rule to apply for the event, or nil when none
// applies. Among active rules, the attribution-specific rule wins for
// attributed events; the plain new-contact rule is the fallback.
// Inactive rules never participate.
func Match(rules []Rule, ev TriggerEvent) *Rule {
	var generic, specific *Rule
	for i := range rules {
		r := &rules[i]
		if !r.IsActive || r.OwnerID != ev.OwnerID {
			continue
		}
		switch r.TriggerType {
		case TriggerNewContact:
			if generic == nil {
				generic = r
			}
		case TriggerNewContactWithAttribution:
			if specific == nil {
				specific = r
			}
		}
	}

	if ev.HasAttribution && specific != nil {
		return specific
	}
	return generic
}
