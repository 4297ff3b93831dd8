package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestMatch(t *testing.T) {
	ownerID := uuid.New()
	generic := Rule{ID: uuid.New(), OwnerID: ownerID, TriggerType: TriggerNewContact, IsActive: true}
	specific := Rule{ID: uuid.New(), OwnerID: ownerID, TriggerType: TriggerNewContactWithAttribution, IsActive: true}
	inactiveSpecific := specific
	inactiveSpecific.ID = uuid.New()
	inactiveSpecific.IsActive = false
	foreign := Rule{ID: uuid.New(), OwnerID: uuid.New(), TriggerType: TriggerNewContact, IsActive: true}

	cases := []struct {
		name       string
		rules      []Rule
		attributed bool
		want       *uuid.UUID
	}{
		{"no rules", nil, false, nil},
		{"generic matches plain event", []Rule{generic}, false, &generic.ID},
		{"specific preferred for attributed event", []Rule{generic, specific}, true, &specific.ID},
		{"generic fallback for attributed event", []Rule{generic}, true, &generic.ID},
		{"specific never matches plain event", []Rule{specific}, false, nil},
		{"inactive rule ignored", []Rule{inactiveSpecific, generic}, true, &generic.ID},
		{"foreign owner ignored", []Rule{foreign}, false, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := TriggerEvent{LeadID: uuid.New(), OwnerID: ownerID, HasAttribution: tc.attributed}
			got := Match(tc.rules, ev)
			if tc.want == nil {
				if got != nil {
					t.Fatalf("Match = %v, want nil", got.ID)
				}
				return
			}
			if got == nil || got.ID != *tc.want {
				t.Fatalf("Match = %v, want %s", got, *tc.want)
			}
		})
	}
}

func TestTriggerClass(t *testing.T) {
	if got := TriggerClass(TriggerEvent{HasAttribution: true}); got != TriggerNewContactWithAttribution {
		t.Errorf("attributed class = %q", got)
	}
	if got := TriggerClass(TriggerEvent{}); got != TriggerNewContact {
		t.Errorf("plain class = %q", got)
	}
}
