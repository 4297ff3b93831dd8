package scheduler

import (
	"testing"

	"github.com/google/uuid"
)

func TestAutomationTriggerTaskRoundTrip(t *testing.T) {
	payload := AutomationTriggerPayload{
		LeadID:         uuid.NewString(),
		OwnerID:        uuid.NewString(),
		HasAttribution: true,
		Attributes:     map[string]string{"utm_source": "meta", "utm_campaign": "spring"},
	}

	task, err := NewAutomationTriggerTask(payload)
	if err != nil {
		t.Fatalf("NewAutomationTriggerTask: %v", err)
	}
	if task.Type() != TaskAutomationTrigger {
		t.Errorf("task type = %q, want %q", task.Type(), TaskAutomationTrigger)
	}

	got, err := ParseAutomationTriggerPayload(task)
	if err != nil {
		t.Fatalf("ParseAutomationTriggerPayload: %v", err)
	}
	if got.LeadID != payload.LeadID || got.OwnerID != payload.OwnerID || !got.HasAttribution {
		t.Errorf("payload = %+v, want %+v", got, payload)
	}
	if got.Attributes["utm_source"] != "meta" {
		t.Errorf("attributes = %v", got.Attributes)
	}
}
