package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskAutomationTrigger = "automation.trigger"

// AutomationTriggerPayload is the wire form of a new-contact trigger
// event. IDs travel as strings; the worker re-parses them.
type AutomationTriggerPayload struct {
	LeadID         string            `json:"leadId"`
	OwnerID        string            `json:"ownerId"`
	HasAttribution bool              `json:"hasAttribution"`
	Attributes     map[string]string `json:"attributes,omitempty"`
}

func NewAutomationTriggerTask(payload AutomationTriggerPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAutomationTrigger, data), nil
}

func ParseAutomationTriggerPayload(task *asynq.Task) (AutomationTriggerPayload, error) {
	var payload AutomationTriggerPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AutomationTriggerPayload{}, err
	}
	return payload, nil
}
