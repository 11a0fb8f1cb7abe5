package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskSweepFollowup = "tasks.sweep.followup"

const TaskSweepRenewalReminder = "tasks.sweep.renewal_reminder"

const TaskDispatchPartyEvents = "tasks.dispatch.party_events"

type SweepPayload struct {
	Family string `json:"family"`
}

type DispatchPartyEventsPayload struct {
	PartyIDs []string `json:"partyIds"`
	ActorID  string   `json:"actorId,omitempty"`
}

func NewSweepTask(taskName string, payload SweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskName, data), nil
}

func ParseSweepPayload(task *asynq.Task) (SweepPayload, error) {
	var payload SweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SweepPayload{}, err
	}
	return payload, nil
}

func NewDispatchPartyEventsTask(payload DispatchPartyEventsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDispatchPartyEvents, data), nil
}

func ParseDispatchPartyEventsPayload(task *asynq.Task) (DispatchPartyEventsPayload, error) {
	var payload DispatchPartyEventsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DispatchPartyEventsPayload{}, err
	}
	return payload, nil
}
