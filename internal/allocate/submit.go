package allocate

import (
	"context"

	"ipsagent/internal"
	"ipsagent/internal/api"
)

// Assigner is the slice of the backend client the submitter needs.
type Assigner interface {
	Assign(ctx context.Context, requestID int64, payload api.AssignPayload) (internal.MaterialRequest, error)
}

type Submitter struct {
	client Assigner
}

func NewSubmitter(client Assigner) *Submitter {
	return &Submitter{client: client}
}

type FailedAction struct {
	Action Action
	Err    error
}

// Result reports the outcome of a submission. Partial success is a valid
// outcome: committed actions are never rolled back.
type Result struct {
	Committed  []Action
	Failed     []FailedAction
	Skipped    []Action
	Shortfalls []Shortfall
}

func (r Result) AllCommitted() bool {
	return len(r.Failed) == 0 && len(r.Skipped) == 0
}

// Submit executes the plan's actions strictly in order, one call at a
// time. A failed call stops the rest of that material line (its members
// share the same balance state); independent lines continue.
func (s *Submitter) Submit(ctx context.Context, plan Plan) Result {
	result := Result{Shortfalls: plan.Shortfalls}
	failedLines := map[string]bool{}

	for _, action := range plan.Actions {
		if failedLines[action.MaterialID] {
			result.Skipped = append(result.Skipped, action)
			continue
		}

		_, err := s.client.Assign(ctx, action.RequestID, api.AssignPayload{
			DriverID:         action.DriverID,
			AssignedQuantity: action.Quantity,
			DeliveryDate:     action.DeliveryDate,
		})
		if err != nil {
			failedLines[action.MaterialID] = true
			result.Failed = append(result.Failed, FailedAction{Action: action, Err: err})
			continue
		}

		result.Committed = append(result.Committed, action)
	}

	return result
}
