package allocate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"ipsagent/internal"
	"ipsagent/internal/api"
)

type fakeAssigner struct {
	calls  []Action
	failOn map[int64]error
}

func (f *fakeAssigner) Assign(_ context.Context, requestID int64, payload api.AssignPayload) (internal.MaterialRequest, error) {
	f.calls = append(f.calls, Action{
		RequestID: requestID,
		DriverID:  payload.DriverID,
		Quantity:  payload.AssignedQuantity,
	})
	if err, ok := f.failOn[requestID]; ok {
		return internal.MaterialRequest{}, err
	}
	return internal.MaterialRequest{ID: requestID}, nil
}

func planOf(actions ...Action) Plan {
	return Plan{Actions: actions}
}

func TestSubmitSequentialOrder(t *testing.T) {
	fake := &fakeAssigner{}
	plan := planOf(
		Action{RequestID: 1, MaterialID: "a", Quantity: 6, DriverID: 9},
		Action{RequestID: 2, MaterialID: "a", Quantity: 1, DriverID: 9},
		Action{RequestID: 3, MaterialID: "b", Quantity: 4, DriverID: 9},
	)

	result := NewSubmitter(fake).Submit(context.Background(), plan)

	if len(fake.calls) != 3 {
		t.Fatalf("calls=%d want 3", len(fake.calls))
	}
	for i, want := range []int64{1, 2, 3} {
		if fake.calls[i].RequestID != want {
			t.Fatalf("call %d hit request %d, want %d", i, fake.calls[i].RequestID, want)
		}
	}
	if !result.AllCommitted() || len(result.Committed) != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSubmitFailureStopsOnlyThatLine(t *testing.T) {
	boom := errors.New("assigned quantity cannot exceed requested quantity")
	fake := &fakeAssigner{failOn: map[int64]error{1: boom}}
	plan := planOf(
		Action{RequestID: 1, MaterialID: "a", MaterialName: "Cement", Quantity: 6},
		Action{RequestID: 2, MaterialID: "a", MaterialName: "Cement", Quantity: 1},
		Action{RequestID: 3, MaterialID: "b", MaterialName: "Sand", Quantity: 4},
	)

	result := NewSubmitter(fake).Submit(context.Background(), plan)

	// Request 2 shares the failed line and must not be attempted; the sand
	// line is independent and continues.
	if len(fake.calls) != 2 || fake.calls[0].RequestID != 1 || fake.calls[1].RequestID != 3 {
		t.Fatalf("unexpected calls: %+v", fake.calls)
	}
	if len(result.Failed) != 1 || result.Failed[0].Action.RequestID != 1 {
		t.Fatalf("unexpected failures: %+v", result.Failed)
	}
	if result.Failed[0].Action.Quantity != 6 {
		t.Fatalf("failure must carry the attempted quantity: %+v", result.Failed[0])
	}
	if !errors.Is(result.Failed[0].Err, boom) {
		t.Fatalf("failure lost the cause: %v", result.Failed[0].Err)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].RequestID != 2 {
		t.Fatalf("unexpected skips: %+v", result.Skipped)
	}
	if len(result.Committed) != 1 || result.Committed[0].RequestID != 3 {
		t.Fatalf("unexpected commits: %+v", result.Committed)
	}
	if result.AllCommitted() {
		t.Fatal("partial result must not report full success")
	}
}

func TestSubmitCarriesShortfalls(t *testing.T) {
	fake := &fakeAssigner{}
	plan := Plan{
		Actions:    []Action{{RequestID: 1, MaterialID: "a", Quantity: 2}},
		Shortfalls: []Shortfall{{MaterialID: "a", MaterialName: "Cement", Missing: 3}},
	}

	result := NewSubmitter(fake).Submit(context.Background(), plan)
	if len(result.Shortfalls) != 1 || result.Shortfalls[0].Missing != 3 {
		t.Fatalf("shortfalls lost: %+v", result.Shortfalls)
	}
}

func TestSubmitEndToEndFromPlan(t *testing.T) {
	lines := BuildLines([]internal.MaterialRequest{
		req(1, "cement", 6, 0),
		req(2, "cement", 4, 0),
		req(3, "sand", 4, 2),
	})
	if !Select(lines, "cement", 7) || !Select(lines, "sand", 2) {
		t.Fatal("selection failed")
	}

	plan, err := BuildPlan(lines, Form{DriverID: 5, DeliveryDate: "2025-09-29"})
	if err != nil {
		t.Fatal(err)
	}

	fake := &fakeAssigner{}
	result := NewSubmitter(fake).Submit(context.Background(), plan)
	if !result.AllCommitted() {
		t.Fatalf("unexpected result: %+v", result)
	}

	got := fmt.Sprintf("%v", fake.calls)
	want := fmt.Sprintf("%v", []Action{
		{RequestID: 1, DriverID: 5, Quantity: 6},
		{RequestID: 2, DriverID: 5, Quantity: 1},
		{RequestID: 3, DriverID: 5, Quantity: 2},
	})
	if got != want {
		t.Fatalf("calls %s want %s", got, want)
	}
}
