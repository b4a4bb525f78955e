package allocate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Form carries the operator's assignment details. The delivery date is
// optional; when present it must be an ISO date the backend accepts.
type Form struct {
	DriverID     int64  `validate:"required,gt=0"`
	DeliveryDate string `validate:"omitempty,datetime=2006-01-02"`
}

// Action is one (request, driver, quantity, date) assignment instruction.
type Action struct {
	RequestID    int64
	MaterialID   string
	MaterialName string
	DriverID     int64
	Quantity     int
	DeliveryDate string
}

// Shortfall reports the part of a selected quantity that no member request
// could absorb. It is an inconsistency to surface, not a fatal error.
type Shortfall struct {
	MaterialID   string
	MaterialName string
	Missing      int
}

type Plan struct {
	Actions    []Action
	Shortfalls []Shortfall
}

// ValidationError blocks a submission before any backend call is made.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid assignment: " + strings.Join(e.Problems, "; ")
}

// BuildPlan turns the selected lines into an ordered set of assignment
// actions. Validation is fail-closed: any problem rejects the whole
// submission and every offending line is named.
func BuildPlan(lines []Line, form Form) (Plan, error) {
	var problems []string

	if err := validate.Struct(form); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			switch fieldErr.Field() {
			case "DriverID":
				problems = append(problems, "driver required")
			case "DeliveryDate":
				problems = append(problems, "delivery date must be YYYY-MM-DD")
			}
		}
	}

	selected := make([]Line, 0, len(lines))
	for _, line := range lines {
		if line.Selected && line.SelectedQuantity > 0 {
			selected = append(selected, line)
		}
	}

	if len(selected) == 0 {
		problems = append(problems, "no materials selected")
	}
	for _, line := range selected {
		if line.SelectedQuantity > line.RemainingTotal {
			problems = append(problems, fmt.Sprintf(
				"%s: selected %d exceeds remaining %d",
				line.Material.Name, line.SelectedQuantity, line.RemainingTotal))
		}
	}

	if len(problems) > 0 {
		return Plan{}, &ValidationError{Problems: problems}
	}

	plan := Plan{}
	for _, line := range selected {
		toAssign := line.SelectedQuantity

		for _, req := range line.Requests {
			if toAssign == 0 {
				break
			}
			requestRemaining := req.RequestedQuantity - req.AssignedQuantity
			if requestRemaining <= 0 {
				continue
			}

			assign := toAssign
			if requestRemaining < assign {
				assign = requestRemaining
			}

			plan.Actions = append(plan.Actions, Action{
				RequestID:    req.ID,
				MaterialID:   line.Material.ID,
				MaterialName: line.Material.Name,
				DriverID:     form.DriverID,
				Quantity:     assign,
				DeliveryDate: form.DeliveryDate,
			})
			toAssign -= assign
		}

		if toAssign > 0 {
			plan.Shortfalls = append(plan.Shortfalls, Shortfall{
				MaterialID:   line.Material.ID,
				MaterialName: line.Material.Name,
				Missing:      toAssign,
			})
		}
	}

	return plan, nil
}
