package allocate

import (
	"ipsagent/internal"
)

// Line aggregates every outstanding request for one material within a
// project. Member requests keep the backend's (creation) order; that order
// is the tie-break when a selected quantity is spread across them.
type Line struct {
	Material         internal.Material
	Status           internal.Status
	RequestedTotal   int
	AssignedTotal    int
	RemainingTotal   int
	Requests         []internal.MaterialRequest
	SelectedQuantity int
	Selected         bool
}

func BuildLines(requests []internal.MaterialRequest) []Line {
	index := map[string]int{}
	lines := make([]Line, 0, len(requests))

	for _, req := range requests {
		materialID := req.Material.ID
		pos, ok := index[materialID]
		if !ok {
			index[materialID] = len(lines)
			lines = append(lines, Line{
				Material: req.Material,
				Status:   req.Status,
			})
			pos = index[materialID]
		}

		line := &lines[pos]
		line.RequestedTotal += req.RequestedQuantity
		line.AssignedTotal += req.AssignedQuantity
		line.RemainingTotal += req.Remaining()
		line.Requests = append(line.Requests, req)
	}

	return lines
}

// Select marks the line for the given material with an operator-entered
// quantity. The quantity is stored as entered; BuildPlan re-validates it
// against the line's remaining balance. Returns false when the material is
// not present.
func Select(lines []Line, materialID string, quantity int) bool {
	for i := range lines {
		if lines[i].Material.ID != materialID {
			continue
		}
		lines[i].SelectedQuantity = quantity
		lines[i].Selected = quantity > 0
		return true
	}
	return false
}
