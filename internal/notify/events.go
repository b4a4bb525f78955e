package notify

import (
	"fmt"

	"ipsagent/internal"
)

// Event is a role-scoped, displayable rendering of a transition.
type Event struct {
	Key   string
	Tag   string
	Title string
	Body  string
}

// EventFor maps a transition to an event for the acting role. Roles not
// listed for a reached status get nothing; PARTIALLY_ASSIGNED advances the
// dedup key but notifies no one.
func EventFor(tr Transition, role internal.Role) (Event, bool) {
	title, body, relevant := render(tr, role)
	if !relevant {
		return Event{}, false
	}

	tag := fmt.Sprintf("material-request-%d", tr.EntityID)
	if tr.Kind == KindDelivery {
		tag = fmt.Sprintf("delivery-%d", tr.EntityID)
	}

	return Event{Key: tr.Key(), Tag: tag, Title: title, Body: body}, true
}

func render(tr Transition, role internal.Role) (string, string, bool) {
	projectName := "project"
	materialName := "material"
	driverName := "A driver"
	requestedQty := 0

	if tr.Request != nil {
		if tr.Request.Project.Name != "" {
			projectName = tr.Request.Project.Name
		}
		if tr.Request.Material.Name != "" {
			materialName = tr.Request.Material.Name
		}
		if tr.Request.Driver != nil && tr.Request.Driver.Name != "" {
			driverName = tr.Request.Driver.Name
		}
		requestedQty = tr.Request.RequestedQuantity
	}
	if tr.Delivery != nil {
		if tr.Delivery.MaterialRequest.Project.Name != "" {
			projectName = tr.Delivery.MaterialRequest.Project.Name
		}
		if tr.Delivery.MaterialRequest.Material.Name != "" {
			materialName = tr.Delivery.MaterialRequest.Material.Name
		}
		if tr.Delivery.Driver != nil && tr.Delivery.Driver.Name != "" {
			driverName = tr.Delivery.Driver.Name
		}
	}

	switch tr.To {
	case internal.StatusAssigned:
		if role == internal.RoleDriver || role == internal.RoleHeadDriver {
			return "New Delivery Assignment",
				fmt.Sprintf("You've been assigned to deliver %d %s to %s", requestedQty, materialName, projectName),
				true
		}
		if role == internal.RoleProjectManager {
			return "Driver Assigned",
				fmt.Sprintf("%s assigned for %s delivery", driverName, materialName),
				true
		}

	case internal.StatusDelivered:
		if role == internal.RoleProjectManager || role == internal.RoleHeadDriver {
			return "Delivery Completed",
				fmt.Sprintf("%s (%d) delivered to %s", materialName, requestedQty, projectName),
				true
		}

	case internal.StatusPending:
		if role == internal.RoleHeadDriver {
			return "New Material Request",
				fmt.Sprintf("%s requested %d %s", projectName, requestedQty, materialName),
				true
		}

	case internal.StatusSent:
		if role == internal.RoleProjectManager || role == internal.RoleHeadDriver || role == internal.RoleAdmin {
			return "Delivery Sent",
				fmt.Sprintf("%s is on the way to %s", driverName, projectName),
				true
		}

	case internal.StatusCancelled:
		if role == internal.RoleDriver || role == internal.RoleProjectManager {
			return "Delivery Cancelled",
				fmt.Sprintf("Delivery to %s has been cancelled", projectName),
				true
		}
	}

	return "", "", false
}
