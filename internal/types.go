package internal

// Status is the lifecycle of a material request or delivery assignment.
// Transitions are forward-only; there is no defined backward transition.
type Status string

const (
	StatusPending           Status = "PENDING"
	StatusPartiallyAssigned Status = "PARTIALLY_ASSIGNED"
	StatusAssigned          Status = "ASSIGNED"
	StatusSent              Status = "SENT"
	StatusDelivered         Status = "DELIVERED"
	StatusCancelled         Status = "CANCELLED"
)

// AllowedUpdateStatuses is the client-side allowlist for delivery status
// updates; anything else is rejected before a request is made.
var AllowedUpdateStatuses = []Status{
	StatusPending,
	StatusPartiallyAssigned,
	StatusAssigned,
	StatusSent,
}

func IsAllowedUpdateStatus(s Status) bool {
	for _, allowed := range AllowedUpdateStatuses {
		if s == allowed {
			return true
		}
	}
	return false
}

type Role string

const (
	RoleAdmin          Role = "ADMIN"
	RoleHeadDriver     Role = "HEAD_DRIVER"
	RoleDriver         Role = "DRIVER"
	RoleProjectManager Role = "PROJECT_MANAGER"
	RoleWorker         Role = "WORKER"
)

type Material struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Unit string `json:"unit,omitempty"`
}

type Driver struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ProjectCode string `json:"projectCode,omitempty"`
	Address     string `json:"address,omitempty"`
}

type MaterialRequest struct {
	ID                int64    `json:"id"`
	Project           Project  `json:"project"`
	Material          Material `json:"material"`
	RequestedQuantity int      `json:"requestedQuantity"`
	AssignedQuantity  int      `json:"assignedQuantity"`
	Status            Status   `json:"status"`
	Driver            *Driver  `json:"driver,omitempty"`
	DeliveryDate      string   `json:"deliveryDate,omitempty"`
	RequestDate       string   `json:"requestDate,omitempty"`
}

// Remaining is the still-unassigned balance of the request. The backend
// owns the invariant assigned <= requested; a negative result is clamped
// so optimistic local copies never report a negative balance.
func (r MaterialRequest) Remaining() int {
	remaining := r.RequestedQuantity - r.AssignedQuantity
	if remaining < 0 {
		return 0
	}
	return remaining
}

type Delivery struct {
	ID              int64           `json:"id"`
	MaterialRequest MaterialRequest `json:"materialRequest"`
	Driver          *Driver         `json:"driver,omitempty"`
	Status          Status          `json:"status"`
	AssignedAt      string          `json:"assignedAt,omitempty"`
}
