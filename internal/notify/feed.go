package notify

import (
	"fmt"

	"ipsagent/internal"
)

// SeenChecker answers whether a notification key was already shown; backed
// by the durable seen set.
type SeenChecker func(key string) bool

type FeedItem struct {
	Key          string
	Unread       bool
	Status       internal.Status
	Title        string
	ProjectName  string
	ProjectCode  string
	MaterialName string
	RequestedQty int
	AssignedQty  int
	DriverName   string
	When         string
	RequestID    int64
}

// BuildFeed renders the current request snapshot as a notification list.
// An item is unread iff its (id, status) key is absent from the seen set;
// stale entries stay listed until a newer status supersedes their key.
func BuildFeed(requests []internal.MaterialRequest, seen SeenChecker) []FeedItem {
	items := make([]FeedItem, 0, len(requests))

	for _, req := range requests {
		status := req.Status
		if status == "" {
			status = internal.StatusPending
		}

		materialName := req.Material.Name
		if materialName == "" {
			materialName = "Material"
		}
		driverName := ""
		if req.Driver != nil {
			driverName = req.Driver.Name
		}

		var title string
		switch status {
		case internal.StatusPending:
			title = fmt.Sprintf("New request: %d %s", req.RequestedQuantity, materialName)
		case internal.StatusAssigned, internal.StatusPartiallyAssigned:
			who := driverName
			if who == "" {
				who = "driver"
			}
			title = fmt.Sprintf("%s assigned %d %s", who, req.AssignedQuantity, materialName)
		case internal.StatusDelivered:
			title = fmt.Sprintf("%s delivered", materialName)
		default:
			title = fmt.Sprintf("Request update: %s", materialName)
		}

		when := req.DeliveryDate
		if when == "" {
			when = req.RequestDate
		}

		key := fmt.Sprintf("%d::%s", req.ID, status)
		items = append(items, FeedItem{
			Key:          key,
			Unread:       !seen(key),
			Status:       status,
			Title:        title,
			ProjectName:  req.Project.Name,
			ProjectCode:  req.Project.ProjectCode,
			MaterialName: materialName,
			RequestedQty: req.RequestedQuantity,
			AssignedQty:  req.AssignedQuantity,
			DriverName:   driverName,
			When:         when,
			RequestID:    req.ID,
		})
	}

	return items
}

func UnreadCount(items []FeedItem) int {
	count := 0
	for _, item := range items {
		if item.Unread {
			count++
		}
	}
	return count
}

// Keys lists every key in the feed, the set MarkSeen persists when the
// notification panel is opened.
func Keys(items []FeedItem) []string {
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.Key)
	}
	return keys
}
