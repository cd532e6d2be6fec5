package models

import "time"

type EventType string

const (
	EventComplaintCreated       EventType = "complaint.created"
	EventComplaintStatusChanged EventType = "complaint.status_changed"
	EventComplaintDeleted       EventType = "complaint.deleted"
)

type ComplaintEvent struct {
	Type        EventType `json:"type"`
	ComplaintID string    `json:"complaint_id"`
	Category    Category  `json:"category"`
	Priority    Priority  `json:"priority"`
	Status      Status    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func NewComplaintEvent(t EventType, c Complaint, at time.Time) ComplaintEvent {
	return ComplaintEvent{
		Type:        t,
		ComplaintID: c.ID,
		Category:    c.Category,
		Priority:    c.Priority,
		Status:      c.Status,
		OccurredAt:  at.UTC(),
	}
}
