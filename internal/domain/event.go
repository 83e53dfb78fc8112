package domain

import (
	"context"
	"time"
)

// EventKind labels the lifecycle moments announced on the event feed.
type EventKind string

const (
	EventSubmitted EventKind = "submitted"
	EventApproved  EventKind = "approved"
	EventResolved  EventKind = "resolved"
)

// ReportEvent is the serialized announcement of a lifecycle moment,
// published to the optional event feed for downstream consumers (analytics,
// notification fan-out). The feed is a side channel: the core never blocks
// on it and a publish failure never fails the operation that produced it.
type ReportEvent struct {
	Kind       EventKind `json:"kind"`
	ReportID   string    `json:"report_id"`
	ReportType IssueType `json:"report_type"`
	Status     Status    `json:"status"`
	Priority   Priority  `json:"priority"`
	Actor      string    `json:"actor"` // acting user's email
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher delivers report events to the feed. A nil publisher means
// the feed is disabled.
type EventPublisher interface {
	Publish(ctx context.Context, event ReportEvent) error
}
