package domain

import "time"

// IssueType is the closed set of civic issue categories a report can carry.
type IssueType string

const (
	IssuePothole     IssueType = "pothole"
	IssueStreetlight IssueType = "streetlight"
	IssueWaterLeak   IssueType = "water-leak"
	IssueWaste       IssueType = "waste"
	IssueManhole     IssueType = "manhole"
)

// IssueTypes lists every valid issue type in display order.
var IssueTypes = []IssueType{IssuePothole, IssueStreetlight, IssueWaterLeak, IssueWaste, IssueManhole}

// Valid reports whether t is a known issue type.
func (t IssueType) Valid() bool {
	switch t {
	case IssuePothole, IssueStreetlight, IssueWaterLeak, IssueWaste, IssueManhole:
		return true
	default:
		return false
	}
}

// Status is a report's position in the lifecycle. Transitions are monotonic:
// pending → in-progress → resolved, never backward, never skipped.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
)

// Priority is assigned once at creation by Classify and never changes.
type Priority string

const (
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Role gates lifecycle transitions. Only authorities advance reports.
type Role string

const (
	RoleCitizen   Role = "citizen"
	RoleAuthority Role = "authority"
)

// LatLng is a WGS-84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is a report's geographic position plus the human-readable address
// resolved at creation time.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// Comment is a piece of engagement metadata attached to a report. Comments
// never affect lifecycle state.
type Comment struct {
	ID          string    `json:"id"`
	Author      string    `json:"author"`
	AuthorEmail string    `json:"author_email"`
	Text        string    `json:"text"`
	PostedAt    time.Time `json:"posted_at"`
}

// Report is the unit of work: a single submitted civic issue. The core fields
// (ID, Type, Title, Description, Location, Priority, IsRainyHazard, reporter
// identity, ReportedAt) are immutable after creation. Status advances only
// through the lifecycle operations; engagement fields mutate independently.
type Report struct {
	ID          string    `json:"id"`
	Type        IssueType `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    Location  `json:"location"`

	Status        Status   `json:"status"`
	Priority      Priority `json:"priority"`
	IsRainyHazard bool     `json:"is_rainy_hazard"`

	ReportedBy      string    `json:"reported_by"`
	ReportedByEmail string    `json:"reported_by_email"`
	ReportedAt      time.Time `json:"reported_at"`

	// Set exactly once, on the in-progress → resolved transition.
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy string     `json:"resolved_by,omitempty"`

	// Engagement metadata, mutable independently of status.
	Views      int       `json:"views"`
	Upvotes    int       `json:"upvotes"`
	Downvotes  int       `json:"downvotes"`
	VotedBy    []string  `json:"voted_by,omitempty"`
	Comments   []Comment `json:"comments,omitempty"`
	ShareCount int       `json:"share_count"`
	Tags       []string  `json:"tags,omitempty"`
}

// User is an actor. Email is the unique key; reports reference it as a weak
// reference with no cascading delete. The counters and Reputation are derived
// state owned by the reputation ledger, mutated incrementally and never
// recomputed from the report set.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`

	ReportsSubmitted int `json:"reports_submitted"`
	ReportsResolved  int `json:"reports_resolved"`
	Reputation       int `json:"reputation"`

	Notifications []string  `json:"notifications"`
	JoinedAt      time.Time `json:"joined_at"`
}
