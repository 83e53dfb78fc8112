// Package service orchestrates report submission and lifecycle operations:
// it wires location, geocoding, and weather acquisition ahead of
// classification, routes transitions through the domain lifecycle, applies
// reputation credits, and feeds the optional event stream.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/civicgrid/civic-report-service/internal/domain"
	"github.com/civicgrid/civic-report-service/internal/observability"
	"github.com/civicgrid/civic-report-service/internal/store"
)

// ErrInvalidDraft wraps all submission validation failures. No partial
// report is ever persisted: validation happens before a Report exists.
var ErrInvalidDraft = errors.New("invalid draft")

// TransitionOp names a lifecycle operation requested by a caller.
type TransitionOp string

const (
	OpApprove TransitionOp = "approve"
	OpResolve TransitionOp = "resolve"
)

// Draft is a submission before validation. Location is optional: when nil,
// the service acquires a position from the locator and falls back to the
// configured demo coordinate on any failure.
type Draft struct {
	Type            domain.IssueType `json:"type"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Location        *domain.LatLng   `json:"location,omitempty"`
	ReportedBy      string           `json:"reported_by"`
	ReportedByEmail string           `json:"reported_by_email"`
}

// Filter narrows ListReports output. Zero values match everything.
type Filter struct {
	Type          domain.IssueType
	ReporterEmail string // "my reports"
	Query         string // free text over title, description, address
}

// Marker is a report's rendering position plus the fields the map layer
// uses to pick color and icon.
type Marker struct {
	ReportID      string          `json:"report_id"`
	Position      domain.LatLng   `json:"position"`
	Status        domain.Status   `json:"status"`
	Priority      domain.Priority `json:"priority"`
	IsRainyHazard bool            `json:"is_rainy_hazard"`
}

// Stats summarizes the report set for the dashboard cards.
type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
	Hazards    int `json:"hazards"`
}

// Deps bundles the service's collaborators. Locator, Geocoder, Weather, and
// Publisher are optional; a nil value disables that lookup and the
// corresponding fallback applies.
type Deps struct {
	Store     store.Store
	Locator   domain.Locator
	Geocoder  domain.Geocoder
	Weather   domain.WeatherService
	Publisher domain.EventPublisher
	Logger    *slog.Logger
	Metrics   *observability.Metrics

	// Fallback coordinate substituted when location acquisition fails.
	Fallback domain.LatLng
}

// FixedLocator answers every location request with one constant
// coordinate. The daemon uses it when no device-side position provider is
// available.
type FixedLocator struct {
	Position domain.LatLng
}

func (f FixedLocator) CurrentLocation(context.Context) (domain.LatLng, error) {
	return f.Position, nil
}

// ReportService is the single entry point for everything that reads or
// mutates reports and users.
type ReportService struct {
	deps Deps
}

// New creates a ReportService.
func New(deps Deps) *ReportService {
	return &ReportService{deps: deps}
}

// CheckReadiness reports whether the backing store is reachable.
func (s *ReportService) CheckReadiness(ctx context.Context) error {
	if _, err := s.deps.Store.ListReports(ctx); err != nil {
		return fmt.Errorf("store not reachable: %w", err)
	}
	return nil
}

// Submit validates a draft, acquires location, address, and weather (each
// with its own non-fatal fallback), classifies the hazard, and persists the
// finished report. Steps run strictly in that order; no report field is
// written out of sequence.
func (s *ReportService) Submit(ctx context.Context, draft Draft) (domain.Report, error) {
	if err := validateDraft(draft); err != nil {
		return domain.Report{}, err
	}

	position := s.resolvePosition(ctx, draft.Location)
	address := s.resolveAddress(ctx, position)
	weather := s.resolveWeather(ctx, position)
	cls := domain.Classify(draft.Type, weather)

	report := domain.Report{
		ID:          uuid.NewString(),
		Type:        draft.Type,
		Title:       strings.TrimSpace(draft.Title),
		Description: strings.TrimSpace(draft.Description),
		Location: domain.Location{
			Lat:     position.Lat,
			Lng:     position.Lng,
			Address: address,
		},
		Status:          domain.StatusPending,
		Priority:        cls.Priority,
		IsRainyHazard:   cls.IsRainyHazard,
		ReportedBy:      draft.ReportedBy,
		ReportedByEmail: draft.ReportedByEmail,
		ReportedAt:      domain.Now(),
		VotedBy:         []string{},
		Comments:        []domain.Comment{},
		Tags:            []string{string(draft.Type)},
	}

	if err := s.deps.Store.SaveReport(ctx, report); err != nil {
		return domain.Report{}, fmt.Errorf("save report: %w", err)
	}

	s.creditSubmitter(ctx, draft.ReportedByEmail)

	s.deps.Metrics.ReportsSubmitted.Inc()
	s.deps.Metrics.Classifications.WithLabelValues(string(cls.Priority)).Inc()
	s.deps.Metrics.ReportsStored.Inc()

	s.publish(ctx, domain.ReportEvent{
		Kind:       domain.EventSubmitted,
		ReportID:   report.ID,
		ReportType: report.Type,
		Status:     report.Status,
		Priority:   report.Priority,
		Actor:      report.ReportedByEmail,
		OccurredAt: report.ReportedAt,
	})

	s.deps.Logger.Info("report submitted",
		"report_id", report.ID,
		"type", report.Type,
		"priority", report.Priority,
		"rainy_hazard", report.IsRainyHazard,
	)
	return report, nil
}

// ApplyTransition runs a lifecycle operation on a report. A refused
// transition (wrong state, wrong role, unknown actor) is not an error: the
// report comes back unchanged with applied=false. Errors are reserved for
// missing reports and store failures.
func (s *ReportService) ApplyTransition(ctx context.Context, reportID string, op TransitionOp, actorEmail string) (domain.Report, bool, error) {
	report, err := s.deps.Store.GetReport(ctx, reportID)
	if err != nil {
		return domain.Report{}, false, err
	}

	actor, err := s.deps.Store.GetUser(ctx, actorEmail)
	if errors.Is(err, store.ErrNotFound) {
		s.refuse(op, reportID, actorEmail)
		return report, false, nil
	}
	if err != nil {
		return domain.Report{}, false, err
	}

	var (
		applied    bool
		resolution domain.ResolutionEvent
		kind       domain.EventKind
	)
	switch op {
	case OpApprove:
		applied = domain.Approve(&report, actor)
		kind = domain.EventApproved
	case OpResolve:
		resolution, applied = domain.Resolve(&report, actor)
		kind = domain.EventResolved
	default:
		return domain.Report{}, false, fmt.Errorf("unknown transition op %q", op)
	}

	if !applied {
		s.refuse(op, reportID, actorEmail)
		return report, false, nil
	}

	// Last write wins: a concurrent session racing this transition
	// overwrites rather than conflicts.
	if err := s.deps.Store.SaveReport(ctx, report); err != nil {
		return domain.Report{}, false, fmt.Errorf("save report: %w", err)
	}

	if op == OpResolve {
		s.creditResolver(ctx, resolution)
	}
	s.notifyReporter(ctx, report, op)

	s.deps.Metrics.TransitionsApplied.WithLabelValues(string(op)).Inc()
	s.publish(ctx, domain.ReportEvent{
		Kind:       kind,
		ReportID:   report.ID,
		ReportType: report.Type,
		Status:     report.Status,
		Priority:   report.Priority,
		Actor:      actor.Email,
		OccurredAt: domain.Now(),
	})

	s.deps.Logger.Info("transition applied", "report_id", reportID, "op", op, "actor", actor.Email)
	return report, true, nil
}

// RecordView bumps a report's view counter.
func (s *ReportService) RecordView(ctx context.Context, reportID string) (domain.Report, error) {
	report, err := s.deps.Store.UpdateReport(ctx, reportID, func(r *domain.Report) {
		domain.RecordView(r)
	})
	if err != nil {
		return domain.Report{}, err
	}
	s.deps.Metrics.ViewsRecorded.Inc()
	return report, nil
}

// MapPositions computes declustered marker positions for the whole report
// set. The input is sorted by report ID before declustering so positions
// are stable across runs regardless of store iteration order.
func (s *ReportService) MapPositions(ctx context.Context) ([]Marker, error) {
	reports, err := s.deps.Store.ListReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].ID < reports[j].ID })

	s.deps.Metrics.DeclusterBatchSize.Observe(float64(len(reports)))
	positions := domain.DeclusterPositions(reports)

	markers := make([]Marker, len(reports))
	for i, r := range reports {
		markers[i] = Marker{
			ReportID:      r.ID,
			Position:      positions[r.ID],
			Status:        r.Status,
			Priority:      r.Priority,
			IsRainyHazard: r.IsRainyHazard,
		}
	}
	return markers, nil
}

// GetReport fetches a single report.
func (s *ReportService) GetReport(ctx context.Context, reportID string) (domain.Report, error) {
	return s.deps.Store.GetReport(ctx, reportID)
}

// ListReports returns reports matching the filter, in ID order.
func (s *ReportService) ListReports(ctx context.Context, f Filter) ([]domain.Report, error) {
	reports, err := s.deps.Store.ListReports(ctx)
	if err != nil {
		return nil, err
	}

	out := reports[:0]
	for _, r := range reports {
		if matchesFilter(r, f) {
			out = append(out, r)
		}
	}
	return out, nil
}

// RecentReports returns up to n reports, newest first.
func (s *ReportService) RecentReports(ctx context.Context, n int) ([]domain.Report, error) {
	reports, err := s.deps.Store.ListReports(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].ReportedAt.After(reports[j].ReportedAt)
	})
	if n > 0 && len(reports) > n {
		reports = reports[:n]
	}
	return reports, nil
}

// Stats summarizes the report set.
func (s *ReportService) Stats(ctx context.Context) (Stats, error) {
	reports, err := s.deps.Store.ListReports(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Total: len(reports)}
	for _, r := range reports {
		switch r.Status {
		case domain.StatusPending:
			stats.Pending++
		case domain.StatusInProgress:
			stats.InProgress++
		case domain.StatusResolved:
			stats.Resolved++
		}
		if r.IsRainyHazard {
			stats.Hazards++
		}
	}
	return stats, nil
}

// Vote records an up or down vote. Each user votes at most once per report;
// a repeat vote is refused with applied=false.
func (s *ReportService) Vote(ctx context.Context, reportID, voterEmail string, up bool) (domain.Report, bool, error) {
	applied := false
	report, err := s.deps.Store.UpdateReport(ctx, reportID, func(r *domain.Report) {
		for _, email := range r.VotedBy {
			if email == voterEmail {
				return
			}
		}
		if up {
			r.Upvotes++
		} else {
			r.Downvotes++
		}
		r.VotedBy = append(r.VotedBy, voterEmail)
		applied = true
	})
	if err != nil {
		return domain.Report{}, false, err
	}
	return report, applied, nil
}

// AddComment appends an engagement comment to a report.
func (s *ReportService) AddComment(ctx context.Context, reportID, author, authorEmail, text string) (domain.Report, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Report{}, fmt.Errorf("%w: empty comment", ErrInvalidDraft)
	}

	return s.deps.Store.UpdateReport(ctx, reportID, func(r *domain.Report) {
		r.Comments = append(r.Comments, domain.Comment{
			ID:          uuid.NewString(),
			Author:      author,
			AuthorEmail: authorEmail,
			Text:        text,
			PostedAt:    domain.Now(),
		})
	})
}

// Share bumps a report's share counter.
func (s *ReportService) Share(ctx context.Context, reportID string) (domain.Report, error) {
	return s.deps.Store.UpdateReport(ctx, reportID, func(r *domain.Report) {
		r.ShareCount++
	})
}

// Authenticate loads the user for an email, creating a first-time user with
// the ledger's initial state, and marks them as the current session.
func (s *ReportService) Authenticate(ctx context.Context, name, email string, role domain.Role) (domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return domain.User{}, fmt.Errorf("%w: missing email", ErrInvalidDraft)
	}
	if role != domain.RoleCitizen && role != domain.RoleAuthority {
		return domain.User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidDraft, role)
	}

	user, err := s.deps.Store.GetUser(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		user = domain.NewUser(name, email, role)
		if err := s.deps.Store.SaveUser(ctx, user); err != nil {
			return domain.User{}, fmt.Errorf("save user: %w", err)
		}
		s.deps.Logger.Info("new user registered", "email", email, "role", role)
	} else if err != nil {
		return domain.User{}, err
	}

	if err := s.deps.Store.SetCurrentUser(ctx, email); err != nil {
		return domain.User{}, fmt.Errorf("set current user: %w", err)
	}
	return user, nil
}

// CurrentUser returns the active session's user.
func (s *ReportService) CurrentUser(ctx context.Context) (domain.User, error) {
	return s.deps.Store.CurrentUser(ctx)
}

func validateDraft(d Draft) error {
	if !d.Type.Valid() {
		return fmt.Errorf("%w: unknown issue type %q", ErrInvalidDraft, d.Type)
	}
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidDraft)
	}
	if strings.TrimSpace(d.Description) == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidDraft)
	}
	if strings.TrimSpace(d.ReportedBy) == "" || strings.TrimSpace(d.ReportedByEmail) == "" {
		return fmt.Errorf("%w: missing reporter identity", ErrInvalidDraft)
	}
	return nil
}

// resolvePosition picks the draft's own coordinate, the locator's answer,
// or the configured fallback, in that order.
func (s *ReportService) resolvePosition(ctx context.Context, position *domain.LatLng) domain.LatLng {
	if position != nil {
		return *position
	}
	if s.deps.Locator == nil {
		return s.deps.Fallback
	}
	loc, err := s.deps.Locator.CurrentLocation(ctx)
	if err != nil {
		s.deps.Logger.Warn("location acquisition failed, using fallback", "error", err)
		return s.deps.Fallback
	}
	return loc
}

// resolveAddress reverse-geocodes the position, falling back to the bare
// coordinate string when the lookup is unavailable or fails.
func (s *ReportService) resolveAddress(ctx context.Context, position domain.LatLng) string {
	fallback := fmt.Sprintf("%.5f, %.5f", position.Lat, position.Lng)
	if s.deps.Geocoder == nil {
		return fallback
	}
	address, err := s.deps.Geocoder.ReverseGeocode(ctx, position.Lat, position.Lng)
	if err != nil {
		s.deps.Logger.Warn("reverse geocoding failed, using coordinate address", "error", err)
		s.deps.Metrics.LookupRequests.WithLabelValues("geocode", "fallback").Inc()
		return fallback
	}
	return address
}

// resolveWeather fetches the snapshot for classification, substituting the
// neutral no-hazard snapshot on any failure.
func (s *ReportService) resolveWeather(ctx context.Context, position domain.LatLng) domain.Weather {
	if s.deps.Weather == nil {
		return domain.NeutralWeather()
	}
	snapshot, err := s.deps.Weather.CheckWeather(ctx, position.Lat, position.Lng)
	if err != nil {
		s.deps.Logger.Warn("weather lookup failed, using neutral snapshot", "error", err)
		s.deps.Metrics.LookupRequests.WithLabelValues("weather", "fallback").Inc()
		return domain.NeutralWeather()
	}
	return snapshot
}

func (s *ReportService) creditSubmitter(ctx context.Context, email string) {
	user, err := s.deps.Store.GetUser(ctx, email)
	if err != nil {
		s.deps.Logger.Warn("submitter not found, skipping reputation credit", "email", email)
		return
	}
	domain.CreditSubmission(&user)
	if err := s.deps.Store.SaveUser(ctx, user); err != nil {
		s.deps.Logger.Error("save submitter reputation failed", "email", email, "error", err)
	}
}

func (s *ReportService) creditResolver(ctx context.Context, event domain.ResolutionEvent) {
	user, err := s.deps.Store.GetUser(ctx, event.ResolvedBy)
	if err != nil {
		s.deps.Logger.Warn("resolver not found, skipping reputation credit", "email", event.ResolvedBy)
		return
	}
	domain.CreditResolution(&user)
	if err := s.deps.Store.SaveUser(ctx, user); err != nil {
		s.deps.Logger.Error("save resolver reputation failed", "email", event.ResolvedBy, "error", err)
	}
}

// notifyReporter appends a status notification to the submitting user.
// Best-effort, like the event feed: a missing user or store failure never
// fails the transition.
func (s *ReportService) notifyReporter(ctx context.Context, report domain.Report, op TransitionOp) {
	user, err := s.deps.Store.GetUser(ctx, report.ReportedByEmail)
	if err != nil {
		return
	}
	var message string
	switch op {
	case OpApprove:
		message = fmt.Sprintf("Your report %q is now in progress.", report.Title)
	case OpResolve:
		message = fmt.Sprintf("Your report %q has been resolved by %s.", report.Title, report.ResolvedBy)
	}
	user.Notifications = append(user.Notifications, message)
	if err := s.deps.Store.SaveUser(ctx, user); err != nil {
		s.deps.Logger.Warn("save reporter notification failed", "email", user.Email, "error", err)
	}
}

// publish sends an event to the feed when one is configured. The feed is
// best-effort: failures are logged and counted, never returned.
func (s *ReportService) publish(ctx context.Context, event domain.ReportEvent) {
	if s.deps.Publisher == nil {
		return
	}
	if err := s.deps.Publisher.Publish(ctx, event); err != nil {
		s.deps.Metrics.PublishErrors.Inc()
		s.deps.Logger.Warn("event publish failed", "report_id", event.ReportID, "kind", event.Kind, "error", err)
		return
	}
	s.deps.Metrics.EventsPublished.Inc()
}

func (s *ReportService) refuse(op TransitionOp, reportID, actorEmail string) {
	s.deps.Metrics.TransitionsRefused.WithLabelValues(string(op)).Inc()
	s.deps.Logger.Info("transition refused", "report_id", reportID, "op", op, "actor", actorEmail)
}

func matchesFilter(r domain.Report, f Filter) bool {
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.ReporterEmail != "" && r.ReportedByEmail != f.ReporterEmail {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(r.Title), q) &&
			!strings.Contains(strings.ToLower(r.Description), q) &&
			!strings.Contains(strings.ToLower(r.Location.Address), q) {
			return false
		}
	}
	return true
}
