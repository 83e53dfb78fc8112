package domain

// Lifecycle operations advance a report through its fixed workflow:
//
//	pending → in-progress → resolved
//
// There is no cancellation, rejection, or backward transition, and reports
// are never deleted. Every precondition is re-checked inside the operation
// itself; the checks here are the single source of truth, regardless of
// whatever gating the caller applied. Violations (wrong state, wrong role)
// are silent no-ops rather than errors, so racy callers acting on stale
// state cannot corrupt a report. The boolean return reports whether the
// transition applied, letting callers skip persistence on refusal.

// ResolutionEvent is emitted on a successful resolve and consumed by the
// reputation ledger to credit the resolving authority.
type ResolutionEvent struct {
	ReportID   string
	ResolvedBy string // resolving user's email
}

// Approve moves a pending report to in-progress. Allowed only for an
// authority acting on a pending report; anything else leaves the report
// untouched and returns false. No other field changes.
func Approve(r *Report, actor User) bool {
	if r.Status != StatusPending || actor.Role != RoleAuthority {
		return false
	}
	r.Status = StatusInProgress
	return true
}

// Resolve moves an in-progress report to resolved, stamping ResolvedAt from
// the package clock and ResolvedBy with the actor's name. Allowed only for
// an authority acting on an in-progress report. ResolvedAt and ResolvedBy
// are set by no other path.
func Resolve(r *Report, actor User) (ResolutionEvent, bool) {
	if r.Status != StatusInProgress || actor.Role != RoleAuthority {
		return ResolutionEvent{}, false
	}
	now := clock.Now()
	r.Status = StatusResolved
	r.ResolvedAt = &now
	r.ResolvedBy = actor.Name
	return ResolutionEvent{ReportID: r.ID, ResolvedBy: actor.Email}, true
}

// RecordView increments the report's view counter. Allowed unconditionally;
// it never touches status.
func RecordView(r *Report) {
	r.Views++
}
