package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testAuthority = User{Name: "Ward Officer", Email: "officer@city.gov", Role: RoleAuthority}
	testCitizen   = User{Name: "Asha Rao", Email: "asha@example.com", Role: RoleCitizen}
)

func pendingReport() Report {
	return Report{ID: "rep-1", Type: IssuePothole, Status: StatusPending}
}

func TestApprove(t *testing.T) {
	t.Run("authority approves pending report", func(t *testing.T) {
		r := pendingReport()

		applied := Approve(&r, testAuthority)

		assert.True(t, applied)
		assert.Equal(t, StatusInProgress, r.Status)
	})

	t.Run("citizen cannot approve", func(t *testing.T) {
		r := pendingReport()

		applied := Approve(&r, testCitizen)

		assert.False(t, applied)
		assert.Equal(t, StatusPending, r.Status)
	})

	t.Run("no-op on in-progress report", func(t *testing.T) {
		r := pendingReport()
		r.Status = StatusInProgress

		assert.False(t, Approve(&r, testAuthority))
		assert.Equal(t, StatusInProgress, r.Status)
	})

	t.Run("no-op on resolved report", func(t *testing.T) {
		r := pendingReport()
		r.Status = StatusResolved

		assert.False(t, Approve(&r, testAuthority))
		assert.Equal(t, StatusResolved, r.Status)
	})
}

func TestResolve(t *testing.T) {
	frozen := time.Date(2025, 7, 14, 9, 30, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	t.Cleanup(func() { SetClock(nil) })

	t.Run("authority resolves in-progress report", func(t *testing.T) {
		r := pendingReport()
		r.Status = StatusInProgress

		event, applied := Resolve(&r, testAuthority)

		require.True(t, applied)
		assert.Equal(t, StatusResolved, r.Status)
		require.NotNil(t, r.ResolvedAt)
		assert.Equal(t, frozen, *r.ResolvedAt)
		assert.Equal(t, testAuthority.Name, r.ResolvedBy)
		assert.Equal(t, ResolutionEvent{ReportID: "rep-1", ResolvedBy: testAuthority.Email}, event)
	})

	t.Run("cannot skip pending to resolved", func(t *testing.T) {
		r := pendingReport()

		_, applied := Resolve(&r, testAuthority)

		assert.False(t, applied)
		assert.Equal(t, StatusPending, r.Status)
		assert.Nil(t, r.ResolvedAt)
		assert.Empty(t, r.ResolvedBy)
	})

	t.Run("citizen cannot resolve", func(t *testing.T) {
		r := pendingReport()
		r.Status = StatusInProgress

		_, applied := Resolve(&r, testCitizen)

		assert.False(t, applied)
		assert.Equal(t, StatusInProgress, r.Status)
		assert.Nil(t, r.ResolvedAt)
	})

	t.Run("resolve is not repeatable", func(t *testing.T) {
		r := pendingReport()
		r.Status = StatusInProgress

		_, applied := Resolve(&r, testAuthority)
		require.True(t, applied)
		firstResolvedAt := *r.ResolvedAt

		_, applied = Resolve(&r, testAuthority)

		assert.False(t, applied)
		assert.Equal(t, firstResolvedAt, *r.ResolvedAt)
	})
}

func TestMonotonicLifecycle(t *testing.T) {
	// Full walk: pending → in-progress → resolved, no path backward.
	r := pendingReport()

	require.True(t, Approve(&r, testAuthority))
	_, applied := Resolve(&r, testAuthority)
	require.True(t, applied)

	assert.False(t, Approve(&r, testAuthority))
	_, applied = Resolve(&r, testAuthority)
	assert.False(t, applied)
	assert.Equal(t, StatusResolved, r.Status)
}

func TestRecordView(t *testing.T) {
	r := pendingReport()

	RecordView(&r)
	RecordView(&r)
	RecordView(&r)

	assert.Equal(t, 3, r.Views)
	assert.Equal(t, StatusPending, r.Status)
}
