// Package store provides the explicit report/user store consumed by the
// service layer. The store is an injected object with defined read/write
// operations so the lifecycle and ledger never capture state implicitly.
package store

import (
	"context"
	"errors"

	"github.com/civicgrid/civic-report-service/internal/domain"
)

// ErrNotFound is returned when a report or user does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence boundary. It is treated as durable, synchronous,
// and authoritative. Updates are last-write-wins: two rapid transitions on
// the same report from different sessions race, and the design accepts
// eventual overwrite rather than optimistic locking.
type Store interface {
	ListReports(ctx context.Context) ([]domain.Report, error)
	GetReport(ctx context.Context, id string) (domain.Report, error)
	SaveReport(ctx context.Context, r domain.Report) error

	// UpdateReport loads the report, applies mutate to it, and writes it
	// back as one store call. The mutation is a plain field update, never
	// retried or queued.
	UpdateReport(ctx context.Context, id string, mutate func(*domain.Report)) (domain.Report, error)

	GetUser(ctx context.Context, email string) (domain.User, error)
	SaveUser(ctx context.Context, u domain.User) error

	// CurrentUser tracks the single local actor's session.
	CurrentUser(ctx context.Context) (domain.User, error)
	SetCurrentUser(ctx context.Context, email string) error

	Close() error
}
