package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/civicgrid/civic-report-service/internal/domain"
)

// SQLite is the durable store. Engagement collections (voted_by, comments,
// tags, notifications) are stored as JSON columns so they round-trip
// unchanged without their own tables.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures
// the schema exists. Use ":memory:" for an ephemeral database in tests.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		address TEXT NOT NULL,
		status TEXT NOT NULL CHECK(status IN ('pending', 'in-progress', 'resolved')),
		priority TEXT NOT NULL CHECK(priority IN ('medium', 'high', 'critical')),
		is_rainy_hazard INTEGER NOT NULL DEFAULT 0,
		reported_by TEXT NOT NULL,
		reported_by_email TEXT NOT NULL,
		reported_at DATETIME NOT NULL,
		resolved_at DATETIME,
		resolved_by TEXT NOT NULL DEFAULT '',
		views INTEGER NOT NULL DEFAULT 0,
		upvotes INTEGER NOT NULL DEFAULT 0,
		downvotes INTEGER NOT NULL DEFAULT 0,
		voted_by TEXT NOT NULL DEFAULT '[]',
		comments TEXT NOT NULL DEFAULT '[]',
		share_count INTEGER NOT NULL DEFAULT 0,
		tags TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS users (
		email TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL CHECK(role IN ('citizen', 'authority')),
		reports_submitted INTEGER NOT NULL DEFAULT 0,
		reports_resolved INTEGER NOT NULL DEFAULT 0,
		reputation INTEGER NOT NULL DEFAULT 0,
		notifications TEXT NOT NULL DEFAULT '[]',
		joined_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS session (
		id INTEGER PRIMARY KEY CHECK(id = 1),
		email TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

const reportColumns = `id, type, title, description, lat, lng, address, status, priority,
	is_rainy_hazard, reported_by, reported_by_email, reported_at, resolved_at, resolved_by,
	views, upvotes, downvotes, voted_by, comments, share_count, tags`

func (s *SQLite) ListReports(ctx context.Context) ([]domain.Report, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+reportColumns+` FROM reports ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func (s *SQLite) GetReport(ctx context.Context, id string) (domain.Report, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Report{}, ErrNotFound
	}
	return r, err
}

func (s *SQLite) SaveReport(ctx context.Context, r domain.Report) error {
	votedBy, comments, tags, err := marshalEngagement(r)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (`+reportColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			resolved_at = excluded.resolved_at,
			resolved_by = excluded.resolved_by,
			views = excluded.views,
			upvotes = excluded.upvotes,
			downvotes = excluded.downvotes,
			voted_by = excluded.voted_by,
			comments = excluded.comments,
			share_count = excluded.share_count,
			tags = excluded.tags`,
		r.ID, r.Type, r.Title, r.Description, r.Location.Lat, r.Location.Lng, r.Location.Address,
		r.Status, r.Priority, r.IsRainyHazard, r.ReportedBy, r.ReportedByEmail, r.ReportedAt,
		nullableTime(r.ResolvedAt), r.ResolvedBy,
		r.Views, r.Upvotes, r.Downvotes, votedBy, comments, r.ShareCount, tags,
	)
	if err != nil {
		return fmt.Errorf("save report %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLite) UpdateReport(ctx context.Context, id string, mutate func(*domain.Report)) (domain.Report, error) {
	r, err := s.GetReport(ctx, id)
	if err != nil {
		return domain.Report{}, err
	}
	mutate(&r)
	if err := s.SaveReport(ctx, r); err != nil {
		return domain.Report{}, err
	}
	return r, nil
}

func (s *SQLite) GetUser(ctx context.Context, email string) (domain.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT email, name, role, reports_submitted, reports_resolved, reputation, notifications, joined_at
		FROM users WHERE email = ?`, email)

	var u domain.User
	var notifications string
	err := row.Scan(&u.Email, &u.Name, &u.Role, &u.ReportsSubmitted, &u.ReportsResolved,
		&u.Reputation, &notifications, &u.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user %s: %w", email, err)
	}
	if err := json.Unmarshal([]byte(notifications), &u.Notifications); err != nil {
		return domain.User{}, fmt.Errorf("decode notifications for %s: %w", email, err)
	}
	return u, nil
}

func (s *SQLite) SaveUser(ctx context.Context, u domain.User) error {
	notifications, err := json.Marshal(u.Notifications)
	if err != nil {
		return fmt.Errorf("encode notifications for %s: %w", u.Email, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (email, name, role, reports_submitted, reports_resolved, reputation, notifications, joined_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			reports_submitted = excluded.reports_submitted,
			reports_resolved = excluded.reports_resolved,
			reputation = excluded.reputation,
			notifications = excluded.notifications`,
		u.Email, u.Name, u.Role, u.ReportsSubmitted, u.ReportsResolved, u.Reputation,
		string(notifications), u.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("save user %s: %w", u.Email, err)
	}
	return nil
}

func (s *SQLite) CurrentUser(ctx context.Context) (domain.User, error) {
	var email string
	err := s.db.QueryRowContext(ctx, `SELECT email FROM session WHERE id = 1`).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("current user: %w", err)
	}
	return s.GetUser(ctx, email)
}

func (s *SQLite) SetCurrentUser(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session (id, email) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET email = excluded.email`, email)
	if err != nil {
		return fmt.Errorf("set current user: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (domain.Report, error) {
	var r domain.Report
	var resolvedAt sql.NullTime
	var votedBy, comments, tags string

	err := row.Scan(&r.ID, &r.Type, &r.Title, &r.Description,
		&r.Location.Lat, &r.Location.Lng, &r.Location.Address,
		&r.Status, &r.Priority, &r.IsRainyHazard,
		&r.ReportedBy, &r.ReportedByEmail, &r.ReportedAt, &resolvedAt, &r.ResolvedBy,
		&r.Views, &r.Upvotes, &r.Downvotes, &votedBy, &comments, &r.ShareCount, &tags)
	if err != nil {
		return domain.Report{}, err
	}

	if resolvedAt.Valid {
		t := resolvedAt.Time
		r.ResolvedAt = &t
	}
	if err := json.Unmarshal([]byte(votedBy), &r.VotedBy); err != nil {
		return domain.Report{}, fmt.Errorf("decode voted_by for %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(comments), &r.Comments); err != nil {
		return domain.Report{}, fmt.Errorf("decode comments for %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil {
		return domain.Report{}, fmt.Errorf("decode tags for %s: %w", r.ID, err)
	}
	return r, nil
}

func marshalEngagement(r domain.Report) (votedBy, comments, tags string, err error) {
	vb, err := json.Marshal(r.VotedBy)
	if err != nil {
		return "", "", "", fmt.Errorf("encode voted_by for %s: %w", r.ID, err)
	}
	cm, err := json.Marshal(r.Comments)
	if err != nil {
		return "", "", "", fmt.Errorf("encode comments for %s: %w", r.ID, err)
	}
	tg, err := json.Marshal(r.Tags)
	if err != nil {
		return "", "", "", fmt.Errorf("encode tags for %s: %w", r.ID, err)
	}
	return string(vb), string(cm), string(tg), nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
