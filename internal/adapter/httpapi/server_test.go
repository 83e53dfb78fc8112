package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicgrid/civic-report-service/internal/adapter/httpapi"
	"github.com/civicgrid/civic-report-service/internal/domain"
	"github.com/civicgrid/civic-report-service/internal/observability"
	"github.com/civicgrid/civic-report-service/internal/service"
	"github.com/civicgrid/civic-report-service/internal/store"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type stubWeather struct {
	weather domain.Weather
}

func (s stubWeather) CheckWeather(context.Context, float64, float64) (domain.Weather, error) {
	return s.weather, nil
}

func newTestServer(t *testing.T, readyErr error) (*httpapi.Server, store.Store) {
	t.Helper()

	mem := store.NewMemory()
	svc := service.New(service.Deps{
		Store:    mem,
		Locator:  service.FixedLocator{Position: domain.LatLng{Lat: 20.5937, Lng: 78.9629}},
		Weather:  stubWeather{weather: domain.Weather{Condition: domain.ConditionRain}},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:  observability.NewMetricsForTesting(),
		Fallback: domain.LatLng{Lat: 20.5937, Lng: 78.9629},
	})
	return httpapi.NewServer(":0", svc, &mockReadiness{err: readyErr}, slog.New(slog.NewTextHandler(io.Discard, nil))), mem
}

func doJSON(t *testing.T, srv *httpapi.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	srv.ServeHTTP(rec, req)
	return rec
}

func submitReport(t *testing.T, srv *httpapi.Server) domain.Report {
	t.Helper()

	rec := doJSON(t, srv, http.MethodPost, "/api/reports", map[string]any{
		"type":              "pothole",
		"title":             "Deep pothole outside the market",
		"description":       "Half a metre wide, growing after every rain.",
		"reported_by":       "Asha",
		"reported_by_email": "asha@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var report domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	return report
}

func authenticate(t *testing.T, srv *httpapi.Server, name, email string, role domain.Role) {
	t.Helper()

	rec := doJSON(t, srv, http.MethodPost, "/api/auth", map[string]any{
		"name": name, "email": email, "role": role,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHealthzReturns200(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyz(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		rec := doJSON(t, srv, http.MethodGet, "/readyz", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready", func(t *testing.T) {
		srv, _ := newTestServer(t, fmt.Errorf("store offline"))
		rec := doJSON(t, srv, http.MethodGet, "/readyz", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := doJSON(t, srv, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitReport(t *testing.T) {
	t.Run("creates a classified report", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		report := submitReport(t, srv)

		assert.NotEmpty(t, report.ID)
		assert.Equal(t, domain.StatusPending, report.Status)
		assert.Equal(t, domain.PriorityCritical, report.Priority)
		assert.True(t, report.IsRainyHazard)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/reports", bytes.NewReader([]byte("{not json")))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects invalid drafts", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		rec := doJSON(t, srv, http.MethodPost, "/api/reports", map[string]any{
			"type":  "graffiti",
			"title": "x",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListReports(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	submitReport(t, srv)

	t.Run("lists everything", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/reports", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Reports []domain.Report `json:"reports"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body.Reports, 1)
	})

	t.Run("type filter excludes non-matching reports", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/reports?type=streetlight", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Reports []domain.Report `json:"reports"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Empty(t, body.Reports)
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/reports?type=graffiti", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRecentReports(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	submitReport(t, srv)
	submitReport(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/reports/recent?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Reports []domain.Report `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Reports, 1)

	rec = doJSON(t, srv, http.MethodGet, "/api/reports/recent?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPositions(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	submitReport(t, srv)
	submitReport(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/reports/positions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Positions []service.Marker `json:"positions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Positions, 2)
	assert.NotEqual(t, body.Positions[0].Position, body.Positions[1].Position)
}

func TestStatsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	submitReport(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/reports/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats service.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Hazards)
}

func TestGetReport(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	report := submitReport(t, srv)

	rec := doJSON(t, srv, http.MethodGet, "/api/reports/"+report.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/reports/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestViewEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	report := submitReport(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/api/reports/"+report.ID+"/view", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 1, updated.Views)
}

func TestTransitionEndpoints(t *testing.T) {
	t.Run("authority walks the full lifecycle", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		authenticate(t, srv, "Officer Rao", "rao@city.gov", domain.RoleAuthority)
		report := submitReport(t, srv)

		rec := doJSON(t, srv, http.MethodPost, "/api/reports/"+report.ID+"/approve", map[string]any{
			"actor_email": "rao@city.gov",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Applied bool          `json:"applied"`
			Report  domain.Report `json:"report"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Applied)
		assert.Equal(t, domain.StatusInProgress, body.Report.Status)

		rec = doJSON(t, srv, http.MethodPost, "/api/reports/"+report.ID+"/resolve", map[string]any{
			"actor_email": "rao@city.gov",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Applied)
		assert.Equal(t, domain.StatusResolved, body.Report.Status)
	})

	t.Run("citizen approval comes back unapplied", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		authenticate(t, srv, "Asha", "asha@example.com", domain.RoleCitizen)
		report := submitReport(t, srv)

		rec := doJSON(t, srv, http.MethodPost, "/api/reports/"+report.ID+"/approve", map[string]any{
			"actor_email": "asha@example.com",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Applied bool          `json:"applied"`
			Report  domain.Report `json:"report"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Applied)
		assert.Equal(t, domain.StatusPending, body.Report.Status)
	})

	t.Run("missing report is 404", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		rec := doJSON(t, srv, http.MethodPost, "/api/reports/no-such-id/approve", map[string]any{
			"actor_email": "rao@city.gov",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestVoteEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	report := submitReport(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/api/reports/"+report.ID+"/vote", map[string]any{
		"voter_email": "voter@example.com",
		"direction":   "up",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Applied bool          `json:"applied"`
		Report  domain.Report `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Applied)
	assert.Equal(t, 1, body.Report.Upvotes)

	rec = doJSON(t, srv, http.MethodPost, "/api/reports/"+report.ID+"/vote", map[string]any{
		"voter_email": "voter@example.com",
		"direction":   "sideways",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommentEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	report := submitReport(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/api/reports/"+report.ID+"/comments", map[string]any{
		"author":       "Vikram",
		"author_email": "vikram@example.com",
		"text":         "Flagged to the ward office.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var updated domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Len(t, updated.Comments, 1)
	assert.Equal(t, "Flagged to the ward office.", updated.Comments[0].Text)

	rec = doJSON(t, srv, http.MethodPost, "/api/reports/"+report.ID+"/comments", map[string]any{
		"author": "Vikram",
		"text":   "   ",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShareEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	report := submitReport(t, srv)

	rec := doJSON(t, srv, http.MethodPost, "/api/reports/"+report.ID+"/share", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated domain.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 1, updated.ShareCount)
}

func TestAuthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	t.Run("sign-in creates and returns the user", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/auth", map[string]any{
			"name": "Asha", "email": "asha@example.com", "role": "citizen",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var user domain.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
		assert.Equal(t, 100, user.Reputation)
	})

	t.Run("current user follows the last sign-in", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/auth/me", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var user domain.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
		assert.Equal(t, "asha@example.com", user.Email)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/auth", map[string]any{
			"name": "Mallory", "email": "mallory@example.com", "role": "admin",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
