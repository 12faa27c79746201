package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amechx/rxnet/pkg/runlog"
	"github.com/amechx/rxnet/pkg/store"
)

func testServer(t *testing.T) (*Server, *store.Store, *runlog.Store) {
	t.Helper()
	st, err := store.Open(context.Background(), store.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, store.Migrate(context.Background(), st))

	runs := runlog.NewStore(t.TempDir())
	return New("localhost:0", st, runs, 0, nil), st, runs
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _, _ := testServer(t)
	rec := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCounts(t *testing.T) {
	srv, st, _ := testServer(t)
	_, err := st.DB().Exec(
		`INSERT INTO stationary (amchi_identifier, structure_text, geometry_text) VALUES (?, ?, ?)`,
		"AMCHI-A", "s", "g")
	require.NoError(t, err)

	rec := get(t, srv, "/api/v1/counts")
	require.Equal(t, http.StatusOK, rec.Code)

	var counts map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	assert.Equal(t, int64(1), counts["stationaries"])
	assert.Equal(t, int64(0), counts["transitions"])
}

func TestStationaries(t *testing.T) {
	srv, st, _ := testServer(t)
	result, err := st.DB().Exec(
		`INSERT INTO stationary (amchi_identifier, structure_text, geometry_text) VALUES (?, ?, ?)`,
		"AMCHI-A", "structure-a", "g")
	require.NoError(t, err)
	rowID, err := result.LastInsertId()
	require.NoError(t, err)

	sp := -100.5
	zp := 0.25
	_, err = st.UpsertEnergies(context.Background(), store.StationaryOwner(rowID), store.EnergyValues{
		SinglePoint: &sp,
		ZeroPoint:   &zp,
	})
	require.NoError(t, err)

	rec := get(t, srv, "/api/v1/stationaries")
	require.Equal(t, http.StatusOK, rec.Code)

	var views []stationaryView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "AMCHI-A", views[0].Identifier)
	require.NotNil(t, views[0].Energies)
	require.NotNil(t, views[0].Energies.Total)
	assert.InDelta(t, -100.25, *views[0].Energies.Total, 1e-12)
}

func TestRuns(t *testing.T) {
	srv, _, runs := testServer(t)
	require.NoError(t, runs.Write(&runlog.RunRecord{
		RunID:     "run-1",
		State:     runlog.RunStateSuccess,
		CreatedAt: time.Now().UTC(),
	}))

	rec := get(t, srv, "/api/v1/runs")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []runlog.RunRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, runlog.RunStateSuccess, got[0].State)
}

func TestRateLimit(t *testing.T) {
	st, err := store.Open(context.Background(), store.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, store.Migrate(context.Background(), st))

	srv := New("localhost:0", st, runlog.NewStore(t.TempDir()), 1, nil)

	// Burst capacity is perSecond+1; requests past it are rejected until
	// the limiter refills.
	first := get(t, srv, "/healthz")
	require.Equal(t, http.StatusOK, first.Code)
	second := get(t, srv, "/healthz")
	require.Equal(t, http.StatusOK, second.Code)
	third := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
}
