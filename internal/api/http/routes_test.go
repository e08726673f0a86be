package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdx-scrapers/icpac-cdi/internal/pipeline"
	"github.com/hdx-scrapers/icpac-cdi/internal/store"
)

func newApp(t *testing.T, reports ...pipeline.RunReport) *fiber.App {
	t.Helper()
	memStore := store.NewMemoryStore(10, 0)
	for _, r := range reports {
		memStore.SaveRun(r)
	}
	app := fiber.New()
	RegisterRoutes(app, memStore)
	return app
}

func get(t *testing.T, app *fiber.App, target string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	return resp
}

func TestLatestRunEmptyStore(t *testing.T) {
	resp := get(t, newApp(t), "/api/v1/runs/latest")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLatestRun(t *testing.T) {
	started := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	app := newApp(t,
		pipeline.RunReport{BatchID: "first", StartedAt: started},
		pipeline.RunReport{BatchID: "second", StartedAt: started.Add(time.Hour)},
	)

	resp := get(t, app, "/api/v1/runs/latest")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got pipeline.RunReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "second", got.BatchID)
}

func TestLatestRunDataset(t *testing.T) {
	app := newApp(t, pipeline.RunReport{
		BatchID:   "b",
		StartedAt: time.Now().UTC(),
		Datasets: []pipeline.DatasetSummary{
			{Name: "igad-region-dekadal-combined-drought-indicator-cdi-2024", Published: true},
		},
	})

	resp := get(t, app, "/api/v1/runs/latest/datasets/igad-region-dekadal-combined-drought-indicator-cdi-2024")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got pipeline.DatasetSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.True(t, got.Published)

	resp = get(t, app, "/api/v1/runs/latest/datasets/igad-region-monthly-combined-drought-indicator-cdi-2024")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = get(t, app, "/api/v1/runs/latest/datasets/other-dataset")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// TestHistoryValidation verifies that the history endpoint requires a valid,
// ordered time range.
func TestHistoryValidation(t *testing.T) {
	app := newApp(t)

	for _, target := range []string{
		"/api/v1/runs",
		"/api/v1/runs?from=2024-01-01T00:00:00Z",
		"/api/v1/runs?from=yesterday&to=today",
		"/api/v1/runs?from=2024-02-01T00:00:00Z&to=2024-01-01T00:00:00Z",
	} {
		resp := get(t, app, target)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, target)
	}
}

func TestHistoryRange(t *testing.T) {
	day := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	app := newApp(t,
		pipeline.RunReport{BatchID: "a", StartedAt: day},
		pipeline.RunReport{BatchID: "b", StartedAt: day.AddDate(0, 0, 1)},
		pipeline.RunReport{BatchID: "c", StartedAt: day.AddDate(0, 0, 2)},
	)

	from := day.Add(time.Hour).Unix()
	to := day.AddDate(0, 0, 2).Format(time.RFC3339)
	resp := get(t, app, "/api/v1/runs?from="+strconv.FormatInt(from, 10)+"&to="+to)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Runs []pipeline.RunReport `json:"runs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Runs, 2)
	assert.Equal(t, "b", body.Runs[0].BatchID)
	assert.Equal(t, "c", body.Runs[1].BatchID)

	resp = get(t, app, "/api/v1/runs?from=2020-01-01T00:00:00Z&to=2020-01-02T00:00:00Z")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
