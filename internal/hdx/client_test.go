package hdx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdx-scrapers/icpac-cdi/internal/cdi"
	"github.com/hdx-scrapers/icpac-cdi/internal/resilience"
)

var fastBackoff = resilience.BackoffConfig{
	MaxRetries:      2,
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
}

func writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "result": result})
}

func writeNotFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   map[string]any{"__type": "Not Found Error", "message": "Not found"},
	})
}

func TestReadDataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/3/action/package_show", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("Authorization"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))

		switch r.URL.Query().Get("id") {
		case "igad-region-dekadal-combined-drought-indicator-cdi-2024":
			writeResult(w, map[string]any{
				"id":   "pkg-1",
				"name": "igad-region-dekadal-combined-drought-indicator-cdi-2024",
				"resources": []map[string]any{
					{"id": "r-1", "name": "eadw-cdi-data-2024-01-01.tif"},
					{"id": "r-2", "name": "eadw-cdi-data-2024-01-11.tif"},
				},
			})
		default:
			writeNotFound(w)
		}
	}))
	defer srv.Close()

	c := NewClient(Config{SiteURL: srv.URL, APIKey: "secret", UserAgent: "test-agent"})

	ds, err := c.ReadDataset(context.Background(), "igad-region-dekadal-combined-drought-indicator-cdi-2024")
	require.NoError(t, err)
	assert.Equal(t, "pkg-1", ds.ID)
	assert.Equal(t, []cdi.PublishedResource{
		{ID: "r-1", Name: "eadw-cdi-data-2024-01-01.tif"},
		{ID: "r-2", Name: "eadw-cdi-data-2024-01-11.tif"},
	}, ds.Resources)

	_, err = c.ReadDataset(context.Background(), "igad-region-monthly-combined-drought-indicator-cdi-2024")
	assert.ErrorIs(t, err, cdi.ErrDatasetNotFound)
}

func TestReadDatasetServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(Config{SiteURL: srv.URL, Backoff: fastBackoff}).ReadDataset(context.Background(), "x")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.NotErrorIs(t, err, cdi.ErrDatasetNotFound)
}

func TestReadDatasetRetriesUnavailable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		writeResult(w, map[string]any{"id": "pkg-1", "name": "n"})
	}))
	defer srv.Close()

	ds, err := NewClient(Config{SiteURL: srv.URL, Backoff: fastBackoff}).ReadDataset(context.Background(), "n")
	require.NoError(t, err)
	assert.Equal(t, "pkg-1", ds.ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestReadDatasetDoesNotRetryNotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeNotFound(w)
	}))
	defer srv.Close()

	_, err := NewClient(Config{SiteURL: srv.URL, Backoff: fastBackoff}).ReadDataset(context.Background(), "n")
	assert.ErrorIs(t, err, cdi.ErrDatasetNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestActionUnsuccessfulEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   map[string]any{"__type": "Validation Error", "message": "bad name"},
		})
	}))
	defer srv.Close()

	err := NewClient(Config{SiteURL: srv.URL}).Action(context.Background(), "package_create", nil, map[string]any{"name": "x"}, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "bad name", apiErr.Message)
}

func TestCheckWriteAccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/3/action/organization_list_for_user", r.URL.Path)
		assert.Equal(t, "create_dataset", r.URL.Query().Get("permission"))
		writeResult(w, []map[string]any{{"id": "org-1", "name": "igad-climate-prediction-and-application-center"}})
	}))
	defer srv.Close()

	c := NewClient(Config{SiteURL: srv.URL})
	assert.NoError(t, c.CheckWriteAccess(context.Background(), "igad-climate-prediction-and-application-center"))
	assert.ErrorIs(t, c.CheckWriteAccess(context.Background(), "other-org"), ErrNoWriteAccess)
}

func TestAPIErrorMessage(t *testing.T) {
	assert.Equal(t, "API error 409: exists", (&APIError{StatusCode: 409, Message: "exists", Body: "{}"}).Error())
	assert.Equal(t, "API error 500: raw", (&APIError{StatusCode: 500, Body: "raw"}).Error())
}
