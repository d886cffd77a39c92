package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mkarpov-dev/fishcast/internal/cache"
	"github.com/mkarpov-dev/fishcast/internal/forecast"
	"github.com/mkarpov-dev/fishcast/internal/gear"
	"github.com/mkarpov-dev/fishcast/internal/geo"
	"github.com/mkarpov-dev/fishcast/internal/locwatch"
	"github.com/mkarpov-dev/fishcast/internal/store"
)

func newTestApp() *fiber.App {
	fetch := func(ctx context.Context, loc locwatch.LocationPoint) (*forecast.Bundle, error) {
		temp := 20.0
		return &forecast.Bundle{Current: &forecast.CurrentConditions{Temperature: &temp}}, nil
	}

	c := cache.New(store.NewMemoryKV())
	watcher := locwatch.New(fetch, c, locwatch.Options{Debounce: time.Millisecond})
	pipeline := gear.NewPipeline(c, fetch, nil)
	resolver := geo.NewResolver("")

	app := fiber.New()
	RegisterRoutes(app, watcher, pipeline, resolver)
	return app
}

func TestLocationValidation(t *testing.T) {
	app := newTestApp()

	// Latitude outside [-90, 90] must be rejected.
	body := `{"latitude": 123.0, "longitude": -9.4, "name": "nowhere"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/location", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestLocationAccepted(t *testing.T) {
	app := newTestApp()

	body := `{"latitude": 38.7, "longitude": -9.4, "name": "Cascais", "region": "Lisboa"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/location", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}

	var loc locwatch.LocationPoint
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if loc.Name != "Cascais" || loc.Region != "Lisboa" {
		t.Errorf("accepted location = %+v, want name and region carried through", loc)
	}
}

func TestCurrentConditionsWithoutLocation(t *testing.T) {
	app := newTestApp()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conditions/current", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d before any location is set", resp.StatusCode, http.StatusNotFound)
	}
}

func TestForecastHourlyRangeValidation(t *testing.T) {
	app := newTestApp()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/forecast/hourly?hours=500", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestGearRecommendationsEmptyCollectionStaysIdle(t *testing.T) {
	app := newTestApp()

	body := `{"gear": []}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/gear/recommendations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var state gear.State
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if state.Phase != gear.PhaseIdle {
		t.Errorf("phase = %v, want idle for an empty gear collection", state.Phase)
	}
}

func TestGearRecommendationsState(t *testing.T) {
	app := newTestApp()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/gear/recommendations", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var state gear.State
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if state.Phase != gear.PhaseIdle {
		t.Errorf("phase = %v, want idle before any inputs", state.Phase)
	}
}
