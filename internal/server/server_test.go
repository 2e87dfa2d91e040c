package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/airspacelab/airport-tracker/pkg/config"
	"github.com/airspacelab/airport-tracker/pkg/tracker"
)

func testServer() *Server {
	airports := []config.AirportConfig{
		{
			ICAO: "KJFK", Name: "John F. Kennedy Intl",
			Latitude: 40.6413, Longitude: -73.7781,
			RadiusKm:          50,
			ArrivalThresholdM: 1000, DepartureThresholdM: 3000,
		},
	}
	store := tracker.NewStore()
	alerts := tracker.NewAlertLog()
	classifier := tracker.NewClassifier(airports, store, alerts)
	return New(classifier, store, alerts)
}

func postJSON(t *testing.T, srv *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func getJSON(t *testing.T, srv *Server, path string, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("Failed to decode response from %s: %v", path, err)
		}
	}
	return rec
}

const arrivingReport = `{
	"icao24": "abc123", "callsign": "DAL123",
	"latitude": 40.65, "longitude": -73.78,
	"baro_altitude": 500, "squawk": "1200"
}`

// TestHealth tests the liveness endpoint.
func TestHealth(t *testing.T) {
	srv := testServer()

	var body map[string]interface{}
	rec := getJSON(t, srv, "/health", &body)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
	if body["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", body["status"])
	}
}

// TestFlightUpdateIngest covers the ingest envelope variants.
func TestFlightUpdateIngest(t *testing.T) {
	t.Run("Bare report", func(t *testing.T) {
		srv := testServer()
		rec := postJSON(t, srv, "/flight-update", arrivingReport)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body map[string]interface{}
		getJSON(t, srv, "/api/v1/airports/KJFK/arrivals", &body)
		if body["count"].(float64) != 1 {
			t.Errorf("Expected 1 arrival, got %v", body["count"])
		}
	})

	t.Run("CloudEvent with object data", func(t *testing.T) {
		srv := testServer()
		rec := postJSON(t, srv, "/flight-update", fmt.Sprintf(`{"data": %s}`, arrivingReport))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body map[string]interface{}
		getJSON(t, srv, "/api/v1/flights/all", &body)
		if body["count"].(float64) != 1 {
			t.Errorf("Expected 1 flight, got %v", body["count"])
		}
	})

	t.Run("CloudEvent with JSON-string data", func(t *testing.T) {
		srv := testServer()
		encoded, _ := json.Marshal(arrivingReport)
		rec := postJSON(t, srv, "/flight-update", fmt.Sprintf(`{"data": %s}`, encoded))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("CloudEvent with base64 data", func(t *testing.T) {
		srv := testServer()
		b64 := base64.StdEncoding.EncodeToString([]byte(arrivingReport))
		rec := postJSON(t, srv, "/flight-update", fmt.Sprintf(`{"data_base64": %q}`, b64))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Malformed body rejected without touching state", func(t *testing.T) {
		srv := testServer()
		rec := postJSON(t, srv, "/flight-update", `{not json`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}

		var body map[string]interface{}
		getJSON(t, srv, "/api/v1/flights/all", &body)
		if body["count"].(float64) != 0 {
			t.Errorf("Expected 0 flights after rejected report, got %v", body["count"])
		}
	})

	t.Run("Malformed data field rejected", func(t *testing.T) {
		srv := testServer()
		rec := postJSON(t, srv, "/flight-update", `{"data": "not flight json"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("Report outside all geofences accepted but not stored", func(t *testing.T) {
		srv := testServer()
		rec := postJSON(t, srv, "/flight-update", `{
			"icao24": "far001", "latitude": 0, "longitude": 0, "baro_altitude": 500
		}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}

		var body map[string]interface{}
		getJSON(t, srv, "/api/v1/flights/all", &body)
		if body["count"].(float64) != 0 {
			t.Errorf("Expected 0 flights, got %v", body["count"])
		}
	})
}

// TestQueryEndpoints covers the read-only views.
func TestQueryEndpoints(t *testing.T) {
	srv := testServer()

	// One arriving, one departing at KJFK
	postJSON(t, srv, "/flight-update", arrivingReport)
	postJSON(t, srv, "/flight-update", `{
		"icao24": "def456", "callsign": "UAL456",
		"latitude": 40.64, "longitude": -73.77,
		"baro_altitude": 2000, "squawk": "1200"
	}`)

	t.Run("List airports", func(t *testing.T) {
		var airports []config.AirportConfig
		getJSON(t, srv, "/api/v1/airports", &airports)
		if len(airports) != 1 || airports[0].ICAO != "KJFK" {
			t.Errorf("Expected the KJFK registry, got %+v", airports)
		}
	})

	t.Run("Arrivals filtered by status", func(t *testing.T) {
		var body struct {
			Arrivals []tracker.TrackedFlight `json:"arrivals"`
			Count    int                     `json:"count"`
		}
		getJSON(t, srv, "/api/v1/airports/KJFK/arrivals", &body)
		if body.Count != 1 || body.Arrivals[0].ICAO24 != "abc123" {
			t.Errorf("Expected abc123 arriving, got %+v", body)
		}
	})

	t.Run("Departures filtered by status", func(t *testing.T) {
		var body struct {
			Departures []tracker.TrackedFlight `json:"departures"`
			Count      int                     `json:"count"`
		}
		getJSON(t, srv, "/api/v1/airports/KJFK/departures", &body)
		if body.Count != 1 || body.Departures[0].ICAO24 != "def456" {
			t.Errorf("Expected def456 departing, got %+v", body)
		}
	})

	t.Run("Nearby includes all statuses", func(t *testing.T) {
		var body map[string]interface{}
		getJSON(t, srv, "/api/v1/airports/KJFK/nearby", &body)
		if body["count"].(float64) != 2 {
			t.Errorf("Expected 2 flights nearby, got %v", body["count"])
		}
	})

	t.Run("Unknown airport yields empty result not error", func(t *testing.T) {
		var body map[string]interface{}
		rec := getJSON(t, srv, "/api/v1/airports/ZZZZ/arrivals", &body)
		if rec.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rec.Code)
		}
		if body["count"].(float64) != 0 {
			t.Errorf("Expected 0 matches, got %v", body["count"])
		}
	})

	t.Run("Stats aggregates by airport and status", func(t *testing.T) {
		var body struct {
			Total     int            `json:"total"`
			ByAirport map[string]int `json:"by_airport"`
			ByStatus  map[string]int `json:"by_status"`
		}
		getJSON(t, srv, "/api/v1/stats", &body)
		if body.Total != 2 {
			t.Errorf("Expected total 2, got %d", body.Total)
		}
		if body.ByAirport["KJFK"] != 2 {
			t.Errorf("Expected 2 at KJFK, got %d", body.ByAirport["KJFK"])
		}
		if body.ByStatus["arriving"] != 1 || body.ByStatus["departing"] != 1 {
			t.Errorf("Unexpected status counts: %v", body.ByStatus)
		}
	})
}

// TestAlertsEndpoint tests emergency alert surfacing.
func TestAlertsEndpoint(t *testing.T) {
	srv := testServer()

	postJSON(t, srv, "/flight-update", `{
		"icao24": "mayday1", "callsign": "EMER01",
		"latitude": 40.65, "longitude": -73.78,
		"baro_altitude": 800, "squawk": "7700"
	}`)

	var body struct {
		Active  []tracker.Alert `json:"active"`
		History []tracker.Alert `json:"history"`
	}
	getJSON(t, srv, "/api/v1/alerts", &body)

	if len(body.Active) != 1 {
		t.Fatalf("Expected 1 active alert, got %d", len(body.Active))
	}
	if body.Active[0].Squawk != "7700" || body.Active[0].AirportCode != "KJFK" {
		t.Errorf("Unexpected alert: %+v", body.Active[0])
	}
}

// TestHubBroadcast tests the stream fan-out without a live socket.
func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	ch := hub.subscribe()
	defer hub.unsubscribe(ch)

	f := tracker.TrackedFlight{
		PositionReport: tracker.PositionReport{ICAO24: "abc123"},
		AirportCode:    "KJFK",
		Status:         tracker.StatusArriving,
	}
	hub.Broadcast(f)

	select {
	case got := <-ch:
		if got.ICAO24 != "abc123" {
			t.Errorf("Expected abc123, got %s", got.ICAO24)
		}
	default:
		t.Fatal("Expected a broadcast update")
	}

	if hub.SubscriberCount() != 1 {
		t.Errorf("Expected 1 subscriber, got %d", hub.SubscriberCount())
	}
}
