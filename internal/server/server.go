// Package server exposes the tracker over HTTP: the ingest endpoint fed by
// the message-bus sidecar, the read-only query API, and a WebSocket stream
// of accepted updates.
package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/airspacelab/airport-tracker/pkg/tracker"
)

// Server holds the HTTP router and its dependencies.
type Server struct {
	router     *chi.Mux
	classifier *tracker.Classifier
	store      *tracker.Store
	alerts     *tracker.AlertLog
	hub        *Hub
}

// New creates a server over the given classifier and store and wires all
// routes. The returned server implements http.Handler.
func New(classifier *tracker.Classifier, store *tracker.Store, alerts *tracker.AlertLog) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		classifier: classifier,
		store:      store,
		alerts:     alerts,
		hub:        NewHub(),
	}
	classifier.AddSink(s.hub.Broadcast)
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	// CORS for development
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Pub/Sub subscription endpoint
	r.Post("/flight-update", s.handleFlightUpdate)

	// Health check
	r.Get("/health", s.handleHealth)

	// REST API endpoints
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/airports", s.handleListAirports)
		r.Get("/airports/{code}/arrivals", s.handleArrivals)
		r.Get("/airports/{code}/departures", s.handleDepartures)
		r.Get("/airports/{code}/nearby", s.handleNearby)
		r.Get("/flights/all", s.handleAllFlights)
		r.Get("/stats", s.handleStats)
		r.Get("/alerts", s.handleAlerts)
		r.Get("/ws", s.handleWebSocket)
	})
}

// handleFlightUpdate accepts one position report, either bare or wrapped in
// a CloudEvents envelope (the pub/sub sidecar delivers the latter, with the
// data field as an object, a JSON string, or base64). Malformed bodies are
// rejected here and never reach the classifier.
func (s *Server) handleFlightUpdate(w http.ResponseWriter, r *http.Request) {
	var rawBody map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&rawBody); err != nil {
		http.Error(w, "Failed to decode request: "+err.Error(), http.StatusBadRequest)
		return
	}

	report, err := extractReport(rawBody)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.classifier.SubmitReport(report)

	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// handleHealth reports service liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "airport-tracker",
	})
}

// handleListAirports returns the configured airport registry.
func (s *Server) handleListAirports(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.classifier.Airports())
}

// handleArrivals returns flights arriving at the given airport.
func (s *Server) handleArrivals(w http.ResponseWriter, r *http.Request) {
	s.respondFlights(w, r, "arrivals", tracker.StatusArriving)
}

// handleDepartures returns flights departing from the given airport.
func (s *Server) handleDepartures(w http.ResponseWriter, r *http.Request) {
	s.respondFlights(w, r, "departures", tracker.StatusDeparting)
}

// handleNearby returns all flights near the given airport, any status.
func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	s.respondFlights(w, r, "flights", "")
}

// respondFlights answers the per-airport list endpoints. An empty status
// matches every status. Unknown airport codes are not rejected; they simply
// match nothing.
func (s *Server) respondFlights(w http.ResponseWriter, r *http.Request, field string, status tracker.Status) {
	airportCode := chi.URLParam(r, "code")

	flights := s.store.SnapshotFiltered(func(f *tracker.TrackedFlight) bool {
		if f.AirportCode != airportCode {
			return false
		}
		return status == "" || f.Status == status
	})

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"airport_code": airportCode,
		field:          flights,
		"count":        len(flights),
	})
}

// handleAllFlights returns every tracked flight across all airports.
func (s *Server) handleAllFlights(w http.ResponseWriter, r *http.Request) {
	flights := s.store.SnapshotAll()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"flights": flights,
		"count":   len(flights),
	})
}

// handleStats returns tracked-flight counts grouped by airport and status.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	byAirport := make(map[string]int)
	byStatus := make(map[string]int)

	flights := s.store.SnapshotAll()
	for _, f := range flights {
		byAirport[f.AirportCode]++
		byStatus[string(f.Status)]++
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total":      len(flights),
		"by_airport": byAirport,
		"by_status":  byStatus,
	})
}

// handleAlerts returns active emergency alerts and recent history.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"active":  s.alerts.Active(),
		"history": s.alerts.History(),
	})
}

// extractReport pulls a PositionReport out of a request body that may be a
// CloudEvents envelope or a bare report.
func extractReport(rawBody map[string]json.RawMessage) (tracker.PositionReport, error) {
	var report tracker.PositionReport

	if dataVal, ok := rawBody["data"]; ok {
		dataBytes := []byte(dataVal)

		// The data field may itself be a JSON string holding the report.
		var asString string
		if err := json.Unmarshal(dataVal, &asString); err == nil {
			dataBytes = []byte(asString)
		}

		if err := json.Unmarshal(dataBytes, &report); err != nil {
			return report, fmt.Errorf("failed to unmarshal flight data: %w", err)
		}
		return report, nil
	}

	if dataVal, ok := rawBody["data_base64"]; ok {
		var encoded string
		if err := json.Unmarshal(dataVal, &encoded); err != nil {
			return report, fmt.Errorf("data_base64 is not a string")
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return report, fmt.Errorf("failed to decode base64 data: %w", err)
		}
		if err := json.Unmarshal(decoded, &report); err != nil {
			return report, fmt.Errorf("failed to unmarshal flight data: %w", err)
		}
		return report, nil
	}

	// Fallback: the whole body is the report.
	bodyBytes, err := json.Marshal(rawBody)
	if err != nil {
		return report, fmt.Errorf("failed to re-marshal body")
	}
	if err := json.Unmarshal(bodyBytes, &report); err != nil {
		return report, fmt.Errorf("no data field in event and body is not flight data")
	}
	return report, nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
