package tracker

import (
	"log"
	"time"

	"github.com/airspacelab/airport-tracker/pkg/config"
	"github.com/airspacelab/airport-tracker/pkg/geo"
)

// UpdateSink receives every accepted flight update. Sinks must not block;
// anything doing I/O should hand off to its own goroutine (the archive
// writer and the WebSocket hub both do).
type UpdateSink func(TrackedFlight)

// Classifier applies geofence matching and status classification to
// incoming position reports and writes the results into the store.
//
// The airport registry is iterated in full for every report. At the handful
// of airports this service monitors, a spatial index would cost more than
// the scan it saves; revisit if registries grow past a few hundred entries.
type Classifier struct {
	airports []config.AirportConfig
	store    *Store
	alerts   *AlertLog
	sinks    []UpdateSink
}

// NewClassifier creates a classifier over the given airport registry and
// store. The registry slice is read-only for the classifier's lifetime.
func NewClassifier(airports []config.AirportConfig, store *Store, alerts *AlertLog) *Classifier {
	return &Classifier{
		airports: airports,
		store:    store,
		alerts:   alerts,
	}
}

// AddSink registers an update sink. Not safe to call once reports are
// flowing; wire sinks at startup.
func (c *Classifier) AddSink(sink UpdateSink) {
	c.sinks = append(c.sinks, sink)
}

// Airports returns the configured airport registry.
func (c *Classifier) Airports() []config.AirportConfig {
	return c.airports
}

// SubmitReport classifies one position report against every configured
// airport and upserts a record for each geofence the aircraft falls inside.
// Safe for concurrent use. Never fails: missing optional telemetry degrades
// to the classification fallbacks instead of aborting the report.
func (c *Classifier) SubmitReport(report PositionReport) {
	now := time.Now()

	for _, airport := range c.airports {
		distance := geo.DistanceKm(
			report.Latitude,
			report.Longitude,
			airport.Latitude,
			airport.Longitude,
		)

		if distance > airport.RadiusKm {
			continue
		}

		altitude := report.EffectiveAltitude()
		status := classifyStatus(altitude, airport)

		flight := TrackedFlight{
			PositionReport: report,
			AirportCode:    airport.ICAO,
			Status:         status,
			LastSeen:       now,
		}
		c.store.Upsert(flight)

		if c.alerts != nil {
			c.alerts.Observe(flight)
		}
		for _, sink := range c.sinks {
			sink(flight)
		}

		log.Printf("📍 Flight %s (%s) near %s - Status: %s (distance: %.2f km, altitude: %.0f m)",
			report.ICAO24, report.Callsign, airport.ICAO, status, distance, altitude)
	}
}

// classifyStatus maps effective altitude to a flight phase. The arrival
// band is checked first, so the bands overlap rather than partition: an
// altitude below both thresholds is arriving.
func classifyStatus(altitude float64, airport config.AirportConfig) Status {
	if altitude > 0 && altitude < airport.ArrivalThresholdM {
		return StatusArriving
	}
	if altitude > 0 && altitude < airport.DepartureThresholdM {
		return StatusDeparting
	}
	return StatusNearby
}
