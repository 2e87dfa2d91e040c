// Package tracker maintains the geofenced flight state for a set of
// monitored airports. Position reports are classified against every
// airport's geofence and the resulting per-airport flight status is held in
// an in-memory store, safe for concurrent ingest and query.
package tracker

import "time"

// Status classifies a tracked flight's phase relative to an airport.
type Status string

const (
	// StatusArriving indicates an airborne aircraft below the airport's
	// arrival altitude threshold
	StatusArriving Status = "arriving"

	// StatusDeparting indicates an airborne aircraft below the airport's
	// departure altitude threshold (but above the arrival threshold)
	StatusDeparting Status = "departing"

	// StatusNearby indicates an aircraft inside the geofence that matches
	// neither altitude band (on the ground, high overflight, or no
	// altitude reported)
	StatusNearby Status = "nearby"
)

// PositionReport represents a single aircraft position report, in the
// OpenSky state-vector shape. Optional telemetry readings are pointers;
// a nil value means the sensor did not report.
type PositionReport struct {
	// ICAO24 is the unique 24-bit transponder address (e.g., "a1b2c3")
	ICAO24 string `json:"icao24"`

	// Callsign is the flight number or registration, not interpreted
	Callsign string `json:"callsign"`

	// OriginCountry is free-text metadata, not interpreted
	OriginCountry string `json:"origin_country"`

	// TimePosition and LastContact are producer-side epoch seconds
	TimePosition int64 `json:"time_position"`
	LastContact  int64 `json:"last_contact"`

	// Latitude and Longitude in decimal degrees (WGS84)
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// BaroAltitude is the barometric altitude in meters, if reported
	BaroAltitude *float64 `json:"baro_altitude,omitempty"`

	// GeoAltitude is the geometric altitude in meters, if reported
	GeoAltitude *float64 `json:"geo_altitude,omitempty"`

	// OnGround reports the transponder's surface flag
	OnGround bool `json:"on_ground"`

	// Velocity is ground speed in m/s, if reported
	Velocity *float64 `json:"velocity,omitempty"`

	// TrueTrack is the ground track in degrees, if reported
	TrueTrack *float64 `json:"true_track,omitempty"`

	// VerticalRate in m/s (positive = climbing), if reported
	VerticalRate *float64 `json:"vertical_rate,omitempty"`

	// Squawk is the transponder code; 7500/7600/7700 indicate emergencies
	Squawk string `json:"squawk"`

	// SPI is the special position identification flag
	SPI bool `json:"spi"`

	// PositionSource identifies the position's sensor origin
	PositionSource int `json:"position_source"`

	// Timestamp is the producer-side event time (epoch seconds). Not used
	// for ordering; the store reflects processing order.
	Timestamp int64 `json:"timestamp"`
}

// EffectiveAltitude resolves the altitude used for classification: the
// barometric reading when present, otherwise the geometric reading,
// otherwise 0.
func (r PositionReport) EffectiveAltitude() float64 {
	if r.BaroAltitude != nil {
		return *r.BaroAltitude
	}
	if r.GeoAltitude != nil {
		return *r.GeoAltitude
	}
	return 0
}

// TrackedFlight is the stored state for one aircraft near one airport.
// It carries the latest report verbatim plus the classification result.
type TrackedFlight struct {
	PositionReport

	// AirportCode is the ICAO code of the matched airport
	AirportCode string `json:"airport_code"`

	// Status is the classified flight phase for that airport
	Status Status `json:"status"`

	// LastSeen is the wall-clock time the report was classified (not the
	// report's own timestamp)
	LastSeen time.Time `json:"last_seen"`
}

// FlightKey identifies a tracked flight record. Keying by the
// (aircraft, airport) pair lets an aircraft inside two overlapping
// geofences be tracked against both airports.
type FlightKey struct {
	ICAO24      string
	AirportCode string
}
