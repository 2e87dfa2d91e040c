package db

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/airspacelab/airport-tracker/pkg/tracker"
)

// archiveBufferSize is the write-behind queue depth. Updates arriving while
// the queue is full are counted and dropped rather than blocking ingest.
const archiveBufferSize = 1024

// ArchiveRepository persists accepted flight updates to Postgres.
// Writes go through a buffered channel consumed by Run, keeping database
// I/O off the classification path.
type ArchiveRepository struct {
	db      *DB
	queue   chan tracker.TrackedFlight
	dropped atomic.Int64
}

// NewArchiveRepository creates an archive repository over an open database.
func NewArchiveRepository(db *DB) *ArchiveRepository {
	return &ArchiveRepository{
		db:    db,
		queue: make(chan tracker.TrackedFlight, archiveBufferSize),
	}
}

// Enqueue hands a flight update to the background writer. Never blocks; a
// full queue drops the update and bumps the drop counter.
func (r *ArchiveRepository) Enqueue(f tracker.TrackedFlight) {
	select {
	case r.queue <- f:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns the number of updates discarded due to a full queue.
func (r *ArchiveRepository) Dropped() int64 {
	return r.dropped.Load()
}

// Run consumes the write queue until the context is cancelled, pruning old
// rows on a timer. Intended to run in its own goroutine.
func (r *ArchiveRepository) Run(ctx context.Context, retention time.Duration) {
	cleanup := time.NewTicker(time.Hour)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case f := <-r.queue:
			if err := r.insert(ctx, f); err != nil {
				log.Printf("⚠️  Archive insert failed for %s: %v", f.ICAO24, err)
			}
		case <-cleanup.C:
			if err := r.Cleanup(ctx, retention); err != nil {
				log.Printf("⚠️  Archive cleanup failed: %v", err)
			}
		}
	}
}

func (r *ArchiveRepository) insert(ctx context.Context, f tracker.TrackedFlight) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO flight_updates (
			icao24, callsign, origin_country, airport_code, status,
			latitude, longitude, baro_altitude_m, geo_altitude_m,
			on_ground, velocity_ms, true_track_deg, vertical_rate_ms,
			squawk, spi, position_source, report_time, recorded_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14, $15, $16, $17, $18
		)`,
		f.ICAO24, f.Callsign, f.OriginCountry, f.AirportCode, string(f.Status),
		f.Latitude, f.Longitude, f.BaroAltitude, f.GeoAltitude,
		f.OnGround, f.Velocity, f.TrueTrack, f.VerticalRate,
		f.Squawk, f.SPI, f.PositionSource, f.Timestamp, f.LastSeen,
	)
	if err != nil {
		return fmt.Errorf("failed to insert flight update: %w", err)
	}
	return nil
}

// Cleanup removes archived updates older than the retention window.
// Should be called periodically to prevent unbounded growth.
func (r *ArchiveRepository) Cleanup(ctx context.Context, retention time.Duration) error {
	if retention <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-retention)

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM flight_updates WHERE recorded_at < $1`,
		cutoff,
	)
	if err != nil {
		return fmt.Errorf("failed to delete old updates: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows > 0 {
		log.Printf("✓ Archive cleanup removed %d rows older than %s", rows, cutoff.Format(time.RFC3339))
	}
	return nil
}

// CountByAirport returns archived update counts grouped by airport.
func (r *ArchiveRepository) CountByAirport(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT airport_code, COUNT(*) FROM flight_updates GROUP BY airport_code`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var code string
		var n int64
		if err := rows.Scan(&code, &n); err != nil {
			return nil, err
		}
		counts[code] = n
	}
	return counts, rows.Err()
}
