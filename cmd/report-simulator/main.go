// Report simulator
// Generates a mock stream of aircraft position reports around the configured
// airports and posts them to the tracker's ingest endpoint. Stands in for
// the real message-bus feed during development.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/airspacelab/airport-tracker/pkg/config"
	"github.com/airspacelab/airport-tracker/pkg/geo"
	"github.com/airspacelab/airport-tracker/pkg/tracker"
)

var (
	serverURL    = flag.String("server", "http://localhost:3003/flight-update", "Tracker ingest endpoint")
	airportsPath = flag.String("airports", "configs/airports.json", "Path to airport registry")
	perAirport   = flag.Int("aircraft", 4, "Simulated aircraft per airport")
	reportsPerS  = flag.Float64("rate", 5, "Position reports per second")
)

// simAircraft is one simulated aircraft dead-reckoned along its track.
type simAircraft struct {
	icao24    string
	callsign  string
	lat, lon  float64
	altitudeM float64
	speedMS   float64 // ground speed, m/s
	trackDeg  float64
	climbMS   float64 // vertical rate, m/s
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	airports, err := config.LoadAirports(*airportsPath)
	if err != nil {
		log.Fatalf("Failed to load airport registry: %v", err)
	}

	fleet := spawnFleet(airports, *perAirport, rng)
	log.Printf("🛫 Simulating %d aircraft around %d airports", len(fleet), len(airports))
	log.Printf("📡 Posting to %s at %.1f reports/s", *serverURL, *reportsPerS)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := rate.NewLimiter(rate.Limit(*reportsPerS), 1)
	client := &http.Client{Timeout: 5 * time.Second}

	lastTick := time.Now()
	i := 0
	for {
		if err := limiter.Wait(ctx); err != nil {
			log.Println("Simulator stopped")
			return
		}

		now := time.Now()
		dt := now.Sub(lastTick).Seconds()
		lastTick = now

		ac := &fleet[i%len(fleet)]
		i++

		advance(ac, dt*float64(len(fleet)), rng)
		if err := postReport(ctx, client, ac, now); err != nil {
			log.Printf("⚠️  Post failed for %s: %v", ac.icao24, err)
		}
	}
}

// spawnFleet seeds aircraft at random positions and phases around each
// airport.
func spawnFleet(airports []config.AirportConfig, perAirport int, rng *rand.Rand) []simAircraft {
	carriers := []string{"DAL", "UAL", "AAL", "SWA", "BAW", "AFR"}

	var fleet []simAircraft
	for _, ap := range airports {
		for i := 0; i < perAirport; i++ {
			// Scatter within ~60% of the geofence radius
			bearing := rng.Float64() * 2 * math.Pi
			distKm := rng.Float64() * ap.RadiusKm * 0.6
			dLat := (distKm / geo.EarthRadiusKm) * geo.RadiansToDegrees * math.Cos(bearing)
			dLon := (distKm / geo.EarthRadiusKm) * geo.RadiansToDegrees * math.Sin(bearing) /
				math.Cos(ap.Latitude*geo.DegreesToRadians)

			climb := -5.0 + rng.Float64()*10 // some descending, some climbing
			fleet = append(fleet, simAircraft{
				icao24:    fmt.Sprintf("%06x", rng.Intn(0xffffff)),
				callsign:  fmt.Sprintf("%s%d", carriers[rng.Intn(len(carriers))], 100+rng.Intn(900)),
				lat:       ap.Latitude + dLat,
				lon:       ap.Longitude + dLon,
				altitudeM: 200 + rng.Float64()*3500,
				speedMS:   70 + rng.Float64()*180,
				trackDeg:  rng.Float64() * 360,
				climbMS:   climb,
			})
		}
	}
	return fleet
}

// advance dead-reckons the aircraft along its current track for dt seconds,
// with small random perturbations to heading, speed and climb.
func advance(ac *simAircraft, dt float64, rng *rand.Rand) {
	distKm := ac.speedMS * dt / 1000

	trackRad := ac.trackDeg * geo.DegreesToRadians
	latRad := ac.lat * geo.DegreesToRadians
	lonRad := ac.lon * geo.DegreesToRadians

	newLatRad := math.Asin(math.Sin(latRad)*math.Cos(distKm/geo.EarthRadiusKm) +
		math.Cos(latRad)*math.Sin(distKm/geo.EarthRadiusKm)*math.Cos(trackRad))
	newLonRad := lonRad + math.Atan2(
		math.Sin(trackRad)*math.Sin(distKm/geo.EarthRadiusKm)*math.Cos(latRad),
		math.Cos(distKm/geo.EarthRadiusKm)-math.Sin(latRad)*math.Sin(newLatRad))

	ac.lat = newLatRad * geo.RadiansToDegrees
	ac.lon = math.Mod(newLonRad*geo.RadiansToDegrees+180, 360) - 180

	ac.altitudeM += ac.climbMS * dt
	if ac.altitudeM < 50 {
		ac.altitudeM = 50
		ac.climbMS = math.Abs(ac.climbMS)
	}
	if ac.altitudeM > 12000 {
		ac.altitudeM = 12000
		ac.climbMS = -math.Abs(ac.climbMS)
	}

	ac.trackDeg = math.Mod(ac.trackDeg+float64(rng.Intn(7)-3)+360, 360)
	ac.speedMS += float64(rng.Intn(5) - 2)
	if ac.speedMS < 60 {
		ac.speedMS = 60
	}
	if ac.speedMS > 280 {
		ac.speedMS = 280
	}
}

// postReport wraps the report in a CloudEvents-style envelope, matching
// what the pub/sub sidecar delivers in production.
func postReport(ctx context.Context, client *http.Client, ac *simAircraft, now time.Time) error {
	alt := ac.altitudeM
	speed := ac.speedMS
	track := ac.trackDeg
	climb := ac.climbMS

	report := tracker.PositionReport{
		ICAO24:        ac.icao24,
		Callsign:      ac.callsign,
		OriginCountry: "United States",
		Latitude:      ac.lat,
		Longitude:     ac.lon,
		BaroAltitude:  &alt,
		Velocity:      &speed,
		TrueTrack:     &track,
		VerticalRate:  &climb,
		Squawk:        "1200",
		TimePosition:  now.Unix(),
		LastContact:   now.Unix(),
		Timestamp:     now.Unix(),
	}

	envelope := map[string]interface{}{"data": report}
	body, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *serverURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ingest returned %s", resp.Status)
	}
	return nil
}
