// Radar TUI
// Terminal client showing the tracked flights around each monitored airport,
// polling the airport-tracker query API.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/airspacelab/airport-tracker/pkg/config"
	"github.com/airspacelab/airport-tracker/pkg/tracker"
)

var (
	baseURL  = flag.String("server", "http://localhost:3003", "Tracker base URL")
	interval = flag.Duration("interval", 2*time.Second, "Poll interval")
)

// App represents the radar TUI application
type App struct {
	tviewApp *tview.Application
	table    *tview.Table
	status   *tview.TextView

	client   *http.Client
	airports []config.AirportConfig

	// Filter state: index into airports, -1 = all.
	// Written by the input handler, read by the poll goroutine.
	mu         sync.Mutex
	airportIdx int
}

func (a *App) filterAirport() (config.AirportConfig, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.airportIdx >= 0 && a.airportIdx < len(a.airports) {
		return a.airports[a.airportIdx], true
	}
	return config.AirportConfig{}, false
}

func main() {
	flag.Parse()

	app := &App{
		tviewApp:   tview.NewApplication(),
		client:     &http.Client{Timeout: 5 * time.Second},
		airportIdx: -1,
	}

	if err := app.fetchAirports(); err != nil {
		log.Fatalf("Failed to reach tracker at %s: %v", *baseURL, err)
	}

	app.setupUI()

	go app.pollLoop()

	if err := app.tviewApp.Run(); err != nil {
		log.Fatalf("UI error: %v", err)
	}
}

// setupUI builds the flight table and status bar.
func (a *App) setupUI() {
	a.table = tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)
	a.table.SetBorder(true).SetTitle(" Tracked Flights ")

	a.status = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.table, 0, 1, true).
		AddItem(a.status, 1, 0, false)

	a.tviewApp.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'q':
			a.tviewApp.Stop()
			return nil
		case 'a':
			// Cycle airport filter: all -> each airport -> all
			a.mu.Lock()
			a.airportIdx++
			if a.airportIdx >= len(a.airports) {
				a.airportIdx = -1
			}
			a.mu.Unlock()
			return nil
		}
		return event
	})

	a.tviewApp.SetRoot(layout, true)
}

// pollLoop refreshes the table from the query API until the app stops.
func (a *App) pollLoop() {
	a.refresh()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for range ticker.C {
		a.refresh()
	}
}

func (a *App) refresh() {
	flights, err := a.fetchFlights()

	a.tviewApp.QueueUpdateDraw(func() {
		if err != nil {
			a.status.SetText(fmt.Sprintf("[red]⚠ %v[-]  (q quit, a filter airport)", err))
			return
		}
		a.render(flights)
	})
}

func (a *App) render(flights []tracker.TrackedFlight) {
	sort.Slice(flights, func(i, j int) bool {
		if flights[i].AirportCode != flights[j].AirportCode {
			return flights[i].AirportCode < flights[j].AirportCode
		}
		return flights[i].ICAO24 < flights[j].ICAO24
	})

	a.table.Clear()
	headers := []string{"ICAO24", "CALLSIGN", "AIRPORT", "STATUS", "ALT (m)", "LAT", "LON", "SEEN"}
	for col, h := range headers {
		a.table.SetCell(0, col,
			tview.NewTableCell(h).
				SetTextColor(tcell.ColorYellow).
				SetSelectable(false).
				SetExpansion(1))
	}

	row := 1
	for _, f := range flights {
		color := tcell.ColorWhite
		switch f.Status {
		case tracker.StatusArriving:
			color = tcell.ColorGreen
		case tracker.StatusDeparting:
			color = tcell.ColorAqua
		}

		cells := []string{
			f.ICAO24,
			f.Callsign,
			f.AirportCode,
			string(f.Status),
			fmt.Sprintf("%.0f", f.EffectiveAltitude()),
			fmt.Sprintf("%.4f", f.Latitude),
			fmt.Sprintf("%.4f", f.Longitude),
			time.Since(f.LastSeen).Truncate(time.Second).String(),
		}
		for col, text := range cells {
			a.table.SetCell(row, col,
				tview.NewTableCell(text).SetTextColor(color).SetExpansion(1))
		}
		row++
	}

	filter := "all airports"
	if ap, ok := a.filterAirport(); ok {
		filter = ap.ICAO
	}
	a.status.SetText(fmt.Sprintf(" %d flights | filter: %s | q quit, a filter airport", len(flights), filter))
}

func (a *App) fetchAirports() error {
	resp, err := a.client.Get(*baseURL + "/api/v1/airports")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(&a.airports)
}

func (a *App) fetchFlights() ([]tracker.TrackedFlight, error) {
	url := *baseURL + "/api/v1/flights/all"
	if ap, ok := a.filterAirport(); ok {
		url = fmt.Sprintf("%s/api/v1/airports/%s/nearby", *baseURL, ap.ICAO)
	}

	resp, err := a.client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tracker returned %s", resp.Status)
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	// Both endpoints use the "flights" field
	var flights []tracker.TrackedFlight
	if raw, ok := body["flights"]; ok {
		if err := json.Unmarshal(raw, &flights); err != nil {
			return nil, err
		}
	}
	return flights, nil
}
