package tracker

import (
	"log"
	"sync"
	"time"
)

// Emergency squawk codes and their meanings.
var emergencySquawks = map[string]string{
	"7500": "Aircraft Hijacking",
	"7600": "Radio Communication Failure",
	"7700": "General Emergency",
}

// alertHistoryLimit caps the retained alert history.
const alertHistoryLimit = 100

// Alert records an emergency squawk observed on a tracked flight.
type Alert struct {
	ICAO24      string    `json:"icao24"`
	Callsign    string    `json:"callsign"`
	AirportCode string    `json:"airport_code"`
	Squawk      string    `json:"squawk"`
	Description string    `json:"description"`
	RaisedAt    time.Time `json:"raised_at"`
}

// AlertLog tracks active emergency alerts and a bounded history.
// An alert is active while its aircraft keeps squawking the code; it clears
// when a later report from the same aircraft carries a normal squawk.
type AlertLog struct {
	mu      sync.RWMutex
	active  map[string]*Alert // key: icao24 + squawk
	history []Alert
}

// NewAlertLog creates an empty alert log.
func NewAlertLog() *AlertLog {
	return &AlertLog{
		active: make(map[string]*Alert),
	}
}

// Observe inspects a classified flight for emergency squawk codes.
func (l *AlertLog) Observe(f TrackedFlight) {
	desc, emergency := emergencySquawks[f.Squawk]

	l.mu.Lock()
	defer l.mu.Unlock()

	if !emergency {
		// A normal squawk clears any active alerts for this aircraft.
		for key, a := range l.active {
			if a.ICAO24 == f.ICAO24 {
				delete(l.active, key)
			}
		}
		return
	}

	key := f.ICAO24 + ":" + f.Squawk
	if _, exists := l.active[key]; exists {
		return
	}

	alert := Alert{
		ICAO24:      f.ICAO24,
		Callsign:    f.Callsign,
		AirportCode: f.AirportCode,
		Squawk:      f.Squawk,
		Description: desc,
		RaisedAt:    time.Now(),
	}
	l.active[key] = &alert

	l.history = append(l.history, alert)
	if len(l.history) > alertHistoryLimit {
		l.history = l.history[len(l.history)-alertHistoryLimit:]
	}

	log.Printf("🚨 EMERGENCY squawk %s (%s) from %s (%s) near %s",
		f.Squawk, desc, f.ICAO24, f.Callsign, f.AirportCode)
}

// Active returns the currently active alerts.
func (l *AlertLog) Active() []Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := []Alert{}
	for _, a := range l.active {
		out = append(out, *a)
	}
	return out
}

// History returns the retained alert history, oldest first.
func (l *AlertLog) History() []Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Alert, len(l.history))
	copy(out, l.history)
	return out
}
