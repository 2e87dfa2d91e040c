package geo

import (
	"math"
	"testing"
)

// TestDistanceKm tests great-circle distance calculation.
func TestDistanceKm(t *testing.T) {
	t.Run("Zero distance for identical points", func(t *testing.T) {
		d := DistanceKm(40.6413, -73.7781, 40.6413, -73.7781)
		if d != 0 {
			t.Errorf("Expected 0 km, got %f", d)
		}
	})

	t.Run("JFK to LaGuardia", func(t *testing.T) {
		// KJFK (40.6413, -73.7781) to KLGA (40.7769, -73.8740)
		// is roughly 17 km apart
		d := DistanceKm(40.6413, -73.7781, 40.7769, -73.8740)
		if d < 15 || d > 20 {
			t.Errorf("Expected ~17 km, got %f", d)
		}
	})

	t.Run("Short distance near JFK", func(t *testing.T) {
		// The spec's reference point: (40.65, -73.78) is well within
		// 50 km of KJFK
		d := DistanceKm(40.6413, -73.7781, 40.65, -73.78)
		if d > 2 {
			t.Errorf("Expected under 2 km, got %f", d)
		}
	})

	t.Run("Antipodal points", func(t *testing.T) {
		// Half the Earth's circumference, ~20015 km
		d := DistanceKm(0, 0, 0, 180)
		expected := math.Pi * EarthRadiusKm
		if math.Abs(d-expected) > 1 {
			t.Errorf("Expected %f km, got %f", expected, d)
		}
	})

	t.Run("Symmetry", func(t *testing.T) {
		d1 := DistanceKm(51.4700, -0.4543, 40.6413, -73.7781)
		d2 := DistanceKm(40.6413, -73.7781, 51.4700, -0.4543)
		if math.Abs(d1-d2) > 1e-9 {
			t.Errorf("Expected symmetric distances, got %f and %f", d1, d2)
		}
	})
}

// TestBearing tests initial bearing calculation.
func TestBearing(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		expected               float64
	}{
		{"Due north", 0, 0, 10, 0, 0},
		{"Due east", 0, 0, 0, 10, 90},
		{"Due south", 10, 0, 0, 0, 180},
		{"Due west", 0, 10, 0, 0, 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Bearing(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(b-tt.expected) > 0.5 {
				t.Errorf("Expected bearing %f, got %f", tt.expected, b)
			}
		})
	}
}
