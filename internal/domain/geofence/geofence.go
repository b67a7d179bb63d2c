// Package geofence measures how well a field agent's reported GPS position
// agrees with a customer's registered location.
//
// Everything here is advisory: a low match raises a warning, it never blocks
// an order.
package geofence

import (
	"fmt"
	"math"
)

const (
	// EarthRadiusMeters is the sphere radius used by Distance.
	EarthRadiusMeters = 6_371_000.0

	// MatchCutoffMeters is the distance at which the match reaches 0%.
	MatchCutoffMeters = 20.0

	maxLatitude  = 90.0
	maxLongitude = 180.0
)

// Point is a WGS84 coordinate. AccuracyMeters is 0 when not reported.
type Point struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AccuracyMeters float64 `json:"accuracy,omitempty"`
}

// Validate rejects coordinates that cannot be placed on the globe.
func (p Point) Validate() error {
	switch {
	case !finite(p.Latitude) || !finite(p.Longitude):
		return fmt.Errorf("%w: coordinates must be finite", ErrInvalidInput)
	case math.Abs(p.Latitude) > maxLatitude:
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidInput, p.Latitude)
	case math.Abs(p.Longitude) > maxLongitude:
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidInput, p.Longitude)
	case !finite(p.AccuracyMeters) || p.AccuracyMeters < 0:
		return fmt.Errorf("%w: accuracy %v", ErrInvalidInput, p.AccuracyMeters)
	}
	return nil
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Point) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	if a.Latitude == b.Latitude && a.Longitude == b.Longitude {
		return 0, nil
	}

	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(b.Longitude) - toRadians(a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push h just outside [0,1] for near-antipodal points.
	h = math.Min(1, math.Max(0, h))
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c, nil
}

// MatchPercentage converts a distance into a 0-100 confidence that both
// positions are the same place, falling linearly to 0 at MatchCutoffMeters.
func MatchPercentage(distanceMeters float64) (int, error) {
	if !finite(distanceMeters) || distanceMeters < 0 {
		return 0, fmt.Errorf("%w: distance %v", ErrInvalidInput, distanceMeters)
	}
	if distanceMeters >= MatchCutoffMeters {
		return 0, nil
	}
	m := math.Round((1 - distanceMeters/MatchCutoffMeters) * 100)
	return int(math.Max(0, math.Min(100, m))), nil
}
