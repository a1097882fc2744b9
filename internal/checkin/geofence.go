package checkin

import (
    "fmt"
    "math"

    "github.com/hobbyloop/class-attendance/internal/model"
)

// earthRadiusMeters is the mean Earth radius used by the haversine
// formula.  Venue radii are tens to hundreds of meters, so the error
// introduced by the spherical model is negligible here.
const earthRadiusMeters = 6371000.0

// HaversineMeters returns the great-circle distance in meters between
// two WGS84 coordinates.  The function is symmetric in its arguments
// and returns 0 for identical points.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
    φ1 := lat1 * math.Pi / 180
    φ2 := lat2 * math.Pi / 180
    Δφ := (lat2 - lat1) * math.Pi / 180
    Δλ := (lon2 - lon1) * math.Pi / 180

    a := math.Sin(Δφ/2)*math.Sin(Δφ/2) +
        math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
    c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
    return earthRadiusMeters * c
}

// GeofenceResult reports whether a sample is acceptable for the
// geofence method, together with the measured distance and a
// human-readable reason for every failing condition so the client can
// present actionable guidance.
type GeofenceResult struct {
    Allowed        bool
    DistanceMeters float64
    Reasons        []string
}

// ValidateGeofence measures the sample against the venue's registered
// center and combines the containment check with the window state.
// It does not mutate anything and is safe to call speculatively.
func ValidateGeofence(sample model.LocationSample, venue model.Venue, window WindowResult) GeofenceResult {
    dist := HaversineMeters(sample.Latitude, sample.Longitude, venue.Latitude, venue.Longitude)
    res := GeofenceResult{DistanceMeters: dist}

    within := dist <= venue.Geofence.RadiusMeters
    if !within {
        res.Reasons = append(res.Reasons, fmt.Sprintf(
            "you are %.0f m from %s; move within %.0f m to check in",
            dist, venue.Name, venue.Geofence.RadiusMeters))
    }
    if !window.IsOpen {
        if window.TerminallyClosed {
            res.Reasons = append(res.Reasons, "the check-in window for this class has closed")
        } else {
            res.Reasons = append(res.Reasons, fmt.Sprintf(
                "check-in opens in %d minute(s); try again closer to start time",
                window.MinutesUntilOpen))
        }
    }
    res.Allowed = within && window.IsOpen
    return res
}
