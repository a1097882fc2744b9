package checkin

import (
    "math"
    "strings"
    "testing"
    "time"

    "github.com/hobbyloop/class-attendance/internal/model"
)

// Downtown Vancouver venue used across the geofence tests.
func testVenue() model.Venue {
    return model.Venue{
        ID:        1,
        Name:      "Granville Pottery Studio",
        Latitude:  49.2827,
        Longitude: -123.1207,
        Geofence: model.GeofenceConfig{
            Enabled:             true,
            RadiusMeters:        150,
            WindowOpenMinBefore: 30,
            WindowCloseMinAfter: 15,
        },
    }
}

func TestHaversineSymmetryAndZero(t *testing.T) {
    aLat, aLon := 49.2827, -123.1207
    bLat, bLon := 49.2950, -123.1400

    ab := HaversineMeters(aLat, aLon, bLat, bLon)
    ba := HaversineMeters(bLat, bLon, aLat, aLon)
    if math.Abs(ab-ba) > 1e-9 {
        t.Fatalf("distance not symmetric: %f vs %f", ab, ba)
    }
    if d := HaversineMeters(aLat, aLon, aLat, aLon); d != 0 {
        t.Fatalf("distance(A,A) = %f, want 0", d)
    }
}

func TestHaversineKnownDistance(t *testing.T) {
    // ~15 m step north-east of the venue center.
    d := HaversineMeters(49.2827, -123.1207, 49.2828, -123.1205)
    if d < 10 || d > 25 {
        t.Fatalf("expected ~15 m, got %.1f m", d)
    }
}

func TestValidateGeofenceWithinRadius(t *testing.T) {
    venue := testVenue()
    sample := model.LocationSample{
        Latitude: 49.2828, Longitude: -123.1205,
        AccuracyMeters: 10, CapturedAt: time.Now(),
    }
    res := ValidateGeofence(sample, venue, WindowResult{IsOpen: true})
    if !res.Allowed {
        t.Fatalf("expected allowed, reasons: %v", res.Reasons)
    }
    if res.DistanceMeters > venue.Geofence.RadiusMeters {
        t.Fatalf("distance %.1f exceeds radius", res.DistanceMeters)
    }
}

func TestValidateGeofenceTooFar(t *testing.T) {
    venue := testVenue()
    // ~500 m away.
    sample := model.LocationSample{Latitude: 49.2872, Longitude: -123.1207}
    res := ValidateGeofence(sample, venue, WindowResult{IsOpen: true})
    if res.Allowed {
        t.Fatal("expected rejection outside radius")
    }
    if res.DistanceMeters < 400 || res.DistanceMeters > 600 {
        t.Fatalf("expected ~500 m, got %.1f", res.DistanceMeters)
    }
    if len(res.Reasons) == 0 || !strings.Contains(res.Reasons[0], "move within") {
        t.Fatalf("expected a distance-exceeded reason, got %v", res.Reasons)
    }
}

func TestValidateGeofenceClosedWindow(t *testing.T) {
    venue := testVenue()
    sample := model.LocationSample{Latitude: 49.2827, Longitude: -123.1207}
    res := ValidateGeofence(sample, venue, WindowResult{IsOpen: false, MinutesUntilOpen: 30})
    if res.Allowed {
        t.Fatal("expected rejection while window closed")
    }
    found := false
    for _, r := range res.Reasons {
        if strings.Contains(r, "opens in 30") {
            found = true
        }
    }
    if !found {
        t.Fatalf("expected window reason, got %v", res.Reasons)
    }
}
