package checkin

import (
    "testing"

    "github.com/hobbyloop/class-attendance/internal/model"
)

func TestRedactDeterministicAndLossy(t *testing.T) {
    s := model.LocationSample{Latitude: 49.2827415, Longitude: -123.1207348}

    first := Redact(s, 3)
    second := Redact(s, 3)
    if first != second {
        t.Fatalf("redaction not deterministic: %+v vs %+v", first, second)
    }
    if first.Latitude != 49.283 || first.Longitude != -123.121 {
        t.Fatalf("unexpected rounding: %+v", first)
    }
    // The coarse output must not equal the original precision.
    if first.Latitude == s.Latitude || first.Longitude == s.Longitude {
        t.Fatal("redaction preserved original precision")
    }
}

func TestRedactCollapsesNearbyPoints(t *testing.T) {
    a := Redact(model.LocationSample{Latitude: 49.28271, Longitude: -123.12069}, 3)
    b := Redact(model.LocationSample{Latitude: 49.28294, Longitude: -123.12101}, 3)
    if a != b {
        t.Fatalf("points inside one cell should collapse: %+v vs %+v", a, b)
    }
}
