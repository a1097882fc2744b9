package checkin

import (
    "strings"
    "testing"
    "time"

    "github.com/hobbyloop/class-attendance/internal/model"
)

var qcfg = QualityConfig{MaxAccuracyMeters: 50, MaxSampleAge: 30 * time.Second}

func TestAssessQualityAccepts(t *testing.T) {
    now := time.Date(2025, 6, 2, 9, 45, 0, 0, time.UTC)
    s := model.LocationSample{
        Latitude: 49.2828, Longitude: -123.1205,
        AccuracyMeters: 10, CapturedAt: now.Add(-5 * time.Second),
    }
    res := AssessQuality(s, qcfg, now)
    if !res.IsValid {
        t.Fatalf("expected valid, issues: %v", res.Issues)
    }
}

func TestAssessQualityRejects(t *testing.T) {
    now := time.Date(2025, 6, 2, 9, 45, 0, 0, time.UTC)
    fresh := now.Add(-2 * time.Second)
    cases := []struct {
        name    string
        sample  model.LocationSample
        keyword string
    }{
        {"poor accuracy", model.LocationSample{Latitude: 49, Longitude: -123, AccuracyMeters: 120, CapturedAt: fresh}, "ceiling"},
        {"zero accuracy", model.LocationSample{Latitude: 49, Longitude: -123, AccuracyMeters: 0, CapturedAt: fresh}, "ceiling"},
        {"stale fix", model.LocationSample{Latitude: 49, Longitude: -123, AccuracyMeters: 10, CapturedAt: now.Add(-2 * time.Minute)}, "old"},
        {"future fix", model.LocationSample{Latitude: 49, Longitude: -123, AccuracyMeters: 10, CapturedAt: now.Add(5 * time.Minute)}, "future"},
        {"no capture time", model.LocationSample{Latitude: 49, Longitude: -123, AccuracyMeters: 10}, "capture time"},
        {"latitude out of range", model.LocationSample{Latitude: 91, Longitude: -123, AccuracyMeters: 10, CapturedAt: fresh}, "latitude"},
        {"longitude out of range", model.LocationSample{Latitude: 49, Longitude: -181, AccuracyMeters: 10, CapturedAt: fresh}, "longitude"},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            res := AssessQuality(tc.sample, qcfg, now)
            if res.IsValid {
                t.Fatal("expected rejection")
            }
            joined := strings.Join(res.Issues, "; ")
            if !strings.Contains(joined, tc.keyword) {
                t.Fatalf("issues %q do not mention %q", joined, tc.keyword)
            }
        })
    }
}
