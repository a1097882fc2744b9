package checkin

import (
    "testing"
    "time"

    "github.com/hobbyloop/class-attendance/internal/model"
)

func fraudHistory(at time.Time, classID uint64, lat, lng float64) []model.LocationPoint {
    return []model.LocationPoint{{
        Location:   model.RedactedLocation{Latitude: lat, Longitude: lng},
        ClassID:    classID,
        RecordedAt: at,
    }}
}

func TestScoreFraudCleanSample(t *testing.T) {
    cfg := DefaultFraudConfig()
    now := time.Date(2025, 6, 2, 9, 45, 0, 0, time.UTC)
    sample := model.LocationSample{Latitude: 49.283, Longitude: -123.121, CapturedAt: now}
    // Prior attempt an hour ago, 2 km away: ~0.5 m/s implied speed.
    hist := fraudHistory(now.Add(-time.Hour), 7, 49.301, -123.121)

    res := ScoreFraud(sample, hist, &model.DeviceSignature{DeviceID: "d1"}, 9, cfg)
    if res.Suspicious || res.Score != 0 || len(res.Flags) != 0 {
        t.Fatalf("expected clean result, got %+v", res)
    }
}

func TestScoreFraudImpossibleTravel(t *testing.T) {
    cfg := DefaultFraudConfig()
    now := time.Date(2025, 6, 2, 9, 45, 0, 0, time.UTC)
    // 2 km in 3 seconds, ~667 m/s.
    sample := model.LocationSample{Latitude: 49.301, Longitude: -123.121, CapturedAt: now}
    hist := fraudHistory(now.Add(-3*time.Second), 7, 49.283, -123.121)

    res := ScoreFraud(sample, hist, nil, 9, cfg)
    if res.Score != cfg.ImpossibleTravelWeight {
        t.Fatalf("score = %d, want %d", res.Score, cfg.ImpossibleTravelWeight)
    }
    if len(res.Flags) != 1 || res.Flags[0] != FlagImpossibleTravel {
        t.Fatalf("flags = %v", res.Flags)
    }
    if res.Suspicious {
        t.Fatal("a single strong signal should stay below the threshold")
    }
}

func TestScoreFraudCompromisedDevice(t *testing.T) {
    cfg := DefaultFraudConfig()
    sample := model.LocationSample{Latitude: 49.283, Longitude: -123.121, CapturedAt: time.Now()}
    res := ScoreFraud(sample, nil, &model.DeviceSignature{DeviceID: "d1", IsCompromised: true}, 9, cfg)
    if res.Score != cfg.CompromisedDeviceWeight {
        t.Fatalf("score = %d, want %d", res.Score, cfg.CompromisedDeviceWeight)
    }
}

func TestScoreFraudRepeatedCoordinates(t *testing.T) {
    cfg := DefaultFraudConfig()
    now := time.Date(2025, 6, 2, 9, 45, 0, 0, time.UTC)
    sample := model.LocationSample{Latitude: 49.283, Longitude: -123.121, CapturedAt: now}

    // Identical spot, different class, days apart: repetition flag.
    other := fraudHistory(now.Add(-48*time.Hour), 7, 49.283, -123.121)
    res := ScoreFraud(sample, other, nil, 9, cfg)
    if res.Score != cfg.RepeatCoordinateWeight {
        t.Fatalf("score = %d, want %d", res.Score, cfg.RepeatCoordinateWeight)
    }

    // Same class at the same spot is expected, not a signal.
    same := fraudHistory(now.Add(-48*time.Hour), 9, 49.283, -123.121)
    res = ScoreFraud(sample, same, nil, 9, cfg)
    if res.Score != 0 {
        t.Fatalf("same-class repetition scored %d, want 0", res.Score)
    }
}

func TestScoreFraudMonotoneInSignals(t *testing.T) {
    cfg := DefaultFraudConfig()
    now := time.Date(2025, 6, 2, 9, 45, 0, 0, time.UTC)
    sample := model.LocationSample{Latitude: 49.301, Longitude: -123.121, CapturedAt: now}
    hist := fraudHistory(now.Add(-3*time.Second), 7, 49.283, -123.121)

    base := ScoreFraud(sample, hist, nil, 9, cfg)
    withDevice := ScoreFraud(sample, hist, &model.DeviceSignature{IsCompromised: true}, 9, cfg)
    if withDevice.Score <= base.Score {
        t.Fatalf("adding a signal decreased score: %d -> %d", base.Score, withDevice.Score)
    }
    if !withDevice.Suspicious {
        t.Fatalf("impossible travel + compromised device should cross the threshold (score %d)", withDevice.Score)
    }
}

func TestScoreFraudClampedTo100(t *testing.T) {
    cfg := DefaultFraudConfig()
    cfg.ImpossibleTravelWeight = 90
    cfg.CompromisedDeviceWeight = 90
    now := time.Date(2025, 6, 2, 9, 45, 0, 0, time.UTC)
    sample := model.LocationSample{Latitude: 49.301, Longitude: -123.121, CapturedAt: now}
    hist := fraudHistory(now.Add(-3*time.Second), 7, 49.283, -123.121)

    res := ScoreFraud(sample, hist, &model.DeviceSignature{IsCompromised: true}, 9, cfg)
    if res.Score != 100 {
        t.Fatalf("score = %d, want clamp at 100", res.Score)
    }
}
