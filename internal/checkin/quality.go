package checkin

import (
    "fmt"
    "time"

    "github.com/hobbyloop/class-attendance/internal/model"
)

// QualityConfig holds the calibration knobs for the location quality
// gate.  Both values are deployment tunables (see config.Load); the
// defaults are chosen for phone GPS hardware: fixes worse than ~50 m
// or older than ~30 s are too noisy to reason about.
type QualityConfig struct {
    MaxAccuracyMeters float64       // reject fixes with a larger accuracy radius
    MaxSampleAge      time.Duration // reject fixes captured longer ago than this
}

// QualityResult lists every problem found with a sample.  A sample
// with any issue is rejected outright before fraud scoring or
// geofencing, since noise cannot be distinguished from deception.
type QualityResult struct {
    IsValid bool
    Issues  []string
}

// AssessQuality checks a positioning sample for basic usability:
// coordinates in valid ranges, an acceptable accuracy radius, and a
// capture time that is neither stale nor in the future beyond clock
// skew tolerance.
func AssessQuality(sample model.LocationSample, cfg QualityConfig, now time.Time) QualityResult {
    var issues []string

    if sample.Latitude < -90 || sample.Latitude > 90 {
        issues = append(issues, fmt.Sprintf("latitude %.6f out of range [-90, 90]", sample.Latitude))
    }
    if sample.Longitude < -180 || sample.Longitude > 180 {
        issues = append(issues, fmt.Sprintf("longitude %.6f out of range [-180, 180]", sample.Longitude))
    }
    if sample.AccuracyMeters <= 0 || sample.AccuracyMeters > cfg.MaxAccuracyMeters {
        issues = append(issues, fmt.Sprintf(
            "accuracy %.0f m exceeds the %.0f m ceiling; wait for a better GPS fix",
            sample.AccuracyMeters, cfg.MaxAccuracyMeters))
    }
    if sample.CapturedAt.IsZero() {
        issues = append(issues, "sample has no capture time")
    } else {
        age := now.Sub(sample.CapturedAt)
        if age > cfg.MaxSampleAge {
            issues = append(issues, fmt.Sprintf(
                "sample is %.0f s old (limit %.0f s); refresh your location",
                age.Seconds(), cfg.MaxSampleAge.Seconds()))
        }
        // Allow a minute of clock skew before calling a fix "from the future".
        if age < -time.Minute {
            issues = append(issues, "sample capture time is in the future")
        }
    }

    return QualityResult{IsValid: len(issues) == 0, Issues: issues}
}
