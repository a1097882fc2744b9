package checkin

import (
    "math"

    "github.com/hobbyloop/class-attendance/internal/model"
)

// Redact coarsens a raw positioning sample to the given number of
// decimal places before anything is persisted.  Three decimals give a
// cell of roughly 110 m, which bounds the privacy exposure of the
// stored audit trail while remaining useful for dispute resolution.
// The operation is deterministic: redacting the same input twice
// yields the same output, and the original precision is not
// recoverable from the result.
func Redact(sample model.LocationSample, decimals int) model.RedactedLocation {
    return model.RedactedLocation{
        Latitude:  roundTo(sample.Latitude, decimals),
        Longitude: roundTo(sample.Longitude, decimals),
    }
}

func roundTo(v float64, decimals int) float64 {
    p := math.Pow10(decimals)
    return math.Round(v*p) / p
}
