package checkin

import (
    "fmt"
    "time"

    "github.com/hobbyloop/class-attendance/internal/model"
)

// Fraud flag names recorded on attempts and returned to the
// orchestrator. Stable strings; they end up in the audit trail.
const (
    FlagImpossibleTravel  = "impossible_travel"
    FlagCompromisedDevice = "compromised_device"
    FlagRepeatedCoords    = "repeated_coordinates"
)

// FraudConfig holds the calibration knobs for the fraud heuristics.
// The weights and the suspicion threshold are per-deployment tunables
// expected to change with field data, not fixed requirements.
type FraudConfig struct {
    MaxTravelSpeedMPS       float64 // implied speeds above this are physically implausible
    SuspicionThreshold      int     // score at or above this marks the attempt suspicious
    ImpossibleTravelWeight  int     // strong signal
    CompromisedDeviceWeight int     // moderate signal
    RepeatCoordinateWeight  int     // fixed-spoof signal
    RepeatToleranceMeters   float64 // coordinates closer than this count as "the same spot"
}

// DefaultFraudConfig returns the calibration used when no environment
// overrides are present: 250 m/s is faster than commercial cruise
// speed, and the weights place a single strong signal just below the
// threshold so that suspicion requires either impossible travel plus
// any corroborating signal, or two weaker signals together.
func DefaultFraudConfig() FraudConfig {
    return FraudConfig{
        MaxTravelSpeedMPS:       250,
        SuspicionThreshold:      60,
        ImpossibleTravelWeight:  50,
        CompromisedDeviceWeight: 25,
        RepeatCoordinateWeight:  30,
        RepeatToleranceMeters:   25,
    }
}

// FraudResult is the advisory risk estimate for one attempt.  The
// score is clamped to 0–100 and grows monotonically with the number
// of triggered signals.  It is not a hard block by itself; the
// orchestrator decides how to react.
type FraudResult struct {
    Suspicious bool
    Score      int
    Flags      []string
}

// ScoreFraud inspects the current sample against the user's recent
// location history and device signals.  History entries are the
// redacted coordinates of prior attempts, newest first; raw
// coordinates are never retained, and the ~110 m redaction cell is
// still far finer than the kilometers-scale jumps impossible-travel
// detection looks for.
func ScoreFraud(sample model.LocationSample, history []model.LocationPoint, device *model.DeviceSignature, classID uint64, cfg FraudConfig) FraudResult {
    var res FraudResult

    // Impossible travel: implied speed from the most recent prior
    // location to the current sample.
    if len(history) > 0 {
        prev := history[0]
        dist := HaversineMeters(sample.Latitude, sample.Longitude,
            prev.Location.Latitude, prev.Location.Longitude)
        elapsed := sample.CapturedAt.Sub(prev.RecordedAt)
        if elapsed < time.Second {
            elapsed = time.Second
        }
        speed := dist / elapsed.Seconds()
        if speed > cfg.MaxTravelSpeedMPS {
            res.Score += cfg.ImpossibleTravelWeight
            res.Flags = append(res.Flags, FlagImpossibleTravel)
        }
    }

    // Device compromise signal reported by the client.
    if device != nil && device.IsCompromised {
        res.Score += cfg.CompromisedDeviceWeight
        res.Flags = append(res.Flags, FlagCompromisedDevice)
    }

    // Coordinate repetition: the same spot showing up for attempts
    // tied to different classes suggests a fixed spoofed location
    // reused across check-ins.
    for _, p := range history {
        if p.ClassID == classID {
            continue
        }
        d := HaversineMeters(sample.Latitude, sample.Longitude,
            p.Location.Latitude, p.Location.Longitude)
        if d <= cfg.RepeatToleranceMeters {
            res.Score += cfg.RepeatCoordinateWeight
            res.Flags = append(res.Flags, FlagRepeatedCoords)
            break
        }
    }

    if res.Score > 100 {
        res.Score = 100
    }
    res.Suspicious = res.Score >= cfg.SuspicionThreshold
    return res
}

// DescribeFlags renders triggered flags into a short human-readable
// summary for error messages.
func DescribeFlags(flags []string) string {
    if len(flags) == 0 {
        return "no fraud signals"
    }
    return fmt.Sprintf("suspicious activity detected (%d signal(s))", len(flags))
}
