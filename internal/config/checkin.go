package config

import "time"

// CheckInConfig carries the calibration knobs for the attendance
// check-in pipeline: location quality gating, fraud heuristics,
// privacy redaction and QR token issuance.  Every value has a sane
// default so the service runs without any CHECKIN_* variables set.
type CheckInConfig struct {
    MaxAccuracyMeters float64       // reject fixes less precise than this
    MaxSampleAge      time.Duration // reject fixes older than this
    RedactDecimals    int           // coordinate decimals kept in storage
    HistoryLimit      int           // prior locations fed to fraud scoring

    FraudThreshold          int     // score at or above which the attempt is blocked
    MaxTravelSpeedMPS       float64 // implied speed above which travel is impossible
    ImpossibleTravelWeight  int
    CompromisedDeviceWeight int
    RepeatCoordinateWeight  int
    RepeatToleranceMeters   float64

    QRSecret   string        // HMAC key for QR tokens (falls back to JWT secret)
    QRTokenTTL time.Duration // validity window of an issued QR token
}

// LoadCheckInConfig reads CHECKIN_* environment variables, applying
// defaults where unset.
func LoadCheckInConfig() CheckInConfig {
    return CheckInConfig{
        MaxAccuracyMeters: float64(envInt("CHECKIN_MAX_ACCURACY_M", 50)),
        MaxSampleAge:      envDur("CHECKIN_MAX_SAMPLE_AGE", 30*time.Second),
        RedactDecimals:    envInt("CHECKIN_REDACT_DECIMALS", 3),
        HistoryLimit:      envInt("CHECKIN_HISTORY_LIMIT", 10),

        FraudThreshold:          envInt("CHECKIN_FRAUD_THRESHOLD", 60),
        MaxTravelSpeedMPS:       float64(envInt("CHECKIN_MAX_SPEED_MPS", 250)),
        ImpossibleTravelWeight:  envInt("CHECKIN_FRAUD_TRAVEL_WEIGHT", 50),
        CompromisedDeviceWeight: envInt("CHECKIN_FRAUD_DEVICE_WEIGHT", 25),
        RepeatCoordinateWeight:  envInt("CHECKIN_FRAUD_REPEAT_WEIGHT", 30),
        RepeatToleranceMeters:   float64(envInt("CHECKIN_FRAUD_REPEAT_TOLERANCE_M", 25)),

        QRSecret:   envStr("CHECKIN_QR_SECRET", ""),
        QRTokenTTL: envDur("CHECKIN_QR_TTL", 5*time.Minute),
    }
}
