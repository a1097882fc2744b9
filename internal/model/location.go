package model

import "time"

// LocationSample is a single positioning fix supplied by the client
// at check-in time.  Samples are ephemeral inputs: they are validated,
// scored and measured against the venue geofence, but the raw
// coordinates are never written to storage.  Only the redacted form
// (see RedactedLocation) and the computed distance survive.
//
// Fields:
//  Latitude       – sampled latitude in decimal degrees.
//  Longitude      – sampled longitude in decimal degrees.
//  AccuracyMeters – reported horizontal accuracy radius.
//  CapturedAt     – when the fix was captured on the device.
//  SpeedMPS       – reported ground speed in m/s (nil when absent).
type LocationSample struct {
    Latitude       float64    // decimal degrees, [-90, 90]
    Longitude      float64    // decimal degrees, [-180, 180]
    AccuracyMeters float64    // horizontal accuracy radius
    CapturedAt     time.Time  // device capture time
    SpeedMPS       *float64   // optional reported speed
}

// DeviceSignature carries device metadata used purely as a fraud
// signal.  It is supplied by the caller and never trusted as proof of
// identity.
//
// Fields:
//  DeviceID      – caller-supplied device identifier.
//  Platform      – e.g. "ios", "android".
//  AppVersion    – client application version string.
//  IsCompromised – client-reported emulator/rooted flag.
type DeviceSignature struct {
    DeviceID      string // opaque device identifier
    Platform      string // client platform
    AppVersion    string // client app version
    IsCompromised bool   // emulator or rooted/jailbroken
}

// RedactedLocation is a coordinate whose precision has been
// deliberately reduced before persistence.  At three decimal places
// the cell size is roughly 110 m, which is coarse enough to bound
// privacy exposure while still supporting dispute resolution and
// location-history heuristics.
//
// Fields:
//  Latitude  – rounded latitude.
//  Longitude – rounded longitude.
type RedactedLocation struct {
    Latitude  float64 `json:"latitude"`
    Longitude float64 `json:"longitude"`
}

// LocationPoint is one entry of a user's recent check-in location
// history, reconstructed from persisted attempts.  Coordinates are
// the redacted values; ClassID lets the fraud detector distinguish
// repeats at the same venue from repeats across different venues.
//
// Fields:
//  Location   – redacted coordinates of the prior attempt.
//  ClassID    – class the prior attempt was tied to.
//  RecordedAt – when the prior attempt happened.
type LocationPoint struct {
    Location   RedactedLocation
    ClassID    uint64
    RecordedAt time.Time
}
