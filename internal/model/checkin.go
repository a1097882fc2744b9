package model

import "time"

// Method identifies how a check-in attempt was validated.  Methods
// are ordered by descending trust: the geofence method is primary,
// every other method is a fallback that must be explicitly enabled on
// the venue's geofence configuration.
type Method string

// Check-in methods in descending trust order.
const (
    MethodGeoFence            Method = "geo_fence"
    MethodQRCode              Method = "qr_code"
    MethodInstructorConfirmed Method = "instructor_confirmation"
    MethodManualOverride      Method = "manual_override"
    MethodEmergencyBypass     Method = "emergency_bypass"
)

// MethodsByTrust lists all methods in dispatch/advisory order.
var MethodsByTrust = []Method{
    MethodGeoFence,
    MethodQRCode,
    MethodInstructorConfirmed,
    MethodManualOverride,
    MethodEmergencyBypass,
}

// Valid reports whether m is one of the known check-in methods.
func (m Method) Valid() bool {
    for _, k := range MethodsByTrust {
        if m == k {
            return true
        }
    }
    return false
}

// CheckInAttempt is one row of the append-only `check_in_attempts`
// audit table.  Exactly one attempt is recorded per orchestrator
// call, success or failure; rows are never mutated or deleted as they
// are the durable evidence for attendance disputes.
//
// Fields:
//  ID                   – UUID primary key.
//  BookingID            – booking the attempt is for.
//  UserID               – student making the attempt.
//  ClassID              – class tied to the booking.
//  AttemptedAt          – when the attempt was evaluated.
//  Method               – check-in method used.
//  Succeeded            – whether the attempt completed the booking.
//  Redacted             – coarsened sample location (nil when no
//                         location was involved in the method).
//  DistanceMeters       – great-circle distance from the venue center
//                         (nil for non-location methods).
//  FailureReason        – stable error code when Succeeded is false.
//  FraudScore           – heuristic risk score 0–100, when computed.
//  FraudFlags           – triggered fraud heuristics, when any.
//  OverrideInstructorID – instructor who approved/denied an override.
//  OverrideReason       – justification supplied with an override or
//                         emergency bypass.
type CheckInAttempt struct {
    ID                   string            // check_in_attempts.id (UUID)
    BookingID            uint64            // check_in_attempts.booking_id
    UserID               uint64            // check_in_attempts.user_id
    ClassID              uint64            // check_in_attempts.class_id
    AttemptedAt          time.Time         // check_in_attempts.attempted_at
    Method               Method            // check_in_attempts.method
    Succeeded            bool              // check_in_attempts.succeeded
    Redacted             *RedactedLocation // check_in_attempts.redacted_lat/lng (nullable)
    DistanceMeters       *float64          // check_in_attempts.distance_m (nullable)
    FailureReason        string            // check_in_attempts.failure_reason (empty on success)
    FraudScore           *int              // check_in_attempts.fraud_score (nullable)
    FraudFlags           []string          // check_in_attempts.fraud_flags (CSV, nullable)
    OverrideInstructorID *uint64           // check_in_attempts.override_instructor_id (nullable)
    OverrideReason       *string           // check_in_attempts.override_reason (nullable)
}

// CheckInSession aggregates all attempts for a single booking, as
// stored in the `check_in_sessions` table.  A session is created
// lazily on the first attempt and becomes terminal either as
// SUCCESSFUL on the first succeeding attempt, or as FAILED when an
// attempt arrives after the check-in window has terminally closed.
// Once the booking has transitioned to COMPLETED no further attempt
// can find it CONFIRMED, so the session never leaves a terminal
// state.
//
// Fields:
//  ID            – UUID primary key.
//  BookingID     – booking this session tracks (unique).
//  UserID        – student who owns the booking.
//  ClassID       – class tied to the booking.
//  Status        – PENDING, SUCCESSFUL or FAILED.
//  StartedAt     – when the first attempt arrived.
//  CompletedAt   – when the session became terminal (nullable).
//  FinalLocation – redacted location of the succeeding attempt.
type CheckInSession struct {
    ID            string            // check_in_sessions.id (UUID)
    BookingID     uint64            // check_in_sessions.booking_id
    UserID        uint64            // check_in_sessions.user_id
    ClassID       uint64            // check_in_sessions.class_id
    Status        string            // check_in_sessions.status
    StartedAt     time.Time         // check_in_sessions.started_at
    CompletedAt   *time.Time        // check_in_sessions.completed_at (nullable)
    FinalLocation *RedactedLocation // check_in_sessions.final_lat/lng (nullable)
}

// Session status values stored in check_in_sessions.status.
const (
    SessionPending    = "PENDING"
    SessionSuccessful = "SUCCESSFUL"
    SessionFailed     = "FAILED"
)
