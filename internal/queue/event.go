// Package queue defines message payloads exchanged over the message broker.
package queue

// CheckInCompletedEvent is published when a booking is completed by a
// successful check-in. It contains enough information for downstream
// consumers to log, notify, or trigger analytics without querying the
// primary database.
type CheckInCompletedEvent struct {
    BookingID      uint64   `json:"booking_id"`
    SessionID      string   `json:"session_id"`
    UserID         uint64   `json:"user_id"`
    ClassID        uint64   `json:"class_id"`
    ClassTitle     string   `json:"class_title"`
    VenueName      string   `json:"venue_name"`
    Method         string   `json:"method"`
    DistanceMeters *float64 `json:"distance_m,omitempty"`
    CheckedInAt    string   `json:"checked_in_at"`
}

// Alert kinds carried on the checkin.alerts queue.
const (
    AlertEmergencyBypass = "emergency_bypass"
    AlertFraudSuspected  = "fraud_suspected"
)

// CheckInAlert is published for events operations should review: a
// succeeded emergency_bypass (which skips every location control) or
// a geofence attempt rejected on fraud suspicion.
type CheckInAlert struct {
    Kind          string   `json:"kind"` // AlertEmergencyBypass | AlertFraudSuspected
    BookingID     uint64   `json:"booking_id"`
    UserID        uint64   `json:"user_id"`
    ClassID       uint64   `json:"class_id"`
    Justification string   `json:"justification,omitempty"`
    FraudScore    *int     `json:"fraud_score,omitempty"`
    FraudFlags    []string `json:"fraud_flags,omitempty"`
    OccurredAt    string   `json:"occurred_at"`
}
