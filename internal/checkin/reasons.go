package checkin

// Stable failure-reason codes recorded on attempts and returned in
// API error bodies.  Codes group into the error taxonomy the client
// acts on: eligibility, temporal, quality, geofence, fraud,
// authorization and configuration failures.  Infrastructure failures
// never use these codes; they surface as generic 500s instead.
const (
    // Eligibility: not retryable without a new booking.
    ReasonNotEligible = "NOT_ELIGIBLE"

    // Temporal: retryable only at a different time.
    ReasonWindowNotYetOpen = "WINDOW_NOT_YET_OPEN"
    ReasonWindowClosed     = "WINDOW_CLOSED"

    // Quality: retryable immediately with a better sample.
    ReasonPoorLocationQuality = "POOR_LOCATION_QUALITY"
    ReasonMissingLocation     = "MISSING_LOCATION"

    // Geofence: retryable by moving.
    ReasonOutsideGeofence = "OUTSIDE_GEOFENCE"

    // Fraud: not automatically retryable; routed to fallbacks.
    ReasonFraudSuspected = "FRAUD_SUSPECTED"

    // Authorization: terminal for that method, others may apply.
    ReasonMethodNotAllowed    = "METHOD_NOT_ALLOWED"
    ReasonOverrideNotApproved = "OVERRIDE_NOT_APPROVED"
    ReasonMissingJustification = "MISSING_JUSTIFICATION"

    // Configuration: terminal for the geofence method.
    ReasonGeofenceDisabled = "GEOFENCE_DISABLED"

    // QR token failures, raised before any booking lookup.
    ReasonInvalidQRToken  = "INVALID_QR_TOKEN"
    ReasonQRTokenExpired  = "QR_TOKEN_EXPIRED"
    ReasonQRTokenReplayed = "QR_TOKEN_REPLAYED"
    ReasonQRTokenMismatch = "QR_TOKEN_MISMATCH"
)
