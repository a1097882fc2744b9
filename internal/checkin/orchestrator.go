package checkin

import (
    "context"
    "errors"
    "fmt"
    "log"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/hobbyloop/class-attendance/internal/model"
)

// Sentinel errors crossing the store boundary.  Implementations map
// their native not-found/conflict conditions onto these so the
// orchestrator can separate domain outcomes from infrastructure
// failures.
var (
    // ErrBookingNotFound means no booking with that ID belongs to the
    // requesting user.
    ErrBookingNotFound = errors.New("booking not found")
    // ErrNotEligible means the conditional CONFIRMED → COMPLETED write
    // matched no row: the booking was already completed or cancelled,
    // possibly by a racing attempt.
    ErrNotEligible = errors.New("booking not eligible")
)

// Store is the persistence surface the orchestrator needs.  The MySQL
// implementation lives in internal/repository; tests use in-memory
// fakes.  FinalizeSuccess must apply the attempt insert, the
// compare-and-swap booking transition and the session close as one
// transaction, returning ErrNotEligible when the swap matches no row.
type Store interface {
    // BookingForUser loads a booking by ID scoped to its owner.
    BookingForUser(ctx context.Context, bookingID, userID uint64) (*model.Booking, error)
    // ClassWithVenue loads the class and its venue (geofence config included).
    ClassWithVenue(ctx context.Context, classID uint64) (*model.Class, *model.Venue, error)
    // EnsureSession returns the booking's check-in session, creating it
    // lazily on the first attempt.
    EnsureSession(ctx context.Context, booking *model.Booking) (*model.CheckInSession, error)
    // RecentLocations returns the user's newest-first redacted location
    // history reconstructed from prior attempts.
    RecentLocations(ctx context.Context, userID uint64, limit int) ([]model.LocationPoint, error)
    // RecordFailure appends a failed attempt to the audit trail.
    RecordFailure(ctx context.Context, sessionID string, attempt *model.CheckInAttempt) error
    // FailSession marks a still-pending session FAILED.  Called once
    // the check-in window has terminally closed and no attempt can
    // ever succeed.
    FailSession(ctx context.Context, sessionID string, at time.Time) error
    // FinalizeSuccess atomically appends the succeeding attempt,
    // transitions the booking CONFIRMED → COMPLETED and closes the
    // session as SUCCESSFUL.
    FinalizeSuccess(ctx context.Context, sessionID string, attempt *model.CheckInAttempt) error
}

// Config carries the calibration knobs for every validation component
// the orchestrator sequences.
type Config struct {
    Quality        QualityConfig
    Fraud          FraudConfig
    RedactDecimals int
    HistoryLimit   int
}

// OverrideDetails is an instructor's decision on an override-style
// check-in request.
type OverrideDetails struct {
    InstructorID uint64
    Approved     bool
    Reason       string
}

// Request is one user-triggered check-in attempt.
type Request struct {
    BookingID     uint64
    UserID        uint64
    Method        model.Method
    Sample        *model.LocationSample
    Device        *model.DeviceSignature
    Override      *OverrideDetails
    Justification string // required for emergency_bypass
}

// Outcome is the synchronous result of one attempt.  Domain failures
// carry a stable FailureReason plus the set of alternative methods
// still available; infrastructure failures are returned as errors
// from AttemptCheckIn instead and never populate FailureReason.
type Outcome struct {
    Succeeded      bool
    SessionID      string
    BookingID      uint64
    Method         model.Method
    DistanceMeters *float64
    FailureReason  string
    Message        string
    Alternatives   []model.Method
    FraudScore     *int
    FraudFlags     []string
}

// Orchestrator sequences the window gate, the method-specific
// validators and the audit/persistence side effects for check-in
// attempts.  It holds no per-request state; session continuity is
// reconstructed from persisted attempts on every call.
type Orchestrator struct {
    store Store
    cfg   Config
    now   func() time.Time
}

// NewOrchestrator builds an orchestrator.  nowFn may be nil, in which
// case the wall clock is used; tests inject fixed clocks.
func NewOrchestrator(store Store, cfg Config, nowFn func() time.Time) *Orchestrator {
    if nowFn == nil {
        nowFn = func() time.Time { return time.Now().UTC() }
    }
    if cfg.HistoryLimit <= 0 {
        cfg.HistoryLimit = 10
    }
    return &Orchestrator{store: store, cfg: cfg, now: nowFn}
}

// AttemptCheckIn evaluates one check-in attempt end to end.
//
// The processing order is fixed: booking eligibility, then the window
// gate (always, regardless of method), then method-specific
// validation in descending trust order.  Exactly one attempt record
// is written per call once the booking resolves; at most one booking
// transition can ever happen because FinalizeSuccess performs the
// status swap conditionally.  Failure to persist a *failed* attempt
// is logged and swallowed — audit logging must not convert an
// otherwise-valid outcome into a user-facing error.
func (o *Orchestrator) AttemptCheckIn(ctx context.Context, req Request) (Outcome, error) {
    if !req.Method.Valid() {
        return Outcome{}, fmt.Errorf("unknown check-in method %q", req.Method)
    }
    now := o.now()

    booking, err := o.store.BookingForUser(ctx, req.BookingID, req.UserID)
    if err != nil {
        if errors.Is(err, ErrBookingNotFound) {
            // No booking row to hang an attempt record on.
            return Outcome{
                BookingID:     req.BookingID,
                Method:        req.Method,
                FailureReason: ReasonNotEligible,
                Message:       "no booking found for this user",
            }, nil
        }
        return Outcome{}, fmt.Errorf("load booking: %w", err)
    }

    class, venue, err := o.store.ClassWithVenue(ctx, booking.ClassID)
    if err != nil {
        return Outcome{}, fmt.Errorf("load class %d: %w", booking.ClassID, err)
    }

    session, err := o.store.EnsureSession(ctx, booking)
    if err != nil {
        return Outcome{}, fmt.Errorf("ensure session: %w", err)
    }

    attempt := &model.CheckInAttempt{
        ID:          uuid.NewString(),
        BookingID:   booking.ID,
        UserID:      booking.UserID,
        ClassID:     booking.ClassID,
        AttemptedAt: now,
        Method:      req.Method,
    }
    if req.Override != nil {
        iid := req.Override.InstructorID
        attempt.OverrideInstructorID = &iid
        if r := strings.TrimSpace(req.Override.Reason); r != "" {
            attempt.OverrideReason = &r
        }
    }
    if j := strings.TrimSpace(req.Justification); j != "" && attempt.OverrideReason == nil {
        attempt.OverrideReason = &j
    }

    // Eligibility precondition: only CONFIRMED bookings can check in.
    // This is also the idempotency guard — a completed booking can
    // never be completed twice.
    if booking.Status != model.BookingConfirmed {
        return o.fail(ctx, session, attempt, venue, ReasonNotEligible,
            fmt.Sprintf("booking is %s, not %s", booking.Status, model.BookingConfirmed)), nil
    }

    // Window gate, always evaluated regardless of method.
    window := WindowFor(class.StartsAt, class.DurationMin,
        venue.Geofence.WindowOpenMinBefore, venue.Geofence.WindowCloseMinAfter, now)
    if !window.IsOpen {
        if window.TerminallyClosed {
            out := o.fail(ctx, session, attempt, venue, ReasonWindowClosed,
                "the check-in window for this class has closed")
            // The window never reopens, so the session is terminal too.
            if session.Status == model.SessionPending {
                if err := o.store.FailSession(ctx, session.ID, now); err != nil {
                    log.Printf("checkin: failing session %s: %v", session.ID, err)
                }
            }
            return out, nil
        }
        return o.fail(ctx, session, attempt, venue, ReasonWindowNotYetOpen,
            fmt.Sprintf("check-in opens in %d minute(s)", window.MinutesUntilOpen)), nil
    }

    // Method dispatch in descending trust order.  Every fallback is
    // gated on the venue's configuration.
    switch req.Method {
    case model.MethodGeoFence:
        return o.attemptGeoFence(ctx, session, attempt, venue, window, req)
    case model.MethodQRCode:
        return o.attemptFallback(ctx, session, attempt, venue, req)
    case model.MethodInstructorConfirmed, model.MethodManualOverride:
        return o.attemptOverride(ctx, session, attempt, venue, req)
    case model.MethodEmergencyBypass:
        return o.attemptBypass(ctx, session, attempt, venue, req)
    }
    return Outcome{}, fmt.Errorf("unhandled check-in method %q", req.Method)
}

// attemptGeoFence runs the primary validation chain: quality gate,
// fraud scoring, then geofence containment.
func (o *Orchestrator) attemptGeoFence(ctx context.Context, session *model.CheckInSession, attempt *model.CheckInAttempt, venue *model.Venue, window WindowResult, req Request) (Outcome, error) {
    if !venue.Geofence.Enabled {
        return o.fail(ctx, session, attempt, venue, ReasonGeofenceDisabled,
            "geofence check-in is not enabled for this venue"), nil
    }
    if req.Sample == nil {
        return o.fail(ctx, session, attempt, venue, ReasonMissingLocation,
            "location data is required for geofence check-in"), nil
    }
    sample := *req.Sample

    quality := AssessQuality(sample, o.cfg.Quality, o.now())
    if !quality.IsValid {
        return o.fail(ctx, session, attempt, venue, ReasonPoorLocationQuality,
            strings.Join(quality.Issues, "; ")), nil
    }

    // Quality passed, so the sample is worth redacting and keeping.
    red := Redact(sample, o.cfg.RedactDecimals)
    attempt.Redacted = &red

    history, err := o.store.RecentLocations(ctx, req.UserID, o.cfg.HistoryLimit)
    if err != nil {
        return Outcome{}, fmt.Errorf("load location history: %w", err)
    }
    fraud := ScoreFraud(sample, history, req.Device, attempt.ClassID, o.cfg.Fraud)
    score := fraud.Score
    attempt.FraudScore = &score
    attempt.FraudFlags = fraud.Flags
    if fraud.Suspicious {
        out := o.fail(ctx, session, attempt, venue, ReasonFraudSuspected,
            DescribeFlags(fraud.Flags)+"; use an alternative check-in method")
        out.FraudScore = &score
        out.FraudFlags = fraud.Flags
        return out, nil
    }

    geo := ValidateGeofence(sample, *venue, window)
    dist := geo.DistanceMeters
    attempt.DistanceMeters = &dist
    if !geo.Allowed {
        return o.fail(ctx, session, attempt, venue, ReasonOutsideGeofence,
            strings.Join(geo.Reasons, "; ")), nil
    }

    return o.succeed(ctx, session, attempt, venue)
}

// attemptFallback validates methods that need only the configuration
// gate at this layer (qr_code: token validity and replay are enforced
// by the handler before the orchestrator runs).
func (o *Orchestrator) attemptFallback(ctx context.Context, session *model.CheckInSession, attempt *model.CheckInAttempt, venue *model.Venue, req Request) (Outcome, error) {
    if !venue.Geofence.FallbackAllowed(req.Method) {
        return o.fail(ctx, session, attempt, venue, ReasonMethodNotAllowed,
            fmt.Sprintf("%s check-in is not enabled for this venue", req.Method)), nil
    }
    if req.Sample != nil {
        // A location supplied alongside a QR scan is kept (redacted)
        // for the audit trail but is not a validation input here.
        red := Redact(*req.Sample, o.cfg.RedactDecimals)
        attempt.Redacted = &red
    }
    return o.succeed(ctx, session, attempt, venue)
}

// attemptOverride handles instructor_confirmation and manual_override:
// both require an explicit, approved instructor decision.
func (o *Orchestrator) attemptOverride(ctx context.Context, session *model.CheckInSession, attempt *model.CheckInAttempt, venue *model.Venue, req Request) (Outcome, error) {
    if !venue.Geofence.FallbackAllowed(req.Method) {
        return o.fail(ctx, session, attempt, venue, ReasonMethodNotAllowed,
            fmt.Sprintf("%s check-in is not enabled for this venue", req.Method)), nil
    }
    if req.Override == nil || !req.Override.Approved {
        return o.fail(ctx, session, attempt, venue, ReasonOverrideNotApproved,
            "the instructor did not approve this check-in"), nil
    }
    return o.succeed(ctx, session, attempt, venue)
}

// attemptBypass handles emergency_bypass: configuration gate plus a
// mandatory justification, always logged at elevated severity.
func (o *Orchestrator) attemptBypass(ctx context.Context, session *model.CheckInSession, attempt *model.CheckInAttempt, venue *model.Venue, req Request) (Outcome, error) {
    if !venue.Geofence.EmergencyBypass {
        return o.fail(ctx, session, attempt, venue, ReasonMethodNotAllowed,
            "emergency bypass is not enabled for this venue"), nil
    }
    if strings.TrimSpace(req.Justification) == "" {
        return o.fail(ctx, session, attempt, venue, ReasonMissingJustification,
            "emergency bypass requires a justification"), nil
    }
    log.Printf("[ALERT] emergency bypass check-in: booking=%d user=%d class=%d justification=%q",
        attempt.BookingID, attempt.UserID, attempt.ClassID, req.Justification)
    return o.succeed(ctx, session, attempt, venue)
}

// succeed finalizes a validated attempt: the attempt insert, the
// conditional booking transition and the session close are applied by
// the store as one unit.  A racing attempt that already completed the
// booking surfaces as ErrNotEligible and is converted into a failed
// attempt instead.
func (o *Orchestrator) succeed(ctx context.Context, session *model.CheckInSession, attempt *model.CheckInAttempt, venue *model.Venue) (Outcome, error) {
    attempt.Succeeded = true
    if err := o.store.FinalizeSuccess(ctx, session.ID, attempt); err != nil {
        if errors.Is(err, ErrNotEligible) {
            attempt.Succeeded = false
            return o.fail(ctx, session, attempt, venue, ReasonNotEligible,
                "booking was already completed"), nil
        }
        return Outcome{}, fmt.Errorf("finalize check-in: %w", err)
    }
    out := Outcome{
        Succeeded:      true,
        SessionID:      session.ID,
        BookingID:      attempt.BookingID,
        Method:         attempt.Method,
        DistanceMeters: attempt.DistanceMeters,
        FraudScore:     attempt.FraudScore,
        FraudFlags:     attempt.FraudFlags,
    }
    return out, nil
}

// fail records the failed attempt best-effort and assembles the
// advisory outcome.  The booking is left untouched.
func (o *Orchestrator) fail(ctx context.Context, session *model.CheckInSession, attempt *model.CheckInAttempt, venue *model.Venue, reason, message string) Outcome {
    attempt.Succeeded = false
    attempt.FailureReason = reason
    if err := o.store.RecordFailure(ctx, session.ID, attempt); err != nil {
        log.Printf("checkin: recording failed attempt %s for booking %d: %v",
            attempt.ID, attempt.BookingID, err)
    }
    return Outcome{
        SessionID:      session.ID,
        BookingID:      attempt.BookingID,
        Method:         attempt.Method,
        DistanceMeters: attempt.DistanceMeters,
        FailureReason:  reason,
        Message:        message,
        Alternatives:   AlternativeMethods(venue.Geofence, attempt.Method),
    }
}

// AlternativeMethods lists, in descending trust order, every check-in
// method still available for the venue other than the one just tried.
func AlternativeMethods(g model.GeofenceConfig, tried model.Method) []model.Method {
    var out []model.Method
    for _, m := range model.MethodsByTrust {
        if m == tried {
            continue
        }
        if m == model.MethodGeoFence {
            if g.Enabled {
                out = append(out, m)
            }
            continue
        }
        if g.FallbackAllowed(m) {
            out = append(out, m)
        }
    }
    return out
}
