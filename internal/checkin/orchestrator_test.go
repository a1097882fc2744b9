package checkin

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/hobbyloop/class-attendance/internal/model"
)

// memStore is an in-memory Store used to exercise the orchestrator
// without a database.  FinalizeSuccess mimics the conditional
// CONFIRMED → COMPLETED write: it only applies when the booking is
// still confirmed.
type memStore struct {
    bookings map[uint64]*model.Booking
    classes  map[uint64]*model.Class
    venues   map[uint64]*model.Venue
    sessions map[uint64]*model.CheckInSession
    attempts []*model.CheckInAttempt
    history  []model.LocationPoint

    failRecord bool // force RecordFailure errors
}

func newMemStore() *memStore {
    return &memStore{
        bookings: map[uint64]*model.Booking{},
        classes:  map[uint64]*model.Class{},
        venues:   map[uint64]*model.Venue{},
        sessions: map[uint64]*model.CheckInSession{},
    }
}

func (s *memStore) BookingForUser(ctx context.Context, bookingID, userID uint64) (*model.Booking, error) {
    b, ok := s.bookings[bookingID]
    if !ok || b.UserID != userID {
        return nil, ErrBookingNotFound
    }
    cp := *b
    return &cp, nil
}

func (s *memStore) ClassWithVenue(ctx context.Context, classID uint64) (*model.Class, *model.Venue, error) {
    c, ok := s.classes[classID]
    if !ok {
        return nil, nil, errors.New("class missing")
    }
    v, ok := s.venues[c.VenueID]
    if !ok {
        return nil, nil, errors.New("venue missing")
    }
    return c, v, nil
}

func (s *memStore) EnsureSession(ctx context.Context, booking *model.Booking) (*model.CheckInSession, error) {
    if sess, ok := s.sessions[booking.ID]; ok {
        return sess, nil
    }
    sess := &model.CheckInSession{
        ID:        "sess-" + time.Now().Format("150405.000000000"),
        BookingID: booking.ID,
        UserID:    booking.UserID,
        ClassID:   booking.ClassID,
        Status:    model.SessionPending,
        StartedAt: time.Now(),
    }
    s.sessions[booking.ID] = sess
    return sess, nil
}

func (s *memStore) RecentLocations(ctx context.Context, userID uint64, limit int) ([]model.LocationPoint, error) {
    return s.history, nil
}

func (s *memStore) RecordFailure(ctx context.Context, sessionID string, attempt *model.CheckInAttempt) error {
    if s.failRecord {
        return errors.New("audit store down")
    }
    s.attempts = append(s.attempts, attempt)
    return nil
}

func (s *memStore) FailSession(ctx context.Context, sessionID string, at time.Time) error {
    for _, sess := range s.sessions {
        if sess.ID == sessionID && sess.Status == model.SessionPending {
            sess.Status = model.SessionFailed
            t := at
            sess.CompletedAt = &t
        }
    }
    return nil
}

func (s *memStore) FinalizeSuccess(ctx context.Context, sessionID string, attempt *model.CheckInAttempt) error {
    b, ok := s.bookings[attempt.BookingID]
    if !ok || b.Status != model.BookingConfirmed {
        return ErrNotEligible
    }
    b.Status = model.BookingCompleted
    s.attempts = append(s.attempts, attempt)
    sess := s.sessions[attempt.BookingID]
    sess.Status = model.SessionSuccessful
    now := attempt.AttemptedAt
    sess.CompletedAt = &now
    sess.FinalLocation = attempt.Redacted
    return nil
}

// fixtures

var testNow = time.Date(2025, 6, 2, 9, 45, 0, 0, time.UTC) // 15 min before class start

func seedStore(s *memStore) {
    venue := testVenue() // Granville studio, radius 150 m, margins 30/15
    venue.Geofence.AllowedFallbacks = []model.Method{model.MethodQRCode, model.MethodInstructorConfirmed}
    venue.Geofence.AllowManualOverride = true
    venue.Geofence.EmergencyBypass = true
    s.venues[venue.ID] = &venue
    s.classes[9] = &model.Class{
        ID: 9, VenueID: venue.ID, InstructorID: 77,
        Title: "Wheel Throwing Basics", StartsAt: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
        DurationMin: 60, Status: "SCHEDULED",
    }
    s.bookings[42] = &model.Booking{ID: 42, UserID: 5, ClassID: 9, Status: model.BookingConfirmed}
}

func testOrchestrator(s *memStore) *Orchestrator {
    cfg := Config{
        Quality:        QualityConfig{MaxAccuracyMeters: 50, MaxSampleAge: 30 * time.Second},
        Fraud:          DefaultFraudConfig(),
        RedactDecimals: 3,
        HistoryLimit:   10,
    }
    return NewOrchestrator(s, cfg, func() time.Time { return testNow })
}

func goodSample() *model.LocationSample {
    return &model.LocationSample{
        Latitude: 49.2828, Longitude: -123.1205,
        AccuracyMeters: 10, CapturedAt: testNow.Add(-2 * time.Second),
    }
}

func TestGeoFenceCheckInSucceeds(t *testing.T) {
    s := newMemStore()
    seedStore(s)
    o := testOrchestrator(s)

    out, err := o.AttemptCheckIn(context.Background(), Request{
        BookingID: 42, UserID: 5, Method: model.MethodGeoFence, Sample: goodSample(),
    })
    if err != nil {
        t.Fatalf("AttemptCheckIn: %v", err)
    }
    if !out.Succeeded {
        t.Fatalf("expected success, got %s: %s", out.FailureReason, out.Message)
    }
    if s.bookings[42].Status != model.BookingCompleted {
        t.Fatalf("booking status = %s, want COMPLETED", s.bookings[42].Status)
    }
    if s.sessions[42].Status != model.SessionSuccessful {
        t.Fatalf("session status = %s", s.sessions[42].Status)
    }
    if len(s.attempts) != 1 || !s.attempts[0].Succeeded {
        t.Fatalf("expected exactly one succeeded attempt, got %d", len(s.attempts))
    }
    if out.DistanceMeters == nil || *out.DistanceMeters > 150 {
        t.Fatalf("distance missing or out of radius: %v", out.DistanceMeters)
    }
    // Raw coordinates must not survive on the attempt record.
    if got := s.attempts[0].Redacted; got == nil || got.Latitude == goodSample().Latitude {
        t.Fatalf("attempt location not redacted: %+v", got)
    }
}

func TestCheckInIdempotence(t *testing.T) {
    s := newMemStore()
    seedStore(s)
    o := testOrchestrator(s)
    ctx := context.Background()

    req := Request{BookingID: 42, UserID: 5, Method: model.MethodGeoFence, Sample: goodSample()}
    if out, _ := o.AttemptCheckIn(ctx, req); !out.Succeeded {
        t.Fatalf("first attempt failed: %s", out.FailureReason)
    }
    out, err := o.AttemptCheckIn(ctx, req)
    if err != nil {
        t.Fatalf("second attempt: %v", err)
    }
    if out.Succeeded || out.FailureReason != ReasonNotEligible {
        t.Fatalf("second attempt = %+v, want NOT_ELIGIBLE failure", out)
    }
    succeeded := 0
    for _, a := range s.attempts {
        if a.Succeeded {
            succeeded++
        }
    }
    if succeeded != 1 {
        t.Fatalf("%d succeeded attempts across history, want 1", succeeded)
    }
}

func TestCheckInTooFar(t *testing.T) {
    s := newMemStore()
    seedStore(s)
    o := testOrchestrator(s)

    far := goodSample()
    far.Latitude = 49.2872 // ~500 m north
    out, err := o.AttemptCheckIn(context.Background(), Request{
        BookingID: 42, UserID: 5, Method: model.MethodGeoFence, Sample: far,
    })
    if err != nil {
        t.Fatal(err)
    }
    if out.Succeeded || out.FailureReason != ReasonOutsideGeofence {
        t.Fatalf("outcome = %+v, want OUTSIDE_GEOFENCE", out)
    }
    if s.bookings[42].Status != model.BookingConfirmed {
        t.Fatal("booking must remain CONFIRMED after a failed attempt")
    }
    if len(out.Alternatives) == 0 {
        t.Fatal("expected advisory alternative methods")
    }
}

func TestCheckInWindowNotYetOpen(t *testing.T) {
    s := newMemStore()
    seedStore(s)
    cfg := Config{
        Quality: QualityConfig{MaxAccuracyMeters: 50, MaxSampleAge: 30 * time.Second},
        Fraud:   DefaultFraudConfig(), RedactDecimals: 3,
    }
    early := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC) // 60 min before start
    o := NewOrchestrator(s, cfg, func() time.Time { return early })

    sample := goodSample()
    sample.CapturedAt = early
    out, err := o.AttemptCheckIn(context.Background(), Request{
        BookingID: 42, UserID: 5, Method: model.MethodGeoFence, Sample: sample,
    })
    if err != nil {
        t.Fatal(err)
    }
    if out.FailureReason != ReasonWindowNotYetOpen {
        t.Fatalf("reason = %s, want WINDOW_NOT_YET_OPEN", out.FailureReason)
    }
    // The window gate runs before any geofence evaluation.
    if len(s.attempts) != 1 || s.attempts[0].DistanceMeters != nil {
        t.Fatalf("geofence must not be evaluated while the window is closed: %+v", s.attempts)
    }
}

func TestCheckInWindowClosedFailsSession(t *testing.T) {
    s := newMemStore()
    seedStore(s)
    cfg := Config{
        Quality: QualityConfig{MaxAccuracyMeters: 50, MaxSampleAge: 30 * time.Second},
        Fraud:   DefaultFraudConfig(), RedactDecimals: 3,
    }
    late := time.Date(2025, 6, 2, 11, 30, 0, 0, time.UTC) // close was 11:15
    o := NewOrchestrator(s, cfg, func() time.Time { return late })

    sample := goodSample()
    sample.CapturedAt = late
    out, err := o.AttemptCheckIn(context.Background(), Request{
        BookingID: 42, UserID: 5, Method: model.MethodGeoFence, Sample: sample,
    })
    if err != nil {
        t.Fatal(err)
    }
    if out.FailureReason != ReasonWindowClosed {
        t.Fatalf("reason = %s, want WINDOW_CLOSED", out.FailureReason)
    }
    // A terminally closed window can never reopen, so the session is
    // terminal too.
    sess := s.sessions[42]
    if sess.Status != model.SessionFailed {
        t.Fatalf("session status = %s, want FAILED", sess.Status)
    }
    if sess.CompletedAt == nil || !sess.CompletedAt.Equal(late) {
        t.Fatalf("session completed_at = %v", sess.CompletedAt)
    }
    if s.bookings[42].Status != model.BookingConfirmed {
        t.Fatal("booking must remain CONFIRMED")
    }
}

func TestCheckInFraudRoutedToFallback(t *testing.T) {
    s := newMemStore()
    seedStore(s)
    // Prior attempt 3 seconds ago, 2 km away, for a different class.
    s.history = []model.LocationPoint{{
        Location:   model.RedactedLocation{Latitude: 49.301, Longitude: -123.121},
        ClassID:    7,
        RecordedAt: testNow.Add(-3 * time.Second),
    }}
    o := testOrchestrator(s)

    // Impossible travel plus a compromised device crosses the threshold.
    out, err := o.AttemptCheckIn(context.Background(), Request{
        BookingID: 42, UserID: 5, Method: model.MethodGeoFence,
        Sample: goodSample(),
        Device: &model.DeviceSignature{DeviceID: "d1", IsCompromised: true},
    })
    if err != nil {
        t.Fatal(err)
    }
    if out.Succeeded || out.FailureReason != ReasonFraudSuspected {
        t.Fatalf("outcome = %+v, want FRAUD_SUSPECTED", out)
    }
    if out.FraudScore == nil || *out.FraudScore < 60 {
        t.Fatalf("fraud score = %v, want >= threshold", out.FraudScore)
    }
    hasAlt := false
    for _, m := range out.Alternatives {
        if m == model.MethodQRCode {
            hasAlt = true
        }
    }
    if !hasAlt {
        t.Fatalf("expected qr_code among alternatives, got %v", out.Alternatives)
    }
    // Flags are retained in the audit trail.
    if len(s.attempts) != 1 || len(s.attempts[0].FraudFlags) == 0 {
        t.Fatal("fraud flags must be persisted on the attempt")
    }
}

func TestFallbackAuthorizationMatrix(t *testing.T) {
    s := newMemStore()
    seedStore(s)
    venue := s.venues[1]
    venue.Geofence.AllowedFallbacks = nil // qr + instructor disabled
    venue.Geofence.AllowManualOverride = false
    venue.Geofence.EmergencyBypass = false
    o := testOrchestrator(s)
    ctx := context.Background()

    for _, m := range []model.Method{
        model.MethodQRCode,
        model.MethodInstructorConfirmed,
        model.MethodManualOverride,
        model.MethodEmergencyBypass,
    } {
        out, err := o.AttemptCheckIn(ctx, Request{
            BookingID: 42, UserID: 5, Method: m,
            Override:      &OverrideDetails{InstructorID: 77, Approved: true},
            Justification: "power outage at the studio",
        })
        if err != nil {
            t.Fatalf("%s: %v", m, err)
        }
        if out.Succeeded || out.FailureReason != ReasonMethodNotAllowed {
            t.Fatalf("%s: outcome = %+v, want METHOD_NOT_ALLOWED", m, out)
        }
    }
}

func TestInstructorConfirmationCheckIn(t *testing.T) {
    s := newMemStore()
    seedStore(s)
    o := testOrchestrator(s)
    ctx := context.Background()

    // Denied decision records a failed attempt.
    out, err := o.AttemptCheckIn(ctx, Request{
        BookingID: 42, UserID: 5, Method: model.MethodInstructorConfirmed,
        Override: &OverrideDetails{InstructorID: 77, Approved: false, Reason: "student not present"},
    })
    if err != nil {
        t.Fatal(err)
    }
    if out.Succeeded || out.FailureReason != ReasonOverrideNotApproved {
        t.Fatalf("denied override outcome = %+v", out)
    }

    out, err = o.AttemptCheckIn(ctx, Request{
        BookingID: 42, UserID: 5, Method: model.MethodInstructorConfirmed,
        Override: &OverrideDetails{InstructorID: 77, Approved: true, Reason: "phone battery died"},
    })
    if err != nil {
        t.Fatal(err)
    }
    if !out.Succeeded {
        t.Fatalf("approved override failed: %s", out.FailureReason)
    }
    last := s.attempts[len(s.attempts)-1]
    if last.OverrideInstructorID == nil || *last.OverrideInstructorID != 77 {
        t.Fatalf("override instructor not recorded: %+v", last)
    }
}

func TestEmergencyBypassRequiresJustification(t *testing.T) {
    s := newMemStore()
    seedStore(s)
    o := testOrchestrator(s)
    ctx := context.Background()

    out, err := o.AttemptCheckIn(ctx, Request{
        BookingID: 42, UserID: 5, Method: model.MethodEmergencyBypass,
    })
    if err != nil {
        t.Fatal(err)
    }
    if out.FailureReason != ReasonMissingJustification {
        t.Fatalf("reason = %s, want MISSING_JUSTIFICATION", out.FailureReason)
    }

    out, err = o.AttemptCheckIn(ctx, Request{
        BookingID: 42, UserID: 5, Method: model.MethodEmergencyBypass,
        Justification: "venue GPS dead zone, instructor unreachable",
    })
    if err != nil {
        t.Fatal(err)
    }
    if !out.Succeeded {
        t.Fatalf("bypass failed: %s", out.FailureReason)
    }
}

func TestUnknownBookingNotEligible(t *testing.T) {
    s := newMemStore()
    seedStore(s)
    o := testOrchestrator(s)

    out, err := o.AttemptCheckIn(context.Background(), Request{
        BookingID: 999, UserID: 5, Method: model.MethodGeoFence, Sample: goodSample(),
    })
    if err != nil {
        t.Fatal(err)
    }
    if out.FailureReason != ReasonNotEligible {
        t.Fatalf("reason = %s, want NOT_ELIGIBLE", out.FailureReason)
    }

    // Wrong owner is indistinguishable from not-found.
    out, err = o.AttemptCheckIn(context.Background(), Request{
        BookingID: 42, UserID: 6, Method: model.MethodGeoFence, Sample: goodSample(),
    })
    if err != nil {
        t.Fatal(err)
    }
    if out.FailureReason != ReasonNotEligible {
        t.Fatalf("reason = %s, want NOT_ELIGIBLE", out.FailureReason)
    }
}

func TestFailureLoggingIsBestEffort(t *testing.T) {
    s := newMemStore()
    seedStore(s)
    s.failRecord = true
    o := testOrchestrator(s)

    far := goodSample()
    far.Latitude = 49.2872
    out, err := o.AttemptCheckIn(context.Background(), Request{
        BookingID: 42, UserID: 5, Method: model.MethodGeoFence, Sample: far,
    })
    if err != nil {
        t.Fatalf("audit failure must not propagate: %v", err)
    }
    if out.FailureReason != ReasonOutsideGeofence {
        t.Fatalf("reason = %s", out.FailureReason)
    }
}
