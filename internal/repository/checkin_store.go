package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/hobbyloop/class-attendance/internal/checkin"
    "github.com/hobbyloop/class-attendance/internal/model"
)

// CheckInStore implements checkin.Store on top of MySQL by composing
// the booking, class, session and attempt repositories.  It owns the
// transaction on the success path and translates repository errors
// into the orchestrator's sentinels.
type CheckInStore struct {
    db       *sql.DB
    bookings *BookingRepo
    classes  *ClassRepo
    sessions *SessionRepo
    attempts *AttemptRepo
}

// NewCheckInStore wires a CheckInStore over the given database.
func NewCheckInStore(db *sql.DB) *CheckInStore {
    return &CheckInStore{
        db:       db,
        bookings: NewBookingRepo(db),
        classes:  NewClassRepo(db),
        sessions: NewSessionRepo(db),
        attempts: NewAttemptRepo(db),
    }
}

// Attempts exposes the attempt repository for the read-side endpoints.
func (s *CheckInStore) Attempts() *AttemptRepo { return s.attempts }

// Classes exposes the class repository for ownership checks and the
// public detail endpoint.
func (s *CheckInStore) Classes() *ClassRepo { return s.classes }

// Bookings exposes the booking repository.
func (s *CheckInStore) Bookings() *BookingRepo { return s.bookings }

// Sessions exposes the session repository.
func (s *CheckInStore) Sessions() *SessionRepo { return s.sessions }

// BookingForUser loads a booking scoped to its owner, mapping a
// missing row onto checkin.ErrBookingNotFound.
func (s *CheckInStore) BookingForUser(ctx context.Context, bookingID, userID uint64) (*model.Booking, error) {
    rec, err := s.bookings.GetByIDForUser(ctx, bookingID, userID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, checkin.ErrBookingNotFound
        }
        return nil, err
    }
    return &model.Booking{
        ID:          rec.ID,
        UserID:      rec.UserID,
        ClassID:     rec.ClassID,
        Status:      rec.Status,
        AmountCents: rec.AmountCents,
        PaymentRef:  rec.PaymentRef,
    }, nil
}

// ClassWithVenue loads the class and its venue in one snapshot.
func (s *CheckInStore) ClassWithVenue(ctx context.Context, classID uint64) (*model.Class, *model.Venue, error) {
    return s.classes.GetWithVenue(ctx, classID)
}

// EnsureSession returns the booking's session, creating it lazily.
func (s *CheckInStore) EnsureSession(ctx context.Context, booking *model.Booking) (*model.CheckInSession, error) {
    return s.sessions.Ensure(ctx, booking)
}

// RecentLocations returns the user's newest-first redacted location
// history for the fraud heuristics.
func (s *CheckInStore) RecentLocations(ctx context.Context, userID uint64, limit int) ([]model.LocationPoint, error) {
    return s.attempts.RecentLocations(ctx, userID, limit)
}

// RecordFailure appends a failed attempt to the audit trail.
func (s *CheckInStore) RecordFailure(ctx context.Context, sessionID string, attempt *model.CheckInAttempt) error {
    return s.attempts.Insert(ctx, sessionID, attempt)
}

// FailSession marks a still-pending session FAILED once the check-in
// window has terminally closed.
func (s *CheckInStore) FailSession(ctx context.Context, sessionID string, at time.Time) error {
    return s.sessions.CloseFailed(ctx, sessionID, at)
}

// FinalizeSuccess applies the success path as one transaction: the
// attempt insert, the conditional CONFIRMED → COMPLETED booking
// transition and the session close.  When the transition matches no
// row the whole transaction rolls back and checkin.ErrNotEligible is
// returned, so a lost race leaves no successful attempt behind.
func (s *CheckInStore) FinalizeSuccess(ctx context.Context, sessionID string, attempt *model.CheckInAttempt) error {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    if err := s.bookings.CompleteIfConfirmedTx(ctx, tx, attempt.BookingID); err != nil {
        if errors.Is(err, ErrConflict) {
            return checkin.ErrNotEligible
        }
        return err
    }
    if err := s.attempts.InsertTx(ctx, tx, sessionID, attempt); err != nil {
        return err
    }
    if err := s.sessions.CloseSuccessTx(ctx, tx, sessionID, attempt.AttemptedAt, attempt.Redacted); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}
