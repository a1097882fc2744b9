package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/google/uuid"

    "github.com/hobbyloop/class-attendance/internal/model"
)

// SessionRepo persists check-in sessions.  A session is the per-booking
// aggregate of attempts; it is created lazily on the first attempt and
// closed exactly once, on the attempt that completes the booking.
type SessionRepo struct {
    db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// Ensure returns the session for a booking, creating it when this is
// the first attempt.  booking_id carries a unique key, so a racing
// first attempt is absorbed by INSERT IGNORE and both callers read
// back the same row.
func (r *SessionRepo) Ensure(ctx context.Context, booking *model.Booking) (*model.CheckInSession, error) {
    const ins = `INSERT IGNORE INTO check_in_sessions (id, booking_id, user_id, class_id, status, started_at)
                 VALUES (?, ?, ?, ?, 'PENDING', NOW())`
    if _, err := r.db.ExecContext(ctx, ins, uuid.NewString(), booking.ID, booking.UserID, booking.ClassID); err != nil {
        return nil, err
    }
    return r.getByBooking(ctx, booking.ID)
}

// GetByBooking returns the session for a booking, or sql.ErrNoRows
// when no attempt has been made yet.
func (r *SessionRepo) GetByBooking(ctx context.Context, bookingID uint64) (*model.CheckInSession, error) {
    return r.getByBooking(ctx, bookingID)
}

func (r *SessionRepo) getByBooking(ctx context.Context, bookingID uint64) (*model.CheckInSession, error) {
    const q = `SELECT id, booking_id, user_id, class_id, status, started_at, completed_at, final_lat, final_lng
               FROM check_in_sessions
               WHERE booking_id = ?`
    var (
        s           model.CheckInSession
        completedAt sql.NullTime
        flat, flng  sql.NullFloat64
    )
    err := r.db.QueryRowContext(ctx, q, bookingID).Scan(
        &s.ID, &s.BookingID, &s.UserID, &s.ClassID, &s.Status, &s.StartedAt, &completedAt, &flat, &flng,
    )
    if err != nil {
        return nil, err
    }
    s.StartedAt = s.StartedAt.UTC()
    if completedAt.Valid {
        t := completedAt.Time.UTC()
        s.CompletedAt = &t
    }
    if flat.Valid && flng.Valid {
        s.FinalLocation = &model.RedactedLocation{Latitude: flat.Float64, Longitude: flng.Float64}
    }
    return &s, nil
}

// CloseFailed marks a still-pending session FAILED, recording when it
// became terminal.  The status guard keeps a late call from touching a
// session that already succeeded.
func (r *SessionRepo) CloseFailed(ctx context.Context, sessionID string, at time.Time) error {
    const q = `UPDATE check_in_sessions
               SET status = 'FAILED', completed_at = ?
               WHERE id = ? AND status = 'PENDING'`
    _, err := r.db.ExecContext(ctx, q, at.UTC(), sessionID)
    return err
}

// CloseSuccessTx marks the session SUCCESSFUL within the scope of an
// existing transaction, recording the completion time and the
// succeeding attempt's redacted location.  The caller must commit or
// rollback the transaction.
func (r *SessionRepo) CloseSuccessTx(ctx context.Context, tx *sql.Tx, sessionID string, at time.Time, loc *model.RedactedLocation) error {
    var lat, lng sql.NullFloat64
    if loc != nil {
        lat = sql.NullFloat64{Float64: loc.Latitude, Valid: true}
        lng = sql.NullFloat64{Float64: loc.Longitude, Valid: true}
    }
    const q = `UPDATE check_in_sessions
               SET status = 'SUCCESSFUL', completed_at = ?, final_lat = ?, final_lng = ?
               WHERE id = ?`
    _, err := tx.ExecContext(ctx, q, at.UTC(), lat, lng, sessionID)
    return err
}
