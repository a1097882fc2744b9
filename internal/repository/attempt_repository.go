package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/hobbyloop/class-attendance/internal/model"
)

// AttemptRepo persists check-in attempts.  The check_in_attempts
// table is append-only: rows are inserted exactly once per evaluated
// attempt and never updated or deleted, because they are the evidence
// trail for attendance disputes.
type AttemptRepo struct {
    db *sql.DB
}

// NewAttemptRepo returns a new AttemptRepo bound to the given database.
func NewAttemptRepo(db *sql.DB) *AttemptRepo { return &AttemptRepo{db: db} }

const insertAttemptQ = `INSERT INTO check_in_attempts
    (id, session_id, booking_id, user_id, class_id, attempted_at, method, succeeded,
     redacted_lat, redacted_lng, distance_m, failure_reason, fraud_score, fraud_flags,
     override_instructor_id, override_reason)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func attemptArgs(sessionID string, a *model.CheckInAttempt) []interface{} {
    var lat, lng, dist sql.NullFloat64
    if a.Redacted != nil {
        lat = sql.NullFloat64{Float64: a.Redacted.Latitude, Valid: true}
        lng = sql.NullFloat64{Float64: a.Redacted.Longitude, Valid: true}
    }
    if a.DistanceMeters != nil {
        dist = sql.NullFloat64{Float64: *a.DistanceMeters, Valid: true}
    }
    var score sql.NullInt64
    if a.FraudScore != nil {
        score = sql.NullInt64{Int64: int64(*a.FraudScore), Valid: true}
    }
    var flags sql.NullString
    if len(a.FraudFlags) > 0 {
        flags = sql.NullString{String: strings.Join(a.FraudFlags, ","), Valid: true}
    }
    var reason sql.NullString
    if a.FailureReason != "" {
        reason = sql.NullString{String: a.FailureReason, Valid: true}
    }
    var overrideID sql.NullInt64
    if a.OverrideInstructorID != nil {
        overrideID = sql.NullInt64{Int64: int64(*a.OverrideInstructorID), Valid: true}
    }
    var overrideReason sql.NullString
    if a.OverrideReason != nil {
        overrideReason = sql.NullString{String: *a.OverrideReason, Valid: true}
    }
    return []interface{}{
        a.ID, sessionID, a.BookingID, a.UserID, a.ClassID, a.AttemptedAt.UTC(), string(a.Method), a.Succeeded,
        lat, lng, dist, reason, score, flags, overrideID, overrideReason,
    }
}

// Insert appends an attempt outside of any transaction.  Used for
// failed attempts, where audit logging is best-effort.
func (r *AttemptRepo) Insert(ctx context.Context, sessionID string, a *model.CheckInAttempt) error {
    _, err := r.db.ExecContext(ctx, insertAttemptQ, attemptArgs(sessionID, a)...)
    return err
}

// InsertTx appends an attempt within the scope of an existing
// transaction.  Used on the success path so the attempt row, the
// booking transition and the session close land together.
func (r *AttemptRepo) InsertTx(ctx context.Context, tx *sql.Tx, sessionID string, a *model.CheckInAttempt) error {
    _, err := tx.ExecContext(ctx, insertAttemptQ, attemptArgs(sessionID, a)...)
    return err
}

// ListByBooking returns every attempt for a booking, newest first.
// An empty slice is returned when the booking has no attempts.
func (r *AttemptRepo) ListByBooking(ctx context.Context, bookingID uint64) ([]model.CheckInAttempt, error) {
    const q = `SELECT id, booking_id, user_id, class_id, attempted_at, method, succeeded,
                      redacted_lat, redacted_lng, distance_m, failure_reason, fraud_score, fraud_flags,
                      override_instructor_id, override_reason
               FROM check_in_attempts
               WHERE booking_id = ?
               ORDER BY attempted_at DESC, id DESC`
    rows, err := r.db.QueryContext(ctx, q, bookingID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    attempts := make([]model.CheckInAttempt, 0)
    for rows.Next() {
        a, err := scanAttempt(rows)
        if err != nil {
            return nil, err
        }
        attempts = append(attempts, a)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return attempts, nil
}

// RecentLocations reconstructs a user's newest-first location history
// from prior attempts that carried a (redacted) location.  This feeds
// the travel-speed and coordinate-repetition fraud heuristics; raw
// coordinates were never stored, so history is coarse by design of
// the attempts table.
func (r *AttemptRepo) RecentLocations(ctx context.Context, userID uint64, limit int) ([]model.LocationPoint, error) {
    const q = `SELECT redacted_lat, redacted_lng, class_id, attempted_at
               FROM check_in_attempts
               WHERE user_id = ? AND redacted_lat IS NOT NULL
               ORDER BY attempted_at DESC, id DESC
               LIMIT ?`
    rows, err := r.db.QueryContext(ctx, q, userID, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    points := make([]model.LocationPoint, 0, limit)
    for rows.Next() {
        var p model.LocationPoint
        if err := rows.Scan(&p.Location.Latitude, &p.Location.Longitude, &p.ClassID, &p.RecordedAt); err != nil {
            return nil, err
        }
        p.RecordedAt = p.RecordedAt.UTC()
        points = append(points, p)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return points, nil
}

func scanAttempt(rows *sql.Rows) (model.CheckInAttempt, error) {
    var (
        a              model.CheckInAttempt
        method         string
        lat, lng, dist sql.NullFloat64
        reason, flags  sql.NullString
        score          sql.NullInt64
        overrideID     sql.NullInt64
        overrideReason sql.NullString
    )
    if err := rows.Scan(
        &a.ID, &a.BookingID, &a.UserID, &a.ClassID, &a.AttemptedAt, &method, &a.Succeeded,
        &lat, &lng, &dist, &reason, &score, &flags, &overrideID, &overrideReason,
    ); err != nil {
        return model.CheckInAttempt{}, err
    }
    a.AttemptedAt = a.AttemptedAt.UTC()
    a.Method = model.Method(method)
    if lat.Valid && lng.Valid {
        a.Redacted = &model.RedactedLocation{Latitude: lat.Float64, Longitude: lng.Float64}
    }
    if dist.Valid {
        d := dist.Float64
        a.DistanceMeters = &d
    }
    if reason.Valid {
        a.FailureReason = reason.String
    }
    if score.Valid {
        s := int(score.Int64)
        a.FraudScore = &s
    }
    if flags.Valid && flags.String != "" {
        a.FraudFlags = strings.Split(flags.String, ",")
    }
    if overrideID.Valid {
        oid := uint64(overrideID.Int64)
        a.OverrideInstructorID = &oid
    }
    if overrideReason.Valid {
        or := overrideReason.String
        a.OverrideReason = &or
    }
    return a, nil
}
