package repository

import (
    "context"
    "database/sql"
)

// BookingRepo provides read access to bookings plus the single write
// this subsystem owns: the conditional CONFIRMED → COMPLETED
// transition performed on a successful check-in.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// BookingRecord mirrors the schema of the bookings table.
type BookingRecord struct {
    ID          uint64
    UserID      uint64
    ClassID     uint64
    Status      string
    AmountCents uint32
    PaymentRef  *string
}

// GetByIDForUser returns a booking scoped to its owner.  When no
// booking with the specified ID exists for the user, sql.ErrNoRows is
// returned; callers must not be able to tell a foreign booking apart
// from a missing one.
func (r *BookingRepo) GetByIDForUser(ctx context.Context, bookingID, userID uint64) (*BookingRecord, error) {
    const q = `SELECT id, user_id, class_id, status, amount_cents, payment_ref
               FROM bookings
               WHERE id = ? AND user_id = ?`
    var (
        b      BookingRecord
        payRef sql.NullString
    )
    err := r.db.QueryRowContext(ctx, q, bookingID, userID).Scan(
        &b.ID, &b.UserID, &b.ClassID, &b.Status, &b.AmountCents, &payRef,
    )
    if err != nil {
        return nil, err
    }
    if payRef.Valid {
        ref := payRef.String
        b.PaymentRef = &ref
    }
    return &b, nil
}

// GetByID returns a booking without ownership scoping.  Instructor
// endpoints use it and perform their own class-ownership check.
func (r *BookingRepo) GetByID(ctx context.Context, bookingID uint64) (*BookingRecord, error) {
    const q = `SELECT id, user_id, class_id, status, amount_cents, payment_ref
               FROM bookings
               WHERE id = ?`
    var (
        b      BookingRecord
        payRef sql.NullString
    )
    err := r.db.QueryRowContext(ctx, q, bookingID).Scan(
        &b.ID, &b.UserID, &b.ClassID, &b.Status, &b.AmountCents, &payRef,
    )
    if err != nil {
        return nil, err
    }
    if payRef.Valid {
        ref := payRef.String
        b.PaymentRef = &ref
    }
    return &b, nil
}

// CompleteIfConfirmedTx performs the compare-and-swap transition to
// COMPLETED within the scope of an existing transaction.  It returns
// ErrConflict when the booking was not in CONFIRMED at the time of the
// update, which is how a racing duplicate check-in loses.  The caller
// must commit or rollback the transaction.
func (r *BookingRepo) CompleteIfConfirmedTx(ctx context.Context, tx *sql.Tx, bookingID uint64) error {
    const q = `UPDATE bookings SET status = 'COMPLETED', updated_at = NOW()
               WHERE id = ? AND status = 'CONFIRMED'`
    result, err := tx.ExecContext(ctx, q, bookingID)
    if err != nil {
        return err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrConflict
    }
    return nil
}
