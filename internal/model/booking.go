package model

import "time"

// Booking records a student's paid spot in a class.  The booking
// lifecycle is owned by the booking-management side of the platform;
// the check-in subsystem only ever drives the CONFIRMED → COMPLETED
// edge, exactly once, on the first successful attempt.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – student who made the booking.
//  ClassID     – class being booked.
//  Status      – state of the booking (PENDING, CONFIRMED, COMPLETED,
//                CANCELLED).
//  AmountCents – paid price in cents.
//  PaymentRef  – external payment reference, if any.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Booking struct {
    ID          uint64    // bookings.id
    UserID      uint64    // bookings.user_id
    ClassID     uint64    // bookings.class_id
    Status      string    // bookings.status
    AmountCents uint32    // bookings.amount_cents
    PaymentRef  *string   // bookings.payment_ref (nullable)
    CreatedAt   time.Time // bookings.created_at
    UpdatedAt   time.Time // bookings.updated_at
}

// Booking status values stored in bookings.status.  Only CONFIRMED
// bookings are eligible for check-in.
const (
    BookingPending   = "PENDING"
    BookingConfirmed = "CONFIRMED"
    BookingCompleted = "COMPLETED"
    BookingCancelled = "CANCELLED"
)
