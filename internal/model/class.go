package model

import "time"

// Class represents a scheduled in-person class session held at a
// venue.  It contains the schedule information the check-in window
// is derived from.  Classes are linked to venues and instructors and
// may have many associated bookings.
//
// Fields:
//  ID           – primary key identifier.
//  VenueID      – venue where the class takes place.
//  InstructorID – user (INSTRUCTOR role) teaching the class.
//  Title        – class title shown to students.
//  StartsAt     – scheduled start time (UTC).
//  DurationMin  – scheduled duration in minutes.
//  Status       – current state of the class (SCHEDULED, CANCELLED,
//                 FINISHED).
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Class struct {
    ID           uint64    // classes.id
    VenueID      uint64    // classes.venue_id
    InstructorID uint64    // classes.instructor_id
    Title        string    // classes.title
    StartsAt     time.Time // classes.starts_at
    DurationMin  int       // classes.duration_min
    Status       string    // classes.status
    CreatedAt    time.Time // classes.created_at
    UpdatedAt    time.Time // classes.updated_at
}

// EndsAt returns the scheduled end of the class.
func (c Class) EndsAt() time.Time {
    return c.StartsAt.Add(time.Duration(c.DurationMin) * time.Minute)
}
