package checkin

import (
    "math"
    "time"
)

// WindowResult describes the open/closed state of the check-in
// opportunity for one class at one instant.  It is a pure function of
// the schedule and the supplied clock value, which keeps it trivially
// testable with fixed times.
//
// Fields:
//  IsOpen            – whether check-in is currently allowed.
//  MinutesUntilOpen  – whole minutes (ceiling) until the window opens;
//                      0 unless the window has not opened yet.
//  MinutesUntilClose – whole minutes (ceiling) remaining while open.
//  TerminallyClosed  – the window has already closed and will not
//                      reopen for this class.
//  OpensAt           – computed open boundary.
//  ClosesAt          – computed close boundary.
type WindowResult struct {
    IsOpen            bool
    MinutesUntilOpen  int
    MinutesUntilClose int
    TerminallyClosed  bool
    OpensAt           time.Time
    ClosesAt          time.Time
}

// WindowFor derives the check-in window from a class schedule.  The
// window opens openMinBefore minutes before the scheduled start and
// closes closeMinAfter minutes after the scheduled end
// (start + duration).  Boundaries are inclusive on both sides.
func WindowFor(start time.Time, durationMin, openMinBefore, closeMinAfter int, now time.Time) WindowResult {
    opens := start.Add(-time.Duration(openMinBefore) * time.Minute)
    closes := start.
        Add(time.Duration(durationMin) * time.Minute).
        Add(time.Duration(closeMinAfter) * time.Minute)

    res := WindowResult{OpensAt: opens, ClosesAt: closes}
    switch {
    case now.Before(opens):
        res.MinutesUntilOpen = ceilMinutes(opens.Sub(now))
    case now.After(closes):
        res.TerminallyClosed = true
    default:
        res.IsOpen = true
        res.MinutesUntilClose = ceilMinutes(closes.Sub(now))
    }
    return res
}

// ceilMinutes converts a duration to whole minutes, rounding up so a
// remainder of even one second still counts as a full minute.
func ceilMinutes(d time.Duration) int {
    if d <= 0 {
        return 0
    }
    return int(math.Ceil(d.Minutes()))
}
