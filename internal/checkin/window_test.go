package checkin

import (
    "testing"
    "time"
)

var classStart = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func TestWindowForOpenInterval(t *testing.T) {
    cases := []struct {
        name     string
        now      time.Time
        open     bool
        untilOpen int
        terminal bool
    }{
        {"well before open", classStart.Add(-60 * time.Minute), false, 30, false},
        {"one second before open", classStart.Add(-30*time.Minute - time.Second), false, 1, false},
        {"exactly at open", classStart.Add(-30 * time.Minute), true, 0, false},
        {"at class start", classStart, true, 0, false},
        {"during trailing margin", classStart.Add(70 * time.Minute), true, 0, false},
        {"exactly at close", classStart.Add(75 * time.Minute), true, 0, false},
        {"after close", classStart.Add(76 * time.Minute), false, 0, true},
        {"long after close", classStart.Add(24 * time.Hour), false, 0, true},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            w := WindowFor(classStart, 60, 30, 15, tc.now)
            if w.IsOpen != tc.open {
                t.Fatalf("IsOpen = %v, want %v", w.IsOpen, tc.open)
            }
            if w.MinutesUntilOpen != tc.untilOpen {
                t.Fatalf("MinutesUntilOpen = %d, want %d", w.MinutesUntilOpen, tc.untilOpen)
            }
            if w.TerminallyClosed != tc.terminal {
                t.Fatalf("TerminallyClosed = %v, want %v", w.TerminallyClosed, tc.terminal)
            }
        })
    }
}

func TestWindowMonotonicity(t *testing.T) {
    // Sweep the timeline minute by minute: closed, then open, then
    // closed, with no gaps or reopenings.
    from := classStart.Add(-2 * time.Hour)
    seenOpen := false
    closedAfterOpen := false
    for m := 0; m <= 5*60; m++ {
        now := from.Add(time.Duration(m) * time.Minute)
        w := WindowFor(classStart, 60, 30, 15, now)
        if w.IsOpen {
            if closedAfterOpen {
                t.Fatalf("window reopened at %v", now)
            }
            seenOpen = true
        } else if seenOpen {
            closedAfterOpen = true
        }
    }
    if !seenOpen || !closedAfterOpen {
        t.Fatalf("sweep did not observe closed→open→closed (open=%v closed-after=%v)", seenOpen, closedAfterOpen)
    }
}

func TestWindowTerminallyClosedHasNoOpensValue(t *testing.T) {
    w := WindowFor(classStart, 60, 30, 15, classStart.Add(3*time.Hour))
    if !w.TerminallyClosed {
        t.Fatal("expected terminally closed")
    }
    if w.MinutesUntilOpen != 0 {
        t.Fatalf("MinutesUntilOpen = %d, want 0 after terminal close", w.MinutesUntilOpen)
    }
}
