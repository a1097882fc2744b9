package repository

import (
    "database/sql"
    "testing"
    "time"

    "github.com/hobbyloop/class-attendance/internal/model"
)

func TestAttemptArgsNullableMapping(t *testing.T) {
    at := time.Date(2025, 6, 2, 9, 45, 0, 0, time.UTC)

    // Bare failed attempt: every nullable column must be NULL.
    bare := &model.CheckInAttempt{
        ID: "a-1", BookingID: 42, UserID: 5, ClassID: 9,
        AttemptedAt: at, Method: model.MethodGeoFence,
        FailureReason: "OUTSIDE_GEOFENCE",
    }
    args := attemptArgs("sess-1", bare)
    if len(args) != 16 {
        t.Fatalf("got %d args, want 16", len(args))
    }
    if lat := args[8].(sql.NullFloat64); lat.Valid {
        t.Fatal("redacted_lat must be NULL without a location")
    }
    if score := args[12].(sql.NullInt64); score.Valid {
        t.Fatal("fraud_score must be NULL when not computed")
    }
    if reason := args[11].(sql.NullString); !reason.Valid || reason.String != "OUTSIDE_GEOFENCE" {
        t.Fatalf("failure_reason = %+v", reason)
    }

    // Fully-populated succeeded attempt.
    dist := 12.5
    score := 25
    iid := uint64(77)
    why := "phone battery died"
    full := &model.CheckInAttempt{
        ID: "a-2", BookingID: 42, UserID: 5, ClassID: 9,
        AttemptedAt: at, Method: model.MethodGeoFence, Succeeded: true,
        Redacted:             &model.RedactedLocation{Latitude: 49.283, Longitude: -123.121},
        DistanceMeters:       &dist,
        FraudScore:           &score,
        FraudFlags:           []string{"compromised_device"},
        OverrideInstructorID: &iid,
        OverrideReason:       &why,
    }
    args = attemptArgs("sess-1", full)
    if lat := args[8].(sql.NullFloat64); !lat.Valid || lat.Float64 != 49.283 {
        t.Fatalf("redacted_lat = %+v", lat)
    }
    if flags := args[13].(sql.NullString); !flags.Valid || flags.String != "compromised_device" {
        t.Fatalf("fraud_flags = %+v", flags)
    }
    if reason := args[11].(sql.NullString); reason.Valid {
        t.Fatal("failure_reason must be NULL on success")
    }
    if oid := args[14].(sql.NullInt64); !oid.Valid || oid.Int64 != 77 {
        t.Fatalf("override_instructor_id = %+v", oid)
    }
}
