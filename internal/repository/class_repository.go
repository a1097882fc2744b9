package repository

import (
    "context"
    "database/sql"
    "fmt"
    "strings"
    "time"

    "github.com/hobbyloop/class-attendance/internal/model"
)

// ClassRepo loads classes and their venues.  The venue's geofence
// configuration travels with the class because every check-in decision
// needs both the schedule and the containment rules in one consistent
// snapshot.
type ClassRepo struct {
    db *sql.DB
}

// NewClassRepo returns a new ClassRepo bound to the given database.
func NewClassRepo(db *sql.DB) *ClassRepo { return &ClassRepo{db: db} }

// GetWithVenue returns a class together with its venue.  It returns
// sql.ErrNoRows when the class does not exist and an error when the
// venue row is misconfigured (geofence enabled with a non-positive
// radius), since silently admitting everyone would defeat the check.
func (r *ClassRepo) GetWithVenue(ctx context.Context, classID uint64) (*model.Class, *model.Venue, error) {
    const q = `SELECT c.id, c.venue_id, c.instructor_id, c.title, c.starts_at, c.duration_min, c.status,
                      v.id, v.owner_id, v.name, v.address, v.latitude, v.longitude,
                      v.geofence_enabled, v.geofence_radius_m,
                      v.window_open_min_before, v.window_close_min_after,
                      v.allow_manual_override, v.allow_emergency_bypass, v.allowed_methods
               FROM classes c
               JOIN venues v ON v.id = c.venue_id
               WHERE c.id = ?`
    var (
        cls     model.Class
        ven     model.Venue
        methods sql.NullString
    )
    err := r.db.QueryRowContext(ctx, q, classID).Scan(
        &cls.ID, &cls.VenueID, &cls.InstructorID, &cls.Title, &cls.StartsAt, &cls.DurationMin, &cls.Status,
        &ven.ID, &ven.OwnerID, &ven.Name, &ven.Address, &ven.Latitude, &ven.Longitude,
        &ven.Geofence.Enabled, &ven.Geofence.RadiusMeters,
        &ven.Geofence.WindowOpenMinBefore, &ven.Geofence.WindowCloseMinAfter,
        &ven.Geofence.AllowManualOverride, &ven.Geofence.EmergencyBypass, &methods,
    )
    if err != nil {
        return nil, nil, err
    }
    cls.StartsAt = cls.StartsAt.UTC()
    if methods.Valid {
        ven.Geofence.AllowedFallbacks = parseMethodsCSV(methods.String)
    }
    if ven.Geofence.Enabled && ven.Geofence.RadiusMeters <= 0 {
        return nil, nil, fmt.Errorf("venue %d: geofence enabled with radius %.1f", ven.ID, ven.Geofence.RadiusMeters)
    }
    return &cls, &ven, nil
}

// InstructorOwnsClass reports whether the given user is the instructor
// of the class.  It returns sql.ErrNoRows when the class does not
// exist so handlers can distinguish 404 from 403.
func (r *ClassRepo) InstructorOwnsClass(ctx context.Context, classID, instructorID uint64) (bool, error) {
    var actual uint64
    err := r.db.QueryRowContext(ctx,
        `SELECT instructor_id FROM classes WHERE id = ?`, classID).Scan(&actual)
    if err != nil {
        return false, err
    }
    return actual == instructorID, nil
}

// ClassDetail is the public projection of a class returned by the
// browse endpoint.  It exposes the check-in rules students need to
// plan their arrival but never the raw fallback configuration beyond
// what is actionable.
type ClassDetail struct {
    ID                    uint64   `json:"id"`
    Title                 string   `json:"title"`
    StartsAt              string   `json:"starts_at"`
    DurationMin           int      `json:"duration_min"`
    Status                string   `json:"status"`
    VenueName             string   `json:"venue_name"`
    VenueAddress          string   `json:"venue_address"`
    GeofenceEnabled       bool     `json:"geofence_enabled"`
    CheckInOpensMinBefore int      `json:"check_in_opens_min_before"`
    CheckInClosesMinAfter int      `json:"check_in_closes_min_after"`
    FallbackMethods       []string `json:"fallback_methods"`
}

// GetDetail returns the public class detail.  sql.ErrNoRows is
// returned when the class does not exist.
func (r *ClassRepo) GetDetail(ctx context.Context, classID uint64) (*ClassDetail, error) {
    cls, ven, err := r.GetWithVenue(ctx, classID)
    if err != nil {
        return nil, err
    }
    det := &ClassDetail{
        ID:                    cls.ID,
        Title:                 cls.Title,
        StartsAt:              cls.StartsAt.UTC().Format(time.RFC3339),
        DurationMin:           cls.DurationMin,
        Status:                cls.Status,
        VenueName:             ven.Name,
        VenueAddress:          ven.Address,
        GeofenceEnabled:       ven.Geofence.Enabled,
        CheckInOpensMinBefore: ven.Geofence.WindowOpenMinBefore,
        CheckInClosesMinAfter: ven.Geofence.WindowCloseMinAfter,
        FallbackMethods:       []string{},
    }
    for _, m := range model.MethodsByTrust {
        if m == model.MethodGeoFence {
            continue
        }
        if ven.Geofence.FallbackAllowed(m) {
            det.FallbackMethods = append(det.FallbackMethods, string(m))
        }
    }
    return det, nil
}

// parseMethodsCSV converts the allowed_methods column into method
// values, dropping anything unknown rather than failing the load.
func parseMethodsCSV(csv string) []model.Method {
    var out []model.Method
    for _, part := range strings.Split(csv, ",") {
        m := model.Method(strings.TrimSpace(part))
        if m.Valid() {
            out = append(out, m)
        }
    }
    return out
}
