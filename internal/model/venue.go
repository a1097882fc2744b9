package model

import "time"

// Venue represents a physical location where classes take place, as
// stored in the `venues` table.  The registered coordinates are the
// center of the venue's geofence; the embedded GeofenceConfig
// controls how attendance check-in behaves for every class held at
// the venue.
//
// Fields:
//  ID        – primary key identifier.
//  OwnerID   – instructor/operator who registered the venue.
//  Name      – display name of the venue.
//  Address   – street address for display purposes only.
//  Latitude  – registered center latitude (WGS84).
//  Longitude – registered center longitude (WGS84).
//  Geofence  – check-in configuration columns (see GeofenceConfig).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Venue struct {
    ID        uint64         // venues.id
    OwnerID   uint64         // venues.owner_id
    Name      string         // venues.name
    Address   string         // venues.address
    Latitude  float64        // venues.latitude
    Longitude float64        // venues.longitude
    Geofence  GeofenceConfig // venues.geofence_* columns
    CreatedAt time.Time      // venues.created_at
    UpdatedAt time.Time      // venues.updated_at
}

// GeofenceConfig holds the per-venue check-in rules.  It is loaded
// together with the venue and treated as immutable for the duration
// of a check-in request.  RadiusMeters must be positive whenever
// Enabled is true; the repository rejects rows violating this.
//
// Fields:
//  Enabled               – whether geofence check-in is available.
//  RadiusMeters          – containment radius around the center.
//  WindowOpenMinBefore   – minutes before class start when check-in opens.
//  WindowCloseMinAfter   – minutes after class end when check-in closes.
//  AllowManualOverride   – whether manual_override is permitted.
//  EmergencyBypass       – whether emergency_bypass is permitted.
//  AllowedFallbacks      – explicitly enabled alternative methods.
type GeofenceConfig struct {
    Enabled             bool     // venues.geofence_enabled
    RadiusMeters        float64  // venues.geofence_radius_m
    WindowOpenMinBefore int      // venues.window_open_min_before
    WindowCloseMinAfter int      // venues.window_close_min_after
    AllowManualOverride bool     // venues.allow_manual_override
    EmergencyBypass     bool     // venues.allow_emergency_bypass
    AllowedFallbacks    []Method // venues.allowed_methods (CSV)
}

// FallbackAllowed reports whether the given alternative method is
// explicitly enabled for this venue.  The primary geo_fence method is
// governed by Enabled instead and always returns false here.
func (g GeofenceConfig) FallbackAllowed(m Method) bool {
    switch m {
    case MethodManualOverride:
        return g.AllowManualOverride
    case MethodEmergencyBypass:
        return g.EmergencyBypass
    }
    for _, a := range g.AllowedFallbacks {
        if a == m {
            return true
        }
    }
    return false
}
