package handler

import (
    "encoding/json"
    "testing"

    "github.com/hobbyloop/class-attendance/internal/checkin"
    "github.com/hobbyloop/class-attendance/internal/model"
)

// The check-in request/response field names are a published contract;
// clients are built against them, so renames here are breaking changes.

func TestCheckInRequestFieldNames(t *testing.T) {
    body := `{
        "booking_id": 42,
        "check_in_method": "geo_fence",
        "location_data": {
            "latitude": 49.2828,
            "longitude": -123.1205,
            "accuracy_meters": 10,
            "captured_at": "2025-06-02T09:45:00Z"
        },
        "device_info": {
            "device_id": "d-1",
            "platform": "ios",
            "app_version": "3.2.0",
            "is_compromised": false
        }
    }`
    var req checkInReq
    if err := json.Unmarshal([]byte(body), &req); err != nil {
        t.Fatalf("decode: %v", err)
    }
    if req.BookingID != 42 || req.Method != "geo_fence" {
        t.Fatalf("decoded %+v", req)
    }
    if req.Location == nil || req.Location.AccuracyMeters != 10 {
        t.Fatalf("location_data did not bind: %+v", req.Location)
    }
    if req.Device == nil || req.Device.DeviceID != "d-1" {
        t.Fatalf("device_info did not bind: %+v", req.Device)
    }
    sample, err := req.Location.toSample()
    if err != nil || sample == nil || sample.AccuracyMeters != 10 {
        t.Fatalf("toSample: %+v %v", sample, err)
    }
}

func TestCheckInResponseFieldNames(t *testing.T) {
    dist := 15.2
    ok := outcomeResp(checkin.Outcome{
        Succeeded:      true,
        SessionID:      "sess-1",
        BookingID:      42,
        Method:         model.MethodGeoFence,
        DistanceMeters: &dist,
    })
    raw, err := json.Marshal(ok)
    if err != nil {
        t.Fatal(err)
    }
    var m map[string]any
    if err := json.Unmarshal(raw, &m); err != nil {
        t.Fatal(err)
    }
    if m["status"] != "completed" {
        t.Fatalf("status = %v", m["status"])
    }
    if m["check_in_method"] != "geo_fence" {
        t.Fatalf("check_in_method = %v", m["check_in_method"])
    }
    if _, ok := m["distance_from_venue"]; !ok {
        t.Fatalf("distance_from_venue missing: %s", raw)
    }
    if _, ok := m["error_code"]; ok {
        t.Fatalf("error_code must be omitted on success: %s", raw)
    }

    failed := outcomeResp(checkin.Outcome{
        BookingID:     42,
        Method:        model.MethodGeoFence,
        FailureReason: checkin.ReasonOutsideGeofence,
        Message:       "distance 512.3m exceeds radius 150.0m",
        Alternatives:  []model.Method{model.MethodQRCode},
    })
    raw, err = json.Marshal(failed)
    if err != nil {
        t.Fatal(err)
    }
    m = map[string]any{}
    if err := json.Unmarshal(raw, &m); err != nil {
        t.Fatal(err)
    }
    if m["error_code"] != checkin.ReasonOutsideGeofence {
        t.Fatalf("error_code = %v", m["error_code"])
    }
    if _, ok := m["status"]; ok {
        t.Fatalf("status must be omitted on failure: %s", raw)
    }
    alts, isSlice := m["alternative_methods"].([]any)
    if !isSlice || len(alts) != 1 || alts[0] != "qr_code" {
        t.Fatalf("alternative_methods = %v", m["alternative_methods"])
    }
}
