package handler

import (
    "context"
    "crypto/sha256"
    "database/sql"
    "encoding/hex"
    "errors"
    "log"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/hobbyloop/class-attendance/internal/checkin"
    "github.com/hobbyloop/class-attendance/internal/model"
    "github.com/hobbyloop/class-attendance/internal/queue"
    "github.com/hobbyloop/class-attendance/internal/repository"
    queue_publisher "github.com/hobbyloop/class-attendance/internal/service"
)

// CheckInHandler bundles dependencies for the attendance check-in
// endpoints.  Redis may be nil, in which case the QR replay guard
// degrades to signature+expiry validation only.
type CheckInHandler struct {
    Store *repository.CheckInStore
    Orch  *checkin.Orchestrator
    QR    *checkin.QRTokenCodec
    Redis *redis.Client
    QRTTL time.Duration
}

func NewCheckInHandler(store *repository.CheckInStore, orch *checkin.Orchestrator, qr *checkin.QRTokenCodec, rdb *redis.Client, qrTTL time.Duration) *CheckInHandler {
    return &CheckInHandler{Store: store, Orch: orch, QR: qr, Redis: rdb, QRTTL: qrTTL}
}

// ----- DTOs -----

type locationReq struct {
    Latitude       float64  `json:"latitude"`
    Longitude      float64  `json:"longitude"`
    AccuracyMeters float64  `json:"accuracy_meters"`
    CapturedAt     string   `json:"captured_at"` // RFC3339
    SpeedMPS       *float64 `json:"speed_mps,omitempty"`
}

type deviceReq struct {
    DeviceID      string `json:"device_id"`
    Platform      string `json:"platform"`
    AppVersion    string `json:"app_version"`
    IsCompromised bool   `json:"is_compromised"`
}

type checkInReq struct {
    BookingID     uint64       `json:"booking_id"`
    Method        string       `json:"check_in_method"` // defaults to geo_fence
    Location      *locationReq `json:"location_data,omitempty"`
    Device        *deviceReq   `json:"device_info,omitempty"`
    Justification string       `json:"justification,omitempty"`
}

type qrCheckInReq struct {
    Token    string       `json:"token"`
    Location *locationReq `json:"location_data,omitempty"`
    Device   *deviceReq   `json:"device_info,omitempty"`
}

type overrideReq struct {
    BookingID uint64 `json:"booking_id"`
    Method    string `json:"check_in_method"` // instructor_confirmation | manual_override
    Approved  bool   `json:"approved"`
    Reason    string `json:"reason"`
}

// checkInResp is the shared body for both the 200 and the 4xx
// outcome: Status carries "completed" on success, ErrorCode the
// stable failure code otherwise.
type checkInResp struct {
    BookingID      uint64   `json:"booking_id"`
    SessionID      string   `json:"session_id,omitempty"`
    Status         string   `json:"status,omitempty"`
    Method         string   `json:"check_in_method"`
    DistanceMeters *float64 `json:"distance_from_venue,omitempty"`
    ErrorCode      string   `json:"error_code,omitempty"`
    Message        string   `json:"message,omitempty"`
    Alternatives   []string `json:"alternative_methods,omitempty"`
    FraudScore     *int     `json:"fraud_score,omitempty"`
}

// statusCompleted is the status value of a successful check-in.
const statusCompleted = "completed"

func (l *locationReq) toSample() (*model.LocationSample, error) {
    if l == nil {
        return nil, nil
    }
    s := &model.LocationSample{
        Latitude:       l.Latitude,
        Longitude:      l.Longitude,
        AccuracyMeters: l.AccuracyMeters,
        SpeedMPS:       l.SpeedMPS,
    }
    if strings.TrimSpace(l.CapturedAt) != "" {
        t, err := time.Parse(time.RFC3339, l.CapturedAt)
        if err != nil {
            return nil, err
        }
        s.CapturedAt = t.UTC()
    }
    return s, nil
}

func (d *deviceReq) toSignature() *model.DeviceSignature {
    if d == nil {
        return nil
    }
    return &model.DeviceSignature{
        DeviceID:      d.DeviceID,
        Platform:      d.Platform,
        AppVersion:    d.AppVersion,
        IsCompromised: d.IsCompromised,
    }
}

func outcomeResp(out checkin.Outcome) checkInResp {
    resp := checkInResp{
        BookingID:      out.BookingID,
        SessionID:      out.SessionID,
        Method:         string(out.Method),
        DistanceMeters: out.DistanceMeters,
        ErrorCode:      out.FailureReason,
        Message:        out.Message,
        FraudScore:     out.FraudScore,
    }
    if out.Succeeded {
        resp.Status = statusCompleted
    }
    for _, m := range out.Alternatives {
        resp.Alternatives = append(resp.Alternatives, string(m))
    }
    return resp
}

// respondOutcome writes 200 for a completed check-in and 422 for a
// domain failure; the body shape is the same either way so clients
// have one decode path.
func respondOutcome(c echo.Context, out checkin.Outcome) error {
    status := http.StatusOK
    if !out.Succeeded {
        status = http.StatusUnprocessableEntity
    }
    return c.JSON(status, outcomeResp(out))
}

// CheckIn handles POST /v1/check-in: a student attempting to check in
// to a booked class, primarily by geofence.
func (h *CheckInHandler) CheckIn(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req checkInReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.BookingID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_id required"})
    }
    method := model.Method(strings.TrimSpace(req.Method))
    if method == "" {
        method = model.MethodGeoFence
    }
    if !method.Valid() {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown method"})
    }
    // Overrides carry an instructor decision and cannot be self-served
    // through this endpoint.
    if method == model.MethodInstructorConfirmed || method == model.MethodManualOverride {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "method requires the instructor-override endpoint"})
    }
    // QR check-ins must present a token; without this gate the method
    // would pass on the venue's configuration alone.
    if method == model.MethodQRCode {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "method requires the qr check-in endpoint"})
    }
    sample, err := req.Location.toSample()
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid captured_at"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    out, err := h.Orch.AttemptCheckIn(ctx, checkin.Request{
        BookingID:     req.BookingID,
        UserID:        uid,
        Method:        method,
        Sample:        sample,
        Device:        req.Device.toSignature(),
        Justification: req.Justification,
    })
    if err != nil {
        log.Printf("checkin: attempt for booking %d failed: %v", req.BookingID, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-in failed"})
    }
    if out.Succeeded {
        h.publishSuccess(uid, out, req.Justification)
    } else if out.FailureReason == checkin.ReasonFraudSuspected {
        h.publishFraudAlert(uid, out)
    }
    return respondOutcome(c, out)
}

// QRCheckIn handles POST /v1/check-in/qr.  The token is validated
// before any database access so expired or forged tokens are rejected
// cheaply, then burned in Redis so it cannot be replayed.
func (h *CheckInHandler) QRCheckIn(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req qrCheckInReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
    }
    token := strings.TrimSpace(req.Token)

    bookingID, classID, err := h.QR.Decode(token, time.Now().UTC())
    if err != nil {
        switch {
        case errors.Is(err, checkin.ErrTokenExpired):
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "qr token expired", "error_code": checkin.ReasonQRTokenExpired})
        default:
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid qr token", "error_code": checkin.ReasonInvalidQRToken})
        }
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    // Single-use: burn the token before evaluating the attempt.  On a
    // failed attempt the reservation is released so the student can
    // retry with the same token while it is still valid.
    replayKey, burned := h.burnToken(ctx, token)
    if !burned {
        return c.JSON(http.StatusConflict, echo.Map{"error": "qr token already used", "error_code": checkin.ReasonQRTokenReplayed})
    }

    booking, err := h.Store.BookingForUser(ctx, bookingID, uid)
    if err != nil {
        h.releaseToken(replayKey)
        if errors.Is(err, checkin.ErrBookingNotFound) {
            return c.JSON(http.StatusUnprocessableEntity, checkInResp{
                BookingID: bookingID,
                Method:    string(model.MethodQRCode),
                ErrorCode: checkin.ReasonNotEligible,
                Message:   "no booking found for this user",
            })
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-in failed"})
    }
    if booking.ClassID != classID {
        h.releaseToken(replayKey)
        return c.JSON(http.StatusUnprocessableEntity, checkInResp{
            BookingID: bookingID,
            Method:    string(model.MethodQRCode),
            ErrorCode: checkin.ReasonQRTokenMismatch,
            Message:   "qr token was issued for a different class",
        })
    }

    sample, err := req.Location.toSample()
    if err != nil {
        h.releaseToken(replayKey)
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid captured_at"})
    }
    out, err := h.Orch.AttemptCheckIn(ctx, checkin.Request{
        BookingID: bookingID,
        UserID:    uid,
        Method:    model.MethodQRCode,
        Sample:    sample,
        Device:    req.Device.toSignature(),
    })
    if err != nil {
        h.releaseToken(replayKey)
        log.Printf("checkin: qr attempt for booking %d failed: %v", bookingID, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-in failed"})
    }
    if out.Succeeded {
        h.publishSuccess(uid, out, "")
    } else {
        h.releaseToken(replayKey)
    }
    return respondOutcome(c, out)
}

// IssueQRToken handles POST /v1/bookings/:id/qr-token.  Only the
// instructor of the booked class may issue a token, which is how the
// QR path inherits its trust: possession proves the instructor showed
// it to someone in the room.
func (h *CheckInHandler) IssueQRToken(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || bookingID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    booking, err := h.Store.Bookings().GetByID(ctx, bookingID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load booking failed"})
    }
    owns, err := h.Store.Classes().InstructorOwnsClass(ctx, booking.ClassID, uid)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "class not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load class failed"})
    }
    if !owns {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    if booking.Status != model.BookingConfirmed {
        return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not confirmed"})
    }

    now := time.Now().UTC()
    token := h.QR.Issue(bookingID, booking.ClassID, now)
    return c.JSON(http.StatusCreated, echo.Map{
        "token":      token,
        "expires_at": now.Add(h.QRTTL).Format(time.RFC3339),
    })
}

// InstructorOverride handles POST /v1/check-in/instructor-override:
// the instructor of the class records an approve/deny decision for a
// student who cannot check in through the location path.
func (h *CheckInHandler) InstructorOverride(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req overrideReq
    if err := c.Bind(&req); err != nil || req.BookingID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_id required"})
    }
    method := model.Method(strings.TrimSpace(req.Method))
    if method == "" {
        method = model.MethodInstructorConfirmed
    }
    if method != model.MethodInstructorConfirmed && method != model.MethodManualOverride {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "method must be instructor_confirmation or manual_override"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    booking, err := h.Store.Bookings().GetByID(ctx, req.BookingID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load booking failed"})
    }
    owns, err := h.Store.Classes().InstructorOwnsClass(ctx, booking.ClassID, uid)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "class not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load class failed"})
    }
    if !owns {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }

    out, err := h.Orch.AttemptCheckIn(ctx, checkin.Request{
        BookingID: req.BookingID,
        UserID:    booking.UserID, // the attempt belongs to the student
        Method:    method,
        Override: &checkin.OverrideDetails{
            InstructorID: uid,
            Approved:     req.Approved,
            Reason:       req.Reason,
        },
    })
    if err != nil {
        log.Printf("checkin: override for booking %d failed: %v", req.BookingID, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-in failed"})
    }
    if out.Succeeded {
        h.publishSuccess(booking.UserID, out, req.Reason)
    }
    return respondOutcome(c, out)
}

// attemptPart is the JSON projection of one audit-trail attempt.
type attemptPart struct {
    ID             string                  `json:"id"`
    AttemptedAt    string                  `json:"attempted_at"`
    Method         string                  `json:"method"`
    Succeeded      bool                    `json:"succeeded"`
    FailureReason  string                  `json:"failure_reason,omitempty"`
    DistanceMeters *float64                `json:"distance_from_venue,omitempty"`
    Location       *model.RedactedLocation `json:"location,omitempty"`
    FraudScore     *int                    `json:"fraud_score,omitempty"`
    FraudFlags     []string                `json:"fraud_flags,omitempty"`
    OverrideBy     *uint64                 `json:"override_instructor_id,omitempty"`
    OverrideReason *string                 `json:"override_reason,omitempty"`
}

type sessionPart struct {
    ID            string                  `json:"id"`
    Status        string                  `json:"status"`
    StartedAt     string                  `json:"started_at"`
    CompletedAt   *string                 `json:"completed_at,omitempty"`
    FinalLocation *model.RedactedLocation `json:"final_location,omitempty"`
}

// ListAttempts handles GET /v1/bookings/:id/attempts.  The booking's
// student and the class instructor can both read the audit trail.
func (h *CheckInHandler) ListAttempts(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || bookingID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    booking, err := h.Store.Bookings().GetByID(ctx, bookingID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load booking failed"})
    }
    if booking.UserID != uid {
        owns, err := h.Store.Classes().InstructorOwnsClass(ctx, booking.ClassID, uid)
        if err != nil || !owns {
            return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
        }
    }

    attempts, err := h.Store.Attempts().ListByBooking(ctx, bookingID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load attempts failed"})
    }
    parts := make([]attemptPart, 0, len(attempts))
    for _, a := range attempts {
        parts = append(parts, attemptPart{
            ID:             a.ID,
            AttemptedAt:    a.AttemptedAt.UTC().Format(time.RFC3339),
            Method:         string(a.Method),
            Succeeded:      a.Succeeded,
            FailureReason:  a.FailureReason,
            DistanceMeters: a.DistanceMeters,
            Location:       a.Redacted,
            FraudScore:     a.FraudScore,
            FraudFlags:     a.FraudFlags,
            OverrideBy:     a.OverrideInstructorID,
            OverrideReason: a.OverrideReason,
        })
    }

    resp := echo.Map{"booking_id": bookingID, "attempts": parts}
    if sess, err := h.Store.Sessions().GetByBooking(ctx, bookingID); err == nil {
        sp := sessionPart{
            ID:            sess.ID,
            Status:        sess.Status,
            StartedAt:     sess.StartedAt.UTC().Format(time.RFC3339),
            FinalLocation: sess.FinalLocation,
        }
        if sess.CompletedAt != nil {
            ts := sess.CompletedAt.UTC().Format(time.RFC3339)
            sp.CompletedAt = &ts
        }
        resp["session"] = sp
    }
    return c.JSON(http.StatusOK, resp)
}

// burnToken reserves single-use rights on a QR token via SETNX.  When
// Redis is unavailable the guard degrades to signature+expiry
// validation rather than refusing check-ins.
func (h *CheckInHandler) burnToken(ctx context.Context, token string) (string, bool) {
    if h.Redis == nil {
        return "", true
    }
    sum := sha256.Sum256([]byte(token))
    key := "checkin:qr:used:" + hex.EncodeToString(sum[:])
    ok, err := h.Redis.SetNX(ctx, key, 1, h.QRTTL+time.Minute).Result()
    if err != nil {
        log.Printf("checkin: qr replay guard unavailable: %v", err)
        return key, true
    }
    return key, ok
}

// releaseToken frees a burned token after a failed attempt so the
// student can retry while the token is still within its validity.
func (h *CheckInHandler) releaseToken(key string) {
    if h.Redis == nil || key == "" {
        return
    }
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := h.Redis.Del(ctx, key).Err(); err != nil {
        log.Printf("checkin: releasing qr token failed: %v", err)
    }
}

// publishSuccess emits the checkin.completed event (and an alert for
// emergency bypasses) without blocking the response.  Publishing is
// best-effort: broker failures are logged inside the publisher.
func (h *CheckInHandler) publishSuccess(userID uint64, out checkin.Outcome, justification string) {
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()

        ev := queue.CheckInCompletedEvent{
            BookingID:      out.BookingID,
            SessionID:      out.SessionID,
            UserID:         userID,
            Method:         string(out.Method),
            DistanceMeters: out.DistanceMeters,
            CheckedInAt:    time.Now().UTC().Format(time.RFC3339),
        }
        if booking, err := h.Store.Bookings().GetByID(ctx, out.BookingID); err == nil {
            ev.ClassID = booking.ClassID
            if cls, ven, err := h.Store.ClassWithVenue(ctx, booking.ClassID); err == nil {
                ev.ClassTitle = cls.Title
                ev.VenueName = ven.Name
            }
        }
        _ = queue_publisher.PublishCheckInCompleted(ctx, ev)

        if out.Method == model.MethodEmergencyBypass {
            _ = queue_publisher.PublishAlert(ctx, queue.CheckInAlert{
                Kind:          queue.AlertEmergencyBypass,
                BookingID:     out.BookingID,
                UserID:        userID,
                ClassID:       ev.ClassID,
                Justification: justification,
                OccurredAt:    ev.CheckedInAt,
            })
        }
    }()
}

// publishFraudAlert surfaces a fraud-suspected rejection to operations
// without blocking the response.
func (h *CheckInHandler) publishFraudAlert(userID uint64, out checkin.Outcome) {
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()

        al := queue.CheckInAlert{
            Kind:       queue.AlertFraudSuspected,
            BookingID:  out.BookingID,
            UserID:     userID,
            FraudScore: out.FraudScore,
            FraudFlags: out.FraudFlags,
            OccurredAt: time.Now().UTC().Format(time.RFC3339),
        }
        if booking, err := h.Store.Bookings().GetByID(ctx, out.BookingID); err == nil {
            al.ClassID = booking.ClassID
        }
        _ = queue_publisher.PublishAlert(ctx, al)
    }()
}
