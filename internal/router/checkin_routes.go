package router

import (
	"github.com/labstack/echo/v4"

	"github.com/hobbyloop/class-attendance/internal/handler"
	"github.com/hobbyloop/class-attendance/internal/middleware"
)

// RegisterCheckIn registers the attendance check-in endpoints under
// /v1.  Students drive the self-service paths (geofence and QR);
// instructors issue QR tokens and record override decisions for their
// own classes; the attempts audit trail is readable by both sides.
func RegisterCheckIn(e *echo.Echo, h *handler.CheckInHandler, jwtSecret string) {
	student := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("STUDENT"),
	)
	student.POST("/check-in", h.CheckIn)
	student.POST("/check-in/qr", h.QRCheckIn)

	instructor := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("INSTRUCTOR"),
	)
	instructor.POST("/bookings/:id/qr-token", h.IssueQRToken)
	instructor.POST("/check-in/instructor-override", h.InstructorOverride)

	// The audit trail is shared: the handler enforces that the caller
	// is either the booking's student or the class instructor.
	shared := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("STUDENT", "INSTRUCTOR"),
	)
	shared.GET("/bookings/:id/attempts", h.ListAttempts)
}
