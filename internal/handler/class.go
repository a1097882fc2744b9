// This file defines the public class browsing endpoint. It allows
// unauthenticated users to view a class and the check-in rules that
// apply at its venue, so students can plan their arrival. The venue's
// coordinates are never exposed here; only the containment rules are.
package handler

import (
    "database/sql"
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/hobbyloop/class-attendance/internal/repository"
)

// ClassHandler serves read-only class information.
type ClassHandler struct {
    Classes *repository.ClassRepo
}

func NewClassHandler(classes *repository.ClassRepo) *ClassHandler {
    return &ClassHandler{Classes: classes}
}

// GetClass handles GET /v1/classes/:id. Responses are cached by the
// response-cache middleware since class schedules change rarely.
func (h *ClassHandler) GetClass(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id"})
    }
    det, err := h.Classes.GetDetail(c.Request().Context(), id)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "class not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, det)
}
