package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/seatwise/course-enrollment/internal/queue"
    "github.com/seatwise/course-enrollment/internal/store"
)

// PromoteHandler exposes a manual lever over the promotion pipeline.
// Sweeps are idempotent, so operators can hit it freely when a
// section looks stuck instead of waiting for the reconciliation
// sweeper's next pass.
type PromoteHandler struct {
    Store      store.Store
    Dispatcher queue.Dispatcher
}

func NewPromoteHandler(st store.Store, d queue.Dispatcher) *PromoteHandler {
    return &PromoteHandler{Store: st, Dispatcher: d}
}

// Promote queues a promotion sweep for the section named in the path.
// The sweep itself runs asynchronously; 202 means queued, not done.
func (h *PromoteHandler) Promote(c echo.Context) error {
    sectionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || sectionID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid section id"})
    }
    if _, err := h.Store.SectionByID(c.Request().Context(), sectionID); err != nil {
        if errors.Is(err, store.ErrSectionNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "section not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if err := h.Dispatcher.DispatchPromotion(c.Request().Context(), sectionID); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to queue promotion"})
    }
    return c.JSON(http.StatusAccepted, echo.Map{"queued": true, "section_id": sectionID})
}
