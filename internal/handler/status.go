package handler

import (
    "context"
    "database/sql"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// StatusHandler reports operational state for dashboards and humans:
// database reachability, which promotion pipeline is active and how
// long the process has been up.
type StatusHandler struct {
    DB        *sql.DB
    QueueMode string // "amqp" or "inproc"
    StartedAt time.Time
}

// NewStatusHandler stamps the start time so uptime reads from process
// launch, not first request.
func NewStatusHandler(db *sql.DB, queueMode string) *StatusHandler {
    return &StatusHandler{DB: db, QueueMode: queueMode, StartedAt: time.Now()}
}

// Status returns a JSON snapshot of the service's dependencies.  The
// database ping gets a short timeout so a hung pool cannot stall the
// probe.
func (h *StatusHandler) Status(c echo.Context) error {
    dbState := "unconfigured"
    if h.DB != nil {
        dbState = "up"
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        if err := h.DB.PingContext(ctx); err != nil {
            dbState = "down"
        }
    }
    return c.JSON(http.StatusOK, echo.Map{
        "status":         "ok",
        "database":       dbState,
        "queue_mode":     h.QueueMode,
        "uptime_seconds": int64(time.Since(h.StartedAt).Seconds()),
    })
}
