package enrollment

import (
    "errors"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"

    "github.com/seatwise/course-enrollment/internal/store"
)

// coordinatorMetrics counts allocation outcomes.  A nil registerer
// yields unregistered collectors, so tests and embedded users pay
// nothing for them.
type coordinatorMetrics struct {
    enrollTotal *prometheus.CounterVec
    dropTotal   *prometheus.CounterVec
    txRetries   prometheus.Counter
}

func newCoordinatorMetrics(reg prometheus.Registerer) *coordinatorMetrics {
    factory := promauto.With(reg)
    return &coordinatorMetrics{
        enrollTotal: factory.NewCounterVec(prometheus.CounterOpts{
            Name: "enrollment_enroll_total",
            Help: "Enroll calls by outcome.",
        }, []string{"outcome"}),
        dropTotal: factory.NewCounterVec(prometheus.CounterOpts{
            Name: "enrollment_drop_total",
            Help: "Drop calls by outcome.",
        }, []string{"outcome"}),
        txRetries: factory.NewCounter(prometheus.CounterOpts{
            Name: "enrollment_tx_retries_total",
            Help: "Transactions retried after a concurrency abort.",
        }),
    }
}

// outcomeLabel maps an operation error to its metrics label.
func outcomeLabel(err error) string {
    switch {
    case errors.Is(err, ErrAlreadyEnrolled), errors.Is(err, ErrAlreadyWaitlisted):
        return "duplicate"
    case errors.Is(err, ErrScheduleConflict):
        return "conflict"
    case errors.Is(err, ErrNotEnrolled):
        return "not_enrolled"
    case errors.Is(err, store.ErrSectionNotFound):
        return "not_found"
    case errors.Is(err, ErrContention):
        return "contention"
    default:
        return "error"
    }
}
