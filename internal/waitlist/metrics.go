package waitlist

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

// managerMetrics counts promotion outcomes.  A nil registerer yields
// unregistered collectors.
type managerMetrics struct {
    promotedTotal  prometheus.Counter
    skippedTotal   *prometheus.CounterVec
    withdrawnTotal prometheus.Counter
    txRetries      prometheus.Counter
}

func newManagerMetrics(reg prometheus.Registerer) *managerMetrics {
    factory := promauto.With(reg)
    return &managerMetrics{
        promotedTotal: factory.NewCounter(prometheus.CounterOpts{
            Name: "waitlist_promoted_total",
            Help: "Waiting students promoted into a seat.",
        }),
        skippedTotal: factory.NewCounterVec(prometheus.CounterOpts{
            Name: "waitlist_promotion_skipped_total",
            Help: "Waiting students skipped at promotion time by reason.",
        }, []string{"reason"}),
        withdrawnTotal: factory.NewCounter(prometheus.CounterOpts{
            Name: "waitlist_withdrawn_total",
            Help: "Waiting students who left the line voluntarily.",
        }),
        txRetries: factory.NewCounter(prometheus.CounterOpts{
            Name: "waitlist_tx_retries_total",
            Help: "Transactions retried after a concurrency abort.",
        }),
    }
}
