package config

import (
    "os"
    "strconv"
    "time"
)

// QueueConfig tunes the promotion pipeline and the notice throttle.
// Sweeps are idempotent, so every knob here trades latency against
// load; none of them affect correctness.
type QueueConfig struct {
    Workers         int           // in-process sweep workers when no broker is configured
    Buffer          int           // in-process task buffer
    CoalesceTTL     time.Duration // lifetime of the Redis duplicate-suppression marker
    SweepInterval   time.Duration // period of the reconciliation sweeper
    NotifyPerSecond float64       // notice publish budget
    NotifyBurst     int           // notice publish burst
    TxMaxRetries    int           // retries after a transaction conflict
    TxRetryBackoff  time.Duration // first retry delay, doubled per attempt
}

// LoadQueueConfig reads environment variables to build a QueueConfig.
// Defaults are used when variables are not set, and out-of-range
// values are clamped to something workable.
func LoadQueueConfig() QueueConfig {
    def := QueueConfig{
        Workers:         envInt("PROMOTE_WORKERS", 2),
        Buffer:          envInt("PROMOTE_BUFFER", 256),
        CoalesceTTL:     envDur("PROMOTE_COALESCE_TTL", time.Minute),
        SweepInterval:   envDur("PROMOTE_SWEEP_INTERVAL", time.Minute),
        NotifyPerSecond: envFloat("NOTIFY_PER_SECOND", 25),
        NotifyBurst:     envInt("NOTIFY_BURST", 50),
        TxMaxRetries:    envInt("TX_MAX_RETRIES", 3),
        TxRetryBackoff:  envDur("TX_RETRY_BACKOFF", 25*time.Millisecond),
    }
    if def.Workers < 1 { def.Workers = 1 }
    if def.Buffer < 1 { def.Buffer = 1 }
    if def.CoalesceTTL <= 0 { def.CoalesceTTL = time.Minute }
    if def.SweepInterval <= 0 { def.SweepInterval = time.Minute }
    if def.NotifyPerSecond <= 0 { def.NotifyPerSecond = 1 }
    if def.NotifyBurst < 1 { def.NotifyBurst = 1 }
    if def.TxMaxRetries < 0 { def.TxMaxRetries = 0 }
    if def.TxRetryBackoff <= 0 { def.TxRetryBackoff = 25 * time.Millisecond }
    return def
}

func envInt(k string, d int) int {
    v := os.Getenv(k); if v == "" { return d }
    if n, err := strconv.Atoi(v); err == nil { return n }
    return d
}
func envFloat(k string, d float64) float64 {
    v := os.Getenv(k); if v == "" { return d }
    if f, err := strconv.ParseFloat(v, 64); err == nil { return f }
    return d
}
func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k); if v == "" { return d }
    if dur, err := time.ParseDuration(v); err == nil { return dur }
    return d
}
