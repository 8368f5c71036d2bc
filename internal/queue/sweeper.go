package queue

import (
    "context"
    "log"
    "time"

    "github.com/seatwise/course-enrollment/internal/store"
)

// StartSweeper periodically re-dispatches every section that has both
// free seats and WAITING students.  It is the safety net behind the
// at-least-once pipeline: a coalescing marker can expire unpublished,
// a task can be dropped after redelivery, a broker can be down during
// a hand-off.  None of those lose a promotion for longer than one
// sweep interval.  Returns when ctx is cancelled.
func StartSweeper(ctx context.Context, st store.Store, d Dispatcher, interval time.Duration) {
    if interval <= 0 {
        interval = time.Minute
    }
    ticker := time.NewTicker(interval)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            sweepOnce(ctx, st, d)
        }
    }
}

func sweepOnce(ctx context.Context, st store.Store, d Dispatcher) {
    sections, err := st.PromotableSections(ctx)
    if err != nil {
        log.Printf("sweeper: list promotable sections: %v", err)
        return
    }
    for _, sectionID := range sections {
        if err := d.DispatchPromotion(ctx, sectionID); err != nil {
            log.Printf("sweeper: dispatch section %d: %v", sectionID, err)
        }
    }
}
