package queue

import (
    "context"
    "log"
    "sync"
    "time"

    "github.com/seatwise/course-enrollment/internal/waitlist"
)

// InProcDispatcher runs promotion sweeps on a small worker pool
// inside the server process, for deployments without a broker.  The
// channel is bounded; when it is full the task is dropped with a log
// line and the reconciliation sweeper picks the section up later.
type InProcDispatcher struct {
    mgr   *waitlist.Manager
    tasks chan uint64
    wg    sync.WaitGroup
    once  sync.Once
}

// NewInProcDispatcher starts workers goroutines draining a buffer of
// pending section IDs.  Zero values fall back to one worker and a
// buffer of 64.
func NewInProcDispatcher(mgr *waitlist.Manager, workers, buffer int) *InProcDispatcher {
    if workers <= 0 {
        workers = 1
    }
    if buffer <= 0 {
        buffer = 64
    }
    d := &InProcDispatcher{
        mgr:   mgr,
        tasks: make(chan uint64, buffer),
    }
    for i := 0; i < workers; i++ {
        d.wg.Add(1)
        go d.worker()
    }
    return d
}

// DispatchPromotion queues the section for a sweep.  It never blocks
// the caller: a full buffer drops the task.
func (d *InProcDispatcher) DispatchPromotion(_ context.Context, sectionID uint64) error {
    select {
    case d.tasks <- sectionID:
    default:
        log.Printf("inproc-dispatcher: buffer full, dropping section %d; sweeper will retry", sectionID)
    }
    return nil
}

// Stop closes the queue and waits for in-flight sweeps to finish.
func (d *InProcDispatcher) Stop() {
    d.once.Do(func() { close(d.tasks) })
    d.wg.Wait()
}

func (d *InProcDispatcher) worker() {
    defer d.wg.Done()
    for sectionID := range d.tasks {
        ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
        sweep, err := d.mgr.Promote(ctx, sectionID)
        cancel()
        if err != nil {
            log.Printf("inproc-dispatcher: promote section %d failed: %v", sectionID, err)
            continue
        }
        if sweep.Promoted > 0 || sweep.Skipped > 0 {
            log.Printf("inproc-dispatcher: section %d swept: promoted=%d skipped=%d", sectionID, sweep.Promoted, sweep.Skipped)
        }
    }
}
