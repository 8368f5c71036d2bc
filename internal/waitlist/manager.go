// Package waitlist manages the queue behind full sections: appending
// is done by the enrollment coordinator, this package owns promotion,
// withdrawal and position lookups.  Promotion is strictly FIFO by
// position with re-validation at promotion time; entries that fail
// re-validation are resolved PROMOTION_FAILED and never re-queued.
package waitlist

import (
    "context"
    "errors"
    "fmt"
    "log"
    "time"

    "github.com/prometheus/client_golang/prometheus"

    "github.com/seatwise/course-enrollment/internal/model"
    "github.com/seatwise/course-enrollment/internal/notify"
    "github.com/seatwise/course-enrollment/internal/schedule"
    "github.com/seatwise/course-enrollment/internal/store"
)

// ErrNotWaiting is returned when the student has no WAITING entry on
// the section.  Resolved entries are terminal, so a withdrawn or
// promoted student gets the same answer as one who never queued.
var ErrNotWaiting = errors.New("not on the waitlist")

// ErrContention is returned when a sweep or withdrawal kept colliding
// with concurrent transactions and exhausted its retries.
var ErrContention = errors.New("transaction contention")

// Skip reasons recorded when a WAITING entry fails re-validation.
const (
    skipAlreadyEnrolled = "already_enrolled"
    skipConflict        = "schedule_conflict"
)

// PromotionSweep summarizes one pass over a section's waitlist.
type PromotionSweep struct {
    SectionID uint64
    Promoted  int // entries moved to PROMOTED with a seat claimed
    Skipped   int // entries resolved PROMOTION_FAILED
}

// Config carries the manager's dependencies and tuning.
type Config struct {
    Store      store.Store
    Notifier   notify.Notifier       // optional – nil disables notices
    MaxRetries int                   // extra attempts after a transaction conflict, default 3
    Backoff    time.Duration         // first retry delay, doubled per attempt, default 25ms
    Registry   prometheus.Registerer // optional – nil leaves metrics unregistered
}

// Manager promotes and withdraws waitlist entries.  Like the
// coordinator, every mutation runs under the section's exclusive row
// lock so promotion can never hand out a seat that a concurrent
// enrollment already claimed.
type Manager struct {
    store      store.Store
    notifier   notify.Notifier
    maxRetries int
    backoff    time.Duration
    metrics    *managerMetrics
}

// New builds a Manager from cfg, filling in defaults for zero tuning
// values.
func New(cfg Config) *Manager {
    if cfg.MaxRetries <= 0 {
        cfg.MaxRetries = 3
    }
    if cfg.Backoff <= 0 {
        cfg.Backoff = 25 * time.Millisecond
    }
    return &Manager{
        store:      cfg.Store,
        notifier:   cfg.Notifier,
        maxRetries: cfg.MaxRetries,
        backoff:    cfg.Backoff,
        metrics:    newManagerMetrics(cfg.Registry),
    }
}

// pendingNotice defers a notice until after the sweep's commit.
type pendingNotice struct {
    promoted     bool
    reason       string // skip reason when not promoted
    studentID    uint64
    position     uint64
    conflictWith string
}

// Promote walks the section's WAITING entries in position order and
// fills every free seat it can.  Entries that fail re-validation are
// resolved PROMOTION_FAILED and the walk moves on; the sweep stops
// when the section is full or the queue is exhausted.  Promote is
// idempotent – sweeping a full or empty section changes nothing – so
// duplicate deliveries from the task queue are harmless.  Notices go
// out only after the commit.
func (m *Manager) Promote(ctx context.Context, sectionID uint64) (PromotionSweep, error) {
    sweep := PromotionSweep{SectionID: sectionID}
    var sec model.Section
    var pending []pendingNotice
    err := m.withRetry(ctx, func() error {
        sweep = PromotionSweep{SectionID: sectionID}
        pending = pending[:0]
        return m.store.InSectionTx(ctx, sectionID, func(tx store.Tx) error {
            sec = *tx.Section()
            after := uint64(0)
            for sec.Enrolled < sec.Capacity {
                entry, err := tx.NextWaiting(ctx, after)
                if err != nil {
                    return err
                }
                if entry == nil {
                    break
                }
                after = entry.Position
                reason, conflictWith, err := m.revalidate(ctx, tx, entry.StudentID)
                if err != nil {
                    return err
                }
                if reason != "" {
                    if err := tx.ResolveWaitlist(ctx, entry.ID, model.WaitlistPromotionFailed); err != nil {
                        return err
                    }
                    sweep.Skipped++
                    pending = append(pending, pendingNotice{reason: reason, studentID: entry.StudentID, position: entry.Position, conflictWith: conflictWith})
                    continue
                }
                if _, err := tx.InsertEnrollment(ctx, entry.StudentID); err != nil {
                    return err
                }
                if err := tx.IncrementEnrolled(ctx); err != nil {
                    return err
                }
                if err := tx.ResolveWaitlist(ctx, entry.ID, model.WaitlistPromoted); err != nil {
                    return err
                }
                sec = *tx.Section()
                sweep.Promoted++
                pending = append(pending, pendingNotice{promoted: true, studentID: entry.StudentID, position: entry.Position})
            }
            return nil
        })
    })
    if err != nil {
        return PromotionSweep{SectionID: sectionID}, err
    }
    // Metrics count committed outcomes only; a retried transaction
    // must not double-count the attempt it rolled back.
    for _, p := range pending {
        if p.promoted {
            m.metrics.promotedTotal.Inc()
        } else {
            m.metrics.skippedTotal.WithLabelValues(p.reason).Inc()
        }
    }
    m.sendNotices(ctx, sec, pending)
    return sweep, nil
}

// revalidate re-checks a WAITING student's eligibility at promotion
// time.  The queue may be hours old: the student can have enrolled
// through another section swap or picked up a clashing class since
// joining.  It returns the skip reason, or "" when the student is
// still eligible.
func (m *Manager) revalidate(ctx context.Context, tx store.Tx, studentID uint64) (reason, conflictWith string, err error) {
    existing, err := tx.ActiveEnrollment(ctx, studentID)
    if err != nil {
        return "", "", err
    }
    if existing != nil {
        return skipAlreadyEnrolled, "", nil
    }
    sec := tx.Section()
    candidate, err := schedule.Parse(sec.Schedule)
    if err != nil {
        return "", "", nil
    }
    others, err := tx.ActiveMeetings(ctx, studentID, sec.Semester)
    if err != nil {
        return "", "", err
    }
    for _, other := range others {
        meeting, err := schedule.Parse(other.Schedule)
        if err != nil {
            continue
        }
        if schedule.Overlaps(candidate, meeting) {
            return skipConflict, other.CourseCode, nil
        }
    }
    return "", "", nil
}

// Withdraw resolves the student's WAITING entry as WITHDRAWN.  The
// position is abandoned, not recycled: students behind keep their
// numbering and simply move up in rank.
func (m *Manager) Withdraw(ctx context.Context, studentID, sectionID uint64) error {
    err := m.withRetry(ctx, func() error {
        return m.store.InSectionTx(ctx, sectionID, func(tx store.Tx) error {
            entry, err := tx.WaitingEntry(ctx, studentID)
            if err != nil {
                return err
            }
            if entry == nil {
                return ErrNotWaiting
            }
            return tx.ResolveWaitlist(ctx, entry.ID, model.WaitlistWithdrawn)
        })
    })
    if err != nil {
        return err
    }
    m.metrics.withdrawnTotal.Inc()
    return nil
}

// Position reports the student's 1-based place among the section's
// WAITING entries.  Raw queue positions are monotonic and full of
// holes once entries resolve; rank is the number students actually
// want to see.
func (m *Manager) Position(ctx context.Context, studentID, sectionID uint64) (int, error) {
    rank, err := m.store.WaitingRank(ctx, studentID, sectionID)
    if err != nil {
        if errors.Is(err, store.ErrEntryNotFound) {
            return 0, ErrNotWaiting
        }
        return 0, err
    }
    return rank, nil
}

// withRetry runs fn, retrying on store.ErrTxConflict with doubling
// backoff.  Any other error returns immediately.
func (m *Manager) withRetry(ctx context.Context, fn func() error) error {
    backoff := m.backoff
    var err error
    for attempt := 0; attempt <= m.maxRetries; attempt++ {
        if attempt > 0 {
            m.metrics.txRetries.Inc()
            select {
            case <-time.After(backoff):
            case <-ctx.Done():
                return ctx.Err()
            }
            backoff *= 2
        }
        err = fn()
        if err == nil || !errors.Is(err, store.ErrTxConflict) {
            return err
        }
    }
    return fmt.Errorf("%w: %v", ErrContention, err)
}

// sendNotices fans the sweep's outcomes out to the notifier.  Runs
// after the commit; failures only log.
func (m *Manager) sendNotices(ctx context.Context, sec model.Section, pending []pendingNotice) {
    if m.notifier == nil || len(pending) == 0 {
        return
    }
    var courseCode, courseTitle string
    if course, err := m.store.CourseByID(ctx, sec.CourseID); err == nil {
        courseCode = course.Code
        courseTitle = course.Title
    }
    for _, p := range pending {
        n := notify.Notice{
            StudentID:    p.studentID,
            SectionID:    sec.ID,
            CourseCode:   courseCode,
            CourseTitle:  courseTitle,
            Semester:     sec.Semester,
            Schedule:     sec.Schedule,
            Room:         sec.Room,
            Position:     p.position,
            ConflictWith: p.conflictWith,
        }
        var err error
        if p.promoted {
            err = m.notifier.WaitlistPromoted(ctx, n)
        } else {
            err = m.notifier.PromotionSkipped(ctx, n)
        }
        if err != nil {
            log.Printf("waitlist: notify student %d for section %d: %v", p.studentID, sec.ID, err)
        }
    }
}
