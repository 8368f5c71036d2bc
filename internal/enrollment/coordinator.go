package enrollment

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

// Enrollment outcomes reported by Enroll.
const (
    StatusEnrolled   = "ENROLLED"
    StatusWaitlisted = "WAITLISTED"
)

// EnrollResult describes the outcome of a successful Enroll call:
// either a seat was claimed or the student joined the line.
//
// Fields:
//   - Status – StatusEnrolled or StatusWaitlisted
//   - Enrollment – the new ACTIVE record, set when a seat was claimed
//   - Entry – the new WAITING record, set when the section was full
//   - Rank – 1-based place among WAITING entries, set with Entry
type EnrollResult struct {
    Status     string
    Enrollment *model.Enrollment
    Entry      *model.WaitlistEntry
    Rank       int
}

// PromotionDispatcher hands a section with freed capacity to the
// asynchronous promotion pipeline.  Drop treats dispatch failures as
// non-fatal: the reconciliation sweeper revisits promotable sections,
// so a lost hand-off delays promotion instead of losing it.
type PromotionDispatcher interface {
    DispatchPromotion(ctx context.Context, sectionID uint64) error
}

// Config carries the coordinator's dependencies and tuning.
type Config struct {
    Store      store.Store
    Notifier   notify.Notifier       // optional – nil disables notices
    Dispatcher PromotionDispatcher   // optional – nil disables promotion hand-off
    MaxRetries int                   // extra attempts after a transaction conflict, default 3
    Backoff    time.Duration         // first retry delay, doubled per attempt, default 25ms
    Registry   prometheus.Registerer // optional – nil leaves metrics unregistered
}

// Coordinator claims and releases seats.  Every mutation runs inside
// a transaction holding the section's exclusive row lock, so two
// students racing for the last seat are serialized by the store and
// the capacity check cannot be outrun.  The commit is the single
// point where an outcome becomes visible.
type Coordinator struct {
    store      store.Store
    notifier   notify.Notifier
    dispatcher PromotionDispatcher
    maxRetries int
    backoff    time.Duration
    metrics    *coordinatorMetrics
}

// New builds a Coordinator from cfg, filling in defaults for zero
// tuning values.
func New(cfg Config) *Coordinator {
    if cfg.MaxRetries <= 0 {
        cfg.MaxRetries = 3
    }
    if cfg.Backoff <= 0 {
        cfg.Backoff = 25 * time.Millisecond
    }
    return &Coordinator{
        store:      cfg.Store,
        notifier:   cfg.Notifier,
        dispatcher: cfg.Dispatcher,
        maxRetries: cfg.MaxRetries,
        backoff:    cfg.Backoff,
        metrics:    newCoordinatorMetrics(cfg.Registry),
    }
}

// Enroll claims a seat on the section for the student.  Inside the
// locked transaction it rejects duplicates and schedule conflicts,
// then either claims a free seat or appends the student to the
// waitlist.  Transactions aborted by the store's concurrency control
// are retried with backoff before surfacing ErrContention.
func (co *Coordinator) Enroll(ctx context.Context, studentID, sectionID uint64) (*EnrollResult, error) {
    var res *EnrollResult
    var confirmed model.Section
    err := co.withRetry(ctx, func() error {
        res = nil
        return co.store.InSectionTx(ctx, sectionID, func(tx store.Tx) error {
            sec := tx.Section()
            existing, err := tx.ActiveEnrollment(ctx, studentID)
            if err != nil {
                return err
            }
            if existing != nil {
                return ErrAlreadyEnrolled
            }
            waiting, err := tx.WaitingEntry(ctx, studentID)
            if err != nil {
                return err
            }
            if waiting != nil {
                return ErrAlreadyWaitlisted
            }
            if err := checkSchedule(ctx, tx, studentID, sec); err != nil {
                return err
            }
            if sec.Enrolled < sec.Capacity {
                enr, err := tx.InsertEnrollment(ctx, studentID)
                if err != nil {
                    return err
                }
                if err := tx.IncrementEnrolled(ctx); err != nil {
                    return err
                }
                confirmed = *sec
                res = &EnrollResult{Status: StatusEnrolled, Enrollment: enr}
                return nil
            }
            entry, err := tx.AppendWaitlist(ctx, studentID)
            if err != nil {
                return err
            }
            rank, err := tx.WaitingRank(ctx, entry.Position)
            if err != nil {
                return err
            }
            res = &EnrollResult{Status: StatusWaitlisted, Entry: entry, Rank: rank}
            return nil
        })
    })
    if err != nil {
        co.metrics.enrollTotal.WithLabelValues(outcomeLabel(err)).Inc()
        return nil, err
    }
    if res.Status == StatusEnrolled {
        co.metrics.enrollTotal.WithLabelValues("enrolled").Inc()
        co.notifyConfirmed(ctx, studentID, confirmed)
    } else {
        co.metrics.enrollTotal.WithLabelValues("waitlisted").Inc()
    }
    return res, nil
}

// Drop releases the student's ACTIVE seat on the section.  After the
// release commits, the section is handed to the promotion pipeline;
// a failed hand-off only logs because the sweeper will find the free
// seat on its next pass.
func (co *Coordinator) Drop(ctx context.Context, studentID, sectionID uint64) error {
    err := co.withRetry(ctx, func() error {
        return co.store.InSectionTx(ctx, sectionID, func(tx store.Tx) error {
            enr, err := tx.ActiveEnrollment(ctx, studentID)
            if err != nil {
                return err
            }
            if enr == nil {
                return ErrNotEnrolled
            }
            if err := tx.DropEnrollment(ctx, enr.ID); err != nil {
                return err
            }
            return tx.DecrementEnrolled(ctx)
        })
    })
    if err != nil {
        co.metrics.dropTotal.WithLabelValues(outcomeLabel(err)).Inc()
        return err
    }
    co.metrics.dropTotal.WithLabelValues("dropped").Inc()
    if co.dispatcher != nil {
        if err := co.dispatcher.DispatchPromotion(ctx, sectionID); err != nil {
            log.Printf("coordinator: dispatch promotion for section %d: %v", sectionID, err)
        }
    }
    return nil
}

// withRetry runs fn, retrying on store.ErrTxConflict with doubling
// backoff.  Any other error returns immediately: the transaction
// already rolled back and retrying would not change the answer.
func (co *Coordinator) withRetry(ctx context.Context, fn func() error) error {
    backoff := co.backoff
    var err error
    for attempt := 0; attempt <= co.maxRetries; attempt++ {
        if attempt > 0 {
            co.metrics.txRetries.Inc()
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

// checkSchedule compares the candidate section's meeting times with
// the student's other ACTIVE enrollments in the same semester.  A
// schedule that does not parse contributes no conflicts; catalogs
// carry TBA and irregular strings, and those sections cannot collide
// with anything.
func checkSchedule(ctx context.Context, tx store.Tx, studentID uint64, sec *model.Section) error {
    candidate, err := schedule.Parse(sec.Schedule)
    if err != nil {
        return nil
    }
    others, err := tx.ActiveMeetings(ctx, studentID, sec.Semester)
    if err != nil {
        return err
    }
    for _, other := range others {
        meeting, err := schedule.Parse(other.Schedule)
        if err != nil {
            continue
        }
        if schedule.Overlaps(candidate, meeting) {
            return &ConflictError{SectionID: other.SectionID, CourseCode: other.CourseCode}
        }
    }
    return nil
}

// notifyConfirmed sends the enrollment.confirmed notice.  It runs
// after the commit, so a slow or absent course lookup can only cost
// detail in the message, never the seat.
func (co *Coordinator) notifyConfirmed(ctx context.Context, studentID uint64, sec model.Section) {
    if co.notifier == nil {
        return
    }
    n := notify.Notice{
        StudentID: studentID,
        SectionID: sec.ID,
        Semester:  sec.Semester,
        Schedule:  sec.Schedule,
        Room:      sec.Room,
    }
    if course, err := co.store.CourseByID(ctx, sec.CourseID); err == nil {
        n.CourseCode = course.Code
        n.CourseTitle = course.Title
    }
    if err := co.notifier.EnrollmentConfirmed(ctx, n); err != nil {
        log.Printf("coordinator: notify enrollment confirmed: %v", err)
    }
}
