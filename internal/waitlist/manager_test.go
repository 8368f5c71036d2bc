package waitlist

import (
    "context"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/seatwise/course-enrollment/internal/enrollment"
    "github.com/seatwise/course-enrollment/internal/model"
    "github.com/seatwise/course-enrollment/internal/notify"
    "github.com/seatwise/course-enrollment/internal/store"
    "github.com/seatwise/course-enrollment/internal/store/memory"
)

func seedSection(t *testing.T, st *memory.Store, code, semester, meeting string, capacity uint32) *model.Section {
    t.Helper()
    ctx := context.Background()
    course := &model.Course{Code: code, Title: code + " Lecture", Credits: 3}
    require.NoError(t, st.CreateCourse(ctx, course))
    sec := &model.Section{
        CourseID: course.ID,
        Semester: semester,
        Capacity: capacity,
        Schedule: meeting,
        Room:     "H-201",
    }
    require.NoError(t, st.CreateSection(ctx, sec))
    return sec
}

func newManager(st store.Store, notifier notify.Notifier) *Manager {
    return New(Config{
        Store:      st,
        Notifier:   notifier,
        MaxRetries: 3,
        Backoff:    time.Millisecond,
    })
}

func newCoordinator(st store.Store) *enrollment.Coordinator {
    return enrollment.New(enrollment.Config{Store: st, Backoff: time.Millisecond})
}

// recordingNotifier captures every notice with its event kind.
type recordingNotifier struct {
    mu      sync.Mutex
    events  []string
    notices []notify.Notice
}

func (r *recordingNotifier) record(event string, n notify.Notice) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.events = append(r.events, event)
    r.notices = append(r.notices, n)
    return nil
}

func (r *recordingNotifier) EnrollmentConfirmed(_ context.Context, n notify.Notice) error {
    return r.record(notify.EventEnrollmentConfirmed, n)
}

func (r *recordingNotifier) WaitlistPromoted(_ context.Context, n notify.Notice) error {
    return r.record(notify.EventWaitlistPromoted, n)
}

func (r *recordingNotifier) PromotionSkipped(_ context.Context, n notify.Notice) error {
    return r.record(notify.EventPromotionSkipped, n)
}

// isActive reports whether the student holds an ACTIVE enrollment on
// the section, read under the section lock.
func isActive(t *testing.T, st store.Store, studentID, sectionID uint64) bool {
    t.Helper()
    var active bool
    err := st.InSectionTx(context.Background(), sectionID, func(tx store.Tx) error {
        enr, err := tx.ActiveEnrollment(context.Background(), studentID)
        if err != nil {
            return err
        }
        active = enr != nil
        return nil
    })
    require.NoError(t, err)
    return active
}

func TestPromoteFillsFreeSeatsInOrder(t *testing.T) {
    ctx := context.Background()
    st := memory.New()
    sec := seedSection(t, st, "CS101", "2026F", "Mon/Wed 10:00-11:30", 2)
    co := newCoordinator(st)
    mgr := newManager(st, nil)

    for _, studentID := range []uint64{1, 2, 3, 4, 5} {
        _, err := co.Enroll(ctx, studentID, sec.ID)
        require.NoError(t, err)
    }
    require.NoError(t, co.Drop(ctx, 1, sec.ID))
    require.NoError(t, co.Drop(ctx, 2, sec.ID))

    sweep, err := mgr.Promote(ctx, sec.ID)
    require.NoError(t, err)
    assert.Equal(t, 2, sweep.Promoted)
    assert.Equal(t, 0, sweep.Skipped)

    // The two earliest joiners got the seats; the third keeps waiting
    // at the head of the line.
    assert.True(t, isActive(t, st, 3, sec.ID))
    assert.True(t, isActive(t, st, 4, sec.ID))
    assert.False(t, isActive(t, st, 5, sec.ID))

    rank, err := mgr.Position(ctx, 5, sec.ID)
    require.NoError(t, err)
    assert.Equal(t, 1, rank)

    // A promoted entry is terminal: no position, no withdrawal.
    _, err = mgr.Position(ctx, 3, sec.ID)
    require.ErrorIs(t, err, ErrNotWaiting)
    require.ErrorIs(t, mgr.Withdraw(ctx, 3, sec.ID), ErrNotWaiting)

    got, err := st.SectionByID(ctx, sec.ID)
    require.NoError(t, err)
    assert.Equal(t, uint32(2), got.Enrolled)
}

func TestPromoteSkipsConflictedAndKeepsGoing(t *testing.T) {
    ctx := context.Background()
    st := memory.New()
    secX := seedSection(t, st, "CS101", "2026F", "Mon 10:00-11:00", 1)
    secY := seedSection(t, st, "MATH200", "2026F", "Mon 10:30-11:30", 5)
    co := newCoordinator(st)
    notifier := &recordingNotifier{}
    mgr := newManager(st, notifier)

    _, err := co.Enroll(ctx, 1, secX.ID) // fills the seat
    require.NoError(t, err)
    _, err = co.Enroll(ctx, 2, secX.ID) // waits at position 1
    require.NoError(t, err)
    _, err = co.Enroll(ctx, 3, secX.ID) // waits at position 2
    require.NoError(t, err)

    // While waiting, student 2 picks up a clashing class elsewhere.
    _, err = co.Enroll(ctx, 2, secY.ID)
    require.NoError(t, err)

    require.NoError(t, co.Drop(ctx, 1, secX.ID))

    sweep, err := mgr.Promote(ctx, secX.ID)
    require.NoError(t, err)
    assert.Equal(t, 1, sweep.Promoted)
    assert.Equal(t, 1, sweep.Skipped)

    assert.False(t, isActive(t, st, 2, secX.ID))
    assert.True(t, isActive(t, st, 3, secX.ID))

    // The skipped entry is terminal, not re-queued.
    _, err = mgr.Position(ctx, 2, secX.ID)
    require.ErrorIs(t, err, ErrNotWaiting)

    require.Equal(t, []string{notify.EventPromotionSkipped, notify.EventWaitlistPromoted}, notifier.events)
    assert.Equal(t, uint64(2), notifier.notices[0].StudentID)
    assert.Equal(t, "MATH200", notifier.notices[0].ConflictWith)
    assert.Equal(t, uint64(3), notifier.notices[1].StudentID)
    assert.Equal(t, "CS101", notifier.notices[1].CourseCode)
}

func TestPromoteSkipsStudentAlreadyHoldingSeat(t *testing.T) {
    ctx := context.Background()
    st := memory.New()
    sec := seedSection(t, st, "CS101", "2026F", "Mon/Wed 10:00-11:30", 2)
    mgr := newManager(st, nil)

    // Out-of-band state: the student holds a seat and a WAITING entry
    // on the same section.  Imports from legacy systems produce this.
    err := st.InSectionTx(ctx, sec.ID, func(tx store.Tx) error {
        if _, err := tx.InsertEnrollment(ctx, 7); err != nil {
            return err
        }
        if err := tx.IncrementEnrolled(ctx); err != nil {
            return err
        }
        _, err := tx.AppendWaitlist(ctx, 7)
        return err
    })
    require.NoError(t, err)

    sweep, err := mgr.Promote(ctx, sec.ID)
    require.NoError(t, err)
    assert.Equal(t, 0, sweep.Promoted)
    assert.Equal(t, 1, sweep.Skipped)

    got, err := st.SectionByID(ctx, sec.ID)
    require.NoError(t, err)
    assert.Equal(t, uint32(1), got.Enrolled, "a student never holds two seats on one section")
}

func TestPromoteIsIdempotent(t *testing.T) {
    ctx := context.Background()
    st := memory.New()
    sec := seedSection(t, st, "CS101", "2026F", "Mon/Wed 10:00-11:30", 1)
    co := newCoordinator(st)
    mgr := newManager(st, nil)

    // Full section with a queue: nothing to do.
    _, err := co.Enroll(ctx, 1, sec.ID)
    require.NoError(t, err)
    _, err = co.Enroll(ctx, 2, sec.ID)
    require.NoError(t, err)

    sweep, err := mgr.Promote(ctx, sec.ID)
    require.NoError(t, err)
    assert.Zero(t, sweep.Promoted)
    assert.Zero(t, sweep.Skipped)

    // Free seat, then two sweeps: the duplicate delivery is a no-op.
    require.NoError(t, co.Drop(ctx, 1, sec.ID))
    sweep, err = mgr.Promote(ctx, sec.ID)
    require.NoError(t, err)
    assert.Equal(t, 1, sweep.Promoted)

    sweep, err = mgr.Promote(ctx, sec.ID)
    require.NoError(t, err)
    assert.Zero(t, sweep.Promoted)
    assert.Zero(t, sweep.Skipped)

    got, err := st.SectionByID(ctx, sec.ID)
    require.NoError(t, err)
    assert.Equal(t, uint32(1), got.Enrolled)
}

func TestWithdrawAbandonsPosition(t *testing.T) {
    ctx := context.Background()
    st := memory.New()
    sec := seedSection(t, st, "CS101", "2026F", "Mon/Wed 10:00-11:30", 1)
    co := newCoordinator(st)
    mgr := newManager(st, nil)

    for _, studentID := range []uint64{1, 2, 3, 4} {
        _, err := co.Enroll(ctx, studentID, sec.ID)
        require.NoError(t, err)
    }

    require.NoError(t, mgr.Withdraw(ctx, 3, sec.ID))

    // Students behind the gap move up in rank.
    rank, err := mgr.Position(ctx, 4, sec.ID)
    require.NoError(t, err)
    assert.Equal(t, 2, rank)

    // Withdrawal is terminal.
    require.ErrorIs(t, mgr.Withdraw(ctx, 3, sec.ID), ErrNotWaiting)

    // The vacated position number is never handed out again.
    res, err := co.Enroll(ctx, 5, sec.ID)
    require.NoError(t, err)
    require.NotNil(t, res.Entry)
    assert.Equal(t, uint64(4), res.Entry.Position)
    assert.Equal(t, 3, res.Rank)
}

func TestPositionRequiresWaitingEntry(t *testing.T) {
    ctx := context.Background()
    st := memory.New()
    sec := seedSection(t, st, "CS101", "2026F", "Mon/Wed 10:00-11:30", 1)
    mgr := newManager(st, nil)

    _, err := mgr.Position(ctx, 42, sec.ID)
    require.ErrorIs(t, err, ErrNotWaiting)
}
