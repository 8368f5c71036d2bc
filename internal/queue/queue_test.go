package queue

import (
    "context"
    "encoding/json"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/seatwise/course-enrollment/internal/enrollment"
    "github.com/seatwise/course-enrollment/internal/model"
    "github.com/seatwise/course-enrollment/internal/store"
    "github.com/seatwise/course-enrollment/internal/store/memory"
    "github.com/seatwise/course-enrollment/internal/waitlist"
)

func seedSection(t *testing.T, st *memory.Store, code string, capacity uint32) *model.Section {
    t.Helper()
    ctx := context.Background()
    course := &model.Course{Code: code, Title: code + " Lecture", Credits: 3}
    require.NoError(t, st.CreateCourse(ctx, course))
    sec := &model.Section{
        CourseID: course.ID,
        Semester: "2026F",
        Capacity: capacity,
        Schedule: "Mon/Wed 10:00-11:30",
        Room:     "H-201",
    }
    require.NoError(t, st.CreateSection(ctx, sec))
    return sec
}

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

type recordingDispatcher struct {
    mu       sync.Mutex
    sections []uint64
}

func (d *recordingDispatcher) DispatchPromotion(_ context.Context, sectionID uint64) error {
    d.mu.Lock()
    defer d.mu.Unlock()
    d.sections = append(d.sections, sectionID)
    return nil
}

func TestInProcDispatcherPromotesAfterDrop(t *testing.T) {
    ctx := context.Background()
    st := memory.New()
    sec := seedSection(t, st, "CS101", 1)
    mgr := waitlist.New(waitlist.Config{Store: st, Backoff: time.Millisecond})
    dispatcher := NewInProcDispatcher(mgr, 2, 16)
    co := enrollment.New(enrollment.Config{Store: st, Dispatcher: dispatcher, Backoff: time.Millisecond})

    _, err := co.Enroll(ctx, 1, sec.ID)
    require.NoError(t, err)
    res, err := co.Enroll(ctx, 2, sec.ID)
    require.NoError(t, err)
    require.Equal(t, enrollment.StatusWaitlisted, res.Status)

    require.NoError(t, co.Drop(ctx, 1, sec.ID))

    // Stop drains the queue, so the sweep has run by the time it returns.
    dispatcher.Stop()

    assert.True(t, isActive(t, st, 2, sec.ID))
    got, err := st.SectionByID(ctx, sec.ID)
    require.NoError(t, err)
    assert.Equal(t, uint32(1), got.Enrolled)
}

func TestHandleTaskSweepsSection(t *testing.T) {
    ctx := context.Background()
    st := memory.New()
    sec := seedSection(t, st, "CS101", 1)
    mgr := waitlist.New(waitlist.Config{Store: st, Backoff: time.Millisecond})
    co := enrollment.New(enrollment.Config{Store: st, Backoff: time.Millisecond})

    _, err := co.Enroll(ctx, 1, sec.ID)
    require.NoError(t, err)
    _, err = co.Enroll(ctx, 2, sec.ID)
    require.NoError(t, err)
    require.NoError(t, co.Drop(ctx, 1, sec.ID))

    body, err := json.Marshal(PromotionTask{TaskID: "t-1", SectionID: sec.ID, EnqueuedAt: time.Now().UTC().Format(time.RFC3339)})
    require.NoError(t, err)
    require.NoError(t, handleTask(ctx, mgr, nil, body))

    assert.True(t, isActive(t, st, 2, sec.ID))

    // Duplicate delivery of the same task is harmless.
    require.NoError(t, handleTask(ctx, mgr, nil, body))
}

func TestHandleTaskRejectsGarbage(t *testing.T) {
    mgr := waitlist.New(waitlist.Config{Store: memory.New(), Backoff: time.Millisecond})
    require.Error(t, handleTask(context.Background(), mgr, nil, []byte("not json")))
}

func TestSweepOnceDispatchesPromotableSections(t *testing.T) {
    ctx := context.Background()
    st := memory.New()
    freed := seedSection(t, st, "CS101", 1)
    full := seedSection(t, st, "MATH200", 1)
    seedSection(t, st, "PHYS150", 1) // no queue, no free-seat pressure
    co := enrollment.New(enrollment.Config{Store: st, Backoff: time.Millisecond})

    // freed: one free seat and one WAITING student.
    _, err := co.Enroll(ctx, 1, freed.ID)
    require.NoError(t, err)
    _, err = co.Enroll(ctx, 2, freed.ID)
    require.NoError(t, err)
    require.NoError(t, co.Drop(ctx, 1, freed.ID))

    // full: a queue but no free seat.
    _, err = co.Enroll(ctx, 3, full.ID)
    require.NoError(t, err)
    _, err = co.Enroll(ctx, 4, full.ID)
    require.NoError(t, err)

    d := &recordingDispatcher{}
    sweepOnce(ctx, st, d)

    assert.Equal(t, []uint64{freed.ID}, d.sections)
}
