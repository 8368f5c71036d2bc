package memory

import (
    "context"
    "errors"
    "sync"
    "sync/atomic"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/seatwise/course-enrollment/internal/model"
    "github.com/seatwise/course-enrollment/internal/store"
)

// seedSection creates one course with one section and returns the
// section id.
func seedSection(t *testing.T, s *Store, capacity uint32) uint64 {
    t.Helper()
    course := &model.Course{Code: "CS101", Title: "Intro to Computer Science", Credits: 4}
    require.NoError(t, s.CreateCourse(context.Background(), course))
    sec := &model.Section{
        CourseID: course.ID,
        Semester: "2026F",
        Capacity: capacity,
        Schedule: "Mon/Wed 10:00-11:30",
        Room:     "H-201",
    }
    require.NoError(t, s.CreateSection(context.Background(), sec))
    return sec.ID
}

func TestCreateAndLookup(t *testing.T) {
    s := New()
    id := seedSection(t, s, 3)

    sec, err := s.SectionByID(context.Background(), id)
    require.NoError(t, err)
    assert.Equal(t, uint32(3), sec.Capacity)
    assert.Equal(t, uint32(0), sec.Enrolled)
    assert.Equal(t, uint64(0), sec.Version)

    course, err := s.CourseByID(context.Background(), sec.CourseID)
    require.NoError(t, err)
    assert.Equal(t, "CS101", course.Code)

    _, err = s.SectionByID(context.Background(), 9999)
    assert.ErrorIs(t, err, store.ErrSectionNotFound)

    err = s.CreateCourse(context.Background(), &model.Course{Code: "CS101", Title: "duplicate"})
    assert.ErrorIs(t, err, store.ErrDuplicate)

    err = s.CreateSection(context.Background(), &model.Section{CourseID: 9999, Semester: "2026F", Capacity: 1})
    assert.ErrorIs(t, err, store.ErrCourseNotFound)
}

func TestTxErrorDiscardsStagedState(t *testing.T) {
    s := New()
    id := seedSection(t, s, 3)

    boom := errors.New("boom")
    err := s.InSectionTx(context.Background(), id, func(tx store.Tx) error {
        if _, err := tx.InsertEnrollment(context.Background(), 1); err != nil {
            return err
        }
        if err := tx.IncrementEnrolled(context.Background()); err != nil {
            return err
        }
        if _, err := tx.AppendWaitlist(context.Background(), 2); err != nil {
            return err
        }
        return boom
    })
    require.ErrorIs(t, err, boom)

    sec, err := s.SectionByID(context.Background(), id)
    require.NoError(t, err)
    assert.Equal(t, uint32(0), sec.Enrolled, "rolled back transaction must not change the counter")
    assert.Equal(t, uint64(0), sec.Version)

    err = s.InSectionTx(context.Background(), id, func(tx store.Tx) error {
        e, err := tx.ActiveEnrollment(context.Background(), 1)
        require.NoError(t, err)
        assert.Nil(t, e, "rolled back enrollment must not be visible")
        w, err := tx.WaitingEntry(context.Background(), 2)
        require.NoError(t, err)
        assert.Nil(t, w, "rolled back waitlist entry must not be visible")
        return nil
    })
    require.NoError(t, err)
}

func TestPositionsNeverReused(t *testing.T) {
    s := New()
    id := seedSection(t, s, 0)

    positions := make(map[uint64]uint64) // student -> position
    var firstEntry uint64
    err := s.InSectionTx(context.Background(), id, func(tx store.Tx) error {
        for _, student := range []uint64{1, 2} {
            w, err := tx.AppendWaitlist(context.Background(), student)
            if err != nil {
                return err
            }
            positions[student] = w.Position
            if student == 1 {
                firstEntry = w.ID
            }
        }
        return nil
    })
    require.NoError(t, err)
    assert.Equal(t, uint64(1), positions[1])
    assert.Equal(t, uint64(2), positions[2])

    // Resolving the head must not free its position for reuse.
    err = s.InSectionTx(context.Background(), id, func(tx store.Tx) error {
        return tx.ResolveWaitlist(context.Background(), firstEntry, model.WaitlistWithdrawn)
    })
    require.NoError(t, err)

    err = s.InSectionTx(context.Background(), id, func(tx store.Tx) error {
        w, err := tx.AppendWaitlist(context.Background(), 3)
        if err != nil {
            return err
        }
        assert.Equal(t, uint64(3), w.Position, "positions must keep increasing after entries resolve")
        return nil
    })
    require.NoError(t, err)
}

func TestResolveWaitlistIsCheckedAndSet(t *testing.T) {
    s := New()
    id := seedSection(t, s, 0)

    var entryID uint64
    err := s.InSectionTx(context.Background(), id, func(tx store.Tx) error {
        w, err := tx.AppendWaitlist(context.Background(), 7)
        if err != nil {
            return err
        }
        entryID = w.ID
        return tx.ResolveWaitlist(context.Background(), w.ID, model.WaitlistPromoted)
    })
    require.NoError(t, err)

    err = s.InSectionTx(context.Background(), id, func(tx store.Tx) error {
        return tx.ResolveWaitlist(context.Background(), entryID, model.WaitlistWithdrawn)
    })
    assert.ErrorIs(t, err, store.ErrEntryNotFound, "terminal entries must not transition again")
}

func TestCounterBounds(t *testing.T) {
    s := New()
    id := seedSection(t, s, 1)

    err := s.InSectionTx(context.Background(), id, func(tx store.Tx) error {
        return tx.DecrementEnrolled(context.Background())
    })
    assert.ErrorIs(t, err, store.ErrNoChange)

    err = s.InSectionTx(context.Background(), id, func(tx store.Tx) error {
        if err := tx.IncrementEnrolled(context.Background()); err != nil {
            return err
        }
        return tx.IncrementEnrolled(context.Background())
    })
    assert.ErrorIs(t, err, store.ErrSectionFull)

    // The failed second increment rolled the whole transaction back.
    sec, err := s.SectionByID(context.Background(), id)
    require.NoError(t, err)
    assert.Equal(t, uint32(0), sec.Enrolled)
}

func TestSectionLockIsExclusive(t *testing.T) {
    s := New()
    id := seedSection(t, s, 100)

    var active atomic.Int32
    var overlapped atomic.Bool
    var wg sync.WaitGroup
    for i := 0; i < 16; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            err := s.InSectionTx(context.Background(), id, func(tx store.Tx) error {
                if active.Add(1) > 1 {
                    overlapped.Store(true)
                }
                defer active.Add(-1)
                time.Sleep(2 * time.Millisecond)
                return tx.IncrementEnrolled(context.Background())
            })
            assert.NoError(t, err)
        }()
    }
    wg.Wait()

    assert.False(t, overlapped.Load(), "two transactions held the same section lock at once")
    sec, err := s.SectionByID(context.Background(), id)
    require.NoError(t, err)
    assert.Equal(t, uint32(16), sec.Enrolled)
    assert.Equal(t, uint64(16), sec.Version)
}

func TestWaitingRank(t *testing.T) {
    s := New()
    id := seedSection(t, s, 0)

    err := s.InSectionTx(context.Background(), id, func(tx store.Tx) error {
        for _, student := range []uint64{10, 20, 30} {
            if _, err := tx.AppendWaitlist(context.Background(), student); err != nil {
                return err
            }
        }
        return nil
    })
    require.NoError(t, err)

    rank, err := s.WaitingRank(context.Background(), 20, id)
    require.NoError(t, err)
    assert.Equal(t, 2, rank)

    _, err = s.WaitingRank(context.Background(), 99, id)
    assert.ErrorIs(t, err, store.ErrEntryNotFound)

    // Head resolution shifts everyone up by one.
    err = s.InSectionTx(context.Background(), id, func(tx store.Tx) error {
        head, err := tx.NextWaiting(context.Background(), 0)
        if err != nil {
            return err
        }
        return tx.ResolveWaitlist(context.Background(), head.ID, model.WaitlistWithdrawn)
    })
    require.NoError(t, err)

    rank, err = s.WaitingRank(context.Background(), 20, id)
    require.NoError(t, err)
    assert.Equal(t, 1, rank)
}
