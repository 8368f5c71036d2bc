package mysql

import (
    "context"
    "database/sql"
    "errors"
    "os"
    "sync"
    "testing"

    "github.com/google/uuid"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/seatwise/course-enrollment/internal/model"
    "github.com/seatwise/course-enrollment/internal/store"
)

// Integration tests need a real MySQL and are skipped without one:
//
//   MYSQL_TEST_DSN="root@tcp(localhost:3306)/enroll_test?charset=utf8mb4&parseTime=true&loc=UTC" go test ./internal/store/mysql/
func openTestStore(t *testing.T) *Store {
    t.Helper()
    dsn := os.Getenv("MYSQL_TEST_DSN")
    if dsn == "" {
        t.Skip("MYSQL_TEST_DSN not set")
    }
    db, err := sql.Open("mysql", dsn)
    require.NoError(t, err)
    st := New(db)
    require.NoError(t, st.Migrate(context.Background()))
    t.Cleanup(func() { _ = st.Close() })
    return st
}

// seedTestSection creates a course with a unique code so repeated test
// runs never trip the uq_courses_code constraint.
func seedTestSection(t *testing.T, st *Store, capacity uint32) *model.Section {
    t.Helper()
    ctx := context.Background()
    course := &model.Course{Code: "T-" + uuid.NewString()[:13], Title: "Integration Fixture", Credits: 3}
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

func TestLifecycleAgainstMySQL(t *testing.T) {
    st := openTestStore(t)
    ctx := context.Background()
    sec := seedTestSection(t, st, 1)

    // Claim the only seat.
    err := st.InSectionTx(ctx, sec.ID, func(tx store.Tx) error {
        existing, err := tx.ActiveEnrollment(ctx, 101)
        if err != nil {
            return err
        }
        require.Nil(t, existing)
        if _, err := tx.InsertEnrollment(ctx, 101); err != nil {
            return err
        }
        return tx.IncrementEnrolled(ctx)
    })
    require.NoError(t, err)

    // A second claim rolls back whole: no counter move, no orphan row.
    err = st.InSectionTx(ctx, sec.ID, func(tx store.Tx) error {
        if _, err := tx.InsertEnrollment(ctx, 102); err != nil {
            return err
        }
        return tx.IncrementEnrolled(ctx)
    })
    require.ErrorIs(t, err, store.ErrSectionFull)

    got, err := st.SectionByID(ctx, sec.ID)
    require.NoError(t, err)
    assert.Equal(t, uint32(1), got.Enrolled)

    // Queue student 102, check the rank, then run a promotion pass by hand.
    var entryID uint64
    err = st.InSectionTx(ctx, sec.ID, func(tx store.Tx) error {
        entry, err := tx.AppendWaitlist(ctx, 102)
        if err != nil {
            return err
        }
        entryID = entry.ID
        require.Equal(t, uint64(1), entry.Position)
        return nil
    })
    require.NoError(t, err)

    rank, err := st.WaitingRank(ctx, 102, sec.ID)
    require.NoError(t, err)
    assert.Equal(t, 1, rank)

    // Free the seat; the section becomes promotable.
    err = st.InSectionTx(ctx, sec.ID, func(tx store.Tx) error {
        enr, err := tx.ActiveEnrollment(ctx, 101)
        if err != nil {
            return err
        }
        require.NotNil(t, enr)
        if err := tx.DropEnrollment(ctx, enr.ID); err != nil {
            return err
        }
        return tx.DecrementEnrolled(ctx)
    })
    require.NoError(t, err)

    promotable, err := st.PromotableSections(ctx)
    require.NoError(t, err)
    assert.Contains(t, promotable, sec.ID)

    // Resolve the entry; resolving twice must hit the status predicate.
    err = st.InSectionTx(ctx, sec.ID, func(tx store.Tx) error {
        next, err := tx.NextWaiting(ctx, 0)
        if err != nil {
            return err
        }
        require.NotNil(t, next)
        require.Equal(t, entryID, next.ID)
        return tx.ResolveWaitlist(ctx, next.ID, model.WaitlistPromoted)
    })
    require.NoError(t, err)

    err = st.InSectionTx(ctx, sec.ID, func(tx store.Tx) error {
        return tx.ResolveWaitlist(ctx, entryID, model.WaitlistWithdrawn)
    })
    require.ErrorIs(t, err, store.ErrEntryNotFound)
}

func TestConcurrentClaimsAgainstMySQL(t *testing.T) {
    st := openTestStore(t)
    ctx := context.Background()
    sec := seedTestSection(t, st, 3)

    claim := func(studentID uint64) (bool, error) {
        for attempt := 0; attempt < 10; attempt++ {
            err := st.InSectionTx(ctx, sec.ID, func(tx store.Tx) error {
                if _, err := tx.InsertEnrollment(ctx, studentID); err != nil {
                    return err
                }
                return tx.IncrementEnrolled(ctx)
            })
            switch {
            case err == nil:
                return true, nil
            case errors.Is(err, store.ErrSectionFull):
                return false, nil
            case errors.Is(err, store.ErrTxConflict):
                continue
            default:
                return false, err
            }
        }
        return false, errors.New("claim kept conflicting")
    }

    const students = 8
    var wg sync.WaitGroup
    wins := make(chan uint64, students)
    for i := 1; i <= students; i++ {
        wg.Add(1)
        go func(studentID uint64) {
            defer wg.Done()
            won, err := claim(studentID)
            assert.NoError(t, err)
            if won {
                wins <- studentID
            }
        }(uint64(i))
    }
    wg.Wait()
    close(wins)

    var winners []uint64
    for id := range wins {
        winners = append(winners, id)
    }
    assert.Len(t, winners, 3)

    got, err := st.SectionByID(ctx, sec.ID)
    require.NoError(t, err)
    assert.Equal(t, uint32(3), got.Enrolled)

    // Losing transactions rolled back whole: no ACTIVE rows beyond the
    // three winners.
    err = st.InSectionTx(ctx, sec.ID, func(tx store.Tx) error {
        active := 0
        for i := uint64(1); i <= students; i++ {
            enr, err := tx.ActiveEnrollment(ctx, i)
            if err != nil {
                return err
            }
            if enr != nil {
                active++
            }
        }
        assert.Equal(t, 3, active)
        return nil
    })
    require.NoError(t, err)
}
