// Package store defines the persistence contract for sections,
// enrollments and waitlist entries.  Every mutation of a section's
// state happens inside InSectionTx, which runs the callback while the
// section row is exclusively locked; the commit at the end of the
// callback is the single point where the changes become visible.
// These sentinel values allow higher layers to distinguish between
// different failure scenarios without depending on a concrete
// implementation.
package store

import (
    "context"
    "errors"

    "github.com/seatwise/course-enrollment/internal/model"
)

// ErrSectionNotFound is returned when a section id does not exist.
var ErrSectionNotFound = errors.New("section not found")

// ErrCourseNotFound is returned when a course id does not exist.
var ErrCourseNotFound = errors.New("course not found")

// ErrEnrollmentNotFound is returned when an enrollment row to update
// is missing or no longer ACTIVE.
var ErrEnrollmentNotFound = errors.New("enrollment not found")

// ErrEntryNotFound is returned when a waitlist entry to update or
// rank is missing or no longer WAITING.
var ErrEntryNotFound = errors.New("waitlist entry not found")

// ErrSectionFull is returned when an enrolled increment would exceed
// the section's capacity.  Under the exclusive lock callers check
// capacity before incrementing, so surfacing this error indicates a
// logic bug rather than a lost race.
var ErrSectionFull = errors.New("section full")

// ErrNoChange indicates an UPDATE matched no rows, e.g. decrementing
// an already-zero enrolled counter.
var ErrNoChange = errors.New("no change")

// ErrDuplicate is returned when an insert violates a uniqueness
// constraint, such as seeding a course code twice.
var ErrDuplicate = errors.New("duplicate")

// ErrTxConflict is returned when the database aborts a transaction
// for concurrency reasons (deadlock, lock wait timeout, serialization
// failure).  The operation did not take effect and is safe to retry.
var ErrTxConflict = errors.New("transaction conflict")

// StudentMeeting pairs a section a student is actively enrolled in
// with the data needed for conflict checking and conflict reporting.
type StudentMeeting struct {
    SectionID  uint64 // section the student already holds a seat in
    CourseCode string // catalog code, used in error details and notices
    Semester   string // term of that section
    Schedule   string // raw catalog meeting string
}

// Tx exposes the state of a single section while its row lock is
// held.  All reads observe the transaction's snapshot and all writes
// become visible atomically when InSectionTx commits.  Methods that
// look a row up by student return (nil, nil) when no live row exists,
// because absence is an ordinary outcome in allocation flows.
type Tx interface {
    // Section returns the locked section.  The copy is kept in step
    // with IncrementEnrolled/DecrementEnrolled calls made through
    // this transaction, so loops can re-check remaining capacity
    // without re-querying.
    Section() *model.Section

    // ActiveEnrollment returns the student's ACTIVE enrollment on the
    // locked section, or (nil, nil) when there is none.
    ActiveEnrollment(ctx context.Context, studentID uint64) (*model.Enrollment, error)

    // ActiveMeetings lists the student's other ACTIVE enrollments in
    // the given semester together with their schedules.  The locked
    // section itself is excluded.  Rows of other sections are read
    // without taking their locks.
    ActiveMeetings(ctx context.Context, studentID uint64, semester string) ([]StudentMeeting, error)

    // InsertEnrollment appends a new ACTIVE enrollment for the
    // student on the locked section and returns the stored row.
    InsertEnrollment(ctx context.Context, studentID uint64) (*model.Enrollment, error)

    // DropEnrollment transitions an enrollment from ACTIVE to DROPPED.
    // It fails with ErrEnrollmentNotFound when the row is missing or
    // already dropped.
    DropEnrollment(ctx context.Context, enrollmentID uint64) error

    // IncrementEnrolled raises the enrolled counter by one and bumps
    // the section version.  Fails with ErrSectionFull at capacity.
    IncrementEnrolled(ctx context.Context) error

    // DecrementEnrolled lowers the enrolled counter by one and bumps
    // the section version.  Fails with ErrNoChange at zero.
    DecrementEnrolled(ctx context.Context) error

    // AppendWaitlist queues the student at the end of the section's
    // waitlist, assigning the next position in the per-section
    // sequence, and returns the stored entry.
    AppendWaitlist(ctx context.Context, studentID uint64) (*model.WaitlistEntry, error)

    // WaitingEntry returns the student's WAITING entry on the locked
    // section, or (nil, nil) when there is none.
    WaitingEntry(ctx context.Context, studentID uint64) (*model.WaitlistEntry, error)

    // NextWaiting returns the WAITING entry with the lowest position
    // strictly greater than after, or (nil, nil) when the queue is
    // exhausted.  Passing 0 starts from the head.
    NextWaiting(ctx context.Context, after uint64) (*model.WaitlistEntry, error)

    // ResolveWaitlist transitions an entry from WAITING to the given
    // terminal status (PROMOTED, WITHDRAWN or PROMOTION_FAILED).  It
    // fails with ErrEntryNotFound when the entry is missing or has
    // already left WAITING.
    ResolveWaitlist(ctx context.Context, entryID uint64, status string) error

    // WaitingRank returns the 1-based place in line of the WAITING
    // entry holding the given position.
    WaitingRank(ctx context.Context, position uint64) (int, error)
}

// Store is the persistence boundary of the allocator.  InSectionTx is
// the only way to mutate allocation state; the remaining methods are
// read-only lookups and catalog provisioning.
type Store interface {
    // InSectionTx runs fn inside a transaction that holds an
    // exclusive lock on the section row for its whole duration.  A
    // nil return from fn commits; any error rolls back and is
    // returned.  Concurrency aborts surface as ErrTxConflict.
    InSectionTx(ctx context.Context, sectionID uint64, fn func(Tx) error) error

    // SectionByID fetches a section without locking it.
    SectionByID(ctx context.Context, id uint64) (*model.Section, error)

    // CourseByID fetches a course.
    CourseByID(ctx context.Context, id uint64) (*model.Course, error)

    // WaitingRank returns the student's 1-based place among WAITING
    // entries of a section, or ErrEntryNotFound when the student has
    // no WAITING entry there.  It is a read-only count and takes no
    // lock, so the answer may be stale by the time it is used.
    WaitingRank(ctx context.Context, studentID, sectionID uint64) (int, error)

    // PromotableSections lists ids of sections that currently have
    // both free capacity and at least one WAITING entry.  Used by the
    // reconciliation sweeper.
    PromotableSections(ctx context.Context) ([]uint64, error)

    // CreateCourse inserts a catalog course and fills in its id.
    CreateCourse(ctx context.Context, c *model.Course) error

    // CreateSection inserts a section and fills in its id.
    CreateSection(ctx context.Context, s *model.Section) error

    // Close releases the underlying resources.
    Close() error
}
