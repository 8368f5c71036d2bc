// Package enrollment implements the allocation side of course
// registration: claiming seats inside exclusively locked transactions
// and releasing them again.  Waitlist promotion lives in the waitlist
// package; the coordinator only queues students when a section is
// full and hands freed capacity to the promotion pipeline.  These
// sentinel values let callers distinguish rejection reasons with
// errors.Is.
package enrollment

import (
    "errors"
    "fmt"
)

// ErrAlreadyEnrolled rejects an enrollment when the student already
// holds an ACTIVE seat on the section.
var ErrAlreadyEnrolled = errors.New("already enrolled")

// ErrAlreadyWaitlisted rejects an enrollment when the student is
// already WAITING on the section.  A student is committed, queued or
// neither on a given section, never both.
var ErrAlreadyWaitlisted = errors.New("already waitlisted")

// ErrScheduleConflict rejects an enrollment whose meeting times
// collide with one of the student's other ACTIVE enrollments in the
// same semester.  Use errors.As with *ConflictError to learn which
// enrollment blocked it.
var ErrScheduleConflict = errors.New("schedule conflict")

// ErrNotEnrolled is returned by Drop when the student has no ACTIVE
// enrollment on the section.
var ErrNotEnrolled = errors.New("not enrolled")

// ErrContention is returned when an operation kept colliding with
// concurrent transactions and exhausted its retries.  Nothing was
// changed; the caller may try again.
var ErrContention = errors.New("transaction contention")

// ConflictError reports which existing enrollment blocked a seat
// claim.  It unwraps to ErrScheduleConflict so errors.Is keeps
// working for callers that do not care about the detail.
type ConflictError struct {
    SectionID  uint64 // section already occupying the time slot
    CourseCode string // its catalog code
}

func (e *ConflictError) Error() string {
    return fmt.Sprintf("schedule conflict with %s (section %d)", e.CourseCode, e.SectionID)
}

func (e *ConflictError) Unwrap() error { return ErrScheduleConflict }
