package model

import "time"

// Enrollment statuses.  Rows never move back to ACTIVE once dropped;
// re-enrolling creates a new row so the history stays intact.
const (
    EnrollmentActive  = "ACTIVE"
    EnrollmentDropped = "DROPPED"
)

// Enrollment records a student's claim on a seat in a section.  The
// table is append-only: dropping marks the row DROPPED instead of
// deleting it, which preserves enrollment history for auditing.  At
// most one ACTIVE row may exist per (student, section) pair.
//
// Fields:
//  ID         – primary key identifier.
//  StudentID  – external student identifier (opaque to this module).
//  SectionID  – section the seat belongs to.
//  Status     – state of the claim (ACTIVE, DROPPED).
//  EnrolledAt – when the seat was claimed.
//  DroppedAt  – when the seat was given up, nil while ACTIVE.
type Enrollment struct {
    ID         uint64     // enrollments.id
    StudentID  uint64     // enrollments.student_id
    SectionID  uint64     // enrollments.section_id
    Status     string     // enrollments.status
    EnrolledAt time.Time  // enrollments.enrolled_at
    DroppedAt  *time.Time // enrollments.dropped_at (nullable)
}
