package model

import "time"

// Section represents a single offering of a course in a given
// semester.  Capacity bounds the number of ACTIVE enrollments and
// never changes after creation; the enrolled counter is only ever
// mutated while the section row is exclusively locked, so it can be
// trusted without re-counting enrollment rows.  Version increases on
// every committed mutation of the row and exists for observability
// and cache validation, not for optimistic locking.
//
// Fields:
//  ID        – primary key identifier.
//  CourseID  – course this section belongs to.
//  Semester  – term the section runs in (e.g. "2026F").
//  Capacity  – maximum number of ACTIVE enrollments (positive).
//  Enrolled  – current number of ACTIVE enrollments (0..Capacity).
//  Version   – monotonic change counter for the row.
//  Schedule  – catalog meeting string (e.g. "Mon/Wed 10:00-11:30").
//  Room      – room label, informational only.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Section struct {
    ID        uint64    // sections.id
    CourseID  uint64    // sections.course_id
    Semester  string    // sections.semester
    Capacity  uint32    // sections.capacity
    Enrolled  uint32    // sections.enrolled
    Version   uint64    // sections.version
    Schedule  string    // sections.schedule
    Room      string    // sections.room
    CreatedAt time.Time // sections.created_at
    UpdatedAt time.Time // sections.updated_at
}
