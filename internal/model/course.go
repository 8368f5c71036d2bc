package model

import "time"

// Course describes a catalog course that sections are offered under.
// Courses carry the identity shown in notices (code and title) while
// sections carry the per-term scheduling and capacity data.
//
// Fields:
//  ID        – primary key identifier.
//  Code      – unique catalog code (e.g. "CS101").
//  Title     – human readable course title.
//  Credits   – credit hours awarded on completion.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Course struct {
    ID        uint64    // courses.id
    Code      string    // courses.code
    Title     string    // courses.title
    Credits   uint32    // courses.credits
    CreatedAt time.Time // courses.created_at
    UpdatedAt time.Time // courses.updated_at
}
