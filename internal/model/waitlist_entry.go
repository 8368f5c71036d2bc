package model

import "time"

// Waitlist entry statuses.  WAITING is the only live state; the other
// three are terminal.  An entry leaves WAITING exactly once and never
// returns, so a student who wants back in line must re-enroll and
// receive a fresh entry with a new, higher position.
const (
    WaitlistWaiting         = "WAITING"
    WaitlistPromoted        = "PROMOTED"
    WaitlistWithdrawn       = "WITHDRAWN"
    WaitlistPromotionFailed = "PROMOTION_FAILED"
)

// WaitlistEntry queues a student for a seat in a full section.
// Positions are assigned once, under the section's exclusive lock,
// from a per-section strictly increasing sequence; they are never
// reassigned or reused, even after entries resolve.  Promotion order
// is ascending position among WAITING entries.
//
// Fields:
//  ID         – primary key identifier.
//  StudentID  – external student identifier.
//  SectionID  – section being waited on.
//  Position   – per-section sequence number, immutable.
//  Status     – WAITING, PROMOTED, WITHDRAWN or PROMOTION_FAILED.
//  JoinedAt   – when the entry was queued.
//  ResolvedAt – when the entry left WAITING, nil while live.
type WaitlistEntry struct {
    ID         uint64     // waitlist_entries.id
    StudentID  uint64     // waitlist_entries.student_id
    SectionID  uint64     // waitlist_entries.section_id
    Position   uint64     // waitlist_entries.position
    Status     string     // waitlist_entries.status
    JoinedAt   time.Time  // waitlist_entries.joined_at
    ResolvedAt *time.Time // waitlist_entries.resolved_at (nullable)
}
