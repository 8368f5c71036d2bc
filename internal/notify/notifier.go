// Package notify delivers enrollment notices to out-of-band consumers
// such as mailers and student portals.  Delivery is fire-and-forget:
// producers call the notifier only after their transaction has
// committed, and failures are logged and returned so callers can
// ignore them without interrupting the main flow.
package notify

import "context"

// Event names carried in Notice.Event.
const (
    EventEnrollmentConfirmed = "enrollment.confirmed"
    EventWaitlistPromoted    = "waitlist.promoted"
    EventPromotionSkipped    = "waitlist.promotion_skipped"
)

// Notice is the payload published for every notification event.  It
// contains enough information for downstream consumers to render a
// message without querying the primary database.
type Notice struct {
    Event        string `json:"event"`
    StudentID    uint64 `json:"student_id"`
    SectionID    uint64 `json:"section_id"`
    CourseCode   string `json:"course_code"`
    CourseTitle  string `json:"course_title"`
    Semester     string `json:"semester"`
    Schedule     string `json:"schedule"`
    Room         string `json:"room,omitempty"`
    Position     uint64 `json:"position,omitempty"`      // waitlist position, when relevant
    ConflictWith string `json:"conflict_with,omitempty"` // course code that blocked a promotion
    ActionToken  string `json:"action_token,omitempty"`  // signed one-click drop/withdraw token
    OccurredAt   string `json:"occurred_at"`
}

// Notifier delivers notices for the three events the allocator emits.
// Implementations must be safe for concurrent use.
type Notifier interface {
    // EnrollmentConfirmed fires when a student obtains a seat
    // directly, without queueing.
    EnrollmentConfirmed(ctx context.Context, n Notice) error
    // WaitlistPromoted fires when a queued student is moved into a
    // freed seat.
    WaitlistPromoted(ctx context.Context, n Notice) error
    // PromotionSkipped fires when a queued student could not take a
    // freed seat (schedule conflict or existing enrollment) and the
    // entry was resolved as failed.
    PromotionSkipped(ctx context.Context, n Notice) error
}
