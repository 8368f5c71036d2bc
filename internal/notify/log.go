package notify

import (
    "context"
    "log"
)

// LogNotifier writes notices to the process log in a single-line,
// human-friendly format.  It is the fallback when no broker is
// configured, keeping notice delivery observable in development.
type LogNotifier struct{}

var _ Notifier = LogNotifier{}

func (LogNotifier) EnrollmentConfirmed(ctx context.Context, n Notice) error {
    log.Printf("notice: enrollment confirmed | student_id=%d | section_id=%d | course=%q | semester=%s | schedule=%q",
        n.StudentID, n.SectionID, n.CourseCode, n.Semester, n.Schedule)
    return nil
}

func (LogNotifier) WaitlistPromoted(ctx context.Context, n Notice) error {
    log.Printf("notice: promoted from waitlist | student_id=%d | section_id=%d | course=%q | position=%d",
        n.StudentID, n.SectionID, n.CourseCode, n.Position)
    return nil
}

func (LogNotifier) PromotionSkipped(ctx context.Context, n Notice) error {
    log.Printf("notice: promotion skipped | student_id=%d | section_id=%d | course=%q | conflict_with=%q",
        n.StudentID, n.SectionID, n.CourseCode, n.ConflictWith)
    return nil
}
