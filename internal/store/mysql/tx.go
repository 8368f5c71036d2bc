package mysql

import (
    "context"
    "database/sql"
    "errors"

    "github.com/seatwise/course-enrollment/internal/model"
    "github.com/seatwise/course-enrollment/internal/store"
)

// sectionTx implements store.Tx for one locked section.  It keeps the
// section snapshot in step with counter updates made through it, so
// promotion loops can re-check remaining capacity without another
// query.  All statements run on the surrounding transaction; the
// caller owns commit and rollback.
type sectionTx struct {
    tx  *sql.Tx
    sec *model.Section
}

var _ store.Tx = (*sectionTx)(nil)

// Section returns the locked section snapshot.
func (t *sectionTx) Section() *model.Section { return t.sec }

// ActiveEnrollment looks up the student's ACTIVE enrollment on the
// locked section.  Absence is an ordinary outcome and returns
// (nil, nil) rather than an error.
func (t *sectionTx) ActiveEnrollment(ctx context.Context, studentID uint64) (*model.Enrollment, error) {
    const q = `SELECT id, student_id, section_id, status, enrolled_at, dropped_at
               FROM enrollments
               WHERE student_id = ? AND section_id = ? AND status = 'ACTIVE'`
    var e model.Enrollment
    err := t.tx.QueryRowContext(ctx, q, studentID, t.sec.ID).Scan(
        &e.ID, &e.StudentID, &e.SectionID, &e.Status, &e.EnrolledAt, &e.DroppedAt,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return &e, nil
}

// ActiveMeetings lists the student's other ACTIVE enrollments in the
// given semester along with their schedules.  The locked section is
// excluded; the other rows are plain reads and take no locks.
func (t *sectionTx) ActiveMeetings(ctx context.Context, studentID uint64, semester string) ([]store.StudentMeeting, error) {
    const q = `SELECT s.id, c.code, s.semester, s.schedule
               FROM enrollments e
               JOIN sections s ON s.id = e.section_id
               JOIN courses c ON c.id = s.course_id
               WHERE e.student_id = ? AND e.status = 'ACTIVE' AND s.semester = ? AND s.id <> ?
               ORDER BY s.id`
    rows, err := t.tx.QueryContext(ctx, q, studentID, semester, t.sec.ID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var meetings []store.StudentMeeting
    for rows.Next() {
        var m store.StudentMeeting
        if err := rows.Scan(&m.SectionID, &m.CourseCode, &m.Semester, &m.Schedule); err != nil {
            return nil, err
        }
        meetings = append(meetings, m)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return meetings, nil
}

// InsertEnrollment appends a new ACTIVE enrollment for the student on
// the locked section.  On success the generated ID and DB-default
// fields (status, enrolled_at) are read back so the returned row
// matches what was stored.
func (t *sectionTx) InsertEnrollment(ctx context.Context, studentID uint64) (*model.Enrollment, error) {
    const q = `INSERT INTO enrollments (student_id, section_id, status) VALUES (?, ?, 'ACTIVE')`
    res, err := t.tx.ExecContext(ctx, q, studentID, t.sec.ID)
    if err != nil {
        return nil, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }
    const sel = `SELECT id, student_id, section_id, status, enrolled_at, dropped_at
                 FROM enrollments WHERE id = ?`
    var e model.Enrollment
    if err := t.tx.QueryRowContext(ctx, sel, uint64(id)).Scan(
        &e.ID, &e.StudentID, &e.SectionID, &e.Status, &e.EnrolledAt, &e.DroppedAt,
    ); err != nil {
        return nil, err
    }
    return &e, nil
}

// DropEnrollment transitions an enrollment from ACTIVE to DROPPED.
// The status predicate makes the update a checked transition: a row
// that is missing or already dropped matches nothing and surfaces
// store.ErrEnrollmentNotFound.
func (t *sectionTx) DropEnrollment(ctx context.Context, enrollmentID uint64) error {
    const q = `UPDATE enrollments SET status = 'DROPPED', dropped_at = UTC_TIMESTAMP()
               WHERE id = ? AND status = 'ACTIVE'`
    res, err := t.tx.ExecContext(ctx, q, enrollmentID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return store.ErrEnrollmentNotFound
    }
    return nil
}

// IncrementEnrolled raises the enrolled counter by one and bumps the
// row version.  The capacity predicate keeps the counter inside its
// bounds even if a caller skips the capacity check.
func (t *sectionTx) IncrementEnrolled(ctx context.Context) error {
    const q = `UPDATE sections SET enrolled = enrolled + 1, version = version + 1
               WHERE id = ? AND enrolled < capacity`
    res, err := t.tx.ExecContext(ctx, q, t.sec.ID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return store.ErrSectionFull
    }
    t.sec.Enrolled++
    t.sec.Version++
    return nil
}

// DecrementEnrolled lowers the enrolled counter by one and bumps the
// row version.  Decrementing an already-zero counter matches no rows
// and surfaces store.ErrNoChange.
func (t *sectionTx) DecrementEnrolled(ctx context.Context) error {
    const q = `UPDATE sections SET enrolled = enrolled - 1, version = version + 1
               WHERE id = ? AND enrolled > 0`
    res, err := t.tx.ExecContext(ctx, q, t.sec.ID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return store.ErrNoChange
    }
    t.sec.Enrolled--
    t.sec.Version++
    return nil
}

// AppendWaitlist queues the student at the end of the section's
// waitlist.  The next position is computed as MAX(position)+1 over
// all entries of the section, terminal ones included, so positions
// are never reused.  Both statements run under the section lock,
// which makes the read-then-insert safe.
func (t *sectionTx) AppendWaitlist(ctx context.Context, studentID uint64) (*model.WaitlistEntry, error) {
    const maxQ = `SELECT COALESCE(MAX(position), 0) FROM waitlist_entries WHERE section_id = ?`
    var maxPos uint64
    if err := t.tx.QueryRowContext(ctx, maxQ, t.sec.ID).Scan(&maxPos); err != nil {
        return nil, err
    }
    const ins = `INSERT INTO waitlist_entries (student_id, section_id, position, status)
                 VALUES (?, ?, ?, 'WAITING')`
    res, err := t.tx.ExecContext(ctx, ins, studentID, t.sec.ID, maxPos+1)
    if err != nil {
        return nil, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }
    const sel = `SELECT id, student_id, section_id, position, status, joined_at, resolved_at
                 FROM waitlist_entries WHERE id = ?`
    var w model.WaitlistEntry
    if err := t.tx.QueryRowContext(ctx, sel, uint64(id)).Scan(
        &w.ID, &w.StudentID, &w.SectionID, &w.Position, &w.Status, &w.JoinedAt, &w.ResolvedAt,
    ); err != nil {
        return nil, err
    }
    return &w, nil
}

// WaitingEntry looks up the student's WAITING entry on the locked
// section, returning (nil, nil) when there is none.
func (t *sectionTx) WaitingEntry(ctx context.Context, studentID uint64) (*model.WaitlistEntry, error) {
    const q = `SELECT id, student_id, section_id, position, status, joined_at, resolved_at
               FROM waitlist_entries
               WHERE student_id = ? AND section_id = ? AND status = 'WAITING'`
    var w model.WaitlistEntry
    err := t.tx.QueryRowContext(ctx, q, studentID, t.sec.ID).Scan(
        &w.ID, &w.StudentID, &w.SectionID, &w.Position, &w.Status, &w.JoinedAt, &w.ResolvedAt,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return &w, nil
}

// NextWaiting returns the WAITING entry with the lowest position
// strictly greater than after, or (nil, nil) when the queue is
// exhausted.  Promotion sweeps pass the previous candidate's position
// to walk the queue in FIFO order without revisiting entries they
// already resolved.
func (t *sectionTx) NextWaiting(ctx context.Context, after uint64) (*model.WaitlistEntry, error) {
    const q = `SELECT id, student_id, section_id, position, status, joined_at, resolved_at
               FROM waitlist_entries
               WHERE section_id = ? AND status = 'WAITING' AND position > ?
               ORDER BY position ASC
               LIMIT 1`
    var w model.WaitlistEntry
    err := t.tx.QueryRowContext(ctx, q, t.sec.ID, after).Scan(
        &w.ID, &w.StudentID, &w.SectionID, &w.Position, &w.Status, &w.JoinedAt, &w.ResolvedAt,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return &w, nil
}

// ResolveWaitlist transitions an entry from WAITING to a terminal
// status.  The status predicate rejects double resolution: once an
// entry has left WAITING the update matches nothing and surfaces
// store.ErrEntryNotFound.
func (t *sectionTx) ResolveWaitlist(ctx context.Context, entryID uint64, status string) error {
    const q = `UPDATE waitlist_entries SET status = ?, resolved_at = UTC_TIMESTAMP()
               WHERE id = ? AND status = 'WAITING'`
    res, err := t.tx.ExecContext(ctx, q, status, entryID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return store.ErrEntryNotFound
    }
    return nil
}

// WaitingRank counts the WAITING entries ahead of the given position
// and returns the 1-based place in line.
func (t *sectionTx) WaitingRank(ctx context.Context, position uint64) (int, error) {
    const q = `SELECT COUNT(*) FROM waitlist_entries
               WHERE section_id = ? AND status = 'WAITING' AND position < ?`
    var ahead int
    if err := t.tx.QueryRowContext(ctx, q, t.sec.ID, position).Scan(&ahead); err != nil {
        return 0, err
    }
    return ahead + 1, nil
}
