package mysql

import (
    "context"
    "database/sql"
    "errors"

    "github.com/seatwise/course-enrollment/internal/model"
    "github.com/seatwise/course-enrollment/internal/store"
)

// SectionByID fetches a section without locking it.  The returned
// counters are a committed snapshot and may be stale by the time the
// caller acts on them; operations that depend on them must go through
// InSectionTx.
func (s *Store) SectionByID(ctx context.Context, id uint64) (*model.Section, error) {
    const q = `SELECT id, course_id, semester, capacity, enrolled, version, schedule, room, created_at, updated_at
               FROM sections WHERE id = ?`
    var sec model.Section
    err := s.db.QueryRowContext(ctx, q, id).Scan(
        &sec.ID, &sec.CourseID, &sec.Semester, &sec.Capacity, &sec.Enrolled,
        &sec.Version, &sec.Schedule, &sec.Room, &sec.CreatedAt, &sec.UpdatedAt,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return nil, store.ErrSectionNotFound
    }
    if err != nil {
        return nil, err
    }
    return &sec, nil
}

// CourseByID fetches a course by primary key.
func (s *Store) CourseByID(ctx context.Context, id uint64) (*model.Course, error) {
    const q = `SELECT id, code, title, credits, created_at, updated_at FROM courses WHERE id = ?`
    var c model.Course
    err := s.db.QueryRowContext(ctx, q, id).Scan(
        &c.ID, &c.Code, &c.Title, &c.Credits, &c.CreatedAt, &c.UpdatedAt,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return nil, store.ErrCourseNotFound
    }
    if err != nil {
        return nil, err
    }
    return &c, nil
}

// WaitingRank returns the student's 1-based place among the WAITING
// entries of a section.  It runs as two plain reads outside any lock;
// a concurrent promotion can shift the answer, which position queries
// tolerate by definition.
func (s *Store) WaitingRank(ctx context.Context, studentID, sectionID uint64) (int, error) {
    const posQ = `SELECT position FROM waitlist_entries
                  WHERE student_id = ? AND section_id = ? AND status = 'WAITING'`
    var pos uint64
    err := s.db.QueryRowContext(ctx, posQ, studentID, sectionID).Scan(&pos)
    if errors.Is(err, sql.ErrNoRows) {
        return 0, store.ErrEntryNotFound
    }
    if err != nil {
        return 0, err
    }
    const cntQ = `SELECT COUNT(*) FROM waitlist_entries
                  WHERE section_id = ? AND status = 'WAITING' AND position < ?`
    var ahead int
    if err := s.db.QueryRowContext(ctx, cntQ, sectionID, pos).Scan(&ahead); err != nil {
        return 0, err
    }
    return ahead + 1, nil
}

// PromotableSections lists ids of sections that currently have both
// free capacity and at least one WAITING entry.  The reconciliation
// sweeper dispatches a promotion task for each; sections that stop
// qualifying before the task runs simply produce a no-op sweep.
func (s *Store) PromotableSections(ctx context.Context) ([]uint64, error) {
    const q = `SELECT DISTINCT s.id
               FROM sections s
               JOIN waitlist_entries w ON w.section_id = s.id AND w.status = 'WAITING'
               WHERE s.enrolled < s.capacity
               ORDER BY s.id`
    rows, err := s.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var ids []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return ids, nil
}

// CreateCourse inserts a catalog course.  On success the generated ID
// and DB-default timestamps are read back into the given Course.
// Inserting an existing code surfaces store.ErrDuplicate.
func (s *Store) CreateCourse(ctx context.Context, c *model.Course) error {
    const q = `INSERT INTO courses (code, title, credits) VALUES (?, ?, ?)`
    res, err := s.db.ExecContext(ctx, q, c.Code, c.Title, c.Credits)
    if err != nil {
        return mapErr(err)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    c.ID = uint64(id)
    const sel = `SELECT id, code, title, credits, created_at, updated_at FROM courses WHERE id = ?`
    return s.db.QueryRowContext(ctx, sel, c.ID).Scan(
        &c.ID, &c.Code, &c.Title, &c.Credits, &c.CreatedAt, &c.UpdatedAt,
    )
}

// CreateSection inserts a section under an existing course.  On
// success the generated ID and DB-default fields (enrolled, version,
// timestamps) are read back into the given Section.
func (s *Store) CreateSection(ctx context.Context, sec *model.Section) error {
    const q = `INSERT INTO sections (course_id, semester, capacity, schedule, room)
               VALUES (?, ?, ?, ?, ?)`
    res, err := s.db.ExecContext(ctx, q, sec.CourseID, sec.Semester, sec.Capacity, sec.Schedule, sec.Room)
    if err != nil {
        return mapErr(err)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    sec.ID = uint64(id)
    const sel = `SELECT id, course_id, semester, capacity, enrolled, version, schedule, room, created_at, updated_at
                 FROM sections WHERE id = ?`
    return s.db.QueryRowContext(ctx, sel, sec.ID).Scan(
        &sec.ID, &sec.CourseID, &sec.Semester, &sec.Capacity, &sec.Enrolled,
        &sec.Version, &sec.Schedule, &sec.Room, &sec.CreatedAt, &sec.UpdatedAt,
    )
}
