// Package memory provides an in-memory implementation of the store
// contract for tests and ephemeral environments.  A per-section mutex
// plays the role of the exclusive row lock: it is held for the whole
// InSectionTx call, so transactions on the same section serialize
// exactly as they do against MySQL.  The callback works on staged
// copies that are written back only when it returns nil, which gives
// the same all-or-nothing visibility as a database commit.
package memory

import (
    "context"
    "sort"
    "sync"
    "sync/atomic"
    "time"

    "github.com/seatwise/course-enrollment/internal/model"
    "github.com/seatwise/course-enrollment/internal/store"
)

// Store keeps all state in process memory.  The zero value is not
// usable; construct with New.
type Store struct {
    mu       sync.RWMutex // guards the maps and all committed state
    courses  map[uint64]*model.Course
    sections map[uint64]*sectionState

    courseSeq  atomic.Uint64
    sectionSeq atomic.Uint64
    enrollSeq  atomic.Uint64
    entrySeq   atomic.Uint64
}

var _ store.Store = (*Store)(nil)

// sectionState bundles a section row with its dependent rows.  The
// lock member is the in-memory stand-in for the database row lock.
type sectionState struct {
    lock     sync.Mutex
    sec      model.Section
    enrolls  []model.Enrollment
    waitlist []model.WaitlistEntry
}

// New returns an empty Store.
func New() *Store {
    return &Store{
        courses:  make(map[uint64]*model.Course),
        sections: make(map[uint64]*sectionState),
    }
}

// Close implements store.Store.  Nothing to release.
func (s *Store) Close() error { return nil }

// InSectionTx acquires the section's lock, stages a copy of its
// state, runs fn against the copy and publishes the copy on success.
// An error from fn discards the staged state, leaving the committed
// state untouched.
func (s *Store) InSectionTx(ctx context.Context, sectionID uint64, fn func(store.Tx) error) error {
    s.mu.RLock()
    st, ok := s.sections[sectionID]
    s.mu.RUnlock()
    if !ok {
        return store.ErrSectionNotFound
    }
    st.lock.Lock()
    defer st.lock.Unlock()
    if err := ctx.Err(); err != nil {
        return err
    }
    tx := s.begin(st)
    if err := fn(tx); err != nil {
        return err
    }
    s.mu.Lock()
    st.sec = tx.sec
    st.enrolls = tx.enrolls
    st.waitlist = tx.waitlist
    s.mu.Unlock()
    return nil
}

// begin stages copies of the section state.  The caller holds the
// section lock, so nobody else can publish changes to this section
// while the copies are taken or used.
func (s *Store) begin(st *sectionState) *sectionTx {
    s.mu.RLock()
    defer s.mu.RUnlock()
    tx := &sectionTx{
        s:        s,
        sec:      st.sec,
        enrolls:  make([]model.Enrollment, len(st.enrolls)),
        waitlist: make([]model.WaitlistEntry, len(st.waitlist)),
    }
    copy(tx.enrolls, st.enrolls)
    copy(tx.waitlist, st.waitlist)
    return tx
}

// SectionByID returns a copy of the committed section row.
func (s *Store) SectionByID(ctx context.Context, id uint64) (*model.Section, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    st, ok := s.sections[id]
    if !ok {
        return nil, store.ErrSectionNotFound
    }
    sec := st.sec
    return &sec, nil
}

// CourseByID returns a copy of the committed course row.
func (s *Store) CourseByID(ctx context.Context, id uint64) (*model.Course, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    c, ok := s.courses[id]
    if !ok {
        return nil, store.ErrCourseNotFound
    }
    cp := *c
    return &cp, nil
}

// WaitingRank returns the student's 1-based place among the WAITING
// entries of a section, reading committed state only.
func (s *Store) WaitingRank(ctx context.Context, studentID, sectionID uint64) (int, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    st, ok := s.sections[sectionID]
    if !ok {
        return 0, store.ErrSectionNotFound
    }
    var pos uint64
    found := false
    for i := range st.waitlist {
        w := &st.waitlist[i]
        if w.StudentID == studentID && w.Status == model.WaitlistWaiting {
            pos = w.Position
            found = true
            break
        }
    }
    if !found {
        return 0, store.ErrEntryNotFound
    }
    ahead := 0
    for i := range st.waitlist {
        w := &st.waitlist[i]
        if w.Status == model.WaitlistWaiting && w.Position < pos {
            ahead++
        }
    }
    return ahead + 1, nil
}

// PromotableSections lists sections with free capacity and at least
// one WAITING entry.
func (s *Store) PromotableSections(ctx context.Context) ([]uint64, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    var ids []uint64
    for id, st := range s.sections {
        if st.sec.Enrolled >= st.sec.Capacity {
            continue
        }
        for i := range st.waitlist {
            if st.waitlist[i].Status == model.WaitlistWaiting {
                ids = append(ids, id)
                break
            }
        }
    }
    sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
    return ids, nil
}

// CreateCourse stores a catalog course, assigning its id and
// timestamps.  Reusing a code surfaces store.ErrDuplicate.
func (s *Store) CreateCourse(ctx context.Context, c *model.Course) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    for _, existing := range s.courses {
        if existing.Code == c.Code {
            return store.ErrDuplicate
        }
    }
    now := time.Now().UTC()
    c.ID = s.courseSeq.Add(1)
    c.CreatedAt = now
    c.UpdatedAt = now
    cp := *c
    s.courses[c.ID] = &cp
    return nil
}

// CreateSection stores a section under an existing course, assigning
// its id, zeroed counters and timestamps.
func (s *Store) CreateSection(ctx context.Context, sec *model.Section) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, ok := s.courses[sec.CourseID]; !ok {
        return store.ErrCourseNotFound
    }
    now := time.Now().UTC()
    sec.ID = s.sectionSeq.Add(1)
    sec.Enrolled = 0
    sec.Version = 0
    sec.CreatedAt = now
    sec.UpdatedAt = now
    s.sections[sec.ID] = &sectionState{sec: *sec}
    return nil
}

// sectionTx implements store.Tx over staged copies of one section's
// state.  Mutations touch only the copies; InSectionTx publishes them
// after fn succeeds.
type sectionTx struct {
    s        *Store
    sec      model.Section
    enrolls  []model.Enrollment
    waitlist []model.WaitlistEntry
}

var _ store.Tx = (*sectionTx)(nil)

func (t *sectionTx) Section() *model.Section { return &t.sec }

func (t *sectionTx) ActiveEnrollment(ctx context.Context, studentID uint64) (*model.Enrollment, error) {
    for i := range t.enrolls {
        e := &t.enrolls[i]
        if e.StudentID == studentID && e.Status == model.EnrollmentActive {
            cp := *e
            return &cp, nil
        }
    }
    return nil, nil
}

// ActiveMeetings reads the committed state of the other sections.
// Their rows are not locked, matching the database implementation.
func (t *sectionTx) ActiveMeetings(ctx context.Context, studentID uint64, semester string) ([]store.StudentMeeting, error) {
    t.s.mu.RLock()
    defer t.s.mu.RUnlock()
    var meetings []store.StudentMeeting
    for id, st := range t.s.sections {
        if id == t.sec.ID || st.sec.Semester != semester {
            continue
        }
        for i := range st.enrolls {
            e := &st.enrolls[i]
            if e.StudentID != studentID || e.Status != model.EnrollmentActive {
                continue
            }
            code := ""
            if c, ok := t.s.courses[st.sec.CourseID]; ok {
                code = c.Code
            }
            meetings = append(meetings, store.StudentMeeting{
                SectionID:  id,
                CourseCode: code,
                Semester:   st.sec.Semester,
                Schedule:   st.sec.Schedule,
            })
            break
        }
    }
    return meetings, nil
}

func (t *sectionTx) InsertEnrollment(ctx context.Context, studentID uint64) (*model.Enrollment, error) {
    e := model.Enrollment{
        ID:         t.s.enrollSeq.Add(1),
        StudentID:  studentID,
        SectionID:  t.sec.ID,
        Status:     model.EnrollmentActive,
        EnrolledAt: time.Now().UTC(),
    }
    t.enrolls = append(t.enrolls, e)
    cp := e
    return &cp, nil
}

func (t *sectionTx) DropEnrollment(ctx context.Context, enrollmentID uint64) error {
    for i := range t.enrolls {
        e := &t.enrolls[i]
        if e.ID == enrollmentID && e.Status == model.EnrollmentActive {
            now := time.Now().UTC()
            e.Status = model.EnrollmentDropped
            e.DroppedAt = &now
            return nil
        }
    }
    return store.ErrEnrollmentNotFound
}

func (t *sectionTx) IncrementEnrolled(ctx context.Context) error {
    if t.sec.Enrolled >= t.sec.Capacity {
        return store.ErrSectionFull
    }
    t.sec.Enrolled++
    t.sec.Version++
    return nil
}

func (t *sectionTx) DecrementEnrolled(ctx context.Context) error {
    if t.sec.Enrolled == 0 {
        return store.ErrNoChange
    }
    t.sec.Enrolled--
    t.sec.Version++
    return nil
}

func (t *sectionTx) AppendWaitlist(ctx context.Context, studentID uint64) (*model.WaitlistEntry, error) {
    var maxPos uint64
    for i := range t.waitlist {
        if t.waitlist[i].Position > maxPos {
            maxPos = t.waitlist[i].Position
        }
    }
    w := model.WaitlistEntry{
        ID:        t.s.entrySeq.Add(1),
        StudentID: studentID,
        SectionID: t.sec.ID,
        Position:  maxPos + 1,
        Status:    model.WaitlistWaiting,
        JoinedAt:  time.Now().UTC(),
    }
    t.waitlist = append(t.waitlist, w)
    cp := w
    return &cp, nil
}

func (t *sectionTx) WaitingEntry(ctx context.Context, studentID uint64) (*model.WaitlistEntry, error) {
    for i := range t.waitlist {
        w := &t.waitlist[i]
        if w.StudentID == studentID && w.Status == model.WaitlistWaiting {
            cp := *w
            return &cp, nil
        }
    }
    return nil, nil
}

func (t *sectionTx) NextWaiting(ctx context.Context, after uint64) (*model.WaitlistEntry, error) {
    var best *model.WaitlistEntry
    for i := range t.waitlist {
        w := &t.waitlist[i]
        if w.Status != model.WaitlistWaiting || w.Position <= after {
            continue
        }
        if best == nil || w.Position < best.Position {
            best = w
        }
    }
    if best == nil {
        return nil, nil
    }
    cp := *best
    return &cp, nil
}

func (t *sectionTx) ResolveWaitlist(ctx context.Context, entryID uint64, status string) error {
    for i := range t.waitlist {
        w := &t.waitlist[i]
        if w.ID == entryID && w.Status == model.WaitlistWaiting {
            now := time.Now().UTC()
            w.Status = status
            w.ResolvedAt = &now
            return nil
        }
    }
    return store.ErrEntryNotFound
}

func (t *sectionTx) WaitingRank(ctx context.Context, position uint64) (int, error) {
    ahead := 0
    for i := range t.waitlist {
        w := &t.waitlist[i]
        if w.Status == model.WaitlistWaiting && w.Position < position {
            ahead++
        }
    }
    return ahead + 1, nil
}
