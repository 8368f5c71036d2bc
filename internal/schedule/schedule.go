// Package schedule parses catalog meeting strings and decides whether
// two meetings collide.  It is pure: no clock, no storage, no logging.
// Callers read enrollment state inside their own transactions and hand
// the schedules in; the answer depends only on the arguments.
package schedule

import (
    "errors"
    "fmt"
    "strings"
)

// ErrBadSchedule is returned when a meeting string does not follow the
// catalog format.  Callers that scan many sections typically skip the
// offending section rather than fail the whole operation.
var ErrBadSchedule = errors.New("malformed schedule")

// Meeting is the parsed form of a catalog schedule string such as
// "Mon/Wed 10:00-11:30": one or more meeting days plus a daily time
// window in minutes after midnight.  End is exclusive, so back-to-back
// meetings like 10:00-11:00 and 11:00-12:00 do not collide.
type Meeting struct {
    Days  []string // canonical day names ("Mon".."Sun"), in input order
    Start int      // minutes after midnight, inclusive
    End   int      // minutes after midnight, exclusive
}

// canonicalDays maps the lowercase three-letter prefix of a day name to
// its canonical form.  Full names ("monday") and short names ("mon")
// are both accepted, in any case.
var canonicalDays = map[string]string{
    "mon": "Mon",
    "tue": "Tue",
    "wed": "Wed",
    "thu": "Thu",
    "fri": "Fri",
    "sat": "Sat",
    "sun": "Sun",
}

// Parse converts a catalog schedule string into a Meeting.  The format
// is "<day>[/<day>...] <HH:MM>-<HH:MM>", e.g. "Mon/Wed 10:00-11:30" or
// "Fri 14:00-16:00".  The time window must be non-empty (end after
// start) and stay within a single day.  Duplicate days are collapsed.
func Parse(s string) (Meeting, error) {
    fields := strings.Fields(strings.TrimSpace(s))
    if len(fields) != 2 {
        return Meeting{}, fmt.Errorf("%w: %q", ErrBadSchedule, s)
    }
    var days []string
    seen := make(map[string]struct{})
    for _, raw := range strings.Split(fields[0], "/") {
        name := strings.ToLower(strings.TrimSpace(raw))
        if len(name) > 3 {
            name = name[:3]
        }
        day, ok := canonicalDays[name]
        if !ok {
            return Meeting{}, fmt.Errorf("%w: unknown day %q in %q", ErrBadSchedule, raw, s)
        }
        if _, dup := seen[day]; dup {
            continue
        }
        seen[day] = struct{}{}
        days = append(days, day)
    }
    if len(days) == 0 {
        return Meeting{}, fmt.Errorf("%w: no days in %q", ErrBadSchedule, s)
    }
    start, end, err := parseWindow(fields[1])
    if err != nil {
        return Meeting{}, fmt.Errorf("%w: %v in %q", ErrBadSchedule, err, s)
    }
    return Meeting{Days: days, Start: start, End: end}, nil
}

// parseWindow parses "HH:MM-HH:MM" into start/end minutes.
func parseWindow(s string) (int, int, error) {
    from, to, ok := strings.Cut(s, "-")
    if !ok {
        return 0, 0, fmt.Errorf("time window %q missing '-'", s)
    }
    start, err := parseClock(from)
    if err != nil {
        return 0, 0, err
    }
    end, err := parseClock(to)
    if err != nil {
        return 0, 0, err
    }
    if end <= start {
        return 0, 0, fmt.Errorf("time window %q ends before it starts", s)
    }
    return start, end, nil
}

// parseClock parses "HH:MM" (24h) into minutes after midnight.
func parseClock(s string) (int, error) {
    hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
    if !ok {
        return 0, fmt.Errorf("clock %q missing ':'", s)
    }
    h, err := atoi2(hh)
    if err != nil || h > 23 {
        return 0, fmt.Errorf("bad hour in %q", s)
    }
    m, err := atoi2(mm)
    if err != nil || m > 59 {
        return 0, fmt.Errorf("bad minute in %q", s)
    }
    return h*60 + m, nil
}

// atoi2 converts a one- or two-digit decimal string.  strconv.Atoi
// would accept signs and huge values; clock fields should not.
func atoi2(s string) (int, error) {
    if len(s) == 0 || len(s) > 2 {
        return 0, fmt.Errorf("bad number %q", s)
    }
    n := 0
    for _, r := range s {
        if r < '0' || r > '9' {
            return 0, fmt.Errorf("bad number %q", s)
        }
        n = n*10 + int(r-'0')
    }
    return n, nil
}

// Overlaps reports whether two meetings collide: they share at least
// one day and their [Start,End) windows intersect.
func Overlaps(a, b Meeting) bool {
    if a.Start >= b.End || b.Start >= a.End {
        return false
    }
    for _, da := range a.Days {
        for _, db := range b.Days {
            if da == db {
                return true
            }
        }
    }
    return false
}
