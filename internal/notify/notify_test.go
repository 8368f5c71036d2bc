package notify

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestLogNotifierNeverFails(t *testing.T) {
    n := Notice{StudentID: 1, SectionID: 2, CourseCode: "CS101", Semester: "2026F", Position: 3}
    var ln LogNotifier
    require.NoError(t, ln.EnrollmentConfirmed(context.Background(), n))
    require.NoError(t, ln.WaitlistPromoted(context.Background(), n))
    require.NoError(t, ln.PromotionSkipped(context.Background(), n))
}

func TestAMQPNotifierThrottleDropsQuietly(t *testing.T) {
    // Zero rate with zero burst: every publish is over budget and
    // must be dropped before any broker I/O happens.  The bogus URL
    // would fail loudly if the throttle let a publish through.
    p := NewAMQPNotifier("amqp://nobody@localhost:1/", "s3cret", time.Hour, 0, 0)
    err := p.EnrollmentConfirmed(context.Background(), Notice{StudentID: 1, SectionID: 2})
    assert.NoError(t, err, "throttled notices are dropped, not errored")
}
