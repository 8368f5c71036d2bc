// Package queue moves waitlist promotion work through the message
// broker: dispatchers enqueue sections whose capacity was freed, the
// consumer sweeps them.  Delivery is at-least-once; sweeps are
// idempotent, so duplicates cost a lock acquisition and nothing else.
package queue

import "fmt"

const promoteQueueName = "waitlist.promote"

// PromotionTask asks the consumer to run a promotion sweep over one
// section.  It carries no entry IDs on purpose: the sweep re-reads
// the queue under the section lock, so a stale task can never promote
// the wrong student.
type PromotionTask struct {
    TaskID     string `json:"task_id"`
    SectionID  uint64 `json:"section_id"`
    EnqueuedAt string `json:"enqueued_at"`
}

// coalesceKey names the Redis marker that suppresses duplicate tasks
// for a section while one is already in flight.
func coalesceKey(sectionID uint64) string {
    return fmt.Sprintf("promote:pending:%d", sectionID)
}
