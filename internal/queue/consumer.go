package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/redis/go-redis/v9"

    "github.com/seatwise/course-enrollment/internal/waitlist"
)

// StartPromotionConsumer connects to the broker, declares the durable
// waitlist.promote queue and sweeps each delivered section.  The
// function runs a reconnect loop and returns only when ctx is
// cancelled; processing errors are logged and the offending message
// is rejected so the server continues operating.  rdb may be nil.
func StartPromotionConsumer(ctx context.Context, url string, mgr *waitlist.Manager, rdb *redis.Client) error {
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Printf("promotion-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            select {
            case <-time.After(backoff):
            case <-ctx.Done():
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
        err = consumeLoop(ctx, conn, mgr, rdb)
        stop()
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Printf("promotion-consumer: consume loop ended: %v; reconnecting", err)
        time.Sleep(2 * time.Second)
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, mgr *waitlist.Manager, rdb *redis.Client) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    // One sweep at a time per consumer: sweeps serialize on the
    // section lock anyway, prefetching more just parks deliveries.
    if err := ch.Qos(1, 0, false); err != nil {
        log.Printf("promotion-consumer: set QoS failed: %v", err)
    }

    _, err = ch.QueueDeclare(promoteQueueName, true, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(promoteQueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := handleTask(ctx, mgr, rdb, d.Body); err != nil {
            log.Printf("promotion-consumer: handle task failed: %v", err)
            // One redelivery, then drop; the sweeper retries the section.
            _ = d.Nack(false, !d.Redelivered)
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

func handleTask(ctx context.Context, mgr *waitlist.Manager, rdb *redis.Client, body []byte) error {
    var task PromotionTask
    if err := json.Unmarshal(body, &task); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if rdb != nil {
        // Clear the coalescing marker before sweeping so a seat freed
        // mid-sweep enqueues a fresh task instead of being swallowed.
        _ = rdb.Del(ctx, coalesceKey(task.SectionID)).Err()
    }
    sweep, err := mgr.Promote(ctx, task.SectionID)
    if err != nil {
        return fmt.Errorf("promote section %d: %w", task.SectionID, err)
    }
    if sweep.Promoted > 0 || sweep.Skipped > 0 {
        log.Printf("promotion-consumer: section %d swept | task_id=%s | promoted=%d | skipped=%d",
            task.SectionID, task.TaskID, sweep.Promoted, sweep.Skipped)
    }
    return nil
}
