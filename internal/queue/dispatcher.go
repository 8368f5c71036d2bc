package queue

import (
    "context"
    "encoding/json"
    "log"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/redis/go-redis/v9"
)

// Dispatcher hands a section with freed capacity to whatever runs
// promotion sweeps.
type Dispatcher interface {
    DispatchPromotion(ctx context.Context, sectionID uint64) error
}

// AMQPDispatcher publishes PromotionTasks to the "waitlist.promote"
// queue, one per section with freed capacity.  When a Redis client is
// supplied, a short-lived SETNX marker coalesces bursts: a section
// dropped twenty times between sweeps yields one task.  Suppressing a
// task is always safe because the sweep drains all free capacity, not
// a single seat.
type AMQPDispatcher struct {
    url         string
    redis       *redis.Client // optional – nil disables coalescing
    coalesceTTL time.Duration
}

// NewAMQPDispatcher constructs a dispatcher publishing to the given
// broker URL.  rdb may be nil, in which case every call publishes.
func NewAMQPDispatcher(url string, rdb *redis.Client, coalesceTTL time.Duration) *AMQPDispatcher {
    if coalesceTTL <= 0 {
        coalesceTTL = time.Minute
    }
    return &AMQPDispatcher{url: url, redis: rdb, coalesceTTL: coalesceTTL}
}

// DispatchPromotion enqueues a promotion sweep for the section.  A
// Redis outage downgrades to publishing every task instead of
// coalescing; the broker being down surfaces as an error the caller
// may ignore, since the reconciliation sweeper retries the section.
func (d *AMQPDispatcher) DispatchPromotion(ctx context.Context, sectionID uint64) error {
    if d.redis != nil {
        ok, err := d.redis.SetNX(ctx, coalesceKey(sectionID), "1", d.coalesceTTL).Result()
        if err != nil {
            log.Printf("dispatcher: coalesce check for section %d failed: %v; publishing anyway", sectionID, err)
        } else if !ok {
            return nil // a task for this section is already in flight
        }
    }

    task := PromotionTask{
        TaskID:     uuid.NewString(),
        SectionID:  sectionID,
        EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
    }
    if err := d.publish(ctx, task); err != nil {
        if d.redis != nil {
            // Drop the marker so the sweeper is not suppressed while
            // no task is actually queued.
            _ = d.redis.Del(ctx, coalesceKey(sectionID)).Err()
        }
        return err
    }
    return nil
}

func (d *AMQPDispatcher) publish(ctx context.Context, task PromotionTask) error {
    conn, err := amqp.Dial(d.url)
    if err != nil {
        log.Printf("dispatcher: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("dispatcher: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent).  Durable so tasks survive broker restarts.
    if _, err := ch.QueueDeclare(
        promoteQueueName, // name
        true,             // durable
        false,            // autoDelete
        false,            // exclusive
        false,            // noWait
        nil,              // args
    ); err != nil {
        log.Printf("dispatcher: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(task)
    if err != nil {
        log.Printf("dispatcher: marshal task failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",               // default exchange
        promoteQueueName, // routing key = queue name
        false,            // mandatory
        false,            // immediate
        pub,
    ); err != nil {
        log.Printf("dispatcher: publish failed: %v", err)
        return err
    }

    return nil
}
