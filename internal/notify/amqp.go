package notify

import (
    "context"
    "encoding/json"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "golang.org/x/time/rate"

    "github.com/seatwise/course-enrollment/internal/utils"
)

const noticeQueueName = "enrollment.notices"

// AMQPNotifier publishes notices to the "enrollment.notices" queue.
// It attempts to be robust and to never panic; any error is logged
// and returned so the caller can choose to ignore it.  Messages are
// marked as persistent.  A token-bucket limiter caps the publish
// rate: notices over the budget are dropped with a log line rather
// than queued, since a notice delivered minutes late is worth less
// than keeping the allocator responsive.
type AMQPNotifier struct {
    url      string
    secret   string        // signs embedded action tokens; empty disables them
    tokenTTL time.Duration // validity of embedded action tokens
    limiter  *rate.Limiter
}

// NewAMQPNotifier constructs a notifier publishing to the given
// broker URL.  perSecond and burst configure the send throttle.
func NewAMQPNotifier(url, secret string, tokenTTL time.Duration, perSecond float64, burst int) *AMQPNotifier {
    return &AMQPNotifier{
        url:      url,
        secret:   secret,
        tokenTTL: tokenTTL,
        limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
    }
}

// EnrollmentConfirmed publishes an enrollment.confirmed notice with a
// drop action token attached.
func (p *AMQPNotifier) EnrollmentConfirmed(ctx context.Context, n Notice) error {
    return p.publish(ctx, EventEnrollmentConfirmed, utils.ActionDrop, n)
}

// WaitlistPromoted publishes a waitlist.promoted notice.  A promoted
// student now holds a seat, so the attached action is a drop.
func (p *AMQPNotifier) WaitlistPromoted(ctx context.Context, n Notice) error {
    return p.publish(ctx, EventWaitlistPromoted, utils.ActionDrop, n)
}

// PromotionSkipped publishes a waitlist.promotion_skipped notice.
// The entry is terminal at this point, so no action token is
// attached.
func (p *AMQPNotifier) PromotionSkipped(ctx context.Context, n Notice) error {
    return p.publish(ctx, EventPromotionSkipped, "", n)
}

func (p *AMQPNotifier) publish(ctx context.Context, event, action string, n Notice) error {
    if !p.limiter.Allow() {
        log.Printf("notifier: throttled, dropping %s for student %d section %d", event, n.StudentID, n.SectionID)
        return nil
    }
    n.Event = event
    n.OccurredAt = time.Now().UTC().Format(time.RFC3339)
    if action != "" && p.secret != "" {
        tok, err := utils.NewActionToken(p.secret, n.StudentID, n.SectionID, action, p.tokenTTL)
        if err != nil {
            log.Printf("notifier: sign action token failed: %v", err)
        } else {
            n.ActionToken = tok.Token
        }
    }

    conn, err := amqp.Dial(p.url)
    if err != nil {
        log.Printf("notifier: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("notifier: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent).  Durable so notices survive broker restarts.
    if _, err := ch.QueueDeclare(
        noticeQueueName, // name
        true,            // durable
        false,           // autoDelete
        false,           // exclusive
        false,           // noWait
        nil,             // args
    ); err != nil {
        log.Printf("notifier: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(n)
    if err != nil {
        log.Printf("notifier: marshal notice failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",              // default exchange
        noticeQueueName, // routing key = queue name
        false,           // mandatory
        false,           // immediate
        pub,
    ); err != nil {
        log.Printf("notifier: publish failed: %v", err)
        return err
    }

    return nil
}
