package main

import (
	"database/sql"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/seatwise/course-enrollment/internal/config"
	"github.com/seatwise/course-enrollment/internal/database"
	"github.com/seatwise/course-enrollment/internal/enrollment"
	"github.com/seatwise/course-enrollment/internal/notify"
	"github.com/seatwise/course-enrollment/internal/queue"
	"github.com/seatwise/course-enrollment/internal/store"
	"github.com/seatwise/course-enrollment/internal/store/mysql"
	"github.com/seatwise/course-enrollment/internal/waitlist"
)

// stack bundles the wired application: store, notifier, promotion
// dispatcher, manager and coordinator.  serve and the registrar
// subcommands share it so a drop issued from the CLI feeds the same
// promotion pipeline the daemon runs.
type stack struct {
	cfg         config.Config
	qcfg        config.QueueConfig
	db          *sql.DB
	store       store.Store
	redis       *redis.Client
	notifier    notify.Notifier
	dispatcher  queue.Dispatcher
	inproc      *queue.InProcDispatcher // non-nil when no broker is configured
	manager     *waitlist.Manager
	coordinator *enrollment.Coordinator
	queueMode   string // "amqp" or "inproc"
}

// buildStack loads configuration, opens MySQL and wires the pipeline.
// With a broker URL configured, promotion tasks go through AMQP with
// Redis coalescing; without one, an in-process worker pool serves the
// same role.  registry may be nil for short-lived commands that do
// not export metrics.
func buildStack(registry prometheus.Registerer) (*stack, error) {
	cfg := config.Load()
	qcfg := config.LoadQueueConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, err
	}
	st := mysql.New(db)

	s := &stack{cfg: cfg, qcfg: qcfg, db: db, store: st}

	tokenTTL := time.Duration(cfg.ActionTokenTTLMin) * time.Minute
	if cfg.AMQPURL != "" {
		s.queueMode = "amqp"
		s.redis = config.NewRedisClient()
		if s.redis == nil {
			log.Printf("%s: redis unavailable, promotion tasks will not be coalesced", programName)
		}
		s.notifier = notify.NewAMQPNotifier(cfg.AMQPURL, cfg.TokenSecret, tokenTTL, qcfg.NotifyPerSecond, qcfg.NotifyBurst)
		s.dispatcher = queue.NewAMQPDispatcher(cfg.AMQPURL, s.redis, qcfg.CoalesceTTL)
	} else {
		s.queueMode = "inproc"
		s.notifier = notify.LogNotifier{}
	}

	s.manager = waitlist.New(waitlist.Config{
		Store:      st,
		Notifier:   s.notifier,
		MaxRetries: qcfg.TxMaxRetries,
		Backoff:    qcfg.TxRetryBackoff,
		Registry:   registry,
	})
	if s.dispatcher == nil {
		s.inproc = queue.NewInProcDispatcher(s.manager, qcfg.Workers, qcfg.Buffer)
		s.dispatcher = s.inproc
	}
	s.coordinator = enrollment.New(enrollment.Config{
		Store:      st,
		Notifier:   s.notifier,
		Dispatcher: s.dispatcher,
		MaxRetries: qcfg.TxMaxRetries,
		Backoff:    qcfg.TxRetryBackoff,
		Registry:   registry,
	})
	return s, nil
}

// Close drains the in-process pipeline, then releases clients.  CLI
// commands rely on the drain so a drop's promotion sweep finishes
// before the process exits.
func (s *stack) Close() {
	if s.inproc != nil {
		s.inproc.Stop()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	_ = s.store.Close()
}
