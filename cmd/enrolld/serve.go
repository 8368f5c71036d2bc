package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/seatwise/course-enrollment/internal/handler"
	"github.com/seatwise/course-enrollment/internal/queue"
	"github.com/seatwise/course-enrollment/internal/router"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the promotion pipeline and the ops endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRun()
		},
	}
}

func serveRun() error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	s, err := buildStack(registry)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The consumer only runs in broker mode; in-process dispatch
	// sweeps on its own workers.  The sweeper runs in both modes.
	if s.queueMode == "amqp" {
		go func() {
			if err := queue.StartPromotionConsumer(ctx, s.cfg.AMQPURL, s.manager, s.redis); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("%s: promotion consumer stopped: %v", programName, err)
			}
		}()
	}
	go queue.StartSweeper(ctx, s.store, s.dispatcher, s.qcfg.SweepInterval)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, handler.NewStatusHandler(s.db, s.queueMode), handler.NewPromoteHandler(s.store, s.dispatcher), registry)

	addr := ":" + s.cfg.Port
	log.Printf("%s: listening on %s (env=%s queue=%s)", programName, addr, s.cfg.Env, s.queueMode)

	errCh := make(chan error, 1)
	go func() { errCh <- e.Start(addr) }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Printf("%s: shutting down", programName)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Printf("%s: http shutdown: %v", programName, err)
		}
	}
	return nil
}
