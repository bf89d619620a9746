package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/ready-check/internal/bot"
	"github.com/DoyleJ11/ready-check/internal/chat"
	"github.com/DoyleJ11/ready-check/internal/config"
	"github.com/DoyleJ11/ready-check/internal/countdown"
	"github.com/DoyleJ11/ready-check/internal/events"
	"github.com/DoyleJ11/ready-check/internal/history"
	"github.com/DoyleJ11/ready-check/internal/httpapi"
	"github.com/DoyleJ11/ready-check/internal/hub"
	"github.com/DoyleJ11/ready-check/internal/lobby"
	"github.com/DoyleJ11/ready-check/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env", flag.CommandLine, os.Args[1:])
	if err != nil {
		return err
	}

	log, err := logging.New(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks := events.Multi{}
	var outcomes httpapi.OutcomeLister
	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL, log)
		if err != nil {
			return err
		}
		defer nc.Close()
		sinks = append(sinks, events.NewNATSSink(nc))
		log.Info("publishing lifecycle events to NATS", zap.String("url", nc.ConnectedUrl()))
	}
	if cfg.DatabaseURL != "" {
		store, err := history.Open(cfg.DatabaseURL, log)
		if err != nil {
			return err
		}
		defer store.Close()
		sinks = append(sinks, store)
		outcomes = store
		log.Info("recording lobby outcomes")
	}

	clock := clockwork.NewRealClock()
	svc := chat.New(cfg.BotID, clock)
	h := hub.NewHub(ctx)

	b := bot.New(svc, h, lobby.Deps{
		Countdown:   countdown.NewRunner(svc, clock, cfg.CountdownFrom, cfg.CountdownTick, log),
		Events:      sinks,
		Clock:       clock,
		SettleDelay: cfg.SettleDelay,
		GoDelay:     cfg.GoDelay,
	}, cfg.Prefix, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.SetupRoutes(svc, h, outcomes, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Run(gctx)
	})
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		h.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info("shut down", zap.Error(err))
	return err
}
