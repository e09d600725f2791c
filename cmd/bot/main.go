package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"tradebot/internal/broker"
	"tradebot/internal/config"
	"tradebot/internal/engine"
	"tradebot/internal/md"
	"tradebot/internal/state"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	runID := generateRunID()
	decisions, err := engine.NewDecisionLogger(cfg.DecisionsPath, runID)
	if err != nil {
		log.Fatalf("decision logger error: %v", err)
	}
	defer func() {
		if err := decisions.Close(); err != nil {
			log.Printf("failed to close decision logger: %v", err)
		}
	}()

	store := state.NewStore()
	if err := store.Load(cfg.CheckpointPath); err == nil {
		log.Printf("loaded checkpoint from %s", cfg.CheckpointPath)
	}

	brokerClient := broker.New(cfg.APIKey, cfg.APISecret, cfg.PaperBaseURL)
	engineImpl := engine.New(cfg, brokerClient, store, decisions)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalChan
		log.Printf("shutdown signal received")
		cancel()
	}()

	if cfg.Mode == config.ModePaper {
		go engine.ReconcileLoop(ctx, brokerClient, store, cfg.Symbol, cfg.ReconcileInterval)
	}

	log.Printf("starting bot mode=%s symbol=%s feed=%s run_id=%s", cfg.Mode, cfg.Symbol, cfg.Feed, runID)
	if err := md.StartStream(ctx, cfg.APIKey, cfg.APISecret, cfg.Feed, cfg.Symbol, func(bar md.Bar) {
		engineImpl.OnBar(ctx, bar)
	}); err != nil && err != context.Canceled {
		log.Printf("market data stream stopped: %v", err)
	}

	if err := store.Save(cfg.CheckpointPath); err != nil {
		log.Printf("failed to save checkpoint: %v", err)
	}

	log.Printf("bot shutdown complete")
}

func generateRunID() string {
	return time.Now().UTC().Format("20060102T150405") + "-" + uuid.NewString()[:8]
}
