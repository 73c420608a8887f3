package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/athebyme/linebalancer/internal/adapters/admin"
	"github.com/athebyme/linebalancer/internal/adapters/backendchan"
	"github.com/athebyme/linebalancer/internal/adapters/clientchan"
	logadapter "github.com/athebyme/linebalancer/internal/adapters/logging"
	"github.com/athebyme/linebalancer/internal/adapters/probe"
	"github.com/athebyme/linebalancer/internal/config"
	"github.com/athebyme/linebalancer/internal/core/assignment"
	"github.com/athebyme/linebalancer/internal/core/domain"
	"github.com/athebyme/linebalancer/internal/core/registry"
)

func main() {
	configPath := flag.String("config", "./configs/config.yml", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootstrapLogger := logadapter.New("error", false)
		bootstrapLogger.Error("failed to load configuration", "error", err, "path", *configPath)
		os.Exit(1)
	}
	logger := logadapter.New(cfg.Log.Level, cfg.Log.Format == "json")
	logger.Info("configuration loaded", "clientAddr", cfg.ClientAddr, "backendAddr", cfg.BackendAddr,
		"defaultMode", cfg.DefaultMode, "maxPerBackend", cfg.MaxPerBackend, "pingIntervalMs", cfg.PingIntervalMs)

	// config.Load already validated DefaultMode, so this always succeeds.
	mode, _ := domain.ParseMode(cfg.DefaultMode)

	reg := registry.New(logger, registry.Policy{
		DefaultMode:    mode,
		MaxPerBackend:  cfg.MaxPerBackend,
		PingIntervalMs: cfg.PingIntervalMs,
	})
	log := assignment.New()

	probeLoop := probe.New(reg, probe.TCPProber{}, logger)
	probeLoop.Start()
	logger.Info("probe loop started")

	backendListener := backendchan.New(cfg.BackendAddr, reg, logger)
	if err := backendListener.Start(); err != nil {
		logger.Error("failed to start backend channel", "error", err, "addr", cfg.BackendAddr)
		os.Exit(1)
	}

	clientListener := clientchan.New(cfg.ClientAddr, reg, log, logger)
	if err := clientListener.Start(); err != nil {
		logger.Error("failed to start client channel", "error", err, "addr", cfg.ClientAddr)
		os.Exit(1)
	}

	console := admin.New(os.Stdin, os.Stdout, reg, log, probeLoop, logger)
	go console.Run()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("received shutdown signal", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = clientListener.Close()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = backendListener.Close()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		probeLoop.Stop()
	}()

	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
		logger.Info("all components shut down gracefully")
	case <-shutdownCtx.Done():
		logger.Error("shutdown timed out", "error", shutdownCtx.Err())
	}

	logger.Info("application finished")
}
