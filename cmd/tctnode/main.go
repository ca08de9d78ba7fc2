// Copyright 2025 Certen Protocol
//
// tctnode wires the tree accumulator into a CometBFT ABCI application and
// a read-only HTTP API.

package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	abciserver "github.com/cometbft/cometbft/abci/server"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	dbm "github.com/cometbft/cometbft-db"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/certen/tct/pkg/chainapp"
	"github.com/certen/tct/pkg/config"
	"github.com/certen/tct/pkg/metrics"
	"github.com/certen/tct/pkg/storekv"
	"github.com/certen/tct/pkg/tctserver"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("🚀 starting tctnode")

	var (
		validatorID = flag.String("validator-id", "", "validator ID (overrides VALIDATOR_ID env var)")
		abciAddr    = flag.String("abci-addr", "tcp://127.0.0.1:26658", "listen address for the ABCI server")
		showHelp    = flag.Bool("help", false, "show help message")
	)
	flag.Parse()

	if *showHelp {
		flag.Usage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration:", err)
	}
	if *validatorID != "" {
		cfg.ValidatorID = *validatorID
	}
	log.Printf("📋 validator ID: %s, chain ID: %s", cfg.ValidatorID, cfg.ChainID)

	log.Printf("🗄️ opening data store at %s", cfg.DataDir)
	db, err := dbm.NewGoLevelDB("tctnode", cfg.DataDir)
	if err != nil {
		log.Fatal("failed to open data store:", err)
	}
	defer db.Close()

	collectors := metrics.NewCollectors(prometheus.DefaultRegisterer)

	snapshotStore := storekv.NewSnapshotStore(storekv.NewAdapter(db))
	app := chainapp.NewApp(snapshotStore, cfg.ChainID, collectors)

	abciSrv := abciserver.NewSocketServer(*abciAddr, app)
	abciSrv.SetLogger(cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout)))
	if err := abciSrv.Start(); err != nil {
		log.Fatal("failed to start ABCI server:", err)
	}
	defer abciSrv.Stop()
	log.Printf("🔌 ABCI server listening on %s", *abciAddr)

	mux := http.NewServeMux()
	handlers := tctserver.NewHandlers(app.Tree(), log.New(log.Writer(), "[tctserver] ", log.LstdFlags))
	mux.HandleFunc("/v1/root", handlers.HandleGetRoot)
	mux.HandleFunc("/v1/witness/", handlers.HandleGetWitness)
	mux.HandleFunc("/v1/forgotten_count", handlers.HandleGetForgottenCount)
	mux.HandleFunc("/v1/state", handlers.HandleGetState)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}

	go func() {
		log.Printf("🌐 HTTP API listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start HTTP server:", err)
		}
	}()
	go func() {
		log.Printf("📊 metrics listening on %s", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start metrics server:", err)
		}
	}()

	log.Printf("✅ tctnode ready")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("🛑 shutting down tctnode...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}

	log.Printf("✅ tctnode stopped")
}
