package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MasterOfPuppets/wradio/internal/api"
	"github.com/MasterOfPuppets/wradio/internal/client"
	"github.com/MasterOfPuppets/wradio/internal/config"
	database "github.com/MasterOfPuppets/wradio/internal/db"
	"github.com/MasterOfPuppets/wradio/internal/directory"
	"github.com/MasterOfPuppets/wradio/internal/engine"
	"github.com/MasterOfPuppets/wradio/internal/explore"
	"github.com/MasterOfPuppets/wradio/internal/player"
	"github.com/MasterOfPuppets/wradio/internal/prefs"
	"github.com/MasterOfPuppets/wradio/internal/station"
)

func main() {
	// 1. Parse Flags
	// Flags override config.yaml / environment values
	addr := flag.String("addr", "", "Override API listen address")
	dbPath := flag.String("db", "", "Override station library path")
	noSeed := flag.Bool("no-seed", false, "Skip starter stations on an empty library")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// 2. Load Config
	cfg := config.Load()
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	log.Println("📻 Starting wradio...")

	// 3. Init Infrastructure
	db := database.New(cfg)
	db.AutoMigrate()
	if !*noSeed {
		database.SeedStations(db.DB)
	}

	prefStore := prefs.New(db.DB, cfg.Player.BufferSeconds)
	dir := directory.New(cfg.Directory.BaseURL)
	repo := station.NewRepository(db.DB, dir)

	// 4. Playback Engine + Session Client
	engine.RegisterMetrics()

	p := player.NewICY(player.Options{
		Decoder:       cfg.Player.Decoder,
		LogLevel:      cfg.Player.LogLevel,
		FallbackKbps:  cfg.Player.FallbackKbps,
		BufferSeconds: prefStore.BufferSeconds,
	})

	svc := engine.New(p, repo)
	svc.Create()
	defer svc.Destroy()

	playerClient := client.NewWithEngine(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exp := explore.New(ctx, repo, playerClient)

	// 5. Metrics sidecar
	go func() {
		http.Handle("/_metrics", promhttp.Handler())
		log.Printf("📊 Metrics exposed at http://localhost%s/_metrics", cfg.Server.MetricsPort)
		if err := http.ListenAndServe(cfg.Server.MetricsPort, nil); err != nil {
			log.Printf("⚠️ Metrics server error: %v", err)
		}
	}()

	// 6. Teardown on SIGINT/SIGTERM
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Println("👋 Shutting down...")
		cancel()
		svc.Destroy()
		os.Exit(0)
	}()

	// 7. Start Server
	srv := api.New(cfg, repo, playerClient, exp, prefStore)
	log.Printf("🚀 API listening on %s", cfg.Server.Addr)
	if err := srv.Start(cfg.Server.Addr); err != nil {
		log.Fatalf("❌ Server failed to start: %v", err)
	}
}
