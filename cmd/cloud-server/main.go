package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/DezzK/private-cloud/internal/config"
	"github.com/DezzK/private-cloud/internal/platform/privacylog"
	"github.com/DezzK/private-cloud/internal/server"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "Path to server config YAML (optional)")
	listenAddr := flag.String("listen", "", "Listen address override (optional)")
	flag.Parse()
	if *showVersion {
		fmt.Printf("cloud-server version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	logger := slog.New(privacylog.WrapHandler(slog.NewTextHandler(os.Stderr, nil)))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		log.Fatalf("cloud-server failed to load config: %v", err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		log.Fatalf("cloud-server failed to initialize: %v", err)
	}

	log.Println("cloud-server starting")
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("cloud-server failed: %v", err)
	}
	log.Println("cloud-server stopped")
}
