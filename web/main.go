package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/df07/go-prt/pkg/config"
	"github.com/df07/go-prt/pkg/logging"
	"github.com/df07/go-prt/pkg/precompute"
	"github.com/df07/go-prt/web/server"
	_ "gocloud.dev/blob/gcsblob" // gs:// buckets
)

func main() {
	// Parse command line flags
	port := flag.Int("port", 8080, "Port to serve on")
	configPath := flag.String("config", "", "YAML config file of the bake to serve")
	bake := flag.Bool("bake", false, "Run the bake instead of loading its coefficient files")
	flag.Parse()

	logger := logging.New(os.Stderr, &logging.Options{Prefix: "prt-web", Time: true})

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Error("load config", "err", err)
			os.Exit(2)
		}
		cfg = loaded
	}
	if level, err := logging.ParseLevel(cfg.LogLevel); err == nil {
		logger = logging.New(os.Stderr, &logging.Options{Level: level, Prefix: "prt-web", Time: true})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	baker := &precompute.Baker{Config: cfg, Logger: logger}
	load := baker.Load
	if *bake {
		load = baker.Run
	}
	res, err := load(ctx)
	if err != nil {
		logger.Error("prepare coefficients", "err", err)
		os.Exit(1)
	}

	if err := server.NewServer(*port, res, logger).Start(ctx); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
