package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/df07/go-prt/pkg/config"
	"github.com/df07/go-prt/pkg/logging"
	"github.com/df07/go-prt/pkg/precompute"
	"github.com/df07/go-prt/pkg/scene"
	"github.com/pkg/errors"
	_ "gocloud.dev/blob/fileblob" // file:// buckets
	_ "gocloud.dev/blob/gcsblob"  // gs:// buckets
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// options are the command line settings that are not part of config.Config
type options struct {
	configPath string
	listScenes bool
}

// parseFlags loads the config file named by -config and applies every flag
// that was set explicitly on top of it
func parseFlags(args []string, stderr io.Writer) (config.Config, options, error) {
	defaults := config.Default()
	fs := flag.NewFlagSet("prt", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.configPath, "config", "", "YAML config file")
	fs.BoolVar(&opts.listScenes, "list-scenes", false, "List built-in scenes and exit")
	cubemap := fs.String("cubemap", "", "Cubemap directory or bucket URL holding negx/posx/posy/negy/posz/negz faces")
	cubemapExt := fs.String("cubemap-ext", defaults.CubemapExt, "Cubemap face file extension")
	mesh := fs.String("mesh", "", "PLY mesh or PBRT scene file")
	sceneName := fs.String("scene", "", "Built-in scene, used when -mesh is not given")
	mode := fs.String("type", defaults.Type, "Transport type: unshadowed, shadowed or interreflection")
	samples := fs.Int("samples", defaults.SampleCount, "Sample directions per vertex (rounded down to a square)")
	bounce := fs.Int("bounce", defaults.Bounce, "Interreflection passes")
	seed := fs.Uint64("seed", defaults.Seed, "Random seed")
	workers := fs.Int("workers", defaults.Workers, "Parallel workers, 0 for every CPU")
	out := fs.String("out", "", "Output directory or bucket URL (default: the cubemap location)")
	preview := fs.String("preview", "", "Also render a preview PNG with this name into the output location")
	logLevel := fs.String("log-level", defaults.LogLevel, "Log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, opts, err
	}
	if fs.NArg() > 0 {
		return config.Config{}, opts, errors.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg := defaults
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return config.Config{}, opts, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cubemap":
			cfg.Cubemap = *cubemap
		case "cubemap-ext":
			cfg.CubemapExt = *cubemapExt
		case "mesh":
			cfg.Mesh = *mesh
		case "scene":
			cfg.Scene = *sceneName
		case "type":
			cfg.Type = *mode
		case "samples":
			cfg.SampleCount = *samples
		case "bounce":
			cfg.Bounce = *bounce
		case "seed":
			cfg.Seed = *seed
		case "workers":
			cfg.Workers = *workers
		case "out":
			cfg.Output = *out
		case "preview":
			cfg.Preview.File = *preview
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	return cfg, opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if opts.listScenes {
		infos, err := scene.List()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		for _, info := range infos {
			fmt.Fprintf(stdout, "  %-10s %s (%d vertices)\n", info.Name, info.Description, info.Vertices)
		}
		return 0
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid log level %q\n", cfg.LogLevel)
		return 2
	}
	logger := logging.New(stderr, &logging.Options{Level: level, Prefix: "prt", Time: true})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	baker := &precompute.Baker{Config: cfg, Logger: logger}
	res, err := baker.Run(ctx)
	if err != nil {
		logger.Error("bake failed", "err", err)
		return 1
	}

	logSummary(logger, cfg, res)
	return 0
}

func logSummary(logger *slog.Logger, cfg config.Config, res *precompute.Result) {
	ts := res.TransportStats
	logger.Info("wrote coefficients",
		"light", cfg.LightFile,
		"transport", cfg.TransportFile,
		"location", cfg.OutputLocation(),
		"vertices", ts.Vertices,
		"hit_ratio", ts.AverageHitRatio,
		"bounces", res.BounceStats.Passes)
	if res.Preview != nil {
		logger.Info("wrote preview", "file", cfg.Preview.File)
	}
}
