// Command decktree converts PowerPoint presentations into the json/ +
// media/ content-tree layout.
//
// Usage:
//
//	decktree --input deck.pptx --output ./out
//	decktree --input ./decks --output ./out --slide-concurrency 4
//	decktree --config decktree.yaml --input ./decks
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/jsvoboda/decktree"
)

func main() {
	var (
		input       = flag.String("input", "", "Input .pptx file or directory of .pptx files")
		output      = flag.String("output", "", "Output directory (default from config: output)")
		configPath  = flag.String("config", "", "Path to config file (YAML)")
		concurrency = flag.Int("slide-concurrency", 0, "Slide worker pool size (0 = from config)")
		verbose     = flag.Bool("verbose", false, "Enable debug logging (text handler)")
	)
	flag.Parse()

	if *verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	} else {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})))
	}

	cfg := decktree.DefaultConfig()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			slog.Error("reading config", "error", err)
			os.Exit(1)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			slog.Error("parsing config", "error", err)
			os.Exit(1)
		}
	}

	// Environment overrides, then flags win over everything.
	if v := os.Getenv("DECKTREE_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("DECKTREE_SLIDE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SlideConcurrency = n
		}
	}
	if *output != "" {
		cfg.OutputDir = *output
	}
	if *concurrency > 0 {
		cfg.SlideConcurrency = *concurrency
	}

	if *input == "" {
		slog.Error("--input is required")
		flag.Usage()
		os.Exit(2)
	}

	conv, err := decktree.New(cfg)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	info, err := os.Stat(*input)
	if err != nil {
		slog.Error("input path does not exist", "path", *input, "error", err)
		os.Exit(1)
	}

	if info.IsDir() {
		results, err := conv.ConvertAll(ctx, *input)
		if err != nil {
			slog.Error("conversion failed", "error", err)
			os.Exit(1)
		}
		slog.Info("done", "documents", len(results), "output", cfg.OutputDir)
		return
	}

	res, err := conv.Convert(ctx, *input)
	if err != nil {
		slog.Error("conversion failed", "path", *input, "error", err)
		os.Exit(1)
	}
	slog.Info("done", "json", res.JSONPath,
		"slides", res.Presentation.Metadata.Stats.SlideCount,
		"warnings", len(res.Warnings))
}
