package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/crimson-sun/sigflow/internal/config"
	"github.com/crimson-sun/sigflow/internal/logging"
	"github.com/crimson-sun/sigflow/pkg/sigflow"
)

// result is the JSON line printed for each name.
type result struct {
	sigflow.Generation
	Predictions []string `json:"predictions,omitempty"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sigflow", flag.ContinueOnError)
	fs.SetOutput(stderr)
	mode := fs.String("mode", "hybrid", "generation mode: dataset, procedural or hybrid")
	predict := fs.Bool("predict", true, "classify outputs when a model is configured")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: sigflow [-mode hybrid] name [name ...]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg := config.Load()
	logging.Init(true, logging.ParseLevel(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "sigflow: invalid configuration:\n%v\n", err)
		return 1
	}

	s, err := sigflow.New(optionsFromConfig(cfg)...)
	if err != nil {
		fmt.Fprintf(stderr, "sigflow: %v\n", err)
		return 1
	}
	defer func() {
		if err := s.Close(); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}()

	enc := json.NewEncoder(stdout)
	for _, name := range fs.Args() {
		if err := ctx.Err(); err != nil {
			slog.Info("interrupted, stopping", "remaining", name)
			return 130
		}
		g, err := s.SynthesizeDetailed(ctx, name, *mode)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return 130
			}
			fmt.Fprintf(stderr, "sigflow: %q: %v\n", name, err)
			return 1
		}
		r := result{Generation: g}
		if *predict {
			r.Predictions = s.Predict(g.Refs, name)
		}
		if err := enc.Encode(r); err != nil {
			fmt.Fprintf(stderr, "sigflow: write result: %v\n", err)
			return 1
		}
	}
	return 0
}

func optionsFromConfig(cfg config.Config) []sigflow.Option {
	opts := []sigflow.Option{
		sigflow.WithDatasetRoot(cfg.Dataset.Root),
		sigflow.WithLabelsCSV(cfg.Dataset.LabelsCSV),
		sigflow.WithFontDir(cfg.Render.FontDir),
		sigflow.WithFontCache(cfg.Render.FontCache),
		sigflow.WithOutputDir(cfg.Output.Dir),
		sigflow.WithURLPrefix(cfg.Output.URLPrefix),
		sigflow.WithLogPath(cfg.Output.LogPath),
		sigflow.WithSeed(cfg.Seed),
		sigflow.WithModel(cfg.Classify.ModelPath, cfg.Classify.ClassesPath),
		sigflow.WithConfidenceThreshold(cfg.Classify.ConfidenceThreshold),
	}
	if cfg.Output.RequestID == "uuid" {
		opts = append(opts, sigflow.WithUUIDs())
	}
	if cfg.Output.SQLiteDSN != "" {
		opts = append(opts, sigflow.WithSQLite(cfg.Output.SQLiteDSN))
	}
	if cfg.Output.Webhook != "" {
		opts = append(opts, sigflow.WithWebhook(cfg.Output.Webhook))
	}
	if cfg.Output.EchoAudit {
		opts = append(opts, sigflow.WithAuditEcho(os.Stderr))
	}
	if m := cfg.Mirror; m.Enabled() {
		opts = append(opts, sigflow.WithMinIO(m.Endpoint, m.AccessKey, m.SecretKey, m.Bucket, m.UseSSL))
	}
	return opts
}
