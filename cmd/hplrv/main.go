// Command hplrv compiles HPL properties from a TOML config into monitors
// and either checks the config (build), runs a live manager bound to a
// live-update bus (run), or replays a trace file against a manager
// (replay).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/git-afsantos/hplrv/internal/config"
	"github.com/git-afsantos/hplrv/internal/history"
	"github.com/git-afsantos/hplrv/internal/livebus"
	"github.com/git-afsantos/hplrv/internal/manager"
	"github.com/git-afsantos/hplrv/internal/player"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: hplrv <build|run|replay> [flags]\n")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "build":
		runBuild(os.Args[2:])
	case "run":
		runRun(os.Args[2:])
	case "replay":
		runReplay(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\nusage: hplrv <build|run|replay> [flags]\n", os.Args[1])
		os.Exit(1)
	}
}

// runBuild loads and compiles a config, reporting per-monitor build
// errors without launching anything. Useful as a config linter.
func runBuild(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", "hplrv.toml", "path to config file")
	fs.Parse(args)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	specs, err := cfg.BuildSpecs()
	if err != nil {
		slog.Error("failed to build monitor specs", "error", err)
		os.Exit(1)
	}

	for _, spec := range specs {
		slog.Info("compiled monitor", "id", spec.ID, "title", spec.Title, "pattern", spec.Kind.String())
	}
	fmt.Printf("ok: %d monitor(s) compiled\n", len(specs))
}

// runRun loads a config, launches a manager, and serves the live-update
// bus until SIGINT/SIGTERM.
func runRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "hplrv.toml", "path to config file")
	fs.Parse(args)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	specs, err := cfg.BuildSpecs()
	if err != nil {
		slog.Error("failed to build monitor specs", "error", err)
		os.Exit(1)
	}

	var store *history.Store
	var lifecycle manager.Lifecycle
	if cfg.Storage.Enabled {
		store, err = history.Open(cfg.Storage.Path)
		if err != nil {
			slog.Error("failed to open history store", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		lifecycle = store
	}

	var mgr *manager.Manager
	bus := livebus.New(func() []manager.StatusEntry { return mgr.StatusReport() },
		livebus.WithMaxConnections(cfg.Bus.MaxConnections))

	opts := []manager.Option{manager.WithSink(bus)}
	if lifecycle != nil {
		opts = append(opts, manager.WithLifecycle(lifecycle))
	}
	mgr = manager.New(specs, opts...)

	addr := fmt.Sprintf("%s:%d", cfg.Bus.Host, cfg.Bus.Port)
	if err := bus.Start(addr); err != nil {
		slog.Error("failed to start live-update bus", "error", err)
		os.Exit(1)
	}
	defer bus.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	launch := float64(time.Now().Unix())
	mgr.Launch(launch)
	slog.Info("manager launched", "monitors", mgr.Len(), "bus_addr", addr)

	<-ctx.Done()
	slog.Info("shutting down")
	mgr.Shutdown(float64(time.Now().Unix()))
}

// runReplay loads a config and a trace file, then drives the manager
// deterministically through player.Replay instead of live input.
func runReplay(args []string) {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	configPath := fs.String("config", "hplrv.toml", "path to config file")
	tracePath := fs.String("trace", "", "path to trace file (overrides [trace].file)")
	fs.Parse(args)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	specs, err := cfg.BuildSpecs()
	if err != nil {
		slog.Error("failed to build monitor specs", "error", err)
		os.Exit(1)
	}

	path := cfg.Trace.File
	if *tracePath != "" {
		path = *tracePath
	}
	if path == "" {
		slog.Error("replay requires a trace file (set [trace].file or pass -trace)")
		os.Exit(1)
	}

	f, err := os.Open(path)
	if err != nil {
		slog.Error("failed to open trace file", "error", err)
		os.Exit(1)
	}
	defer f.Close()

	tr, err := player.DecodeTraceFile(f)
	if err != nil {
		slog.Error("failed to decode trace file", "error", err)
		os.Exit(1)
	}

	mgr := manager.New(specs)
	mgr.Launch(0)
	player.Replay(tr, cfg.Trace.Frequency, mgr, nil)
	report := mgr.StatusReport()
	mgr.Shutdown(tr.Events[len(tr.Events)-1].Timestamp)

	for _, entry := range report {
		verdict := "none"
		if entry.Verdict != nil {
			verdict = fmt.Sprintf("%v", *entry.Verdict)
		}
		fmt.Printf("%s (%s): %s verdict=%s\n", entry.ID, entry.Title, entry.State, verdict)
	}
}
