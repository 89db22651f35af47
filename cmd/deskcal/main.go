package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"deskcal/internal/app"
	"deskcal/internal/config"
	appLog "deskcal/internal/log"
	"deskcal/internal/store"
)

const version = "0.1.0"

// flagConfig holds global CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	debug      bool
}

// env is what every subcommand runs against.
type env struct {
	flags      flagConfig
	cfg        *config.Config
	store      *store.Store
	ctrl       *app.Controller
	eventsPath string
}

func main() {
	flags := parseFlags()

	args := flag.Args()
	cmd := "tui"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	if cmd == "version" {
		fmt.Println("deskcal", version)
		return
	}

	e, err := bootstrap(flags)
	if err != nil {
		appLog.Error("startup failed", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, e, cmd, args); err != nil {
		var usage usageError
		if errors.As(err, &usage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		appLog.Error("command failed", err, "command", cmd)
		os.Exit(1)
	}
}

func run(ctx context.Context, e *env, cmd string, args []string) error {
	switch cmd {
	case "tui":
		return runTUI(e)
	case "show":
		return runShow(e, args)
	case "list":
		return runList(e, args)
	case "add":
		return runAdd(e, args)
	case "remove":
		return runRemove(e, args)
	case "export":
		return runExport(e, args)
	case "import":
		return runImport(ctx, e, args)
	case "serve":
		return runServe(ctx, e)
	case "snapshot":
		return runSnapshot(ctx, e, args)
	default:
		return usageError{fmt.Sprintf("unknown command %q (want tui, show, list, add, remove, export, import, serve, snapshot, version)", cmd)}
	}
}

// bootstrap loads the config and the event store.
func bootstrap(flags flagConfig) (*env, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		if cfg == nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		// 기본 설정은 사용 가능, 저장만 실패
		appLog.Warn("could not write default config", "config_path", flags.configPath, "error", err.Error())
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		cfg.Listen = flags.listen
	}
	if flags.debug {
		cfg.LogLevel = string(appLog.LevelDebug)
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))

	mode, err := store.ParseLoadMode(cfg.LoadMode)
	if err != nil {
		return nil, err
	}

	eventsPath := config.ResolvePath(flags.configPath, cfg.EventsFile)
	st := store.New(eventsPath, mode)
	report, err := st.Load()
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	appLog.Debug("effective config",
		"config_path", flags.configPath,
		"events_file", eventsPath,
		"load_mode", mode,
		"loaded", report.Loaded,
		"skipped", len(report.Failures),
		"listen", cfg.Listen,
		"export_cron", cfg.Export.Cron,
	)

	return &env{
		flags:      flags,
		cfg:        cfg,
		store:      st,
		ctrl:       app.New(st),
		eventsPath: eventsPath,
	}, nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", defaultConfigPath(), "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: deskcal [flags] [command] [command flags]\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Commands: tui (default), show, list, add, remove, export, import, serve, snapshot, version\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	return cfg
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "deskcal", "config.yaml")
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }
