package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/gridmux/gridmux/internal/config"
	"github.com/gridmux/gridmux/internal/daemon"
	"github.com/gridmux/gridmux/internal/git"
	"github.com/gridmux/gridmux/internal/panes"
	"github.com/gridmux/gridmux/internal/registry"
	"github.com/gridmux/gridmux/internal/runtimepath"
	"github.com/gridmux/gridmux/internal/tmux"
	"gopkg.in/yaml.v3"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		if len(os.Args) > 2 && (os.Args[2] == "help" || os.Args[2] == "-h" || os.Args[2] == "--help") {
			fmt.Fprintln(os.Stdout, "Usage: gridmux daemon")
			os.Exit(0)
		}
		if len(os.Args) > 2 {
			fmt.Fprintln(os.Stderr, "daemon takes no arguments")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Usage: gridmux daemon")
			os.Exit(2)
		}
		runDaemon()
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "pane":
		os.Exit(runPane(os.Args[2:]))
	case "layout":
		os.Exit(runLayout(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: gridmux <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the gridmux daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon and pane status")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  pane create         Create a tracked pane")
	fmt.Fprintln(w, "  pane close          Close a tracked pane")
	fmt.Fprintln(w, "  pane list           List tracked panes")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  layout apply        Recompute and apply the grid layout")
	fmt.Fprintln(w, "  layout preview      Print the layout a pane count would produce")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print effective configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'gridmux <command> --help' for command-specific options.")
}

// engine bundles the wired collaborators the one-shot commands share.
type engine struct {
	cfg     *config.Config
	store   *registry.Store
	manager *panes.Manager
	logger  *slog.Logger
}

func newEngine(logger *slog.Logger) (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	root, err := git.RepoRoot(cwd)
	if err != nil {
		return nil, fmt.Errorf("not inside a git repository: %w", err)
	}

	mux := tmux.New()
	if !mux.Available() {
		return nil, tmux.ErrTmuxNotAvailable
	}

	store := registry.NewStore(filepath.Join(root, ".gridmux", "registry.json"))

	manager := panes.NewManager(panes.ManagerConfig{
		Store:       store,
		Mux:         mux,
		Git:         git.New(root),
		Logger:      logger,
		Thresholds:  cfg.Thresholds(),
		Target:      cfg.Target,
		ProjectRoot: root,
		Agents:      cfg.Agents,
	})

	return &engine{cfg: cfg, store: store, manager: manager, logger: logger}, nil
}

func runDaemon() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, closeLog, err := newDaemonLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatalf("Failed to get working directory: %v", err)
	}
	root, err := git.RepoRoot(cwd)
	if err != nil {
		log.Fatalf("Not inside a git repository: %v", err)
	}

	mux := tmux.New()
	if !mux.Available() {
		log.Fatalf("%v", tmux.ErrTmuxNotAvailable)
	}
	// Pane titles are the rebind key; stop programs from renaming them.
	if err := mux.SetGlobalOption("allow-rename", "off"); err != nil {
		logger.Warn("failed to pin pane titles", "error", err)
	}

	registryPath := filepath.Join(root, ".gridmux", "registry.json")
	if err := os.MkdirAll(filepath.Dir(registryPath), 0755); err != nil {
		log.Fatalf("Failed to create state directory: %v", err)
	}
	store := registry.NewStore(registryPath)

	watcher, err := registry.NewWatcher(store, logger)
	if err != nil {
		log.Fatalf("Failed to watch registry: %v", err)
	}

	manager := panes.NewManager(panes.ManagerConfig{
		Store:       store,
		Mux:         mux,
		Git:         git.New(root),
		Watcher:     watcher,
		Logger:      logger,
		Thresholds:  cfg.Thresholds(),
		Target:      cfg.Target,
		ProjectRoot: root,
		Agents:      cfg.Agents,
	})

	poller := daemon.NewPoller(daemon.PollerConfig{
		Interval: cfg.PollInterval,
		Logger:   logger,
		Reloads:  watcher.Events(),
	}, manager)

	pidPath, err := runtimepath.PIDFilePath()
	if err != nil {
		logger.Warn("pid file unavailable", "error", err)
	} else if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		logger.Warn("failed to write pid file", "path", pidPath, "error", err)
	} else {
		defer os.Remove(pidPath)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("gridmux daemon started", "project", root, "target", cfg.Target)

	go watcher.Run(ctx)
	poller.Run(ctx)

	logger.Info("gridmux daemon stopped")
}

func newDaemonLogger(logCfg config.LoggingConfig) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	switch logCfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	out := io.Writer(os.Stderr)
	closeLog := func() {}
	path := logCfg.File
	if path == "" {
		if p, err := runtimepath.LogFilePath(); err == nil {
			path = p
		}
	}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %q: %w", path, err)
		}
		out = f
		closeLog = func() { f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	return logger, closeLog, nil
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gridmux status")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon liveness and tracked pane counts.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	running := false
	if pidPath, err := runtimepath.PIDFilePath(); err == nil {
		if data, err := os.ReadFile(pidPath); err == nil {
			if pid, err := strconv.Atoi(string(trimNewline(data))); err == nil {
				if proc, err := os.FindProcess(pid); err == nil {
					running = proc.Signal(syscall.Signal(0)) == nil
				}
			}
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	root, err := git.RepoRoot(cwd)
	if err != nil {
		fmt.Fprintln(os.Stderr, "not inside a git repository")
		return 1
	}

	store := registry.NewStore(filepath.Join(root, ".gridmux", "registry.json"))
	reg, err := store.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	worktrees := 0
	for _, p := range reg.Panes {
		if p.EffectiveKind() == registry.KindWorktree {
			worktrees++
		}
	}

	fmt.Printf("daemon_running: %v\n", running)
	fmt.Printf("tmux_available: %v\n", tmux.New().Available())
	fmt.Printf("project_root:   %s\n", root)
	fmt.Printf("pane_count:     %d\n", len(reg.Panes))
	fmt.Printf("worktree_count: %d\n", worktrees)
	return 0
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func runConfig(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: gridmux config <validate|print>")
		return 2
	}

	switch args[0] {
	case "validate":
		if _, err := config.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
			return 1
		}
		fmt.Println("ok")
		return 0
	case "print":
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		printable := map[string]any{
			"poll_interval":     cfg.PollInterval.String(),
			"target":            cfg.Target,
			"agents":            cfg.Agents,
			"default_autopilot": cfg.DefaultAutopilot,
			"layout":            cfg.Layout,
			"logging":           cfg.Logging,
		}
		data, err := yaml.Marshal(printable)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		os.Stdout.Write(data)
		return 0
	case "help", "-h", "--help":
		fmt.Fprintln(os.Stdout, "Usage: gridmux config <validate|print>")
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config command: %s\n", args[0])
		return 2
	}
}
