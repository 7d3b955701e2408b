package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/gridmux/gridmux/internal/panes"
	"github.com/gridmux/gridmux/internal/registry"
)

func printPaneUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  gridmux pane create [--prompt TEXT] [--shell] [--agent NAME] [--autopilot] <slug>")
	fmt.Fprintln(w, "  gridmux pane close <id-or-slug>")
	fmt.Fprintln(w, "  gridmux pane list [--json]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'gridmux pane <command> --help' for command-specific options.")
}

func runPane(args []string) int {
	if len(args) == 0 {
		printPaneUsage(os.Stderr)
		return 2
	}

	switch args[0] {
	case "create":
		return runPaneCreate(args[1:])
	case "close":
		return runPaneClose(args[1:])
	case "list":
		return runPaneList(args[1:])
	case "help", "-h", "--help":
		printPaneUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown pane command: %s\n\n", args[0])
		printPaneUsage(os.Stderr)
		return 2
	}
}

func runPaneCreate(args []string) int {
	fs := flag.NewFlagSet("pane create", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	prompt := fs.String("prompt", "", "task description handed to the agent")
	shell := fs.Bool("shell", false, "create an ephemeral shell pane instead of a worktree pane")
	agent := fs.String("agent", "", "agent to launch (from config)")
	autopilot := fs.Bool("autopilot", false, "run the agent without confirmation prompts")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gridmux pane create [options] <slug>")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "pane create takes exactly one slug")
		fs.Usage()
		return 2
	}

	eng, err := newEngine(slog.Default())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	kind := registry.KindWorktree
	if *shell {
		kind = registry.KindShell
	}
	agents := agentNames(eng.cfg.Agents)
	if *agent != "" {
		if _, ok := eng.cfg.Agents[*agent]; !ok {
			fmt.Fprintf(os.Stderr, "unknown agent %q; available: %v\n", *agent, agents)
			return 1
		}
	}

	auto := *autopilot || eng.cfg.DefaultAutopilot
	res, err := eng.manager.CreatePane(panes.CreateOptions{
		Slug:      fs.Arg(0),
		Prompt:    *prompt,
		Kind:      kind,
		Agent:     *agent,
		Autopilot: auto,
	}, agents)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fmt.Printf("created %s (%s) in pane %s\n", res.Pane.Slug, res.Pane.EffectiveKind(), res.Pane.PaneID)
	if res.Pane.WorktreePath != "" {
		fmt.Printf("worktree: %s\n", res.Pane.WorktreePath)
	}
	if res.NeedsAgentChoice {
		fmt.Printf("no agent launched; pick one with --agent: %v\n", agents)
	}
	return 0
}

func runPaneClose(args []string) int {
	fs := flag.NewFlagSet("pane close", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gridmux pane close <id-or-slug>")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "pane close takes exactly one id or slug")
		fs.Usage()
		return 2
	}

	eng, err := newEngine(slog.Default())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	id := fs.Arg(0)
	reg, err := eng.store.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if reg.FindByID(id) == nil {
		if pane := reg.FindBySlug(id); pane != nil {
			id = pane.ID
		}
	}

	if err := eng.manager.ClosePane(id); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("closed %s\n", fs.Arg(0))
	return 0
}

func runPaneList(args []string) int {
	fs := flag.NewFlagSet("pane list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "emit JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gridmux pane list [--json]")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "pane list takes no arguments")
		fs.Usage()
		return 2
	}

	eng, err := newEngine(slog.Default())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	reg, err := eng.store.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *asJSON {
		data, err := json.MarshalIndent(reg.Panes, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	if len(reg.Panes) == 0 {
		fmt.Println("no tracked panes")
		return 0
	}
	for _, p := range reg.Panes {
		status := ""
		if p.TestStatus != "" {
			status = " tests=" + p.TestStatus
		}
		if p.DevStatus != "" {
			status += " dev=" + p.DevStatus
		}
		fmt.Printf("%-20s %-9s %-6s agent=%s%s\n", p.Slug, p.EffectiveKind(), p.PaneID, orDash(p.Agent), status)
	}
	return 0
}

func agentNames(agents map[string]string) []string {
	names := make([]string, 0, len(agents))
	for name := range agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
