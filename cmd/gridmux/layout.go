package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/gridmux/gridmux/internal/config"
	"github.com/gridmux/gridmux/internal/layout"
)

func printLayoutUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  gridmux layout apply")
	fmt.Fprintln(w, "  gridmux layout preview [--panes N] [--width N] [--height N]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'gridmux layout <command> --help' for command-specific options.")
}

func runLayout(args []string) int {
	if len(args) == 0 {
		printLayoutUsage(os.Stderr)
		return 2
	}

	switch args[0] {
	case "apply":
		return runLayoutApply(args[1:])
	case "preview":
		return runLayoutPreview(args[1:])
	case "help", "-h", "--help":
		printLayoutUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown layout command: %s\n\n", args[0])
		printLayoutUsage(os.Stderr)
		return 2
	}
}

func runLayoutApply(args []string) int {
	fs := flag.NewFlagSet("layout apply", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gridmux layout apply")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Reconcile tracked panes and reapply the computed grid.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "layout apply takes no arguments")
		fs.Usage()
		return 2
	}

	eng, err := newEngine(slog.Default())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	eng.manager.InvalidateLayout()
	reg, err := eng.manager.LoadAndProcessPanes()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("applied layout for %d pane(s)\n", len(reg.Panes))
	return 0
}

func runLayoutPreview(args []string) int {
	fs := flag.NewFlagSet("layout preview", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	paneCount := fs.Int("panes", 1, "content pane count to preview")
	width := fs.Int("width", 0, "window width (default: current terminal)")
	height := fs.Int("height", 0, "window height (default: current terminal)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: gridmux layout preview [--panes N] [--width N] [--height N]")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "layout preview takes no arguments")
		fs.Usage()
		return 2
	}
	if *paneCount < 1 {
		fmt.Fprintln(os.Stderr, "--panes must be at least 1")
		return 2
	}

	w, h := *width, *height
	if w == 0 || h == 0 {
		tw, th, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil {
			fmt.Fprintln(os.Stderr, "not a terminal; pass --width and --height")
			return 2
		}
		if w == 0 {
			w = tw
		}
		if h == 0 {
			h = th
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	th := cfg.Thresholds()

	grid := layout.Calculate(*paneCount, w, h, th)
	fmt.Printf("window:  %dx%d\n", w, h)
	fmt.Printf("grid:    %d column(s) x %d row(s)\n", grid.Columns, grid.Rows)
	fmt.Printf("pane:    %dx%d\n", grid.PaneWidth, grid.PaneHeight)
	fmt.Printf("spacer:  %v\n", grid.NeedsSpacer)

	// Synthetic handles: sidebar is pane 0, content follows in grid order.
	ids := make([]string, 0, *paneCount+1)
	for i := 1; i <= *paneCount; i++ {
		ids = append(ids, fmt.Sprintf("%%%d", i))
	}
	if grid.NeedsSpacer {
		ids = append(ids, fmt.Sprintf("%%%d", *paneCount+1))
	}
	descriptor, err := layout.Descriptor(grid, w, h, "%0", ids, th)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("layout:  %s\n", descriptor)
	return 0
}
