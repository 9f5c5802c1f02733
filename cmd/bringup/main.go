package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/bringup/internal/app"
	"github.com/buckleypaul/bringup/internal/check"
	"github.com/buckleypaul/bringup/internal/config"
	"github.com/buckleypaul/bringup/internal/logging"
	"github.com/buckleypaul/bringup/internal/runner"
	"github.com/buckleypaul/bringup/internal/serial"
	"github.com/buckleypaul/bringup/internal/store"
	"github.com/buckleypaul/bringup/internal/ui"
)

const (
	exitFailed = 1
	exitSetup  = 2
)

const reportWidth = 100

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", config.DefaultPath, "path to the JSON config file")
		core       = flag.String("core", "a", "core to bring up ("+strings.Join(runner.Cores(), "|")+")")
		skipBoot   = flag.Bool("skip-boot", false, "skip boot log capture and go straight to the checks")
		reboot     = flag.Bool("reboot", false, "send reboot over the console instead of waiting for a manual power on")
		useTUI     = flag.Bool("tui", false, "show progress in an interactive terminal UI")
		listPorts  = flag.Bool("list-ports", false, "list serial ports and exit")
		initConfig = flag.Bool("init", false, "write a default config file and exit")
		logLevel   = flag.String("log-level", "info", "log level (debug, info, warn, error)")
		logFormat  = flag.String("log-format", "text", "log format (text, json)")
		transport  = flag.String("transport", "", "override the configured transport (serial, tcp)")
	)
	flag.Parse()

	logging.Setup(os.Stderr, logging.ParseFormat(*logFormat))
	logging.SetLevel(logging.ParseLevel(*logLevel))

	if *listPorts {
		ports, err := serial.ListPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitSetup
		}
		if len(ports) == 0 {
			fmt.Println("no serial ports found")
		}
		for _, p := range ports {
			fmt.Println(p.Describe())
		}
		return 0
	}

	if *initConfig {
		if err := config.Save(config.Defaults(), *configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitSetup
		}
		fmt.Printf("wrote %s\n", *configPath)
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitSetup
	}
	if *transport != "" {
		cfg.Transport = *transport
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := runner.Options{Config: cfg, Core: *core, SkipBoot: *skipBoot}
	if *reboot {
		opts.Reboot = "reboot\n"
	}
	logging.L().Info("starting bring-up", "target", runner.Describe(cfg, *core), "skip_boot", *skipBoot)

	var (
		title   string
		results []check.Result
	)
	if *useTUI {
		title, results, err = runTUI(ctx, opts)
	} else {
		title, results, err = runPlain(ctx, opts)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitSetup
	}

	fmt.Println(ui.Report(title, results, reportWidth))
	if !check.AllPassed(results) {
		return exitFailed
	}
	return 0
}

func runPlain(ctx context.Context, opts runner.Options) (string, []check.Result, error) {
	profile, ok := runner.Lookup(opts.Core)
	title := opts.Core
	if ok {
		title = profile.Title
	}
	printLastRun(opts.Config, opts.Core)
	results, err := runner.Run(ctx, opts, func(r check.Result) {
		fmt.Println(ui.Row(r))
	})
	return title, results, err
}

func printLastRun(cfg config.Config, core string) {
	last, ok, err := store.New(cfg.StateDir).LastRun(core)
	if err != nil {
		logging.L().Warn("run history unreadable", "err", err)
		return
	}
	if !ok {
		return
	}
	outcome := "PASS"
	if !last.Success {
		outcome = "FAIL"
	}
	fmt.Printf("previous run on %s: %s (%s, %s)\n", last.Endpoint, outcome, last.Timestamp.Format("2006-01-02 15:04:05"), last.Duration)
}

func runTUI(ctx context.Context, opts runner.Options) (string, []check.Result, error) {
	h, err := runner.Open(ctx, opts)
	if err != nil {
		return "", nil, err
	}
	defer h.Close()

	title := h.Profile().Title
	model := app.New(ctx, title, h.Steps())
	logging.L().Debug("starting terminal UI", "endpoint", h.Endpoint())
	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	// A step may still be reading after a quit; it must return before the
	// run is recorded and the connection closed.
	model.Stop()
	if err != nil {
		return title, nil, err
	}
	m, ok := final.(app.Model)
	if !ok {
		return title, nil, fmt.Errorf("unexpected model %T", final)
	}
	results := m.Results()
	if !m.Done() {
		results = append(results, check.Result{Name: "run", Status: check.Error, Reason: "quit before every step finished"})
	}
	if err := h.Record(results); err != nil {
		logging.L().Warn("run history not saved", "err", err)
	}
	return title, results, nil
}
