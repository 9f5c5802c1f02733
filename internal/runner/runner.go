// Package runner wires a configured transport, the boot and command
// sessions of a core profile, the check suite and the run history.
package runner

import (
	"context"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/buckleypaul/bringup/internal/check"
	"github.com/buckleypaul/bringup/internal/config"
	"github.com/buckleypaul/bringup/internal/ethernet"
	"github.com/buckleypaul/bringup/internal/fault"
	"github.com/buckleypaul/bringup/internal/logging"
	"github.com/buckleypaul/bringup/internal/serial"
	"github.com/buckleypaul/bringup/internal/session"
	"github.com/buckleypaul/bringup/internal/store"
)

// Conn is an owned connection to the DUT.
type Conn interface {
	session.Conn
	io.Closer
}

// Dialer opens the transport named by cfg.
type Dialer func(ctx context.Context, cfg config.Config) (Conn, error)

// Options selects what a run does.
type Options struct {
	Config   config.Config
	Core     string
	SkipBoot bool
	// Reboot, when set, is sent on the boot session instead of waiting
	// for a manual power cycle.
	Reboot string
	// Dial defaults to Dial.
	Dial Dialer
	// Sleep replaces the real timer used for command delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Step is one unit of a run, reported as one result.
type Step struct {
	Name string
	Run  func(ctx context.Context) check.Result
}

// Harness is an opened run: one connection and the sessions over it.
type Harness struct {
	cfg      config.Config
	profile  Profile
	skipBoot bool
	reboot   string
	conn     Conn
	endpoint string
	store    *store.Store
	boot     *session.Session
	shell    *session.Session
	started  time.Time
}

// Dial opens the serial port or TCP endpoint named by cfg.
func Dial(ctx context.Context, cfg config.Config) (Conn, error) {
	switch cfg.Transport {
	case config.TransportTCP:
		return ethernet.Dial(ctx, cfg.TCPHost, cfg.TCPPort, cfg.ReadTimeout())
	default:
		return serial.Open(cfg.SerialPort, cfg.SerialBaudRate, cfg.ReadTimeout())
	}
}

// Open validates the config, opens the transport and prepares the boot and
// command sessions of the selected core.
func Open(ctx context.Context, opts Options) (*Harness, error) {
	profile, ok := Lookup(opts.Core)
	if !ok {
		return nil, fault.E(fault.Config, "select core", errors.Errorf("unknown core %q, want one of %v", opts.Core, Cores()))
	}
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st := store.New(cfg.StateDir)
	logDir := cfg.LogDir
	// A config not built from Defaults may carry no log dir.
	if logDir == "" {
		dir, err := st.LogsDir()
		if err != nil {
			return nil, errors.Wrap(err, "create logs dir")
		}
		logDir = dir
	}

	dial := opts.Dial
	if dial == nil {
		dial = Dial
	}
	conn, err := dial(ctx, cfg)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		cfg:      cfg,
		profile:  profile,
		skipBoot: opts.SkipBoot,
		reboot:   opts.Reboot,
		conn:     conn,
		endpoint: endpoint(cfg),
		store:    st,
		started:  time.Now(),
	}
	h.boot = session.New(conn, session.Config{
		Role:        "boot",
		LogPath:     filepath.Join(logDir, profile.BootLog),
		LogMode:     session.Overwrite,
		Prompt:      profile.BootPrompt,
		IdleTimeout: cfg.ReadTimeout(),
		Sleep:       opts.Sleep,
	})
	h.shell = session.New(conn, session.Config{
		Role:        "basic",
		LogPath:     filepath.Join(logDir, profile.CommandLog),
		LogMode:     session.Append,
		IdleTimeout: cfg.ReadTimeout(),
		Sleep:       opts.Sleep,
	})
	logging.L().Info("harness ready", "core", profile.Core, "endpoint", h.endpoint, "logs", logDir)
	return h, nil
}

// Profile returns the selected core profile.
func (h *Harness) Profile() Profile { return h.profile }

// Endpoint returns the port name or host:port in use.
func (h *Harness) Endpoint() string { return h.endpoint }

// Steps returns the run plan: boot capture unless skipped, the core's
// preamble, then its checks.
func (h *Harness) Steps() []Step {
	var steps []Step
	if !h.skipBoot {
		steps = append(steps, Step{Name: "boot", Run: func(ctx context.Context) check.Result {
			if h.reboot != "" {
				logging.L().Info("rebooting the DUT", "command", h.reboot, "prompt", h.profile.BootPrompt)
				return check.Reboot(ctx, h.boot, h.reboot, h.cfg.BootWait())
			}
			logging.L().Info("power on the DUT now", "prompt", h.profile.BootPrompt, "wait", h.cfg.BootWait())
			return check.Boot(ctx, h.boot, h.cfg.BootWait())
		}})
	}
	checks := append(append([]check.Check(nil), h.profile.Preamble...), h.profile.Checks(h.cfg)...)
	for _, c := range checks {
		c := c
		steps = append(steps, Step{Name: c.Name(), Run: func(ctx context.Context) check.Result {
			return check.RunOne(ctx, c, h.shell)
		}})
	}
	return steps
}

// Execute runs every step in order and returns all results. A failing
// step never stops the run.
func (h *Harness) Execute(ctx context.Context, onResult func(check.Result)) []check.Result {
	var results []check.Result
	for _, st := range h.Steps() {
		r := st.Run(ctx)
		results = append(results, r)
		if onResult != nil {
			onResult(r)
		}
	}
	return results
}

// Record appends the run and its transcripts to the history.
func (h *Harness) Record(results []check.Result) error {
	run := store.RunRecord{
		Core:      h.profile.Core,
		Endpoint:  h.endpoint,
		Timestamp: h.started,
		Success:   check.AllPassed(results),
		Duration:  time.Since(h.started).Round(time.Millisecond).String(),
	}
	for _, r := range results {
		run.Checks = append(run.Checks, toRecord(r))
	}
	if err := h.store.AddRun(run); err != nil {
		return errors.Wrap(err, "record run")
	}

	baud := 0
	if h.cfg.Transport != config.TransportTCP {
		baud = h.cfg.SerialBaudRate
	}
	for _, s := range []*session.Session{h.boot, h.shell} {
		if s.Role() == "boot" && h.skipBoot {
			continue
		}
		err := h.store.AddSessionLog(store.SessionLog{
			Role:      s.Role(),
			Endpoint:  h.endpoint,
			BaudRate:  baud,
			Timestamp: h.started,
			LogFile:   s.LogPath(),
		})
		if err != nil {
			return errors.Wrap(err, "record session log")
		}
	}
	return nil
}

// Close closes the connection.
func (h *Harness) Close() error {
	if h.conn == nil {
		return nil
	}
	err := h.conn.Close()
	h.conn = nil
	logging.L().Info("connection closed", "endpoint", h.endpoint)
	return err
}

// Run opens a harness, executes every step, records the run and closes.
func Run(ctx context.Context, opts Options, onResult func(check.Result)) ([]check.Result, error) {
	h, err := Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	results := h.Execute(ctx, onResult)
	if err := h.Record(results); err != nil {
		logging.L().Warn("run history not saved", "err", err)
	}
	return results, nil
}

func toRecord(r check.Result) store.CheckRecord {
	rec := store.CheckRecord{
		Name:     r.Name,
		Status:   r.Status.String(),
		Reason:   r.Reason,
		Detail:   r.Detail,
		Duration: r.Elapsed.Round(time.Millisecond).String(),
	}
	if r.Status == check.Error {
		rec.Kind = r.Kind.String()
	}
	for _, s := range r.Steps {
		rec.Steps = append(rec.Steps, toRecord(s))
	}
	return rec
}

func endpoint(cfg config.Config) string {
	if cfg.Transport == config.TransportTCP {
		return net.JoinHostPort(cfg.TCPHost, strconv.Itoa(cfg.TCPPort))
	}
	return cfg.SerialPort
}

// Describe renders a one-line summary of the run target.
func Describe(cfg config.Config, core string) string {
	return fmt.Sprintf("core %s on %s", core, endpoint(cfg))
}
