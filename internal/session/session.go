// Package session runs command/response transactions against a DUT
// console.
//
// A Session is a transport handle plus a Config naming its role, log file
// and prompt. The boot capture and the command shell are two Sessions over
// the same connection, one transaction at a time.
package session

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/buckleypaul/bringup/internal/fault"
	"github.com/buckleypaul/bringup/internal/logging"
)

const (
	DefaultIdleTimeout  = time.Second
	DefaultPollInterval = 100 * time.Millisecond

	readChunk = 1024
)

// ErrNotConnected is returned, without any I/O, by a Session that has no
// connection.
var ErrNotConnected error = &fault.Error{
	Kind: fault.NotConnected,
	Op:   "session",
	Err:  errors.New("not connected to a transport"),
}

// Conn is the byte channel to the DUT. A Read that sees no data within the
// read timeout must return 0, nil. go.bug.st/serial ports and
// ethernet.Client both behave this way.
type Conn interface {
	io.ReadWriter
	SetReadTimeout(t time.Duration) error
}

// LogMode controls how the session log is opened on its first write.
type LogMode int

const (
	// Append always appends to an existing log.
	Append LogMode = iota
	// Overwrite truncates the log on the session's first write and
	// appends afterwards.
	Overwrite
)

// Config describes one session role.
type Config struct {
	Role    string
	LogPath string // empty disables the transcript
	LogMode LogMode
	Prompt  string

	// IdleTimeout ends a bulk drain: the first read that sees no data
	// for this long finishes the capture.
	IdleTimeout time.Duration
	// PollInterval is the read timeout used while waiting for Prompt.
	PollInterval time.Duration
	// Sleep waits out a command's fixed delay. Nil means a timer that
	// ends early when ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Capture is the result of one transaction.
type Capture struct {
	Command string
	Raw     string
	Matched bool // Prompt was seen; line mode only
	Elapsed time.Duration
}

// Session executes transactions over a Conn.
type Session struct {
	conn   Conn
	cfg    Config
	logged bool
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a session over conn. A nil conn gives a session whose every
// transaction fails with ErrNotConnected.
func New(conn Conn, cfg Config) *Session {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	s := &Session{conn: conn, cfg: cfg, sleep: sleepContext}
	if cfg.Sleep != nil {
		s.sleep = cfg.Sleep
	}
	return s
}

// Role returns the configured role name.
func (s *Session) Role() string { return s.cfg.Role }

// LogPath returns the transcript path, or "" when disabled.
func (s *Session) LogPath() string { return s.cfg.LogPath }

// Connected reports whether the session has a connection.
func (s *Session) Connected() bool { return s.conn != nil }

// Execute writes command, waits delay, then drains whatever the DUT sent
// and appends it to the session log.
func (s *Session) Execute(ctx context.Context, command string, delay time.Duration) (Capture, error) {
	c := Capture{Command: command}
	if !s.Connected() {
		logging.L().Warn("not connected to a transport", "role", s.cfg.Role, "command", command)
		return c, ErrNotConnected
	}

	start := time.Now()
	if err := s.write(command); err != nil {
		return c, err
	}
	if err := s.sleep(ctx, delay); err != nil {
		return c, errors.WithStack(err)
	}

	raw, err := s.drain(ctx)
	c.Raw = raw
	c.Elapsed = time.Since(start)
	s.record([]byte(raw))

	if raw == "" && err == nil {
		logging.L().Warn("empty response", "role", s.cfg.Role, "command", command)
	}
	logging.L().Debug("transaction", "role", s.cfg.Role, "command", command, "bytes", len(raw), "elapsed", c.Elapsed)
	return c, err
}

// ReadUntilPrompt reads line by line, logging each line, until a line
// contains the configured prompt. It gives up after maxWait with a
// timeout error and whatever was read so far.
func (s *Session) ReadUntilPrompt(ctx context.Context, maxWait time.Duration) (Capture, error) {
	if !s.Connected() {
		logging.L().Warn("not connected to a transport", "role", s.cfg.Role)
		return Capture{}, ErrNotConnected
	}
	return s.readUntilPrompt(ctx, Capture{}, maxWait)
}

// ExecuteUntilPrompt writes command and then reads as ReadUntilPrompt does.
func (s *Session) ExecuteUntilPrompt(ctx context.Context, command string, maxWait time.Duration) (Capture, error) {
	c := Capture{Command: command}
	if !s.Connected() {
		logging.L().Warn("not connected to a transport", "role", s.cfg.Role, "command", command)
		return c, ErrNotConnected
	}
	if err := s.write(command); err != nil {
		return c, err
	}
	return s.readUntilPrompt(ctx, c, maxWait)
}

func (s *Session) write(command string) error {
	if _, err := s.conn.Write([]byte(command)); err != nil {
		if fault.KindOf(err) != fault.Unknown {
			return err
		}
		return fault.Wrap(fault.Connection, err, "%s: write %q", s.cfg.Role, command)
	}
	return nil
}

func (s *Session) drain(ctx context.Context) (string, error) {
	if err := s.conn.SetReadTimeout(s.cfg.IdleTimeout); err != nil {
		return "", fault.Wrap(fault.Capture, err, "%s: set read timeout", s.cfg.Role)
	}

	var out bytes.Buffer
	buf := make([]byte, readChunk)
	for {
		if err := ctx.Err(); err != nil {
			return out.String(), errors.WithStack(err)
		}
		n, err := s.conn.Read(buf)
		out.Write(buf[:n])
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out.String(), nil
			}
			return out.String(), s.readErr(err)
		}
		if n == 0 {
			return out.String(), nil
		}
	}
}

func (s *Session) readUntilPrompt(ctx context.Context, c Capture, maxWait time.Duration) (Capture, error) {
	start := time.Now()
	deadline := start.Add(maxWait)

	if err := s.conn.SetReadTimeout(s.cfg.PollInterval); err != nil {
		return c, fault.Wrap(fault.Capture, err, "%s: set read timeout", s.cfg.Role)
	}

	log, err := s.openLog()
	if err != nil {
		logging.L().Warn("session log unavailable", "role", s.cfg.Role, "path", s.cfg.LogPath, "err", err)
		log = nopWriteCloser{io.Discard}
	}
	defer log.Close()

	var all, line bytes.Buffer
	finish := func() Capture {
		if line.Len() > 0 {
			all.Write(line.Bytes())
			log.Write(line.Bytes())
			line.Reset()
		}
		c.Raw = all.String()
		c.Elapsed = time.Since(start)
		return c
	}

	buf := make([]byte, readChunk)
	for {
		if err := ctx.Err(); err != nil {
			return finish(), errors.WithStack(err)
		}
		if !time.Now().Before(deadline) {
			return finish(), fault.E(fault.Timeout, s.cfg.Role,
				errors.Errorf("prompt %q not seen within %s", s.cfg.Prompt, maxWait))
		}

		n, err := s.conn.Read(buf)
		for _, b := range buf[:n] {
			line.WriteByte(b)
			if b != '\n' {
				continue
			}
			matched := strings.Contains(line.String(), s.cfg.Prompt)
			all.Write(line.Bytes())
			log.Write(line.Bytes())
			line.Reset()
			if matched {
				c.Matched = true
				return finish(), nil
			}
		}
		// A prompt such as "login:" is not newline terminated.
		if line.Len() > 0 && strings.Contains(line.String(), s.cfg.Prompt) {
			c.Matched = true
			return finish(), nil
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return finish(), fault.E(fault.Capture, s.cfg.Role,
					errors.Errorf("connection closed before prompt %q", s.cfg.Prompt))
			}
			return finish(), s.readErr(err)
		}
	}
}

func (s *Session) readErr(err error) error {
	if fault.KindOf(err) != fault.Unknown {
		return err
	}
	return fault.Wrap(fault.Capture, err, "%s: read", s.cfg.Role)
}

// record appends data to the session log. Log failures are reported but
// never fail the transaction.
func (s *Session) record(data []byte) {
	if s.cfg.LogPath == "" {
		return
	}
	w, err := s.openLog()
	if err == nil {
		_, err = w.Write(data)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		logging.L().Warn("session log write failed", "role", s.cfg.Role, "path", s.cfg.LogPath, "err", err)
	}
}

func (s *Session) openLog() (io.WriteCloser, error) {
	if s.cfg.LogPath == "" {
		return nopWriteCloser{io.Discard}, nil
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if s.cfg.LogMode == Overwrite && !s.logged {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	if dir := filepath.Dir(s.cfg.LogPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(s.cfg.LogPath, flags, 0o644)
	if err != nil {
		return nil, err
	}
	s.logged = true
	return f, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
