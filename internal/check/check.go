// Package check holds the bring-up checks run against a DUT shell.
//
// Every check issues its commands through an Executor, normalizes the
// capture with response.Strip and returns a typed Result. A check never
// panics the run and never stops the suite.
package check

import (
	"context"
	"fmt"
	"time"

	"github.com/buckleypaul/bringup/internal/logging"
	"github.com/buckleypaul/bringup/internal/response"
	"github.com/buckleypaul/bringup/internal/session"
)

// Executor runs one bulk-mode transaction. *session.Session implements it.
type Executor interface {
	Execute(ctx context.Context, command string, delay time.Duration) (session.Capture, error)
}

// Check is one independent verification.
type Check interface {
	Name() string
	Run(ctx context.Context, exec Executor) Result
}

// Suite is an ordered list of checks.
type Suite struct {
	Checks []Check
}

// Run executes every check in order. onResult, when non-nil, is called
// after each check.
func (s Suite) Run(ctx context.Context, exec Executor, onResult func(Result)) []Result {
	results := make([]Result, 0, len(s.Checks))
	for _, c := range s.Checks {
		r := RunOne(ctx, c, exec)
		results = append(results, r)
		if onResult != nil {
			onResult(r)
		}
	}
	return results
}

// RunOne runs c, timing it and turning a panic into an Error result.
func RunOne(ctx context.Context, c Check, exec Executor) (r Result) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r = Result{Name: c.Name(), Status: Error, Reason: fmt.Sprintf("panic: %v", p)}
		}
		r.Elapsed = time.Since(start)
		logging.L().Info("check finished", "check", r.Name, "status", r.Status.String(), "reason", r.Reason, "elapsed", r.Elapsed)
	}()
	logging.L().Debug("check started", "check", c.Name())
	return c.Run(ctx, exec)
}

// output runs command and returns the capture with echo and prompt removed.
func output(ctx context.Context, exec Executor, command string, delay time.Duration) (string, error) {
	c, err := exec.Execute(ctx, command, delay)
	if err != nil {
		return "", err
	}
	return response.Strip(c.Raw), nil
}

// Command sends a command and passes when the transaction itself
// succeeds. It is used for login and wake-up preambles.
type Command struct {
	Label string
	Line  string
	Delay time.Duration
}

func (c Command) Name() string { return c.Label }

func (c Command) Run(ctx context.Context, exec Executor) Result {
	if _, err := exec.Execute(ctx, c.Line, c.Delay); err != nil {
		return errored(c.Label, err)
	}
	return passed(c.Label, "")
}

// NonEmpty passes when the command produced any output. The CPU load and
// R core task list checks are this check.
type NonEmpty struct {
	Label string
	Line  string
	Delay time.Duration
	// Success is the detail reported on pass; empty means the output itself.
	Success string
}

func (c NonEmpty) Name() string { return c.Label }

func (c NonEmpty) Run(ctx context.Context, exec Executor) Result {
	out, err := output(ctx, exec, c.Line, c.Delay)
	if err != nil {
		return errored(c.Label, err)
	}
	if out == "" {
		return failed(c.Label, "no output from %q", response.Clean(c.Line))
	}
	detail := c.Success
	if detail == "" {
		detail = out
	}
	return passed(c.Label, detail)
}

// CPULoad checks that per-core load statistics are reported.
func CPULoad() NonEmpty {
	return NonEmpty{
		Label:   "cpu-load",
		Line:    "mpstat -P ALL\n",
		Delay:   time.Second,
		Success: "All cpu load info output success",
	}
}

// RCoreBringUp checks that the R core RTOS shell lists its tasks.
func RCoreBringUp() NonEmpty {
	return NonEmpty{
		Label: "r-bring-up",
		Line:  "ps tsk\n",
		Delay: 2 * time.Second,
	}
}

// BringUp checks that the A core Linux shell responds: it changes to the
// root directory and expects pwd to print "/".
type BringUp struct{}

func (BringUp) Name() string { return "bring-up" }

func (b BringUp) Run(ctx context.Context, exec Executor) Result {
	if _, err := exec.Execute(ctx, "cd /\r", time.Second); err != nil {
		return errored(b.Name(), err)
	}
	out, err := output(ctx, exec, "pwd\r", time.Second)
	if err != nil {
		return errored(b.Name(), err)
	}
	if got := response.Clean(out); got != "/" {
		return failed(b.Name(), "pwd printed %q, want \"/\"", got)
	}
	return passed(b.Name(), "bring up ok")
}
