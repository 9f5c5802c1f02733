package check

import (
	"context"
	"fmt"
	"time"

	"github.com/buckleypaul/bringup/internal/response"
	"github.com/buckleypaul/bringup/internal/session"
)

// PromptReader is the line-mode half of a session.
type PromptReader interface {
	ReadUntilPrompt(ctx context.Context, maxWait time.Duration) (session.Capture, error)
}

// Rebooter writes a command and reads until the prompt.
type Rebooter interface {
	ExecuteUntilPrompt(ctx context.Context, command string, maxWait time.Duration) (session.Capture, error)
}

// Boot waits for the DUT to print its login prompt after power on.
func Boot(ctx context.Context, r PromptReader, maxWait time.Duration) Result {
	start := time.Now()
	c, err := r.ReadUntilPrompt(ctx, maxWait)
	res := bootResult(c, err)
	res.Elapsed = time.Since(start)
	return res
}

// Reboot sends command, usually "reboot\n", and waits for the login prompt
// the way Boot does.
func Reboot(ctx context.Context, r Rebooter, command string, maxWait time.Duration) Result {
	start := time.Now()
	c, err := r.ExecuteUntilPrompt(ctx, command, maxWait)
	res := bootResult(c, err)
	res.Elapsed = time.Since(start)
	return res
}

func bootResult(c session.Capture, err error) Result {
	if err != nil {
		return errored("boot", err)
	}
	return passed("boot", fmt.Sprintf("prompt after %d lines", len(response.Lines(c.Raw))))
}
