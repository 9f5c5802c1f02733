package check

import (
	"context"
	"fmt"
	"time"

	"github.com/buckleypaul/bringup/internal/response"
)

// ddStatusLines is how many status lines dd prints on success
// ("records in", "records out", "bytes copied").
const ddStatusLines = 3

// Storage writes random data to a raw block device, reads it back and
// compares. All five steps run regardless of earlier failures.
type Storage struct {
	Device   string
	Source   string
	Readback string
	SizeMiB  int
}

// SPINand returns the storage check for the SPI NAND mtdblock device.
func SPINand(device string) Storage {
	return Storage{
		Device:   device,
		Source:   "/tmp/randomfile",
		Readback: "/tmp/block1",
		SizeMiB:  100,
	}
}

func (Storage) Name() string { return "spi-nand-driver" }

func (s Storage) Run(ctx context.Context, exec Executor) Result {
	steps := []Result{
		s.step(ctx, exec, "device-node", "ls "+s.Device+"\r", time.Second, s.expectPath),
		s.step(ctx, exec, "generate",
			fmt.Sprintf("dd if=/dev/urandom of=%s bs=1M count=%d\n", s.Source, s.SizeMiB),
			3*time.Second, expectLines(ddStatusLines)),
		s.step(ctx, exec, "write-device",
			fmt.Sprintf("dd if=%s of=%s\r", s.Source, s.Device),
			3*time.Second, expectLines(ddStatusLines)),
		s.step(ctx, exec, "read-device",
			fmt.Sprintf("dd if=%s of=%s bs=1M count=%d\r", s.Device, s.Readback, s.SizeMiB),
			3*time.Second, expectLines(ddStatusLines)),
		s.step(ctx, exec, "compare",
			fmt.Sprintf("cmp %s %s\r", s.Source, s.Readback),
			time.Second, expectEmpty),
	}
	return Combine(s.Name(), steps)
}

func (s Storage) step(ctx context.Context, exec Executor, name, command string, delay time.Duration, verify func(string) Result) Result {
	start := time.Now()
	out, err := output(ctx, exec, command, delay)
	var r Result
	if err != nil {
		r = errored(name, err)
	} else {
		r = verify(out)
		r.Name = name
	}
	r.Elapsed = time.Since(start)
	return r
}

func (s Storage) expectPath(out string) Result {
	if got := response.Clean(out); got != s.Device {
		return failed("", "ls printed %q, want %q", got, s.Device)
	}
	return passed("", s.Device)
}

func expectLines(n int) func(string) Result {
	return func(out string) Result {
		if got := len(response.Lines(out)); got != n {
			return failed("", "expected %d status lines, got %d: %q", n, got, out)
		}
		return passed("", "")
	}
}

func expectEmpty(out string) Result {
	if out != "" {
		return failed("", "files differ: %q", out)
	}
	return passed("", "")
}
