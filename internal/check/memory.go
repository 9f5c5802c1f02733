package check

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Memory parses `free -h` and reports DDR usage.
type Memory struct{}

func (Memory) Name() string { return "ddr-memory" }

func (m Memory) Run(ctx context.Context, exec Executor) Result {
	out, err := output(ctx, exec, "free -h\n", time.Second)
	if err != nil {
		return errored(m.Name(), err)
	}
	if out == "" {
		return failed(m.Name(), "empty response from free")
	}
	usage, err := ParseUsage(out)
	if err != nil {
		return failed(m.Name(), "%v", err)
	}
	return passed(m.Name(), fmt.Sprintf("memory usage: %s%%", FormatUsage(usage)))
}

// ParseUsage reads the "Mem:" row (second line) of a `free -h` table and
// returns the used percentage.
func ParseUsage(out string) (float64, error) {
	lines := strings.Split(out, "\n")
	if len(lines) < 2 {
		return 0, errors.Errorf("expected a header and a Mem row, got %d lines", len(lines))
	}
	fields := strings.Fields(lines[1])
	if len(fields) < 4 {
		return 0, errors.Errorf("short Mem row %q", strings.TrimSpace(lines[1]))
	}
	total, err := ParseMemory(fields[1])
	if err != nil {
		return 0, errors.Wrap(err, "total")
	}
	free, err := ParseMemory(fields[3])
	if err != nil {
		return 0, errors.Wrap(err, "free")
	}
	return Usage(total, free)
}

// ParseMemory converts a free(1) size to MiB: "Gi" is scaled by 1024,
// "Mi" is taken as is and a bare number is taken as already in MiB.
func ParseMemory(s string) (float64, error) {
	scale := 1.0
	switch {
	case strings.HasSuffix(s, "Gi"):
		s, scale = strings.TrimSuffix(s, "Gi"), 1024
	case strings.HasSuffix(s, "Mi"):
		s = strings.TrimSuffix(s, "Mi")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Errorf("unparsable size %q", s)
	}
	return v * scale, nil
}

// Usage returns (total-free)/total as a percentage rounded to 4 places.
func Usage(total, free float64) (float64, error) {
	if total <= 0 {
		return 0, errors.Errorf("total memory %v is not positive", total)
	}
	pct := (total - free) / total * 100
	return math.Round(pct*1e4) / 1e4, nil
}

// FormatUsage renders a usage percentage with 4 decimals.
func FormatUsage(pct float64) string {
	return strconv.FormatFloat(pct, 'f', 4, 64)
}
