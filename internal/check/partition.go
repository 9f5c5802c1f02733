package check

import (
	"context"
	"strings"
	"time"

	"github.com/buckleypaul/bringup/internal/response"
)

// Partitions checks that every required mount point appears in `df -h`.
type Partitions struct {
	Required []string
}

func (Partitions) Name() string { return "emmc-partitions" }

func (p Partitions) Run(ctx context.Context, exec Executor) Result {
	out, err := output(ctx, exec, "df -h\n", time.Second)
	if err != nil {
		return errored(p.Name(), err)
	}
	missing := MissingMounts(response.Lines(out), p.Required)
	if len(missing) > 0 {
		return failed(p.Name(), "the following partitions are mounted in error: %s", strings.Join(missing, ", "))
	}
	return passed(p.Name(), "All partition mount normally")
}

// MissingMounts returns the required mount points no df line is mounted
// on, in required order. A required path must equal the last column of a
// line; it is not matched as a substring anywhere in the line, so "/hdmap"
// is not satisfied by a "/hdmap_log" line and a device named after a mount
// point does not count as that mount.
func MissingMounts(lines, required []string) []string {
	mounted := make(map[string]bool, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		mounted[fields[len(fields)-1]] = true
	}

	var missing []string
	for _, m := range required {
		if !mounted[m] {
			missing = append(missing, m)
		}
	}
	return missing
}
