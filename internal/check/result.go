package check

import (
	"fmt"
	"time"

	"github.com/buckleypaul/bringup/internal/fault"
)

// Status is the outcome class of a check.
type Status int

const (
	Pass Status = iota
	Fail
	Error
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "PASS"
	case Fail:
		return "FAIL"
	default:
		return "ERROR"
	}
}

// Result is the typed outcome of one check or one step of a check.
type Result struct {
	Name    string
	Status  Status
	Reason  string     // why it did not pass
	Kind    fault.Kind // set when Status is Error
	Detail  string     // human readable measurement, e.g. memory usage
	Steps   []Result
	Elapsed time.Duration
}

// OK reports whether the result passed.
func (r Result) OK() bool { return r.Status == Pass }

func (r Result) String() string {
	switch {
	case r.Status == Pass && r.Detail != "":
		return fmt.Sprintf("%s %s: %s", r.Status, r.Name, r.Detail)
	case r.Status == Pass:
		return fmt.Sprintf("%s %s", r.Status, r.Name)
	case r.Status == Error:
		return fmt.Sprintf("%s %s (%s): %s", r.Status, r.Name, r.Kind, r.Reason)
	default:
		return fmt.Sprintf("%s %s: %s", r.Status, r.Name, r.Reason)
	}
}

func passed(name, detail string) Result {
	return Result{Name: name, Status: Pass, Detail: detail}
}

func failed(name, format string, args ...any) Result {
	return Result{Name: name, Status: Fail, Reason: fmt.Sprintf(format, args...)}
}

func errored(name string, err error) Result {
	return Result{Name: name, Status: Error, Kind: fault.KindOf(err), Reason: err.Error()}
}

// Combine folds step results into one: any Error wins over any Fail, and
// the reason lists the steps that did not pass.
func Combine(name string, steps []Result) Result {
	r := Result{Name: name, Status: Pass, Steps: steps}
	var bad []string
	for _, s := range steps {
		if s.Status == Pass {
			continue
		}
		bad = append(bad, s.Name)
		if s.Status > r.Status {
			r.Status = s.Status
			r.Kind = s.Kind
		}
	}
	if len(bad) > 0 {
		r.Reason = fmt.Sprintf("%d of %d steps did not pass: %v", len(bad), len(steps), bad)
	}
	return r
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.OK() {
			return false
		}
	}
	return true
}

// Tally counts results by status.
func Tally(results []Result) (pass, fail, errs int) {
	for _, r := range results {
		switch r.Status {
		case Pass:
			pass++
		case Fail:
			fail++
		default:
			errs++
		}
	}
	return pass, fail, errs
}
