package runner

import (
	"sort"
	"time"

	"github.com/buckleypaul/bringup/internal/check"
	"github.com/buckleypaul/bringup/internal/config"
)

// BootPrompt is the login prompt both cores print once booted.
const BootPrompt = "adcu login:"

// Profile describes how to bring up and check one DUT core.
type Profile struct {
	Core       string
	Title      string
	BootLog    string
	CommandLog string
	BootPrompt string
	Preamble   []check.Check
	Checks     func(cfg config.Config) []check.Check
}

var profiles = map[string]Profile{
	"a": {
		Core:       "a",
		Title:      "A core (Linux)",
		BootLog:    "L_boot_log.txt",
		CommandLog: "basic_log.txt",
		BootPrompt: BootPrompt,
		Preamble: []check.Check{
			check.Command{Label: "login", Line: "root\ncd ..\n", Delay: 500 * time.Millisecond},
		},
		Checks: func(cfg config.Config) []check.Check {
			return []check.Check{
				check.BringUp{},
				check.Memory{},
				check.CPULoad(),
				check.Partitions{Required: cfg.Mounts},
				check.SPINand(cfg.StorageDevice),
			}
		},
	},
	"r": {
		Core:       "r",
		Title:      "R core (RTOS)",
		BootLog:    "R_boot_log.txt",
		CommandLog: "R_basic_log.md",
		BootPrompt: BootPrompt,
		Preamble: []check.Check{
			check.Command{Label: "wake", Line: "\n", Delay: 500 * time.Millisecond},
		},
		Checks: func(cfg config.Config) []check.Check {
			return []check.Check{check.RCoreBringUp()}
		},
	},
}

// Lookup returns the profile for core.
func Lookup(core string) (Profile, bool) {
	p, ok := profiles[core]
	return p, ok
}

// Cores lists the known core names.
func Cores() []string {
	cores := make([]string, 0, len(profiles))
	for c := range profiles {
		cores = append(cores, c)
	}
	sort.Strings(cores)
	return cores
}
