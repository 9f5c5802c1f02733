package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/buckleypaul/bringup/internal/check"
	"github.com/buckleypaul/bringup/internal/config"
	"github.com/buckleypaul/bringup/internal/fault"
	"github.com/buckleypaul/bringup/internal/store"
)

const shellPrompt = "root@adcu:~# "

// fakeDUT is an echoing shell: every command comes back as
// "<command>\r\n<output>\r\n<prompt>".
type fakeDUT struct {
	boot    string
	outputs map[string]string
	pending []byte
	writes  []string
	closed  bool
}

func (d *fakeDUT) Write(p []byte) (int, error) {
	cmd := string(p)
	d.writes = append(d.writes, cmd)
	reply := strings.TrimRight(cmd, "\r\n") + "\r\n"
	if out := d.outputs[cmd]; out != "" {
		reply += out + "\r\n"
	}
	d.pending = append(d.pending, reply+shellPrompt...)
	return len(p), nil
}

func (d *fakeDUT) Read(p []byte) (int, error) {
	if d.boot != "" {
		d.pending = append(d.pending, d.boot...)
		d.boot = ""
	}
	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

func (d *fakeDUT) SetReadTimeout(time.Duration) error { return nil }

func (d *fakeDUT) Close() error {
	d.closed = true
	return nil
}

const ddOK = "100+0 records in\r\n100+0 records out\r\n104857600 bytes (105 MB, 100 MiB) copied, 1.2 s, 87 MB/s"

func healthyACore() *fakeDUT {
	return &fakeDUT{
		boot: "U-Boot 2020.04\r\nStarting kernel ...\r\nadcu login: ",
		outputs: map[string]string{
			"pwd\r": "/",
			"free -h\n": "               total        used        free\r\n" +
				"Mem:            16Gi        12Gi         4Gi",
			"mpstat -P ALL\n": "all  2.0  0.0",
			"df -h\n": strings.Join([]string{
				"Filesystem      Size  Used Avail Use% Mounted on",
				"/dev/mmcblk0p5   20G  1.0G   19G   5% /hdmap",
				"/dev/mmcblk0p6  2.0G   20M  1.9G   2% /hdmap_log",
				"/dev/mmcblk0p7  4.0G   20M  3.9G   1% /ota",
				"/dev/mmcblk0p8  8.0G  100M  7.9G   2% /log",
				"/dev/mmcblk0p9  1.0G   10M  990M   1% /hjmap",
			}, "\r\n"),
			"ls /dev/mtdblock0\r": "/dev/mtdblock0",
			"dd if=/dev/urandom of=/tmp/randomfile bs=1M count=100\n": ddOK,
			"dd if=/tmp/randomfile of=/dev/mtdblock0\r":               ddOK,
			"dd if=/dev/mtdblock0 of=/tmp/block1 bs=1M count=100\r":   ddOK,
		},
	}
}

func testOptions(t *testing.T, core string, dut *fakeDUT) Options {
	t.Helper()
	tmp := t.TempDir()
	cfg := config.Defaults()
	cfg.SerialPort = "/dev/ttyUSB0"
	cfg.StateDir = filepath.Join(tmp, ".bringup")
	cfg.LogDir = filepath.Join(tmp, "logs")
	return Options{
		Config: cfg,
		Core:   core,
		Dial: func(ctx context.Context, cfg config.Config) (Conn, error) {
			return dut, nil
		},
		Sleep: func(ctx context.Context, d time.Duration) error { return ctx.Err() },
	}
}

func names(results []check.Result) []string {
	var out []string
	for _, r := range results {
		out = append(out, r.Name)
	}
	return out
}

func TestRunACoreHealthy(t *testing.T) {
	dut := healthyACore()
	opts := testOptions(t, "a", dut)

	results, err := Run(context.Background(), opts, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"boot", "login", "bring-up", "ddr-memory", "cpu-load", "emmc-partitions", "spi-nand-driver"}
	if diff := cmp.Diff(want, names(results)); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}
	for _, r := range results {
		if !r.OK() {
			t.Errorf("expected %s to pass, got %v", r.Name, r)
		}
	}
	if results[3].Detail != "memory usage: 75.0000%" {
		t.Errorf("unexpected memory detail %q", results[3].Detail)
	}
	if !dut.closed {
		t.Error("expected connection to be closed")
	}

	boot, err := os.ReadFile(filepath.Join(opts.Config.LogDir, "L_boot_log.txt"))
	if err != nil || !strings.Contains(string(boot), "adcu login:") {
		t.Errorf("boot log missing prompt: %q err=%v", boot, err)
	}
	basic, err := os.ReadFile(filepath.Join(opts.Config.LogDir, "basic_log.txt"))
	if err != nil || !strings.Contains(string(basic), "free -h") {
		t.Errorf("basic log missing transcript: err=%v", err)
	}

	st := store.New(opts.Config.StateDir)
	runs, err := st.Runs()
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected 1 recorded run, got %d err=%v", len(runs), err)
	}
	if !runs[0].Success || runs[0].Core != "a" || len(runs[0].Checks[6].Steps) != 5 {
		t.Errorf("unexpected run record %+v", runs[0])
	}
	logs, _ := st.SessionLogs()
	if len(logs) != 2 {
		t.Errorf("expected boot and basic session logs, got %+v", logs)
	}
}

func TestRunRCore(t *testing.T) {
	dut := &fakeDUT{
		boot:    "RTOS start\r\nadcu login: ",
		outputs: map[string]string{"ps tsk\n": "idle   ready\r\nshell  running"},
	}
	opts := testOptions(t, "r", dut)

	results, err := Run(context.Background(), opts, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if diff := cmp.Diff([]string{"boot", "wake", "r-bring-up"}, names(results)); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}
	if !check.AllPassed(results) {
		t.Fatalf("expected all pass, got %v", results)
	}
	if diff := cmp.Diff([]string{"\n", "ps tsk\n"}, dut.writes); diff != "" {
		t.Errorf("writes mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(opts.Config.LogDir, "R_basic_log.md")); err != nil {
		t.Errorf("expected R core command log: %v", err)
	}
}

func TestRunKeepsGoingAfterFailures(t *testing.T) {
	dut := healthyACore()
	delete(dut.outputs, "free -h\n")
	delete(dut.outputs, "df -h\n")
	opts := testOptions(t, "a", dut)
	opts.SkipBoot = true

	var seen []string
	results, err := Run(context.Background(), opts, func(r check.Result) { seen = append(seen, r.Name) })
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 6 || len(seen) != 6 {
		t.Fatalf("expected 6 results without boot, got %v", names(results))
	}
	var statuses []check.Status
	for _, r := range results {
		statuses = append(statuses, r.Status)
	}
	want := []check.Status{check.Pass, check.Pass, check.Fail, check.Pass, check.Fail, check.Pass}
	if diff := cmp.Diff(want, statuses); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}

	st := store.New(opts.Config.StateDir)
	if last, ok, _ := st.LastRun("a"); !ok || last.Success {
		t.Errorf("expected failed run in history, got %+v", last)
	}
	logs, _ := st.SessionLogs()
	if len(logs) != 1 || logs[0].Role != "basic" {
		t.Errorf("expected only the basic session log, got %+v", logs)
	}
}

func TestRunRebootsInsteadOfWaiting(t *testing.T) {
	dut := &fakeDUT{
		outputs: map[string]string{
			"reboot\n": "Restarting system.\r\nU-Boot 2020.04\r\nadcu login: ",
			"ps tsk\n": "idle   ready",
		},
	}
	opts := testOptions(t, "r", dut)
	opts.Reboot = "reboot\n"

	results, err := Run(context.Background(), opts, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !results[0].OK() {
		t.Fatalf("expected boot after reboot to pass, got %v", results[0])
	}
	if len(dut.writes) == 0 || dut.writes[0] != "reboot\n" {
		t.Fatalf("expected reboot to be the first write, got %q", dut.writes)
	}
	boot, err := os.ReadFile(filepath.Join(opts.Config.LogDir, "R_boot_log.txt"))
	if err != nil || !strings.Contains(string(boot), "U-Boot") {
		t.Errorf("boot log missing reboot output: %q err=%v", boot, err)
	}
}

func TestBootTimeoutIsReported(t *testing.T) {
	dut := &fakeDUT{boot: "Starting kernel ...\r\n"}
	opts := testOptions(t, "r", dut)
	opts.Config.BootTimeout = 0.05

	results, err := Run(context.Background(), opts, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if results[0].Status != check.Error || results[0].Kind != fault.Timeout {
		t.Fatalf("expected boot timeout, got %v", results[0])
	}
	if len(results) != 3 {
		t.Fatalf("expected the run to continue after boot, got %v", names(results))
	}
}

func TestOpenErrors(t *testing.T) {
	dut := &fakeDUT{}
	opts := testOptions(t, "m", dut)
	if _, err := Open(context.Background(), opts); !fault.Is(err, fault.Config) {
		t.Errorf("expected config error for unknown core, got %v", err)
	}

	opts = testOptions(t, "a", dut)
	opts.Config.SerialPort = ""
	if _, err := Open(context.Background(), opts); !fault.Is(err, fault.Config) {
		t.Errorf("expected config error for missing port, got %v", err)
	}

	opts = testOptions(t, "a", dut)
	opts.Dial = func(ctx context.Context, cfg config.Config) (Conn, error) {
		return nil, fault.E(fault.Connection, "open /dev/ttyUSB0", errors.New("no such file or directory"))
	}
	if _, err := Run(context.Background(), opts, nil); !fault.Is(err, fault.Connection) {
		t.Errorf("expected connection error, got %v", err)
	}
}

func TestDescribe(t *testing.T) {
	cfg := config.Defaults()
	cfg.Transport = config.TransportTCP
	cfg.TCPHost = "192.168.1.10"
	cfg.TCPPort = 23
	if got := Describe(cfg, "a"); got != "core a on 192.168.1.10:23" {
		t.Fatalf("Describe = %q", got)
	}
}

func TestCores(t *testing.T) {
	if diff := cmp.Diff([]string{"a", "r"}, Cores()); diff != "" {
		t.Fatalf("cores mismatch (-want +got):\n%s", diff)
	}
}
