package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/buckleypaul/bringup/internal/fault"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.SerialBaudRate != 115200 {
		t.Errorf("expected SerialBaudRate=115200, got=%d", cfg.SerialBaudRate)
	}
	if cfg.ReadTimeout() != time.Second {
		t.Errorf("expected 1s read timeout, got=%s", cfg.ReadTimeout())
	}
	if cfg.Transport != TransportSerial {
		t.Errorf("expected serial transport, got=%s", cfg.Transport)
	}
	if cfg.LogDir != "." {
		t.Errorf("expected logs in the working directory, got=%s", cfg.LogDir)
	}
}

func TestLoadOriginalKeys(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "data.json")
	os.WriteFile(path, []byte(`{
		"serial_port": "/dev/ttyUSB0",
		"serial_baudrate": 115200,
		"serial_timeout": 1
	}`), 0o644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.SerialPort != "/dev/ttyUSB0" {
		t.Errorf("expected serial_port=/dev/ttyUSB0, got=%s", cfg.SerialPort)
	}
	if cfg.SerialBaudRate != 115200 {
		t.Errorf("expected baud 115200, got=%d", cfg.SerialBaudRate)
	}
	if cfg.ReadTimeout() != time.Second {
		t.Errorf("expected 1s timeout, got=%s", cfg.ReadTimeout())
	}
	// Unset keys fall back to defaults
	if diff := cmp.Diff(DefaultMounts, cfg.Mounts); diff != "" {
		t.Errorf("mounts mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoadFractionalTimeout(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "data.json")
	os.WriteFile(path, []byte(`{"serial_port": "COM3", "serial_timeout": 0.5}`), 0o644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ReadTimeout() != 500*time.Millisecond {
		t.Errorf("expected 500ms, got=%s", cfg.ReadTimeout())
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !fault.Is(err, fault.Config) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLoadMalformed(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "data.json")
	os.WriteFile(path, []byte(`{"serial_port": `), 0o644)

	_, err := Load(path)
	if !fault.Is(err, fault.Config) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLoadWrongType(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "data.json")
	os.WriteFile(path, []byte(`{"serial_baudrate": "fast"}`), 0o644)

	if _, err := Load(path); !fault.Is(err, fault.Config) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name  string
		apply func(*Config)
		ok    bool
	}{
		{"serial ok", func(c *Config) { c.SerialPort = "/dev/ttyUSB0" }, true},
		{"serial missing port", func(c *Config) {}, false},
		{"bad baud", func(c *Config) { c.SerialPort = "/dev/ttyUSB0"; c.SerialBaudRate = -1 }, false},
		{"tcp ok", func(c *Config) { c.Transport = TransportTCP; c.TCPHost = "10.0.0.2"; c.TCPPort = 23 }, true},
		{"tcp bad port", func(c *Config) { c.Transport = TransportTCP; c.TCPHost = "10.0.0.2"; c.TCPPort = 70000 }, false},
		{"unknown transport", func(c *Config) { c.Transport = "can" }, false},
		{"zero timeout", func(c *Config) { c.SerialPort = "/dev/ttyUSB0"; c.SerialTimeout = 0 }, false},
	}

	for _, tc := range testCases {
		cfg := Defaults()
		tc.apply(&cfg)
		err := cfg.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: expected valid, got %v", tc.name, err)
		}
		if !tc.ok && !fault.Is(err, fault.Config) {
			t.Errorf("%s: expected config error, got %v", tc.name, err)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "conf", "data.json")
	cfg := Defaults()
	cfg.SerialPort = "/dev/ttyS1"
	cfg.SerialBaudRate = 57600
	cfg.Mounts = []string{"/a", "/b"}

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
