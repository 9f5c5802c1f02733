package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/buckleypaul/bringup/internal/fault"
)

const (
	DefaultPath        = "data.json"
	DefaultBaudRate    = 115200
	DefaultTimeout     = 1.0
	DefaultBootTimeout = 120.0
	DefaultLogDir      = "."
	DefaultStateDir    = ".bringup"
	DefaultDevice      = "/dev/mtdblock0"

	TransportSerial = "serial"
	TransportTCP    = "tcp"
)

// DefaultMounts are the partitions the eMMC layout must expose.
var DefaultMounts = []string{"/hdmap", "/hdmap_log", "/ota", "/log", "/hjmap"}

// Config holds the connection parameters and harness settings.
// Timeouts are in seconds to match the file format.
type Config struct {
	SerialPort     string   `json:"serial_port,omitempty"`
	SerialBaudRate int      `json:"serial_baudrate,omitempty"`
	SerialTimeout  float64  `json:"serial_timeout,omitempty"`
	Transport      string   `json:"transport,omitempty"`
	TCPHost        string   `json:"tcp_host,omitempty"`
	TCPPort        int      `json:"tcp_port,omitempty"`
	BootTimeout    float64  `json:"boot_timeout,omitempty"`
	LogDir         string   `json:"log_dir,omitempty"`
	StateDir       string   `json:"state_dir,omitempty"`
	Mounts         []string `json:"mounts,omitempty"`
	StorageDevice  string   `json:"storage_device,omitempty"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		SerialBaudRate: DefaultBaudRate,
		SerialTimeout:  DefaultTimeout,
		Transport:      TransportSerial,
		BootTimeout:    DefaultBootTimeout,
		LogDir:         DefaultLogDir,
		StateDir:       DefaultStateDir,
		Mounts:         append([]string(nil), DefaultMounts...),
		StorageDevice:  DefaultDevice,
	}
}

// Load reads the JSON file at path and fills unset keys from Defaults.
// A missing or malformed file is a config error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fault.Wrap(fault.Config, err, "read config %s", path)
	}

	var fileCfg Config
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return Config{}, fault.Wrap(fault.Config, err, "parse config %s", path)
	}

	cfg := Defaults()
	merge(&cfg, fileCfg)
	return cfg, nil
}

// Save writes cfg as indented JSON to path, creating parent directories.
func Save(cfg Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate fails fast on settings that would only surface later as an
// opaque open or read failure.
func (c Config) Validate() error {
	var problem string
	switch c.Transport {
	case TransportSerial:
		if c.SerialPort == "" {
			problem = "serial_port is required"
		} else if c.SerialBaudRate <= 0 {
			problem = "serial_baudrate must be positive"
		}
	case TransportTCP:
		if c.TCPHost == "" {
			problem = "tcp_host is required"
		} else if c.TCPPort <= 0 || c.TCPPort > 65535 {
			problem = "tcp_port out of range"
		}
	default:
		problem = "unknown transport " + c.Transport
	}
	if problem == "" && c.SerialTimeout <= 0 {
		problem = "serial_timeout must be positive"
	}
	if problem == "" && c.BootTimeout <= 0 {
		problem = "boot_timeout must be positive"
	}
	if problem != "" {
		return fault.E(fault.Config, "validate config", errors.New(problem))
	}
	return nil
}

// ReadTimeout is SerialTimeout as a duration.
func (c Config) ReadTimeout() time.Duration {
	return seconds(c.SerialTimeout)
}

// BootWait is BootTimeout as a duration.
func (c Config) BootWait() time.Duration {
	return seconds(c.BootTimeout)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func merge(cfg *Config, fileCfg Config) {
	if fileCfg.SerialPort != "" {
		cfg.SerialPort = fileCfg.SerialPort
	}
	if fileCfg.SerialBaudRate != 0 {
		cfg.SerialBaudRate = fileCfg.SerialBaudRate
	}
	if fileCfg.SerialTimeout != 0 {
		cfg.SerialTimeout = fileCfg.SerialTimeout
	}
	if fileCfg.Transport != "" {
		cfg.Transport = fileCfg.Transport
	}
	if fileCfg.TCPHost != "" {
		cfg.TCPHost = fileCfg.TCPHost
	}
	if fileCfg.TCPPort != 0 {
		cfg.TCPPort = fileCfg.TCPPort
	}
	if fileCfg.BootTimeout != 0 {
		cfg.BootTimeout = fileCfg.BootTimeout
	}
	if fileCfg.LogDir != "" {
		cfg.LogDir = fileCfg.LogDir
	}
	if fileCfg.StateDir != "" {
		cfg.StateDir = fileCfg.StateDir
	}
	if len(fileCfg.Mounts) > 0 {
		cfg.Mounts = fileCfg.Mounts
	}
	if fileCfg.StorageDevice != "" {
		cfg.StorageDevice = fileCfg.StorageDevice
	}
}
