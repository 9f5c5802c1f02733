package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Store manages the run history and the index of console transcripts.
type Store struct {
	root string
	mu   sync.Mutex
}

// New creates a Store rooted at the given directory (typically .bringup/).
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) historyDir() string {
	return filepath.Join(s.root, "history")
}

func (s *Store) logsDir() string {
	return filepath.Join(s.root, "logs")
}

// AddRun appends a run record.
func (s *Store) AddRun(r RunRecord) error {
	return s.appendRecord("runs.json", r)
}

// Runs returns all run records, oldest first.
func (s *Store) Runs() ([]RunRecord, error) {
	var records []RunRecord
	err := s.loadRecords("runs.json", &records)
	return records, err
}

// LastRun returns the most recent run for core, or false if there is none.
func (s *Store) LastRun(core string) (RunRecord, bool, error) {
	runs, err := s.Runs()
	if err != nil {
		return RunRecord{}, false, err
	}
	for i := len(runs) - 1; i >= 0; i-- {
		if runs[i].Core == core {
			return runs[i], true, nil
		}
	}
	return RunRecord{}, false, nil
}

// SessionLogs returns all session log entries.
func (s *Store) SessionLogs() ([]SessionLog, error) {
	var records []SessionLog
	err := s.loadRecords("session_logs.json", &records)
	return records, err
}

// AddSessionLog appends a session log entry.
func (s *Store) AddSessionLog(r SessionLog) error {
	return s.appendRecord("session_logs.json", r)
}

// LogsDir returns the path to the logs directory, creating it if needed.
func (s *Store) LogsDir() (string, error) {
	dir := s.logsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func (s *Store) appendRecord(filename string, record any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.historyDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	path := filepath.Join(dir, filename)

	// Read existing records. A file that does not parse is left alone
	// rather than overwritten.
	var records []json.RawMessage
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &records); err != nil {
			return errors.Wrapf(err, "parse %s", path)
		}
	case !os.IsNotExist(err):
		return errors.Wrapf(err, "read %s", path)
	}

	// Marshal and append new record
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	records = append(records, raw)

	// Write back
	data, err = json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) loadRecords(filename string, dest any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.historyDir(), filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, dest)
}
