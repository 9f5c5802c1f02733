package store

import "time"

// CheckRecord is the stored outcome of one check.
type CheckRecord struct {
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	Kind     string        `json:"kind,omitempty"`
	Detail   string        `json:"detail,omitempty"`
	Duration string        `json:"duration"`
	Steps    []CheckRecord `json:"steps,omitempty"`
}

// RunRecord captures one bring-up run against a DUT core.
type RunRecord struct {
	Core      string        `json:"core"`
	Endpoint  string        `json:"endpoint"`
	Timestamp time.Time     `json:"timestamp"`
	Success   bool          `json:"success"`
	Duration  string        `json:"duration"`
	Checks    []CheckRecord `json:"checks"`
}

// SessionLog tracks a console transcript written during a run.
type SessionLog struct {
	Role      string    `json:"role"`
	Endpoint  string    `json:"endpoint"`
	BaudRate  int       `json:"baud_rate,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	LogFile   string    `json:"log_file"`
}
