package query

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	TypeGetRunStatus           = "quantum.query.run.status"
	TypeGetRun                 = "quantum.query.run.get"
	TypeWaitForRun             = "quantum.query.run.wait"
	TypeGetQuantumArchitecture = "quantum.query.architecture.get"
	TypeListRunRecords         = "quantum.query.run_records.list"
)

type GetRunStatusMessage struct {
	RunID uuid.UUID
}

func (GetRunStatusMessage) Type() string { return TypeGetRunStatus }

func (m GetRunStatusMessage) Validate() error {
	if m.RunID == uuid.Nil {
		return fmt.Errorf("query: run id is required")
	}
	return nil
}

type GetRunMessage struct {
	RunID uuid.UUID
}

func (GetRunMessage) Type() string { return TypeGetRun }

func (m GetRunMessage) Validate() error {
	if m.RunID == uuid.Nil {
		return fmt.Errorf("query: run id is required")
	}
	return nil
}

type WaitForRunMessage struct {
	RunID    uuid.UUID
	Interval time.Duration
	Timeout  time.Duration
}

func (WaitForRunMessage) Type() string { return TypeWaitForRun }

func (m WaitForRunMessage) Validate() error {
	if m.RunID == uuid.Nil {
		return fmt.Errorf("query: run id is required")
	}
	if m.Interval < 0 || m.Timeout < 0 {
		return fmt.Errorf("query: wait interval and timeout must not be negative")
	}
	return nil
}

type GetQuantumArchitectureMessage struct{}

func (GetQuantumArchitectureMessage) Type() string { return TypeGetQuantumArchitecture }

func (GetQuantumArchitectureMessage) Validate() error { return nil }

type ListRunRecordsMessage struct {
	Limit int
}

func (ListRunRecordsMessage) Type() string { return TypeListRunRecords }

func (m ListRunRecordsMessage) Validate() error {
	if m.Limit < 0 {
		return fmt.Errorf("query: limit must not be negative")
	}
	return nil
}
