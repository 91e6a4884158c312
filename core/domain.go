package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the closed set of server-reported job states. Unknown strings
// are never coerced into a known state; ParseJobStatus rejects them.
type JobStatus string

const (
	JobStatusPendingCompilation JobStatus = "pending compilation"
	JobStatusPendingExecution   JobStatus = "pending execution"
	JobStatusReady              JobStatus = "ready"
	JobStatusPendingDeletion    JobStatus = "pending deletion"
	JobStatusDeleted            JobStatus = "deleted"
	JobStatusFailed             JobStatus = "failed"
	JobStatusAborted            JobStatus = "aborted"
)

var knownJobStatuses = map[JobStatus]struct{}{
	JobStatusPendingCompilation: {},
	JobStatusPendingExecution:   {},
	JobStatusReady:              {},
	JobStatusPendingDeletion:    {},
	JobStatusDeleted:            {},
	JobStatusFailed:             {},
	JobStatusAborted:            {},
}

// ParseJobStatus maps a server status string onto the closed enum.
func ParseJobStatus(value string) (JobStatus, error) {
	status := JobStatus(strings.TrimSpace(strings.ToLower(value)))
	if _, ok := knownJobStatuses[status]; !ok {
		return "", protocolError(fmt.Sprintf("unrecognized job status %q", value), nil)
	}
	return status, nil
}

// Terminal reports whether the status ends a wait loop.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusReady, JobStatusFailed, JobStatusAborted, JobStatusDeleted:
		return true
	default:
		return false
	}
}

func (s JobStatus) Pending() bool {
	switch s {
	case JobStatusPendingCompilation, JobStatusPendingExecution, JobStatusPendingDeletion:
		return true
	default:
		return false
	}
}

type HeraldingMode string

const (
	HeraldingModeNone  HeraldingMode = "none"
	HeraldingModeZeros HeraldingMode = "zeros"
)

type MoveGateValidationMode string

const (
	MoveGateValidationModeNone     MoveGateValidationMode = "none"
	MoveGateValidationModeAllowPRX MoveGateValidationMode = "allow_prx"
	MoveGateValidationModeStrict   MoveGateValidationMode = "strict"
)

type MoveGateFrameTrackingMode string

const (
	MoveGateFrameTrackingModeNone MoveGateFrameTrackingMode = "none"
	MoveGateFrameTrackingModeFull MoveGateFrameTrackingMode = "full"
)

// Instruction is a single native operation applied to an ordered set of
// named components.
type Instruction struct {
	Name           string         `json:"name"`
	Implementation string         `json:"implementation,omitempty"`
	Qubits         []string       `json:"qubits"`
	Args           map[string]any `json:"args,omitempty"`
}

type Circuit struct {
	Name         string         `json:"name"`
	Instructions []Instruction  `json:"instructions"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// SingleQubitMapping relates one logical circuit qubit to a physical
// component name.
type SingleQubitMapping struct {
	LogicalName  string `json:"logical_name"`
	PhysicalName string `json:"physical_name"`
}

// RunRequest is the immutable payload of one submission. Wire form omits
// unset optional fields.
type RunRequest struct {
	Circuits                 []Circuit                 `json:"circuits"`
	Shots                    int                       `json:"shots"`
	QubitMapping             []SingleQubitMapping      `json:"qubit_mapping,omitempty"`
	CalibrationSetID         *uuid.UUID                `json:"calibration_set_id,omitempty"`
	CustomSettings           map[string]any            `json:"custom_settings,omitempty"`
	MaxCircuitDurationOverT2 *float64                  `json:"max_circuit_duration_over_t2,omitempty"`
	HeraldingMode            HeraldingMode             `json:"heralding_mode,omitempty"`
	MoveValidationMode       MoveGateValidationMode    `json:"move_validation_mode,omitempty"`
	MoveFrameTrackingMode    MoveGateFrameTrackingMode `json:"move_gate_frame_tracking_mode,omitempty"`
}

// JobMetadata echoes the submitted request plus server-side bookkeeping.
type JobMetadata struct {
	CalibrationSetID *uuid.UUID        `json:"calibration_set_id,omitempty"`
	Request          RunRequest        `json:"request"`
	Timestamps       map[string]string `json:"timestamps,omitempty"`
}

// Job is the server-side run as last observed by a status or result call.
// Measurements are keyed per circuit by measurement key; each entry is
// shots x qubits.
type Job struct {
	ID           uuid.UUID              `json:"id"`
	Status       JobStatus              `json:"status"`
	Measurements []map[string][][]int64 `json:"measurements,omitempty"`
	Message      string                 `json:"message,omitempty"`
	Metadata     JobMetadata            `json:"metadata"`
	Warnings     []string               `json:"warnings,omitempty"`
}

// QuantumArchitecture is the read-only validation reference describing the
// target device.
type QuantumArchitecture struct {
	Name              string                `json:"name"`
	Qubits            []string              `json:"qubits"`
	QubitConnectivity [][]string            `json:"qubit_connectivity"`
	Operations        map[string][][]string `json:"operations"`
}

// HasQubit reports whether the named component exists on the device.
func (a QuantumArchitecture) HasQubit(name string) bool {
	for _, qubit := range a.Qubits {
		if qubit == name {
			return true
		}
	}
	return false
}

// Credential is the access/refresh token pair owned by the token manager.
// Expiry instants come from the JWT exp claim of each token.
type Credential struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AccessValidAt reports whether the access token remains usable at the
// given instant plus the lead window.
func (c Credential) AccessValidAt(now time.Time, lead time.Duration) bool {
	if strings.TrimSpace(c.AccessToken) == "" {
		return false
	}
	if c.AccessExpiresAt.IsZero() {
		return true
	}
	return c.AccessExpiresAt.After(now.Add(lead))
}

// RefreshValidAt reports whether the refresh token can still drive a
// refresh grant at the given instant plus the lead window.
func (c Credential) RefreshValidAt(now time.Time, lead time.Duration) bool {
	if strings.TrimSpace(c.RefreshToken) == "" {
		return false
	}
	if c.RefreshExpiresAt.IsZero() {
		return true
	}
	return c.RefreshExpiresAt.After(now.Add(lead))
}

// RunRecord is one row of the local run ledger.
type RunRecord struct {
	ID               string
	RunID            string
	Status           string
	Shots            int
	CircuitCount     int
	CalibrationSetID string
	Error            string
	Metadata         map[string]any
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CreateRunRecordInput captures a freshly submitted run.
type CreateRunRecordInput struct {
	RunID            string
	Status           string
	Shots            int
	CircuitCount     int
	CalibrationSetID string
	Metadata         map[string]any
}

// RunEventMessage is dispatched to the configured enqueuer when a run
// reaches a terminal state inside a wait call.
type RunEventMessage struct {
	RunID          string
	Status         string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

// JobNackOptions mirrors queue nack semantics for the go-job bridge.
type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

func copyAnyMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}

func copyStringMap(input map[string]string) map[string]string {
	if len(input) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}
