package gocommand

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"

	quantumcommand "github.com/goliatone/go-quantum-client/command"
	"github.com/goliatone/go-quantum-client/core"
	quantumquery "github.com/goliatone/go-quantum-client/query"
)

type emptyTypeMessage struct{}

func (emptyTypeMessage) Type() string { return "" }

type rejectingMessage struct{}

func (rejectingMessage) Type() string { return "quantum.command.rejecting" }

func (rejectingMessage) Validate() error { return errors.New("invalid payload") }

type stubRuntime struct {
	mu sync.Mutex

	submitCalls int
	abortedRun  uuid.UUID
	closedAuth  bool

	runID  uuid.UUID
	status core.JobStatus
	job    core.Job
}

func (s *stubRuntime) SubmitRun(_ context.Context, req core.RunRequest) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitCalls++
	return s.runID, nil
}

func (s *stubRuntime) AbortRun(_ context.Context, runID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abortedRun = runID
	return nil
}

func (s *stubRuntime) GetValidAccessToken(context.Context) (string, error) {
	return "token-1", nil
}

func (s *stubRuntime) CloseAuthSession(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closedAuth = true
	return nil
}

func (s *stubRuntime) GetRunStatus(context.Context, uuid.UUID) (core.JobStatus, error) {
	return s.status, nil
}

func (s *stubRuntime) GetRun(context.Context, uuid.UUID) (core.Job, error) {
	return s.job, nil
}

func (s *stubRuntime) WaitForCompletion(_ context.Context, _ uuid.UUID, _ core.WaitOptions) (core.Job, error) {
	return s.job, nil
}

func (s *stubRuntime) GetQuantumArchitecture(context.Context) (core.QuantumArchitecture, error) {
	return core.QuantumArchitecture{Name: "crystal-5"}, nil
}

func (s *stubRuntime) ListRunRecords(_ context.Context, limit int) ([]core.RunRecord, error) {
	records := []core.RunRecord{{RunID: "run-a"}, {RunID: "run-b"}}
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records, nil
}

var _ Service = (*stubRuntime)(nil)

func singleCircuitRequest() core.RunRequest {
	return core.RunRequest{
		Circuits: []core.Circuit{{
			Name: "bell",
			Instructions: []core.Instruction{
				{Name: "prx", Qubits: []string{"QB1"}, Args: map[string]any{"angle_t": 0.5, "phase_t": 0.0}},
				{Name: "measure", Qubits: []string{"QB1"}, Args: map[string]any{"key": "m1"}},
			},
		}},
		Shots: 16,
	}
}

func TestValidateMessageContract(t *testing.T) {
	if err := ValidateMessageContract(quantumcommand.AbortRunMessage{RunID: uuid.New()}); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
	if err := ValidateMessageContract(emptyTypeMessage{}); err == nil {
		t.Fatalf("expected empty type to fail contract validation")
	}
	if err := ValidateMessageContract(rejectingMessage{}); err == nil {
		t.Fatalf("expected Validate() failure to bubble")
	}
	if err := ValidateMessageContract(quantumcommand.SubmitRunMessage{}); err == nil {
		t.Fatalf("expected empty run request to fail validation")
	}
}

func TestNewBusRequiresService(t *testing.T) {
	if _, err := NewBus(nil, nil); err == nil {
		t.Fatalf("expected error for missing service")
	}
}

func TestBusCommandDispatch(t *testing.T) {
	runtime := &stubRuntime{runID: uuid.New()}
	bus, err := NewBus(runtime, nil)
	if err != nil {
		t.Fatalf("new bus: %v", err)
	}
	defer bus.Close()

	runID, err := bus.SubmitRun(context.Background(), singleCircuitRequest())
	if err != nil {
		t.Fatalf("submit run: %v", err)
	}
	if runID != runtime.runID {
		t.Fatalf("expected run id %s, got %s", runtime.runID, runID)
	}
	if runtime.submitCalls != 1 {
		t.Fatalf("expected one submit, got %d", runtime.submitCalls)
	}

	if _, err := bus.SubmitRun(context.Background(), core.RunRequest{}); err == nil {
		t.Fatalf("expected message validation to reject an empty request")
	}
	if runtime.submitCalls != 1 {
		t.Fatalf("expected rejected submit to never reach the service")
	}

	target := uuid.New()
	if err := bus.AbortRun(context.Background(), target); err != nil {
		t.Fatalf("abort run: %v", err)
	}
	if runtime.abortedRun != target {
		t.Fatalf("expected abort for %s, got %s", target, runtime.abortedRun)
	}

	token, err := bus.RefreshSession(context.Background())
	if err != nil {
		t.Fatalf("refresh session: %v", err)
	}
	if token != "token-1" {
		t.Fatalf("expected refreshed token, got %q", token)
	}

	if err := bus.CloseSession(context.Background()); err != nil {
		t.Fatalf("close session: %v", err)
	}
	if !runtime.closedAuth {
		t.Fatalf("expected close session to reach the service")
	}
}

func TestBusQueryDispatch(t *testing.T) {
	jobID := uuid.New()
	runtime := &stubRuntime{
		status: core.JobStatusReady,
		job:    core.Job{ID: jobID, Status: core.JobStatusReady},
	}
	bus, err := NewBus(runtime, nil)
	if err != nil {
		t.Fatalf("new bus: %v", err)
	}
	defer bus.Close()

	status, err := bus.GetRunStatus(context.Background(), jobID)
	if err != nil {
		t.Fatalf("get run status: %v", err)
	}
	if status != core.JobStatusReady {
		t.Fatalf("expected ready status, got %q", status)
	}

	fetched, err := bus.GetRun(context.Background(), jobID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if fetched.ID != jobID {
		t.Fatalf("expected run %s, got %s", jobID, fetched.ID)
	}

	waited, err := bus.WaitForRun(context.Background(), jobID, core.WaitOptions{})
	if err != nil {
		t.Fatalf("wait for run: %v", err)
	}
	if waited.Status != core.JobStatusReady {
		t.Fatalf("expected terminal run, got %q", waited.Status)
	}

	architecture, err := bus.GetQuantumArchitecture(context.Background())
	if err != nil {
		t.Fatalf("get architecture: %v", err)
	}
	if architecture.Name != "crystal-5" {
		t.Fatalf("expected architecture name, got %q", architecture.Name)
	}

	records, err := bus.ListRunRecords(context.Background(), 1)
	if err != nil {
		t.Fatalf("list run records: %v", err)
	}
	if len(records) != 1 || records[0].RunID != "run-a" {
		t.Fatalf("expected limited records, got %+v", records)
	}
}

func TestBusQueueResolverMirrorsCommands(t *testing.T) {
	runtime := &stubRuntime{runID: uuid.New()}
	bus, err := NewBus(runtime, nil)
	if err != nil {
		t.Fatalf("new bus: %v", err)
	}
	defer bus.Close()

	queueRegistry := jobqueuecommand.NewRegistry()
	if err := bus.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if !bus.HasResolver("queue") {
		t.Fatalf("expected queue resolver to be registered")
	}
	if err := bus.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	for _, messageType := range []string{
		quantumcommand.TypeSubmitRun,
		quantumcommand.TypeAbortRun,
		quantumcommand.TypeRefreshSession,
		quantumcommand.TypeCloseSession,
	} {
		if _, ok := queueRegistry.Get(messageType); !ok {
			t.Fatalf("expected %q to be mirrored into the queue registry", messageType)
		}
	}
	if _, ok := queueRegistry.Get(quantumquery.TypeGetRunStatus); ok {
		t.Fatalf("expected queries to stay out of the queue registry")
	}
}
