package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func architectureBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"quantum_architecture": map[string]any{
			"name":   "crystal-3",
			"qubits": []string{"QB1", "QB2", "QB3", "COMP_R"},
			"qubit_connectivity": [][]string{
				{"QB1", "QB2"},
				{"QB2", "QB3"},
			},
			"operations": map[string][][]string{
				"prx":     {{"QB1"}, {"QB2"}, {"QB3"}},
				"measure": {{"QB1"}, {"QB2"}, {"QB3"}},
				"cz":      {{"QB1", "QB2"}, {"QB2", "QB3"}},
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal architecture: %v", err)
	}
	return body
}

// jobService scripts the execution-service endpoints for one run.
type jobService struct {
	t        *testing.T
	mu       sync.Mutex
	runID    uuid.UUID
	statuses []string
	polls    int
	aborts   int
	submits  int
	results  int
	result   map[string]any
	abortRes TransportResponse
}

func newJobService(t *testing.T, runID uuid.UUID, statuses ...string) *jobService {
	return &jobService{
		t:        t,
		runID:    runID,
		statuses: statuses,
		abortRes: TransportResponse{StatusCode: 200, Body: []byte(`{}`)},
	}
}

func (j *jobService) handle(req TransportRequest) (TransportResponse, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch {
	case strings.HasSuffix(req.URL, "/quantum-architecture"):
		return TransportResponse{StatusCode: 200, Body: architectureBody(j.t)}, nil

	case req.Method == "POST" && strings.HasSuffix(req.URL, "/jobs"):
		j.submits++
		body, _ := json.Marshal(map[string]string{"id": j.runID.String()})
		return TransportResponse{StatusCode: 201, Body: body}, nil

	case req.Method == "GET" && strings.HasSuffix(req.URL, "/status"):
		status := j.statuses[len(j.statuses)-1]
		if j.polls < len(j.statuses) {
			status = j.statuses[j.polls]
		}
		j.polls++
		body, _ := json.Marshal(map[string]string{"status": status})
		return TransportResponse{StatusCode: 200, Body: body}, nil

	case req.Method == "POST" && strings.HasSuffix(req.URL, "/abort"):
		j.aborts++
		return j.abortRes, nil

	case req.Method == "GET" && strings.HasSuffix(req.URL, "/jobs/"+j.runID.String()):
		j.results++
		payload := j.result
		if payload == nil {
			payload = map[string]any{"status": j.statuses[len(j.statuses)-1]}
		}
		body, _ := json.Marshal(payload)
		return TransportResponse{StatusCode: 200, Body: body}, nil
	}

	j.t.Fatalf("unexpected request %s %s", req.Method, req.URL)
	return TransportResponse{}, nil
}

func (j *jobService) counters() (submits, polls, results, aborts int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.submits, j.polls, j.results, j.aborts
}

func TestSubmitRun(t *testing.T) {
	runID := uuid.New()
	backend := newJobService(t, runID, "pending compilation")
	transport := &scriptedTransport{handler: backend.handle}
	store := NewMemoryRunStore()
	strategy := &scriptedStrategy{}

	svc := newTestService(t, Config{BaseURL: "https://qc.example.com"},
		WithTransport(transport),
		WithRunStore(store),
		WithSessionStrategy(strategy),
	)

	got, err := svc.SubmitRun(context.Background(), validRunRequest())
	if err != nil {
		t.Fatalf("SubmitRun() error = %v", err)
	}
	if got != runID {
		t.Fatalf("run id = %s, want %s", got, runID)
	}

	var submit TransportRequest
	for _, req := range transport.requests() {
		if req.Method == "POST" && strings.HasSuffix(req.URL, "/jobs") {
			submit = req
		}
	}
	if submit.URL != "https://qc.example.com/jobs" {
		t.Fatalf("submit URL = %q", submit.URL)
	}
	if got := submit.Headers["Expect"]; got != "100-Continue" {
		t.Fatalf("Expect header = %q", got)
	}
	if got := submit.Headers["Authorization"]; got != "Bearer access-token" {
		t.Fatalf("Authorization header = %q", got)
	}
	if agent := submit.Headers["User-Agent"]; !strings.Contains(agent, clientName) {
		t.Fatalf("User-Agent header = %q", agent)
	}

	var sent RunRequest
	if err := json.Unmarshal(submit.Body, &sent); err != nil {
		t.Fatalf("decode submit body: %v", err)
	}
	if sent.Shots != 10 || len(sent.Circuits) != 1 {
		t.Fatalf("submit body = %+v", sent)
	}

	record, err := store.GetByRunID(context.Background(), runID.String())
	if err != nil {
		t.Fatalf("ledger record missing: %v", err)
	}
	if record.Shots != 10 || record.Status != string(JobStatusPendingCompilation) {
		t.Fatalf("ledger record = %+v", record)
	}
}

func TestSubmitRunValidationShortCircuits(t *testing.T) {
	backend := newJobService(t, uuid.New(), "ready")
	transport := &scriptedTransport{handler: backend.handle}
	svc := newTestService(t, Config{BaseURL: "https://qc.example.com"},
		WithTransport(transport),
	)

	req := validRunRequest()
	req.Shots = 0
	_, err := svc.SubmitRun(context.Background(), req)
	if !IsCircuitValidationError(err) {
		t.Fatalf("error %v is not a circuit validation error", err)
	}
	if sent := transport.requests(); len(sent) != 0 {
		t.Fatalf("transport saw %d requests, want none before validation passes", len(sent))
	}
}

func TestSubmitRunUsesArchitectureReference(t *testing.T) {
	backend := newJobService(t, uuid.New(), "ready")
	transport := &scriptedTransport{handler: backend.handle}
	svc := newTestService(t, Config{BaseURL: "https://qc.example.com"},
		WithTransport(transport),
	)

	req := validRunRequest()
	req.Circuits[0].Instructions = []Instruction{
		{Name: "cz", Qubits: []string{"QB2", "QB1"}},
	}
	_, err := svc.SubmitRun(context.Background(), req)
	if !IsCircuitValidationError(err) {
		t.Fatalf("error %v is not a circuit validation error", err)
	}
	if !strings.Contains(err.Error(), "operation not supported on the given qubits") {
		t.Fatalf("error = %v", err)
	}
}

func TestSubmitRunWithoutArchitectureEndpoint(t *testing.T) {
	runID := uuid.New()
	transport := &scriptedTransport{handler: func(req TransportRequest) (TransportResponse, error) {
		if strings.HasSuffix(req.URL, "/quantum-architecture") {
			return TransportResponse{StatusCode: 500, Body: []byte(`{"detail":"no architecture"}`)}, nil
		}
		body, _ := json.Marshal(map[string]string{"id": runID.String()})
		return TransportResponse{StatusCode: 201, Body: body}, nil
	}}
	svc := newTestService(t, Config{BaseURL: "https://qc.example.com"},
		WithTransport(transport),
	)

	got, err := svc.SubmitRun(context.Background(), validRunRequest())
	if err != nil {
		t.Fatalf("SubmitRun() error = %v", err)
	}
	if got != runID {
		t.Fatalf("run id = %s, want %s", got, runID)
	}
}

func TestSubmitRunRejectedByServer(t *testing.T) {
	transport := &scriptedTransport{handler: func(req TransportRequest) (TransportResponse, error) {
		if strings.HasSuffix(req.URL, "/quantum-architecture") {
			return TransportResponse{StatusCode: 200, Body: architectureBody(t)}, nil
		}
		return TransportResponse{StatusCode: 400, Body: []byte(`{"detail":"bad shots"}`)}, nil
	}}
	svc := newTestService(t, Config{BaseURL: "https://qc.example.com"},
		WithTransport(transport),
	)

	_, err := svc.SubmitRun(context.Background(), validRunRequest())
	if !IsClientConfigurationError(err) {
		t.Fatalf("error %v is not a client configuration error", err)
	}
	if !strings.Contains(err.Error(), "bad shots") {
		t.Fatalf("error %v does not carry the server detail", err)
	}
}

func TestSubmitRunMalformedResponse(t *testing.T) {
	transport := &scriptedTransport{handler: func(req TransportRequest) (TransportResponse, error) {
		if strings.HasSuffix(req.URL, "/quantum-architecture") {
			return TransportResponse{StatusCode: 200, Body: architectureBody(t)}, nil
		}
		return TransportResponse{StatusCode: 201, Body: []byte(`{"id":"not-a-uuid"}`)}, nil
	}}
	svc := newTestService(t, Config{BaseURL: "https://qc.example.com"},
		WithTransport(transport),
	)

	_, err := svc.SubmitRun(context.Background(), validRunRequest())
	if !IsProtocolError(err) {
		t.Fatalf("error %v is not a protocol error", err)
	}
}

func TestGetRunStatus(t *testing.T) {
	runID := uuid.New()
	backend := newJobService(t, runID, "pending execution")
	svc := newTestService(t, Config{BaseURL: "https://qc.example.com"},
		WithTransport(&scriptedTransport{handler: backend.handle}),
	)

	status, err := svc.GetRunStatus(context.Background(), runID)
	if err != nil {
		t.Fatalf("GetRunStatus() error = %v", err)
	}
	if status != JobStatusPendingExecution {
		t.Fatalf("status = %q", status)
	}
}

func TestGetRunStatusRejectsUnknownStatus(t *testing.T) {
	runID := uuid.New()
	transport := &scriptedTransport{handler: func(req TransportRequest) (TransportResponse, error) {
		return TransportResponse{StatusCode: 200, Body: []byte(`{"status":"running"}`)}, nil
	}}
	svc := newTestService(t, Config{BaseURL: "https://qc.example.com"},
		WithTransport(transport),
	)

	_, err := svc.GetRunStatus(context.Background(), runID)
	if !IsProtocolError(err) {
		t.Fatalf("error %v is not a protocol error", err)
	}
	if !strings.Contains(err.Error(), `"running"`) {
		t.Fatalf("error %v does not name the unknown status", err)
	}
}

func TestGetRunStatusErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		check  func(error) bool
		name   string
	}{
		{401, IsAuthenticationError, "authentication"},
		{404, IsClientConfigurationError, "configuration"},
		{500, IsServerError, "server"},
	}
	for _, tc := range cases {
		transport := &scriptedTransport{handler: func(req TransportRequest) (TransportResponse, error) {
			return TransportResponse{StatusCode: tc.status, Body: []byte(`{"detail":"nope"}`)}, nil
		}}
		svc := newTestService(t, Config{BaseURL: "https://qc.example.com"},
			WithTransport(transport),
		)
		_, err := svc.GetRunStatus(context.Background(), uuid.New())
		if !tc.check(err) {
			t.Fatalf("status %d: error %v is not a %s error", tc.status, err, tc.name)
		}
	}
}

func TestGetRunReady(t *testing.T) {
	runID := uuid.New()
	backend := newJobService(t, runID, "ready")
	backend.result = map[string]any{
		"status": "ready",
		"measurements": []map[string][][]int64{
			{"m1": {{0}, {1}, {0}}},
		},
		"warnings": []string{"calibration drift"},
	}
	svc := newTestService(t, Config{BaseURL: "https://qc.example.com"},
		WithTransport(&scriptedTransport{handler: backend.handle}),
	)

	job, err := svc.GetRun(context.Background(), runID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if job.ID != runID {
		t.Fatalf("job id = %s", job.ID)
	}
	if job.Status != JobStatusReady {
		t.Fatalf("status = %q", job.Status)
	}
	if len(job.Measurements) != 1 || len(job.Measurements[0]["m1"]) != 3 {
		t.Fatalf("measurements = %+v", job.Measurements)
	}
	if len(job.Warnings) != 1 {
		t.Fatalf("warnings = %+v", job.Warnings)
	}
}

func TestWaitForCompletionPollsUntilReady(t *testing.T) {
	runID := uuid.New()
	backend := newJobService(t, runID, "pending compilation", "pending execution", "ready")
	backend.result = map[string]any{
		"status": "ready",
		"measurements": []map[string][][]int64{
			{"m1": {{0}, {1}}},
		},
	}
	store := NewMemoryRunStore()
	enqueuer := &recordingEnqueuer{}
	svc := newTestService(t, Config{BaseURL: "https://qc.example.com"},
		WithTransport(&scriptedTransport{handler: backend.handle}),
		WithRunStore(store),
		WithRunEventEnqueuer(enqueuer),
	)

	if _, err := store.Create(context.Background(), CreateRunRecordInput{
		RunID:  runID.String(),
		Status: string(JobStatusPendingCompilation),
	}); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	job, err := svc.WaitForCompletion(context.Background(), runID, WaitOptions{
		Interval: 5 * time.Millisecond,
		Timeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("WaitForCompletion() error = %v", err)
	}
	if job.Status != JobStatusReady {
		t.Fatalf("status = %q", job.Status)
	}
	if len(job.Measurements) != 1 {
		t.Fatalf("measurements = %+v", job.Measurements)
	}

	_, polls, results, aborts := backend.counters()
	if polls != 3 {
		t.Fatalf("polls = %d, want 3", polls)
	}
	if results != 1 {
		t.Fatalf("result fetches = %d, want 1", results)
	}
	if aborts != 0 {
		t.Fatalf("aborts = %d, want 0", aborts)
	}

	record, err := store.GetByRunID(context.Background(), runID.String())
	if err != nil {
		t.Fatalf("ledger record missing: %v", err)
	}
	if record.Status != string(JobStatusReady) {
		t.Fatalf("ledger status = %q", record.Status)
	}

	events := enqueuer.enqueued()
	if len(events) != 1 || events[0].Status != string(JobStatusReady) {
		t.Fatalf("events = %+v", events)
	}
}

func TestWaitForCompletionTimeout(t *testing.T) {
	runID := uuid.New()
	backend := newJobService(t, runID, "pending execution")
	svc := newTestService(t, Config{BaseURL: "https://qc.example.com"},
		WithTransport(&scriptedTransport{handler: backend.handle}),
	)

	_, err := svc.WaitForCompletion(context.Background(), runID, WaitOptions{
		Interval: 50 * time.Millisecond,
		Timeout:  100 * time.Millisecond,
	})
	if !IsAPITimeoutError(err) {
		t.Fatalf("error %v is not a timeout error", err)
	}

	_, polls, _, aborts := backend.counters()
	if polls != 2 {
		t.Fatalf("polls = %d, want 2", polls)
	}
	if aborts != 0 {
		t.Fatalf("aborts = %d, a timeout must not abort the remote run", aborts)
	}
}

func TestWaitForCompletionCancelled(t *testing.T) {
	runID := uuid.New()
	backend := newJobService(t, runID, "pending execution")
	svc := newTestService(t, Config{BaseURL: "https://qc.example.com"},
		WithTransport(&scriptedTransport{handler: backend.handle}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := svc.WaitForCompletion(ctx, runID, WaitOptions{
		Interval: time.Second,
		Timeout:  time.Minute,
	})
	if !IsAPITimeoutError(err) {
		t.Fatalf("error %v is not a timeout error", err)
	}
	_, _, _, aborts := backend.counters()
	if aborts != 0 {
		t.Fatalf("aborts = %d, cancellation must not abort the remote run", aborts)
	}
}

func TestWaitForCompletionFailedRun(t *testing.T) {
	runID := uuid.New()
	backend := newJobService(t, runID, "failed")
	backend.result = map[string]any{
		"status":  "failed",
		"message": "compilation error: unsupported gate",
	}
	svc := newTestService(t, Config{BaseURL: "https://qc.example.com"},
		WithTransport(&scriptedTransport{handler: backend.handle}),
	)

	job, err := svc.WaitForCompletion(context.Background(), runID, WaitOptions{
		Interval: 5 * time.Millisecond,
		Timeout:  time.Second,
	})
	if !IsJobExecutionError(err) {
		t.Fatalf("error %v is not a job execution error", err)
	}
	if !strings.Contains(err.Error(), "compilation error") {
		t.Fatalf("error %v does not carry the failure message", err)
	}
	if job.Status != JobStatusFailed {
		t.Fatalf("terminal job = %+v", job)
	}
}

func TestWaitForCompletionAbortedAndDeleted(t *testing.T) {
	for _, terminal := range []string{"aborted", "deleted"} {
		runID := uuid.New()
		backend := newJobService(t, runID, terminal)
		backend.result = map[string]any{"status": terminal}
		svc := newTestService(t, Config{BaseURL: "https://qc.example.com"},
			WithTransport(&scriptedTransport{handler: backend.handle}),
		)

		job, err := svc.WaitForCompletion(context.Background(), runID, WaitOptions{
			Interval: 5 * time.Millisecond,
			Timeout:  time.Second,
		})
		if err != nil {
			t.Fatalf("status %q: WaitForCompletion() error = %v", terminal, err)
		}
		if string(job.Status) != terminal {
			t.Fatalf("status = %q, want %q", job.Status, terminal)
		}
	}
}

func TestAbortRun(t *testing.T) {
	runID := uuid.New()
	backend := newJobService(t, runID, "pending execution")
	store := NewMemoryRunStore()
	svc := newTestService(t, Config{BaseURL: "https://qc.example.com"},
		WithTransport(&scriptedTransport{handler: backend.handle}),
		WithRunStore(store),
	)

	if _, err := store.Create(context.Background(), CreateRunRecordInput{
		RunID:  runID.String(),
		Status: string(JobStatusPendingExecution),
	}); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	if err := svc.AbortRun(context.Background(), runID); err != nil {
		t.Fatalf("AbortRun() error = %v", err)
	}
	_, _, _, aborts := backend.counters()
	if aborts != 1 {
		t.Fatalf("aborts = %d, want 1", aborts)
	}

	record, err := store.GetByRunID(context.Background(), runID.String())
	if err != nil {
		t.Fatalf("ledger record missing: %v", err)
	}
	if record.Status != string(JobStatusAborted) {
		t.Fatalf("ledger status = %q", record.Status)
	}
}

func TestAbortRunRejected(t *testing.T) {
	runID := uuid.New()
	backend := newJobService(t, runID, "ready")
	backend.abortRes = TransportResponse{
		StatusCode: 409,
		Body:       []byte(`{"detail":"job already completed"}`),
	}
	svc := newTestService(t, Config{BaseURL: "https://qc.example.com"},
		WithTransport(&scriptedTransport{handler: backend.handle}),
	)

	err := svc.AbortRun(context.Background(), runID)
	if !IsJobAbortError(err) {
		t.Fatalf("error %v is not a job abort error", err)
	}
	if !strings.Contains(err.Error(), "job already completed") {
		t.Fatalf("error %v does not carry the rejection detail", err)
	}
}

func TestTransportDeadlineBecomesTimeout(t *testing.T) {
	transport := &scriptedTransport{handler: func(req TransportRequest) (TransportResponse, error) {
		return TransportResponse{}, fmt.Errorf("execute http request: %w", context.DeadlineExceeded)
	}}
	svc := newTestService(t, Config{BaseURL: "https://qc.example.com"},
		WithTransport(transport),
	)

	_, err := svc.GetRunStatus(context.Background(), uuid.New())
	if !IsAPITimeoutError(err) {
		t.Fatalf("error %v is not a timeout error", err)
	}
}

func TestGetQuantumArchitectureCached(t *testing.T) {
	var fetches int
	var mu sync.Mutex
	transport := &scriptedTransport{handler: func(req TransportRequest) (TransportResponse, error) {
		mu.Lock()
		fetches++
		mu.Unlock()
		return TransportResponse{StatusCode: 200, Body: architectureBody(t)}, nil
	}}
	svc := newTestService(t, Config{BaseURL: "https://qc.example.com"},
		WithTransport(transport),
	)

	for i := 0; i < 3; i++ {
		arch, err := svc.GetQuantumArchitecture(context.Background())
		if err != nil {
			t.Fatalf("call %d: GetQuantumArchitecture() error = %v", i, err)
		}
		if arch.Name != "crystal-3" || len(arch.Qubits) != 4 {
			t.Fatalf("call %d: architecture = %+v", i, arch)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if fetches != 1 {
		t.Fatalf("fetches = %d, want the snapshot to be cached", fetches)
	}
}

func TestGetQuantumArchitectureMalformed(t *testing.T) {
	transport := &scriptedTransport{handler: func(req TransportRequest) (TransportResponse, error) {
		return TransportResponse{StatusCode: 200, Body: []byte(`{"quantum_architecture":{}}`)}, nil
	}}
	svc := newTestService(t, Config{BaseURL: "https://qc.example.com"},
		WithTransport(transport),
	)

	_, err := svc.GetQuantumArchitecture(context.Background())
	if !IsProtocolError(err) {
		t.Fatalf("error %v is not a protocol error", err)
	}
}

func TestListRunRecords(t *testing.T) {
	store := NewMemoryRunStore()
	svc := newTestService(t, Config{BaseURL: "https://qc.example.com"},
		WithRunStore(store),
	)

	for i := 0; i < 3; i++ {
		if _, err := store.Create(context.Background(), CreateRunRecordInput{
			RunID:  uuid.NewString(),
			Status: string(JobStatusReady),
			Shots:  i + 1,
		}); err != nil {
			t.Fatalf("seed record %d: %v", i, err)
		}
	}

	records, err := svc.ListRunRecords(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListRunRecords() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
}

func TestListRunRecordsWithoutStore(t *testing.T) {
	svc := newTestService(t, Config{BaseURL: "https://qc.example.com"})
	records, err := svc.ListRunRecords(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRunRecords() error = %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("records = %+v, want empty", records)
	}
}
