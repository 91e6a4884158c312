package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	clientName    = "go-quantum-client"
	clientVersion = "1.2.0"
)

// WaitOptions bounds one wait call. Zero values fall back to the
// configured polling defaults.
type WaitOptions struct {
	Interval time.Duration
	Timeout  time.Duration
}

type submitResponse struct {
	ID uuid.UUID `json:"id"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type jobPayload struct {
	Status       string                 `json:"status"`
	Measurements []map[string][][]int64 `json:"measurements,omitempty"`
	Message      string                 `json:"message,omitempty"`
	Metadata     JobMetadata            `json:"metadata"`
	Warnings     []string               `json:"warnings,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// SubmitRun validates the request, obtains a credential, and posts the
// run to the execution service. Structural validation runs before any
// network call; a second pass checks the request against the device
// architecture when the snapshot can be fetched, and an unreachable
// architecture endpoint degrades to architecture-independent validation.
func (s *Service) SubmitRun(ctx context.Context, req RunRequest) (runID uuid.UUID, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"shots":    req.Shots,
		"circuits": len(req.Circuits),
	}
	defer func() {
		if runID != uuid.Nil {
			fields["run_id"] = runID.String()
		}
		s.observeOperation(ctx, startedAt, "submit_run", err, fields)
	}()

	if err = ValidateRunRequest(req, nil); err != nil {
		err = s.mapError(err)
		return uuid.Nil, err
	}

	if s != nil && s.transport != nil {
		if arch, archErr := s.GetQuantumArchitecture(ctx); archErr == nil {
			if err = ValidateRunRequest(req, &arch); err != nil {
				err = s.mapError(err)
				return uuid.Nil, err
			}
		} else {
			s.logInfo(ctx, "architecture unavailable, validating without device reference", map[string]any{
				"error": archErr.Error(),
			})
		}
	}

	body, marshalErr := json.Marshal(req)
	if marshalErr != nil {
		err = s.mapError(clientConfigurationError(
			fmt.Sprintf("encode run request: %v", marshalErr), nil,
		))
		return uuid.Nil, err
	}

	res, err := s.doRequest(ctx, http.MethodPost, "jobs", body, "submit run")
	if err != nil {
		return uuid.Nil, err
	}
	if res.StatusCode != http.StatusCreated {
		err = s.responseError(res, "submit run", "")
		return uuid.Nil, err
	}

	var submitted submitResponse
	if decodeErr := json.Unmarshal(res.Body, &submitted); decodeErr != nil {
		err = s.mapError(protocolError("malformed submit response body", decodeErr))
		return uuid.Nil, err
	}
	if submitted.ID == uuid.Nil {
		err = s.mapError(protocolError("submit response is missing the job id", nil))
		return uuid.Nil, err
	}

	s.recordRunSubmitted(ctx, submitted.ID, req)
	return submitted.ID, nil
}

// GetRunStatus fetches the current status of a run without polling.
func (s *Service) GetRunStatus(ctx context.Context, runID uuid.UUID) (status JobStatus, err error) {
	res, err := s.doRequest(ctx, http.MethodGet, "jobs/"+runID.String()+"/status", nil, "get run status")
	if err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusOK {
		return "", s.responseError(res, "get run status", runID.String())
	}

	var payload statusResponse
	if decodeErr := json.Unmarshal(res.Body, &payload); decodeErr != nil {
		return "", s.mapError(protocolError("malformed status response body", decodeErr))
	}
	status, err = ParseJobStatus(payload.Status)
	if err != nil {
		return "", s.mapError(err)
	}
	return status, nil
}

// GetRun fetches the full run, measurements included when ready. A
// non-terminal run is returned in its pending state, not as an error, so
// callers can build their own polling strategy.
func (s *Service) GetRun(ctx context.Context, runID uuid.UUID) (Job, error) {
	res, err := s.doRequest(ctx, http.MethodGet, "jobs/"+runID.String(), nil, "get run")
	if err != nil {
		return Job{}, err
	}
	if res.StatusCode != http.StatusOK {
		return Job{}, s.responseError(res, "get run", runID.String())
	}

	var payload jobPayload
	if decodeErr := json.Unmarshal(res.Body, &payload); decodeErr != nil {
		return Job{}, s.mapError(protocolError("malformed run response body", decodeErr))
	}
	status, err := ParseJobStatus(payload.Status)
	if err != nil {
		return Job{}, s.mapError(err)
	}

	return Job{
		ID:           runID,
		Status:       status,
		Measurements: payload.Measurements,
		Message:      payload.Message,
		Metadata:     payload.Metadata,
		Warnings:     payload.Warnings,
	}, nil
}

// WaitForCompletion polls the run status until it reaches a terminal
// state, the timeout elapses, or the context is cancelled. Every poll
// presents a freshly validated credential. An elapsed timeout surfaces
// as a timeout error and never aborts the server-side run.
func (s *Service) WaitForCompletion(ctx context.Context, runID uuid.UUID, opts WaitOptions) (job Job, err error) {
	startedAt := time.Now().UTC()
	polls := 0
	fields := map[string]any{
		"run_id": runID.String(),
	}
	defer func() {
		fields["polls"] = polls
		if job.Status != "" {
			fields["job_status"] = string(job.Status)
		}
		s.observeOperation(ctx, startedAt, "wait_for_run", err, fields)
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = s.pollInterval()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.pollTimeout()
	}
	deadline := s.now().Add(timeout)

	for {
		status, pollErr := s.GetRunStatus(ctx, runID)
		if pollErr != nil {
			err = pollErr
			return Job{}, err
		}
		polls++

		if status.Terminal() {
			job, err = s.finishWait(ctx, runID, status)
			return job, err
		}

		if !s.now().Add(interval).Before(deadline) {
			err = s.mapError(apiTimeoutError(
				fmt.Sprintf("run %s did not reach a terminal state within %s", runID, timeout), nil,
			))
			return Job{}, err
		}

		select {
		case <-ctx.Done():
			err = s.mapError(apiTimeoutError("wait for completion cancelled", ctx.Err()))
			return Job{}, err
		case <-time.After(interval):
		}
	}
}

func (s *Service) finishWait(ctx context.Context, runID uuid.UUID, status JobStatus) (Job, error) {
	job, err := s.GetRun(ctx, runID)
	if err != nil {
		return Job{}, err
	}

	s.recordRunOutcome(ctx, runID, job.Status, job.Message)

	if job.Status == JobStatusFailed {
		message := strings.TrimSpace(job.Message)
		if message == "" {
			message = "job execution failed"
		}
		return job, s.mapError(jobExecutionError(message, map[string]any{
			"run_id": runID.String(),
			"status": string(job.Status),
		}))
	}
	return job, nil
}

// AbortRun requests server-side cancellation. The engine never retries a
// rejected abort; the rejection is reported as-is.
func (s *Service) AbortRun(ctx context.Context, runID uuid.UUID) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"run_id": runID.String(),
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "abort_run", err, fields)
	}()

	res, err := s.doRequest(ctx, http.MethodPost, "jobs/"+runID.String()+"/abort", nil, "abort run")
	if err != nil {
		return err
	}
	if res.StatusCode == http.StatusOK {
		s.recordRunOutcome(ctx, runID, JobStatusAborted, "")
		return nil
	}

	detail := decodeErrorDetail(res.Body)
	if detail == "" {
		detail = "abort rejected by the execution service"
	}
	err = s.mapError(jobAbortError(detail, map[string]any{
		"run_id":      runID.String(),
		"status_code": res.StatusCode,
	}))
	return err
}

// ListRunRecords returns the most recent entries of the local run ledger.
func (s *Service) ListRunRecords(ctx context.Context, limit int) ([]RunRecord, error) {
	if s == nil || s.runStore == nil {
		return []RunRecord{}, nil
	}
	records, err := s.runStore.ListRecent(ctx, limit)
	if err != nil {
		return nil, s.mapError(err)
	}
	return records, nil
}

func (s *Service) doRequest(
	ctx context.Context,
	method string,
	path string,
	body []byte,
	operation string,
) (TransportResponse, error) {
	if s == nil || s.transport == nil {
		return TransportResponse{}, s.mapError(clientConfigurationError("transport adapter is not configured", nil))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	headers := map[string]string{
		"User-Agent": s.userAgent(),
		"Expect":     "100-Continue",
	}
	if len(body) > 0 {
		headers["Content-Type"] = "application/json"
	}

	token, err := s.GetValidAccessToken(ctx)
	if err != nil {
		return TransportResponse{}, err
	}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	res, err := s.transport.Do(ctx, TransportRequest{
		Method:  method,
		URL:     joinURL(s.config.BaseURL, path),
		Headers: headers,
		Body:    body,
		Timeout: s.requestTimeout(),
	})
	if err != nil {
		return TransportResponse{}, s.classifyTransportError(err, operation)
	}
	return res, nil
}

func (s *Service) classifyTransportError(err error, operation string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return s.mapError(apiTimeoutError(operation+" request timed out", err))
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return s.mapError(apiTimeoutError(operation+" request timed out", err))
	}
	return s.mapError(err)
}

func (s *Service) responseError(res TransportResponse, operation string, runID string) error {
	detail := decodeErrorDetail(res.Body)
	metadata := map[string]any{
		"status_code": res.StatusCode,
	}
	if runID != "" {
		metadata["run_id"] = runID
	}

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		if detail == "" {
			detail = "request rejected by the authentication layer"
		}
		return s.mapError(authenticationError(fmt.Sprintf("%s: %s", operation, detail), nil))
	case res.StatusCode >= 400 && res.StatusCode < 500:
		if detail == "" {
			detail = "request rejected by the execution service"
		}
		return s.mapError(clientConfigurationError(fmt.Sprintf("%s: %s", operation, detail), metadata))
	case res.StatusCode >= 500:
		if detail == "" {
			detail = "execution service error"
		}
		return s.mapError(serverError(fmt.Sprintf("%s: %s", operation, detail), res.StatusCode, metadata))
	default:
		return s.mapError(protocolError(
			fmt.Sprintf("%s: unexpected status code %d", operation, res.StatusCode), nil,
		))
	}
}

func decodeErrorDetail(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Detail) != "" {
		return strings.TrimSpace(payload.Detail)
	}
	return strings.TrimSpace(string(body))
}

func (s *Service) recordRunSubmitted(ctx context.Context, runID uuid.UUID, req RunRequest) {
	if s == nil || s.runStore == nil {
		return
	}
	calibrationSetID := ""
	if req.CalibrationSetID != nil {
		calibrationSetID = req.CalibrationSetID.String()
	}
	_, err := s.runStore.Create(ctx, CreateRunRecordInput{
		RunID:            runID.String(),
		Status:           string(JobStatusPendingCompilation),
		Shots:            req.Shots,
		CircuitCount:     len(req.Circuits),
		CalibrationSetID: calibrationSetID,
	})
	if err != nil {
		s.logError(ctx, "record submitted run", map[string]any{
			"run_id": runID.String(),
			"error":  err.Error(),
		})
	}
}

func (s *Service) recordRunOutcome(ctx context.Context, runID uuid.UUID, status JobStatus, detail string) {
	if s == nil {
		return
	}
	if s.runStore != nil {
		if err := s.runStore.UpdateStatus(ctx, runID.String(), string(status), detail); err != nil {
			s.logError(ctx, "record run outcome", map[string]any{
				"run_id": runID.String(),
				"status": string(status),
				"error":  err.Error(),
			})
		}
	}
	if s.runEventEnqueuer != nil && status.Terminal() {
		err := s.runEventEnqueuer.Enqueue(ctx, &RunEventMessage{
			RunID:          runID.String(),
			Status:         string(status),
			Parameters:     map[string]any{"detail": detail},
			IdempotencyKey: runID.String() + ":" + string(status),
			DedupPolicy:    "ignore",
		})
		if err != nil {
			s.logError(ctx, "enqueue run event", map[string]any{
				"run_id": runID.String(),
				"status": string(status),
				"error":  err.Error(),
			})
		}
	}
}

func (s *Service) userAgent() string {
	agent := fmt.Sprintf(
		"%s, go %s, %s %s",
		runtime.GOOS,
		strings.TrimPrefix(runtime.Version(), "go"),
		clientName,
		clientVersion,
	)
	if signature := strings.TrimSpace(s.config.ClientSignature); signature != "" {
		agent += ", " + signature
	}
	return agent
}

func (s *Service) requestTimeout() time.Duration {
	if s != nil && s.config.RequestTimeout > 0 {
		return s.config.RequestTimeout
	}
	return DefaultRequestTimeout
}

func (s *Service) pollInterval() time.Duration {
	if s != nil && s.config.Polling.Interval > 0 {
		return s.config.Polling.Interval
	}
	return DefaultPollInterval
}

func (s *Service) pollTimeout() time.Duration {
	if s != nil && s.config.Polling.Timeout > 0 {
		return s.config.Polling.Timeout
	}
	return DefaultPollTimeout
}

func joinURL(base string, path string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if base == "" {
		return path
	}
	return base + "/" + path
}
