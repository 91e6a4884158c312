package core

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// architectureCache holds the device snapshot for the lifetime of the
// service. The architecture is static for a given endpoint, so one fetch
// serves every subsequent validation.
type architectureCache struct {
	mu       sync.Mutex
	snapshot *QuantumArchitecture
}

type architectureEnvelope struct {
	QuantumArchitecture QuantumArchitecture `json:"quantum_architecture"`
}

// GetQuantumArchitecture returns the device architecture advertised by
// the execution service, fetching it at most once per service instance.
func (s *Service) GetQuantumArchitecture(ctx context.Context) (arch QuantumArchitecture, err error) {
	s.arch.mu.Lock()
	if s.arch.snapshot != nil {
		arch = *s.arch.snapshot
		s.arch.mu.Unlock()
		return arch, nil
	}
	s.arch.mu.Unlock()

	startedAt := time.Now().UTC()
	defer func() {
		s.observeOperation(ctx, startedAt, "get_architecture", err, map[string]any{
			"base_url": s.config.BaseURL,
		})
	}()

	res, err := s.doRequest(ctx, http.MethodGet, "quantum-architecture", nil, "get quantum architecture")
	if err != nil {
		return QuantumArchitecture{}, err
	}
	if res.StatusCode != http.StatusOK {
		err = s.responseError(res, "get quantum architecture", "")
		return QuantumArchitecture{}, err
	}

	var envelope architectureEnvelope
	if decodeErr := json.Unmarshal(res.Body, &envelope); decodeErr != nil {
		err = s.mapError(protocolError("malformed quantum architecture body", decodeErr))
		return QuantumArchitecture{}, err
	}
	if len(envelope.QuantumArchitecture.Qubits) == 0 && len(envelope.QuantumArchitecture.Operations) == 0 {
		err = s.mapError(protocolError("quantum architecture body is missing the device description", nil))
		return QuantumArchitecture{}, err
	}

	s.arch.mu.Lock()
	snapshot := envelope.QuantumArchitecture
	s.arch.snapshot = &snapshot
	s.arch.mu.Unlock()

	return envelope.QuantumArchitecture, nil
}
