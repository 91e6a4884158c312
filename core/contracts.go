package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Logger matches the go-logger contract used across the runtime.
type Logger = glog.Logger

// LoggerProvider resolves named loggers.
type LoggerProvider = glog.LoggerProvider

// FieldsLogger is the optional structured-fields extension of Logger.
type FieldsLogger = glog.FieldsLogger

// MetricsRecorder receives operation counters and latency histograms.
type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// TransportRequest is the protocol-agnostic request handed to an adapter.
type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Metadata             map[string]any
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

// TransportAdapter executes one request against the execution service.
type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

// TransportResolver builds adapters by kind with optional configuration.
type TransportResolver interface {
	Resolve(kind string, config map[string]any) (TransportAdapter, error)
}

// SessionStrategy performs the grant exchanges against the external
// identity service. Implementations must not retain the credential.
type SessionStrategy interface {
	Kind() string
	Login(ctx context.Context) (Credential, error)
	Refresh(ctx context.Context, cred Credential) (Credential, error)
	Logout(ctx context.Context, cred Credential) error
}

// RunStore persists the local run ledger.
type RunStore interface {
	Create(ctx context.Context, in CreateRunRecordInput) (RunRecord, error)
	UpdateStatus(ctx context.Context, runID string, status string, detail string) error
	GetByRunID(ctx context.Context, runID string) (RunRecord, error)
	ListRecent(ctx context.Context, limit int) ([]RunRecord, error)
}

// StoreProvider exposes the stores built by a repository factory.
type StoreProvider interface {
	RunStore() RunStore
}

// RepositoryStoreFactory lazily builds stores from a persistence client.
type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

// RunEventEnqueuer receives terminal run transitions for background
// processing.
type RunEventEnqueuer interface {
	Enqueue(ctx context.Context, msg *RunEventMessage) error
}
