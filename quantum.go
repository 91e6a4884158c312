package quantumclient

import (
	"github.com/goliatone/go-quantum-client/auth"
	"github.com/goliatone/go-quantum-client/core"
	"github.com/goliatone/go-quantum-client/transport"
)

type Config = core.Config

type AuthConfig = core.AuthConfig

type PollingConfig = core.PollingConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type RunRequest = core.RunRequest
type Circuit = core.Circuit
type Instruction = core.Instruction
type SingleQubitMapping = core.SingleQubitMapping
type QuantumArchitecture = core.QuantumArchitecture
type Job = core.Job
type JobStatus = core.JobStatus
type JobMetadata = core.JobMetadata
type WaitOptions = core.WaitOptions
type Credential = core.Credential
type RunRecord = core.RunRecord

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithTransport         = core.WithTransport
	WithTransportResolver = core.WithTransportResolver
	WithSessionStrategy   = core.WithSessionStrategy
	WithRunStore          = core.WithRunStore
	WithRunEventEnqueuer  = core.WithRunEventEnqueuer
	WithClock             = core.WithClock
)

var (
	IsClientConfigurationError = core.IsClientConfigurationError
	IsAuthenticationError      = core.IsAuthenticationError
	IsCircuitValidationError   = core.IsCircuitValidationError
	IsAPITimeoutError          = core.IsAPITimeoutError
	IsServerError              = core.IsServerError
	IsJobExecutionError        = core.IsJobExecutionError
	IsJobAbortError            = core.IsJobAbortError
	IsProtocolError            = core.IsProtocolError
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// New builds a client session with the stock REST transport wired in.
// When the configuration names an auth server, a token endpoint
// strategy is derived from it. Options passed by the caller are applied
// after the derived defaults and override them.
func New(cfg Config, opts ...Option) (*Service, error) {
	defaults := []Option{
		WithTransportResolver(transport.NewDefaultRegistry()),
	}
	if cfg.Auth.Enabled() {
		strategy, err := auth.NewTokenEndpointStrategy(auth.Config{
			ServerURL: cfg.Auth.ServerURL,
			Realm:     cfg.Auth.Realm,
			ClientID:  cfg.Auth.ClientID,
			Username:  cfg.Auth.Username,
			Password:  cfg.Auth.Password,
		})
		if err != nil {
			return nil, err
		}
		defaults = append(defaults, WithSessionStrategy(strategy))
	}
	return core.NewService(cfg, append(defaults, opts...)...)
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
