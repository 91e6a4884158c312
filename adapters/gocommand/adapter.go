package gocommand

import (
	"context"
	"fmt"
	"strings"

	gocmd "github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	"github.com/google/uuid"

	quantumcommand "github.com/goliatone/go-quantum-client/command"
	"github.com/goliatone/go-quantum-client/core"
	quantumquery "github.com/goliatone/go-quantum-client/query"
)

// Service is the runtime slice the bus handlers execute against.
// *core.Service satisfies it.
type Service interface {
	quantumcommand.MutatingService
	quantumquery.RunReader
	quantumquery.ArchitectureReader
	quantumquery.RunRecordReader
}

// ValidateMessageContract enforces Type() plus optional Validate() on
// the quantum command and query messages.
func ValidateMessageContract(msg any) error {
	if err := gocmd.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(gocmd.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

// Bus registers the quantum command and query handlers on a go-command
// registry and subscribes them to the process dispatcher. The typed
// methods are the dispatch surface for callers that talk in messages
// instead of holding the service directly.
type Bus struct {
	registry      *gocmd.Registry
	subscriptions []commanddispatcher.Subscription
}

// NewBus wires the four mutating commands and five queries for the
// given service. A nil registry gets a fresh one.
func NewBus(service Service, registry *gocmd.Registry, runnerOpts ...runner.Option) (*Bus, error) {
	if service == nil {
		return nil, fmt.Errorf("gocommand: service is required")
	}
	if registry == nil {
		registry = gocmd.NewRegistry()
	}
	bus := &Bus{registry: registry}

	if err := attachCommand(bus, quantumcommand.NewSubmitRunCommand(service), runnerOpts...); err != nil {
		bus.Close()
		return nil, err
	}
	if err := attachCommand(bus, quantumcommand.NewAbortRunCommand(service), runnerOpts...); err != nil {
		bus.Close()
		return nil, err
	}
	if err := attachCommand(bus, quantumcommand.NewRefreshSessionCommand(service), runnerOpts...); err != nil {
		bus.Close()
		return nil, err
	}
	if err := attachCommand(bus, quantumcommand.NewCloseSessionCommand(service), runnerOpts...); err != nil {
		bus.Close()
		return nil, err
	}

	if err := attachQuery(bus, quantumquery.NewGetRunStatusQuery(service), runnerOpts...); err != nil {
		bus.Close()
		return nil, err
	}
	if err := attachQuery(bus, quantumquery.NewGetRunQuery(service), runnerOpts...); err != nil {
		bus.Close()
		return nil, err
	}
	if err := attachQuery(bus, quantumquery.NewWaitForRunQuery(service), runnerOpts...); err != nil {
		bus.Close()
		return nil, err
	}
	if err := attachQuery(bus, quantumquery.NewGetQuantumArchitectureQuery(service), runnerOpts...); err != nil {
		bus.Close()
		return nil, err
	}
	if err := attachQuery(bus, quantumquery.NewListRunRecordsQuery(service), runnerOpts...); err != nil {
		bus.Close()
		return nil, err
	}

	return bus, nil
}

func attachCommand[T any](bus *Bus, cmd gocmd.Commander[T], runnerOpts ...runner.Option) error {
	subscription := commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
	if err := bus.registry.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return err
	}
	bus.subscriptions = append(bus.subscriptions, subscription)
	return nil
}

// attachQuery subscribes only. Queries stay out of the registry so
// resolver hooks such as the queue mirror never see a handler without
// an Execute method.
func attachQuery[T any, R any](bus *Bus, qry gocmd.Querier[T, R], runnerOpts ...runner.Option) error {
	subscription := commanddispatcher.SubscribeQuery(qry, runnerOpts...)
	bus.subscriptions = append(bus.subscriptions, subscription)
	return nil
}

func (b *Bus) Registry() *gocmd.Registry {
	if b == nil {
		return nil
	}
	return b.registry
}

func (b *Bus) Initialize() error {
	if b == nil || b.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return b.registry.Initialize()
}

// AddQueueResolver routes a registry key to a go-job queue registry so
// queued executions resolve through the same command surface.
func (b *Bus) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if b == nil || b.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return b.registry.AddResolver(strings.TrimSpace(key), jobqueuecommand.QueueResolver(queueRegistry))
}

func (b *Bus) HasResolver(key string) bool {
	if b == nil || b.registry == nil {
		return false
	}
	return b.registry.HasResolver(strings.TrimSpace(key))
}

// Close drops every dispatcher subscription the bus holds.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	for _, subscription := range b.subscriptions {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
	b.subscriptions = nil
}

// SubmitRun dispatches a submit message and returns the run id the
// handler stored.
func (b *Bus) SubmitRun(ctx context.Context, req core.RunRequest) (uuid.UUID, error) {
	runID, err := commanddispatcher.DispatchWithResult[quantumcommand.SubmitRunMessage, uuid.UUID](
		ctx,
		quantumcommand.SubmitRunMessage{Request: req},
	)
	if err != nil {
		return uuid.Nil, err
	}
	return runID, nil
}

func (b *Bus) AbortRun(ctx context.Context, runID uuid.UUID) error {
	return commanddispatcher.Dispatch(ctx, quantumcommand.AbortRunMessage{RunID: runID})
}

// RefreshSession forces a credential check and returns the valid
// access token.
func (b *Bus) RefreshSession(ctx context.Context) (string, error) {
	return commanddispatcher.DispatchWithResult[quantumcommand.RefreshSessionMessage, string](
		ctx,
		quantumcommand.RefreshSessionMessage{},
	)
}

func (b *Bus) CloseSession(ctx context.Context) error {
	return commanddispatcher.Dispatch(ctx, quantumcommand.CloseSessionMessage{})
}

func (b *Bus) GetRunStatus(ctx context.Context, runID uuid.UUID) (core.JobStatus, error) {
	return commanddispatcher.Query[quantumquery.GetRunStatusMessage, core.JobStatus](
		ctx,
		quantumquery.GetRunStatusMessage{RunID: runID},
	)
}

func (b *Bus) GetRun(ctx context.Context, runID uuid.UUID) (core.Job, error) {
	return commanddispatcher.Query[quantumquery.GetRunMessage, core.Job](
		ctx,
		quantumquery.GetRunMessage{RunID: runID},
	)
}

func (b *Bus) WaitForRun(ctx context.Context, runID uuid.UUID, opts core.WaitOptions) (core.Job, error) {
	return commanddispatcher.Query[quantumquery.WaitForRunMessage, core.Job](
		ctx,
		quantumquery.WaitForRunMessage{RunID: runID, Interval: opts.Interval, Timeout: opts.Timeout},
	)
}

func (b *Bus) GetQuantumArchitecture(ctx context.Context) (core.QuantumArchitecture, error) {
	return commanddispatcher.Query[quantumquery.GetQuantumArchitectureMessage, core.QuantumArchitecture](
		ctx,
		quantumquery.GetQuantumArchitectureMessage{},
	)
}

func (b *Bus) ListRunRecords(ctx context.Context, limit int) ([]core.RunRecord, error) {
	return commanddispatcher.Query[quantumquery.ListRunRecordsMessage, []core.RunRecord](
		ctx,
		quantumquery.ListRunRecordsMessage{Limit: limit},
	)
}
