package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/google/uuid"
	"github.com/goliatone/go-quantum-client/core"
)

// MutatingService is the slice of the client runtime the command side
// needs.
type MutatingService interface {
	SubmitRun(ctx context.Context, req core.RunRequest) (uuid.UUID, error)
	AbortRun(ctx context.Context, runID uuid.UUID) error
	GetValidAccessToken(ctx context.Context) (string, error)
	CloseAuthSession(ctx context.Context) error
}

type SubmitRunCommand struct {
	service MutatingService
}

func NewSubmitRunCommand(service MutatingService) *SubmitRunCommand {
	return &SubmitRunCommand{service: service}
}

func (c *SubmitRunCommand) Execute(ctx context.Context, msg SubmitRunMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: submit run service is required")
	}
	runID, err := c.service.SubmitRun(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, runID)
	return nil
}

type AbortRunCommand struct {
	service MutatingService
}

func NewAbortRunCommand(service MutatingService) *AbortRunCommand {
	return &AbortRunCommand{service: service}
}

func (c *AbortRunCommand) Execute(ctx context.Context, msg AbortRunMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: abort run service is required")
	}
	return c.service.AbortRun(ctx, msg.RunID)
}

type RefreshSessionCommand struct {
	service MutatingService
}

func NewRefreshSessionCommand(service MutatingService) *RefreshSessionCommand {
	return &RefreshSessionCommand{service: service}
}

func (c *RefreshSessionCommand) Execute(ctx context.Context, msg RefreshSessionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: session service is required")
	}
	token, err := c.service.GetValidAccessToken(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, token)
	return nil
}

type CloseSessionCommand struct {
	service MutatingService
}

func NewCloseSessionCommand(service MutatingService) *CloseSessionCommand {
	return &CloseSessionCommand{service: service}
}

func (c *CloseSessionCommand) Execute(ctx context.Context, msg CloseSessionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: session service is required")
	}
	return c.service.CloseAuthSession(ctx)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
