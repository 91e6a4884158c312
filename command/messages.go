package command

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/goliatone/go-quantum-client/core"
)

const (
	TypeSubmitRun      = "quantum.command.run.submit"
	TypeAbortRun       = "quantum.command.run.abort"
	TypeRefreshSession = "quantum.command.session.refresh"
	TypeCloseSession   = "quantum.command.session.close"
)

type SubmitRunMessage struct {
	Request core.RunRequest
}

func (SubmitRunMessage) Type() string { return TypeSubmitRun }

func (m SubmitRunMessage) Validate() error {
	if len(m.Request.Circuits) == 0 {
		return fmt.Errorf("command: run request requires at least one circuit")
	}
	if m.Request.Shots < 1 {
		return fmt.Errorf("command: run request requires a positive shot count")
	}
	return nil
}

type AbortRunMessage struct {
	RunID uuid.UUID
}

func (AbortRunMessage) Type() string { return TypeAbortRun }

func (m AbortRunMessage) Validate() error {
	if m.RunID == uuid.Nil {
		return fmt.Errorf("command: run id is required")
	}
	return nil
}

// RefreshSessionMessage forces a credential renewal check outside of a
// request path.
type RefreshSessionMessage struct{}

func (RefreshSessionMessage) Type() string { return TypeRefreshSession }

func (RefreshSessionMessage) Validate() error { return nil }

type CloseSessionMessage struct{}

func (CloseSessionMessage) Type() string { return TypeCloseSession }

func (CloseSessionMessage) Validate() error { return nil }
