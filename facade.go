package quantumclient

import (
	"fmt"

	"github.com/goliatone/go-quantum-client/adapters/gocommand"
	quantumcommand "github.com/goliatone/go-quantum-client/command"
	quantumquery "github.com/goliatone/go-quantum-client/query"
)

// CommandQueryService is the surface the facade handlers dispatch
// against. *core.Service satisfies it.
type CommandQueryService interface {
	quantumcommand.MutatingService
	quantumquery.RunReader
	quantumquery.ArchitectureReader
	quantumquery.RunRecordReader
}

type Commands struct {
	SubmitRun      *quantumcommand.SubmitRunCommand
	AbortRun       *quantumcommand.AbortRunCommand
	RefreshSession *quantumcommand.RefreshSessionCommand
	CloseSession   *quantumcommand.CloseSessionCommand
}

type Queries struct {
	GetRunStatus           *quantumquery.GetRunStatusQuery
	GetRun                 *quantumquery.GetRunQuery
	WaitForRun             *quantumquery.WaitForRunQuery
	GetQuantumArchitecture *quantumquery.GetQuantumArchitectureQuery
	ListRunRecords         *quantumquery.ListRunRecordsQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("quantumclient: command/query service is required")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		SubmitRun:      quantumcommand.NewSubmitRunCommand(service),
		AbortRun:       quantumcommand.NewAbortRunCommand(service),
		RefreshSession: quantumcommand.NewRefreshSessionCommand(service),
		CloseSession:   quantumcommand.NewCloseSessionCommand(service),
	}
	facade.queries = Queries{
		GetRunStatus:           quantumquery.NewGetRunStatusQuery(service),
		GetRun:                 quantumquery.NewGetRunQuery(service),
		WaitForRun:             quantumquery.NewWaitForRunQuery(service),
		GetQuantumArchitecture: quantumquery.NewGetQuantumArchitectureQuery(service),
		ListRunRecords:         quantumquery.NewListRunRecordsQuery(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

// Bus exposes the facade's service through the go-command dispatcher.
// Callers own the returned bus and should Close it when done.
func (f *Facade) Bus() (*gocommand.Bus, error) {
	if f == nil || f.service == nil {
		return nil, fmt.Errorf("quantumclient: command/query service is required")
	}
	return gocommand.NewBus(f.service, nil)
}

// NewCommandBus registers the service's command and query handlers on
// a dispatcher-backed bus.
func NewCommandBus(service CommandQueryService) (*gocommand.Bus, error) {
	return gocommand.NewBus(service, nil)
}
