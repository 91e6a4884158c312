package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-quantum-client/core"
)

var (
	_ gocmd.Querier[GetRunStatusMessage, core.JobStatus]                         = (*GetRunStatusQuery)(nil)
	_ gocmd.Querier[GetRunMessage, core.Job]                                     = (*GetRunQuery)(nil)
	_ gocmd.Querier[WaitForRunMessage, core.Job]                                 = (*WaitForRunQuery)(nil)
	_ gocmd.Querier[GetQuantumArchitectureMessage, core.QuantumArchitecture]     = (*GetQuantumArchitectureQuery)(nil)
	_ gocmd.Querier[ListRunRecordsMessage, []core.RunRecord]                     = (*ListRunRecordsQuery)(nil)
)
