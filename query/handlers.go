package query

import (
	"context"

	"github.com/google/uuid"
	"github.com/goliatone/go-quantum-client/core"
)

type RunReader interface {
	GetRunStatus(ctx context.Context, runID uuid.UUID) (core.JobStatus, error)
	GetRun(ctx context.Context, runID uuid.UUID) (core.Job, error)
	WaitForCompletion(ctx context.Context, runID uuid.UUID, opts core.WaitOptions) (core.Job, error)
}

type ArchitectureReader interface {
	GetQuantumArchitecture(ctx context.Context) (core.QuantumArchitecture, error)
}

type RunRecordReader interface {
	ListRunRecords(ctx context.Context, limit int) ([]core.RunRecord, error)
}

type GetRunStatusQuery struct {
	reader RunReader
}

func NewGetRunStatusQuery(reader RunReader) *GetRunStatusQuery {
	return &GetRunStatusQuery{reader: reader}
}

func (q *GetRunStatusQuery) Query(ctx context.Context, msg GetRunStatusMessage) (core.JobStatus, error) {
	if q == nil || q.reader == nil {
		return "", queryDependencyError("query: run reader is required")
	}
	return q.reader.GetRunStatus(ctx, msg.RunID)
}

type GetRunQuery struct {
	reader RunReader
}

func NewGetRunQuery(reader RunReader) *GetRunQuery {
	return &GetRunQuery{reader: reader}
}

func (q *GetRunQuery) Query(ctx context.Context, msg GetRunMessage) (core.Job, error) {
	if q == nil || q.reader == nil {
		return core.Job{}, queryDependencyError("query: run reader is required")
	}
	return q.reader.GetRun(ctx, msg.RunID)
}

type WaitForRunQuery struct {
	reader RunReader
}

func NewWaitForRunQuery(reader RunReader) *WaitForRunQuery {
	return &WaitForRunQuery{reader: reader}
}

func (q *WaitForRunQuery) Query(ctx context.Context, msg WaitForRunMessage) (core.Job, error) {
	if q == nil || q.reader == nil {
		return core.Job{}, queryDependencyError("query: run reader is required")
	}
	return q.reader.WaitForCompletion(ctx, msg.RunID, core.WaitOptions{
		Interval: msg.Interval,
		Timeout:  msg.Timeout,
	})
}

type GetQuantumArchitectureQuery struct {
	reader ArchitectureReader
}

func NewGetQuantumArchitectureQuery(reader ArchitectureReader) *GetQuantumArchitectureQuery {
	return &GetQuantumArchitectureQuery{reader: reader}
}

func (q *GetQuantumArchitectureQuery) Query(
	ctx context.Context,
	msg GetQuantumArchitectureMessage,
) (core.QuantumArchitecture, error) {
	if q == nil || q.reader == nil {
		return core.QuantumArchitecture{}, queryDependencyError("query: architecture reader is required")
	}
	return q.reader.GetQuantumArchitecture(ctx)
}

type ListRunRecordsQuery struct {
	reader RunRecordReader
}

func NewListRunRecordsQuery(reader RunRecordReader) *ListRunRecordsQuery {
	return &ListRunRecordsQuery{reader: reader}
}

func (q *ListRunRecordsQuery) Query(ctx context.Context, msg ListRunRecordsMessage) ([]core.RunRecord, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: run record reader is required")
	}
	return q.reader.ListRunRecords(ctx, msg.Limit)
}
