package sqlstore

import (
	"time"

	"github.com/goliatone/go-quantum-client/core"
	"github.com/uptrace/bun"
)

type runRecord struct {
	bun.BaseModel `bun:"table:quantum_run_records,alias:qrr"`

	ID               string         `bun:"id,pk"`
	RunID            string         `bun:"run_id,notnull"`
	Status           string         `bun:"status,notnull"`
	Shots            int            `bun:"shots,notnull"`
	CircuitCount     int            `bun:"circuit_count,notnull"`
	CalibrationSetID string         `bun:"calibration_set_id"`
	Error            string         `bun:"error"`
	Metadata         map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt        time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *runRecord) toDomain() core.RunRecord {
	if r == nil {
		return core.RunRecord{}
	}
	return core.RunRecord{
		ID:               r.ID,
		RunID:            r.RunID,
		Status:           r.Status,
		Shots:            r.Shots,
		CircuitCount:     r.CircuitCount,
		CalibrationSetID: r.CalibrationSetID,
		Error:            r.Error,
		Metadata:         copyAnyMap(r.Metadata),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func copyAnyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
