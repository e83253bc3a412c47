// Package sqlstore persists analysis results through sqlx. Queries are
// written with ? placeholders and rebound for the driver in use.
package sqlstore

import (
	"context"
	"encoding/json"
	"time"

	"gobunch/domain/bunching"
	"gobunch/domain/core"
	"gobunch/domain/dominance"
	"gobunch/internal/errors"
	"gobunch/ports"

	"github.com/jmoiron/sqlx"
)

// ResultRepository implements ports.ResultRepository for PostgreSQL and SQLite
type ResultRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ ports.ResultRepository = (*ResultRepository)(nil)

// NewResultRepository creates a new result repository
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

type scenarioRow struct {
	RunID       string      `db:"run_id"`
	Key         string      `db:"scenario_key"`
	Degree      int         `db:"degree"`
	Seed        int64       `db:"seed"`
	Iterations  int         `db:"iterations"`
	Fingerprint string      `db:"fingerprint"`
	Midpoints   FloatVector `db:"midpoints"`
	Mean        FloatVector `db:"mean"`
	StdDev      FloatVector `db:"std_dev"`
	CreatedAt   time.Time   `db:"created_at"`
}

type dominanceRow struct {
	RunID         string    `db:"run_id"`
	Key           string    `db:"comparison_key"`
	Statistic     float64   `db:"statistic"`
	CriticalValue float64   `db:"critical_value"`
	Reject        bool      `db:"reject"`
	Direction     string    `db:"direction"`
	Result        string    `db:"result"`
	CreatedAt     time.Time `db:"created_at"`
}

// SaveScenario stores the summary of a scenario result
func (r *ResultRepository) SaveScenario(ctx context.Context, runID core.RunID, fingerprint core.Hash, result *bunching.ScenarioResult) error {
	row := scenarioRow{
		RunID:       runID.String(),
		Key:         result.Key,
		Degree:      result.Degree,
		Seed:        result.Seed,
		Iterations:  result.Iterations(),
		Fingerprint: fingerprint.String(),
		Midpoints:   result.Grid.Midpoints(),
		Mean:        result.Mean,
		StdDev:      result.StdDev,
		CreatedAt:   r.now(),
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO scenario_results (run_id, scenario_key, degree, seed, iterations, fingerprint, midpoints, mean, std_dev, created_at)
		VALUES (:run_id, :scenario_key, :degree, :seed, :iterations, :fingerprint, :midpoints, :mean, :std_dev, :created_at)
	`, row)
	if err != nil {
		return errors.DatabaseError("failed to insert scenario result", err)
	}
	return nil
}

// SaveDominance stores a dominance result; the full result is kept as JSON
func (r *ResultRepository) SaveDominance(ctx context.Context, runID core.RunID, key string, result *dominance.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "failed to encode dominance result")
	}
	row := dominanceRow{
		RunID:         runID.String(),
		Key:           key,
		Statistic:     result.Statistic,
		CriticalValue: result.CriticalValue,
		Reject:        result.Reject,
		Direction:     string(result.Direction),
		Result:        string(payload),
		CreatedAt:     r.now(),
	}
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO dominance_results (run_id, comparison_key, statistic, critical_value, reject, direction, result, created_at)
		VALUES (:run_id, :comparison_key, :statistic, :critical_value, :reject, :direction, :result, :created_at)
	`, row)
	if err != nil {
		return errors.DatabaseError("failed to insert dominance result", err)
	}
	return nil
}

// ListScenarios returns the scenario summaries of a run ordered by key
func (r *ResultRepository) ListScenarios(ctx context.Context, runID core.RunID) ([]ports.ScenarioRecord, error) {
	var rows []scenarioRow
	query := r.db.Rebind(`
		SELECT run_id, scenario_key, degree, seed, iterations, fingerprint, midpoints, mean, std_dev, created_at
		FROM scenario_results
		WHERE run_id = ?
		ORDER BY scenario_key
	`)
	if err := r.db.SelectContext(ctx, &rows, query, runID.String()); err != nil {
		return nil, errors.DatabaseError("failed to list scenario results", err)
	}

	records := make([]ports.ScenarioRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, ports.ScenarioRecord{
			RunID:       core.RunID(row.RunID),
			Key:         row.Key,
			Degree:      row.Degree,
			Seed:        row.Seed,
			Iterations:  row.Iterations,
			Fingerprint: core.Hash(row.Fingerprint),
			Midpoints:   row.Midpoints,
			Mean:        row.Mean,
			StdDev:      row.StdDev,
			CreatedAt:   row.CreatedAt,
		})
	}
	return records, nil
}

// ListDominance returns the dominance results of a run ordered by key
func (r *ResultRepository) ListDominance(ctx context.Context, runID core.RunID) ([]ports.DominanceRecord, error) {
	var rows []dominanceRow
	query := r.db.Rebind(`
		SELECT run_id, comparison_key, statistic, critical_value, reject, direction, result, created_at
		FROM dominance_results
		WHERE run_id = ?
		ORDER BY comparison_key
	`)
	if err := r.db.SelectContext(ctx, &rows, query, runID.String()); err != nil {
		return nil, errors.DatabaseError("failed to list dominance results", err)
	}

	records := make([]ports.DominanceRecord, 0, len(rows))
	for _, row := range rows {
		var result dominance.Result
		if err := json.Unmarshal([]byte(row.Result), &result); err != nil {
			return nil, errors.DatabaseError("failed to decode dominance result "+row.Key, err)
		}
		records = append(records, ports.DominanceRecord{
			RunID:     core.RunID(row.RunID),
			Key:       row.Key,
			Result:    result,
			CreatedAt: row.CreatedAt,
		})
	}
	return records, nil
}
