package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cpsu-health/clinicai/internal/domain/model"
	"github.com/cpsu-health/clinicai/internal/domain/port/outbound"
)

// UsageRepo implements outbound.UsageRecorder, keeping one row per provider
// attempt or fallback.
type UsageRepo struct {
	db *sql.DB
}

var _ outbound.UsageRecorder = (*UsageRepo)(nil)

func NewUsageRepo(store *Store) *UsageRepo {
	return &UsageRepo{db: store.DB}
}

func (r *UsageRepo) Record(ctx context.Context, e model.ProviderEvent) error {
	const q = `INSERT INTO provider_events
		(id, operation, provider, outcome, reason, latency_ms, created_at)
		VALUES (?,?,?,?,?,?,?)`

	_, err := r.db.ExecContext(ctx, q,
		e.ID, string(e.Operation), e.Provider, string(e.Outcome),
		e.Reason, e.LatencyMs, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting provider event: %w", err)
	}
	return nil
}

// Summarize counts events grouped by operation, provider and outcome.
func (r *UsageRepo) Summarize(ctx context.Context, filter outbound.UsageFilter) ([]outbound.UsageSummary, error) {
	where, args := buildUsageWhere(filter)
	q := `SELECT operation, provider, outcome, COUNT(*) FROM provider_events` + where +
		` GROUP BY operation, provider, outcome ORDER BY operation, provider, outcome`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("summarizing provider events: %w", err)
	}
	defer rows.Close()

	var out []outbound.UsageSummary
	for rows.Next() {
		var (
			s           outbound.UsageSummary
			op, outcome string
		)
		if err := rows.Scan(&op, &s.Provider, &outcome, &s.Count); err != nil {
			return nil, fmt.Errorf("scanning usage summary: %w", err)
		}
		s.Operation = model.Operation(op)
		s.Outcome = model.EventOutcome(outcome)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating usage summary: %w", err)
	}
	return out, nil
}

func buildUsageWhere(f outbound.UsageFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Operation != "" {
		clauses = append(clauses, "operation = ?")
		args = append(args, string(f.Operation))
	}
	if f.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.Since.UTC())
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
