package backup

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgSource reads full table contents row-by-row as JSON so the export format
// stays stable across additive schema changes.
type PgSource struct {
	pool *pgxpool.Pool
}

func NewPgSource(pool *pgxpool.Pool) *PgSource {
	return &PgSource{pool: pool}
}

func (s *PgSource) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{TakenAt: time.Now().UTC()}

	var err error

	snap.Users, err = s.dumpTable(ctx, `SELECT to_jsonb(u) FROM users u ORDER BY id`)
	if err != nil {
		return Snapshot{}, err
	}

	snap.Projects, err = s.dumpTable(ctx, `SELECT to_jsonb(p) FROM projects p ORDER BY id`)
	if err != nil {
		return Snapshot{}, err
	}

	snap.Defects, err = s.dumpTable(ctx, `SELECT to_jsonb(d) FROM defects d ORDER BY id`)
	if err != nil {
		return Snapshot{}, err
	}

	return snap, nil
}

func (s *PgSource) dumpTable(ctx context.Context, query string) ([]json.RawMessage, error) {
	rows, err := s.pool.Query(ctx, query)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := make([]json.RawMessage, 0, 64)

	for rows.Next() {
		var raw json.RawMessage

		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}

		out = append(out, raw)
	}

	return out, rows.Err()
}
