// README: Append-only driver status audit log in Postgres.
package driver

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditStore struct {
	db *pgxpool.Pool
}

func NewAuditStore(db *pgxpool.Pool) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Append(ctx context.Context, e AuditEntry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO driver_status_audit (driver_id, unit, active, previous, reason, operator, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.DriverID, e.Unit, e.Active, e.Previous, e.Reason, e.Operator, e.CreatedAt,
	)
	return err
}

func (s *AuditStore) ListByUnit(ctx context.Context, unit string, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, driver_id, unit, active, previous, reason, operator, created_at
		FROM driver_status_audit
		WHERE unit = $1
		ORDER BY created_at DESC
		LIMIT $2`, unit, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.DriverID, &e.Unit, &e.Active, &e.Previous, &e.Reason, &e.Operator, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
