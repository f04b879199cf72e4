package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/municipal-requests/internal/domain"
)

// RequestUpdateRepository stores the append-only audit trail of a
// request. Entries are never mutated or deleted.
type RequestUpdateRepository interface {
	Create(ctx context.Context, update *domain.RequestUpdate) error
	ListByRequest(ctx context.Context, requestID string, includeInternal bool) ([]domain.RequestUpdate, error)
}

type requestUpdateRepository struct {
	pool *pgxpool.Pool
}

// NewRequestUpdateRepository builds repository.
func NewRequestUpdateRepository(pool *pgxpool.Pool) RequestUpdateRepository {
	return &requestUpdateRepository{pool: pool}
}

func (r *requestUpdateRepository) Create(ctx context.Context, update *domain.RequestUpdate) error {
	const query = `
        INSERT INTO request_updates (id, request_id, actor_user_id, actor_name, message,
            from_status, to_status, from_priority, to_priority, is_auto_escalation, is_internal, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.pool.Exec(ctx, query,
		update.ID,
		update.RequestID,
		update.ActorUserID,
		update.ActorName,
		update.Message,
		update.FromStatus,
		update.ToStatus,
		update.FromPriority,
		update.ToPriority,
		update.IsAutoEscalation,
		update.IsInternal,
		update.CreatedAt,
	)
	return err
}

func (r *requestUpdateRepository) ListByRequest(ctx context.Context, requestID string, includeInternal bool) ([]domain.RequestUpdate, error) {
	query := `
        SELECT id, request_id, actor_user_id, actor_name, message,
               from_status, to_status, from_priority, to_priority, is_auto_escalation, is_internal, created_at
        FROM request_updates WHERE request_id=$1`
	if !includeInternal {
		query += ` AND is_internal=false`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUpdates(rows)
}

func scanUpdates(rows pgx.Rows) ([]domain.RequestUpdate, error) {
	var result []domain.RequestUpdate
	for rows.Next() {
		var update domain.RequestUpdate
		if err := rows.Scan(
			&update.ID,
			&update.RequestID,
			&update.ActorUserID,
			&update.ActorName,
			&update.Message,
			&update.FromStatus,
			&update.ToStatus,
			&update.FromPriority,
			&update.ToPriority,
			&update.IsAutoEscalation,
			&update.IsInternal,
			&update.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, update)
	}
	return result, rows.Err()
}
