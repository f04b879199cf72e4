package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/municipal-requests/internal/domain"
)

// RequestFilter captures admin search parameters. Scope fields narrow
// results to a municipality or district.
type RequestFilter struct {
	MunicipalityID *string
	DistrictID     *string
	Statuses       []domain.RequestStatus
	Categories     []domain.RequestCategory
	Priorities     []domain.RequestPriority
	AssignedToID   *string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	Limit          int
	Offset         int
}

// RequestRepository encapsulates service request persistence.
type RequestRepository interface {
	Create(ctx context.Context, req *domain.ServiceRequest) error
	Update(ctx context.Context, req *domain.ServiceRequest) error
	GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error)
	GetByTrackingCode(ctx context.Context, code string) (*domain.ServiceRequest, error)
	TrackingCodeExists(ctx context.Context, code string) (bool, error)
	ListWithFilter(ctx context.Context, filter RequestFilter) ([]domain.ServiceRequest, error)
	CountWithFilter(ctx context.Context, filter RequestFilter) (int, error)
	ListOpen(ctx context.Context) ([]domain.ServiceRequest, error)
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository instantiates repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

const requestColumns = `id, tracking_code, municipality_id, district_id, category, priority, status,
       description, address_text, location_lat, location_lng,
       assigned_to_user_id, assigned_to_name, rejection_reason, completion_photo_url,
       is_auto_escalated, priority_escalated_at, sla_deadline, sla_status, sla_breached_at,
       created_at, updated_at, closed_at`

func (r *requestRepository) Create(ctx context.Context, req *domain.ServiceRequest) error {
	const query = `
        INSERT INTO service_requests (id, tracking_code, municipality_id, district_id, category, priority, status,
            description, address_text, location_lat, location_lng,
            assigned_to_user_id, assigned_to_name, rejection_reason, completion_photo_url,
            is_auto_escalated, priority_escalated_at, sla_deadline, sla_status, sla_breached_at,
            created_at, updated_at, closed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`
	_, err := r.pool.Exec(ctx, query,
		req.ID,
		req.TrackingCode,
		req.MunicipalityID,
		req.DistrictID,
		req.Category,
		req.Priority,
		req.Status,
		req.Description,
		req.AddressText,
		req.LocationLat,
		req.LocationLng,
		req.AssignedToUserID,
		req.AssignedToName,
		req.RejectionReason,
		req.CompletionPhotoURL,
		req.IsAutoEscalated,
		req.PriorityEscalatedAt,
		req.SLADeadline,
		nullableStatus(req.SLAStatus),
		req.SLABreachedAt,
		req.CreatedAt,
		req.UpdatedAt,
		req.ClosedAt,
	)
	return err
}

func (r *requestRepository) Update(ctx context.Context, req *domain.ServiceRequest) error {
	const query = `
        UPDATE service_requests SET priority=$1, status=$2, assigned_to_user_id=$3, assigned_to_name=$4,
            rejection_reason=$5, completion_photo_url=$6, is_auto_escalated=$7, priority_escalated_at=$8,
            sla_deadline=$9, sla_status=$10, sla_breached_at=$11, updated_at=$12, closed_at=$13
        WHERE id=$14`
	cmd, err := r.pool.Exec(ctx, query,
		req.Priority,
		req.Status,
		req.AssignedToUserID,
		req.AssignedToName,
		req.RejectionReason,
		req.CompletionPhotoURL,
		req.IsAutoEscalated,
		req.PriorityEscalatedAt,
		req.SLADeadline,
		nullableStatus(req.SLAStatus),
		req.SLABreachedAt,
		req.UpdatedAt,
		req.ClosedAt,
		req.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM service_requests WHERE id=$1`, requestColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *requestRepository) GetByTrackingCode(ctx context.Context, code string) (*domain.ServiceRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM service_requests WHERE tracking_code=$1`, requestColumns)
	return r.fetchSingle(ctx, query, code)
}

func (r *requestRepository) TrackingCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM service_requests WHERE tracking_code=$1)`, code).Scan(&exists)
	return exists, err
}

func (r *requestRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.ServiceRequest, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	return scanRequest(row)
}

func (r *requestRepository) ListWithFilter(ctx context.Context, filter RequestFilter) ([]domain.ServiceRequest, error) {
	clauses, args := buildRequestClauses(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM service_requests WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		requestColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (r *requestRepository) CountWithFilter(ctx context.Context, filter RequestFilter) (int, error) {
	clauses, args := buildRequestClauses(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM service_requests WHERE %s`, strings.Join(clauses, " AND "))

	var total int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *requestRepository) ListOpen(ctx context.Context) ([]domain.ServiceRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM service_requests WHERE status NOT IN ($1,$2) ORDER BY created_at ASC`,
		requestColumns)
	rows, err := r.pool.Query(ctx, query, domain.StatusCompleted, domain.StatusRejected)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func buildRequestClauses(filter RequestFilter) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.MunicipalityID != nil {
		args = append(args, *filter.MunicipalityID)
		clauses = append(clauses, fmt.Sprintf("municipality_id=$%d", len(args)))
	}
	if filter.DistrictID != nil {
		args = append(args, *filter.DistrictID)
		clauses = append(clauses, fmt.Sprintf("district_id=$%d", len(args)))
	}
	if filter.AssignedToID != nil {
		args = append(args, *filter.AssignedToID)
		clauses = append(clauses, fmt.Sprintf("assigned_to_user_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, category := range filter.Categories {
			args = append(args, category)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, priority := range filter.Priorities {
			args = append(args, priority)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	return clauses, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*domain.ServiceRequest, error) {
	var req domain.ServiceRequest
	var slaStatus *string
	if err := row.Scan(
		&req.ID,
		&req.TrackingCode,
		&req.MunicipalityID,
		&req.DistrictID,
		&req.Category,
		&req.Priority,
		&req.Status,
		&req.Description,
		&req.AddressText,
		&req.LocationLat,
		&req.LocationLng,
		&req.AssignedToUserID,
		&req.AssignedToName,
		&req.RejectionReason,
		&req.CompletionPhotoURL,
		&req.IsAutoEscalated,
		&req.PriorityEscalatedAt,
		&req.SLADeadline,
		&slaStatus,
		&req.SLABreachedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.ClosedAt,
	); err != nil {
		return nil, err
	}
	if slaStatus != nil {
		req.SLAStatus = domain.SLAStatus(*slaStatus)
	}
	return &req, nil
}

func scanRequests(rows pgx.Rows) ([]domain.ServiceRequest, error) {
	var result []domain.ServiceRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

func nullableStatus(status domain.SLAStatus) *string {
	if status == "" {
		return nil
	}
	s := string(status)
	return &s
}
