package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/municipal-requests/internal/domain"
)

// DistrictRepository reads reference data for districts.
type DistrictRepository interface {
	GetByID(ctx context.Context, id string) (*domain.District, error)
	List(ctx context.Context) ([]domain.District, error)
}

type districtRepository struct {
	pool *pgxpool.Pool
}

// NewDistrictRepository instantiates repository.
func NewDistrictRepository(pool *pgxpool.Pool) DistrictRepository {
	return &districtRepository{pool: pool}
}

func (r *districtRepository) GetByID(ctx context.Context, id string) (*domain.District, error) {
	const query = `SELECT id, municipality_id, name, created_at FROM districts WHERE id=$1`
	var district domain.District
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&district.ID,
		&district.MunicipalityID,
		&district.Name,
		&district.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &district, nil
}

func (r *districtRepository) List(ctx context.Context) ([]domain.District, error) {
	const query = `SELECT id, municipality_id, name, created_at FROM districts ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.District
	for rows.Next() {
		var district domain.District
		if err := rows.Scan(
			&district.ID,
			&district.MunicipalityID,
			&district.Name,
			&district.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, district)
	}
	return result, rows.Err()
}
