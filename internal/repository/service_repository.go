package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mariiahub/booking-core/internal/booking"
	"github.com/mariiahub/booking-core/internal/model"
)

// ServiceRepo provides read access to the services table.  It is the
// database-backed implementation of the catalog collaborator the
// evaluator consults for capacity and group rules.
type ServiceRepo struct {
	db *sql.DB
}

// NewServiceRepo returns a ServiceRepo bound to the provided database.
func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{db: db} }

const serviceColumns = `id, name, category, duration_min, capacity, group_allowed,
        max_group_size, base_price_cents, active, created_at, updated_at`

func scanService(row interface{ Scan(...any) error }) (*model.Service, error) {
	var s model.Service
	err := row.Scan(&s.ID, &s.Name, &s.Category, &s.DurationMin, &s.Capacity,
		&s.GroupAllowed, &s.MaxGroupSize, &s.BasePriceCents, &s.Active,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetService returns the service definition by id, or
// booking.ErrServiceNotFound.  Inactive services are returned as-is;
// the evaluator decides what inactivity means per flow.
func (r *ServiceRepo) GetService(ctx context.Context, serviceID uint64) (*model.Service, error) {
	const query = `SELECT ` + serviceColumns + ` FROM services WHERE id = ?`
	s, err := scanService(q(ctx, r.db).QueryRowContext(ctx, query, serviceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrServiceNotFound
	}
	return s, err
}

// ListActive returns every active service, for the public catalog
// endpoint.
func (r *ServiceRepo) ListActive(ctx context.Context) ([]*model.Service, error) {
	const query = `SELECT ` + serviceColumns + ` FROM services WHERE active = TRUE ORDER BY category, name`
	rows, err := q(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
