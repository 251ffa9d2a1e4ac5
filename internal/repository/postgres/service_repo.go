package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lemon-sso/internal/model"
)

type ServiceRepository struct {
	pool *pgxpool.Pool
}

func NewServiceRepository(pool *pgxpool.Pool) *ServiceRepository {
	return &ServiceRepository{pool: pool}
}

func (r *ServiceRepository) Create(ctx context.Context, svc model.RegisteredService) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO registered_services (id, name, api_key, created_at) VALUES ($1, $2, $3, $4)`,
		svc.ID, svc.Name, svc.APIKey, svc.CreatedAt)
	if err != nil {
		return fmt.Errorf("create registered service: %w", err)
	}
	return nil
}

func (r *ServiceRepository) FindByAPIKey(ctx context.Context, apiKey string) (model.RegisteredService, error) {
	var svc model.RegisteredService
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, api_key, created_at FROM registered_services WHERE api_key = $1`, apiKey).
		Scan(&svc.ID, &svc.Name, &svc.APIKey, &svc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RegisteredService{}, model.ErrServiceNotFound
	}
	if err != nil {
		return model.RegisteredService{}, fmt.Errorf("find registered service: %w", err)
	}
	svc.CreatedAt = svc.CreatedAt.UTC()
	return svc, nil
}

func (r *ServiceRepository) List(ctx context.Context) ([]model.RegisteredService, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, api_key, created_at FROM registered_services ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list registered services: %w", err)
	}
	defer rows.Close()

	services := make([]model.RegisteredService, 0)
	for rows.Next() {
		var svc model.RegisteredService
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.APIKey, &svc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan registered service: %w", err)
		}
		svc.CreatedAt = svc.CreatedAt.UTC()
		services = append(services, svc)
	}
	return services, rows.Err()
}

func (r *ServiceRepository) Delete(ctx context.Context, id string) (model.RegisteredService, error) {
	var svc model.RegisteredService
	err := r.pool.QueryRow(ctx,
		`DELETE FROM registered_services WHERE id = $1 RETURNING id, name, api_key, created_at`, id).
		Scan(&svc.ID, &svc.Name, &svc.APIKey, &svc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RegisteredService{}, model.ErrServiceNotFound
	}
	if err != nil {
		return model.RegisteredService{}, fmt.Errorf("delete registered service: %w", err)
	}
	return svc, nil
}
