package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CounterRepository атомарные счётчики для выдачи числовых ID
type CounterRepository struct {
	pool *pgxpool.Pool
}

func NewCounterRepository(pool *pgxpool.Pool) *CounterRepository {
	return &CounterRepository{pool: pool}
}

// NextID увеличивает счётчик и возвращает новое значение
func (r *CounterRepository) NextID(ctx context.Context, name string) (int64, error) {
	query := `
		INSERT INTO counters (name, seq) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET seq = counters.seq + 1
		RETURNING seq
	`

	var seq int64
	if err := r.pool.QueryRow(ctx, query, name).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next id for %s: %w", name, err)
	}

	return seq, nil
}
