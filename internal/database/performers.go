package database

import (
	"context"
	"fmt"

	"vitrina/internal/models"
)

const performerColumns = `id, name, price_per_hour, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerformer(row rowScanner) (*models.Performer, error) {
	var p models.Performer
	if err := row.Scan(&p.ID, &p.Name, &p.PricePerHour, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreatePerformer(ctx context.Context, performer *models.Performer) error {
	query := `INSERT INTO performers (name, price_per_hour, is_active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?)`
	ts := now()
	result, err := s.q.ExecContext(ctx, query,
		performer.Name,
		performer.PricePerHour,
		performer.IsActive,
		ts,
		ts,
	)
	if err != nil {
		return fmt.Errorf("failed to create performer: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	performer.ID = id
	performer.CreatedAt = ts
	performer.UpdatedAt = ts
	return nil
}

func (s *Store) GetPerformer(ctx context.Context, id int64) (*models.Performer, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+performerColumns+` FROM performers WHERE id = ?`, id)
	p, err := scanPerformer(row)
	if err != nil {
		return nil, notFound(err, "performer", id)
	}
	return p, nil
}

func (s *Store) ListPerformers(ctx context.Context) ([]*models.Performer, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+performerColumns+` FROM performers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list performers: %w", err)
	}
	defer rows.Close()

	var performers []*models.Performer
	for rows.Next() {
		p, err := scanPerformer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan performer: %w", err)
		}
		performers = append(performers, p)
	}
	return performers, rows.Err()
}

// SyncPerformers приводит таблицу исполнителей к списку из конфигурации:
// новые создаются, существующие (по имени) обновляются.
func (db *DB) SyncPerformers(ctx context.Context, performers []models.Performer) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO performers (name, price_per_hour, is_active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?)
              ON CONFLICT(name) DO UPDATE SET
                  price_per_hour = excluded.price_per_hour,
                  is_active = excluded.is_active,
                  updated_at = excluded.updated_at`
	ts := now()
	for _, p := range performers {
		if _, err := tx.ExecContext(ctx, query, p.Name, p.PricePerHour, p.IsActive, ts, ts); err != nil {
			return fmt.Errorf("failed to sync performer %q: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit performers: %w", err)
	}
	db.logger.Info().Int("count", len(performers)).Msg("Performers synced")
	return nil
}
