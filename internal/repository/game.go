package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"caissa-analytics/internal/domain"

	"github.com/rs/zerolog"
)

var ErrGameNotFound = errors.New("game not found")

type GameRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewGameRepository(sqlDB *sql.DB, logger zerolog.Logger) *GameRepository {
	return &GameRepository{
		db:     sqlDB,
		logger: logger,
	}
}

func (r *GameRepository) Create(ctx context.Context, pgn string) (int64, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO games (pgn, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		pgn, domain.StatusPending, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert game: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted game id: %w", err)
	}
	return id, nil
}

func (r *GameRepository) Get(ctx context.Context, id int64) (*domain.Game, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, pgn, status, created_at, updated_at FROM games WHERE id = ?`, id)

	var game domain.Game
	err := row.Scan(&game.ID, &game.PGN, &game.Status, &game.CreatedAt, &game.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game %d: %w", id, err)
	}
	return &game, nil
}

func (r *GameRepository) List(ctx context.Context) ([]domain.Game, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, pgn, status, created_at, updated_at FROM games ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	games := []domain.Game{}
	for rows.Next() {
		var game domain.Game
		if err := rows.Scan(&game.ID, &game.PGN, &game.Status, &game.CreatedAt, &game.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}
	return games, rows.Err()
}

func (r *GameRepository) UpdateStatus(ctx context.Context, id int64, status domain.AnalysisStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE games SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update game %d status: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check status update for game %d: %w", id, err)
	}
	if affected == 0 {
		return ErrGameNotFound
	}

	r.logger.Debug().Int64("game_id", id).Str("status", string(status)).Msg("game status updated")
	return nil
}
