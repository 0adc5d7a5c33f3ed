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

var ErrMistakeNotFound = errors.New("mistake not found")

type MistakeRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMistakeRepository(sqlDB *sql.DB, logger zerolog.Logger) *MistakeRepository {
	return &MistakeRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// InsertBatch stores all mistakes for one game in a single transaction and
// returns them with their assigned IDs, in the input (move) order.
func (r *MistakeRepository) InsertBatch(ctx context.Context, mistakes []domain.Mistake) ([]domain.Mistake, error) {
	if len(mistakes) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	stored := make([]domain.Mistake, len(mistakes))
	for i, m := range mistakes {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO mistakes (game_id, move_number, move_san, eval_before, eval_after, eval_drop, fen_before, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.GameID, m.MoveNumber, m.MoveSAN, m.EvalBefore, m.EvalAfter, m.EvalDrop, m.FENBefore, now,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert mistake at move %d: %w", m.MoveNumber, err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to read inserted mistake id: %w", err)
		}

		m.ID = id
		m.CreatedAt = now
		stored[i] = m
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit mistakes: %w", err)
	}
	return stored, nil
}

func (r *MistakeRepository) ListByGame(ctx context.Context, gameID int64) ([]domain.Mistake, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, game_id, move_number, move_san, eval_before, eval_after, eval_drop, fen_before, commentary, created_at
		 FROM mistakes WHERE game_id = ? ORDER BY move_number`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list mistakes for game %d: %w", gameID, err)
	}
	defer rows.Close()

	mistakes := []domain.Mistake{}
	for rows.Next() {
		var m domain.Mistake
		if err := rows.Scan(&m.ID, &m.GameID, &m.MoveNumber, &m.MoveSAN, &m.EvalBefore,
			&m.EvalAfter, &m.EvalDrop, &m.FENBefore, &m.Commentary, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mistake: %w", err)
		}
		mistakes = append(mistakes, m)
	}
	return mistakes, rows.Err()
}

func (r *MistakeRepository) CountByGame(ctx context.Context, gameID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM mistakes WHERE game_id = ?`, gameID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count mistakes for game %d: %w", gameID, err)
	}
	return count, nil
}

// SetCommentary attaches generated commentary to one mistake. The row is
// re-fetched first so a stale in-memory copy never drives the write.
func (r *MistakeRepository) SetCommentary(ctx context.Context, id int64, commentary string) error {
	var existing int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM mistakes WHERE id = ?`, id).Scan(&existing)
	if err == sql.ErrNoRows {
		return ErrMistakeNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to re-read mistake %d: %w", id, err)
	}

	if _, err := r.db.ExecContext(ctx,
		`UPDATE mistakes SET commentary = ? WHERE id = ?`, commentary, id); err != nil {
		return fmt.Errorf("failed to set commentary on mistake %d: %w", id, err)
	}
	return nil
}
