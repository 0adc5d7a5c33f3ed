package service

import (
	"context"
	"errors"
	"fmt"

	"caissa-analytics/internal/analysis"
	"caissa-analytics/internal/constants"
	"caissa-analytics/internal/domain"
	"caissa-analytics/internal/repository"

	"github.com/rs/zerolog"
)

// MistakeDetector replays a game record and returns mistake candidates in
// move order.
type MistakeDetector interface {
	Detect(pgn string) ([]analysis.MistakeCandidate, error)
}

// CommentaryAnnotator returns one commentary string per mistake, preserving
// input order and length.
type CommentaryAnnotator interface {
	Annotate(ctx context.Context, mistakes []domain.Mistake) []string
}

// AnalysisService drives each game through the
// pending → processing → {completed, failed} lifecycle. It is the sole
// writer of game state; games are processed one at a time.
type AnalysisService struct {
	games     *repository.GameRepository
	mistakes  *repository.MistakeRepository
	detector  MistakeDetector
	annotator CommentaryAnnotator
	logger    zerolog.Logger
}

func NewAnalysisService(
	games *repository.GameRepository,
	mistakes *repository.MistakeRepository,
	detector MistakeDetector,
	annotator CommentaryAnnotator,
	logger zerolog.Logger,
) *AnalysisService {
	return &AnalysisService{
		games:     games,
		mistakes:  mistakes,
		detector:  detector,
		annotator: annotator,
		logger:    logger,
	}
}

// CreateGames stores one pending game per submitted PGN and returns the new
// IDs in submission order.
func (s *AnalysisService) CreateGames(ctx context.Context, pgns []string) ([]int64, error) {
	ids := make([]int64, 0, len(pgns))
	for _, pgn := range pgns {
		id, err := s.games.Create(ctx, pgn)
		if err != nil {
			return nil, fmt.Errorf("failed to create game: %w", err)
		}
		ids = append(ids, id)
	}

	s.logger.Info().Int("count", len(ids)).Msg("games created")
	return ids, nil
}

// ProcessGame runs the full pipeline for one game. Detection failures mark
// the game failed; commentary failures degrade to marker strings and the
// game still completes. Each phase commits before the next begins so status
// polls see progress mid-pipeline.
func (s *AnalysisService) ProcessGame(ctx context.Context, gameID int64) error {
	game, err := s.games.Get(ctx, gameID)
	if errors.Is(err, repository.ErrGameNotFound) {
		s.logger.Warn().Int64("game_id", gameID).Msg("game disappeared before analysis")
		return nil
	}
	if err != nil {
		return err
	}

	// Re-queued duplicates are a no-op once the first run has finished.
	if game.Status.Terminal() {
		s.logger.Debug().Int64("game_id", gameID).Str("status", string(game.Status)).Msg("game already analyzed")
		return nil
	}

	if err := s.games.UpdateStatus(ctx, gameID, domain.StatusProcessing); err != nil {
		return err
	}

	candidates, err := s.detector.Detect(game.PGN)
	if err != nil {
		s.fail(ctx, gameID, err)
		return fmt.Errorf("detection failed for game %d: %w", gameID, err)
	}

	if len(candidates) > 0 {
		toStore := make([]domain.Mistake, len(candidates))
		for i, c := range candidates {
			toStore[i] = domain.Mistake{
				GameID:     gameID,
				MoveNumber: c.MoveNumber,
				MoveSAN:    c.MoveSAN,
				EvalBefore: c.EvalBefore,
				EvalAfter:  c.EvalAfter,
				EvalDrop:   c.EvalDrop,
				FENBefore:  c.FENBefore,
			}
		}

		stored, err := s.mistakes.InsertBatch(ctx, toStore)
		if err != nil {
			s.fail(ctx, gameID, err)
			return fmt.Errorf("failed to store mistakes for game %d: %w", gameID, err)
		}

		annotations := s.annotator.Annotate(ctx, stored)
		for i, m := range stored {
			if err := s.mistakes.SetCommentary(ctx, m.ID, annotations[i]); err != nil {
				s.fail(ctx, gameID, err)
				return fmt.Errorf("failed to attach commentary for game %d: %w", gameID, err)
			}
		}
	}

	if err := s.games.UpdateStatus(ctx, gameID, domain.StatusCompleted); err != nil {
		return err
	}

	s.logger.Info().Int64("game_id", gameID).Int("mistakes", len(candidates)).Msg("game analysis completed")
	return nil
}

// fail uses its own context so the failed status still lands when the
// pipeline context was what got cancelled.
func (s *AnalysisService) fail(_ context.Context, gameID int64, cause error) {
	s.logger.Error().Err(cause).Int64("game_id", gameID).Msg("game analysis failed")

	ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
	defer cancel()
	if err := s.games.UpdateStatus(ctx, gameID, domain.StatusFailed); err != nil {
		s.logger.Error().Err(err).Int64("game_id", gameID).Msg("failed to mark game failed")
	}
}

// GetGameWithMistakes returns a game and its mistakes in move order.
func (s *AnalysisService) GetGameWithMistakes(ctx context.Context, gameID int64) (*domain.Game, error) {
	game, err := s.games.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}

	mistakes, err := s.mistakes.ListByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	game.Mistakes = mistakes
	return game, nil
}

// ListGames returns every game with its mistakes attached.
func (s *AnalysisService) ListGames(ctx context.Context) ([]domain.Game, error) {
	games, err := s.games.List(ctx)
	if err != nil {
		return nil, err
	}

	for i := range games {
		mistakes, err := s.mistakes.ListByGame(ctx, games[i].ID)
		if err != nil {
			return nil, err
		}
		games[i].Mistakes = mistakes
	}
	return games, nil
}

// GameStatus returns the latest committed status and mistake count, designed
// to be polled while the pipeline is running.
func (s *AnalysisService) GameStatus(ctx context.Context, gameID int64) (domain.AnalysisStatus, int, error) {
	game, err := s.games.Get(ctx, gameID)
	if err != nil {
		return "", 0, err
	}

	count, err := s.mistakes.CountByGame(ctx, gameID)
	if err != nil {
		return "", 0, err
	}
	return game.Status, count, nil
}
