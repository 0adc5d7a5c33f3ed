package worker

import (
	"context"

	"caissa-analytics/internal/queue"

	"github.com/rs/zerolog"
)

// GameProcessor runs the analysis pipeline for one game.
type GameProcessor interface {
	ProcessGame(ctx context.Context, gameID int64) error
}

// Worker drains the queue one game at a time. Analysis is strictly
// sequential: the shared engine configuration assumes a single evaluator
// process alive at once.
type Worker struct {
	queue     *queue.Memory
	processor GameProcessor
	logger    zerolog.Logger
}

func New(q *queue.Memory, processor GameProcessor, logger zerolog.Logger) *Worker {
	return &Worker{
		queue:     q,
		processor: processor,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled. A failed game is logged and does not
// stop the loop; failure isolation is per game.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Msg("analysis worker started")

	for {
		gameID, err := w.queue.Dequeue(ctx)
		if err != nil {
			w.logger.Info().Msg("analysis worker stopping")
			return err
		}

		w.logger.Info().Int64("game_id", gameID).Msg("processing game")
		if err := w.processor.ProcessGame(ctx, gameID); err != nil {
			w.logger.Error().Err(err).Int64("game_id", gameID).Msg("game processing failed")
		}
	}
}
