package commentary

import (
	"context"

	"caissa-analytics/internal/config"
	"caissa-analytics/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Placeholder is attached to every mistake when no API credential is
// configured. Graceful degradation, not an error.
const Placeholder = "OpenAI API key not configured"

// Batcher fans out commentary requests in fixed-size batches. Requests
// within a batch run concurrently; batches run one after another so at most
// batchSize calls are ever in flight.
type Batcher struct {
	gen       Generator
	batchSize int
	logger    zerolog.Logger
}

func NewBatcher(gen Generator, cfg *config.Config, logger zerolog.Logger) *Batcher {
	return &Batcher{
		gen:       gen,
		batchSize: cfg.OpenAIBatchSize,
		logger:    logger,
	}
}

// Annotate returns one commentary string per mistake, in input order. A
// failed request degrades to an error marker at its position; the output
// length always equals the input length.
func (b *Batcher) Annotate(ctx context.Context, mistakes []domain.Mistake) []string {
	if len(mistakes) == 0 {
		return []string{}
	}

	results := make([]string, len(mistakes))

	if !b.gen.Enabled() {
		for i := range results {
			results[i] = Placeholder
		}
		return results
	}

	for start := 0; start < len(mistakes); start += b.batchSize {
		end := start + b.batchSize
		if end > len(mistakes) {
			end = len(mistakes)
		}

		g, gCtx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				text, err := b.gen.Explain(gCtx, mistakes[i])
				if err != nil {
					b.logger.Error().Err(err).
						Int64("game_id", mistakes[i].GameID).
						Int("move_number", mistakes[i].MoveNumber).
						Msg("commentary generation failed")
					results[i] = "Error: " + err.Error()
					return nil
				}
				results[i] = text
				return nil
			})
		}
		// Goroutines convert their own failures to markers, so Wait only
		// gathers the batch before the next one starts.
		_ = g.Wait()
	}

	return results
}
