package analysis

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"
	"github.com/rs/zerolog"
)

// Evaluator scores a single position, in centipawns from White's perspective.
type Evaluator interface {
	Evaluate(fen string) (int, error)
	Close() error
}

// EvaluatorFactory opens a fresh engine handle. The detector acquires one per
// game so the engine setup cost is amortized over the whole move list.
type EvaluatorFactory interface {
	New() (Evaluator, error)
}

// MistakeCandidate is one move whose evaluation dropped, from the mover's
// perspective, by at least the detector threshold. MoveNumber is a 1-based
// ply counter.
type MistakeCandidate struct {
	MoveNumber int
	MoveSAN    string
	EvalBefore int
	EvalAfter  int
	EvalDrop   int
	FENBefore  string
}

type Detector struct {
	engines   EvaluatorFactory
	threshold int
	logger    zerolog.Logger
}

func NewDetector(engines EvaluatorFactory, threshold int, logger zerolog.Logger) *Detector {
	return &Detector{
		engines:   engines,
		threshold: threshold,
		logger:    logger,
	}
}

// Detect replays a PGN through the engine and returns the mistakes in move
// order. A record that cannot be parsed yields an empty result and no error;
// an engine failure mid-game discards any partial findings and returns the
// error.
func (d *Detector) Detect(pgnText string) ([]MistakeCandidate, error) {
	pgnOpt, err := chess.PGN(strings.NewReader(pgnText))
	if err != nil {
		d.logger.Warn().Err(err).Msg("unparseable PGN, skipping analysis")
		return nil, nil
	}

	game := chess.NewGame(pgnOpt)
	moves := game.Moves()
	if len(moves) == 0 {
		return nil, nil
	}

	evaluator, err := d.engines.New()
	if err != nil {
		return nil, fmt.Errorf("acquire evaluator: %w", err)
	}
	defer evaluator.Close()

	positions := game.Positions()
	notation := chess.AlgebraicNotation{}

	var mistakes []MistakeCandidate
	for i, move := range moves {
		before := positions[i]
		after := positions[i+1]

		fenBefore := before.String()
		evalBefore, err := evaluator.Evaluate(fenBefore)
		if err != nil {
			return nil, fmt.Errorf("evaluate ply %d: %w", i+1, err)
		}

		evalAfter, err := evaluator.Evaluate(after.String())
		if err != nil {
			return nil, fmt.Errorf("evaluate ply %d: %w", i+1, err)
		}

		// Evaluations are White-perspective. A positive drop always means
		// the position got worse for the side that just moved.
		drop := evalBefore - evalAfter
		if before.Turn() == chess.Black {
			drop = evalAfter - evalBefore
		}

		if drop >= d.threshold {
			mistakes = append(mistakes, MistakeCandidate{
				MoveNumber: i + 1,
				MoveSAN:    notation.Encode(before, move),
				EvalBefore: evalBefore,
				EvalAfter:  evalAfter,
				EvalDrop:   drop,
				FENBefore:  fenBefore,
			})
		}
	}

	d.logger.Debug().Int("moves", len(moves)).Int("mistakes", len(mistakes)).Msg("game analyzed")
	return mistakes, nil
}
