package engine

import (
	"fmt"
	"strings"
	"time"

	"caissa-analytics/internal/analysis"
	"caissa-analytics/internal/config"
	"caissa-analytics/internal/constants"

	"github.com/freeeve/uci"
	"github.com/rs/zerolog"
)

// MateScore is the saturated centipawn value used for any mate-distance
// result, regardless of how many moves away the mate is.
const MateScore = 10000

type Options struct {
	Path     string
	Depth    int
	MoveTime time.Duration
}

// Evaluator owns a single Stockfish process. It is not safe for concurrent
// use; callers acquire one per game and must Close it when done.
type Evaluator struct {
	eng    *uci.Engine
	opts   Options
	logger zerolog.Logger
}

func New(opts Options, logger zerolog.Logger) (*Evaluator, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("stockfish path required")
	}
	if opts.Depth <= 0 {
		return nil, fmt.Errorf("stockfish depth must be positive")
	}

	eng, err := uci.NewEngine(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	if err := eng.SetOptions(uci.Options{
		Hash:    constants.EngineHashMB,
		Threads: constants.EngineThreads,
		MultiPV: 1,
		Ponder:  false,
		OwnBook: false,
	}); err != nil {
		eng.Close()
		return nil, fmt.Errorf("set options: %w", err)
	}

	return &Evaluator{eng: eng, opts: opts, logger: logger}, nil
}

// searcher is the slice of the engine protocol Evaluate drives. *uci.Engine
// satisfies it.
type searcher interface {
	SetFEN(fen string) error
	Go(depth int, searchmoves string, movetime int64, resultOpts ...uint) (*uci.Results, error)
	GoDepth(depth int, resultOpts ...uint) (*uci.Results, error)
}

var _ searcher = (*uci.Engine)(nil)

// Evaluate returns the engine's centipawn score for the position, normalized
// to White's perspective. Mate results saturate to ±MateScore.
func (e *Evaluator) Evaluate(fen string) (int, error) {
	return evaluate(e.eng, e.opts, fen)
}

func evaluate(s searcher, opts Options, fen string) (int, error) {
	if err := s.SetFEN(fen); err != nil {
		return 0, fmt.Errorf("set FEN: %w", err)
	}

	var results *uci.Results
	var err error
	if opts.MoveTime > 0 {
		// A movetime bound can stop the search short of the requested
		// depth; HighestDepthOnly keeps only exact-depth results, so no
		// filter is passed and the deepest result is picked below.
		results, err = s.Go(opts.Depth, "", opts.MoveTime.Milliseconds())
	} else {
		results, err = s.GoDepth(opts.Depth, uci.HighestDepthOnly)
	}
	if err != nil {
		return 0, fmt.Errorf("stockfish eval: %w", err)
	}
	if len(results.Results) == 0 {
		return 0, fmt.Errorf("no results from engine")
	}

	return normalizeScore(fen, deepest(results)), nil
}

func deepest(results *uci.Results) uci.ScoreResult {
	best := results.Results[0]
	for _, r := range results.Results {
		if r.Depth > best.Depth {
			best = r
		}
	}
	return best
}

func (e *Evaluator) Close() error {
	if e.eng != nil {
		e.eng.Close()
	}
	return nil
}

// normalizeScore converts a raw engine result to centipawns from White's
// perspective. Stockfish reports scores for the side to move, so scores are
// inverted when Black is on move. Mate distances collapse to ±MateScore.
func normalizeScore(fen string, r uci.ScoreResult) int {
	score := r.Score
	if strings.Contains(fen, " b ") {
		score = -score
	}

	if r.Mate {
		if score > 0 {
			return MateScore
		}
		return -MateScore
	}
	return score
}

// Factory builds one Evaluator per analyzed game from the process-wide
// engine configuration.
type Factory struct {
	opts   Options
	logger zerolog.Logger
}

func NewFactory(cfg *config.Config, logger zerolog.Logger) *Factory {
	return &Factory{
		opts: Options{
			Path:     cfg.StockfishPath,
			Depth:    cfg.StockfishDepth,
			MoveTime: cfg.StockfishMoveTime,
		},
		logger: logger,
	}
}

func (f *Factory) New() (analysis.Evaluator, error) {
	return New(f.opts, f.logger)
}
