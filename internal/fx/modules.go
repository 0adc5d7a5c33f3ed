package fx

import (
	"caissa-analytics/internal/analysis"
	"caissa-analytics/internal/commentary"
	"caissa-analytics/internal/config"
	"caissa-analytics/internal/database"
	"caissa-analytics/internal/engine"
	"caissa-analytics/internal/logger"
	"caissa-analytics/internal/queue"
	"caissa-analytics/internal/repository"
	"caissa-analytics/internal/server"
	"caissa-analytics/internal/service"
	"caissa-analytics/internal/worker"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideEvaluatorFactory(f *engine.Factory) analysis.EvaluatorFactory {
	return f
}

func ProvideDetector(engines analysis.EvaluatorFactory, cfg *config.Config, log zerolog.Logger) *analysis.Detector {
	return analysis.NewDetector(engines, cfg.MistakeThreshold, log)
}

func ProvideGenerator(c *commentary.Client) commentary.Generator {
	return c
}

func ProvideMistakeDetector(d *analysis.Detector) service.MistakeDetector {
	return d
}

func ProvideAnnotator(b *commentary.Batcher) service.CommentaryAnnotator {
	return b
}

func ProvideProcessor(s *service.AnalysisService) worker.GameProcessor {
	return s
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewGameRepository),
	fx.Provide(repository.NewMistakeRepository),
	// engine + detector
	fx.Provide(engine.NewFactory),
	fx.Provide(ProvideEvaluatorFactory),
	fx.Provide(ProvideDetector),
	fx.Provide(ProvideMistakeDetector),
	// commentary
	fx.Provide(commentary.NewClient),
	fx.Provide(ProvideGenerator),
	fx.Provide(commentary.NewBatcher),
	fx.Provide(ProvideAnnotator),
	// pipeline
	fx.Provide(service.NewAnalysisService),
	fx.Provide(queue.NewMemory),
	fx.Provide(ProvideProcessor),
	fx.Provide(worker.New),
	// server
	fx.Provide(server.New),
)
