package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"caissa-analytics/internal/analysis"
	"caissa-analytics/internal/config"
	"caissa-analytics/internal/database"
	"caissa-analytics/internal/domain"
	"caissa-analytics/internal/queue"
	"caissa-analytics/internal/repository"
	"caissa-analytics/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDetector struct {
	calls int
}

func (d *stubDetector) Detect(pgn string) ([]analysis.MistakeCandidate, error) {
	d.calls++
	return nil, nil
}

type stubAnnotator struct{}

func (stubAnnotator) Annotate(ctx context.Context, mistakes []domain.Mistake) []string {
	results := make([]string, len(mistakes))
	for i := range results {
		results[i] = "stub commentary"
	}
	return results
}

type fixture struct {
	svc      *service.AnalysisService
	queue    *queue.Memory
	detector *stubDetector
	handler  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.New(&config.Config{DBPath: filepath.Join(t.TempDir(), "test.db")}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	detector := &stubDetector{}
	svc := service.NewAnalysisService(
		repository.NewGameRepository(db, zerolog.Nop()),
		repository.NewMistakeRepository(db, zerolog.Nop()),
		detector,
		stubAnnotator{},
		zerolog.Nop(),
	)

	q := queue.NewMemory()
	srv := New(svc, q, &config.Config{MaxPGNsPerRequest: 100}, zerolog.Nop())

	mux := http.NewServeMux()
	srv.Register(mux)

	return &fixture{svc: svc, queue: q, detector: detector, handler: mux}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeAcceptsAndEnqueues(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/analyze", `{"pgns":["1. e4 e5 *","1. d4 d5 *"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp analyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, 2, resp.GamesCount)
	require.Len(t, resp.GameIDs, 2)
	assert.Equal(t, "Analysis started. Use game IDs to track progress.", resp.Message)

	assert.Equal(t, 2, f.queue.Len())
	for _, want := range resp.GameIDs {
		got, err := f.queue.Dequeue(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	games, err := f.svc.ListGames(context.Background())
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, domain.StatusPending, games[0].Status)
}

func TestAnalyzeRejectsEmptyList(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/analyze", `{"pgns":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, f.queue.Len())
}

func TestAnalyzeRejectsMalformedBody(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/analyze", `{"pgns":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeRejectsOversizedBatchAtomically(t *testing.T) {
	f := newFixture(t)

	pgns := make([]string, 101)
	for i := range pgns {
		pgns[i] = "1. e4 e5 *"
	}
	body, err := json.Marshal(analyzeRequest{PGNs: pgns})
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/api/analyze", string(body))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "101")
	assert.Contains(t, resp.Error, "100")

	// The cap check runs before any record exists, so nothing is persisted
	// or queued.
	games, err := f.svc.ListGames(context.Background())
	require.NoError(t, err)
	assert.Empty(t, games)
	assert.Equal(t, 0, f.queue.Len())
	assert.Zero(t, f.detector.calls)
}

func TestGetGame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ids, err := f.svc.CreateGames(ctx, []string{"1. e4 e5 *"})
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/api/games/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp gameResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ids[0], resp.ID)
	assert.Equal(t, "1. e4 e5 *", resp.PGN)
	assert.Equal(t, string(domain.StatusPending), resp.Status)
	assert.NotEmpty(t, resp.CreatedAt)
	assert.Empty(t, resp.Mistakes)
}

func TestListGames(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateGames(context.Background(), []string{"1. e4 e5 *", "1. d4 d5 *"})
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/api/games", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []gameResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestGameStatusReflectsPipeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ids, err := f.svc.CreateGames(ctx, []string{"1. e4 e5 *"})
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/api/games/1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ids[0], resp.GameID)
	assert.Equal(t, string(domain.StatusPending), resp.Status)
	assert.Zero(t, resp.MistakesCount)

	require.NoError(t, f.svc.ProcessGame(ctx, ids[0]))

	rec = f.do(t, http.MethodGet, "/api/games/1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(domain.StatusCompleted), resp.Status)
}

func TestNotFoundResponses(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/games/9999", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/games/9999/status", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/games/abc", "").Code)
}
