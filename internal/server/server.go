package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"caissa-analytics/internal/config"
	"caissa-analytics/internal/domain"
	"caissa-analytics/internal/queue"
	"caissa-analytics/internal/repository"
	"caissa-analytics/internal/service"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// Server exposes the analysis pipeline over JSON HTTP. Submission enqueues
// work for the background worker; reads go straight to storage so status is
// pollable mid-pipeline.
type Server struct {
	svc     *service.AnalysisService
	queue   *queue.Memory
	maxPGNs int
	logger  zerolog.Logger
}

func New(svc *service.AnalysisService, q *queue.Memory, cfg *config.Config, logger zerolog.Logger) *Server {
	return &Server{
		svc:     svc,
		queue:   q,
		maxPGNs: cfg.MaxPGNsPerRequest,
		logger:  logger,
	}
}

func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/games", s.handleListGames)
	mux.HandleFunc("GET /api/games/{id}", s.handleGetGame)
	mux.HandleFunc("GET /api/games/{id}/status", s.handleGameStatus)
}

type analyzeRequest struct {
	PGNs []string `json:"pgns"`
}

type analyzeResponse struct {
	JobID      string  `json:"job_id"`
	Message    string  `json:"message"`
	GamesCount int     `json:"games_count"`
	GameIDs    []int64 `json:"game_ids"`
}

type mistakeResponse struct {
	ID         int64   `json:"id"`
	MoveNumber int     `json:"move_number"`
	MoveSAN    string  `json:"move_san"`
	EvalBefore int     `json:"eval_before"`
	EvalAfter  int     `json:"eval_after"`
	EvalDrop   int     `json:"eval_drop"`
	FENBefore  string  `json:"fen_before"`
	Commentary *string `json:"commentary"`
	CreatedAt  string  `json:"created_at"`
}

type gameResponse struct {
	ID        int64             `json:"id"`
	PGN       string            `json:"pgn"`
	Status    string            `json:"status"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
	Mistakes  []mistakeResponse `json:"mistakes"`
}

type statusResponse struct {
	GameID        int64  `json:"game_id"`
	Status        string `json:"status"`
	MistakesCount int    `json:"mistakes_count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Submission cap enforced before any game record is created.
	if len(req.PGNs) == 0 {
		writeError(w, http.StatusBadRequest, "pgns must not be empty")
		return
	}
	if len(req.PGNs) > s.maxPGNs {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("too many PGNs: %d exceeds limit of %d", len(req.PGNs), s.maxPGNs))
		return
	}

	ids, err := s.svc.CreateGames(r.Context(), req.PGNs)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create games")
		writeError(w, http.StatusInternalServerError, "failed to create games")
		return
	}

	for _, id := range ids {
		s.queue.Enqueue(id)
	}

	jobID, err := gonanoid.New()
	if err != nil {
		jobID = strconv.FormatInt(time.Now().UnixNano(), 10)
	}

	writeJSON(w, http.StatusAccepted, analyzeResponse{
		JobID:      jobID,
		Message:    "Analysis started. Use game IDs to track progress.",
		GamesCount: len(ids),
		GameIDs:    ids,
	})
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.svc.ListGames(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list games")
		writeError(w, http.StatusInternalServerError, "failed to list games")
		return
	}

	resp := make([]gameResponse, len(games))
	for i, g := range games {
		resp[i] = toGameResponse(g)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id, ok := s.gameID(w, r)
	if !ok {
		return
	}

	game, err := s.svc.GetGameWithMistakes(r.Context(), id)
	if errors.Is(err, repository.ErrGameNotFound) {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("game_id", id).Msg("failed to get game")
		writeError(w, http.StatusInternalServerError, "failed to get game")
		return
	}

	writeJSON(w, http.StatusOK, toGameResponse(*game))
}

func (s *Server) handleGameStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.gameID(w, r)
	if !ok {
		return
	}

	status, count, err := s.svc.GameStatus(r.Context(), id)
	if errors.Is(err, repository.ErrGameNotFound) {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("game_id", id).Msg("failed to get game status")
		writeError(w, http.StatusInternalServerError, "failed to get game status")
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		GameID:        id,
		Status:        string(status),
		MistakesCount: count,
	})
}

func (s *Server) gameID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return 0, false
	}
	return id, true
}

func toGameResponse(g domain.Game) gameResponse {
	mistakes := make([]mistakeResponse, len(g.Mistakes))
	for i, m := range g.Mistakes {
		mistakes[i] = mistakeResponse{
			ID:         m.ID,
			MoveNumber: m.MoveNumber,
			MoveSAN:    m.MoveSAN,
			EvalBefore: m.EvalBefore,
			EvalAfter:  m.EvalAfter,
			EvalDrop:   m.EvalDrop,
			FENBefore:  m.FENBefore,
			Commentary: m.Commentary,
			CreatedAt:  m.CreatedAt.Format(time.RFC3339),
		}
	}

	return gameResponse{
		ID:        g.ID,
		PGN:       g.PGN,
		Status:    string(g.Status),
		CreatedAt: g.CreatedAt.Format(time.RFC3339),
		UpdatedAt: g.UpdatedAt.Format(time.RFC3339),
		Mistakes:  mistakes,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
