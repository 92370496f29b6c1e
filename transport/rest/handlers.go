package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

var errBadRequest = errors.New("bad request")

type gameManager interface {
	GetOrCreatePlayer(ctx context.Context, id string) (*entity.Player, error)
	SetPreferredDifficulty(ctx context.Context, playerID string, difficulty entity.Difficulty) (*entity.Player, error)

	GetOrCreateGame(ctx context.Context, playerID string) (*entity.GameState, error)
	GetGame(ctx context.Context, gameID string) (*entity.GameState, error)
	MakeTurn(ctx context.Context, gameID string, row, col int) (*entity.GameState, error)
	SetDifficulty(ctx context.Context, gameID string, difficulty entity.Difficulty) (*entity.GameState, error)
	Reset(ctx context.Context, gameID string) (*entity.GameState, error)
	EndGame(ctx context.Context, gameID string) error
}

type createGameRequest struct {
	PlayerID string `json:"player_id"`
}

type turnRequest struct {
	Row *int `json:"row"`
	Col *int `json:"col"`
}

type difficultyRequest struct {
	Difficulty string `json:"difficulty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type gameHandler struct {
	logger  *slog.Logger
	manager gameManager
}

func newGameHandler(logger *slog.Logger, manager gameManager) *gameHandler {
	return &gameHandler{
		logger:  logger.With("component", "rest_game_handler"),
		manager: manager,
	}
}

func (that *gameHandler) createPlayer(w http.ResponseWriter, r *http.Request) {
	player, err := that.manager.GetOrCreatePlayer(r.Context(), "")
	if err != nil {
		that.writeError(w, "createPlayer", err)
		return
	}

	that.writeJSON(w, http.StatusCreated, player)
}

// createGame returns the player's unfinished game or starts a new one. A
// difficulty query parameter is stored as the player's preference first.
func (that *gameHandler) createGame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.writeError(w, "createGame", fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	if req.PlayerID == "" {
		that.writeError(w, "createGame", fmt.Errorf("%w: player_id is required", errBadRequest))
		return
	}

	if raw := r.URL.Query().Get("difficulty"); raw != "" {
		difficulty, err := entity.ParseDifficulty(raw)
		if err != nil {
			that.writeError(w, "createGame", err)
			return
		}

		if _, err = that.manager.SetPreferredDifficulty(ctx, req.PlayerID, difficulty); err != nil {
			that.writeError(w, "createGame", err)
			return
		}
	}

	game, err := that.manager.GetOrCreateGame(ctx, req.PlayerID)
	if err != nil {
		that.writeError(w, "createGame", err)
		return
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *gameHandler) getGame(w http.ResponseWriter, r *http.Request) {
	game, err := that.manager.GetGame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		that.writeError(w, "getGame", err)
		return
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *gameHandler) makeTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.writeError(w, "makeTurn", fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	if req.Row == nil || req.Col == nil {
		that.writeError(w, "makeTurn", fmt.Errorf("%w: row and col are required", errBadRequest))
		return
	}

	game, err := that.manager.MakeTurn(r.Context(), chi.URLParam(r, "id"), *req.Row, *req.Col)
	if err != nil {
		that.writeError(w, "makeTurn", err)
		return
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *gameHandler) setDifficulty(w http.ResponseWriter, r *http.Request) {
	var req difficultyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.writeError(w, "setDifficulty", fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	difficulty, err := entity.ParseDifficulty(req.Difficulty)
	if err != nil {
		that.writeError(w, "setDifficulty", err)
		return
	}

	game, err := that.manager.SetDifficulty(r.Context(), chi.URLParam(r, "id"), difficulty)
	if err != nil {
		that.writeError(w, "setDifficulty", err)
		return
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *gameHandler) reset(w http.ResponseWriter, r *http.Request) {
	game, err := that.manager.Reset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		that.writeError(w, "reset", err)
		return
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *gameHandler) endGame(w http.ResponseWriter, r *http.Request) {
	if err := that.manager.EndGame(r.Context(), chi.URLParam(r, "id")); err != nil {
		that.writeError(w, "endGame", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (that *gameHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}

func (that *gameHandler) writeError(w http.ResponseWriter, method string, err error) {
	status := statusFromError(err)

	log := that.logger.With("method", method)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "error", err)
	} else {
		log.Debug("request refused", "error", err)
	}

	that.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, apperror.ErrIllegalMove),
		errors.Is(err, apperror.ErrUnknownDifficulty):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrGameNotFound),
		errors.Is(err, apperror.ErrPlayerNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
