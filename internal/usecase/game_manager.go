package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
	"github.com/rocketscienceinc/tictactoe-bot/internal/tictactoe"
)

const (
	botMoveTimeout   = 5 * time.Second
	botRetryDelay    = time.Second
	subscriberBuffer = 8
)

var ErrManagerClosed = errors.New("game manager is closed")

type playerRepo interface {
	CreateOrUpdate(ctx context.Context, player *entity.Player) error
	GetByID(ctx context.Context, id string) (*entity.Player, error)
}

type gameRepo interface {
	CreateOrUpdate(ctx context.Context, game *entity.GameState) error
	GetByID(ctx context.Context, id string) (*entity.GameState, error)
	DeleteByID(ctx context.Context, id string) error
}

type pendingMove struct {
	timer      *time.Timer
	generation uint64
}

type subscriber struct {
	ch        chan entity.GameState
	done      chan struct{}
	closeOnce sync.Once
}

func (that *subscriber) close() {
	that.closeOnce.Do(func() {
		close(that.ch)
		close(that.done)
	})
}

// GameManager runs games against the bot. All operations are serialised by
// one mutex, so a game is never loaded and saved by two callers at once.
type GameManager struct {
	logger     *slog.Logger
	playerRepo playerRepo
	gameRepo   gameRepo
	selector   tictactoe.MoveSelector

	botDelay          time.Duration
	retryDelay        time.Duration
	defaultDifficulty entity.Difficulty

	mu      sync.Mutex
	closed  bool
	pending map[string]pendingMove
	subs    map[string]map[*subscriber]struct{}
}

func NewGameManager(
	logger *slog.Logger,
	playerRepo playerRepo,
	gameRepo gameRepo,
	selector tictactoe.MoveSelector,
	botDelay time.Duration,
	defaultDifficulty entity.Difficulty,
) *GameManager {
	if !defaultDifficulty.IsValid() {
		defaultDifficulty = entity.DefaultDifficulty
	}

	return &GameManager{
		logger: logger.With("component", "game_manager"),

		playerRepo: playerRepo,
		gameRepo:   gameRepo,
		selector:   selector,

		botDelay:          botDelay,
		retryDelay:        botRetryDelay,
		defaultDifficulty: defaultDifficulty,

		pending: make(map[string]pendingMove),
		subs:    make(map[string]map[*subscriber]struct{}),
	}
}

// GetOrCreatePlayer creates a player with a fresh id when id is empty.
func (that *GameManager) GetOrCreatePlayer(ctx context.Context, id string) (*entity.Player, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if id == "" {
		player := &entity.Player{
			ID:         uuid.NewString(),
			Difficulty: that.defaultDifficulty,
		}

		if err := that.playerRepo.CreateOrUpdate(ctx, player); err != nil {
			return nil, fmt.Errorf("failed to create player: %w", err)
		}

		return player, nil
	}

	player, err := that.playerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	return player, nil
}

// SetPreferredDifficulty stores the difficulty used for the player's next games.
func (that *GameManager) SetPreferredDifficulty(ctx context.Context, playerID string, difficulty entity.Difficulty) (*entity.Player, error) {
	if !difficulty.IsValid() {
		return nil, fmt.Errorf("%w: %q", apperror.ErrUnknownDifficulty, difficulty)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	player, err := that.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	player.Difficulty = difficulty
	if err = that.playerRepo.CreateOrUpdate(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}

	return player, nil
}

// GetOrCreateGame returns the player's unfinished game or starts a new one
// with the player's preferred difficulty.
func (that *GameManager) GetOrCreateGame(ctx context.Context, playerID string) (*entity.GameState, error) {
	log := that.logger.With("method", "GetOrCreateGame", "playerID", playerID)

	that.mu.Lock()
	defer that.mu.Unlock()

	player, err := that.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	if player.GameID != "" {
		existingGame, err := that.gameRepo.GetByID(ctx, player.GameID)
		switch {
		case err == nil && !existingGame.IsFinished():
			return existingGame, nil
		case err == nil:
			that.deleteGameLocked(ctx, existingGame.ID)
		case !errors.Is(err, apperror.ErrGameNotFound):
			return nil, fmt.Errorf("failed to get game: %w", err)
		}
	}

	game := tictactoe.NewGame(uuid.NewString(), player.PreferredDifficulty())
	game.PlayerID = player.ID

	if err = that.gameRepo.CreateOrUpdate(ctx, &game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	player.GameID = game.ID
	if err = that.playerRepo.CreateOrUpdate(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}

	log.Info("game created", "gameID", game.ID, "difficulty", game.Difficulty)

	return &game, nil
}

func (that *GameManager) GetGame(ctx context.Context, gameID string) (*entity.GameState, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, err := that.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

// MakeTurn applies the human move. With a zero bot delay the returned state
// already contains the bot's answer; otherwise the answer is scheduled and
// announced to subscribers when it is applied. A bot move that cannot be
// saved is retried later, the human move stays accepted.
func (that *GameManager) MakeTurn(ctx context.Context, gameID string, row, col int) (*entity.GameState, error) {
	log := that.logger.With("method", "MakeTurn", "gameID", gameID)

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return nil, ErrManagerClosed
	}

	game, err := that.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	next, err := tictactoe.ApplyHumanMove(*game, row, col)
	if err != nil {
		return game, fmt.Errorf("failed to make turn: %w", err)
	}

	if err = that.saveLocked(ctx, next); err != nil {
		return nil, err
	}

	log.Debug("human made a turn", "row", row, "col", col, "turn", next.Turn)

	if !next.IsWaitingForBot() {
		return &next, nil
	}

	if that.botDelay > 0 {
		that.scheduleBotMoveLocked(next.ID, next.Generation, that.botDelay)
		return &next, nil
	}

	afterBot, err := that.applyBotMoveLocked(ctx, next)
	if err != nil {
		log.Warn("bot move failed, retrying later", "error", err)
		that.scheduleBotMoveLocked(next.ID, next.Generation, that.retryDelay)

		return &next, nil
	}

	return &afterBot, nil
}

// SetDifficulty changes the game's difficulty and remembers it for the
// game's player. A pending bot move picks up the new value.
func (that *GameManager) SetDifficulty(ctx context.Context, gameID string, difficulty entity.Difficulty) (*entity.GameState, error) {
	if !difficulty.IsValid() {
		return nil, fmt.Errorf("%w: %q", apperror.ErrUnknownDifficulty, difficulty)
	}

	log := that.logger.With("method", "SetDifficulty", "gameID", gameID)

	that.mu.Lock()
	defer that.mu.Unlock()

	game, err := that.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	next := tictactoe.SetDifficulty(*game, difficulty)
	if err = that.saveLocked(ctx, next); err != nil {
		return nil, err
	}

	if next.PlayerID != "" {
		if err = that.rememberDifficultyLocked(ctx, next.PlayerID, difficulty); err != nil {
			log.Warn("failed to remember difficulty", "playerID", next.PlayerID, "error", err)
		}
	}

	return &next, nil
}

// Reset clears the board and drops any bot move scheduled for the old board.
func (that *GameManager) Reset(ctx context.Context, gameID string) (*entity.GameState, error) {
	log := that.logger.With("method", "Reset", "gameID", gameID)

	that.mu.Lock()
	defer that.mu.Unlock()

	game, err := that.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	that.cancelPendingLocked(gameID)

	next := tictactoe.Reset(*game)
	if err = that.saveLocked(ctx, next); err != nil {
		return nil, err
	}

	log.Info("game reset", "generation", next.Generation)

	return &next, nil
}

// EndGame removes the game and unlinks its player.
func (that *GameManager) EndGame(ctx context.Context, gameID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, err := that.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return fmt.Errorf("failed to get game: %w", err)
	}

	that.deleteGameLocked(ctx, game.ID)

	if game.PlayerID == "" {
		return nil
	}

	player, err := that.playerRepo.GetByID(ctx, game.PlayerID)
	if err != nil {
		return fmt.Errorf("failed to get player by id: %w", err)
	}

	if player.GameID == game.ID {
		player.GameID = ""
		if err = that.playerRepo.CreateOrUpdate(ctx, player); err != nil {
			return fmt.Errorf("failed to update player: %w", err)
		}
	}

	return nil
}

// Subscribe delivers every saved state of the game until ctx is done or the
// returned func is called. Subscribers that fall behind are dropped.
func (that *GameManager) Subscribe(ctx context.Context, gameID string) (<-chan entity.GameState, func()) {
	that.mu.Lock()
	defer that.mu.Unlock()

	sub := &subscriber{
		ch:   make(chan entity.GameState, subscriberBuffer),
		done: make(chan struct{}),
	}

	if that.closed {
		sub.close()
		return sub.ch, func() {}
	}

	set := that.subs[gameID]
	if set == nil {
		set = make(map[*subscriber]struct{})
		that.subs[gameID] = set
	}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsubscribe := func() {
		unsubOnce.Do(func() {
			that.mu.Lock()
			that.removeSubscriberLocked(gameID, sub)
			that.mu.Unlock()
		})
	}

	// ends with the subscription however it is removed
	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-sub.done:
		}
	}()

	return sub.ch, unsubscribe
}

// Close stops pending bot moves and ends all subscriptions.
func (that *GameManager) Close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.closed = true

	for gameID := range that.pending {
		that.cancelPendingLocked(gameID)
	}

	for gameID, set := range that.subs {
		for sub := range set {
			sub.close()
		}
		delete(that.subs, gameID)
	}
}

func (that *GameManager) scheduleBotMoveLocked(gameID string, generation uint64, delay time.Duration) {
	that.cancelPendingLocked(gameID)

	timer := time.AfterFunc(delay, func() {
		that.runScheduledBotMove(gameID, generation)
	})

	that.pending[gameID] = pendingMove{timer: timer, generation: generation}
}

// runScheduledBotMove applies a delayed bot move unless the game was reset,
// removed or already moved on since the move was scheduled. Storage failures
// schedule another attempt.
func (that *GameManager) runScheduledBotMove(gameID string, generation uint64) {
	log := that.logger.With("method", "runScheduledBotMove", "gameID", gameID, "generation", generation)

	ctx, cancel := context.WithTimeout(context.Background(), botMoveTimeout)
	defer cancel()

	that.mu.Lock()
	defer that.mu.Unlock()

	if pending, ok := that.pending[gameID]; ok && pending.generation == generation {
		delete(that.pending, gameID)
	}

	if that.closed {
		return
	}

	game, err := that.gameRepo.GetByID(ctx, gameID)
	if errors.Is(err, apperror.ErrGameNotFound) {
		log.Info("dropping bot move", "reason", err)
		return
	}

	if err != nil {
		log.Warn("failed to load game, retrying bot move", "error", err)
		that.scheduleBotMoveLocked(gameID, generation, that.retryDelay)
		return
	}

	if game.Generation != generation || !game.IsWaitingForBot() {
		log.Info("dropping stale bot move", "currentGeneration", game.Generation, "turn", game.Turn)
		return
	}

	_, err = that.applyBotMoveLocked(ctx, *game)
	switch {
	case err == nil:
	case isRuleViolation(err):
		log.Error("bot failed to make turn", "error", err)
	default:
		log.Warn("failed to save bot move, retrying", "error", err)
		that.scheduleBotMoveLocked(gameID, generation, that.retryDelay)
	}
}

// isRuleViolation reports errors that another attempt cannot fix.
func isRuleViolation(err error) bool {
	return errors.Is(err, apperror.ErrNoLegalMove) ||
		errors.Is(err, apperror.ErrInvalidState) ||
		errors.Is(err, apperror.ErrIllegalMove) ||
		errors.Is(err, apperror.ErrUnknownDifficulty)
}

func (that *GameManager) applyBotMoveLocked(ctx context.Context, game entity.GameState) (entity.GameState, error) {
	next, err := tictactoe.ApplyBotMove(game, that.selector)
	if err != nil {
		return game, fmt.Errorf("bot failed to make turn: %w", err)
	}

	if err = that.saveLocked(ctx, next); err != nil {
		return game, err
	}

	that.logger.Debug("bot made a turn", "gameID", next.ID, "difficulty", next.Difficulty, "turn", next.Turn)

	return next, nil
}

func (that *GameManager) saveLocked(ctx context.Context, game entity.GameState) error {
	if err := that.gameRepo.CreateOrUpdate(ctx, &game); err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}

	that.publishLocked(game)

	return nil
}

func (that *GameManager) publishLocked(game entity.GameState) {
	for sub := range that.subs[game.ID] {
		select {
		case sub.ch <- game:
		default:
			that.logger.Warn("dropping slow subscriber", "gameID", game.ID)
			that.removeSubscriberLocked(game.ID, sub)
		}
	}
}

func (that *GameManager) removeSubscriberLocked(gameID string, sub *subscriber) {
	if set, ok := that.subs[gameID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(that.subs, gameID)
		}
	}

	sub.close()
}

func (that *GameManager) cancelPendingLocked(gameID string) {
	if pending, ok := that.pending[gameID]; ok {
		pending.timer.Stop()
		delete(that.pending, gameID)
	}
}

func (that *GameManager) rememberDifficultyLocked(ctx context.Context, playerID string, difficulty entity.Difficulty) error {
	player, err := that.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return fmt.Errorf("failed to get player by id: %w", err)
	}

	player.Difficulty = difficulty
	if err = that.playerRepo.CreateOrUpdate(ctx, player); err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}

	return nil
}

func (that *GameManager) deleteGameLocked(ctx context.Context, gameID string) {
	log := that.logger.With("method", "deleteGame", "gameID", gameID)

	that.cancelPendingLocked(gameID)

	if err := that.gameRepo.DeleteByID(ctx, gameID); err != nil {
		log.Error("failed to delete game", "error", err)
	}

	for sub := range that.subs[gameID] {
		that.removeSubscriberLocked(gameID, sub)
	}

	log.Info("game deleted")
}
