package apperror

import "errors"

var (
	ErrIllegalMove  = errors.New("illegal move")
	ErrInvalidState = errors.New("move is not allowed in the current game state")
	ErrNoLegalMove  = errors.New("no legal move available")

	ErrUnknownDifficulty = errors.New("unknown difficulty")
	ErrGameNotFound      = errors.New("game not found")
	ErrPlayerNotFound    = errors.New("player not found")
)
