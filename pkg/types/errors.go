package types

import "errors"

// Repository operation errors.
var (
	ErrNotFound        = errors.New("entity not found")
	ErrPaperNotFound   = errors.New("paper not found")
	ErrInvalidID       = errors.New("invalid entity ID")
	ErrInvalidData     = errors.New("invalid entity data")
	ErrInvalidSelector = errors.New("paper selector must set exactly one of arxiv_id, s2_id")
	ErrUnknownDialect  = errors.New("unknown SQL dialect")
)
