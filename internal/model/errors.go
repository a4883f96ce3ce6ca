package model

import "errors"

// Sentinel errors shared by the review engine.
// Use errors.Is to check: errors.Is(err, model.ErrInvalidInput)
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNoEligibleItems  = errors.New("no eligible items")
	ErrSessionNotActive = errors.New("session not active")
	ErrItemNotInSession = errors.New("item not in session")
	ErrAlreadyAnswered  = errors.New("item already answered")
	ErrNotFound         = errors.New("not found")
)
