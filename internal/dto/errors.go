package dto

import "github.com/rotisserie/eris"

// Sentinel errors shared by the record stores
var (
	ErrRecordNotFound    = eris.New("record not found")
	ErrInvalidTransition = eris.New("invalid status transition")
	ErrInvalidRecord     = eris.New("invalid record")
)
