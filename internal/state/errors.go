package state

import "errors"

var (
	ErrDuplicateRank = errors.New("rank already exists")
	ErrUnknownRank   = errors.New("rank doesn't exist")
)
