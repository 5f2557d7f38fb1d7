package world

import "errors"

var (
	ErrActorNotFound = errors.New("actor not found")
	ErrActorExists   = errors.New("actor already exists")
)
