package rank

import "errors"

var (
	ErrInvalidPermission = errors.New("invalid permission")
	ErrInvalidRankId     = errors.New("invalid rank id")
	ErrReservedRank      = errors.New("rank id is reserved")
	ErrImmutableRank     = errors.New("default rank is immutable")
)
