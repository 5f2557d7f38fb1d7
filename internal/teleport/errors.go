package teleport

import "errors"

var (
	ErrStaticRecipient = errors.New("recipient cannot be moved")
	ErrSenderOffline   = errors.New("sender is not online")
	ErrRecipientGone   = errors.New("recipient is not resolvable")
	ErrUnknownRequest  = errors.New("no such teleport request")
	ErrSelfRequest     = errors.New("cannot send a teleport request to yourself")
)
