package model

import "errors"

// Sentinel errors shared by the command engine and the stores. Every
// validation failure aborts the whole command with no partial state
// change; all of these are normal, caller-recoverable outcomes.
var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrIncorrectFee          = errors.New("treasury fee must be within 1-10000 basis points")
	ErrNotFound              = errors.New("not found")
	ErrEventExists           = errors.New("event id already in use")
	ErrEventNotStarted       = errors.New("event not started")
	ErrEventExecuted         = errors.New("event already executed")
	ErrEventEnded            = errors.New("event has ended")
	ErrEventEndedAndResolved = errors.New("event has ended and result resolved")
	ErrCannotPredictTwice    = errors.New("cannot predict twice")
	ErrNoBetFound            = errors.New("no bet amount found")
)
