package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrUnknownToken       = errors.New("token does not belong to market position")
	ErrInvalidSignal      = errors.New("invalid signal parameters")
	ErrReconnectExhausted = errors.New("websocket reconnect attempts exhausted")
	ErrUnknownStrategy    = errors.New("unknown strategy kind")
)
