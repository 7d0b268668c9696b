package protocol

import "errors"

var (
	ErrMalformed    = errors.New("protocol: malformed message")
	ErrUnknownType  = errors.New("protocol: unknown message type")
	ErrMissingField = errors.New("protocol: missing required field")
)
