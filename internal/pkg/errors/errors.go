package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalid      = errors.New("invalid")
	ErrOutOfRange   = errors.New("index out of range")
	ErrBadEnvelope  = errors.New("bad envelope")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsOutOfRange(err error) bool {
	return errors.Is(err, ErrOutOfRange)
}
