package protocol

import "errors"

var (
	ErrInvalidMagic       = errors.New("protocol: invalid magic")
	ErrUnsupportedVersion = errors.New("protocol: unsupported version")
	ErrTruncated          = errors.New("protocol: truncated data")
	ErrInvalidLength      = errors.New("protocol: invalid length")
	ErrTooManyRecords     = errors.New("protocol: too many records")
	ErrStringTooLong      = errors.New("protocol: string too long")
	ErrListTooLong        = errors.New("protocol: list too long")
)
