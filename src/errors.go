package vdl2

import "errors"

var (
	ErrTooShort    = errors.New("too short")
	ErrBadFCS      = errors.New("bad FCS")
	ErrTruncated   = errors.New("truncated")
	ErrBadLength   = errors.New("bad length")
	ErrUnsupported = errors.New("unsupported")
	ErrBadParity   = errors.New("bad parity")
	ErrRSFailed    = errors.New("Reed-Solomon decoding failed")
	ErrStuffing    = errors.New("bit stuffing error")
)
