package wire

import "errors"

// Error kinds from the wire contract. ErrNeedMore is not one of them:
// it signals a truncated message to the framer, not a malformed one.
var (
	ErrInvalidFormat   = errors.New("wire: invalid format")
	ErrIntegerOverflow = errors.New("wire: integer overflow")
	ErrInvalidUTF8     = errors.New("wire: invalid utf-8")

	// ErrNeedMore indicates the buffer holds the start of a value but
	// not all of it. The framer should re-arm a read and retry once
	// more bytes arrive; it must never surface this as a client error.
	ErrNeedMore = errors.New("wire: need more data")
)
