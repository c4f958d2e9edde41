// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors. Decoders wrap them with fmt.Errorf("%w: ...") so callers
// can match with errors.Is and still log the offending values.
var (
	// Header decoding errors
	ErrHeaderLengthInvalid = errors.New("tundecode: header length invalid")
	ErrTotalLengthInvalid  = errors.New("tundecode: total length invalid")
	ErrFrameTruncated      = errors.New("tundecode: frame truncated")
	ErrVersionMismatch     = errors.New("tundecode: ip version mismatch")

	// Source errors
	ErrSourceClosed = errors.New("tundecode: source closed")

	// Configuration errors
	ErrConfigInvalid = errors.New("tundecode: invalid configuration")
)

// ErrorKind returns a short stable name for a decode error, suitable for
// metric labels and log fields.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrHeaderLengthInvalid):
		return "header_length_invalid"
	case errors.Is(err, ErrTotalLengthInvalid):
		return "total_length_invalid"
	case errors.Is(err, ErrFrameTruncated):
		return "frame_truncated"
	case errors.Is(err, ErrVersionMismatch):
		return "version_mismatch"
	default:
		return "other"
	}
}
