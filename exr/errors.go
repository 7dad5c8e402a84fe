package exr

import (
	"errors"
	"fmt"
)

// Code classifies an error into the language-neutral result-code taxonomy:
// input-shape errors (caller bugs), format errors (malformed files), codec
// errors, I/O errors, and resource errors.
type Code int

const (
	CodeOK Code = iota
	CodeInvalidHandle
	CodeInvalidArgument
	CodeInvalidState
	CodeOutOfBounds
	CodeBufferTooSmall
	CodeInvalidMagic
	CodeInvalidVersion
	CodeInvalidData
	CodeMissingAttribute
	CodeUnsupportedFormat
	CodeUnsupportedCompression
	CodeDecompressionFailed
	CodeCompressionFailed
	CodeIO
	CodeFetchFailed
	CodeTimeout
	CodeCancelled
	CodeWouldBlock
	CodeNotReady
	CodeOutOfMemory
	CodeAlreadyInitialized
	CodeNotInitialized
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeInvalidHandle:
		return "invalid-handle"
	case CodeInvalidArgument:
		return "invalid-argument"
	case CodeInvalidState:
		return "invalid-state"
	case CodeOutOfBounds:
		return "out-of-bounds"
	case CodeBufferTooSmall:
		return "buffer-too-small"
	case CodeInvalidMagic:
		return "invalid-magic"
	case CodeInvalidVersion:
		return "invalid-version"
	case CodeInvalidData:
		return "invalid-data"
	case CodeMissingAttribute:
		return "missing-attribute"
	case CodeUnsupportedFormat:
		return "unsupported-format"
	case CodeUnsupportedCompression:
		return "unsupported-compression"
	case CodeDecompressionFailed:
		return "decompression-failed"
	case CodeCompressionFailed:
		return "compression-failed"
	case CodeIO:
		return "io"
	case CodeFetchFailed:
		return "fetch-failed"
	case CodeTimeout:
		return "timeout"
	case CodeCancelled:
		return "cancelled"
	case CodeWouldBlock:
		return "would-block"
	case CodeNotReady:
		return "not-ready"
	case CodeOutOfMemory:
		return "out-of-memory"
	case CodeAlreadyInitialized:
		return "already-initialized"
	case CodeNotInitialized:
		return "not-initialized"
	default:
		return "unknown"
	}
}

// CodedError pairs a result Code with a human-readable message and the
// byte offset at which the problem was detected, mirroring the
// {code, message, context, byte_position} error record shape.
type CodedError struct {
	Code        Code
	Message     string
	Context     string
	BytePosition int64
}

func (e *CodedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("exr: %s: %s (%s, offset %d)", e.Code, e.Message, e.Context, e.BytePosition)
	}
	return fmt.Sprintf("exr: %s: %s", e.Code, e.Message)
}

func newCodedError(code Code, context string, pos int64, format string, args ...any) *CodedError {
	return &CodedError{Code: code, Message: fmt.Sprintf(format, args...), Context: context, BytePosition: pos}
}

// ErrorRing is a bounded ring buffer of the most recent detailed error
// records accumulated by a decoder/encoder context, per §6's "ring buffer
// of up to 16 detailed error records" contract.
type ErrorRing struct {
	entries []*CodedError
	cap     int
}

// NewErrorRing returns a ring with the given capacity (0 defaults to 16).
func NewErrorRing(capacity int) *ErrorRing {
	if capacity <= 0 {
		capacity = 16
	}
	return &ErrorRing{cap: capacity}
}

// Push records an error, evicting the oldest entry once at capacity.
func (r *ErrorRing) Push(e *CodedError) {
	r.entries = append(r.entries, e)
	if len(r.entries) > r.cap {
		r.entries = r.entries[len(r.entries)-r.cap:]
	}
}

// Len returns the number of records currently held.
func (r *ErrorRing) Len() int { return len(r.entries) }

// At returns the i-th oldest retained record.
func (r *ErrorRing) At(i int) *CodedError { return r.entries[i] }

// Sentinel errors used throughout the package; wrapped with context via
// fmt.Errorf("%w: ...") at call sites, matching the teacher's
// internal/xdr and compression packages' style rather than introducing a
// bespoke error framework.
var (
	ErrInvalidMagic           = errors.New("exr: invalid magic bytes")
	ErrInvalidVersion         = errors.New("exr: unsupported file version")
	ErrInvalidData            = errors.New("exr: malformed header data")
	ErrUnsupportedCompression = errors.New("exr: unsupported compression type")
	ErrDecompressionFailed    = errors.New("exr: chunk decompression failed")
	ErrCompressionFailed      = errors.New("exr: chunk compression failed")
	ErrBufferTooSmall         = errors.New("exr: output buffer too small")
	ErrWouldBlock             = errors.New("exr: fetch would block")
	ErrInvalidState           = errors.New("exr: invalid command buffer state")

	// ErrInvalidFile and ErrInvalidHeader flag file-level framing problems
	// (bad magic/version, malformed multipart header list) surfaced by
	// OpenReader, distinct from ErrInvalidData's attribute-stream scope.
	ErrInvalidFile   = errors.New("exr: invalid EXR file")
	ErrInvalidHeader = errors.New("exr: invalid header")

	// ErrNoFrameBuffer and ErrScanlineOutOfRange are raised by the
	// scanline/tiled reader and writer engines.
	ErrNoFrameBuffer      = errors.New("exr: no frame buffer set")
	ErrScanlineOutOfRange = errors.New("exr: scanline range out of bounds")
	ErrNotTiled           = errors.New("exr: part is not tiled")
	ErrTileOutOfRange     = errors.New("exr: tile coordinates out of bounds")
	ErrLevelOutOfRange    = errors.New("exr: mip/rip level out of bounds")

	errInvalidTileLevel = errors.New("exr: invalid tile level")
	errTileOutOfBounds  = errors.New("exr: tile coordinates out of bounds")
)
