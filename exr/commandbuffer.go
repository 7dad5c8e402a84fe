package exr

import (
	"fmt"
	"sync"
)

// RequestKind tags the kind of operation a recorded Request performs,
// mirroring §4.5's discriminated request set (read-tile, read-scanlines,
// read-full-image, read-deep-scanlines, read-deep-tiles, and the write
// variants of each).
type RequestKind int

const (
	RequestReadScanlines RequestKind = iota
	RequestReadFullImage
	RequestReadTile
	RequestReadTiles
	RequestReadDeepScanlines
	RequestReadDeepTiles
	RequestWriteScanlines
	RequestWriteTile
	RequestWriteTiles
	RequestWriteDeepScanlines
	RequestWriteDeepTiles
)

func (k RequestKind) String() string {
	switch k {
	case RequestReadScanlines:
		return "read-scanlines"
	case RequestReadFullImage:
		return "read-full-image"
	case RequestReadTile:
		return "read-tile"
	case RequestReadTiles:
		return "read-tiles"
	case RequestReadDeepScanlines:
		return "read-deep-scanlines"
	case RequestReadDeepTiles:
		return "read-deep-tiles"
	case RequestWriteScanlines:
		return "write-scanlines"
	case RequestWriteTile:
		return "write-tile"
	case RequestWriteTiles:
		return "write-tiles"
	case RequestWriteDeepScanlines:
		return "write-deep-scanlines"
	case RequestWriteDeepTiles:
		return "write-deep-tiles"
	default:
		return "unknown"
	}
}

// ScanlineReadTarget is satisfied by *ScanlineReader. It is the surface a
// CommandBuffer needs to record and execute scanline and full-image reads
// against a non-deep scanline part.
type ScanlineReadTarget interface {
	SetFrameBuffer(fb *FrameBuffer)
	ReadPixels(y1, y2 int) error
	DataWindow() Box2i
}

// TileReadTarget is satisfied by *TiledReader.
type TileReadTarget interface {
	SetFrameBuffer(fb *FrameBuffer)
	ReadTileLevel(tx, ty, lx, ly int) error
	ReadTilesLevel(tx1, ty1, tx2, ty2, lx, ly int) error
	DataWindow() Box2i
	NumXTilesAtLevel(lx int) int
	NumYTilesAtLevel(ly int) int
}

// DeepScanlineReadTarget is satisfied by *DeepScanlineReader.
type DeepScanlineReadTarget interface {
	SetFrameBuffer(fb *DeepFrameBuffer)
	ReadPixelSampleCounts(y1, y2 int) error
	ReadPixels(y1, y2 int) error
}

// DeepTileReadTarget is satisfied by *DeepTiledReader.
type DeepTileReadTarget interface {
	SetFrameBuffer(fb *DeepFrameBuffer)
	ReadTileSampleCountsLevel(tx, ty, lx, ly int) error
	ReadTileLevel(tx, ty, lx, ly int) error
	ReadTilesLevel(tx1, ty1, tx2, ty2, lx, ly int) error
}

// ScanlineWriteTarget is satisfied by *ScanlineWriter.
type ScanlineWriteTarget interface {
	SetFrameBuffer(fb *FrameBuffer)
	WritePixels(y1, y2 int) error
}

// TileWriteTarget is satisfied by *TiledWriter.
type TileWriteTarget interface {
	SetFrameBuffer(fb *FrameBuffer)
	WriteTileLevel(tx, ty, lx, ly int) error
	WriteTilesLevel(tx1, ty1, tx2, ty2, lx, ly int) error
}

// DeepScanlineWriteTarget is satisfied by *DeepScanlineWriter. WritePixels
// writes the next numLines scanlines from the writer's own cursor, matching
// OpenEXR's sequential deep-scanline output contract.
type DeepScanlineWriteTarget interface {
	SetFrameBuffer(fb *DeepFrameBuffer)
	WritePixels(numLines int) error
}

// DeepTileWriteTarget is satisfied by *DeepTiledWriter.
type DeepTileWriteTarget interface {
	SetFrameBuffer(fb *DeepFrameBuffer)
	WriteTileLevel(tx, ty, lx, ly int) error
	WriteTiles(tx1, ty1, tx2, ty2 int) error
}

// Request is one recorded command-buffer entry. Only the fields relevant to
// Kind are meaningful; Submit dispatches on Kind with a type switch over
// Target, the same "discriminated array, match in submit" shape as the
// read/write command enumeration in §4.5/§9.
type Request struct {
	Kind   RequestKind
	Target any

	Y1, Y2             int
	Tx1, Ty1, Tx2, Ty2 int
	Lx, Ly             int
	NumLines           int
}

// cbState is the CommandBuffer lifecycle state machine: reset -> recording
// -> recorded -> (submit consumes, returns to reset).
type cbState int

const (
	cbStateReset cbState = iota
	cbStateRecording
	cbStateRecorded
)

// CommandBuffer records a sequence of read/write requests for later
// execution by Submit. It follows the lifecycle in §4.5: Begin fails if
// already recording, Record* calls fail unless recording, End fails unless
// recording, and Reset clears everything and returns to "reset".
//
// A CommandBuffer is not internally synchronized; per §5, all mutation of a
// given buffer must be externally serialized.
type CommandBuffer struct {
	state    cbState
	requests []Request
}

// NewCommandBuffer returns an empty, not-recording CommandBuffer.
func NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{state: cbStateReset}
}

// Begin transitions the buffer into the recording state.
func (cb *CommandBuffer) Begin() error {
	if cb.state == cbStateRecording {
		return fmt.Errorf("%w: command buffer already recording", ErrInvalidState)
	}
	cb.state = cbStateRecording
	cb.requests = cb.requests[:0]
	return nil
}

// End transitions the buffer from recording to recorded, ready for Submit.
func (cb *CommandBuffer) End() error {
	if cb.state != cbStateRecording {
		return fmt.Errorf("%w: command buffer not recording", ErrInvalidState)
	}
	cb.state = cbStateRecorded
	return nil
}

// Reset discards all recorded requests and returns the buffer to "reset".
func (cb *CommandBuffer) Reset() {
	cb.state = cbStateReset
	cb.requests = nil
}

// Len returns the number of recorded requests.
func (cb *CommandBuffer) Len() int { return len(cb.requests) }

// Requests returns the recorded requests in record order. The returned
// slice aliases the buffer's internal storage and must not be mutated.
func (cb *CommandBuffer) Requests() []Request { return cb.requests }

func (cb *CommandBuffer) record(r Request) error {
	if cb.state != cbStateRecording {
		return fmt.Errorf("%w: command buffer not recording", ErrInvalidState)
	}
	cb.requests = append(cb.requests, r)
	return nil
}

// RecordReadScanlines records a request to decompress and scatter the
// scanlines [y1, y2] into target's frame buffer.
func (cb *CommandBuffer) RecordReadScanlines(target ScanlineReadTarget, y1, y2 int) error {
	if target == nil || y1 > y2 {
		return fmt.Errorf("%w: invalid scanline read request", ErrInvalidState)
	}
	return cb.record(Request{Kind: RequestReadScanlines, Target: target, Y1: y1, Y2: y2})
}

// RecordReadTile records a request to decompress a single tile into
// target's frame buffer.
func (cb *CommandBuffer) RecordReadTile(target TileReadTarget, tx, ty, lx, ly int) error {
	if target == nil {
		return fmt.Errorf("%w: nil tile read target", ErrInvalidState)
	}
	return cb.record(Request{Kind: RequestReadTile, Target: target, Tx1: tx, Ty1: ty, Lx: lx, Ly: ly})
}

// RecordReadTiles records a request to decompress the tile rectangle
// [tx1,tx2] x [ty1,ty2] at level (lx,ly) into target's frame buffer.
func (cb *CommandBuffer) RecordReadTiles(target TileReadTarget, tx1, ty1, tx2, ty2, lx, ly int) error {
	if target == nil || tx1 > tx2 || ty1 > ty2 {
		return fmt.Errorf("%w: invalid tile-range read request", ErrInvalidState)
	}
	return cb.record(Request{Kind: RequestReadTiles, Target: target, Tx1: tx1, Ty1: ty1, Tx2: tx2, Ty2: ty2, Lx: lx, Ly: ly})
}

// RecordReadFullImage records a request to decompress and scatter every
// chunk of the part into target's frame buffer. target must be either a
// ScanlineReadTarget or a TileReadTarget (at level (lx,ly), ignored for
// scanline parts).
func (cb *CommandBuffer) RecordReadFullImage(target any, lx, ly int) error {
	switch target.(type) {
	case ScanlineReadTarget, TileReadTarget:
		return cb.record(Request{Kind: RequestReadFullImage, Target: target, Lx: lx, Ly: ly})
	default:
		return fmt.Errorf("%w: target does not support full-image reads", ErrInvalidState)
	}
}

// RecordReadDeepScanlines records a request to read sample counts and deep
// samples for scanlines [y1, y2] into target's deep frame buffer. Callers
// must already have sized per-pixel sample storage via target's frame
// buffer before Submit runs this request.
func (cb *CommandBuffer) RecordReadDeepScanlines(target DeepScanlineReadTarget, y1, y2 int) error {
	if target == nil || y1 > y2 {
		return fmt.Errorf("%w: invalid deep-scanline read request", ErrInvalidState)
	}
	return cb.record(Request{Kind: RequestReadDeepScanlines, Target: target, Y1: y1, Y2: y2})
}

// RecordReadDeepTiles records a request to read sample counts and deep
// samples for the tile rectangle [tx1,tx2] x [ty1,ty2] at level (lx,ly).
func (cb *CommandBuffer) RecordReadDeepTiles(target DeepTileReadTarget, tx1, ty1, tx2, ty2, lx, ly int) error {
	if target == nil || tx1 > tx2 || ty1 > ty2 {
		return fmt.Errorf("%w: invalid deep-tile read request", ErrInvalidState)
	}
	return cb.record(Request{Kind: RequestReadDeepTiles, Target: target, Tx1: tx1, Ty1: ty1, Tx2: tx2, Ty2: ty2, Lx: lx, Ly: ly})
}

// RecordWriteScanlines records a request to compress and emit the
// scanlines [y1, y2] from target's frame buffer.
func (cb *CommandBuffer) RecordWriteScanlines(target ScanlineWriteTarget, y1, y2 int) error {
	if target == nil || y1 > y2 {
		return fmt.Errorf("%w: invalid scanline write request", ErrInvalidState)
	}
	return cb.record(Request{Kind: RequestWriteScanlines, Target: target, Y1: y1, Y2: y2})
}

// RecordWriteTile records a request to compress and emit a single tile
// from target's frame buffer.
func (cb *CommandBuffer) RecordWriteTile(target TileWriteTarget, tx, ty, lx, ly int) error {
	if target == nil {
		return fmt.Errorf("%w: nil tile write target", ErrInvalidState)
	}
	return cb.record(Request{Kind: RequestWriteTile, Target: target, Tx1: tx, Ty1: ty, Lx: lx, Ly: ly})
}

// RecordWriteTiles records a request to compress and emit the tile
// rectangle [tx1,tx2] x [ty1,ty2] at level (lx,ly).
func (cb *CommandBuffer) RecordWriteTiles(target TileWriteTarget, tx1, ty1, tx2, ty2, lx, ly int) error {
	if target == nil || tx1 > tx2 || ty1 > ty2 {
		return fmt.Errorf("%w: invalid tile-range write request", ErrInvalidState)
	}
	return cb.record(Request{Kind: RequestWriteTiles, Target: target, Tx1: tx1, Ty1: ty1, Tx2: tx2, Ty2: ty2, Lx: lx, Ly: ly})
}

// RecordWriteDeepScanlines records a request to compress and emit the next
// numLines deep scanlines from target's cursor.
func (cb *CommandBuffer) RecordWriteDeepScanlines(target DeepScanlineWriteTarget, numLines int) error {
	if target == nil || numLines <= 0 {
		return fmt.Errorf("%w: invalid deep-scanline write request", ErrInvalidState)
	}
	return cb.record(Request{Kind: RequestWriteDeepScanlines, Target: target, NumLines: numLines})
}

// RecordWriteDeepTiles records a request to compress and emit the tile
// rectangle [tx1,tx2] x [ty1,ty2] (level 0; DeepTiledWriter does not expose
// per-level batch writes beyond level 0 today).
func (cb *CommandBuffer) RecordWriteDeepTiles(target DeepTileWriteTarget, tx1, ty1, tx2, ty2 int) error {
	if target == nil || tx1 > tx2 || ty1 > ty2 {
		return fmt.Errorf("%w: invalid deep-tile write request", ErrInvalidState)
	}
	return cb.record(Request{Kind: RequestWriteDeepTiles, Target: target, Tx1: tx1, Ty1: ty1, Tx2: tx2, Ty2: ty2})
}

// Fence is a completion signal for Submit: it is signaled once every
// request across every submitted CommandBuffer has succeeded, and remains
// unsignaled if any request fails (§4.5, §5).
type Fence struct {
	mu       sync.Mutex
	signaled bool
}

// NewFence returns a fresh, unsignaled fence.
func NewFence() *Fence { return &Fence{} }

// Reset clears a previously signaled fence so it can be reused.
func (f *Fence) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signaled = false
}

// GetStatus reports whether the fence has been signaled.
func (f *Fence) GetStatus() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signaled
}

// Wait blocks until the fence is signaled. Submit is synchronous in this
// implementation, so after a successful Submit the fence is already
// signaled and Wait returns at once. After a failed Submit the fence stays
// unsignaled and Wait spins until some later Submit signals it.
func (f *Fence) Wait() {
	for !f.GetStatus() {
	}
}

func (f *Fence) signal() {
	f.mu.Lock()
	f.signaled = true
	f.mu.Unlock()
}

// Submit executes every request in every buffer, in order, against the
// readers/writers the requests were recorded with. Buffers are consumed in
// slice order and requests within a buffer execute in record order,
// matching §4.5's "sequential within a buffer and across buffers" default.
// The first failing request aborts the submit; later requests (in the
// failing buffer and any subsequent buffer) are skipped, and fence (if
// non-nil) is left unsignaled. On success fence is signaled.
//
// Calling Submit consumes each buffer: on return every buffer is Reset,
// whether or not the submit succeeded, mirroring the native API's
// reset-after-submit command buffer lifecycle.
func Submit(buffers []*CommandBuffer, fence *Fence) error {
	defer func() {
		for _, cb := range buffers {
			if cb != nil {
				cb.Reset()
			}
		}
	}()

	for _, cb := range buffers {
		if cb == nil {
			continue
		}
		if cb.state != cbStateRecorded {
			return fmt.Errorf("%w: command buffer not recorded", ErrInvalidState)
		}
		for _, req := range cb.requests {
			if err := execRequest(req); err != nil {
				return fmt.Errorf("exr: submit: %s: %w", req.Kind, err)
			}
		}
	}

	if fence != nil {
		fence.signal()
	}
	return nil
}

func execRequest(req Request) error {
	switch req.Kind {
	case RequestReadScanlines:
		t := req.Target.(ScanlineReadTarget)
		return t.ReadPixels(req.Y1, req.Y2)

	case RequestReadTile:
		t := req.Target.(TileReadTarget)
		return t.ReadTileLevel(req.Tx1, req.Ty1, req.Lx, req.Ly)

	case RequestReadTiles:
		t := req.Target.(TileReadTarget)
		return t.ReadTilesLevel(req.Tx1, req.Ty1, req.Tx2, req.Ty2, req.Lx, req.Ly)

	case RequestReadFullImage:
		switch t := req.Target.(type) {
		case ScanlineReadTarget:
			dw := t.DataWindow()
			return t.ReadPixels(int(dw.Min.Y), int(dw.Max.Y))
		case TileReadTarget:
			nx := t.NumXTilesAtLevel(req.Lx)
			ny := t.NumYTilesAtLevel(req.Ly)
			if nx <= 0 || ny <= 0 {
				return nil
			}
			return t.ReadTilesLevel(0, 0, nx-1, ny-1, req.Lx, req.Ly)
		default:
			return fmt.Errorf("%w: unsupported full-image read target", ErrInvalidState)
		}

	case RequestReadDeepScanlines:
		t := req.Target.(DeepScanlineReadTarget)
		if err := t.ReadPixelSampleCounts(req.Y1, req.Y2); err != nil {
			return err
		}
		return t.ReadPixels(req.Y1, req.Y2)

	case RequestReadDeepTiles:
		t := req.Target.(DeepTileReadTarget)
		for ty := req.Ty1; ty <= req.Ty2; ty++ {
			for tx := req.Tx1; tx <= req.Tx2; tx++ {
				if err := t.ReadTileSampleCountsLevel(tx, ty, req.Lx, req.Ly); err != nil {
					return err
				}
			}
		}
		return t.ReadTilesLevel(req.Tx1, req.Ty1, req.Tx2, req.Ty2, req.Lx, req.Ly)

	case RequestWriteScanlines:
		t := req.Target.(ScanlineWriteTarget)
		return t.WritePixels(req.Y1, req.Y2)

	case RequestWriteTile:
		t := req.Target.(TileWriteTarget)
		return t.WriteTileLevel(req.Tx1, req.Ty1, req.Lx, req.Ly)

	case RequestWriteTiles:
		t := req.Target.(TileWriteTarget)
		return t.WriteTilesLevel(req.Tx1, req.Ty1, req.Tx2, req.Ty2, req.Lx, req.Ly)

	case RequestWriteDeepScanlines:
		t := req.Target.(DeepScanlineWriteTarget)
		return t.WritePixels(req.NumLines)

	case RequestWriteDeepTiles:
		t := req.Target.(DeepTileWriteTarget)
		return t.WriteTiles(req.Tx1, req.Ty1, req.Tx2, req.Ty2)

	default:
		return fmt.Errorf("%w: unknown request kind %d", ErrInvalidState, int(req.Kind))
	}
}
