package exr

import "bytes"

// readerAtWrapper adapts a *bytes.Reader to a plain io.ReaderAt for tests
// that want to exercise OpenReader's ReaderAt-only contract without relying
// on bytes.Reader's other methods.
type readerAtWrapper struct {
	*bytes.Reader
}
