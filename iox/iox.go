// Package iox provides I/O helpers for response bodies and resource cleanup.
package iox

import "io"

// MaxDrain bounds how much of an unread body DrainClose consumes.
const MaxDrain = 64 << 10

// DiscardClose closes c and discards the error.
//
//	defer iox.DiscardClose(f)
func DiscardClose(c io.Closer) { _ = c.Close() }

// DrainClose reads up to MaxDrain remaining bytes from rc and closes it,
// so an HTTP keep-alive connection can be reused. It returns the number
// of bytes drained.
//
//	defer iox.DrainClose(resp.Body)
func DrainClose(rc io.ReadCloser) int64 {
	n, _ := io.Copy(io.Discard, io.LimitReader(rc, MaxDrain))
	_ = rc.Close()
	return n
}

// ReadLimited reads at most limit bytes from r. Read errors after some
// data arrived are dropped; the partial data is returned.
func ReadLimited(r io.Reader, limit int64) []byte {
	raw, _ := io.ReadAll(io.LimitReader(r, limit))
	return raw
}
