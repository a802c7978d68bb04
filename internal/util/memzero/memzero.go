// Package memzero overwrites secret buffers in place.
package memzero

import "runtime"

// Zero overwrites b with zeros. It is best effort: the Go runtime may
// already have copied the bytes elsewhere, but b itself no longer holds them.
//
//go:noinline
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
