// Package atomic provides a small atomic boolean flag.
package atomic

import "sync/atomic"

// Boolean is a boolean value that can be read and written concurrently
// without a lock
type Boolean uint32

// Get returns the current value
func (b *Boolean) Get() bool {
	return atomic.LoadUint32((*uint32)(b)) != 0
}

// Set stores the given value
func (b *Boolean) Set(v bool) {
	if v {
		atomic.StoreUint32((*uint32)(b), 1)
	} else {
		atomic.StoreUint32((*uint32)(b), 0)
	}
}
