// Package catcher intercepts panics raised by a caller-supplied block and
// reports them as values rather than letting them unwind the program.
//
// The block runs synchronously on the calling goroutine. Catch reports a
// panic if and only if one was raised: a block that returns normally yields
// nil, and a block that panics yields a Recovered carrying the panic value
// and the stack at the point of interception. Side effects the block
// performed before the panic are preserved.
//
// The boundary is the calling goroutine. Panics raised on goroutines the
// block spawns cannot be recovered here and remain fatal, as do conditions
// the runtime treats as unrecoverable, such as stack exhaustion.
package catcher
