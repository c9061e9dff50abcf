// Package streamvalidator implements C9: the SSE commit gate that
// buffers the start of an upstream stream until it is confident the
// stream is real content, not an error truncated mid-flight.
package streamvalidator

import "unicode/utf8"

// commitCharThreshold is the accumulated-delta-character count past
// which a stream is considered committed, per §4.3 ("> 2
// accumulated chars").
const commitCharThreshold = 2

// Validator buffers stream chunks of type T until a commit condition
// fires: more than commitCharThreshold accumulated delta-text
// characters, or the start of a tool call. Before commit, every Feed
// call is held back from the caller (the C10 router only starts
// writing SSE bytes to the client once the gate opens); after commit,
// Feed passes every chunk straight through, draining anything buffered
// on the call that triggers commit.
type Validator[T any] struct {
	committed bool
	charCount int
	buffered  []T
}

// New returns a fresh, uncommitted Validator over chunk type T.
func New[T any]() *Validator[T] {
	return &Validator[T]{}
}

// Committed reports whether the commit condition has already fired.
func (v *Validator[T]) Committed() bool { return v.committed }

// Feed records one chunk's delta text length and whether it started a
// tool call. Returns the chunks to emit to the client now (nil until
// commit fires) and whether the gate is open after this call.
func (v *Validator[T]) Feed(chunk T, deltaText string, startsToolCall bool) ([]T, bool) {
	if v.committed {
		return []T{chunk}, true
	}

	v.buffered = append(v.buffered, chunk)
	v.charCount += utf8.RuneCountInString(deltaText)

	if v.charCount > commitCharThreshold || startsToolCall {
		v.committed = true
		out := v.buffered
		v.buffered = nil
		return out, true
	}
	return nil, false
}

// Discard drops whatever is buffered without committing — used when the
// upstream connection closes before the gate opened, so the caller can
// surface STREAM_EMPTY_ERROR instead of flushing a partial, unvetted
// stream to the client.
func (v *Validator[T]) Discard() []T {
	out := v.buffered
	v.buffered = nil
	return out
}
