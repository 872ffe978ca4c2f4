// SPDX-License-Identifier: Apache-2.0

// Package result provides a tagged success-or-error container for fallible
// operations. Callers branch on the tag instead of catching failures, so an
// error can never be silently ignored by reading the value slot.
package result

import (
	"context"
	"fmt"
)

// Result holds either a value of type T or an error, never both.
// The ok tag is authoritative: a Result that is Ok may still carry a zero
// value, which means "success with no data", not failure.
type Result[T any] struct {
	value T
	err   error
	ok    bool
}

// Ok returns a successful Result carrying value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value, ok: true}
}

// Err returns a failed Result carrying err. A nil err is normalized to Ok
// of the zero value so the tag stays consistent with the error slot.
func Err[T any](err error) Result[T] {
	if err == nil {
		return Result[T]{ok: true}
	}
	return Result[T]{err: err}
}

// IsOk reports whether the Result holds a value.
func (r Result[T]) IsOk() bool { return r.ok }

// IsErr reports whether the Result holds an error.
func (r Result[T]) IsErr() bool { return !r.ok }

// Value returns the carried value. It is the zero value when IsErr.
func (r Result[T]) Value() T { return r.value }

// Err returns the carried error, nil when IsOk.
func (r Result[T]) Err() error { return r.err }

// Unpack returns the Result in the conventional (value, error) form.
func (r Result[T]) Unpack() (T, error) { return r.value, r.err }

// ValueOr returns the carried value, or fallback when the Result is an error.
func (r Result[T]) ValueOr(fallback T) T {
	if r.ok {
		return r.value
	}
	return fallback
}

// Wrap executes op and converts its outcome into a Result. The error is
// carried unmodified; a panic inside op is recovered into the error slot,
// so Wrap itself never fails.
func Wrap[T any](op func() (T, error)) (res Result[T]) {
	defer func() {
		if rec := recover(); rec != nil {
			res = Err[T](fmt.Errorf("panic: %v", rec))
		}
	}()
	value, err := op()
	if err != nil {
		return Err[T](err)
	}
	return Ok(value)
}

// WrapCtx is Wrap for operations that take a context.
func WrapCtx[T any](ctx context.Context, op func(context.Context) (T, error)) Result[T] {
	return Wrap(func() (T, error) { return op(ctx) })
}
