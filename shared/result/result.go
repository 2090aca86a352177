// Package result holds the outcome type returned by every backend command.
//
// A Result is either Ok, carrying a value, or a Failure, carrying only a
// human-readable message. The value can only be read through Value, which
// reports whether the result succeeded, so a failed payload is never used by
// accident. Envelope converts a Result to the wire shape
// {"success": bool, "message": string, "data": T?}.
package result

import "fmt"

// MessageOK is the message attached to successful results that do not set one.
const MessageOK = "operation succeeded"

// Empty is the payload type of results that carry no data.
type Empty struct{}

// Result is the outcome of one command.
type Result[T any] struct {
	ok      bool
	message string
	value   T
}

// Ok returns a successful result carrying v.
func Ok[T any](v T) Result[T] {
	return Result[T]{ok: true, message: MessageOK, value: v}
}

// OkWithMessage returns a successful result carrying v and a custom message.
func OkWithMessage[T any](v T, message string) Result[T] {
	return Result[T]{ok: true, message: message, value: v}
}

// Done returns a successful result without data.
func Done(message string) Result[Empty] {
	if message == "" {
		message = MessageOK
	}
	return Result[Empty]{ok: true, message: message}
}

// Failure returns a failed result with the given message.
func Failure[T any](message string) Result[T] {
	return Result[T]{message: message}
}

// Failuref returns a failed result with a formatted message.
func Failuref[T any](format string, args ...any) Result[T] {
	return Result[T]{message: fmt.Sprintf(format, args...)}
}

// IsOk reports whether the result succeeded.
func (r Result[T]) IsOk() bool { return r.ok }

// Message returns the human-readable message.
func (r Result[T]) Message() string { return r.message }

// Value returns the payload and true on success, or the zero value and false.
func (r Result[T]) Value() (T, bool) {
	if !r.ok {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Envelope converts the result to its wire representation.
func (r Result[T]) Envelope() Envelope[T] {
	env := Envelope[T]{Success: r.ok, Message: r.message}
	if !r.ok {
		return env
	}
	if _, empty := any(r.value).(Empty); empty {
		return env
	}
	v := r.value
	env.Data = &v
	return env
}

// Envelope is the uniform response record crossing the invocation boundary.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *T     `json:"data,omitempty"`
}

// Result converts a decoded envelope back into a Result.
func (e Envelope[T]) Result() Result[T] {
	if !e.Success {
		return Failure[T](e.Message)
	}
	var v T
	if e.Data != nil {
		v = *e.Data
	}
	return OkWithMessage(v, e.Message)
}
