// Package gateway is the typed client of the command backend.
//
// Each function performs exactly one round trip through an Invoker and
// decodes the returned envelope into a result.Result. A non-nil error means
// the invocation itself failed; logical failures arrive as failed results.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dracory/weeredis/backend"
	"github.com/dracory/weeredis/shared/result"
)

// ErrMalformedEnvelope is returned when a reply does not decode as an envelope.
var ErrMalformedEnvelope = errors.New("gateway: malformed envelope")

// Invoker sends one named command with its arguments and returns the raw envelope.
type Invoker interface {
	Invoke(ctx context.Context, command string, args any) (json.RawMessage, error)
}

// Local invokes commands in-process.
type Local struct {
	dispatcher *backend.Dispatcher
}

// NewLocal returns an Invoker backed by d.
func NewLocal(d *backend.Dispatcher) *Local {
	return &Local{dispatcher: d}
}

// Invoke implements Invoker.
func (l *Local) Invoke(ctx context.Context, command string, args any) (json.RawMessage, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("gateway: encode %s arguments: %w", command, err)
	}
	return l.dispatcher.Dispatch(ctx, command, raw)
}

func call[T any](ctx context.Context, inv Invoker, command string, args any) (result.Result[T], error) {
	raw, err := inv.Invoke(ctx, command, args)
	if err != nil {
		return result.Result[T]{}, err
	}
	var env result.Envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return result.Result[T]{}, fmt.Errorf("%w: %s: %v", ErrMalformedEnvelope, command, err)
	}
	return env.Result(), nil
}
