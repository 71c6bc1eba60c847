// Package connectivity bridges optional runtime signals (app focus, network
// reachability) into the query client. Hosts without such signals simply
// never wire a monitor; everything here degrades to a no-op.
package connectivity

import (
	"context"

	"github.com/pitabwire/util"
)

// EventKind enumerates runtime transitions.
type EventKind int

const (
	Online EventKind = iota
	Offline
	Focused
	Unfocused
)

// Event is one observed runtime transition.
type Event struct {
	Kind EventKind
}

// Signals receives runtime transitions; querycache.Client satisfies it.
type Signals interface {
	SetOnline(ctx context.Context, online bool)
	SetFocused(ctx context.Context, focused bool)
}

// Monitor reports runtime transitions. Implementations own their event
// source; Start may be called once.
type Monitor interface {
	Start(ctx context.Context) (<-chan Event, error)
	Close() error
}

// Watch pumps monitor events into sig until ctx is done or the monitor's
// channel closes. A nil monitor returns immediately, so callers never need
// to guard for an absent runtime integration.
func Watch(ctx context.Context, m Monitor, sig Signals) error {
	if m == nil {
		return nil
	}

	events, err := m.Start(ctx)
	if err != nil {
		// A monitor that cannot start loses only the refetch optimization.
		util.Log(ctx).WithError(err).Debug("connectivity monitor unavailable")
		return nil
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				dispatch(ctx, sig, ev)
			}
		}
	}()

	return nil
}

func dispatch(ctx context.Context, sig Signals, ev Event) {
	switch ev.Kind {
	case Online:
		sig.SetOnline(ctx, true)
	case Offline:
		sig.SetOnline(ctx, false)
	case Focused:
		sig.SetFocused(ctx, true)
	case Unfocused:
		sig.SetFocused(ctx, false)
	}
}
