// Package querycache is a keyed fetch client: it coalesces concurrent
// fetches for the same key into one underlying call, retains resolved
// entries in a byte store for a retention window, serves them without
// refetching while they are fresh, and re-runs failed fetches under a
// caller-supplied retry predicate and delay. It also accepts focus and
// connectivity signals and can refetch live queries when the app regains
// focus or the network comes back.
package querycache

import (
	"context"
	"errors"
	"time"
)

// ErrOffline is returned when a fetch is requested while the client is
// marked offline and no cached entry exists; the network is unavailable so
// no transport call is attempted.
var ErrOffline = errors.New("query client offline: network unavailable")

// Entry is one resolved query result retained by the client.
type Entry struct {
	Status    int       `json:"status"`
	Body      []byte    `json:"body"`
	FetchedAt time.Time `json:"fetched_at"`
}

// FetchFunc performs the underlying transport call for a query.
type FetchFunc func(ctx context.Context) (*Entry, error)

// Client coalesces, caches and retries keyed queries. Implementations must
// guarantee at most one concurrent underlying call per key; all callers
// sharing a key observe the same resolved entry or the same failure.
type Client interface {
	// Fetch returns the cached entry when fresh, otherwise runs fn once
	// per key regardless of caller count and caches the result.
	// FetchOptions override the client defaults for this query only.
	Fetch(ctx context.Context, key string, fn FetchFunc, opts ...FetchOption) (*Entry, error)

	// Peek returns the cached entry without any network activity.
	Peek(ctx context.Context, key string) (*Entry, bool)

	// Invalidate drops every cached entry whose key shares the prefix.
	Invalidate(ctx context.Context, prefix string) error

	// Clear drops all cached entries.
	Clear(ctx context.Context) error

	// SetOnline records network reachability. Coming back online refetches
	// live queries that opted into reconnect refresh.
	SetOnline(ctx context.Context, online bool)

	// SetFocused records app focus. Regaining focus refetches live queries
	// that opted into focus refresh.
	SetFocused(ctx context.Context, focused bool)

	Close() error
}
