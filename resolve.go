package i18nhttp

import "context"

// Value holds either a literal or a resolver for a configuration field whose
// final form may depend on the languages and namespaces being loaded. Every
// dynamic field funnels through this one indirection instead of each call
// site special-casing function-typed configuration.
type Value[T any] struct {
	literal T
	fn      func(ctx context.Context, languages, namespaces []string) (T, error)
	set     bool
}

// Static wraps a literal value.
func Static[T any](v T) Value[T] {
	return Value[T]{literal: v, set: true}
}

// Dynamic wraps a resolver invoked at build time. Resolvers may block; they
// receive the request context.
func Dynamic[T any](fn func(ctx context.Context, languages, namespaces []string) (T, error)) Value[T] {
	return Value[T]{fn: fn, set: true}
}

func (v Value[T]) resolve(ctx context.Context, languages, namespaces []string) (T, error) {
	if v.fn != nil {
		return v.fn(ctx, languages, namespaces)
	}
	return v.literal, nil
}

func (v Value[T]) isSet() bool {
	return v.set
}
