package i18nhttp

import (
	"context"

	"github.com/pitabwire/util"
)

// WithLogger initializes the backend's logger with the given options. The
// default is the ambient context logger, which release builds leave quiet.
func WithLogger(opts ...util.Option) Option {
	return func(ctx context.Context, b *Backend) {
		b.logger = util.NewLogger(ctx, opts...)
	}
}
