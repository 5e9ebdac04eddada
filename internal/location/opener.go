package location

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Opener opens a URL in a new browsing context.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, url string) error

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, url string) error {
	return f(ctx, url)
}

// LogOpener records opened URLs and logs them. It is the default when the
// host has no browser to hand new tabs to.
type LogOpener struct {
	mu     sync.Mutex
	opened []string
	logger *zap.Logger
}

// NewLogOpener creates a LogOpener.
func NewLogOpener(logger *zap.Logger) *LogOpener {
	return &LogOpener{logger: logger.With(zap.String("component", "url-opener"))}
}

// Open records url.
func (o *LogOpener) Open(ctx context.Context, url string) error {
	o.mu.Lock()
	o.opened = append(o.opened, url)
	o.mu.Unlock()

	o.logger.Info("Opening link in new tab", zap.String("url", url))
	return nil
}

// Opened returns the URLs opened so far.
func (o *LogOpener) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]string, len(o.opened))
	copy(out, o.opened)
	return out
}
