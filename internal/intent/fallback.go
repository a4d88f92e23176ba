package intent

import (
	"context"
	"log"
	"time"
)

// NewFallback chains two resolvers: primary first, secondary on any
// primary error. A nil primary skips straight to secondary.
func NewFallback(primary, secondary Resolver) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

// Fallback makes LLM failures invisible to the caller: the error is logged
// and the secondary (keyword) result returned instead.
type Fallback struct {
	primary   Resolver
	secondary Resolver
}

// Resolve implements Resolver.
func (f *Fallback) Resolve(ctx context.Context, message string, now time.Time) (*Intent, error) {
	if f.primary != nil {
		resolved, err := f.primary.Resolve(ctx, message, now)
		if err == nil {
			return resolved, nil
		}
		log.Printf("primary resolver failed, falling back: %v", err)
	}

	return f.secondary.Resolve(ctx, message, now)
}
