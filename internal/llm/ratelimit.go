package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Throttled spaces calls to a Generator so a batch stays under the provider quota.
// It never retries.
type Throttled struct {
	next    Generator
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewThrottled wraps next with a limit of requestsPerMinute. Zero or less
// returns next unchanged.
func NewThrottled(next Generator, requestsPerMinute int, logger *slog.Logger) Generator {
	if requestsPerMinute <= 0 {
		return next
	}
	if logger == nil {
		logger = slog.Default()
	}
	every := time.Minute / time.Duration(requestsPerMinute)
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(every), 1),
		logger:  logger,
	}
}

func (t *Throttled) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	start := time.Now()
	if err := t.limiter.Wait(ctx); err != nil {
		return GenerateResponse{}, fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > 100*time.Millisecond {
		t.logger.Debug("llm.throttle.waited", "waited_ms", waited.Milliseconds())
	}
	return t.next.Generate(ctx, req)
}
