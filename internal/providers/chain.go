package providers

import (
	"context"
	"log/slog"
	"time"
)

// Chain arbitrates between remote backends in configured order, retrying
// transient failures with exponential backoff and falling back to the
// offline backend when every remote attempt is spent or the deadline
// expires. A chain call never fails: the offline backend always answers.
//
// Retry policy per backend: timeouts, rate limits, and unknown failures
// retry up to the attempt budget; auth failures skip the backend
// immediately; malformed responses retry once, then skip.
type Chain struct {
	remote   []Client
	offline  Client
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

// ChainConfig bounds retry behavior for every backend in the chain.
type ChainConfig struct {
	Attempts int
	Backoff  time.Duration
}

// NewChain creates a fallback chain over the given remote backends. The
// offline backend is the implicit terminal element and is not part of the
// configured order.
func NewChain(remote []Client, offline Client, cfg ChainConfig, logger *slog.Logger) *Chain {
	if cfg.Attempts < 1 {
		cfg.Attempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}

	return &Chain{
		remote:   remote,
		offline:  offline,
		attempts: cfg.Attempts,
		backoff:  cfg.Backoff,
		logger:   logger.With("system", "providers"),
	}
}

// Providers returns the names of the remote backends in chain order.
func (c *Chain) Providers() []Name {
	names := make([]Name, len(c.remote))
	for i, client := range c.remote {
		names[i] = client.Name()
	}
	return names
}

// Classify runs the classification call through the chain. A requested
// provider in req moves to the front of the order; the rest of the chain
// still backs it up. Every attempt is reported to rec; failed attempts
// carry zero usage. The returned result is never nil.
func (c *Chain) Classify(ctx context.Context, req ClassificationRequest, rec UsageRecorder) *ClassificationResult {
	var result *ClassificationResult

	served := c.run(ctx, rec, c.ordered(req.Provider), func(ctx context.Context, client Client) (TokenUsage, error) {
		r, err := client.Classify(ctx, req)
		if err != nil {
			return TokenUsage{}, err
		}
		result = r
		return r.Usage, nil
	})

	if served {
		return result
	}

	offline, _ := c.offline.Classify(ctx, req)
	rec.RecordCall(NameOffline, c.offline.Model(), TokenUsage{}, true)
	return offline
}

// CategorizeBatch runs a batch categorization call through the chain. The
// returned labels always have one entry per section.
func (c *Chain) CategorizeBatch(ctx context.Context, sections []string, hint ContextHint, rec UsageRecorder) []LabelSet {
	var labels []LabelSet

	served := c.run(ctx, rec, c.remote, func(ctx context.Context, client Client) (TokenUsage, error) {
		l, usage, err := client.CategorizeBatch(ctx, sections, hint)
		if err != nil {
			return TokenUsage{}, err
		}
		labels = l
		return usage, nil
	})

	if served {
		return labels
	}

	offline, _, _ := c.offline.CategorizeBatch(ctx, sections, hint)
	rec.RecordCall(NameOffline, c.offline.Model(), TokenUsage{}, true)
	return offline
}

// ordered returns the remote backends with the preferred one first.
// Unknown or empty names keep the configured order.
func (c *Chain) ordered(prefer Name) []Client {
	idx := -1
	for i, client := range c.remote {
		if client.Name() == prefer {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return c.remote
	}

	clients := make([]Client, 0, len(c.remote))
	clients = append(clients, c.remote[idx])
	clients = append(clients, c.remote[:idx]...)
	clients = append(clients, c.remote[idx+1:]...)
	return clients
}

// run executes call against each backend under the retry policy. It
// reports true when a remote backend served the call, false when the
// chain is exhausted and the offline backend must answer.
func (c *Chain) run(ctx context.Context, rec UsageRecorder, clients []Client, call func(context.Context, Client) (TokenUsage, error)) bool {
	for _, client := range clients {
		malformed := 0

		for attempt := 1; attempt <= c.attempts; attempt++ {
			if ctx.Err() != nil {
				c.logger.Warn("deadline expired, skipping remaining providers", "provider", client.Name())
				return false
			}

			usage, err := call(ctx, client)
			if err == nil {
				rec.RecordCall(client.Name(), client.Model(), usage, true)
				return true
			}

			rec.RecordCall(client.Name(), client.Model(), TokenUsage{}, false)

			kind := KindOf(err)
			c.logger.Warn("provider attempt failed",
				"provider", client.Name(),
				"attempt", attempt,
				"kind", kind,
				"error", err,
			)

			if kind == KindAuthFailed {
				break
			}
			if kind == KindMalformed {
				malformed++
				if malformed > 1 {
					break
				}
				continue
			}
			if !Retryable(kind) {
				break
			}

			if attempt < c.attempts && !c.wait(ctx, attempt) {
				return false
			}
		}
	}

	return false
}

// wait sleeps for the exponential backoff interval, returning false when
// the context expires first.
func (c *Chain) wait(ctx context.Context, attempt int) bool {
	delay := c.backoff
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}
