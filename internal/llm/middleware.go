package llm

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"codescout/internal/mcp"
)

// Middleware decorates a Converser with a cross-cutting concern.
// There is no retry middleware: a failed model call is final for its request.
type Middleware func(Converser) Converser

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Converser, mws ...Middleware) Converser {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			out = mws[i](out)
		}
	}
	return out
}

// -------- Rate Limiting --------

// RateLimit throttles Converse calls to rps with the given burst.
// rps <= 0 disables the limiter.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Converser) Converser {
		if rps <= 0 {
			return next
		}
		if burst < 1 {
			burst = 1
		}
		return &rateLimited{next: next, rl: rate.NewLimiter(rate.Limit(rps), burst)}
	}
}

type rateLimited struct {
	next Converser
	rl   *rate.Limiter
}

func (c *rateLimited) Name() string { return c.next.Name() }

func (c *rateLimited) Converse(ctx context.Context, prompt string, tools mcp.ToolProvider, schema json.RawMessage) (json.RawMessage, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}
	return c.next.Converse(ctx, prompt, tools, schema)
}

// -------- Logging --------

// WithLogging logs prompt size, tool count, latency and errors per call.
func WithLogging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next Converser) Converser {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next Converser
	log  *zap.Logger
}

func (l *logging) Name() string { return l.next.Name() }

func (l *logging) Converse(ctx context.Context, prompt string, tools mcp.ToolProvider, schema json.RawMessage) (json.RawMessage, error) {
	fields := []zap.Field{
		zap.String("model", l.next.Name()),
		zap.String("phase", PhaseFrom(ctx)),
		zap.Int("prompt_bytes", len(prompt)),
	}
	if tools != nil {
		fields = append(fields, zap.Int("tools", len(tools.Specs())))
	}
	l.log.Debug("llm request", fields...)
	start := time.Now()
	raw, err := l.next.Converse(ctx, prompt, tools, schema)
	fields = append(fields, zap.Duration("elapsed", time.Since(start)))
	if err != nil {
		l.log.Warn("llm error", append(fields, zap.Error(err))...)
		return raw, err
	}
	l.log.Debug("llm response", append(fields, zap.Int("response_bytes", len(raw)))...)
	return raw, nil
}

// -------- Hooks --------

// WithHooks calls HookFrom(ctx).Before/After around Converse.
// If no hook is present in the context, it is a no-op.
func WithHooks() Middleware {
	return func(next Converser) Converser {
		return &hooked{next: next}
	}
}

type hooked struct{ next Converser }

func (h *hooked) Name() string { return h.next.Name() }

func (h *hooked) Converse(ctx context.Context, prompt string, tools mcp.ToolProvider, schema json.RawMessage) (json.RawMessage, error) {
	hook := HookFrom(ctx)
	if hook != nil {
		hook.Before(ctx, PhaseFrom(ctx), prompt)
	}
	raw, err := h.next.Converse(ctx, prompt, tools, schema)
	if hook != nil {
		hook.After(ctx, PhaseFrom(ctx), raw, err)
	}
	return raw, err
}
