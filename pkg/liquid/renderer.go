package liquid

import (
	"context"
	"fmt"
	"time"

	"github.com/osteele/liquid"
)

const (
	DefaultRenderTimeout   = 2 * time.Second
	DefaultMaxTemplateSize = 64 * 1024
)

// Renderer renders user-authored liquid templates with a size cap and a deadline
type Renderer struct {
	engine  *liquid.Engine
	timeout time.Duration
	maxSize int
}

func NewRenderer() *Renderer {
	return NewRendererWithLimits(DefaultRenderTimeout, DefaultMaxTemplateSize)
}

func NewRendererWithLimits(timeout time.Duration, maxSize int) *Renderer {
	return &Renderer{
		engine:  liquid.NewEngine(),
		timeout: timeout,
		maxSize: maxSize,
	}
}

// Render parses and renders the template against bindings. The render runs in its
// own goroutine; if ctx or the renderer timeout fires first an error is returned.
func (r *Renderer) Render(ctx context.Context, template string, bindings map[string]interface{}) (string, error) {
	if len(template) > r.maxSize {
		return "", fmt.Errorf("template size (%d bytes) exceeds maximum allowed size (%d bytes)", len(template), r.maxSize)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- result{err: fmt.Errorf("panic during liquid rendering: %v", rec)}
			}
		}()
		out, err := r.engine.ParseAndRenderString(template, bindings)
		if err != nil {
			done <- result{err: fmt.Errorf("liquid rendering failed: %w", err)}
			return
		}
		done <- result{out: out}
	}()

	select {
	case res := <-done:
		return res.out, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("liquid rendering aborted: %w", ctx.Err())
	}
}
