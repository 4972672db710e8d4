package render

import (
	"bytes"
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/start/pkg/vdom"
)

// maxConcurrentBoundaries bounds the loaders running at once per request.
const maxConcurrentBoundaries = 16

// awaiter resolves every suspense boundary before the document is emitted.
// Each pass renders the tree, starting the boundaries it has not seen yet;
// passes repeat until a pass starts none, so boundaries nested in resolved
// content are awaited too.
type awaiter struct {
	ctx    context.Context
	logger *slog.Logger

	mu       sync.Mutex
	resolved map[*vdom.VNode]*vdom.VNode
	started  map[*vdom.VNode]bool

	group    *errgroup.Group
	launched int
}

func newAwaiter(ctx context.Context, logger *slog.Logger) *awaiter {
	return &awaiter{
		ctx:      ctx,
		logger:   logger,
		resolved: make(map[*vdom.VNode]*vdom.VNode),
		started:  make(map[*vdom.VNode]bool),
	}
}

func (a *awaiter) suspense(r *renderer, buf *bytes.Buffer, node *vdom.VNode) error {
	a.mu.Lock()
	out, done := a.resolved[node]
	a.mu.Unlock()
	if done {
		return r.render(buf, out)
	}

	if !a.started[node] && a.ctx.Err() == nil {
		a.started[node] = true
		a.launched++
		a.group.Go(func() error {
			out, err := resolve(a.ctx, node)
			if err != nil {
				a.logger.Warn("suspense boundary failed, keeping fallback", "error", err)
				out = node.Fallback
			}
			a.mu.Lock()
			a.resolved[node] = out
			a.mu.Unlock()
			return nil
		})
	}
	return r.render(buf, node.Fallback)
}

// render renders root until every reachable boundary has resolved or ctx
// is done. Boundaries still pending at that point keep their fallback.
func (a *awaiter) render(r *renderer, root *vdom.VNode) ([]byte, error) {
	for {
		a.group = new(errgroup.Group)
		a.group.SetLimit(maxConcurrentBoundaries)
		a.launched = 0

		var buf bytes.Buffer
		if err := r.render(&buf, root); err != nil {
			return nil, err
		}
		if a.launched == 0 {
			return buf.Bytes(), nil
		}

		waited := make(chan struct{})
		go func() {
			a.group.Wait()
			close(waited)
		}()
		select {
		case <-waited:
		case <-a.ctx.Done():
			a.logger.Warn("awaited render timed out, rendering pending boundaries as fallback", "error", a.ctx.Err())
			// One more pass renders whatever resolved, launching nothing.
			buf.Reset()
			if err := r.render(&buf, root); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		}
	}
}
