package layerstack

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEachLayerStackConcurrent is a supplemental, parallel-fan-out variant of
// ForEachLayerStack: it snapshots the table exactly as ForEachLayerStack
// does, then invokes fn over the snapshot concurrently via errgroup. Every
// call is started; the first error cancels the ctx passed to fn, and that
// error is returned once all calls have finished. spec.md's own
// forEachLayerStack stays strictly sequential (ForEachLayerStack, in
// registry.go);
// this exists for callers (e.g. recomposing every stack affected by a
// mute-set change) that want to fan the snapshot out across goroutines
// without re-implementing the snapshot-then-iterate discipline themselves.
func (r *Registry) ForEachLayerStackConcurrent(ctx context.Context, fn func(context.Context, LayerStack) error) error {
	stacks := r.GetAllLayerStacks()

	g, ctx := errgroup.WithContext(ctx)
	for _, s := range stacks {
		s := s
		g.Go(func() error {
			return fn(ctx, s)
		})
	}
	return g.Wait()
}
