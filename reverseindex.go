package layerstack

import "github.com/sharedcode/layerstack/internal/ref"

// setLayers publishes newLayers/newMuted as w's current reverse-index
// contribution, withdrawing whatever was previously published for w first.
// It must be called under r.mu held for writing (spec.md §4.3). Passing nil
// for both is how the lifetime bridge clears a stack's contribution on
// removal, without needing to (and without risk of) calling back into a
// stack whose own state may already be mid-teardown.
func (r *Registry) setLayers(w ref.Weak[LayerStack], newLayers []Layer, newMuted []string) {
	for _, l := range r.stackToLayers[w] {
		r.layerToStacks.removeFirst(l, w)
	}
	if len(newLayers) == 0 {
		delete(r.stackToLayers, w)
	} else {
		r.stackToLayers[w] = append([]Layer(nil), newLayers...)
	}
	for _, l := range newLayers {
		r.layerToStacks.append(l, w)
	}

	for m := range r.stackToMutedIDs[w] {
		r.mutedIDToStacks.removeFirst(m, w)
	}
	if len(newMuted) == 0 {
		delete(r.stackToMutedIDs, w)
	} else {
		set := make(map[string]struct{}, len(newMuted))
		for _, m := range newMuted {
			set[m] = struct{}{}
		}
		r.stackToMutedIDs[w] = set
	}
	for _, m := range newMuted {
		r.mutedIDToStacks.append(m, w)
	}
}

// setLayersAndRemove is the lifetime bridge (spec.md §4.4): it runs exactly
// once, as the onZero callback of the Strong handle chain for the stack
// identified by (i, w), once every Handle to that stack has been released.
//
// It unconditionally clears w's reverse-index contribution, even if a
// racing FindOrCreate has already replaced identifierToStack[i] with a new
// instance for the same identifier, and only removes the identifierToStack
// entry itself if it still points at w, so a newer installed instance for
// the same identifier is never evicted by an older one's teardown.
func (r *Registry) setLayersAndRemove(i Identifier, w ref.Weak[LayerStack], s LayerStack) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.setLayers(w, nil, nil)

	if cur, ok := r.identifierToStack[i]; ok && cur == w {
		delete(r.identifierToStack, i)
	}

	s.SetRegistry(nil)
}
