package layerstack

import "sort"

// MutedLayers canonicalises and maintains a sorted, duplicate-free set of
// muted layer identifiers. It is not internally synchronised: the Registry
// serialises MuteAndUnmute behind its own write lock (see Registry's lock
// discipline in spec.md §5), and readers of GetMutedLayers/IsLayerMuted that
// go through the Registry get the same protection. A bare *MutedLayers used
// outside a Registry must be externally synchronised by its caller.
type MutedLayers struct {
	resolver Resolver
	// layers is strictly ascending and duplicate-free; every entry is the
	// canonical form for the anchor it was inserted with (see canon).
	layers []string
}

// NewMutedLayers creates an empty MutedLayers using resolver for
// canonicalisation.
func NewMutedLayers(resolver Resolver) *MutedLayers {
	return &MutedLayers{resolver: resolver}
}

// canon canonicalises id relative to anchor: the anonymous-layer form is
// returned unchanged (it is its own canonical form and not subject to path
// resolution); otherwise the resolver composes id against anchor's resolved
// path. This uses anchor's resolved path *at the time of the call*; if the
// anchor later re-resolves elsewhere, already-stored canonical ids are not
// retroactively updated. That is a deliberate, preserved limitation (see
// SPEC_FULL.md §12), not a bug to silently fix.
func canon(resolver Resolver, anchor Layer, id string) string {
	if IsAnonymousLayerIdentifier(id) {
		return id
	}
	return resolver.CreateIdentifier(id, anchor.ResolvedPath())
}

// MuteAndUnmute canonicalises every id in toMute and toUnmute relative to
// anchor, applies the net change to the muted set, and returns the ids that
// actually changed state in canonical form. Muting an already-muted id (or
// unmuting one that isn't muted) is filtered out of the corresponding
// returned slice, so a repeated call with the same input returns two empty
// slices.
func (m *MutedLayers) MuteAndUnmute(anchor Layer, toMute, toUnmute []string) (actuallyMuted, actuallyUnmuted []string) {
	for _, raw := range toMute {
		c := canon(m.resolver, anchor, raw)
		i := sort.SearchStrings(m.layers, c)
		if i < len(m.layers) && m.layers[i] == c {
			continue
		}
		m.layers = append(m.layers, "")
		copy(m.layers[i+1:], m.layers[i:])
		m.layers[i] = c
		actuallyMuted = append(actuallyMuted, c)
	}

	for _, raw := range toUnmute {
		c := canon(m.resolver, anchor, raw)
		i := sort.SearchStrings(m.layers, c)
		if i >= len(m.layers) || m.layers[i] != c {
			continue
		}
		m.layers = append(m.layers[:i], m.layers[i+1:]...)
		actuallyUnmuted = append(actuallyUnmuted, c)
	}

	return actuallyMuted, actuallyUnmuted
}

// GetMutedLayers returns the current canonical, sorted, duplicate-free set
// of muted layer identifiers. The caller must not mutate the result.
func (m *MutedLayers) GetMutedLayers() []string {
	return m.layers
}

// IsLayerMuted reports whether id, canonicalised relative to anchor, is
// currently muted, returning the canonical form when it is.
func (m *MutedLayers) IsLayerMuted(anchor Layer, id string) (canonical string, muted bool) {
	if len(m.layers) == 0 {
		return "", false
	}
	c := canon(m.resolver, anchor, id)
	i := sort.SearchStrings(m.layers, c)
	if i < len(m.layers) && m.layers[i] == c {
		return c, true
	}
	return "", false
}
