package layerstack

import "sync/atomic"

// LayerStack is the externally implemented composition result the registry
// manages. Composition itself (resolving an Identifier into layers) is out
// of scope for this package (spec.md §1); this interface is the contract a
// composition engine's result type must satisfy to participate in the
// registry's lifetime protocol.
//
// Once a LayerStack has been installed by Registry.FindOrCreate, the
// registry treats it as immutable except for the SetRegistry back-link it
// manages itself. A new composition pass producing different Layers/
// MutedLayers is expected to produce a new LayerStack value, not mutate an
// installed one in place.
type LayerStack interface {
	// Identifier returns the composite key this stack was built for.
	Identifier() Identifier
	// Layers returns the resolved, ordered layer list as of the last
	// successful composition.
	Layers() []Layer
	// MutedLayers returns the resolved set of muted layer ids (canonical
	// form) that applied during composition.
	MutedLayers() []string
	// LocalErrors returns composition errors local to this stack. These are
	// appended to a FindOrCreate caller's error list only when this exact
	// instance is the one installed.
	LocalErrors() []error

	// SetRegistry installs (or, with nil, clears) the back-link to the
	// owning registry. Called only by the registry itself, under its write
	// lock at install time and at removal time.
	SetRegistry(r *Registry)
	// Registry returns the current back-link, or nil if this stack is not
	// (or no longer) installed in any registry. Safe to call without a
	// lock: see Base.
	Registry() *Registry
}

// Base is an embeddable helper implementing the SetRegistry/Registry half of
// the LayerStack contract. It stores the back-link as an atomic pointer, a
// weak, non-owning reference in the sense of spec.md §9 ("do not make it
// strong: the registry owns S transitively and a strong cycle would leak"),
// so that Registry.Contains can read it without acquiring the registry's
// lock. Concrete LayerStack implementations embed Base and supply
// Identifier, Layers, MutedLayers, and LocalErrors themselves.
type Base struct {
	registry atomic.Pointer[Registry]
}

// SetRegistry implements LayerStack.
func (b *Base) SetRegistry(r *Registry) {
	b.registry.Store(r)
}

// Registry implements LayerStack.
func (b *Base) Registry() *Registry {
	return b.registry.Load()
}

// Builder constructs a new LayerStack for identifier i, bound to (but not
// yet installed in) registry r. Builder implementations perform the actual
// composition (layer loading, resolver calls, asset resolution) and are
// supplied by the composition engine; the registry never builds a
// LayerStack itself, and never calls Builder while holding its lock
// (spec.md §5).
type Builder func(r *Registry, i Identifier) LayerStack
