// Package layerstack implements a concurrent, deduplicating registry of layer
// stacks for a scene-composition engine. A layer stack is a composed,
// ordered bundle of source layers identified by a composite Identifier; the
// registry finds or builds the unique live stack for an identifier and keeps
// reverse indices from layers (and muted layer ids) back to the stacks that
// reference them, so that a changed layer can be mapped to affected stacks
// without a scan.
//
// The composition algorithm that actually resolves an Identifier into a
// LayerStack, asset resolution, and diagnostics plumbing beyond a minimal
// sink are external collaborators; this package only owns the registry
// table, its reverse indices, the muted-layer set, and the lifetime
// protocol that keeps lookup, creation, and destruction race-free.
package layerstack
