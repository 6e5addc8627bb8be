package layerstack

// Identifier is the opaque, composite key naming a layer stack: a root
// layer together with an optional session layer and variant-selection
// context. Concrete Identifier implementations must be comparable (usable
// as a Go map key) since the registry keys identifierToStack by Identifier.
//
// An Identifier is valid or invalid; invalid identifiers can never be
// registered (see Registry.FindOrCreate).
type Identifier interface {
	Valid() bool
}
