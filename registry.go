package layerstack

import (
	"fmt"
	"sync"

	"github.com/sharedcode/layerstack/internal/ref"
)

// Handle is a strong, owning reference to a LayerStack returned by
// Registry.FindOrCreate: as long as a Handle (or a Clone of one) is held,
// the registry will not tear the stack down. Callers must Release a Handle
// once done with it; this package has no finalizers standing in for that.
// Garbage collection reclaims the underlying memory once nothing (strong or
// weak) points to it anymore, but the registry's own bookkeeping (reverse
// indices, the identifierToStack entry) is only cleared by an explicit
// Release reaching zero, per spec.md's lifetime protocol.
type Handle struct {
	strong ref.Strong[LayerStack]
}

// Valid reports whether h refers to a live handle. The zero Handle (as
// returned by a failed FindOrCreate) is not valid.
func (h Handle) Valid() bool {
	return h.strong.Valid()
}

// Stack returns the underlying LayerStack.
func (h Handle) Stack() LayerStack {
	return h.strong.Get()
}

// Clone returns an additional owning Handle to the same stack; it too must
// eventually be Released.
func (h Handle) Clone() Handle {
	return Handle{strong: h.strong.Clone()}
}

// Release drops this Handle's contribution to the stack's reference count.
// Once every Handle (across every caller) has been released, the registry's
// lifetime bridge runs: reverse indices are cleared and, if no racing
// FindOrCreate has replaced the table entry, it is removed.
func (h Handle) Release() {
	h.strong.Release()
}

// Registry is the identifier-keyed, deduplicating table of live layer
// stacks plus its reverse indices and mute state (spec.md §2, §3, §4.2).
// All shared state is guarded by mu; rootID, fileFormatTarget, and isUsd are
// immutable after New and may be read without the lock.
type Registry struct {
	rootID           Identifier
	fileFormatTarget string
	isUsd            bool

	build       Builder
	diagnostics Diagnostics

	mu                sync.RWMutex
	identifierToStack map[Identifier]ref.Weak[LayerStack]
	layerToStacks     *multiList[Layer, ref.Weak[LayerStack]]
	stackToLayers     map[ref.Weak[LayerStack]][]Layer
	mutedIDToStacks   *multiList[string, ref.Weak[LayerStack]]
	stackToMutedIDs   map[ref.Weak[LayerStack]]map[string]struct{}
	mutedLayers       *MutedLayers
}

// New creates a Registry. rootID, fileFormatTarget, and isUsd are immutable
// for the registry's lifetime. resolver is used only by the registry's
// MutedLayers state; build is invoked, unlocked, by FindOrCreate on a table
// miss. diagnostics may be nil, in which case SlogDiagnostics{} is used.
func New(rootID Identifier, fileFormatTarget string, isUsd bool, resolver Resolver, build Builder, diagnostics Diagnostics) *Registry {
	if diagnostics == nil {
		diagnostics = SlogDiagnostics{}
	}
	return &Registry{
		rootID:            rootID,
		fileFormatTarget:  fileFormatTarget,
		isUsd:             isUsd,
		build:             build,
		diagnostics:       diagnostics,
		identifierToStack: make(map[Identifier]ref.Weak[LayerStack]),
		layerToStacks:     newMultiList[Layer, ref.Weak[LayerStack]](),
		stackToLayers:     make(map[ref.Weak[LayerStack]][]Layer),
		mutedIDToStacks:   newMultiList[string, ref.Weak[LayerStack]](),
		stackToMutedIDs:   make(map[ref.Weak[LayerStack]]map[string]struct{}),
		mutedLayers:       NewMutedLayers(resolver),
	}
}

// RootIdentifier returns the registry's immutable root identifier.
func (r *Registry) RootIdentifier() Identifier { return r.rootID }

// FileFormatTarget returns the registry's immutable file-format target.
func (r *Registry) FileFormatTarget() string { return r.fileFormatTarget }

// IsUsd returns the registry's immutable usd-mode flag.
func (r *Registry) IsUsd() bool { return r.isUsd }

// Find looks up i and returns the currently installed LayerStack, if any.
// Unlike FindOrCreate, Find does not hand out an owning Handle: it is a
// weak, observational read (spec.md §4.2) suited to existence checks, not
// to keeping a stack alive. If the caller needs the stack to stay alive,
// call FindOrCreate instead.
func (r *Registry) Find(i Identifier) (LayerStack, bool) {
	r.mu.RLock()
	w, ok := r.identifierToStack[i]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	s, upgraded := w.Upgrade()
	if !upgraded {
		return nil, false
	}
	v := s.Get()
	s.Release()
	return v, true
}

// FindOrCreate returns the unique live layer stack for i, building one via
// Builder if none currently exists. If i is invalid, it reports a coding
// error through Diagnostics (tagged InvalidIdentifierErrorCode) and returns
// the zero Handle (Valid() == false); this case is never reported through
// errs. errs instead accumulates two other kinds of Error: a
// BuilderPanicErrorCode if Builder itself panics (the panic is recovered and
// no stack is installed), and a CompositionErrorCode per entry in a newly,
// successfully installed stack's LocalErrors.
//
// Two goroutines calling FindOrCreate(i) concurrently may both invoke
// Builder, but only one resulting LayerStack is installed; the loser's
// transient stack is discarded, unobserved by any index (spec.md §5).
func (r *Registry) FindOrCreate(i Identifier, errs *[]error) Handle {
	if !i.Valid() {
		r.diagnostics.CodingError("layerstack: FindOrCreate called with an invalid identifier (code=%d)", InvalidIdentifierErrorCode)
		return Handle{}
	}

	r.mu.RLock()
	w, ok := r.identifierToStack[i]
	r.mu.RUnlock()
	if ok {
		if s, upgraded := w.Upgrade(); upgraded {
			return Handle{strong: s}
		}
	}

	// Construct outside the lock: this may do arbitrary work (resolver
	// calls, layer loading) and must never run while mu is held.
	created, buildErr := r.buildSafely(i)
	if buildErr != nil {
		if errs != nil {
			*errs = append(*errs, buildErr)
		}
		return Handle{}
	}

	r.mu.Lock()
	if w, ok := r.identifierToStack[i]; ok {
		if s, upgraded := w.Upgrade(); upgraded {
			r.mu.Unlock()
			// A racing writer already installed a different instance;
			// adopt it and let created be discarded.
			return Handle{strong: s}
		}
	}

	var selfWeak ref.Weak[LayerStack]
	strong := ref.New[LayerStack](created, func(s LayerStack) {
		r.setLayersAndRemove(i, selfWeak, s)
	})
	selfWeak = strong.Weak()

	r.identifierToStack[i] = selfWeak
	created.SetRegistry(r)
	r.setLayers(selfWeak, created.Layers(), created.MutedLayers())
	r.mu.Unlock()

	if errs != nil {
		if localErrs := created.LocalErrors(); len(localErrs) > 0 {
			for _, e := range localErrs {
				*errs = append(*errs, Error{Code: CompositionErrorCode, Err: e, UserData: i})
			}
		}
	}
	return Handle{strong: strong}
}

// buildSafely runs Builder, recovering a panic into a BuilderPanicErrorCode
// Error rather than letting it unwind through the registry's internals.
func (r *Registry) buildSafely(i Identifier) (s LayerStack, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = Error{Code: BuilderPanicErrorCode, Err: fmt.Errorf("layerstack: builder panicked: %v", p), UserData: i}
		}
	}()
	return r.build(r, i), nil
}

// Contains reports whether s is currently installed in r. It is lock-free:
// s's back-link is set once, under r's write lock, at install time, and
// cleared, also under the write lock, at removal, so a pointer-valued
// comparison against a stable address is safe without synchronization here
// (spec.md §5).
func (r *Registry) Contains(s LayerStack) bool {
	return s != nil && s.Registry() == r
}

// FindAllUsingLayer returns the stacks currently referencing l. Stacks that
// have since been released are silently omitted rather than returned dead.
func (r *Registry) FindAllUsingLayer(l Layer) []LayerStack {
	r.mu.RLock()
	weaks := r.layerToStacks.get(l)
	snapshot := append([]ref.Weak[LayerStack](nil), weaks...)
	r.mu.RUnlock()
	return upgradeAll(snapshot)
}

// FindAllUsingMutedLayer returns the stacks whose muted-layer set currently
// contains the canonical id m.
func (r *Registry) FindAllUsingMutedLayer(m string) []LayerStack {
	r.mu.RLock()
	weaks := r.mutedIDToStacks.get(m)
	snapshot := append([]ref.Weak[LayerStack](nil), weaks...)
	r.mu.RUnlock()
	return upgradeAll(snapshot)
}

// GetAllLayerStacks returns a snapshot of every currently installed stack.
func (r *Registry) GetAllLayerStacks() []LayerStack {
	r.mu.RLock()
	weaks := make([]ref.Weak[LayerStack], 0, len(r.identifierToStack))
	for _, w := range r.identifierToStack {
		weaks = append(weaks, w)
	}
	r.mu.RUnlock()
	return upgradeAll(weaks)
}

// ForEachLayerStack invokes fn once per currently installed stack. It
// snapshots the table first and releases the lock before calling fn, so fn
// may safely call back into the registry (including FindOrCreate) without
// deadlocking or observing a mid-mutation state.
func (r *Registry) ForEachLayerStack(fn func(LayerStack)) {
	for _, s := range r.GetAllLayerStacks() {
		fn(s)
	}
}

// MuteAndUnmuteLayers canonicalises and applies toMute/toUnmute relative to
// anchor against the registry-wide muted set, returning the ids that
// actually changed state. Recomposing stacks affected by the change is the
// caller's responsibility, informed by FindAllUsingMutedLayer.
func (r *Registry) MuteAndUnmuteLayers(anchor Layer, toMute, toUnmute []string) (actuallyMuted, actuallyUnmuted []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mutedLayers.MuteAndUnmute(anchor, toMute, toUnmute)
}

// GetMutedLayers returns the current canonical, sorted, duplicate-free set
// of muted layer identifiers.
func (r *Registry) GetMutedLayers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.mutedLayers.GetMutedLayers()...)
}

// IsLayerMuted reports whether id, canonicalised relative to anchor, is
// currently muted.
func (r *Registry) IsLayerMuted(anchor Layer, id string) (canonical string, muted bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mutedLayers.IsLayerMuted(anchor, id)
}

// upgradeAll upgrades each weak reference that is still live, releasing the
// temporary strong handle immediately after extracting its value; dead
// entries are silently dropped.
func upgradeAll(weaks []ref.Weak[LayerStack]) []LayerStack {
	if len(weaks) == 0 {
		return nil
	}
	out := make([]LayerStack, 0, len(weaks))
	for _, w := range weaks {
		if s, ok := w.Upgrade(); ok {
			out = append(out, s.Get())
			s.Release()
		}
	}
	return out
}
