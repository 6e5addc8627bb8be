package layerstack

// multiList is a map of ordered, possibly-duplicate-containing value lists
// keyed by K, used for the layerToStacks and mutedIDToStacks reverse
// indices (spec.md §4.3); stackToLayers and stackToMutedIDs are plain maps
// replaced wholesale by setLayers. A value may
// logically appear more than once under the same key, and removal always
// targets the first occurrence to balance a prior append, never a
// set-difference. An empty list is never left behind as a dangling entry.
//
// This mirrors the generic Cache[TK, TV] style the teacher codebase uses for
// its MRU cache (github.com/SharedCode/sop/cache), applied here to the
// registry's two structurally identical one-to-many reverse-index maps
// instead of hand-duplicating the same append/remove-first-occurrence logic
// twice.
type multiList[K comparable, V comparable] struct {
	m map[K][]V
}

func newMultiList[K comparable, V comparable]() *multiList[K, V] {
	return &multiList[K, V]{m: make(map[K][]V)}
}

// get returns the list for k, or nil if k is absent. The caller must not
// mutate the result.
func (ml *multiList[K, V]) get(k K) []V {
	return ml.m[k]
}

// append adds v to the end of k's list.
func (ml *multiList[K, V]) append(k K, v V) {
	ml.m[k] = append(ml.m[k], v)
}

// removeFirst removes the first occurrence of v from k's list, if present,
// preserving any remaining multiplicity. It erases k's entry entirely once
// its list becomes empty, rather than leaving a dangling empty slice.
func (ml *multiList[K, V]) removeFirst(k K, v V) {
	list, ok := ml.m[k]
	if !ok {
		return
	}
	for i, x := range list {
		if x == v {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(ml.m, k)
	} else {
		ml.m[k] = list
	}
}
