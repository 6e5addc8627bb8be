package layerstack

import (
	"reflect"
	"strings"
	"testing"
)

// pathJoinResolver is a small deterministic Resolver used only by this
// file's tests: a "./"-prefixed assetPath is taken relative to the
// anchor's directory, otherwise assetPath is returned unchanged.
type pathJoinResolver struct{}

func (pathJoinResolver) CreateIdentifier(assetPath, anchorResolvedPath string) string {
	if !strings.HasPrefix(assetPath, "./") {
		return assetPath
	}
	dir := anchorResolvedPath
	if i := strings.LastIndex(dir, "/"); i >= 0 {
		dir = dir[:i+1]
	}
	return dir + assetPath[2:]
}

type fixedLayer struct{ resolvedPath string }

func (l fixedLayer) ResolvedPath() string { return l.resolvedPath }

func TestMuteAndUnmuteCanonicalisation(t *testing.T) {
	m := NewMutedLayers(pathJoinResolver{})
	anchor := fixedLayer{resolvedPath: "/proj/scene.usd"}

	toMute := []string{"./over.usd", "./over.usd", "anon:X"}
	actuallyMuted, actuallyUnmuted := m.MuteAndUnmute(anchor, toMute, nil)

	want := []string{"/proj/over.usd", "anon:X"}
	if !reflect.DeepEqual(actuallyMuted, want) {
		t.Fatalf("actuallyMuted = %v, want %v", actuallyMuted, want)
	}
	if len(actuallyUnmuted) != 0 {
		t.Fatalf("actuallyUnmuted = %v, want empty", actuallyUnmuted)
	}

	// _layers must be sorted ascending.
	layers := append([]string(nil), m.GetMutedLayers()...)
	sorted := append([]string(nil), layers...)
	// manual ascending check, no sort import needed beyond what's already used
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1] > sorted[i] {
			t.Fatalf("GetMutedLayers() not ascending: %v", sorted)
		}
	}

	// A second, identical call is a no-op and yields empty deltas.
	actuallyMuted2, actuallyUnmuted2 := m.MuteAndUnmute(anchor, toMute, nil)
	if len(actuallyMuted2) != 0 || len(actuallyUnmuted2) != 0 {
		t.Fatalf("repeated MuteAndUnmute was not a no-op: muted=%v unmuted=%v", actuallyMuted2, actuallyUnmuted2)
	}
}

func TestMuteUnmuteRoundTrip(t *testing.T) {
	m := NewMutedLayers(pathJoinResolver{})
	anchor := fixedLayer{resolvedPath: "/proj/scene.usd"}

	before := append([]string(nil), m.GetMutedLayers()...)

	muted, _ := m.MuteAndUnmute(anchor, []string{"./a.usd"}, nil)
	if len(muted) != 1 {
		t.Fatalf("expected one layer muted, got %v", muted)
	}
	if _, ok := m.IsLayerMuted(anchor, "./a.usd"); !ok {
		t.Fatal("expected ./a.usd to be muted")
	}

	_, unmuted := m.MuteAndUnmute(anchor, nil, []string{"./a.usd"})
	if len(unmuted) != 1 {
		t.Fatalf("expected one layer unmuted, got %v", unmuted)
	}
	if _, ok := m.IsLayerMuted(anchor, "./a.usd"); ok {
		t.Fatal("expected ./a.usd to no longer be muted")
	}

	after := append([]string(nil), m.GetMutedLayers()...)
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("GetMutedLayers() after round-trip = %v, want %v", after, before)
	}
}

func TestUnmuteAbsentIsNoOp(t *testing.T) {
	m := NewMutedLayers(pathJoinResolver{})
	anchor := fixedLayer{resolvedPath: "/proj/scene.usd"}

	_, unmuted := m.MuteAndUnmute(anchor, nil, []string{"./never-muted.usd"})
	if len(unmuted) != 0 {
		t.Fatalf("unmuting an absent id returned %v, want empty", unmuted)
	}
}

func TestIsLayerMutedEmptyFastPath(t *testing.T) {
	m := NewMutedLayers(pathJoinResolver{})
	anchor := fixedLayer{resolvedPath: "/proj/scene.usd"}
	if _, ok := m.IsLayerMuted(anchor, "anything"); ok {
		t.Fatal("expected IsLayerMuted to report false on an empty set")
	}
}

func TestAnonymousLayerIsOwnCanonicalForm(t *testing.T) {
	m := NewMutedLayers(pathJoinResolver{})
	anchor := fixedLayer{resolvedPath: "/proj/scene.usd"}

	muted, _ := m.MuteAndUnmute(anchor, []string{"anon:abc"}, nil)
	if len(muted) != 1 || muted[0] != "anon:abc" {
		t.Fatalf("anonymous layer id was canonicalised to %v, want [anon:abc]", muted)
	}
}
