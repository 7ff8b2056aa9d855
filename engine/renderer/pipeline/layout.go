package pipeline

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/lumen/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/lumen/engine/renderer/shader"
)

// Forward pass bind group indices.
const (
	MaterialGroup = 0
	CameraGroup   = 1
	LightGroup    = 2
)

// ErrLayoutMismatch is wrapped by every LayoutError.
var ErrLayoutMismatch = errors.New("binding layout mismatch")

// Slot addresses one binding of one bind group.
type Slot struct {
	Group   int
	Binding int
}

func (s Slot) String() string {
	return fmt.Sprintf("@group(%d) @binding(%d)", s.Group, s.Binding)
}

func compareSlots(a, b Slot) int {
	if c := cmp.Compare(a.Group, b.Group); c != 0 {
		return c
	}
	return cmp.Compare(a.Binding, b.Binding)
}

// Layout maps every binding slot a draw uses to the kind of resource bound there.
type Layout map[Slot]bind_group_provider.BindingKind

// ExpectedLayout returns the slots a variant's shaders must declare and its providers must fill.
// Every variant binds the material texture and sampler in group 0 and the camera uniform read
// by the shared vertex stage in group 1. The lit variants add the light data in group 2: a
// uniform Light for SingleLight, a read-only storage array of f32 for MultiLight.
//
// Parameters:
//   - v: the variant
//
// Returns:
//   - Layout: the expected layout
func ExpectedLayout(v Variant) Layout {
	l := Layout{
		{MaterialGroup, 0}: bind_group_provider.BindingKindTexture2D,
		{MaterialGroup, 1}: bind_group_provider.BindingKindSampler,
		{CameraGroup, 0}:   bind_group_provider.BindingKindUniform,
	}
	switch v {
	case VariantSingleLight:
		l[Slot{LightGroup, 0}] = bind_group_provider.BindingKindUniform
	case VariantMultiLight:
		l[Slot{LightGroup, 0}] = bind_group_provider.BindingKindReadOnlyStorage
	}
	return l
}

// LayoutFromShaders merges the bind group layouts parsed from a set of shaders. Nil shaders are
// skipped. A slot declared by several stages keeps the first stage's kind; a disagreeing kind
// is recorded as BindingKindUnknown so the layout never matches an expected one.
//
// Parameters:
//   - shaders: the pipeline stages, usually the vertex and fragment shader
//
// Returns:
//   - Layout: the declared layout
func LayoutFromShaders(shaders ...shader.Shader) Layout {
	l := Layout{}
	for _, s := range shaders {
		if s == nil {
			continue
		}
		for group, desc := range s.BindGroupLayoutDescriptors() {
			for _, e := range desc.Entries {
				slot := Slot{group, int(e.Binding)}
				kind := bind_group_provider.KindOf(e)
				if prev, ok := l[slot]; ok && prev != kind {
					kind = bind_group_provider.BindingKindUnknown
				}
				l[slot] = kind
			}
		}
	}
	return l
}

// LayoutFromProviders builds the layout filled by a set of providers keyed by group index.
//
// Parameters:
//   - providers: the bind group providers of a draw, keyed by group index
//
// Returns:
//   - Layout: the provided layout
func LayoutFromProviders(providers map[int]bind_group_provider.BindGroupProvider) Layout {
	l := Layout{}
	for group, p := range providers {
		if p == nil {
			continue
		}
		for binding, kind := range p.Entries() {
			l[Slot{group, binding}] = kind
		}
	}
	return l
}

// Slots returns the layout's slots ordered by group then binding.
func (l Layout) Slots() []Slot {
	return slices.SortedFunc(maps.Keys(l), compareSlots)
}

// Groups returns the distinct group indices of the layout in ascending order.
func (l Layout) Groups() []int {
	var groups []int
	for _, s := range l.Slots() {
		if len(groups) == 0 || groups[len(groups)-1] != s.Group {
			groups = append(groups, s.Group)
		}
	}
	return groups
}

// Compatible reports whether other fills exactly the slots of l with the same kinds.
//
// Parameters:
//   - other: the layout to check against l
//
// Returns:
//   - error: nil if the layouts match, otherwise a *LayoutError wrapping ErrLayoutMismatch
func (l Layout) Compatible(other Layout) error {
	le := &LayoutError{}
	for _, slot := range l.Slots() {
		got, ok := other[slot]
		switch {
		case !ok:
			le.Missing = append(le.Missing, slot)
		case got != l[slot]:
			le.Mismatched = append(le.Mismatched, KindMismatch{Slot: slot, Want: l[slot], Got: got})
		}
	}
	for _, slot := range other.Slots() {
		if _, ok := l[slot]; !ok {
			le.Unexpected = append(le.Unexpected, slot)
		}
	}
	if len(le.Missing)+len(le.Unexpected)+len(le.Mismatched) == 0 {
		return nil
	}
	return le
}

// KindMismatch is a slot present in both layouts with different kinds.
type KindMismatch struct {
	Slot Slot
	Want bind_group_provider.BindingKind
	Got  bind_group_provider.BindingKind
}

// LayoutError lists every difference found by Layout.Compatible, each slice ordered by slot.
type LayoutError struct {
	// Missing slots are expected but absent.
	Missing []Slot
	// Unexpected slots are present but not expected.
	Unexpected []Slot
	// Mismatched slots are present with the wrong kind.
	Mismatched []KindMismatch
}

func (e *LayoutError) Error() string {
	var parts []string
	for _, s := range e.Missing {
		parts = append(parts, "missing "+s.String())
	}
	for _, s := range e.Unexpected {
		parts = append(parts, "unexpected "+s.String())
	}
	for _, m := range e.Mismatched {
		parts = append(parts, fmt.Sprintf("%s is %s, want %s", m.Slot, m.Got, m.Want))
	}
	return ErrLayoutMismatch.Error() + ": " + strings.Join(parts, "; ")
}

func (e *LayoutError) Unwrap() error {
	return ErrLayoutMismatch
}
