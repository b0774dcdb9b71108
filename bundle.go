package vault

import (
	"hash/maphash"
	"sort"
	"unsafe"
)

// ArchetypeID identifies one archetype within a World. It is either a
// caller-supplied stable number or, for bundles built with the NewBundleN
// helpers, a deterministic hash of the bundle's sorted component set.
type ArchetypeID uint64

// Bundle is the caller-facing aggregate handed to Slab.Insert. describe
// returns the bundle's ComponentInfo in ascending-ComponentID order,
// the same order the Slab derives its column layout from, and emplace
// hands the slab, for every component the bundle carries, a pointer to
// source bytes alongside that component's info so the slab can copy
// exactly Size bytes into the right column offset.
type Bundle interface {
	Describe() []ComponentInfo
	ArchetypeID() ArchetypeID
	Emplace(dst func(info ComponentInfo, src unsafe.Pointer))
}

var seedHash = maphash.MakeSeed()

// archetypeIDFromComponents derives a stable ArchetypeID from a sorted
// set of ComponentInfo by hashing the component id set.
func archetypeIDFromComponents(infos []ComponentInfo) ArchetypeID {
	var h maphash.Hash
	h.SetSeed(seedHash)
	for _, info := range infos {
		var buf [8]byte
		id := uint64(info.ID)
		for i := range buf {
			buf[i] = byte(id >> (8 * i))
		}
		h.Write(buf[:])
	}
	return ArchetypeID(h.Sum64())
}

func sortedInfos(infos []ComponentInfo) []ComponentInfo {
	out := make([]ComponentInfo, len(infos))
	copy(out, infos)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// field is one component value held live by a bundle until Emplace
// copies its bytes into a slab row. The escape of ptr keeps v reachable
// for the GC for exactly as long as field itself is reachable, no
// different from holding any other pointer.
type field struct {
	info ComponentInfo
	ptr  unsafe.Pointer
}

func newField[T any](info ComponentInfo) (field, *T) {
	v := new(T)
	return field{info: info, ptr: unsafe.Pointer(v)}, v
}

// bundleN is the shared implementation behind NewBundle1..NewBundle4: an
// ordered, fixed arity list of (ComponentInfo, value) pairs. Go has no
// variadic generics, so arity-specific constructors stand in for a
// single generic construction over tuples.
type bundleN struct {
	infos []ComponentInfo
	ids   ArchetypeID
	raw   []field
}

func (b *bundleN) Describe() []ComponentInfo  { return b.infos }
func (b *bundleN) ArchetypeID() ArchetypeID   { return b.ids }
func (b *bundleN) Emplace(dst func(ComponentInfo, unsafe.Pointer)) {
	for _, f := range b.raw {
		dst(f.info, f.ptr)
	}
}

func newBundleN(fields []field) *bundleN {
	infos := make([]ComponentInfo, len(fields))
	for i, f := range fields {
		infos[i] = f.info
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].info.ID < fields[j].info.ID })
	infos = sortedInfos(infos)
	return &bundleN{
		infos: infos,
		ids:   archetypeIDFromComponents(infos),
		raw:   fields,
	}
}

// NewBundle1 builds a single-component bundle.
func NewBundle1[A any](infoA ComponentInfo, a A) Bundle {
	fa, pa := newField[A](infoA)
	*pa = a
	return newBundleN([]field{fa})
}

// NewBundle2 builds a two-component bundle.
func NewBundle2[A, B any](infoA ComponentInfo, a A, infoB ComponentInfo, b B) Bundle {
	fa, pa := newField[A](infoA)
	*pa = a
	fb, pb := newField[B](infoB)
	*pb = b
	return newBundleN([]field{fa, fb})
}

// NewBundle3 builds a three-component bundle.
func NewBundle3[A, B, C any](infoA ComponentInfo, a A, infoB ComponentInfo, b B, infoC ComponentInfo, c C) Bundle {
	fa, pa := newField[A](infoA)
	*pa = a
	fb, pb := newField[B](infoB)
	*pb = b
	fc, pc := newField[C](infoC)
	*pc = c
	return newBundleN([]field{fa, fb, fc})
}

// NewBundle4 builds a four-component bundle.
func NewBundle4[A, B, C, D any](
	infoA ComponentInfo, a A,
	infoB ComponentInfo, b B,
	infoC ComponentInfo, c C,
	infoD ComponentInfo, d D,
) Bundle {
	fa, pa := newField[A](infoA)
	*pa = a
	fb, pb := newField[B](infoB)
	*pb = b
	fc, pc := newField[C](infoC)
	*pc = c
	fd, pd := newField[D](infoD)
	*pd = d
	return newBundleN([]field{fa, fb, fc, fd})
}
