package vault

import (
	"fmt"
	"reflect"
	"unsafe"
)

// ComponentInfo carries everything a Slab needs to lay out and tear down
// one component column: its stable ComponentID, its size and alignment
// in bytes, and a destructor thunk invoked on a row's raw bytes exactly
// once, at row removal or archetype teardown.
type ComponentInfo struct {
	ID    ComponentID
	Name  string
	Size  uintptr
	Align uintptr
	Drop  func(unsafe.Pointer)
}

var componentInfoCache = NewSimpleCache[ComponentInfo](1 << 16)

// NewComponent registers T as a component type (idempotently, calling
// it again for the same T returns the same ComponentInfo) and returns
// its metadata. Size and alignment come from Go's own type layout; the
// destructor thunk zeroes the value in place so any pointers, slices, or
// interfaces it holds become collectible, satisfying the "safe to move
// via byte copy" component contract.
func NewComponent[T any]() ComponentInfo {
	var zero T
	name := reflect.TypeOf((*T)(nil)).Elem().String()

	if idx, ok := componentInfoCache.GetIndex(name); ok {
		return *componentInfoCache.GetItem(idx)
	}

	info := ComponentInfo{
		ID:    componentIDFor(reflect.TypeOf((*T)(nil)).Elem()),
		Name:  name,
		Size:  unsafe.Sizeof(zero),
		Align: unsafe.Alignof(zero),
		Drop:  dropThunk[T],
	}

	idx, err := componentInfoCache.Register(name, info)
	if err != nil {
		// The cache is only out of room if an implementation registers
		// tens of thousands of distinct component types; treat that as
		// the fatal, contract-violation condition it almost certainly is.
		panic(fmt.Errorf("vault: component registry exhausted: %w", err))
	}
	return *componentInfoCache.GetItem(idx)
}

// dropThunk zeroes the T stored at ptr, run by a Slab exactly once per
// live value at row removal or archetype teardown.
func dropThunk[T any](ptr unsafe.Pointer) {
	var zero T
	*(*T)(ptr) = zero
}
