package vault

import "fmt"

// BusyError signals contention: the caller should retry later. It is
// never logged or retried inside the core itself.
type BusyError struct{}

func (e BusyError) Error() string {
	return "slot is busy"
}

// ArchetypeNotFoundError is returned when an archetype id has no
// registered slab, including while that slab has been taken out for a
// resize (see World.TakeArchetype).
type ArchetypeNotFoundError struct {
	ArchetypeID ArchetypeID
}

func (e ArchetypeNotFoundError) Error() string {
	return fmt.Sprintf("archetype %d not found", e.ArchetypeID)
}

// ArchetypeFullError is returned when a slab has no free slot and no
// remaining capacity; the caller is expected to drive a resize.
type ArchetypeFullError struct {
	ArchetypeID ArchetypeID
}

func (e ArchetypeFullError) Error() string {
	return fmt.Sprintf("archetype %d is full", e.ArchetypeID)
}

// DirectoryFullError is returned when the entity directory has no room
// for another id; the caller is expected to drive World.GrowDirectory.
type DirectoryFullError struct{}

func (e DirectoryFullError) Error() string {
	return "entity directory is full"
}

// DirectoryLockedError is returned when the directory is mid-reallocation;
// the caller should refresh its World reference and retry.
type DirectoryLockedError struct{}

func (e DirectoryLockedError) Error() string {
	return "entity directory is locked for reallocation"
}

// SignatureMismatchError is a fatal, programmer-error condition: a
// bundle's component set does not match the slab it was handed to.
type SignatureMismatchError struct {
	ArchetypeID ArchetypeID
}

func (e SignatureMismatchError) Error() string {
	return fmt.Sprintf("bundle signature does not match archetype %d", e.ArchetypeID)
}

// RowEmptyError is returned by a borrow attempt against a row that does
// not currently hold a live entity.
type RowEmptyError struct {
	ArchetypeID ArchetypeID
	Row         uint32
}

func (e RowEmptyError) Error() string {
	return fmt.Sprintf("row %d of archetype %d holds no entity", e.Row, e.ArchetypeID)
}

// ComponentNotInArchetypeError is returned when a borrow names a
// component the target archetype's slab does not carry.
type ComponentNotInArchetypeError struct {
	ArchetypeID ArchetypeID
	ComponentID ComponentID
}

func (e ComponentNotInArchetypeError) Error() string {
	return fmt.Sprintf("component %d is not part of archetype %d", e.ComponentID, e.ArchetypeID)
}
