package vault

// Handle is a thin, copyable reference to one entity inside a specific
// World: just the World pointer and the EntityID the Directory
// generation-checks on every access. A Handle carries no component
// list and no parent/child relationship, moving an entity between
// archetypes after creation, and entity hierarchies, are both out of
// scope here; a Handle only ever names a fixed row in a fixed
// archetype until it is removed.
type Handle struct {
	world *World
	id    EntityID
}

// NewHandle wraps id for world, typically the EntityID returned by
// World.AddEntity.
func NewHandle(world *World, id EntityID) Handle {
	return Handle{world: world, id: id}
}

// ID returns the underlying EntityID.
func (h Handle) ID() EntityID {
	return h.id
}

// Valid reports whether h's EntityID is still live in its World's
// current Directory, false once the entity has been removed, or its
// generation has been recycled out from under this handle.
func (h Handle) Valid() bool {
	if h.world == nil {
		return false
	}
	_, ok := h.world.Directory().ReadLocation(h.id)
	return ok
}

// Location returns h's current archetype and row, if still live.
func (h Handle) Location() (Location, bool) {
	return h.world.Directory().ReadLocation(h.id)
}

// Remove deletes the entity from its World. Calling Remove more than
// once on the same Handle is safe; the second call is a no-op.
func (h Handle) Remove() error {
	return h.world.RemoveEntity(h.id)
}

// BorrowEntityShared acquires a shared handle on component T belonging to the
// entity h names, if it is still live and the archetype carries T.
func BorrowEntityShared[T any](h Handle) (Ref[T], error) {
	loc, ok := h.Location()
	if !ok {
		return Ref[T]{}, RowEmptyError{Row: loc.Row}
	}
	slab, err := h.world.GetArchetype(loc.Archetype)
	if err != nil {
		return Ref[T]{}, err
	}
	return BorrowShared[T](slab, loc.Row)
}

// BorrowEntityExclusive acquires an exclusive handle on component T
// belonging to the entity h names, if it is still live and the
// archetype carries T.
func BorrowEntityExclusive[T any](h Handle) (Mut[T], error) {
	loc, ok := h.Location()
	if !ok {
		return Mut[T]{}, RowEmptyError{Row: loc.Row}
	}
	slab, err := h.world.GetArchetype(loc.Archetype)
	if err != nil {
		return Mut[T]{}, err
	}
	return BorrowExclusive[T](slab, loc.Row)
}
