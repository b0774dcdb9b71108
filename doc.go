/*
Package vault provides the storage core of a concurrent archetype-based
Entity-Component-System.

Vault groups entities by the exact set of component types they carry
(their "archetype") into contiguous, row-major slabs, and exposes safe
shared/exclusive borrows of individual component values under concurrent
access. Slabs can grow in place while readers are present elsewhere in
the system, coordinated by a quiescence check over every row's lock
state.

Core Concepts:

  - EntityID: a generational, stable identifier for one entity.
  - ComponentInfo: per-type metadata (size, alignment, destructor) used
    to lay out a slab's columns.
  - Bundle: the caller-supplied aggregate of component values emplaced
    into a slab row at insert time.
  - Slab: the columnar arena for one archetype, with per-field borrow
    bytes and a resize protocol.
  - Directory: the id -> (archetype, slot) table.
  - World: owns one Directory and the map of archetype id -> Slab.

Basic Usage:

	w := vault.Factory.NewWorld(0)

	position := vault.NewComponent[Position]()
	health := vault.NewComponent[Health]()

	bundle := vault.NewBundle2(position, Position{X: 1, Y: 2}, health, Health{HP: 10})

	id, err := w.AddEntity(bundle)
	if err != nil {
		// handle vault.ArchetypeFullError, vault.DirectoryFullError, ...
	}

	loc, _ := w.Directory().ReadLocation(id)
	slab, _ := w.GetArchetype(loc.Archetype)
	ref, err := vault.BorrowShared[Position](slab, loc.Row)
	if err == nil {
		defer ref.Release()
		_ = ref.Get()
	}

Vault does not include a query planner, a system scheduler, or
serialization; those are expected to live in a layer above it.
*/
package vault
