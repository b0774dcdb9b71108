package vault

import (
	"sync"
	"sync/atomic"
)

// EntityID names one logical entity: Index selects a directory slot and
// Generation disambiguates that slot across reuse. A stale EntityID
// whose Generation no longer matches the slot's current generation is
// rejected by every Directory lookup, grounded on entity.rs/
// entity_set.rs's generational handle scheme.
type EntityID struct {
	Index      uint32
	Generation uint32
}

// Location names where an entity's row currently lives.
type Location struct {
	Archetype ArchetypeID
	Row       uint32
}

type entityMeta struct {
	generation uint32
	inUse      bool
	location   Location
}

// newEntityMetas builds n fresh, never-allocated slots, each starting at
// generation 1 (0 is reserved to mean "never allocated").
func newEntityMetas(n uint32) []entityMeta {
	metas := make([]entityMeta, n)
	for i := range metas {
		metas[i].generation = 1
	}
	return metas
}

// Directory maps EntityIDs to Locations. It never reallocates in place:
// growing capacity means building an entirely new Directory from a
// frozen snapshot of the old one and having the World swap its pointer,
// so outstanding EntityIDs and Locations obtained before a grow remain
// valid for the old Directory value for as long as anything still
// holds it.
//
// Three locks guard it, grounded on offheap's pointer_store.go split
// between a free-list mutex and a growth RWMutex: freeMu serializes
// free-list pop/push and the fresh-slot counter, structMu is read-locked
// by every per-entity operation and write-locked only by Reallocate
// while it snapshots the metas slice, and entryLocks serializes reads
// and writes of one entityMeta's fields against each other, since
// structMu's read-lock only protects the metas slice's length against
// Reallocate, not one entry's fields against a concurrent writer.
type Directory struct {
	structMu   sync.RWMutex
	metas      []entityMeta
	entryLocks []sync.Mutex

	freeMu    sync.Mutex
	freeList  []uint32
	nextFresh uint32

	locked   atomic.Bool
	capacity uint32
}

// NewDirectory builds an empty Directory with room for capacity
// entities.
func NewDirectory(capacity uint32) *Directory {
	return &Directory{
		metas:      newEntityMetas(capacity),
		entryLocks: make([]sync.Mutex, capacity),
		capacity:   capacity,
	}
}

// RoomLeft reports how many entities can still be allocated before the
// Directory is full.
func (d *Directory) RoomLeft() uint32 {
	d.freeMu.Lock()
	defer d.freeMu.Unlock()
	return uint32(len(d.freeList)) + (d.capacity - d.nextFresh)
}

// Allocate reserves a fresh EntityID. Fails with DirectoryLockedError
// while a grow is in flight, or DirectoryFullError once both the free
// list and the fresh-slot range are exhausted.
func (d *Directory) Allocate() (EntityID, error) {
	d.structMu.RLock()
	defer d.structMu.RUnlock()

	if d.locked.Load() {
		return EntityID{}, DirectoryLockedError{}
	}

	d.freeMu.Lock()
	defer d.freeMu.Unlock()

	var index uint32
	if n := len(d.freeList); n > 0 {
		index = d.freeList[n-1]
		d.freeList = d.freeList[:n-1]
	} else if d.nextFresh < d.capacity {
		index = d.nextFresh
		d.nextFresh++
	} else {
		return EntityID{}, DirectoryFullError{}
	}

	d.entryLocks[index].Lock()
	meta := &d.metas[index]
	meta.inUse = true
	id := EntityID{Index: index, Generation: meta.generation}
	d.entryLocks[index].Unlock()
	return id, nil
}

// WriteLocation records where id's row currently lives. Returns false
// if id is stale (freed, or a generation mismatch).
func (d *Directory) WriteLocation(id EntityID, loc Location) bool {
	d.structMu.RLock()
	defer d.structMu.RUnlock()

	if int(id.Index) >= len(d.metas) {
		return false
	}
	d.entryLocks[id.Index].Lock()
	defer d.entryLocks[id.Index].Unlock()

	meta := &d.metas[id.Index]
	if !meta.inUse || meta.generation != id.Generation {
		return false
	}
	meta.location = loc
	return true
}

// ReadLocation returns id's current Location, and whether id is live.
func (d *Directory) ReadLocation(id EntityID) (Location, bool) {
	d.structMu.RLock()
	defer d.structMu.RUnlock()

	if int(id.Index) >= len(d.metas) {
		return Location{}, false
	}
	d.entryLocks[id.Index].Lock()
	defer d.entryLocks[id.Index].Unlock()

	meta := &d.metas[id.Index]
	if !meta.inUse || meta.generation != id.Generation {
		return Location{}, false
	}
	return meta.location, true
}

// ReadEntity reconstructs the full EntityID currently occupying index,
// if any.
func (d *Directory) ReadEntity(index uint32) (EntityID, bool) {
	d.structMu.RLock()
	defer d.structMu.RUnlock()

	if int(index) >= len(d.metas) {
		return EntityID{}, false
	}
	d.entryLocks[index].Lock()
	defer d.entryLocks[index].Unlock()

	meta := &d.metas[index]
	if !meta.inUse {
		return EntityID{}, false
	}
	return EntityID{Index: index, Generation: meta.generation}, true
}

// Free releases id's slot, bumping its generation (skipping 0, which is
// reserved to mean "never allocated") so any EntityID still referencing
// the old generation is rejected from here on. Freeing an id that is
// already free is a no-op, matching Slab.Remove's double-remove
// idempotence.
func (d *Directory) Free(id EntityID) {
	d.structMu.RLock()
	defer d.structMu.RUnlock()

	if int(id.Index) >= len(d.metas) {
		return
	}
	d.entryLocks[id.Index].Lock()
	meta := &d.metas[id.Index]
	if !meta.inUse || meta.generation != id.Generation {
		d.entryLocks[id.Index].Unlock()
		return
	}

	meta.inUse = false
	meta.generation++
	if meta.generation == 0 {
		meta.generation = 1
	}
	d.entryLocks[id.Index].Unlock()

	d.freeMu.Lock()
	d.freeList = append(d.freeList, id.Index)
	d.freeMu.Unlock()
}

// Reallocate freezes d against further Allocate calls and returns a new
// Directory of newCapacity, preloaded with a snapshot of d's current
// metas, free list, and fresh-slot counter. It does not mutate d's
// capacity or unfreeze it; the caller (World.GrowDirectory) is
// responsible for swapping the new Directory into place.
func (d *Directory) Reallocate(newCapacity uint32) (*Directory, error) {
	if newCapacity < d.capacity {
		return nil, DirectoryFullError{}
	}

	d.locked.Store(true)

	d.structMu.Lock()
	defer d.structMu.Unlock()
	d.freeMu.Lock()
	defer d.freeMu.Unlock()

	nd := &Directory{
		metas:      newEntityMetas(newCapacity),
		entryLocks: make([]sync.Mutex, newCapacity),
		capacity:   newCapacity,
		nextFresh:  d.nextFresh,
		freeList:   append([]uint32(nil), d.freeList...),
	}
	copy(nd.metas, d.metas)
	return nd, nil
}
