package vault

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/TheBitDrifter/mask"
)

// World owns every archetype Slab and the single EntityDirectory that
// maps EntityIDs into them. It is the concurrency boundary the rest of
// the package is built around: Slab and Directory are individually
// safe for concurrent use, but resizing an archetype's slab, or
// growing the directory, needs a place to briefly take sole ownership
// of the piece being restructured, that place is World.
type World struct {
	archMu     sync.RWMutex
	archetypes map[ArchetypeID]*Slab

	directory atomic.Pointer[Directory]

	maskMu      sync.Mutex
	maskBits    map[ComponentID]uint32
	nextMaskBit uint32
	archByMask  map[mask.Mask]ArchetypeID

	queueMu sync.Mutex
	queue   []EntityOperation

	events SlabEvents
}

// NewWorld builds an empty World, sizing its initial Directory from
// Config.defaultDirectoryCapacity unless directoryCapacity is nonzero.
func NewWorld(directoryCapacity uint32) *World {
	if directoryCapacity == 0 {
		directoryCapacity = Config.defaultDirectoryCapacity
	}
	w := &World{
		archetypes: make(map[ArchetypeID]*Slab),
		maskBits:   make(map[ComponentID]uint32),
		archByMask: make(map[mask.Mask]ArchetypeID),
		events:     Config.events,
	}
	w.directory.Store(NewDirectory(directoryCapacity))
	return w
}

// Directory returns the World's current EntityDirectory. The returned
// pointer is stable until the next successful GrowDirectory.
func (w *World) Directory() *Directory {
	return w.directory.Load()
}

// RegisterArchetype creates a new, empty Slab for id if one does not
// already exist, sized for capacity rows (Config.defaultSlabCapacity if
// zero). Returns the existing slab, unmodified, if id is already
// registered.
func (w *World) RegisterArchetype(id ArchetypeID, infos []ComponentInfo, capacity uint32) *Slab {
	if capacity == 0 {
		capacity = Config.defaultSlabCapacity
	}

	w.archMu.Lock()
	defer w.archMu.Unlock()
	if existing, ok := w.archetypes[id]; ok {
		return existing
	}
	slab := NewSlab(id, infos, capacity, w.events)
	w.archetypes[id] = slab
	return slab
}

// GetArchetype returns the Slab registered for id. Returns
// ArchetypeNotFoundError if none is registered, including transiently
// while that slab has been taken out for a resize.
func (w *World) GetArchetype(id ArchetypeID) (*Slab, error) {
	w.archMu.RLock()
	defer w.archMu.RUnlock()
	slab, ok := w.archetypes[id]
	if !ok {
		return nil, ArchetypeNotFoundError{ArchetypeID: id}
	}
	return slab, nil
}

// TakeArchetype removes id's Slab from the World's map and returns it,
// giving the caller sole ownership, the only other way to reach a
// Slab is through this map, so once taken, no concurrent BorrowShared,
// BorrowExclusive, Insert, or Remove can reach it. Resize requires
// exactly this: call TakeArchetype, run Resize on the returned slab,
// then RestoreArchetype it (on error too: a failed Resize keeps the old
// arena and capacity, but leaves its rows Locking or Locked, so borrows
// return BusyError until a retried Resize succeeds).
func (w *World) TakeArchetype(id ArchetypeID) (*Slab, error) {
	w.archMu.Lock()
	defer w.archMu.Unlock()
	slab, ok := w.archetypes[id]
	if !ok {
		return nil, ArchetypeNotFoundError{ArchetypeID: id}
	}
	delete(w.archetypes, id)
	return slab, nil
}

// RestoreArchetype re-publishes a slab previously removed by
// TakeArchetype, making it reachable again via GetArchetype.
func (w *World) RestoreArchetype(slab *Slab) {
	w.archMu.Lock()
	defer w.archMu.Unlock()
	w.archetypes[slab.ID()] = slab
}

// ResizeArchetype grows id's slab to newCapacity, taking it out of the
// World's map for the duration of the resize and restoring it before
// returning: resized on success; on failure with its old arena and
// capacity, its rows left Locking or Locked as Slab.Resize describes.
func (w *World) ResizeArchetype(id ArchetypeID, newCapacity uint32) error {
	slab, err := w.TakeArchetype(id)
	if err != nil {
		return err
	}
	resizeErr := slab.Resize(newCapacity)
	w.RestoreArchetype(slab)
	return resizeErr
}

// maskFor returns the mask.Mask signature for a set of components,
// assigning each ComponentID a stable mask bit on first sight and
// keying the archetype-by-signature map off the resulting mask.Mask.
func (w *World) maskFor(infos []ComponentInfo) mask.Mask {
	w.maskMu.Lock()
	defer w.maskMu.Unlock()

	var m mask.Mask
	for _, info := range infos {
		bit, ok := w.maskBits[info.ID]
		if !ok {
			bit = w.nextMaskBit
			w.nextMaskBit++
			w.maskBits[info.ID] = bit
		}
		m.Mark(bit)
	}
	return m
}

// GetOrCreate returns the Slab whose signature exactly matches infos,
// creating and registering a fresh one (sized capacity, or
// Config.defaultSlabCapacity if zero) the first time that exact
// signature is seen. It is a convenience for callers that only know a
// component set, not a stable ArchetypeID.
func (w *World) GetOrCreate(infos []ComponentInfo, capacity uint32) *Slab {
	sig := w.maskFor(infos)

	w.maskMu.Lock()
	id, ok := w.archByMask[sig]
	w.maskMu.Unlock()
	if ok {
		if slab, err := w.GetArchetype(id); err == nil {
			return slab
		}
	}

	sorted := sortedInfos(infos)
	id = archetypeIDFromComponents(sorted)
	slab := w.RegisterArchetype(id, sorted, capacity)

	w.maskMu.Lock()
	w.archByMask[sig] = id
	w.maskMu.Unlock()

	return slab
}

// GrowDirectory replaces the World's Directory with a new one of at
// least newCapacity, built from a frozen snapshot of the current one.
// In-flight Allocate calls against the old Directory that started
// before the freeze either complete against it or observe
// DirectoryLockedError; callers that see DirectoryLockedError should
// retry against w.Directory(), which is guaranteed to return the new,
// unlocked Directory once GrowDirectory returns.
func (w *World) GrowDirectory(newCapacity uint32) error {
	old := w.directory.Load()
	next, err := old.Reallocate(newCapacity)
	if err != nil {
		return err
	}
	w.directory.Store(next)
	w.drainQueue()
	return nil
}

// AddEntity allocates a fresh EntityID, inserts bundle's values into
// the archetype bundle.ArchetypeID() identifies (auto-registering it on
// first use), and records the entity's location. If the directory is
// momentarily locked for a grow, AddEntity returns DirectoryLockedError
// and inserts nothing; the caller may retry against w.Directory() or
// queue the bundle with EnqueueAddEntity.
func (w *World) AddEntity(bundle Bundle) (EntityID, error) {
	dir := w.directory.Load()
	id, err := dir.Allocate()
	if _, locked := err.(DirectoryLockedError); locked {
		return EntityID{}, err
	}
	if err != nil {
		return EntityID{}, err
	}

	if insertErr := w.insertBundle(dir, id, bundle); insertErr != nil {
		dir.Free(id)
		return EntityID{}, insertErr
	}
	return id, nil
}

func (w *World) insertBundle(dir *Directory, id EntityID, bundle Bundle) error {
	archID := bundle.ArchetypeID()
	slab, err := w.GetArchetype(archID)
	if err != nil {
		slab = w.RegisterArchetype(archID, sortedInfos(bundle.Describe()), 0)
	}

	row, err := slab.Insert(id, bundle)
	if _, full := err.(ArchetypeFullError); full {
		grown := slab.Capacity() * 2
		if grown == 0 {
			grown = Config.defaultSlabCapacity
		}
		if resizeErr := w.ResizeArchetype(archID, grown); resizeErr != nil {
			return resizeErr
		}
		slab, err = w.GetArchetype(archID)
		if err != nil {
			return err
		}
		row, err = slab.Insert(id, bundle)
	}
	if err != nil {
		return err
	}

	dir.WriteLocation(id, Location{Archetype: archID, Row: row})
	return nil
}

// RemoveEntity frees id and removes its row from whichever archetype it
// currently occupies. Removing an id that is already free, or whose
// generation is stale, is a no-op. The directory entry is freed before
// the slab row is removed, so if the slab refuses (BusyError, a live
// borrow holding the row), the id is still freed and the row is left
// orphaned in the slab pending a later retry rather than leaking the
// directory slot forever.
func (w *World) RemoveEntity(id EntityID) error {
	dir := w.directory.Load()
	loc, ok := dir.ReadLocation(id)
	if !ok {
		return nil
	}
	dir.Free(id)

	slab, err := w.GetArchetype(loc.Archetype)
	if err != nil {
		return nil
	}
	return slab.Remove(loc.Row)
}

// Archetypes returns a snapshot slice of every currently registered
// ArchetypeID, in ascending order.
func (w *World) Archetypes() []ArchetypeID {
	w.archMu.RLock()
	defer w.archMu.RUnlock()
	ids := make([]ArchetypeID, 0, len(w.archetypes))
	for id := range w.archetypes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
