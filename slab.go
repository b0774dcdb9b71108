package vault

import (
	"sort"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/TheBitDrifter/bark"
)

// columnLayout describes where one component's bytes live within a
// row, plus its index into a row's parallel borrows slice.
type columnLayout struct {
	info   ComponentInfo
	offset uintptr
	index  int
}

type rowDescriptor struct {
	occupied atomic.Bool
	entity   atomic.Uint64
	lock     slotLock
	borrows  []*atomic.Uint32
}

func packEntityID(id EntityID) uint64 {
	return uint64(id.Index)<<32 | uint64(id.Generation)
}

func unpackEntityID(v uint64) EntityID {
	return EntityID{Index: uint32(v >> 32), Generation: uint32(v)}
}

// Slab is a single archetype's columnar row store: one contiguous
// []uint64 arena, row-major, column offsets derived once from the
// archetype's sorted component set, plus one borrow byte per (row,
// column) cell and one slotLock per row.
type Slab struct {
	id       ArchetypeID
	columns  *TypeIdSet[columnLayout]
	rowBytes uintptr
	rowWords uintptr

	arena []uint64
	rows  []rowDescriptor

	capacity  uint32
	nextFresh uint32

	freeMu   sync.Mutex
	freeList []uint32

	events SlabEvents
}

// NewSlab builds an empty Slab for the archetype identified by id,
// carrying exactly the components in infos, with room for capacity
// rows. The arena is backed by []uint64 rather than []byte specifically
// to guarantee 8-byte alignment for every column; components requiring
// stricter alignment than that are out of scope.
func NewSlab(id ArchetypeID, infos []ComponentInfo, capacity uint32, events SlabEvents) *Slab {
	sorted := sortedInfos(infos)
	pairs := make(map[ComponentID]columnLayout, len(sorted))
	var offset uintptr
	for i, info := range sorted {
		if info.Align > 0 {
			offset = (offset + info.Align - 1) &^ (info.Align - 1)
		}
		pairs[info.ID] = columnLayout{info: info, offset: offset, index: i}
		offset += info.Size
	}
	rowBytes := offset
	rowWords := (rowBytes + 7) / 8
	if rowWords == 0 {
		rowWords = 1
	}

	rows := make([]rowDescriptor, capacity)
	for i := range rows {
		rows[i].borrows = make([]*atomic.Uint32, len(sorted))
		for c := range rows[i].borrows {
			rows[i].borrows[c] = new(atomic.Uint32)
		}
	}

	return &Slab{
		id:       id,
		columns:  NewTypeIdSet(pairs),
		rowBytes: rowBytes,
		rowWords: rowWords,
		arena:    make([]uint64, rowWords*uintptr(capacity)),
		rows:     rows,
		capacity: capacity,
		events:   events,
	}
}

// ID returns the archetype this slab stores.
func (s *Slab) ID() ArchetypeID { return s.id }

// Capacity returns the row capacity of the slab's current arena.
func (s *Slab) Capacity() uint32 { return s.capacity }

// RoomLeft reports how many more rows can be inserted before the slab
// needs a resize.
func (s *Slab) RoomLeft() uint32 {
	s.freeMu.Lock()
	defer s.freeMu.Unlock()
	return uint32(len(s.freeList)) + (s.capacity - s.nextFresh)
}

func (s *Slab) rowBase(row uint32) unsafe.Pointer {
	base := unsafe.Pointer(&s.arena[0])
	return unsafe.Add(base, uintptr(row)*s.rowWords*8)
}

// Insert places bundle's component values into a free row, associating
// them with entity. The bundle's component set must exactly match the
// slab's; any other mismatch is a programmer error, fatal like any
// other SignatureMismatchError, and panics via bark.AddTrace rather
// than returning. Returns ArchetypeFullError once the slab has no free
// row, at which point the caller is expected to grow it via Resize.
func (s *Slab) Insert(entity EntityID, bundle Bundle) (uint32, error) {
	infos := bundle.Describe()
	if len(infos) != s.columns.Len() {
		panic(bark.AddTrace(SignatureMismatchError{ArchetypeID: s.id}))
	}
	for _, info := range infos {
		if !s.columns.Contains(info.ID) {
			panic(bark.AddTrace(SignatureMismatchError{ArchetypeID: s.id}))
		}
	}

	s.freeMu.Lock()
	var row uint32
	if n := len(s.freeList); n > 0 {
		row = s.freeList[n-1]
		s.freeList = s.freeList[:n-1]
	} else if s.nextFresh < s.capacity {
		row = s.nextFresh
		s.nextFresh++
	} else {
		s.freeMu.Unlock()
		return 0, ArchetypeFullError{ArchetypeID: s.id}
	}
	s.freeMu.Unlock()

	r := &s.rows[row]
	base := s.rowBase(row)
	bundle.Emplace(func(info ComponentInfo, src unsafe.Pointer) {
		col, ok := s.columns.Get(info.ID)
		if !ok {
			panic(bark.AddTrace(SignatureMismatchError{ArchetypeID: s.id}))
		}
		dst := unsafe.Add(base, col.offset)
		copyBytes(dst, src, info.Size)
	})

	r.entity.Store(packEntityID(entity))
	r.occupied.Store(true)

	s.events.fireInsert(s.id, row, entity)
	return row, nil
}

// copyBytes copies n bytes from src to dst. It exists only so Insert
// and Resize share one unsafe primitive instead of repeating the
// byte-wise loop inline.
func copyBytes(dst, src unsafe.Pointer, n uintptr) {
	d := unsafe.Slice((*byte)(dst), n)
	sSlice := unsafe.Slice((*byte)(src), n)
	copy(d, sSlice)
}

// Remove clears row, running every component's destructor thunk and
// returning the row to the free list. Removing a row that is already
// empty is a no-op, so double-removes (racing against a stale
// World-level remove replay) are safe. Returns BusyError if a live
// borrow currently holds the row.
func (s *Slab) Remove(row uint32) error {
	if int(row) >= len(s.rows) {
		return nil
	}
	r := &s.rows[row]
	if !r.occupied.Load() {
		return nil
	}

	if !r.lock.markLocking() {
		return BusyError{}
	}
	if !r.lock.tryMarkLocked(r.borrows) {
		r.lock.markUnlocked()
		return BusyError{}
	}

	entity := unpackEntityID(r.entity.Load())
	base := s.rowBase(row)
	for _, col := range s.columns.Ordered() {
		if col.info.Drop != nil {
			col.info.Drop(unsafe.Add(base, col.offset))
		}
	}

	r.occupied.Store(false)
	r.entity.Store(0)
	r.lock.markUnlocked()

	s.freeMu.Lock()
	s.freeList = append(s.freeList, row)
	s.freeMu.Unlock()

	s.events.fireRemove(s.id, row, entity)
	return nil
}

// acquireRowBorrow runs the check-acquire-recheck protocol that keeps a
// borrow from outliving a concurrent Remove's destructor pass: it
// confirms the row is Unlocked, takes the borrow byte, then confirms
// the row is still Unlocked before handing the borrow back. If the row
// became Locking or Locked in between (Remove running concurrently),
// the borrow is released immediately and the caller sees BusyError.
func acquireRowBorrow(r *rowDescriptor, colIndex int, exclusive bool) error {
	if !r.occupied.Load() {
		return RowEmptyError{}
	}
	if !r.lock.isUnlocked() {
		return BusyError{}
	}

	b := r.borrows[colIndex]
	var ok bool
	if exclusive {
		ok = acquireExclusive(b)
	} else {
		ok = acquireShared(b)
	}
	if !ok {
		return BusyError{}
	}

	if !r.lock.isUnlocked() {
		if exclusive {
			releaseExclusive(b)
		} else {
			releaseShared(b)
		}
		return BusyError{}
	}
	return nil
}

// BorrowShared acquires a shared (read) handle on component T in row.
func BorrowShared[T any](s *Slab, row uint32) (Ref[T], error) {
	if int(row) >= len(s.rows) {
		return Ref[T]{}, RowEmptyError{ArchetypeID: s.id, Row: row}
	}
	info := NewComponent[T]()
	col, ok := s.columns.Get(info.ID)
	if !ok {
		return Ref[T]{}, ComponentNotInArchetypeError{ArchetypeID: s.id, ComponentID: info.ID}
	}

	r := &s.rows[row]
	if err := acquireRowBorrow(r, col.index, false); err != nil {
		if _, empty := err.(RowEmptyError); empty {
			return Ref[T]{}, RowEmptyError{ArchetypeID: s.id, Row: row}
		}
		return Ref[T]{}, err
	}

	base := s.rowBase(row)
	value := (*T)(unsafe.Add(base, col.offset))
	return Ref[T]{value: value, borrow: r.borrows[col.index]}, nil
}

// BorrowExclusive acquires an exclusive (read/write) handle on
// component T in row.
func BorrowExclusive[T any](s *Slab, row uint32) (Mut[T], error) {
	if int(row) >= len(s.rows) {
		return Mut[T]{}, RowEmptyError{ArchetypeID: s.id, Row: row}
	}
	info := NewComponent[T]()
	col, ok := s.columns.Get(info.ID)
	if !ok {
		return Mut[T]{}, ComponentNotInArchetypeError{ArchetypeID: s.id, ComponentID: info.ID}
	}

	r := &s.rows[row]
	if err := acquireRowBorrow(r, col.index, true); err != nil {
		if _, empty := err.(RowEmptyError); empty {
			return Mut[T]{}, RowEmptyError{ArchetypeID: s.id, Row: row}
		}
		return Mut[T]{}, err
	}

	base := s.rowBase(row)
	value := (*T)(unsafe.Add(base, col.offset))
	return Mut[T]{value: value, borrow: r.borrows[col.index]}, nil
}

// BorrowHandle is one entry of a composite borrow, returned by
// BorrowRow alongside every other component in the same row so a
// caller needing several components at once (a system iterating a
// query result, say) can acquire them together with one ordered,
// all-or-nothing attempt instead of one BorrowShared/BorrowExclusive
// call per field.
type BorrowHandle struct {
	ComponentID ComponentID
	Ptr         unsafe.Pointer
	borrow      *atomic.Uint32
	exclusive   bool
}

// Release ends this one borrow.
func (h BorrowHandle) Release() {
	if h.exclusive {
		releaseExclusive(h.borrow)
	} else {
		releaseShared(h.borrow)
	}
}

// BorrowSpec names one component to acquire via BorrowRow, and whether
// that acquisition should be exclusive.
type BorrowSpec struct {
	ComponentID ComponentID
	Exclusive   bool
}

// BorrowRow acquires every component named in specs from row as one
// composite operation. Acquisition proceeds in ascending ComponentID
// order, the archetype's canonical column order, so two callers
// racing over overlapping component sets can never deadlock each other
// by acquiring in opposite orders. If any single acquisition fails,
// every prior acquisition in this call is released before returning the
// error, so a caller never has to distinguish a partial failure from a
// total one.
func (s *Slab) BorrowRow(row uint32, specs []BorrowSpec) ([]BorrowHandle, error) {
	if int(row) >= len(s.rows) {
		return nil, RowEmptyError{ArchetypeID: s.id, Row: row}
	}
	r := &s.rows[row]
	if !r.occupied.Load() {
		return nil, RowEmptyError{ArchetypeID: s.id, Row: row}
	}

	ordered := append([]BorrowSpec(nil), specs...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ComponentID < ordered[j].ComponentID })

	base := s.rowBase(row)
	acquired := make([]BorrowHandle, 0, len(ordered))

	release := func() {
		for _, h := range acquired {
			h.Release()
		}
	}

	for _, spec := range ordered {
		col, ok := s.columns.Get(spec.ComponentID)
		if !ok {
			release()
			return nil, ComponentNotInArchetypeError{ArchetypeID: s.id, ComponentID: spec.ComponentID}
		}
		if err := acquireRowBorrow(r, col.index, spec.Exclusive); err != nil {
			release()
			return nil, err
		}
		acquired = append(acquired, BorrowHandle{
			ComponentID: spec.ComponentID,
			Ptr:         unsafe.Add(base, col.offset),
			borrow:      r.borrows[col.index],
			exclusive:   spec.Exclusive,
		})
	}

	return acquired, nil
}

// Resize replaces the slab's arena and row descriptors with ones sized
// for newCapacity, preserving every live row's entity id, component
// bytes, and the exact same *atomic.Uint32 borrow-byte instances, so
// any Ref/Mut handle obtained before the resize remains valid against
// the same memory cell after it. It requires the caller to hold
// unique access to s (see World.TakeArchetype); Resize itself does
// not coordinate with other goroutines beyond the per-row quiescence
// scan below.
//
// Resize first marks every row, occupied or not, Locking, then
// Locked, requiring every row's borrow bytes to read idle before it
// proceeds. If any row still has a live borrow, Resize returns
// BusyError without touching the arena or capacity, and does not unwind
// the row locks: every row stays Locking (or Locked, for rows scanned
// before the busy one), so a fresh borrow anywhere in the slab returns BusyError
// until the caller retries Resize. A retry re-enters markLocking/
// tryMarkLocked idempotently, so it only needs to make progress on the
// rows still stuck in Locking, it does not unwind and redo rows that
// already reached Locked. Only once every row reaches Locked does it
// allocate the new arena and copy.
func (s *Slab) Resize(newCapacity uint32) error {
	if newCapacity < s.capacity {
		return ArchetypeFullError{ArchetypeID: s.id}
	}

	for i := range s.rows {
		s.rows[i].lock.markLocking()
	}
	for i := range s.rows {
		r := &s.rows[i]
		if !r.lock.tryMarkLocked(r.borrows) {
			return BusyError{}
		}
	}

	oldCapacity := s.capacity
	newRowWords := s.rowWords
	newArena := make([]uint64, newRowWords*uintptr(newCapacity))
	newRows := make([]rowDescriptor, newCapacity)

	for i := range s.rows {
		old := &s.rows[i]
		newRows[i].borrows = old.borrows
		if !old.occupied.Load() {
			continue
		}
		newRows[i].occupied.Store(true)
		newRows[i].entity.Store(old.entity.Load())
		dst := unsafe.Add(unsafe.Pointer(&newArena[0]), uintptr(i)*newRowWords*8)
		src := s.rowBase(uint32(i))
		copyBytes(dst, src, s.rowBytes)
	}
	for i := len(s.rows); i < int(newCapacity); i++ {
		newRows[i].borrows = make([]*atomic.Uint32, s.columns.Len())
		for c := range newRows[i].borrows {
			newRows[i].borrows[c] = new(atomic.Uint32)
		}
	}

	s.arena = newArena
	s.rows = newRows
	s.capacity = newCapacity

	s.events.fireResize(s.id, oldCapacity, newCapacity)
	return nil
}
