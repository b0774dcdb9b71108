package vault

import (
	"sync/atomic"

	"github.com/TheBitDrifter/bark"
)

// Borrow-byte state machine, one atomic.Uint32 per (row, component)
// cell: 0 means idle, 1..maxSharedBorrow means that many live shared
// borrows, and exclusiveBorrow means one live exclusive borrow. All
// transitions are lock-free, via CAS retry loops.
const (
	borrowIdle      uint32 = 0
	maxSharedBorrow uint32 = 254
	exclusiveBorrow uint32 = 255
)

// acquireShared increments the borrow byte if doing so would stay at or
// under maxSharedBorrow and the byte is not currently exclusively held.
// Returns false (BusyError territory) if an exclusive borrow is live or
// the shared count is saturated.
func acquireShared(b *atomic.Uint32) bool {
	for {
		cur := b.Load()
		if cur >= maxSharedBorrow {
			return false
		}
		if b.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// releaseShared decrements a shared borrow by one.
func releaseShared(b *atomic.Uint32) {
	for {
		cur := b.Load()
		if cur == borrowIdle {
			panic(bark.AddTrace(releaseOfIdleBorrowError{}))
		}
		if b.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// acquireExclusive claims the borrow byte for exclusive use. Succeeds
// only from the idle state.
func acquireExclusive(b *atomic.Uint32) bool {
	return b.CompareAndSwap(borrowIdle, exclusiveBorrow)
}

// releaseExclusive resets the borrow byte to idle. Per the fixed
// exclusive-drop semantics, this always stores 0 rather than
// subtracting exclusiveBorrow, so a caller can never observe a
// corrupted shared count after a mis-paired release.
func releaseExclusive(b *atomic.Uint32) {
	b.Store(borrowIdle)
}

type releaseOfIdleBorrowError struct{}

func (releaseOfIdleBorrowError) Error() string {
	return "vault: released a shared borrow that was already idle"
}

// Row-lock state machine: a row moves Unlocked -> Locking -> Locked
// during a resize or remove quiescence scan. An aborted remove puts the
// row back to Unlocked; an aborted resize leaves it Locking or Locked.
const (
	rowUnlocked uint32 = 0
	rowLocking  uint32 = 1
	rowLocked   uint32 = 2
)

// slotLock is the per-row member embedded in every Slab row descriptor.
type slotLock struct {
	state atomic.Uint32
}

func (s *slotLock) isUnlocked() bool { return s.state.Load() == rowUnlocked }
func (s *slotLock) isLocking() bool  { return s.state.Load() == rowLocking }
func (s *slotLock) isLocked() bool   { return s.state.Load() == rowLocked }

// markLocking transitions Unlocked -> Locking, the first phase of a
// resize's quiescence scan. A row already Locking or Locked (a retry
// after a resize that aborted partway through) is left as-is and
// reported as success, so a failed resize can be retried without first
// unwinding every row it managed to lock.
func (s *slotLock) markLocking() bool {
	for {
		cur := s.state.Load()
		if cur == rowLocking || cur == rowLocked {
			return true
		}
		if s.state.CompareAndSwap(rowUnlocked, rowLocking) {
			return true
		}
	}
}

// tryMarkLocked finishes the transition to Locked, but only once every
// borrow byte in borrows reads idle, a row with any live shared or
// exclusive borrow cannot be safely relocated. A row already Locked
// (from an earlier pass over the same failed-and-retried resize)
// reports success without rescanning.
func (s *slotLock) tryMarkLocked(borrows []*atomic.Uint32) bool {
	if s.state.Load() == rowLocked {
		return true
	}
	if s.state.Load() != rowLocking {
		return false
	}
	for _, b := range borrows {
		if b.Load() != borrowIdle {
			return false
		}
	}
	return s.state.CompareAndSwap(rowLocking, rowLocked)
}

// markUnlocked restores Unlocked from either Locking (an aborted
// remove) or Locked (a completed one).
func (s *slotLock) markUnlocked() {
	s.state.Store(rowUnlocked)
}

// Ref is a live shared-borrow handle on a component value, acquired via
// BorrowShared. Release must be called exactly once.
type Ref[T any] struct {
	value   *T
	borrow  *atomic.Uint32
	release func()
}

// Get returns the borrowed value.
func (r Ref[T]) Get() *T { return r.value }

// Release ends the shared borrow, decrementing the borrow byte.
func (r Ref[T]) Release() {
	if r.release != nil {
		r.release()
		return
	}
	releaseShared(r.borrow)
}

// Mut is a live exclusive-borrow handle on a component value, acquired
// via BorrowExclusive. Release must be called exactly once.
type Mut[T any] struct {
	value   *T
	borrow  *atomic.Uint32
	release func()
}

// Get returns the borrowed value, mutable in place.
func (m Mut[T]) Get() *T { return m.value }

// Release ends the exclusive borrow. Per the fixed drop semantics this
// always resets the borrow byte to idle (0), never decrements it, so a
// double-release can never underflow into a bogus shared count.
func (m Mut[T]) Release() {
	if m.release != nil {
		m.release()
		return
	}
	releaseExclusive(m.borrow)
}
