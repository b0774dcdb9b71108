package vault

import "testing"

type entityTestPosition struct{ X, Y float64 }

func TestHandleValidAndLocation(t *testing.T) {
	w := NewWorld(16)
	position := NewComponent[entityTestPosition]()
	bundle := NewBundle1(position, entityTestPosition{X: 1, Y: 2})

	id, err := w.AddEntity(bundle)
	if err != nil {
		t.Fatalf("AddEntity: %v", err)
	}
	h := NewHandle(w, id)

	if !h.Valid() {
		t.Fatalf("Handle reports invalid right after AddEntity")
	}

	loc, ok := h.Location()
	if !ok {
		t.Fatalf("Location failed for a live handle")
	}
	if loc.Row != 0 {
		t.Errorf("Location.Row = %d, want 0 for the first insert", loc.Row)
	}
}

func TestHandleRemoveIsIdempotentAndInvalidatesHandle(t *testing.T) {
	w := NewWorld(16)
	position := NewComponent[entityTestPosition]()
	id, err := w.AddEntity(NewBundle1(position, entityTestPosition{X: 1}))
	if err != nil {
		t.Fatalf("AddEntity: %v", err)
	}
	h := NewHandle(w, id)

	if err := h.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if h.Valid() {
		t.Errorf("Handle still reports valid after Remove")
	}
	if err := h.Remove(); err != nil {
		t.Errorf("second Remove should be a no-op, got %v", err)
	}
}

func TestHandleZeroValueIsInvalid(t *testing.T) {
	var h Handle
	if h.Valid() {
		t.Errorf("zero-value Handle reports valid")
	}
}

func TestBorrowEntitySharedAndExclusive(t *testing.T) {
	w := NewWorld(16)
	position := NewComponent[entityTestPosition]()
	id, err := w.AddEntity(NewBundle1(position, entityTestPosition{X: 1, Y: 1}))
	if err != nil {
		t.Fatalf("AddEntity: %v", err)
	}
	h := NewHandle(w, id)

	mut, err := BorrowEntityExclusive[entityTestPosition](h)
	if err != nil {
		t.Fatalf("BorrowEntityExclusive: %v", err)
	}
	mut.Get().X = 5
	mut.Release()

	ref, err := BorrowEntityShared[entityTestPosition](h)
	if err != nil {
		t.Fatalf("BorrowEntityShared: %v", err)
	}
	defer ref.Release()
	if ref.Get().X != 5 {
		t.Errorf("Position.X = %v, want 5", ref.Get().X)
	}
}

func TestBorrowEntitySharedOnRemovedEntityFails(t *testing.T) {
	w := NewWorld(16)
	position := NewComponent[entityTestPosition]()
	id, err := w.AddEntity(NewBundle1(position, entityTestPosition{X: 1}))
	if err != nil {
		t.Fatalf("AddEntity: %v", err)
	}
	h := NewHandle(w, id)
	if err := h.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if _, err := BorrowEntityShared[entityTestPosition](h); err == nil {
		t.Errorf("BorrowEntityShared succeeded on a removed entity")
	}
}
