package vault

import (
	"testing"
	"unsafe"
)

type componentTestPosition struct {
	X, Y float64
}

type componentTestFlag struct {
	Set bool
}

func TestNewComponentIsIdempotent(t *testing.T) {
	a := NewComponent[componentTestPosition]()
	b := NewComponent[componentTestPosition]()

	if a.ID != b.ID {
		t.Errorf("NewComponent returned different ids across calls: %d vs %d", a.ID, b.ID)
	}
	if a.Size != unsafe.Sizeof(componentTestPosition{}) {
		t.Errorf("Size = %d, want %d", a.Size, unsafe.Sizeof(componentTestPosition{}))
	}
	if a.Align != unsafe.Alignof(componentTestPosition{}) {
		t.Errorf("Align = %d, want %d", a.Align, unsafe.Alignof(componentTestPosition{}))
	}
}

func TestNewComponentDistinctTypesGetDistinctIDs(t *testing.T) {
	pos := NewComponent[componentTestPosition]()
	flag := NewComponent[componentTestFlag]()

	if pos.ID == flag.ID {
		t.Errorf("distinct component types got the same ComponentID: %d", pos.ID)
	}
}

func TestComponentInfoDropZeroesValue(t *testing.T) {
	info := NewComponent[componentTestFlag]()

	v := componentTestFlag{Set: true}
	info.Drop(unsafe.Pointer(&v))

	if v.Set {
		t.Errorf("Drop did not zero the value: got %+v", v)
	}
}
