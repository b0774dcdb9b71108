package vault

import "testing"

type benchPosition struct{ X, Y float64 }
type benchVelocity struct{ X, Y float64 }

func BenchmarkSlabInsertAndBorrowExclusive(b *testing.B) {
	b.StopTimer()

	position := NewComponent[benchPosition]()
	velocity := NewComponent[benchVelocity]()
	slab := NewSlab(ArchetypeID(1), []ComponentInfo{position, velocity}, uint32(b.N), SlabEvents{})

	rows := make([]uint32, 0, b.N)
	for i := 0; i < b.N; i++ {
		bundle := NewBundle2(position, benchPosition{}, velocity, benchVelocity{X: 1, Y: 1})
		row, err := slab.Insert(EntityID{Index: uint32(i)}, bundle)
		if err != nil {
			b.Fatalf("Insert: %v", err)
		}
		rows = append(rows, row)
	}

	b.StartTimer()
	for _, row := range rows {
		pos, err := BorrowExclusive[benchPosition](slab, row)
		if err != nil {
			b.Fatalf("BorrowExclusive: %v", err)
		}
		vel, err := BorrowShared[benchVelocity](slab, row)
		if err != nil {
			b.Fatalf("BorrowShared: %v", err)
		}
		pos.Get().X += vel.Get().X
		pos.Get().Y += vel.Get().Y
		vel.Release()
		pos.Release()
	}
}

func BenchmarkSlabResize(b *testing.B) {
	position := NewComponent[benchPosition]()

	for i := 0; i < b.N; i++ {
		slab := NewSlab(ArchetypeID(1), []ComponentInfo{position}, 16, SlabEvents{})
		for r := 0; r < 16; r++ {
			slab.Insert(EntityID{Index: uint32(r)}, NewBundle1(position, benchPosition{}))
		}
		if err := slab.Resize(32); err != nil {
			b.Fatalf("Resize: %v", err)
		}
	}
}
