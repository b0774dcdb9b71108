package vault

import (
	"unsafe"

	"testing"
)

type bundleTestPosition struct{ X, Y float64 }
type bundleTestHealth struct{ HP int }
type bundleTestName struct{ Value string }

func TestBundleDescribeIsSortedByComponentID(t *testing.T) {
	health := NewComponent[bundleTestHealth]()
	position := NewComponent[bundleTestPosition]()

	b := NewBundle2(health, bundleTestHealth{HP: 10}, position, bundleTestPosition{X: 1, Y: 2})

	infos := b.Describe()
	if len(infos) != 2 {
		t.Fatalf("Describe() returned %d components, want 2", len(infos))
	}
	if infos[0].ID >= infos[1].ID {
		t.Errorf("Describe() not sorted ascending by ComponentID: %d then %d", infos[0].ID, infos[1].ID)
	}
}

func TestBundleArchetypeIDIsStableForSameComponentSet(t *testing.T) {
	health := NewComponent[bundleTestHealth]()
	position := NewComponent[bundleTestPosition]()

	a := NewBundle2(position, bundleTestPosition{X: 1}, health, bundleTestHealth{HP: 5})
	b := NewBundle2(health, bundleTestHealth{HP: 99}, position, bundleTestPosition{X: 2})

	if a.ArchetypeID() != b.ArchetypeID() {
		t.Errorf("two bundles with the same component set got different ArchetypeIDs: %d vs %d",
			a.ArchetypeID(), b.ArchetypeID())
	}
}

func TestBundleArchetypeIDDiffersAcrossComponentSets(t *testing.T) {
	health := NewComponent[bundleTestHealth]()
	position := NewComponent[bundleTestPosition]()
	name := NewComponent[bundleTestName]()

	a := NewBundle2(position, bundleTestPosition{}, health, bundleTestHealth{})
	b := NewBundle2(position, bundleTestPosition{}, name, bundleTestName{})

	if a.ArchetypeID() == b.ArchetypeID() {
		t.Errorf("two bundles with different component sets got the same ArchetypeID: %d", a.ArchetypeID())
	}
}

func TestBundleEmplaceDeliversExactValues(t *testing.T) {
	health := NewComponent[bundleTestHealth]()
	position := NewComponent[bundleTestPosition]()

	wantPos := bundleTestPosition{X: 3.5, Y: -2}
	wantHealth := bundleTestHealth{HP: 42}
	b := NewBundle2(position, wantPos, health, wantHealth)

	seen := map[ComponentID]any{}
	b.Emplace(func(info ComponentInfo, src unsafe.Pointer) {
		switch info.ID {
		case position.ID:
			seen[info.ID] = *(*bundleTestPosition)(src)
		case health.ID:
			seen[info.ID] = *(*bundleTestHealth)(src)
		}
	})

	if got := seen[position.ID].(bundleTestPosition); got != wantPos {
		t.Errorf("Position emplaced as %+v, want %+v", got, wantPos)
	}
	if got := seen[health.ID].(bundleTestHealth); got != wantHealth {
		t.Errorf("Health emplaced as %+v, want %+v", got, wantHealth)
	}
}

func TestNewBundle1SingleComponent(t *testing.T) {
	position := NewComponent[bundleTestPosition]()
	b := NewBundle1(position, bundleTestPosition{X: 9, Y: 9})

	if len(b.Describe()) != 1 {
		t.Fatalf("Describe() returned %d components, want 1", len(b.Describe()))
	}
}
