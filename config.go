package vault

// SlabEvents are optional hooks a caller can install to observe slab
// lifecycle events: a row going in, a row coming out, and the slab
// itself growing.
type SlabEvents struct {
	OnInsert func(archetype ArchetypeID, row uint32, entity EntityID)
	OnRemove func(archetype ArchetypeID, row uint32, entity EntityID)
	OnResize func(archetype ArchetypeID, oldCapacity, newCapacity uint32)
}

func (e SlabEvents) fireInsert(archetype ArchetypeID, row uint32, entity EntityID) {
	if e.OnInsert != nil {
		e.OnInsert(archetype, row, entity)
	}
}

func (e SlabEvents) fireRemove(archetype ArchetypeID, row uint32, entity EntityID) {
	if e.OnRemove != nil {
		e.OnRemove(archetype, row, entity)
	}
}

func (e SlabEvents) fireResize(archetype ArchetypeID, oldCapacity, newCapacity uint32) {
	if e.OnResize != nil {
		e.OnResize(archetype, oldCapacity, newCapacity)
	}
}

// config holds process-wide defaults for newly created Worlds, Slabs,
// and Directories. Values are read at construction time; changing them
// afterward has no effect on structures already built.
type config struct {
	defaultSlabCapacity      uint32
	defaultDirectoryCapacity uint32
	events                   SlabEvents
}

// Config is the package-level configuration instance.
var Config = config{
	defaultSlabCapacity:      256,
	defaultDirectoryCapacity: 1024,
}

// SetSlabEvents installs the event hooks newly created Slabs pick up by
// default.
func (c *config) SetSlabEvents(events SlabEvents) {
	c.events = events
}

// SetDefaultSlabCapacity sets the row capacity new Slabs start with
// when the caller does not specify one.
func (c *config) SetDefaultSlabCapacity(capacity uint32) {
	c.defaultSlabCapacity = capacity
}

// SetDefaultDirectoryCapacity sets the entity capacity a new World's
// Directory starts with when the caller does not specify one.
func (c *config) SetDefaultDirectoryCapacity(capacity uint32) {
	c.defaultDirectoryCapacity = capacity
}
