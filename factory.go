package vault

// factory implements the factory pattern for vault's package-level
// constructors.
type factory struct{}

// Factory is the global factory instance for creating vault worlds.
var Factory factory

// NewWorld creates a new World with the given directory capacity (0
// meaning Config.defaultDirectoryCapacity).
func (f factory) NewWorld(directoryCapacity uint32) *World {
	return NewWorld(directoryCapacity)
}

// FactoryNewComponent registers T as a component type, returning its
// ComponentInfo. Equivalent to calling NewComponent[T] directly; kept
// as a package-level function for callers that prefer the
// Factory-prefixed naming.
func FactoryNewComponent[T any]() ComponentInfo {
	return NewComponent[T]()
}

// FactoryNewCache creates a new SimpleCache with the specified capacity.
func FactoryNewCache[T any](capacity int) *SimpleCache[T] {
	return NewSimpleCache[T](capacity)
}
