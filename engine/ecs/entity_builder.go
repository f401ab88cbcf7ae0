package ecs

// EntityBuilderOption is a functional option for configuring an Entity.
type EntityBuilderOption func(*entity)

// WithID sets the entity ID.
//
// Parameters:
//   - id: the ID to assign
//
// Returns:
//   - EntityBuilderOption: option function to apply
func WithID(id uint64) EntityBuilderOption {
	return func(e *entity) {
		e.id = id
	}
}

// WithTag sets the entity tag.
//
// Parameters:
//   - tag: the tag to assign
//
// Returns:
//   - EntityBuilderOption: option function to apply
func WithTag(tag string) EntityBuilderOption {
	return func(e *entity) {
		e.tag = tag
	}
}

// WithComponents attaches components at construction.
//
// Parameters:
//   - components: the components to attach
//
// Returns:
//   - EntityBuilderOption: option function to apply
func WithComponents(components ...Component) EntityBuilderOption {
	return func(e *entity) {
		for _, c := range components {
			if c == nil {
				continue
			}
			e.components[c.Type()] = c
			e.bitmap |= c.Type()
		}
	}
}

// WithEnabled sets whether the entity starts enabled.
//
// Parameters:
//   - enabled: true to enable
//
// Returns:
//   - EntityBuilderOption: option function to apply
func WithEnabled(enabled bool) EntityBuilderOption {
	return func(e *entity) {
		e.enabled.Store(enabled)
	}
}
