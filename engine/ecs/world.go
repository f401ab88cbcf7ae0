// Package ecs is the entity-component-system world the engine ticks. Renderers read it only through the draw list
// and the entity tagged as the main camera.
package ecs

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// MainCameraTag tags the entity whose camera the drawing system renders from.
const MainCameraTag = "MainCamera"

// System is per-tick behaviour registered with a World. Systems run in ascending ordinal order.
type System interface {
	// Name returns a unique system name.
	Name() string

	// Initialize is called once by World.Initialize.
	//
	// Parameters:
	//   - w: the owning world
	//
	// Returns:
	//   - error: error if the system cannot start; World.Initialize aborts on the first failure
	Initialize(w World) error

	// FrameBegin runs before any system's Tick.
	FrameBegin(deltaTime float32)

	// Tick runs the system's main work for the frame.
	Tick(deltaTime float32)

	// FrameEnd runs after every system's Tick.
	FrameEnd(deltaTime float32)

	// ShutDown releases the system's resources.
	ShutDown()
}

// World owns entities and systems.
type World interface {
	// CreateEntity creates an entity with the next free ID and adds it to the world.
	//
	// Parameters:
	//   - options: functional options for entity configuration; WithID is ignored
	//
	// Returns:
	//   - Entity: the new entity
	CreateEntity(options ...EntityBuilderOption) Entity

	// DestroyEntity removes an entity.
	//
	// Parameters:
	//   - id: the entity ID
	DestroyEntity(id uint64)

	// Entity returns the entity with the given ID, or nil.
	//
	// Parameters:
	//   - id: the entity ID
	//
	// Returns:
	//   - Entity: the entity or nil
	Entity(id uint64) Entity

	// EntityList returns the world's entities in creation order.
	//
	// Returns:
	//   - []Entity: a copy of the entity list
	EntityList() []Entity

	// FindEntityWithTag returns the first entity (in creation order) carrying tag, or nil.
	//
	// Parameters:
	//   - tag: the tag to search for
	//
	// Returns:
	//   - Entity: the tagged entity or nil
	FindEntityWithTag(tag string) Entity

	// RegisterSystem adds a system at the given ordinal. Registering two systems at the same ordinal keeps both,
	// in registration order.
	//
	// Parameters:
	//   - ordinal: the run order key (lower runs first)
	//   - s: the system
	RegisterSystem(ordinal int, s System)

	// System returns the registered system with the given name, or nil.
	//
	// Parameters:
	//   - name: the system name
	//
	// Returns:
	//   - System: the system or nil
	System(name string) System

	// Initialize initializes every system in ordinal order.
	//
	// Returns:
	//   - error: the first system initialization error
	Initialize() error

	// Tick runs FrameBegin, Tick and FrameEnd across every system.
	//
	// Parameters:
	//   - deltaTime: seconds since the previous tick
	Tick(deltaTime float32)

	// ShutDown shuts systems down in reverse ordinal order.
	ShutDown()

	// FrameCount returns the number of completed ticks.
	FrameCount() uint64
}

type registeredSystem struct {
	ordinal int
	system  System
}

type world struct {
	mu       *sync.RWMutex
	logger   *log.Logger
	nextID   atomic.Uint64
	entities []Entity
	systems  []registeredSystem
	frames   atomic.Uint64
}

var _ World = &world{}

// NewWorld creates an empty world.
//
// Parameters:
//   - logger: the logger; nil uses log.Default()
//
// Returns:
//   - World: the new world
func NewWorld(logger *log.Logger) World {
	if logger == nil {
		logger = log.Default()
	}
	return &world{
		mu:     &sync.RWMutex{},
		logger: logger,
	}
}

func (w *world) CreateEntity(options ...EntityBuilderOption) Entity {
	e := NewEntity(options...).(*entity)
	e.id = w.nextID.Add(1)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.entities = append(w.entities, e)
	return e
}

func (w *world) DestroyEntity(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, e := range w.entities {
		if e.ID() == id {
			w.entities = append(w.entities[:i], w.entities[i+1:]...)
			return
		}
	}
}

func (w *world) Entity(id uint64) Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, e := range w.entities {
		if e.ID() == id {
			return e
		}
	}
	return nil
}

func (w *world) EntityList() []Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Entity, len(w.entities))
	copy(out, w.entities)
	return out
}

func (w *world) FindEntityWithTag(tag string) Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, e := range w.entities {
		if e.Tag() == tag {
			return e
		}
	}
	return nil
}

func (w *world) RegisterSystem(ordinal int, s System) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.systems = append(w.systems, registeredSystem{ordinal: ordinal, system: s})
	sort.SliceStable(w.systems, func(i, j int) bool {
		return w.systems[i].ordinal < w.systems[j].ordinal
	})
}

func (w *world) System(name string) System {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, rs := range w.systems {
		if rs.system.Name() == name {
			return rs.system
		}
	}
	return nil
}

func (w *world) Initialize() error {
	for _, s := range w.systemList() {
		if err := s.Initialize(w); err != nil {
			return fmt.Errorf("failed to initialize system %s: %w", s.Name(), err)
		}
		w.logger.Debug("system initialized", "system", s.Name())
	}
	return nil
}

func (w *world) Tick(deltaTime float32) {
	systems := w.systemList()
	for _, s := range systems {
		s.FrameBegin(deltaTime)
	}
	for _, s := range systems {
		s.Tick(deltaTime)
	}
	for _, s := range systems {
		s.FrameEnd(deltaTime)
	}
	w.frames.Add(1)
}

func (w *world) ShutDown() {
	systems := w.systemList()
	for i := len(systems) - 1; i >= 0; i-- {
		systems[i].ShutDown()
	}
}

func (w *world) FrameCount() uint64 {
	return w.frames.Load()
}

// systemList snapshots the systems in ordinal order so ticks run without holding the lock.
func (w *world) systemList() []System {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]System, len(w.systems))
	for i, rs := range w.systems {
		out[i] = rs.system
	}
	return out
}
