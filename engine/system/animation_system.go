package system

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/charmbracelet/log"

	"github.com/Carmen-Shannon/oxy-graph/engine/ecs"
)

// AnimationSystemName is the name the animation system registers under.
const AnimationSystemName = "AnimationSystem"

// AnimationSystem runs every enabled entity's Script component once per tick, in parallel.
type AnimationSystem interface {
	ecs.System

	// Updates returns the total number of script updates run.
	//
	// Returns:
	//   - uint64: the update count
	Updates() uint64
}

type animationSystem struct {
	mu      *sync.Mutex
	logger  *log.Logger
	workers int
	pool    worker.DynamicWorkerPool
	world   ecs.World
	updates uint64
}

var _ AnimationSystem = &animationSystem{}

// NewAnimationSystem creates the animation system.
//
// Parameters:
//   - logger: the logger; nil uses log.Default()
//   - workers: the maximum number of concurrent script updates; values below 1 use 1
//
// Returns:
//   - AnimationSystem: the new system
func NewAnimationSystem(logger *log.Logger, workers int) AnimationSystem {
	if logger == nil {
		logger = log.Default()
	}
	return &animationSystem{
		mu:      &sync.Mutex{},
		logger:  logger.With("system", AnimationSystemName),
		workers: max(workers, 1),
	}
}

func (s *animationSystem) Name() string {
	return AnimationSystemName
}

func (s *animationSystem) Initialize(w ecs.World) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.world = w
	s.pool = worker.NewDynamicWorkerPool(s.workers, 256, 1*time.Second)
	return nil
}

func (s *animationSystem) FrameBegin(float32) {}

func (s *animationSystem) Tick(deltaTime float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.world == nil || s.pool == nil {
		return
	}

	var wg sync.WaitGroup
	taskID := 0
	for _, e := range s.world.EntityList() {
		script, ok := e.Component(ecs.ComponentTypeScript).(*ecs.ScriptComponent)
		if !ok || script.Update == nil || !e.Enabled() {
			continue
		}

		wg.Add(1)
		entity := e
		id := taskID
		taskID++
		s.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (result any, err error) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("script on entity %d panicked: %v", entity.ID(), r)
						s.logger.Error("script update failed", "entity", entity.ID(), "err", err)
					}
				}()
				script.Update(entity, deltaTime)
				return nil, nil
			},
		})
	}
	wg.Wait()
	s.updates += uint64(taskID)
}

func (s *animationSystem) FrameEnd(float32) {}

func (s *animationSystem) ShutDown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		s.pool.Stop()
	}
	s.pool = nil
	s.world = nil
}

func (s *animationSystem) Updates() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}
