package rendergraph

import (
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-graph/common"
)

// executionPool is a fixed set of recording workers. Workers sleep on a condition variable while the queue is empty
// and each owns one command pool for its lifetime.
type executionPool struct {
	mu      *sync.Mutex
	cond    *sync.Cond
	queue   *common.SafeQueue[*renderNode]
	running bool
	wg      sync.WaitGroup
	graph   *renderGraph
}

func newExecutionPool(g *renderGraph, workers int) *executionPool {
	mu := &sync.Mutex{}
	p := &executionPool{
		mu:      mu,
		cond:    sync.NewCond(mu),
		queue:   common.NewSafeQueue[*renderNode](),
		running: true,
		graph:   g,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *executionPool) push(n *renderNode) {
	p.queue.Push(n)
	p.mu.Lock()
	p.cond.Signal()
	p.mu.Unlock()
}

func (p *executionPool) wakeAll() {
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
}

func (p *executionPool) worker() {
	defer p.wg.Done()

	cmd := &CommandContext{
		Pool: p.graph.device.RequestExternalCommandPool(common.QueueTypeGraphics, common.GPUTypeDiscrete),
	}

	for {
		p.mu.Lock()
		for p.running && p.queue.Empty() {
			p.cond.Wait()
		}
		if !p.running {
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		for {
			n, ok := p.queue.TryPop()
			if !ok {
				break
			}
			p.graph.runParallel(p, n, cmd)
			runtime.Gosched()
		}
	}
}

// stop clears the running flag, wakes every worker and waits for them to exit. Queued nodes that no worker has
// picked up are dropped.
func (p *executionPool) stop() {
	p.mu.Lock()
	p.running = false
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
	p.queue.Clear()
}
