package rendergraph

func (g *renderGraph) BeginRenderPasses(ctx *RenderContext) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	g.resetFrameState(ctx)

	work := make([]*renderNode, 0, len(g.order))
	for _, n := range g.order {
		if len(n.prev) == 0 {
			work = append(work, n)
		}
	}
	for i := 0; i < len(work); i++ {
		n := work[i]
		if !n.Execute() {
			continue
		}
		for _, next := range n.next {
			if next.state.pending.Add(-1) == 0 {
				work = append(work, next)
			}
		}
	}
}

func (g *renderGraph) BeginRenderPassesParallel(ctx *RenderContext) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.pool == nil {
		return ErrNoWorkerPool
	}

	g.resetFrameState(ctx)
	for _, n := range g.order {
		if len(n.prev) == 0 {
			enqueue(g.pool, n)
		}
	}
	g.pool.wakeAll()
	return nil
}

func (g *renderGraph) EnqueueRenderNode(node RenderNode) bool {
	n, ok := node.(*renderNode)
	if !ok || n == nil || n.graph != g {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return enqueue(g.pool, n)
}

// enqueue pushes n to pool once every predecessor has executed, at most once per frame.
func enqueue(pool *executionPool, n *renderNode) bool {
	if pool == nil || !n.predecessorsExecuted() {
		return false
	}
	if !n.state.enqueued.CompareAndSwap(false, true) {
		return false
	}
	pool.push(n)
	return true
}

// runParallel records one node on a worker of pool: it gives the node its own command buffer, hands the finished
// buffer to the command-recorded hook and then releases any successor whose last predecessor this was.
func (g *renderGraph) runParallel(pool *executionPool, n *renderNode, cmd *CommandContext) {
	buf := g.device.RequestCommandBuffer(cmd.Pool)
	if buf != nil {
		buf.SetLabel(n.name)
	}
	cmd.Buffer = buf
	n.ExecuteParallel(cmd)
	g.device.EndCommandBuffer(buf)
	cmd.Buffer = nil

	if g.onCommandRecorded != nil {
		g.onCommandRecorded(n.name, buf)
	}

	for _, next := range n.next {
		if next.state.pending.Add(-1) == 0 {
			enqueue(pool, next)
		}
	}
}
