// Package taskgraph implements the abstract task-graph capability the core
// depends on (§4.7): submit_task, precedes, and a run that blocks until
// every task completes or one fails, cancelling the rest on first error.
//
// It is grounded on the same bounded-worker-pool + channel/WaitGroup shape
// the teacher uses for its tileset export pipeline (internal/io producer /
// consumer), generalized into a real DAG executor, with first-error-wins
// cancellation backed by golang.org/x/sync/errgroup.
//
// Two complementary ways to grow the graph are exposed: Precedes, for
// statically wiring a graph before Run, and TaskContext.Spawn, safe to call
// from within a running task (optionally with predecessors), for
// algorithms that discover successor work only once a predecessor has run
// (the root-down recursion both tiling algorithms use, where each node's
// children are only known after that node's sampling pass completes, and
// TilingAlgorithmV2's reduce task, spawned behind its refine tasks).
package taskgraph

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// TaskID identifies a task within one Graph.
type TaskID uint64

// TaskFunc is the unit of work submitted to a Graph. It receives a
// TaskContext carrying the run's cancellation context and the ability to
// grow the graph dynamically.
type TaskFunc func(tc *TaskContext) error

// TaskContext is handed to a running task.
type TaskContext struct {
	ctx   context.Context
	graph *Graph
}

func (tc *TaskContext) Context() context.Context { return tc.ctx }

// Spawn adds a new task to the graph that becomes ready once every task in
// preds has completed (immediately, if preds is empty or already done).
// Safe to call concurrently, including from within another running task.
func (tc *TaskContext) Spawn(fn TaskFunc, preds ...TaskID) TaskID {
	return tc.graph.spawn(fn, preds)
}

type taskNode struct {
	fn         TaskFunc
	remaining  int
	successors []TaskID
	done       bool
	submitted  bool
}

// Graph is a DAG of tasks executed by a bounded worker pool. A Graph is
// meant to be built once (via SubmitTask/Precedes, and/or dynamically via
// Spawn during Run) and run once; the tiling driver creates a fresh Graph
// per batch (§5 "across batches, the driver is sequential").
type Graph struct {
	mu          sync.Mutex
	tasks       map[TaskID]*taskNode
	nextID      TaskID
	concurrency int
	wg          sync.WaitGroup
	rq          *readyQueue // set only while Run is executing
}

func NewGraph(concurrency int) *Graph {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Graph{
		tasks:       make(map[TaskID]*taskNode),
		concurrency: concurrency,
	}
}

// SubmitTask adds a task with no predecessors. Must be called before Run,
// or from within a running task via TaskContext.Spawn.
func (g *Graph) SubmitTask(fn TaskFunc) TaskID {
	return g.spawn(fn, nil)
}

// Precedes declares that task a must complete before task b becomes
// eligible to run. Only legal to call before Run starts.
func (g *Graph) Precedes(a, b TaskID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	at, bt := g.tasks[a], g.tasks[b]
	if at == nil || bt == nil || at.done {
		return
	}
	at.successors = append(at.successors, b)
	bt.remaining++
}

func (g *Graph) spawn(fn TaskFunc, preds []TaskID) TaskID {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	remaining := 0
	for _, p := range preds {
		pt := g.tasks[p]
		if pt == nil || pt.done {
			continue
		}
		remaining++
		pt.successors = append(pt.successors, id)
	}
	tn := &taskNode{fn: fn, remaining: remaining}
	g.tasks[id] = tn
	g.wg.Add(1)
	ready := remaining == 0
	rq := g.rq
	// Before Run, a ready task stays unsubmitted so Run's initial sweep
	// enqueues it; during Run it is pushed here directly.
	if ready && rq != nil {
		tn.submitted = true
	}
	g.mu.Unlock()

	if ready && rq != nil {
		rq.push(id)
	}
	return id
}

// Run executes the graph to completion, respecting the bounded concurrency
// the Graph was created with. It returns the first task error encountered;
// on error, tasks not yet started are cancelled and skipped.
func (g *Graph) Run(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)

	rq := newReadyQueue()
	g.mu.Lock()
	g.rq = rq
	var initial []TaskID
	for id, tn := range g.tasks {
		if tn.remaining == 0 && !tn.submitted {
			tn.submitted = true
			initial = append(initial, id)
		}
	}
	g.mu.Unlock()
	for _, id := range initial {
		rq.push(id)
	}

	go func() {
		g.wg.Wait()
		rq.close()
	}()

	for {
		id, ok := rq.pop()
		if !ok {
			break
		}
		eg.Go(func() error {
			return g.runOne(egctx, id, rq)
		})
	}
	return eg.Wait()
}

func (g *Graph) runOne(ctx context.Context, id TaskID, rq *readyQueue) error {
	g.mu.Lock()
	tn := g.tasks[id]
	g.mu.Unlock()

	select {
	case <-ctx.Done():
		g.cancelSuccessors(id)
		g.wg.Done()
		return nil
	default:
	}

	tc := &TaskContext{ctx: ctx, graph: g}
	err := tn.fn(tc)
	if err != nil {
		g.cancelSuccessors(id)
		g.wg.Done()
		return err
	}

	g.mu.Lock()
	tn.done = true
	var ready []TaskID
	for _, s := range tn.successors {
		st := g.tasks[s]
		st.remaining--
		if st.remaining == 0 && !st.submitted {
			st.submitted = true
			ready = append(ready, s)
		}
	}
	g.mu.Unlock()

	for _, rid := range ready {
		rq.push(rid)
	}
	g.wg.Done()
	return nil
}

// cancelSuccessors marks id's declared successors as if id had completed,
// without making them eligible to run, so their wg.Add(1) is always matched
// by a wg.Done() even when id errors or its context is cancelled before it
// runs. Without this, a successor's remaining count never reaches zero and
// g.wg.Wait() never returns, leaving Run hanging instead of surfacing the
// first error (§4.7).
func (g *Graph) cancelSuccessors(id TaskID) {
	g.mu.Lock()
	tn := g.tasks[id]
	if tn == nil {
		g.mu.Unlock()
		return
	}
	succs := append([]TaskID(nil), tn.successors...)
	g.mu.Unlock()

	for _, sid := range succs {
		g.mu.Lock()
		st := g.tasks[sid]
		if st == nil || st.submitted {
			g.mu.Unlock()
			continue
		}
		st.remaining--
		cancel := st.remaining <= 0
		if cancel {
			st.submitted = true
			st.done = true
		}
		g.mu.Unlock()
		if cancel {
			g.wg.Done()
			g.cancelSuccessors(sid)
		}
	}
}
