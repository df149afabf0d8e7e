package taskgraph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCompletesLinearChain(t *testing.T) {
	g := NewGraph(2)
	var order []int
	a := g.SubmitTask(func(tc *TaskContext) error {
		order = append(order, 1)
		return nil
	})
	b := g.SubmitTask(func(tc *TaskContext) error {
		order = append(order, 2)
		return nil
	})
	g.Precedes(a, b)

	require.NoError(t, g.Run(context.Background()))
	assert.Equal(t, []int{1, 2}, order)
}

func TestRunSurfacesFirstErrorWithoutHanging(t *testing.T) {
	g := NewGraph(2)
	boom := errors.New("boom")
	failing := g.SubmitTask(func(tc *TaskContext) error {
		return boom
	})
	dependent := g.SubmitTask(func(tc *TaskContext) error {
		t.Fatal("dependent task must not run once its predecessor failed")
		return nil
	})
	g.Precedes(failing, dependent)

	done := make(chan error, 1)
	go func() { done <- g.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return: an errored task's successor was never settled")
	}
}

func TestRunSettlesSuccessorWithMultiplePredecessorsOnError(t *testing.T) {
	g := NewGraph(2)
	boom := errors.New("boom")
	ranReduce := false
	a := g.SubmitTask(func(tc *TaskContext) error { return nil })
	b := g.SubmitTask(func(tc *TaskContext) error { return boom })
	reduce := g.SubmitTask(func(tc *TaskContext) error {
		ranReduce = true
		return nil
	})
	g.Precedes(a, reduce)
	g.Precedes(b, reduce)

	done := make(chan error, 1)
	go func() { done <- g.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return: reduce task's wg.Add was never matched by wg.Done")
	}
	assert.False(t, ranReduce)
}

func TestSpawnDuringRunBecomesReadyOnCompletion(t *testing.T) {
	g := NewGraph(2)
	var spawned TaskID
	g.SubmitTask(func(tc *TaskContext) error {
		spawned = tc.Spawn(func(tc *TaskContext) error { return nil })
		return nil
	})

	require.NoError(t, g.Run(context.Background()))
	assert.NotZero(t, spawned)
}
