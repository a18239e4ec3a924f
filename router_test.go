package fluxgraph

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRouter_FirstMatchWins(t *testing.T) {
	r := NewRouter[int]("r")
	r.AddRoute("small", func(x int) bool { return x < 10 }, NewMapOperator("tag-small", func(x int) (int, error) { return x * 100, nil }))
	r.AddRoute("any", func(int) bool { return true }, NewMapOperator("tag-any", func(x int) (int, error) { return x + 1, nil }))

	in := make(chan Message[int], 3)
	in <- Item(1)
	in <- Item(20)
	in <- Terminator[int]()
	close(in)

	out := r.Process(context.Background(), func(error) {}, in)
	vals, sentineled := drain(out)
	sort.Ints(vals)
	require.Equal(t, []int{21, 100}, vals)
	require.True(t, sentineled)
}

func TestRouter_UnmatchedDroppedWithoutDefault(t *testing.T) {
	r := NewRouter[int]("r")
	r.AddRoute("big", func(x int) bool { return x > 100 }, NewMapOperator("pass", func(x int) (int, error) { return x, nil }))

	in := make(chan Message[int], 2)
	in <- Item(1)
	in <- Terminator[int]()
	close(in)

	out := r.Process(context.Background(), func(error) {}, in)
	vals, sentineled := drain(out)
	require.Empty(t, vals)
	require.True(t, sentineled)
}

func TestRouter_DefaultRouteCatchesUnmatched(t *testing.T) {
	r := NewRouter[int]("r")
	r.AddRoute("big", func(x int) bool { return x > 100 }, NewMapOperator("pass", func(x int) (int, error) { return x, nil }))
	r.WithDefault(NewMapOperator("tag-default", func(x int) (int, error) { return -x, nil }))

	in := make(chan Message[int], 2)
	in <- Item(5)
	in <- Terminator[int]()
	close(in)

	out := r.Process(context.Background(), func(error) {}, in)
	vals, sentineled := drain(out)
	require.Equal(t, []int{-5}, vals)
	require.True(t, sentineled)
}
