package fluxgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFanIn_MergesAllInputsAndWaitsForEverySentinel(t *testing.T) {
	ctx := context.Background()
	a := make(chan Message[int], 2)
	b := make(chan Message[int], 2)

	a <- Item(1)
	b <- Item(2)

	fi := NewFanIn[int]("merge")
	out := fi.Merge(ctx, a, b)

	first := <-out
	second := <-out
	require.ElementsMatch(t, []int{1, 2}, []int{first.Value, second.Value})

	// a sentinels first; the merge must not close out until b also sentinels.
	a <- Terminator[int]()
	close(a)

	select {
	case msg := <-out:
		t.Fatalf("unexpected early message/sentinel before b completed: %+v", msg)
	default:
	}

	b <- Terminator[int]()
	close(b)

	final := <-out
	require.True(t, final.Sentinel)
	_, ok := <-out
	require.False(t, ok, "out must close after forwarding the single sentinel")
}
