package fluxgraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func sumReducer(name string) *Reducer[int] {
	return NewReducer(0, func(acc, item int) int { return acc + item })
}

func runToCompletion(t *testing.T, ctrl *Controller[int], items []int) (int, error) {
	t.Helper()
	for _, v := range items {
		require.NoError(t, ctrl.Emit(v))
	}
	ctrl.Terminate()
	return ctrl.AwaitTermination()
}

func TestBuildFlow_FunctionalPipeline(t *testing.T) {
	inc := NewMapOperator("inc", func(x int) (int, error) { return x + 1, nil })
	evens := NewFilterOperator("evens", func(x int) bool { return x%2 == 0 })
	ctrl, err := BuildFlow[int]([]any{Source[int](), inc, evens, sumReducer("sum")})
	require.NoError(t, err)

	result, err := runToCompletion(t, ctrl, []int{1, 2, 3, 4})
	require.NoError(t, err)
	// inc -> 2,3,4,5; evens -> 2,4; sum -> 6
	require.Equal(t, 6, result)
}

func TestBuildFlow_BroadcastToTwoReducers(t *testing.T) {
	count := NewReducer(0, func(acc, _ int) int { return acc + 1 })
	ctrl, err := BuildFlow[int]([]any{
		Source[int](),
		Branches(func(a, b int) int { return a + b },
			[]any{sumReducer("sum")},
			[]any{count},
		),
	})
	require.NoError(t, err)

	result, err := runToCompletion(t, ctrl, []int{5, 7, 9})
	require.NoError(t, err)
	require.Equal(t, 24, result) // sum(21) + count(3)
}

func TestBuildFlow_MixedBroadcast(t *testing.T) {
	double := NewMapOperator("double", func(x int) (int, error) { return x * 2, nil })
	ctrl, err := BuildFlow[int]([]any{
		Source[int](),
		Branches(func(a, b int) int { return a + b },
			[]any{double, sumReducer("doubled-sum")},
			[]any{sumReducer("raw-sum")},
		),
	})
	require.NoError(t, err)

	result, err := runToCompletion(t, ctrl, []int{5, 7, 9})
	require.NoError(t, err)
	require.Equal(t, 63, result) // 2*(21) + 21
}

func TestBuildFlow_ErrorPropagation(t *testing.T) {
	boom := errors.New("boom on 2")
	faulty := NewMapOperator("faulty", func(x int) (int, error) {
		if x == 2 {
			return 0, boom
		}
		return x, nil
	})
	ctrl, err := BuildFlow[int]([]any{Source[int](), faulty, sumReducer("sum")})
	require.NoError(t, err)

	require.NoError(t, ctrl.Emit(1))
	require.NoError(t, ctrl.Emit(2))
	ctrl.Terminate()

	_, err = ctrl.AwaitTermination()
	require.Error(t, err)
	fe := err.(*FlowError)
	require.Equal(t, KindOperatorFailure, fe.Kind)
}

func TestBuildFlow_RequiresSource(t *testing.T) {
	_, err := BuildFlow[int]([]any{sumReducer("sum")})
	require.Error(t, err)
	fe := err.(*FlowError)
	require.Equal(t, KindInvalidFlowSpec, fe.Kind)
}

func TestBuildFlow_RequiresTerminalReducer(t *testing.T) {
	_, err := BuildFlow[int]([]any{Source[int](), NewMapOperator("inc", func(x int) (int, error) { return x + 1, nil })})
	require.Error(t, err)
	fe := err.(*FlowError)
	require.Equal(t, KindInvalidFlowSpec, fe.Kind)
}

func TestBuildFlow_RejectsEmptySteps(t *testing.T) {
	_, err := BuildFlow[int](nil)
	require.Error(t, err)
}

func TestController_CancelFailsPendingEmit(t *testing.T) {
	ctrl, err := BuildFlow[int]([]any{Source[int](), sumReducer("sum")})
	require.NoError(t, err)

	require.NoError(t, ctrl.TryEmit(1))
	ctrl.Cancel()

	// AwaitTermination blocks until the cancellation has reached the reducer.
	_, awaitErr := ctrl.AwaitTermination()
	require.Error(t, awaitErr)

	emitErr := ctrl.Emit(2)
	require.Error(t, emitErr)
}
