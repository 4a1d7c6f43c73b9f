package simulate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeItems(n int) <-chan WorkItem {
	ch := make(chan WorkItem, n)
	for i := range n {
		ch <- WorkItem{Seq: i, Seed: uint64(i)}
	}
	close(ch)
	return ch
}

func echo(item WorkItem) WorkResult {
	return WorkResult{P: float64(item.Seed)}
}

func TestRunReplicates_OrderPreservation(t *testing.T) {
	results := RunReplicates(makeItems(200), 8, echo)

	var collected []int
	err := OrderedCollect(results, func(r WorkResult) error {
		require.NoError(t, r.Err)
		assert.Equal(t, float64(r.Seq), r.P)
		collected = append(collected, r.Seq)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, collected, 200)
	for i, seq := range collected {
		assert.Equal(t, i, seq, "result %d out of order", i)
	}
}

func TestRunReplicates_DefaultWorkers(t *testing.T) {
	count := 0
	err := OrderedCollect(RunReplicates(makeItems(20), 0, echo), func(r WorkResult) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 20, count)
}

func TestRunReplicates_EmptyInput(t *testing.T) {
	ch := make(chan WorkItem)
	close(ch)

	count := 0
	err := OrderedCollect(RunReplicates(ch, 4, echo), func(r WorkResult) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestOrderedCollect_EarlyError(t *testing.T) {
	count := 0
	err := OrderedCollect(RunReplicates(makeItems(100), 4, echo), func(r WorkResult) error {
		count++
		if count == 5 {
			return fmt.Errorf("stop at 5")
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 5, count)
}
