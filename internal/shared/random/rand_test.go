package random

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFloat64_Range(t *testing.T) {
	for i := 0; i < 1000; i++ {
		v := Float64()
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}

func TestFloat64_Diversity(t *testing.T) {
	buckets := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		buckets[uint64(Float64()*1000)] = true
	}
	require.Greater(t, len(buckets), 50, "values should spread over many buckets")
}

func TestInit_ShardCounts(t *testing.T) {
	for _, n := range []int{8, 16, 0, -1} {
		Init(n)
		v := Float64()
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}

func TestFloat64_Concurrent(t *testing.T) {
	results := make(chan float64, 1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				results <- Float64()
			}
		}()
	}
	wg.Wait()
	close(results)

	for v := range results {
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 1.0)
	}
}
