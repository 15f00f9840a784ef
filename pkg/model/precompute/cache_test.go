package precompute

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeySplit(t *testing.T) {
	for _, c := range []struct{ id, slot int }{{0, 0}, {3, 47}, {12, 5}} {
		id, slot := Split(Key(c.id, c.slot, 48), 48)
		require.Equal(t, c.id, id)
		require.Equal(t, c.slot, slot)
	}
}

// 2 slots of 1-dimensional embeddings, 2 hidden units
func testLayout() (Layout, []float64, []float64) {
	layout := Layout{NumTokens: 2, EmbeddingSize: 1, HiddenSize: 2}
	e := []float64{1, 2, 3}
	w1 := []float64{
		10, 20,
		30, 40,
	}
	return layout, e, w1
}

func TestBuild(t *testing.T) {
	layout, e, w1 := testLayout()
	c := Build(layout, []int{Key(2, 1, 2), Key(1, 0, 2), Key(2, 1, 2), -3, Key(3, 0, 2)}, e, w1)
	require.Equal(t, []int{5, 2}, c.Keys())
	require.Equal(t, 2, c.Len())

	v, ok := c.Get(Key(2, 1, 2))
	require.True(t, ok)
	require.Equal(t, []float64{60, 120}, v)
	v, ok = c.Get(Key(1, 0, 2))
	require.True(t, ok)
	require.Equal(t, []float64{20, 60}, v)

	pos, ok := c.Position(Key(1, 0, 2))
	require.True(t, ok)
	require.Equal(t, 1, pos)
	_, ok = c.Get(Key(0, 0, 2))
	require.False(t, ok)
}

func TestNilCache(t *testing.T) {
	var c *Cache
	_, ok := c.Get(0)
	require.False(t, ok)
	_, ok = c.Position(0)
	require.False(t, ok)
	require.Nil(t, c.Keys())
	require.Equal(t, 0, c.Len())
}

func TestContribution(t *testing.T) {
	layout, _, w1 := testLayout()
	dst := []float64{1, 1}
	Contribution(layout, dst, w1, []float64{0.5}, 0)
	require.Equal(t, []float64{6, 16}, dst)
}

func TestStore(t *testing.T) {
	layout, e, w1 := testLayout()
	var s Store
	require.Nil(t, s.Load())

	small := Build(layout, []int{0}, e, w1)
	large := Build(layout, []int{0, 1, 2, 3}, e, w1)
	s.Swap(small)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c := s.Load()
				require.Contains(t, []int{1, 4}, c.Len())
			}
		}()
	}
	s.Swap(large)
	wg.Wait()
	require.Equal(t, 4, s.Load().Len())

	s.Swap(nil)
	require.Nil(t, s.Load())
}
