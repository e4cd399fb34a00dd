package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingPushPopFIFO(t *testing.T) {
	r := NewRing[int](4)
	require.True(t, r.Push(1))
	require.True(t, r.Push(2))
	require.True(t, r.Push(3))

	v, ok := r.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = r.Pop()
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestRingReportsFullWithoutBlocking(t *testing.T) {
	r := NewRing[int](2)
	require.True(t, r.Push(1))
	require.True(t, r.Push(2))
	assert.False(t, r.Push(3))
}

func TestRingReportsEmptyWithoutBlocking(t *testing.T) {
	r := NewRing[int](2)
	_, ok := r.Pop()
	assert.False(t, ok)
}

func TestRingWrapsAroundCorrectly(t *testing.T) {
	r := NewRing[int](2)
	for i := 0; i < 10; i++ {
		require.True(t, r.Push(i))
		v, ok := r.Pop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestRingLenAndCap(t *testing.T) {
	r := NewRing[int](8)
	assert.Equal(t, 8, r.Cap())
	assert.Equal(t, 0, r.Len())
	r.Push(1)
	r.Push(2)
	assert.Equal(t, 2, r.Len())
	r.Pop()
	assert.Equal(t, 1, r.Len())
}

func TestNewRingPanicsOnNonPowerOfTwo(t *testing.T) {
	assert.Panics(t, func() { NewRing[int](3) })
	assert.Panics(t, func() { NewRing[int](0) })
}

func TestRingConcurrentSPSC(t *testing.T) {
	r := NewRing[int](1024)
	const n = 100000
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < n; {
			if r.Push(i) {
				i++
			}
		}
	}()

	sum := 0
	for i := 0; i < n; {
		if v, ok := r.Pop(); ok {
			sum += v
			i++
		}
	}
	<-done
	assert.Equal(t, n*(n-1)/2, sum)
}
