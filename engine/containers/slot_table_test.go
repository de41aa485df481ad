package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotTableBoundary(t *testing.T) {
	const capacity = 4
	st := NewSlotTable[int](capacity)

	for i := 0; i < capacity; i++ {
		slot, fresh := st.Acquire(i + 100)
		require.Equal(t, i, slot)
		require.True(t, fresh)
	}

	slot, fresh := st.Acquire(999)
	assert.Equal(t, InvalidSlot, slot)
	assert.False(t, fresh)
	assert.Equal(t, capacity, st.Allocated())
}

func TestSlotTableReuse(t *testing.T) {
	st := NewSlotTable[string](3)
	a, _ := st.Acquire("a")
	b, _ := st.Acquire("b")
	c, _ := st.Acquire("c")
	require.Equal(t, []int{0, 1, 2}, []int{a, b, c})

	require.NoError(t, st.Release(c))
	require.NoError(t, st.Release(a))
	assert.False(t, st.InUse(a))

	// lowest released slot comes back first and is not fresh
	slot, fresh := st.Acquire("d")
	assert.Equal(t, 0, slot)
	assert.False(t, fresh)

	owner, ok := st.Owner(slot)
	assert.True(t, ok)
	assert.Equal(t, "d", owner)

	found, ok := st.Find("b")
	assert.True(t, ok)
	assert.Equal(t, 1, found)
}

func TestSlotTableReleaseErrors(t *testing.T) {
	st := NewSlotTable[int](2)
	assert.Error(t, st.Release(0))
	slot, _ := st.Acquire(1)
	require.NoError(t, st.Release(slot))
	assert.Error(t, st.Release(slot))
	assert.Error(t, st.Release(-1))
}

func TestRingQueue(t *testing.T) {
	rq := NewRingQueue[int](2)
	require.NoError(t, rq.Enqueue(1))
	require.NoError(t, rq.Enqueue(2))
	assert.ErrorIs(t, rq.Enqueue(3), ErrQueueFull)

	v, err := rq.Peek()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, _ = rq.Dequeue()
	assert.Equal(t, 1, v)
	require.NoError(t, rq.Enqueue(3))
	v, _ = rq.Dequeue()
	assert.Equal(t, 2, v)
	v, _ = rq.Dequeue()
	assert.Equal(t, 3, v)

	_, err = rq.Dequeue()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}
