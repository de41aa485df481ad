package containers

import "fmt"

// InvalidSlot is returned when a SlotTable has no room left.
const InvalidSlot = -1

// SlotTable is a fixed capacity arena of index handles. Slots are handed out
// in increasing order until the capacity is reached, after that only slots
// returned through Release are reused (lowest index first).
type SlotTable[T comparable] struct {
	owners    []T
	used      []bool
	free      []int
	allocated int
}

func NewSlotTable[T comparable](capacity int) *SlotTable[T] {
	return &SlotTable[T]{
		owners: make([]T, capacity),
		used:   make([]bool, capacity),
	}
}

// Acquire hands out a slot to owner. The second return value reports whether
// the slot has never been handed out before, so callers know when backing
// resources for it must be created.
func (st *SlotTable[T]) Acquire(owner T) (slot int, fresh bool) {
	if len(st.free) > 0 {
		best := 0
		for i := 1; i < len(st.free); i++ {
			if st.free[i] < st.free[best] {
				best = i
			}
		}
		slot = st.free[best]
		st.free = append(st.free[:best], st.free[best+1:]...)
		st.owners[slot] = owner
		st.used[slot] = true
		return slot, false
	}

	if st.allocated >= len(st.owners) {
		return InvalidSlot, false
	}

	slot = st.allocated
	st.allocated++
	st.owners[slot] = owner
	st.used[slot] = true
	return slot, true
}

// Release puts slot back on the free list.
func (st *SlotTable[T]) Release(slot int) error {
	if slot < 0 || slot >= st.allocated {
		return fmt.Errorf("slot %d out of range (allocated=%d)", slot, st.allocated)
	}
	if !st.used[slot] {
		return fmt.Errorf("slot %d is not in use", slot)
	}
	var zero T
	st.owners[slot] = zero
	st.used[slot] = false
	st.free = append(st.free, slot)
	return nil
}

// Owner returns the owner of slot and whether the slot is in use.
func (st *SlotTable[T]) Owner(slot int) (T, bool) {
	var zero T
	if slot < 0 || slot >= st.allocated || !st.used[slot] {
		return zero, false
	}
	return st.owners[slot], true
}

// Find returns the slot held by owner.
func (st *SlotTable[T]) Find(owner T) (int, bool) {
	for i := 0; i < st.allocated; i++ {
		if st.used[i] && st.owners[i] == owner {
			return i, true
		}
	}
	return InvalidSlot, false
}

func (st *SlotTable[T]) InUse(slot int) bool {
	return slot >= 0 && slot < st.allocated && st.used[slot]
}

// Allocated is the number of slots that have ever been handed out.
func (st *SlotTable[T]) Allocated() int {
	return st.allocated
}

func (st *SlotTable[T]) Capacity() int {
	return len(st.owners)
}

// SetOwner replaces the owner of a slot in use.
func (st *SlotTable[T]) SetOwner(slot int, owner T) bool {
	if !st.InUse(slot) {
		return false
	}
	st.owners[slot] = owner
	return true
}
