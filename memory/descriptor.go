package memory

import (
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

// DescriptorAddress identifies a descriptor by its position in the
// device wide descriptor address space.
type DescriptorAddress uint64

type descriptorRange[H any] struct {
	base  DescriptorAddress
	count uint64
	heap  H
}

// DescriptorAllocator tracks which descriptor range belongs to which
// heap. Ranges are registered when a heap is created and unregistered
// when it is destroyed, they never overlap. Every operation holds the
// same lock.
type DescriptorAllocator[H any] struct {
	mutex  sync.Mutex
	ranges []descriptorRange[H]
}

// NewDescriptorAllocator creates an empty allocator
func NewDescriptorAllocator[H any]() *DescriptorAllocator[H] {
	return &DescriptorAllocator[H]{}
}

// RegisterRange records count descriptors starting at base as owned
// by heap. It fails for empty or overlapping ranges.
func (a *DescriptorAllocator[H]) RegisterRange(base DescriptorAddress, count uint64, heap H) bool {
	if count == 0 {
		return false
	}
	a.mutex.Lock()
	defer a.mutex.Unlock()

	i := sort.Search(len(a.ranges), func(i int) bool {
		return a.ranges[i].base >= base
	})
	if i < len(a.ranges) && uint64(a.ranges[i].base-base) < count {
		log.WithField("base", uint64(base)).Error("descriptor range overlaps the next range")
		return false
	}
	if i > 0 {
		prev := a.ranges[i-1]
		if uint64(base-prev.base) < prev.count {
			log.WithField("base", uint64(base)).Error("descriptor range overlaps the previous range")
			return false
		}
	}

	a.ranges = append(a.ranges, descriptorRange[H]{})
	copy(a.ranges[i+1:], a.ranges[i:])
	a.ranges[i] = descriptorRange[H]{base: base, count: count, heap: heap}
	return true
}

// UnregisterRange removes the range starting at base
func (a *DescriptorAllocator[H]) UnregisterRange(base DescriptorAddress) bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	for i := range a.ranges {
		if a.ranges[i].base != base {
			continue
		}
		copy(a.ranges[i:], a.ranges[i+1:])
		var none descriptorRange[H]
		a.ranges[len(a.ranges)-1] = none
		a.ranges = a.ranges[:len(a.ranges)-1]
		return true
	}
	return false
}

// find returns the range containing d, the lock must be held
func (a *DescriptorAllocator[H]) find(d DescriptorAddress) *descriptorRange[H] {
	i := sort.Search(len(a.ranges), func(i int) bool {
		return a.ranges[i].base > d
	})
	if i == 0 {
		return nil
	}
	r := &a.ranges[i-1]
	if uint64(d-r.base) >= r.count {
		return nil
	}
	return r
}

// HeapFromDescriptor returns the heap owning descriptor d
func (a *DescriptorAllocator[H]) HeapFromDescriptor(d DescriptorAddress) (H, bool) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if r := a.find(d); r != nil {
		return r.heap, true
	}
	var none H
	return none, false
}

// RemainingCountFromDescriptor returns the number of descriptors from d
// to the end of its range, zero when d belongs to no range.
func (a *DescriptorAllocator[H]) RemainingCountFromDescriptor(d DescriptorAddress) uint64 {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if r := a.find(d); r != nil {
		return r.count - uint64(d-r.base)
	}
	return 0
}

// Len returns the number of registered ranges
func (a *DescriptorAllocator[H]) Len() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return len(a.ranges)
}
