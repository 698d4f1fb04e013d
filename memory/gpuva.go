// Package memory holds the address-space allocators a device hands out
// to resources and descriptor heaps.
package memory

import (
	"sort"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// GPUVirtualAddress is an opaque address handed to resources. Zero is
// never a valid address.
type GPUVirtualAddress uint64

// Layout of the address space
const (
	SlabBase      GPUVirtualAddress = 0x0000001000000000
	SlabSizeShift                   = 32
	SlabSize                        = uint64(1) << SlabSizeShift
	SlabCount                       = 64 * 1024
	FallbackBase  GPUVirtualAddress = 0x8000000000000000
)

// slabIndex addresses a slot of the slab array, it is converted from
// and to addresses only by slabIndexOf and slabAddress.
type slabIndex uint32

const noSlab = ^slabIndex(0)

// vaSlabEntry is immutable once published to a slot
type vaSlabEntry[T any] struct {
	size  uint64
	owner T
}

type vaSlab[T any] struct {
	entry atomic.Pointer[vaSlabEntry[T]]
	next  slabIndex
}

type vaAllocation[T any] struct {
	base  GPUVirtualAddress
	size  uint64
	owner T
}

// GPUVAAllocator hands out GPU virtual addresses and resolves them back
// to their owner. Sizes up to SlabSize take a slot of a fixed slab
// array, anything larger or any allocation made once the slab is full
// goes to a fallback region where addresses are bumped and never reused.
//
// Dereferencing a slab address does not lock: the slab array is never
// reallocated and each slot publishes its allocation through an atomic
// pointer, stored under the mutex by Allocate and Free.
type GPUVAAllocator[T any] struct {
	mutex sync.Mutex

	slabs     []vaSlab[T]
	freeSlab  slabIndex
	slabCount uint32

	fallbackFloor GPUVirtualAddress
	fallbackLimit uint64
	fallback      []vaAllocation[T]
}

// GPUVAOption configures a GPUVAAllocator
type GPUVAOption func(*gpuvaConfig)

type gpuvaConfig struct {
	slabCount     uint32
	fallbackLimit uint64
}

// WithSlabCount overrides the number of slab slots
func WithSlabCount(n uint32) GPUVAOption {
	return func(c *gpuvaConfig) {
		if n > 0 && n < SlabCount {
			c.slabCount = n
		}
	}
}

// WithFallbackLimit caps the fallback region at limit, the highest
// address it may hand out.
func WithFallbackLimit(limit uint64) GPUVAOption {
	return func(c *gpuvaConfig) {
		if limit > uint64(FallbackBase) {
			c.fallbackLimit = limit
		}
	}
}

// NewGPUVAAllocator creates an allocator with every slab slot free
func NewGPUVAAllocator[T any](opts ...GPUVAOption) *GPUVAAllocator[T] {
	cfg := gpuvaConfig{
		slabCount:     SlabCount,
		fallbackLimit: ^uint64(0),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	a := &GPUVAAllocator[T]{
		slabs:         make([]vaSlab[T], cfg.slabCount),
		slabCount:     cfg.slabCount,
		fallbackFloor: FallbackBase,
		fallbackLimit: cfg.fallbackLimit,
	}
	for i := range a.slabs {
		a.slabs[i].next = slabIndex(i + 1)
	}
	a.slabs[len(a.slabs)-1].next = noSlab
	a.freeSlab = 0
	return a
}

func slabAddress(idx slabIndex) GPUVirtualAddress {
	return SlabBase + GPUVirtualAddress(uint64(idx)<<SlabSizeShift)
}

// slabIndexOf splits a slab region address into slot and offset
func (a *GPUVAAllocator[T]) slabIndexOf(addr GPUVirtualAddress) (slabIndex, uint64, bool) {
	if addr < SlabBase {
		return 0, 0, false
	}
	offset := uint64(addr - SlabBase)
	idx := offset >> SlabSizeShift
	if idx >= uint64(a.slabCount) {
		return 0, 0, false
	}
	return slabIndex(idx), offset & (SlabSize - 1), true
}

// Allocate reserves size bytes aligned to alignment for owner. It
// returns zero when the request is malformed or the address space is
// exhausted.
func (a *GPUVAAllocator[T]) Allocate(alignment, size uint64, owner T) GPUVirtualAddress {
	if alignment == 0 {
		alignment = 1
	}
	if alignment&(alignment-1) != 0 {
		log.WithField("alignment", alignment).Error("alignment is not a power of two")
		return 0
	}
	if size == 0 {
		return 0
	}
	alignedSize := (size + alignment - 1) &^ (alignment - 1)
	if alignedSize < size {
		return 0
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if alignedSize <= SlabSize && a.freeSlab != noSlab {
		idx := a.freeSlab
		slab := &a.slabs[idx]
		a.freeSlab = slab.next
		slab.entry.Store(&vaSlabEntry[T]{size: alignedSize, owner: owner})
		slab.next = noSlab
		return slabAddress(idx)
	}
	return a.allocateFallback(alignment, alignedSize, owner)
}

func (a *GPUVAAllocator[T]) allocateFallback(alignment, size uint64, owner T) GPUVirtualAddress {
	ceiling := a.fallbackLimit - (alignment - 1)
	if size > ceiling || ceiling-size < uint64(a.fallbackFloor) {
		log.WithFields(log.Fields{"size": size, "alignment": alignment}).Warn("gpu virtual address space exhausted")
		return 0
	}

	base := (uint64(a.fallbackFloor) + alignment - 1) &^ (alignment - 1)
	addr := GPUVirtualAddress(base)

	// The floor only grows, so appending keeps the list sorted by base
	a.fallback = append(a.fallback, vaAllocation[T]{base: addr, size: size, owner: owner})
	a.fallbackFloor = addr + GPUVirtualAddress(size)
	return addr
}

// Dereference returns the owner of the allocation containing addr
func (a *GPUVAAllocator[T]) Dereference(addr GPUVirtualAddress) (T, bool) {
	var none T
	if addr == 0 {
		return none, false
	}
	if addr < FallbackBase {
		idx, offset, ok := a.slabIndexOf(addr)
		if !ok {
			return none, false
		}
		entry := a.slabs[idx].entry.Load()
		if entry == nil || offset >= entry.size {
			return none, false
		}
		return entry.owner, true
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()
	if alloc := a.findFallback(addr); alloc != nil {
		return alloc.owner, true
	}
	return none, false
}

// findFallback binary searches for the allocation containing addr
func (a *GPUVAAllocator[T]) findFallback(addr GPUVirtualAddress) *vaAllocation[T] {
	i := sort.Search(len(a.fallback), func(i int) bool {
		return a.fallback[i].base+GPUVirtualAddress(a.fallback[i].size) > addr
	})
	if i == len(a.fallback) {
		return nil
	}
	alloc := &a.fallback[i]
	if addr < alloc.base || uint64(addr-alloc.base) >= alloc.size {
		return nil
	}
	return alloc
}

// Free releases the allocation starting at addr. Slab slots return to
// the free list, fallback addresses are not handed out again.
func (a *GPUVAAllocator[T]) Free(addr GPUVirtualAddress) {
	if addr == 0 {
		return
	}
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if addr < FallbackBase {
		idx, offset, ok := a.slabIndexOf(addr)
		if !ok || offset != 0 || a.slabs[idx].entry.Load() == nil {
			log.WithField("address", uint64(addr)).Error("freeing unknown gpu virtual address")
			return
		}
		slab := &a.slabs[idx]
		slab.entry.Store(nil)
		slab.next = a.freeSlab
		a.freeSlab = idx
		return
	}

	i := sort.Search(len(a.fallback), func(i int) bool {
		return a.fallback[i].base >= addr
	})
	if i == len(a.fallback) || a.fallback[i].base != addr {
		log.WithField("address", uint64(addr)).Error("freeing unknown gpu virtual address")
		return
	}
	a.fallback = append(a.fallback[:i], a.fallback[i+1:]...)
}

// FallbackAllocations is the number of live fallback allocations
func (a *GPUVAAllocator[T]) FallbackAllocations() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return len(a.fallback)
}
