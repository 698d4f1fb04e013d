package memory

import (
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

type resource struct {
	name string
}

func TestSlabAllocationReusesFreedSlot(t *testing.T) {
	c := qt.New(t)
	a := NewGPUVAAllocator[*resource]()

	r1, r2, r3 := &resource{"r1"}, &resource{"r2"}, &resource{"r3"}
	addr1 := a.Allocate(256, 4096, r1)
	addr2 := a.Allocate(256, 4096, r2)
	c.Assert(addr1, qt.Not(qt.Equals), GPUVirtualAddress(0))
	c.Assert(addr2, qt.Not(qt.Equals), GPUVirtualAddress(0))
	c.Assert(addr1, qt.Not(qt.Equals), addr2)
	for _, addr := range []GPUVirtualAddress{addr1, addr2} {
		c.Assert(addr >= SlabBase, qt.IsTrue)
		c.Assert(addr < FallbackBase, qt.IsTrue)
	}

	a.Free(addr1)
	addr3 := a.Allocate(256, 4096, r3)
	c.Assert(addr3, qt.Equals, addr1)

	owner, ok := a.Dereference(addr3)
	c.Assert(ok, qt.IsTrue)
	c.Assert(owner, qt.Equals, r3)
	c.Assert(a.FallbackAllocations(), qt.Equals, 0)
}

func TestDereferenceWithinAllocation(t *testing.T) {
	c := qt.New(t)
	a := NewGPUVAAllocator[*resource]()
	r := &resource{"buffer"}

	addr := a.Allocate(256, 1000, r)
	tests := []struct {
		name   string
		addr   GPUVirtualAddress
		owner  *resource
		exists bool
	}{
		{"base", addr, r, true},
		{"inside", addr + 999, r, true},
		{"aligned tail", addr + 1023, r, true},
		{"past size", addr + 1024, nil, false},
		{"null", 0, nil, false},
		{"below slab", SlabBase - 1, nil, false},
		{"unused slot", addr + GPUVirtualAddress(SlabSize), nil, false},
	}
	for _, test := range tests {
		c.Run(test.name, func(c *qt.C) {
			owner, ok := a.Dereference(test.addr)
			c.Assert(ok, qt.Equals, test.exists)
			c.Assert(owner, qt.Equals, test.owner)
		})
	}
}

func TestRoundTripUntilFree(t *testing.T) {
	c := qt.New(t)
	a := NewGPUVAAllocator[*resource]()

	sizes := []uint64{1, 4096, SlabSize, SlabSize + 1, 3 << 33, 65536}
	addrs := make([]GPUVirtualAddress, len(sizes))
	owners := make([]*resource, len(sizes))
	for i, size := range sizes {
		owners[i] = &resource{}
		addrs[i] = a.Allocate(65536, size, owners[i])
		c.Assert(addrs[i], qt.Not(qt.Equals), GPUVirtualAddress(0))
		if size <= SlabSize {
			c.Assert(addrs[i] < FallbackBase, qt.IsTrue, qt.Commentf("size %d", size))
		} else {
			c.Assert(addrs[i] >= FallbackBase, qt.IsTrue, qt.Commentf("size %d", size))
		}
	}
	c.Assert(a.FallbackAllocations(), qt.Equals, 2)

	for i := range sizes {
		owner, ok := a.Dereference(addrs[i])
		c.Assert(ok, qt.IsTrue)
		c.Assert(owner, qt.Equals, owners[i])

		a.Free(addrs[i])
		_, ok = a.Dereference(addrs[i])
		c.Assert(ok, qt.IsFalse)
	}
	c.Assert(a.FallbackAllocations(), qt.Equals, 0)
}

func TestFallbackKeepsOrderAfterRemoval(t *testing.T) {
	c := qt.New(t)
	a := NewGPUVAAllocator[int]()

	var addrs []GPUVirtualAddress
	for i := 1; i <= 5; i++ {
		addr := a.Allocate(1, SlabSize*2, i)
		c.Assert(addr >= FallbackBase, qt.IsTrue)
		addrs = append(addrs, addr)
	}
	for i := 1; i < len(addrs); i++ {
		c.Assert(addrs[i] > addrs[i-1], qt.IsTrue)
	}

	a.Free(addrs[2])
	for i, addr := range addrs {
		owner, ok := a.Dereference(addr + GPUVirtualAddress(SlabSize))
		if i == 2 {
			c.Assert(ok, qt.IsFalse)
			continue
		}
		c.Assert(ok, qt.IsTrue)
		c.Assert(owner, qt.Equals, i+1)
	}

	// Freed fallback space is not handed out again
	next := a.Allocate(1, SlabSize*2, 6)
	c.Assert(next > addrs[4], qt.IsTrue)
}

func TestFreeRequiresExactFallbackBase(t *testing.T) {
	c := qt.New(t)
	a := NewGPUVAAllocator[int]()
	addr := a.Allocate(1, SlabSize+1, 1)

	a.Free(addr + 1)
	owner, ok := a.Dereference(addr)
	c.Assert(ok, qt.IsTrue)
	c.Assert(owner, qt.Equals, 1)
}

func TestSlabExhaustionFallsBack(t *testing.T) {
	c := qt.New(t)
	a := NewGPUVAAllocator[int](WithSlabCount(4))

	for i := 0; i < 4; i++ {
		c.Assert(a.Allocate(16, 16, i) < FallbackBase, qt.IsTrue)
	}
	addr := a.Allocate(16, 16, 4)
	c.Assert(addr >= FallbackBase, qt.IsTrue)
	owner, ok := a.Dereference(addr)
	c.Assert(ok, qt.IsTrue)
	c.Assert(owner, qt.Equals, 4)
}

func TestExhaustionReturnsNull(t *testing.T) {
	c := qt.New(t)
	limit := uint64(FallbackBase) + 3*SlabSize
	a := NewGPUVAAllocator[int](WithSlabCount(2), WithFallbackLimit(limit))

	c.Assert(a.Allocate(1, 1, 0), qt.Not(qt.Equals), GPUVirtualAddress(0))
	c.Assert(a.Allocate(1, 1, 1), qt.Not(qt.Equals), GPUVirtualAddress(0))

	big := a.Allocate(1, 2*SlabSize, 2)
	c.Assert(big, qt.Equals, FallbackBase)
	c.Assert(a.Allocate(1, 2*SlabSize, 3), qt.Equals, GPUVirtualAddress(0))

	small := a.Allocate(1, 4096, 4)
	c.Assert(small, qt.Equals, FallbackBase+GPUVirtualAddress(2*SlabSize))

	// Nothing got corrupted by the failed requests
	owner, ok := a.Dereference(big)
	c.Assert(ok, qt.IsTrue)
	c.Assert(owner, qt.Equals, 2)
	owner, ok = a.Dereference(small + 4095)
	c.Assert(ok, qt.IsTrue)
	c.Assert(owner, qt.Equals, 4)
	c.Assert(a.FallbackAllocations(), qt.Equals, 2)
}

func TestAllocateRejectsMalformedRequests(t *testing.T) {
	c := qt.New(t)
	a := NewGPUVAAllocator[int]()

	c.Assert(a.Allocate(3, 64, 1), qt.Equals, GPUVirtualAddress(0))
	c.Assert(a.Allocate(256, 0, 1), qt.Equals, GPUVirtualAddress(0))
	c.Assert(a.Allocate(1<<63, ^uint64(0), 1), qt.Equals, GPUVirtualAddress(0))
	c.Assert(a.Allocate(0, 64, 1), qt.Not(qt.Equals), GPUVirtualAddress(0))
}

func TestConcurrentDereference(t *testing.T) {
	c := qt.New(t)
	a := NewGPUVAAllocator[int]()

	const n = 64
	addrs := make([]GPUVirtualAddress, n)
	for i := range addrs {
		addrs[i] = a.Allocate(256, 4096, i)
	}

	var wg sync.WaitGroup
	errs := make(chan int, n)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, addr := range addrs {
				if owner, ok := a.Dereference(addr); !ok || owner != i {
					errs <- i
				}
			}
		}()
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			addr := a.Allocate(256, 4096, 1000+g)
			a.Free(addr)
		}(g)
	}
	wg.Wait()
	close(errs)
	c.Assert(len(errs), qt.Equals, 0)
}

func TestSlabDereferenceDoesNotLock(t *testing.T) {
	c := qt.New(t)
	a := NewGPUVAAllocator[int]()
	slab := a.Allocate(256, 4096, 7)
	big := a.Allocate(256, SlabSize+1, 8)

	a.mutex.Lock()
	done := make(chan int, 1)
	go func() {
		owner, _ := a.Dereference(slab + 100)
		done <- owner
	}()
	select {
	case owner := <-done:
		c.Assert(owner, qt.Equals, 7)
	case <-time.After(5 * time.Second):
		a.mutex.Unlock()
		c.Fatal("slab dereference waited for the allocator mutex")
	}
	a.mutex.Unlock()

	owner, ok := a.Dereference(big)
	c.Assert(ok, qt.IsTrue)
	c.Assert(owner, qt.Equals, 8)
}
