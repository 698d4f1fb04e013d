package device

import (
	"fmt"
	"sync/atomic"

	"github.com/devblok/d3d12vk/core"
	"github.com/devblok/d3d12vk/memory"
	log "github.com/sirupsen/logrus"
)

// Handle increments, opaque to clients
const (
	viewDescriptorSize   = 32
	targetDescriptorSize = 64
)

// MaxShaderVisibleSamplerHeapSize bounds shader visible sampler heaps
const MaxShaderVisibleSamplerHeapSize = 2048

// DescriptorHandle addresses a single descriptor of a heap
type DescriptorHandle uint64

// Offset advances the handle by n descriptors of a heap type
func (h DescriptorHandle) Offset(n uint32, increment uint32) DescriptorHandle {
	return h + DescriptorHandle(n)*DescriptorHandle(increment)
}

// DescriptorHeapDesc describes a descriptor heap
type DescriptorHeapDesc struct {
	Type           HeapType
	NumDescriptors uint32
	ShaderVisible  bool
}

// DescriptorHeap is a range of descriptors registered with the device
type DescriptorHeap struct {
	refcount int32

	device *Device
	desc   DescriptorHeapDesc
	base   memory.DescriptorAddress
}

// DescriptorHandleIncrementSize returns the distance between two
// descriptor handles of a heap type.
func (d *Device) DescriptorHandleIncrementSize(t HeapType) uint32 {
	switch t {
	case HeapTypeCBVSRVUAV, HeapTypeSampler:
		return viewDescriptorSize
	case HeapTypeRTV, HeapTypeDSV:
		return targetDescriptorSize
	}
	log.WithField("type", int(t)).Warn("unknown descriptor heap type")
	return 0
}

func (desc DescriptorHeapDesc) validate() error {
	if desc.Type < 0 || desc.Type >= heapTypeCount {
		return fmt.Errorf("%w: descriptor heap type %d", core.ErrInvalidArgument, int(desc.Type))
	}
	if desc.NumDescriptors == 0 {
		return fmt.Errorf("%w: empty descriptor heap", core.ErrInvalidArgument)
	}
	if desc.ShaderVisible && (desc.Type == HeapTypeRTV || desc.Type == HeapTypeDSV) {
		return fmt.Errorf("%w: %s heaps cannot be shader visible", core.ErrInvalidArgument, desc.Type)
	}
	if desc.ShaderVisible && desc.Type == HeapTypeSampler && desc.NumDescriptors > MaxShaderVisibleSamplerHeapSize {
		return fmt.Errorf("%w: %d shader visible samplers", core.ErrInvalidArgument, desc.NumDescriptors)
	}
	return nil
}

// CreateDescriptorHeap creates a heap and registers its descriptor range
// so descriptors can be traced back to it.
func (d *Device) CreateDescriptorHeap(desc DescriptorHeapDesc) (*DescriptorHeap, error) {
	if err := desc.validate(); err != nil {
		return nil, err
	}

	heap := &DescriptorHeap{
		refcount: 1,
		device:   d,
		desc:     desc,
	}

	inc := memory.DescriptorAddress(d.DescriptorHandleIncrementSize(desc.Type))
	size := uint64(desc.NumDescriptors) * uint64(inc)

	// Handle ranges of all heap types share one address space
	d.descriptorMutex.Lock()
	heap.base = (d.nextDescriptor + inc - 1) &^ (inc - 1)
	d.nextDescriptor = heap.base + memory.DescriptorAddress(size)
	d.descriptorMutex.Unlock()

	if !d.descriptors.RegisterRange(heap.base, size, heap) {
		return nil, fmt.Errorf("%w: descriptor range %#x", core.ErrInternal, uint64(heap.base))
	}
	d.AddRef()

	log.WithFields(log.Fields{
		"type":          desc.Type.String(),
		"descriptors":   desc.NumDescriptors,
		"shaderVisible": desc.ShaderVisible,
	}).Debug("created descriptor heap")
	return heap, nil
}

// HeapFromDescriptor returns the heap a descriptor handle belongs to
func (d *Device) HeapFromDescriptor(h DescriptorHandle) (*DescriptorHeap, bool) {
	return d.descriptors.HeapFromDescriptor(memory.DescriptorAddress(h))
}

// RemainingDescriptors counts the descriptors from h to the end of its
// heap, zero when h is in no heap.
func (d *Device) RemainingDescriptors(h DescriptorHandle) uint64 {
	heap, ok := d.HeapFromDescriptor(h)
	if !ok {
		return 0
	}
	inc := uint64(d.DescriptorHandleIncrementSize(heap.desc.Type))
	return (d.descriptors.RemainingCountFromDescriptor(memory.DescriptorAddress(h)) + inc - 1) / inc
}

// Desc returns the description the heap was created with
func (h *DescriptorHeap) Desc() DescriptorHeapDesc {
	return h.desc
}

// Device returns the device that created the heap
func (h *DescriptorHeap) Device() *Device {
	return h.device
}

// CPUDescriptorHandleForHeapStart returns the handle of the first descriptor
func (h *DescriptorHeap) CPUDescriptorHandleForHeapStart() DescriptorHandle {
	return DescriptorHandle(h.base)
}

// GPUDescriptorHandleForHeapStart is zero for heaps that are not
// shader visible.
func (h *DescriptorHeap) GPUDescriptorHandleForHeapStart() DescriptorHandle {
	if !h.desc.ShaderVisible {
		return 0
	}
	return h.CPUDescriptorHandleForHeapStart()
}

// AddRef takes a reference and returns the new count
func (h *DescriptorHeap) AddRef() uint32 {
	return uint32(atomic.AddInt32(&h.refcount, 1))
}

// Release drops a reference, the last one unregisters the heap range
// and releases the device reference the heap holds.
func (h *DescriptorHeap) Release() uint32 {
	refcount := atomic.AddInt32(&h.refcount, -1)
	if refcount == 0 {
		if !h.device.descriptors.UnregisterRange(h.base) {
			log.WithField("base", uint64(h.base)).Error("descriptor heap range was not registered")
		}
		h.device.Release()
	}
	if refcount < 0 {
		return 0
	}
	return uint32(refcount)
}
