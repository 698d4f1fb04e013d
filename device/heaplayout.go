package device

import (
	"fmt"

	"github.com/devblok/d3d12vk/core"
	log "github.com/sirupsen/logrus"
)

// HeapType is the kind of descriptors a descriptor heap holds
type HeapType int

// Descriptor heap types
const (
	HeapTypeCBVSRVUAV HeapType = iota
	HeapTypeSampler
	HeapTypeRTV
	HeapTypeDSV

	heapTypeCount
)

func (t HeapType) String() string {
	switch t {
	case HeapTypeCBVSRVUAV:
		return "cbv_srv_uav"
	case HeapTypeSampler:
		return "sampler"
	case HeapTypeRTV:
		return "rtv"
	case HeapTypeDSV:
		return "dsv"
	}
	return fmt.Sprintf("heap type(%d)", int(t))
}

// HeapSet names a descriptor set of the backend heap layout
type HeapSet int

// Backend heap descriptor sets, in binding order
const (
	SetUniformBuffer HeapSet = iota
	SetUniformTexelBuffer
	SetSampledImage
	SetStorageTexelBuffer
	SetStorageImage
	SetSampler
	SetUAVCounter

	HeapSetCount
)

// HeapLayout is one descriptor set layout backing a descriptor heap
type HeapLayout struct {
	Type            core.DescriptorType
	BufferDimension bool
	HeapType        HeapType
	Count           uint32
	Layout          core.LayoutHandle
}

func heapLayoutTemplates() [HeapSetCount]HeapLayout {
	return [HeapSetCount]HeapLayout{
		SetUniformBuffer:      {Type: core.DescriptorUniformBuffer, BufferDimension: true, HeapType: HeapTypeCBVSRVUAV},
		SetUniformTexelBuffer: {Type: core.DescriptorUniformTexelBuffer, BufferDimension: true, HeapType: HeapTypeCBVSRVUAV},
		SetSampledImage:       {Type: core.DescriptorSampledImage, HeapType: HeapTypeCBVSRVUAV},
		SetStorageTexelBuffer: {Type: core.DescriptorStorageTexelBuffer, BufferDimension: true, HeapType: HeapTypeCBVSRVUAV},
		SetStorageImage:       {Type: core.DescriptorStorageImage, HeapType: HeapTypeCBVSRVUAV},
		SetSampler:            {Type: core.DescriptorSampler, HeapType: HeapTypeSampler},
		SetUAVCounter:         {Type: core.DescriptorStorageTexelBuffer, BufferDimension: true, HeapType: HeapTypeCBVSRVUAV},
	}
}

func (d *Device) heapLayoutCount(set HeapSet) uint32 {
	switch set {
	case SetUniformBuffer:
		return d.descriptorLimits.UniformBuffers
	case SetUniformTexelBuffer, SetSampledImage:
		return d.descriptorLimits.SampledImages
	case SetSampler:
		return d.descriptorLimits.Samplers
	default:
		return d.descriptorLimits.StorageImages
	}
}

// createHeapLayouts creates the backend set layouts descriptor heaps
// bind through. Nothing is created for emulated heaps.
func (d *Device) createHeapLayouts() error {
	if !d.backendHeaps {
		return nil
	}
	templates := heapLayoutTemplates()
	for set := HeapSet(0); set < HeapSetCount; set++ {
		layout := templates[set]
		layout.Count = d.heapLayoutCount(set)
		handle, res := d.backend.CreateDescriptorSetLayout(d.handle, core.DescriptorSetLayoutInfo{
			Type:            layout.Type,
			Count:           layout.Count,
			UpdateAfterBind: true,
		})
		if err := res.Err(); err != nil {
			return fmt.Errorf("CreateDescriptorSetLayout(%s): %w", layout.Type, err)
		}
		layout.Layout = handle
		d.heapLayouts = append(d.heapLayouts, layout)
	}
	log.WithField("sets", len(d.heapLayouts)).Debug("created descriptor heap layouts")
	return nil
}

func (d *Device) destroyHeapLayouts() {
	for _, layout := range d.heapLayouts {
		d.backend.DestroyDescriptorSetLayout(d.handle, layout.Layout)
	}
	d.heapLayouts = nil
}

// HeapLayouts returns the backend descriptor set layouts, empty when
// heaps are emulated.
func (d *Device) HeapLayouts() []HeapLayout {
	return d.heapLayouts
}
