package device

import (
	"github.com/devblok/d3d12vk/core"
	"github.com/devblok/d3d12vk/memory"
)

// Interface is the set of entry points a device exposes to clients
type Interface interface {
	AddRef() uint32
	Release() uint32

	SetName(name string)
	Name() string
	PrivateData() *PrivateStore

	NodeCount() uint32
	AdapterLUID() uint64

	FeatureLevel(requested []core.FeatureLevel) (core.FeatureLevel, error)
	Options() core.Options
	GPUVirtualAddressSupport() GPUVirtualAddressSupport
	Architecture(node uint32) (Architecture, error)
	ShaderModel(requested ShaderModel) ShaderModel
	RootSignatureVersion(requested RootSignatureVersion) RootSignatureVersion
	CommandQueuePrioritySupported(t CommandListType, priority int) (bool, error)

	CreateDescriptorHeap(desc DescriptorHeapDesc) (*DescriptorHeap, error)
	DescriptorHandleIncrementSize(t HeapType) uint32

	AllocateGPUVA(alignment, size uint64, r Resource) memory.GPUVirtualAddress
	ResourceFromGPUVA(addr memory.GPUVirtualAddress) (Resource, bool)
	FreeGPUVA(addr memory.GPUVirtualAddress)
}

var _ Interface = (*Device)(nil)
