// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package core establishes a connection to the backend graphics API and
// decides what a Direct3D 12 device built on top of it can be: which
// capabilities get enabled, which adapter and queue families get used,
// and which feature level is reported.
package core

// Handles identify backend objects. They are opaque to this package,
// a Backend implementation decides what they point at.
type (
	InstanceHandle uint64
	AdapterHandle  uint64
	DeviceHandle   uint64
	QueueHandle    uint64
	LayoutHandle   uint64
)

// Backend is the contract of the native API the device is built on.
// Every call returns promptly, failures are reported through Result.
type Backend interface {
	// Name identifies the backend in logs and reports
	Name() string

	// InstanceExtensions lists capabilities available to an instance
	InstanceExtensions() ([]ExtensionProperties, Result)

	// CreateInstance connects to the backend with the given extensions enabled
	CreateInstance(app ApplicationInfo, extensions []string, layers []string) (InstanceHandle, Result)
	DestroyInstance(InstanceHandle)

	// EnumerateAdapters returns physical adapters in backend order
	EnumerateAdapters(InstanceHandle) ([]AdapterHandle, Result)
	AdapterProperties(AdapterHandle) AdapterProperties
	AdapterFeatures(AdapterHandle) DeviceFeatures
	QueueFamilies(AdapterHandle) []QueueFamilyProperties
	MemoryTypes(AdapterHandle) []MemoryPropertyFlags
	DeviceExtensions(AdapterHandle) ([]ExtensionProperties, Result)

	// StorageImageSupport reports whether the format can back a typed UAV
	StorageImageSupport(AdapterHandle, Format) bool

	CreateDevice(AdapterHandle, DeviceCreateInfo) (DeviceHandle, Result)
	DestroyDevice(DeviceHandle)
	GetQueue(dev DeviceHandle, family, index uint32) QueueHandle

	CreateDescriptorSetLayout(DeviceHandle, DescriptorSetLayoutInfo) (LayoutHandle, Result)
	DestroyDescriptorSetLayout(DeviceHandle, LayoutHandle)
}

// ExtensionProperties names one backend capability
type ExtensionProperties struct {
	Name        string `json:"name"`
	SpecVersion uint32 `json:"specVersion"`
}

// ApplicationInfo identifies the client application to the backend
type ApplicationInfo struct {
	Name          string `json:"name"`
	Version       uint32 `json:"version"`
	EngineName    string `json:"engineName"`
	EngineVersion uint32 `json:"engineVersion"`
	APIVersion    uint32 `json:"apiVersion"`
}

// MakeVersion packs a version the way the backend expects it
func MakeVersion(major, minor, patch uint32) uint32 {
	return major<<22 | minor<<12 | patch
}

// VersionMajor returns the major part of a packed version
func VersionMajor(v uint32) uint32 { return v >> 22 }

// VersionMinor returns the minor part of a packed version
func VersionMinor(v uint32) uint32 { return (v >> 12) & 0x3ff }

// AdapterType classifies a physical adapter
type AdapterType int

// Adapter types, in backend numbering
const (
	AdapterTypeOther AdapterType = iota
	AdapterTypeIntegrated
	AdapterTypeDiscrete
	AdapterTypeVirtual
	AdapterTypeCPU
)

func (t AdapterType) String() string {
	switch t {
	case AdapterTypeIntegrated:
		return "integrated"
	case AdapterTypeDiscrete:
		return "discrete"
	case AdapterTypeVirtual:
		return "virtual"
	case AdapterTypeCPU:
		return "cpu"
	default:
		return "other"
	}
}

// AdapterProperties are the cached, read-only properties of an adapter
type AdapterProperties struct {
	Name          string           `json:"name"`
	VendorID      uint32           `json:"vendorID"`
	DeviceID      uint32           `json:"deviceID"`
	Type          AdapterType      `json:"type"`
	APIVersion    uint32           `json:"apiVersion"`
	DriverVersion uint32           `json:"driverVersion"`
	Limits        DeviceLimits     `json:"limits"`
	Sparse        SparseProperties `json:"sparse"`
}

// SparseProperties describe the sparse residency behaviour of an adapter
type SparseProperties struct {
	ResidencyNonResidentStrict bool `json:"residencyNonResidentStrict"`
}

// QueueFlags describe what a queue family can execute
type QueueFlags uint32

// Queue capability bits
const (
	QueueGraphics QueueFlags = 1 << iota
	QueueCompute
	QueueTransfer
	QueueSparseBinding
)

func (f QueueFlags) String() string {
	var s string
	for _, b := range []struct {
		bit  QueueFlags
		name string
	}{
		{QueueGraphics, "graphics"},
		{QueueCompute, "compute"},
		{QueueTransfer, "transfer"},
		{QueueSparseBinding, "sparse"},
	} {
		if f&b.bit != 0 {
			if s != "" {
				s += "|"
			}
			s += b.name
		}
	}
	if s == "" {
		return "none"
	}
	return s
}

// QueueFamilyProperties describe one queue family of an adapter
type QueueFamilyProperties struct {
	Flags              QueueFlags `json:"flags"`
	QueueCount         uint32     `json:"queueCount"`
	TimestampValidBits uint32     `json:"timestampValidBits"`
}

// MemoryPropertyFlags describe one memory type of an adapter
type MemoryPropertyFlags uint32

// Memory property bits
const (
	MemoryDeviceLocal MemoryPropertyFlags = 1 << iota
	MemoryHostVisible
	MemoryHostCoherent
	MemoryHostCached
)

// QueueCreateRequest asks for queues of one family
type QueueCreateRequest struct {
	FamilyIndex uint32
	Priorities  []float32
}

// DeviceCreateInfo is handed to the backend to create a logical device
type DeviceCreateInfo struct {
	Queues     []QueueCreateRequest
	Extensions []string
	Features   DeviceFeatures
}

// DescriptorType is the backend descriptor kind a heap layout holds
type DescriptorType int

// Descriptor types
const (
	DescriptorSampler DescriptorType = iota
	DescriptorSampledImage
	DescriptorStorageImage
	DescriptorUniformTexelBuffer
	DescriptorStorageTexelBuffer
	DescriptorUniformBuffer
	DescriptorStorageBuffer
)

func (t DescriptorType) String() string {
	switch t {
	case DescriptorSampler:
		return "sampler"
	case DescriptorSampledImage:
		return "sampled-image"
	case DescriptorStorageImage:
		return "storage-image"
	case DescriptorUniformTexelBuffer:
		return "uniform-texel-buffer"
	case DescriptorStorageTexelBuffer:
		return "storage-texel-buffer"
	case DescriptorUniformBuffer:
		return "uniform-buffer"
	case DescriptorStorageBuffer:
		return "storage-buffer"
	}
	return "unknown"
}

// DescriptorSetLayoutInfo describes a single-binding set layout
type DescriptorSetLayoutInfo struct {
	Type            DescriptorType
	Count           uint32
	UpdateAfterBind bool
}

// Format is a DXGI format number
type Format uint32

// Formats probed for typed UAV loads
const (
	FormatR32G32B32A32Float Format = 2
	FormatR32G32B32A32Uint  Format = 3
	FormatR32G32B32A32Sint  Format = 4
	FormatR16G16B16A16Float Format = 10
	FormatR16G16B16A16Uint  Format = 12
	FormatR16G16B16A16Sint  Format = 14
	FormatR8G8B8A8Unorm     Format = 28
	FormatR8G8B8A8Uint      Format = 30
	FormatR8G8B8A8Sint      Format = 32
	FormatR16Float          Format = 54
	FormatR16Uint           Format = 57
	FormatR16Sint           Format = 59
	FormatR8Unorm           Format = 61
	FormatR8Uint            Format = 62
	FormatR8Sint            Format = 64
)
