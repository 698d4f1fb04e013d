package core

import (
	"errors"
	"sync"

	vk "github.com/devblok/vulkan"
)

// NewVulkanBackend loads the Vulkan loader and returns a backend using it
func NewVulkanBackend() (*VulkanBackend, error) {
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return nil, errors.New("vk.InstanceProcAddr(): " + err.Error())
	}
	if err := vk.Init(); err != nil {
		return nil, errors.New("vk.Init(): " + err.Error())
	}
	return &VulkanBackend{
		instances: map[InstanceHandle]vk.Instance{},
		adapters:  map[AdapterHandle]vulkanAdapter{},
		devices:   map[DeviceHandle]vk.Device{},
		queues:    map[QueueHandle]vulkanQueue{},
		layouts:   map[LayoutHandle]vk.DescriptorSetLayout{},
	}, nil
}

// VulkanBackend implements Backend on top of the Vulkan API. Backend
// objects are kept in handle tables, callers only see handles.
type VulkanBackend struct {
	mutex      sync.Mutex
	lastHandle uint64

	instances map[InstanceHandle]vk.Instance
	adapters  map[AdapterHandle]vulkanAdapter
	devices   map[DeviceHandle]vk.Device
	queues    map[QueueHandle]vulkanQueue
	layouts   map[LayoutHandle]vk.DescriptorSetLayout
}

// vulkanAdapter lives as long as the instance it was enumerated from
type vulkanAdapter struct {
	instance InstanceHandle
	physical vk.PhysicalDevice
}

// vulkanQueue lives as long as its device
type vulkanQueue struct {
	device DeviceHandle
	queue  vk.Queue
}

func (v *VulkanBackend) nextHandle() uint64 {
	v.lastHandle++
	return v.lastHandle
}

func (v *VulkanBackend) adapter(h AdapterHandle) vk.PhysicalDevice {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.adapters[h].physical
}

// registerAdapters hands out adapter handles, enumerating the same
// instance again returns the handles it already has.
func (v *VulkanBackend) registerAdapters(ih InstanceHandle, physical []vk.PhysicalDevice) []AdapterHandle {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	known := map[vk.PhysicalDevice]AdapterHandle{}
	for ah, a := range v.adapters {
		if a.instance == ih {
			known[a.physical] = ah
		}
	}
	handles := make([]AdapterHandle, 0, len(physical))
	for _, pd := range physical {
		ah, ok := known[pd]
		if !ok {
			ah = AdapterHandle(v.nextHandle())
			v.adapters[ah] = vulkanAdapter{instance: ih, physical: pd}
		}
		handles = append(handles, ah)
	}
	return handles
}

// registerQueue hands out the handle of a device queue
func (v *VulkanBackend) registerQueue(dh DeviceHandle, queue vk.Queue) QueueHandle {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	for qh, q := range v.queues {
		if q.device == dh && q.queue == queue {
			return qh
		}
	}
	qh := QueueHandle(v.nextHandle())
	v.queues[qh] = vulkanQueue{device: dh, queue: queue}
	return qh
}

// forgetInstance drops the adapters of an instance, the caller holds the mutex
func (v *VulkanBackend) forgetInstance(ih InstanceHandle) {
	for ah, a := range v.adapters {
		if a.instance == ih {
			delete(v.adapters, ah)
		}
	}
}

// forgetDevice drops the queues of a device, the caller holds the mutex
func (v *VulkanBackend) forgetDevice(dh DeviceHandle) {
	for qh, q := range v.queues {
		if q.device == dh {
			delete(v.queues, qh)
		}
	}
}

func (v *VulkanBackend) device(h DeviceHandle) vk.Device {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.devices[h]
}

// Name implements Backend
func (v *VulkanBackend) Name() string {
	return "vulkan"
}

func extensionProperties(list []vk.ExtensionProperties) []ExtensionProperties {
	exts := make([]ExtensionProperties, 0, len(list))
	for _, ext := range list {
		ext.Deref()
		exts = append(exts, ExtensionProperties{
			Name:        vk.ToString(ext.ExtensionName[:]),
			SpecVersion: ext.SpecVersion,
		})
	}
	return exts
}

// InstanceExtensions implements Backend
func (v *VulkanBackend) InstanceExtensions() ([]ExtensionProperties, Result) {
	var count uint32
	if res := vk.EnumerateInstanceExtensionProperties("", &count, nil); res != vk.Success {
		return nil, Result(res)
	}
	list := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateInstanceExtensionProperties("", &count, list); res != vk.Success {
		return nil, Result(res)
	}
	return extensionProperties(list[:count]), Success
}

// CreateInstance implements Backend
func (v *VulkanBackend) CreateInstance(app ApplicationInfo, extensions []string, layers []string) (InstanceHandle, Result) {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         app.APIVersion,
		ApplicationVersion: app.Version,
		PApplicationName:   safeString(app.Name),
		EngineVersion:      app.EngineVersion,
		PEngineName:        safeString(app.EngineName),
	}
	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}

	var instance vk.Instance
	if res := vk.CreateInstance(&instanceInfo, nil, &instance); res != vk.Success {
		return 0, Result(res)
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return 0, ErrorInitializationFailed
	}

	v.mutex.Lock()
	defer v.mutex.Unlock()
	h := InstanceHandle(v.nextHandle())
	v.instances[h] = instance
	return h, Success
}

// DestroyInstance implements Backend
func (v *VulkanBackend) DestroyInstance(h InstanceHandle) {
	v.mutex.Lock()
	instance, ok := v.instances[h]
	delete(v.instances, h)
	v.forgetInstance(h)
	v.mutex.Unlock()
	if ok {
		vk.DestroyInstance(instance, nil)
	}
}

// EnumerateAdapters implements Backend
func (v *VulkanBackend) EnumerateAdapters(h InstanceHandle) ([]AdapterHandle, Result) {
	v.mutex.Lock()
	instance, ok := v.instances[h]
	v.mutex.Unlock()
	if !ok {
		return nil, ErrorInitializationFailed
	}

	var count uint32
	if res := vk.EnumeratePhysicalDevices(instance, &count, nil); res != vk.Success {
		return nil, Result(res)
	}
	physicalDevices := make([]vk.PhysicalDevice, count)
	if res := vk.EnumeratePhysicalDevices(instance, &count, physicalDevices); res != vk.Success {
		return nil, Result(res)
	}

	return v.registerAdapters(h, physicalDevices[:count]), Success
}

// AdapterProperties implements Backend
func (v *VulkanBackend) AdapterProperties(h AdapterHandle) AdapterProperties {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(v.adapter(h), &props)
	props.Deref()
	props.Limits.Deref()
	props.SparseProperties.Deref()

	l := props.Limits
	return AdapterProperties{
		Name:          vk.ToString(props.DeviceName[:]),
		VendorID:      props.VendorID,
		DeviceID:      props.DeviceID,
		Type:          adapterType(props.DeviceType),
		APIVersion:    props.ApiVersion,
		DriverVersion: props.DriverVersion,
		Limits: DeviceLimits{
			MaxPushConstantsSize:                l.MaxPushConstantsSize,
			MaxComputeSharedMemorySize:          l.MaxComputeSharedMemorySize,
			ViewportBoundsRange:                 l.ViewportBoundsRange,
			ViewportSubPixelBits:                l.ViewportSubPixelBits,
			MaxViewports:                        l.MaxViewports,
			MaxBoundDescriptorSets:              l.MaxBoundDescriptorSets,
			MaxPerStageDescriptorSamplers:       l.MaxPerStageDescriptorSamplers,
			MaxPerStageDescriptorUniformBuffers: l.MaxPerStageDescriptorUniformBuffers,
			MaxPerStageDescriptorStorageBuffers: l.MaxPerStageDescriptorStorageBuffers,
			MaxPerStageDescriptorSampledImages:  l.MaxPerStageDescriptorSampledImages,
			MaxPerStageDescriptorStorageImages:  l.MaxPerStageDescriptorStorageImages,
			MaxDescriptorSetSamplers:            l.MaxDescriptorSetSamplers,
			MaxDescriptorSetUniformBuffers:      l.MaxDescriptorSetUniformBuffers,
			MaxDescriptorSetStorageBuffers:      l.MaxDescriptorSetStorageBuffers,
			MaxDescriptorSetSampledImages:       l.MaxDescriptorSetSampledImages,
			MaxDescriptorSetStorageImages:       l.MaxDescriptorSetStorageImages,
			MinUniformBufferOffsetAlignment:     uint64(l.MinUniformBufferOffsetAlignment),
			MinStorageBufferOffsetAlignment:     uint64(l.MinStorageBufferOffsetAlignment),
			MinTexelBufferOffsetAlignment:       uint64(l.MinTexelBufferOffsetAlignment),
			FramebufferColorSampleCounts:        uint32(l.FramebufferColorSampleCounts),
			TimestampComputeAndGraphics:         l.TimestampComputeAndGraphics == vk.True,
		},
		Sparse: SparseProperties{
			ResidencyNonResidentStrict: props.SparseProperties.ResidencyNonResidentStrict == vk.True,
		},
	}
}

func adapterType(t vk.PhysicalDeviceType) AdapterType {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return AdapterTypeIntegrated
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return AdapterTypeDiscrete
	case vk.PhysicalDeviceTypeVirtualGpu:
		return AdapterTypeVirtual
	case vk.PhysicalDeviceTypeCpu:
		return AdapterTypeCPU
	default:
		return AdapterTypeOther
	}
}

// AdapterFeatures implements Backend. Features of extension structures
// are not queried, they are reported as unsupported.
func (v *VulkanBackend) AdapterFeatures(h AdapterHandle) DeviceFeatures {
	var f vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(v.adapter(h), &f)
	f.Deref()
	return DeviceFeatures{
		RobustBufferAccess:                     f.RobustBufferAccess == vk.True,
		FullDrawIndexUint32:                    f.FullDrawIndexUint32 == vk.True,
		ImageCubeArray:                         f.ImageCubeArray == vk.True,
		IndependentBlend:                       f.IndependentBlend == vk.True,
		GeometryShader:                         f.GeometryShader == vk.True,
		TessellationShader:                     f.TessellationShader == vk.True,
		SampleRateShading:                      f.SampleRateShading == vk.True,
		DualSrcBlend:                           f.DualSrcBlend == vk.True,
		LogicOp:                                f.LogicOp == vk.True,
		MultiDrawIndirect:                      f.MultiDrawIndirect == vk.True,
		DrawIndirectFirstInstance:              f.DrawIndirectFirstInstance == vk.True,
		DepthClamp:                             f.DepthClamp == vk.True,
		DepthBiasClamp:                         f.DepthBiasClamp == vk.True,
		MultiViewport:                          f.MultiViewport == vk.True,
		SamplerAnisotropy:                      f.SamplerAnisotropy == vk.True,
		OcclusionQueryPrecise:                  f.OcclusionQueryPrecise == vk.True,
		PipelineStatisticsQuery:                f.PipelineStatisticsQuery == vk.True,
		VertexPipelineStoresAndAtomics:         f.VertexPipelineStoresAndAtomics == vk.True,
		FragmentStoresAndAtomics:               f.FragmentStoresAndAtomics == vk.True,
		ShaderTessellationAndGeometryPointSize: f.ShaderTessellationAndGeometryPointSize == vk.True,
		ShaderImageGatherExtended:              f.ShaderImageGatherExtended == vk.True,
		ShaderStorageImageReadWithoutFormat:    f.ShaderStorageImageReadWithoutFormat == vk.True,
		ShaderStorageImageWriteWithoutFormat:   f.ShaderStorageImageWriteWithoutFormat == vk.True,
		ShaderClipDistance:                     f.ShaderClipDistance == vk.True,
		ShaderCullDistance:                     f.ShaderCullDistance == vk.True,
		ShaderFloat64:                          f.ShaderFloat64 == vk.True,
		ShaderInt64:                            f.ShaderInt64 == vk.True,
		SparseBinding:                          f.SparseBinding == vk.True,
		SparseResidencyBuffer:                  f.SparseResidencyBuffer == vk.True,
		SparseResidencyImage2D:                 f.SparseResidencyImage2D == vk.True,
		SparseResidencyImage3D:                 f.SparseResidencyImage3D == vk.True,
	}
}

// QueueFamilies implements Backend
func (v *VulkanBackend) QueueFamilies(h AdapterHandle) []QueueFamilyProperties {
	pd := v.adapter(h)
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, queueFamilies)

	families := make([]QueueFamilyProperties, 0, count)
	for _, qf := range queueFamilies[:count] {
		qf.Deref()
		families = append(families, QueueFamilyProperties{
			Flags:              queueFlags(qf.QueueFlags),
			QueueCount:         qf.QueueCount,
			TimestampValidBits: qf.TimestampValidBits,
		})
	}
	return families
}

func queueFlags(f vk.QueueFlags) QueueFlags {
	var flags QueueFlags
	if f&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
		flags |= QueueGraphics
	}
	if f&vk.QueueFlags(vk.QueueComputeBit) != 0 {
		flags |= QueueCompute
	}
	if f&vk.QueueFlags(vk.QueueTransferBit) != 0 {
		flags |= QueueTransfer
	}
	if f&vk.QueueFlags(vk.QueueSparseBindingBit) != 0 {
		flags |= QueueSparseBinding
	}
	return flags
}

// MemoryTypes implements Backend
func (v *VulkanBackend) MemoryTypes(h AdapterHandle) []MemoryPropertyFlags {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(v.adapter(h), &memoryProperties)
	memoryProperties.Deref()

	types := make([]MemoryPropertyFlags, 0, memoryProperties.MemoryTypeCount)
	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
		f := memoryProperties.MemoryTypes[i].PropertyFlags
		var flags MemoryPropertyFlags
		if f&vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit) != 0 {
			flags |= MemoryDeviceLocal
		}
		if f&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0 {
			flags |= MemoryHostVisible
		}
		if f&vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit) != 0 {
			flags |= MemoryHostCoherent
		}
		if f&vk.MemoryPropertyFlags(vk.MemoryPropertyHostCachedBit) != 0 {
			flags |= MemoryHostCached
		}
		types = append(types, flags)
	}
	return types
}

// DeviceExtensions implements Backend
func (v *VulkanBackend) DeviceExtensions(h AdapterHandle) ([]ExtensionProperties, Result) {
	pd := v.adapter(h)
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil); res != vk.Success {
		return nil, Result(res)
	}
	list := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(pd, "", &count, list); res != vk.Success {
		return nil, Result(res)
	}
	return extensionProperties(list[:count]), Success
}

var vulkanFormats = map[Format]vk.Format{
	FormatR32G32B32A32Float: vk.FormatR32g32b32a32Sfloat,
	FormatR32G32B32A32Uint:  vk.FormatR32g32b32a32Uint,
	FormatR32G32B32A32Sint:  vk.FormatR32g32b32a32Sint,
	FormatR16G16B16A16Float: vk.FormatR16g16b16a16Sfloat,
	FormatR16G16B16A16Uint:  vk.FormatR16g16b16a16Uint,
	FormatR16G16B16A16Sint:  vk.FormatR16g16b16a16Sint,
	FormatR8G8B8A8Unorm:     vk.FormatR8g8b8a8Unorm,
	FormatR8G8B8A8Uint:      vk.FormatR8g8b8a8Uint,
	FormatR8G8B8A8Sint:      vk.FormatR8g8b8a8Sint,
	FormatR16Float:          vk.FormatR16Sfloat,
	FormatR16Uint:           vk.FormatR16Uint,
	FormatR16Sint:           vk.FormatR16Sint,
	FormatR8Unorm:           vk.FormatR8Unorm,
	FormatR8Uint:            vk.FormatR8Uint,
	FormatR8Sint:            vk.FormatR8Sint,
}

// StorageImageSupport implements Backend
func (v *VulkanBackend) StorageImageSupport(h AdapterHandle, format Format) bool {
	vkFormat, ok := vulkanFormats[format]
	if !ok {
		return false
	}
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(v.adapter(h), vkFormat, &props)
	props.Deref()
	features := props.LinearTilingFeatures | props.OptimalTilingFeatures
	return features&vk.FormatFeatureFlags(vk.FormatFeatureStorageImageBit) != 0
}

func vkBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

func physicalDeviceFeatures(f DeviceFeatures) vk.PhysicalDeviceFeatures {
	return vk.PhysicalDeviceFeatures{
		RobustBufferAccess:                     vkBool(f.RobustBufferAccess),
		FullDrawIndexUint32:                    vkBool(f.FullDrawIndexUint32),
		ImageCubeArray:                         vkBool(f.ImageCubeArray),
		IndependentBlend:                       vkBool(f.IndependentBlend),
		GeometryShader:                         vkBool(f.GeometryShader),
		TessellationShader:                     vkBool(f.TessellationShader),
		SampleRateShading:                      vkBool(f.SampleRateShading),
		DualSrcBlend:                           vkBool(f.DualSrcBlend),
		LogicOp:                                vkBool(f.LogicOp),
		MultiDrawIndirect:                      vkBool(f.MultiDrawIndirect),
		DrawIndirectFirstInstance:              vkBool(f.DrawIndirectFirstInstance),
		DepthClamp:                             vkBool(f.DepthClamp),
		DepthBiasClamp:                         vkBool(f.DepthBiasClamp),
		MultiViewport:                          vkBool(f.MultiViewport),
		SamplerAnisotropy:                      vkBool(f.SamplerAnisotropy),
		OcclusionQueryPrecise:                  vkBool(f.OcclusionQueryPrecise),
		PipelineStatisticsQuery:                vkBool(f.PipelineStatisticsQuery),
		VertexPipelineStoresAndAtomics:         vkBool(f.VertexPipelineStoresAndAtomics),
		FragmentStoresAndAtomics:               vkBool(f.FragmentStoresAndAtomics),
		ShaderTessellationAndGeometryPointSize: vkBool(f.ShaderTessellationAndGeometryPointSize),
		ShaderImageGatherExtended:              vkBool(f.ShaderImageGatherExtended),
		ShaderStorageImageReadWithoutFormat:    vkBool(f.ShaderStorageImageReadWithoutFormat),
		ShaderStorageImageWriteWithoutFormat:   vkBool(f.ShaderStorageImageWriteWithoutFormat),
		ShaderClipDistance:                     vkBool(f.ShaderClipDistance),
		ShaderCullDistance:                     vkBool(f.ShaderCullDistance),
		ShaderFloat64:                          vkBool(f.ShaderFloat64),
		ShaderInt64:                            vkBool(f.ShaderInt64),
		SparseBinding:                          vkBool(f.SparseBinding),
		SparseResidencyBuffer:                  vkBool(f.SparseResidencyBuffer),
		SparseResidencyImage2D:                 vkBool(f.SparseResidencyImage2D),
		SparseResidencyImage3D:                 vkBool(f.SparseResidencyImage3D),
	}
}

// CreateDevice implements Backend
func (v *VulkanBackend) CreateDevice(h AdapterHandle, info DeviceCreateInfo) (DeviceHandle, Result) {
	queueInfos := make([]vk.DeviceQueueCreateInfo, 0, len(info.Queues))
	for _, q := range info.Queues {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: q.FamilyIndex,
			QueueCount:       uint32(len(q.Priorities)),
			PQueuePriorities: q.Priorities,
		})
	}

	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(info.Extensions)),
		PpEnabledExtensionNames: safeStrings(info.Extensions),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{physicalDeviceFeatures(info.Features)},
	}

	var vkDevice vk.Device
	if res := vk.CreateDevice(v.adapter(h), &dci, nil, &vkDevice); res != vk.Success {
		return 0, Result(res)
	}

	v.mutex.Lock()
	defer v.mutex.Unlock()
	dh := DeviceHandle(v.nextHandle())
	v.devices[dh] = vkDevice
	return dh, Success
}

// DestroyDevice implements Backend
func (v *VulkanBackend) DestroyDevice(h DeviceHandle) {
	v.mutex.Lock()
	dev, ok := v.devices[h]
	delete(v.devices, h)
	v.forgetDevice(h)
	v.mutex.Unlock()
	if ok {
		vk.DestroyDevice(dev, nil)
	}
}

// GetQueue implements Backend
func (v *VulkanBackend) GetQueue(h DeviceHandle, family, index uint32) QueueHandle {
	var queue vk.Queue
	vk.GetDeviceQueue(v.device(h), family, index, &queue)
	return v.registerQueue(h, queue)
}

var vulkanDescriptorTypes = map[DescriptorType]vk.DescriptorType{
	DescriptorSampler:            vk.DescriptorTypeSampler,
	DescriptorSampledImage:       vk.DescriptorTypeSampledImage,
	DescriptorStorageImage:       vk.DescriptorTypeStorageImage,
	DescriptorUniformTexelBuffer: vk.DescriptorTypeUniformTexelBuffer,
	DescriptorStorageTexelBuffer: vk.DescriptorTypeStorageTexelBuffer,
	DescriptorUniformBuffer:      vk.DescriptorTypeUniformBuffer,
	DescriptorStorageBuffer:      vk.DescriptorTypeStorageBuffer,
}

// CreateDescriptorSetLayout implements Backend. The bindings have no
// way to chain binding flags, so update-after-bind is not requested.
func (v *VulkanBackend) CreateDescriptorSetLayout(h DeviceHandle, info DescriptorSetLayoutInfo) (LayoutHandle, Result) {
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings: []vk.DescriptorSetLayoutBinding{{
			Binding:         0,
			DescriptorType:  vulkanDescriptorTypes[info.Type],
			DescriptorCount: info.Count,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageAll),
		}},
	}

	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(v.device(h), &layoutInfo, nil, &layout); res != vk.Success {
		return 0, Result(res)
	}

	v.mutex.Lock()
	defer v.mutex.Unlock()
	lh := LayoutHandle(v.nextHandle())
	v.layouts[lh] = layout
	return lh, Success
}

// DestroyDescriptorSetLayout implements Backend
func (v *VulkanBackend) DestroyDescriptorSetLayout(h DeviceHandle, l LayoutHandle) {
	v.mutex.Lock()
	layout, ok := v.layouts[l]
	delete(v.layouts, l)
	v.mutex.Unlock()
	if ok {
		vk.DestroyDescriptorSetLayout(v.device(h), layout, nil)
	}
}
