package profile

import "github.com/devblok/d3d12vk/core"

// Samples are built-in profiles of typical adapters
var Samples = map[string]func() Profile{
	"desktop":    Desktop,
	"laptop":     Laptop,
	"software":   Software,
	"descriptor": DescriptorIndexing,
}

func extensions(names ...string) []core.ExtensionProperties {
	exts := make([]core.ExtensionProperties, len(names))
	for i, name := range names {
		exts[i] = core.ExtensionProperties{Name: name, SpecVersion: 1}
	}
	return exts
}

// DesktopLimits are limits of a current desktop adapter
func DesktopLimits() core.DeviceLimits {
	return core.DeviceLimits{
		MaxPushConstantsSize:                256,
		MaxComputeSharedMemorySize:          49152,
		ViewportBoundsRange:                 [2]float32{-32768, 32767},
		ViewportSubPixelBits:                8,
		MaxViewports:                        16,
		MaxBoundDescriptorSets:              32,
		MaxPerStageDescriptorSamplers:       1048576,
		MaxPerStageDescriptorUniformBuffers: 1048576,
		MaxPerStageDescriptorStorageBuffers: 1048576,
		MaxPerStageDescriptorSampledImages:  1048576,
		MaxPerStageDescriptorStorageImages:  1048576,
		MaxDescriptorSetSamplers:            1048576,
		MaxDescriptorSetUniformBuffers:      1048576,
		MaxDescriptorSetStorageBuffers:      1048576,
		MaxDescriptorSetSampledImages:       1048576,
		MaxDescriptorSetStorageImages:       1048576,
		MinUniformBufferOffsetAlignment:     256,
		MinStorageBufferOffsetAlignment:     32,
		MinTexelBufferOffsetAlignment:       16,
		FramebufferColorSampleCounts:        15,
		TimestampComputeAndGraphics:         true,
	}
}

// DesktopFeatures are features of a current desktop adapter
func DesktopFeatures() core.DeviceFeatures {
	return core.DeviceFeatures{
		RobustBufferAccess:                     true,
		FullDrawIndexUint32:                    true,
		ImageCubeArray:                         true,
		IndependentBlend:                       true,
		GeometryShader:                         true,
		TessellationShader:                     true,
		SampleRateShading:                      true,
		DualSrcBlend:                           true,
		LogicOp:                                true,
		MultiDrawIndirect:                      true,
		DrawIndirectFirstInstance:              true,
		DepthClamp:                             true,
		DepthBiasClamp:                         true,
		MultiViewport:                          true,
		SamplerAnisotropy:                      true,
		OcclusionQueryPrecise:                  true,
		PipelineStatisticsQuery:                true,
		VertexPipelineStoresAndAtomics:         true,
		FragmentStoresAndAtomics:               true,
		ShaderTessellationAndGeometryPointSize: true,
		ShaderImageGatherExtended:              true,
		ShaderStorageImageReadWithoutFormat:    true,
		ShaderStorageImageWriteWithoutFormat:   true,
		ShaderClipDistance:                     true,
		ShaderCullDistance:                     true,
		ShaderFloat64:                          true,
		ShaderInt64:                            true,
		SparseBinding:                          true,
		SparseResidencyBuffer:                  true,
		SparseResidencyImage2D:                 true,
		SparseResidencyImage3D:                 true,
		ConditionalRendering:                   true,
		DepthClipEnable:                        true,
		NullDescriptor:                         true,
		ShaderDemoteToHelperInvocation:         true,
		TexelBufferAlignment:                   true,
		TimelineSemaphore:                      true,
		TransformFeedback:                      true,
		GeometryStreams:                        true,
		VertexAttributeInstanceRateDivisor:     true,
		VertexAttributeInstanceRateZeroDivisor: true,
		FragmentShaderPixelInterlock:           true,
	}
}

// DesktopExtensions are device extensions of a current desktop adapter
func DesktopExtensions() []core.ExtensionProperties {
	exts := extensions(
		"VK_KHR_maintenance1",
		"VK_KHR_shader_draw_parameters",
		"VK_KHR_dedicated_allocation",
		"VK_KHR_draw_indirect_count",
		"VK_KHR_get_memory_requirements2",
		"VK_KHR_image_format_list",
		"VK_KHR_maintenance3",
		"VK_KHR_push_descriptor",
		"VK_KHR_sampler_mirror_clamp_to_edge",
		"VK_KHR_timeline_semaphore",
		"VK_KHR_swapchain",
		"VK_EXT_calibrated_timestamps",
		"VK_EXT_conditional_rendering",
		"VK_EXT_debug_marker",
		"VK_EXT_depth_clip_enable",
		"VK_EXT_descriptor_indexing",
		"VK_EXT_fragment_shader_interlock",
		"VK_EXT_conservative_rasterization",
		"VK_EXT_robustness2",
		"VK_EXT_shader_demote_to_helper_invocation",
		"VK_EXT_shader_stencil_export",
		"VK_EXT_texel_buffer_alignment",
		"VK_EXT_transform_feedback",
	)
	return append(exts, core.ExtensionProperties{Name: "VK_EXT_vertex_attribute_divisor", SpecVersion: 3})
}

func desktopQueues() []core.QueueFamilyProperties {
	return []core.QueueFamilyProperties{
		{Flags: core.QueueGraphics | core.QueueCompute | core.QueueTransfer | core.QueueSparseBinding, QueueCount: 16, TimestampValidBits: 64},
		{Flags: core.QueueTransfer | core.QueueSparseBinding, QueueCount: 2, TimestampValidBits: 64},
		{Flags: core.QueueCompute | core.QueueTransfer | core.QueueSparseBinding, QueueCount: 8, TimestampValidBits: 64},
	}
}

func instanceExtensions() []core.ExtensionProperties {
	return extensions(
		"VK_KHR_get_physical_device_properties2",
		"VK_KHR_surface",
		"VK_EXT_debug_report",
	)
}

// Desktop is a single discrete adapter with dedicated compute and copy
// families. Tiled resources are never reported, which caps it at 11_1.
func Desktop() Profile {
	return Profile{
		Name:               "desktop",
		InstanceExtensions: instanceExtensions(),
		Adapters: []Adapter{{
			Properties: core.AdapterProperties{
				Name:          "Desktop GPU",
				VendorID:      0x10de,
				DeviceID:      0x1b80,
				Type:          core.AdapterTypeDiscrete,
				APIVersion:    core.MakeVersion(1, 2, 0),
				DriverVersion: core.MakeVersion(450, 0, 0),
				Limits:        DesktopLimits(),
				Sparse:        core.SparseProperties{ResidencyNonResidentStrict: true},
			},
			Features:       DesktopFeatures(),
			QueueFamilies:  desktopQueues(),
			MemoryTypes:    []core.MemoryPropertyFlags{core.MemoryDeviceLocal, core.MemoryHostVisible | core.MemoryHostCoherent},
			Extensions:     DesktopExtensions(),
			StorageFormats: append([]core.Format(nil), core.TypedUAVLoadFormats...),
		}},
	}
}

// Laptop has an integrated adapter enumerated before a discrete one.
// The integrated adapter has a single queue family and shares memory
// with the host.
func Laptop() Profile {
	integratedLimits := DesktopLimits()
	integratedLimits.MaxPerStageDescriptorSamplers = 64
	integratedLimits.MaxPerStageDescriptorUniformBuffers = 14

	desktop := Desktop().Adapters[0]
	desktop.Properties.Name = "Laptop Discrete GPU"

	return Profile{
		Name:               "laptop",
		InstanceExtensions: instanceExtensions(),
		Adapters: []Adapter{
			{
				Properties: core.AdapterProperties{
					Name:          "Laptop Integrated GPU",
					VendorID:      0x8086,
					DeviceID:      0x3e9b,
					Type:          core.AdapterTypeIntegrated,
					APIVersion:    core.MakeVersion(1, 1, 0),
					DriverVersion: core.MakeVersion(20, 1, 0),
					Limits:        integratedLimits,
				},
				Features: DesktopFeatures(),
				QueueFamilies: []core.QueueFamilyProperties{
					{Flags: core.QueueGraphics | core.QueueCompute | core.QueueTransfer, QueueCount: 1, TimestampValidBits: 36},
				},
				MemoryTypes: []core.MemoryPropertyFlags{
					core.MemoryDeviceLocal | core.MemoryHostVisible | core.MemoryHostCoherent,
					core.MemoryDeviceLocal | core.MemoryHostVisible | core.MemoryHostCoherent | core.MemoryHostCached,
				},
				Extensions: extensions("VK_KHR_maintenance1", "VK_KHR_shader_draw_parameters", "VK_KHR_maintenance3"),
			},
			desktop,
		},
	}
}

// Software is a CPU rasterizer that misses most of the base level
func Software() Profile {
	limits := DesktopLimits()
	limits.MaxComputeSharedMemorySize = 16384
	limits.MaxPerStageDescriptorSamplers = 16
	limits.TimestampComputeAndGraphics = false

	return Profile{
		Name:               "software",
		InstanceExtensions: extensions("VK_KHR_get_physical_device_properties2"),
		Adapters: []Adapter{{
			Properties: core.AdapterProperties{
				Name:   "Software Rasterizer",
				Type:   core.AdapterTypeCPU,
				Limits: limits,
			},
			Features: core.DeviceFeatures{
				FullDrawIndexUint32: true,
				ImageCubeArray:      true,
				IndependentBlend:    true,
				DualSrcBlend:        true,
			},
			QueueFamilies: []core.QueueFamilyProperties{
				{Flags: core.QueueGraphics | core.QueueCompute | core.QueueTransfer, QueueCount: 1},
			},
			MemoryTypes: []core.MemoryPropertyFlags{core.MemoryHostVisible | core.MemoryHostCoherent},
			Extensions:  extensions("VK_KHR_maintenance1", "VK_KHR_shader_draw_parameters"),
		}},
	}
}

// DescriptorIndexing is Desktop with update-after-bind descriptor heaps
func DescriptorIndexing() Profile {
	p := Desktop()
	p.Name = "descriptor"
	a := &p.Adapters[0]
	a.Features.DescriptorIndexing = core.DescriptorIndexingFeatures{
		UniformBufferUpdateAfterBind:      true,
		SampledImageUpdateAfterBind:       true,
		StorageImageUpdateAfterBind:       true,
		StorageBufferUpdateAfterBind:      true,
		UniformTexelBufferUpdateAfterBind: true,
		StorageTexelBufferUpdateAfterBind: true,
	}
	a.Properties.Limits.DescriptorIndexing = core.DescriptorIndexingLimits{
		MaxPerStageUniformBuffers: 1048576,
		MaxPerStageStorageBuffers: 1048576,
		MaxPerStageSampledImages:  1048576,
		MaxPerStageStorageImages:  1048576,
		MaxPerStageSamplers:       1048576,
		MaxSetUniformBuffers:      90,
		MaxSetStorageBuffers:      1048576,
		MaxSetSampledImages:       1048576,
		MaxSetStorageImages:       1048576,
		MaxSetSamplers:            1048576,
	}
	return p
}
