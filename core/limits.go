package core

// DeviceLimits are the numeric limits the backend reports for an adapter
type DeviceLimits struct {
	MaxPushConstantsSize       uint32     `json:"maxPushConstantsSize"`
	MaxComputeSharedMemorySize uint32     `json:"maxComputeSharedMemorySize"`
	ViewportBoundsRange        [2]float32 `json:"viewportBoundsRange"`
	ViewportSubPixelBits       uint32     `json:"viewportSubPixelBits"`
	MaxViewports               uint32     `json:"maxViewports"`
	MaxBoundDescriptorSets     uint32     `json:"maxBoundDescriptorSets"`

	MaxPerStageDescriptorSamplers       uint32 `json:"maxPerStageDescriptorSamplers"`
	MaxPerStageDescriptorUniformBuffers uint32 `json:"maxPerStageDescriptorUniformBuffers"`
	MaxPerStageDescriptorStorageBuffers uint32 `json:"maxPerStageDescriptorStorageBuffers"`
	MaxPerStageDescriptorSampledImages  uint32 `json:"maxPerStageDescriptorSampledImages"`
	MaxPerStageDescriptorStorageImages  uint32 `json:"maxPerStageDescriptorStorageImages"`

	MaxDescriptorSetSamplers       uint32 `json:"maxDescriptorSetSamplers"`
	MaxDescriptorSetUniformBuffers uint32 `json:"maxDescriptorSetUniformBuffers"`
	MaxDescriptorSetStorageBuffers uint32 `json:"maxDescriptorSetStorageBuffers"`
	MaxDescriptorSetSampledImages  uint32 `json:"maxDescriptorSetSampledImages"`
	MaxDescriptorSetStorageImages  uint32 `json:"maxDescriptorSetStorageImages"`

	MinUniformBufferOffsetAlignment uint64 `json:"minUniformBufferOffsetAlignment"`
	MinStorageBufferOffsetAlignment uint64 `json:"minStorageBufferOffsetAlignment"`
	MinTexelBufferOffsetAlignment   uint64 `json:"minTexelBufferOffsetAlignment"`
	FramebufferColorSampleCounts    uint32 `json:"framebufferColorSampleCounts"`
	TimestampComputeAndGraphics     bool   `json:"timestampComputeAndGraphics"`

	// Reported only when descriptor indexing is available
	DescriptorIndexing DescriptorIndexingLimits `json:"descriptorIndexing"`
}

// DescriptorIndexingLimits are the update-after-bind limits
type DescriptorIndexingLimits struct {
	MaxPerStageUniformBuffers uint32 `json:"maxPerStageUniformBuffers"`
	MaxPerStageStorageBuffers uint32 `json:"maxPerStageStorageBuffers"`
	MaxPerStageSampledImages  uint32 `json:"maxPerStageSampledImages"`
	MaxPerStageStorageImages  uint32 `json:"maxPerStageStorageImages"`
	MaxPerStageSamplers       uint32 `json:"maxPerStageSamplers"`

	MaxSetUniformBuffers uint32 `json:"maxSetUniformBuffers"`
	MaxSetStorageBuffers uint32 `json:"maxSetStorageBuffers"`
	MaxSetSampledImages  uint32 `json:"maxSetSampledImages"`
	MaxSetStorageImages  uint32 `json:"maxSetStorageImages"`
	MaxSetSamplers       uint32 `json:"maxSetSamplers"`

	RobustBufferAccessUpdateAfterBind bool `json:"robustBufferAccessUpdateAfterBind"`
}

// DeviceFeatures are the boolean features an adapter supports. The same
// structure is handed back to the backend with unused features cleared.
type DeviceFeatures struct {
	RobustBufferAccess                     bool `json:"robustBufferAccess"`
	FullDrawIndexUint32                    bool `json:"fullDrawIndexUint32"`
	ImageCubeArray                         bool `json:"imageCubeArray"`
	IndependentBlend                       bool `json:"independentBlend"`
	GeometryShader                         bool `json:"geometryShader"`
	TessellationShader                     bool `json:"tessellationShader"`
	SampleRateShading                      bool `json:"sampleRateShading"`
	DualSrcBlend                           bool `json:"dualSrcBlend"`
	LogicOp                                bool `json:"logicOp"`
	MultiDrawIndirect                      bool `json:"multiDrawIndirect"`
	DrawIndirectFirstInstance              bool `json:"drawIndirectFirstInstance"`
	DepthClamp                             bool `json:"depthClamp"`
	DepthBiasClamp                         bool `json:"depthBiasClamp"`
	MultiViewport                          bool `json:"multiViewport"`
	SamplerAnisotropy                      bool `json:"samplerAnisotropy"`
	OcclusionQueryPrecise                  bool `json:"occlusionQueryPrecise"`
	PipelineStatisticsQuery                bool `json:"pipelineStatisticsQuery"`
	VertexPipelineStoresAndAtomics         bool `json:"vertexPipelineStoresAndAtomics"`
	FragmentStoresAndAtomics               bool `json:"fragmentStoresAndAtomics"`
	ShaderTessellationAndGeometryPointSize bool `json:"shaderTessellationAndGeometryPointSize"`
	ShaderImageGatherExtended              bool `json:"shaderImageGatherExtended"`
	ShaderStorageImageReadWithoutFormat    bool `json:"shaderStorageImageReadWithoutFormat"`
	ShaderStorageImageWriteWithoutFormat   bool `json:"shaderStorageImageWriteWithoutFormat"`
	ShaderClipDistance                     bool `json:"shaderClipDistance"`
	ShaderCullDistance                     bool `json:"shaderCullDistance"`
	ShaderFloat64                          bool `json:"shaderFloat64"`
	ShaderInt64                            bool `json:"shaderInt64"`
	SparseBinding                          bool `json:"sparseBinding"`
	SparseResidencyBuffer                  bool `json:"sparseResidencyBuffer"`
	SparseResidencyImage2D                 bool `json:"sparseResidencyImage2D"`
	SparseResidencyImage3D                 bool `json:"sparseResidencyImage3D"`

	// Features exposed through extension structures
	ConditionalRendering                   bool `json:"conditionalRendering"`
	DepthClipEnable                        bool `json:"depthClipEnable"`
	NullDescriptor                         bool `json:"nullDescriptor"`
	ShaderDemoteToHelperInvocation         bool `json:"shaderDemoteToHelperInvocation"`
	TexelBufferAlignment                   bool `json:"texelBufferAlignment"`
	TimelineSemaphore                      bool `json:"timelineSemaphore"`
	TransformFeedback                      bool `json:"transformFeedback"`
	GeometryStreams                        bool `json:"geometryStreams"`
	VertexAttributeInstanceRateDivisor     bool `json:"vertexAttributeInstanceRateDivisor"`
	VertexAttributeInstanceRateZeroDivisor bool `json:"vertexAttributeInstanceRateZeroDivisor"`
	FragmentShaderPixelInterlock           bool `json:"fragmentShaderPixelInterlock"`

	DescriptorIndexing DescriptorIndexingFeatures `json:"descriptorIndexing"`
}

// DescriptorIndexingFeatures select between backend and virtual descriptor heaps
type DescriptorIndexingFeatures struct {
	UniformBufferUpdateAfterBind      bool `json:"uniformBufferUpdateAfterBind"`
	SampledImageUpdateAfterBind       bool `json:"sampledImageUpdateAfterBind"`
	StorageImageUpdateAfterBind       bool `json:"storageImageUpdateAfterBind"`
	StorageBufferUpdateAfterBind      bool `json:"storageBufferUpdateAfterBind"`
	UniformTexelBufferUpdateAfterBind bool `json:"uniformTexelBufferUpdateAfterBind"`
	StorageTexelBufferUpdateAfterBind bool `json:"storageTexelBufferUpdateAfterBind"`
}

// AllHeapBindings reports whether every binding a backend descriptor heap
// needs can be updated after bind.
func (f DescriptorIndexingFeatures) AllHeapBindings() bool {
	return f.UniformBufferUpdateAfterBind &&
		f.SampledImageUpdateAfterBind &&
		f.StorageImageUpdateAfterBind &&
		f.UniformTexelBufferUpdateAfterBind &&
		f.StorageTexelBufferUpdateAfterBind
}

// Upper bounds applied to backend descriptor limits
const (
	MaxDescriptorSetSamplers         = 2048
	MaxVirtualHeapDescriptorsPerType = 16384
)

const (
	maxRootCost                 = 64
	descriptorHeapRootProvision = maxRootCost / 2
)

// DescriptorLimits bound the number of descriptors of each kind a single
// descriptor heap can hold.
type DescriptorLimits struct {
	UniformBuffers uint32 `json:"uniformBuffers"`
	SampledImages  uint32 `json:"sampledImages"`
	StorageBuffers uint32 `json:"storageBuffers"`
	StorageImages  uint32 `json:"storageImages"`
	Samplers       uint32 `json:"samplers"`
}

// DeriveDescriptorLimits picks descriptor limits for the heap
// implementation in use. Backend heaps are bound by update-after-bind
// limits minus a provision for root descriptors.
func DeriveDescriptorLimits(limits DeviceLimits, backendHeaps bool) DescriptorLimits {
	if !backendHeaps {
		return DescriptorLimits{
			UniformBuffers: limits.MaxDescriptorSetUniformBuffers,
			SampledImages:  limits.MaxDescriptorSetSampledImages,
			StorageBuffers: limits.MaxDescriptorSetStorageBuffers,
			StorageImages:  limits.MaxDescriptorSetStorageImages,
			Samplers:       minUint32(limits.MaxDescriptorSetSamplers, MaxDescriptorSetSamplers),
		}
	}

	di := limits.DescriptorIndexing
	srvDivisor, uavDivisor := uint32(1), uint32(1)
	if di.MaxSetSampledImages >= 1<<21 {
		srvDivisor = 2
		uavDivisor = 2
		if di.MaxSetSampledImages >= 3<<20 {
			uavDivisor = 3
		}
	}

	dl := DescriptorLimits{
		UniformBuffers: minUint32(di.MaxSetUniformBuffers, provisioned(di.MaxPerStageUniformBuffers)),
		SampledImages:  minUint32(di.MaxSetSampledImages, provisioned(di.MaxPerStageSampledImages/srvDivisor)),
		StorageBuffers: minUint32(di.MaxSetStorageBuffers, provisioned(di.MaxPerStageStorageBuffers)),
		StorageImages:  minUint32(di.MaxSetStorageImages, provisioned(di.MaxPerStageStorageImages/uavDivisor)),
		Samplers:       minUint32(di.MaxSetSamplers, provisioned(di.MaxPerStageSamplers)),
	}
	dl.Samplers = minUint32(dl.Samplers, MaxDescriptorSetSamplers)
	return dl
}

// PoolSize is the number of descriptors of one type a virtual heap pool reserves
type PoolSize struct {
	Type  DescriptorType
	Count uint32
}

// VirtualHeapPoolSizes returns the descriptor pool sizes used when
// descriptor heaps are emulated.
func VirtualHeapPoolSizes(dl DescriptorLimits) []PoolSize {
	sampled := minUint32(dl.SampledImages, MaxVirtualHeapDescriptorsPerType)
	storage := minUint32(dl.StorageImages, MaxVirtualHeapDescriptorsPerType)
	return []PoolSize{
		{DescriptorUniformBuffer, minUint32(dl.UniformBuffers, MaxVirtualHeapDescriptorsPerType)},
		{DescriptorUniformTexelBuffer, sampled},
		{DescriptorSampledImage, sampled},
		{DescriptorStorageTexelBuffer, storage},
		{DescriptorStorageImage, storage},
		{DescriptorSampler, minUint32(dl.Samplers, MaxVirtualHeapDescriptorsPerType)},
	}
}

// provisioned subtracts the root provision without wrapping below zero
func provisioned(n uint32) uint32 {
	if n < descriptorHeapRootProvision {
		return 0
	}
	return n - descriptorHeapRootProvision
}

func minUint32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
