package core

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// FeatureLevel is a Direct3D feature level. Zero means no level.
type FeatureLevel uint32

// Feature levels in ascending order
const (
	FeatureLevelNone FeatureLevel = 0
	FeatureLevel11_0 FeatureLevel = 0xb000
	FeatureLevel11_1 FeatureLevel = 0xb100
	FeatureLevel12_0 FeatureLevel = 0xc000
	FeatureLevel12_1 FeatureLevel = 0xc100
)

// FeatureLevels lists every level a device can be granted, ascending
var FeatureLevels = []FeatureLevel{FeatureLevel11_0, FeatureLevel11_1, FeatureLevel12_0, FeatureLevel12_1}

func (l FeatureLevel) String() string {
	switch l {
	case FeatureLevelNone:
		return "none"
	case FeatureLevel11_0:
		return "11_0"
	case FeatureLevel11_1:
		return "11_1"
	case FeatureLevel12_0:
		return "12_0"
	case FeatureLevel12_1:
		return "12_1"
	}
	return fmt.Sprintf("%#x", uint32(l))
}

// ParseFeatureLevel accepts "11_0", "11.0" or "12_1" style names
func ParseFeatureLevel(s string) (FeatureLevel, error) {
	switch s {
	case "", "none":
		return FeatureLevelNone, nil
	case "11_0", "11.0":
		return FeatureLevel11_0, nil
	case "11_1", "11.1":
		return FeatureLevel11_1, nil
	case "12_0", "12.0":
		return FeatureLevel12_0, nil
	case "12_1", "12.1":
		return FeatureLevel12_1, nil
	}
	return FeatureLevelNone, fmt.Errorf("%w: feature level %q", ErrInvalidArgument, s)
}

// TiledResourcesTier as reported in the device options
type TiledResourcesTier int

// Tiled resources tiers
const (
	TiledResourcesNotSupported TiledResourcesTier = iota
	TiledResourcesTier1
	TiledResourcesTier2
	TiledResourcesTier3
)

// ResourceBindingTier as reported in the device options
type ResourceBindingTier int

// Resource binding tiers
const (
	ResourceBindingTier1 ResourceBindingTier = iota + 1
	ResourceBindingTier2
	ResourceBindingTier3
)

// ConservativeRasterizationTier as reported in the device options
type ConservativeRasterizationTier int

// Conservative rasterization tiers
const (
	ConservativeRasterizationNotSupported ConservativeRasterizationTier = iota
	ConservativeRasterizationTier1
)

// ResourceHeapTier as reported in the device options
type ResourceHeapTier int

// Resource heap tiers
const (
	ResourceHeapTier1 ResourceHeapTier = iota + 1
	ResourceHeapTier2
)

// MaxGPUVirtualAddressBitsPerResource is reported for every device
const MaxGPUVirtualAddressBitsPerResource = 40

// Options mirror the Direct3D 12 device options a device reports
type Options struct {
	DoublePrecisionFloatShaderOps       bool                          `json:"doublePrecisionFloatShaderOps"`
	OutputMergerLogicOp                 bool                          `json:"outputMergerLogicOp"`
	TiledResourcesTier                  TiledResourcesTier            `json:"tiledResourcesTier"`
	ResourceBindingTier                 ResourceBindingTier           `json:"resourceBindingTier"`
	PSSpecifiedStencilRefSupported      bool                          `json:"psSpecifiedStencilRefSupported"`
	TypedUAVLoadAdditionalFormats       bool                          `json:"typedUAVLoadAdditionalFormats"`
	ROVsSupported                       bool                          `json:"rovsSupported"`
	ConservativeRasterizationTier       ConservativeRasterizationTier `json:"conservativeRasterizationTier"`
	MaxGPUVirtualAddressBitsPerResource uint32                        `json:"maxGPUVirtualAddressBitsPerResource"`
	ResourceHeapTier                    ResourceHeapTier              `json:"resourceHeapTier"`
	Int64ShaderOps                      bool                          `json:"int64ShaderOps"`
	ExpandedComputeResourceStates       bool                          `json:"expandedComputeResourceStates"`
}

// Requirement is a single check of the feature level ladder
type Requirement struct {
	Level FeatureLevel `json:"level"`
	Name  string       `json:"name"`
}

func (r Requirement) String() string {
	return fmt.Sprintf("%s: %s", r.Level, r.Name)
}

// FeatureProfile is the derived description of what a device can do
type FeatureProfile struct {
	MaxFeatureLevel FeatureLevel `json:"maxFeatureLevel"`
	Options         Options      `json:"options"`

	// Unmet lists every requirement that failed, for every level
	Unmet []Requirement `json:"unmet"`
}

// Supports reports whether the profile grants level l
func (p FeatureProfile) Supports(l FeatureLevel) bool {
	return l != FeatureLevelNone && l <= p.MaxFeatureLevel
}

// FeatureInput collects everything the feature derivation looks at
type FeatureInput struct {
	Limits       DeviceLimits
	Sparse       SparseProperties
	Features     DeviceFeatures
	Capabilities *CapabilitySet

	// TypedUAVFormats reports whether every additional typed UAV
	// format supports storage images.
	TypedUAVFormats bool
}

// TypedUAVLoadFormats must all support storage images for typed UAV loads
var TypedUAVLoadFormats = []Format{
	FormatR32G32B32A32Float,
	FormatR32G32B32A32Uint,
	FormatR32G32B32A32Sint,
	FormatR16G16B16A16Float,
	FormatR16G16B16A16Uint,
	FormatR16G16B16A16Sint,
	FormatR8G8B8A8Unorm,
	FormatR8G8B8A8Uint,
	FormatR8G8B8A8Sint,
	FormatR16Float,
	FormatR16Uint,
	FormatR16Sint,
	FormatR8Unorm,
	FormatR8Uint,
	FormatR8Sint,
}

// Thresholds of the 11_0 and 11_1 levels
const (
	minPushConstantsSize       = maxRootCost * 4
	minComputeSharedMemorySize = 8192 * 4
	viewportBoundsMin          = -32768
	viewportBoundsMax          = 32767
	minViewportSubPixelBits    = 8
	constantBufferSlotCount    = 14
	uavSlotCount               = 64
)

// SanitizeSparse clears partial sparse residency support, the
// runtime needs both buffers and 2D images or neither.
func SanitizeSparse(f *DeviceFeatures, sp *SparseProperties) {
	if !f.SparseResidencyBuffer || !f.SparseResidencyImage2D {
		f.SparseResidencyBuffer = false
		f.SparseResidencyImage2D = false
		sp.ResidencyNonResidentStrict = false
	}
}

// DeriveOptions computes the device options
func DeriveOptions(in FeatureInput) Options {
	f := in.Features
	opts := Options{
		DoublePrecisionFloatShaderOps:       f.ShaderFloat64,
		OutputMergerLogicOp:                 f.LogicOp,
		PSSpecifiedStencilRefSupported:      in.Capabilities.Has(EXTShaderStencilExport),
		TypedUAVLoadAdditionalFormats:       f.ShaderStorageImageReadWithoutFormat && in.TypedUAVFormats,
		ROVsSupported:                       in.Capabilities.Has(EXTFragmentShaderInterlock) && f.FragmentShaderPixelInterlock,
		MaxGPUVirtualAddressBitsPerResource: MaxGPUVirtualAddressBitsPerResource,
		ResourceHeapTier:                    ResourceHeapTier2,
		Int64ShaderOps:                      f.ShaderInt64,
		ExpandedComputeResourceStates:       true,
	}

	switch {
	case !f.SparseBinding:
		opts.TiledResourcesTier = TiledResourcesNotSupported
	case !in.Sparse.ResidencyNonResidentStrict:
		opts.TiledResourcesTier = TiledResourcesTier1
	case !f.SparseResidencyImage3D:
		opts.TiledResourcesTier = TiledResourcesTier2
	default:
		opts.TiledResourcesTier = TiledResourcesTier3
	}
	if opts.TiledResourcesTier != TiledResourcesNotSupported {
		log.WithField("tier", int(opts.TiledResourcesTier)).Warn("tiled resources are not implemented, reporting no support")
		opts.TiledResourcesTier = TiledResourcesNotSupported
	}

	switch {
	case in.Limits.MaxPerStageDescriptorSamplers <= 16:
		opts.ResourceBindingTier = ResourceBindingTier1
	case in.Limits.MaxPerStageDescriptorUniformBuffers <= 14:
		opts.ResourceBindingTier = ResourceBindingTier2
	default:
		opts.ResourceBindingTier = ResourceBindingTier3
	}

	if in.Capabilities.Has(EXTConservativeRasterization) {
		opts.ConservativeRasterizationTier = ConservativeRasterizationTier1
	}
	return opts
}

type check struct {
	name string
	ok   bool
}

func baseLevelChecks(in FeatureInput) []check {
	l, f := in.Limits, in.Features
	return []check{
		{"maxPushConstantsSize", l.MaxPushConstantsSize >= minPushConstantsSize},
		{"maxComputeSharedMemorySize", l.MaxComputeSharedMemorySize >= minComputeSharedMemorySize},
		{"viewportBoundsRange[0]", l.ViewportBoundsRange[0] <= viewportBoundsMin},
		{"viewportBoundsRange[1]", l.ViewportBoundsRange[1] >= viewportBoundsMax},
		{"viewportSubPixelBits", l.ViewportSubPixelBits >= minViewportSubPixelBits},
		{"maxPerStageDescriptorUniformBuffers", l.MaxPerStageDescriptorUniformBuffers >= constantBufferSlotCount},
		{"depthBiasClamp", f.DepthBiasClamp},
		{"depthClamp", f.DepthClamp},
		{"drawIndirectFirstInstance", f.DrawIndirectFirstInstance},
		{"dualSrcBlend", f.DualSrcBlend},
		{"fragmentStoresAndAtomics", f.FragmentStoresAndAtomics},
		{"fullDrawIndexUint32", f.FullDrawIndexUint32},
		{"geometryShader", f.GeometryShader},
		{"imageCubeArray", f.ImageCubeArray},
		{"independentBlend", f.IndependentBlend},
		{"multiDrawIndirect", f.MultiDrawIndirect},
		{"multiViewport", f.MultiViewport},
		{"occlusionQueryPrecise", f.OcclusionQueryPrecise},
		{"pipelineStatisticsQuery", f.PipelineStatisticsQuery},
		{"samplerAnisotropy", f.SamplerAnisotropy},
		{"sampleRateShading", f.SampleRateShading},
		{"shaderClipDistance", f.ShaderClipDistance},
		{"shaderCullDistance", f.ShaderCullDistance},
		{"shaderImageGatherExtended", f.ShaderImageGatherExtended},
		{"shaderStorageImageWriteWithoutFormat", f.ShaderStorageImageWriteWithoutFormat},
		{"tessellationShader", f.TessellationShader},
	}
}

func levelChecks(level FeatureLevel, in FeatureInput, opts Options) []check {
	switch level {
	case FeatureLevel11_0:
		return baseLevelChecks(in)
	case FeatureLevel11_1:
		return []check{
			{"outputMergerLogicOp", opts.OutputMergerLogicOp},
			{"vertexPipelineStoresAndAtomics", in.Features.VertexPipelineStoresAndAtomics},
			{"maxPerStageDescriptorStorageBuffers", in.Limits.MaxPerStageDescriptorStorageBuffers >= uavSlotCount},
			{"maxPerStageDescriptorStorageImages", in.Limits.MaxPerStageDescriptorStorageImages >= uavSlotCount},
		}
	case FeatureLevel12_0:
		return []check{
			{"tiledResourcesTier", opts.TiledResourcesTier >= TiledResourcesTier2},
			{"resourceBindingTier", opts.ResourceBindingTier >= ResourceBindingTier2},
			{"typedUAVLoadAdditionalFormats", opts.TypedUAVLoadAdditionalFormats},
		}
	case FeatureLevel12_1:
		return []check{
			{"rovsSupported", opts.ROVsSupported},
			{"conservativeRasterizationTier", opts.ConservativeRasterizationTier >= ConservativeRasterizationTier1},
		}
	}
	return nil
}

// DeriveFeatureProfile derives the options and the maximum feature
// level. A level is granted only when all of its checks and every check
// of the levels below it hold. Every failed check is logged and
// recorded in the profile, none of them is fatal here.
func DeriveFeatureProfile(in FeatureInput) FeatureProfile {
	SanitizeSparse(&in.Features, &in.Sparse)
	profile := FeatureProfile{Options: DeriveOptions(in)}

	if !in.Limits.TimestampComputeAndGraphics {
		log.Warn("timestamps are not supported on all graphics and compute queues")
	}
	if !in.Capabilities.Has(EXTDepthClipEnable) {
		log.Warn("depth clip enable is not supported")
	}
	if !in.Capabilities.Has(EXTTransformFeedback) {
		log.Warn("stream output is not supported")
	}
	if !in.Capabilities.Has(EXTVertexAttributeDivisor) {
		log.Warn("vertex attribute instance rate divisor is not supported")
	} else if !in.Features.VertexAttributeInstanceRateZeroDivisor {
		log.Warn("vertex attribute instance rate zero divisor is not supported")
	}

	granting := true
	for _, level := range FeatureLevels {
		met := true
		for _, c := range levelChecks(level, in, profile.Options) {
			if c.ok {
				continue
			}
			met = false
			profile.Unmet = append(profile.Unmet, Requirement{Level: level, Name: c.name})
			log.WithFields(log.Fields{"featureLevel": level.String(), "requirement": c.name}).Warn("feature level requirement is not met")
		}
		if granting && met {
			profile.MaxFeatureLevel = level
		} else {
			granting = false
		}
	}

	log.WithField("featureLevel", profile.MaxFeatureLevel.String()).Debug("max feature level")
	return profile
}
