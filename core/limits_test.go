package core

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestDescriptorLimitsWithoutBackendHeaps(t *testing.T) {
	c := qt.New(t)
	limits := DeviceLimits{
		MaxDescriptorSetUniformBuffers: 72,
		MaxDescriptorSetSampledImages:  1 << 20,
		MaxDescriptorSetStorageBuffers: 96,
		MaxDescriptorSetStorageImages:  4096,
		MaxDescriptorSetSamplers:       1 << 20,
	}
	c.Assert(DeriveDescriptorLimits(limits, false), qt.Equals, DescriptorLimits{
		UniformBuffers: 72,
		SampledImages:  1 << 20,
		StorageBuffers: 96,
		StorageImages:  4096,
		Samplers:       MaxDescriptorSetSamplers,
	})

	limits.MaxDescriptorSetSamplers = 1000
	c.Assert(DeriveDescriptorLimits(limits, false).Samplers, qt.Equals, uint32(1000))
}

func TestDescriptorLimitsWithBackendHeaps(t *testing.T) {
	tests := []struct {
		about    string
		limits   DescriptorIndexingLimits
		expected DescriptorLimits
	}{{
		about: "per stage limits minus root provision",
		limits: DescriptorIndexingLimits{
			MaxPerStageUniformBuffers: 500000,
			MaxPerStageStorageBuffers: 500000,
			MaxPerStageSampledImages:  500000,
			MaxPerStageStorageImages:  500000,
			MaxPerStageSamplers:       500000,
			MaxSetUniformBuffers:      1 << 20,
			MaxSetStorageBuffers:      1 << 20,
			MaxSetSampledImages:       1 << 20,
			MaxSetStorageImages:       1 << 20,
			MaxSetSamplers:            1 << 20,
		},
		expected: DescriptorLimits{
			UniformBuffers: 499968,
			SampledImages:  499968,
			StorageBuffers: 499968,
			StorageImages:  499968,
			Samplers:       MaxDescriptorSetSamplers,
		},
	}, {
		about: "large sets split the stage between srv and uav",
		limits: DescriptorIndexingLimits{
			MaxPerStageUniformBuffers: 1 << 22,
			MaxPerStageStorageBuffers: 1 << 22,
			MaxPerStageSampledImages:  1 << 22,
			MaxPerStageStorageImages:  1 << 22,
			MaxPerStageSamplers:       64,
			MaxSetUniformBuffers:      1 << 22,
			MaxSetStorageBuffers:      1 << 22,
			MaxSetSampledImages:       1 << 22,
			MaxSetStorageImages:       1 << 22,
			MaxSetSamplers:            1 << 22,
		},
		expected: DescriptorLimits{
			UniformBuffers: 1<<22 - 32,
			SampledImages:  1<<21 - 32,
			StorageBuffers: 1<<22 - 32,
			StorageImages:  (1<<22)/3 - 32,
			Samplers:       32,
		},
	}, {
		about: "tiny stage limits do not wrap",
		limits: DescriptorIndexingLimits{
			MaxPerStageUniformBuffers: 14,
			MaxSetUniformBuffers:      72,
		},
		expected: DescriptorLimits{},
	}}
	for _, test := range tests {
		t.Run(test.about, func(t *testing.T) {
			c := qt.New(t)
			got := DeriveDescriptorLimits(DeviceLimits{DescriptorIndexing: test.limits}, true)
			c.Assert(got, qt.Equals, test.expected)
		})
	}
}

func TestVirtualHeapPoolSizes(t *testing.T) {
	c := qt.New(t)
	sizes := VirtualHeapPoolSizes(DescriptorLimits{
		UniformBuffers: 12,
		SampledImages:  1 << 20,
		StorageBuffers: 1 << 20,
		StorageImages:  8,
		Samplers:       2048,
	})
	c.Assert(sizes, qt.DeepEquals, []PoolSize{
		{DescriptorUniformBuffer, 12},
		{DescriptorUniformTexelBuffer, MaxVirtualHeapDescriptorsPerType},
		{DescriptorSampledImage, MaxVirtualHeapDescriptorsPerType},
		{DescriptorStorageTexelBuffer, 8},
		{DescriptorStorageImage, 8},
		{DescriptorSampler, 2048},
	})
}
