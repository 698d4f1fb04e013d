package device_test

import (
	"errors"
	"testing"

	"github.com/devblok/d3d12vk/core"
	"github.com/devblok/d3d12vk/core/profile"
	"github.com/devblok/d3d12vk/device"
	qt "github.com/frankban/quicktest"
)

func create(c *qt.C, p profile.Profile, env core.Environment, cfg device.Configuration) (*device.Device, *profile.Backend) {
	b := profile.New(p)
	d, err := device.Create(b, core.InstanceConfiguration{Environment: env}, cfg)
	c.Assert(err, qt.IsNil)
	return d, b
}

func TestCreateDesktopDevice(t *testing.T) {
	c := qt.New(t)
	d, b := create(c, profile.Desktop(), core.Environment{}, device.Configuration{})

	c.Assert(d.MaxFeatureLevel(), qt.Equals, core.FeatureLevel11_1)
	c.Assert(d.Adapter().Name(), qt.Equals, "Desktop GPU")
	c.Assert(d.UsesBackendHeaps(), qt.IsFalse)
	c.Assert(d.HeapLayouts(), qt.HasLen, 0)
	c.Assert(d.DescriptorLimits().Samplers, qt.Equals, uint32(core.MaxDescriptorSetSamplers))
	c.Assert(d.DescriptorLimits().UniformBuffers, qt.Equals, uint32(1048576))
	c.Assert(d.VirtualHeapPoolSizes(), qt.HasLen, 6)
	c.Assert(d.GPUVAAllocator(), qt.Not(qt.IsNil))
	c.Assert(d.DescriptorAllocator(), qt.Not(qt.IsNil))

	direct := d.Queue(core.RoleDirect)
	compute := d.Queue(core.RoleCompute)
	copyQueue := d.Queue(core.RoleCopy)
	c.Assert(direct.Family(), qt.Equals, uint32(0))
	c.Assert(compute.Family(), qt.Equals, uint32(2))
	c.Assert(copyQueue.Family(), qt.Equals, uint32(1))
	c.Assert(direct, qt.Not(qt.Equals), compute)
	c.Assert(d.Queue(core.QueueRoleCount), qt.IsNil)

	info, ok := b.CreatedDevice(d.Handle())
	c.Assert(ok, qt.IsTrue)
	c.Assert(info.Queues, qt.HasLen, 3)
	c.Assert(info.Features.ShaderTessellationAndGeometryPointSize, qt.IsFalse)
	c.Assert(info.Features.RobustBufferAccess, qt.IsTrue)
	c.Assert(info.Extensions, qt.Contains, "VK_KHR_maintenance1")
	c.Assert(info.Extensions, qt.Not(qt.Contains), "VK_EXT_debug_marker")

	c.Assert(d.Release(), qt.Equals, uint32(0))
	c.Assert(b.LiveObjects(), qt.Equals, 0)
	c.Assert(b.DestroyOrder, qt.DeepEquals, []string{"device", "instance"})
}

func TestLaptopPrefersDiscreteAdapter(t *testing.T) {
	c := qt.New(t)
	d, _ := create(c, profile.Laptop(), core.Environment{}, device.Configuration{})
	defer d.Release()

	c.Assert(d.Adapter().Name(), qt.Equals, "Laptop Discrete GPU")
	c.Assert(d.Adapter().Index, qt.Equals, 1)
}

func TestEnvironmentSelectsIntegratedAdapter(t *testing.T) {
	c := qt.New(t)
	env := core.Environment{AdapterIndex: 0, HasAdapterIndex: true}
	d, b := create(c, profile.Laptop(), env, device.Configuration{})

	c.Assert(d.Adapter().Properties.Type, qt.Equals, core.AdapterTypeIntegrated)
	c.Assert(d.MaxFeatureLevel(), qt.Equals, core.FeatureLevel11_1)
	c.Assert(d.Options().ResourceBindingTier, qt.Equals, core.ResourceBindingTier2)

	// A single family serves every role through one queue.
	direct := d.Queue(core.RoleDirect)
	c.Assert(d.Queue(core.RoleCompute), qt.Equals, direct)
	c.Assert(d.Queue(core.RoleCopy), qt.Equals, direct)
	c.Assert(direct.TimestampValidBits(), qt.Equals, uint32(36))

	info, _ := b.CreatedDevice(d.Handle())
	c.Assert(info.Queues, qt.DeepEquals, []core.QueueCreateRequest{{FamilyIndex: 0, Priorities: []float32{1.0}}})

	arch, err := d.Architecture(0)
	c.Assert(err, qt.IsNil)
	c.Assert(arch.UMA, qt.IsTrue)
	c.Assert(arch.CacheCoherentUMA, qt.IsTrue)
	c.Assert(arch.TileBasedRenderer, qt.IsFalse)

	d.Release()
	c.Assert(b.LiveObjects(), qt.Equals, 0)
}

func TestExplicitAdapter(t *testing.T) {
	c := qt.New(t)
	b := profile.New(profile.Laptop())
	instance, err := core.NewInstance(b, core.InstanceConfiguration{})
	c.Assert(err, qt.IsNil)
	adapters, err := instance.Adapters()
	c.Assert(err, qt.IsNil)

	d, err := device.New(instance, device.Configuration{Adapter: &adapters[0], AdapterLUID: 0x1234})
	c.Assert(err, qt.IsNil)
	c.Assert(d.Adapter().Properties.Type, qt.Equals, core.AdapterTypeIntegrated)
	c.Assert(d.AdapterLUID(), qt.Equals, uint64(0x1234))
	c.Assert(d.Instance(), qt.Equals, instance)

	// The device holds its own instance reference.
	c.Assert(instance.Release(), qt.Equals, uint32(1))
	c.Assert(b.LiveObjects(), qt.Equals, 2)
	d.Release()
	c.Assert(b.LiveObjects(), qt.Equals, 0)
}

func TestMinimumFeatureLevel(t *testing.T) {
	c := qt.New(t)
	b := profile.New(profile.Software())
	_, err := device.Create(b, core.InstanceConfiguration{}, device.Configuration{MinimumFeatureLevel: core.FeatureLevel11_0})
	c.Assert(errors.Is(err, core.ErrInvalidArgument), qt.IsTrue)
	c.Assert(b.LiveObjects(), qt.Equals, 0)

	d, err := device.Create(b, core.InstanceConfiguration{}, device.Configuration{})
	c.Assert(err, qt.IsNil)
	c.Assert(d.MaxFeatureLevel(), qt.Equals, core.FeatureLevelNone)
	c.Assert(len(d.UnmetRequirements()) > 0, qt.IsTrue)
	c.Assert(d.UnmetRequirements()[0].Level, qt.Equals, core.FeatureLevel11_0)
	d.Release()

	_, err = device.Create(b, core.InstanceConfiguration{}, device.Configuration{MinimumFeatureLevel: core.FeatureLevel(5)})
	c.Assert(errors.Is(err, core.ErrInvalidArgument), qt.IsTrue)

	d, err = device.Create(profile.New(profile.Desktop()), core.InstanceConfiguration{},
		device.Configuration{MinimumFeatureLevel: core.FeatureLevel12_0})
	c.Assert(err, qt.ErrorMatches, ".*feature level 12_0 not supported.*")
	c.Assert(d, qt.IsNil)
}

func TestBackendHeaps(t *testing.T) {
	c := qt.New(t)
	d, b := create(c, profile.DescriptorIndexing(), core.Environment{}, device.Configuration{})

	c.Assert(d.UsesBackendHeaps(), qt.IsTrue)
	c.Assert(d.DescriptorLimits(), qt.DeepEquals, core.DescriptorLimits{
		UniformBuffers: 90,
		SampledImages:  1048544,
		StorageBuffers: 1048544,
		StorageImages:  1048544,
		Samplers:       core.MaxDescriptorSetSamplers,
	})

	layouts := d.HeapLayouts()
	c.Assert(layouts, qt.HasLen, int(device.HeapSetCount))
	c.Assert(layouts[device.SetUniformBuffer].Count, qt.Equals, uint32(90))
	c.Assert(layouts[device.SetSampler].HeapType, qt.Equals, device.HeapTypeSampler)
	c.Assert(layouts[device.SetSampler].Count, qt.Equals, uint32(core.MaxDescriptorSetSamplers))
	c.Assert(layouts[device.SetSampledImage].BufferDimension, qt.IsFalse)
	c.Assert(layouts[device.SetUAVCounter].Type, qt.Equals, core.DescriptorStorageTexelBuffer)

	info, _ := b.CreatedDevice(d.Handle())
	c.Assert(info.Features.DescriptorIndexing.StorageBufferUpdateAfterBind, qt.IsFalse)
	c.Assert(info.Features.DescriptorIndexing.UniformBufferUpdateAfterBind, qt.IsTrue)
	c.Assert(info.Features.RobustBufferAccess, qt.IsFalse)

	d.Release()
	c.Assert(b.LiveObjects(), qt.Equals, 0)
	c.Assert(b.DestroyOrder, qt.DeepEquals, []string{
		"layout", "layout", "layout", "layout", "layout", "layout", "layout",
		"device", "instance",
	})
}

func TestVirtualHeapsOverride(t *testing.T) {
	c := qt.New(t)
	env := core.Environment{Flags: core.ConfigVirtualHeaps}
	d, _ := create(c, profile.DescriptorIndexing(), env, device.Configuration{})
	defer d.Release()

	c.Assert(d.UsesBackendHeaps(), qt.IsFalse)
	c.Assert(d.HeapLayouts(), qt.HasLen, 0)
	for _, ps := range d.VirtualHeapPoolSizes() {
		c.Assert(ps.Count <= core.MaxVirtualHeapDescriptorsPerType, qt.IsTrue)
	}
}

func TestDisabledDescriptorIndexing(t *testing.T) {
	c := qt.New(t)
	env := core.Environment{DisabledExtensions: []string{"VK_EXT_descriptor_indexing"}}
	d, _ := create(c, profile.DescriptorIndexing(), env, device.Configuration{})
	defer d.Release()

	c.Assert(d.Capabilities().Has(core.EXTDescriptorIndexing), qt.IsFalse)
	c.Assert(d.UsesBackendHeaps(), qt.IsFalse)
	c.Assert(d.EnabledFeatures().RobustBufferAccess, qt.IsTrue)
}

func TestCreationFailuresLeaveNothing(t *testing.T) {
	tests := []struct {
		call   string
		result core.Result
		kind   error
	}{
		{"CreateDevice", core.ErrorInitializationFailed, core.ErrNoSuitableAdapter},
		{"CreateDevice", core.ErrorOutOfHostMemory, core.ErrResourceExhausted},
		{"CreateDescriptorSetLayout", core.ErrorOutOfDeviceMemory, core.ErrResourceExhausted},
		{"DeviceExtensions", core.ErrorDeviceLost, core.ErrInternal},
		{"EnumerateAdapters", core.ErrorInitializationFailed, core.ErrNoSuitableAdapter},
	}
	for _, test := range tests {
		t.Run(test.call+"/"+test.result.String(), func(t *testing.T) {
			c := qt.New(t)
			b := profile.New(profile.DescriptorIndexing())
			b.Fail[test.call] = test.result

			d, err := device.Create(b, core.InstanceConfiguration{}, device.Configuration{})
			c.Assert(d, qt.IsNil)
			c.Assert(errors.Is(err, test.kind), qt.IsTrue, qt.Commentf("error %v", err))
			c.Assert(b.LiveObjects(), qt.Equals, 0)
		})
	}
}

func TestMissingRequiredExtension(t *testing.T) {
	c := qt.New(t)
	b := profile.New(profile.Desktop())
	_, err := device.Create(b, core.InstanceConfiguration{}, device.Configuration{
		Capabilities: core.DeviceConfiguration{Extensions: []string{"VK_KHR_ray_tracing"}},
	})
	c.Assert(errors.Is(err, core.ErrUnsupportedCapability), qt.IsTrue)
	c.Assert(b.LiveObjects(), qt.Equals, 0)
}

func TestReferenceCounting(t *testing.T) {
	c := qt.New(t)
	d, b := create(c, profile.Desktop(), core.Environment{}, device.Configuration{})

	c.Assert(d.AddRef(), qt.Equals, uint32(2))
	c.Assert(d.Release(), qt.Equals, uint32(1))
	c.Assert(b.LiveObjects(), qt.Equals, 2)
	c.Assert(d.Release(), qt.Equals, uint32(0))
	c.Assert(b.LiveObjects(), qt.Equals, 0)
}
