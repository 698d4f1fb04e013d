package device_test

import (
	"errors"
	"testing"

	"github.com/devblok/d3d12vk/core"
	"github.com/devblok/d3d12vk/core/profile"
	"github.com/devblok/d3d12vk/device"
	qt "github.com/frankban/quicktest"
)

func TestFeatureLevelQuery(t *testing.T) {
	c := qt.New(t)
	d, _ := create(c, profile.Desktop(), core.Environment{}, device.Configuration{})
	defer d.Release()

	_, err := d.FeatureLevel(nil)
	c.Assert(errors.Is(err, core.ErrInvalidArgument), qt.IsTrue)

	tests := []struct {
		requested []core.FeatureLevel
		expected  core.FeatureLevel
	}{
		{[]core.FeatureLevel{core.FeatureLevel11_0}, core.FeatureLevel11_0},
		{[]core.FeatureLevel{core.FeatureLevel11_0, core.FeatureLevel12_0}, core.FeatureLevel11_0},
		{[]core.FeatureLevel{core.FeatureLevel12_1, core.FeatureLevel11_1, core.FeatureLevel11_0}, core.FeatureLevel11_1},
		{[]core.FeatureLevel{core.FeatureLevel12_0, core.FeatureLevel12_1}, core.FeatureLevelNone},
	}
	for _, test := range tests {
		level, err := d.FeatureLevel(test.requested)
		c.Assert(err, qt.IsNil)
		c.Assert(level, qt.Equals, test.expected, qt.Commentf("requested %v", test.requested))
	}
}

func TestOptionsQuery(t *testing.T) {
	c := qt.New(t)
	d, _ := create(c, profile.Desktop(), core.Environment{}, device.Configuration{})
	defer d.Release()

	opts := d.Options()
	c.Assert(opts.ROVsSupported, qt.IsTrue)
	c.Assert(opts.ConservativeRasterizationTier, qt.Equals, core.ConservativeRasterizationTier1)
	c.Assert(opts.TiledResourcesTier, qt.Equals, core.TiledResourcesNotSupported)
	c.Assert(opts.ResourceBindingTier, qt.Equals, core.ResourceBindingTier3)
	c.Assert(opts.TypedUAVLoadAdditionalFormats, qt.IsTrue)

	va := d.GPUVirtualAddressSupport()
	c.Assert(va.MaxBitsPerResource, qt.Equals, uint32(40))
	c.Assert(va.MaxBitsPerProcess, qt.Equals, uint32(40))

	c.Assert(d.NodeCount(), qt.Equals, uint32(1))
	c.Assert(d.ShaderModel(device.ShaderModel6_0), qt.Equals, device.ShaderModel5_1)
	c.Assert(d.ShaderModel(device.ShaderModel5_1), qt.Equals, device.ShaderModel5_1)
	c.Assert(device.ShaderModel5_1.String(), qt.Equals, "5.1")

	var unmet []string
	for _, r := range d.UnmetRequirements() {
		unmet = append(unmet, r.String())
	}
	c.Assert(unmet, qt.Contains, "12_0: tiledResourcesTier")
}

func TestArchitectureQuery(t *testing.T) {
	c := qt.New(t)
	d, _ := create(c, profile.Desktop(), core.Environment{}, device.Configuration{})
	defer d.Release()

	arch, err := d.Architecture(0)
	c.Assert(err, qt.IsNil)
	c.Assert(arch, qt.Equals, device.Architecture{})

	_, err = d.Architecture(1)
	c.Assert(errors.Is(err, core.ErrInvalidArgument), qt.IsTrue)
}

func TestRootSignatureVersion(t *testing.T) {
	c := qt.New(t)
	d, _ := create(c, profile.Desktop(), core.Environment{}, device.Configuration{})
	defer d.Release()

	c.Assert(d.RootSignatureVersion(device.RootSignatureVersion1_1), qt.Equals, device.RootSignatureVersion1_1)
	c.Assert(d.RootSignatureVersion(device.RootSignatureVersion1_0), qt.Equals, device.RootSignatureVersion1_0)
	c.Assert(d.RootSignatureVersion(device.RootSignatureVersion(7)), qt.Equals, device.RootSignatureVersion1_1)

	old, err := device.Create(profile.New(profile.Desktop()),
		core.InstanceConfiguration{RuntimeVersion: core.RuntimeVersion1_0}, device.Configuration{})
	c.Assert(err, qt.IsNil)
	defer old.Release()
	c.Assert(old.RootSignatureVersion(device.RootSignatureVersion1_1), qt.Equals, device.RootSignatureVersion1_0)
}

func TestCommandQueuePriority(t *testing.T) {
	c := qt.New(t)
	d, _ := create(c, profile.Desktop(), core.Environment{}, device.Configuration{})
	defer d.Release()

	ok, err := d.CommandQueuePrioritySupported(device.CommandListDirect, device.QueuePriorityNormal)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	ok, err = d.CommandQueuePrioritySupported(device.CommandListCopy, device.QueuePriorityHigh)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)

	_, err = d.CommandQueuePrioritySupported(device.CommandListBundle, device.QueuePriorityNormal)
	c.Assert(errors.Is(err, core.ErrInvalidArgument), qt.IsTrue)
}
