// Package device builds the Direct3D 12 device object on top of a
// negotiated backend connection. A Device owns the logical backend
// device, its queues, the GPU virtual address and descriptor range
// allocators and the descriptor heap layouts.
package device

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/devblok/d3d12vk/core"
	"github.com/devblok/d3d12vk/memory"
	log "github.com/sirupsen/logrus"
)

// Configuration describes the device to create
type Configuration struct {
	// Adapter picks an adapter explicitly. An adapter index set in the
	// environment still takes precedence.
	Adapter *core.Adapter

	// MinimumFeatureLevel fails creation when the adapter cannot reach it
	MinimumFeatureLevel core.FeatureLevel

	Capabilities core.DeviceConfiguration

	// AdapterLUID is reported back by AdapterLUID
	AdapterLUID uint64
}

func (c Configuration) validate() error {
	if c.MinimumFeatureLevel == core.FeatureLevelNone {
		return nil
	}
	for _, l := range core.FeatureLevels {
		if l == c.MinimumFeatureLevel {
			return nil
		}
	}
	return fmt.Errorf("%w: minimum feature level %s", core.ErrInvalidArgument, c.MinimumFeatureLevel)
}

// Resource is anything that can be reached through a GPU virtual address
type Resource interface {
	GPUVirtualAddress() memory.GPUVirtualAddress
}

// Device is the root object every resource and descriptor heap is
// created from. It is reference counted, the last Release tears it down.
type Device struct {
	refcount int32

	instance *core.Instance
	backend  core.Backend
	adapter  core.Adapter
	handle   core.DeviceHandle

	capabilities     *core.CapabilitySet
	features         core.DeviceFeatures
	profile          core.FeatureProfile
	descriptorLimits core.DescriptorLimits
	backendHeaps     bool
	heapLayouts      []HeapLayout
	poolSizes        []core.PoolSize
	memoryTypes      []core.MemoryPropertyFlags
	luid             uint64

	queues     [core.QueueRoleCount]*Queue
	assignment core.QueueAssignment

	gpuVA       *memory.GPUVAAllocator[Resource]
	descriptors *memory.DescriptorAllocator[*DescriptorHeap]

	descriptorMutex sync.Mutex
	nextDescriptor  memory.DescriptorAddress

	private *PrivateStore
}

// Create connects to the backend and creates a device on it. The
// device holds the only reference to the instance it creates.
func Create(b core.Backend, icfg core.InstanceConfiguration, cfg Configuration) (*Device, error) {
	instance, err := core.NewInstance(b, icfg)
	if err != nil {
		return nil, err
	}
	defer instance.Release()
	return New(instance, cfg)
}

// New creates a device on an existing instance. The device takes its own
// reference on the instance, nothing is left behind when creation fails.
func New(instance *core.Instance, cfg Configuration) (*Device, error) {
	if instance == nil {
		return nil, fmt.Errorf("%w: nil instance", core.ErrInvalidArgument)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	b := instance.Backend()
	env := instance.Environment()

	adapter, err := selectAdapter(instance, cfg, env)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"adapter": adapter.Name(),
		"vendor":  fmt.Sprintf("%#x", adapter.Properties.VendorID),
		"device":  fmt.Sprintf("%#x", adapter.Properties.DeviceID),
		"type":    adapter.Properties.Type.String(),
	}).Info("creating device")

	features := b.AdapterFeatures(adapter.Handle)
	props := adapter.Properties
	core.SanitizeSparse(&features, &props.Sparse)

	caps, err := instance.NegotiateDevice(adapter, cfg.Capabilities, features)
	if err != nil {
		return nil, err
	}

	typedUAVFormats := true
	for _, f := range core.TypedUAVLoadFormats {
		if !b.StorageImageSupport(adapter.Handle, f) {
			typedUAVFormats = false
			break
		}
	}

	profile := core.DeriveFeatureProfile(core.FeatureInput{
		Limits:          props.Limits,
		Sparse:          props.Sparse,
		Features:        features,
		Capabilities:    caps,
		TypedUAVFormats: typedUAVFormats,
	})
	if profile.MaxFeatureLevel < cfg.MinimumFeatureLevel {
		log.WithFields(log.Fields{
			"requested": cfg.MinimumFeatureLevel.String(),
			"supported": profile.MaxFeatureLevel.String(),
		}).Warn("feature level is not supported")
		return nil, fmt.Errorf("%w: feature level %s not supported, maximum is %s",
			core.ErrInvalidArgument, cfg.MinimumFeatureLevel, profile.MaxFeatureLevel)
	}

	assignment, err := core.SelectQueues(adapter.QueueFamilies)
	if err != nil {
		return nil, err
	}

	enabled, backendHeaps := enabledFeatures(features, props.Limits, caps, env)

	handle, res := b.CreateDevice(adapter.Handle, core.DeviceCreateInfo{
		Queues:     assignment.Requests,
		Extensions: caps.Enabled,
		Features:   enabled,
	})
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("CreateDevice: %w", err)
	}

	d := &Device{
		refcount:         1,
		instance:         instance,
		backend:          b,
		adapter:          adapter,
		handle:           handle,
		capabilities:     caps,
		features:         enabled,
		profile:          profile,
		descriptorLimits: core.DeriveDescriptorLimits(props.Limits, backendHeaps),
		backendHeaps:     backendHeaps,
		memoryTypes:      b.MemoryTypes(adapter.Handle),
		luid:             cfg.AdapterLUID,
		assignment:       assignment,
		nextDescriptor:   targetDescriptorSize,
		private:          NewPrivateStore(),
	}
	d.poolSizes = core.VirtualHeapPoolSizes(d.descriptorLimits)
	d.createQueues()

	if err := d.createHeapLayouts(); err != nil {
		d.destroyHeapLayouts()
		b.DestroyDevice(handle)
		return nil, err
	}

	d.gpuVA = memory.NewGPUVAAllocator[Resource]()
	d.descriptors = memory.NewDescriptorAllocator[*DescriptorHeap]()

	instance.AddRef()
	log.WithFields(log.Fields{
		"featureLevel": profile.MaxFeatureLevel.String(),
		"backendHeaps": backendHeaps,
		"extensions":   len(caps.Enabled),
	}).Info("created device")
	return d, nil
}

func selectAdapter(instance *core.Instance, cfg Configuration, env core.Environment) (core.Adapter, error) {
	if cfg.Adapter != nil && !env.HasAdapterIndex {
		return *cfg.Adapter, nil
	}
	adapters, err := instance.Adapters()
	if err != nil {
		return core.Adapter{}, err
	}
	return core.SelectAdapter(adapters, env)
}

// enabledFeatures clears the features the runtime does not use and
// decides between backend and virtual descriptor heaps.
func enabledFeatures(f core.DeviceFeatures, limits core.DeviceLimits, caps *core.CapabilitySet, env core.Environment) (core.DeviceFeatures, bool) {
	f.ShaderTessellationAndGeometryPointSize = false
	f.DescriptorIndexing.StorageBufferUpdateAfterBind = false

	di := f.DescriptorIndexing
	if caps.Has(core.EXTDescriptorIndexing) &&
		(di.UniformBufferUpdateAfterBind || di.UniformTexelBufferUpdateAfterBind || di.StorageTexelBufferUpdateAfterBind) &&
		!limits.DescriptorIndexing.RobustBufferAccessUpdateAfterBind {
		log.Warn("disabling robust buffer access for update after bind descriptors")
		f.RobustBufferAccess = false
	}

	backendHeaps := caps.Has(core.EXTDescriptorIndexing) &&
		env.Flags&core.ConfigVirtualHeaps == 0 &&
		di.AllHeapBindings()
	return f, backendHeaps
}

func (d *Device) createQueues() {
	for role := core.QueueRole(0); role < core.QueueRoleCount; role++ {
		family := d.assignment.Family(role)
		var shared *Queue
		for _, q := range d.queues[:role] {
			if q != nil && q.family == family {
				shared = q
				break
			}
		}
		if shared != nil {
			d.queues[role] = shared
			continue
		}
		d.queues[role] = &Queue{
			family:     family,
			properties: d.assignment.Properties[role],
			handle:     d.backend.GetQueue(d.handle, family, 0),
		}
	}
}

// AddRef takes a reference and returns the new count
func (d *Device) AddRef() uint32 {
	return uint32(atomic.AddInt32(&d.refcount, 1))
}

// Release drops a reference. The call dropping the last one destroys
// the device in reverse order of creation: private data, descriptor
// heap layouts, allocators, queues, the backend device and finally the
// instance reference.
func (d *Device) Release() uint32 {
	refcount := atomic.AddInt32(&d.refcount, -1)
	if refcount < 0 {
		log.Error("device released more times than referenced")
		return 0
	}
	if refcount == 0 {
		d.destroy()
	}
	return uint32(refcount)
}

func (d *Device) destroy() {
	d.private.Clear()
	d.destroyHeapLayouts()
	d.gpuVA = nil
	d.descriptors = nil
	d.queues = [core.QueueRoleCount]*Queue{}
	d.backend.DestroyDevice(d.handle)
	log.WithField("adapter", d.adapter.Name()).Debug("destroyed device")
	d.instance.Release()
}

// Instance returns the instance the device was created on
func (d *Device) Instance() *core.Instance {
	return d.instance
}

// Adapter returns the adapter the device was created on
func (d *Device) Adapter() core.Adapter {
	return d.adapter
}

// Handle returns the backend device handle
func (d *Device) Handle() core.DeviceHandle {
	return d.handle
}

// Capabilities returns the negotiated device capabilities
func (d *Device) Capabilities() *core.CapabilitySet {
	return d.capabilities
}

// EnabledFeatures returns the features the backend device was created with
func (d *Device) EnabledFeatures() core.DeviceFeatures {
	return d.features
}

// Profile returns the derived feature profile
func (d *Device) Profile() core.FeatureProfile {
	return d.profile
}

// Queue returns the queue serving a role. Roles sharing a family share
// the queue.
func (d *Device) Queue(role core.QueueRole) *Queue {
	if role < 0 || role >= core.QueueRoleCount {
		return nil
	}
	return d.queues[role]
}

// QueueAssignment returns the family chosen for every role
func (d *Device) QueueAssignment() core.QueueAssignment {
	return d.assignment
}

// UsesBackendHeaps reports whether descriptor heaps map onto backend
// descriptor sets, they are emulated otherwise.
func (d *Device) UsesBackendHeaps() bool {
	return d.backendHeaps
}

// DescriptorLimits returns the descriptor limits of a single heap
func (d *Device) DescriptorLimits() core.DescriptorLimits {
	return d.descriptorLimits
}

// VirtualHeapPoolSizes returns the pool sizes used by emulated heaps
func (d *Device) VirtualHeapPoolSizes() []core.PoolSize {
	return d.poolSizes
}

// GPUVAAllocator returns the allocator resources take addresses from
func (d *Device) GPUVAAllocator() *memory.GPUVAAllocator[Resource] {
	return d.gpuVA
}

// DescriptorAllocator returns the allocator tracking descriptor heap ranges
func (d *Device) DescriptorAllocator() *memory.DescriptorAllocator[*DescriptorHeap] {
	return d.descriptors
}

// AllocateGPUVA reserves an address range for r
func (d *Device) AllocateGPUVA(alignment, size uint64, r Resource) memory.GPUVirtualAddress {
	return d.gpuVA.Allocate(alignment, size, r)
}

// ResourceFromGPUVA resolves an address to the resource owning it
func (d *Device) ResourceFromGPUVA(addr memory.GPUVirtualAddress) (Resource, bool) {
	return d.gpuVA.Dereference(addr)
}

// FreeGPUVA releases an address returned by AllocateGPUVA
func (d *Device) FreeGPUVA(addr memory.GPUVirtualAddress) {
	d.gpuVA.Free(addr)
}
