package core

import (
	"fmt"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Instance is the connection to the backend. It is reference counted,
// the backend instance is destroyed when the last reference is released.
type Instance struct {
	refcount int32

	backend Backend
	handle  InstanceHandle

	configuration InstanceConfiguration
	application   ApplicationInfo
	capabilities  *CapabilitySet
	debug         bool
}

// NewInstance negotiates instance capabilities and connects to the
// backend. The returned instance holds one reference.
func NewInstance(b Backend, cfg InstanceConfiguration) (*Instance, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil backend", ErrInvalidArgument)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	debug := cfg.DebugMode || cfg.Environment.Flags&ConfigVulkanDebug != 0

	available, res := b.InstanceExtensions()
	if err := checkResult("InstanceExtensions", res); err != nil {
		return nil, err
	}

	negotiator := NewNegotiator("instance", InstanceCapabilityTable(), debug, cfg.Environment)
	caps, err := negotiator.Negotiate(available, CapabilityRequest{
		Required: cfg.Extensions,
		Optional: cfg.OptionalExtensions,
	})
	if err != nil {
		return nil, err
	}

	app := cfg.applicationInfo()
	handle, res := b.CreateInstance(app, caps.Enabled, cfg.Layers)
	if err := checkResult("CreateInstance", res); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"backend":    b.Name(),
		"extensions": caps.Enabled,
		"debug":      debug,
	}).Debug("created instance")

	return &Instance{
		refcount:      1,
		backend:       b,
		handle:        handle,
		configuration: cfg,
		application:   app,
		capabilities:  caps,
		debug:         debug,
	}, nil
}

// AddRef takes a reference and returns the new count
func (i *Instance) AddRef() uint32 {
	return uint32(atomic.AddInt32(&i.refcount, 1))
}

// Release drops a reference and returns the new count. The backend
// instance is destroyed by the call that drops the last reference.
func (i *Instance) Release() uint32 {
	refcount := atomic.AddInt32(&i.refcount, -1)
	if refcount < 0 {
		log.Error("instance released more times than referenced")
		return 0
	}
	if refcount == 0 {
		i.backend.DestroyInstance(i.handle)
		log.Debug("destroyed instance")
	}
	return uint32(refcount)
}

// Backend returns the backend the instance is connected to
func (i *Instance) Backend() Backend {
	return i.backend
}

// Handle returns the backend instance handle
func (i *Instance) Handle() InstanceHandle {
	return i.handle
}

// Capabilities returns the negotiated instance capabilities
func (i *Instance) Capabilities() *CapabilitySet {
	return i.capabilities
}

// Application returns the application record sent to the backend
func (i *Instance) Application() ApplicationInfo {
	return i.application
}

// APIVersion is the backend API version the instance was created for
func (i *Instance) APIVersion() uint32 {
	return i.application.APIVersion
}

// RuntimeVersion is the runtime interface version the client targets
func (i *Instance) RuntimeVersion() uint32 {
	if i.configuration.RuntimeVersion == 0 {
		return CurrentRuntimeVersion
	}
	return i.configuration.RuntimeVersion
}

// Environment returns the overrides the instance was configured with
func (i *Instance) Environment() Environment {
	return i.configuration.Environment
}

// DebugEnabled reports whether debug-only capabilities are negotiated
func (i *Instance) DebugEnabled() bool {
	return i.debug
}

// Adapters enumerates the physical adapters of the instance
func (i *Instance) Adapters() ([]Adapter, error) {
	return enumerateAdapters(i.backend, i.handle)
}

// NegotiateDevice runs device capability negotiation against an
// adapter. Optional capabilities whose features turn out to be missing
// are demoted afterwards.
func (i *Instance) NegotiateDevice(a Adapter, cfg DeviceConfiguration, features DeviceFeatures) (*CapabilitySet, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	available, res := i.backend.DeviceExtensions(a.Handle)
	if err := checkResult("DeviceExtensions", res); err != nil {
		return nil, err
	}

	negotiator := NewNegotiator("device", DeviceCapabilityTable(), i.debug, i.configuration.Environment)
	caps, err := negotiator.Negotiate(available, CapabilityRequest{
		Required: cfg.Extensions,
		Optional: cfg.OptionalExtensions,
	})
	if err != nil {
		return nil, err
	}
	caps.inherit(i.capabilities)
	demoteByFeatures(caps, features)
	return caps, nil
}

func demoteByFeatures(caps *CapabilitySet, f DeviceFeatures) {
	for _, d := range []struct {
		capability Capability
		supported  bool
	}{
		{EXTConditionalRendering, f.ConditionalRendering},
		{EXTDepthClipEnable, f.DepthClipEnable},
		{EXTRobustness2, f.NullDescriptor},
		{EXTShaderDemoteToHelperInvocation, f.ShaderDemoteToHelperInvocation},
		{EXTTexelBufferAlignment, f.TexelBufferAlignment},
		{KHRTimelineSemaphore, f.TimelineSemaphore},
		{EXTFragmentShaderInterlock, f.FragmentShaderPixelInterlock},
	} {
		if caps.Has(d.capability) && !d.supported {
			log.WithField("capability", d.capability.String()).Debug("disabling capability, feature not supported")
			caps.Disable(d.capability)
		}
	}

	if caps.SpecVersion(EXTVertexAttributeDivisor) >= 3 && !f.VertexAttributeInstanceRateDivisor {
		log.WithField("capability", EXTVertexAttributeDivisor.String()).Debug("disabling capability, feature not supported")
		caps.Disable(EXTVertexAttributeDivisor)
	}
}
