package core

import (
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
)

// Capability identifies a backend extension the runtime reacts to
type Capability int

// Instance capabilities
const (
	KHRGetPhysicalDeviceProperties2 Capability = iota
	EXTDebugReport

	// Device capabilities
	KHRMaintenance1
	KHRShaderDrawParameters
	KHRDedicatedAllocation
	KHRDrawIndirectCount
	KHRGetMemoryRequirements2
	KHRImageFormatList
	KHRMaintenance3
	KHRPushDescriptor
	KHRSamplerMirrorClampToEdge
	KHRTimelineSemaphore
	EXTCalibratedTimestamps
	EXTConditionalRendering
	EXTDebugMarker
	EXTDepthClipEnable
	EXTDescriptorIndexing
	EXTFragmentShaderInterlock
	EXTConservativeRasterization
	EXTRobustness2
	EXTShaderDemoteToHelperInvocation
	EXTShaderStencilExport
	EXTTexelBufferAlignment
	EXTTransformFeedback
	EXTVertexAttributeDivisor

	capabilityCount
)

var capabilityNames = [capabilityCount]string{
	KHRGetPhysicalDeviceProperties2:   "VK_KHR_get_physical_device_properties2",
	EXTDebugReport:                    "VK_EXT_debug_report",
	KHRMaintenance1:                   "VK_KHR_maintenance1",
	KHRShaderDrawParameters:           "VK_KHR_shader_draw_parameters",
	KHRDedicatedAllocation:            "VK_KHR_dedicated_allocation",
	KHRDrawIndirectCount:              "VK_KHR_draw_indirect_count",
	KHRGetMemoryRequirements2:         "VK_KHR_get_memory_requirements2",
	KHRImageFormatList:                "VK_KHR_image_format_list",
	KHRMaintenance3:                   "VK_KHR_maintenance3",
	KHRPushDescriptor:                 "VK_KHR_push_descriptor",
	KHRSamplerMirrorClampToEdge:       "VK_KHR_sampler_mirror_clamp_to_edge",
	KHRTimelineSemaphore:              "VK_KHR_timeline_semaphore",
	EXTCalibratedTimestamps:           "VK_EXT_calibrated_timestamps",
	EXTConditionalRendering:           "VK_EXT_conditional_rendering",
	EXTDebugMarker:                    "VK_EXT_debug_marker",
	EXTDepthClipEnable:                "VK_EXT_depth_clip_enable",
	EXTDescriptorIndexing:             "VK_EXT_descriptor_indexing",
	EXTFragmentShaderInterlock:        "VK_EXT_fragment_shader_interlock",
	EXTConservativeRasterization:      "VK_EXT_conservative_rasterization",
	EXTRobustness2:                    "VK_EXT_robustness2",
	EXTShaderDemoteToHelperInvocation: "VK_EXT_shader_demote_to_helper_invocation",
	EXTShaderStencilExport:            "VK_EXT_shader_stencil_export",
	EXTTexelBufferAlignment:           "VK_EXT_texel_buffer_alignment",
	EXTTransformFeedback:              "VK_EXT_transform_feedback",
	EXTVertexAttributeDivisor:         "VK_EXT_vertex_attribute_divisor",
}

func (c Capability) String() string {
	if c >= 0 && c < capabilityCount {
		return capabilityNames[c]
	}
	return fmt.Sprintf("capability(%d)", int(c))
}

// CapabilityInfo is one entry of a capability table
type CapabilityInfo struct {
	Capability Capability
	DebugOnly  bool
}

// CapabilityTable lists what a negotiator asks the backend for. Required
// entries must be available, optional entries are enabled when they are.
type CapabilityTable struct {
	Required []Capability
	Optional []CapabilityInfo
}

// InstanceCapabilityTable returns the table negotiated for instances
func InstanceCapabilityTable() CapabilityTable {
	return CapabilityTable{
		Optional: []CapabilityInfo{
			{Capability: KHRGetPhysicalDeviceProperties2},
			{Capability: EXTDebugReport, DebugOnly: true},
		},
	}
}

// DeviceCapabilityTable returns the table negotiated for devices
func DeviceCapabilityTable() CapabilityTable {
	return CapabilityTable{
		Required: []Capability{
			KHRMaintenance1,
			KHRShaderDrawParameters,
		},
		Optional: []CapabilityInfo{
			{Capability: KHRDedicatedAllocation},
			{Capability: KHRDrawIndirectCount},
			{Capability: KHRGetMemoryRequirements2},
			{Capability: KHRImageFormatList},
			{Capability: KHRMaintenance3},
			{Capability: KHRPushDescriptor},
			{Capability: KHRSamplerMirrorClampToEdge},
			{Capability: KHRTimelineSemaphore},
			{Capability: EXTCalibratedTimestamps},
			{Capability: EXTConditionalRendering},
			{Capability: EXTDebugMarker, DebugOnly: true},
			{Capability: EXTDepthClipEnable},
			{Capability: EXTDescriptorIndexing},
			{Capability: EXTFragmentShaderInterlock},
			{Capability: EXTConservativeRasterization},
			{Capability: EXTRobustness2},
			{Capability: EXTShaderDemoteToHelperInvocation},
			{Capability: EXTShaderStencilExport},
			{Capability: EXTTexelBufferAlignment},
			{Capability: EXTTransformFeedback},
			{Capability: EXTVertexAttributeDivisor},
		},
	}
}

// CapabilityState records how a single capability name was negotiated
type CapabilityState struct {
	Name      string `json:"name"`
	Requested bool   `json:"requested"`
	Available bool   `json:"available"`
	Enabled   bool   `json:"enabled"`
	DebugOnly bool   `json:"debugOnly"`
	Required  bool   `json:"required"`
}

// CapabilityRequest carries the caller supplied capability names
type CapabilityRequest struct {
	Required []string
	Optional []string
}

// Negotiator intersects a capability table and a request with what the
// backend offers. It holds no backend state and creates no objects.
type Negotiator struct {
	table CapabilityTable
	debug bool
	env   Environment
	kind  string
}

// NewNegotiator creates a negotiator. kind names the capability level
// ("instance", "device") in diagnostics.
func NewNegotiator(kind string, table CapabilityTable, debug bool, env Environment) *Negotiator {
	return &Negotiator{
		table: table,
		debug: debug,
		env:   env,
		kind:  kind,
	}
}

// CapabilitySet is the outcome of a negotiation
type CapabilitySet struct {
	// Enabled is the de-duplicated list handed to backend object creation
	Enabled []string

	// OptionalSupported has one entry per optional name of the request
	OptionalSupported []bool

	states   map[string]*CapabilityState
	enabled  [capabilityCount]bool
	specs    map[string]uint32
	optional []string
}

// Has reports whether a known capability ended up enabled
func (s *CapabilitySet) Has(c Capability) bool {
	if s == nil || c < 0 || c >= capabilityCount {
		return false
	}
	return s.enabled[c]
}

// SpecVersion returns the backend version of an enabled capability
func (s *CapabilitySet) SpecVersion(c Capability) uint32 {
	if !s.Has(c) {
		return 0
	}
	return s.specs[c.String()]
}

// State returns the negotiation record of a capability name
func (s *CapabilitySet) State(name string) (CapabilityState, bool) {
	st, ok := s.states[name]
	if !ok {
		return CapabilityState{}, false
	}
	return *st, true
}

// States returns every negotiation record sorted by name
func (s *CapabilitySet) States() []CapabilityState {
	states := make([]CapabilityState, 0, len(s.states))
	for _, st := range s.states {
		states = append(states, *st)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Name < states[j].Name })
	return states
}

// Disable demotes an enabled optional capability, for example when the
// feature it exposes turned out to be missing.
func (s *CapabilitySet) Disable(c Capability) {
	if !s.Has(c) {
		return
	}
	name := c.String()
	s.enabled[c] = false
	if st, ok := s.states[name]; ok {
		st.Enabled = false
	}
	for i, e := range s.Enabled {
		if e == name {
			s.Enabled = append(s.Enabled[:i], s.Enabled[i+1:]...)
			break
		}
	}
	for i, o := range s.optional {
		if o == name {
			s.OptionalSupported[i] = false
		}
	}
}

// inherit copies the enabled capabilities of a parent set, a device
// keeps the capabilities its instance was created with.
func (s *CapabilitySet) inherit(parent *CapabilitySet) {
	if parent == nil {
		return
	}
	for c := Capability(0); c < capabilityCount; c++ {
		if parent.enabled[c] {
			s.enabled[c] = true
			s.specs[c.String()] = parent.specs[c.String()]
		}
	}
}

// debugOnly reports whether the table marks name as a debug-only capability
func (n *Negotiator) debugOnly(name string) bool {
	for _, info := range n.table.Optional {
		if info.DebugOnly && info.Capability.String() == name {
			return true
		}
	}
	return false
}

// Negotiate builds the capability set. A required capability or a
// required request name missing from available fails with
// ErrUnsupportedCapability after every missing name has been logged.
func (n *Negotiator) Negotiate(available []ExtensionProperties, req CapabilityRequest) (*CapabilitySet, error) {
	offered := make(map[string]uint32, len(available))
	for _, ext := range available {
		offered[ext.Name] = ext.SpecVersion
	}

	set := &CapabilitySet{
		states: map[string]*CapabilityState{},
		specs:  map[string]uint32{},
	}

	has := func(name string) bool {
		if _, ok := offered[name]; !ok {
			return false
		}
		if n.env.ExtensionDisabled(name) {
			log.WithFields(log.Fields{"capability": name, "kind": n.kind}).Warn("capability disabled by environment")
			return false
		}
		return true
	}
	state := func(name string) *CapabilityState {
		st, ok := set.states[name]
		if !ok {
			st = &CapabilityState{Name: name}
			set.states[name] = st
		}
		return st
	}
	enable := func(name string) {
		set.Enabled = appendUnique(set.Enabled, name)
		set.specs[name] = offered[name]
		state(name).Enabled = true
	}

	var missing []string
	for _, c := range n.table.Required {
		name := c.String()
		st := state(name)
		st.Requested, st.Required = true, true
		if st.Available = has(name); !st.Available {
			log.WithFields(log.Fields{"capability": name, "kind": n.kind}).Error("required capability is not supported")
			missing = append(missing, name)
			continue
		}
		set.enabled[c] = true
		enable(name)
	}

	for _, info := range n.table.Optional {
		name := info.Capability.String()
		st := state(name)
		st.DebugOnly = info.DebugOnly
		if info.DebugOnly && !n.debug {
			log.WithFields(log.Fields{"capability": name}).Trace("skipping debug-only capability")
			continue
		}
		st.Requested = true
		if st.Available = has(name); st.Available {
			log.WithFields(log.Fields{"capability": name}).Trace("found capability")
			set.enabled[info.Capability] = true
			enable(name)
		}
	}

	for _, name := range req.Required {
		st := state(name)
		st.Requested, st.Required = true, true
		if n.debugOnly(name) && !n.debug {
			st.DebugOnly = true
			log.WithFields(log.Fields{"capability": name, "kind": n.kind}).Error("required user capability is debug-only")
			missing = append(missing, name)
			continue
		}
		if st.Available = has(name); !st.Available {
			log.WithFields(log.Fields{"capability": name, "kind": n.kind}).Error("required user capability is not supported")
			missing = append(missing, name)
			continue
		}
		enable(name)
	}

	set.optional = req.Optional
	set.OptionalSupported = make([]bool, len(req.Optional))
	for i, name := range req.Optional {
		st := state(name)
		if n.debugOnly(name) && !n.debug {
			log.WithFields(log.Fields{"capability": name}).Trace("skipping debug-only capability")
			continue
		}
		st.Requested = true
		if st.Available = has(name); !st.Available {
			log.WithFields(log.Fields{"capability": name, "kind": n.kind}).Warn("optional user capability is not supported")
			continue
		}
		set.OptionalSupported[i] = true
		enable(name)
	}

	for name := range set.states {
		if c, ok := lookupCapability(name); ok && set.states[name].Enabled {
			set.enabled[c] = true
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s capabilities %v", ErrUnsupportedCapability, n.kind, missing)
	}
	return set, nil
}

func lookupCapability(name string) (Capability, bool) {
	for c := Capability(0); c < capabilityCount; c++ {
		if capabilityNames[c] == name {
			return c, true
		}
	}
	return 0, false
}
