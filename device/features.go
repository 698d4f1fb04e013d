package device

import (
	"fmt"

	"github.com/devblok/d3d12vk/core"
	log "github.com/sirupsen/logrus"
)

// ShaderModel is encoded as major << 4 | minor
type ShaderModel uint32

// Shader models
const (
	ShaderModel5_1 ShaderModel = 0x51
	ShaderModel6_0 ShaderModel = 0x60
)

func (m ShaderModel) String() string {
	return fmt.Sprintf("%d.%d", m>>4, m&0xf)
}

// RootSignatureVersion is a root signature serialization version
type RootSignatureVersion uint32

// Root signature versions
const (
	RootSignatureVersion1_0 RootSignatureVersion = 0x1
	RootSignatureVersion1_1 RootSignatureVersion = 0x2
)

func (v RootSignatureVersion) String() string {
	switch v {
	case RootSignatureVersion1_0:
		return "1.0"
	case RootSignatureVersion1_1:
		return "1.1"
	}
	return fmt.Sprintf("root signature version(%d)", uint32(v))
}

// GPUVirtualAddressSupport reports the addressable bits
type GPUVirtualAddressSupport struct {
	MaxBitsPerResource uint32
	MaxBitsPerProcess  uint32
}

// Architecture describes the memory architecture of a node
type Architecture struct {
	NodeIndex         uint32
	TileBasedRenderer bool
	UMA               bool
	CacheCoherentUMA  bool
}

// CommandListType selects the queue kind for a priority query
type CommandListType int

// Command list types
const (
	CommandListDirect CommandListType = iota
	CommandListBundle
	CommandListCompute
	CommandListCopy
)

// Command queue priorities
const (
	QueuePriorityNormal = 0
	QueuePriorityHigh   = 100
)

// FeatureLevel returns the highest requested level the device
// supports. Requesting nothing is an error.
func (d *Device) FeatureLevel(requested []core.FeatureLevel) (core.FeatureLevel, error) {
	if len(requested) == 0 {
		return core.FeatureLevelNone, fmt.Errorf("%w: no feature levels requested", core.ErrInvalidArgument)
	}
	best := core.FeatureLevelNone
	for _, l := range requested {
		if l <= d.profile.MaxFeatureLevel && l > best {
			best = l
		}
	}
	log.WithFields(log.Fields{
		"requested": len(requested),
		"max":       best.String(),
	}).Debug("queried feature levels")
	return best, nil
}

// MaxFeatureLevel returns the highest level the device reaches
func (d *Device) MaxFeatureLevel() core.FeatureLevel {
	return d.profile.MaxFeatureLevel
}

// Options returns the derived option set
func (d *Device) Options() core.Options {
	return d.profile.Options
}

// UnmetRequirements lists why the next feature level was not reached
func (d *Device) UnmetRequirements() []core.Requirement {
	return d.profile.Unmet
}

// GPUVirtualAddressSupport reports the GPU virtual address bits
func (d *Device) GPUVirtualAddressSupport() GPUVirtualAddressSupport {
	return GPUVirtualAddressSupport{
		MaxBitsPerResource: core.MaxGPUVirtualAddressBitsPerResource,
		MaxBitsPerProcess:  core.MaxGPUVirtualAddressBitsPerResource,
	}
}

// Architecture reports the memory architecture of a node. An adapter is
// UMA when every memory type is host visible, cache coherent when they
// are all coherent too.
func (d *Device) Architecture(node uint32) (Architecture, error) {
	if node != 0 {
		return Architecture{}, fmt.Errorf("%w: node %d", core.ErrInvalidArgument, node)
	}
	arch := Architecture{
		NodeIndex:        node,
		UMA:              len(d.memoryTypes) > 0,
		CacheCoherentUMA: len(d.memoryTypes) > 0,
	}
	for _, flags := range d.memoryTypes {
		if flags&core.MemoryHostVisible == 0 {
			arch.UMA = false
		}
		if flags&(core.MemoryHostVisible|core.MemoryHostCoherent) != core.MemoryHostVisible|core.MemoryHostCoherent {
			arch.CacheCoherentUMA = false
		}
	}
	arch.CacheCoherentUMA = arch.UMA && arch.CacheCoherentUMA
	return arch, nil
}

// ShaderModel returns the highest shader model up to requested
func (d *Device) ShaderModel(requested ShaderModel) ShaderModel {
	if requested < ShaderModel5_1 {
		return requested
	}
	return ShaderModel5_1
}

// RootSignatureVersion returns the highest version up to requested.
// Clients targeting a runtime before 1.2 only get 1.0.
func (d *Device) RootSignatureVersion(requested RootSignatureVersion) RootSignatureVersion {
	v := requested
	if v > RootSignatureVersion1_1 {
		v = RootSignatureVersion1_1
	}
	if d.instance.RuntimeVersion() < core.RuntimeVersion1_2 {
		v = RootSignatureVersion1_0
	}
	return v
}

// CommandQueuePrioritySupported reports whether queues of a type can be
// created with a priority. Only normal priority is available.
func (d *Device) CommandQueuePrioritySupported(t CommandListType, priority int) (bool, error) {
	switch t {
	case CommandListDirect, CommandListCompute, CommandListCopy:
	default:
		return false, fmt.Errorf("%w: command list type %d", core.ErrInvalidArgument, int(t))
	}
	return priority == QueuePriorityNormal, nil
}

// NodeCount is always one, linked adapters are not exposed
func (d *Device) NodeCount() uint32 {
	return 1
}

// AdapterLUID returns the identifier the device was configured with
func (d *Device) AdapterLUID() uint64 {
	return d.luid
}
