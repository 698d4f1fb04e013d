package core

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Adapter is a physical adapter with its cached, read-only properties
type Adapter struct {
	Handle        AdapterHandle
	Index         int
	Properties    AdapterProperties
	QueueFamilies []QueueFamilyProperties
}

// Name returns the adapter name as reported by the backend
func (a Adapter) Name() string {
	return a.Properties.Name
}

func enumerateAdapters(b Backend, instance InstanceHandle) ([]Adapter, error) {
	handles, res := b.EnumerateAdapters(instance)
	if err := checkResult("EnumerateAdapters", res); err != nil {
		return nil, err
	}
	adapters := make([]Adapter, len(handles))
	for i, h := range handles {
		adapters[i] = Adapter{
			Handle:        h,
			Index:         i,
			Properties:    b.AdapterProperties(h),
			QueueFamilies: b.QueueFamilies(h),
		}
	}
	return adapters, nil
}

// SelectAdapter picks the adapter a device is created on. An adapter
// index from the environment wins when it is in range, then the first
// discrete adapter, then the first integrated one, then the first
// adapter enumerated.
func SelectAdapter(adapters []Adapter, env Environment) (Adapter, error) {
	if len(adapters) == 0 {
		return Adapter{}, fmt.Errorf("%w: no adapters enumerated", ErrNoSuitableAdapter)
	}

	if env.HasAdapterIndex {
		if int(env.AdapterIndex) < len(adapters) {
			a := adapters[env.AdapterIndex]
			log.WithFields(log.Fields{"index": env.AdapterIndex, "adapter": a.Name()}).Debug("using adapter from environment")
			return a, nil
		}
		log.WithFields(log.Fields{"index": env.AdapterIndex, "count": len(adapters)}).Warn("adapter index out of range, ignoring")
	}

	var discrete, integrated *Adapter
	for i := range adapters {
		switch adapters[i].Properties.Type {
		case AdapterTypeDiscrete:
			if discrete == nil {
				discrete = &adapters[i]
			}
		case AdapterTypeIntegrated:
			if integrated == nil {
				integrated = &adapters[i]
			}
		}
	}

	selected := adapters[0]
	switch {
	case discrete != nil:
		selected = *discrete
	case integrated != nil:
		selected = *integrated
	}
	log.WithFields(log.Fields{
		"adapter": selected.Name(),
		"type":    selected.Properties.Type.String(),
	}).Debug("selected adapter")
	return selected, nil
}

// QueueRole is a logical queue category a device exposes
type QueueRole int

// Queue roles
const (
	RoleDirect QueueRole = iota
	RoleCompute
	RoleCopy

	QueueRoleCount
)

func (r QueueRole) String() string {
	switch r {
	case RoleDirect:
		return "direct"
	case RoleCompute:
		return "compute"
	case RoleCopy:
		return "copy"
	}
	return "unknown"
}

// QueueAssignment maps every queue role to a queue family
type QueueAssignment struct {
	Families   [QueueRoleCount]uint32
	Properties [QueueRoleCount]QueueFamilyProperties

	// Requests holds one request per distinct family in use
	Requests []QueueCreateRequest
}

// Family returns the family index assigned to a role
func (q QueueAssignment) Family(role QueueRole) uint32 {
	return q.Families[role]
}

// SelectQueues assigns queue families to roles. A family with graphics
// and compute is a direct candidate, compute without graphics a compute
// candidate, transfer alone (sparse binding aside) a copy candidate.
// The last candidate of each kind wins. Compute and copy fall back to the
// direct family, having no direct family is an error.
func SelectQueues(families []QueueFamilyProperties) (QueueAssignment, error) {
	const none = ^uint32(0)
	direct, compute, transfer := none, none, none

	for i, family := range families {
		flags := family.Flags
		if flags&(QueueGraphics|QueueCompute) == QueueGraphics|QueueCompute {
			direct = uint32(i)
		}
		if flags&(QueueGraphics|QueueCompute) == QueueCompute {
			compute = uint32(i)
		}
		if flags&^QueueSparseBinding == QueueTransfer {
			transfer = uint32(i)
		}
	}

	if direct == none {
		return QueueAssignment{}, fmt.Errorf("%w: no queue family with graphics and compute", ErrNoSuitableAdapter)
	}
	if compute == none {
		compute = direct
	}
	if transfer == none {
		transfer = direct
	}

	var qa QueueAssignment
	qa.Families = [QueueRoleCount]uint32{direct, compute, transfer}
	for role, family := range qa.Families {
		qa.Properties[role] = families[family]

		duplicate := false
		for _, r := range qa.Requests {
			if r.FamilyIndex == family {
				duplicate = true
				break
			}
		}
		if !duplicate {
			qa.Requests = append(qa.Requests, QueueCreateRequest{
				FamilyIndex: family,
				Priorities:  []float32{1.0},
			})
		}
	}

	log.WithFields(log.Fields{
		"direct":  direct,
		"compute": compute,
		"copy":    transfer,
	}).Debug("selected queue families")
	return qa, nil
}

// AdapterInfo describes an adapter for reports
type AdapterInfo struct {
	Index         int                     `json:"index"`
	ID            uint32                  `json:"id"`
	VendorID      uint32                  `json:"vendorID"`
	DriverVersion uint32                  `json:"driverVersion"`
	APIVersion    string                  `json:"apiVersion"`
	Name          string                  `json:"name"`
	Type          string                  `json:"type"`
	Invalid       bool                    `json:"invalid"`
	Extensions    []string                `json:"extensions"`
	QueueFamilies []QueueFamilyProperties `json:"queueFamilies"`
	MemoryTypes   []MemoryPropertyFlags   `json:"memoryTypes"`
}

// AdapterInfo collects report data of an adapter. Adapters whose
// extensions cannot be enumerated are marked invalid.
func (i *Instance) AdapterInfo(a Adapter) AdapterInfo {
	props := a.Properties
	info := AdapterInfo{
		Index:         a.Index,
		ID:            props.DeviceID,
		VendorID:      props.VendorID,
		DriverVersion: props.DriverVersion,
		APIVersion:    fmt.Sprintf("%d.%d", VersionMajor(props.APIVersion), VersionMinor(props.APIVersion)),
		Name:          props.Name,
		Type:          props.Type.String(),
		QueueFamilies: a.QueueFamilies,
		MemoryTypes:   i.backend.MemoryTypes(a.Handle),
	}
	exts, res := i.backend.DeviceExtensions(a.Handle)
	if res.Err() != nil {
		info.Invalid = true
	}
	for _, ext := range exts {
		info.Extensions = append(info.Extensions, ext.Name)
	}
	return info
}
