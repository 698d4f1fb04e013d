// Package profile replays captured adapter descriptions as a backend.
// Profiles are plain JSON documents, they can be captured from any
// backend and replayed wherever no driver is present.
package profile

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/devblok/d3d12vk/core"
)

// Profile describes everything a backend reports
type Profile struct {
	Name               string                     `json:"name"`
	InstanceExtensions []core.ExtensionProperties `json:"instanceExtensions"`
	Adapters           []Adapter                  `json:"adapters"`
}

// Adapter is the captured description of a single adapter
type Adapter struct {
	Properties     core.AdapterProperties       `json:"properties"`
	Features       core.DeviceFeatures          `json:"features"`
	QueueFamilies  []core.QueueFamilyProperties `json:"queueFamilies"`
	MemoryTypes    []core.MemoryPropertyFlags   `json:"memoryTypes"`
	Extensions     []core.ExtensionProperties   `json:"extensions"`
	StorageFormats []core.Format                `json:"storageFormats"`
}

// Load decodes a profile
func Load(r io.Reader) (Profile, error) {
	var p Profile
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("decoding profile: %w", err)
	}
	return p, nil
}

// Save encodes a profile
func (p Profile) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

// Capture records every adapter the backend enumerates
func Capture(b core.Backend, name string) (Profile, error) {
	p := Profile{Name: name}

	exts, res := b.InstanceExtensions()
	if err := res.Err(); err != nil {
		return Profile{}, fmt.Errorf("InstanceExtensions: %w", err)
	}
	p.InstanceExtensions = exts

	instance, res := b.CreateInstance(core.DefaultApplicationInfo, nil, nil)
	if err := res.Err(); err != nil {
		return Profile{}, fmt.Errorf("CreateInstance: %w", err)
	}
	defer b.DestroyInstance(instance)

	handles, res := b.EnumerateAdapters(instance)
	if err := res.Err(); err != nil {
		return Profile{}, fmt.Errorf("EnumerateAdapters: %w", err)
	}
	for _, h := range handles {
		a, err := CaptureAdapter(b, h)
		if err != nil {
			return Profile{}, err
		}
		p.Adapters = append(p.Adapters, a)
	}
	return p, nil
}

// CaptureAdapter records a single adapter
func CaptureAdapter(b core.Backend, h core.AdapterHandle) (Adapter, error) {
	exts, res := b.DeviceExtensions(h)
	if err := res.Err(); err != nil {
		return Adapter{}, fmt.Errorf("DeviceExtensions: %w", err)
	}
	a := Adapter{
		Properties:    b.AdapterProperties(h),
		Features:      b.AdapterFeatures(h),
		QueueFamilies: b.QueueFamilies(h),
		MemoryTypes:   b.MemoryTypes(h),
		Extensions:    exts,
	}
	for _, f := range core.TypedUAVLoadFormats {
		if b.StorageImageSupport(h, f) {
			a.StorageFormats = append(a.StorageFormats, f)
		}
	}
	return a, nil
}

// Backend replays a profile. Objects it creates are bookkeeping
// entries only, which lets tests check that everything was destroyed.
type Backend struct {
	profile Profile

	// Fail makes the named call return the given result
	Fail map[string]core.Result

	mutex      sync.Mutex
	lastHandle uint64
	instances  map[core.InstanceHandle]bool
	adapters   map[core.AdapterHandle]int
	devices    map[core.DeviceHandle]core.DeviceCreateInfo
	layouts    map[core.LayoutHandle]core.DescriptorSetLayoutInfo
	queues     map[core.QueueHandle][2]uint32

	// DestroyOrder records destroy calls in the order they happened
	DestroyOrder []string
}

// New creates a backend replaying p
func New(p Profile) *Backend {
	return &Backend{
		profile:   p,
		Fail:      map[string]core.Result{},
		instances: map[core.InstanceHandle]bool{},
		adapters:  map[core.AdapterHandle]int{},
		devices:   map[core.DeviceHandle]core.DeviceCreateInfo{},
		layouts:   map[core.LayoutHandle]core.DescriptorSetLayoutInfo{},
		queues:    map[core.QueueHandle][2]uint32{},
	}
}

var _ core.Backend = (*Backend)(nil)

func (b *Backend) next() uint64 {
	b.lastHandle++
	return b.lastHandle
}

func (b *Backend) failure(call string) core.Result {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if res, ok := b.Fail[call]; ok {
		return res
	}
	return core.Success
}

func (b *Backend) adapter(h core.AdapterHandle) *Adapter {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	idx, ok := b.adapters[h]
	if !ok {
		return &Adapter{}
	}
	return &b.profile.Adapters[idx]
}

// Name implements core.Backend
func (b *Backend) Name() string {
	if b.profile.Name == "" {
		return "profile"
	}
	return "profile:" + b.profile.Name
}

// InstanceExtensions implements core.Backend
func (b *Backend) InstanceExtensions() ([]core.ExtensionProperties, core.Result) {
	if res := b.failure("InstanceExtensions"); res != core.Success {
		return nil, res
	}
	return b.profile.InstanceExtensions, core.Success
}

// CreateInstance implements core.Backend. Extensions that the profile
// does not list make creation fail, as a driver would.
func (b *Backend) CreateInstance(app core.ApplicationInfo, extensions []string, layers []string) (core.InstanceHandle, core.Result) {
	if res := b.failure("CreateInstance"); res != core.Success {
		return 0, res
	}
	for _, name := range extensions {
		if !hasExtension(b.profile.InstanceExtensions, name) {
			return 0, core.ErrorExtensionNotPresent
		}
	}
	if len(layers) > 0 {
		return 0, core.ErrorLayerNotPresent
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	h := core.InstanceHandle(b.next())
	b.instances[h] = true
	return h, core.Success
}

// DestroyInstance implements core.Backend
func (b *Backend) DestroyInstance(h core.InstanceHandle) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	delete(b.instances, h)
	b.DestroyOrder = append(b.DestroyOrder, "instance")
}

// EnumerateAdapters implements core.Backend
func (b *Backend) EnumerateAdapters(h core.InstanceHandle) ([]core.AdapterHandle, core.Result) {
	if res := b.failure("EnumerateAdapters"); res != core.Success {
		return nil, res
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if !b.instances[h] {
		return nil, core.ErrorInitializationFailed
	}
	handles := make([]core.AdapterHandle, len(b.profile.Adapters))
	for i := range b.profile.Adapters {
		ah := core.AdapterHandle(b.next())
		b.adapters[ah] = i
		handles[i] = ah
	}
	return handles, core.Success
}

// AdapterProperties implements core.Backend
func (b *Backend) AdapterProperties(h core.AdapterHandle) core.AdapterProperties {
	return b.adapter(h).Properties
}

// AdapterFeatures implements core.Backend
func (b *Backend) AdapterFeatures(h core.AdapterHandle) core.DeviceFeatures {
	return b.adapter(h).Features
}

// QueueFamilies implements core.Backend
func (b *Backend) QueueFamilies(h core.AdapterHandle) []core.QueueFamilyProperties {
	return b.adapter(h).QueueFamilies
}

// MemoryTypes implements core.Backend
func (b *Backend) MemoryTypes(h core.AdapterHandle) []core.MemoryPropertyFlags {
	return b.adapter(h).MemoryTypes
}

// DeviceExtensions implements core.Backend
func (b *Backend) DeviceExtensions(h core.AdapterHandle) ([]core.ExtensionProperties, core.Result) {
	if res := b.failure("DeviceExtensions"); res != core.Success {
		return nil, res
	}
	return b.adapter(h).Extensions, core.Success
}

// StorageImageSupport implements core.Backend
func (b *Backend) StorageImageSupport(h core.AdapterHandle, format core.Format) bool {
	for _, f := range b.adapter(h).StorageFormats {
		if f == format {
			return true
		}
	}
	return false
}

// CreateDevice implements core.Backend
func (b *Backend) CreateDevice(h core.AdapterHandle, info core.DeviceCreateInfo) (core.DeviceHandle, core.Result) {
	if res := b.failure("CreateDevice"); res != core.Success {
		return 0, res
	}
	a := b.adapter(h)
	for _, name := range info.Extensions {
		if !hasExtension(a.Extensions, name) {
			return 0, core.ErrorExtensionNotPresent
		}
	}
	for _, q := range info.Queues {
		if int(q.FamilyIndex) >= len(a.QueueFamilies) {
			return 0, core.ErrorInitializationFailed
		}
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	dh := core.DeviceHandle(b.next())
	b.devices[dh] = info
	return dh, core.Success
}

// DestroyDevice implements core.Backend
func (b *Backend) DestroyDevice(h core.DeviceHandle) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	delete(b.devices, h)
	b.DestroyOrder = append(b.DestroyOrder, "device")
}

// GetQueue implements core.Backend
func (b *Backend) GetQueue(h core.DeviceHandle, family, index uint32) core.QueueHandle {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	qh := core.QueueHandle(b.next())
	b.queues[qh] = [2]uint32{family, index}
	return qh
}

// CreateDescriptorSetLayout implements core.Backend
func (b *Backend) CreateDescriptorSetLayout(h core.DeviceHandle, info core.DescriptorSetLayoutInfo) (core.LayoutHandle, core.Result) {
	if res := b.failure("CreateDescriptorSetLayout"); res != core.Success {
		return 0, res
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if _, ok := b.devices[h]; !ok {
		return 0, core.ErrorDeviceLost
	}
	lh := core.LayoutHandle(b.next())
	b.layouts[lh] = info
	return lh, core.Success
}

// DestroyDescriptorSetLayout implements core.Backend
func (b *Backend) DestroyDescriptorSetLayout(h core.DeviceHandle, l core.LayoutHandle) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	delete(b.layouts, l)
	b.DestroyOrder = append(b.DestroyOrder, "layout")
}

// LiveObjects counts instances, devices and layouts not yet destroyed
func (b *Backend) LiveObjects() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.instances) + len(b.devices) + len(b.layouts)
}

// CreatedDevice returns the create info of a live device
func (b *Backend) CreatedDevice(h core.DeviceHandle) (core.DeviceCreateInfo, bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	info, ok := b.devices[h]
	return info, ok
}

func hasExtension(list []core.ExtensionProperties, name string) bool {
	for _, ext := range list {
		if ext.Name == name {
			return true
		}
	}
	return false
}
