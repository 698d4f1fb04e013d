package core

import (
	"testing"
	"unsafe"

	vk "github.com/devblok/vulkan"
	qt "github.com/frankban/quicktest"
)

func newHandleTables() *VulkanBackend {
	return &VulkanBackend{
		instances: map[InstanceHandle]vk.Instance{},
		adapters:  map[AdapterHandle]vulkanAdapter{},
		devices:   map[DeviceHandle]vk.Device{},
		queues:    map[QueueHandle]vulkanQueue{},
		layouts:   map[LayoutHandle]vk.DescriptorSetLayout{},
	}
}

func TestVulkanAdapterHandles(t *testing.T) {
	c := qt.New(t)
	v := newHandleTables()

	var slots [3]byte
	physical := []vk.PhysicalDevice{
		vk.PhysicalDevice(unsafe.Pointer(&slots[0])),
		vk.PhysicalDevice(unsafe.Pointer(&slots[1])),
	}

	first := v.registerAdapters(1, physical)
	c.Assert(first, qt.HasLen, 2)
	c.Assert(v.registerAdapters(1, physical), qt.DeepEquals, first)
	c.Assert(v.adapters, qt.HasLen, 2)
	c.Assert(v.adapter(first[1]), qt.Equals, physical[1])

	other := v.registerAdapters(2, []vk.PhysicalDevice{vk.PhysicalDevice(unsafe.Pointer(&slots[2]))})
	c.Assert(v.adapters, qt.HasLen, 3)

	// Destroying an instance without a live vk.Instance only drops its tables.
	v.DestroyInstance(1)
	c.Assert(v.adapters, qt.HasLen, 1)
	_, ok := v.adapters[other[0]]
	c.Assert(ok, qt.IsTrue)
}

func TestVulkanQueueHandles(t *testing.T) {
	c := qt.New(t)
	v := newHandleTables()

	var slots [2]byte
	direct := vk.Queue(unsafe.Pointer(&slots[0]))
	copyQueue := vk.Queue(unsafe.Pointer(&slots[1]))

	qh := v.registerQueue(1, direct)
	c.Assert(v.registerQueue(1, direct), qt.Equals, qh)
	v.registerQueue(1, copyQueue)
	v.registerQueue(2, direct)
	c.Assert(v.queues, qt.HasLen, 3)

	v.DestroyDevice(1)
	c.Assert(v.queues, qt.HasLen, 1)
	for _, q := range v.queues {
		c.Assert(q.device, qt.Equals, DeviceHandle(2))
	}
}
