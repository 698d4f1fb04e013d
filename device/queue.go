package device

import "github.com/devblok/d3d12vk/core"

// Queue is a backend queue serving one or more queue roles
type Queue struct {
	family     uint32
	properties core.QueueFamilyProperties
	handle     core.QueueHandle
}

// Family returns the queue family index
func (q *Queue) Family() uint32 {
	return q.family
}

// Properties returns the properties of the queue family
func (q *Queue) Properties() core.QueueFamilyProperties {
	return q.properties
}

// Handle returns the backend queue handle
func (q *Queue) Handle() core.QueueHandle {
	return q.handle
}

// TimestampValidBits is zero when the queue cannot write timestamps
func (q *Queue) TimestampValidBits() uint32 {
	return q.properties.TimestampValidBits
}
