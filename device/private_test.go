package device_test

import (
	"errors"
	"testing"

	"github.com/devblok/d3d12vk/core"
	"github.com/devblok/d3d12vk/core/profile"
	"github.com/devblok/d3d12vk/device"
	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
)

type counted struct {
	refs uint32
}

func (o *counted) AddRef() uint32  { o.refs++; return o.refs }
func (o *counted) Release() uint32 { o.refs--; return o.refs }

func TestPrivateData(t *testing.T) {
	c := qt.New(t)
	s := device.NewPrivateStore()
	key := uuid.New()

	_, err := s.Get(key)
	c.Assert(errors.Is(err, device.ErrPrivateDataNotFound), qt.IsTrue)

	data := []byte("payload")
	s.Set(key, data)
	data[0] = 'x'
	got, err := s.Get(key)
	c.Assert(err, qt.IsNil)
	c.Assert(string(got), qt.Equals, "payload")

	s.Set(key, nil)
	c.Assert(s.Len(), qt.Equals, 0)
}

func TestPrivateDataInterface(t *testing.T) {
	c := qt.New(t)
	s := device.NewPrivateStore()
	key := uuid.New()
	obj := &counted{refs: 1}

	s.SetInterface(key, obj)
	c.Assert(obj.refs, qt.Equals, uint32(2))

	got, err := s.GetInterface(key)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, device.Referenced(obj))
	c.Assert(obj.refs, qt.Equals, uint32(3))
	got.Release()

	_, err = s.Get(key)
	c.Assert(errors.Is(err, device.ErrPrivateDataNotFound), qt.IsTrue)

	// Replacing releases the held reference.
	s.Set(key, []byte{1})
	c.Assert(obj.refs, qt.Equals, uint32(1))

	s.SetInterface(key, obj)
	s.Clear()
	c.Assert(obj.refs, qt.Equals, uint32(1))
	c.Assert(s.Len(), qt.Equals, 0)
}

func TestDeviceName(t *testing.T) {
	c := qt.New(t)
	d, _ := create(c, profile.Desktop(), core.Environment{}, device.Configuration{})

	c.Assert(d.Name(), qt.Equals, "")
	d.SetName("main device")
	c.Assert(d.Name(), qt.Equals, "main device")

	data, err := d.PrivateData().Get(device.DebugObjectName)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "main device")

	obj := &counted{refs: 1}
	d.PrivateData().SetInterface(uuid.New(), obj)
	d.Release()
	c.Assert(obj.refs, qt.Equals, uint32(1))
}
