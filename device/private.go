package device

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrPrivateDataNotFound is returned for keys without private data
var ErrPrivateDataNotFound = errors.New("private data not found")

// DebugObjectName is the key object names are stored under
var DebugObjectName = uuid.MustParse("429b8c22-9188-4b0c-8742-acb0bf85c200")

// Referenced is an object private data can hold a reference on
type Referenced interface {
	AddRef() uint32
	Release() uint32
}

type privateEntry struct {
	data   []byte
	object Referenced
}

// PrivateStore holds application data keyed by GUID
type PrivateStore struct {
	mutex   sync.Mutex
	entries map[uuid.UUID]privateEntry
}

// NewPrivateStore returns an empty store
func NewPrivateStore() *PrivateStore {
	return &PrivateStore{entries: make(map[uuid.UUID]privateEntry)}
}

func (s *PrivateStore) replace(key uuid.UUID, e privateEntry, remove bool) {
	s.mutex.Lock()
	old, ok := s.entries[key]
	if remove {
		delete(s.entries, key)
	} else {
		s.entries[key] = e
	}
	s.mutex.Unlock()

	if ok && old.object != nil {
		old.object.Release()
	}
}

// Set stores a copy of data, nil data removes the key
func (s *PrivateStore) Set(key uuid.UUID, data []byte) {
	if data == nil {
		s.replace(key, privateEntry{}, true)
		return
	}
	s.replace(key, privateEntry{data: append([]byte(nil), data...)}, false)
}

// SetInterface stores a reference on obj, nil removes the key
func (s *PrivateStore) SetInterface(key uuid.UUID, obj Referenced) {
	if obj == nil {
		s.replace(key, privateEntry{}, true)
		return
	}
	obj.AddRef()
	s.replace(key, privateEntry{object: obj}, false)
}

// Get returns a copy of the data stored under key
func (s *PrivateStore) Get(key uuid.UUID) ([]byte, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPrivateDataNotFound, key)
	}
	if e.object != nil {
		return nil, fmt.Errorf("%w: %s holds an object", ErrPrivateDataNotFound, key)
	}
	return append([]byte(nil), e.data...), nil
}

// GetInterface returns the object stored under key with a new reference
func (s *PrivateStore) GetInterface(key uuid.UUID) (Referenced, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	e, ok := s.entries[key]
	if !ok || e.object == nil {
		return nil, fmt.Errorf("%w: %s", ErrPrivateDataNotFound, key)
	}
	e.object.AddRef()
	return e.object, nil
}

// Len returns the number of stored keys
func (s *PrivateStore) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.entries)
}

// Clear removes everything, releasing held objects
func (s *PrivateStore) Clear() {
	s.mutex.Lock()
	entries := s.entries
	s.entries = make(map[uuid.UUID]privateEntry)
	s.mutex.Unlock()

	for _, e := range entries {
		if e.object != nil {
			e.object.Release()
		}
	}
}

// PrivateData returns the private data store of the device
func (d *Device) PrivateData() *PrivateStore {
	return d.private
}

// SetName stores the debug name of the device
func (d *Device) SetName(name string) {
	d.private.Set(DebugObjectName, []byte(name))
}

// Name returns the debug name, empty when none was set
func (d *Device) Name() string {
	data, err := d.private.Get(DebugObjectName)
	if err != nil {
		return ""
	}
	return string(data)
}
