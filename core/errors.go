package core

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by device establishment. Concrete errors wrap one
// of these, test with errors.Is.
var (
	ErrUnsupportedCapability = errors.New("unsupported capability")
	ErrNoSuitableAdapter     = errors.New("no suitable adapter")
	ErrResourceExhausted     = errors.New("resource exhausted")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrInternal              = errors.New("internal inconsistency")
)

// Result is a native backend result code. Zero is success, positive
// values are non-error statuses, negative values are failures.
type Result int32

// Backend result codes
const (
	Success                   Result = 0
	NotReady                  Result = 1
	Timeout                   Result = 2
	Incomplete                Result = 5
	ErrorOutOfHostMemory      Result = -1
	ErrorOutOfDeviceMemory    Result = -2
	ErrorInitializationFailed Result = -3
	ErrorDeviceLost           Result = -4
	ErrorMemoryMapFailed      Result = -5
	ErrorLayerNotPresent      Result = -6
	ErrorExtensionNotPresent  Result = -7
	ErrorFeatureNotPresent    Result = -8
	ErrorIncompatibleDriver   Result = -9
	ErrorTooManyObjects       Result = -10
	ErrorFormatNotSupported   Result = -11
	ErrorFragmentedPool       Result = -12
	ErrorOutOfPoolMemory      Result = -1000069000
)

var resultNames = map[Result]string{
	Success:                   "success",
	NotReady:                  "not ready",
	Timeout:                   "timeout",
	Incomplete:                "incomplete",
	ErrorOutOfHostMemory:      "out of host memory",
	ErrorOutOfDeviceMemory:    "out of device memory",
	ErrorInitializationFailed: "initialization failed",
	ErrorDeviceLost:           "device lost",
	ErrorMemoryMapFailed:      "memory map failed",
	ErrorLayerNotPresent:      "layer not present",
	ErrorExtensionNotPresent:  "extension not present",
	ErrorFeatureNotPresent:    "feature not present",
	ErrorIncompatibleDriver:   "incompatible driver",
	ErrorTooManyObjects:       "too many objects",
	ErrorFormatNotSupported:   "format not supported",
	ErrorFragmentedPool:       "fragmented pool",
	ErrorOutOfPoolMemory:      "out of pool memory",
}

func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("result %d", int32(r))
}

// Kind maps the result onto the error taxonomy. Non-negative results
// have no kind.
func (r Result) Kind() error {
	switch {
	case r >= 0:
		return nil
	case r == ErrorOutOfHostMemory, r == ErrorOutOfDeviceMemory, r == ErrorTooManyObjects,
		r == ErrorFragmentedPool, r == ErrorOutOfPoolMemory, r == ErrorMemoryMapFailed:
		return ErrResourceExhausted
	case r == ErrorExtensionNotPresent, r == ErrorFeatureNotPresent, r == ErrorLayerNotPresent,
		r == ErrorFormatNotSupported:
		return ErrUnsupportedCapability
	case r == ErrorIncompatibleDriver, r == ErrorInitializationFailed:
		return ErrNoSuitableAdapter
	default:
		return ErrInternal
	}
}

// Err translates the result into an error, nil when the call succeeded
func (r Result) Err() error {
	kind := r.Kind()
	if kind == nil {
		return nil
	}
	return fmt.Errorf("%w: backend %s", kind, r)
}

// checkResult wraps a failed backend call with the call name, in the
// way every call site reports it.
func checkResult(call string, r Result) error {
	if err := r.Err(); err != nil {
		return fmt.Errorf("%s: %w", call, err)
	}
	return nil
}
