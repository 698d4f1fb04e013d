package core

import "fmt"

// InstanceConfiguration configures the connection to the backend
type InstanceConfiguration struct {
	// DebugMode enables debug-only capabilities, such as
	// validation reporting. They are skipped otherwise.
	DebugMode bool

	// Extensions must all be available, instance creation fails otherwise
	Extensions []string

	// OptionalExtensions are enabled when available
	OptionalExtensions []string

	Layers      []string
	Application ApplicationInfo

	// Environment overrides, usually filled by LoadEnvironment
	Environment Environment

	// RuntimeVersion is the version of this runtime's interface the
	// client was written against. Zero selects CurrentRuntimeVersion.
	RuntimeVersion uint32
}

// Runtime interface versions
var (
	RuntimeVersion1_0     = MakeVersion(1, 0, 0)
	RuntimeVersion1_2     = MakeVersion(1, 2, 0)
	CurrentRuntimeVersion = RuntimeVersion1_2
)

// DefaultApplicationInfo is used when the configuration leaves the
// application record empty.
var DefaultApplicationInfo = ApplicationInfo{
	Name:          "d3d12vk",
	Version:       MakeVersion(1, 0, 0),
	EngineName:    "d3d12vk",
	EngineVersion: MakeVersion(1, 2, 0),
	APIVersion:    MakeVersion(1, 0, 0),
}

// DeviceConfiguration configures capability negotiation for a device
type DeviceConfiguration struct {
	// Extensions must all be available, device creation fails otherwise
	Extensions []string

	// OptionalExtensions are enabled when available
	OptionalExtensions []string
}

func (c *InstanceConfiguration) validate() error {
	for _, list := range [][]string{c.Extensions, c.OptionalExtensions, c.Layers} {
		for _, name := range list {
			if name == "" {
				return fmt.Errorf("%w: empty capability name", ErrInvalidArgument)
			}
		}
	}
	if c.Application.APIVersion != 0 && VersionMajor(c.Application.APIVersion) == 0 {
		return fmt.Errorf("%w: api version %#x", ErrInvalidArgument, c.Application.APIVersion)
	}
	return nil
}

func (c *DeviceConfiguration) validate() error {
	for _, list := range [][]string{c.Extensions, c.OptionalExtensions} {
		for _, name := range list {
			if name == "" {
				return fmt.Errorf("%w: empty capability name", ErrInvalidArgument)
			}
		}
	}
	return nil
}

// applicationInfo fills the gaps of the configured application record
func (c *InstanceConfiguration) applicationInfo() ApplicationInfo {
	app := c.Application
	if app.Name == "" {
		app.Name = DefaultApplicationInfo.Name
	}
	if app.EngineName == "" {
		app.EngineName = DefaultApplicationInfo.EngineName
		app.EngineVersion = DefaultApplicationInfo.EngineVersion
	}
	if app.APIVersion == 0 {
		app.APIVersion = DefaultApplicationInfo.APIVersion
	}
	return app
}
