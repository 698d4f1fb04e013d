package core

import (
	"strconv"
	"strings"

	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Environment variables read by LoadEnvironment
const (
	EnvAdapter           = "D3D12VK_ADAPTER"
	EnvDisableExtensions = "D3D12VK_DISABLE_EXTENSIONS"
	EnvConfig            = "D3D12VK_CONFIG"
	EnvLogLevel          = "D3D12VK_LOG_LEVEL"
)

// ConfigFlags toggle runtime behaviour from the environment
type ConfigFlags uint32

// Configuration flags
const (
	ConfigVulkanDebug ConfigFlags = 1 << iota
	ConfigVirtualHeaps
)

var configFlagNames = map[string]ConfigFlags{
	"vk_debug":      ConfigVulkanDebug,
	"virtual_heaps": ConfigVirtualHeaps,
}

// Environment holds overrides taken from the process environment.
// The zero value overrides nothing.
type Environment struct {
	// AdapterIndex is honoured only when HasAdapterIndex is set
	AdapterIndex    uint32
	HasAdapterIndex bool

	// DisabledExtensions are treated as unavailable
	DisabledExtensions []string

	Flags    ConfigFlags
	LogLevel log.Level
}

// ExtensionDisabled reports whether name was disabled by the environment
func (e Environment) ExtensionDisabled(name string) bool {
	for _, d := range e.DisabledExtensions {
		if d == name {
			return true
		}
	}
	return false
}

// LoadEnvironment reads overrides from the given dotenv files. Values
// missing from the files are taken from the process environment.
func LoadEnvironment(files ...string) (Environment, error) {
	var fileValues map[string]string
	if len(files) > 0 {
		values, err := godotenv.Read(files...)
		if err != nil {
			return Environment{}, err
		}
		fileValues = values
	}
	return ParseEnvironment(func(key string) string {
		if v, ok := fileValues[key]; ok {
			return v
		}
		return envy.Get(key, "")
	}), nil
}

// ParseEnvironment builds an Environment from a lookup function.
// Malformed values are ignored with a warning.
func ParseEnvironment(lookup func(string) string) Environment {
	env := Environment{LogLevel: log.InfoLevel}

	if v := strings.TrimSpace(lookup(EnvAdapter)); v != "" {
		if idx, err := strconv.ParseUint(v, 10, 32); err == nil {
			env.AdapterIndex = uint32(idx)
			env.HasAdapterIndex = true
		} else {
			log.WithFields(log.Fields{"variable": EnvAdapter, "value": v}).Warn("ignoring invalid adapter index")
		}
	}

	env.DisabledExtensions = parseList(lookup(EnvDisableExtensions))

	for _, name := range parseList(lookup(EnvConfig)) {
		flag, ok := configFlagNames[name]
		if !ok {
			log.WithFields(log.Fields{"variable": EnvConfig, "flag": name}).Warn("ignoring unknown config flag")
			continue
		}
		env.Flags |= flag
	}

	if v := strings.TrimSpace(lookup(EnvLogLevel)); v != "" {
		if level, err := log.ParseLevel(v); err == nil {
			env.LogLevel = level
		} else {
			log.WithFields(log.Fields{"variable": EnvLogLevel, "value": v}).Warn("ignoring invalid log level")
		}
	}
	return env
}
