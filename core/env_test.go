package core

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gobuffalo/envy"
	log "github.com/sirupsen/logrus"
)

func lookupMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestParseEnvironment(t *testing.T) {
	c := qt.New(t)
	env := ParseEnvironment(lookupMap(map[string]string{
		EnvAdapter:           "2",
		EnvDisableExtensions: "VK_EXT_robustness2;VK_KHR_push_descriptor, VK_EXT_debug_marker",
		EnvConfig:            "virtual_heaps,vk_debug,unknown",
		EnvLogLevel:          "debug",
	}))
	c.Assert(env.HasAdapterIndex, qt.IsTrue)
	c.Assert(env.AdapterIndex, qt.Equals, uint32(2))
	c.Assert(env.DisabledExtensions, qt.DeepEquals, []string{
		"VK_EXT_robustness2", "VK_KHR_push_descriptor", "VK_EXT_debug_marker",
	})
	c.Assert(env.ExtensionDisabled("VK_KHR_push_descriptor"), qt.IsTrue)
	c.Assert(env.ExtensionDisabled("VK_KHR_maintenance1"), qt.IsFalse)
	c.Assert(env.Flags, qt.Equals, ConfigVirtualHeaps|ConfigVulkanDebug)
	c.Assert(env.LogLevel, qt.Equals, log.DebugLevel)
}

func TestParseEnvironmentIgnoresMalformedValues(t *testing.T) {
	c := qt.New(t)
	env := ParseEnvironment(lookupMap(map[string]string{
		EnvAdapter:  "first",
		EnvLogLevel: "loud",
	}))
	c.Assert(env.HasAdapterIndex, qt.IsFalse)
	c.Assert(env.LogLevel, qt.Equals, log.InfoLevel)
	c.Assert(env.Flags, qt.Equals, ConfigFlags(0))
	c.Assert(env.DisabledExtensions, qt.HasLen, 0)
}

func TestLoadEnvironmentFromFile(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(c.TempDir(), "d3d12vk.env")
	err := os.WriteFile(path, []byte(EnvAdapter+"=1\n"+EnvConfig+"=virtual_heaps\n"), 0o644)
	c.Assert(err, qt.IsNil)

	var env Environment
	envy.Temp(func() {
		envy.Set(EnvConfig, "vk_debug")
		env, err = LoadEnvironment(path)
	})
	c.Assert(err, qt.IsNil)
	c.Assert(env.AdapterIndex, qt.Equals, uint32(1))
	// The file takes precedence over the process environment.
	c.Assert(env.Flags, qt.Equals, ConfigVirtualHeaps)

	envy.Temp(func() {
		envy.Set(EnvLogLevel, "debug")
		env, err = LoadEnvironment(path)
	})
	c.Assert(err, qt.IsNil)
	c.Assert(env.LogLevel, qt.Equals, log.DebugLevel)

	_, err = LoadEnvironment(filepath.Join(c.TempDir(), "missing.env"))
	c.Assert(err, qt.Not(qt.IsNil))
}
