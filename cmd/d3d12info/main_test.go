package main

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"d3d12info": run,
	}))
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata",
		Setup: func(env *testscript.Env) error {
			for _, key := range []string{"D3D12VK_ADAPTER", "D3D12VK_DISABLE_EXTENSIONS", "D3D12VK_CONFIG", "D3D12VK_LOG_LEVEL"} {
				env.Setenv(key, "")
			}
			return nil
		},
	})
}
