package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/devblok/d3d12vk/core"
	"github.com/devblok/d3d12vk/core/profile"
	"github.com/devblok/d3d12vk/utility/report"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// source selects the backend commands run against
type source struct {
	sample  string
	profile string
	archive string
	entry   string

	envFiles []string
	logLevel string
	verbose  bool

	env core.Environment
}

func (s *source) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&s.sample, "sample", "", "use a built-in profile ("+strings.Join(sampleNames(), ", ")+")")
	flags.StringVar(&s.profile, "profile", "", "replay a profile JSON file")
	flags.StringVar(&s.archive, "archive", "", "replay a profile from a report archive")
	flags.StringVar(&s.entry, "entry", "", "archive entry to replay")
	flags.StringSliceVar(&s.envFiles, "env-file", nil, "read D3D12VK_* variables from dotenv files")
	flags.StringVar(&s.logLevel, "log-level", "", "log level, overrides D3D12VK_LOG_LEVEL")
	flags.BoolVarP(&s.verbose, "verbose", "v", false, "log debug output")
}

func sampleNames() []string {
	names := make([]string, 0, len(profile.Samples))
	for name := range profile.Samples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// setup loads the environment and configures logging
func (s *source) setup(cmd *cobra.Command, args []string) error {
	env, err := core.LoadEnvironment(s.envFiles...)
	if err != nil {
		return fmt.Errorf("loading environment: %w", err)
	}
	s.env = env

	log.SetOutput(cmd.ErrOrStderr())
	log.SetLevel(env.LogLevel)
	if s.logLevel != "" {
		level, err := log.ParseLevel(s.logLevel)
		if err != nil {
			return err
		}
		log.SetLevel(level)
	}
	if s.verbose {
		log.SetLevel(log.DebugLevel)
	}
	return nil
}

// backend opens the selected backend. The Vulkan loader is used when no
// profile source is given.
func (s *source) backend() (core.Backend, error) {
	switch {
	case s.sample != "":
		sample, ok := profile.Samples[s.sample]
		if !ok {
			return nil, fmt.Errorf("unknown sample %q", s.sample)
		}
		return profile.New(sample()), nil

	case s.profile != "":
		f, err := os.Open(s.profile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		p, err := profile.Load(f)
		if err != nil {
			return nil, err
		}
		return profile.New(p), nil

	case s.archive != "":
		if s.entry == "" {
			return nil, fmt.Errorf("--archive needs --entry")
		}
		ar, err := report.OpenFile(s.archive)
		if err != nil {
			return nil, err
		}
		defer ar.Close()
		p, err := ar.Profile(s.entry)
		if err != nil {
			return nil, err
		}
		return profile.New(p), nil
	}
	return core.NewVulkanBackend()
}

func newRootCmd() *cobra.Command {
	src := &source{}
	rootCmd := &cobra.Command{
		Use:               "d3d12info",
		Short:             "Inspect adapters as seen by the d3d12vk runtime",
		SilenceUsage:      true,
		PersistentPreRunE: src.setup,
	}
	src.register(rootCmd)

	rootCmd.AddCommand(
		newAdaptersCmd(src),
		newProbeCmd(src),
		newCaptureCmd(src),
		newInspectCmd(),
	)
	return rootCmd
}
