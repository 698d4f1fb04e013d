package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/devblok/d3d12vk/core"
	"github.com/devblok/d3d12vk/device"
	"github.com/spf13/cobra"
)

type probeOptions struct {
	adapter      int
	minLevel     string
	debug        bool
	virtualHeaps bool
	asJSON       bool
}

type probeReport struct {
	Adapter          core.AdapterInfo       `json:"adapter"`
	FeatureLevel     string                 `json:"featureLevel"`
	Options          core.Options           `json:"options"`
	Unmet            []string               `json:"unmet"`
	Queues           map[string]uint32      `json:"queues"`
	BackendHeaps     bool                   `json:"backendHeaps"`
	DescriptorLimits core.DescriptorLimits  `json:"descriptorLimits"`
	Capabilities     []core.CapabilityState `json:"capabilities"`
}

func newProbeCmd(src *source) *cobra.Command {
	opts := probeOptions{}
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Create a device and report what it negotiated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return probe(cmd, src, opts)
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&opts.adapter, "adapter", -1, "adapter index, overrides the environment")
	flags.StringVar(&opts.minLevel, "min-level", "", "minimum feature level, such as 11_0")
	flags.BoolVar(&opts.debug, "debug", false, "negotiate debug-only capabilities")
	flags.BoolVar(&opts.virtualHeaps, "virtual-heaps", false, "emulate descriptor heaps")
	flags.BoolVar(&opts.asJSON, "json", false, "print the report as JSON")
	return cmd
}

func probe(cmd *cobra.Command, src *source, opts probeOptions) error {
	minLevel, err := core.ParseFeatureLevel(opts.minLevel)
	if err != nil {
		return err
	}
	env := src.env
	if opts.adapter >= 0 {
		env.AdapterIndex = uint32(opts.adapter)
		env.HasAdapterIndex = true
	}
	if opts.virtualHeaps {
		env.Flags |= core.ConfigVirtualHeaps
	}

	b, err := src.backend()
	if err != nil {
		return err
	}
	d, err := device.Create(b,
		core.InstanceConfiguration{DebugMode: opts.debug, Environment: env},
		device.Configuration{MinimumFeatureLevel: minLevel})
	if err != nil {
		return err
	}
	defer d.Release()

	r := probeReport{
		Adapter:          d.Instance().AdapterInfo(d.Adapter()),
		FeatureLevel:     d.MaxFeatureLevel().String(),
		Options:          d.Options(),
		Queues:           map[string]uint32{},
		BackendHeaps:     d.UsesBackendHeaps(),
		DescriptorLimits: d.DescriptorLimits(),
		Capabilities:     d.Capabilities().States(),
	}
	for _, u := range d.UnmetRequirements() {
		r.Unmet = append(r.Unmet, u.String())
	}
	for role := core.QueueRole(0); role < core.QueueRoleCount; role++ {
		r.Queues[role.String()] = d.QueueAssignment().Family(role)
	}

	if opts.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	printProbe(cmd, r)
	return nil
}

func printProbe(cmd *cobra.Command, r probeReport) {
	w := cmd.OutOrStdout()
	heaps := "virtual"
	if r.BackendHeaps {
		heaps = "backend"
	}
	fmt.Fprintf(w, "adapter:          %s (%s)\n", r.Adapter.Name, r.Adapter.Type)
	fmt.Fprintf(w, "feature level:    %s\n", r.FeatureLevel)
	fmt.Fprintf(w, "binding tier:     %d\n", r.Options.ResourceBindingTier)
	fmt.Fprintf(w, "descriptor heaps: %s\n", heaps)
	fmt.Fprintf(w, "queues:           direct=%d compute=%d copy=%d\n",
		r.Queues["direct"], r.Queues["compute"], r.Queues["copy"])
	fmt.Fprintf(w, "descriptors:      cbv=%d srv=%d uav=%d sampler=%d\n",
		r.DescriptorLimits.UniformBuffers, r.DescriptorLimits.SampledImages,
		r.DescriptorLimits.StorageImages, r.DescriptorLimits.Samplers)
	printUnmet(w, r.Unmet)
	fmt.Fprintln(w)

	var data [][]string
	for _, st := range r.Capabilities {
		data = append(data, []string{st.Name, yesNo(st.Required), yesNo(st.Available), yesNo(st.Enabled)})
	}
	table := newTable(cmd, []string{"CAPABILITY", "REQUIRED", "AVAILABLE", "ENABLED"})
	table.AppendBulk(data)
	table.Render()
}

func printUnmet(w io.Writer, unmet []string) {
	if len(unmet) == 0 {
		return
	}
	fmt.Fprintln(w, "unmet requirements:")
	for _, u := range unmet {
		fmt.Fprintf(w, "  %s\n", u)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
