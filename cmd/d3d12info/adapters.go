package main

import (
	"encoding/json"
	"fmt"

	"github.com/devblok/d3d12vk/core"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newAdaptersCmd(src *source) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "adapters",
		Short: "List the adapters of the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := src.backend()
			if err != nil {
				return err
			}
			instance, err := core.NewInstance(b, core.InstanceConfiguration{Environment: src.env})
			if err != nil {
				return err
			}
			defer instance.Release()

			adapters, err := instance.Adapters()
			if err != nil {
				return err
			}
			infos := make([]core.AdapterInfo, len(adapters))
			for i, a := range adapters {
				infos[i] = instance.AdapterInfo(a)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}

			var data [][]string
			for _, info := range infos {
				data = append(data, []string{
					fmt.Sprint(info.Index),
					info.Name,
					info.Type,
					fmt.Sprintf("%#04x", info.VendorID),
					fmt.Sprintf("%#04x", info.ID),
					info.APIVersion,
					fmt.Sprint(len(info.Extensions)),
				})
			}
			table := newTable(cmd, []string{"INDEX", "NAME", "TYPE", "VENDOR", "DEVICE", "API", "EXTENSIONS"})
			table.AppendBulk(data)
			table.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print adapters as JSON")
	return cmd
}

func newTable(cmd *cobra.Command, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}
