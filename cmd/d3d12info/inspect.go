package main

import (
	"fmt"
	"time"

	"github.com/devblok/d3d12vk/utility/report"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "List the entries of a report archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ar, err := report.OpenFile(args[0])
			if err != nil {
				return err
			}
			defer ar.Close()

			h := ar.Header()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "backend: %s\n", h.Backend)
			fmt.Fprintf(w, "author:  %s\n", h.Author)
			fmt.Fprintf(w, "created: %s\n\n", time.Unix(h.DateCreated, 0).UTC().Format(time.RFC3339))

			var data [][]string
			for _, e := range ar.Entries() {
				adapter := "-"
				if p, err := ar.Profile(e.Name); err == nil && len(p.Adapters) > 0 {
					adapter = p.Adapters[0].Properties.Name
				}
				data = append(data, []string{e.Name, adapter, fmt.Sprint(e.Size), fmt.Sprint(e.CompressedSize)})
			}
			table := newTable(cmd, []string{"ENTRY", "ADAPTER", "SIZE", "COMPRESSED"})
			table.AppendBulk(data)
			table.Render()
			return nil
		},
	}
}
