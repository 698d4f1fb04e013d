package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/devblok/d3d12vk/core"
	"github.com/devblok/d3d12vk/core/profile"
	"github.com/devblok/d3d12vk/utility/report"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newCaptureCmd(src *source) *cobra.Command {
	var out, author string
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture the adapters of the backend into a report archive",
		Long: "Capture the adapters of the backend into a report archive, one entry\n" +
			"per adapter. An output file ending in .json receives a single profile.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			b, err := src.backend()
			if err != nil {
				return err
			}
			if filepath.Ext(out) == ".json" {
				return captureProfile(cmd, b, out)
			}
			return captureArchive(cmd, src, b, out, author)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	cmd.Flags().StringVar(&author, "author", os.Getenv("USER"), "author recorded in the archive")
	return cmd
}

func captureProfile(cmd *cobra.Command, b core.Backend, out string) error {
	p, err := profile.Capture(b, b.Name())
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := p.Save(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "captured %d adapters to %s\n", len(p.Adapters), out)
	return nil
}

func captureArchive(cmd *cobra.Command, src *source, b core.Backend, out, author string) error {
	instance, err := core.NewInstance(b, core.InstanceConfiguration{Environment: src.env})
	if err != nil {
		return err
	}
	defer instance.Release()

	adapters, err := instance.Adapters()
	if err != nil {
		return err
	}
	exts, res := b.InstanceExtensions()
	if err := res.Err(); err != nil {
		return fmt.Errorf("InstanceExtensions: %w", err)
	}

	builder, err := report.NewBuilder(report.Header{
		Author:      author,
		DateCreated: time.Now().Unix(),
		Backend:     b.Name(),
	})
	if err != nil {
		return err
	}
	defer builder.Close()

	var g errgroup.Group
	for _, a := range adapters {
		a := a
		g.Go(func() error {
			captured, err := profile.CaptureAdapter(b, a.Handle)
			if err != nil {
				return fmt.Errorf("adapter %d: %w", a.Index, err)
			}
			name := fmt.Sprintf("adapter%d", a.Index)
			log.WithFields(log.Fields{"entry": name, "adapter": a.Name()}).Debug("captured adapter")
			return builder.AddProfile(name, profile.Profile{
				Name:               a.Name(),
				InstanceExtensions: exts,
				Adapters:           []profile.Adapter{captured},
			})
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if _, err := builder.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "captured %d adapters to %s\n", builder.Len(), out)
	return nil
}
