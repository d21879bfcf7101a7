package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/graphlens/internal/datasource"
	"github.com/vanderheijden86/graphlens/internal/prefstore"
	"github.com/vanderheijden86/graphlens/pkg/export"
	"github.com/vanderheijden86/graphlens/pkg/geometry"
	"github.com/vanderheijden86/graphlens/pkg/model"
)

type exportOptions struct {
	layout  layoutSpec
	outputs []string
	width   float64
	height  float64
	title   string
	noPrefs bool
}

func (c *cli) exportCommand() *cobra.Command {
	opts := exportOptions{
		layout: layoutSpec{Kind: "force", Iterations: 300},
		width:  1200,
		height: 800,
	}
	cmd := &cobra.Command{
		Use:   "export <payload>",
		Short: "Render a graph to SVG or PNG",
		Long: `Lay out the graph and render it to one or more image files.

The format follows each output's extension (.svg or .png). Saved type colors
from the local preferences database are applied unless --no-prefs is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExport(cmd.Context(), args[0], opts)
		},
	}
	cmd.Flags().StringArrayVarP(&opts.outputs, "output", "o", nil, "output file (.svg or .png), repeatable")
	cmd.Flags().StringVarP(&opts.layout.Kind, "layout", "l", opts.layout.Kind, "layout: grid, circular, force or none")
	cmd.Flags().IntVar(&opts.layout.Iterations, "iterations", opts.layout.Iterations, "force simulation steps")
	cmd.Flags().StringVar(&opts.layout.Sort, "sort", "", "static layout sort key")
	cmd.Flags().StringVar(&opts.layout.Order, "order", "asc", "sort order: asc or desc")
	cmd.Flags().Float64Var(&opts.width, "width", opts.width, "image width in pixels")
	cmd.Flags().Float64Var(&opts.height, "height", opts.height, "image height in pixels")
	cmd.Flags().StringVar(&opts.title, "title", "", "title shown in the image header")
	cmd.Flags().BoolVar(&opts.noPrefs, "no-prefs", false, "ignore saved type colors")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func (c *cli) runExport(ctx context.Context, input string, opts exportOptions) error {
	if len(opts.outputs) == 0 {
		return fmt.Errorf("at least one --output is required")
	}
	if opts.width <= 0 || opts.height <= 0 {
		return fmt.Errorf("image size must be positive, got %gx%g", opts.width, opts.height)
	}

	p, src, err := datasource.LoadSpec(ctx, input, c.load)
	if err != nil {
		return fmt.Errorf("load %s: %w", input, err)
	}
	if !opts.noPrefs {
		c.applySavedColors(ctx, p)
	}

	cfg := c.cfg.View()
	cfg.Viewport = geometry.Viewport{Width: opts.width, Height: opts.height}
	h, err := settle(p, cfg, opts.layout, c.logger)
	if err != nil {
		return err
	}
	defer h.Close()

	snap := export.SnapshotOptions{
		Title:  opts.title,
		Source: src.Path,
		Frame:  h.ctrl.Frame(),
		Legend: export.Legend(h.store),
	}
	if err := export.SaveSnapshots(ctx, snap, opts.outputs...); err != nil {
		return err
	}
	for _, out := range opts.outputs {
		c.logger.Info("snapshot written", "path", out)
	}
	return nil
}

// applySavedColors recolors p from the local preferences database when one
// exists. Export never creates the database.
func (c *cli) applySavedColors(ctx context.Context, p *model.Payload) {
	path := c.cfg.PrefsPath(prefstore.DefaultPath())
	if _, err := os.Stat(path); err != nil {
		return
	}
	prefs, err := prefstore.Open(path)
	if err != nil {
		c.logger.Warn("preferences unavailable", "path", path, "err", err)
		return
	}
	defer prefs.Close()
	n, err := prefs.Apply(ctx, p)
	if err != nil {
		c.logger.Warn("saved colors not applied", "err", err)
		return
	}
	c.logger.Debug("saved colors applied", "types", n)
}
