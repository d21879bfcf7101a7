package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/graphlens/internal/datasource"
	"github.com/vanderheijden86/graphlens/pkg/graphstore"
	"github.com/vanderheijden86/graphlens/pkg/layout"
	"github.com/vanderheijden86/graphlens/pkg/loop"
	"github.com/vanderheijden86/graphlens/pkg/model"
	"github.com/vanderheijden86/graphlens/pkg/view"
)

// layoutSpec describes a layout computed without a terminal.
type layoutSpec struct {
	Kind       string // grid, circular, force or none
	Iterations int    // force steps
	Sort       string
	Order      string

	// Realtime runs the force simulation on the wall clock until it
	// auto-stops, instead of a fixed number of steps.
	Realtime bool
	Duration time.Duration // replaces the size-based auto-stop when positive
}

// headless is a view mounted without a terminal, for batch commands.
type headless struct {
	store *graphstore.Store
	ctrl  *view.Controller
}

// settle mounts p and runs spec to completion.
func settle(p *model.Payload, cfg view.Config, spec layoutSpec, logger *log.Logger) (*headless, error) {
	store, err := graphstore.New(p, graphstore.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	clock := loop.NewManual(time.Unix(0, 0))
	h := &headless{store: store}
	h.ctrl = view.New(store, clock, cfg, view.WithLogger(logger))

	switch spec.Kind {
	case "", "none":
	case "force":
		if spec.Iterations <= 0 {
			return nil, fmt.Errorf("--iterations must be positive, got %d", spec.Iterations)
		}
		h.ctrl.Engine().Step(spec.Iterations)
	default:
		kind, ok := layout.ParseStatic(spec.Kind)
		if !ok {
			return nil, fmt.Errorf("unknown layout %q (want grid, circular or force)", spec.Kind)
		}
		key, err := layout.ParseSortKey(spec.Sort, spec.Order)
		if err != nil {
			return nil, err
		}
		h.ctrl.ApplyLayout(kind, key)
	}
	// Let transitions and the camera settle.
	clock.Advance(cfg.Layout.Animation + cfg.ZoomDuration + time.Second)
	logger.Debug("layout settled", "layout", spec.Kind, "nodes", store.Len(), "mode", h.ctrl.Engine().Mode())
	return h, nil
}

// simulate mounts p on a wall-clock loop and runs the force simulation the
// way the viewer does: ticks every tick interval until the auto-stop timer
// fires. Cancelling ctx ends the run early with the positions reached so far.
func simulate(ctx context.Context, p *model.Payload, cfg view.Config, logger *log.Logger) (*headless, error) {
	store, err := graphstore.New(p, graphstore.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	l := loop.New(0)
	ran := make(chan struct{})
	go func() {
		defer close(ran)
		_ = l.Run(context.Background())
	}()
	defer func() {
		l.Close()
		<-ran
	}()

	h := &headless{store: store}
	stopped := make(chan struct{})
	var once sync.Once
	stop := func() { once.Do(func() { close(stopped) }) }
	l.Post(func() {
		h.ctrl = view.New(store, l, cfg, view.WithLogger(logger))
		h.ctrl.Subscribe(func(ev view.Event) {
			if ev.Kind == view.EventSimulation && ev.Message == "auto-stopped" {
				stop()
			}
		})
		if !h.ctrl.Start() {
			stop()
		}
	})

	start := time.Now()
	select {
	case <-stopped:
	case <-ctx.Done():
		logger.Info("simulation interrupted", "after", time.Since(start).Round(time.Millisecond))
	}
	closed := make(chan struct{})
	l.Post(func() {
		h.ctrl.Close()
		close(closed)
	})
	<-closed
	logger.Debug("simulation finished", "nodes", store.Len(), "took", time.Since(start).Round(time.Millisecond))
	return h, nil
}

func (h *headless) Close() {
	h.ctrl.Close()
	h.ctrl.Wait()
}

// NodePosition is one line of the layout command output.
type NodePosition struct {
	ID   string  `json:"id"`
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Positions lists every node position in store order.
func (h *headless) Positions() []NodePosition {
	nodes := h.store.Nodes()
	out := make([]NodePosition, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, NodePosition{ID: n.ID, Type: n.TypeID, X: n.X, Y: n.Y})
	}
	return out
}

func (c *cli) layoutCommand() *cobra.Command {
	var (
		spec   = layoutSpec{Kind: "grid", Iterations: 300}
		output string
	)
	cmd := &cobra.Command{
		Use:   "layout <payload>",
		Short: "Compute node coordinates",
		Long: `Compute a layout and print node coordinates as JSON.

With -o the positioned graph is written instead: a .json output is a payload
file with coordinates, a .db output a SQLite database that 'view' and
'export' can read back with sqlite://.

--realtime runs the force layout as the viewer would, on the wall clock,
until the simulation auto-stops (after 10 to 30 seconds depending on graph
size, or --duration). Interrupting it prints the positions reached so far.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], spec, output)
		},
	}
	cmd.Flags().StringVarP(&spec.Kind, "layout", "l", spec.Kind, "layout: grid, circular or force")
	cmd.Flags().IntVar(&spec.Iterations, "iterations", spec.Iterations, "force simulation steps")
	cmd.Flags().StringVar(&spec.Sort, "sort", "", "sort key: type, total-degree, in-degree, out-degree")
	cmd.Flags().StringVar(&spec.Order, "order", "asc", "sort order: asc or desc")
	cmd.Flags().BoolVar(&spec.Realtime, "realtime", false, "run the force layout on the wall clock until it auto-stops")
	cmd.Flags().DurationVar(&spec.Duration, "duration", 0, "realtime simulation length (default: based on graph size)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the positioned graph to a .json or .db file")
	return cmd
}

func (c *cli) runLayout(ctx context.Context, input string, spec layoutSpec, output string) error {
	p, _, err := datasource.LoadSpec(ctx, input, c.load)
	if err != nil {
		return fmt.Errorf("load %s: %w", input, err)
	}
	var h *headless
	if spec.Realtime {
		if spec.Kind != "force" {
			return fmt.Errorf("--realtime needs --layout force, got %q", spec.Kind)
		}
		if spec.Duration < 0 {
			return fmt.Errorf("--duration must not be negative, got %s", spec.Duration)
		}
		cfg := c.cfg.View()
		if spec.Duration > 0 {
			cfg.AutoStop = spec.Duration
		}
		h, err = simulate(ctx, p, cfg, c.logger)
		// An interrupted run still writes what it reached.
		ctx = context.WithoutCancel(ctx)
	} else {
		h, err = settle(p, c.cfg.View(), spec, c.logger)
	}
	if err != nil {
		return err
	}
	defer h.Close()

	if output == "" {
		return writePositions(c.stdout, h.Positions())
	}
	switch strings.ToLower(filepath.Ext(output)) {
	case ".db", ".sqlite", ".sqlite3":
		err = datasource.WriteSQLite(ctx, output, h.store.Payload())
	case ".json":
		err = writePayloadFile(output, h.store.Payload())
	default:
		return fmt.Errorf("unsupported output %s (want .json or .db)", output)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	c.logger.Info("layout written", "path", output, "nodes", h.store.Len(), "edges", h.store.EdgeLen())
	return nil
}

func writePositions(w io.Writer, pos []NodePosition) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(pos)
}

func writePayloadFile(path string, p *model.Payload) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := model.WritePayload(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
