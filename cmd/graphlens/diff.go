package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanderheijden86/graphlens/internal/datasource"
)

type diffOptions struct {
	json     bool
	markdown bool
	limit    int
}

func (c *cli) diffCommand() *cobra.Command {
	var opts diffOptions
	cmd := &cobra.Command{
		Use:   "diff <payload-a> <payload-b>",
		Short: "Compare two graph payloads",
		Long: `Compare two graphs by node, edge and type ids. Sources may mix formats,
for example a JSON file against the SQLite database it was exported to.

On a terminal the report is rendered as formatted markdown.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDiff(cmd.Context(), args[0], args[1], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the differences as JSON")
	cmd.Flags().BoolVar(&opts.markdown, "markdown", false, "print the report as raw markdown")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "maximum entries per list (0 = unlimited)")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")
	return cmd
}

func (c *cli) runDiff(ctx context.Context, a, b string, opts diffOptions) error {
	srcA, err := datasource.Parse(a)
	if err != nil {
		return err
	}
	srcB, err := datasource.Parse(b)
	if err != nil {
		return err
	}
	d, err := datasource.CompareSources(ctx, srcA, srcB, c.load, datasource.DiffOptions{MaxDifferences: opts.limit})
	if err != nil {
		return err
	}

	switch {
	case opts.json:
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case opts.markdown:
		_, err := fmt.Fprint(c.stdout, diffMarkdown(d))
		return err
	case c.stdoutIsTerminal():
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
		if err != nil {
			return err
		}
		out, err := r.Render(diffMarkdown(d))
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(c.stdout, out)
		return err
	}
	fmt.Fprint(c.stdout, d.Summary())
	if !d.HasChanges() {
		fmt.Fprintln(c.stdout)
	}
	return nil
}

func (c *cli) stdoutIsTerminal() bool {
	f, ok := c.stdout.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// diffMarkdown formats d as a markdown report.
func diffMarkdown(d *datasource.PayloadDiff) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s → %s\n\n", d.SourceA, d.SourceB)
	if !d.HasChanges() {
		fmt.Fprintf(&b, "Graphs match (%d nodes each).\n", d.CountA)
		return b.String()
	}

	b.WriteString("| change | count |\n|---|---:|\n")
	rows := []struct {
		name string
		n    int
	}{
		{"nodes added", len(d.AddedNodes)},
		{"nodes removed", len(d.RemovedNodes)},
		{"nodes retyped", len(d.Retyped)},
		{"edges added", len(d.AddedEdges)},
		{"edges removed", len(d.RemovedEdges)},
		{"types recolored", len(d.Recolored)},
	}
	for _, r := range rows {
		if r.n > 0 {
			fmt.Fprintf(&b, "| %s | %d |\n", r.name, r.n)
		}
	}

	list := func(title string, ids []string) {
		if len(ids) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n## %s\n\n", title)
		for _, id := range ids {
			fmt.Fprintf(&b, "- `%s`\n", id)
		}
	}
	list("Nodes added", d.AddedNodes)
	list("Nodes removed", d.RemovedNodes)
	list("Edges added", d.AddedEdges)
	list("Edges removed", d.RemovedEdges)
	if len(d.Retyped) > 0 {
		b.WriteString("\n## Nodes retyped\n\n")
		for _, r := range d.Retyped {
			fmt.Fprintf(&b, "- `%s`: %s → %s\n", r.ID, r.TypeA, r.TypeB)
		}
	}
	if len(d.Recolored) > 0 {
		b.WriteString("\n## Types recolored\n\n")
		for _, r := range d.Recolored {
			fmt.Fprintf(&b, "- `%s`: %s → %s\n", r.TypeID, r.ColorA, r.ColorB)
		}
	}
	return b.String()
}
