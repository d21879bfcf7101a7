package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanderheijden86/graphlens/internal/datasource"
	"github.com/vanderheijden86/graphlens/internal/prefstore"
	"github.com/vanderheijden86/graphlens/pkg/debug"
	"github.com/vanderheijden86/graphlens/pkg/hostapi"
	"github.com/vanderheijden86/graphlens/pkg/model"
	"github.com/vanderheijden86/graphlens/pkg/ui"
)

func (c *cli) viewCommand() *cobra.Command {
	var (
		logFile   string
		exportDir string
	)
	cmd := &cobra.Command{
		Use:   "view <payload>",
		Short: "Explore a graph in the terminal",
		Long: `Open an interactive terminal view of the graph.

The force-directed simulation starts right away and stops on its own after a
while. Use the mouse to select nodes and the keyboard for everything else;
press ? for the full key list. JSON payload files are reloaded when they
change on disk.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runView(cmd.Context(), args[0], logFile, exportDir)
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file while the viewer runs")
	cmd.Flags().StringVar(&exportDir, "export-dir", ".", "directory for snapshots taken with the e key")
	return cmd
}

func (c *cli) runView(ctx context.Context, spec, logFile, exportDir string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("view needs a terminal; use 'graphlens export' or 'graphlens layout' instead")
	}

	p, src, err := datasource.LoadSpec(ctx, spec, c.load)
	if err != nil {
		return fmt.Errorf("load %s: %w", spec, err)
	}

	// The terminal belongs to the viewer, so logs go to a file or nowhere.
	logger := log.New(io.Discard)
	var logOut io.Writer
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
		level := log.InfoLevel
		if c.verbose {
			level = log.DebugLevel
		}
		logger = debug.NewLogger(f, level)
	}
	if logOut != nil && debug.Enabled() {
		debug.SetOutput(logOut)
	} else {
		debug.SetEnabled(false)
	}

	sess, err := c.openHost(p)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Prepare(ctx, p); err != nil {
		logger.Warn("preferences not applied", "err", err)
	}

	m, err := ui.New(p, ui.Options{
		Title:       "graphlens · " + filepath.Base(src.Path),
		Config:      c.cfg.View(),
		Host:        sess.host,
		Logger:      logger,
		Boxes:       sess.Boxes(ctx),
		Source:      src,
		LoadOptions: c.load,
		Prepare:     sess.Prepare,
		ShowHelp:    c.cfg.UI.ShowHelp,
		FrameRate:   c.cfg.UI.FrameRate,
		ExportDir:   exportDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		m.Close()
		m.Controller().Wait()
	}()

	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	if _, err := prog.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("viewer: %w", err)
	}
	return nil
}

// hostSession is the preference host of one command run. Without a
// configured HTTP host the local preferences database stands in.
type hostSession struct {
	host  hostapi.Host
	prefs *prefstore.Store

	mu     sync.Mutex
	search prefstore.SearchFunc
}

func (c *cli) openHost(p *model.Payload) (*hostSession, error) {
	s := &hostSession{search: prefstore.PayloadSearch(p)}
	if base := c.cfg.Host.BaseURL; base != "" {
		opts := []hostapi.ClientOption{hostapi.WithHTTPClient(&http.Client{Timeout: c.cfg.Host.Timeout})}
		for k, v := range c.cfg.Host.Headers {
			opts = append(opts, hostapi.WithHeader(k, v))
		}
		client, err := hostapi.NewClient(base, opts...)
		if err != nil {
			return nil, fmt.Errorf("host client: %w", err)
		}
		c.logger.Debug("using HTTP host", "url", base)
		s.host = client
		return s, nil
	}

	path := c.cfg.PrefsPath(prefstore.DefaultPath())
	prefs, err := prefstore.Open(path, prefstore.WithSearch(s.find))
	if err != nil {
		return nil, err
	}
	c.logger.Debug("using local preferences", "path", path)
	s.prefs = prefs
	s.host = prefs
	return s, nil
}

func (s *hostSession) find(terms string) []string {
	s.mu.Lock()
	search := s.search
	s.mu.Unlock()
	return search(terms)
}

// Prepare applies saved type colors to p and points searches at it.
func (s *hostSession) Prepare(ctx context.Context, p *model.Payload) error {
	s.mu.Lock()
	s.search = prefstore.PayloadSearch(p)
	s.mu.Unlock()
	if s.prefs == nil {
		return nil
	}
	_, err := s.prefs.Apply(ctx, p)
	return err
}

// Boxes returns the saved panel layout, or an empty one.
func (s *hostSession) Boxes(ctx context.Context) hostapi.BoxLayout {
	if s.prefs == nil {
		return hostapi.BoxLayout{}
	}
	l, err := s.prefs.BoxLayout(ctx)
	if err != nil {
		return hostapi.BoxLayout{}
	}
	return l
}

func (s *hostSession) Close() error {
	if s.prefs == nil {
		return nil
	}
	return s.prefs.Close()
}
