package cmd

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/taskdesk/internal/api"
	"github.com/twiced-technology-gmbh/taskdesk/internal/config"
	"github.com/twiced-technology-gmbh/taskdesk/internal/tasklist"
	"github.com/twiced-technology-gmbh/taskdesk/internal/tui"
	"github.com/twiced-technology-gmbh/taskdesk/internal/watcher"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the terminal UI",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var p *tea.Program
	// Send blocks until the event loop takes the message, and the
	// controller may call back from inside Update.
	onChange := func() {
		if p != nil {
			go p.Send(tui.ChangedMsg{})
		}
	}
	ctrl := tasklist.New(a.client, a.cfg.ListParams(), a.cfg.Identity, a.log, onChange)
	defer ctrl.Close()

	model := tui.New(tui.Options{
		Auth:       a.auth,
		Controller: ctrl,
		Invalidate: func() {
			a.source.Invalidate(api.TagTasks, api.TagUsers)
		},
		MarkdownStyle: a.cfg.MarkdownStyle(),
		Log:           a.log,
		Context:       ctx,
	})
	p = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if !a.cfg.TUI.NoWatch {
		go startTUIWatcher(ctx, a, p)
	}

	a.log.Info().Msg("tui started")
	_, err = p.Run()
	return err
}

// startTUIWatcher reloads the config when config.yml or .env changes and
// hands the new identity to the UI.
func startTUIWatcher(ctx context.Context, a *app, p *tea.Program) {
	dir := a.cfg.Dir()
	w, err := watcher.New(dir, []string{config.ConfigFileName, config.EnvFileName}, func() {
		cfg, err := config.Load(dir)
		if err != nil {
			a.log.Warn().Err(err).Msg("config reload failed")
			p.Send(tui.ReloadMsg{Err: err})
			return
		}
		a.log.Info().Str("identity", cfg.Identity.UserID).Msg("config reloaded")
		p.Send(tui.ReloadMsg{Identity: cfg.Identity})
	})
	if err != nil {
		a.log.Warn().Err(err).Msg("config watcher disabled")
		return // non-fatal: TUI works without live reload
	}
	defer w.Close()
	w.Run(ctx, func(err error) {
		a.log.Warn().Err(err).Msg("config watcher")
	})
}
