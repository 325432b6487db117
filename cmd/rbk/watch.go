package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"railbank/internal/api"
	"railbank/internal/model"
	"railbank/internal/report"
	"railbank/internal/state"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

const watchRefreshInterval = 2 * time.Second

var (
	watchTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	watchHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Bold(true)
	watchErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	watchDimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func newWatchCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [game]",
		Short: "Live dashboard of a running game",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameUUID, err := gameFromArgsOrPrompt(args)
			if err != nil {
				return err
			}
			spin := spinner.New()
			spin.Spinner = spinner.Dot
			m := watchModel{
				client:   newClient(apiBase),
				gameUUID: gameUUID,
				spin:     spin,
			}
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}

type watchModel struct {
	client   *api.Client
	gameUUID string
	spin     spinner.Model
	st       *state.State
	errs     []string
	loadErr  error
}

type watchTickMsg time.Time

type watchSnapshotMsg struct {
	st   *state.State
	errs []string
}

type watchFailedMsg struct {
	err error
}

type watchWalkedMsg struct {
	err error
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.refresh(), watchTick())
}

func watchTick() tea.Cmd {
	return tea.Tick(watchRefreshInterval, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

func (m watchModel) refresh() tea.Cmd {
	client, gameUUID := m.client, m.gameUUID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		rep := report.New()
		st := state.New(client, rep)
		st.LoadGame(ctx, gameUUID)
		if err := st.Wait(ctx); err != nil {
			return watchFailedMsg{err: err}
		}
		return watchSnapshotMsg{st: st, errs: rep.Errors()}
	}
}

func (m watchModel) walk(action string) tea.Cmd {
	client, gameUUID := m.client, m.gameUUID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		game := &model.Game{UUID: gameUUID}
		var err error
		if action == "undo" {
			_, err = client.Undo(ctx, game)
		} else {
			_, err = client.Redo(ctx, game)
		}
		return watchWalkedMsg{err: err}
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "u":
			return m, m.walk("undo")
		case "r":
			return m, m.walk("redo")
		}
	case watchTickMsg:
		return m, tea.Batch(m.refresh(), watchTick())
	case watchSnapshotMsg:
		m.st = msg.st
		m.errs = msg.errs
		m.loadErr = nil
		return m, nil
	case watchFailedMsg:
		m.loadErr = msg.err
		return m, nil
	case watchWalkedMsg:
		if msg.err != nil {
			m.errs = []string{msg.err.Error()}
			return m, nil
		}
		return m, m.refresh()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString(watchTitleStyle.Render("railbank watch"))
	b.WriteString(watchDimStyle.Render("  " + m.gameUUID))
	b.WriteString("\n\n")

	if m.loadErr != nil {
		b.WriteString(watchErrorStyle.Render("load failed: " + m.loadErr.Error()))
		b.WriteString("\n")
	}
	for _, msg := range m.errs {
		b.WriteString(watchErrorStyle.Render(msg))
		b.WriteString("\n")
	}

	if m.st == nil {
		b.WriteString(m.spin.View())
		b.WriteString(" loading game...\n")
		return b.String()
	}

	game, ok := m.st.Game()
	if ok {
		b.WriteString(fmt.Sprintf("Bank: %s\n\n", formatCash(game.Cash)))
	}

	players := m.st.Players()
	b.WriteString(watchHeaderStyle.Render(fmt.Sprintf("%-18s %12s  %s", "PLAYER", "CASH", "SHARES")))
	b.WriteString("\n")
	for _, p := range players {
		b.WriteString(fmt.Sprintf("%-18s %12s  %s\n",
			truncate(p.Name, 18),
			formatCash(p.Cash),
			truncate(holdingsSummary(m.st.ShareInfo(&p)), 50),
		))
	}

	b.WriteString("\n")
	companies := m.st.Companies()
	b.WriteString(watchHeaderStyle.Render(fmt.Sprintf("%-18s %12s %7s %6s %6s", "COMPANY", "TREASURY", "SHARES", "IPO", "POOL")))
	b.WriteString("\n")
	for _, c := range companies {
		b.WriteString(fmt.Sprintf("%-18s %12s %7d %6d %6d\n",
			truncate(c.Name, 18),
			formatCash(c.Cash),
			c.ShareCount,
			c.IPOShares,
			c.BankShares,
		))
	}

	b.WriteString("\n")
	b.WriteString(watchHeaderStyle.Render("LOG"))
	b.WriteString("\n")
	log := m.st.Log()
	start := 0
	if len(log) > 8 {
		start = len(log) - 8
	}
	for _, e := range log[start:] {
		b.WriteString(watchDimStyle.Render(e.Time.Local().Format("15:04")))
		b.WriteString(" " + e.Text + "\n")
	}

	b.WriteString("\n")
	b.WriteString(watchDimStyle.Render("u undo  r redo  q quit"))
	b.WriteString("\n")
	return b.String()
}
