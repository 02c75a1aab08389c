package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/AndrewLester/truetime/internal/rpc"
	"github.com/AndrewLester/truetime/internal/ui"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var statusOnce bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon's sync status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusOnce, "once", false, "Print the status once and exit.")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	_, cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	if statusOnce {
		client, err := rpc.Dial(cfg.RPCSocket)
		if err != nil {
			return fmt.Errorf("could not connect to truetime daemon: %w", err)
		}
		defer client.Close()
		status, err := client.Status()
		if err != nil {
			return err
		}
		fmt.Println(statusSummary(status))
		return nil
	}

	m := statusModel{socket: cfg.RPCSocket, table: setupTable()}
	_, err = ui.Run(m)
	return err
}

const fetchStatusPeriod = time.Second

type statusModel struct {
	socket string
	client *rpc.Client
	table  table.Model
	status *rpc.Status

	daemonKillStatus string
	err              error
}

type dialSocketMessage *rpc.Client
type fetchStatusMessage rpc.Status
type statusErrorMessage struct{ err error }
type tickMsg time.Time

func dialSocketCommand(socket string) tea.Cmd {
	return func() tea.Msg {
		client, err := rpc.Dial(socket)
		if err != nil {
			return statusErrorMessage{fmt.Errorf("could not connect to truetime daemon: %w", err)}
		}
		return dialSocketMessage(client)
	}
}

func fetchStatusCommand(client *rpc.Client) tea.Cmd {
	return func() tea.Msg {
		status, err := client.Status()
		if err != nil {
			return statusErrorMessage{fmt.Errorf("could not get status from daemon: %w", err)}
		}
		return fetchStatusMessage(status)
	}
}

func stopDaemonCommand() tea.Cmd {
	return func() tea.Msg {
		if err := killDaemon(); err != nil {
			return statusErrorMessage{err}
		}
		return nil
	}
}

func tickCommand(duration time.Duration) tea.Cmd {
	return tea.Tick(duration, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m statusModel) Init() tea.Cmd {
	return dialSocketCommand(m.socket)
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if m.table.Focused() {
				m.table.Blur()
			} else {
				m.table.Focus()
			}
		case "s":
			m.daemonKillStatus = "Stopping " + daemonName
			return m, tea.Sequence(stopDaemonCommand(), tea.Quit)
		case "ctrl+c", "q":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	case dialSocketMessage:
		m.client = msg
		return m, tickCommand(0)
	case fetchStatusMessage:
		status := rpc.Status(msg)
		m.status = &status
		m.table.SetRows(statusRows(status))
		return m, nil
	case statusErrorMessage:
		m.err = msg.err
		return m, tea.Quit
	case tickMsg:
		return m, tea.Batch(tickCommand(fetchStatusPeriod), fetchStatusCommand(m.client))
	default:
		return m, nil
	}
}

// statusRows lists every resolved address, filling in the measurements of
// the one the last sync selected.
func statusRows(status rpc.Status) []table.Row {
	rows := []table.Row{}
	for _, address := range status.Addresses {
		row := table.Row{address, "-", "-", "-"}
		if result := status.LastResult; result != nil && result.Address == address {
			row[1] = strconv.FormatInt(result.OffsetMillis(), 10)
			row[2] = strconv.FormatInt(result.DelayMillis(), 10)
			row[3] = fmt.Sprintf("%s ago", time.Since(status.LastSync).Truncate(time.Second))
		}
		rows = append(rows, row)
	}
	return rows
}

func statusSummary(status rpc.Status) string {
	s := "State:  " + status.State + "\n"
	if status.HasTheTime {
		s += "True:   " + status.TrueNow.UTC().Format(time.RFC3339Nano) + "\n"
	} else {
		s += "True:   " + ui.Warn("not synced yet") + "\n"
	}
	s += "Device: " + status.DeviceNow.UTC().Format(time.RFC3339Nano) + "\n"
	if result := status.LastResult; result != nil {
		s += fmt.Sprintf("Server: %s (%s)\n", result.Address, status.Host)
	}
	if !status.NextSync.IsZero() {
		s += fmt.Sprintf("Next:   in %s\n", time.Until(status.NextSync).Truncate(time.Second))
	}
	s += fmt.Sprintf("Syncs:  %d ok, %d failed", status.Syncs, status.Failures)
	if status.LastError != "" {
		s += "\n" + ui.Warn("Last error: "+status.LastError)
	}
	return s
}

func (m statusModel) View() (s string) {
	if m.err != nil {
		return
	}
	s += ui.Title("TrueTime") + "\n\n"
	if m.status != nil {
		s += statusSummary(*m.status) + "\n\n"
	}
	s += ui.TableBase(m.table.View()) + "\n\n"
	if m.daemonKillStatus != "" {
		s += m.daemonKillStatus + "\n"
	} else {
		s += ui.Help("q: exit, s: stop daemon") + "\n"
	}
	return
}

func (m statusModel) Err() error {
	return m.err
}

func setupTable() table.Model {
	columns := []table.Column{
		{Title: "Address", Width: 40},
		{Title: "Offset (ms)", Width: 12},
		{Title: "Delay (ms)", Width: 12},
		{Title: "Last Sync", Width: 15},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(7),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ui.TableGray).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("218")).
		Background(lipgloss.Color("70")).
		Bold(false)
	t.SetStyles(s)

	return t
}
