package main

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/AndrewLester/truetime/internal/logging"
	"github.com/AndrewLester/truetime/internal/ui"
	"github.com/AndrewLester/truetime/pkg/listener"
	"github.com/AndrewLester/truetime/pkg/truetime"
	"github.com/beevik/ntp"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

type queryFlags struct {
	compare bool
	plain   bool
}

var queryCmd = &cobra.Command{
	Use:   "query [host]",
	Short: "Sync once against a host and print true time",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runQuery,
}

var queryOpts queryFlags

func init() {
	queryCmd.Flags().BoolVar(&queryOpts.compare, "compare", false, "Also query the host with a reference NTP client.")
	queryCmd.Flags().BoolVar(&queryOpts.plain, "plain", false, "Print the result without the progress display.")
	queryCmd.Flags().Int64("timeout", 0, "Per-request timeout in milliseconds.")
	queryCmd.Flags().Int("retries", 0, "Attempts per request against one address.")
	queryCmd.Flags().String("dns-server", "", "Resolve the host against this DNS server.")
	rootCmd.AddCommand(queryCmd)
}

const (
	padding  = 10
	maxWidth = 80
)

func runQuery(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig(cmd, map[string]string{
		"timeout":    "connection_timeout_ms",
		"retries":    "retry_count",
		"dns-server": "dns_server",
	})
	if err != nil {
		return err
	}
	params := cfg.Parameters()
	if len(args) == 1 {
		params.HostPool = []string{args[0]}
	}

	log, err := logging.New(logging.Options{})
	if err != nil {
		return err
	}
	defer log.Sync()

	events := make(chan tea.Msg, 64)
	capture := &resultCapture{}
	listeners := listener.Multi{listener.NewLogger(log), capture}
	if !queryOpts.plain {
		listeners = append(listeners, progressListener{events: events})
	}
	tt := truetime.New(truetime.WithListener(listeners), truetime.WithResolver(cfg.Resolver()))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	query := func() tea.Msg {
		return runQuerySync(ctx, tt, params, capture, queryOpts.compare)
	}

	if queryOpts.plain {
		switch msg := query().(type) {
		case queryErrorMessage:
			return msg.err
		case queryResultMessage:
			fmt.Println(queryResult(msg).String())
		}
		return nil
	}

	m := queryModel{cancel: cancel, events: events, query: query, host: params.HostPool[0]}
	m.resetProgress()
	final, err := ui.Run(m)
	if err != nil {
		return err
	}
	if m, ok := final.(queryModel); ok && m.result != nil {
		fmt.Println(m.result.String())
	}
	return nil
}

type queryResult struct {
	host         string
	now          time.Time
	sync         truetime.SyncResult
	reference    *ntp.Response
	referenceErr error
}

func formatMillis(d time.Duration, sign bool) string {
	s := strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 3, 64)
	if sign && d >= 0 {
		s = "+" + s
	}
	return s + " ms"
}

func (r queryResult) String() string {
	s := r.now.UTC().Format(time.RFC3339Nano) + "\n"
	s += fmt.Sprint(formatMillis(r.sync.ClockOffset, true), " +/- ", formatMillis(r.sync.RoundTripDelay, false), " ", r.host, " ", r.sync.Address)
	switch {
	case r.referenceErr != nil:
		s += "\n" + ui.Warn("reference query failed: "+r.referenceErr.Error())
	case r.reference != nil:
		s += "\n" + ui.Faint(fmt.Sprint("reference ", formatMillis(r.reference.ClockOffset, true), " +/- ", formatMillis(r.reference.RTT, false)))
	}
	return s
}

type queryResultMessage queryResult
type queryErrorMessage struct{ err error }
type resolvedMessage int
type requestMessage struct{}

func runQuerySync(ctx context.Context, tt *truetime.TrueTime, params truetime.Parameters, capture *resultCapture, compare bool) tea.Msg {
	now, err := tt.Initialize(ctx, params)
	if err != nil {
		return queryErrorMessage{err}
	}

	result := queryResult{host: params.HostPool[0], now: now, sync: capture.get()}
	if compare {
		result.reference, result.referenceErr = ntp.QueryWithOptions(result.sync.Address, ntp.QueryOptions{
			Timeout: params.ConnectionTimeout,
		})
	}
	return queryResultMessage(result)
}

// resultCapture keeps the selected result of the sync.
type resultCapture struct {
	truetime.NoOpEventListener

	mu     sync.Mutex
	result truetime.SyncResult
}

func (c *resultCapture) SyncSucceeded(result truetime.SyncResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result = result
}

func (c *resultCapture) get() truetime.SyncResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// progressListener feeds the progress bar. Events are dropped rather than
// stall the sync when the display falls behind.
type progressListener struct {
	truetime.NoOpEventListener
	events chan<- tea.Msg
}

func (l progressListener) send(msg tea.Msg) {
	select {
	case l.events <- msg:
	default:
	}
}

func (l progressListener) HostResolved(_ string, addresses []string) {
	l.send(resolvedMessage(min(len(addresses), truetime.MaxAddresses)))
}

func (l progressListener) RequestSucceeded(truetime.SyncResult) {
	l.send(requestMessage{})
}

type queryModel struct {
	progress progress.Model
	cancel   context.CancelFunc
	events   <-chan tea.Msg
	query    tea.Cmd
	host     string

	requests int
	done     int
	result   *queryResult
	err      error
}

func listenCommand(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func (m *queryModel) resetProgress() {
	m.progress = progress.New(progress.WithScaledGradient("#68b1b1", string(ui.Accent)))
}

func (m queryModel) percent() float64 {
	if m.requests == 0 {
		return 0
	}
	return min(float64(m.done)/float64(m.requests), 1)
}

func (m queryModel) Init() tea.Cmd {
	return tea.Batch(m.query, listenCommand(m.events))
}

func (m queryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancel()
			return m, tea.Quit
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.progress.Width = msg.Width - padding*2 - 4
		if m.progress.Width > maxWidth {
			m.progress.Width = maxWidth
		}
		return m, nil
	case resolvedMessage:
		m.requests = int(msg) * truetime.RequestsPerAddress
		return m, listenCommand(m.events)
	case requestMessage:
		m.done++
		return m, listenCommand(m.events)
	case queryResultMessage:
		result := queryResult(msg)
		m.result = &result
		return m, tea.Quit
	case queryErrorMessage:
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m queryModel) View() (s string) {
	if m.err != nil || m.result != nil {
		return
	}

	s += ui.Title("TrueTime - Query "+m.host) + "\n\n"
	s += m.progress.ViewAs(m.percent()) + "\n\n"
	s += ui.Help("q: exit") + "\n"
	return
}

func (m queryModel) Err() error {
	return m.err
}
