package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/levelctl/internal/engine"
	"github.com/san-kum/levelctl/internal/lifecycle"
	"github.com/san-kum/levelctl/internal/params"
	"github.com/san-kum/levelctl/internal/storage"
	"github.com/san-kum/levelctl/internal/telemetry"
)

const (
	refresh         = time.Second / 10
	historyCapacity = 600
	gaugeRows       = 10
	referenceStep   = 0.5
	gainStep        = 1.05
)

// Controller is the read side of an engine the monitor displays.
type Controller interface {
	State() lifecycle.State
	Params() *params.Store
}

type TickMsg time.Time

type gain struct {
	name  string
	topic telemetry.Topic
	get   func(params.Snapshot) float64
}

var gains = []gain{
	{"K", telemetry.TopicGain, func(s params.Snapshot) float64 { return s.K }},
	{"Ke", telemetry.TopicObserverGain, func(s params.Snapshot) float64 { return s.Ke }},
	{"Nx", telemetry.TopicNx, func(s params.Snapshot) float64 { return s.Nx }},
	{"Nu", telemetry.TopicNu, func(s params.Snapshot) float64 { return s.Nu }},
}

// Monitor is the live dashboard model. Register Feed() as an engine
// observer before starting the program.
type Monitor struct {
	ctrl     Controller
	feed     *storage.Recorder
	send     telemetry.Publisher
	height   float64
	styles   styles
	selected int
	latest   engine.Sample
	level    []float64
	estimate []float64
	showHelp bool
}

// NewMonitor builds a dashboard for a tank of the given height. Operator
// actions are published on send.
func NewMonitor(ctrl Controller, send telemetry.Publisher, tankHeight float64) Monitor {
	return Monitor{
		ctrl:   ctrl,
		feed:   storage.NewRecorder(historyCapacity),
		send:   send,
		height: tankHeight,
		styles: newStyles(ThemeOcean),
	}
}

// Feed is the engine.Observer that fills the dashboard.
func (m Monitor) Feed() engine.Observer {
	return m.feed
}

func tick() tea.Cmd {
	return tea.Tick(refresh, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Monitor) Init() tea.Cmd {
	return tick()
}

func (m Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		snap := m.ctrl.Params().Snapshot()
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			m.publish(telemetry.TopicReference, snap.Rss+referenceStep)
		case "down", "j":
			m.publish(telemetry.TopicReference, math.Max(0, snap.Rss-referenceStep))
		case "s":
			m.publish(telemetry.TopicReference, snap.Rss)
		case "x":
			m.send.Publish(telemetry.TopicTerminate, telemetry.StopPayload)
		case "tab":
			m.selected = (m.selected + 1) % len(gains)
		case "+", "=":
			g := gains[m.selected]
			m.publish(g.topic, g.get(snap)*gainStep)
		case "-", "_":
			g := gains[m.selected]
			m.publish(g.topic, g.get(snap)/gainStep)
		case "t":
			m.styles = newStyles(NextTheme(m.styles.theme))
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		m.refresh()
		return m, tick()
	}
	return m, nil
}

func (m Monitor) publish(topic telemetry.Topic, v float64) {
	m.send.Publish(topic, telemetry.Format(v))
}

func (m *Monitor) refresh() {
	samples := m.feed.Samples()
	if len(samples) == 0 {
		return
	}
	m.latest = samples[len(samples)-1]
	m.level = m.level[:0]
	m.estimate = m.estimate[:0]
	for _, s := range samples {
		m.level = append(m.level, s.Level)
		m.estimate = append(m.estimate, s.Estimate)
	}
}

func (m Monitor) View() string {
	st := m.styles
	snap := m.ctrl.Params().Snapshot()

	var s strings.Builder
	s.WriteString(st.header.Render("LEVELCTL  "+st.state(m.ctrl.State())) + "\n")
	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", m.latest.Time))
	row("Level", fmt.Sprintf("%.2f cm", m.latest.Level))
	row("Estimate", fmt.Sprintf("%.2f cm", m.latest.Estimate))
	row("Reference", fmt.Sprintf("%.2f cm", snap.Rss))
	row("Command", fmt.Sprintf("%.2f %%", m.latest.Command))
	row("Voltage", fmt.Sprintf("%.2f V", m.latest.Voltage))
	s.WriteString("\n")
	for i, g := range gains {
		line := fmt.Sprintf("%-4s %.4f", g.name, g.get(snap))
		if i == m.selected {
			s.WriteString(st.active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + st.label.Render(line) + "\n")
		}
	}
	if len(m.level) > 1 {
		chart := asciigraph.PlotMany([][]float64{m.level, m.estimate},
			asciigraph.Height(8),
			asciigraph.Width(50),
			asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Yellow),
			asciigraph.Caption("level / estimate (cm)"))
		s.WriteString("\n" + chart + "\n")
	}
	s.WriteString(st.help.Render("↑↓:Setpoint S:Start X:Stop Tab/+/-:Gain T:Theme ?:Help Q:Quit"))

	view := lipgloss.JoinHorizontal(lipgloss.Top, st.panel.Render(m.gauge(snap.Rss)), st.panel.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + view
	}
	return view
}

// gauge draws the tank as a column of cells, filled up to the level, with
// the setpoint marked on the right.
func (m Monitor) gauge(reference float64) string {
	st := m.styles
	var b strings.Builder
	for r := gaugeRows; r >= 1; r-- {
		top := m.height * float64(r) / gaugeRows
		bottom := m.height * float64(r-1) / gaugeRows
		cell := "      "
		if m.latest.Level > bottom {
			cell = st.water.Render("██████")
		}
		mark := ""
		if reference > bottom && reference <= top {
			mark = st.mark.Render(" ◄")
		}
		fmt.Fprintf(&b, "│%s│%s\n", cell, mark)
	}
	b.WriteString("└──────┘")
	return b.String()
}

const helpText = `Keys
  Up/K     raise setpoint 0.5 cm (starts an idle experiment)
  Down/J   lower setpoint 0.5 cm
  S        start with the current setpoint
  X        terminate the experiment
  Tab      select gain
  +/-      scale selected gain by 5%
  T        cycle theme
  ?        toggle this help
  Q        quit`
