// Package tui provides a Bubble Tea TUI for playing code tours.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/codewalk/internal/explain"
	"github.com/fakeyudi/codewalk/internal/tour"
)

// ── Styles ────────────

var (
	// Title bar at the very top
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	// Step counter on the right of the title bar
	counterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	// Section heading inside the content area
	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	// Key=value label
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	summaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	codeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	playingBadge = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	pausedBadge  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	loadingBadge = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)

	levelActiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	levelCachedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	levelOtherStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// speeds the +/- keys cycle through.
var speeds = []float64{0.5, 1.0, 1.5, 2.0}

// ── Messages ───────────────────

type tickMsg time.Time

type deepenMsg struct {
	stepIndex int
	level     explain.DetailLevel
	err       error
}

// ── Model ────────────────────

// Model is the root Bubble Tea model for the tour player.
type Model struct {
	player   *tour.Player
	baseStep time.Duration
	vp       viewport.Model
	width    int
	height   int
	ready    bool
	notice   string
}

// New creates a player model. baseStep is the unscaled per-step duration
// used during auto-play.
func New(p *tour.Player, baseStep time.Duration) Model {
	return Model{player: p, baseStep: baseStep}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewport()
		return m, nil

	case tickMsg:
		if !m.player.State().IsPlaying {
			return m, nil
		}
		m.player.Advance()
		m.rebuildContent()
		if m.player.State().IsPlaying {
			return m, m.scheduleTick()
		}
		return m, nil

	case deepenMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
		} else {
			m.notice = ""
		}
		m.rebuildContent()
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.player.State()
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "l", "right", "n":
		m.player.GoToStep(st.CurrentStepIndex + 1)
		m.notice = ""
		m.rebuildContent()
		return m, nil

	case "h", "left", "p":
		m.player.GoToStep(st.CurrentStepIndex - 1)
		m.notice = ""
		m.rebuildContent()
		return m, nil

	case "g":
		m.player.GoToStep(0)
		m.rebuildContent()
		return m, nil

	case "G":
		if t := m.player.Tour(); t != nil {
			m.player.GoToStep(len(t.Steps) - 1)
			m.rebuildContent()
		}
		return m, nil

	case " ":
		if st.IsPlaying {
			m.player.Pause()
			return m, nil
		}
		m.player.Play()
		return m, m.scheduleTick()

	case "+", "=":
		m.player.SetSpeed(nextSpeed(st.PlaybackSpeed, 1))
		return m, nil

	case "-":
		m.player.SetSpeed(nextSpeed(st.PlaybackSpeed, -1))
		return m, nil

	case "1", "2", "3", "4":
		level := explain.Levels[msg.String()[0]-'1']
		m.player.SetDetailLevel(level)
		m.rebuildContent()
		return m, m.deepenCmd(st.CurrentStepIndex, level)

	case "d":
		level := st.DetailLevel.Deeper()
		m.player.SetDetailLevel(level)
		m.rebuildContent()
		return m, m.deepenCmd(st.CurrentStepIndex, level)
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

// deepenCmd fetches an explanation off the Update loop. The player dedupes
// via its cache, so repeated keypresses cost one generator call at most.
func (m Model) deepenCmd(stepIndex int, level explain.DetailLevel) tea.Cmd {
	return func() tea.Msg {
		_, err := m.player.Deepen(context.Background(), stepIndex, level)
		return deepenMsg{stepIndex: stepIndex, level: level, err: err}
	}
}

func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.player.StepInterval(m.baseStep), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func nextSpeed(current float64, dir int) float64 {
	for i, s := range speeds {
		if s == current {
			j := i + dir
			if j < 0 {
				j = 0
			}
			if j > len(speeds)-1 {
				j = len(speeds) - 1
			}
			return speeds[j]
		}
	}
	return 1.0
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	t := m.player.Tour()
	st := m.player.State()

	// ── Row 1: title bar ──────────────────────────────────────────────────────
	title := "  codewalk"
	counter := ""
	if t != nil {
		title += "  " + t.Title
		counter = fmt.Sprintf("[%d/%d]", st.CurrentStepIndex+1, len(t.Steps))
	}
	left := titleStyle.Render(title)
	right := counterStyle.Render(counter)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	titleBar := lipgloss.NewStyle().Background(lipgloss.Color("62")).Width(m.width).
		Render(left + strings.Repeat(" ", gap) + right)

	// ── Row 2…N-1: scrollable step content ────────────────────────────────────
	content := m.vp.View()

	// ── Row N: status / hint bar ──────────────────────────────────────────────
	var badge string
	switch {
	case st.IsLoadingDeepen:
		badge = loadingBadge.Render("⋯ loading")
	case st.IsPlaying:
		badge = playingBadge.Render("▶ playing")
	default:
		badge = pausedBadge.Render("⏸ paused")
	}
	status := fmt.Sprintf("%s  %.1fx  %s", badge, st.PlaybackSpeed, m.levelBar(st))
	hint := "  ←/→ step  space play  +/- speed  d deepen  1-4 level  q quit"
	pad := m.width - lipgloss.Width(status) - lipgloss.Width(hint) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(
		status + strings.Repeat(" ", pad) + hintStyle.Render(hint),
	)

	return lipgloss.JoinVertical(lipgloss.Left, titleBar, content, statusBar)
}

// levelBar renders the four detail levels, marking the active one and the
// ones already cached for the current step.
func (m Model) levelBar(st tour.PlaybackState) string {
	cached := make(map[explain.DetailLevel]bool)
	for _, l := range m.player.CachedLevels(st.CurrentStepIndex) {
		cached[l] = true
	}
	parts := make([]string, 0, len(explain.Levels))
	for i, l := range explain.Levels {
		label := fmt.Sprintf("%d:%s", i+1, l)
		switch {
		case l == st.DetailLevel:
			parts = append(parts, levelActiveStyle.Render("["+label+"]"))
		case cached[l]:
			parts = append(parts, levelCachedStyle.Render(label))
		default:
			parts = append(parts, levelOtherStyle.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

// ── Viewport management ───────────────────────────────────────────────────────

func (m *Model) initViewport() {
	// titleBar(1) + statusBar(1) = 2 fixed rows
	vpHeight := m.height - 2
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.vp = viewport.New(m.width, vpHeight)
	m.rebuildContent()
}

func (m *Model) rebuildContent() {
	if !m.ready {
		return
	}
	m.vp.SetContent(m.renderStep())
	m.vp.GotoTop()
}

// ── Step renderer ─────────────────────────────────────────────────────────────

func (m *Model) renderStep() string {
	step := m.player.Step()
	if step == nil {
		return dimStyle.Render("\n  (this tour has no steps)")
	}

	var sb strings.Builder
	sb.WriteString("\n" + sectionHeader.Render("  "+step.Content.Summary) + "\n\n")

	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-10s", label)) + "  " + value + "\n")
	}
	row("File:", step.FilePath)
	row("Lines:", step.Range.String())
	if t := m.player.Tour(); t != nil && t.Source != nil {
		row("Branch:", t.Source.Branch)
	}

	// The stored excerpt is shown as-is; the range may no longer match the
	// file on disk.
	if step.CodeSnippet != "" {
		sb.WriteString("\n")
		sb.WriteString(codeStyle.Render(indent(step.CodeSnippet, "    ")) + "\n")
	}

	sb.WriteString("\n" + sectionHeader.Render("  Explanation") + "\n\n")
	if m.notice != "" {
		sb.WriteString(errorStyle.Render("  "+m.notice) + "\n\n")
	}
	text := m.player.CurrentExplanation()
	if text == "" {
		sb.WriteString(dimStyle.Render("  (press d to generate an explanation)") + "\n")
	} else {
		sb.WriteString(indent(wrap(text, m.width-4), "  ") + "\n")
	}

	sb.WriteString("\n" + summaryStyle.Render("  "+m.player.Tour().CreatedAt.Format("2006-01-02 15:04")) + "\n")
	return sb.String()
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

// wrap performs greedy word wrapping at the given width.
func wrap(s string, width int) string {
	if width < 20 {
		width = 20
	}
	var out []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if len(line)+1+len(w) > width {
				out = append(out, line)
				line = w
				continue
			}
			line += " " + w
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// Run starts the player TUI on the given tour.
func Run(p *tour.Player, t *tour.Tour, stepSeconds int) error {
	p.LoadTour(t)
	if stepSeconds < 1 {
		stepSeconds = 8
	}
	prog := tea.NewProgram(New(p, time.Duration(stepSeconds)*time.Second), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}
