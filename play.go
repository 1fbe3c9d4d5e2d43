/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

const (
	frameInterval = 100 * time.Millisecond
	fadeDuration  = 800 * time.Millisecond
	skyHeight     = 5
)

var (
	goldColor = lipgloss.Color("#c9a24a")
	inkColor  = lipgloss.Color("#f5e6c4")
	dimColor  = lipgloss.Color("#7a6a55")

	coverStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(goldColor).
			Foreground(inkColor).
			Padding(2, 6).
			Align(lipgloss.Center)
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(goldColor).
			Foreground(inkColor).
			Padding(1, 4).
			Width(48).
			Align(lipgloss.Center)
	textStyle = lipgloss.NewStyle().Foreground(inkColor).Width(48).Align(lipgloss.Center)
	hintStyle = lipgloss.NewStyle().Foreground(dimColor)
	fadeStyle = lipgloss.NewStyle().Foreground(dimColor).Italic(true)
	ansStyle  = lipgloss.NewStyle().Foreground(inkColor).Italic(true).Bold(true)
)

// bell rings the terminal bell; it is the closest a terminal gets to a
// sound effect.
type bell struct {
	w io.Writer
}

func (b bell) Play(clip Clip) error {
	rings := 1
	if clip == ClipReveal {
		rings = 2
	}

	_, err := io.WriteString(b.w, strings.Repeat("\a", rings))

	return err
}

// termView records what the book wants shown so View can render it.
type termView struct {
	stage     Stage
	active    bool
	opening   bool
	answer    *Answer
	fadeUntil time.Time
	muted     bool
	now       func() time.Time
}

func (v *termView) Stage(stage Stage, active bool) {
	v.stage = stage
	v.active = active
}

func (v *termView) Opening(opening bool) {
	v.opening = opening
}

func (v *termView) Answer(answer Answer, replay bool) {
	v.answer = &answer
	v.fadeUntil = v.now().Add(fadeDuration)
}

func (v *termView) Muted(muted bool) {
	v.muted = muted
}

type callMsg func()

type frameMsg time.Time

type playModel struct {
	cfg     *Config
	book    *Book
	view    *termView
	calls   chan func()
	done    chan struct{}
	started time.Time
	now     time.Time
	width   int
}

func newPlayModel(cfg *Config, sched Scheduler, player Player, rng *rand.Rand) (*playModel, error) {
	m := &playModel{
		cfg:     cfg,
		calls:   make(chan func(), 8),
		done:    make(chan struct{}),
		started: time.Now(),
		width:   80,
	}
	m.now = m.started
	m.view = &termView{
		stage:  StageCover,
		active: true,
		muted:  cfg.muted,
		now:    func() time.Time { return m.now },
	}

	if sched == nil {
		sched = loopScheduler{post: m.post}
	}

	book, err := newBook(cfg, cfg.pool, sched, player, m.view, rng)
	if err != nil {
		return nil, err
	}
	m.book = book

	return m, nil
}

func (m *playModel) post(f func()) {
	select {
	case m.calls <- f:
	case <-m.done:
	}
}

func (m *playModel) waitForCall() tea.Cmd {
	return func() tea.Msg {
		select {
		case f := <-m.calls:
			return callMsg(f)
		case <-m.done:
			return nil
		}
	}
}

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m *playModel) Init() tea.Cmd {
	return tea.Batch(m.waitForCall(), frame())
}

func (m *playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		return m, nil
	case callMsg:
		typed()
		return m, m.waitForCall()
	case frameMsg:
		m.now = time.Time(typed)
		return m, frame()
	case tea.KeyMsg:
		return m, m.handleKey(typed)
	}
	return m, nil
}

func (m *playModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	var err error

	switch msg.String() {
	case "ctrl+c", "q":
		m.book.Close()
		return tea.Quit
	case "enter":
		err = m.book.Key(KeyEnter)
	case " ":
		err = m.book.Key(KeySpace)
	case "esc":
		err = m.book.Key(KeyEscape)
	case "m":
		m.book.ToggleMute()
	default:
		return nil
	}

	if err != nil {
		logf(m.cfg, "PLAY: %s: %v", msg.String(), err)
	}

	return nil
}

func (m *playModel) View() string {
	sections := []string{m.renderSky(), m.renderStage(), m.renderFooter()}

	return lipgloss.JoinVertical(lipgloss.Center, sections...)
}

func (m *playModel) renderStage() string {
	v := m.view
	if !v.active {
		return lipgloss.NewStyle().Height(9).Render("")
	}

	switch v.stage {
	case StageCover:
		hint := "press enter to open"
		if v.opening {
			hint = "the cover creaks open..."
		}
		return coverStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
			lipgloss.NewStyle().Foreground(goldColor).Render("✦"),
			"",
			"The Book of Answers",
			"",
			hintStyle.Render(hint),
		))
	case StageInstruction:
		return lipgloss.JoinVertical(lipgloss.Center,
			textStyle.Render("Hold a yes-or-no question in your mind."),
			textStyle.Render("Focus on it for a moment, then ask the book."),
			"",
			hintStyle.Render("[enter] reveal my answer"),
		)
	case StageAnswer:
		if v.answer == nil {
			return ""
		}
		style := ansStyle
		if m.now.Before(v.fadeUntil) {
			style = fadeStyle
		}
		return lipgloss.JoinVertical(lipgloss.Center,
			cardStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
				style.Render(fmt.Sprintf("“%s”", v.answer.Text)),
				"",
				hintStyle.Render(fmt.Sprintf("#%d", v.answer.Number)),
			)),
			hintStyle.Render("[enter] ask again   [esc] start over"),
		)
	}

	return ""
}

// renderSky draws the particles drifting upward through a short band of rows.
func (m *playModel) renderSky() string {
	width := max(m.width, 1)

	rows := make([][]string, skyHeight)
	for i := range rows {
		rows[i] = make([]string, width)
		for j := range rows[i] {
			rows[i][j] = " "
		}
	}

	elapsed := m.now.Sub(m.started).Seconds()

	for _, p := range m.book.Snapshot().Particles {
		progress := math.Mod(elapsed+p.Delay, p.Duration) / p.Duration
		row := skyHeight - 1 - int(progress*skyHeight)
		col := int(p.Left / 100 * float64(width))
		if row < 0 || row >= skyHeight || col < 0 || col >= width {
			continue
		}

		glyph := "·"
		if p.Size >= 4 {
			glyph = "✦"
		}
		rows[row][col] = lipgloss.NewStyle().Foreground(lipgloss.Color(p.Color)).Render(glyph)
	}

	lines := make([]string, skyHeight)
	for i, row := range rows {
		lines[i] = strings.Join(row, "")
	}

	return strings.Join(lines, "\n")
}

func (m *playModel) renderFooter() string {
	sound := "on"
	if m.view.muted {
		sound = "off"
	}

	return hintStyle.Render(fmt.Sprintf("\nenter/space continue · esc start over · m sound (%s) · q quit", sound))
}

func newPlayCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Open the magic book in the terminal.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newPlayModel(cfg, nil, bell{w: os.Stderr}, nil)
			if err != nil {
				return err
			}
			defer close(m.done)

			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

			_, err = p.Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}

			return err
		},
	}
}
