package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

const maxBarWidth = 60

type progressMsg struct {
	done  int
	total int
}

type progressModel struct {
	title string
	bar   progress.Model
	done  int
	total int
}

func newProgressModel(title string) progressModel {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = maxBarWidth
	return progressModel{title: title, bar: bar}
}

func (m progressModel) Init() tea.Cmd {
	return nil
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 20
		if m.bar.Width > maxBarWidth {
			m.bar.Width = maxBarWidth
		}
		if m.bar.Width < 10 {
			m.bar.Width = 10
		}
	case progressMsg:
		m.done, m.total = msg.done, msg.total
	}
	return m, nil
}

func (m progressModel) percent() float64 {
	if m.total <= 0 {
		return 0
	}
	return float64(m.done) / float64(m.total)
}

func (m progressModel) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(m.title) + "\n")
	s.WriteString(m.bar.ViewAs(m.percent()))
	s.WriteString(helpStyle.Render(fmt.Sprintf("  %d/%d", m.done, m.total)) + "\n")
	return s.String()
}

// Progress renders a live progress bar for a batch. Update is safe to call
// from worker goroutines.
type Progress struct {
	prog *tea.Program
	done chan struct{}
}

// NewProgress creates a progress bar writing to out. It never reads input and
// leaves signal handling to the caller.
func NewProgress(title string, out io.Writer) *Progress {
	prog := tea.NewProgram(newProgressModel(title),
		tea.WithInput(nil),
		tea.WithOutput(out),
		tea.WithoutSignalHandler(),
	)
	return &Progress{prog: prog, done: make(chan struct{})}
}

// Start begins rendering in the background.
func (p *Progress) Start() {
	go func() {
		defer close(p.done)
		_, _ = p.prog.Run()
	}()
}

// Update reports done out of total units.
func (p *Progress) Update(done, total int) {
	p.prog.Send(progressMsg{done: done, total: total})
}

// Finish stops rendering and waits for the final frame.
func (p *Progress) Finish() {
	p.prog.Quit()
	<-p.done
}
