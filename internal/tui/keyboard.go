// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"
	"time"

	"voicepiano/internal/analysis"
	"voicepiano/internal/piano"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

const meterWidth = 30

type keyMsg struct {
	note      int
	amplitude float64
	on        bool
}

type frameMsg struct {
	at    time.Duration
	index int
	bands []analysis.BandLevel
}

type finishedMsg struct{}

// KeyboardModel draws the 88 keys with the sounding ones lit, and a level
// meter per register.
type KeyboardModel struct {
	title    string
	pressed  [analysis.NumKeys]float64 // amplitude of each held key
	bands    []analysis.BandLevel
	at       time.Duration
	frame    int
	finished bool
}

// NewKeyboardModel creates an idle keyboard.
func NewKeyboardModel(title string) KeyboardModel {
	return KeyboardModel{title: title, frame: -1}
}

func (m KeyboardModel) Init() tea.Cmd { return nil }

func (m KeyboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case keyMsg:
		if msg.note >= 0 && msg.note < analysis.NumKeys {
			if msg.on {
				m.pressed[msg.note] = max(msg.amplitude, 0.01)
			} else {
				m.pressed[msg.note] = 0
			}
		}
	case frameMsg:
		m.at = msg.at
		m.frame = msg.index
		m.bands = msg.bands
	case finishedMsg:
		m.finished = true
	case tea.KeyMsg:
		if key.Matches(msg, quitKeys) {
			return m, tea.Quit
		}
	}
	return m, nil
}

// Held returns the held keys in ascending order.
func (m KeyboardModel) Held() []int {
	var held []int
	for i, a := range m.pressed {
		if a > 0 {
			held = append(held, i)
		}
	}
	return held
}

func (m KeyboardModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")
	sb.WriteString(m.renderKeys())
	sb.WriteString("\n")
	sb.WriteString(renderOctaves())
	sb.WriteString("\n\n")

	names := make([]string, 0, 8)
	for _, n := range m.Held() {
		names = append(names, analysis.NoteName(n))
	}
	sb.WriteString(fmt.Sprintf("Held: %s\n", strings.Join(names, " ")))
	if m.frame >= 0 {
		sb.WriteString(fmt.Sprintf("Frame %d at %.2fs\n", m.frame, m.at.Seconds()))
	}
	sb.WriteString("\n")

	for _, b := range m.bands {
		filled := int(b.Level*meterWidth + 0.5)
		filled = max(0, min(meterWidth, filled))
		bar := meterStyle.Render(strings.Repeat("█", filled)) + strings.Repeat("·", meterWidth-filled)
		sb.WriteString(fmt.Sprintf("%-7s %s\n", b.Name, bar))
	}

	sb.WriteString("\n")
	if m.finished {
		sb.WriteString(infoStyle.Render("Done • q: Quit"))
	} else {
		sb.WriteString(infoStyle.Render("q: Quit"))
	}
	return sb.String()
}

// renderKeys draws one cell per key.
func (m KeyboardModel) renderKeys() string {
	var sb strings.Builder
	for i := range analysis.NumKeys {
		switch {
		case m.pressed[i] > 0:
			sb.WriteString(pressedKeyStyle.Render("▀"))
		case isBlack(i):
			sb.WriteString(blackKeyStyle.Render(" "))
		default:
			sb.WriteString(whiteKeyStyle.Render(" "))
		}
	}
	return sb.String()
}

// renderOctaves labels every C under its key.
func renderOctaves() string {
	line := []byte(strings.Repeat(" ", analysis.NumKeys+1))
	for i := range analysis.NumKeys {
		name := analysis.NoteName(i)
		if name[0] == 'C' && name[1] != '#' {
			copy(line[i:], name)
		}
	}
	return strings.TrimRight(string(line), " ")
}

func isBlack(note int) bool {
	return strings.Contains(analysis.NoteName(note), "#")
}

// Keyboard shows the playback on a terminal keyboard. It is a piano.Sink
// and a piano.FrameObserver; messages are forwarded to the running
// program.
type Keyboard struct {
	program    *tea.Program
	sampleRate float64
	frameSize  int
	maxValue   float64
}

// NewKeyboard prepares the keyboard for frames analysed by a. Run must be
// started before any events are sent.
func NewKeyboard(title string, a *analysis.Analyzer, opts ...tea.ProgramOption) *Keyboard {
	cfg := a.Config()
	return &Keyboard{
		program:    tea.NewProgram(NewKeyboardModel(title), opts...),
		sampleRate: cfg.SampleRate,
		frameSize:  cfg.FrameSize,
		maxValue:   cfg.Level.MaxValue(cfg.FrameSize),
	}
}

// Run blocks until the user quits or Quit is called.
func (k *Keyboard) Run() error {
	_, err := k.program.Run()
	return err
}

// Finished marks playback as over; the keyboard stays up until q.
func (k *Keyboard) Finished() { k.program.Send(finishedMsg{}) }

// Quit closes the keyboard.
func (k *Keyboard) Quit() { k.program.Quit() }

func (k *Keyboard) NoteOn(_ time.Duration, ev analysis.NoteEvent) {
	k.program.Send(keyMsg{note: ev.Note, amplitude: ev.Amplitude, on: true})
}

func (k *Keyboard) NoteOff(_ time.Duration, note int) {
	k.program.Send(keyMsg{note: note})
}

func (k *Keyboard) ObserveFrame(at time.Duration, res analysis.FrameResult) {
	k.program.Send(frameMsg{
		at:    at,
		index: res.Index,
		bands: analysis.BandLevels(analysis.PianoBands, res.Spectrum, k.sampleRate, k.frameSize, k.maxValue),
	})
}

var (
	_ piano.Sink          = (*Keyboard)(nil)
	_ piano.FrameObserver = (*Keyboard)(nil)
)
