// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"strings"
	"testing"

	"voicepiano/internal/analysis"
	"voicepiano/internal/audio"

	tea "github.com/charmbracelet/bubbletea"
)

func update(t *testing.T, m tea.Model, msgs ...tea.Msg) tea.Model {
	t.Helper()
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	return m
}

func TestKeyboardModelKeys(t *testing.T) {
	m := update(t, NewKeyboardModel("test"),
		keyMsg{note: 48, amplitude: 0.5, on: true},
		keyMsg{note: 39, amplitude: 0, on: true},
		keyMsg{note: 200, on: true},
	).(KeyboardModel)

	if got := m.Held(); len(got) != 2 || got[0] != 39 || got[1] != 48 {
		t.Fatalf("Held = %v, want [39 48]", got)
	}

	m = update(t, m, keyMsg{note: 48}).(KeyboardModel)
	if got := m.Held(); len(got) != 1 || got[0] != 39 {
		t.Errorf("Held after release = %v, want [39]", got)
	}
	if view := m.View(); !strings.Contains(view, "Held: C4") {
		t.Errorf("view lacks held key name:\n%s", view)
	}
}

func TestKeyboardModelFrame(t *testing.T) {
	m := update(t, NewKeyboardModel("test"), frameMsg{
		index: 4,
		bands: []analysis.BandLevel{{Name: "bass", Level: 0.5}},
	}, finishedMsg{}).(KeyboardModel)

	view := m.View()
	for _, want := range []string{"Frame 4", "bass", "Done"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
}

func TestKeyboardModelQuit(t *testing.T) {
	_, cmd := NewKeyboardModel("test").Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not produce QuitMsg")
	}
}

func TestRenderOctaves(t *testing.T) {
	line := renderOctaves()
	if !strings.HasPrefix(line, "   C1") || !strings.HasSuffix(line, "C8") {
		t.Errorf("octave line = %q", line)
	}
	if !isBlack(1) || isBlack(0) || isBlack(3) {
		t.Error("isBlack misclassifies A0/A#0/C1")
	}
}

func testDevices() []audio.Device {
	return []audio.Device{
		{ID: 0, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 48000},
		{ID: 1, Name: "Mic", MaxInputChannels: 1, DefaultSampleRate: 48000},
		{ID: 2, Name: "Interface", MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 96000},
	}
}

func TestDeviceListSelection(t *testing.T) {
	m := NewDeviceListModel()
	m.fetch = func() ([]audio.Device, error) { return testDevices(), nil }

	msg := m.Init()()
	dm, ok := msg.(devicesMsg)
	if !ok {
		t.Fatalf("Init produced %T", msg)
	}
	if len(dm.devices) != 2 {
		t.Fatalf("got %d input devices, want 2", len(dm.devices))
	}

	var model tea.Model = m
	model = update(t, model,
		tea.WindowSizeMsg{Width: 80, Height: 24},
		dm,
		tea.KeyMsg{Type: tea.KeyDown},
		tea.KeyMsg{Type: tea.KeyEnter},
		tea.KeyMsg{Type: tea.KeyUp},
	)
	if !strings.Contains(model.View(), "Interface") {
		t.Errorf("config screen lacks device name:\n%s", model.View())
	}

	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("confirming should quit")
	}
	sel := model.(DeviceListModel).Selection()
	want := Selection{DeviceID: 2, DeviceName: "Interface", SampleRate: 88200}
	if sel == nil || *sel != want {
		t.Errorf("Selection = %+v, want %+v", sel, want)
	}
}

func TestDeviceListError(t *testing.T) {
	m := NewDeviceListModel()
	m.fetch = func() ([]audio.Device, error) { return nil, errors.New("no host") }

	model := update(t, m, m.Init()())
	if !strings.Contains(model.View(), "no host") {
		t.Errorf("view lacks error:\n%s", model.View())
	}
	if model.(DeviceListModel).Selection() != nil {
		t.Error("Selection should be nil")
	}
}
