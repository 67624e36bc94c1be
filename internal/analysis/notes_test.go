// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

func TestNoteTable(t *testing.T) {
	table := NewNoteTable()

	tests := []struct {
		name  string
		index int
		want  float64
	}{
		{"A0", 0, 27.5},
		{"A1", 12, 55},
		{"A4", 48, 440},
		{"C8", 87, 4186.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := table.Frequency(tt.index); math.Abs(got-tt.want) > 0.01 {
				t.Errorf("Frequency(%d) = %f, want %f", tt.index, got, tt.want)
			}
			if got := NoteName(tt.index); got != tt.name {
				t.Errorf("NoteName(%d) = %q, want %q", tt.index, got, tt.name)
			}
		})
	}

	if got := table.Frequency(-1); got != 0 {
		t.Errorf("Frequency(-1) = %f, want 0", got)
	}
	if got := table.Frequency(NumKeys); got != 0 {
		t.Errorf("Frequency(%d) = %f, want 0", NumKeys, got)
	}
}

func TestNearestExactFrequencies(t *testing.T) {
	table := NewNoteTable()
	for i := range NumKeys {
		got, ok := table.Nearest(table[i])
		if !ok || got != i {
			t.Errorf("Nearest(%f) = %d, %v; want %d, true", table[i], got, ok, i)
		}
	}
}

func TestNearestMidpointFavoursLowerKey(t *testing.T) {
	table := NewNoteTable()
	for i := range NumKeys - 1 {
		mid := (table[i] + table[i+1]) / 2
		if got, _ := table.Nearest(mid); got != i {
			t.Errorf("midpoint %f between keys %d and %d mapped to %d", mid, i, i+1, got)
		}
		// Just past the midpoint belongs to the upper key.
		above := mid + (table[i+1]-table[i])*1e-6
		if got, _ := table.Nearest(above); got != i+1 {
			t.Errorf("%f just above midpoint mapped to %d, want %d", above, got, i+1)
		}
	}
}

func TestNearestOutOfRange(t *testing.T) {
	table := NewNoteTable()
	for _, f := range []float64{0, 27.4, 4186.1, 20000, math.NaN()} {
		if _, ok := table.Nearest(f); ok {
			t.Errorf("Nearest(%f) reported in range", f)
		}
	}
	if got, ok := table.Nearest(HighestFrequency); !ok || got != NumKeys-1 {
		t.Errorf("Nearest(%f) = %d, %v; want %d, true", HighestFrequency, got, ok, NumKeys-1)
	}
}

func TestNoteNames(t *testing.T) {
	tests := map[int]string{
		1:  "A#0",
		2:  "B0",
		3:  "C1",
		39: "C4",
		40: "C#4",
		-1: "?-1",
		88: "?88",
	}
	for index, want := range tests {
		if got := NoteName(index); got != want {
			t.Errorf("NoteName(%d) = %q, want %q", index, got, want)
		}
	}

	ev := NoteEvent{Note: 48, Amplitude: 0.5}
	if got := ev.String(); got != "A4@0.50" {
		t.Errorf("String() = %q, want %q", got, "A4@0.50")
	}
}

func TestParseNote(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"48", 48, false},
		{" 0 ", 0, false},
		{"A4", 48, false},
		{"c#4", 40, false},
		{"C8", 87, false},
		{"88", 0, true},
		{"-1", 0, true},
		{"H2", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseNote(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseNote(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseNote(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func BenchmarkNearest(b *testing.B) {
	table := NewNoteTable()
	b.ReportAllocs()
	for b.Loop() {
		_, _ = table.Nearest(441.43)
	}
}
