// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Piano range constants. Key 0 is A0 and key 87 is C8.
const (
	NumKeys          = 88
	LowestFrequency  = 27.5   // A0
	HighestFrequency = 4186.0 // C8, rounded
)

// NoteEvent is one mapped note: a key index in [0, NumKeys) and an
// amplitude in [0, 1]. Off-events carry amplitude 0.
type NoteEvent struct {
	Note      int
	Amplitude float64
}

// String renders the event as "A4@0.87".
func (e NoteEvent) String() string {
	return fmt.Sprintf("%s@%.2f", NoteName(e.Note), e.Amplitude)
}

// NoteTable holds the equal-tempered reference frequencies of the 88 keys,
// freq(i) = 27.5 * 2^(i/12).
type NoteTable [NumKeys]float64

// NewNoteTable builds the equal-tempered table.
func NewNoteTable() *NoteTable {
	var t NoteTable
	for i := range t {
		t[i] = LowestFrequency * math.Pow(2, float64(i)/12)
	}
	return &t
}

// Frequency returns the reference frequency of key i, or 0 when i is out
// of range.
func (t *NoteTable) Frequency(i int) float64 {
	if i < 0 || i >= NumKeys {
		return 0
	}
	return t[i]
}

// Nearest returns the key whose reference frequency is closest to f.
// A frequency exactly halfway between two keys maps to the lower key.
// ok is false when f lies outside [LowestFrequency, HighestFrequency].
func (t *NoteTable) Nearest(f float64) (index int, ok bool) {
	if math.IsNaN(f) || f < LowestFrequency || f > HighestFrequency {
		return 0, false
	}

	index = int(math.Floor(12 * math.Log2(f/LowestFrequency)))
	if index >= NumKeys-1 {
		return NumKeys - 1, true
	}
	if index < 0 {
		index = 0
	}

	// Distances within tieEpsilon of each other count as a tie.
	below := f - t[index]
	above := t[index+1] - f
	if below-above > tieEpsilon*f {
		index++
	}
	return index, true
}

const tieEpsilon = 1e-9

var noteNames = [12]string{"A", "A#", "B", "C", "C#", "D", "D#", "E", "F", "F#", "G", "G#"}

// NoteName returns the scientific pitch name of key i ("A0", "C4", "C8").
func NoteName(i int) string {
	if i < 0 || i >= NumKeys {
		return fmt.Sprintf("?%d", i)
	}
	// Octave numbers roll over at C, three keys above A.
	return fmt.Sprintf("%s%d", noteNames[i%12], (i+9)/12)
}

// ParseNote accepts a key index ("48") or a pitch name ("A4", "c#5").
func ParseNote(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n >= NumKeys {
			return 0, fmt.Errorf("key %d out of range [0, %d)", n, NumKeys)
		}
		return n, nil
	}
	for i := range NumKeys {
		if strings.EqualFold(NoteName(i), s) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown note %q", s)
}
