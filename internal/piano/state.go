// SPDX-License-Identifier: MIT

// Package piano turns per-frame note sets into a timed note-on/note-off
// stream and drives it to the sound and display collaborators.
package piano

import "voicepiano/internal/analysis"

// State records which keys are sounding. It is the only state carried from
// one frame to the next.
type State [analysis.NumKeys]bool

// Reset silences every key.
func (s *State) Reset() { *s = State{} }

// Sounding returns the ascending indices of sounding keys.
func (s *State) Sounding() []int {
	var keys []int
	for i, on := range s {
		if on {
			keys = append(keys, i)
		}
	}
	return keys
}

// Count returns the number of sounding keys.
func (s *State) Count() int {
	n := 0
	for _, on := range s {
		if on {
			n++
		}
	}
	return n
}

// Scheduler diffs each frame's notes against the sounding keys.
type Scheduler struct{}

// Advance updates state to match events and returns the transitions, both
// in ascending note order. Keys already sounding are left alone, so a held
// tone is never re-attacked. events must be ascending by note; entries
// outside the keyboard are ignored. Off-events carry amplitude 0.
func (Scheduler) Advance(events []analysis.NoteEvent, state *State) (on, off []analysis.NoteEvent) {
	next := 0
	for key := range state {
		for next < len(events) && events[next].Note < key {
			next++
		}
		present := next < len(events) && events[next].Note == key

		switch {
		case present && !state[key]:
			state[key] = true
			on = append(on, events[next])
		case !present && state[key]:
			state[key] = false
			off = append(off, analysis.NoteEvent{Note: key})
		}
	}
	return on, off
}
