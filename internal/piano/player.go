// SPDX-License-Identifier: MIT
package piano

import (
	"context"
	"fmt"
	"time"

	"voicepiano/internal/analysis"
	"voicepiano/internal/log"
)

// PlayerConfig sets the cadence. Realtime paces frames on a ticker of
// Period; otherwise frames are emitted back to back with their nominal
// offsets, for rendering and export.
type PlayerConfig struct {
	Period   time.Duration
	Realtime bool
}

// Player is the single owner of a State during playback: it advances the
// scheduler once per frame and pushes the transitions to its sink.
type Player struct {
	cfg       PlayerConfig
	scheduler Scheduler
	state     *State
	sink      Sink
	observer  FrameObserver
}

// NewPlayer binds a player to state. sink and observer may be nil.
func NewPlayer(cfg PlayerConfig, state *State, sink Sink, observer FrameObserver) (*Player, error) {
	if cfg.Period <= 0 {
		return nil, fmt.Errorf("frame period must be positive, got %v", cfg.Period)
	}
	if state == nil {
		state = new(State)
	}
	if sink == nil {
		sink = Sinks(nil)
	}
	if observer == nil {
		observer = Observers(nil)
	}
	return &Player{cfg: cfg, state: state, sink: sink, observer: observer}, nil
}

// State returns the keys the player considers sounding.
func (p *Player) State() *State { return p.state }

// Run plays results in order. It returns ctx's error if cancelled between
// frames. Whatever the outcome, every key still sounding receives a
// synthetic off-event before Run returns; the state itself is left as-is.
func (p *Player) Run(ctx context.Context, results []analysis.FrameResult) error {
	log.Infof("Player: Playing %d frames at %v per frame (realtime: %v)", len(results), p.cfg.Period, p.cfg.Realtime)

	var tick <-chan time.Time
	if p.cfg.Realtime {
		ticker := time.NewTicker(p.cfg.Period)
		defer ticker.Stop()
		tick = ticker.C
	}

	// next is the offset at which the following frame would start.
	var next time.Duration
	defer func() { p.release(next) }()

	for i, res := range results {
		if err := ctx.Err(); err != nil {
			log.Infof("Player: Stopped after %d of %d frames", i, len(results))
			return err
		}

		at := time.Duration(i) * p.cfg.Period
		p.step(at, res)
		next = at + p.cfg.Period

		// The last frame holds its notes for a full period too.
		if tick != nil {
			select {
			case <-ctx.Done():
				log.Infof("Player: Stopped after %d of %d frames", i+1, len(results))
				return ctx.Err()
			case <-tick:
			}
		}
	}

	log.Debugf("Player: Finished at %v", next)
	return nil
}

func (p *Player) step(at time.Duration, res analysis.FrameResult) {
	p.observer.ObserveFrame(at, res)

	on, off := p.scheduler.Advance(res.Notes, p.state)
	for _, ev := range off {
		p.sink.NoteOff(at, ev.Note)
	}
	for _, ev := range on {
		p.sink.NoteOn(at, ev)
	}
	if len(on)+len(off) > 0 {
		log.Debugf("Player: Frame %d at %v: %d on, %d off, %d sounding", res.Index, at, len(on), len(off), p.state.Count())
	}
}

// release sends an off-event for every sounding key without touching the
// state.
func (p *Player) release(at time.Duration) {
	for _, key := range p.state.Sounding() {
		p.sink.NoteOff(at, key)
	}
}
