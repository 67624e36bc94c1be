// SPDX-License-Identifier: MIT
package piano

import (
	"context"
	"errors"
	"sync/atomic"

	"voicepiano/internal/analysis"
	"voicepiano/internal/fft"
	"voicepiano/internal/frame"
	"voicepiano/internal/log"
)

// ErrBusy is returned when a session is asked to play while already
// playing.
var ErrBusy = errors.New("session is already playing")

// Session owns everything that lives for one voice-to-piano run: the
// analyzer (with its note table and transform cache) and the key state.
type Session struct {
	analyzer *analysis.Analyzer
	state    State
	playing  atomic.Bool
}

// NewSession builds the analysis pipeline. A nil engine gets a private
// twiddle cache.
func NewSession(cfg analysis.Config, engine *fft.Engine) (*Session, error) {
	a, err := analysis.NewAnalyzer(cfg, engine)
	if err != nil {
		return nil, err
	}
	return &Session{analyzer: a}, nil
}

// Analyzer returns the session's analyzer.
func (s *Session) Analyzer() *analysis.Analyzer { return s.analyzer }

// State returns the session's key state.
func (s *Session) State() *State { return &s.state }

// PlayOptions selects pacing and collaborators for one playback.
type PlayOptions struct {
	Realtime bool
	Sink     Sink
	Observer FrameObserver
}

// Play analyses buf and plays it. An empty buffer returns
// frame.ErrNoAudioData and leaves the state untouched; otherwise the state
// is reset before the first frame.
func (s *Session) Play(ctx context.Context, buf frame.Buffer, opts PlayOptions) error {
	results, err := s.analyzer.AnalyzeBuffer(ctx, buf)
	if err != nil {
		return err
	}
	return s.PlayResults(ctx, results, opts)
}

// PlayResults plays already analysed frames.
func (s *Session) PlayResults(ctx context.Context, results []analysis.FrameResult, opts PlayOptions) error {
	if !s.playing.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.playing.Store(false)

	s.state.Reset()
	player, err := NewPlayer(PlayerConfig{
		Period:   s.analyzer.Config().FramePeriod(),
		Realtime: opts.Realtime,
	}, &s.state, opts.Sink, opts.Observer)
	if err != nil {
		return err
	}

	if err := player.Run(ctx, results); err != nil {
		log.Warnf("Session: Playback interrupted: %v", err)
		return err
	}
	return nil
}
