// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"voicepiano/internal/audio"
	"voicepiano/internal/build"
	"voicepiano/internal/frame"
	"voicepiano/internal/log"
	"voicepiano/internal/observe"
	"voicepiano/internal/piano"
	"voicepiano/internal/synth"
	"voicepiano/internal/transport"
	"voicepiano/internal/transport/udp"
	"voicepiano/internal/tui"
)

// newSession builds a session for audio recorded at sampleRate.
func (a *app) newSession(sampleRate float64) (*piano.Session, error) {
	cfg := *a.cfg
	cfg.Audio.SampleRate = sampleRate
	acfg, err := cfg.AnalysisConfig()
	if err != nil {
		return nil, err
	}
	return piano.NewSession(acfg, nil)
}

// loadWAV reads a WAV file and a session matching its sample rate.
func (a *app) loadWAV(path string) (frame.Buffer, *piano.Session, error) {
	buf, err := audio.LoadWAV(path)
	if err != nil {
		return frame.Buffer{}, nil, err
	}
	session, err := a.newSession(buf.SampleRate)
	if err != nil {
		return frame.Buffer{}, nil, err
	}
	return buf, session, nil
}

// outputs are the collaborators attached to one playback.
type outputs struct {
	sinks     piano.Sinks
	observers piano.Observers
	keyboard  *tui.Keyboard
	closers   []func()
}

func (o *outputs) close() {
	for i := len(o.closers) - 1; i >= 0; i-- {
		o.closers[i]()
	}
}

type outputFlags struct {
	synth    bool
	keyboard bool
}

// openOutputs starts the synth, keyboard, network transports and metrics
// selected by the configuration.
func (a *app) openOutputs(ctx context.Context, session *piano.Session, flags outputFlags) (*outputs, error) {
	cfg := a.cfg
	analyzer := session.Analyzer()
	out := &outputs{}

	routes := make(map[string]http.Handler)
	if cfg.Transport.MetricsEnabled {
		meters := a.meters
		if meters == nil {
			provider, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: build.Get().Version})
			if err != nil {
				return nil, err
			}
			out.closers = append(out.closers, func() { _ = provider.Shutdown(context.Background()) })
			routes["/metrics"] = provider.Handler
			meters = provider.MeterProvider
		}

		metrics, err := observe.NewMetrics(meters)
		if err != nil {
			out.close()
			return nil, err
		}
		analyzer.SetObserver(metrics)
		out.sinks = append(out.sinks, metrics)
	}

	if flags.synth {
		s, err := synth.New(synth.DefaultSampleRate, cfg.Playback.Gain)
		if err != nil {
			out.close()
			return nil, err
		}
		if err := s.Start(); err != nil {
			out.close()
			return nil, err
		}
		out.closers = append(out.closers, s.Close)
		out.sinks = append(out.sinks, s)
	}

	if cfg.Transport.WebSocketEnabled {
		wst := transport.NewWebSocketTransport()
		wst.ListenAndServe(cfg.Transport.HTTPAddress, routes)
		out.closers = append(out.closers, func() { _ = wst.Close() })
		b := transport.NewBroadcaster(wst, analyzer)
		out.sinks = append(out.sinks, b)
		out.observers = append(out.observers, b)
	} else if len(routes) > 0 {
		srv := serveRoutes(cfg.Transport.HTTPAddress, routes)
		out.closers = append(out.closers, func() { _ = srv.Close() })
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			out.close()
			return nil, err
		}
		publisher, err := udp.NewPublisher(0, sender)
		if err != nil {
			sender.Close()
			out.close()
			return nil, err
		}
		publisher.Start()
		out.closers = append(out.closers, func() {
			_ = publisher.Close()
			_ = sender.Close()
		})
		out.observers = append(out.observers, publisher)
	}

	if log.Enabled(log.LevelDebug) && !flags.keyboard {
		b := transport.NewBroadcaster(transport.NewLoggingTransport(), analyzer)
		out.sinks = append(out.sinks, b)
	}

	if flags.keyboard {
		out.keyboard = tui.NewKeyboard("voicepiano", analyzer, a.keyboardOpts...)
		out.sinks = append(out.sinks, out.keyboard)
		out.observers = append(out.observers, out.keyboard)
	}
	return out, nil
}

// serveRoutes serves routes on addr in the background.
func serveRoutes(addr string, routes map[string]http.Handler) *http.Server {
	mux := http.NewServeMux()
	for pattern, h := range routes {
		mux.Handle(pattern, h)
	}
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Infof("HTTP: Serving on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("HTTP: Server error: %v", err)
		}
	}()
	return srv
}

// perform plays buf through the configured outputs. The outputs open first
// so analysis is already observed. With the keyboard on, quitting it cancels
// playback and the keyboard stays up after the last frame until the user
// quits; cancelling ctx closes it.
func (a *app) perform(ctx context.Context, session *piano.Session, buf frame.Buffer, flags outputFlags) error {
	out, err := a.openOutputs(ctx, session, flags)
	if err != nil {
		return err
	}
	defer out.close()

	results, err := session.Analyzer().AnalyzeBuffer(ctx, buf)
	if err != nil {
		return err
	}
	log.Infof("Play: %d frames, %.2fs", len(results), buf.Duration())

	opts := piano.PlayOptions{
		Realtime: a.cfg.Playback.Realtime,
		Sink:     out.sinks,
		Observer: out.observers,
	}
	if out.keyboard == nil {
		return session.PlayResults(ctx, results, opts)
	}

	// The terminal belongs to the keyboard while it runs.
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)

	parent := ctx
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	uiDone := make(chan error, 1)
	go func() {
		uiDone <- out.keyboard.Run()
		cancel()
	}()
	go func() {
		<-ctx.Done()
		if parent.Err() != nil {
			out.keyboard.Quit()
		}
	}()

	playErr := session.PlayResults(ctx, results, opts)
	if ctx.Err() == nil {
		out.keyboard.Finished()
	}
	uiErr := <-uiDone
	if errors.Is(playErr, context.Canceled) {
		playErr = nil
	}
	return errors.Join(playErr, uiErr)
}
