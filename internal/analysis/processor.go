// SPDX-License-Identifier: MIT
package analysis

import (
	"context"
	"time"

	"voicepiano/internal/frame"
)

// FrameAnalyzer is the per-frame analysis stage. Implementations must be
// safe for concurrent use across distinct frames.
type FrameAnalyzer interface {
	AnalyzeFrame(ctx context.Context, f frame.Frame) (FrameResult, error)
}

// BufferAnalyzer analyses a whole recording into ordered frame results.
type BufferAnalyzer interface {
	AnalyzeBuffer(ctx context.Context, buf frame.Buffer) ([]FrameResult, error)
}

// Observer is notified after each frame is analysed, possibly from several
// goroutines at once.
type Observer interface {
	FrameAnalyzed(ctx context.Context, res FrameResult, elapsed time.Duration)
}

// Compile-time checks for interface implementations.
var _ FrameAnalyzer = (*Analyzer)(nil)
var _ BufferAnalyzer = (*Analyzer)(nil)
