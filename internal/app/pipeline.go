package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/holdfast/internal/capture"
)

// frameFunc handles one frame and reports whether the loop is done. The
// frame is closed after it returns.
type frameFunc func(frame *gocv.Mat) (done bool, err error)

// runPipeline reads frames from the camera and hands each to fn until fn is
// done, fn fails, ctx is cancelled or the camera runs out of frames. End of
// stream and a closed camera are returned as-is so callers can tell them
// apart from read failures.
func (a *App) runPipeline(ctx context.Context, fn frameFunc) error {
	var tick <-chan time.Time
	if a.config.FrameInterval > 0 {
		ticker := time.NewTicker(a.config.FrameInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	failures := 0
	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrEndOfStream) || errors.Is(err, capture.ErrCameraNotOpen) {
				return err
			}
			failures++
			if failures >= maxReadFailures {
				return fmt.Errorf("read frame: %w", err)
			}
			a.logger.Warn("read frame failed", zap.Error(err), zap.Int("failures", failures))
			continue
		}
		failures = 0

		done, err := fn(frame)
		frame.Close()
		if err != nil || done {
			return err
		}
	}
}
