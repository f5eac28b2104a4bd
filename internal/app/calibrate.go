package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/holdfast/internal/capture"
	"github.com/ayusman/holdfast/internal/hold"
	"github.com/ayusman/holdfast/internal/render"
	"github.com/ayusman/holdfast/internal/route"
)

// Calibrate watches the wall until it is ready and classifies its holds
// into routes. The wall is ready once the calibration duration has passed,
// the scene has been still for the configured number of frames and the
// hold detector has found something. If the stream ends first, the last
// frame with detections is used.
func (a *App) Calibrate(ctx context.Context) (*route.Routes, error) {
	if err := a.Open(); err != nil {
		return nil, err
	}
	a.setPhase(PhaseCalibrating)
	a.motion.Reset()

	var (
		wall      gocv.Mat
		haveWall  bool
		wallHolds []hold.Detection
	)
	defer func() {
		if haveWall {
			wall.Close()
		}
	}()

	cal := a.config.Calibration
	start := time.Now()
	err := a.runPipeline(ctx, func(frame *gocv.Mat) (bool, error) {
		a.motion.Detect(frame)

		holds, err := a.holds.Detect(frame)
		if err != nil {
			a.logger.Warn("hold detection failed", zap.Error(err))
		} else if len(holds) > 0 {
			if haveWall {
				wall.Close()
			}
			wall = frame.Clone()
			wallHolds = holds
			haveWall = true
		}
		a.put(frame)

		ready := haveWall &&
			a.motion.StillFrames() >= cal.StillFrames &&
			time.Since(start) >= cal.Duration
		return ready, nil
	})

	switch {
	case err == nil:
	case errors.Is(err, capture.ErrEndOfStream) && haveWall:
		a.logger.Info("stream ended during calibration, using last detections")
	case errors.Is(err, capture.ErrEndOfStream):
		a.setPhase(PhaseIdle)
		return nil, ErrNoHolds
	default:
		a.setPhase(PhaseIdle)
		return nil, fmt.Errorf("calibrate: %w", err)
	}

	routes, err := a.classifier.Classify(wall, wallHolds)
	if err != nil {
		a.setPhase(PhaseIdle)
		return nil, fmt.Errorf("classify holds: %w", err)
	}

	annotated := wall.Clone()
	render.Routes(&annotated, routes, a.font, 2)
	a.put(&annotated)
	annotated.Close()

	a.mu.Lock()
	a.routes = routes
	a.phase = PhaseSelecting
	a.mu.Unlock()

	a.logger.Info("calibrated",
		zap.Int("detections", len(wallHolds)),
		zap.Int("routes", routes.Len()),
		zap.Int("holds", routes.Total()),
		zap.Duration("took", time.Since(start)),
	)

	a.notifier.Calibrated()
	if a.config.Publisher != nil && a.config.Publisher.Enabled() {
		if err := a.config.Publisher.PublishRoutes(routes); err != nil {
			a.logger.Warn("publish routes", zap.Error(err))
		}
	}
	return routes, nil
}
