package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/holdfast/internal/app"
	"github.com/ayusman/holdfast/internal/capture"
	"github.com/ayusman/holdfast/internal/config"
	"github.com/ayusman/holdfast/internal/detector"
	"github.com/ayusman/holdfast/internal/feedback"
	"github.com/ayusman/holdfast/internal/logging"
	"github.com/ayusman/holdfast/internal/plugin"
	"github.com/ayusman/holdfast/internal/publish"
	"github.com/ayusman/holdfast/internal/route"
	"github.com/ayusman/holdfast/internal/server"
	"github.com/ayusman/holdfast/internal/store"
	"github.com/ayusman/holdfast/internal/tray"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "holdfast: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", config.DefaultPath(), "path to the YAML config file")
	source := flag.String("source", "", "camera device index or video file (overrides camera.source)")
	addr := flag.String("addr", "", "viewer listen address (overrides server.addr)")
	mode := flag.String("mode", "", "log mode, development or release (overrides log.mode)")
	initConfig := flag.Bool("init-config", false, "write the default config to -config and exit")
	flag.Parse()

	if *initConfig {
		if err := config.Save(*configPath, config.Default()); err != nil {
			return err
		}
		fmt.Printf("Wrote default config to %s\n", *configPath)
		return nil
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *source != "" {
		cfg.Camera.Source = *source
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *mode != "" {
		cfg.Log.Mode = *mode
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logging.Sync(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var t *tray.Tray
	if cfg.Tray.Enabled {
		t = tray.New()
	}

	climb := func(ctx context.Context) error {
		return runClimb(ctx, cfg, logger, t)
	}
	if t == nil {
		return climb(ctx)
	}

	// The tray owns the main thread; the climb runs beside it and quitting
	// either one stops the other.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	t.OnQuit(cancel)

	errCh := make(chan error, 1)
	go func() {
		errCh <- climb(ctx)
		t.Quit()
	}()
	t.Run()
	cancel()
	return <-errCh
}

// runClimb wires the components from cfg and runs calibrate, select and
// track once.
func runClimb(ctx context.Context, cfg *config.Config, logger *zap.Logger, t *tray.Tray) error {
	routeCfg, err := cfg.RouteConfig()
	if err != nil {
		return err
	}
	limbs, err := cfg.Limbs()
	if err != nil {
		return err
	}

	poses, err := detector.NewMediaPipeDetector(cfg.DetectorSettings(), logger)
	if err != nil {
		return fmt.Errorf("pose detector: %w", err)
	}
	holds, err := detector.NewYOLODetector(cfg.DetectorSettings(), logger)
	if err != nil {
		poses.Close()
		return fmt.Errorf("hold detector: %w", err)
	}

	cam := capture.NewSource(cfg.Camera.Source)
	cam.SetFPS(cfg.Camera.FPS)
	var interval time.Duration
	if _, err := strconv.Atoi(cfg.Camera.Source); err != nil {
		// Video files play back at their configured rate.
		interval = time.Second / time.Duration(cfg.Camera.FPS)
	}

	st, err := openStore(cfg.Store.Path, logger)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	client := publish.Connect(publish.Options{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
	}, logger)
	publisher := publish.NewPublisher(client, cfg.MQTT.Prefix, logger)
	defer publisher.Close()

	frames := server.NewFrameBuffer()
	hub := server.NewHub(logger)
	observers := []app.Observer{hub}
	if t != nil {
		observers = append(observers, t)
	}

	a, err := app.New(app.Config{
		Camera:       cam,
		PoseDetector: poses,
		HoldDetector: holds,
		Classifier:   routeCfg,
		Tracker:      cfg.TrackerSettings(),
		Limbs:        limbs,
		Calibration: app.CalibrationConfig{
			Duration:        cfg.Calibration.Duration,
			StillFrames:     cfg.Calibration.StillFrames,
			MotionThreshold: cfg.Calibration.MotionThreshold,
		},
		FrameInterval: interval,
		Notifier:      newNotifier(cfg, logger),
		Store:         st,
		Publisher:     publisher,
		Frames:        frames,
		Observers:     observers,
		Logger:        logger,
	})
	if err != nil {
		poses.Close()
		holds.Close()
		return err
	}
	defer a.Close()

	if cfg.Server.Enabled {
		srv := server.New(server.Config{
			StaticDir: findWebDir(),
			Store:     st,
			State:     a,
			Frames:    frames,
			Hub:       hub,
			Logger:    logger,
		})
		go func() {
			if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
				logger.Error("viewer server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("viewer shutdown", zap.Error(err))
			}
		}()
	} else {
		defer hub.Close()
	}

	if t != nil {
		t.OnPause(a.SetPaused)
		t.OnViewer(func() {
			if err := openBrowser("http://" + cfg.Server.Addr); err != nil {
				logger.Warn("open viewer", zap.Error(err))
			}
		})
	}

	logger.Info("holdfast starting",
		zap.String("source", cfg.Camera.Source),
		zap.Int("limbs", len(limbs)),
		zap.Bool("viewer", cfg.Server.Enabled),
		zap.Bool("mqtt", client != nil),
	)

	err = a.Run(ctx, &stdinSelector{ctx: ctx, selector: route.NewSelector(os.Stdin, os.Stdout)})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// stdinSelector lets a cancelled context interrupt the route prompt.
type stdinSelector struct {
	ctx      context.Context
	selector *route.Selector
}

func (s *stdinSelector) Select(routes *route.Routes) (route.Selection, error) {
	type result struct {
		sel route.Selection
		err error
	}
	ch := make(chan result, 1)
	go func() {
		sel, err := s.selector.Select(routes)
		ch <- result{sel, err}
	}()

	select {
	case <-s.ctx.Done():
		return route.Selection{}, s.ctx.Err()
	case r := <-ch:
		return r.sel, r.err
	}
}

// openStore opens the climb log, or returns nil when path is empty.
func openStore(path string, logger *zap.Logger) (*store.Store, error) {
	if path == "" {
		logger.Info("climb log disabled")
		return nil, nil
	}

	path = config.ExpandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("open climb log: %w", err)
	}
	logger.Info("climb log opened", zap.String("path", path))
	return st, nil
}

// newNotifier returns a tone notifier backed by the plugin that handles
// the play action, or a silent one when audio is off or no plugin exists.
func newNotifier(cfg *config.Config, logger *zap.Logger) feedback.Notifier {
	if !cfg.Audio.Enabled {
		return feedback.Nop{}
	}

	mgr := plugin.NewManager(config.ExpandHome(cfg.Audio.PluginDir), logger)
	if err := mgr.Discover(); err != nil {
		logger.Warn("plugin discovery failed, audio disabled", zap.Error(err))
		return feedback.Nop{}
	}
	p, err := mgr.Find(feedback.PlayAction)
	if err != nil {
		logger.Warn("no tone plugin, audio disabled", zap.Error(err))
		return feedback.Nop{}
	}

	logger.Info("audio enabled", zap.String("plugin", p.Manifest.Name))
	return feedback.NewPluginNotifier(plugin.NewExecutor(cfg.Audio.Timeout), p, logger)
}

// findWebDir searches for the viewer's static files.
// It checks: "web", "../web", "../../web", and ~/.holdfast/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeWebDir := config.ExpandHome("~/.holdfast/web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

func openBrowser(url string) error {
	name := "xdg-open"
	if runtime.GOOS == "darwin" {
		name = "open"
	}
	return exec.Command(name, url).Start()
}
