// Nayana moves the mouse cursor with head movements tracked by the webcam.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ayusman/nayana/internal/app"
	"github.com/ayusman/nayana/internal/config"
	"github.com/ayusman/nayana/internal/hotkey"
	"github.com/ayusman/nayana/internal/identity"
	"github.com/ayusman/nayana/internal/log"
	"github.com/ayusman/nayana/internal/server"
	"github.com/ayusman/nayana/internal/store"
	"github.com/ayusman/nayana/internal/tray"
)

var version = "dev"

func init() {
	// The tray and the preview window need the main OS thread.
	runtime.LockOSThread()
}

// flagSettings maps command line flags to config setting keys.
var flagSettings = map[string]string{
	"camera":        "camera_id",
	"screen-width":  "screen_width",
	"screen-height": "screen_height",
	"data-dir":      "data_dir",
	"http-addr":     "http_addr",
	"preview":       "preview",
	"tray":          "tray",
	"toggle-key":    "toggle_key",
	"identity-url":  "identity_url",
	"log-level":     "log_level",
	"log-file":      "log_file",
}

type options struct {
	envFile string
	set     map[string]string
}

func main() {
	opts := &options{}
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "nayana",
		Short: "Head-tracking cursor control",
		Long: `nayana tracks your face with the webcam and moves the mouse cursor
where your head points.

Hotkeys: the global toggle key (F7 by default), the tray menu, the
preview window (q quit, c calibrate, m toggle) and
POST /api/control/{toggle,calibrate} on the HTTP API.`,
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.Flags(), opts)
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.envFile, "env-file", ".env", "optional .env file with NAYANA_* variables")
	flags.StringToStringVar(&opts.set, "set", nil, "override a setting, e.g. --set yaw_fov=25 (repeatable)")
	flags.Int("camera", defaults.CameraID, "camera device id")
	flags.Int("screen-width", 0, "screen width in pixels (0 = detect)")
	flags.Int("screen-height", 0, "screen height in pixels (0 = detect)")
	flags.String("data-dir", defaults.DataDir, "directory for the settings and session database")
	flags.String("http-addr", defaults.HTTPAddr, "HTTP API listen address (empty = disabled)")
	flags.Bool("preview", defaults.Preview, "show the camera preview window")
	flags.Bool("tray", defaults.Tray, "show the system tray menu")
	flags.String("toggle-key", defaults.ToggleKey, "global key toggling cursor control from any window (empty = off)")
	flags.String("identity-url", defaults.IdentityURL, "face identity websocket, e.g. "+identity.DefaultURL)
	flags.String("log-level", defaults.LogLevel, "debug, info, warn or error")
	flags.String("log-file", defaults.LogFile, "also write logs to this rotated file")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers defaults, environment, stored settings and flags. The
// data directory is resolved first because it locates the stored settings.
func loadConfig(flags *pflag.FlagSet, opts *options) (config.Config, *store.Store, error) {
	cfg := config.Default()
	if err := cfg.LoadEnv(opts.envFile); err != nil {
		return cfg, nil, err
	}

	overrides := map[string]string{}
	flags.Visit(func(f *pflag.Flag) {
		if key, ok := flagSettings[f.Name]; ok {
			overrides[key] = f.Value.String()
		}
	})
	for key, value := range opts.set {
		overrides[key] = value
	}

	if dir, ok := overrides["data_dir"]; ok {
		cfg.DataDir = dir
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return cfg, nil, err
	}

	stored, err := st.Settings().All()
	if err != nil {
		st.Close()
		return cfg, nil, fmt.Errorf("load stored settings: %w", err)
	}
	if err := cfg.ApplySettings(stored); err != nil {
		st.Close()
		return cfg, nil, fmt.Errorf("stored settings: %w", err)
	}
	if err := cfg.ApplySettings(overrides); err != nil {
		st.Close()
		return cfg, nil, err
	}
	if err := cfg.Validate(); err != nil {
		st.Close()
		return cfg, nil, err
	}
	return cfg, st, nil
}

func run(ctx context.Context, flags *pflag.FlagSet, opts *options) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, st, err := loadConfig(flags, opts)
	if err != nil {
		return err
	}
	defer st.Close()

	logger := log.New(log.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	logger.WithFields(logrus.Fields{
		"version": version,
		"data":    cfg.DataDir,
	}).Info("nayana starting")

	useTray := cfg.Tray
	if cfg.Preview && useTray {
		logger.Warn("preview window runs the tracking loop on the main thread; tray disabled")
		useTray = false
	}

	queue := hotkey.NewQueue(hotkey.DefaultQueueSize)
	hub := server.NewHub(logger)

	appOpts := []app.Option{
		app.WithStore(st),
		app.WithQueue(queue),
		app.WithTelemetry(hub),
		app.WithLogger(logger),
	}

	if cfg.IdentityURL != "" {
		client := identity.NewClient(cfg.IdentityURL, logger)
		defer client.Close()
		appOpts = append(appOpts, app.WithIdentity(client))
	}

	if cfg.ToggleKey != "" {
		kb, err := hotkey.NewKeyboard(
			hotkey.KeyBindings{cfg.ToggleKey: hotkey.Toggle},
			hotkey.QueueSource{Name: hotkey.KeyboardSource, Queue: queue},
		)
		if err != nil {
			return fmt.Errorf("toggle key: %w", err)
		}
		kb.Start()
		defer kb.Stop()
		logger.WithField("key", cfg.ToggleKey).Info("global toggle key active")
	}

	var preview *hotkey.Preview
	if cfg.Preview {
		preview = hotkey.NewPreview("Nayana", hotkey.QueueSource{Name: "preview", Queue: queue})
		defer preview.Close()
		appOpts = append(appOpts, app.WithPreview(preview))
	}

	var t *tray.Tray
	if useTray {
		t = tray.New(hotkey.QueueSource{Name: tray.Source, Queue: queue})
		t.OnExit(func() { logger.Debug("tray closed") })
		appOpts = append(appOpts, app.WithIndicator(t))
	}

	a, err := app.New(cfg, appOpts...)
	if err != nil {
		return err
	}

	if cfg.HTTPAddr != "" {
		srv := server.New(server.Config{
			Store:     st,
			Queue:     queue,
			Settings:  &cfg,
			Status:    a.Status,
			Telemetry: hub,
			Logger:    logger,
		})
		// Runs before the deferred store close.
		defer startAPI(ctx, srv, cfg.HTTPAddr, logger)()
	}

	if t == nil {
		return finish(logger, a.Run(ctx))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
		t.Quit()
	}()
	t.Run()

	cancel()
	return finish(logger, <-errCh)
}

type apiServer interface {
	ListenAndServe(ctx context.Context, addr string) error
}

// startAPI serves srv in the background. The returned stop cancels serving
// and waits until in-flight requests have drained.
func startAPI(ctx context.Context, srv apiServer, addr string, logger logrus.FieldLogger) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			logger.WithError(err).Error("http api stopped")
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func finish(logger *logrus.Logger, err error) error {
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("tracking loop failed")
		return err
	}
	logger.Info("nayana stopped")
	return nil
}
