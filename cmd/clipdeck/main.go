// Package main provides the CLI entry point for clipdeck.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/clipdeck/pkg/adapters/httpapi"
	"github.com/user/clipdeck/pkg/adapters/logger"
	"github.com/user/clipdeck/pkg/config"
	"github.com/user/clipdeck/pkg/orchestrator"
	"github.com/user/clipdeck/pkg/ports"
	"github.com/user/clipdeck/pkg/project"
	"github.com/user/clipdeck/pkg/recording"
	"github.com/user/clipdeck/pkg/render"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "clipdeck",
		Usage:   l10n.T("Record the screen and render polished videos"),
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("Configuration file (YAML)")},
			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Usage: l10n.T("Log level (debug, info, warn, error)")},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Usage: l10n.T("Suppress all log output")},
			&cli.StringFlag{Name: "backend", Usage: l10n.T("Capture backend (screen, synthetic, screen+synthetic)")},
			&cli.StringFlag{Name: "dir", Usage: l10n.T("Recordings directory")},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: l10n.T("Write composed frames to the debug directory")},
		},
		Commands: []*cli.Command{
			{
				Name:  "devices",
				Usage: l10n.T("List capture devices"),
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "kind", Usage: l10n.T("Device kind (screen, window, camera, audio)")},
				},
				Action: runDevices,
			},
			{
				Name:   "permissions",
				Usage:  l10n.T("Show capture permission status"),
				Action: runPermissions,
			},
			{
				Name:  "record",
				Usage: l10n.T("Record the screen or a window until interrupted"),
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "window", Usage: l10n.T("Capture the window with this id")},
					&cli.StringFlag{Name: "camera", Usage: l10n.T("Camera label")},
					&cli.StringFlag{Name: "mic", Usage: l10n.T("Microphone name")},
					&cli.DurationFlag{Name: "duration", Usage: l10n.T("Stop after this duration")},
				},
				Action: runRecord,
			},
			{
				Name:   "recordings",
				Usage:  l10n.T("List recordings"),
				Action: runRecordings,
			},
			{
				Name:      "render",
				Usage:     l10n.T("Render a recording to an MP4 file"),
				ArgsUsage: "VIDEO_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: l10n.T("Output MP4 file path (required)")},
					&cli.StringFlag{Name: "project", Usage: l10n.T("Project configuration file (JSON)")},
					&cli.StringFlag{Name: "background", Usage: l10n.T("Background color (hex, e.g., #dcdcdc)")},
					&cli.StringFlag{Name: "summary", Usage: l10n.T("Write a Markdown summary of the render to this file")},
				},
				Action: runRender,
			},
			{
				Name:      "delete",
				Usage:     l10n.T("Delete a recording"),
				ArgsUsage: "VIDEO_ID",
				Action:    runDelete,
			},
			{
				Name:  "serve",
				Usage: l10n.T("Serve the command API over HTTP"),
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: l10n.T("Listen address")},
				},
				Action: runServe,
			},
			{
				Name:  "version",
				Usage: l10n.T("Show version information"),
				Action: func(c *cli.Context) error {
					fmt.Println(l10n.F("clipdeck version %s", version))
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration file and applies the global flags.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if v := c.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if c.Bool("quiet") {
		cfg.LogLevel = "quiet"
	}
	if v := c.String("backend"); v != "" {
		cfg.Capture.Backend = v
	}
	if v := c.String("dir"); v != "" {
		cfg.RecordingsDir = v
	}
	if c.Bool("debug") {
		cfg.Debug = true
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) ports.Logger {
	if cfg.Level() == ports.LevelQuiet {
		return logger.NewNoop()
	}
	return logger.NewConsole(cfg.Level())
}

// open creates the App for one command.
func open(c *cli.Context, watch bool) (*orchestrator.App, config.Config, ports.Logger, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, cfg, nil, err
	}
	log := newLogger(cfg)
	appCfg := cfg.ToAppConfig()
	appCfg.Watch = watch
	app, err := orchestrator.New(appCfg, log)
	if err != nil {
		return nil, cfg, nil, err
	}
	return app, cfg, log, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn(l10n.T("Interrupted, shutting down..."))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func runDevices(c *cli.Context) error {
	app, _, _, err := open(c, false)
	if err != nil {
		return err
	}
	defer app.Close()

	kinds := []ports.DeviceKind{ports.KindScreen, ports.KindWindow, ports.KindCamera, ports.KindAudio}
	if k := c.String("kind"); k != "" {
		kinds = []ports.DeviceKind{ports.DeviceKind(k)}
	}
	for _, kind := range kinds {
		devices, err := app.Devices(kind)
		if err != nil {
			return err
		}
		fmt.Printf("%s:\n", kind)
		for _, d := range devices {
			name := d.Name
			if d.OwnerName != "" {
				name = d.OwnerName + " - " + d.Name
			}
			fmt.Printf("  %-10s %s\n", d.ID, name)
		}
	}
	return nil
}

func runPermissions(c *cli.Context) error {
	app, _, _, err := open(c, false)
	if err != nil {
		return err
	}
	defer app.Close()
	return printJSON(app.Permissions())
}

func runRecordings(c *cli.Context) error {
	app, _, _, err := open(c, false)
	if err != nil {
		return err
	}
	defer app.Close()

	recs, err := app.Recordings()
	if err != nil {
		return err
	}
	for _, r := range recs {
		fmt.Printf("%s  %s  %dx%d  %.1fs\n", r.ID, r.CreatedAt.Format(time.RFC3339), r.Display.Width, r.Display.Height, r.Display.Duration)
	}
	return nil
}

func runRecord(c *cli.Context) error {
	app, _, log, err := open(c, false)
	if err != nil {
		return err
	}
	defer app.Close()

	opts := recording.DefaultOptions()
	if c.IsSet("window") {
		opts.CaptureTarget = recording.WindowTarget{ID: uint32(c.Uint("window"))}
	}
	if v := c.String("camera"); v != "" {
		opts.CameraLabel = &v
	}
	if v := c.String("mic"); v != "" {
		opts.AudioInputName = &v
	}
	app.SetRecordingOptions(opts)

	ctx, cancel := signalContext(log)
	defer cancel()
	if d := c.Duration("duration"); d > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, d)
		defer stop()
	}

	progress, err := app.StartRecording(ctx)
	if err != nil {
		return err
	}
	log.Info(l10n.T("Recording to %s, press Ctrl+C to stop"), progress.RecordingDir)
	<-ctx.Done()

	rec, err := app.StopRecording(context.Background())
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("recording %s ended before it was stopped", progress.ID)
	}
	fmt.Println(rec.ID)
	return nil
}

func runRender(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("%s", l10n.T("VIDEO_ID is required"))
	}
	app, _, log, err := open(c, false)
	if err != nil {
		return err
	}
	defer app.Close()

	cfg, err := projectFromFlags(c)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	total := 0
	path, err := app.RenderToFile(ctx, id, cfg, func(p render.Progress) {
		switch v := p.(type) {
		case render.Starting:
			total = v.TotalFrames
		case render.EstimatedTotalFrames:
			total = v.TotalFrames
		case render.FrameRendered:
			if v.CurrentFrame%30 == 0 || v.CurrentFrame == total-1 {
				log.Debug(l10n.T("Rendered frame %d/%d"), v.CurrentFrame+1, total)
			}
		}
	})
	if err != nil {
		return err
	}
	out, err := app.CopyRenderedVideo(id, cfg, c.String("output"))
	if err != nil {
		return err
	}
	log.Debug("Render cache %s", path)
	if summary := c.String("summary"); summary != "" {
		if err := app.WriteRenderSummary(id, cfg, summary); err != nil {
			return err
		}
	}
	fmt.Println(out)
	return nil
}

// projectFromFlags loads --project over the default project and applies
// --background. It returns nil when neither flag is set, which renders the
// saved project.
func projectFromFlags(c *cli.Context) (*project.Configuration, error) {
	if c.String("project") == "" && c.String("background") == "" {
		return nil, nil
	}
	cfg := project.Default()
	if path := c.String("project"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read project: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse project %s: %w", path, err)
		}
	}
	if hex := c.String("background"); hex != "" {
		rgb, err := config.ParseRGB(hex)
		if err != nil {
			return nil, err
		}
		cfg.Background.Source = project.ColorSource{Value: rgb}
	}
	return cfg, nil
}

func runDelete(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("%s", l10n.T("VIDEO_ID is required"))
	}
	app, _, _, err := open(c, false)
	if err != nil {
		return err
	}
	defer app.Close()
	return app.DeleteRecording(id)
}

func runServe(c *cli.Context) error {
	app, cfg, log, err := open(c, true)
	if err != nil {
		return err
	}
	defer app.Close()

	if cfg.Level() == ports.LevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	addr := cfg.Server.Addr
	if v := c.String("addr"); v != "" {
		addr = v
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	log.Info(l10n.T("Serving the command API on http://%s/api"), ln.Addr())
	return httpapi.New(app, app.Bus(), log, version).Serve(ctx, ln)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
