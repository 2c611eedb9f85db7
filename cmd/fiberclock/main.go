package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/valerio/go-fiberclock/fiberclock"
	"github.com/valerio/go-fiberclock/fiberclock/backend"
	"github.com/valerio/go-fiberclock/fiberclock/backend/headless"
	"github.com/valerio/go-fiberclock/fiberclock/backend/sdl2"
	"github.com/valerio/go-fiberclock/fiberclock/backend/terminal"
	"github.com/valerio/go-fiberclock/fiberclock/scene"
	"github.com/valerio/go-fiberclock/fiberclock/timing"
)

func main() {
	app := cli.NewApp()
	app.Name = "fiberclock"
	app.Description = "A real-time frame clock driving cooperative fibers"
	app.Usage = "fiberclock [options] [scene.yaml]"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "scene",
			Usage: "Path to a YAML scene file (default: built-in demo scene)",
		},
		cli.StringFlag{
			Name:  "backend",
			Usage: "Presentation backend: terminal, headless or sdl2",
			Value: "terminal",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Shorthand for --backend headless",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (0 = until interrupted)",
		},
		cli.Int64Flag{
			Name:  "period-num",
			Usage: "Frame period numerator in seconds, overrides the scene",
		},
		cli.Int64Flag{
			Name:  "period-denom",
			Usage: "Frame period denominator, overrides the scene",
		},
		cli.IntFlag{
			Name:  "refresh-rate",
			Usage: "Host frames per second",
			Value: timing.DefaultRefreshRate,
		},
		cli.StringFlag{
			Name:  "limiter",
			Usage: "Host frame limiter: adaptive, ticker or none",
			Value: "adaptive",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "Minimum log level: debug, info, warn or error",
			Value: "info",
		},
		cli.IntFlag{
			Name:  "scale",
			Usage: "Window scale for the sdl2 backend",
			Value: 2,
		},
		cli.DurationFlag{
			Name:  "jitter",
			Usage: "Headless only: random host frame jitter",
		},
		cli.IntFlag{
			Name:  "stall-every",
			Usage: "Headless only: inject a stall every N host frames (0 = never)",
		},
		cli.DurationFlag{
			Name:  "stall",
			Usage: "Headless only: length of an injected stall",
			Value: timing.RefreshDuration(1),
		},
		cli.Uint64Flag{
			Name:  "seed",
			Usage: "Headless only: jitter seed",
			Value: 1,
		},
	}
	app.Action = runScene

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running fiberclock", "error", err)
		os.Exit(1)
	}
}

func runScene(c *cli.Context) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	sc, err := loadScene(c)
	if err != nil {
		return err
	}

	kind := c.String("backend")
	if c.Bool("headless") {
		kind = "headless"
	}

	refresh := timing.RefreshDuration(c.Int("refresh-rate"))

	var (
		b    backend.Backend
		host timing.Runner
	)
	switch kind {
	case "headless":
		frames := c.Int("frames")
		if frames < 0 {
			return errors.New("--frames must not be negative")
		}
		b = headless.New(uint64(frames))
		pacing := headless.Pacing{
			Step:       refresh,
			Jitter:     c.Duration("jitter"),
			StallEvery: c.Int("stall-every"),
			Stall:      c.Duration("stall"),
			Seed:       c.Uint64("seed"),
		}
		host = timing.NewStepper(timing.NewManualHost(0), pacing.Delta())
	case "terminal":
		b = terminal.New()
		host = timing.NewLoop(timing.NewLimiter(c.String("limiter"), refresh))
	case "sdl2":
		b = sdl2.New()
		host = timing.NewLoop(timing.NewLimiter(c.String("limiter"), refresh))
	default:
		cli.ShowAppHelp(c)
		return fmt.Errorf("unknown backend %q", kind)
	}

	app, err := fiberclock.New(host, fiberclock.Config{
		Backend: b,
		BackendConfig: backend.Config{
			Title:    "fiberclock: " + sc.Name,
			Scale:    c.Int("scale"),
			LogLevel: level,
		},
		Scene: sc,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Run(ctx)
}

func loadScene(c *cli.Context) (*scene.Scene, error) {
	path := c.String("scene")
	if path == "" && c.NArg() > 0 {
		path = c.Args().Get(0)
	}

	sc := scene.Default()
	if path != "" {
		var err error
		if sc, err = scene.Load(path); err != nil {
			return nil, err
		}
	}

	num, denom := c.Int64("period-num"), c.Int64("period-denom")
	if num != 0 || denom != 0 {
		p := timing.FramePeriod{Num: num, Denom: denom}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		sc.Frequency = &scene.Frequency{Num: num, Denom: denom}
	}
	return sc, nil
}
