package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/lao-tseu-is-alive/go-swarm-escape/internal/viewer"
	"github.com/lao-tseu-is-alive/go-swarm-escape/pkg/simulation"
	golog "github.com/tochemey/goakt/v3/log"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "flock"
	app.Usage = "Watch a flock escape a predator"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Value: "", Usage: "JSON or TOML configuration file"},
		cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
	}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg := simulation.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := simulation.LoadConfig(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	var logger golog.Logger = golog.DefaultLogger
	if c.Bool("debug") {
		logger = golog.New(golog.DebugLevel, os.Stdout)
	}

	sim, err := simulation.New(cfg, simulation.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := sim.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := sim.Stop(stopCtx); err != nil {
			logger.Errorf("stopping simulation: %v", err)
		}
	}()

	ebiten.SetWindowSize(int(cfg.WorldWidth)+viewer.PanelWidth, int(cfg.WorldHeight))
	ebiten.SetWindowTitle("Swarm: escape the predator")
	ebiten.SetTPS(cfg.FrameRate)

	return ebiten.RunGame(viewer.NewGame(sim))
}
