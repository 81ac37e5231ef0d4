package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lao-tseu-is-alive/go-swarm-escape/pkg/simulation"
	"github.com/tochemey/goakt/v3/log"
	"github.com/urfave/cli"
)

func main() {
	app := makeapp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func makeapp() *cli.App {
	app := cli.NewApp()
	app.Name = "flock-headless"
	app.Usage = "Run the flock simulation without a window and report kills"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Value: "", Usage: "JSON or TOML configuration file"},
		cli.DurationFlag{Name: "duration", Value: 10 * time.Second, Usage: "How long to run; 0 runs until interrupted"},
		cli.IntFlag{Name: "size", Value: -1, Usage: "Swarm size, overrides the configuration"},
		cli.BoolFlag{Name: "predator", Usage: "Activate the predator"},
		cli.BoolFlag{Name: "lethal", Usage: "Let the predator kill"},
		cli.StringFlag{Name: "escape", Value: "", Usage: "Escape strategy: none, potential-field, right-angle, predictive-right-angle, explosion, predator-direction"},
		cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
	}
	app.Action = func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}

		var logger log.Logger = log.DefaultLogger
		if c.Bool("debug") {
			logger = log.New(log.DebugLevel, os.Stdout)
		}
		return runAction(cfg, c.Duration("duration"), logger)
	}
	return app
}

func loadConfig(c *cli.Context) (*simulation.Config, error) {
	cfg := simulation.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := simulation.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if size := c.Int("size"); size >= 0 {
		cfg.SwarmSize = size
	}
	if c.Bool("predator") {
		cfg.PredatorActive = true
	}
	if c.Bool("lethal") {
		cfg.PredatorLethal = true
	}
	if escape := c.String("escape"); escape != "" {
		cfg.EscapeStrategy = escape
	}
	return cfg, nil
}

func runAction(cfg *simulation.Config, duration time.Duration, logger log.Logger) error {
	sim, err := simulation.New(cfg, simulation.WithLogger(logger))
	if err != nil {
		return err
	}

	sim.OnAgentsKilled(func(killed, remaining int) {
		logger.Infof("💀 %d caught, %d agents left", killed, remaining)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	if err := sim.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sim.Stop(stopCtx); err != nil {
		return err
	}

	stats := sim.Stats()
	logger.Infof("run %s: %d ticks, %d kills, %d agents left, escape %q",
		sim.RunID, stats.Ticks, stats.Kills, sim.Swarm().Len(), sim.Swarm().EscapeStrategy().Title())
	return nil
}
